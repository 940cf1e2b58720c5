package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/smartattend/api/internal/models"
)

// SessionRepository provides database access for sessions and their QR codes.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository creates a new instance of SessionRepository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `id, class_id, title, scheduled_start, scheduled_end, created_at`

const qrColumns = `id, session_id, token, created_at, expires_at, active, qr_data_url`

// Create inserts a new session.
func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO sessions (id, class_id, title, scheduled_start, scheduled_end, created_at)
VALUES (:id, :class_id, :title, :scheduled_start, :scheduled_end, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, session); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// FindByID returns a session by identifier.
func (r *SessionRepository) FindByID(ctx context.Context, id string) (*models.Session, error) {
	query := fmt.Sprintf(`SELECT %s FROM sessions WHERE id = $1 LIMIT 1`, sessionColumns)
	var session models.Session
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find session by id: %w", err)
	}
	return &session, nil
}

// FindDetailByID returns a session joined with class metadata and its
// distinct attendee count.
func (r *SessionRepository) FindDetailByID(ctx context.Context, id string) (*models.SessionDetail, error) {
	const query = `SELECT s.id, s.class_id, s.title, s.scheduled_start, s.scheduled_end, s.created_at,
c.name AS class_name, c.code AS class_code,
(SELECT COUNT(*) FROM attendance_marks am WHERE am.session_id = s.id) AS attendee_count
FROM sessions s
JOIN classes c ON c.id = s.class_id
WHERE s.id = $1 LIMIT 1`
	var detail models.SessionDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find session detail: %w", err)
	}
	return &detail, nil
}

// ListByTeacher returns sessions of the teacher's classes, newest first.
func (r *SessionRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.SessionDetail, error) {
	const query = `SELECT s.id, s.class_id, s.title, s.scheduled_start, s.scheduled_end, s.created_at,
c.name AS class_name, c.code AS class_code,
(SELECT COUNT(*) FROM attendance_marks am WHERE am.session_id = s.id) AS attendee_count
FROM sessions s
JOIN classes c ON c.id = s.class_id
WHERE c.teacher_id = $1
ORDER BY s.scheduled_start DESC`
	var sessions []models.SessionDetail
	if err := r.db.SelectContext(ctx, &sessions, query, teacherID); err != nil {
		return nil, fmt.Errorf("list sessions by teacher: %w", err)
	}
	return sessions, nil
}

// ListByClass returns all sessions of a class, newest first.
func (r *SessionRepository) ListByClass(ctx context.Context, classID string) ([]models.SessionDetail, error) {
	const query = `SELECT s.id, s.class_id, s.title, s.scheduled_start, s.scheduled_end, s.created_at,
c.name AS class_name, c.code AS class_code,
(SELECT COUNT(*) FROM attendance_marks am WHERE am.session_id = s.id) AS attendee_count
FROM sessions s
JOIN classes c ON c.id = s.class_id
WHERE s.class_id = $1
ORDER BY s.scheduled_start DESC`
	var sessions []models.SessionDetail
	if err := r.db.SelectContext(ctx, &sessions, query, classID); err != nil {
		return nil, fmt.Errorf("list sessions by class: %w", err)
	}
	return sessions, nil
}

// ListBetween returns a teacher's sessions whose start falls in [from, to).
func (r *SessionRepository) ListBetween(ctx context.Context, teacherID string, from, to time.Time) ([]models.SessionDetail, error) {
	const query = `SELECT s.id, s.class_id, s.title, s.scheduled_start, s.scheduled_end, s.created_at,
c.name AS class_name, c.code AS class_code,
(SELECT COUNT(*) FROM attendance_marks am WHERE am.session_id = s.id) AS attendee_count
FROM sessions s
JOIN classes c ON c.id = s.class_id
WHERE c.teacher_id = $1 AND s.scheduled_start >= $2 AND s.scheduled_start < $3
ORDER BY s.scheduled_start ASC`
	var sessions []models.SessionDetail
	if err := r.db.SelectContext(ctx, &sessions, query, teacherID, from, to); err != nil {
		return nil, fmt.Errorf("list sessions between: %w", err)
	}
	return sessions, nil
}

// ListForStudentBetween returns sessions of the student's enrolled classes
// whose start falls in [from, to), joined with the student's own mark time.
func (r *SessionRepository) ListForStudentBetween(ctx context.Context, studentID string, from, to time.Time) ([]models.StudentSessionView, error) {
	const query = `SELECT s.id, s.class_id, s.title, s.scheduled_start, s.scheduled_end, s.created_at,
c.name AS class_name, c.code AS class_code,
am.marked_at
FROM sessions s
JOIN classes c ON c.id = s.class_id
JOIN class_students cs ON cs.class_id = c.id AND cs.student_id = $1
LEFT JOIN attendance_marks am ON am.session_id = s.id AND am.student_id = $1
WHERE s.scheduled_start >= $2 AND s.scheduled_start < $3
ORDER BY s.scheduled_start ASC`
	var views []models.StudentSessionView
	if err := r.db.SelectContext(ctx, &views, query, studentID, from, to); err != nil {
		return nil, fmt.Errorf("list student sessions between: %w", err)
	}
	return views, nil
}

// Delete removes a session together with its QR codes and marks.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete session: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM attendance_marks WHERE session_id = $1`, id); err != nil {
		return fmt.Errorf("delete session marks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM qr_codes WHERE session_id = $1`, id); err != nil {
		return fmt.Errorf("delete session qr codes: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete session: %w", err)
	}
	return nil
}

// Count returns the total number of sessions.
func (r *SessionRepository) Count(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM sessions`
	var count int
	if err := r.db.GetContext(ctx, &count, query); err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return count, nil
}

// CountBetween returns the number of sessions starting in [from, to).
func (r *SessionRepository) CountBetween(ctx context.Context, from, to time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM sessions WHERE scheduled_start >= $1 AND scheduled_start < $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, from, to); err != nil {
		return 0, fmt.Errorf("count sessions between: %w", err)
	}
	return count, nil
}

// ActiveQR returns the usable QR code for a session, or sql.ErrNoRows.
func (r *SessionRepository) ActiveQR(ctx context.Context, sessionID string) (*models.QRCode, error) {
	query := fmt.Sprintf(`SELECT %s FROM qr_codes WHERE session_id = $1 AND active = TRUE ORDER BY created_at DESC LIMIT 1`, qrColumns)
	var code models.QRCode
	if err := r.db.GetContext(ctx, &code, query, sessionID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find active qr: %w", err)
	}
	return &code, nil
}

// FindQRByToken returns a QR code by its token.
func (r *SessionRepository) FindQRByToken(ctx context.Context, token string) (*models.QRCode, error) {
	query := fmt.Sprintf(`SELECT %s FROM qr_codes WHERE token = $1 LIMIT 1`, qrColumns)
	var code models.QRCode
	if err := r.db.GetContext(ctx, &code, query, token); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find qr by token: %w", err)
	}
	return &code, nil
}

// ReplaceActiveQR deactivates any live QR codes for the session and inserts
// the new one in a single transaction, so at most one code is ever active.
func (r *SessionRepository) ReplaceActiveQR(ctx context.Context, code *models.QRCode) error {
	if code.ID == "" {
		code.ID = uuid.NewString()
	}
	if code.CreatedAt.IsZero() {
		code.CreatedAt = time.Now().UTC()
	}
	code.Active = true

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace qr: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `UPDATE qr_codes SET active = FALSE WHERE session_id = $1 AND active = TRUE`, code.SessionID); err != nil {
		return fmt.Errorf("deactivate previous qr: %w", err)
	}

	const insert = `INSERT INTO qr_codes (id, session_id, token, created_at, expires_at, active, qr_data_url)
VALUES (:id, :session_id, :token, :created_at, :expires_at, :active, :qr_data_url)`
	if _, err := tx.NamedExecContext(ctx, insert, code); err != nil {
		return fmt.Errorf("insert qr code: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace qr: %w", err)
	}
	return nil
}

// DeactivateQRs marks every QR code of a session inactive. Idempotent.
func (r *SessionRepository) DeactivateQRs(ctx context.Context, sessionID string) error {
	const query = `UPDATE qr_codes SET active = FALSE WHERE session_id = $1 AND active = TRUE`
	if _, err := r.db.ExecContext(ctx, query, sessionID); err != nil {
		return fmt.Errorf("deactivate qr codes: %w", err)
	}
	return nil
}
