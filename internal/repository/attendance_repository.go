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

// AttendanceRepository provides database access for attendance marks.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository creates a new instance of AttendanceRepository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// InsertMark writes an attendance mark. UNIQUE(session_id, student_id) makes
// the insert idempotent; the returned bool reports whether a row was written,
// so a losing concurrent insert surfaces as the already-marked case.
func (r *AttendanceRepository) InsertMark(ctx context.Context, mark *models.AttendanceMark) (bool, error) {
	if mark.ID == "" {
		mark.ID = uuid.NewString()
	}
	if mark.MarkedAt.IsZero() {
		mark.MarkedAt = time.Now().UTC()
	}
	const query = `INSERT INTO attendance_marks (id, session_id, qr_code_id, student_id, marked_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (session_id, student_id) DO NOTHING`
	res, err := r.db.ExecContext(ctx, query, mark.ID, mark.SessionID, mark.QRCodeID, mark.StudentID, mark.MarkedAt)
	if err != nil {
		return false, fmt.Errorf("insert attendance mark: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert mark rows affected: %w", err)
	}
	return affected > 0, nil
}

// FindMark returns the student's mark for a session, or sql.ErrNoRows.
func (r *AttendanceRepository) FindMark(ctx context.Context, sessionID, studentID string) (*models.AttendanceMark, error) {
	const query = `SELECT id, session_id, qr_code_id, student_id, marked_at
FROM attendance_marks WHERE session_id = $1 AND student_id = $2 LIMIT 1`
	var mark models.AttendanceMark
	if err := r.db.GetContext(ctx, &mark, query, sessionID, studentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find attendance mark: %w", err)
	}
	return &mark, nil
}

// MarksBySession returns every mark of a session.
func (r *AttendanceRepository) MarksBySession(ctx context.Context, sessionID string) ([]models.AttendanceMark, error) {
	const query = `SELECT id, session_id, qr_code_id, student_id, marked_at
FROM attendance_marks WHERE session_id = $1 ORDER BY marked_at ASC`
	var marks []models.AttendanceMark
	if err := r.db.SelectContext(ctx, &marks, query, sessionID); err != nil {
		return nil, fmt.Errorf("list marks by session: %w", err)
	}
	return marks, nil
}

// ListRecords returns the flat mark feed joined with student, session and
// class metadata.
func (r *AttendanceRepository) ListRecords(ctx context.Context, filter models.AttendanceRecordFilter) ([]models.AttendanceRecord, error) {
	query := `SELECT am.id, am.session_id, s.title AS session_title, s.scheduled_start,
c.id AS class_id, c.name AS class_name, c.code AS class_code,
u.id AS student_id, u.name AS student_name, u.student_id AS student_number,
am.marked_at
FROM attendance_marks am
JOIN sessions s ON s.id = am.session_id
JOIN classes c ON c.id = s.class_id
JOIN users u ON u.id = am.student_id
WHERE 1=1`
	var args []interface{}

	if filter.ClassID != "" {
		args = append(args, filter.ClassID)
		query += fmt.Sprintf(" AND c.id = $%d", len(args))
	}
	if filter.TeacherID != "" {
		args = append(args, filter.TeacherID)
		query += fmt.Sprintf(" AND c.teacher_id = $%d", len(args))
	}
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		query += fmt.Sprintf(" AND u.id = $%d", len(args))
	}
	if filter.StartDate != nil {
		args = append(args, *filter.StartDate)
		query += fmt.Sprintf(" AND am.marked_at >= $%d", len(args))
	}
	if filter.EndDate != nil {
		args = append(args, *filter.EndDate)
		query += fmt.Sprintf(" AND am.marked_at <= $%d", len(args))
	}
	query += " ORDER BY am.marked_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	var records []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("list attendance records: %w", err)
	}
	return records, nil
}

// RecentActivity returns the newest marks for the admin feed.
func (r *AttendanceRepository) RecentActivity(ctx context.Context, limit int) ([]models.RecentActivityEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	const query = `SELECT u.name AS student_name, u.student_id AS student_number,
c.name AS class_name, s.title AS session_title, am.marked_at, s.scheduled_start
FROM attendance_marks am
JOIN sessions s ON s.id = am.session_id
JOIN classes c ON c.id = s.class_id
JOIN users u ON u.id = am.student_id
ORDER BY am.marked_at DESC
LIMIT $1`
	var entries []models.RecentActivityEntry
	if err := r.db.SelectContext(ctx, &entries, query, limit); err != nil {
		return nil, fmt.Errorf("list recent activity: %w", err)
	}
	return entries, nil
}

// ListStudentSessions returns the started sessions of the student's enrolled
// classes joined with their own mark, newest first.
func (r *AttendanceRepository) ListStudentSessions(ctx context.Context, studentID string, now time.Time, limit int) ([]models.StudentSessionView, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `SELECT s.id, s.class_id, s.title, s.scheduled_start, s.scheduled_end, s.created_at,
c.name AS class_name, c.code AS class_code,
am.marked_at
FROM sessions s
JOIN classes c ON c.id = s.class_id
JOIN class_students cs ON cs.class_id = c.id AND cs.student_id = $1
LEFT JOIN attendance_marks am ON am.session_id = s.id AND am.student_id = $1
WHERE s.scheduled_start <= $2
ORDER BY s.scheduled_start DESC
LIMIT $3`
	var views []models.StudentSessionView
	if err := r.db.SelectContext(ctx, &views, query, studentID, now, limit); err != nil {
		return nil, fmt.Errorf("list student sessions: %w", err)
	}
	return views, nil
}

// CountMarks returns the total number of marks.
func (r *AttendanceRepository) CountMarks(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM attendance_marks`
	var count int
	if err := r.db.GetContext(ctx, &count, query); err != nil {
		return 0, fmt.Errorf("count attendance marks: %w", err)
	}
	return count, nil
}

// CountMarksBetween returns marks recorded in [from, to).
func (r *AttendanceRepository) CountMarksBetween(ctx context.Context, from, to time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM attendance_marks WHERE marked_at >= $1 AND marked_at < $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, from, to); err != nil {
		return 0, fmt.Errorf("count marks between: %w", err)
	}
	return count, nil
}

// ExpectedMarks sums roster sizes over every started session; the divisor of
// the overall attendance rate.
func (r *AttendanceRepository) ExpectedMarks(ctx context.Context, now time.Time) (int, error) {
	const query = `SELECT COALESCE(SUM(roster), 0) FROM (
SELECT (SELECT COUNT(*) FROM class_students cs WHERE cs.class_id = s.class_id) AS roster
FROM sessions s WHERE s.scheduled_start <= $1
) AS per_session`
	var total int
	if err := r.db.GetContext(ctx, &total, query, now); err != nil {
		return 0, fmt.Errorf("sum expected marks: %w", err)
	}
	return total, nil
}

// DeleteByStudent removes every mark belonging to a student.
func (r *AttendanceRepository) DeleteByStudent(ctx context.Context, studentID string) error {
	const query = `DELETE FROM attendance_marks WHERE student_id = $1`
	if _, err := r.db.ExecContext(ctx, query, studentID); err != nil {
		return fmt.Errorf("delete marks by student: %w", err)
	}
	return nil
}

// ClearAll wipes the attendance_marks table.
func (r *AttendanceRepository) ClearAll(ctx context.Context) error {
	const query = `DELETE FROM attendance_marks`
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("clear attendance marks: %w", err)
	}
	return nil
}
