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

// ClassRepository provides database access for classes and their rosters.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository creates a new instance of ClassRepository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

const classColumns = `id, name, code, teacher_id, department, created_at`

// Create inserts a new class.
func (r *ClassRepository) Create(ctx context.Context, class *models.Class) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	if class.CreatedAt.IsZero() {
		class.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO classes (id, name, code, teacher_id, department, created_at)
VALUES (:id, :name, :code, :teacher_id, :department, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}

// FindByID returns a class by identifier.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.Class, error) {
	query := fmt.Sprintf(`SELECT %s FROM classes WHERE id = $1 LIMIT 1`, classColumns)
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find class by id: %w", err)
	}
	return &class, nil
}

// FindByCode returns a class by its join code.
func (r *ClassRepository) FindByCode(ctx context.Context, code string) (*models.Class, error) {
	query := fmt.Sprintf(`SELECT %s FROM classes WHERE UPPER(code) = UPPER($1) LIMIT 1`, classColumns)
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, code); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find class by code: %w", err)
	}
	return &class, nil
}

// ListByTeacher returns all classes owned by a teacher, newest first.
func (r *ClassRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.Class, error) {
	query := fmt.Sprintf(`SELECT %s FROM classes WHERE teacher_id = $1 ORDER BY created_at DESC`, classColumns)
	var classes []models.Class
	if err := r.db.SelectContext(ctx, &classes, query, teacherID); err != nil {
		return nil, fmt.Errorf("list classes by teacher: %w", err)
	}
	return classes, nil
}

// ListAll returns every class joined with owner name and counts.
func (r *ClassRepository) ListAll(ctx context.Context) ([]models.ClassDetail, error) {
	const query = `SELECT c.id, c.name, c.code, c.teacher_id, c.department, c.created_at,
u.name AS teacher_name,
(SELECT COUNT(*) FROM sessions s WHERE s.class_id = c.id) AS session_count,
(SELECT COUNT(*) FROM class_students cs WHERE cs.class_id = c.id) AS student_count
FROM classes c
LEFT JOIN users u ON u.id = c.teacher_id
ORDER BY c.created_at DESC`
	var classes []models.ClassDetail
	if err := r.db.SelectContext(ctx, &classes, query); err != nil {
		return nil, fmt.Errorf("list all classes: %w", err)
	}
	return classes, nil
}

// Roster returns the enrolled students of a class ordered by name.
func (r *ClassRepository) Roster(ctx context.Context, classID string) ([]models.RosterStudent, error) {
	const query = `SELECT u.id, u.name, u.email, u.student_id
FROM class_students cs
JOIN users u ON u.id = cs.student_id
WHERE cs.class_id = $1
ORDER BY u.name ASC`
	var students []models.RosterStudent
	if err := r.db.SelectContext(ctx, &students, query, classID); err != nil {
		return nil, fmt.Errorf("load class roster: %w", err)
	}
	return students, nil
}

// Enroll adds a student to a class roster. The insert is idempotent; the
// returned bool reports whether a new row was written.
func (r *ClassRepository) Enroll(ctx context.Context, classID, studentID string) (bool, error) {
	const query = `INSERT INTO class_students (class_id, student_id, joined_at)
VALUES ($1, $2, $3)
ON CONFLICT (class_id, student_id) DO NOTHING`
	res, err := r.db.ExecContext(ctx, query, classID, studentID, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("enroll student: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("enroll student rows affected: %w", err)
	}
	return affected > 0, nil
}

// IsEnrolled reports whether the student is on the class roster.
func (r *ClassRepository) IsEnrolled(ctx context.Context, classID, studentID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM class_students WHERE class_id = $1 AND student_id = $2)`
	var enrolled bool
	if err := r.db.GetContext(ctx, &enrolled, query, classID, studentID); err != nil {
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return enrolled, nil
}

// ListEnrolled returns the classes a student has joined, with session counts
// for today and the coming week.
func (r *ClassRepository) ListEnrolled(ctx context.Context, studentID string, now time.Time) ([]models.EnrolledClass, error) {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.Add(24 * time.Hour)
	weekEnd := now.Add(7 * 24 * time.Hour)

	const query = `SELECT c.id, c.name, c.code, c.teacher_id, c.department, c.created_at,
u.name AS teacher_name,
(SELECT COUNT(*) FROM sessions s WHERE s.class_id = c.id AND s.scheduled_start >= $2 AND s.scheduled_start < $3) AS today_sessions,
(SELECT COUNT(*) FROM sessions s WHERE s.class_id = c.id AND s.scheduled_start > $4 AND s.scheduled_start <= $5) AS upcoming_sessions
FROM class_students cs
JOIN classes c ON c.id = cs.class_id
LEFT JOIN users u ON u.id = c.teacher_id
WHERE cs.student_id = $1
ORDER BY cs.joined_at DESC`
	var classes []models.EnrolledClass
	if err := r.db.SelectContext(ctx, &classes, query, studentID, dayStart, dayEnd, now, weekEnd); err != nil {
		return nil, fmt.Errorf("list enrolled classes: %w", err)
	}
	return classes, nil
}

// UnsetTeacher detaches all classes owned by the given teacher, leaving them
// as orphans.
func (r *ClassRepository) UnsetTeacher(ctx context.Context, teacherID string) error {
	const query = `UPDATE classes SET teacher_id = NULL WHERE teacher_id = $1`
	if _, err := r.db.ExecContext(ctx, query, teacherID); err != nil {
		return fmt.Errorf("unset class teacher: %w", err)
	}
	return nil
}

// RemoveStudent pulls a student from every roster.
func (r *ClassRepository) RemoveStudent(ctx context.Context, studentID string) error {
	const query = `DELETE FROM class_students WHERE student_id = $1`
	if _, err := r.db.ExecContext(ctx, query, studentID); err != nil {
		return fmt.Errorf("remove student from rosters: %w", err)
	}
	return nil
}

// Count returns the total number of classes.
func (r *ClassRepository) Count(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM classes`
	var count int
	if err := r.db.GetContext(ctx, &count, query); err != nil {
		return 0, fmt.Errorf("count classes: %w", err)
	}
	return count, nil
}
