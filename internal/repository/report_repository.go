package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/smartattend/api/internal/models"
)

// ReportRepository exposes read-optimised aggregate queries for admin reports.
// Aggregates only count sessions that have started.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository constructs the repository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// DepartmentStats returns per-department rollups. Department is free text, so
// spelling variants fragment into separate rows.
func (r *ReportRepository) DepartmentStats(ctx context.Context, now time.Time) ([]models.DepartmentStat, error) {
	const query = `SELECT COALESCE(u.department, 'Unassigned') AS department,
COUNT(*) FILTER (WHERE u.role = 'student') AS students,
(SELECT COUNT(*) FROM classes c WHERE COALESCE(c.department, 'Unassigned') = COALESCE(u.department, 'Unassigned')) AS classes,
COALESCE((
    SELECT CASE WHEN SUM(expected.roster) = 0 THEN 0
        ELSE SUM(expected.marks)::DECIMAL / SUM(expected.roster) * 100 END
    FROM (
        SELECT (SELECT COUNT(*) FROM class_students cs WHERE cs.class_id = s.class_id) AS roster,
               (SELECT COUNT(*) FROM attendance_marks am WHERE am.session_id = s.id) AS marks
        FROM sessions s
        JOIN classes c2 ON c2.id = s.class_id
        WHERE s.scheduled_start <= $1
          AND COALESCE(c2.department, 'Unassigned') = COALESCE(u.department, 'Unassigned')
    ) AS expected
), 0) AS attendance
FROM users u
WHERE u.role = 'student'
GROUP BY COALESCE(u.department, 'Unassigned')
ORDER BY department ASC`
	var stats []models.DepartmentStat
	if err := r.db.SelectContext(ctx, &stats, query, now); err != nil {
		return nil, fmt.Errorf("query department stats: %w", err)
	}
	return stats, nil
}

// ClassWise returns per-class attendance aggregates.
func (r *ReportRepository) ClassWise(ctx context.Context, now time.Time) ([]models.ClassWiseReportRow, error) {
	const query = `SELECT c.id AS class_id, c.name AS class_name, c.code AS class_code,
t.name AS teacher_name,
(SELECT COUNT(*) FROM class_students cs WHERE cs.class_id = c.id) AS students,
(SELECT COUNT(*) FROM sessions s WHERE s.class_id = c.id AND s.scheduled_start <= $1) AS sessions,
(SELECT COUNT(*) FROM attendance_marks am JOIN sessions s ON s.id = am.session_id WHERE s.class_id = c.id AND s.scheduled_start <= $1) AS marks,
CASE
    WHEN (SELECT COUNT(*) FROM class_students cs WHERE cs.class_id = c.id) = 0 THEN 0
    WHEN (SELECT COUNT(*) FROM sessions s WHERE s.class_id = c.id AND s.scheduled_start <= $1) = 0 THEN 0
    ELSE (SELECT COUNT(*) FROM attendance_marks am JOIN sessions s ON s.id = am.session_id WHERE s.class_id = c.id AND s.scheduled_start <= $1)::DECIMAL
        / ((SELECT COUNT(*) FROM class_students cs WHERE cs.class_id = c.id)
           * (SELECT COUNT(*) FROM sessions s WHERE s.class_id = c.id AND s.scheduled_start <= $1)) * 100
END AS attendance_rate
FROM classes c
LEFT JOIN users t ON t.id = c.teacher_id
ORDER BY c.name ASC`
	var rows []models.ClassWiseReportRow
	if err := r.db.SelectContext(ctx, &rows, query, now); err != nil {
		return nil, fmt.Errorf("query class-wise report: %w", err)
	}
	return rows, nil
}

// StudentsAttendance returns per-student attendance aggregates.
func (r *ReportRepository) StudentsAttendance(ctx context.Context, now time.Time) ([]models.StudentAttendanceReportRow, error) {
	const query = `SELECT u.id AS user_id, u.name, u.student_id AS student_number, u.department,
(SELECT COUNT(*) FROM class_students cs WHERE cs.student_id = u.id) AS classes,
(SELECT COUNT(*) FROM sessions s JOIN class_students cs ON cs.class_id = s.class_id
    WHERE cs.student_id = u.id AND s.scheduled_start <= $1) AS sessions_held,
(SELECT COUNT(*) FROM attendance_marks am JOIN sessions s ON s.id = am.session_id
    WHERE am.student_id = u.id AND s.scheduled_start <= $1) AS attended,
CASE
    WHEN (SELECT COUNT(*) FROM sessions s JOIN class_students cs ON cs.class_id = s.class_id
        WHERE cs.student_id = u.id AND s.scheduled_start <= $1) = 0 THEN 0
    ELSE (SELECT COUNT(*) FROM attendance_marks am JOIN sessions s ON s.id = am.session_id
        WHERE am.student_id = u.id AND s.scheduled_start <= $1)::DECIMAL
        / (SELECT COUNT(*) FROM sessions s JOIN class_students cs ON cs.class_id = s.class_id
        WHERE cs.student_id = u.id AND s.scheduled_start <= $1) * 100
END AS attendance_rate
FROM users u
WHERE u.role = 'student'
ORDER BY attendance_rate DESC, u.name ASC`
	var rows []models.StudentAttendanceReportRow
	if err := r.db.SelectContext(ctx, &rows, query, now); err != nil {
		return nil, fmt.Errorf("query students attendance report: %w", err)
	}
	return rows, nil
}

// Teachers returns per-teacher activity aggregates.
func (r *ReportRepository) Teachers(ctx context.Context) ([]models.TeacherReportRow, error) {
	const query = `SELECT u.id AS user_id, u.name, u.department,
(SELECT COUNT(*) FROM classes c WHERE c.teacher_id = u.id) AS classes,
(SELECT COUNT(*) FROM sessions s JOIN classes c ON c.id = s.class_id WHERE c.teacher_id = u.id) AS sessions,
(SELECT COUNT(*) FROM attendance_marks am JOIN sessions s ON s.id = am.session_id
    JOIN classes c ON c.id = s.class_id WHERE c.teacher_id = u.id) AS marks_tracked
FROM users u
WHERE u.role = 'teacher'
ORDER BY u.name ASC`
	var rows []models.TeacherReportRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("query teachers report: %w", err)
	}
	return rows, nil
}
