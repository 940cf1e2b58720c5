package models

import "time"

// CreateUserRequest is the admin payload for provisioning a user.
type CreateUserRequest struct {
	Name       string   `json:"name" validate:"required"`
	Email      string   `json:"email" validate:"required,email"`
	Password   string   `json:"password" validate:"required,min=6"`
	Role       UserRole `json:"role" validate:"required"`
	StudentID  string   `json:"student_id"`
	Department string   `json:"department"`
}

// UpdateUserRequest is the admin payload for editing a user. Nil fields are
// left untouched.
type UpdateUserRequest struct {
	Name       *string   `json:"name"`
	Email      *string   `json:"email"`
	Password   *string   `json:"password"`
	Role       *UserRole `json:"role"`
	StudentID  *string   `json:"student_id"`
	Department *string   `json:"department"`
}

// AdminStats is the headline dashboard rollup.
type AdminStats struct {
	TotalStudents     int     `json:"total_students"`
	TotalTeachers     int     `json:"total_teachers"`
	TotalClasses      int     `json:"total_classes"`
	TotalSessions     int     `json:"total_sessions"`
	SessionsToday     int     `json:"sessions_today"`
	MarksToday        int     `json:"marks_today"`
	OverallAttendance float64 `json:"overall_attendance"`
}

// DepartmentStat is a per-department rollup. Department keys are free text;
// spelling variants produce separate rows.
type DepartmentStat struct {
	Department string  `db:"department" json:"department"`
	Students   int     `db:"students" json:"students"`
	Classes    int     `db:"classes" json:"classes"`
	Attendance float64 `db:"attendance" json:"attendance"`
}

// RecentActivityEntry is one row of the newest-first mark feed.
type RecentActivityEntry struct {
	StudentName    string     `db:"student_name" json:"student_name"`
	StudentNumber  *string    `db:"student_number" json:"student_number,omitempty"`
	ClassName      string     `db:"class_name" json:"class_name"`
	SessionTitle   string     `db:"session_title" json:"session_title"`
	MarkedAt       time.Time  `db:"marked_at" json:"marked_at"`
	ScheduledStart time.Time  `db:"scheduled_start" json:"-"`
	Status         MarkStatus `json:"status"`
}

// ClassWiseReportRow aggregates attendance per class.
type ClassWiseReportRow struct {
	ClassID        string  `db:"class_id" json:"class_id"`
	ClassName      string  `db:"class_name" json:"class_name"`
	ClassCode      string  `db:"class_code" json:"class_code"`
	TeacherName    *string `db:"teacher_name" json:"teacher_name,omitempty"`
	Students       int     `db:"students" json:"students"`
	Sessions       int     `db:"sessions" json:"sessions"`
	Marks          int     `db:"marks" json:"marks"`
	AttendanceRate float64 `db:"attendance_rate" json:"attendance_rate"`
}

// StudentAttendanceReportRow aggregates attendance per student.
type StudentAttendanceReportRow struct {
	UserID         string  `db:"user_id" json:"user_id"`
	Name           string  `db:"name" json:"name"`
	StudentNumber  *string `db:"student_number" json:"student_number,omitempty"`
	Department     *string `db:"department" json:"department,omitempty"`
	Classes        int     `db:"classes" json:"classes"`
	SessionsHeld   int     `db:"sessions_held" json:"sessions_held"`
	Attended       int     `db:"attended" json:"attended"`
	AttendanceRate float64 `db:"attendance_rate" json:"attendance_rate"`
}

// TeacherReportRow aggregates activity per teacher.
type TeacherReportRow struct {
	UserID       string  `db:"user_id" json:"user_id"`
	Name         string  `db:"name" json:"name"`
	Department   *string `db:"department" json:"department,omitempty"`
	Classes      int     `db:"classes" json:"classes"`
	Sessions     int     `db:"sessions" json:"sessions"`
	MarksTracked int     `db:"marks_tracked" json:"marks_tracked"`
}
