package models

import "time"

// Class represents a course section owned by a teacher. TeacherID is nullable
// so classes survive the deletion of their owner as orphans.
type Class struct {
	ID         string    `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	Code       string    `db:"code" json:"code"`
	TeacherID  *string   `db:"teacher_id" json:"teacher_id,omitempty"`
	Department *string   `db:"department" json:"department,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// RosterStudent is a roster entry joined with the student's identity.
type RosterStudent struct {
	ID        string  `db:"id" json:"id"`
	Name      string  `db:"name" json:"name"`
	Email     string  `db:"email" json:"email"`
	StudentID *string `db:"student_id" json:"student_id,omitempty"`
}

// ClassWithRoster bundles a class with its enrolled students.
type ClassWithRoster struct {
	Class
	Students []RosterStudent `json:"students"`
}

// ClassDetail extends Class with owner metadata for listings.
type ClassDetail struct {
	Class
	TeacherName *string `db:"teacher_name" json:"teacher_name,omitempty"`
	SessionCount int    `db:"session_count" json:"session_count"`
	StudentCount int    `db:"student_count" json:"student_count"`
}

// EnrolledClass is the student view of a joined class.
type EnrolledClass struct {
	Class
	TeacherName      *string `db:"teacher_name" json:"teacher_name,omitempty"`
	TodaySessions    int     `db:"today_sessions" json:"today_sessions"`
	UpcomingSessions int     `db:"upcoming_sessions" json:"upcoming_sessions"`
}

// CreateClassRequest is the payload for creating a class.
type CreateClassRequest struct {
	Name       string `json:"name" validate:"required"`
	Code       string `json:"code" validate:"required"`
	Department string `json:"department"`
}

// JoinClassRequest enrolls a student by class code.
type JoinClassRequest struct {
	Code string `json:"code" validate:"required"`
}

// RegisterRow is one student's aggregate line in a class attendance register.
type RegisterRow struct {
	Student              RosterStudent `json:"student"`
	Attended             int           `json:"attended"`
	Late                 int           `json:"late"`
	Absent               int           `json:"absent"`
	TotalSessions        int           `json:"total_sessions"`
	AttendancePercentage int           `json:"attendance_percentage"`
}

// ClassRegister is the full register for a class.
type ClassRegister struct {
	Class         Class         `json:"class"`
	TotalSessions int           `json:"total_sessions"`
	Rows          []RegisterRow `json:"register"`
}
