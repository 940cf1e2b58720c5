package models

import (
	"regexp"
	"strings"
	"time"
)

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin   UserRole = "admin"
	RoleTeacher UserRole = "teacher"
	RoleStudent UserRole = "student"
)

// Valid returns true when the role is a supported value.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleTeacher, RoleStudent:
		return true
	default:
		return false
	}
}

// RoleSatisfies reports whether the actual role meets the required gate.
// Admin satisfies every gate.
func RoleSatisfies(actual, required UserRole) bool {
	if actual == RoleAdmin {
		return true
	}
	return actual == required
}

// studentIDPattern matches registration numbers such as 2023UCP1665.
var studentIDPattern = regexp.MustCompile(`(?i)^[0-9]{4}[A-Z]{2,4}[0-9]{3,5}$`)

// ValidStudentID reports whether the raw value matches the expected format.
func ValidStudentID(raw string) bool {
	return studentIDPattern.MatchString(strings.TrimSpace(raw))
}

// NormalizeStudentID trims and uppercases a registration number for storage.
func NormalizeStudentID(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// User represents an application user stored in the users table.
type User struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Name         string    `db:"name" json:"name"`
	Role         UserRole  `db:"role" json:"role"`
	StudentID    *string   `db:"student_id" json:"student_id,omitempty"`
	Department   *string   `db:"department" json:"department,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role   *UserRole
	Search string
}
