package models

import "time"

// SessionStatus is derived from the wall clock on every read; it is never
// persisted.
type SessionStatus string

const (
	SessionStatusUpcoming  SessionStatus = "upcoming"
	SessionStatusOngoing   SessionStatus = "ongoing"
	SessionStatusCompleted SessionStatus = "completed"
)

// Session represents a scheduled lecture for a class.
type Session struct {
	ID             string    `db:"id" json:"id"`
	ClassID        string    `db:"class_id" json:"class_id"`
	Title          string    `db:"title" json:"title"`
	ScheduledStart time.Time `db:"scheduled_start" json:"scheduled_start"`
	ScheduledEnd   time.Time `db:"scheduled_end" json:"scheduled_end"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// Status derives the lifecycle state of the session at the given instant.
func (s Session) Status(now time.Time) SessionStatus {
	if now.Before(s.ScheduledStart) {
		return SessionStatusUpcoming
	}
	if now.After(s.ScheduledEnd) {
		return SessionStatusCompleted
	}
	return SessionStatusOngoing
}

// Relevant reports whether the session counts toward attendance aggregates,
// i.e. it has started.
func (s Session) Relevant(now time.Time) bool {
	return !s.ScheduledStart.After(now)
}

// SessionDetail joins a session with class metadata and, when present, its
// active QR code.
type SessionDetail struct {
	Session
	ClassName     string        `db:"class_name" json:"class_name"`
	ClassCode     string        `db:"class_code" json:"class_code"`
	Status        SessionStatus `json:"status"`
	ActiveQR      *QRCode       `json:"active_qr,omitempty"`
	AttendeeCount int           `db:"attendee_count" json:"attendee_count"`
}

// SessionFilter scopes session listings.
type SessionFilter struct {
	ClassID   string
	TeacherID string
	From      *time.Time
	To        *time.Time
}

// CreateSessionRequest is the payload for scheduling a session.
type CreateSessionRequest struct {
	ClassID        string    `json:"class_id" validate:"required"`
	Title          string    `json:"title"`
	ScheduledStart time.Time `json:"scheduled_start" validate:"required"`
	ScheduledEnd   time.Time `json:"scheduled_end" validate:"required"`
}

// QRCode represents an attendance token issued for a session. At most one
// row per session has Active set.
type QRCode struct {
	ID        string    `db:"id" json:"id"`
	SessionID string    `db:"session_id" json:"session_id"`
	Token     string    `db:"token" json:"token"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
	Active    bool      `db:"active" json:"active"`
	DataURL   string    `db:"qr_data_url" json:"qr_data_url"`
}

// Usable reports whether the QR code can still be redeemed.
func (q QRCode) Usable(now time.Time) bool {
	return q.Active && !now.After(q.ExpiresAt)
}

// GenerateQRRequest tunes the lifetime of a freshly issued QR code.
type GenerateQRRequest struct {
	DurationMinutes int `json:"duration_minutes"`
}
