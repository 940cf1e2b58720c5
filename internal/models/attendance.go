package models

import "time"

// MarkStatus classifies an attendance mark relative to the session start.
type MarkStatus string

const (
	MarkStatusPresent MarkStatus = "Present"
	MarkStatusLate    MarkStatus = "Late"
	MarkStatusAbsent  MarkStatus = "Absent"
)

// LateGrace is the window after the scheduled start during which a mark still
// counts as Present.
const LateGrace = 10 * time.Minute

// ClassifyMark derives Present or Late from the mark time and the session
// start. Absent is never returned here; it is the absence of a mark.
func ClassifyMark(markedAt, scheduledStart time.Time) MarkStatus {
	if markedAt.After(scheduledStart.Add(LateGrace)) {
		return MarkStatusLate
	}
	return MarkStatusPresent
}

// AttendanceMark is a single scan record. UNIQUE(session_id, student_id)
// guarantees at most one mark per student per session.
type AttendanceMark struct {
	ID        string    `db:"id" json:"id"`
	SessionID string    `db:"session_id" json:"session_id"`
	QRCodeID  string    `db:"qr_code_id" json:"qr_code_id"`
	StudentID string    `db:"student_id" json:"student_id"`
	MarkedAt  time.Time `db:"marked_at" json:"marked_at"`
}

// MarkAttendanceRequest carries the scanned token. The raw QR payload form
// `{"t": token}` is also accepted.
type MarkAttendanceRequest struct {
	Token string `json:"token" validate:"required"`
}

// MarkAttendanceResult reports the outcome of a scan.
type MarkAttendanceResult struct {
	Message string     `json:"message"`
	Status  MarkStatus `json:"status"`
	Already bool       `json:"-"`
}

// SessionAttendanceRow is one roster member's line in a session report.
type SessionAttendanceRow struct {
	Student  RosterStudent `json:"student"`
	Status   MarkStatus    `json:"status"`
	MarkedAt *time.Time    `json:"marked_at,omitempty"`
}

// SessionAttendanceStats summarises a session report.
type SessionAttendanceStats struct {
	Total   int `json:"total"`
	Present int `json:"present"`
	Late    int `json:"late"`
	Absent  int `json:"absent"`
}

// SessionAttendanceReport is the roster-wide report for one session.
type SessionAttendanceReport struct {
	Session SessionDetail          `json:"session"`
	Rows    []SessionAttendanceRow `json:"attendance"`
	Stats   SessionAttendanceStats `json:"stats"`
}

// AttendanceRecord is a flat mark row joined with student, session and class
// metadata, used by report feeds.
type AttendanceRecord struct {
	ID             string     `db:"id" json:"id"`
	SessionID      string     `db:"session_id" json:"session_id"`
	SessionTitle   string     `db:"session_title" json:"session_title"`
	ScheduledStart time.Time  `db:"scheduled_start" json:"scheduled_start"`
	ClassID        string     `db:"class_id" json:"class_id"`
	ClassName      string     `db:"class_name" json:"class_name"`
	ClassCode      string     `db:"class_code" json:"class_code"`
	StudentID      string     `db:"student_id" json:"student_id"`
	StudentName    string     `db:"student_name" json:"student_name"`
	StudentNumber  *string    `db:"student_number" json:"student_number,omitempty"`
	MarkedAt       time.Time  `db:"marked_at" json:"marked_at"`
	Status         MarkStatus `json:"status"`
}

// AttendanceRecordFilter scopes the flat report feed.
type AttendanceRecordFilter struct {
	ClassID   string
	TeacherID string
	StudentID string
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
}

// StudentHistoryEntry is one session in a student's own attendance history.
type StudentHistoryEntry struct {
	Session  SessionDetail `json:"session"`
	Status   MarkStatus    `json:"status"`
	MarkedAt *time.Time    `json:"marked_at,omitempty"`
}

// StudentSessionStatus is the student-facing state of a session, folding the
// session lifecycle together with the student's own mark.
type StudentSessionStatus string

const (
	StudentSessionUpcoming StudentSessionStatus = "Upcoming"
	StudentSessionActive   StudentSessionStatus = "Active"
	StudentSessionOngoing  StudentSessionStatus = "Ongoing"
	StudentSessionAttended StudentSessionStatus = "Attended"
	StudentSessionLate     StudentSessionStatus = "Late"
	StudentSessionMissed   StudentSessionStatus = "Missed"
)

// DeriveStudentSessionStatus folds a session, the student's mark (nil when
// absent) and QR availability into a single display status.
func DeriveStudentSessionStatus(s Session, mark *AttendanceMark, hasUsableQR bool, now time.Time) StudentSessionStatus {
	if mark != nil {
		if ClassifyMark(mark.MarkedAt, s.ScheduledStart) == MarkStatusLate {
			return StudentSessionLate
		}
		return StudentSessionAttended
	}
	switch s.Status(now) {
	case SessionStatusUpcoming:
		return StudentSessionUpcoming
	case SessionStatusCompleted:
		return StudentSessionMissed
	default:
		if hasUsableQR {
			return StudentSessionActive
		}
		return StudentSessionOngoing
	}
}

// StudentSessionView is one session in the student day/overview listings.
type StudentSessionView struct {
	Session
	ClassName string               `db:"class_name" json:"class_name"`
	ClassCode string               `db:"class_code" json:"class_code"`
	Status    StudentSessionStatus `db:"-" json:"status"`
	MarkedAt  *time.Time           `db:"marked_at" json:"marked_at,omitempty"`
}
