package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/smartattend/api/internal/models"
	appErrors "github.com/smartattend/api/pkg/errors"
	"github.com/smartattend/api/pkg/qr"
)

type attendanceMarkRepository interface {
	InsertMark(ctx context.Context, mark *models.AttendanceMark) (bool, error)
	MarksBySession(ctx context.Context, sessionID string) ([]models.AttendanceMark, error)
	ListRecords(ctx context.Context, filter models.AttendanceRecordFilter) ([]models.AttendanceRecord, error)
	ListStudentSessions(ctx context.Context, studentID string, now time.Time, limit int) ([]models.StudentSessionView, error)
}

type attendanceSessionRepository interface {
	FindByID(ctx context.Context, id string) (*models.Session, error)
	FindDetailByID(ctx context.Context, id string) (*models.SessionDetail, error)
	FindQRByToken(ctx context.Context, token string) (*models.QRCode, error)
}

type attendanceClassRepository interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
	IsEnrolled(ctx context.Context, classID, studentID string) (bool, error)
	Roster(ctx context.Context, classID string) ([]models.RosterStudent, error)
}

// AttendanceService coordinates QR scans and attendance reporting.
type AttendanceService struct {
	marks    attendanceMarkRepository
	sessions attendanceSessionRepository
	classes  attendanceClassRepository
	cache    *CacheService
	logger   *zap.Logger
	now      func() time.Time
}

// NewAttendanceService constructs an AttendanceService instance.
func NewAttendanceService(marks attendanceMarkRepository, sessions attendanceSessionRepository, classes attendanceClassRepository, cache *CacheService, logger *zap.Logger) *AttendanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{
		marks:    marks,
		sessions: sessions,
		classes:  classes,
		cache:    cache,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Mark redeems a scanned QR token for the student. Scanning the same session
// twice reports success without writing a second mark.
func (s *AttendanceService) Mark(ctx context.Context, studentID, rawToken string) (*models.MarkAttendanceResult, error) {
	token := qr.DecodeToken(rawToken)
	if token == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "Missing token")
	}

	code, err := s.sessions.FindQRByToken(ctx, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Invalid QR code")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to find qr code")
	}

	now := s.now()
	if !code.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "QR code is no longer active")
	}
	if now.After(code.ExpiresAt) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "QR code has expired")
	}

	session, err := s.sessions.FindByID(ctx, code.SessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to find session")
	}

	enrolled, err := s.classes.IsEnrolled(ctx, session.ClassID, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	if !enrolled {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "You are not enrolled in this class")
	}

	mark := &models.AttendanceMark{
		SessionID: session.ID,
		QRCodeID:  code.ID,
		StudentID: studentID,
		MarkedAt:  now,
	}
	inserted, err := s.marks.InsertMark(ctx, mark)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record attendance")
	}
	if !inserted {
		return &models.MarkAttendanceResult{
			Message: "Attendance already marked for this session",
			Already: true,
		}, nil
	}

	status := models.ClassifyMark(now, session.ScheduledStart)
	if s.cache != nil {
		_ = s.cache.Invalidate(ctx, "reports:*")
	}

	s.logger.Info("attendance marked",
		zap.String("session_id", session.ID),
		zap.String("student_id", studentID),
		zap.String("status", string(status)))

	return &models.MarkAttendanceResult{
		Message: fmt.Sprintf("Attendance marked successfully! Status: %s", status),
		Status:  status,
	}, nil
}

// SessionReport builds the roster-wide Present/Late/Absent report for one
// session, ordered Present, Late, then Absent.
func (s *AttendanceService) SessionReport(ctx context.Context, sessionID string, requester *models.JWTClaims) (*models.SessionAttendanceReport, error) {
	detail, err := s.sessions.FindDetailByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to find session")
	}

	if requester.Role != models.RoleAdmin {
		class, err := s.classes.FindByID(ctx, detail.ClassID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to find class")
		}
		if class.TeacherID == nil || *class.TeacherID != requester.UserID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "Not authorized")
		}
	}

	roster, err := s.classes.Roster(ctx, detail.ClassID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	marks, err := s.marks.MarksBySession(ctx, sessionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load marks")
	}

	marked := make(map[string]models.AttendanceMark, len(marks))
	for _, m := range marks {
		marked[m.StudentID] = m
	}

	var present, late, absent []models.SessionAttendanceRow
	for _, student := range roster {
		if m, ok := marked[student.ID]; ok {
			markedAt := m.MarkedAt
			row := models.SessionAttendanceRow{Student: student, MarkedAt: &markedAt}
			if models.ClassifyMark(m.MarkedAt, detail.ScheduledStart) == models.MarkStatusLate {
				row.Status = models.MarkStatusLate
				late = append(late, row)
			} else {
				row.Status = models.MarkStatusPresent
				present = append(present, row)
			}
			continue
		}
		absent = append(absent, models.SessionAttendanceRow{Student: student, Status: models.MarkStatusAbsent})
	}

	detail.Status = detail.Session.Status(s.now())
	rows := make([]models.SessionAttendanceRow, 0, len(roster))
	rows = append(rows, present...)
	rows = append(rows, late...)
	rows = append(rows, absent...)

	return &models.SessionAttendanceReport{
		Session: *detail,
		Rows:    rows,
		Stats: models.SessionAttendanceStats{
			Total:   len(roster),
			Present: len(present),
			Late:    len(late),
			Absent:  len(absent),
		},
	}, nil
}

// TeacherReport returns the flat mark feed for the teacher's classes with
// optional class and date filters.
func (s *AttendanceService) TeacherReport(ctx context.Context, teacherID string, filter models.AttendanceRecordFilter) ([]models.AttendanceRecord, error) {
	filter.TeacherID = teacherID
	if filter.ClassID != "" {
		class, err := s.classes.FindByID(ctx, filter.ClassID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "Class not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to find class")
		}
		if class.TeacherID == nil || *class.TeacherID != teacherID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "Not authorized")
		}
	}

	records, err := s.listClassified(ctx, filter)
	if err != nil {
		return nil, err
	}
	return records, nil
}

// TodayFeed returns the teacher's marks recorded today.
func (s *AttendanceService) TodayFeed(ctx context.Context, teacherID string) ([]models.AttendanceRecord, error) {
	now := s.now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.Add(24 * time.Hour)
	return s.listClassified(ctx, models.AttendanceRecordFilter{
		TeacherID: teacherID,
		StartDate: &dayStart,
		EndDate:   &dayEnd,
	})
}

// StudentHistory returns the student's own record over their most recent
// started sessions.
func (s *AttendanceService) StudentHistory(ctx context.Context, studentID string) ([]models.StudentHistoryEntry, error) {
	now := s.now()
	views, err := s.marks.ListStudentSessions(ctx, studentID, now, 50)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load history")
	}

	entries := make([]models.StudentHistoryEntry, 0, len(views))
	for _, view := range views {
		entry := models.StudentHistoryEntry{
			Session: models.SessionDetail{
				Session:   view.Session,
				ClassName: view.ClassName,
				ClassCode: view.ClassCode,
				Status:    view.Session.Status(now),
			},
			Status: models.MarkStatusAbsent,
		}
		if view.MarkedAt != nil {
			markedAt := *view.MarkedAt
			entry.MarkedAt = &markedAt
			entry.Status = models.ClassifyMark(markedAt, view.ScheduledStart)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (s *AttendanceService) listClassified(ctx context.Context, filter models.AttendanceRecordFilter) ([]models.AttendanceRecord, error) {
	records, err := s.marks.ListRecords(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance records")
	}
	for i := range records {
		records[i].Status = models.ClassifyMark(records[i].MarkedAt, records[i].ScheduledStart)
	}
	return records, nil
}
