package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/smartattend/api/internal/models"
	appErrors "github.com/smartattend/api/pkg/errors"
)

type sessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	FindByID(ctx context.Context, id string) (*models.Session, error)
	FindDetailByID(ctx context.Context, id string) (*models.SessionDetail, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]models.SessionDetail, error)
	ListBetween(ctx context.Context, teacherID string, from, to time.Time) ([]models.SessionDetail, error)
	ListForStudentBetween(ctx context.Context, studentID string, from, to time.Time) ([]models.StudentSessionView, error)
	Delete(ctx context.Context, id string) error
	ActiveQR(ctx context.Context, sessionID string) (*models.QRCode, error)
	ReplaceActiveQR(ctx context.Context, code *models.QRCode) error
	DeactivateQRs(ctx context.Context, sessionID string) error
}

type sessionClassRepository interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
	IsEnrolled(ctx context.Context, classID, studentID string) (bool, error)
}

type qrImageGenerator interface {
	DataURL(token string) (string, error)
}

// SessionConfig tunes session and QR behaviour.
type SessionConfig struct {
	DefaultQRDuration time.Duration
}

// SessionService manages session scheduling and the QR lifecycle.
type SessionService struct {
	sessions  sessionRepository
	classes   sessionClassRepository
	qr        qrImageGenerator
	validator *validator.Validate
	logger    *zap.Logger
	config    SessionConfig
	now       func() time.Time
}

// NewSessionService constructs a SessionService instance.
func NewSessionService(sessions sessionRepository, classes sessionClassRepository, qr qrImageGenerator, validate *validator.Validate, logger *zap.Logger, config SessionConfig) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.DefaultQRDuration <= 0 {
		config.DefaultQRDuration = 10 * time.Minute
	}
	return &SessionService{
		sessions:  sessions,
		classes:   classes,
		qr:        qr,
		validator: validate,
		logger:    logger,
		config:    config,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create schedules a new session for a class the requester owns.
func (s *SessionService) Create(ctx context.Context, requester *models.JWTClaims, req models.CreateSessionRequest) (*models.Session, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session payload")
	}
	if !req.ScheduledEnd.After(req.ScheduledStart) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "End time must be after start time")
	}

	class, err := s.classes.FindByID(ctx, req.ClassID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to find class")
	}
	// non-owned classes are invisible to teachers
	if requester.Role != models.RoleAdmin {
		if class.TeacherID == nil || *class.TeacherID != requester.UserID {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Class not found")
		}
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = class.Name + " Session"
	}

	session := &models.Session{
		ClassID:        class.ID,
		Title:          title,
		ScheduledStart: req.ScheduledStart,
		ScheduledEnd:   req.ScheduledEnd,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create session")
	}

	s.logger.Info("session created", zap.String("session_id", session.ID), zap.String("class_id", class.ID))
	return session, nil
}

// ListForTeacher returns the teacher's sessions newest first, each with its
// derived status and, when live, the active QR code.
func (s *SessionService) ListForTeacher(ctx context.Context, teacherID string) ([]models.SessionDetail, error) {
	sessions, err := s.sessions.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}
	s.decorate(ctx, sessions)
	return sessions, nil
}

// ListToday returns the teacher's sessions scheduled for the current day.
func (s *SessionService) ListToday(ctx context.Context, teacherID string) ([]models.SessionDetail, error) {
	now := s.now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	sessions, err := s.sessions.ListBetween(ctx, teacherID, dayStart, dayStart.Add(24*time.Hour))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list today's sessions")
	}
	s.decorate(ctx, sessions)
	return sessions, nil
}

// ListUpcomingForTeacher returns the teacher's sessions over the next week.
func (s *SessionService) ListUpcomingForTeacher(ctx context.Context, teacherID string) ([]models.SessionDetail, error) {
	now := s.now()
	sessions, err := s.sessions.ListBetween(ctx, teacherID, now, now.Add(7*24*time.Hour))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list upcoming sessions")
	}
	s.decorate(ctx, sessions)
	return sessions, nil
}

// ListUpcomingForStudent returns sessions of the student's classes over the
// next week.
func (s *SessionService) ListUpcomingForStudent(ctx context.Context, studentID string) ([]models.StudentSessionView, error) {
	now := s.now()
	views, err := s.sessions.ListForStudentBetween(ctx, studentID, now, now.Add(7*24*time.Hour))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list upcoming sessions")
	}
	s.decorateStudent(ctx, views)
	return views, nil
}

// ListTodayForStudent returns today's sessions across the student's classes.
func (s *SessionService) ListTodayForStudent(ctx context.Context, studentID string) ([]models.StudentSessionView, error) {
	now := s.now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	views, err := s.sessions.ListForStudentBetween(ctx, studentID, dayStart, dayStart.Add(24*time.Hour))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list today's sessions")
	}
	s.decorateStudent(ctx, views)
	return views, nil
}

// ListActiveQR returns the teacher's ongoing sessions that have a usable QR.
func (s *SessionService) ListActiveQR(ctx context.Context, teacherID string) ([]models.SessionDetail, error) {
	sessions, err := s.sessions.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}

	now := s.now()
	live := make([]models.SessionDetail, 0)
	for _, sess := range sessions {
		if sess.Session.Status(now) != models.SessionStatusOngoing {
			continue
		}
		code, err := s.sessions.ActiveQR(ctx, sess.ID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active qr")
		}
		if !code.Usable(now) {
			continue
		}
		sess.Status = models.SessionStatusOngoing
		sess.ActiveQR = code
		live = append(live, sess)
	}
	return live, nil
}

// Get returns one session with derived status and active QR. Teachers must
// own the class; students must be enrolled.
func (s *SessionService) Get(ctx context.Context, sessionID string, requester *models.JWTClaims) (*models.SessionDetail, error) {
	detail, err := s.sessions.FindDetailByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to find session")
	}

	if err := s.authorizeSessionAccess(ctx, &detail.Session, requester); err != nil {
		return nil, err
	}

	now := s.now()
	detail.Status = detail.Session.Status(now)
	if code, err := s.sessions.ActiveQR(ctx, detail.ID); err == nil && code.Usable(now) {
		detail.ActiveQR = code
	}
	return detail, nil
}

// GenerateQR issues a fresh QR token for an ongoing session, replacing any
// previously active code atomically.
func (s *SessionService) GenerateQR(ctx context.Context, sessionID string, requester *models.JWTClaims, req models.GenerateQRRequest) (*models.QRCode, error) {
	session, err := s.findOwnedSession(ctx, sessionID, requester)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if now.Before(session.ScheduledStart) {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("Cannot generate QR before session start time. Session starts at %s", session.ScheduledStart.Format(time.RFC3339)))
	}
	if now.After(session.ScheduledEnd) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "Session has ended. Cannot generate QR.")
	}

	duration := s.config.DefaultQRDuration
	if req.DurationMinutes > 0 {
		duration = time.Duration(req.DurationMinutes) * time.Minute
	}
	expiresAt := now.Add(duration)
	if expiresAt.After(session.ScheduledEnd) {
		expiresAt = session.ScheduledEnd
	}

	token := uuid.NewString()
	dataURL, err := s.qr.DataURL(token)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render qr image")
	}

	code := &models.QRCode{
		SessionID: session.ID,
		Token:     token,
		ExpiresAt: expiresAt,
		DataURL:   dataURL,
	}
	if err := s.sessions.ReplaceActiveQR(ctx, code); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store qr code")
	}

	s.logger.Info("qr generated",
		zap.String("session_id", session.ID),
		zap.Time("expires_at", expiresAt))
	return code, nil
}

// EndQR deactivates all QR codes of a session. Calling it with nothing
// active is a no-op.
func (s *SessionService) EndQR(ctx context.Context, sessionID string, requester *models.JWTClaims) (string, error) {
	session, err := s.findOwnedSession(ctx, sessionID, requester)
	if err != nil {
		return "", err
	}
	if err := s.sessions.DeactivateQRs(ctx, session.ID); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate qr")
	}
	return "QR code deactivated", nil
}

// Delete removes a session with its QR codes and marks.
func (s *SessionService) Delete(ctx context.Context, sessionID string, requester *models.JWTClaims) (string, error) {
	session, err := s.findOwnedSession(ctx, sessionID, requester)
	if err != nil {
		return "", err
	}
	if err := s.sessions.Delete(ctx, session.ID); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete session")
	}
	s.logger.Info("session deleted", zap.String("session_id", session.ID))
	return "Session deleted", nil
}

func (s *SessionService) findOwnedSession(ctx context.Context, sessionID string, requester *models.JWTClaims) (*models.Session, error) {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to find session")
	}

	if requester.Role != models.RoleAdmin {
		class, err := s.classes.FindByID(ctx, session.ClassID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to find class")
		}
		if class.TeacherID == nil || *class.TeacherID != requester.UserID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "Not authorized")
		}
	}
	return session, nil
}

func (s *SessionService) authorizeSessionAccess(ctx context.Context, session *models.Session, requester *models.JWTClaims) error {
	if requester.Role == models.RoleAdmin {
		return nil
	}
	if requester.Role == models.RoleTeacher {
		class, err := s.classes.FindByID(ctx, session.ClassID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to find class")
		}
		if class.TeacherID == nil || *class.TeacherID != requester.UserID {
			return appErrors.Clone(appErrors.ErrForbidden, "Not authorized")
		}
		return nil
	}
	enrolled, err := s.classes.IsEnrolled(ctx, session.ClassID, requester.UserID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	if !enrolled {
		return appErrors.Clone(appErrors.ErrForbidden, "Not enrolled in this class")
	}
	return nil
}

func (s *SessionService) decorate(ctx context.Context, sessions []models.SessionDetail) {
	now := s.now()
	for i := range sessions {
		sessions[i].Status = sessions[i].Session.Status(now)
		if sessions[i].Status != models.SessionStatusOngoing {
			continue
		}
		if code, err := s.sessions.ActiveQR(ctx, sessions[i].ID); err == nil && code.Usable(now) {
			sessions[i].ActiveQR = code
		}
	}
}

func (s *SessionService) decorateStudent(ctx context.Context, views []models.StudentSessionView) {
	now := s.now()
	for i := range views {
		var mark *models.AttendanceMark
		if views[i].MarkedAt != nil {
			mark = &models.AttendanceMark{MarkedAt: *views[i].MarkedAt}
		}
		hasQR := false
		if mark == nil && views[i].Session.Status(now) == models.SessionStatusOngoing {
			if code, err := s.sessions.ActiveQR(ctx, views[i].ID); err == nil && code.Usable(now) {
				hasQR = true
			}
		}
		views[i].Status = models.DeriveStudentSessionStatus(views[i].Session, mark, hasQR, now)
	}
}
