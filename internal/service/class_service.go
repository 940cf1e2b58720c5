package service

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/smartattend/api/internal/models"
	appErrors "github.com/smartattend/api/pkg/errors"
)

type classRepository interface {
	Create(ctx context.Context, class *models.Class) error
	FindByID(ctx context.Context, id string) (*models.Class, error)
	FindByCode(ctx context.Context, code string) (*models.Class, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]models.Class, error)
	Roster(ctx context.Context, classID string) ([]models.RosterStudent, error)
	Enroll(ctx context.Context, classID, studentID string) (bool, error)
	IsEnrolled(ctx context.Context, classID, studentID string) (bool, error)
	ListEnrolled(ctx context.Context, studentID string, now time.Time) ([]models.EnrolledClass, error)
}

type classSessionRepository interface {
	ListByClass(ctx context.Context, classID string) ([]models.SessionDetail, error)
}

type classAttendanceRepository interface {
	ListRecords(ctx context.Context, filter models.AttendanceRecordFilter) ([]models.AttendanceRecord, error)
}

// ClassService manages classes, rosters and the class register.
type ClassService struct {
	classes    classRepository
	sessions   classSessionRepository
	attendance classAttendanceRepository
	validator  *validator.Validate
	logger     *zap.Logger
	now        func() time.Time
}

// NewClassService constructs a ClassService instance.
func NewClassService(classes classRepository, sessions classSessionRepository, attendance classAttendanceRepository, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ClassService{
		classes:    classes,
		sessions:   sessions,
		attendance: attendance,
		validator:  validate,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Create registers a new class owned by the teacher.
func (s *ClassService) Create(ctx context.Context, teacherID string, req models.CreateClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}

	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if _, err := s.classes.FindByCode(ctx, code); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "Class code already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check class code")
	}

	class := &models.Class{
		Name:      strings.TrimSpace(req.Name),
		Code:      code,
		TeacherID: &teacherID,
	}
	if dept := strings.TrimSpace(req.Department); dept != "" {
		class.Department = &dept
	}

	if err := s.classes.Create(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class")
	}

	s.logger.Info("class created", zap.String("class_id", class.ID), zap.String("code", class.Code))
	return class, nil
}

// ListForTeacher returns the teacher's classes with rosters attached.
func (s *ClassService) ListForTeacher(ctx context.Context, teacherID string) ([]models.ClassWithRoster, error) {
	classes, err := s.classes.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}

	result := make([]models.ClassWithRoster, 0, len(classes))
	for _, class := range classes {
		roster, err := s.classes.Roster(ctx, class.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
		}
		result = append(result, models.ClassWithRoster{Class: class, Students: roster})
	}
	return result, nil
}

// Join enrolls a student in a class by join code. Joining twice is a no-op.
func (s *ClassService) Join(ctx context.Context, studentID string, req models.JoinClassRequest) (string, error) {
	if err := s.validator.Struct(req); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid join payload")
	}

	class, err := s.classes.FindByCode(ctx, req.Code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", appErrors.Clone(appErrors.ErrNotFound, "Class not found")
		}
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to find class")
	}

	inserted, err := s.classes.Enroll(ctx, class.ID, studentID)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enroll")
	}
	if !inserted {
		return "Already enrolled in this class", nil
	}

	s.logger.Info("student joined class", zap.String("class_id", class.ID), zap.String("student_id", studentID))
	return "Joined class successfully", nil
}

// ListEnrolled returns the student's classes with today's and upcoming
// session counts.
func (s *ClassService) ListEnrolled(ctx context.Context, studentID string) ([]models.EnrolledClass, error) {
	classes, err := s.classes.ListEnrolled(ctx, studentID, s.now())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrolled classes")
	}
	return classes, nil
}

// Register builds the per-student attendance register for a class. Only the
// owning teacher (or an admin) may view it.
func (s *ClassService) Register(ctx context.Context, classID string, requester *models.JWTClaims) (*models.ClassRegister, error) {
	class, err := s.authorizeClassAccess(ctx, classID, requester)
	if err != nil {
		return nil, err
	}

	roster, err := s.classes.Roster(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}

	sessions, err := s.sessions.ListByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}

	now := s.now()
	relevant := make([]models.SessionDetail, 0, len(sessions))
	for _, sess := range sessions {
		if sess.Relevant(now) {
			relevant = append(relevant, sess)
		}
	}

	records, err := s.attendance.ListRecords(ctx, models.AttendanceRecordFilter{ClassID: classID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list marks")
	}

	// marks keyed by student then session
	marks := make(map[string]map[string]models.AttendanceRecord, len(roster))
	for _, rec := range records {
		byStudent, ok := marks[rec.StudentID]
		if !ok {
			byStudent = make(map[string]models.AttendanceRecord)
			marks[rec.StudentID] = byStudent
		}
		byStudent[rec.SessionID] = rec
	}

	rows := make([]models.RegisterRow, 0, len(roster))
	for _, student := range roster {
		row := models.RegisterRow{Student: student, TotalSessions: len(relevant)}
		for _, sess := range relevant {
			rec, marked := marks[student.ID][sess.ID]
			if !marked {
				row.Absent++
				continue
			}
			if models.ClassifyMark(rec.MarkedAt, sess.ScheduledStart) == models.MarkStatusLate {
				row.Late++
			} else {
				row.Attended++
			}
		}
		if row.TotalSessions > 0 {
			attended := row.Attended + row.Late
			row.AttendancePercentage = int(math.Round(float64(attended) / float64(row.TotalSessions) * 100))
		}
		rows = append(rows, row)
	}

	// highest percentage first, ties by name
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].AttendancePercentage != rows[j].AttendancePercentage {
			return rows[i].AttendancePercentage > rows[j].AttendancePercentage
		}
		return rows[i].Student.Name < rows[j].Student.Name
	})

	return &models.ClassRegister{Class: *class, TotalSessions: len(relevant), Rows: rows}, nil
}

// SessionsForClass returns the sessions of a class with derived status,
// scoped by the requester's role: owners and admins always pass, students
// must be enrolled.
func (s *ClassService) SessionsForClass(ctx context.Context, classID string, requester *models.JWTClaims) ([]models.SessionDetail, error) {
	if requester.Role == models.RoleStudent {
		if _, err := s.classes.FindByID(ctx, classID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "Class not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to find class")
		}
		enrolled, err := s.classes.IsEnrolled(ctx, classID, requester.UserID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
		}
		if !enrolled {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "Not enrolled in this class")
		}
	} else {
		if _, err := s.authorizeClassAccess(ctx, classID, requester); err != nil {
			return nil, err
		}
	}

	sessions, err := s.sessions.ListByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}

	now := s.now()
	for i := range sessions {
		sessions[i].Status = sessions[i].Session.Status(now)
	}
	return sessions, nil
}

func (s *ClassService) authorizeClassAccess(ctx context.Context, classID string, requester *models.JWTClaims) (*models.Class, error) {
	class, err := s.classes.FindByID(ctx, classID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to find class")
	}
	if requester.Role != models.RoleAdmin {
		if class.TeacherID == nil || *class.TeacherID != requester.UserID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "Not authorized")
		}
	}
	return class, nil
}
