package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartattend/api/internal/models"
	appErrors "github.com/smartattend/api/pkg/errors"
)

type mockClassRepo struct {
	classByID    *models.Class
	classByCode  *models.Class
	classes      []models.Class
	roster       []models.RosterStudent
	enrolled     bool
	enrollResult bool
	created      *models.Class
}

func (m *mockClassRepo) Create(ctx context.Context, class *models.Class) error {
	class.ID = "c1"
	m.created = class
	return nil
}

func (m *mockClassRepo) FindByID(ctx context.Context, id string) (*models.Class, error) {
	if m.classByID == nil {
		return nil, sql.ErrNoRows
	}
	return m.classByID, nil
}

func (m *mockClassRepo) FindByCode(ctx context.Context, code string) (*models.Class, error) {
	if m.classByCode == nil {
		return nil, sql.ErrNoRows
	}
	return m.classByCode, nil
}

func (m *mockClassRepo) ListByTeacher(ctx context.Context, teacherID string) ([]models.Class, error) {
	return m.classes, nil
}

func (m *mockClassRepo) Roster(ctx context.Context, classID string) ([]models.RosterStudent, error) {
	return m.roster, nil
}

func (m *mockClassRepo) Enroll(ctx context.Context, classID, studentID string) (bool, error) {
	return m.enrollResult, nil
}

func (m *mockClassRepo) IsEnrolled(ctx context.Context, classID, studentID string) (bool, error) {
	return m.enrolled, nil
}

func (m *mockClassRepo) ListEnrolled(ctx context.Context, studentID string, now time.Time) ([]models.EnrolledClass, error) {
	return nil, nil
}

type mockClassSessionRepo struct {
	sessions []models.SessionDetail
}

func (m *mockClassSessionRepo) ListByClass(ctx context.Context, classID string) ([]models.SessionDetail, error) {
	return m.sessions, nil
}

type mockClassAttendanceRepo struct {
	records []models.AttendanceRecord
}

func (m *mockClassAttendanceRepo) ListRecords(ctx context.Context, filter models.AttendanceRecordFilter) ([]models.AttendanceRecord, error) {
	return m.records, nil
}

func teacherClaims(id string) *models.JWTClaims {
	return &models.JWTClaims{UserID: id, Role: models.RoleTeacher}
}

func TestCreateClassDuplicateCode(t *testing.T) {
	repo := &mockClassRepo{classByCode: &models.Class{ID: "c0", Code: "CSE101"}}
	svc := NewClassService(repo, &mockClassSessionRepo{}, &mockClassAttendanceRepo{}, nil, nil)

	_, err := svc.Create(context.Background(), "t1", models.CreateClassRequest{Name: "Algorithms", Code: "cse101"})
	require.Error(t, err)
	assert.Equal(t, "Class code already exists", appErrors.FromError(err).Message)
}

func TestCreateClassUppercasesCode(t *testing.T) {
	repo := &mockClassRepo{}
	svc := NewClassService(repo, &mockClassSessionRepo{}, &mockClassAttendanceRepo{}, nil, nil)

	class, err := svc.Create(context.Background(), "t1", models.CreateClassRequest{Name: "Algorithms", Code: "cse101"})
	require.NoError(t, err)
	assert.Equal(t, "CSE101", class.Code)
	require.NotNil(t, class.TeacherID)
	assert.Equal(t, "t1", *class.TeacherID)
}

func TestJoinClassNotFound(t *testing.T) {
	svc := NewClassService(&mockClassRepo{}, &mockClassSessionRepo{}, &mockClassAttendanceRepo{}, nil, nil)

	_, err := svc.Join(context.Background(), "s1", models.JoinClassRequest{Code: "NOPE01"})
	require.Error(t, err)
	assert.Equal(t, "Class not found", appErrors.FromError(err).Message)
}

func TestJoinClassIdempotent(t *testing.T) {
	repo := &mockClassRepo{classByCode: &models.Class{ID: "c1", Code: "CSE101"}, enrollResult: true}
	svc := NewClassService(repo, &mockClassSessionRepo{}, &mockClassAttendanceRepo{}, nil, nil)

	msg, err := svc.Join(context.Background(), "s1", models.JoinClassRequest{Code: "CSE101"})
	require.NoError(t, err)
	assert.Equal(t, "Joined class successfully", msg)

	repo.enrollResult = false
	msg, err = svc.Join(context.Background(), "s1", models.JoinClassRequest{Code: "CSE101"})
	require.NoError(t, err)
	assert.Equal(t, "Already enrolled in this class", msg)
}

func TestRegisterClassification(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	teacherID := "t1"
	started := now.Add(-2 * time.Hour)
	future := now.Add(2 * time.Hour)

	repo := &mockClassRepo{
		classByID: &models.Class{ID: "c1", Name: "Algorithms", Code: "CSE101", TeacherID: &teacherID},
		roster: []models.RosterStudent{
			{ID: "s1", Name: "Asha"},
			{ID: "s2", Name: "Ravi"},
		},
	}
	sessions := &mockClassSessionRepo{sessions: []models.SessionDetail{
		{Session: models.Session{ID: "sess1", ClassID: "c1", ScheduledStart: started, ScheduledEnd: started.Add(time.Hour)}},
		{Session: models.Session{ID: "future", ClassID: "c1", ScheduledStart: future, ScheduledEnd: future.Add(time.Hour)}},
	}}
	attendance := &mockClassAttendanceRepo{records: []models.AttendanceRecord{
		{SessionID: "sess1", StudentID: "s1", MarkedAt: started.Add(5 * time.Minute), ScheduledStart: started},
	}}

	svc := NewClassService(repo, sessions, attendance, nil, nil)
	svc.now = func() time.Time { return now }

	register, err := svc.Register(context.Background(), "c1", teacherClaims(teacherID))
	require.NoError(t, err)

	// the future session is excluded from the denominator
	assert.Equal(t, 1, register.TotalSessions)
	require.Len(t, register.Rows, 2)

	assert.Equal(t, "s1", register.Rows[0].Student.ID)
	assert.Equal(t, 1, register.Rows[0].Attended)
	assert.Equal(t, 100, register.Rows[0].AttendancePercentage)

	assert.Equal(t, "s2", register.Rows[1].Student.ID)
	assert.Equal(t, 1, register.Rows[1].Absent)
	assert.Equal(t, 0, register.Rows[1].AttendancePercentage)
}

func TestRegisterLateCountsTowardPercentage(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	teacherID := "t1"
	started := now.Add(-2 * time.Hour)

	repo := &mockClassRepo{
		classByID: &models.Class{ID: "c1", TeacherID: &teacherID},
		roster:    []models.RosterStudent{{ID: "s1", Name: "Asha"}},
	}
	sessions := &mockClassSessionRepo{sessions: []models.SessionDetail{
		{Session: models.Session{ID: "sess1", ClassID: "c1", ScheduledStart: started, ScheduledEnd: started.Add(time.Hour)}},
	}}
	attendance := &mockClassAttendanceRepo{records: []models.AttendanceRecord{
		{SessionID: "sess1", StudentID: "s1", MarkedAt: started.Add(25 * time.Minute), ScheduledStart: started},
	}}

	svc := NewClassService(repo, sessions, attendance, nil, nil)
	svc.now = func() time.Time { return now }

	register, err := svc.Register(context.Background(), "c1", teacherClaims(teacherID))
	require.NoError(t, err)
	require.Len(t, register.Rows, 1)
	assert.Equal(t, 1, register.Rows[0].Late)
	assert.Equal(t, 0, register.Rows[0].Attended)
	assert.Equal(t, 100, register.Rows[0].AttendancePercentage)
}

func TestRegisterOrdersByPercentageThenName(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	teacherID := "t1"
	started := now.Add(-2 * time.Hour)

	repo := &mockClassRepo{
		classByID: &models.Class{ID: "c1", TeacherID: &teacherID},
		roster: []models.RosterStudent{
			{ID: "s1", Name: "Ravi"},
			{ID: "s2", Name: "Zoya"},
			{ID: "s3", Name: "Asha"},
		},
	}
	sessions := &mockClassSessionRepo{sessions: []models.SessionDetail{
		{Session: models.Session{ID: "sess1", ClassID: "c1", ScheduledStart: started, ScheduledEnd: started.Add(time.Hour)}},
	}}
	attendance := &mockClassAttendanceRepo{records: []models.AttendanceRecord{
		{SessionID: "sess1", StudentID: "s1", MarkedAt: started.Add(5 * time.Minute), ScheduledStart: started},
		{SessionID: "sess1", StudentID: "s3", MarkedAt: started.Add(5 * time.Minute), ScheduledStart: started},
	}}

	svc := NewClassService(repo, sessions, attendance, nil, nil)
	svc.now = func() time.Time { return now }

	register, err := svc.Register(context.Background(), "c1", teacherClaims(teacherID))
	require.NoError(t, err)
	require.Len(t, register.Rows, 3)

	// both at 100%, name breaks the tie; the absentee sorts last
	assert.Equal(t, "Asha", register.Rows[0].Student.Name)
	assert.Equal(t, "Ravi", register.Rows[1].Student.Name)
	assert.Equal(t, "Zoya", register.Rows[2].Student.Name)
	assert.Equal(t, 0, register.Rows[2].AttendancePercentage)
}

func TestRegisterNotOwner(t *testing.T) {
	owner := "t1"
	repo := &mockClassRepo{classByID: &models.Class{ID: "c1", TeacherID: &owner}}
	svc := NewClassService(repo, &mockClassSessionRepo{}, &mockClassAttendanceRepo{}, nil, nil)

	_, err := svc.Register(context.Background(), "c1", teacherClaims("t2"))
	require.Error(t, err)
	assert.Equal(t, "Not authorized", appErrors.FromError(err).Message)
}

func TestSessionsForClassStudentMustBeEnrolled(t *testing.T) {
	repo := &mockClassRepo{classByID: &models.Class{ID: "c1"}, enrolled: false}
	svc := NewClassService(repo, &mockClassSessionRepo{}, &mockClassAttendanceRepo{}, nil, nil)

	_, err := svc.SessionsForClass(context.Background(), "c1", &models.JWTClaims{UserID: "s1", Role: models.RoleStudent})
	require.Error(t, err)
	assert.Equal(t, "Not enrolled in this class", appErrors.FromError(err).Message)
}

func TestSessionsForClassAdminBypassesOwnership(t *testing.T) {
	owner := "t1"
	repo := &mockClassRepo{classByID: &models.Class{ID: "c1", TeacherID: &owner}}
	sessions := &mockClassSessionRepo{sessions: []models.SessionDetail{
		{Session: models.Session{ID: "sess1", ClassID: "c1", ScheduledStart: time.Now().Add(time.Hour), ScheduledEnd: time.Now().Add(2 * time.Hour)}},
	}}
	svc := NewClassService(repo, sessions, &mockClassAttendanceRepo{}, nil, nil)

	list, err := svc.SessionsForClass(context.Background(), "c1", &models.JWTClaims{UserID: "a1", Role: models.RoleAdmin})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.SessionStatusUpcoming, list[0].Status)
}
