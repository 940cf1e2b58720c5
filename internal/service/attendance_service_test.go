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

type mockMarkRepo struct {
	inserted     bool
	insertedMark *models.AttendanceMark
	marks        []models.AttendanceMark
	records      []models.AttendanceRecord
	views        []models.StudentSessionView
}

func (m *mockMarkRepo) InsertMark(ctx context.Context, mark *models.AttendanceMark) (bool, error) {
	m.insertedMark = mark
	return m.inserted, nil
}

func (m *mockMarkRepo) MarksBySession(ctx context.Context, sessionID string) ([]models.AttendanceMark, error) {
	return m.marks, nil
}

func (m *mockMarkRepo) ListRecords(ctx context.Context, filter models.AttendanceRecordFilter) ([]models.AttendanceRecord, error) {
	return m.records, nil
}

func (m *mockMarkRepo) ListStudentSessions(ctx context.Context, studentID string, now time.Time, limit int) ([]models.StudentSessionView, error) {
	return m.views, nil
}

type mockAttSessionRepo struct {
	session *models.Session
	detail  *models.SessionDetail
	qr      *models.QRCode
}

func (m *mockAttSessionRepo) FindByID(ctx context.Context, id string) (*models.Session, error) {
	if m.session == nil {
		return nil, sql.ErrNoRows
	}
	return m.session, nil
}

func (m *mockAttSessionRepo) FindDetailByID(ctx context.Context, id string) (*models.SessionDetail, error) {
	if m.detail == nil {
		return nil, sql.ErrNoRows
	}
	return m.detail, nil
}

func (m *mockAttSessionRepo) FindQRByToken(ctx context.Context, token string) (*models.QRCode, error) {
	if m.qr == nil || m.qr.Token != token {
		return nil, sql.ErrNoRows
	}
	return m.qr, nil
}

type mockAttClassRepo struct {
	class    *models.Class
	enrolled bool
	roster   []models.RosterStudent
}

func (m *mockAttClassRepo) FindByID(ctx context.Context, id string) (*models.Class, error) {
	if m.class == nil {
		return nil, sql.ErrNoRows
	}
	return m.class, nil
}

func (m *mockAttClassRepo) IsEnrolled(ctx context.Context, classID, studentID string) (bool, error) {
	return m.enrolled, nil
}

func (m *mockAttClassRepo) Roster(ctx context.Context, classID string) ([]models.RosterStudent, error) {
	return m.roster, nil
}

func newAttendanceService(marks *mockMarkRepo, sessions *mockAttSessionRepo, classes *mockAttClassRepo, now time.Time) *AttendanceService {
	svc := NewAttendanceService(marks, sessions, classes, nil, nil)
	svc.now = func() time.Time { return now }
	return svc
}

func TestMarkAttendancePresent(t *testing.T) {
	now := time.Date(2026, 3, 10, 10, 5, 0, 0, time.UTC)
	start := now.Add(-5 * time.Minute)
	marks := &mockMarkRepo{inserted: true}
	sessions := &mockAttSessionRepo{
		session: &models.Session{ID: "sess1", ClassID: "c1", ScheduledStart: start, ScheduledEnd: start.Add(time.Hour)},
		qr:      &models.QRCode{ID: "qr1", SessionID: "sess1", Token: "tok", Active: true, ExpiresAt: now.Add(5 * time.Minute)},
	}
	classes := &mockAttClassRepo{enrolled: true}
	svc := newAttendanceService(marks, sessions, classes, now)

	res, err := svc.Mark(context.Background(), "s1", "tok")
	require.NoError(t, err)
	assert.Equal(t, models.MarkStatusPresent, res.Status)
	assert.Equal(t, "Attendance marked successfully! Status: Present", res.Message)
	require.NotNil(t, marks.insertedMark)
	assert.Equal(t, "qr1", marks.insertedMark.QRCodeID)
}

func TestMarkAttendanceLateAfterGrace(t *testing.T) {
	now := time.Date(2026, 3, 10, 10, 15, 0, 1, time.UTC)
	start := now.Add(-models.LateGrace).Add(-time.Second)
	marks := &mockMarkRepo{inserted: true}
	sessions := &mockAttSessionRepo{
		session: &models.Session{ID: "sess1", ClassID: "c1", ScheduledStart: start, ScheduledEnd: start.Add(time.Hour)},
		qr:      &models.QRCode{ID: "qr1", SessionID: "sess1", Token: "tok", Active: true, ExpiresAt: now.Add(5 * time.Minute)},
	}
	classes := &mockAttClassRepo{enrolled: true}
	svc := newAttendanceService(marks, sessions, classes, now)

	res, err := svc.Mark(context.Background(), "s1", "tok")
	require.NoError(t, err)
	assert.Equal(t, models.MarkStatusLate, res.Status)
}

func TestMarkAttendanceAcceptsJSONPayload(t *testing.T) {
	now := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	start := now.Add(-time.Minute)
	marks := &mockMarkRepo{inserted: true}
	sessions := &mockAttSessionRepo{
		session: &models.Session{ID: "sess1", ClassID: "c1", ScheduledStart: start, ScheduledEnd: start.Add(time.Hour)},
		qr:      &models.QRCode{ID: "qr1", SessionID: "sess1", Token: "tok", Active: true, ExpiresAt: now.Add(5 * time.Minute)},
	}
	classes := &mockAttClassRepo{enrolled: true}
	svc := newAttendanceService(marks, sessions, classes, now)

	res, err := svc.Mark(context.Background(), "s1", `{"t":"tok"}`)
	require.NoError(t, err)
	assert.Equal(t, models.MarkStatusPresent, res.Status)
}

func TestMarkAttendanceDuplicate(t *testing.T) {
	now := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	start := now.Add(-time.Minute)
	marks := &mockMarkRepo{inserted: false}
	sessions := &mockAttSessionRepo{
		session: &models.Session{ID: "sess1", ClassID: "c1", ScheduledStart: start, ScheduledEnd: start.Add(time.Hour)},
		qr:      &models.QRCode{ID: "qr1", SessionID: "sess1", Token: "tok", Active: true, ExpiresAt: now.Add(5 * time.Minute)},
	}
	classes := &mockAttClassRepo{enrolled: true}
	svc := newAttendanceService(marks, sessions, classes, now)

	res, err := svc.Mark(context.Background(), "s1", "tok")
	require.NoError(t, err)
	assert.True(t, res.Already)
	assert.Equal(t, "Attendance already marked for this session", res.Message)
}

func TestMarkAttendanceInvalidToken(t *testing.T) {
	now := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	svc := newAttendanceService(&mockMarkRepo{}, &mockAttSessionRepo{}, &mockAttClassRepo{}, now)

	_, err := svc.Mark(context.Background(), "s1", "ghost")
	require.Error(t, err)
	assert.Equal(t, "Invalid QR code", appErrors.FromError(err).Message)

	_, err = svc.Mark(context.Background(), "s1", "")
	require.Error(t, err)
	assert.Equal(t, "Missing token", appErrors.FromError(err).Message)
}

func TestMarkAttendanceInactiveAndExpired(t *testing.T) {
	now := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	start := now.Add(-time.Minute)
	marks := &mockMarkRepo{inserted: true}
	sessions := &mockAttSessionRepo{
		session: &models.Session{ID: "sess1", ClassID: "c1", ScheduledStart: start, ScheduledEnd: start.Add(time.Hour)},
		qr:      &models.QRCode{ID: "qr1", SessionID: "sess1", Token: "tok", Active: false, ExpiresAt: now.Add(5 * time.Minute)},
	}
	classes := &mockAttClassRepo{enrolled: true}
	svc := newAttendanceService(marks, sessions, classes, now)

	_, err := svc.Mark(context.Background(), "s1", "tok")
	require.Error(t, err)
	assert.Equal(t, "QR code is no longer active", appErrors.FromError(err).Message)

	sessions.qr.Active = true
	sessions.qr.ExpiresAt = now.Add(-time.Second)
	_, err = svc.Mark(context.Background(), "s1", "tok")
	require.Error(t, err)
	assert.Equal(t, "QR code has expired", appErrors.FromError(err).Message)

	// A scan landing exactly at the expiry instant still counts.
	sessions.qr.ExpiresAt = now
	res, err := svc.Mark(context.Background(), "s1", "tok")
	require.NoError(t, err)
	assert.Equal(t, models.MarkStatusPresent, res.Status)
}

func TestMarkAttendanceNotEnrolled(t *testing.T) {
	now := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	start := now.Add(-time.Minute)
	sessions := &mockAttSessionRepo{
		session: &models.Session{ID: "sess1", ClassID: "c1", ScheduledStart: start, ScheduledEnd: start.Add(time.Hour)},
		qr:      &models.QRCode{ID: "qr1", SessionID: "sess1", Token: "tok", Active: true, ExpiresAt: now.Add(5 * time.Minute)},
	}
	classes := &mockAttClassRepo{enrolled: false}
	svc := newAttendanceService(&mockMarkRepo{}, sessions, classes, now)

	_, err := svc.Mark(context.Background(), "s1", "tok")
	require.Error(t, err)
	assert.Equal(t, "You are not enrolled in this class", appErrors.FromError(err).Message)
}

func TestSessionReportOrderingAndStats(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	owner := "t1"
	start := now.Add(-time.Hour)
	sessions := &mockAttSessionRepo{
		detail: &models.SessionDetail{Session: models.Session{ID: "sess1", ClassID: "c1", ScheduledStart: start, ScheduledEnd: now}},
	}
	classes := &mockAttClassRepo{
		class: &models.Class{ID: "c1", TeacherID: &owner},
		roster: []models.RosterStudent{
			{ID: "s1", Name: "Asha"},
			{ID: "s2", Name: "Ravi"},
			{ID: "s3", Name: "Mina"},
		},
	}
	marks := &mockMarkRepo{marks: []models.AttendanceMark{
		{SessionID: "sess1", StudentID: "s2", MarkedAt: start.Add(20 * time.Minute)},
		{SessionID: "sess1", StudentID: "s1", MarkedAt: start.Add(2 * time.Minute)},
	}}
	svc := newAttendanceService(marks, sessions, classes, now)

	report, err := svc.SessionReport(context.Background(), "sess1", teacherClaims(owner))
	require.NoError(t, err)
	require.Len(t, report.Rows, 3)
	assert.Equal(t, models.MarkStatusPresent, report.Rows[0].Status)
	assert.Equal(t, models.MarkStatusLate, report.Rows[1].Status)
	assert.Equal(t, models.MarkStatusAbsent, report.Rows[2].Status)
	assert.Equal(t, "s3", report.Rows[2].Student.ID)
	assert.Equal(t, 3, report.Stats.Total)
	assert.Equal(t, 1, report.Stats.Present)
	assert.Equal(t, 1, report.Stats.Late)
	assert.Equal(t, 1, report.Stats.Absent)
}

func TestTeacherReportForeignClass(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	owner := "t1"
	classes := &mockAttClassRepo{class: &models.Class{ID: "c1", TeacherID: &owner}}
	svc := newAttendanceService(&mockMarkRepo{}, &mockAttSessionRepo{}, classes, now)

	_, err := svc.TeacherReport(context.Background(), "t2", models.AttendanceRecordFilter{ClassID: "c1"})
	require.Error(t, err)
	assert.Equal(t, "Not authorized", appErrors.FromError(err).Message)
}

func TestStudentHistoryMarksAbsences(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	start := now.Add(-2 * time.Hour)
	marked := start.Add(3 * time.Minute)
	marks := &mockMarkRepo{views: []models.StudentSessionView{
		{
			Session:   models.Session{ID: "sess1", ClassID: "c1", ScheduledStart: start, ScheduledEnd: start.Add(time.Hour)},
			ClassName: "Algorithms",
			MarkedAt:  &marked,
		},
		{
			Session:   models.Session{ID: "sess2", ClassID: "c1", ScheduledStart: start, ScheduledEnd: start.Add(time.Hour)},
			ClassName: "Algorithms",
		},
	}}
	svc := newAttendanceService(marks, &mockAttSessionRepo{}, &mockAttClassRepo{}, now)

	entries, err := svc.StudentHistory(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, models.MarkStatusPresent, entries[0].Status)
	assert.Equal(t, models.MarkStatusAbsent, entries[1].Status)
	assert.Nil(t, entries[1].MarkedAt)
}
