package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartattend/api/internal/middleware"
	"github.com/smartattend/api/internal/models"
	"github.com/smartattend/api/internal/service"
)

type fakeMarkRepo struct {
	inserted *models.AttendanceMark
	records  []models.AttendanceRecord
	filter   models.AttendanceRecordFilter
}

func (f *fakeMarkRepo) InsertMark(ctx context.Context, mark *models.AttendanceMark) (bool, error) {
	f.inserted = mark
	return true, nil
}

func (f *fakeMarkRepo) MarksBySession(ctx context.Context, sessionID string) ([]models.AttendanceMark, error) {
	return nil, nil
}

func (f *fakeMarkRepo) ListRecords(ctx context.Context, filter models.AttendanceRecordFilter) ([]models.AttendanceRecord, error) {
	f.filter = filter
	return f.records, nil
}

func (f *fakeMarkRepo) ListStudentSessions(ctx context.Context, studentID string, now time.Time, limit int) ([]models.StudentSessionView, error) {
	return nil, nil
}

type fakeSessionRepo struct {
	session *models.Session
	qr      *models.QRCode
}

func (f *fakeSessionRepo) FindByID(ctx context.Context, id string) (*models.Session, error) {
	if f.session == nil || f.session.ID != id {
		return nil, sql.ErrNoRows
	}
	return f.session, nil
}

func (f *fakeSessionRepo) FindDetailByID(ctx context.Context, id string) (*models.SessionDetail, error) {
	return nil, sql.ErrNoRows
}

func (f *fakeSessionRepo) FindQRByToken(ctx context.Context, token string) (*models.QRCode, error) {
	if f.qr == nil || f.qr.Token != token {
		return nil, sql.ErrNoRows
	}
	return f.qr, nil
}

type fakeClassRepo struct {
	owner string
}

func (f fakeClassRepo) FindByID(ctx context.Context, id string) (*models.Class, error) {
	class := &models.Class{ID: id}
	if f.owner != "" {
		owner := f.owner
		class.TeacherID = &owner
	}
	return class, nil
}

func (fakeClassRepo) IsEnrolled(ctx context.Context, classID, studentID string) (bool, error) {
	return true, nil
}

func (fakeClassRepo) Roster(ctx context.Context, classID string) ([]models.RosterStudent, error) {
	return nil, nil
}

func studentContext(rec *httptest.ResponseRecorder, method, target, body string) (*gin.Context, *models.JWTClaims) {
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(method, target, strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	claims := &models.JWTClaims{UserID: "s1", Role: models.RoleStudent, Name: "Asha"}
	c.Set(middleware.ContextUserKey, claims)
	return c, claims
}

func newAttendanceHandlerForTest(marks *fakeMarkRepo, sessions *fakeSessionRepo) *AttendanceHandler {
	svc := service.NewAttendanceService(marks, sessions, fakeClassRepo{owner: "s1"}, nil, nil)
	return NewAttendanceHandler(svc)
}

func TestAttendanceHandlerMarkAcceptsTokenField(t *testing.T) {
	gin.SetMode(gin.TestMode)
	now := time.Now().UTC()
	marks := &fakeMarkRepo{}
	sessions := &fakeSessionRepo{
		session: &models.Session{ID: "sess-1", ClassID: "c1", ScheduledStart: now.Add(-5 * time.Minute), ScheduledEnd: now.Add(time.Hour)},
		qr:      &models.QRCode{ID: "qr-1", SessionID: "sess-1", Token: "tok-123", Active: true, ExpiresAt: now.Add(10 * time.Minute)},
	}
	handler := newAttendanceHandlerForTest(marks, sessions)

	rec := httptest.NewRecorder()
	c, _ := studentContext(rec, http.MethodPost, "/api/attendance/mark", `{"token":"tok-123"}`)

	handler.Mark(c)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res models.MarkAttendanceResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, models.MarkStatusPresent, res.Status)
	require.NotNil(t, marks.inserted)
	assert.Equal(t, "qr-1", marks.inserted.QRCodeID)
}

func TestAttendanceHandlerMarkAcceptsRawQRPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	now := time.Now().UTC()
	marks := &fakeMarkRepo{}
	sessions := &fakeSessionRepo{
		session: &models.Session{ID: "sess-1", ClassID: "c1", ScheduledStart: now.Add(-5 * time.Minute), ScheduledEnd: now.Add(time.Hour)},
		qr:      &models.QRCode{ID: "qr-1", SessionID: "sess-1", Token: "tok-123", Active: true, ExpiresAt: now.Add(10 * time.Minute)},
	}
	handler := newAttendanceHandlerForTest(marks, sessions)

	rec := httptest.NewRecorder()
	c, _ := studentContext(rec, http.MethodPost, "/api/attendance/mark", `{"t":"tok-123"}`)

	handler.Mark(c)

	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, marks.inserted)
}

func TestAttendanceHandlerMarkUnknownToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newAttendanceHandlerForTest(&fakeMarkRepo{}, &fakeSessionRepo{})

	rec := httptest.NewRecorder()
	c, _ := studentContext(rec, http.MethodPost, "/api/attendance/mark", `{"token":"nope"}`)

	handler.Mark(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAttendanceHandlerReportParsesDates(t *testing.T) {
	gin.SetMode(gin.TestMode)
	marks := &fakeMarkRepo{}
	handler := newAttendanceHandlerForTest(marks, &fakeSessionRepo{})

	rec := httptest.NewRecorder()
	c, _ := studentContext(rec, http.MethodGet, "/api/attendance/report?classId=c1&startDate=2026-01-01&endDate=2026-01-31", "")

	handler.Report(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "c1", marks.filter.ClassID)
	require.NotNil(t, marks.filter.StartDate)
	require.NotNil(t, marks.filter.EndDate)
	assert.Equal(t, 2026, marks.filter.StartDate.Year())
	assert.Equal(t, time.January, marks.filter.EndDate.Month())
	assert.Equal(t, 31, marks.filter.EndDate.Day())
}

func TestAttendanceHandlerReportRejectsBadDate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newAttendanceHandlerForTest(&fakeMarkRepo{}, &fakeSessionRepo{})

	rec := httptest.NewRecorder()
	c, _ := studentContext(rec, http.MethodGet, "/api/attendance/report?startDate=January", "")

	handler.Report(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
