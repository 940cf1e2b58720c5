package service

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/smartattend/api/internal/models"
	"github.com/smartattend/api/internal/repository"
	"github.com/smartattend/api/pkg/jobs"
	"github.com/smartattend/api/pkg/storage"
)

type mockExportJobStore struct {
	jobs    map[string]*models.ExportJob
	updates []repository.UpdateExportJobParams
}

func newMockExportJobStore() *mockExportJobStore {
	return &mockExportJobStore{jobs: make(map[string]*models.ExportJob)}
}

func (m *mockExportJobStore) Create(ctx context.Context, job *models.ExportJob) error {
	if job.ID == "" {
		job.ID = "job-1"
	}
	if job.Status == "" {
		job.Status = models.ExportStatusQueued
	}
	m.jobs[job.ID] = job
	return nil
}

func (m *mockExportJobStore) GetByID(ctx context.Context, id string) (*models.ExportJob, error) {
	job, ok := m.jobs[id]
	if !ok {
		return nil, io.EOF
	}
	return job, nil
}

func (m *mockExportJobStore) Update(ctx context.Context, id string, params repository.UpdateExportJobParams) error {
	m.updates = append(m.updates, params)
	job := m.jobs[id]
	if job == nil {
		return nil
	}
	if params.Status != nil {
		job.Status = *params.Status
	}
	if params.FilePath != nil {
		job.FilePath = params.FilePath
	}
	if params.ErrorMessage != nil {
		job.ErrorMessage = params.ErrorMessage
	}
	if params.FinishedAt != nil {
		job.FinishedAt = params.FinishedAt
	}
	return nil
}

func (m *mockExportJobStore) ListQueued(ctx context.Context, limit int) ([]models.ExportJob, error) {
	var queued []models.ExportJob
	for _, job := range m.jobs {
		if job.Status == models.ExportStatusQueued {
			queued = append(queued, *job)
		}
	}
	return queued, nil
}

type stubExportDataSource struct{}

func (stubExportDataSource) ClassWise(ctx context.Context, now time.Time) ([]models.ClassWiseReportRow, error) {
	teacher := "Prof Iyer"
	return []models.ClassWiseReportRow{
		{ClassID: "c1", ClassName: "Algorithms", ClassCode: "CSE101", TeacherName: &teacher, Students: 30, Sessions: 10, Marks: 250, AttendanceRate: 83.33},
	}, nil
}

func (stubExportDataSource) StudentsAttendance(ctx context.Context, now time.Time) ([]models.StudentAttendanceReportRow, error) {
	number := "2023UCP1665"
	return []models.StudentAttendanceReportRow{
		{UserID: "s1", Name: "Asha", StudentNumber: &number, Classes: 3, SessionsHeld: 20, Attended: 18, AttendanceRate: 90},
	}, nil
}

func (stubExportDataSource) Teachers(ctx context.Context) ([]models.TeacherReportRow, error) {
	return []models.TeacherReportRow{
		{UserID: "t1", Name: "Prof Iyer", Classes: 2, Sessions: 12, MarksTracked: 300},
	}, nil
}

type recordingDispatcher struct {
	enqueued []jobs.Job
	fail     bool
}

func (d *recordingDispatcher) Enqueue(job jobs.Job) error {
	if d.fail {
		return io.ErrClosedPipe
	}
	d.enqueued = append(d.enqueued, job)
	return nil
}

func newExportServiceForTest(t *testing.T, repo *mockExportJobStore, dispatcher *recordingDispatcher) *ExportService {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	cfg := ExportConfig{APIPrefix: "/api", ResultTTL: time.Hour}
	return NewExportService(repo, stubExportDataSource{}, store, dispatcher, signer, cfg, zap.NewNop())
}

func TestCreateJobEnqueues(t *testing.T) {
	repo := newMockExportJobStore()
	dispatcher := &recordingDispatcher{}
	svc := newExportServiceForTest(t, repo, dispatcher)

	job, err := svc.CreateJob(context.Background(), models.CreateExportRequest{Type: models.ExportTypeClassWise, Format: models.ExportFormatCSV}, "admin")
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusQueued, job.Status)
	require.Len(t, dispatcher.enqueued, 1)
	assert.Equal(t, job.ID, dispatcher.enqueued[0].ID)
}

func TestCreateJobRejectsUnknownType(t *testing.T) {
	svc := newExportServiceForTest(t, newMockExportJobStore(), &recordingDispatcher{})

	_, err := svc.CreateJob(context.Background(), models.CreateExportRequest{Type: "everything", Format: models.ExportFormatCSV}, "admin")
	require.Error(t, err)
}

func TestCreateJobEnqueueFailureMarksFailed(t *testing.T) {
	repo := newMockExportJobStore()
	svc := newExportServiceForTest(t, repo, &recordingDispatcher{fail: true})

	_, err := svc.CreateJob(context.Background(), models.CreateExportRequest{Type: models.ExportTypeStudents, Format: models.ExportFormatCSV}, "admin")
	require.Error(t, err)
	job := repo.jobs["job-1"]
	require.NotNil(t, job)
	assert.Equal(t, models.ExportStatusFailed, job.Status)
}

func TestGenerateWritesCSV(t *testing.T) {
	repo := newMockExportJobStore()
	svc := newExportServiceForTest(t, repo, &recordingDispatcher{})

	job := &models.ExportJob{ID: "job-1", Type: models.ExportTypeClassWise, Params: models.ExportJobParams{Format: models.ExportFormatCSV}}
	relPath, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(relPath, ".csv"), relPath)

	file, err := svc.storage.Open(relPath)
	require.NoError(t, err)
	defer file.Close()
	content, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.Contains(t, string(content), "CSE101")
}

func TestGenerateWritesPDF(t *testing.T) {
	repo := newMockExportJobStore()
	svc := newExportServiceForTest(t, repo, &recordingDispatcher{})

	job := &models.ExportJob{ID: "job-1", Type: models.ExportTypeTeachers, Params: models.ExportJobParams{Format: models.ExportFormatPDF}}
	relPath, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(relPath, ".pdf"), relPath)
}

func TestWorkerFinishesJobAndSignsDownload(t *testing.T) {
	repo := newMockExportJobStore()
	dispatcher := &recordingDispatcher{}
	svc := newExportServiceForTest(t, repo, dispatcher)
	worker := NewExportWorker(repo, svc, 3, zap.NewNop())

	job, err := svc.CreateJob(context.Background(), models.CreateExportRequest{Type: models.ExportTypeStudents, Format: models.ExportFormatCSV}, "admin")
	require.NoError(t, err)

	require.NoError(t, worker.Handle(context.Background(), jobs.Job{ID: job.ID}))
	stored := repo.jobs[job.ID]
	assert.Equal(t, models.ExportStatusFinished, stored.Status)
	require.NotNil(t, stored.FilePath)

	status, err := svc.GetStatus(context.Background(), job.ID)
	require.NoError(t, err)
	require.NotNil(t, status.DownloadURL)
	assert.Contains(t, *status.DownloadURL, "/api/export/")

	token := (*status.DownloadURL)[strings.LastIndex(*status.DownloadURL, "/")+1:]
	download, err := svc.ResolveDownload(context.Background(), token)
	require.NoError(t, err)
	defer download.File.Close()
	assert.Equal(t, models.ExportFormatCSV, download.Format)
}

func TestResolveDownloadRejectsGarbage(t *testing.T) {
	svc := newExportServiceForTest(t, newMockExportJobStore(), &recordingDispatcher{})

	_, err := svc.ResolveDownload(context.Background(), "not-a-token")
	require.Error(t, err)
}
