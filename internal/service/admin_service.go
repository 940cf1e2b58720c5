package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/smartattend/api/internal/models"
	appErrors "github.com/smartattend/api/pkg/errors"
)

type statsUserRepository interface {
	CountByRole(ctx context.Context, role models.UserRole) (int, error)
}

type statsClassRepository interface {
	Count(ctx context.Context) (int, error)
	ListAll(ctx context.Context) ([]models.ClassDetail, error)
}

type statsSessionRepository interface {
	Count(ctx context.Context) (int, error)
	CountBetween(ctx context.Context, from, to time.Time) (int, error)
}

type statsMarkRepository interface {
	CountMarks(ctx context.Context) (int, error)
	CountMarksBetween(ctx context.Context, from, to time.Time) (int, error)
	ExpectedMarks(ctx context.Context, now time.Time) (int, error)
	RecentActivity(ctx context.Context, limit int) ([]models.RecentActivityEntry, error)
	ListRecords(ctx context.Context, filter models.AttendanceRecordFilter) ([]models.AttendanceRecord, error)
	ClearAll(ctx context.Context) error
}

type aggregateReportRepository interface {
	DepartmentStats(ctx context.Context, now time.Time) ([]models.DepartmentStat, error)
	ClassWise(ctx context.Context, now time.Time) ([]models.ClassWiseReportRow, error)
	StudentsAttendance(ctx context.Context, now time.Time) ([]models.StudentAttendanceReportRow, error)
	Teachers(ctx context.Context) ([]models.TeacherReportRow, error)
}

const (
	statsCacheKey                = "reports:stats"
	departmentStatsCacheKey      = "reports:departments"
	classWiseReportCacheKey      = "reports:class-wise"
	studentsReportCacheKey       = "reports:students"
	teachersReportCacheKey       = "reports:teachers"
	reportCacheInvalidatePattern = "reports:*"
)

// AdminService serves the admin dashboard rollups and report feeds.
type AdminService struct {
	users    statsUserRepository
	classes  statsClassRepository
	sessions statsSessionRepository
	marks    statsMarkRepository
	reports  aggregateReportRepository
	cache    *CacheService
	cacheTTL time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewAdminService constructs an AdminService instance.
func NewAdminService(users statsUserRepository, classes statsClassRepository, sessions statsSessionRepository, marks statsMarkRepository, reports aggregateReportRepository, cache *CacheService, cacheTTL time.Duration, logger *zap.Logger) *AdminService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}
	return &AdminService{
		users:    users,
		classes:  classes,
		sessions: sessions,
		marks:    marks,
		reports:  reports,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Stats computes the headline dashboard numbers. Results are cached briefly,
// so a freshly scanned mark may take up to the TTL to appear.
func (s *AdminService) Stats(ctx context.Context) (*models.AdminStats, error) {
	var cached models.AdminStats
	if hit, err := s.cache.Get(ctx, statsCacheKey, &cached); err == nil && hit {
		return &cached, nil
	}

	now := s.now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.Add(24 * time.Hour)

	stats := &models.AdminStats{}
	var err error
	if stats.TotalStudents, err = s.users.CountByRole(ctx, models.RoleStudent); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count students")
	}
	if stats.TotalTeachers, err = s.users.CountByRole(ctx, models.RoleTeacher); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count teachers")
	}
	if stats.TotalClasses, err = s.classes.Count(ctx); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count classes")
	}
	if stats.TotalSessions, err = s.sessions.Count(ctx); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count sessions")
	}
	if stats.SessionsToday, err = s.sessions.CountBetween(ctx, dayStart, dayEnd); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count today's sessions")
	}
	if stats.MarksToday, err = s.marks.CountMarksBetween(ctx, dayStart, dayEnd); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count today's marks")
	}

	expected, err := s.marks.ExpectedMarks(ctx, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute expected marks")
	}
	if expected > 0 {
		total, err := s.marks.CountMarks(ctx)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count marks")
		}
		stats.OverallAttendance = float64(total) / float64(expected) * 100
	}

	_ = s.cache.Set(ctx, statsCacheKey, stats, s.cacheTTL)
	return stats, nil
}

// DepartmentStats returns the per-department rollups.
func (s *AdminService) DepartmentStats(ctx context.Context) ([]models.DepartmentStat, error) {
	var cached []models.DepartmentStat
	if hit, err := s.cache.Get(ctx, departmentStatsCacheKey, &cached); err == nil && hit {
		return cached, nil
	}
	stats, err := s.reports.DepartmentStats(ctx, s.now())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load department stats")
	}
	_ = s.cache.Set(ctx, departmentStatsCacheKey, stats, s.cacheTTL)
	return stats, nil
}

// RecentActivity returns the newest marks across all classes.
func (s *AdminService) RecentActivity(ctx context.Context, limit int) ([]models.RecentActivityEntry, error) {
	entries, err := s.marks.RecentActivity(ctx, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load recent activity")
	}
	for i := range entries {
		entries[i].Status = models.ClassifyMark(entries[i].MarkedAt, entries[i].ScheduledStart)
	}
	return entries, nil
}

// ListClasses returns all classes with teacher and headcounts.
func (s *AdminService) ListClasses(ctx context.Context) ([]models.ClassDetail, error) {
	classes, err := s.classes.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	return classes, nil
}

// ClassWiseReport returns per-class attendance aggregates.
func (s *AdminService) ClassWiseReport(ctx context.Context) ([]models.ClassWiseReportRow, error) {
	var cached []models.ClassWiseReportRow
	if hit, err := s.cache.Get(ctx, classWiseReportCacheKey, &cached); err == nil && hit {
		return cached, nil
	}
	rows, err := s.reports.ClassWise(ctx, s.now())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class-wise report")
	}
	_ = s.cache.Set(ctx, classWiseReportCacheKey, rows, s.cacheTTL)
	return rows, nil
}

// StudentsReport returns per-student attendance aggregates, best first.
func (s *AdminService) StudentsReport(ctx context.Context) ([]models.StudentAttendanceReportRow, error) {
	var cached []models.StudentAttendanceReportRow
	if hit, err := s.cache.Get(ctx, studentsReportCacheKey, &cached); err == nil && hit {
		return cached, nil
	}
	rows, err := s.reports.StudentsAttendance(ctx, s.now())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students report")
	}
	_ = s.cache.Set(ctx, studentsReportCacheKey, rows, s.cacheTTL)
	return rows, nil
}

// TeachersReport returns per-teacher activity aggregates.
func (s *AdminService) TeachersReport(ctx context.Context) ([]models.TeacherReportRow, error) {
	var cached []models.TeacherReportRow
	if hit, err := s.cache.Get(ctx, teachersReportCacheKey, &cached); err == nil && hit {
		return cached, nil
	}
	rows, err := s.reports.Teachers(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teachers report")
	}
	_ = s.cache.Set(ctx, teachersReportCacheKey, rows, s.cacheTTL)
	return rows, nil
}

// RecordsFeed returns the unscoped mark feed with optional class and date
// filters, marks classified on the way out.
func (s *AdminService) RecordsFeed(ctx context.Context, filter models.AttendanceRecordFilter) ([]models.AttendanceRecord, error) {
	records, err := s.marks.ListRecords(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance records")
	}
	for i := range records {
		records[i].Status = models.ClassifyMark(records[i].MarkedAt, records[i].ScheduledStart)
	}
	return records, nil
}

// ClearAttendance wipes every attendance mark. Sessions, classes and QR
// history are untouched.
func (s *AdminService) ClearAttendance(ctx context.Context) (string, error) {
	if err := s.marks.ClearAll(ctx); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear attendance")
	}
	_ = s.cache.Invalidate(ctx, reportCacheInvalidatePattern)
	s.logger.Warn("all attendance records cleared")
	return "All attendance records have been cleared successfully", nil
}
