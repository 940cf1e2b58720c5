package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/smartattend/api/internal/service"
	"github.com/smartattend/api/pkg/response"
)

const defaultActivityLimit = 20

// AdminHandler exposes the admin dashboard, reporting and maintenance endpoints.
type AdminHandler struct {
	admin *service.AdminService
	seed  *service.SeedService
}

// NewAdminHandler creates a new handler.
func NewAdminHandler(admin *service.AdminService, seed *service.SeedService) *AdminHandler {
	return &AdminHandler{admin: admin, seed: seed}
}

// Stats godoc
// @Summary Dashboard rollup
// @Description Headline counts plus the overall attendance percentage. Served from cache for a short window.
// @Tags Admin
// @Produce json
// @Success 200 {object} models.AdminStats
// @Router /admin/stats [get]
func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.admin.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, stats)
}

// Departments godoc
// @Summary Per-department stats
// @Tags Admin
// @Produce json
// @Success 200 {array} models.DepartmentStat
// @Router /admin/departments [get]
func (h *AdminHandler) Departments(c *gin.Context) {
	stats, err := h.admin.DepartmentStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, stats)
}

// Classes godoc
// @Summary All classes
// @Description Every class in the system with teacher and size details.
// @Tags Admin
// @Produce json
// @Success 200 {array} models.ClassDetail
// @Router /admin/classes [get]
func (h *AdminHandler) Classes(c *gin.Context) {
	classes, err := h.admin.ListClasses(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, classes)
}

// Reports godoc
// @Summary Attendance records feed
// @Description Flat, unscoped list of marks, newest first. Filterable by class and date range.
// @Tags Admin
// @Produce json
// @Param classId query string false "Class ID"
// @Param startDate query string false "Start date (YYYY-MM-DD)"
// @Param endDate query string false "End date (YYYY-MM-DD)"
// @Success 200 {array} models.AttendanceRecord
// @Failure 400 {object} map[string]string
// @Router /admin/reports [get]
func (h *AdminHandler) Reports(c *gin.Context) {
	filter, err := recordFilterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	filter.TeacherID = c.Query("teacherId")
	filter.StudentID = c.Query("studentId")

	records, err := h.admin.RecordsFeed(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, records)
}

// RecentActivity godoc
// @Summary Recent marks
// @Description The latest marks across the system with classified status.
// @Tags Admin
// @Produce json
// @Param limit query int false "Row cap, defaults to 20"
// @Success 200 {array} models.RecentActivityEntry
// @Router /admin/recent-activity [get]
func (h *AdminHandler) RecentActivity(c *gin.Context) {
	limit := defaultActivityLimit
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	entries, err := h.admin.RecentActivity(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, entries)
}

// ClassWiseReport godoc
// @Summary Class-wise attendance report
// @Tags Admin
// @Produce json
// @Success 200 {array} models.ClassWiseReportRow
// @Router /admin/reports/class-wise [get]
func (h *AdminHandler) ClassWiseReport(c *gin.Context) {
	rows, err := h.admin.ClassWiseReport(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, rows)
}

// StudentsReport godoc
// @Summary Per-student attendance report
// @Tags Admin
// @Produce json
// @Success 200 {array} models.StudentAttendanceReportRow
// @Router /admin/reports/students-attendance [get]
func (h *AdminHandler) StudentsReport(c *gin.Context) {
	rows, err := h.admin.StudentsReport(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, rows)
}

// TeachersReport godoc
// @Summary Per-teacher workload report
// @Tags Admin
// @Produce json
// @Success 200 {array} models.TeacherReportRow
// @Router /admin/reports/teachers [get]
func (h *AdminHandler) TeachersReport(c *gin.Context) {
	rows, err := h.admin.TeachersReport(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, rows)
}

// ClearAttendance godoc
// @Summary Wipe all attendance records
// @Description Deletes every mark and invalidates cached reports. Irreversible.
// @Tags Admin
// @Produce json
// @Success 200 {object} map[string]string
// @Router /admin/attendance/clear [delete]
func (h *AdminHandler) ClearAttendance(c *gin.Context) {
	msg, err := h.admin.ClearAttendance(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, msg)
}

// Seed godoc
// @Summary Seed demo data
// @Description Creates the demo admin, teacher, student and a sample class. Safe to call twice.
// @Tags Admin
// @Produce json
// @Success 200 {object} map[string]string
// @Router /admin/seed [post]
func (h *AdminHandler) Seed(c *gin.Context) {
	msg, err := h.seed.Seed(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, msg)
}
