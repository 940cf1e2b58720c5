package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/smartattend/api/internal/models"
	"github.com/smartattend/api/internal/service"
	appErrors "github.com/smartattend/api/pkg/errors"
	"github.com/smartattend/api/pkg/response"
)

// AttendanceHandler wires HTTP endpoints to the attendance service.
type AttendanceHandler struct {
	service *service.AttendanceService
}

// NewAttendanceHandler creates a new handler.
func NewAttendanceHandler(svc *service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{service: svc}
}

// Mark godoc
// @Summary Mark attendance by QR token
// @Description Redeems a scanned token. Accepts either {"token": "..."} or the raw QR payload {"t": "..."}. Marking twice returns 200 with an already-marked message.
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body models.MarkAttendanceRequest true "Scanned token"
// @Success 200 {object} models.MarkAttendanceResult
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Router /attendance/mark [post]
func (h *AttendanceHandler) Mark(c *gin.Context) {
	claims := claimsFromContext(c)

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid attendance payload"))
		return
	}

	var req models.MarkAttendanceRequest
	rawToken := string(body)
	if json.Unmarshal(body, &req) == nil && req.Token != "" {
		rawToken = req.Token
	}

	result, err := h.service.Mark(c.Request.Context(), claims.UserID, rawToken)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// Report godoc
// @Summary Teacher attendance feed
// @Description Flat list of marks across the teacher's classes, newest first. Filterable by class and date range.
// @Tags Attendance
// @Produce json
// @Param classId query string false "Class ID"
// @Param startDate query string false "Start date (YYYY-MM-DD)"
// @Param endDate query string false "End date (YYYY-MM-DD)"
// @Success 200 {array} models.AttendanceRecord
// @Failure 400 {object} map[string]string
// @Router /attendance/report [get]
func (h *AttendanceHandler) Report(c *gin.Context) {
	claims := claimsFromContext(c)
	filter, err := recordFilterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	records, err := h.service.TeacherReport(c.Request.Context(), claims.UserID, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, records)
}

// Today godoc
// @Summary Today's marks
// @Description Marks recorded today across the teacher's classes.
// @Tags Attendance
// @Produce json
// @Success 200 {array} models.AttendanceRecord
// @Router /attendance/today [get]
func (h *AttendanceHandler) Today(c *gin.Context) {
	claims := claimsFromContext(c)
	records, err := h.service.TodayFeed(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, records)
}

// StudentHistory godoc
// @Summary Own attendance history
// @Description The student's past and ongoing sessions with their mark, absences included.
// @Tags Attendance
// @Produce json
// @Success 200 {array} models.StudentHistoryEntry
// @Router /attendance/student [get]
func (h *AttendanceHandler) StudentHistory(c *gin.Context) {
	claims := claimsFromContext(c)
	entries, err := h.service.StudentHistory(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, entries)
}

// ClassReport godoc
// @Summary Class attendance feed
// @Description Flat list of marks for one class owned by the caller, newest first.
// @Tags Attendance
// @Produce json
// @Param classId path string true "Class ID"
// @Success 200 {array} models.AttendanceRecord
// @Failure 403 {object} map[string]string
// @Router /reports/class/{classId} [get]
func (h *AttendanceHandler) ClassReport(c *gin.Context) {
	claims := claimsFromContext(c)
	filter := models.AttendanceRecordFilter{ClassID: c.Param("classId")}

	records, err := h.service.TeacherReport(c.Request.Context(), claims.UserID, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, records)
}

// recordFilterFromQuery parses the shared classId/startDate/endDate query
// parameters. Dates use YYYY-MM-DD and the end date is inclusive.
func recordFilterFromQuery(c *gin.Context) (models.AttendanceRecordFilter, error) {
	filter := models.AttendanceRecordFilter{ClassID: c.Query("classId")}

	if raw := c.Query("startDate"); raw != "" {
		start, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return filter, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid startDate, expected YYYY-MM-DD")
		}
		filter.StartDate = &start
	}
	if raw := c.Query("endDate"); raw != "" {
		end, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return filter, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid endDate, expected YYYY-MM-DD")
		}
		end = end.Add(24*time.Hour - time.Nanosecond)
		filter.EndDate = &end
	}
	return filter, nil
}
