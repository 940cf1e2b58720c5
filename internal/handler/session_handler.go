package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/smartattend/api/internal/models"
	"github.com/smartattend/api/internal/service"
	appErrors "github.com/smartattend/api/pkg/errors"
	"github.com/smartattend/api/pkg/response"
)

// SessionHandler wires HTTP endpoints to the session service.
type SessionHandler struct {
	sessions   *service.SessionService
	attendance *service.AttendanceService
}

// NewSessionHandler creates a new handler.
func NewSessionHandler(sessions *service.SessionService, attendance *service.AttendanceService) *SessionHandler {
	return &SessionHandler{sessions: sessions, attendance: attendance}
}

// List godoc
// @Summary List own sessions
// @Description Returns the teacher's sessions newest first with derived status and, when live, the active QR.
// @Tags Sessions
// @Produce json
// @Success 200 {array} models.SessionDetail
// @Router /sessions [get]
func (h *SessionHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	res, err := h.sessions.ListForTeacher(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res)
}

// Today godoc
// @Summary Today's sessions
// @Description The teacher's sessions scheduled for the current day with distinct attendee counts.
// @Tags Sessions
// @Produce json
// @Success 200 {array} models.SessionDetail
// @Router /sessions/today [get]
func (h *SessionHandler) Today(c *gin.Context) {
	claims := claimsFromContext(c)
	res, err := h.sessions.ListToday(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res)
}

// ActiveQR godoc
// @Summary Sessions with a live QR
// @Description Ongoing sessions of the teacher that currently expose a usable QR code.
// @Tags Sessions
// @Produce json
// @Success 200 {array} models.SessionDetail
// @Router /sessions/active-qr [get]
func (h *SessionHandler) ActiveQR(c *gin.Context) {
	claims := claimsFromContext(c)
	res, err := h.sessions.ListActiveQR(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res)
}

// Get godoc
// @Summary Get one session
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} models.SessionDetail
// @Failure 404 {object} map[string]string
// @Router /sessions/{id} [get]
func (h *SessionHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	res, err := h.sessions.Get(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res)
}

// Create godoc
// @Summary Schedule a session
// @Tags Sessions
// @Accept json
// @Produce json
// @Param payload body models.CreateSessionRequest true "Session payload"
// @Success 201 {object} models.Session
// @Failure 400 {object} map[string]string
// @Router /sessions [post]
func (h *SessionHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	var req models.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid session payload"))
		return
	}

	session, err := h.sessions.Create(c.Request.Context(), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, session)
}

// GenerateQR godoc
// @Summary Issue a QR code
// @Description Issues a fresh token for an ongoing session, replacing any active one. Expiry is capped at the session end.
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body models.GenerateQRRequest false "Duration override"
// @Success 200 {object} models.QRCode
// @Failure 400 {object} map[string]string
// @Router /sessions/{id}/generate-qr [post]
func (h *SessionHandler) GenerateQR(c *gin.Context) {
	claims := claimsFromContext(c)
	var req models.GenerateQRRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid qr payload"))
			return
		}
	}

	code, err := h.sessions.GenerateQR(c.Request.Context(), c.Param("id"), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, code)
}

// EndQR godoc
// @Summary Deactivate QR codes
// @Description Deactivates all QR codes of the session. Idempotent.
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} map[string]string
// @Router /sessions/{id}/end-qr [put]
func (h *SessionHandler) EndQR(c *gin.Context) {
	claims := claimsFromContext(c)
	msg, err := h.sessions.EndQR(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, msg)
}

// Delete godoc
// @Summary Delete a session
// @Description Removes the session together with its QR codes and marks.
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} map[string]string
// @Router /sessions/{id} [delete]
func (h *SessionHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	msg, err := h.sessions.Delete(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, msg)
}

// Attendance godoc
// @Summary Session attendance report
// @Description Roster-wide Present/Late/Absent report with a stats block, ordered Present, Late, then Absent.
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} models.SessionAttendanceReport
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /sessions/{id}/attendance [get]
func (h *SessionHandler) Attendance(c *gin.Context) {
	claims := claimsFromContext(c)
	res, err := h.attendance.SessionReport(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res)
}
