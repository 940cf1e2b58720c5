package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/smartattend/api/internal/models"
	"github.com/smartattend/api/internal/service"
	appErrors "github.com/smartattend/api/pkg/errors"
	"github.com/smartattend/api/pkg/response"
)

// ClassHandler wires HTTP endpoints to the class service.
type ClassHandler struct {
	classes  *service.ClassService
	sessions *service.SessionService
}

// NewClassHandler creates a new handler.
func NewClassHandler(classes *service.ClassService, sessions *service.SessionService) *ClassHandler {
	return &ClassHandler{classes: classes, sessions: sessions}
}

// List godoc
// @Summary List own classes
// @Description Returns the teacher's classes with rosters attached.
// @Tags Classes
// @Produce json
// @Success 200 {array} models.ClassWithRoster
// @Router /classes [get]
func (h *ClassHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	res, err := h.classes.ListForTeacher(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res)
}

// Create godoc
// @Summary Create a class
// @Tags Classes
// @Accept json
// @Produce json
// @Param payload body models.CreateClassRequest true "Class payload"
// @Success 201 {object} models.Class
// @Failure 409 {object} map[string]string
// @Router /classes [post]
func (h *ClassHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	var req models.CreateClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid class payload"))
		return
	}

	class, err := h.classes.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, class)
}

// Join godoc
// @Summary Join a class by code
// @Description Enrolls the student. Joining twice reports success without a second roster row.
// @Tags Classes
// @Accept json
// @Produce json
// @Param payload body models.JoinClassRequest true "Join payload"
// @Success 200 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /classes/join [post]
func (h *ClassHandler) Join(c *gin.Context) {
	claims := claimsFromContext(c)
	var req models.JoinClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid join payload"))
		return
	}

	msg, err := h.classes.Join(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, msg)
}

// Enrolled godoc
// @Summary List enrolled classes
// @Description Returns the student's classes with today's and upcoming session counts.
// @Tags Classes
// @Produce json
// @Success 200 {array} models.EnrolledClass
// @Router /classes/enrolled [get]
func (h *ClassHandler) Enrolled(c *gin.Context) {
	claims := claimsFromContext(c)
	res, err := h.classes.ListEnrolled(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res)
}

// StudentSessions godoc
// @Summary Student session overview
// @Description Sessions of the student's classes over the next week, each with the student's own status.
// @Tags Classes
// @Produce json
// @Success 200 {array} models.StudentSessionView
// @Router /classes/sessions [get]
func (h *ClassHandler) StudentSessions(c *gin.Context) {
	claims := claimsFromContext(c)
	res, err := h.sessions.ListUpcomingForStudent(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res)
}

// Today godoc
// @Summary Student day view
// @Description Today's sessions across the student's classes.
// @Tags Classes
// @Produce json
// @Success 200 {array} models.StudentSessionView
// @Router /classes/today [get]
func (h *ClassHandler) Today(c *gin.Context) {
	claims := claimsFromContext(c)
	res, err := h.sessions.ListTodayForStudent(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res)
}

// Upcoming godoc
// @Summary Upcoming sessions
// @Description Sessions over the next 7 days, scoped to the caller's role.
// @Tags Classes
// @Produce json
// @Success 200 {array} models.SessionDetail
// @Router /classes/upcoming [get]
func (h *ClassHandler) Upcoming(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims.Role == models.RoleStudent {
		res, err := h.sessions.ListUpcomingForStudent(c.Request.Context(), claims.UserID)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, res)
		return
	}

	res, err := h.sessions.ListUpcomingForTeacher(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res)
}

// Sessions godoc
// @Summary Sessions of a class
// @Description Lists the class's sessions with derived status. Owners and admins always pass, students must be enrolled.
// @Tags Classes
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {array} models.SessionDetail
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /classes/{id}/sessions [get]
func (h *ClassHandler) Sessions(c *gin.Context) {
	claims := claimsFromContext(c)
	res, err := h.classes.SessionsForClass(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res)
}

// Register godoc
// @Summary Class attendance register
// @Description Per-student attended/late/absent counts over the class's started sessions, best attendance first.
// @Tags Classes
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} models.ClassRegister
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /classes/{id}/register [get]
func (h *ClassHandler) Register(c *gin.Context) {
	claims := claimsFromContext(c)
	res, err := h.classes.Register(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res)
}
