package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/escola-habilidade/scheduling-api/internal/dto"
	"github.com/escola-habilidade/scheduling-api/internal/service"
	appErrors "github.com/escola-habilidade/scheduling-api/pkg/errors"
	"github.com/escola-habilidade/scheduling-api/pkg/response"
)

// EnrollmentHandler exposes admin enrollment endpoints.
type EnrollmentHandler struct {
	service *service.EnrollmentService
}

// NewEnrollmentHandler creates a new handler.
func NewEnrollmentHandler(svc *service.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{service: svc}
}

// List godoc
// @Summary List enrollments
// @Tags Enrollments
// @Produce json
// @Param studentId query string false "Filter by student"
// @Param courseId query string false "Filter by course"
// @Param teacherId query string false "Filter by teacher"
// @Param status query string false "active, completed or cancelled"
// @Param search query string false "Student name or email search"
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/enrollments [get]
func (h *EnrollmentHandler) List(c *gin.Context) {
	var query dto.EnrollmentQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid enrollment query"))
		return
	}

	enrollments, pagination, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, enrollments, pagination)
}

// Get godoc
// @Summary Get enrollment
// @Tags Enrollments
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/enrollments/{id} [get]
func (h *EnrollmentHandler) Get(c *gin.Context) {
	enrollment, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, nil)
}

// Create godoc
// @Summary Create enrollment
// @Description Enroll a student, book weekly slots and project the course end date
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body dto.CreateEnrollmentRequest true "Enrollment payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/enrollments [post]
func (h *EnrollmentHandler) Create(c *gin.Context) {
	var req dto.CreateEnrollmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid enrollment payload"))
		return
	}

	enrollment, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, enrollment)
}

// Cancel godoc
// @Summary Cancel enrollment
// @Description Cancel an active enrollment and release its booked slots
// @Tags Enrollments
// @Param id path string true "Enrollment ID"
// @Success 204 "No Content"
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/enrollments/{id} [delete]
func (h *EnrollmentHandler) Cancel(c *gin.Context) {
	if err := h.service.Cancel(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
