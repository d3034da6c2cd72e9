package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/escola-habilidade/scheduling-api/internal/dto"
	"github.com/escola-habilidade/scheduling-api/internal/models"
	"github.com/escola-habilidade/scheduling-api/internal/service"
	appErrors "github.com/escola-habilidade/scheduling-api/pkg/errors"
	"github.com/escola-habilidade/scheduling-api/pkg/response"
)

// AvailabilityHandler exposes weekly availability endpoints nested under
// a teacher resource.
type AvailabilityHandler struct {
	service  *service.AvailabilityService
	teachers *service.TeacherService
	slots    *service.SlotService
}

// NewAvailabilityHandler creates a new handler.
func NewAvailabilityHandler(svc *service.AvailabilityService, teachers *service.TeacherService, slots *service.SlotService) *AvailabilityHandler {
	return &AvailabilityHandler{service: svc, teachers: teachers, slots: slots}
}

// authorizeTeacher allows admins through unconditionally and instructors
// only when the route's teacher id maps back to their own user account.
// Route params carry a teacher id, not a user id, so the lookup goes
// through the teacher record instead of comparing against claims directly.
func (h *AvailabilityHandler) authorizeTeacher(c *gin.Context, teacherID string) bool {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return false
	}
	if claims.Role == models.RoleAdmin {
		return true
	}
	teacher, err := h.teachers.GetByUserID(c.Request.Context(), claims.UserID)
	if err != nil || teacher.ID != teacherID {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "not allowed to manage this teacher's availability"))
		return false
	}
	return true
}

// List godoc
// @Summary List teacher availability
// @Description Without a date range, returns the recurring weekly windows.
// @Description With startDate and endDate, returns dated slot occurrences with remaining spots.
// @Tags Availability
// @Produce json
// @Param id path string true "Teacher ID"
// @Param startDate query string false "Range start (YYYY-MM-DD)"
// @Param endDate query string false "Range end (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /teachers/{id}/availability [get]
func (h *AvailabilityHandler) List(c *gin.Context) {
	startDate := c.Query("startDate")
	endDate := c.Query("endDate")

	if startDate != "" || endDate != "" {
		if startDate == "" || endDate == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "startDate and endDate must be provided together"))
			return
		}
		resolved, err := h.slots.ListAvailableSlots(c.Request.Context(), c.Param("id"), startDate, endDate)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, resolved, nil)
		return
	}

	windows, err := h.service.ListByTeacher(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, windows, nil)
}

// Create godoc
// @Summary Create availability slot
// @Tags Availability
// @Accept json
// @Produce json
// @Param id path string true "Teacher ID"
// @Param payload body dto.CreateAvailabilityRequest true "Slot payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /teachers/{id}/availability [post]
func (h *AvailabilityHandler) Create(c *gin.Context) {
	teacherID := c.Param("id")
	if !h.authorizeTeacher(c, teacherID) {
		return
	}

	var req dto.CreateAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid availability payload"))
		return
	}

	slot, err := h.service.Create(c.Request.Context(), teacherID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, slot)
}

// Update godoc
// @Summary Update availability slot
// @Tags Availability
// @Accept json
// @Produce json
// @Param id path string true "Teacher ID"
// @Param slotId path string true "Slot ID"
// @Param payload body dto.UpdateAvailabilityRequest true "Slot payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /teachers/{id}/availability/{slotId} [put]
func (h *AvailabilityHandler) Update(c *gin.Context) {
	teacherID := c.Param("id")
	if !h.authorizeTeacher(c, teacherID) {
		return
	}

	var req dto.UpdateAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid availability payload"))
		return
	}

	slot, err := h.service.Update(c.Request.Context(), teacherID, c.Param("slotId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, slot, nil)
}

// Deactivate godoc
// @Summary Deactivate availability slot
// @Tags Availability
// @Param id path string true "Teacher ID"
// @Param slotId path string true "Slot ID"
// @Success 204 "No Content"
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /teachers/{id}/availability/{slotId} [delete]
func (h *AvailabilityHandler) Deactivate(c *gin.Context) {
	teacherID := c.Param("id")
	if !h.authorizeTeacher(c, teacherID) {
		return
	}

	if err := h.service.Deactivate(c.Request.Context(), teacherID, c.Param("slotId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
