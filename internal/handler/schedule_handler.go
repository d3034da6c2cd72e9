package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/escola-habilidade/scheduling-api/internal/dto"
	"github.com/escola-habilidade/scheduling-api/internal/service"
	appErrors "github.com/escola-habilidade/scheduling-api/pkg/errors"
	"github.com/escola-habilidade/scheduling-api/pkg/response"
)

// ScheduleHandler exposes the end-date calculator and the dated slot
// resolver.
type ScheduleHandler struct {
	schedules *service.ScheduleService
	slots     *service.SlotService
}

// NewScheduleHandler creates a new handler.
func NewScheduleHandler(schedules *service.ScheduleService, slots *service.SlotService) *ScheduleHandler {
	return &ScheduleHandler{schedules: schedules, slots: slots}
}

// CalculateEndDate godoc
// @Summary Calculate course end date
// @Description Project a course's end date from start date, hours and weekly cadence
// @Tags Scheduling
// @Accept json
// @Produce json
// @Param payload body dto.CalculateEndDateRequest true "Calculation payload"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Security BearerAuth
// @Router /calculations/end-date [post]
func (h *ScheduleHandler) CalculateEndDate(c *gin.Context) {
	var req dto.CalculateEndDateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid calculation payload"))
		return
	}

	result, err := h.schedules.CalculateEndDate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, result, nil)
}

// AvailableSlots godoc
// @Summary Resolve dated availability slots
// @Description Expand a teacher's weekly availability into dated slots with remaining spots
// @Tags Scheduling
// @Produce json
// @Param id path string true "Teacher ID"
// @Param startDate query string true "Range start (YYYY-MM-DD)"
// @Param endDate query string true "Range end (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /teachers/{id}/slots [get]
func (h *ScheduleHandler) AvailableSlots(c *gin.Context) {
	var query dto.SlotRangeQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid slot range query"))
		return
	}
	if query.StartDate == "" || query.EndDate == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "startDate and endDate required"))
		return
	}

	slots, err := h.slots.ListAvailableSlots(c.Request.Context(), c.Param("id"), query.StartDate, query.EndDate)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, slots, nil)
}
