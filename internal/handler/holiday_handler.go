package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/escola-habilidade/scheduling-api/internal/dto"
	"github.com/escola-habilidade/scheduling-api/internal/service"
	"github.com/escola-habilidade/scheduling-api/pkg/dateutil"
	appErrors "github.com/escola-habilidade/scheduling-api/pkg/errors"
	"github.com/escola-habilidade/scheduling-api/pkg/response"
)

// HolidayHandler exposes holiday calendar endpoints.
type HolidayHandler struct {
	service *service.HolidayService
}

// NewHolidayHandler creates a new handler.
func NewHolidayHandler(svc *service.HolidayService) *HolidayHandler {
	return &HolidayHandler{service: svc}
}

// List godoc
// @Summary List holidays
// @Description List holidays by year or explicit date range
// @Tags Holidays
// @Produce json
// @Param year query int false "Calendar year"
// @Param startDate query string false "Range start (YYYY-MM-DD)"
// @Param endDate query string false "Range end (YYYY-MM-DD)"
// @Param scope query string false "national or regional"
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Security BearerAuth
// @Router /holidays [get]
func (h *HolidayHandler) List(c *gin.Context) {
	var query dto.HolidayQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid holiday query"))
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "50"))

	holidays, pagination, err := h.service.List(c.Request.Context(), query, page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, holidays, pagination)
}

// Check godoc
// @Summary Check a date
// @Description Report whether a given date is a holiday
// @Tags Holidays
// @Produce json
// @Param date query string true "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /holidays/check [get]
func (h *HolidayHandler) Check(c *gin.Context) {
	raw := c.Query("date")
	if raw == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date required"))
		return
	}
	date, err := dateutil.ParseDate(raw)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "date must be YYYY-MM-DD"))
		return
	}

	isHoliday, holiday, err := h.service.IsHoliday(c.Request.Context(), date)
	if err != nil {
		response.Error(c, err)
		return
	}

	payload := gin.H{"date": raw, "isHoliday": isHoliday}
	if holiday != nil {
		payload["holiday"] = holiday
	}
	response.JSON(c, http.StatusOK, payload, nil)
}

// Create godoc
// @Summary Create holiday
// @Tags Holidays
// @Accept json
// @Produce json
// @Param payload body dto.CreateHolidayRequest true "Holiday payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /holidays [post]
func (h *HolidayHandler) Create(c *gin.Context) {
	var req dto.CreateHolidayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid holiday payload"))
		return
	}

	holiday, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, holiday)
}

// Update godoc
// @Summary Update holiday
// @Tags Holidays
// @Accept json
// @Produce json
// @Param id path string true "Holiday ID"
// @Param payload body dto.UpdateHolidayRequest true "Holiday payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /holidays/{id} [put]
func (h *HolidayHandler) Update(c *gin.Context) {
	var req dto.UpdateHolidayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid holiday payload"))
		return
	}

	holiday, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, holiday, nil)
}

// Delete godoc
// @Summary Delete holiday
// @Tags Holidays
// @Param id path string true "Holiday ID"
// @Success 204 "No Content"
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /holidays/{id} [delete]
func (h *HolidayHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
