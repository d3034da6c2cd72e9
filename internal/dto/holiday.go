package dto

import "github.com/escola-habilidade/scheduling-api/internal/models"

// CreateHolidayRequest captures POST /holidays payload.
type CreateHolidayRequest struct {
	Date  string              `json:"date" validate:"required"`
	Name  string              `json:"name" validate:"required,min=2,max=120"`
	Scope models.HolidayScope `json:"scope" validate:"required,oneof=national regional"`
}

// UpdateHolidayRequest captures PUT /holidays/:id payload.
type UpdateHolidayRequest struct {
	Date  *string              `json:"date,omitempty"`
	Name  *string              `json:"name,omitempty" validate:"omitempty,min=2,max=120"`
	Scope *models.HolidayScope `json:"scope,omitempty" validate:"omitempty,oneof=national regional"`
}

// HolidayQuery filters holiday listings by year or explicit range.
type HolidayQuery struct {
	Year      int    `form:"year"`
	StartDate string `form:"startDate"`
	EndDate   string `form:"endDate"`
	Scope     string `form:"scope"`
}
