package dto

// CreateAvailabilityRequest captures POST /teachers/:id/availability payload.
type CreateAvailabilityRequest struct {
	DayOfWeek   int    `json:"dayOfWeek" validate:"min=0,max=6"`
	StartTime   string `json:"startTime" validate:"required"`
	EndTime     string `json:"endTime" validate:"required"`
	MaxStudents int    `json:"maxStudents" validate:"required,min=1,max=50"`
}

// UpdateAvailabilityRequest captures PUT /teachers/:id/availability/:slotId.
// Nil fields are left unchanged.
type UpdateAvailabilityRequest struct {
	StartTime   *string `json:"startTime,omitempty"`
	EndTime     *string `json:"endTime,omitempty"`
	MaxStudents *int    `json:"maxStudents,omitempty" validate:"omitempty,min=1,max=50"`
	Active      *bool   `json:"active,omitempty"`
}
