package dto

// CalculateEndDateRequest captures POST /calculations/end-date payload.
type CalculateEndDateRequest struct {
	StartDate       string  `json:"startDate" validate:"required"`
	CourseHours     float64 `json:"courseHours" validate:"required,gt=0"`
	WeeklyClasses   int     `json:"weeklyClasses" validate:"required,min=1,max=7"`
	TeacherID       string  `json:"teacherId" validate:"required,uuid"`
	ExcludeHolidays bool    `json:"excludeHolidays"`
}

// ScheduledSession is one concrete class date inside a calculated plan.
type ScheduledSession struct {
	Date            string `json:"date"`
	DayOfWeek       int    `json:"dayOfWeek"`
	StartTime       string `json:"startTime"`
	EndTime         string `json:"endTime"`
	DurationMinutes int    `json:"durationMinutes"`
}

// CalculateEndDateResponse returns the computed course plan.
type CalculateEndDateResponse struct {
	StartDate        string             `json:"startDate"`
	EndDate          string             `json:"endDate"`
	TotalWeeks       int                `json:"totalWeeks"`
	ActualClassDays  int                `json:"actualClassDays"`
	HolidaysExcluded []string           `json:"holidaysExcluded"`
	Schedule         []ScheduledSession `json:"schedule"`
}

// SlotRangeQuery filters resolved availability slots by date range.
type SlotRangeQuery struct {
	StartDate string `form:"startDate" validate:"required"`
	EndDate   string `form:"endDate" validate:"required"`
}
