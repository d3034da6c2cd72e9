package models

import "time"

// ClassSession is one dated class meeting inside a calculated course schedule.
type ClassSession struct {
	Date      string `json:"date"`
	DayOfWeek int    `json:"day_of_week"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	TeacherID string `json:"teacher_id"`
	Holiday   string `json:"holiday,omitempty"`
	Skipped   bool   `json:"skipped"`
}

// CourseSchedule is the result of walking a course forward week by week,
// skipping holidays, until every required class has a date.
type CourseSchedule struct {
	CourseID        string         `json:"course_id"`
	StartDate       string         `json:"start_date"`
	EndDate         string         `json:"end_date"`
	TotalWeeks      int            `json:"total_weeks"`
	TotalClasses    int            `json:"total_classes"`
	SkippedHolidays int            `json:"skipped_holidays"`
	Sessions        []ClassSession `json:"sessions"`
}

// StudentSchedule is a persisted weekly booking inside an availability slot.
// The booked window may be narrower than the slot, so capacity is tracked by
// SlotID rather than by the booked times.
type StudentSchedule struct {
	ID           string    `db:"id" json:"id"`
	EnrollmentID string    `db:"enrollment_id" json:"enrollment_id"`
	SlotID       string    `db:"slot_id" json:"slot_id"`
	TeacherID    string    `db:"teacher_id" json:"teacher_id"`
	DayOfWeek    int       `db:"day_of_week" json:"day_of_week"`
	StartTime    string    `db:"start_time" json:"start_time"`
	EndTime      string    `db:"end_time" json:"end_time"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// BookedCount pairs an availability slot with the number of active
// enrollments currently occupying it.
type BookedCount struct {
	SlotID string `db:"slot_id" json:"slot_id"`
	Count  int    `db:"count" json:"count"`
}
