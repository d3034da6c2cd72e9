package models

import "time"

// TeacherAvailability represents a recurring weekly time window in which a
// teacher can host classes. Slots are deactivated rather than deleted so that
// schedules created against them keep their history.
type TeacherAvailability struct {
	ID          string    `db:"id" json:"id"`
	TeacherID   string    `db:"teacher_id" json:"teacher_id"`
	DayOfWeek   int       `db:"day_of_week" json:"day_of_week"`
	StartTime   string    `db:"start_time" json:"start_time"`
	EndTime     string    `db:"end_time" json:"end_time"`
	MaxStudents int       `db:"max_students" json:"max_students"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// AvailableSlot is a dated occurrence of a recurring availability window.
// It is derived on demand and never persisted.
type AvailableSlot struct {
	SlotID               string `json:"slot_id"`
	TeacherID            string `json:"teacher_id"`
	Date                 string `json:"date"`
	DayOfWeek            int    `json:"day_of_week"`
	StartTime            string `json:"start_time"`
	EndTime              string `json:"end_time"`
	MaxStudents          int    `json:"max_students"`
	AvailableSpots       int    `json:"available_spots"`
	ConflictsWithHoliday bool   `json:"conflicts_with_holiday"`
}

// AvailabilityConflictError is returned when a new slot overlaps an existing
// active slot for the same teacher and weekday.
type AvailabilityConflictError struct {
	Message  string              `json:"message"`
	Existing TeacherAvailability `json:"existing"`
}

// Error implements the error interface for conflict errors.
func (e *AvailabilityConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}
