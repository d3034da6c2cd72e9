package models

import "time"

// HolidayScope distinguishes national from regional observances.
type HolidayScope string

const (
	HolidayScopeNational HolidayScope = "national"
	HolidayScopeRegional HolidayScope = "regional"
)

// Holiday represents a non-working calendar date.
type Holiday struct {
	ID        string       `db:"id" json:"id"`
	Date      time.Time    `db:"date" json:"date"`
	Name      string       `db:"name" json:"name"`
	Scope     HolidayScope `db:"scope" json:"scope"`
	Year      int          `db:"year" json:"year"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt time.Time    `db:"updated_at" json:"updated_at"`
}

// HolidayFilter narrows down holiday listings.
type HolidayFilter struct {
	Year      int
	StartDate *time.Time
	EndDate   *time.Time
	Scope     HolidayScope
	Page      int
	PageSize  int
}
