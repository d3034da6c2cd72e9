package models

import "time"

// Course represents an offered course.
type Course struct {
	ID            string    `db:"id" json:"id"`
	Title         string    `db:"title" json:"title"`
	Slug          string    `db:"slug" json:"slug"`
	DurationHours float64   `db:"duration_hours" json:"duration_hours"`
	WeeklyClasses int       `db:"weekly_classes" json:"weekly_classes"`
	Active        bool      `db:"active" json:"active"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// CourseFilter captures filtering options for listing courses.
type CourseFilter struct {
	Search   string
	Active   *bool
	Page     int
	PageSize int
}
