package models

import "time"

// EnrollmentStatus is the lifecycle state of an enrollment.
type EnrollmentStatus string

const (
	EnrollmentActive    EnrollmentStatus = "active"
	EnrollmentCompleted EnrollmentStatus = "completed"
	EnrollmentCancelled EnrollmentStatus = "cancelled"
)

// EnrollmentModality distinguishes remote from on-site students.
type EnrollmentModality string

const (
	ModalityOnline   EnrollmentModality = "online"
	ModalityInPerson EnrollmentModality = "in-person"
)

// Enrollment ties a student to a course with a start date and a computed
// end date. Weekly slots live in student_schedules.
type Enrollment struct {
	ID        string             `db:"id" json:"id"`
	StudentID string             `db:"student_id" json:"student_id"`
	CourseID  string             `db:"course_id" json:"course_id"`
	StartDate string             `db:"start_date" json:"start_date"`
	EndDate   *string            `db:"end_date" json:"end_date,omitempty"`
	Modality  EnrollmentModality `db:"modality" json:"modality"`
	Status    EnrollmentStatus   `db:"status" json:"status"`
	CreatedAt time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt time.Time          `db:"updated_at" json:"updated_at"`
}

// EnrollmentDetail is an enrollment joined with its student, course, and
// weekly slots.
type EnrollmentDetail struct {
	Enrollment
	StudentName  string            `db:"student_name" json:"student_name"`
	StudentEmail string            `db:"student_email" json:"student_email"`
	CourseTitle  string            `db:"course_title" json:"course_title"`
	Schedules    []StudentSchedule `json:"schedules"`
}

// EnrollmentFilter narrows enrollment listings.
type EnrollmentFilter struct {
	StudentID string
	CourseID  string
	TeacherID string
	Status    string
	Search    string
	Page      int
	PageSize  int
}
