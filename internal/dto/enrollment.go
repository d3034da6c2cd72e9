package dto

import "github.com/escola-habilidade/scheduling-api/internal/models"

// EnrollmentScheduleEntry is a requested weekly slot. DayOfWeek follows the
// admin wire convention 1-7 with Monday as 1; it is converted to the stored
// Sunday-based 0-6 form at the service boundary.
type EnrollmentScheduleEntry struct {
	TeacherID string `json:"teacherId" validate:"required,uuid"`
	DayOfWeek int    `json:"dayOfWeek" validate:"required,min=1,max=7"`
	StartTime string `json:"startTime" validate:"required"`
	EndTime   string `json:"endTime" validate:"required"`
}

// CreateEnrollmentRequest captures POST /admin/enrollments payload.
// In-person enrollments must carry at least one schedule entry.
type CreateEnrollmentRequest struct {
	StudentID string                    `json:"studentId" validate:"required,uuid"`
	CourseID  string                    `json:"courseId" validate:"required,uuid"`
	StartDate string                    `json:"startDate" validate:"required"`
	Modality  models.EnrollmentModality `json:"modality" validate:"required,oneof=online in-person"`
	Schedules []EnrollmentScheduleEntry `json:"schedules" validate:"omitempty,dive"`
}

// EnrollmentQuery filters enrollment listings.
type EnrollmentQuery struct {
	StudentID string `form:"studentId"`
	CourseID  string `form:"courseId"`
	TeacherID string `form:"teacherId"`
	Status    string `form:"status"`
	Search    string `form:"search"`
	Page      int    `form:"page"`
	PageSize  int    `form:"pageSize"`
}
