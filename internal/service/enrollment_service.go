package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/escola-habilidade/scheduling-api/internal/dto"
	"github.com/escola-habilidade/scheduling-api/internal/models"
	"github.com/escola-habilidade/scheduling-api/internal/repository"
	"github.com/escola-habilidade/scheduling-api/pkg/dateutil"
	appErrors "github.com/escola-habilidade/scheduling-api/pkg/errors"
)

type enrollmentRepository interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
	ExistsActive(ctx context.Context, studentID, courseID string) (bool, error)
	CreateWithSchedules(ctx context.Context, enrollment *models.Enrollment, slotIDs []string, schedules []models.StudentSchedule) error
	UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus) error
}

type schedulePlanner interface {
	PlanForPattern(ctx context.Context, start time.Time, courseHours float64, schedules []models.StudentSchedule, excludeHolidays bool) (*dto.CalculateEndDateResponse, error)
}

// EnrollmentService handles the admin enrollment workflow. Slot capacity is
// enforced inside the repository transaction, not here, so concurrent
// requests for the last seat cannot both succeed.
type EnrollmentService struct {
	repo         enrollmentRepository
	availability availabilityRepository
	teachers     teacherRepository
	courses      courseRepository
	users        authUserRepository
	planner      schedulePlanner
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewEnrollmentService constructs an EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, availability availabilityRepository, teachers teacherRepository, courses courseRepository, users authUserRepository, planner schedulePlanner, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		repo:         repo,
		availability: availability,
		teachers:     teachers,
		courses:      courses,
		users:        users,
		planner:      planner,
		validator:    validate,
		logger:       logger,
	}
}

// List returns enrollments plus pagination data.
func (s *EnrollmentService) List(ctx context.Context, query dto.EnrollmentQuery) ([]models.EnrollmentDetail, *models.Pagination, error) {
	filter := models.EnrollmentFilter{
		StudentID: query.StudentID,
		CourseID:  query.CourseID,
		TeacherID: query.TeacherID,
		Status:    query.Status,
		Search:    query.Search,
		Page:      query.Page,
		PageSize:  query.PageSize,
	}
	enrollments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return enrollments, pagination, nil
}

// Get returns an enrollment with its schedules.
func (s *EnrollmentService) Get(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	return detail, nil
}

// Create validates the request, resolves each requested weekly slot against
// the teacher's availability, and persists enrollment plus schedules in one
// transaction.
func (s *EnrollmentService) Create(ctx context.Context, req dto.CreateEnrollmentRequest) (*models.EnrollmentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}
	start, err := dateutil.ParseDate(req.StartDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid startDate")
	}
	if req.Modality == models.ModalityInPerson && len(req.Schedules) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "in-person enrollments require at least one schedule entry")
	}

	student, err := s.users.FindByID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student.Role != models.RoleStudent || !student.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "user is not an active student")
	}

	course, err := s.courses.FindByID(ctx, req.CourseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if !course.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "course is inactive")
	}

	duplicate, err := s.repo.ExistsActive(ctx, req.StudentID, req.CourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing enrollment")
	}
	if duplicate {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student already has an active enrollment in this course")
	}

	schedules, slotIDs, err := s.resolveSchedules(ctx, req.Schedules)
	if err != nil {
		return nil, err
	}

	enrollment := &models.Enrollment{
		StudentID: req.StudentID,
		CourseID:  req.CourseID,
		StartDate: dateutil.FormatDate(start),
		Modality:  req.Modality,
		Status:    models.EnrollmentActive,
	}

	if course.DurationHours > 0 && len(schedules) > 0 {
		plan, err := s.planner.PlanForPattern(ctx, start, course.DurationHours, schedules, true)
		if err != nil {
			return nil, err
		}
		enrollment.EndDate = &plan.EndDate
	}

	if err := s.repo.CreateWithSchedules(ctx, enrollment, slotIDs, schedules); err != nil {
		if errors.Is(err, repository.ErrSlotFull) {
			return nil, appErrors.Clone(appErrors.ErrCapacityExceeded, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}

	return s.Get(ctx, enrollment.ID)
}

// Cancel marks an enrollment cancelled, releasing its weekly seats.
func (s *EnrollmentService) Cancel(ctx context.Context, id string) error {
	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if enrollment.Status == models.EnrollmentCancelled {
		return appErrors.Clone(appErrors.ErrConflict, "enrollment is already cancelled")
	}
	if err := s.repo.UpdateStatus(ctx, id, models.EnrollmentCancelled); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel enrollment")
	}
	return nil
}

// resolveSchedules converts wire entries (Monday-based 1-7) into stored rows
// (Sunday-based 0-6) and matches each against an active availability slot.
// Each slot may be claimed at most once per enrollment.
func (s *EnrollmentService) resolveSchedules(ctx context.Context, entries []dto.EnrollmentScheduleEntry) ([]models.StudentSchedule, []string, error) {
	if len(entries) == 0 {
		return nil, nil, nil
	}

	schedules := make([]models.StudentSchedule, 0, len(entries))
	slotIDs := make([]string, 0, len(entries))
	claimed := make(map[string]bool, len(entries))
	slotCache := make(map[string][]models.TeacherAvailability)

	for _, entry := range entries {
		if err := validateTimeWindow(entry.StartTime, entry.EndTime); err != nil {
			return nil, nil, err
		}
		dayOfWeek := entry.DayOfWeek % 7

		slots, ok := slotCache[entry.TeacherID]
		if !ok {
			teacher, err := s.teachers.FindByID(ctx, entry.TeacherID)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return nil, nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("teacher %s not found", entry.TeacherID))
				}
				return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
			}
			if !teacher.Active {
				return nil, nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("teacher %s is inactive", entry.TeacherID))
			}
			slots, err = s.availability.ListActiveByTeacher(ctx, entry.TeacherID)
			if err != nil {
				return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher availability")
			}
			slotCache[entry.TeacherID] = slots
		}

		matched := ""
		for _, slot := range slots {
			if slot.DayOfWeek == dayOfWeek && slot.StartTime <= entry.StartTime && entry.EndTime <= slot.EndTime {
				matched = slot.ID
				break
			}
		}
		if matched == "" {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation,
				fmt.Sprintf("no availability slot covers %s-%s on weekday %d for teacher %s", entry.StartTime, entry.EndTime, entry.DayOfWeek, entry.TeacherID))
		}
		if claimed[matched] {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation,
				fmt.Sprintf("duplicate schedule entry: slot %s is already claimed by this enrollment", matched))
		}
		claimed[matched] = true

		slotIDs = append(slotIDs, matched)
		schedules = append(schedules, models.StudentSchedule{
			SlotID:    matched,
			TeacherID: entry.TeacherID,
			DayOfWeek: dayOfWeek,
			StartTime: entry.StartTime,
			EndTime:   entry.EndTime,
		})
	}
	return schedules, slotIDs, nil
}
