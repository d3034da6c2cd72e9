package service

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/escola-habilidade/scheduling-api/internal/dto"
	"github.com/escola-habilidade/scheduling-api/internal/models"
	appErrors "github.com/escola-habilidade/scheduling-api/pkg/errors"
)

type availabilityRepository interface {
	ListActiveByTeacher(ctx context.Context, teacherID string) ([]models.TeacherAvailability, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]models.TeacherAvailability, error)
	FindByID(ctx context.Context, id string) (*models.TeacherAvailability, error)
	FindOverlapping(ctx context.Context, teacherID string, dayOfWeek int, startTime, endTime, excludeID string) ([]models.TeacherAvailability, error)
	Create(ctx context.Context, slot *models.TeacherAvailability) error
	Update(ctx context.Context, slot *models.TeacherAvailability) error
	Deactivate(ctx context.Context, id string) error
}

var timeOfDayPattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// AvailabilityService manages recurring weekly availability slots.
type AvailabilityService struct {
	repo      availabilityRepository
	teachers  teacherRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAvailabilityService constructs an AvailabilityService.
func NewAvailabilityService(repo availabilityRepository, teachers teacherRepository, validate *validator.Validate, logger *zap.Logger) *AvailabilityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{repo: repo, teachers: teachers, validator: validate, logger: logger}
}

// ListByTeacher returns all slots registered for a teacher.
func (s *AvailabilityService) ListByTeacher(ctx context.Context, teacherID string) ([]models.TeacherAvailability, error) {
	if _, err := s.teachers.FindByID(ctx, teacherID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	slots, err := s.repo.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list availability")
	}
	return slots, nil
}

// Create registers a new availability slot after overlap validation.
func (s *AvailabilityService) Create(ctx context.Context, teacherID string, req dto.CreateAvailabilityRequest) (*models.TeacherAvailability, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability payload")
	}
	if err := validateTimeWindow(req.StartTime, req.EndTime); err != nil {
		return nil, err
	}

	teacher, err := s.teachers.FindByID(ctx, teacherID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	if !teacher.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "teacher is inactive")
	}

	if err := s.ensureNoOverlap(ctx, teacherID, req.DayOfWeek, req.StartTime, req.EndTime, ""); err != nil {
		return nil, err
	}

	slot := &models.TeacherAvailability{
		TeacherID:   teacherID,
		DayOfWeek:   req.DayOfWeek,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		MaxStudents: req.MaxStudents,
		Active:      true,
	}
	if err := s.repo.Create(ctx, slot); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create availability")
	}
	return slot, nil
}

// Update modifies an existing slot, re-checking overlaps when times change.
func (s *AvailabilityService) Update(ctx context.Context, teacherID, slotID string, req dto.UpdateAvailabilityRequest) (*models.TeacherAvailability, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability payload")
	}

	slot, err := s.getOwnedSlot(ctx, teacherID, slotID)
	if err != nil {
		return nil, err
	}

	if req.StartTime != nil {
		slot.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		slot.EndTime = *req.EndTime
	}
	if err := validateTimeWindow(slot.StartTime, slot.EndTime); err != nil {
		return nil, err
	}
	if req.MaxStudents != nil {
		slot.MaxStudents = *req.MaxStudents
	}
	if req.Active != nil {
		slot.Active = *req.Active
	}

	if slot.Active {
		if err := s.ensureNoOverlap(ctx, teacherID, slot.DayOfWeek, slot.StartTime, slot.EndTime, slot.ID); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Update(ctx, slot); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update availability")
	}
	return slot, nil
}

// Deactivate marks a slot inactive. Slots are never removed so past bookings
// keep their reference.
func (s *AvailabilityService) Deactivate(ctx context.Context, teacherID, slotID string) error {
	if _, err := s.getOwnedSlot(ctx, teacherID, slotID); err != nil {
		return err
	}
	if err := s.repo.Deactivate(ctx, slotID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate availability")
	}
	return nil
}

func (s *AvailabilityService) getOwnedSlot(ctx context.Context, teacherID, slotID string) (*models.TeacherAvailability, error) {
	slot, err := s.repo.FindByID(ctx, slotID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "availability slot not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability")
	}
	if slot.TeacherID != teacherID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "availability slot not found")
	}
	return slot, nil
}

func (s *AvailabilityService) ensureNoOverlap(ctx context.Context, teacherID string, dayOfWeek int, startTime, endTime, excludeID string) error {
	overlapping, err := s.repo.FindOverlapping(ctx, teacherID, dayOfWeek, startTime, endTime, excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check availability overlap")
	}
	if len(overlapping) > 0 {
		existing := overlapping[0]
		return appErrors.Clone(appErrors.ErrConflict,
			fmt.Sprintf("overlaps existing slot %s (%s-%s)", existing.ID, existing.StartTime, existing.EndTime))
	}
	return nil
}

func validateTimeWindow(startTime, endTime string) error {
	if !timeOfDayPattern.MatchString(startTime) || !timeOfDayPattern.MatchString(endTime) {
		return appErrors.Clone(appErrors.ErrValidation, "times must use the HH:MM 24-hour format")
	}
	if startTime >= endTime {
		return appErrors.Clone(appErrors.ErrValidation, "startTime must be before endTime")
	}
	return nil
}
