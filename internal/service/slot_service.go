package service

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/escola-habilidade/scheduling-api/internal/models"
	"github.com/escola-habilidade/scheduling-api/pkg/dateutil"
	appErrors "github.com/escola-habilidade/scheduling-api/pkg/errors"
)

type bookingCounter interface {
	BookedCounts(ctx context.Context, teacherID string) ([]models.BookedCount, error)
}

// SlotService expands recurring availability into dated slots with remaining
// capacity. It is read-only: capacity is enforced at enrollment time, this
// view only reflects current bookings.
type SlotService struct {
	availability availabilityRepository
	teachers     teacherRepository
	bookings     bookingCounter
	holidays     holidayCalendar
	maxRangeDays int
	logger       *zap.Logger
}

// NewSlotService constructs a SlotService.
func NewSlotService(availability availabilityRepository, teachers teacherRepository, bookings bookingCounter, holidays holidayCalendar, maxRangeDays int, logger *zap.Logger) *SlotService {
	if maxRangeDays <= 0 {
		maxRangeDays = 92
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SlotService{availability: availability, teachers: teachers, bookings: bookings, holidays: holidays, maxRangeDays: maxRangeDays, logger: logger}
}

// ListAvailableSlots resolves a teacher's recurring slots over [from, to].
// Holiday-conflicting dates are still emitted, flagged, so callers can render
// them; the enrollment path refuses to book them.
func (s *SlotService) ListAvailableSlots(ctx context.Context, teacherID, fromDate, toDate string) ([]models.AvailableSlot, error) {
	from, err := dateutil.ParseDate(fromDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid startDate")
	}
	to, err := dateutil.ParseDate(toDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid endDate")
	}
	if from.After(to) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "startDate must not be after endDate")
	}
	if days := int(to.Sub(from).Hours()/24) + 1; days > s.maxRangeDays {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("date range exceeds %d days", s.maxRangeDays))
	}

	if _, err := s.teachers.FindByID(ctx, teacherID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}

	slots, err := s.availability.ListActiveByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher availability")
	}
	if len(slots) == 0 {
		return []models.AvailableSlot{}, nil
	}

	counts, err := s.bookings.BookedCounts(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load slot bookings")
	}
	// Counts are keyed by slot ID: a booking narrower than the slot's window
	// still occupies a seat of that slot.
	booked := make(map[string]int, len(counts))
	for _, c := range counts {
		booked[c.SlotID] = c.Count
	}

	holidays, _, err := s.holidays.HolidaySet(ctx, from, to)
	if err != nil {
		return nil, err
	}

	byWeekday := make(map[int][]models.TeacherAvailability, 7)
	for _, slot := range slots {
		byWeekday[slot.DayOfWeek] = append(byWeekday[slot.DayOfWeek], slot)
	}

	var resolved []models.AvailableSlot
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		for _, slot := range byWeekday[int(day.Weekday())] {
			spots := slot.MaxStudents - booked[slot.ID]
			if spots < 0 {
				spots = 0
			}
			resolved = append(resolved, models.AvailableSlot{
				SlotID:               slot.ID,
				TeacherID:            teacherID,
				Date:                 dateutil.FormatDate(day),
				DayOfWeek:            slot.DayOfWeek,
				StartTime:            slot.StartTime,
				EndTime:              slot.EndTime,
				MaxStudents:          slot.MaxStudents,
				AvailableSpots:       spots,
				ConflictsWithHoliday: holidays.Contains(day),
			})
		}
	}
	if resolved == nil {
		resolved = []models.AvailableSlot{}
	}
	return resolved, nil
}
