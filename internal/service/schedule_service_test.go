package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/escola-habilidade/scheduling-api/internal/dto"
	"github.com/escola-habilidade/scheduling-api/internal/models"
	"github.com/escola-habilidade/scheduling-api/pkg/dateutil"
	appErrors "github.com/escola-habilidade/scheduling-api/pkg/errors"
)

const testTeacherID = "2fd1f6de-9f93-4a5a-9f6c-40ad2f9f0a11"

type availabilityStub struct {
	slots       []models.TeacherAvailability
	overlapping []models.TeacherAvailability
	created     *models.TeacherAvailability
	updated     *models.TeacherAvailability
	deactivated []string
	err         error
}

func (a *availabilityStub) ListActiveByTeacher(ctx context.Context, teacherID string) ([]models.TeacherAvailability, error) {
	if a.err != nil {
		return nil, a.err
	}
	var active []models.TeacherAvailability
	for _, slot := range a.slots {
		if slot.TeacherID == teacherID && slot.Active {
			active = append(active, slot)
		}
	}
	return active, nil
}

func (a *availabilityStub) ListByTeacher(ctx context.Context, teacherID string) ([]models.TeacherAvailability, error) {
	if a.err != nil {
		return nil, a.err
	}
	var out []models.TeacherAvailability
	for _, slot := range a.slots {
		if slot.TeacherID == teacherID {
			out = append(out, slot)
		}
	}
	return out, nil
}

func (a *availabilityStub) FindByID(ctx context.Context, id string) (*models.TeacherAvailability, error) {
	for i := range a.slots {
		if a.slots[i].ID == id {
			slot := a.slots[i]
			return &slot, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (a *availabilityStub) FindOverlapping(ctx context.Context, teacherID string, dayOfWeek int, startTime, endTime, excludeID string) ([]models.TeacherAvailability, error) {
	return a.overlapping, nil
}

func (a *availabilityStub) Create(ctx context.Context, slot *models.TeacherAvailability) error {
	slot.ID = "slot-created"
	a.created = slot
	a.slots = append(a.slots, *slot)
	return nil
}

func (a *availabilityStub) Update(ctx context.Context, slot *models.TeacherAvailability) error {
	a.updated = slot
	return nil
}

func (a *availabilityStub) Deactivate(ctx context.Context, id string) error {
	a.deactivated = append(a.deactivated, id)
	return nil
}

type holidayCalendarStub struct {
	set      dateutil.HolidaySet
	holidays []models.Holiday
	err      error
}

func (h *holidayCalendarStub) HolidaySet(ctx context.Context, from, to time.Time) (dateutil.HolidaySet, []models.Holiday, error) {
	if h.err != nil {
		return nil, nil, h.err
	}
	return h.set, h.holidays, nil
}

func tuesdayEveningSlot() models.TeacherAvailability {
	return models.TeacherAvailability{
		ID:          "slot-tue",
		TeacherID:   testTeacherID,
		DayOfWeek:   2,
		StartTime:   "19:00",
		EndTime:     "21:00",
		MaxStudents: 5,
		Active:      true,
	}
}

func TestScheduleServiceCalculateEndDate(t *testing.T) {
	availability := &availabilityStub{slots: []models.TeacherAvailability{tuesdayEveningSlot()}}
	svc := NewScheduleService(availability, &holidayCalendarStub{}, 0, validator.New(), zap.NewNop())

	// 2025-01-07 is a Tuesday, so the start date itself hosts the first class.
	resp, err := svc.CalculateEndDate(context.Background(), dto.CalculateEndDateRequest{
		StartDate:     "2025-01-07",
		CourseHours:   8,
		WeeklyClasses: 1,
		TeacherID:     testTeacherID,
	})
	require.NoError(t, err)
	require.Len(t, resp.Schedule, 4)
	assert.Equal(t, "2025-01-07", resp.Schedule[0].Date)
	assert.Equal(t, "2025-01-28", resp.EndDate)
	assert.Equal(t, 4, resp.ActualClassDays)
	assert.Equal(t, 4, resp.TotalWeeks)
	assert.Empty(t, resp.HolidaysExcluded)
	assert.Equal(t, 120, resp.Schedule[0].DurationMinutes)
}

func TestScheduleServiceHolidayExtendsCourse(t *testing.T) {
	availability := &availabilityStub{slots: []models.TeacherAvailability{tuesdayEveningSlot()}}
	holidays := &holidayCalendarStub{set: dateutil.HolidaySet{}}
	holidays.set.Add(time.Date(2025, 1, 14, 0, 0, 0, 0, time.UTC))
	svc := NewScheduleService(availability, holidays, 0, validator.New(), zap.NewNop())

	resp, err := svc.CalculateEndDate(context.Background(), dto.CalculateEndDateRequest{
		StartDate:       "2025-01-07",
		CourseHours:     8,
		WeeklyClasses:   1,
		TeacherID:       testTeacherID,
		ExcludeHolidays: true,
	})
	require.NoError(t, err)
	// The skipped session is made up a week later; total hours are preserved
	// and the reported weeks cover the stretched calendar span.
	require.Len(t, resp.Schedule, 4)
	assert.Equal(t, "2025-02-04", resp.EndDate)
	assert.Equal(t, 5, resp.TotalWeeks)
	assert.Equal(t, []string{"2025-01-14"}, resp.HolidaysExcluded)
	for _, session := range resp.Schedule {
		assert.NotEqual(t, "2025-01-14", session.Date)
	}
}

func TestScheduleServiceNoAvailability(t *testing.T) {
	svc := NewScheduleService(&availabilityStub{}, &holidayCalendarStub{}, 0, validator.New(), zap.NewNop())

	_, err := svc.CalculateEndDate(context.Background(), dto.CalculateEndDateRequest{
		StartDate:     "2025-01-07",
		CourseHours:   8,
		WeeklyClasses: 1,
		TeacherID:     testTeacherID,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNoAvailability.Code, appErrors.FromError(err).Code)
}

func TestScheduleServiceInsufficientWeekdays(t *testing.T) {
	availability := &availabilityStub{slots: []models.TeacherAvailability{tuesdayEveningSlot()}}
	svc := NewScheduleService(availability, &holidayCalendarStub{}, 0, validator.New(), zap.NewNop())

	_, err := svc.CalculateEndDate(context.Background(), dto.CalculateEndDateRequest{
		StartDate:     "2025-01-07",
		CourseHours:   8,
		WeeklyClasses: 3,
		TeacherID:     testTeacherID,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInsufficientAvailability.Code, appErrors.FromError(err).Code)
}

func TestScheduleServiceCourseDoesNotFit(t *testing.T) {
	availability := &availabilityStub{slots: []models.TeacherAvailability{tuesdayEveningSlot()}}
	svc := NewScheduleService(availability, &holidayCalendarStub{}, 2, validator.New(), zap.NewNop())

	_, err := svc.CalculateEndDate(context.Background(), dto.CalculateEndDateRequest{
		StartDate:     "2025-01-07",
		CourseHours:   40,
		WeeklyClasses: 1,
		TeacherID:     testTeacherID,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestScheduleServiceHolidayLookupFailurePropagates(t *testing.T) {
	availability := &availabilityStub{slots: []models.TeacherAvailability{tuesdayEveningSlot()}}
	holidays := &holidayCalendarStub{err: appErrors.Clone(appErrors.ErrUpstream, "")}
	svc := NewScheduleService(availability, holidays, 0, validator.New(), zap.NewNop())

	_, err := svc.CalculateEndDate(context.Background(), dto.CalculateEndDateRequest{
		StartDate:       "2025-01-07",
		CourseHours:     8,
		WeeklyClasses:   1,
		TeacherID:       testTeacherID,
		ExcludeHolidays: true,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUpstream.Code, appErrors.FromError(err).Code)
}

func TestScheduleServicePlanForPattern(t *testing.T) {
	svc := NewScheduleService(&availabilityStub{}, &holidayCalendarStub{}, 0, validator.New(), zap.NewNop())

	start := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC) // Monday
	schedules := []models.StudentSchedule{
		{TeacherID: testTeacherID, DayOfWeek: 3, StartTime: "10:00", EndTime: "12:00"},
		{TeacherID: testTeacherID, DayOfWeek: 1, StartTime: "10:00", EndTime: "12:00"},
	}
	plan, err := svc.PlanForPattern(context.Background(), start, 8, schedules, false)
	require.NoError(t, err)
	require.Len(t, plan.Schedule, 4)
	assert.Equal(t, "2025-01-06", plan.Schedule[0].Date)
	assert.Equal(t, "2025-01-15", plan.EndDate)
	assert.Equal(t, 2, plan.TotalWeeks)
}

func TestScheduleServicePlanForPatternHolidayListedOnce(t *testing.T) {
	holidays := &holidayCalendarStub{set: dateutil.HolidaySet{}}
	holidays.set.Add(time.Date(2025, 1, 13, 0, 0, 0, 0, time.UTC)) // Monday
	svc := NewScheduleService(&availabilityStub{}, holidays, 0, validator.New(), zap.NewNop())

	start := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC) // Monday
	// Two Monday slots: a holiday Monday skips both, but the date must
	// appear only once in the exclusion list.
	schedules := []models.StudentSchedule{
		{TeacherID: testTeacherID, DayOfWeek: 1, StartTime: "09:00", EndTime: "11:00"},
		{TeacherID: testTeacherID, DayOfWeek: 1, StartTime: "14:00", EndTime: "16:00"},
	}
	plan, err := svc.PlanForPattern(context.Background(), start, 12, schedules, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-01-13"}, plan.HolidaysExcluded)
	for _, session := range plan.Schedule {
		assert.NotEqual(t, "2025-01-13", session.Date)
	}
}
