package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/escola-habilidade/scheduling-api/internal/models"
	"github.com/escola-habilidade/scheduling-api/pkg/dateutil"
	appErrors "github.com/escola-habilidade/scheduling-api/pkg/errors"
)

type teacherRepoStub struct {
	teachers    map[string]*models.Teacher
	emails      map[string]bool
	created     *models.Teacher
	updated     *models.Teacher
	deactivated []string
}

func newTeacherRepoStub(teachers ...*models.Teacher) *teacherRepoStub {
	stub := &teacherRepoStub{teachers: map[string]*models.Teacher{}, emails: map[string]bool{}}
	for _, teacher := range teachers {
		stub.teachers[teacher.ID] = teacher
	}
	return stub
}

func (r *teacherRepoStub) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error) {
	var out []models.Teacher
	for _, teacher := range r.teachers {
		out = append(out, *teacher)
	}
	return out, len(out), nil
}

func (r *teacherRepoStub) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	if teacher, ok := r.teachers[id]; ok {
		clone := *teacher
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (r *teacherRepoStub) FindByUserID(ctx context.Context, userID string) (*models.Teacher, error) {
	for _, teacher := range r.teachers {
		if teacher.UserID != nil && *teacher.UserID == userID {
			clone := *teacher
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *teacherRepoStub) ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error) {
	return r.emails[email], nil
}

func (r *teacherRepoStub) Create(ctx context.Context, teacher *models.Teacher) error {
	if teacher.ID == "" {
		teacher.ID = "teacher-created"
	}
	r.teachers[teacher.ID] = teacher
	r.created = teacher
	return nil
}

func (r *teacherRepoStub) Update(ctx context.Context, teacher *models.Teacher) error {
	r.teachers[teacher.ID] = teacher
	r.updated = teacher
	return nil
}

func (r *teacherRepoStub) Deactivate(ctx context.Context, id string) error {
	r.deactivated = append(r.deactivated, id)
	if teacher, ok := r.teachers[id]; ok {
		teacher.Active = false
	}
	return nil
}

type bookingCounterStub struct {
	counts []models.BookedCount
	err    error
}

func (b *bookingCounterStub) BookedCounts(ctx context.Context, teacherID string) ([]models.BookedCount, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.counts, nil
}

func activeTestTeacher() *models.Teacher {
	return &models.Teacher{ID: testTeacherID, Email: "ana@escolahabilidade.com.br", FullName: "Ana Souza", Active: true}
}

func newSlotServiceForTest(availability *availabilityStub, bookings *bookingCounterStub, holidays *holidayCalendarStub) *SlotService {
	return NewSlotService(availability, newTeacherRepoStub(activeTestTeacher()), bookings, holidays, 0, zap.NewNop())
}

func TestSlotServiceResolvesSpots(t *testing.T) {
	availability := &availabilityStub{slots: []models.TeacherAvailability{
		tuesdayEveningSlot(),
		{ID: "slot-wed", TeacherID: testTeacherID, DayOfWeek: 3, StartTime: "10:00", EndTime: "12:00", MaxStudents: 3, Active: true},
	}}
	bookings := &bookingCounterStub{counts: []models.BookedCount{
		{SlotID: "slot-tue", Count: 5},
		{SlotID: "slot-wed", Count: 1},
	}}
	svc := newSlotServiceForTest(availability, bookings, &holidayCalendarStub{})

	// Mon 2025-01-06 through Sun 2025-01-12, one Tuesday and one Wednesday.
	slots, err := svc.ListAvailableSlots(context.Background(), testTeacherID, "2025-01-06", "2025-01-12")
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, "2025-01-07", slots[0].Date)
	assert.Equal(t, 0, slots[0].AvailableSpots)
	assert.Equal(t, "2025-01-08", slots[1].Date)
	assert.Equal(t, 2, slots[1].AvailableSpots)
}

func TestSlotServiceFlagsHolidayConflicts(t *testing.T) {
	availability := &availabilityStub{slots: []models.TeacherAvailability{tuesdayEveningSlot()}}
	holidays := &holidayCalendarStub{set: dateutil.HolidaySet{}}
	holidays.set.Add(time.Date(2025, 1, 7, 0, 0, 0, 0, time.UTC))
	svc := newSlotServiceForTest(availability, &bookingCounterStub{}, holidays)

	slots, err := svc.ListAvailableSlots(context.Background(), testTeacherID, "2025-01-06", "2025-01-12")
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.True(t, slots[0].ConflictsWithHoliday)
	assert.Equal(t, 5, slots[0].AvailableSpots)
}

func TestSlotServiceRejectsOversizedRange(t *testing.T) {
	svc := newSlotServiceForTest(&availabilityStub{}, &bookingCounterStub{}, &holidayCalendarStub{})

	_, err := svc.ListAvailableSlots(context.Background(), testTeacherID, "2025-01-01", "2025-06-01")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSlotServiceUnknownTeacher(t *testing.T) {
	svc := newSlotServiceForTest(&availabilityStub{}, &bookingCounterStub{}, &holidayCalendarStub{})

	_, err := svc.ListAvailableSlots(context.Background(), "b4f5be37-7a46-4b5e-9ad9-000000000000", "2025-01-06", "2025-01-12")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestSlotServiceEmptyAvailability(t *testing.T) {
	svc := newSlotServiceForTest(&availabilityStub{}, &bookingCounterStub{}, &holidayCalendarStub{})

	slots, err := svc.ListAvailableSlots(context.Background(), testTeacherID, "2025-01-06", "2025-01-12")
	require.NoError(t, err)
	assert.Empty(t, slots)
	assert.NotNil(t, slots)
}
