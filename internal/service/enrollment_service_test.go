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
	"github.com/escola-habilidade/scheduling-api/internal/repository"
	appErrors "github.com/escola-habilidade/scheduling-api/pkg/errors"
)

const (
	testStudentID = "7f0bb986-5a3d-4b5e-8e9a-7d6f55e5a111"
	testCourseID  = "9a0de0e4-3a3f-46bb-9c3e-1a2b3c4d5e6f"
)

type enrollmentRepoStub struct {
	details     map[string]*models.EnrollmentDetail
	enrollments map[string]*models.Enrollment
	active      map[string]bool
	createErr   error
	created     *models.Enrollment
	slotIDs     []string
	schedules   []models.StudentSchedule
	statuses    map[string]models.EnrollmentStatus
}

func newEnrollmentRepoStub() *enrollmentRepoStub {
	return &enrollmentRepoStub{
		details:     map[string]*models.EnrollmentDetail{},
		enrollments: map[string]*models.Enrollment{},
		active:      map[string]bool{},
		statuses:    map[string]models.EnrollmentStatus{},
	}
}

func (r *enrollmentRepoStub) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	var out []models.EnrollmentDetail
	for _, detail := range r.details {
		out = append(out, *detail)
	}
	return out, len(out), nil
}

func (r *enrollmentRepoStub) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	if enrollment, ok := r.enrollments[id]; ok {
		clone := *enrollment
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (r *enrollmentRepoStub) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	if detail, ok := r.details[id]; ok {
		clone := *detail
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (r *enrollmentRepoStub) ExistsActive(ctx context.Context, studentID, courseID string) (bool, error) {
	return r.active[studentID+courseID], nil
}

func (r *enrollmentRepoStub) CreateWithSchedules(ctx context.Context, enrollment *models.Enrollment, slotIDs []string, schedules []models.StudentSchedule) error {
	if r.createErr != nil {
		return r.createErr
	}
	if enrollment.ID == "" {
		enrollment.ID = "enroll-created"
	}
	r.created = enrollment
	r.slotIDs = slotIDs
	r.schedules = schedules
	r.enrollments[enrollment.ID] = enrollment
	r.details[enrollment.ID] = &models.EnrollmentDetail{Enrollment: *enrollment, Schedules: schedules}
	return nil
}

func (r *enrollmentRepoStub) BookedCounts(ctx context.Context, teacherID string) ([]models.BookedCount, error) {
	bySlot := map[string]int{}
	for _, schedule := range r.schedules {
		if schedule.TeacherID == teacherID {
			bySlot[schedule.SlotID]++
		}
	}
	var counts []models.BookedCount
	for slotID, count := range bySlot {
		counts = append(counts, models.BookedCount{SlotID: slotID, Count: count})
	}
	return counts, nil
}

func (r *enrollmentRepoStub) UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus) error {
	r.statuses[id] = status
	if enrollment, ok := r.enrollments[id]; ok {
		enrollment.Status = status
	}
	return nil
}

type courseRepoStub struct {
	courses map[string]*models.Course
}

func (r *courseRepoStub) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	var out []models.Course
	for _, course := range r.courses {
		out = append(out, *course)
	}
	return out, len(out), nil
}

func (r *courseRepoStub) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if course, ok := r.courses[id]; ok {
		clone := *course
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (r *courseRepoStub) FindBySlug(ctx context.Context, slug string) (*models.Course, error) {
	for _, course := range r.courses {
		if course.Slug == slug {
			clone := *course
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

type plannerStub struct {
	endDate string
	called  bool
	err     error
}

func (p *plannerStub) PlanForPattern(ctx context.Context, start time.Time, courseHours float64, schedules []models.StudentSchedule, excludeHolidays bool) (*dto.CalculateEndDateResponse, error) {
	p.called = true
	if p.err != nil {
		return nil, p.err
	}
	return &dto.CalculateEndDateResponse{EndDate: p.endDate}, nil
}

type enrollmentFixture struct {
	svc          *EnrollmentService
	repo         *enrollmentRepoStub
	availability *availabilityStub
	planner      *plannerStub
}

func newEnrollmentFixture() *enrollmentFixture {
	repo := newEnrollmentRepoStub()
	availability := &availabilityStub{slots: []models.TeacherAvailability{
		// Sunday morning window, Sunday stored as weekday 0.
		{ID: "slot-sun", TeacherID: testTeacherID, DayOfWeek: 0, StartTime: "08:00", EndTime: "12:00", MaxStudents: 3, Active: true},
	}}
	courses := &courseRepoStub{courses: map[string]*models.Course{
		testCourseID: {ID: testCourseID, Title: "Informática Fundamental", Slug: "informatica", DurationHours: 8, WeeklyClasses: 1, Active: true},
	}}
	users := newUserRepoStub(&models.User{ID: testStudentID, Email: "aluno@example.com", FullName: "João Lima", Role: models.RoleStudent, Active: true})
	planner := &plannerStub{endDate: "2025-03-01"}
	svc := NewEnrollmentService(repo, availability, newTeacherRepoStub(activeTestTeacher()), courses, users, planner, validator.New(), zap.NewNop())
	return &enrollmentFixture{svc: svc, repo: repo, availability: availability, planner: planner}
}

func sundayEnrollmentRequest() dto.CreateEnrollmentRequest {
	return dto.CreateEnrollmentRequest{
		StudentID: testStudentID,
		CourseID:  testCourseID,
		StartDate: "2025-02-02",
		Modality:  models.ModalityInPerson,
		Schedules: []dto.EnrollmentScheduleEntry{
			// Wire convention: 7 is Sunday.
			{TeacherID: testTeacherID, DayOfWeek: 7, StartTime: "09:00", EndTime: "11:00"},
		},
	}
}

func TestEnrollmentServiceCreate(t *testing.T) {
	fx := newEnrollmentFixture()

	detail, err := fx.svc.Create(context.Background(), sundayEnrollmentRequest())
	require.NoError(t, err)
	require.NotNil(t, fx.repo.created)

	// Wire weekday 7 (Sunday) lands as stored weekday 0, and the matched
	// slot is recorded on the schedule row for capacity accounting.
	require.Len(t, fx.repo.schedules, 1)
	assert.Equal(t, 0, fx.repo.schedules[0].DayOfWeek)
	assert.Equal(t, "slot-sun", fx.repo.schedules[0].SlotID)
	assert.Equal(t, []string{"slot-sun"}, fx.repo.slotIDs)

	assert.True(t, fx.planner.called)
	require.NotNil(t, detail.EndDate)
	assert.Equal(t, "2025-03-01", *detail.EndDate)
	assert.Equal(t, models.EnrollmentActive, detail.Status)
}

func TestEnrollmentServiceCreateDuplicate(t *testing.T) {
	fx := newEnrollmentFixture()
	fx.repo.active[testStudentID+testCourseID] = true

	_, err := fx.svc.Create(context.Background(), sundayEnrollmentRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceInPersonRequiresSchedules(t *testing.T) {
	fx := newEnrollmentFixture()
	req := sundayEnrollmentRequest()
	req.Schedules = nil

	_, err := fx.svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceCreateNoCoveringSlot(t *testing.T) {
	fx := newEnrollmentFixture()
	req := sundayEnrollmentRequest()
	req.Schedules[0].StartTime = "13:00"
	req.Schedules[0].EndTime = "15:00"

	_, err := fx.svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceCreateRejectsDuplicateScheduleEntries(t *testing.T) {
	fx := newEnrollmentFixture()
	req := sundayEnrollmentRequest()
	req.Schedules = append(req.Schedules, req.Schedules[0])

	_, err := fx.svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Nil(t, fx.repo.created)
}

func TestEnrollmentServicePartialWindowBookingConsumesSeat(t *testing.T) {
	fx := newEnrollmentFixture()
	fx.availability.slots[0].MaxStudents = 1

	// Book 09:00-11:00 inside the slot's 08:00-12:00 Sunday window.
	_, err := fx.svc.Create(context.Background(), sundayEnrollmentRequest())
	require.NoError(t, err)

	slots := NewSlotService(fx.availability, newTeacherRepoStub(activeTestTeacher()), fx.repo, &holidayCalendarStub{}, 0, zap.NewNop())
	// 2025-02-02 is a Sunday. The narrower booking still occupies the
	// slot's only seat.
	resolved, err := slots.ListAvailableSlots(context.Background(), testTeacherID, "2025-02-02", "2025-02-02")
	require.NoError(t, err)
	require.Len(t, resolved, 1)
	assert.Equal(t, 0, resolved[0].AvailableSpots)
}

func TestEnrollmentServiceCreateSlotFull(t *testing.T) {
	fx := newEnrollmentFixture()
	fx.repo.createErr = repository.ErrSlotFull

	_, err := fx.svc.Create(context.Background(), sundayEnrollmentRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrCapacityExceeded.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceCancel(t *testing.T) {
	fx := newEnrollmentFixture()
	fx.repo.enrollments["enroll-1"] = &models.Enrollment{ID: "enroll-1", Status: models.EnrollmentActive}

	require.NoError(t, fx.svc.Cancel(context.Background(), "enroll-1"))
	assert.Equal(t, models.EnrollmentCancelled, fx.repo.statuses["enroll-1"])

	err := fx.svc.Cancel(context.Background(), "enroll-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}
