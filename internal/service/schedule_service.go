package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/escola-habilidade/scheduling-api/internal/dto"
	"github.com/escola-habilidade/scheduling-api/internal/models"
	"github.com/escola-habilidade/scheduling-api/pkg/dateutil"
	appErrors "github.com/escola-habilidade/scheduling-api/pkg/errors"
)

type holidayCalendar interface {
	HolidaySet(ctx context.Context, from, to time.Time) (dateutil.HolidaySet, []models.Holiday, error)
}

// sessionSlot is a weekly class pattern entry used by the end-date walk.
type sessionSlot struct {
	DayOfWeek int
	StartTime string
	EndTime   string
}

// ScheduleService computes course end dates by walking the calendar week by
// week over a teacher's availability pattern. Sessions that collide with a
// holiday are skipped and made up later, so the course extends rather than
// losing hours.
type ScheduleService struct {
	availability availabilityRepository
	holidays     holidayCalendar
	maxWeeks     int
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewScheduleService constructs a ScheduleService.
func NewScheduleService(availability availabilityRepository, holidays holidayCalendar, maxWeeks int, validate *validator.Validate, logger *zap.Logger) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxWeeks <= 0 {
		maxWeeks = 104
	}
	return &ScheduleService{availability: availability, holidays: holidays, maxWeeks: maxWeeks, validator: validate, logger: logger}
}

// CalculateEndDate produces the dated class plan for a course taught from the
// teacher's recurring availability.
func (s *ScheduleService) CalculateEndDate(ctx context.Context, req dto.CalculateEndDateRequest) (*dto.CalculateEndDateResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid calculation payload")
	}
	start, err := dateutil.ParseDate(req.StartDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid startDate")
	}

	slots, err := s.availability.ListActiveByTeacher(ctx, req.TeacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher availability")
	}
	if len(slots) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNoAvailability, "")
	}

	pattern := weeklyPattern(slots, req.WeeklyClasses)
	if len(pattern) < req.WeeklyClasses {
		return nil, appErrors.Clone(appErrors.ErrInsufficientAvailability,
			fmt.Sprintf("teacher offers %d distinct weekdays, %d weekly classes requested", len(pattern), req.WeeklyClasses))
	}

	var holidays dateutil.HolidaySet
	if req.ExcludeHolidays {
		horizon := start.AddDate(0, 0, s.maxWeeks*7)
		holidays, _, err = s.holidays.HolidaySet(ctx, start, horizon)
		if err != nil {
			return nil, err
		}
	}

	sessions, excluded, err := s.planSessions(start, req.CourseHours, pattern, holidays)
	if err != nil {
		return nil, err
	}

	last := sessions[len(sessions)-1]
	resp := &dto.CalculateEndDateResponse{
		StartDate:        dateutil.FormatDate(start),
		EndDate:          last.Date,
		TotalWeeks:       spannedWeeks(req.StartDate, last.Date),
		ActualClassDays:  len(sessions),
		HolidaysExcluded: excluded,
		Schedule:         sessions,
	}
	return resp, nil
}

// PlanForPattern computes the class plan for an explicit weekly pattern, used
// by the enrollment flow where the student picked concrete slots.
func (s *ScheduleService) PlanForPattern(ctx context.Context, start time.Time, courseHours float64, schedules []models.StudentSchedule, excludeHolidays bool) (*dto.CalculateEndDateResponse, error) {
	if courseHours <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "courseHours must be positive")
	}
	if len(schedules) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "at least one weekly slot is required")
	}

	pattern := make([]sessionSlot, 0, len(schedules))
	for _, sc := range schedules {
		pattern = append(pattern, sessionSlot{DayOfWeek: sc.DayOfWeek, StartTime: sc.StartTime, EndTime: sc.EndTime})
	}
	sort.Slice(pattern, func(i, j int) bool {
		if pattern[i].DayOfWeek != pattern[j].DayOfWeek {
			return pattern[i].DayOfWeek < pattern[j].DayOfWeek
		}
		return pattern[i].StartTime < pattern[j].StartTime
	})

	var holidays dateutil.HolidaySet
	if excludeHolidays {
		horizon := start.AddDate(0, 0, s.maxWeeks*7)
		set, _, err := s.holidays.HolidaySet(ctx, start, horizon)
		if err != nil {
			return nil, err
		}
		holidays = set
	}

	sessions, excluded, err := s.planSessions(start, courseHours, pattern, holidays)
	if err != nil {
		return nil, err
	}
	last := sessions[len(sessions)-1]
	return &dto.CalculateEndDateResponse{
		StartDate:        dateutil.FormatDate(start),
		EndDate:          last.Date,
		TotalWeeks:       spannedWeeks(dateutil.FormatDate(start), last.Date),
		ActualClassDays:  len(sessions),
		HolidaysExcluded: excluded,
		Schedule:         sessions,
	}, nil
}

// planSessions walks forward from start, day by day, scheduling each pattern
// slot on its weekday until the accumulated session hours cover courseHours.
// Holiday-conflicting occurrences are recorded and skipped without counting.
func (s *ScheduleService) planSessions(start time.Time, courseHours float64, pattern []sessionSlot, holidays dateutil.HolidaySet) ([]dto.ScheduledSession, []string, error) {
	byWeekday := make(map[int][]sessionSlot, len(pattern))
	for _, slot := range pattern {
		byWeekday[slot.DayOfWeek] = append(byWeekday[slot.DayOfWeek], slot)
	}

	var (
		sessions []dto.ScheduledSession
		excluded []string
		accrued  float64
	)
	excludedSeen := make(map[string]bool)

	day := dateutil.StartOfDay(start)
	deadline := day.AddDate(0, 0, s.maxWeeks*7)
	for accrued < courseHours {
		if day.After(deadline) {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation,
				fmt.Sprintf("course does not fit within %d weeks", s.maxWeeks))
		}
		for _, slot := range byWeekday[int(day.Weekday())] {
			if accrued >= courseHours {
				break
			}
			if holidays.Contains(day) {
				// Two pattern slots can share a weekday; record the date once.
				if date := dateutil.FormatDate(day); !excludedSeen[date] {
					excludedSeen[date] = true
					excluded = append(excluded, date)
				}
				continue
			}
			minutes := sessionMinutes(slot.StartTime, slot.EndTime)
			if minutes <= 0 {
				continue
			}
			sessions = append(sessions, dto.ScheduledSession{
				Date:            dateutil.FormatDate(day),
				DayOfWeek:       int(day.Weekday()),
				StartTime:       slot.StartTime,
				EndTime:         slot.EndTime,
				DurationMinutes: minutes,
			})
			accrued += float64(minutes) / 60
		}
		day = day.AddDate(0, 0, 1)
	}

	if len(sessions) == 0 {
		return nil, nil, appErrors.Clone(appErrors.ErrNoAvailability, "")
	}
	return sessions, excluded, nil
}

// weeklyPattern picks one slot per distinct weekday, in weekday order,
// limited to the requested number of weekly classes.
func weeklyPattern(slots []models.TeacherAvailability, weeklyClasses int) []sessionSlot {
	seen := make(map[int]bool, 7)
	pattern := make([]sessionSlot, 0, weeklyClasses)
	for _, slot := range slots {
		if seen[slot.DayOfWeek] {
			continue
		}
		seen[slot.DayOfWeek] = true
		pattern = append(pattern, sessionSlot{DayOfWeek: slot.DayOfWeek, StartTime: slot.StartTime, EndTime: slot.EndTime})
		if len(pattern) == weeklyClasses {
			break
		}
	}
	return pattern
}

// sessionMinutes returns the length of an HH:MM window in minutes.
func sessionMinutes(startTime, endTime string) int {
	start, err := time.Parse("15:04", startTime)
	if err != nil {
		return 0
	}
	end, err := time.Parse("15:04", endTime)
	if err != nil {
		return 0
	}
	return int(end.Sub(start).Minutes())
}

// spannedWeeks counts calendar weeks touched by the inclusive date range.
func spannedWeeks(startDate, endDate string) int {
	start, err := dateutil.ParseDate(startDate)
	if err != nil {
		return 0
	}
	end, err := dateutil.ParseDate(endDate)
	if err != nil {
		return 0
	}
	days := int(end.Sub(start).Hours()/24) + 1
	return int(math.Ceil(float64(days) / 7))
}
