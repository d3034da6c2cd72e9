package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/escola-habilidade/scheduling-api/internal/dto"
	"github.com/escola-habilidade/scheduling-api/internal/models"
	"github.com/escola-habilidade/scheduling-api/pkg/dateutil"
	appErrors "github.com/escola-habilidade/scheduling-api/pkg/errors"
)

type holidayRepository interface {
	List(ctx context.Context, filter models.HolidayFilter) ([]models.Holiday, int, error)
	ListByRange(ctx context.Context, from, to time.Time) ([]models.Holiday, error)
	ListByYear(ctx context.Context, year int) ([]models.Holiday, error)
	FindByID(ctx context.Context, id string) (*models.Holiday, error)
	ExistsOnDate(ctx context.Context, date time.Time, scope models.HolidayScope, excludeID string) (bool, error)
	Create(ctx context.Context, holiday *models.Holiday) error
	Update(ctx context.Context, holiday *models.Holiday) error
	Delete(ctx context.Context, id string) error
}

const holidayCachePrefix = "holidays:"

// HolidayService manages the holiday calendar. Calendar reads that feed the
// schedule calculators are fail-closed: a storage error is reported upstream
// instead of being treated as an empty calendar, so course plans are never
// silently computed without holiday data.
type HolidayService struct {
	repo      holidayRepository
	cache     *CacheService
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewHolidayService constructs a HolidayService.
func NewHolidayService(repo holidayRepository, cache *CacheService, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *HolidayService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = time.Hour
	}
	return &HolidayService{repo: repo, cache: cache, cacheTTL: cacheTTL, validator: validate, logger: logger}
}

// List returns holidays matching the query plus pagination data.
func (s *HolidayService) List(ctx context.Context, query dto.HolidayQuery, page, pageSize int) ([]models.Holiday, *models.Pagination, error) {
	filter := models.HolidayFilter{Year: query.Year, Page: page, PageSize: pageSize}
	if query.Scope != "" {
		filter.Scope = models.HolidayScope(query.Scope)
	}
	if query.StartDate != "" {
		start, err := dateutil.ParseDate(query.StartDate)
		if err != nil {
			return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid startDate")
		}
		filter.StartDate = &start
	}
	if query.EndDate != "" {
		end, err := dateutil.ParseDate(query.EndDate)
		if err != nil {
			return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid endDate")
		}
		filter.EndDate = &end
	}

	holidays, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "failed to load holidays")
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 100
	}
	pagination := &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}
	return holidays, pagination, nil
}

// ListYear returns all holidays of one year, served from cache when possible.
func (s *HolidayService) ListYear(ctx context.Context, year int) ([]models.Holiday, error) {
	key := fmt.Sprintf("%syear:%d", holidayCachePrefix, year)
	var cached []models.Holiday
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, nil
	}

	holidays, err := s.repo.ListByYear(ctx, year)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "failed to load holidays")
	}
	_ = s.cache.Set(ctx, key, holidays, s.cacheTTL)
	return holidays, nil
}

// HolidaySet returns the set of holiday dates inside [from, to] keyed by ISO
// date. Any storage failure surfaces as an upstream error.
func (s *HolidayService) HolidaySet(ctx context.Context, from, to time.Time) (dateutil.HolidaySet, []models.Holiday, error) {
	holidays, err := s.repo.ListByRange(ctx, from, to)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "failed to load holiday calendar")
	}
	set := make(dateutil.HolidaySet, len(holidays))
	for _, h := range holidays {
		set.Add(h.Date)
	}
	return set, holidays, nil
}

// IsHoliday reports whether the given date is a registered holiday.
func (s *HolidayService) IsHoliday(ctx context.Context, date time.Time) (bool, *models.Holiday, error) {
	day := dateutil.StartOfDay(date)
	holidays, err := s.repo.ListByRange(ctx, day, day)
	if err != nil {
		return false, nil, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "failed to load holiday calendar")
	}
	if len(holidays) == 0 {
		return false, nil, nil
	}
	return true, &holidays[0], nil
}

// Get returns a holiday by id.
func (s *HolidayService) Get(ctx context.Context, id string) (*models.Holiday, error) {
	holiday, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "holiday not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load holiday")
	}
	return holiday, nil
}

// Create registers a new holiday and invalidates cached year lists.
func (s *HolidayService) Create(ctx context.Context, req dto.CreateHolidayRequest) (*models.Holiday, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid holiday payload")
	}
	date, err := dateutil.ParseDate(req.Date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid holiday date")
	}

	exists, err := s.repo.ExistsOnDate(ctx, date, req.Scope, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check holiday date")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("a %s holiday already exists on %s", req.Scope, req.Date))
	}

	holiday := &models.Holiday{
		Date:  date,
		Name:  strings.TrimSpace(req.Name),
		Scope: req.Scope,
	}
	if err := s.repo.Create(ctx, holiday); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create holiday")
	}
	s.invalidate(ctx)
	return holiday, nil
}

// Update modifies an existing holiday and invalidates cached year lists.
func (s *HolidayService) Update(ctx context.Context, id string, req dto.UpdateHolidayRequest) (*models.Holiday, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid holiday payload")
	}

	holiday, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Date != nil {
		date, err := dateutil.ParseDate(*req.Date)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid holiday date")
		}
		holiday.Date = date
	}
	if req.Name != nil {
		holiday.Name = strings.TrimSpace(*req.Name)
	}
	if req.Scope != nil {
		holiday.Scope = *req.Scope
	}

	exists, err := s.repo.ExistsOnDate(ctx, holiday.Date, holiday.Scope, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check holiday date")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("a %s holiday already exists on %s", holiday.Scope, dateutil.FormatDate(holiday.Date)))
	}

	if err := s.repo.Update(ctx, holiday); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update holiday")
	}
	s.invalidate(ctx)
	return holiday, nil
}

// Delete removes a holiday and invalidates cached year lists.
func (s *HolidayService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete holiday")
	}
	s.invalidate(ctx)
	return nil
}

func (s *HolidayService) invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, holidayCachePrefix+"*"); err != nil {
		s.logger.Warn("holiday cache invalidation failed", zap.Error(err))
	}
}
