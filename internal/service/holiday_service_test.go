package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/escola-habilidade/scheduling-api/internal/dto"
	"github.com/escola-habilidade/scheduling-api/internal/models"
	appErrors "github.com/escola-habilidade/scheduling-api/pkg/errors"
)

type holidayRepoStub struct {
	holidays      []models.Holiday
	existing      map[string]bool
	err           error
	listYearCalls int
	created       *models.Holiday
	deleted       []string
}

func (r *holidayRepoStub) List(ctx context.Context, filter models.HolidayFilter) ([]models.Holiday, int, error) {
	if r.err != nil {
		return nil, 0, r.err
	}
	return r.holidays, len(r.holidays), nil
}

func (r *holidayRepoStub) ListByRange(ctx context.Context, from, to time.Time) ([]models.Holiday, error) {
	if r.err != nil {
		return nil, r.err
	}
	var out []models.Holiday
	for _, h := range r.holidays {
		if !h.Date.Before(from) && !h.Date.After(to) {
			out = append(out, h)
		}
	}
	return out, nil
}

func (r *holidayRepoStub) ListByYear(ctx context.Context, year int) ([]models.Holiday, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.listYearCalls++
	var out []models.Holiday
	for _, h := range r.holidays {
		if h.Year == year {
			out = append(out, h)
		}
	}
	return out, nil
}

func (r *holidayRepoStub) FindByID(ctx context.Context, id string) (*models.Holiday, error) {
	for i := range r.holidays {
		if r.holidays[i].ID == id {
			holiday := r.holidays[i]
			return &holiday, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *holidayRepoStub) ExistsOnDate(ctx context.Context, date time.Time, scope models.HolidayScope, excludeID string) (bool, error) {
	if r.existing == nil {
		return false, nil
	}
	return r.existing[date.Format("2006-01-02")+string(scope)], nil
}

func (r *holidayRepoStub) Create(ctx context.Context, holiday *models.Holiday) error {
	holiday.ID = "holiday-created"
	holiday.Year = holiday.Date.Year()
	r.created = holiday
	r.holidays = append(r.holidays, *holiday)
	return nil
}

func (r *holidayRepoStub) Update(ctx context.Context, holiday *models.Holiday) error {
	return nil
}

func (r *holidayRepoStub) Delete(ctx context.Context, id string) error {
	r.deleted = append(r.deleted, id)
	return nil
}

// memoryCacheRepo is an in-process CacheRepository used to observe cache
// interactions without redis.
type memoryCacheRepo struct {
	entries map[string][]byte
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{entries: map[string][]byte{}}
}

func (c *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	data, ok := c.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(data, dest)
}

func (c *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = data
	return nil
}

func (c *memoryCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
	return nil
}

func newHolidayServiceForTest(repo *holidayRepoStub) (*HolidayService, *memoryCacheRepo) {
	memCache := newMemoryCacheRepo()
	cache := NewCacheService(memCache, nil, time.Minute, zap.NewNop(), true)
	svc := NewHolidayService(repo, cache, time.Minute, validator.New(), zap.NewNop())
	return svc, memCache
}

func carnivalHoliday() models.Holiday {
	return models.Holiday{
		ID:    "holiday-carnival",
		Date:  time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC),
		Name:  "Carnaval",
		Scope: models.HolidayScopeNational,
		Year:  2025,
	}
}

func TestHolidayServiceHolidaySetFailsClosed(t *testing.T) {
	repo := &holidayRepoStub{err: errors.New("connection refused")}
	svc, _ := newHolidayServiceForTest(repo)

	_, _, err := svc.HolidaySet(context.Background(), time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUpstream.Code, appErrors.FromError(err).Code)
}

func TestHolidayServiceHolidaySet(t *testing.T) {
	repo := &holidayRepoStub{holidays: []models.Holiday{carnivalHoliday()}}
	svc, _ := newHolidayServiceForTest(repo)

	set, holidays, err := svc.HolidaySet(context.Background(), time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, holidays, 1)
	assert.True(t, set.Contains(time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)))
	assert.False(t, set.Contains(time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)))
}

func TestHolidayServiceListYearUsesCache(t *testing.T) {
	repo := &holidayRepoStub{holidays: []models.Holiday{carnivalHoliday()}}
	svc, _ := newHolidayServiceForTest(repo)

	first, err := svc.ListYear(context.Background(), 2025)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, 1, repo.listYearCalls)

	second, err := svc.ListYear(context.Background(), 2025)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, 1, repo.listYearCalls)
}

func TestHolidayServiceCreateInvalidatesCache(t *testing.T) {
	repo := &holidayRepoStub{holidays: []models.Holiday{carnivalHoliday()}}
	svc, memCache := newHolidayServiceForTest(repo)

	_, err := svc.ListYear(context.Background(), 2025)
	require.NoError(t, err)
	require.NotEmpty(t, memCache.entries)

	_, err = svc.Create(context.Background(), dto.CreateHolidayRequest{
		Date:  "2025-04-21",
		Name:  "Tiradentes",
		Scope: models.HolidayScopeNational,
	})
	require.NoError(t, err)
	assert.Empty(t, memCache.entries)
}

func TestHolidayServiceCreateDuplicateDate(t *testing.T) {
	repo := &holidayRepoStub{existing: map[string]bool{"2025-03-04" + string(models.HolidayScopeNational): true}}
	svc, _ := newHolidayServiceForTest(repo)

	_, err := svc.Create(context.Background(), dto.CreateHolidayRequest{
		Date:  "2025-03-04",
		Name:  "Carnaval",
		Scope: models.HolidayScopeNational,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestHolidayServiceIsHoliday(t *testing.T) {
	repo := &holidayRepoStub{holidays: []models.Holiday{carnivalHoliday()}}
	svc, _ := newHolidayServiceForTest(repo)

	hit, holiday, err := svc.IsHoliday(context.Background(), time.Date(2025, 3, 4, 15, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, "Carnaval", holiday.Name)

	miss, _, err := svc.IsHoliday(context.Background(), time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.False(t, miss)
}
