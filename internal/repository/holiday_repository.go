package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/escola-habilidade/scheduling-api/internal/models"
)

// HolidayRepository manages persistence for calendar holidays.
type HolidayRepository struct {
	db *sqlx.DB
}

// NewHolidayRepository constructs a HolidayRepository.
func NewHolidayRepository(db *sqlx.DB) *HolidayRepository {
	return &HolidayRepository{db: db}
}

const holidayColumns = "id, date, name, scope, year, created_at, updated_at"

// List returns holidays matching filters along with total count.
func (r *HolidayRepository) List(ctx context.Context, filter models.HolidayFilter) ([]models.Holiday, int, error) {
	base := "FROM holidays WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Year > 0 {
		conditions = append(conditions, fmt.Sprintf("year = $%d", len(args)+1))
		args = append(args, filter.Year)
	}
	if filter.StartDate != nil {
		conditions = append(conditions, fmt.Sprintf("date >= $%d", len(args)+1))
		args = append(args, *filter.StartDate)
	}
	if filter.EndDate != nil {
		conditions = append(conditions, fmt.Sprintf("date <= $%d", len(args)+1))
		args = append(args, *filter.EndDate)
	}
	if filter.Scope != "" {
		conditions = append(conditions, fmt.Sprintf("scope = $%d", len(args)+1))
		args = append(args, filter.Scope)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 366 {
		size = 100
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY date ASC LIMIT %d OFFSET %d", holidayColumns, base, size, offset)
	var holidays []models.Holiday
	if err := r.db.SelectContext(ctx, &holidays, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list holidays: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count holidays: %w", err)
	}

	return holidays, total, nil
}

// ListByRange returns all holidays falling inside [from, to], ordered by date.
func (r *HolidayRepository) ListByRange(ctx context.Context, from, to time.Time) ([]models.Holiday, error) {
	query := fmt.Sprintf("SELECT %s FROM holidays WHERE date >= $1 AND date <= $2 ORDER BY date ASC", holidayColumns)
	var holidays []models.Holiday
	if err := r.db.SelectContext(ctx, &holidays, query, from, to); err != nil {
		return nil, fmt.Errorf("list holidays by range: %w", err)
	}
	return holidays, nil
}

// ListByYear returns all holidays of one calendar year, ordered by date.
func (r *HolidayRepository) ListByYear(ctx context.Context, year int) ([]models.Holiday, error) {
	query := fmt.Sprintf("SELECT %s FROM holidays WHERE year = $1 ORDER BY date ASC", holidayColumns)
	var holidays []models.Holiday
	if err := r.db.SelectContext(ctx, &holidays, query, year); err != nil {
		return nil, fmt.Errorf("list holidays by year: %w", err)
	}
	return holidays, nil
}

// FindByID fetches a holiday by ID.
func (r *HolidayRepository) FindByID(ctx context.Context, id string) (*models.Holiday, error) {
	query := fmt.Sprintf("SELECT %s FROM holidays WHERE id = $1", holidayColumns)
	var holiday models.Holiday
	if err := r.db.GetContext(ctx, &holiday, query, id); err != nil {
		return nil, err
	}
	return &holiday, nil
}

// ExistsOnDate checks whether a holiday of the same scope already occupies a date.
func (r *HolidayRepository) ExistsOnDate(ctx context.Context, date time.Time, scope models.HolidayScope, excludeID string) (bool, error) {
	query := "SELECT 1 FROM holidays WHERE date = $1 AND scope = $2"
	args := []interface{}{date, scope}
	if excludeID != "" {
		query += " AND id <> $3"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check holiday date: %w", err)
	}
	return true, nil
}

// Create inserts a new holiday record.
func (r *HolidayRepository) Create(ctx context.Context, holiday *models.Holiday) error {
	if holiday.ID == "" {
		holiday.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if holiday.CreatedAt.IsZero() {
		holiday.CreatedAt = now
	}
	holiday.UpdatedAt = now
	holiday.Year = holiday.Date.Year()

	const query = `INSERT INTO holidays (id, date, name, scope, year, created_at, updated_at)
		VALUES (:id, :date, :name, :scope, :year, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, holiday); err != nil {
		return fmt.Errorf("create holiday: %w", err)
	}
	return nil
}

// Update modifies an existing holiday record.
func (r *HolidayRepository) Update(ctx context.Context, holiday *models.Holiday) error {
	holiday.UpdatedAt = time.Now().UTC()
	holiday.Year = holiday.Date.Year()
	const query = `UPDATE holidays SET date = :date, name = :name, scope = :scope, year = :year, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, holiday); err != nil {
		return fmt.Errorf("update holiday: %w", err)
	}
	return nil
}

// Delete removes a holiday record.
func (r *HolidayRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM holidays WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete holiday: %w", err)
	}
	return nil
}
