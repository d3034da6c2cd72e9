package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/escola-habilidade/scheduling-api/internal/models"
)

// AvailabilityRepository manages persistence for teacher availability slots.
type AvailabilityRepository struct {
	db *sqlx.DB
}

// NewAvailabilityRepository constructs an AvailabilityRepository.
func NewAvailabilityRepository(db *sqlx.DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

const availabilityColumns = "id, teacher_id, day_of_week, start_time, end_time, max_students, active, created_at, updated_at"

// ListActiveByTeacher returns a teacher's active slots ordered by weekday and start time.
func (r *AvailabilityRepository) ListActiveByTeacher(ctx context.Context, teacherID string) ([]models.TeacherAvailability, error) {
	query := fmt.Sprintf("SELECT %s FROM teacher_availability WHERE teacher_id = $1 AND active = TRUE ORDER BY day_of_week ASC, start_time ASC", availabilityColumns)
	var slots []models.TeacherAvailability
	if err := r.db.SelectContext(ctx, &slots, query, teacherID); err != nil {
		return nil, fmt.Errorf("list teacher availability: %w", err)
	}
	return slots, nil
}

// ListByTeacher returns all of a teacher's slots, active or not.
func (r *AvailabilityRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.TeacherAvailability, error) {
	query := fmt.Sprintf("SELECT %s FROM teacher_availability WHERE teacher_id = $1 ORDER BY day_of_week ASC, start_time ASC", availabilityColumns)
	var slots []models.TeacherAvailability
	if err := r.db.SelectContext(ctx, &slots, query, teacherID); err != nil {
		return nil, fmt.Errorf("list teacher availability: %w", err)
	}
	return slots, nil
}

// FindByID fetches a single availability slot.
func (r *AvailabilityRepository) FindByID(ctx context.Context, id string) (*models.TeacherAvailability, error) {
	query := fmt.Sprintf("SELECT %s FROM teacher_availability WHERE id = $1", availabilityColumns)
	var slot models.TeacherAvailability
	if err := r.db.GetContext(ctx, &slot, query, id); err != nil {
		return nil, err
	}
	return &slot, nil
}

// FindOverlapping returns active slots of the teacher on a weekday whose time
// window intersects [startTime, endTime).
func (r *AvailabilityRepository) FindOverlapping(ctx context.Context, teacherID string, dayOfWeek int, startTime, endTime, excludeID string) ([]models.TeacherAvailability, error) {
	query := fmt.Sprintf(`SELECT %s FROM teacher_availability
		WHERE teacher_id = $1 AND day_of_week = $2 AND active = TRUE
		AND start_time < $4 AND end_time > $3`, availabilityColumns)
	args := []interface{}{teacherID, dayOfWeek, startTime, endTime}
	if excludeID != "" {
		query += " AND id <> $5"
		args = append(args, excludeID)
	}
	var slots []models.TeacherAvailability
	if err := r.db.SelectContext(ctx, &slots, query, args...); err != nil {
		return nil, fmt.Errorf("find overlapping availability: %w", err)
	}
	return slots, nil
}

// Create inserts a new availability slot.
func (r *AvailabilityRepository) Create(ctx context.Context, slot *models.TeacherAvailability) error {
	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if slot.CreatedAt.IsZero() {
		slot.CreatedAt = now
	}
	slot.UpdatedAt = now

	const query = `INSERT INTO teacher_availability (id, teacher_id, day_of_week, start_time, end_time, max_students, active, created_at, updated_at)
		VALUES (:id, :teacher_id, :day_of_week, :start_time, :end_time, :max_students, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, slot); err != nil {
		return fmt.Errorf("create availability: %w", err)
	}
	return nil
}

// Update modifies an existing availability slot.
func (r *AvailabilityRepository) Update(ctx context.Context, slot *models.TeacherAvailability) error {
	slot.UpdatedAt = time.Now().UTC()
	const query = `UPDATE teacher_availability SET start_time = :start_time, end_time = :end_time, max_students = :max_students, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, slot); err != nil {
		return fmt.Errorf("update availability: %w", err)
	}
	return nil
}

// Deactivate marks an availability slot inactive. Slots are never deleted so
// existing student schedules keep a valid reference.
func (r *AvailabilityRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE teacher_availability SET active = FALSE, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate availability: %w", err)
	}
	return nil
}
