package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/escola-habilidade/scheduling-api/internal/models"
)

// ErrSlotFull signals that a requested availability slot has no seats left.
// Detected under row lock inside CreateWithSchedules.
var ErrSlotFull = errors.New("availability slot is fully booked")

// EnrollmentRepository handles persistence of enrollments and their weekly
// student schedules.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// List returns enrollments filtered by the provided criteria.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	base := `FROM enrollments e
LEFT JOIN users u ON u.id = e.student_id
LEFT JOIN courses c ON c.id = e.course_id`
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("e.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("e.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("EXISTS (SELECT 1 FROM student_schedules ss WHERE ss.enrollment_id = e.id AND ss.teacher_id = $%d)", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("e.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Search != "" {
		search := "%" + strings.ToLower(filter.Search) + "%"
		conditions = append(conditions, fmt.Sprintf("(LOWER(u.full_name) LIKE $%d OR LOWER(u.email) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, search)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT e.id, e.student_id, e.course_id, e.start_date, e.end_date, e.modality, e.status, e.created_at, e.updated_at,
        u.full_name AS student_name, u.email AS student_email, c.title AS course_title
        %s ORDER BY e.created_at DESC LIMIT %d OFFSET %d`, base+clause, size, offset)

	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return enrollments, total, nil
}

// FindByID returns an enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	const query = `SELECT id, student_id, course_id, start_date, end_date, modality, status, created_at, updated_at FROM enrollments WHERE id = $1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// FindDetailByID returns an enrollment with student, course, and schedules.
func (r *EnrollmentRepository) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	const query = `SELECT e.id, e.student_id, e.course_id, e.start_date, e.end_date, e.modality, e.status, e.created_at, e.updated_at,
        u.full_name AS student_name, u.email AS student_email, c.title AS course_title
        FROM enrollments e
        LEFT JOIN users u ON u.id = e.student_id
        LEFT JOIN courses c ON c.id = e.course_id
        WHERE e.id = $1`
	var detail models.EnrollmentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	schedules, err := r.ListSchedules(ctx, id)
	if err != nil {
		return nil, err
	}
	detail.Schedules = schedules
	return &detail, nil
}

// ExistsActive checks if the student already has an active enrollment in the course.
func (r *EnrollmentRepository) ExistsActive(ctx context.Context, studentID, courseID string) (bool, error) {
	const query = `SELECT 1 FROM enrollments WHERE student_id = $1 AND course_id = $2 AND status = $3 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, studentID, courseID, models.EnrollmentActive); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check active enrollment: %w", err)
	}
	return true, nil
}

// ListSchedules returns the weekly slots booked by one enrollment.
func (r *EnrollmentRepository) ListSchedules(ctx context.Context, enrollmentID string) ([]models.StudentSchedule, error) {
	const query = `SELECT id, enrollment_id, slot_id, teacher_id, day_of_week, start_time, end_time, created_at, updated_at
        FROM student_schedules WHERE enrollment_id = $1 ORDER BY day_of_week ASC, start_time ASC`
	var schedules []models.StudentSchedule
	if err := r.db.SelectContext(ctx, &schedules, query, enrollmentID); err != nil {
		return nil, fmt.Errorf("list student schedules: %w", err)
	}
	return schedules, nil
}

// BookedCounts returns active booking counts per availability slot for a
// teacher. Rows are grouped by slot_id, not by booked times, so bookings that
// cover only part of a slot's window still count against its capacity.
func (r *EnrollmentRepository) BookedCounts(ctx context.Context, teacherID string) ([]models.BookedCount, error) {
	const query = `SELECT ss.slot_id, COUNT(*) AS count
        FROM student_schedules ss
        JOIN enrollments e ON e.id = ss.enrollment_id
        WHERE ss.teacher_id = $1 AND e.status = $2
        GROUP BY ss.slot_id`
	var counts []models.BookedCount
	if err := r.db.SelectContext(ctx, &counts, query, teacherID, models.EnrollmentActive); err != nil {
		return nil, fmt.Errorf("booked counts: %w", err)
	}
	return counts, nil
}

// CreateWithSchedules inserts the enrollment and its schedule rows in one
// transaction. Each requested availability slot is locked FOR UPDATE and its
// active bookings recounted under the lock, so two concurrent enrollments
// cannot both claim the last seat.
func (r *EnrollmentRepository) CreateWithSchedules(ctx context.Context, enrollment *models.Enrollment, slotIDs []string, schedules []models.StudentSchedule) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin enrollment tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, slotID := range slotIDs {
		var slot models.TeacherAvailability
		const lockQuery = `SELECT id, teacher_id, day_of_week, start_time, end_time, max_students, active, created_at, updated_at
            FROM teacher_availability WHERE id = $1 FOR UPDATE`
		if err = tx.GetContext(ctx, &slot, lockQuery, slotID); err != nil {
			return fmt.Errorf("lock availability slot: %w", err)
		}
		if !slot.Active {
			return fmt.Errorf("availability slot %s: %w", slotID, sql.ErrNoRows)
		}

		var booked int
		const countQuery = `SELECT COUNT(*) FROM student_schedules ss
            JOIN enrollments e ON e.id = ss.enrollment_id
            WHERE ss.slot_id = $1 AND e.status = $2`
		if err = tx.GetContext(ctx, &booked, countQuery, slot.ID, models.EnrollmentActive); err != nil {
			return fmt.Errorf("count slot bookings: %w", err)
		}
		if booked >= slot.MaxStudents {
			return ErrSlotFull
		}
	}

	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if enrollment.CreatedAt.IsZero() {
		enrollment.CreatedAt = now
	}
	enrollment.UpdatedAt = now
	if enrollment.Status == "" {
		enrollment.Status = models.EnrollmentActive
	}

	const insertEnrollment = `INSERT INTO enrollments (id, student_id, course_id, start_date, end_date, modality, status, created_at, updated_at)
        VALUES (:id, :student_id, :course_id, :start_date, :end_date, :modality, :status, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, insertEnrollment, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}

	const insertSchedule = `INSERT INTO student_schedules (id, enrollment_id, slot_id, teacher_id, day_of_week, start_time, end_time, created_at, updated_at)
        VALUES (:id, :enrollment_id, :slot_id, :teacher_id, :day_of_week, :start_time, :end_time, :created_at, :updated_at)`
	for i := range schedules {
		schedules[i].ID = uuid.NewString()
		schedules[i].EnrollmentID = enrollment.ID
		schedules[i].CreatedAt = now
		schedules[i].UpdatedAt = now
		if _, err = tx.NamedExecContext(ctx, insertSchedule, &schedules[i]); err != nil {
			return fmt.Errorf("create student schedule: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit enrollment tx: %w", err)
	}
	return nil
}

// UpdateStatus updates the lifecycle status of an enrollment.
func (r *EnrollmentRepository) UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus) error {
	const query = `UPDATE enrollments SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update enrollment status: %w", err)
	}
	return nil
}
