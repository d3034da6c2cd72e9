package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/escola-habilidade/scheduling-api/internal/models"
)

func newEnrollmentRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestEnrollmentRepositoryExistsActive(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery("SELECT 1 FROM enrollments WHERE student_id = \\$1 AND course_id = \\$2 AND status = \\$3 LIMIT 1").
		WithArgs("s1", "c1", models.EnrollmentActive).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	exists, err := repo.ExistsActive(context.Background(), "s1", "c1")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCreateWithSchedules(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM teacher_availability WHERE id = \\$1 FOR UPDATE").
		WithArgs("a1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "teacher_id", "day_of_week", "start_time", "end_time", "max_students", "active", "created_at", "updated_at"}).
			AddRow("a1", "t1", 1, "08:00", "10:00", 5, true, now, now))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM student_schedules ss").
		WithArgs("a1", models.EnrollmentActive).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectExec("INSERT INTO enrollments").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO student_schedules").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	enrollment := &models.Enrollment{
		StudentID: "s1",
		CourseID:  "c1",
		StartDate: "2025-02-03",
		Modality:  models.ModalityInPerson,
	}
	schedules := []models.StudentSchedule{{SlotID: "a1", TeacherID: "t1", DayOfWeek: 1, StartTime: "08:00", EndTime: "10:00"}}

	err := repo.CreateWithSchedules(context.Background(), enrollment, []string{"a1"}, schedules)
	require.NoError(t, err)
	assert.NotEmpty(t, enrollment.ID)
	assert.Equal(t, models.EnrollmentActive, enrollment.Status)
	assert.Equal(t, enrollment.ID, schedules[0].EnrollmentID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCreateWithSchedulesSlotFull(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM teacher_availability WHERE id = \\$1 FOR UPDATE").
		WithArgs("a1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "teacher_id", "day_of_week", "start_time", "end_time", "max_students", "active", "created_at", "updated_at"}).
			AddRow("a1", "t1", 1, "08:00", "10:00", 3, true, now, now))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM student_schedules ss").
		WithArgs("a1", models.EnrollmentActive).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectRollback()

	enrollment := &models.Enrollment{StudentID: "s1", CourseID: "c1", StartDate: "2025-02-03", Modality: models.ModalityInPerson}
	err := repo.CreateWithSchedules(context.Background(), enrollment, []string{"a1"}, nil)
	assert.ErrorIs(t, err, ErrSlotFull)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryBookedCounts(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	rows := sqlmock.NewRows([]string{"slot_id", "count"}).
		AddRow("a1", 2).
		AddRow("a2", 1)
	mock.ExpectQuery("SELECT ss.slot_id, COUNT\\(\\*\\) AS count").
		WithArgs("t1", models.EnrollmentActive).
		WillReturnRows(rows)

	counts, err := repo.BookedCounts(context.Background(), "t1")
	require.NoError(t, err)
	require.Len(t, counts, 2)
	assert.Equal(t, "a1", counts[0].SlotID)
	assert.Equal(t, 2, counts[0].Count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
