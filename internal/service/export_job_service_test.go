package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/escola-habilidade/scheduling-api/internal/dto"
	"github.com/escola-habilidade/scheduling-api/internal/models"
	"github.com/escola-habilidade/scheduling-api/internal/repository"
	appErrors "github.com/escola-habilidade/scheduling-api/pkg/errors"
	"github.com/escola-habilidade/scheduling-api/pkg/jobs"
)

type exportJobRepoStub struct {
	jobs map[string]*models.ExportJob
}

func newExportJobRepoStub() *exportJobRepoStub {
	return &exportJobRepoStub{jobs: map[string]*models.ExportJob{}}
}

func (r *exportJobRepoStub) Create(ctx context.Context, job *models.ExportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	r.jobs[job.ID] = job
	return nil
}

func (r *exportJobRepoStub) GetByID(ctx context.Context, id string) (*models.ExportJob, error) {
	job, ok := r.jobs[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return job, nil
}

func (r *exportJobRepoStub) Update(ctx context.Context, id string, params repository.UpdateExportJobParams) error {
	job, ok := r.jobs[id]
	if !ok {
		return errors.New("not found")
	}
	if params.Status != nil {
		job.Status = *params.Status
	}
	if params.Progress != nil {
		job.Progress = *params.Progress
	}
	if params.ResultURL != nil {
		job.ResultURL = params.ResultURL
	}
	if params.ErrorMessage != nil {
		job.ErrorMessage = params.ErrorMessage
	}
	if params.FinishedAt != nil {
		job.FinishedAt = params.FinishedAt
	}
	return nil
}

func (r *exportJobRepoStub) ListQueued(ctx context.Context, limit int) ([]models.ExportJob, error) {
	var queued []models.ExportJob
	for _, job := range r.jobs {
		if job.Status == models.ExportStatusQueued {
			queued = append(queued, *job)
		}
	}
	return queued, nil
}

func (r *exportJobRepoStub) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ExportJob, error) {
	return nil, nil
}

type queueStub struct {
	jobs []jobs.Job
	err  error
}

func (q *queueStub) Enqueue(job jobs.Job) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func newExportJobServiceForTest(t *testing.T) (*ExportJobService, *exportJobRepoStub, *queueStub, *ExportService) {
	t.Helper()
	repo := newExportJobRepoStub()
	queue := &queueStub{}
	exportSvc, _ := newExportServiceForTest(t)

	enrollments := newEnrollmentRepoStub()
	enrollments.enrollments["enroll-1"] = &models.Enrollment{ID: "enroll-1", Status: models.EnrollmentActive}

	svc := NewExportJobService(repo, enrollments, queue, exportSvc, zap.NewNop(), ExportJobConfig{
		ResultTTL:       time.Hour,
		CleanupInterval: time.Hour,
		MaxRetries:      3,
	})
	return svc, repo, queue, exportSvc
}

func TestExportJobServiceCreateScheduleExport(t *testing.T) {
	svc, repo, queue, _ := newExportJobServiceForTest(t)

	resp, err := svc.CreateScheduleExport(context.Background(), "enroll-1", dto.ExportRequest{Format: models.ExportFormatCSV}, "admin")
	require.NoError(t, err)
	require.NotEmpty(t, resp.ID)
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, models.ExportStatusQueued, resp.Status)
	assert.Contains(t, repo.jobs, resp.ID)
	assert.Equal(t, "enroll-1", repo.jobs[resp.ID].Params.Extras[exportParamEnrollmentID])
}

func TestExportJobServiceCreateScheduleExportUnknownEnrollment(t *testing.T) {
	svc, _, _, _ := newExportJobServiceForTest(t)

	_, err := svc.CreateScheduleExport(context.Background(), "missing", dto.ExportRequest{Format: models.ExportFormatCSV}, "admin")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestExportJobServiceGetStatusOwnership(t *testing.T) {
	svc, repo, _, _ := newExportJobServiceForTest(t)
	repo.jobs["job-1"] = &models.ExportJob{
		ID:        "job-1",
		Type:      models.ExportTypeSchedules,
		Params:    models.ExportJobParams{Format: models.ExportFormatCSV},
		Status:    models.ExportStatusFinished,
		Progress:  100,
		CreatedBy: "admin",
	}

	resp, err := svc.GetStatus(context.Background(), "job-1", "someone-else", models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusFinished, resp.Status)

	_, err = svc.GetStatus(context.Background(), "job-1", "someone-else", models.RoleInstructor)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestExportJobServiceResolveDownload(t *testing.T) {
	svc, repo, _, exportSvc := newExportJobServiceForTest(t)
	job := &models.ExportJob{
		ID:        "job-download",
		Type:      models.ExportTypeSchedules,
		Params:    models.ExportJobParams{Format: models.ExportFormatCSV, Extras: map[string]string{exportParamEnrollmentID: "enroll-1"}},
		Status:    models.ExportStatusFinished,
		Progress:  100,
		CreatedBy: "admin",
	}
	repo.jobs[job.ID] = job
	result, err := exportSvc.Generate(context.Background(), job)
	require.NoError(t, err)
	job.ResultURL = &result.URL
	now := time.Now()
	job.FinishedAt = &now

	download, err := svc.ResolveDownload(context.Background(), result.Token)
	require.NoError(t, err)
	assert.Equal(t, filepath.Base(result.RelativePath), download.Filename)
	download.File.Close()
}

type exportGeneratorStub struct {
	result *ExportResult
	err    error
}

func (e exportGeneratorStub) Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.result, nil
}

func queuedScheduleJob() *models.ExportJob {
	return &models.ExportJob{
		ID:        "job-1",
		Type:      models.ExportTypeSchedules,
		Params:    models.ExportJobParams{Format: models.ExportFormatCSV, Extras: map[string]string{exportParamEnrollmentID: "enroll-1"}},
		Status:    models.ExportStatusQueued,
		CreatedBy: "admin",
	}
}

func TestExportWorkerHandleSuccess(t *testing.T) {
	repo := newExportJobRepoStub()
	repo.jobs["job-1"] = queuedScheduleJob()
	exporter := exportGeneratorStub{result: &ExportResult{URL: "/api/v1/exports/download/token"}}
	worker := NewExportWorker(repo, exporter, 3, zap.NewNop())

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1"})
	require.NoError(t, err)
	require.Equal(t, models.ExportStatusFinished, repo.jobs["job-1"].Status)
	require.Equal(t, 100, repo.jobs["job-1"].Progress)
}

func TestExportWorkerHandleFailureRequeues(t *testing.T) {
	repo := newExportJobRepoStub()
	repo.jobs["job-1"] = queuedScheduleJob()
	exporter := exportGeneratorStub{err: errors.New("boom")}
	worker := NewExportWorker(repo, exporter, 3, zap.NewNop())

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: 1})
	require.Error(t, err)
	require.Equal(t, models.ExportStatusQueued, repo.jobs["job-1"].Status)
}

func TestExportWorkerHandleFailureExhaustsRetries(t *testing.T) {
	repo := newExportJobRepoStub()
	repo.jobs["job-1"] = queuedScheduleJob()
	exporter := exportGeneratorStub{err: errors.New("boom")}
	worker := NewExportWorker(repo, exporter, 2, zap.NewNop())

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: 2})
	require.Error(t, err)
	require.Equal(t, models.ExportStatusFailed, repo.jobs["job-1"].Status)
	require.NotNil(t, repo.jobs["job-1"].FinishedAt)
}
