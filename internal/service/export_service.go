package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/escola-habilidade/scheduling-api/internal/models"
	"github.com/escola-habilidade/scheduling-api/pkg/export"
	"github.com/escola-habilidade/scheduling-api/pkg/storage"
)

type enrollmentExportSource interface {
	FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ExportFormat
	ExpiresAt    time.Time
}

// ExportService builds export datasets and persists rendered files.
type ExportService struct {
	enrollments enrollmentExportSource
	storage     fileStorage
	csv         csvRenderer
	pdf         pdfRenderer
	signer      *storage.SignedURLSigner
	logger      *zap.Logger
	cfg         ExportConfig
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// NewExportService constructs an ExportService.
func NewExportService(enrollments enrollmentExportSource, storage fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		enrollments: enrollments,
		storage:     storage,
		csv:         csv,
		pdf:         pdf,
		signer:      signer,
		logger:      logger,
		cfg:         cfg,
	}
}

// Generate builds the dataset according to the job definition and stores the rendered export.
func (s *ExportService) Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	dataset, title, err := s.buildDataset(ctx, job)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch job.Params.Format {
	case models.ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	default:
		err = fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	if err != nil {
		return nil, err
	}

	filename := s.buildFilename(job)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	signedURL := strings.TrimRight(s.cfg.APIPrefix, "/")
	if signedURL == "" {
		signedURL = "/api/v1"
	}
	signedURL = fmt.Sprintf("%s/exports/download/%s", signedURL, token)

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          signedURL,
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildFilename(job *models.ExportJob) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	scope := sanitizeFilename(job.Params.Extras[exportParamEnrollmentID])
	name := fmt.Sprintf("%s_%s_%s.%s", strings.ToLower(string(job.Type)), scope, timestamp, job.Params.Format)
	return name
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "all"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func (s *ExportService) buildDataset(ctx context.Context, job *models.ExportJob) (export.Dataset, string, error) {
	switch job.Type {
	case models.ExportTypeSchedules:
		return s.buildScheduleDataset(ctx, job.Params)
	case models.ExportTypeEnrollments:
		return s.buildEnrollmentDataset(ctx, job.Params)
	default:
		return export.Dataset{}, "", fmt.Errorf("unsupported export type %s", job.Type)
	}
}

func (s *ExportService) buildScheduleDataset(ctx context.Context, params models.ExportJobParams) (export.Dataset, string, error) {
	enrollmentID := params.Extras[exportParamEnrollmentID]
	if enrollmentID == "" {
		return export.Dataset{}, "", fmt.Errorf("schedules export requires an enrollment id")
	}
	detail, err := s.enrollments.FindDetailByID(ctx, enrollmentID)
	if err != nil {
		return export.Dataset{}, "", err
	}
	rows := make([]map[string]string, 0, len(detail.Schedules))
	for _, schedule := range detail.Schedules {
		rows = append(rows, map[string]string{
			"Student":    detail.StudentName,
			"Course":     detail.CourseTitle,
			"Weekday":    weekdayName(schedule.DayOfWeek),
			"Start Time": schedule.StartTime,
			"End Time":   schedule.EndTime,
			"Teacher ID": schedule.TeacherID,
		})
	}
	dataset := export.Dataset{
		Headers: []string{"Student", "Course", "Weekday", "Start Time", "End Time", "Teacher ID"},
		Rows:    rows,
	}
	title := fmt.Sprintf("Class Schedule - %s", detail.StudentName)
	return dataset, title, nil
}

func (s *ExportService) buildEnrollmentDataset(ctx context.Context, params models.ExportJobParams) (export.Dataset, string, error) {
	filter := models.EnrollmentFilter{
		TeacherID: deref(params.TeacherID),
		CourseID:  deref(params.CourseID),
		Status:    params.Extras[exportParamStatus],
		PageSize:  100,
	}
	enrollments, _, err := s.enrollments.List(ctx, filter)
	if err != nil {
		return export.Dataset{}, "", err
	}
	rows := make([]map[string]string, 0, len(enrollments))
	for _, enrollment := range enrollments {
		endDate := ""
		if enrollment.EndDate != nil {
			endDate = *enrollment.EndDate
		}
		rows = append(rows, map[string]string{
			"Student":    enrollment.StudentName,
			"Email":      enrollment.StudentEmail,
			"Course":     enrollment.CourseTitle,
			"Start Date": enrollment.StartDate,
			"End Date":   endDate,
			"Modality":   string(enrollment.Modality),
			"Status":     string(enrollment.Status),
		})
	}
	dataset := export.Dataset{
		Headers: []string{"Student", "Email", "Course", "Start Date", "End Date", "Modality", "Status"},
		Rows:    rows,
	}
	title := "Enrollment Report"
	return dataset, title, nil
}

func deref(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}

func weekdayName(day int) string {
	if day < 0 || day > 6 {
		return fmt.Sprintf("%d", day)
	}
	return time.Weekday(day).String()
}
