package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/escola-habilidade/scheduling-api/internal/dto"
	"github.com/escola-habilidade/scheduling-api/internal/models"
	"github.com/escola-habilidade/scheduling-api/internal/service"
	appErrors "github.com/escola-habilidade/scheduling-api/pkg/errors"
	"github.com/escola-habilidade/scheduling-api/pkg/response"
)

type exportJobAPI interface {
	CreateScheduleExport(ctx context.Context, enrollmentID string, req dto.ExportRequest, actorID string) (*dto.ExportJobResponse, error)
	CreateEnrollmentExport(ctx context.Context, req dto.ExportRequest, filter models.EnrollmentFilter, actorID string) (*dto.ExportJobResponse, error)
	GetStatus(ctx context.Context, id, actorID string, role models.UserRole) (*dto.ExportStatusResponse, error)
	ResolveDownload(ctx context.Context, token string) (*service.ExportDownload, error)
}

// ExportHandler exposes asynchronous export endpoints.
type ExportHandler struct {
	service exportJobAPI
}

// NewExportHandler creates a new handler.
func NewExportHandler(svc exportJobAPI) *ExportHandler {
	return &ExportHandler{service: svc}
}

// CreateScheduleExport godoc
// @Summary Export an enrollment's schedule
// @Description Queue a CSV or PDF export of the enrollment's weekly schedule
// @Tags Exports
// @Accept json
// @Produce json
// @Param id path string true "Enrollment ID"
// @Param payload body dto.ExportRequest true "Export payload"
// @Success 202 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/enrollments/{id}/export [post]
func (h *ExportHandler) CreateScheduleExport(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid export payload"))
		return
	}

	job, err := h.service.CreateScheduleExport(c.Request.Context(), c.Param("id"), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusAccepted, job, nil)
}

// CreateEnrollmentExport godoc
// @Summary Export the enrollment report
// @Description Queue a CSV or PDF export of filtered enrollments
// @Tags Exports
// @Accept json
// @Produce json
// @Param teacherId query string false "Filter by teacher"
// @Param courseId query string false "Filter by course"
// @Param status query string false "Filter by status"
// @Param payload body dto.ExportRequest true "Export payload"
// @Success 202 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/exports/enrollments [post]
func (h *ExportHandler) CreateEnrollmentExport(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid export payload"))
		return
	}

	filter := models.EnrollmentFilter{
		TeacherID: strings.TrimSpace(c.Query("teacherId")),
		CourseID:  strings.TrimSpace(c.Query("courseId")),
		Status:    strings.TrimSpace(c.Query("status")),
	}

	job, err := h.service.CreateEnrollmentExport(c.Request.Context(), req, filter, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusAccepted, job, nil)
}

// Status godoc
// @Summary Export job status
// @Tags Exports
// @Produce json
// @Param id path string true "Export job ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /exports/status/{id} [get]
func (h *ExportHandler) Status(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	status, err := h.service.GetStatus(c.Request.Context(), c.Param("id"), claims.UserID, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, status, nil)
}

// Download godoc
// @Summary Download a finished export
// @Description Serve the export file referenced by a signed download token
// @Tags Exports
// @Produce application/octet-stream
// @Param token path string true "Signed download token"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /exports/download/{token} [get]
func (h *ExportHandler) Download(c *gin.Context) {
	token := strings.TrimSpace(c.Param("token"))
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}

	result, err := h.service.ResolveDownload(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer result.File.Close() //nolint:errcheck

	info, err := result.File.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stat export file"))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", result.Filename))
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, info.Size(), mimeForFormat(result.Format), result.File, nil)
}

func mimeForFormat(format models.ExportFormat) string {
	switch format {
	case models.ExportFormatPDF:
		return "application/pdf"
	case models.ExportFormatCSV:
		return "text/csv"
	default:
		return "application/octet-stream"
	}
}
