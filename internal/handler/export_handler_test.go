package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/escola-habilidade/scheduling-api/internal/dto"
	"github.com/escola-habilidade/scheduling-api/internal/middleware"
	"github.com/escola-habilidade/scheduling-api/internal/models"
	"github.com/escola-habilidade/scheduling-api/internal/service"
)

type exportServiceMock struct {
	createResp  *dto.ExportJobResponse
	createErr   error
	statusResp  *dto.ExportStatusResponse
	statusErr   error
	download    *service.ExportDownload
	downloadErr error
}

func (m *exportServiceMock) CreateScheduleExport(ctx context.Context, enrollmentID string, req dto.ExportRequest, actorID string) (*dto.ExportJobResponse, error) {
	return m.createResp, m.createErr
}

func (m *exportServiceMock) CreateEnrollmentExport(ctx context.Context, req dto.ExportRequest, filter models.EnrollmentFilter, actorID string) (*dto.ExportJobResponse, error) {
	return m.createResp, m.createErr
}

func (m *exportServiceMock) GetStatus(ctx context.Context, id, actorID string, role models.UserRole) (*dto.ExportStatusResponse, error) {
	return m.statusResp, m.statusErr
}

func (m *exportServiceMock) ResolveDownload(ctx context.Context, token string) (*service.ExportDownload, error) {
	return m.download, m.downloadErr
}

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func TestExportHandlerCreateScheduleExport(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &exportServiceMock{
		createResp: &dto.ExportJobResponse{ID: "job-1", Status: models.ExportStatusQueued, Progress: 0},
	}
	handler := NewExportHandler(mockSvc)

	payload, _ := json.Marshal(dto.ExportRequest{Format: models.ExportFormatCSV})
	c, w := newGinContext(http.MethodPost, "/admin/enrollments/enroll-1/export", payload)
	c.Params = gin.Params{{Key: "id", Value: "enroll-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin", Role: models.RoleAdmin})

	handler.CreateScheduleExport(c)
	require.Equal(t, http.StatusAccepted, w.Code)
}

func TestExportHandlerCreateScheduleExportRequiresAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewExportHandler(&exportServiceMock{})

	payload, _ := json.Marshal(dto.ExportRequest{Format: models.ExportFormatCSV})
	c, w := newGinContext(http.MethodPost, "/admin/enrollments/enroll-1/export", payload)
	c.Params = gin.Params{{Key: "id", Value: "enroll-1"}}

	handler.CreateScheduleExport(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestExportHandlerStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &exportServiceMock{
		statusResp: &dto.ExportStatusResponse{ID: "job-1", Status: models.ExportStatusFinished, Progress: 100},
	}
	handler := NewExportHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/exports/status/job-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "job-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin", Role: models.RoleAdmin})

	handler.Status(c)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestExportHandlerDownload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	file, err := os.CreateTemp("", "export*.csv")
	require.NoError(t, err)
	defer os.Remove(file.Name())
	_, _ = file.WriteString("data")
	_, _ = file.Seek(0, 0)

	mockSvc := &exportServiceMock{
		download: &service.ExportDownload{
			File:      file,
			Filename:  "schedule_enroll-1.csv",
			Format:    models.ExportFormatCSV,
			ExpiresAt: time.Now().Add(time.Hour),
		},
	}
	handler := NewExportHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/exports/download/token", nil)
	c.Params = gin.Params{{Key: "token", Value: "token"}}

	handler.Download(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Header().Get("Content-Disposition"), "schedule_enroll-1.csv")
}

func TestExportHandlerDownloadMissingToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewExportHandler(&exportServiceMock{})

	c, w := newGinContext(http.MethodGet, "/exports/download/", nil)
	c.Params = gin.Params{{Key: "token", Value: ""}}

	handler.Download(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
