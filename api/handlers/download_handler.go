package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/gdl-bridge/internal/app"
	"github.com/yourusername/gdl-bridge/internal/domain"
)

// JobService is the part of the job adapter the HTTP API drives
type JobService interface {
	Download(ctx context.Context, url, path, configPath string) (*domain.ExtractionSummary, error)
	JobsStatus() map[string]domain.ProgressState
	CachedSummary(jobID string) (*domain.ExtractionSummary, bool)
}

// DownloadHandler handles download-related HTTP requests
type DownloadHandler struct {
	jobs   JobService
	logger *zap.Logger
}

// NewDownloadHandler creates a new download handler
func NewDownloadHandler(jobs JobService, logger *zap.Logger) *DownloadHandler {
	return &DownloadHandler{
		jobs:   jobs,
		logger: logger,
	}
}

// DownloadRequest represents a request to run a download job
type DownloadRequest struct {
	URL    string `json:"url" binding:"required"`
	Path   string `json:"path,omitempty"`
	Config string `json:"config,omitempty"`
}

// Download handles POST /api/v1/downloads. The request blocks until the job
// has finished and answers with its extraction summary.
func (h *DownloadHandler) Download(c *gin.Context) {
	var req DownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	summary, err := h.jobs.Download(c.Request.Context(), req.URL, req.Path, req.Config)
	if err != nil {
		h.logger.Error("Download failed",
			zap.String("url", req.URL),
			zap.Error(err))
		c.Error(err)
		c.JSON(statusForError(err), gin.H{
			"error":   err.Error(),
			"outcome": app.Outcome(err),
		})
		return
	}

	c.JSON(http.StatusOK, summary)
}

// GetSummary handles GET /api/v1/summaries/:id
func (h *DownloadHandler) GetSummary(c *gin.Context) {
	summary, ok := h.jobs.CachedSummary(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "summary not found"})
		return
	}
	c.JSON(http.StatusOK, summary)
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNoResults):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrExecutionFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
