package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/gdl-bridge/internal/domain"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// JobCounter reports how many jobs are tracked
type JobCounter interface {
	Len() int
}

// HealthHandler handles health check requests
type HealthHandler struct {
	jobs JobCounter
	repo domain.JobRepository
}

// NewHealthHandler creates a new health handler. repo may be nil when
// history is disabled.
func NewHealthHandler(jobs JobCounter, repo domain.JobRepository) *HealthHandler {
	return &HealthHandler{
		jobs: jobs,
		repo: repo,
	}
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Jobs    struct {
		Tracked int `json:"tracked"`
	} `json:"jobs"`
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	response := HealthResponse{
		Status:  "ok",
		Version: Version,
	}
	response.Jobs.Tracked = h.jobs.Len()

	c.JSON(http.StatusOK, response)
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(c *gin.Context) {
	if h.repo != nil {
		if _, err := h.repo.GetStats(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not ready",
				"reason": "database unavailable: " + err.Error(),
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
