package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const minPushInterval = 50 * time.Millisecond

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for now
	},
}

// StatusHandler serves the progress of running jobs
type StatusHandler struct {
	jobs     JobService
	interval time.Duration
	logger   *zap.Logger
}

// NewStatusHandler creates a status handler. interval is the default push
// period of the websocket stream.
func NewStatusHandler(jobs JobService, interval time.Duration, log *zap.Logger) *StatusHandler {
	if interval < minPushInterval {
		interval = minPushInterval
	}
	return &StatusHandler{
		jobs:     jobs,
		interval: interval,
		logger:   log,
	}
}

// Status handles GET /api/v1/jobs/status
func (h *StatusHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.jobs.JobsStatus())
}

// StatusWebSocket handles GET /api/v1/jobs/status/ws and pushes a status
// snapshot every interval until the client disconnects.
func (h *StatusHandler) StatusWebSocket(c *gin.Context) {
	interval := h.interval
	if raw := c.Query("interval"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d < minPushInterval {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid interval, use a duration of at least 50ms"})
			return
		}
		interval = d
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade WebSocket", zap.Error(err))
		return
	}
	defer conn.Close()

	h.logger.Info("Status WebSocket client connected",
		zap.Duration("interval", interval),
		zap.String("remote_addr", c.Request.RemoteAddr))

	// Read messages from client until it goes away
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := conn.WriteJSON(h.jobs.JobsStatus()); err != nil {
			h.logger.Debug("Status WebSocket write failed", zap.Error(err))
			return
		}

		select {
		case <-ticker.C:
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		}
	}
}
