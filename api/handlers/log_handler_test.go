package handlers

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/gdl-bridge/pkg/logger"
)

func newLogRouter(t *testing.T) (*gin.Engine, string) {
	t.Helper()
	dir := t.TempDir()
	lines := []string{
		`{"timestamp":"2026-10-16T10:00:00Z","level":"info","message":"job_started","url":"https://a.example/1"}`,
		`{"timestamp":"2026-10-16T10:00:05Z","level":"info","message":"job_succeeded","url":"https://a.example/1"}`,
		`{"timestamp":"2026-10-16T10:01:00Z","level":"info","message":"job_failed","url":"https://b.example/2"}`,
	}
	date := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)
	path := logger.CategoryLogPath(dir, logger.CategoryJob, date)
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644))

	h := NewLogHandler(dir)
	r := gin.New()
	r.GET("/logs/categories", h.GetCategories)
	r.GET("/logs/:category", h.GetLogs)
	r.GET("/logs/:category/search", h.SearchLogs)
	r.GET("/logs/:category/export", h.ExportLogs)
	return r, filepath.Base(path)
}

func TestLogHandler_Categories(t *testing.T) {
	r, _ := newLogRouter(t)

	w := get(r, "/logs/categories")
	require.Equal(t, http.StatusOK, w.Code)
	var body map[string][]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, []string{"job", "error", "download"}, body["categories"])
}

func TestLogHandler_GetLogs(t *testing.T) {
	r, _ := newLogRouter(t)

	w := get(r, "/logs/job?date=2026-10-16&limit=2")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Count   int               `json:"count"`
		Entries []logger.LogEntry `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)
	assert.Equal(t, "job_succeeded", body.Entries[0].Message)
	assert.Equal(t, "job_failed", body.Entries[1].Message)
}

func TestLogHandler_BadInput(t *testing.T) {
	r, _ := newLogRouter(t)

	assert.Equal(t, http.StatusBadRequest, get(r, "/logs/queue").Code)
	assert.Equal(t, http.StatusBadRequest, get(r, "/logs/job?date=16-10-2026").Code)
	assert.Equal(t, http.StatusBadRequest, get(r, "/logs/job/search?date=2026-10-16").Code)
}

func TestLogHandler_Search(t *testing.T) {
	r, _ := newLogRouter(t)

	w := get(r, "/logs/job/search?date=2026-10-16&q=b.example")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Count   int               `json:"count"`
		Entries []logger.LogEntry `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, 1, body.Count)
	assert.Equal(t, "job_failed", body.Entries[0].Message)
}

func TestLogHandler_Export(t *testing.T) {
	r, filename := newLogRouter(t)

	w := get(r, "/logs/job/export?date=2026-10-16")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "attachment; filename="+filename, w.Header().Get("Content-Disposition"))
	assert.Contains(t, w.Body.String(), "job_started")

	assert.Equal(t, http.StatusNotFound, get(r, "/logs/job/export?date=2020-01-01").Code)
}
