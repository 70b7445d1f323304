package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"

	"github.com/yourusername/gdl-bridge/internal/domain"
	"github.com/yourusername/gdl-bridge/internal/metrics"
	"github.com/yourusername/gdl-bridge/pkg/logger"
)

// Notifier receives job lifecycle notifications
type Notifier interface {
	NotifyJobStarted(url string)
	NotifyJobCompleted(url string, files int)
	NotifyJobFailed(url string, err error)
}

// JobAdapter runs download jobs through an engine and turns their results
// into extraction summaries. Every job it starts is tracked by its registry.
type JobAdapter struct {
	engine      domain.Engine
	registry    *Registry
	configPath  string
	outputDir   string
	repo        domain.JobRepository
	tagger      domain.TagExtractor
	cache       *SummaryCache
	indexing    bool
	notifier    Notifier
	multiLogger *logger.MultiLogger
	logger      *zap.Logger
}

// NewJobAdapter creates a job adapter. configPath is passed to every job unless
// a request overrides it, outputDir is used when a request has no path.
func NewJobAdapter(engine domain.Engine, registry *Registry, configPath, outputDir string, log *zap.Logger) *JobAdapter {
	if log == nil {
		log = zap.NewNop()
	}
	return &JobAdapter{
		engine:     engine,
		registry:   registry,
		configPath: configPath,
		outputDir:  outputDir,
		indexing:   true,
		logger:     log,
	}
}

// SetRepository enables job history and media indexing
func (a *JobAdapter) SetRepository(repo domain.JobRepository) {
	a.repo = repo
}

// SetIndexing turns media and tag indexing of successful summaries on or off.
// Job history is kept either way.
func (a *JobAdapter) SetIndexing(enabled bool) {
	a.indexing = enabled
}

// SetTagExtractor sets the extractor used when indexing media tags
func (a *JobAdapter) SetTagExtractor(tagger domain.TagExtractor) {
	a.tagger = tagger
}

// SetSummaryCache enables caching of successful summaries
func (a *JobAdapter) SetSummaryCache(cache *SummaryCache) {
	a.cache = cache
}

// SetNotifier sets the notifier for job events
func (a *JobAdapter) SetNotifier(notifier Notifier) {
	a.notifier = notifier
}

// SetMultiLogger enables the categorized job and error logs
func (a *JobAdapter) SetMultiLogger(ml *logger.MultiLogger) {
	a.multiLogger = ml
}

// Registry returns the registry tracking this adapter's jobs
func (a *JobAdapter) Registry() *Registry {
	return a.registry
}

// Download runs gallery-dl for url, writing files under path, and returns the
// summary pairing every downloaded file with its URL message.
func (a *JobAdapter) Download(ctx context.Context, url, path, configPath string) (*domain.ExtractionSummary, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, fmt.Errorf("%w: url is required", domain.ErrInvalidRequest)
	}
	if path == "" {
		path = a.outputDir
	}
	if !filepath.IsAbs(path) {
		return nil, fmt.Errorf("%w: path must be absolute: %q", domain.ErrInvalidRequest, path)
	}
	if configPath == "" {
		configPath = a.configPath
	}

	opts := domain.EngineOptions{ConfigPath: configPath, BaseDir: path}
	if err := a.engine.Validate(opts); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
	}

	job := domain.NewJob(url)
	a.registry.Register(job)
	// Finalizes the job with an abort status if anything below returns early
	defer job.Abort()

	if err := job.Start(); err != nil {
		return nil, err
	}

	metrics.JobsInFlight.Inc()
	defer metrics.JobsInFlight.Dec()

	a.logger.Info("Starting download job",
		zap.String("job_id", job.ID),
		zap.String("run_id", job.RunID),
		zap.String("url", url),
		zap.String("path", path),
		zap.String("engine", a.engine.Name()))
	a.logJobEvent("job_started", job, zap.String("path", path))
	a.saveRecord(job, "", nil, 0)
	if a.notifier != nil {
		a.notifier.NotifyJobStarted(url)
	}

	summary, category, err := a.run(ctx, job, opts)
	metrics.JobDuration.Observe(time.Since(job.CreatedAt).Seconds())
	if err != nil {
		a.fail(job, category, err)
		return nil, err
	}

	metrics.JobsTotal.WithLabelValues(metrics.OutcomeSucceeded).Inc()
	metrics.FilesTotal.Add(float64(len(summary.URLExtractors)))

	a.logger.Info("Download job completed",
		zap.String("job_id", job.ID),
		zap.String("extractor", summary.Extractor),
		zap.Int("files", len(summary.URLExtractors)))
	a.logJobEvent("job_succeeded", job,
		zap.String("extractor", summary.Extractor),
		zap.Int("files", len(summary.URLExtractors)))
	a.saveRecord(job, summary.Extractor, nil, len(summary.URLExtractors))
	a.index(job, summary)
	if a.cache != nil {
		a.cache.Add(url, summary)
	}
	if a.notifier != nil {
		a.notifier.NotifyJobCompleted(url, len(summary.URLExtractors))
	}

	return summary, nil
}

func (a *JobAdapter) run(ctx context.Context, job *domain.Job, opts domain.EngineOptions) (*domain.ExtractionSummary, string, error) {
	engineJob := a.engine.NewJob(job.URL, opts, job)

	status, err := engineJob.Run(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("failed to run job for %s: %w", job.URL, err)
	}
	// The engine finalizes through the observer; this covers engines that don't
	job.OnFinalize(status)

	if status != domain.ExitSuccess {
		return nil, "", &domain.ExecutionFailedError{URL: job.URL, Status: status}
	}

	messages, err := engineJob.Messages(ctx)
	if err != nil {
		return nil, engineJob.Category(), fmt.Errorf("failed to extract messages for %s: %w", job.URL, err)
	}

	category := engineJob.Category()
	summary, err := domain.NewExtractionSummary(category, job.URL, messages, job.OutputPaths())
	return summary, category, err
}

// DownloadJSON runs Download and serializes the summary
func (a *JobAdapter) DownloadJSON(ctx context.Context, url, path, configPath string) ([]byte, error) {
	summary, err := a.Download(ctx, url, path, configPath)
	if err != nil {
		return nil, err
	}
	return json.Marshal(summary)
}

// JobsStatus prunes finished jobs and returns the progress of running ones by job ID
func (a *JobAdapter) JobsStatus() map[string]domain.ProgressState {
	return a.registry.Statuses()
}

// JobsStatusJSON serializes JobsStatus
func (a *JobAdapter) JobsStatusJSON() ([]byte, error) {
	return json.Marshal(a.JobsStatus())
}

// CachedSummary returns a recent summary by job ID
func (a *JobAdapter) CachedSummary(jobID string) (*domain.ExtractionSummary, bool) {
	if a.cache == nil {
		return nil, false
	}
	return a.cache.Get(jobID)
}

func (a *JobAdapter) fail(job *domain.Job, category string, err error) {
	job.Abort()
	metrics.JobsTotal.WithLabelValues(Outcome(err)).Inc()

	a.logger.Error("Download job failed",
		zap.String("job_id", job.ID),
		zap.String("url", job.URL),
		zap.Error(err))
	a.logJobEvent("job_failed", job, zap.String("outcome", Outcome(err)), zap.Error(err))
	if a.multiLogger != nil {
		a.multiLogger.LogAppError("download job failed",
			zap.String("job_id", job.ID),
			zap.String("run_id", job.RunID),
			zap.String("url", job.URL),
			zap.Error(err))
	}
	a.saveRecord(job, category, err, 0)
	if a.notifier != nil {
		a.notifier.NotifyJobFailed(job.URL, err)
	}
}

// Outcome classifies a Download error for metrics and history
func Outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSucceeded
	case errors.Is(err, domain.ErrExecutionFailed):
		return metrics.OutcomeExecutionFailed
	case errors.Is(err, domain.ErrNoResults):
		return metrics.OutcomeNoResults
	case errors.Is(err, domain.ErrCountMismatch):
		return metrics.OutcomeCountMismatch
	default:
		return metrics.OutcomeError
	}
}

func (a *JobAdapter) logJobEvent(event string, job *domain.Job, fields ...zap.Field) {
	if a.multiLogger == nil {
		return
	}
	fields = append([]zap.Field{
		zap.String("job_id", job.ID),
		zap.String("run_id", job.RunID),
		zap.String("url", job.URL),
	}, fields...)
	a.multiLogger.LogJobEvent(event, fields...)
}

func (a *JobAdapter) saveRecord(job *domain.Job, extractor string, jobErr error, files int) {
	if a.repo == nil {
		return
	}

	record := &domain.JobRecord{
		RunID:      job.RunID,
		JobID:      job.ID,
		URL:        job.URL,
		Extractor:  extractor,
		State:      job.State(),
		ExitStatus: job.ExitStatus(),
		FileCount:  files,
		CreatedAt:  job.CreatedAt,
		StartedAt:  job.StartedAt(),
		FinishedAt: job.FinishedAt(),
	}
	if jobErr != nil {
		record.ErrorMessage = jobErr.Error()
	}

	if err := a.repo.SaveJob(record); err != nil {
		a.logger.Error("Failed to save job record",
			zap.String("run_id", job.RunID),
			zap.Error(err))
	}
}

// index stores the summary's files and their tags. Failures are logged and
// never fail the download.
func (a *JobAdapter) index(job *domain.Job, summary *domain.ExtractionSummary) {
	if a.repo == nil || !a.indexing {
		return
	}

	media := make([]*domain.MediaRecord, 0, len(summary.URLExtractors))
	tags := make(map[string][]domain.ExtractedTag)
	for _, entry := range summary.URLExtractors {
		hash, err := HashFile(entry.Path)
		if err != nil {
			a.logger.Warn("Failed to hash downloaded file",
				zap.String("path", entry.Path),
				zap.Error(err))
		}

		record := &domain.MediaRecord{
			Path:      entry.Path,
			Hash:      hash,
			RunID:     job.RunID,
			URL:       entry.URL,
			Extractor: entry.Extractor,
		}
		if meta, err := json.Marshal(entry.Meta); err == nil {
			record.Metadata = string(meta)
		}
		media = append(media, record)

		if hash == "" || a.tagger == nil {
			continue
		}
		extracted, err := a.tagger.ExtractTags(entry)
		if err != nil {
			a.logger.Warn("Failed to extract tags",
				zap.String("extractor", entry.Extractor),
				zap.String("path", entry.Path),
				zap.Error(err))
			continue
		}
		if len(extracted) > 0 {
			tags[hash] = append(tags[hash], extracted...)
		}
	}

	if err := a.repo.IndexMedia(media, tags); err != nil {
		a.logger.Error("Failed to index media",
			zap.String("run_id", job.RunID),
			zap.Error(err))
	}
}

// HashFile returns the hex xxhash64 digest of a file's content
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%016x", h.Sum64()), nil
}
