package infrastructure

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/gdl-bridge/internal/domain"
	"github.com/yourusername/gdl-bridge/pkg/logger"
)

// GalleryDLEngine implements domain.Engine by running the gallery-dl binary
type GalleryDLEngine struct {
	config  *domain.GalleryDLConfig
	logsDir string
	logger  *zap.Logger
}

// NewGalleryDLEngine creates a new gallery-dl engine. Raw process output is
// appended to the per-day download log under logsDir.
func NewGalleryDLEngine(config *domain.GalleryDLConfig, logsDir string, log *zap.Logger) *GalleryDLEngine {
	if log == nil {
		log = zap.NewNop()
	}
	return &GalleryDLEngine{
		config:  config,
		logsDir: logsDir,
		logger:  log,
	}
}

// Name returns the engine name
func (e *GalleryDLEngine) Name() string {
	return "gallery-dl"
}

// Validate checks that the binary resolves, the config file exists and the
// base directory can be created.
func (e *GalleryDLEngine) Validate(opts domain.EngineOptions) error {
	if _, err := exec.LookPath(e.config.Binary); err != nil {
		return fmt.Errorf("gallery-dl binary not found: %s", e.config.Binary)
	}
	if opts.ConfigPath != "" && !fileExists(opts.ConfigPath) {
		return fmt.Errorf("gallery-dl config file not found: %s", opts.ConfigPath)
	}
	if !filepath.IsAbs(opts.BaseDir) {
		return fmt.Errorf("base directory must be absolute: %s", opts.BaseDir)
	}
	if err := os.MkdirAll(opts.BaseDir, 0755); err != nil {
		return fmt.Errorf("failed to create base directory: %w", err)
	}
	return nil
}

// NewJob creates a gallery-dl job for url
func (e *GalleryDLEngine) NewJob(url string, opts domain.EngineOptions, observer domain.JobObserver) domain.EngineJob {
	return &galleryDLJob{
		engine:   e,
		url:      url,
		opts:     opts,
		observer: observer,
	}
}

// commonArgs returns the arguments shared by both passes
func (e *GalleryDLEngine) commonArgs(opts domain.EngineOptions) []string {
	var args []string
	if opts.ConfigPath != "" {
		args = append(args, "--config", opts.ConfigPath)
	}
	return append(args, e.config.ExtraArgs...)
}

// downloadArgs builds the download pass command line
func (e *GalleryDLEngine) downloadArgs(url string, opts domain.EngineOptions) []string {
	args := e.commonArgs(opts)
	args = append(args,
		"-o", "base-directory="+opts.BaseDir,
		"-o", "output.mode=terminal",
		"-o", "output.shorten=false",
		"-o", "output.skip=true",
		url,
	)
	return args
}

// dumpArgs builds the message pass command line
func (e *GalleryDLEngine) dumpArgs(url string, opts domain.EngineOptions) []string {
	args := e.commonArgs(opts)
	return append(args, "--dump-json", url)
}

// galleryDLJob runs a download pass reporting to the observer, then a
// message pass producing the extractor's message stream.
type galleryDLJob struct {
	engine   *GalleryDLEngine
	url      string
	opts     domain.EngineOptions
	observer domain.JobObserver

	mu       sync.Mutex
	category string
}

// Run executes the download pass and finalizes the observer with the exit status
func (j *galleryDLJob) Run(ctx context.Context) (int, error) {
	args := j.engine.downloadArgs(j.url, j.opts)

	downloadLog, err := openDownloadLog(j.engine.logsDir)
	if err != nil {
		return 0, fmt.Errorf("failed to open log file: %w", err)
	}
	defer downloadLog.Close()

	downloadLog.header(domain.JobID(j.url), ShellEscapeCommand(j.engine.config.Binary, args...))

	cmd := exec.CommandContext(ctx, j.engine.config.Binary, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return 0, fmt.Errorf("failed to get stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return 0, fmt.Errorf("failed to get stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		downloadLog.footer(false, fmt.Sprintf("failed to start gallery-dl: %v", err))
		return 0, fmt.Errorf("failed to start gallery-dl: %w", err)
	}

	var wg sync.WaitGroup
	wg.Add(2)

	// Output paths in emission order
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			downloadLog.line(line)
			if path, ok := parseOutputLine(line); ok {
				j.observer.OnURLHandled(path)
			}
		}
		j.drain("stdout", scanner.Err(), stdout, downloadLog)
	}()

	// Progress redraws and warnings
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stderr)
		scanner.Split(scanCRLF)
		for scanner.Scan() {
			chunk := scanner.Text()
			if progress, ok := parseProgress(chunk); ok {
				j.observer.OnProgress(progress)
				continue
			}
			if chunk != "" {
				downloadLog.line("[STDERR] " + chunk)
			}
		}
		j.drain("stderr", scanner.Err(), stderr, downloadLog)
	}()

	wg.Wait()
	status, err := exitStatus(cmd.Wait())
	if err != nil {
		downloadLog.footer(false, fmt.Sprintf("gallery-dl failed: %v", err))
		return status, err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		downloadLog.footer(false, "cancelled")
		return status, ctxErr
	}

	downloadLog.footer(status == domain.ExitSuccess, fmt.Sprintf("exit status %d", status))
	j.observer.OnFinalize(status)
	return status, nil
}

// drain discards what is left of a pipe after its scanner stopped early, so
// gallery-dl never blocks writing to it
func (j *galleryDLJob) drain(stream string, scanErr error, r io.Reader, downloadLog *downloadLog) {
	if scanErr == nil {
		return
	}
	j.engine.logger.Warn("Failed to read gallery-dl output",
		zap.String("url", j.url),
		zap.String("stream", stream),
		zap.Error(scanErr))
	downloadLog.line(fmt.Sprintf("[%s] read error: %v", strings.ToUpper(stream), scanErr))
	io.Copy(io.Discard, r)
}

// Messages runs the message pass and decodes the dumped message stream
func (j *galleryDLJob) Messages(ctx context.Context) ([]domain.Message, error) {
	args := j.engine.dumpArgs(j.url, j.opts)

	downloadLog, err := openDownloadLog(j.engine.logsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer downloadLog.Close()

	downloadLog.header(domain.JobID(j.url), ShellEscapeCommand(j.engine.config.Binary, args...))

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, j.engine.config.Binary, args...)
	cmd.Stdout = &out
	cmd.Stderr = downloadLog

	status, err := exitStatus(cmd.Run())
	if err != nil {
		downloadLog.footer(false, fmt.Sprintf("gallery-dl failed: %v", err))
		return nil, fmt.Errorf("failed to run gallery-dl: %w", err)
	}
	if status != domain.ExitSuccess {
		downloadLog.footer(false, fmt.Sprintf("exit status %d", status))
		return nil, fmt.Errorf("gallery-dl --dump-json exited with status %d", status)
	}

	messages, err := decodeMessages(out.Bytes())
	if err != nil {
		downloadLog.footer(false, err.Error())
		return nil, err
	}
	downloadLog.footer(true, fmt.Sprintf("%d messages", len(messages)))

	j.mu.Lock()
	j.category = categoryOf(messages)
	j.mu.Unlock()

	return messages, nil
}

// Category returns the extractor category found by Messages
func (j *galleryDLJob) Category() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.category
}

// decodeMessages parses gallery-dl's --dump-json output
func decodeMessages(data []byte) ([]domain.Message, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return []domain.Message{}, nil
	}
	var messages []domain.Message
	if err := json.Unmarshal(data, &messages); err != nil {
		return nil, fmt.Errorf("failed to decode message stream: %w", err)
	}
	return messages, nil
}

// categoryOf returns the extractor category of the first message carrying one
func categoryOf(messages []domain.Message) string {
	for _, msg := range messages {
		if category, ok := msg.Metadata["category"].(string); ok && category != "" {
			return category
		}
	}
	return ""
}

// exitStatus maps a Wait/Run error to the process exit status. Only
// failures that produced no exit status are returned as errors.
func exitStatus(err error) (int, error) {
	if err == nil {
		return domain.ExitSuccess, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, err
}

// downloadLog serializes writes from the stdout and stderr readers into
// the per-day download log.
type downloadLog struct {
	mu   sync.Mutex
	file *os.File
}

func openDownloadLog(logsDir string) (*downloadLog, error) {
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}
	path := logger.CategoryLogPath(logsDir, logger.CategoryDownload, time.Now())
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	return &downloadLog{file: file}, nil
}

var _ io.Writer = (*downloadLog)(nil)

// Write appends raw process output
func (l *downloadLog) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Write(p)
}

func (l *downloadLog) line(s string) {
	l.Write([]byte(s + "\n"))
}

// header writes the job start marker
func (l *downloadLog) header(jobID, cmdLine string) {
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	l.line(fmt.Sprintf("=== [%s] Job: %s ===", timestamp, jobID))
	l.line("$ " + cmdLine)
}

// footer writes the job end marker
func (l *downloadLog) footer(success bool, message string) {
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	status := "SUCCESS"
	if !success {
		status = "FAILED"
	}
	l.line(fmt.Sprintf("[%s] %s: %s", timestamp, status, message))
	l.line("=== END ===")
}

func (l *downloadLog) Close() error {
	return l.file.Close()
}

// fileExists checks if a file exists
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
