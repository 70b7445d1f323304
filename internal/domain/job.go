package domain

import (
	"fmt"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
)

// JobState represents the lifecycle state of a download job
type JobState string

const (
	JobCreated   JobState = "created"
	JobRunning   JobState = "running"
	JobSucceeded JobState = "succeeded"
	JobFailed    JobState = "failed"
)

// ExitSuccess is the exit status gallery-dl reports when a job completed
const ExitSuccess = 0

// exitAborted marks jobs finalized without a process exit status
const exitAborted = -1

// ProgressState is the most recent transfer snapshot of a running job.
// It is overwritten on every update and never accumulated.
type ProgressState struct {
	BytesTotal      int64   `json:"bytes_total"`
	BytesDownloaded int64   `json:"bytes_downloaded"`
	BytesPerSecond  float64 `json:"bytes_per_second"`
}

// JobObserver receives the callbacks a running engine job emits
type JobObserver interface {
	// OnURLHandled is called once per URL message, after its file was written or skipped
	OnURLHandled(path string)

	// OnProgress is called with the latest transfer snapshot
	OnProgress(progress ProgressState)

	// OnFinalize is called exactly once when the job stops running
	OnFinalize(status int)
}

// JobID returns the stable identifier of the job for a URL
func JobID(url string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(url))
}

// Job tracks one execution of the wrapped downloader against a single URL
type Job struct {
	ID        string
	RunID     string
	URL       string
	CreatedAt time.Time

	mu          sync.RWMutex
	state       JobState
	done        bool
	exitStatus  int
	outputPaths []string
	progress    ProgressState
	startedAt   *time.Time
	finishedAt  *time.Time
}

// NewJob creates a job bound to a URL
func NewJob(url string) *Job {
	return &Job{
		ID:        JobID(url),
		RunID:     uuid.New().String(),
		URL:       url,
		CreatedAt: time.Now(),
		state:     JobCreated,
	}
}

// Start moves the job from created to running
func (j *Job) Start() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.state != JobCreated {
		return fmt.Errorf("job %s cannot start from state %s", j.ID, j.state)
	}
	now := time.Now()
	j.state = JobRunning
	j.startedAt = &now
	return nil
}

// OnURLHandled records an output path in emission order
func (j *Job) OnURLHandled(path string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.outputPaths = append(j.outputPaths, path)
}

// OnProgress overwrites the progress snapshot while the job is running
func (j *Job) OnProgress(progress ProgressState) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.state != JobRunning {
		return
	}
	j.progress = progress
}

// OnFinalize sets the completion flag. Only the first call has an effect.
func (j *Job) OnFinalize(status int) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.done {
		return
	}
	now := time.Now()
	j.done = true
	j.exitStatus = status
	j.finishedAt = &now
	if status == ExitSuccess && j.state == JobRunning {
		j.state = JobSucceeded
	} else {
		j.state = JobFailed
	}
}

// Abort finalizes a job that never produced an exit status
func (j *Job) Abort() {
	j.OnFinalize(exitAborted)
}

// State returns the current lifecycle state
func (j *Job) State() JobState {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.state
}

// IsDone reports whether the completion flag is set
func (j *Job) IsDone() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.done
}

// ExitStatus returns the status passed to OnFinalize
func (j *Job) ExitStatus() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.exitStatus
}

// Progress returns the last progress snapshot, zero if none arrived yet
func (j *Job) Progress() ProgressState {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.progress
}

// OutputPaths returns a copy of the recorded output paths
func (j *Job) OutputPaths() []string {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return append([]string(nil), j.outputPaths...)
}

// StartedAt returns when the job entered running, nil if it never did
func (j *Job) StartedAt() *time.Time {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.startedAt
}

// FinishedAt returns when the job was finalized, nil while running
func (j *Job) FinishedAt() *time.Time {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.finishedAt
}
