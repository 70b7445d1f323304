package app

import (
	"sync"

	"github.com/yourusername/gdl-bridge/internal/domain"
)

// Registry tracks the jobs started by a JobAdapter until a status poll
// observes them finished. It is created at host startup and cleared at shutdown.
type Registry struct {
	mu   sync.Mutex
	jobs []*domain.Job
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a job to the registry
func (r *Registry) Register(job *domain.Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = append(r.jobs, job)
}

// Statuses drops every finished job and returns the progress snapshot of
// the remaining ones keyed by job ID. When the same URL is registered more
// than once, the most recently registered job wins.
func (r *Registry) Statuses() map[string]domain.ProgressState {
	r.mu.Lock()
	defer r.mu.Unlock()

	statuses := make(map[string]domain.ProgressState)
	remaining := r.jobs[:0]
	for _, job := range r.jobs {
		if job.IsDone() {
			continue
		}
		remaining = append(remaining, job)
		statuses[job.ID] = job.Progress()
	}
	// Clear the tail so pruned jobs can be collected
	for i := len(remaining); i < len(r.jobs); i++ {
		r.jobs[i] = nil
	}
	r.jobs = remaining

	return statuses
}

// Active returns the registered jobs that are not finished, without pruning
func (r *Registry) Active() []*domain.Job {
	r.mu.Lock()
	defer r.mu.Unlock()

	var active []*domain.Job
	for _, job := range r.jobs {
		if !job.IsDone() {
			active = append(active, job)
		}
	}
	return active
}

// Len returns the number of tracked jobs, finished or not
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

// Clear empties the registry and returns the jobs that were still running
func (r *Registry) Clear() []*domain.Job {
	r.mu.Lock()
	defer r.mu.Unlock()

	var running []*domain.Job
	for _, job := range r.jobs {
		if !job.IsDone() {
			running = append(running, job)
		}
	}
	r.jobs = nil
	return running
}
