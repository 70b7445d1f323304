package domain

import "context"

// EngineOptions configures a single engine job
type EngineOptions struct {
	// ConfigPath is the gallery-dl configuration file, empty for gallery-dl defaults
	ConfigPath string
	// BaseDir is the base-directory gallery-dl writes files under
	BaseDir string
}

// Engine creates jobs of the wrapped downloader
type Engine interface {
	// Name returns a short identifier of the engine, used in logs
	Name() string

	// Validate checks that the engine can run with the given options
	Validate(opts EngineOptions) error

	// NewJob creates a job bound to url. The observer receives the job's callbacks.
	NewJob(url string, opts EngineOptions, observer JobObserver) EngineJob
}

// EngineJob is one run of the wrapped downloader
type EngineJob interface {
	// Run executes the job to completion and returns its exit status.
	// A non-nil error means the job could not be executed at all.
	Run(ctx context.Context) (int, error)

	// Messages returns the message stream of the job's extractor
	Messages(ctx context.Context) ([]Message, error)

	// Category returns the extractor category, available after Messages
	Category() string
}
