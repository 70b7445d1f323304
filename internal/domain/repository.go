package domain

import "time"

// JobRecord is the persisted history entry of one download run
type JobRecord struct {
	RunID        string     `json:"run_id" gorm:"primaryKey"`
	JobID        string     `json:"job_id" gorm:"not null;index"`
	URL          string     `json:"url" gorm:"not null"`
	Extractor    string     `json:"extractor,omitempty"`
	State        JobState   `json:"state" gorm:"not null;index"`
	ExitStatus   int        `json:"exit_status"`
	ErrorMessage string     `json:"error_message,omitempty"`
	FileCount    int        `json:"file_count"`
	CreatedAt    time.Time  `json:"created_at" gorm:"autoCreateTime"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}

// TableName specifies the table name for GORM
func (JobRecord) TableName() string {
	return "jobs"
}

// MediaRecord is a downloaded file indexed from a summary
type MediaRecord struct {
	Path      string    `json:"path" gorm:"primaryKey"`
	Hash      string    `json:"hash" gorm:"index"`
	RunID     string    `json:"run_id" gorm:"index"`
	URL       string    `json:"url"`
	Extractor string    `json:"extractor"`
	Metadata  string    `json:"metadata,omitempty" gorm:"type:text"` // JSON metadata
	AddedAt   time.Time `json:"added_at" gorm:"autoCreateTime"`
}

// TableName specifies the table name for GORM
func (MediaRecord) TableName() string {
	return "media"
}

// TagRecord is a unique tag name
type TagRecord struct {
	Name string `json:"name" gorm:"primaryKey"`
}

// TableName specifies the table name for GORM
func (TagRecord) TableName() string {
	return "tags"
}

// MediaTag links a media hash to a tag with the category it came from
type MediaTag struct {
	Hash       string `json:"hash" gorm:"primaryKey"`
	TagName    string `json:"tag_name" gorm:"primaryKey"`
	Source     string `json:"source"`
	SourceType string `json:"source_type"`
}

// TableName specifies the table name for GORM
func (MediaTag) TableName() string {
	return "media_tags"
}

// JobRepository defines the interface for job history persistence
type JobRepository interface {
	// SaveJob inserts or updates a job record
	SaveJob(record *JobRecord) error

	// FindJob finds a job record by run ID
	FindJob(runID string) (*JobRecord, error)

	// ListJobs lists job records newest first, optionally filtered by state
	ListJobs(state JobState, limit int) ([]*JobRecord, error)

	// IndexMedia stores the media of a summary and its tags
	IndexMedia(media []*MediaRecord, tags map[string][]ExtractedTag) error

	// TagsForMedia returns the tags attached to a media hash
	TagsForMedia(hash string) ([]MediaTag, error)

	// GetStats returns job statistics
	GetStats() (*JobStats, error)
}

// JobStats represents job history statistics
type JobStats struct {
	Total     int64 `json:"total"`
	Running   int64 `json:"running"`
	Succeeded int64 `json:"succeeded"`
	Failed    int64 `json:"failed"`
	Media     int64 `json:"media"`
	Tags      int64 `json:"tags"`
}
