package infrastructure

import (
	"errors"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/yourusername/gdl-bridge/internal/domain"
)

// SQLiteJobRepository implements JobRepository using SQLite
type SQLiteJobRepository struct {
	db *gorm.DB
}

// NewSQLiteJobRepository opens the database at dbPath and migrates the schema
func NewSQLiteJobRepository(dbPath string) (*SQLiteJobRepository, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(
		&domain.JobRecord{},
		&domain.MediaRecord{},
		&domain.TagRecord{},
		&domain.MediaTag{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &SQLiteJobRepository{db: db}, nil
}

// SaveJob inserts or updates a job record by run ID
func (r *SQLiteJobRepository) SaveJob(record *domain.JobRecord) error {
	return r.db.Save(record).Error
}

// FindJob finds a job record by run ID. Returns nil if not found.
func (r *SQLiteJobRepository) FindJob(runID string) (*domain.JobRecord, error) {
	var record domain.JobRecord
	err := r.db.First(&record, "run_id = ?", runID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// ListJobs lists job records newest first. An empty state lists all of them,
// a non-positive limit disables the limit.
func (r *SQLiteJobRepository) ListJobs(state domain.JobState, limit int) ([]*domain.JobRecord, error) {
	var records []*domain.JobRecord
	query := r.db.Order("created_at DESC")
	if state != "" {
		query = query.Where("state = ?", state)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&records).Error
	return records, err
}

// IndexMedia upserts media records by path and attaches tags to their hashes
func (r *SQLiteJobRepository) IndexMedia(media []*domain.MediaRecord, tags map[string][]domain.ExtractedTag) error {
	if len(media) == 0 {
		return nil
	}

	extractors := make(map[string]string, len(media))
	for _, m := range media {
		if m.Hash != "" {
			extractors[m.Hash] = m.Extractor
		}
	}

	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "path"}},
			DoUpdates: clause.AssignmentColumns([]string{"hash", "run_id", "url", "extractor", "metadata"}),
		}).Create(&media).Error; err != nil {
			return fmt.Errorf("failed to save media: %w", err)
		}

		var tagRecords []domain.TagRecord
		var links []domain.MediaTag
		seen := make(map[string]bool)
		for hash, extracted := range tags {
			for _, tag := range extracted {
				if !seen[tag.Name] {
					seen[tag.Name] = true
					tagRecords = append(tagRecords, domain.TagRecord{Name: tag.Name})
				}
				links = append(links, domain.MediaTag{
					Hash:       hash,
					TagName:    tag.Name,
					Source:     extractors[hash],
					SourceType: tag.Type,
				})
			}
		}
		if len(tagRecords) == 0 {
			return nil
		}

		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&tagRecords).Error; err != nil {
			return fmt.Errorf("failed to save tags: %w", err)
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&links).Error; err != nil {
			return fmt.Errorf("failed to link tags: %w", err)
		}
		return nil
	})
}

// TagsForMedia returns the tags attached to a media hash
func (r *SQLiteJobRepository) TagsForMedia(hash string) ([]domain.MediaTag, error) {
	var tags []domain.MediaTag
	err := r.db.Where("hash = ?", hash).Order("tag_name").Find(&tags).Error
	return tags, err
}

// GetStats returns job history statistics
func (r *SQLiteJobRepository) GetStats() (*domain.JobStats, error) {
	stats := &domain.JobStats{}

	if err := r.db.Model(&domain.JobRecord{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}

	stateCounts := []struct {
		State domain.JobState
		Count int64
	}{}

	if err := r.db.Model(&domain.JobRecord{}).
		Select("state, count(*) as count").
		Group("state").
		Scan(&stateCounts).Error; err != nil {
		return nil, err
	}

	for _, sc := range stateCounts {
		switch sc.State {
		case domain.JobRunning:
			stats.Running = sc.Count
		case domain.JobSucceeded:
			stats.Succeeded = sc.Count
		case domain.JobFailed:
			stats.Failed = sc.Count
		}
	}

	if err := r.db.Model(&domain.MediaRecord{}).Count(&stats.Media).Error; err != nil {
		return nil, err
	}
	if err := r.db.Model(&domain.TagRecord{}).Count(&stats.Tags).Error; err != nil {
		return nil, err
	}

	return stats, nil
}

// Close closes the database connection
func (r *SQLiteJobRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
