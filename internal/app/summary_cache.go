package app

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/yourusername/gdl-bridge/internal/domain"
)

// SummaryCache keeps the most recent extraction summaries by job ID so
// clients that lost the synchronous response can still fetch the result.
type SummaryCache struct {
	inner *lru.LRU[string, *domain.ExtractionSummary]
}

// NewSummaryCache creates a cache holding at most size summaries for ttl.
// A zero ttl keeps entries until they are evicted by size.
func NewSummaryCache(size int, ttl time.Duration) *SummaryCache {
	if size <= 0 {
		size = 128
	}
	return &SummaryCache{
		inner: lru.NewLRU[string, *domain.ExtractionSummary](size, nil, ttl),
	}
}

// Add stores the summary of the job for url
func (c *SummaryCache) Add(url string, summary *domain.ExtractionSummary) {
	c.inner.Add(domain.JobID(url), summary)
}

// Get returns the cached summary for a job ID
func (c *SummaryCache) Get(jobID string) (*domain.ExtractionSummary, bool) {
	return c.inner.Get(jobID)
}

// Len returns the number of cached summaries
func (c *SummaryCache) Len() int {
	return c.inner.Len()
}
