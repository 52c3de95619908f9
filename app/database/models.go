package database

import (
	"time"
)

// Run is one completed harvest run for a product.
type Run struct {
	ID             int64
	Product        string
	StartedAt      time.Time
	Duration       time.Duration
	Listed         int // entries discovered in the sitemap
	Batch          int // entries selected for this run
	Fetched        int // entries fetched, flattened and committed
	Skipped        int // entries skipped on fetch/flatten failure
	TotalProcessed int // processed-set size after the run
}
