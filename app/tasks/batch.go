package tasks

import (
	"prix-harvest/app/progress"
	"prix-harvest/app/sitemap"
)

// NextBatch selects the work for one run: entries whose identifiers are not
// yet in the processed set, in feed order, truncated to limit. An empty
// result means the run has nothing to do; it is not an error.
func NextBatch(entries []sitemap.Entry, processed *progress.Store, limit int) []sitemap.Entry {
	if limit <= 0 {
		return nil
	}

	batch := make([]sitemap.Entry, 0, limit)
	for _, entry := range entries {
		if processed.Contains(entry.Identifier) {
			continue
		}
		batch = append(batch, entry)
		if len(batch) == limit {
			break
		}
	}
	return batch
}
