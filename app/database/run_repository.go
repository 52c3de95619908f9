package database

import (
	"database/sql"
	"fmt"
	"time"
)

var _ RunRepository = (*SQLRunRepository)(nil)

// SQLRunRepository persists run summaries in the sqlite ledger.
type SQLRunRepository struct {
	db *DB
}

func NewRunRepository(db *DB) *SQLRunRepository {
	return &SQLRunRepository{db: db}
}

func (r *SQLRunRepository) InsertRun(run Run) error {
	_, err := r.db.Exec(`
		INSERT INTO runs (product, started_at, duration_ms, listed, batch, fetched, skipped, total_processed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, run.Product, run.StartedAt.UTC(), run.Duration.Milliseconds(),
		run.Listed, run.Batch, run.Fetched, run.Skipped, run.TotalProcessed)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

func (r *SQLRunRepository) GetRecentRuns(product string, limit int) ([]Run, error) {
	rows, err := r.db.Query(`
		SELECT id, product, started_at, duration_ms, listed, batch, fetched, skipped, total_processed
		FROM runs
		WHERE product = ?
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, product, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var durationMs int64
		if err := rows.Scan(&run.ID, &run.Product, &run.StartedAt, &durationMs,
			&run.Listed, &run.Batch, &run.Fetched, &run.Skipped, &run.TotalProcessed); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.Duration = time.Duration(durationMs) * time.Millisecond
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}

	return runs, nil
}

func (r *SQLRunRepository) GetRunStats(product string) (RunStats, error) {
	var stats RunStats
	err := r.db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(fetched), 0), COALESCE(SUM(skipped), 0)
		FROM runs
		WHERE product = ?
	`, product).Scan(&stats.Runs, &stats.TotalFetched, &stats.TotalSkipped)
	if err != nil && err != sql.ErrNoRows {
		return RunStats{}, fmt.Errorf("failed to query run stats: %w", err)
	}
	return stats, nil
}
