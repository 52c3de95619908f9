package database

type RunRepository interface {
	InsertRun(run Run) error
	GetRecentRuns(product string, limit int) ([]Run, error)
	GetRunStats(product string) (RunStats, error)
}

// RunStats aggregates a product's ledger history.
type RunStats struct {
	Runs         int
	TotalFetched int
	TotalSkipped int
}
