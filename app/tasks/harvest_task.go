package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"prix-harvest/app/database"
	"prix-harvest/app/product"
	"prix-harvest/app/progress"
	"prix-harvest/app/scraper"
	"prix-harvest/app/sitemap"
	"prix-harvest/app/tabular"
)

// HarvestTask runs one batch for one product: list the sitemap, diff against
// the processed set, fetch and flatten each selected entry, then commit the
// accumulated rows and the updated set. Re-invoking the task later is the
// only retry mechanism; the task itself never re-fetches a failed entry
// within a run.
type HarvestTask struct {
	Task
	Config    *product.Config
	client    *scraper.Client
	flattener *product.Flattener
	runRepo   database.RunRepository
	dataDir   string
}

func NewHarvestTask(productName string, config *product.Config, client *scraper.Client,
	flattener *product.Flattener, runRepo database.RunRepository, dataDir string) *HarvestTask {
	return &HarvestTask{
		Task:      NewTask(TaskTypeHarvestProduct, productName),
		Config:    config,
		client:    client,
		flattener: flattener,
		runRepo:   runRepo,
		dataDir:   dataDir,
	}
}

// itemOutcome records what happened to one batch entry. Per-item failures
// are values, not errors that cross the task boundary.
type itemOutcome struct {
	entry  sitemap.Entry
	record product.Record // nil when skipped
	err    error
}

func (t *HarvestTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	parser, err := sitemap.NewParser(t.Config.PathSegment)
	if err != nil {
		return fmt.Errorf("failed to build sitemap parser: %w", err)
	}

	// The diff needs the full candidate set, so a listing failure is fatal
	// for the run.
	data, err := t.client.FetchSitemap(ctx, t.Config.SitemapURL)
	if err != nil {
		return fmt.Errorf("failed to fetch feed listing: %w", err)
	}

	entries, err := parser.Run(data)
	if err != nil {
		return fmt.Errorf("failed to parse feed listing: %w", err)
	}

	store := progress.NewStore(t.Config.ProgressPath(t.dataDir))
	if err := store.Load(); err != nil {
		return fmt.Errorf("failed to load progress: %w", err)
	}

	slog.Info("Feed listing ready", "product", t.ProductName, "listed", len(entries), "processed", store.Len())

	batch := NextBatch(entries, store, t.Config.Settings.BatchSize)
	if len(batch) == 0 {
		slog.Info("All entries already processed", "product", t.ProductName)
		return nil
	}

	records := make([]product.Record, 0, len(batch))
	skipped := 0

	for i, entry := range batch {
		if ctx.Err() != nil {
			// Stop fetching but still commit what was accumulated.
			slog.Warn("Batch interrupted", "product", t.ProductName, "completed", i, "batch", len(batch))
			break
		}

		outcome := t.processEntry(ctx, entry)
		if outcome.err != nil {
			// Not marked processed: the entry is retried on a later run.
			skipped++
			slog.Warn("Entry skipped", "product", t.ProductName, "identifier", entry.Identifier, "error", outcome.err)
		} else {
			records = append(records, outcome.record)
			store.Add(entry.Identifier)
			slog.Info("Entry fetched", "product", t.ProductName, "index", i+1, "batch", len(batch), "name", outcome.record[product.FieldName])
		}

		if i < len(batch)-1 {
			t.politenessDelay(ctx)
		}
	}

	if len(records) > 0 {
		sink := tabular.NewSink(t.Config.StorePath(t.dataDir))
		if err := sink.Append(records); err != nil {
			return fmt.Errorf("failed to append to store: %w", err)
		}

		if err := store.Persist(); err != nil {
			return fmt.Errorf("failed to persist progress: %w", err)
		}
	}

	t.recordRun(len(entries), len(batch), len(records), skipped, store.Len())

	slog.Info("Task completed",
		"type", string(TaskTypeHarvestProduct),
		"product", t.ProductName,
		"duration", t.GetDuration(),
		"listed", len(entries),
		"batch", len(batch),
		"fetched", len(records),
		"skipped", skipped,
		"processed_total", store.Len())

	return nil
}

func (t *HarvestTask) processEntry(ctx context.Context, entry sitemap.Entry) itemOutcome {
	doc, err := t.client.FetchProduct(ctx, t.Config.APIBase, entry.Identifier)
	if err != nil {
		return itemOutcome{entry: entry, err: err}
	}

	return itemOutcome{entry: entry, record: t.flattener.Run(doc, entry.LastModified)}
}

// politenessDelay bounds the outbound request rate between batch items.
func (t *HarvestTask) politenessDelay(ctx context.Context) {
	delay := t.Config.Settings.GetRequestDelay()
	if delay <= 0 {
		return
	}
	select {
	case <-time.After(delay):
	case <-ctx.Done():
	}
}

// recordRun writes the run summary to the ledger. Ledger failures are worth
// a warning but never fail a run that already committed its artifacts.
func (t *HarvestTask) recordRun(listed, batch, fetched, skipped, totalProcessed int) {
	if t.runRepo == nil {
		return
	}

	started := time.Now()
	if t.StartedAt != nil {
		started = *t.StartedAt
	}

	run := database.Run{
		Product:        t.ProductName,
		StartedAt:      started,
		Duration:       t.GetDuration(),
		Listed:         listed,
		Batch:          batch,
		Fetched:        fetched,
		Skipped:        skipped,
		TotalProcessed: totalProcessed,
	}
	if err := t.runRepo.InsertRun(run); err != nil {
		slog.Warn("Failed to record run in ledger", "product", t.ProductName, "error", err)
	}
}
