package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"prix-harvest/app/database"
	"prix-harvest/app/product"
	"prix-harvest/app/progress"
	"prix-harvest/app/scraper"
	"prix-harvest/app/tabular"
	"prix-harvest/app/tasks"
)

func NewHandler(configCache *product.ConfigCache, runRepo database.RunRepository,
	client *scraper.Client, flattener *product.Flattener,
	scheduler tasks.TaskSchedulerInterface, dataDir string, version string) *Handler {
	return &Handler{
		configCache: configCache,
		runRepo:     runRepo,
		client:      client,
		flattener:   flattener,
		scheduler:   scheduler,
		dataDir:     dataDir,
		version:     version,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	health["loaded_configurations"] = h.configCache.GetConfigCount()

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	configs := h.configCache.GetConfigs()

	products := make([]map[string]interface{}, 0, len(configs))

	for _, productConfig := range configs {
		info := map[string]interface{}{
			"name":       productConfig.Name,
			"enabled":    productConfig.Settings.Enabled,
			"batch_size": productConfig.Settings.BatchSize,
		}

		store := progress.NewStore(productConfig.ProgressPath(h.dataDir))
		if err := store.Load(); err == nil {
			info["processed"] = store.Len()
		}

		sink := tabular.NewSink(productConfig.StorePath(h.dataDir))
		if count, err := sink.Count(); err == nil {
			info["rows"] = count
		}
		if columns, err := sink.Columns(); err == nil {
			info["columns"] = len(columns)
		}

		if h.runRepo != nil {
			if stats, err := h.runRepo.GetRunStats(productConfig.Name); err == nil {
				info["runs"] = stats.Runs
				info["total_fetched"] = stats.TotalFetched
				info["total_skipped"] = stats.TotalSkipped
			}
		}

		products = append(products, info)
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"products": products,
		"total":    len(products),
	})
}

func (h *Handler) APIListRuns(c *gin.Context) {
	productName := c.Query("product")
	if productName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing product query parameter"})
		return
	}

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit query parameter"})
			return
		}
		limit = parsed
	}

	runs, err := h.runRepo.GetRecentRuns(productName, limit)
	if err != nil {
		slog.Error("Database error", "operation", "get_recent_runs", "product", productName, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	entries := make([]map[string]interface{}, 0, len(runs))
	for _, run := range runs {
		entries = append(entries, map[string]interface{}{
			"id":              run.ID,
			"product":         run.Product,
			"started_at":      run.StartedAt,
			"duration":        run.Duration.String(),
			"listed":          run.Listed,
			"batch":           run.Batch,
			"fetched":         run.Fetched,
			"skipped":         run.Skipped,
			"total_processed": run.TotalProcessed,
		})
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"product": productName,
		"runs":    entries,
		"total":   len(entries),
	})
}

func (h *Handler) APIHarvestProduct(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing product name parameter"})
		return
	}

	productConfig, err := h.configCache.GetConfig(name)
	if err != nil {
		slog.Error("Product configuration not found", "product", name, "error", err)
		c.JSON(http.StatusNotFound, gin.H{"error": "Product configuration not found"})
		return
	}

	task := tasks.NewHarvestTask(name, productConfig, h.client, h.flattener, h.runRepo, h.dataDir)
	if err := h.scheduler.EnqueueTask(task); err != nil {
		slog.Error("Error enqueueing harvest task", "product", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to enqueue harvest task",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Harvest task enqueued successfully",
		"product": gin.H{
			"name":       name,
			"batch_size": productConfig.Settings.BatchSize,
		},
		"task": gin.H{
			"id":   task.ID,
			"type": task.Type,
		},
	})
}
