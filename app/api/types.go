package api

import (
	"prix-harvest/app/database"
	"prix-harvest/app/product"
	"prix-harvest/app/scraper"
	"prix-harvest/app/tasks"
)

type Handler struct {
	configCache *product.ConfigCache
	runRepo     database.RunRepository
	client      *scraper.Client
	flattener   *product.Flattener
	scheduler   tasks.TaskSchedulerInterface
	dataDir     string
	version     string
}
