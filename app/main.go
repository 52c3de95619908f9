package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"prix-harvest/app/api"
	"prix-harvest/app/cfg"
	"prix-harvest/app/database"
	"prix-harvest/app/product"
	"prix-harvest/app/scraper"
	"prix-harvest/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting Prix Harvest", "version", appCfg.Version)

	configCache := product.NewConfigCache(appCfg.ProductsDir)
	if err := configCache.Run(); err != nil {
		slog.Error("Failed to load product configurations", "error", err)
		os.Exit(1)
	}
	slog.Info("Product configurations loaded", "count", configCache.GetConfigCount())

	client, err := scraper.NewClient(scraper.Options{
		UserAgent: appCfg.UserAgent,
		Timeout:   time.Duration(appCfg.HTTPTimeout) * time.Second,
	})
	if err != nil {
		slog.Error("Failed to build HTTP client", "error", err)
		os.Exit(1)
	}

	db, err := database.NewConnection(filepath.Join(appCfg.DataDir, "harvest.db"))
	if err != nil {
		slog.Error("Failed to open run ledger", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Run ledger ready", "schema_version", version, "dirty", dirty)

	runRepo := database.NewRunRepository(db)
	flattener := product.NewFlattener()

	if appCfg.Daemon {
		runDaemon(appCfg, configCache, client, flattener, runRepo)
		return
	}

	runOnce(appCfg, configCache, client, flattener, runRepo)
}

// runOnce harvests a single batch for the selected product type and exits.
func runOnce(appCfg *cfg.Cfg, configCache *product.ConfigCache, client *scraper.Client,
	flattener *product.Flattener, runRepo database.RunRepository) {
	config := configCache.Resolve(appCfg.Product)

	// Command-line overrides win over the per-product configuration file.
	if appCfg.BatchSize > 0 {
		config.Settings.BatchSize = appCfg.BatchSize
	}
	if appCfg.RequestDelay >= 0 {
		config.Settings.RequestDelay = appCfg.RequestDelay
	}

	task := tasks.NewHarvestTask(config.Name, config, client, flattener, runRepo, appCfg.DataDir)
	task.Start()

	if err := task.Execute(context.Background()); err != nil {
		slog.Error("Harvest failed", "product", config.Name, "error", err)
		os.Exit(1)
	}
}

// runDaemon keeps harvesting on an interval and serves the status API.
func runDaemon(appCfg *cfg.Cfg, configCache *product.ConfigCache, client *scraper.Client,
	flattener *product.Flattener, runRepo database.RunRepository) {
	// With no configuration files present, fall back to the built-in
	// configuration for the selected product type.
	if configCache.GetConfigCount() == 0 {
		configCache.Register(product.Default(appCfg.Product))
		slog.Info("No product configurations found, using built-in defaults", "product", appCfg.Product)
	}

	scheduler := tasks.NewScheduler(appCfg, configCache, client, flattener, runRepo)
	scheduler.Start()
	defer scheduler.Stop()
	slog.Info("Background scheduler started", "workers", appCfg.WorkerCount, "interval", appCfg.SchedulerInterval)

	apiHandler := api.NewHandler(configCache, runRepo, client, flattener, scheduler, appCfg.DataDir, appCfg.Version)
	server := api.NewServer(apiHandler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("HTTP server error", "error", err)
	}

	slog.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	// Scheduler is stopped via defer
	slog.Info("Shutdown complete")
}
