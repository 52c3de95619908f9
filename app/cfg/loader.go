package cfg

import (
	"cmp"
	"fmt"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Harvesting configuration
	DataDir      string `long:"data-dir" env:"DATA_DIR" default:"./data" description:"Directory holding per-product progress and store artifacts"`
	ProductsDir  string `long:"products-dir" env:"PRODUCTS_DIR" default:"./products" description:"Directory containing per-product configuration files"`
	Product      string `long:"product" env:"PRODUCT_TYPE" default:"mobiles" description:"Product type to harvest in one-shot mode"`
	BatchSize    int    `long:"batch-size" env:"BATCH_SIZE" description:"Override the product's batch size (0 keeps the configured value)"`
	RequestDelay int    `long:"request-delay" env:"REQUEST_DELAY" default:"-1" description:"Override the delay between fetches in seconds (-1 keeps the configured value)"`
	HTTPTimeout  int    `long:"http-timeout" env:"HTTP_TIMEOUT" default:"30" description:"HTTP client timeout in seconds"`

	// Daemon configuration
	Daemon            bool   `long:"daemon" env:"DAEMON" description:"Keep running and re-harvest on an interval instead of a single batch"`
	SchedulerInterval int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"86400" description:"Scheduler interval in seconds (daemon mode)"`
	WorkerCount       int    `long:"worker-count" env:"WORKER_COUNT" default:"1" description:"Number of background workers for harvest tasks (daemon mode)"`
	Port              string `long:"port" env:"PORT" default:"8080" description:"HTTP server port (daemon mode)"`
	APIAccessKey      string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36" description:"User agent string for HTTP requests"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DataDir:           raw.DataDir,
		ProductsDir:       raw.ProductsDir,
		Product:           raw.Product,
		BatchSize:         raw.BatchSize,
		RequestDelay:      raw.RequestDelay,
		HTTPTimeout:       raw.HTTPTimeout,
		Daemon:            raw.Daemon,
		SchedulerInterval: raw.SchedulerInterval,
		WorkerCount:       raw.WorkerCount,
		Port:              raw.Port,
		APIAccessKey:      raw.APIAccessKey,
		UserAgent:         raw.UserAgent,
		Debug:             raw.Debug,
		Version:           GetVersion(),
	}

	return cfg, nil
}
