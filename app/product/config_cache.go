package product

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// ConfigCache loads and caches per-product configurations from a directory
// of YAML files. Products without a file fall back to the built-in defaults
// via Resolve.
type ConfigCache struct {
	productsDir string
	cache       map[string]*Config
	mu          sync.RWMutex
}

func NewConfigCache(productsDir string) *ConfigCache {
	return &ConfigCache{
		productsDir: productsDir,
		cache:       make(map[string]*Config),
	}
}

func (cc *ConfigCache) Run() error {
	if _, err := os.Stat(cc.productsDir); os.IsNotExist(err) {
		return nil
	}

	files, err := filepath.Glob(filepath.Join(cc.productsDir, "*.yml"))
	if err != nil {
		return fmt.Errorf("failed to find YML files: %w", err)
	}

	for _, file := range files {
		productName := strings.TrimSuffix(filepath.Base(file), ".yml")

		config, err := cc.LoadConfig(productName)
		if err != nil {
			return fmt.Errorf("error loading %s: %w", file, err)
		}

		slog.Debug("Configuration loaded", "product", productName, "enabled", config.Settings.Enabled, "batch_size", config.Settings.BatchSize)
	}

	return nil
}

func (cc *ConfigCache) LoadConfig(productName string) (*Config, error) {
	configFile := filepath.Join(cc.productsDir, productName+".yml")

	config, err := cc.parseConfig(configFile)
	if err != nil {
		return nil, err
	}

	config.Name = productName
	cc.setDefaults(config)

	if err := cc.validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configFile, err)
	}

	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.cache[config.Name] = config

	return config, nil
}

// Register adds a configuration built in code, typically a Default for a
// product type without a YAML file.
func (cc *ConfigCache) Register(config *Config) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.cache[config.Name] = config
}

func (cc *ConfigCache) GetConfig(productName string) (*Config, error) {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	config, ok := cc.cache[productName]
	if !ok {
		return nil, fmt.Errorf("product config with name '%s' not found", productName)
	}
	return config, nil
}

// Resolve returns the cached configuration for a product, registering the
// built-in defaults when none was loaded.
func (cc *ConfigCache) Resolve(productName string) *Config {
	if config, err := cc.GetConfig(productName); err == nil {
		return config
	}

	slog.Debug("No configuration file for product, using defaults", "product", productName)
	config := Default(productName)
	cc.Register(config)
	return config
}

func (cc *ConfigCache) GetConfigs() map[string]*Config {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	configsCopy := make(map[string]*Config, len(cc.cache))
	for k, v := range cc.cache {
		configsCopy[k] = v
	}
	return configsCopy
}

func (cc *ConfigCache) GetEnabledConfigs() map[string]*Config {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	enabledConfigs := make(map[string]*Config)
	for k, v := range cc.cache {
		if v.Settings.Enabled {
			enabledConfigs[k] = v
		}
	}
	return enabledConfigs
}

func (cc *ConfigCache) GetConfigCount() int {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	return len(cc.cache)
}

func (cc *ConfigCache) parseConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return &config, nil
}

func (cc *ConfigCache) setDefaults(config *Config) {
	defaults := Default(config.Name)

	if config.SitemapURL == "" {
		config.SitemapURL = defaults.SitemapURL
	}
	if config.APIBase == "" {
		config.APIBase = defaults.APIBase
	}
	if config.PathSegment == "" {
		config.PathSegment = config.Name
	}
	if config.Settings.BatchSize == 0 {
		config.Settings.BatchSize = DefaultBatchSize
	}
	if config.Settings.RequestDelay == 0 {
		config.Settings.RequestDelay = DefaultRequestDelay
	}
	if config.Settings.Timeout == 0 {
		config.Settings.Timeout = DefaultTimeout
	}
}

func (cc *ConfigCache) validateConfig(config *Config) error {
	if config.SitemapURL == "" {
		return fmt.Errorf("sitemap URL is required")
	}
	if config.APIBase == "" {
		return fmt.Errorf("API base is required")
	}
	if config.Settings.BatchSize < 0 {
		return fmt.Errorf("batch size must be non-negative")
	}
	if config.Settings.RequestDelay < 0 {
		return fmt.Errorf("request delay must be non-negative")
	}
	if config.Settings.Timeout < 0 {
		return fmt.Errorf("timeout must be non-negative")
	}
	return nil
}
