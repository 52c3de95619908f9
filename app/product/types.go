package product

import (
	"fmt"
	"path/filepath"
	"time"
)

// Record is one product reduced to a single level of column-name to value.
// Values are whatever the JSON payload carried (string, float64, bool or
// nil); list-valued fields are stored as serialized JSON text. Besides the
// fixed core fields the column set varies per record, which is why this is a
// map and not a struct.
type Record map[string]any

// Core fields present in every record.
const (
	FieldName            = "Name"
	FieldBrand           = "Brand"
	FieldPrice           = "Price"
	FieldPriceDrop       = "Price Drop"
	FieldPriceDropAmount = "Price Drop Amount"
	FieldLastModified    = "Last modified"
	FieldRelatedItems    = "Related Items"
)

// CoreFields returns the column names every record carries.
func CoreFields() []string {
	return []string{
		FieldName,
		FieldBrand,
		FieldPrice,
		FieldPriceDrop,
		FieldPriceDropAmount,
		FieldLastModified,
		FieldRelatedItems,
	}
}

// Configuration types

type Config struct {
	Name        string         // Derived from filename (without .yml extension) or the product-type selector
	SitemapURL  string         `yaml:"sitemap_url"`
	APIBase     string         `yaml:"api_base"`
	PathSegment string         `yaml:"path_segment"` // defaults to Name
	Settings    ConfigSettings `yaml:"settings"`
}

type ConfigSettings struct {
	Enabled      bool `yaml:"enabled"`
	BatchSize    int  `yaml:"batch_size"`
	RequestDelay int  `yaml:"request_delay"` // seconds between fetches
	Timeout      int  `yaml:"timeout"`       // seconds
}

const (
	DefaultBatchSize    = 100
	DefaultRequestDelay = 1
	DefaultTimeout      = 30
)

// Default builds the built-in configuration for a product type, matching the
// site's layout: sitemap per product type, shared page-info API.
func Default(productType string) *Config {
	return &Config{
		Name:        productType,
		SitemapURL:  fmt.Sprintf("https://www.smartprix.com/sitemaps/in/%s.xml", productType),
		APIBase:     "https://www.smartprix.com/ui/api/page-info?k=",
		PathSegment: productType,
		Settings: ConfigSettings{
			Enabled:      true,
			BatchSize:    DefaultBatchSize,
			RequestDelay: DefaultRequestDelay,
			Timeout:      DefaultTimeout,
		},
	}
}

// ProgressPath is the processed-set artifact for this product.
func (c *Config) ProgressPath(dataDir string) string {
	return filepath.Join(dataDir, c.Name, c.Name+"_progress.json")
}

// StorePath is the tabular store artifact for this product.
func (c *Config) StorePath(dataDir string) string {
	return filepath.Join(dataDir, c.Name, c.Name+".csv")
}

func (s *ConfigSettings) GetRequestDelay() time.Duration {
	if s.RequestDelay <= 0 {
		return 0
	}
	return time.Duration(s.RequestDelay) * time.Second
}

func (s *ConfigSettings) GetTimeout() time.Duration {
	if s.Timeout <= 0 {
		return DefaultTimeout * time.Second
	}
	return time.Duration(s.Timeout) * time.Second
}
