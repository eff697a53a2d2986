package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
)

type Config struct {
	Server struct {
		Port string `env:"SERVER_PORT" envDefault:"5250"`

		// Origins allowed to call the API from a browser
		AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173"`
	}

	Database struct {
		Path string `env:"DATABASE_PATH" envDefault:"database/compset.db"`
	}

	// BatchProcessing configuration for unit imports
	BatchProcessing struct {
		// Maximum units per import batch, and the depth of the import queue
		MaxBatchSize int `env:"BATCH_MAX_SIZE" envDefault:"100"`

		// Maximum units waiting in the import queue across all batches
		MaxQueuedUnits int `env:"BATCH_MAX_QUEUED_UNITS" envDefault:"2000"`

		// Number of concurrent batch processors
		ProcessorCount int `env:"BATCH_PROCESSOR_COUNT" envDefault:"2"`

		// Maximum number of retries for failed batches
		MaxRetries int `env:"BATCH_MAX_RETRIES" envDefault:"3"`

		// Delay between retries in seconds
		RetryDelay int `env:"BATCH_RETRY_DELAY" envDefault:"5"`
	}

	Analysis struct {
		// Width of the "at market" band, in percent of the competitor mean rent
		MarketTolerancePercent float64 `env:"ANALYSIS_MARKET_TOLERANCE_PCT" envDefault:"2.0"`
	}

	// Geocoding fills in coordinates of properties created with an address only
	Geocoding struct {
		Enabled   bool   `env:"GEOCODER_ENABLED" envDefault:"false"`
		URL       string `env:"GEOCODER_URL" envDefault:"https://nominatim.openstreetmap.org"`
		UserAgent string `env:"GEOCODER_USER_AGENT" envDefault:"CompSet Analytics/1.0"`
		CacheDir  string `env:"GEOCODER_CACHE_DIR" envDefault:"database/geocode_cache"`

		// Minimum time between upstream requests (Nominatim allows one per second)
		MinInterval time.Duration `env:"GEOCODER_MIN_INTERVAL" envDefault:"1s"`
	}

	// RelationshipStore selects the relationship backend: "sqlite" or "memory"
	RelationshipStore string `env:"RELATIONSHIP_STORE" envDefault:"sqlite"`
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot run with
func (c *Config) Validate() error {
	switch c.RelationshipStore {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("invalid RELATIONSHIP_STORE %q: must be sqlite or memory", c.RelationshipStore)
	}
	if c.Analysis.MarketTolerancePercent < 0 {
		return fmt.Errorf("invalid ANALYSIS_MARKET_TOLERANCE_PCT %v: must not be negative", c.Analysis.MarketTolerancePercent)
	}
	if c.BatchProcessing.ProcessorCount < 1 {
		return fmt.Errorf("invalid BATCH_PROCESSOR_COUNT %d: must be at least 1", c.BatchProcessing.ProcessorCount)
	}
	if c.BatchProcessing.MaxBatchSize < 1 {
		return fmt.Errorf("invalid BATCH_MAX_SIZE %d: must be at least 1", c.BatchProcessing.MaxBatchSize)
	}
	if c.BatchProcessing.MaxQueuedUnits < c.BatchProcessing.MaxBatchSize {
		return fmt.Errorf("invalid BATCH_MAX_QUEUED_UNITS %d: must be at least BATCH_MAX_SIZE (%d)", c.BatchProcessing.MaxQueuedUnits, c.BatchProcessing.MaxBatchSize)
	}
	return nil
}
