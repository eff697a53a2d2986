package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "5250", cfg.Server.Port)
	assert.Equal(t, "database/compset.db", cfg.Database.Path)
	assert.Equal(t, 2, cfg.BatchProcessing.ProcessorCount)
	assert.Equal(t, 3, cfg.BatchProcessing.MaxRetries)
	assert.Equal(t, 2000, cfg.BatchProcessing.MaxQueuedUnits)
	assert.Equal(t, 2.0, cfg.Analysis.MarketTolerancePercent)
	assert.Equal(t, "sqlite", cfg.RelationshipStore)
	assert.False(t, cfg.Geocoding.Enabled)
	assert.Equal(t, time.Second, cfg.Geocoding.MinInterval)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "8080")
	t.Setenv("RELATIONSHIP_STORE", "memory")
	t.Setenv("ANALYSIS_MARKET_TOLERANCE_PCT", "5")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test,http://b.test")
	t.Setenv("GEOCODER_ENABLED", "true")
	t.Setenv("GEOCODER_MIN_INTERVAL", "250ms")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "memory", cfg.RelationshipStore)
	assert.Equal(t, 5.0, cfg.Analysis.MarketTolerancePercent)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.AllowedOrigins)
	assert.True(t, cfg.Geocoding.Enabled)
	assert.Equal(t, 250*time.Millisecond, cfg.Geocoding.MinInterval)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "Unknown relationship store",
			mutate:  func(c *Config) { c.RelationshipStore = "redis" },
			wantErr: "RELATIONSHIP_STORE",
		},
		{
			name:    "Negative tolerance",
			mutate:  func(c *Config) { c.Analysis.MarketTolerancePercent = -1 },
			wantErr: "ANALYSIS_MARKET_TOLERANCE_PCT",
		},
		{
			name:    "No processors",
			mutate:  func(c *Config) { c.BatchProcessing.ProcessorCount = 0 },
			wantErr: "BATCH_PROCESSOR_COUNT",
		},
		{
			name:    "Unit budget below batch size",
			mutate:  func(c *Config) { c.BatchProcessing.MaxQueuedUnits = c.BatchProcessing.MaxBatchSize - 1 },
			wantErr: "BATCH_MAX_QUEUED_UNITS",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadConfig()
			require.NoError(t, err)

			tt.mutate(cfg)
			err = cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
