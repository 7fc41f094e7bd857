package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("POSTGRES_URL", "")
	t.Setenv("SEASON_START_YEAR", "2023")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, time.Second, cfg.ScrapeDelay)
	assert.Equal(t, time.October, cfg.SeasonStartMonth)
	assert.Equal(t, "2023-24", cfg.Season().String())
	assert.Equal(t, 8000, cfg.APIPort)
	assert.True(t, cfg.CacheEnabled)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 8, cfg.BacklogMaxAttempts)
	assert.Error(t, cfg.RequireDatabase())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/courtside")
	t.Setenv("SCRAPE_DELAY_MS", "250")
	t.Setenv("CORS_ALLOW_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("SEASON_START_MONTH", "9")
	t.Setenv("RATE_LIMIT_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.NoError(t, cfg.RequireDatabase())
	assert.Equal(t, 250*time.Millisecond, cfg.ScrapeDelay)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowOrigins)
	assert.Equal(t, time.September, cfg.SeasonStartMonth)
	assert.False(t, cfg.RateLimitEnabled)
}

func TestLoad_InvalidSeasonMonth(t *testing.T) {
	t.Setenv("SEASON_START_MONTH", "13")
	_, err := Load()
	assert.Error(t, err)
}

func TestDefaultSeasonYear(t *testing.T) {
	assert.Equal(t, 2023, defaultSeasonYear(time.Date(2023, 11, 1, 0, 0, 0, 0, time.UTC), time.October))
	assert.Equal(t, 2023, defaultSeasonYear(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), time.October))
}
