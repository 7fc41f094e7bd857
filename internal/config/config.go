// Package config provides centralized configuration loaded from environment
// variables. Shared by both cmd/api and cmd/ingest.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/albapepper/courtside-data/internal/provider"
)

// --------------------------------------------------------------------------
// Table names, matching the schema
// --------------------------------------------------------------------------

const (
	TeamsTable       = "teams"
	PlayersTable     = "players"
	GamesTable       = "games"
	PlayerStatsTable = "player_stats"
)

// --------------------------------------------------------------------------
// Config is populated from environment variables.
// --------------------------------------------------------------------------

type Config struct {
	// Database
	DatabaseURL    string
	DBPoolMinConns int
	DBPoolMaxConns int
	DBPoolMaxLife  time.Duration

	// API server
	APIHost     string
	APIPort     int
	Environment string // development, staging, production
	Debug       bool

	// CORS
	CORSAllowOrigins []string

	// Response cache (read API)
	CacheEnabled bool
	CacheTTL     time.Duration

	// Rate limiting (read API)
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Season
	SeasonStartYear  int
	SeasonStartMonth time.Month

	// Scraping
	ScrapeDelay             time.Duration
	ScrapeRequestsPerMinute int
	FetchTimeout            time.Duration
	FetchBreakerFailures    int
	BacklogMax              int
	BacklogMaxAttempts      int
	ScheduleFreshness       time.Duration

	// Sources
	ESPNBaseURL    string
	NBAScheduleURL string
	NBABaseURL     string

	// Snapshot and schedule
	SnapshotPath string
	SyncSchedule string
}

// Load reads configuration from environment variables with sensible defaults.
// A missing database URL is not an error here; commands that need the
// database call RequireDatabase.
func Load() (*Config, error) {
	month := envInt("SEASON_START_MONTH", int(time.October))
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("SEASON_START_MONTH must be 1-12, got %d", month)
	}

	return &Config{
		DatabaseURL:    envOr("DATABASE_URL", envOr("POSTGRES_URL", "")),
		DBPoolMinConns: envInt("DB_POOL_MIN_CONNS", 2),
		DBPoolMaxConns: envInt("DB_POOL_MAX_CONNS", 10),
		DBPoolMaxLife:  time.Duration(envInt("DB_POOL_MAX_LIFE_MINUTES", 30)) * time.Minute,

		APIHost:     envOr("API_HOST", "0.0.0.0"),
		APIPort:     envInt("API_PORT", envInt("PORT", 8000)),
		Environment: envOr("ENVIRONMENT", "development"),
		Debug:       envBool("DEBUG", false),

		CORSAllowOrigins: envList("CORS_ALLOW_ORIGINS", []string{
			"http://localhost:3000",
			"http://localhost:5173",
		}),

		CacheEnabled: envBool("CACHE_ENABLED", true),
		CacheTTL:     time.Duration(envInt("CACHE_TTL_SECONDS", 300)) * time.Second,

		RateLimitEnabled:  envBool("RATE_LIMIT_ENABLED", true),
		RateLimitRequests: envInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   time.Duration(envInt("RATE_LIMIT_WINDOW", 60)) * time.Second,

		SeasonStartYear:  envInt("SEASON_START_YEAR", defaultSeasonYear(time.Now(), time.Month(month))),
		SeasonStartMonth: time.Month(month),

		ScrapeDelay:             time.Duration(envInt("SCRAPE_DELAY_MS", 1000)) * time.Millisecond,
		ScrapeRequestsPerMinute: envInt("SCRAPE_REQUESTS_PER_MINUTE", 60),
		FetchTimeout:            time.Duration(envInt("FETCH_TIMEOUT_SECONDS", 30)) * time.Second,
		FetchBreakerFailures:    envInt("FETCH_BREAKER_FAILURES", 5),
		BacklogMax:              envInt("BACKLOG_MAX", 50),
		BacklogMaxAttempts:      envInt("BACKLOG_MAX_ATTEMPTS", 8),
		ScheduleFreshness:       time.Duration(envInt("SCHEDULE_FRESHNESS_HOURS", 24)) * time.Hour,

		ESPNBaseURL:    envOr("ESPN_BASE_URL", ""),
		NBAScheduleURL: envOr("NBA_SCHEDULE_URL", ""),
		NBABaseURL:     envOr("NBA_BASE_URL", ""),

		SnapshotPath: envOr("SNAPSHOT_PATH", "data/nba_games.json"),
		SyncSchedule: envOr("SYNC_SCHEDULE", "0 */6 * * *"),
	}, nil
}

// RequireDatabase returns an error when no database URL is configured.
func (c *Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL or POSTGRES_URL must be set")
	}
	return nil
}

// Season returns the configured season.
func (c *Config) Season() provider.Season {
	return provider.Season{StartYear: c.SeasonStartYear, StartMonth: c.SeasonStartMonth}
}

// IsProduction returns true if running in production environment.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// defaultSeasonYear picks the season in progress at now: before the start
// month the previous year's season is still running.
func defaultSeasonYear(now time.Time, startMonth time.Month) int {
	if now.Month() >= startMonth {
		return now.Year()
	}
	return now.Year() - 1
}

// --------------------------------------------------------------------------
// Env helpers
// --------------------------------------------------------------------------

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}
