package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	corslib "github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/albapepper/courtside-data/internal/api/handler"
	"github.com/albapepper/courtside-data/internal/cache"
	"github.com/albapepper/courtside-data/internal/config"
	"github.com/albapepper/courtside-data/internal/listener"
	"github.com/albapepper/courtside-data/internal/store"
)

// NewRouter creates and configures the Chi router with all middleware and routes.
func NewRouter(reader store.Reader, appCache *cache.Cache, cfg *config.Config, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	// --- Middleware stack ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(TimingMiddleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	c := corslib.New(corslib.Options{
		AllowedOrigins:   cfg.CORSAllowOrigins,
		AllowedMethods:   []string{"GET", "HEAD", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Accept-Encoding", "Content-Type", "If-None-Match", "Cache-Control"},
		ExposedHeaders:   []string{"X-Process-Time", "X-Cache", "ETag"},
		AllowCredentials: false,
	})
	r.Use(c.Handler)

	if cfg.RateLimitEnabled {
		r.Use(RateLimitMiddleware(cfg.RateLimitRequests, cfg.RateLimitWindow))
	}

	h := handler.New(reader, appCache, cfg, logger)

	// --- Routes ---
	r.Get("/", h.Root)

	r.Route("/health", func(r chi.Router) {
		r.Get("/", h.HealthCheck)
		r.Get("/db", h.HealthCheckDB)
		r.Get("/cache", h.HealthCheckCache)
	})

	r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL("/docs/doc.json")))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/teams", h.ListTeams)
		r.Get("/teams/{teamID}/players", h.ListTeamPlayers)
		r.Get("/players/{playerID}/stats", h.ListPlayerStats)
		r.Get("/games/{gameID}/stats", h.ListGameStats)
	})

	return r
}

// CacheInvalidator returns a listener callback that drops the cached
// responses a write to table can affect.
func CacheInvalidator(c *cache.Cache, logger *slog.Logger) func(listener.Event) {
	return func(ev listener.Event) {
		var prefixes []string
		switch ev.Table {
		case config.TeamsTable:
			prefixes = []string{"teams"}
		case config.PlayersTable:
			prefixes = []string{"players:", "stats:"}
		case config.GamesTable, config.PlayerStatsTable:
			prefixes = []string{"stats:"}
		default:
			return
		}
		n := 0
		for _, p := range prefixes {
			n += c.InvalidatePrefix(p)
		}
		if n > 0 {
			logger.Debug("Cache invalidated", "table", ev.Table, "keys", n)
		}
	}
}
