// Package handler provides HTTP handlers for the read API.
// Handlers read through store.Reader; list responses are JSON-encoded once
// and served from the response cache with an ETag until they expire.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/albapepper/courtside-data/internal/api/respond"
	"github.com/albapepper/courtside-data/internal/cache"
	"github.com/albapepper/courtside-data/internal/config"
	"github.com/albapepper/courtside-data/internal/store"
)

// Handler holds shared dependencies for all endpoint handlers.
type Handler struct {
	reader store.Reader
	cache  *cache.Cache
	cfg    *config.Config
	logger *slog.Logger
}

// New creates a Handler with shared dependencies.
func New(reader store.Reader, c *cache.Cache, cfg *config.Config, logger *slog.Logger) *Handler {
	return &Handler{reader: reader, cache: c, cfg: cfg, logger: logger}
}

// Root serves API info at /.
// @Summary API root info
// @Description Returns API name, version, status and the docs location.
// @Tags meta
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router / [get]
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	respond.Object(w, http.StatusOK, map[string]interface{}{
		"name":    "Courtside Data API",
		"version": "1.0.0",
		"status":  "running",
		"season":  h.cfg.Season().String(),
		"docs":    "/docs",
	})
}

// HealthCheck returns basic health status.
// @Summary Health check
// @Description Returns basic health status and timestamp.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respond.Object(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckDB verifies database connectivity.
// @Summary Database health check
// @Description Verifies store connectivity.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health/db [get]
func (h *Handler) HealthCheckDB(w http.ResponseWriter, r *http.Request) {
	if err := h.reader.Ping(r.Context()); err != nil {
		h.logger.Warn("database health check failed", "error", err)
		respond.Object(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":    "unhealthy",
			"database":  "disconnected",
			"error":     "Database connection check failed",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}
	respond.Object(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"database":  "connected",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckCache returns cache statistics.
// @Summary Cache health check
// @Description Returns response cache statistics.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health/cache [get]
func (h *Handler) HealthCheckCache(w http.ResponseWriter, r *http.Request) {
	respond.Object(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"cache":     h.cache.Stats(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// serveCached answers from the cache when possible, otherwise loads, encodes
// and caches the value. A matching If-None-Match gets a 304 either way.
func (h *Handler) serveCached(w http.ResponseWriter, r *http.Request, key string, load func(ctx context.Context) (interface{}, error)) {
	p := respond.Payload{TTL: h.cache.TTL()}
	if data, etag, ok := h.cache.Get(key); ok {
		p.Data, p.ETag, p.Hit = data, etag, true
		respond.Cached(w, r, p)
		return
	}

	v, err := load(r.Context())
	if err != nil {
		h.logger.Error("read failed", "key", key, "error", err)
		respond.Internal(w, "Failed to read data")
		return
	}
	p.Data, err = json.Marshal(v)
	if err != nil {
		h.logger.Error("encode failed", "key", key, "error", err)
		respond.Internal(w, "Failed to encode response")
		return
	}
	p.ETag = h.cache.Set(key, p.Data)
	respond.Cached(w, r, p)
}
