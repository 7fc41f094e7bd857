package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albapepper/courtside-data/internal/cache"
	"github.com/albapepper/courtside-data/internal/config"
	"github.com/albapepper/courtside-data/internal/listener"
	"github.com/albapepper/courtside-data/internal/provider"
	"github.com/albapepper/courtside-data/internal/store"
)

func testConfig() *config.Config {
	return &config.Config{
		CORSAllowOrigins:  []string{"http://localhost:3000"},
		RateLimitEnabled:  false,
		RateLimitRequests: 100,
		RateLimitWindow:   time.Minute,
		SeasonStartYear:   2023,
		SeasonStartMonth:  time.October,
	}
}

func intp(v int) *int { return &v }

// seeded returns a memory store holding one game with two stat lines, one of
// them a did-not-play.
func seeded(t *testing.T) (*store.Memory, store.Team, store.Player, store.Game) {
	t.Helper()
	ctx := context.Background()
	m := store.NewMemory()
	bos, _, err := m.UpsertTeam(ctx, provider.Team{Name: "Boston Celtics", SourceTeamID: "bos"})
	require.NoError(t, err)
	_, _, err = m.UpsertTeam(ctx, provider.Team{Name: "New York Knicks", SourceTeamID: "ny"})
	require.NoError(t, err)

	tatum, _, err := m.UpsertPlayer(ctx, store.PlayerInput{FirstName: "Jayson", FamilyName: "Tatum", SourceID: 4065648, Team: provider.TeamRef{SourceTeamID: "bos"}})
	require.NoError(t, err)
	brown, _, err := m.UpsertPlayer(ctx, store.PlayerInput{FirstName: "Jaylen", FamilyName: "Brown", SourceID: 3917376, Team: provider.TeamRef{SourceTeamID: "bos"}})
	require.NoError(t, err)

	game, _, err := m.UpsertGame(ctx, provider.Game{
		Source: "espn", SourceGameID: "401585000",
		Date: time.Date(2023, 10, 25, 0, 0, 0, 0, time.UTC),
		Home: provider.TeamRef{SourceTeamID: "ny"}, Away: provider.TeamRef{SourceTeamID: "bos"},
		HomeScore: intp(104), AwayScore: intp(108), Final: true,
	})
	require.NoError(t, err)

	_, _, err = m.UpsertPlayerGameStat(ctx, store.StatInput{
		Player: store.PlayerRef{ID: tatum.ID}, Game: store.GameRef{ID: game.ID},
		Stats: &provider.StatLine{Minutes: intp(36), Points: intp(34)},
	})
	require.NoError(t, err)
	_, _, err = m.UpsertPlayerGameStat(ctx, store.StatInput{
		Player: store.PlayerRef{ID: brown.ID}, Game: store.GameRef{ID: game.ID},
	})
	require.NoError(t, err)
	return m, bos, tatum, game
}

func newServer(t *testing.T, reader store.Reader, cfg *config.Config) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := httptest.NewServer(NewRouter(reader, cache.New(true, time.Minute), cfg, logger))
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string, header http.Header) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestRouter_Health(t *testing.T) {
	m, _, _, _ := seeded(t)
	srv := newServer(t, m, testConfig())

	resp := get(t, srv.URL+"/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Process-Time"))

	resp = get(t, srv.URL+"/health/db", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]interface{}](t, resp)
	assert.Equal(t, "connected", body["database"])
}

func TestRouter_Teams(t *testing.T) {
	m, _, _, _ := seeded(t)
	srv := newServer(t, m, testConfig())

	resp := get(t, srv.URL+"/api/v1/teams", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "MISS", resp.Header.Get("X-Cache"))
	teams := decode[[]store.Team](t, resp)
	require.Len(t, teams, 2)
	assert.Equal(t, "Boston Celtics", teams[0].Name)

	etag := resp.Header.Get("ETag")
	require.NotEmpty(t, etag)

	resp = get(t, srv.URL+"/api/v1/teams", nil)
	assert.Equal(t, "HIT", resp.Header.Get("X-Cache"))

	resp = get(t, srv.URL+"/api/v1/teams", http.Header{"If-None-Match": {etag}})
	assert.Equal(t, http.StatusNotModified, resp.StatusCode)
}

func TestRouter_TeamPlayers(t *testing.T) {
	m, bos, _, _ := seeded(t)
	srv := newServer(t, m, testConfig())

	resp := get(t, srv.URL+"/api/v1/teams/"+bos.ID.String()+"/players", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	players := decode[[]store.Player](t, resp)
	assert.Len(t, players, 2)

	resp = get(t, srv.URL+"/api/v1/teams/"+uuid.NewString()+"/players", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[[]store.Player](t, resp))
}

func TestRouter_Stats(t *testing.T) {
	m, _, tatum, game := seeded(t)
	srv := newServer(t, m, testConfig())

	resp := get(t, srv.URL+"/api/v1/players/"+tatum.ID.String()+"/stats", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rows := decode[[]store.StatRow](t, resp)
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].Stats)
	assert.Equal(t, 34, *rows[0].Stats.Points)

	resp = get(t, srv.URL+"/api/v1/games/"+game.ID.String()+"/stats", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rows = decode[[]store.StatRow](t, resp)
	require.Len(t, rows, 2)
	var dnp int
	for _, row := range rows {
		if row.Stats == nil {
			dnp++
		}
	}
	assert.Equal(t, 1, dnp)
}

func TestRouter_InvalidID(t *testing.T) {
	m, _, _, _ := seeded(t)
	srv := newServer(t, m, testConfig())

	resp := get(t, srv.URL+"/api/v1/players/not-a-uuid/stats", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decode[map[string]map[string]string](t, resp)
	assert.Equal(t, "INVALID_ID", body["error"]["code"])
}

type brokenReader struct{}

var errDown = errors.New("connection refused")

func (brokenReader) ListTeams(context.Context) ([]store.Team, error) { return nil, errDown }
func (brokenReader) ListPlayersByTeam(context.Context, uuid.UUID) ([]store.Player, error) {
	return nil, errDown
}
func (brokenReader) ListStatsByPlayer(context.Context, uuid.UUID) ([]store.StatRow, error) {
	return nil, errDown
}
func (brokenReader) ListStatsByGame(context.Context, uuid.UUID) ([]store.StatRow, error) {
	return nil, errDown
}
func (brokenReader) Ping(context.Context) error { return errDown }

func TestRouter_ReaderDown(t *testing.T) {
	srv := newServer(t, brokenReader{}, testConfig())

	resp := get(t, srv.URL+"/health/db", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp = get(t, srv.URL+"/api/v1/teams", nil)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestRouter_RateLimit(t *testing.T) {
	m, _, _, _ := seeded(t)
	cfg := testConfig()
	cfg.RateLimitEnabled = true
	cfg.RateLimitRequests = 2
	cfg.RateLimitWindow = time.Hour
	srv := newServer(t, m, cfg)

	// burst is half the window allowance
	assert.Equal(t, http.StatusOK, get(t, srv.URL+"/health", nil).StatusCode)
	resp := get(t, srv.URL+"/health", nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "3600", resp.Header.Get("Retry-After"))
}

func TestCacheInvalidator(t *testing.T) {
	c := cache.New(true, time.Minute)
	c.Set("teams", []byte(`[]`))
	c.Set("players:team:x", []byte(`[]`))
	c.Set("stats:game:y", []byte(`[]`))
	invalidate := CacheInvalidator(c, slog.New(slog.NewTextHandler(io.Discard, nil)))

	invalidate(listener.Event{Table: "player_stats", Op: "insert"})
	_, _, ok := c.Get("stats:game:y")
	assert.False(t, ok)
	_, _, ok = c.Get("teams")
	assert.True(t, ok)

	invalidate(listener.Event{Table: "teams", Op: "update"})
	_, _, ok = c.Get("teams")
	assert.False(t, ok)
	_, _, ok = c.Get("players:team:x")
	assert.True(t, ok)
}
