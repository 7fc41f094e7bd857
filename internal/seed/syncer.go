package seed

import (
	"context"
	"log/slog"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/albapepper/courtside-data/internal/batch"
	"github.com/albapepper/courtside-data/internal/provider"
	"github.com/albapepper/courtside-data/internal/provider/espn"
	"github.com/albapepper/courtside-data/internal/provider/nba"
	"github.com/albapepper/courtside-data/internal/store"
)

// Fetcher retrieves remote documents. *fetch.Client satisfies it.
type Fetcher interface {
	Document(ctx context.Context, url string) (*goquery.Document, error)
	JSON(ctx context.Context, url string, v interface{}) error
}

// Options configures a Syncer.
type Options struct {
	ESPN espn.Site
	NBA  nba.Site
	// Season bounds NBA.com extraction to games starting within it. A zero
	// season keeps every game of the feed.
	Season provider.Season

	// Delay between fetches inside one batch. Zero uses batch.DefaultDelay.
	Delay time.Duration
	Sleep batch.SleepFunc

	// ScheduleFreshness skips a team's schedule when its latest final game
	// with stats is newer than this. Zero walks every schedule.
	ScheduleFreshness time.Duration
	Now               func() time.Time

	// MaxBoxScoreAttempts stops retrying an incomplete final game after
	// this many attempts. Zero uses store.DefaultMaxBoxScoreAttempts.
	MaxBoxScoreAttempts int

	Logger *slog.Logger
}

// Syncer runs the sync flows against one fetcher and one gateway.
type Syncer struct {
	fetch  Fetcher
	store  store.Gateway
	opts   Options
	logger *slog.Logger
}

// New returns a Syncer. Zero-valued sites fall back to production hosts.
func New(f Fetcher, gw store.Gateway, opts Options) *Syncer {
	if opts.ESPN.BaseURL == "" {
		opts.ESPN = espn.NewSite("")
	}
	if opts.NBA.ScheduleURL == "" || opts.NBA.BaseURL == "" {
		opts.NBA = nba.NewSite(opts.NBA.ScheduleURL, opts.NBA.BaseURL)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.MaxBoxScoreAttempts <= 0 {
		opts.MaxBoxScoreAttempts = store.DefaultMaxBoxScoreAttempts
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{fetch: f, store: gw, opts: opts, logger: logger}
}

func (s *Syncer) batchOptions(name string) batch.Options {
	return batch.Options{Name: name, Delay: s.opts.Delay, Sleep: s.opts.Sleep, Logger: s.logger}
}

// SyncAll runs teams, players and games in dependency order. A failed team
// list stops the run; later phases still run when an earlier one only had
// per-item failures.
func (s *Syncer) SyncAll(ctx context.Context) (SeedResult, error) {
	var result SeedResult

	teams, err := s.SyncTeams(ctx)
	result.Add(teams)
	if err != nil {
		return result, err
	}

	players, err := s.SyncPlayers(ctx)
	result.Add(players)
	if err != nil {
		return result, err
	}

	games, err := s.SyncGames(ctx)
	result.Add(games)
	if err != nil {
		return result, err
	}

	s.logger.Info("Sync complete", "summary", result.Summary())
	return result, nil
}
