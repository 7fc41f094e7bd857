package fixture

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/albapepper/courtside-data/internal/batch"
	"github.com/albapepper/courtside-data/internal/provider"
	"github.com/albapepper/courtside-data/internal/seed"
	"github.com/albapepper/courtside-data/internal/store"
)

// Ingester re-fetches one game. *seed.Syncer satisfies it.
type Ingester interface {
	IngestGame(ctx context.Context, gameID string) (seed.SeedResult, error)
}

// Options bounds a backlog run. Zero values pick the defaults.
type Options struct {
	MaxGames    int           // default 50
	SettleDelay time.Duration // default 30h; negative means none
	MaxAttempts int           // default store.DefaultMaxBoxScoreAttempts
	Delay       time.Duration // pause between games, as batch.Options.Delay
	Sleep       batch.SleepFunc
	Now         func() time.Time
}

// ProcessPending lists stored games without a complete box score whose date
// is older than the settle delay and re-fetches them one at a time, least
// attempted first. Every re-fetch counts as an attempt, so games that keep
// failing rotate behind untried ones and drop out at MaxAttempts. A game
// that is still not final stays in the backlog for the next run.
func ProcessPending(
	ctx context.Context,
	gw store.Gateway,
	ing Ingester,
	opts Options,
	logger *slog.Logger,
) SchedulerResult {
	start := time.Now()
	var result SchedulerResult
	if logger == nil {
		logger = slog.Default()
	}

	if opts.MaxGames <= 0 {
		opts.MaxGames = defaultMaxGames
	}
	if opts.SettleDelay == 0 {
		opts.SettleDelay = defaultSettleDelay
	}
	if opts.SettleDelay < 0 {
		opts.SettleDelay = 0
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = store.DefaultMaxBoxScoreAttempts
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	pending, err := gw.PendingBoxScores(ctx, store.PendingFilter{
		Source:      provider.SourceESPN,
		Before:      now().Add(-opts.SettleDelay),
		MaxAttempts: opts.MaxAttempts,
		Limit:       opts.MaxGames,
	})
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		result.Duration = time.Since(start)
		return result
	}

	result.GamesFound = len(pending)
	if len(pending) == 0 {
		logger.Info("No pending box scores")
		result.Duration = time.Since(start)
		return result
	}
	logger.Info("Found pending box scores", "count", len(pending))

	runs, err := batch.Run(ctx, pending, func(ctx context.Context, g store.Game) (Result, error) {
		return seedGame(ctx, ing, g, logger)
	}, batch.Options{Name: "backlog", Delay: opts.Delay, Sleep: opts.Sleep, Logger: logger})
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("backlog interrupted: %v", err))
	}

	for i, run := range runs {
		if err := gw.RecordBoxScoreAttempt(ctx, pending[i].ID, now()); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("game %s: record attempt: %v", pending[i].SourceGameID, err))
		}
		r := run.Value
		result.Results = append(result.Results, r)
		result.GamesProcessed++
		result.StatsInserted += r.StatsInserted
		switch {
		case !r.Success:
			result.GamesFailed++
			result.Errors = append(result.Errors, fmt.Sprintf("game %s: %s", r.GameID, r.Error))
		case r.StillPending:
			result.GamesStillPending++
		default:
			result.GamesSucceeded++
		}
	}

	result.Duration = time.Since(start)
	logger.Info("Backlog run complete", "summary", result.Summary())
	return result
}

// seedGame re-fetches one game and folds the sync result into a Result.
// The returned error only feeds the batch log; the Result carries it too.
func seedGame(ctx context.Context, ing Ingester, g store.Game, logger *slog.Logger) (Result, error) {
	start := time.Now()
	r := Result{GameID: g.SourceGameID}

	logger.Info("Re-fetching game", "game_id", g.SourceGameID, "date", g.Date.Format("2006-01-02"))
	sr, err := ing.IngestGame(ctx, g.SourceGameID)
	r.Duration = time.Since(start)
	r.StatsInserted = sr.PlayerStats.Inserted
	r.StatsFailed = sr.PlayerStats.Failed
	if err != nil {
		r.Error = err.Error()
		return r, err
	}

	r.Success = true
	r.StillPending = sr.PlayerStats.Succeeded() == 0 && sr.PlayerStats.Failed == 0
	logger.Info("Game re-fetched", "summary", r.Summary())
	return r, nil
}
