// Command ingest is the Courtside data ingestion CLI.
//
// Usage:
//
//	courtside-ingest sync all --season 2024
//	courtside-ingest sync players --dry-run
//	courtside-ingest sync boxscores 401584689
//	courtside-ingest backlog --max 20
//	courtside-ingest snapshot extract --kind regular
//	courtside-ingest snapshot import
//	courtside-ingest reconcile report
//	courtside-ingest inspect player 4065648
//	courtside-ingest watch --schedule "0 */6 * * *"
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/albapepper/courtside-data/internal/config"
	"github.com/albapepper/courtside-data/internal/db"
	"github.com/albapepper/courtside-data/internal/fixture"
	"github.com/albapepper/courtside-data/internal/maintenance"
	"github.com/albapepper/courtside-data/internal/provider"
	"github.com/albapepper/courtside-data/internal/provider/espn"
	"github.com/albapepper/courtside-data/internal/provider/fetch"
	"github.com/albapepper/courtside-data/internal/provider/nba"
	"github.com/albapepper/courtside-data/internal/seed"
	"github.com/albapepper/courtside-data/internal/store"
)

var logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:          "courtside-ingest",
		Short:        "Courtside data ingestion CLI",
		SilenceUsage: true,
	}
	var season int
	root.PersistentFlags().IntVar(&season, "season", 0, "Season start year (default from SEASON_START_YEAR or the clock)")

	root.AddCommand(syncCmd(&season))
	root.AddCommand(backlogCmd(&season))
	root.AddCommand(snapshotCmd(&season))
	root.AddCommand(reconcileCmd(&season))
	root.AddCommand(inspectCmd(&season))
	root.AddCommand(watchCmd(&season))

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// --------------------------------------------------------------------------
// sync command
// --------------------------------------------------------------------------

func syncCmd(season *int) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Sync teams, players, games and box scores from ESPN",
	}
	cmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "Run against an in-memory store; nothing is written")

	phase := func(use, short string, fn func(ctx context.Context, e *env, args []string) (seed.SeedResult, error)) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			RunE: func(cmd *cobra.Command, args []string) error {
				return run(*season, dryRun, func(ctx context.Context, e *env) error {
					start := time.Now()
					result, err := fn(ctx, e, args)
					logResult("sync "+cmd.Name(), result, time.Since(start))
					if err != nil {
						return err
					}
					return e.analyze(ctx)
				})
			},
		}
	}

	cmd.AddCommand(phase("teams", "Sync the league team index", func(ctx context.Context, e *env, _ []string) (seed.SeedResult, error) {
		return e.syncer.SyncTeams(ctx)
	}))
	cmd.AddCommand(phase("players", "Sync every team roster", func(ctx context.Context, e *env, _ []string) (seed.SeedResult, error) {
		return withPrereqs(ctx, e, e.syncer.SyncPlayers, e.syncer.SyncTeams)
	}))
	cmd.AddCommand(phase("games", "Sync team schedules and new games", func(ctx context.Context, e *env, _ []string) (seed.SeedResult, error) {
		return withPrereqs(ctx, e, e.syncer.SyncGames, e.syncer.SyncTeams)
	}))
	cmd.AddCommand(phase("boxscores [gameID...]", "Ingest the named games, or the pending backlog", func(ctx context.Context, e *env, args []string) (seed.SeedResult, error) {
		if len(args) > 0 {
			return withPrereqs(ctx, e, func(ctx context.Context) (seed.SeedResult, error) {
				return e.syncer.IngestGames(ctx, args)
			}, e.syncer.SyncTeams)
		}
		res := fixture.ProcessPending(ctx, e.store, e.syncer, e.backlogOptions(e.cfg.BacklogMax), logger)
		logger.Info("Backlog finished", "summary", res.Summary())
		return seed.SeedResult{}, nil
	}))
	cmd.AddCommand(phase("all", "Sync teams, players and games, then drain the box-score backlog", func(ctx context.Context, e *env, _ []string) (seed.SeedResult, error) {
		result, err := e.syncer.SyncAll(ctx)
		if err != nil {
			return result, err
		}
		res := fixture.ProcessPending(ctx, e.store, e.syncer, e.backlogOptions(e.cfg.BacklogMax), logger)
		logger.Info("Backlog finished", "summary", res.Summary())
		return result, nil
	}))
	return cmd
}

// withPrereqs runs the earlier phases first on a dry run, whose in-memory
// store starts empty.
func withPrereqs(ctx context.Context, e *env, fn func(context.Context) (seed.SeedResult, error), prereqs ...func(context.Context) (seed.SeedResult, error)) (seed.SeedResult, error) {
	var result seed.SeedResult
	if e.dryRun {
		for _, p := range prereqs {
			r, err := p(ctx)
			result.Add(r)
			if err != nil {
				return result, err
			}
		}
	}
	r, err := fn(ctx)
	result.Add(r)
	return result, err
}

// --------------------------------------------------------------------------
// backlog command
// --------------------------------------------------------------------------

func backlogCmd(season *int) *cobra.Command {
	var maxGames int
	cmd := &cobra.Command{
		Use:   "backlog",
		Short: "Re-fetch stored games that have no box score yet",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(*season, false, func(ctx context.Context, e *env) error {
				if maxGames <= 0 {
					maxGames = e.cfg.BacklogMax
				}
				res := fixture.ProcessPending(ctx, e.store, e.syncer, e.backlogOptions(maxGames), logger)
				logger.Info("Backlog finished", "summary", res.Summary())
				for _, msg := range res.Errors {
					logger.Error("backlog error", "error", msg)
				}
				return e.analyze(ctx)
			})
		},
	}
	cmd.Flags().IntVar(&maxGames, "max", 0, "Maximum games to process (default BACKLOG_MAX)")
	return cmd
}

// --------------------------------------------------------------------------
// snapshot command
// --------------------------------------------------------------------------

func snapshotCmd(season *int) *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Extract NBA.com box scores to a local file, or import that file",
	}
	cmd.PersistentFlags().StringVar(&path, "path", "", "Snapshot file (default SNAPSHOT_PATH)")

	var kind string
	extract := &cobra.Command{
		Use:   "extract",
		Short: "Append finished NBA.com games to the snapshot file",
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := nba.ParseKind(kind)
			if err != nil {
				return err
			}
			// Extraction only touches the file.
			return run(*season, true, func(ctx context.Context, e *env) error {
				start := time.Now()
				result, err := e.syncer.ExtractNBA(ctx, e.snapshotPath(path), k)
				logResult("snapshot extract", result, time.Since(start))
				return err
			})
		},
	}
	extract.Flags().StringVar(&kind, "kind", "regular", "Game kind: preseason or regular")

	var dryRun bool
	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Store the games and stat lines of the snapshot file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(*season, dryRun, func(ctx context.Context, e *env) error {
				start := time.Now()
				result, err := withPrereqs(ctx, e, func(ctx context.Context) (seed.SeedResult, error) {
					return e.syncer.ImportSnapshot(ctx, e.snapshotPath(path))
				}, e.syncer.SyncTeams)
				logResult("snapshot import", result, time.Since(start))
				if err != nil {
					return err
				}
				return e.analyze(ctx)
			})
		},
	}
	importCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Run against an in-memory store; nothing is written")

	cmd.AddCommand(extract, importCmd)
	return cmd
}

// --------------------------------------------------------------------------
// reconcile command
// --------------------------------------------------------------------------

func reconcileCmd(season *int) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Compare stored teams and rosters with the source",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "report",
		Short: "Print new, changed and stale teams and players without writing",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(*season, false, func(ctx context.Context, e *env) error {
				rows, errs, err := e.syncer.Report(ctx)
				if err != nil {
					return err
				}

				t := table.NewWriter()
				t.SetOutputMirror(os.Stdout)
				t.AppendHeader(table.Row{"Entity", "Key", "Status", "Detail"})
				for _, r := range rows {
					t.AppendRow(table.Row{r.Entity, r.Key, r.Status, r.Detail})
				}
				t.AppendFooter(table.Row{"", "", "Total", len(rows)})
				t.SetStyle(table.StyleRounded)
				t.Render()

				for _, msg := range errs {
					logger.Warn("report incomplete", "error", msg)
				}
				return nil
			})
		},
	})
	return cmd
}

// --------------------------------------------------------------------------
// watch command
// --------------------------------------------------------------------------

func watchCmd(season *int) *cobra.Command {
	var schedule, backlogSchedule string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run incremental syncs and the box-score backlog on cron schedules",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(*season, false, func(ctx context.Context, e *env) error {
				if schedule == "" {
					schedule = e.cfg.SyncSchedule
				}
				jobs := []maintenance.Job{
					{
						Name:     "sync",
						Schedule: schedule,
						Run: func(ctx context.Context) error {
							start := time.Now()
							result, err := e.syncer.SyncAll(ctx)
							logResult("watch sync", result, time.Since(start))
							if err != nil {
								return err
							}
							return e.analyze(ctx)
						},
					},
					{
						Name:     "backlog",
						Schedule: backlogSchedule,
						Run: func(ctx context.Context) error {
							res := fixture.ProcessPending(ctx, e.store, e.syncer, e.backlogOptions(e.cfg.BacklogMax), logger)
							logger.Info("Backlog finished", "summary", res.Summary())
							return nil
						},
					},
				}
				return maintenance.Start(ctx, jobs, logger)
			})
		},
	}
	cmd.Flags().StringVar(&schedule, "schedule", "", "Cron schedule for the full sync (default SYNC_SCHEDULE)")
	cmd.Flags().StringVar(&backlogSchedule, "backlog-schedule", "30 * * * *", "Cron schedule for the box-score backlog")
	return cmd
}

// --------------------------------------------------------------------------
// Shared setup
// --------------------------------------------------------------------------

// env is what every command needs once config and storage are up.
type env struct {
	cfg    *config.Config
	pool   *db.Pool // nil on a dry run
	store  store.Gateway
	syncer *seed.Syncer
	client *fetch.Client
	dryRun bool
}

func (e *env) backlogOptions(maxGames int) fixture.Options {
	return fixture.Options{MaxGames: maxGames, MaxAttempts: e.cfg.BacklogMaxAttempts, Delay: e.cfg.ScrapeDelay}
}

func (e *env) snapshotPath(flag string) string {
	if flag != "" {
		return flag
	}
	return e.cfg.SnapshotPath
}

// analyze refreshes planner statistics after a write; a no-op on a dry run.
func (e *env) analyze(ctx context.Context) error {
	if e.pool == nil {
		return nil
	}
	return maintenance.AnalyzeTables(ctx, e.pool.Pool, logger)
}

// run handles config loading, storage setup and context cancellation. A dry
// run uses an in-memory store and never connects to the database.
func run(season int, dryRun bool, fn func(ctx context.Context, e *env) error) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if season != 0 {
		cfg.SeasonStartYear = season
	}
	if cfg.Debug {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	e := &env{cfg: cfg, dryRun: dryRun}
	if dryRun {
		e.store = store.NewMemory()
	} else {
		pool, err := db.New(ctx, cfg)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer pool.Close()
		e.pool = pool
		e.store = store.NewPostgres(pool.Pool)
	}

	e.client = newClient(cfg)
	e.syncer = seed.New(e.client, e.store, seed.Options{
		ESPN:              espn.NewSite(cfg.ESPNBaseURL),
		NBA:               nba.NewSite(cfg.NBAScheduleURL, cfg.NBABaseURL),
		Season:            cfg.Season(),
		Delay:             cfg.ScrapeDelay,
		ScheduleFreshness: cfg.ScheduleFreshness,

		MaxBoxScoreAttempts: cfg.BacklogMaxAttempts,
		Logger:              logger,
	})
	logger.Info("Ingest starting", "season", cfg.Season().String(), "dry_run", dryRun)
	return fn(ctx, e)
}

func newClient(cfg *config.Config) *fetch.Client {
	return fetch.NewClient(fetch.Options{
		Timeout:           cfg.FetchTimeout,
		RequestsPerMinute: cfg.ScrapeRequestsPerMinute,
		BreakerFailures:   uint32(cfg.FetchBreakerFailures),
		Logger:            logger,
	})
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func logResult(op string, result seed.SeedResult, elapsed time.Duration) {
	logger.Info(op+" finished", "duration", elapsed.Round(time.Second), "summary", result.Summary())
	for _, s := range result.Stale {
		logger.Warn("stale", "entity", s)
	}
	for _, e := range result.Errors {
		logger.Error("seed error", "error", e)
	}
}

// seasonOf resolves the --season flag for commands that skip run.
func seasonOf(cfg *config.Config, season int) provider.Season {
	if season != 0 {
		return provider.Season{StartYear: season, StartMonth: cfg.SeasonStartMonth}
	}
	return cfg.Season()
}
