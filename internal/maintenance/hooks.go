package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/albapepper/courtside-data/internal/config"
)

// Execer runs a statement. *pgxpool.Pool satisfies it.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// AnalyzeTables refreshes planner statistics after a bulk sync so the read
// queries keep using the natural-key indexes. Call it after a successful
// sync against Postgres.
func AnalyzeTables(ctx context.Context, db Execer, logger *slog.Logger) error {
	tables := []string{
		config.TeamsTable,
		config.PlayersTable,
		config.GamesTable,
		config.PlayerStatsTable,
	}

	for _, t := range tables {
		start := time.Now()
		_, err := db.Exec(ctx, fmt.Sprintf("ANALYZE %s", t))
		dur := time.Since(start).Round(time.Millisecond)

		if err != nil {
			logger.Warn("Failed to analyze table",
				"table", t, "duration", dur, "error", err)
			return fmt.Errorf("analyze %s: %w", t, err)
		}
		logger.Info("Analyzed table", "table", t, "duration", dur)
	}
	return nil
}
