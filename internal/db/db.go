// Package db provides a pgxpool-based connection pool with prepared statement
// registration and health checking.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/albapepper/courtside-data/internal/config"
)

// Pool wraps pgxpool.Pool with application-specific helpers.
type Pool struct {
	*pgxpool.Pool
}

// New creates and validates a new connection pool.
func New(ctx context.Context, cfg *config.Config) (*Pool, error) {
	if err := cfg.RequireDatabase(); err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolCfg.MinConns = int32(cfg.DBPoolMinConns)
	poolCfg.MaxConns = int32(cfg.DBPoolMaxConns)
	poolCfg.MaxConnLifetime = cfg.DBPoolMaxLife
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	// Register prepared statements on every new connection.
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return registerPreparedStatements(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	// Verify connectivity
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// HealthCheck runs a trivial query to verify the database is reachable.
func (p *Pool) HealthCheck(ctx context.Context) error {
	var n int
	return p.QueryRow(ctx, "health_check").Scan(&n)
}

const statColumns = `s.did_not_play, s.minutes,
	s.field_goals_made, s.field_goals_attempted,
	s.three_pointers_made, s.three_pointers_attempted,
	s.free_throws_made, s.free_throws_attempted,
	s.rebounds, s.assists, s.steals, s.blocks, s.turnovers, s.fouls, s.plus_minus, s.points`

// registerPreparedStatements registers the read queries used by the API and
// the backlog. Upserts stay inline in the store.
func registerPreparedStatements(ctx context.Context, conn *pgx.Conn) error {
	stmts := map[string]string{
		// Health
		"health_check": "SELECT 1",

		// API: teams and rosters
		"list_teams": "SELECT id, name, city, COALESCE(source_team_id, ''), link FROM " +
			config.TeamsTable + " ORDER BY name",
		"list_players_by_team": "SELECT id, first_name, family_name, source_id, team_id FROM " +
			config.PlayersTable + " WHERE team_id = $1 ORDER BY family_name, first_name",

		// API: stat lines
		"list_stats_by_player": "SELECT p.id, p.first_name || ' ' || p.family_name, g.id, g.game_date, " + statColumns +
			" FROM " + config.PlayerStatsTable + " s" +
			" JOIN " + config.PlayersTable + " p ON p.id = s.player_id" +
			" JOIN " + config.GamesTable + " g ON g.id = s.game_id" +
			" WHERE s.player_id = $1 ORDER BY g.game_date",
		"list_stats_by_game": "SELECT p.id, p.first_name || ' ' || p.family_name, g.id, g.game_date, " + statColumns +
			" FROM " + config.PlayerStatsTable + " s" +
			" JOIN " + config.PlayersTable + " p ON p.id = s.player_id" +
			" JOIN " + config.GamesTable + " g ON g.id = s.game_id" +
			" WHERE s.game_id = $1 ORDER BY 2",

		// Ingestion: box-score backlog, least attempted first. A NULL date
		// bound or a zero cap or limit disables that filter.
		"pending_box_scores": "SELECT g.id, g.source, g.source_game_id, g.game_date, g.home_team_id, g.away_team_id," +
			" g.home_score, g.away_score, g.final, g.stats_complete, g.box_score_attempts, g.last_box_score_attempt" +
			" FROM " + config.GamesTable + " g" +
			" WHERE g.source = $1 AND NOT g.stats_complete" +
			" AND ($2::timestamptz IS NULL OR g.game_date < $2)" +
			" AND (NOT $3::boolean OR g.final)" +
			" AND ($4::int <= 0 OR g.box_score_attempts < $4)" +
			" ORDER BY g.box_score_attempts, g.last_box_score_attempt NULLS FIRST, g.game_date, g.source_game_id" +
			" LIMIT NULLIF($5::int, 0)",
	}

	for name, sql := range stmts {
		if _, err := conn.Prepare(ctx, name, sql); err != nil {
			return fmt.Errorf("prepare %q: %w", name, err)
		}
	}
	return nil
}
