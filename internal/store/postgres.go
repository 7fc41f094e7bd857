package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/albapepper/courtside-data/internal/config"
	"github.com/albapepper/courtside-data/internal/provider"
)

// Postgres implements Gateway and Reader on a pgx pool. Read queries use the
// prepared statements registered by db.New.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps a pool created by db.New.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

var (
	_ Gateway = (*Postgres)(nil)
	_ Reader  = (*Postgres)(nil)
)

// querier is satisfied by both the pool and a transaction.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ----------------------------------------------------------------------------
// Upserts
// ----------------------------------------------------------------------------

// Each upsert only touches the row when a tracked column differs. When the
// WHERE clause filters the update out no row is returned and the stored row
// is read back as Unchanged. xmax = 0 distinguishes inserts from updates.

func (p *Postgres) UpsertTeam(ctx context.Context, t provider.Team) (Team, Outcome, error) {
	var team Team
	var inserted bool
	err := p.pool.QueryRow(ctx, `
		INSERT INTO `+config.TeamsTable+` (id, name, city, source_team_id, link)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5)
		ON CONFLICT ((lower(name))) DO UPDATE SET
			city = COALESCE(NULLIF(EXCLUDED.city, ''), teams.city),
			source_team_id = COALESCE(EXCLUDED.source_team_id, teams.source_team_id),
			link = COALESCE(NULLIF(EXCLUDED.link, ''), teams.link),
			updated_at = NOW()
		WHERE (teams.city, teams.source_team_id, teams.link) IS DISTINCT FROM (
			COALESCE(NULLIF(EXCLUDED.city, ''), teams.city),
			COALESCE(EXCLUDED.source_team_id, teams.source_team_id),
			COALESCE(NULLIF(EXCLUDED.link, ''), teams.link))
		RETURNING id, name, city, COALESCE(source_team_id, ''), link, (xmax = 0)`,
		uuid.New(), t.Name, t.City, t.SourceTeamID, t.Link,
	).Scan(&team.ID, &team.Name, &team.City, &team.SourceTeamID, &team.Link, &inserted)
	if errors.Is(err, pgx.ErrNoRows) {
		existing, err := p.TeamByName(ctx, t.Name)
		return existing, Unchanged, err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == "teams_source_team_id_key" {
		return Team{}, Unchanged, fmt.Errorf("upsert team %q: %w: %s", t.Name, ErrDuplicateSourceID, t.SourceTeamID)
	}
	if err != nil {
		return Team{}, Unchanged, fmt.Errorf("upsert team %q: %w", t.Name, err)
	}
	return team, outcome(inserted), nil
}

func (p *Postgres) UpsertPlayer(ctx context.Context, in PlayerInput) (Player, Outcome, error) {
	var teamID *uuid.UUID
	if in.Team != (provider.TeamRef{}) {
		team, err := resolveTeam(ctx, p.pool, in.Team)
		if err != nil {
			return Player{}, Unchanged, err
		}
		teamID = &team.ID
	}

	var player Player
	var inserted bool
	err := p.pool.QueryRow(ctx, `
		INSERT INTO `+config.PlayersTable+` (id, first_name, family_name, source_id, team_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (source_id) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			family_name = EXCLUDED.family_name,
			team_id = EXCLUDED.team_id,
			updated_at = NOW()
		WHERE (players.first_name, players.family_name, players.team_id)
			IS DISTINCT FROM (EXCLUDED.first_name, EXCLUDED.family_name, EXCLUDED.team_id)
		RETURNING id, first_name, family_name, source_id, team_id, (xmax = 0)`,
		uuid.New(), in.FirstName, in.FamilyName, in.SourceID, teamID,
	).Scan(&player.ID, &player.FirstName, &player.FamilyName, &player.SourceID, &player.TeamID, &inserted)
	if errors.Is(err, pgx.ErrNoRows) {
		existing, err := p.PlayerBySourceID(ctx, in.SourceID)
		return existing, Unchanged, err
	}
	if err != nil {
		return Player{}, Unchanged, fmt.Errorf("upsert player %d: %w", in.SourceID, err)
	}
	return player, outcome(inserted), nil
}

func (p *Postgres) UpsertGame(ctx context.Context, g provider.Game) (Game, Outcome, error) {
	home, err := resolveTeam(ctx, p.pool, g.Home)
	if err != nil {
		return Game{}, Unchanged, err
	}
	away, err := resolveTeam(ctx, p.pool, g.Away)
	if err != nil {
		return Game{}, Unchanged, err
	}
	if home.ID == away.ID {
		return Game{}, Unchanged, ErrSameTeam
	}

	var inserted bool
	row := p.pool.QueryRow(ctx, `
		INSERT INTO `+config.GamesTable+` (
			id, source, source_game_id, game_date, home_team_id, away_team_id,
			home_score, away_score, final
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (source, source_game_id) DO UPDATE SET
			game_date = EXCLUDED.game_date,
			home_team_id = EXCLUDED.home_team_id,
			away_team_id = EXCLUDED.away_team_id,
			home_score = COALESCE(EXCLUDED.home_score, games.home_score),
			away_score = COALESCE(EXCLUDED.away_score, games.away_score),
			final = games.final OR EXCLUDED.final,
			updated_at = NOW()
		WHERE (games.game_date, games.home_team_id, games.away_team_id,
		       games.home_score, games.away_score, games.final)
			IS DISTINCT FROM (EXCLUDED.game_date, EXCLUDED.home_team_id, EXCLUDED.away_team_id,
		       COALESCE(EXCLUDED.home_score, games.home_score),
		       COALESCE(EXCLUDED.away_score, games.away_score),
		       games.final OR EXCLUDED.final)
		RETURNING `+gameColumns+`, (xmax = 0)`,
		uuid.New(), g.Source, g.SourceGameID, g.Date, home.ID, away.ID,
		g.HomeScore, g.AwayScore, g.Final,
	)
	game, err := scanGame(row, &inserted)
	if errors.Is(err, pgx.ErrNoRows) {
		existing, err := gameByRef(ctx, p.pool, GameRef{Source: g.Source, SourceGameID: g.SourceGameID})
		return existing, Unchanged, err
	}
	if err != nil {
		return Game{}, Unchanged, fmt.Errorf("upsert game %s:%s: %w", g.Source, g.SourceGameID, err)
	}
	return game, outcome(inserted), nil
}

// UpsertPlayerGameStat resolves the player and game and inserts the line in
// one transaction. Stat rows are immutable: an existing pair is Unchanged.
func (p *Postgres) UpsertPlayerGameStat(ctx context.Context, s StatInput) (PlayerGameStat, Outcome, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return PlayerGameStat{}, Unchanged, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	player, err := playerByRef(ctx, tx, s.Player)
	if err != nil {
		return PlayerGameStat{}, Unchanged, err
	}
	game, err := gameByRef(ctx, tx, s.Game)
	if err != nil {
		return PlayerGameStat{}, Unchanged, err
	}

	st := s.Stats
	if st == nil {
		st = &provider.StatLine{}
	}
	stat := PlayerGameStat{PlayerID: player.ID, GameID: game.ID, Stats: s.Stats}
	err = tx.QueryRow(ctx, `
		INSERT INTO `+config.PlayerStatsTable+` (
			id, player_id, game_id, did_not_play, minutes,
			field_goals_made, field_goals_attempted,
			three_pointers_made, three_pointers_attempted,
			free_throws_made, free_throws_attempted,
			rebounds, assists, steals, blocks, turnovers, fouls, plus_minus, points
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
		ON CONFLICT (player_id, game_id) DO NOTHING
		RETURNING id`,
		uuid.New(), player.ID, game.ID, s.Stats == nil, st.Minutes,
		st.FieldGoalsMade, st.FieldGoalsAttempted,
		st.ThreePointersMade, st.ThreePointersAttempted,
		st.FreeThrowsMade, st.FreeThrowsAttempted,
		st.Rebounds, st.Assists, st.Steals, st.Blocks, st.Turnovers, st.Fouls, st.PlusMinus, st.Points,
	).Scan(&stat.ID)

	result := Inserted
	if errors.Is(err, pgx.ErrNoRows) {
		result = Unchanged
		stat, err = statByPair(ctx, tx, player.ID, game.ID)
	}
	if err != nil {
		return PlayerGameStat{}, Unchanged, fmt.Errorf("insert stat %s/%s: %w", s.Player, s.Game, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return PlayerGameStat{}, Unchanged, fmt.Errorf("commit: %w", err)
	}
	return stat, result, nil
}

// ----------------------------------------------------------------------------
// Lookups
// ----------------------------------------------------------------------------

func (p *Postgres) Teams(ctx context.Context) ([]Team, error) {
	return p.ListTeams(ctx)
}

func (p *Postgres) Players(ctx context.Context) ([]Player, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, first_name, family_name, source_id, team_id
		FROM `+config.PlayersTable+`
		ORDER BY family_name, first_name`)
	if err != nil {
		return nil, fmt.Errorf("query players: %w", err)
	}
	return pgx.CollectRows(rows, scanPlayerRow)
}

func (p *Postgres) TeamByName(ctx context.Context, name string) (Team, error) {
	return resolveTeam(ctx, p.pool, provider.TeamRef{Name: name})
}

func (p *Postgres) PlayerBySourceID(ctx context.Context, sourceID int) (Player, error) {
	return playerByRef(ctx, p.pool, PlayerRef{SourceID: sourceID})
}

func (p *Postgres) GameKeys(ctx context.Context, source string) (map[string]bool, error) {
	rows, err := p.pool.Query(ctx, `SELECT source_game_id FROM `+config.GamesTable+` WHERE source = $1`, source)
	if err != nil {
		return nil, fmt.Errorf("query game keys: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan game keys: %w", err)
	}
	keys := make(map[string]bool, len(ids))
	for _, id := range ids {
		keys[id] = true
	}
	return keys, nil
}

func (p *Postgres) LatestFinalGameDates(ctx context.Context, source string) (map[uuid.UUID]time.Time, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT team_id, MAX(game_date) FROM (
			SELECT g.home_team_id AS team_id, g.game_date FROM `+config.GamesTable+` g
			WHERE g.source = $1 AND g.final
			  AND g.stats_complete
			UNION ALL
			SELECT g.away_team_id, g.game_date FROM `+config.GamesTable+` g
			WHERE g.source = $1 AND g.final
			  AND g.stats_complete
		) t
		GROUP BY team_id`, source)
	if err != nil {
		return nil, fmt.Errorf("query latest final games: %w", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID]time.Time)
	for rows.Next() {
		var id uuid.UUID
		var date time.Time
		if err := rows.Scan(&id, &date); err != nil {
			return nil, fmt.Errorf("scan latest final game: %w", err)
		}
		out[id] = date.UTC()
	}
	return out, rows.Err()
}

func (p *Postgres) PendingBoxScores(ctx context.Context, f PendingFilter) ([]Game, error) {
	var before *time.Time
	if !f.Before.IsZero() {
		before = &f.Before
	}
	rows, err := p.pool.Query(ctx, "pending_box_scores", f.Source, before, f.FinalOnly, f.MaxAttempts, f.Limit)
	if err != nil {
		return nil, fmt.Errorf("query pending box scores: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Game, error) {
		return scanGame(row, nil)
	})
}

func (p *Postgres) MarkStatsComplete(ctx context.Context, gameID uuid.UUID) error {
	tag, err := p.pool.Exec(ctx, `
		UPDATE `+config.GamesTable+` SET stats_complete = TRUE
		WHERE id = $1`, gameID)
	return gameUpdated(tag, err, gameID, "mark stats complete")
}

func (p *Postgres) RecordBoxScoreAttempt(ctx context.Context, gameID uuid.UUID, at time.Time) error {
	tag, err := p.pool.Exec(ctx, `
		UPDATE `+config.GamesTable+`
		SET box_score_attempts = box_score_attempts + 1, last_box_score_attempt = $2
		WHERE id = $1`, gameID, at.UTC())
	return gameUpdated(tag, err, gameID, "record box score attempt")
}

func gameUpdated(tag pgconn.CommandTag, err error, gameID uuid.UUID, op string) error {
	if err != nil {
		return fmt.Errorf("%s %s: %w", op, gameID, err)
	}
	if tag.RowsAffected() == 0 {
		return &ReferenceNotFoundError{Entity: "game", Key: gameID.String()}
	}
	return nil
}

// ----------------------------------------------------------------------------
// Reader
// ----------------------------------------------------------------------------

func (p *Postgres) ListTeams(ctx context.Context) ([]Team, error) {
	rows, err := p.pool.Query(ctx, "list_teams")
	if err != nil {
		return nil, fmt.Errorf("query teams: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Team, error) {
		var t Team
		err := row.Scan(&t.ID, &t.Name, &t.City, &t.SourceTeamID, &t.Link)
		return t, err
	})
}

func (p *Postgres) ListPlayersByTeam(ctx context.Context, teamID uuid.UUID) ([]Player, error) {
	rows, err := p.pool.Query(ctx, "list_players_by_team", teamID)
	if err != nil {
		return nil, fmt.Errorf("query players by team: %w", err)
	}
	return pgx.CollectRows(rows, scanPlayerRow)
}

func (p *Postgres) ListStatsByPlayer(ctx context.Context, playerID uuid.UUID) ([]StatRow, error) {
	rows, err := p.pool.Query(ctx, "list_stats_by_player", playerID)
	if err != nil {
		return nil, fmt.Errorf("query stats by player: %w", err)
	}
	return pgx.CollectRows(rows, scanStatRow)
}

func (p *Postgres) ListStatsByGame(ctx context.Context, gameID uuid.UUID) ([]StatRow, error) {
	rows, err := p.pool.Query(ctx, "list_stats_by_game", gameID)
	if err != nil {
		return nil, fmt.Errorf("query stats by game: %w", err)
	}
	return pgx.CollectRows(rows, scanStatRow)
}

func (p *Postgres) Ping(ctx context.Context) error {
	var n int
	return p.pool.QueryRow(ctx, "health_check").Scan(&n)
}

// ----------------------------------------------------------------------------
// Helpers
// ----------------------------------------------------------------------------

const gameColumns = `id, source, source_game_id, game_date, home_team_id, away_team_id, home_score, away_score, final,
	stats_complete, box_score_attempts, last_box_score_attempt`

const uniqueViolation = "23505"

func outcome(inserted bool) Outcome {
	if inserted {
		return Inserted
	}
	return Updated
}

func resolveTeam(ctx context.Context, q querier, ref provider.TeamRef) (Team, error) {
	var t Team
	err := q.QueryRow(ctx, `
		SELECT id, name, city, COALESCE(source_team_id, ''), link
		FROM `+config.TeamsTable+`
		WHERE ($1 <> '' AND source_team_id = $1) OR ($2 <> '' AND lower(name) = lower($2))
		ORDER BY (source_team_id = $1) DESC NULLS LAST
		LIMIT 1`,
		ref.SourceTeamID, ref.Name,
	).Scan(&t.ID, &t.Name, &t.City, &t.SourceTeamID, &t.Link)
	if errors.Is(err, pgx.ErrNoRows) {
		return Team{}, &ReferenceNotFoundError{Entity: "team", Key: ref.String()}
	}
	if err != nil {
		return Team{}, fmt.Errorf("resolve team %s: %w", ref, err)
	}
	return t, nil
}

func playerByRef(ctx context.Context, q querier, ref PlayerRef) (Player, error) {
	const cols = `SELECT id, first_name, family_name, source_id, team_id FROM ` + config.PlayersTable
	var row pgx.Row
	if ref.ID != uuid.Nil {
		row = q.QueryRow(ctx, cols+` WHERE id = $1`, ref.ID)
	} else {
		row = q.QueryRow(ctx, cols+` WHERE source_id = $1`, ref.SourceID)
	}
	var p Player
	err := row.Scan(&p.ID, &p.FirstName, &p.FamilyName, &p.SourceID, &p.TeamID)
	if errors.Is(err, pgx.ErrNoRows) {
		return Player{}, &ReferenceNotFoundError{Entity: "player", Key: ref.String()}
	}
	if err != nil {
		return Player{}, fmt.Errorf("resolve player %s: %w", ref, err)
	}
	return p, nil
}

func gameByRef(ctx context.Context, q querier, ref GameRef) (Game, error) {
	var row pgx.Row
	if ref.ID != uuid.Nil {
		row = q.QueryRow(ctx, `SELECT `+gameColumns+` FROM `+config.GamesTable+` WHERE id = $1`, ref.ID)
	} else {
		row = q.QueryRow(ctx, `SELECT `+gameColumns+` FROM `+config.GamesTable+`
			WHERE source = $1 AND source_game_id = $2`, ref.Source, ref.SourceGameID)
	}
	g, err := scanGame(row, nil)
	if errors.Is(err, pgx.ErrNoRows) {
		return Game{}, &ReferenceNotFoundError{Entity: "game", Key: ref.String()}
	}
	if err != nil {
		return Game{}, fmt.Errorf("resolve game %s: %w", ref, err)
	}
	return g, nil
}

func statByPair(ctx context.Context, q querier, playerID, gameID uuid.UUID) (PlayerGameStat, error) {
	var s PlayerGameStat
	var dnp bool
	var line provider.StatLine
	err := q.QueryRow(ctx, `
		SELECT id, player_id, game_id, did_not_play, minutes,
			field_goals_made, field_goals_attempted,
			three_pointers_made, three_pointers_attempted,
			free_throws_made, free_throws_attempted,
			rebounds, assists, steals, blocks, turnovers, fouls, plus_minus, points
		FROM `+config.PlayerStatsTable+`
		WHERE player_id = $1 AND game_id = $2`, playerID, gameID,
	).Scan(append([]any{&s.ID, &s.PlayerID, &s.GameID, &dnp}, statLineDest(&line)...)...)
	if err != nil {
		return PlayerGameStat{}, err
	}
	if !dnp {
		s.Stats = &line
	}
	return s, nil
}

// statLineDest lists scan targets in the player_stats column order.
func statLineDest(l *provider.StatLine) []any {
	return []any{
		&l.Minutes,
		&l.FieldGoalsMade, &l.FieldGoalsAttempted,
		&l.ThreePointersMade, &l.ThreePointersAttempted,
		&l.FreeThrowsMade, &l.FreeThrowsAttempted,
		&l.Rebounds, &l.Assists, &l.Steals, &l.Blocks, &l.Turnovers, &l.Fouls, &l.PlusMinus, &l.Points,
	}
}

func scanGame(row pgx.Row, inserted *bool) (Game, error) {
	var g Game
	dest := []any{&g.ID, &g.Source, &g.SourceGameID, &g.Date, &g.HomeTeamID, &g.AwayTeamID,
		&g.HomeScore, &g.AwayScore, &g.Final,
		&g.StatsComplete, &g.BoxScoreAttempts, &g.LastBoxScoreAttempt}
	if inserted != nil {
		dest = append(dest, inserted)
	}
	if err := row.Scan(dest...); err != nil {
		return Game{}, err
	}
	g.Date = g.Date.UTC()
	if g.LastBoxScoreAttempt != nil {
		at := g.LastBoxScoreAttempt.UTC()
		g.LastBoxScoreAttempt = &at
	}
	return g, nil
}

func scanPlayerRow(row pgx.CollectableRow) (Player, error) {
	var p Player
	err := row.Scan(&p.ID, &p.FirstName, &p.FamilyName, &p.SourceID, &p.TeamID)
	return p, err
}

func scanStatRow(row pgx.CollectableRow) (StatRow, error) {
	var r StatRow
	var dnp bool
	var line provider.StatLine
	dest := append([]any{&r.PlayerID, &r.PlayerName, &r.GameID, &r.GameDate, &dnp}, statLineDest(&line)...)
	if err := row.Scan(dest...); err != nil {
		return StatRow{}, err
	}
	if !dnp {
		r.Stats = &line
	}
	r.GameDate = r.GameDate.UTC()
	return r, nil
}
