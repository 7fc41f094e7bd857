// Package store persists teams, players, games and per-game player stats.
//
// Every write is an upsert keyed by the entity's external identifier, so
// re-running a sync converges instead of duplicating rows. Parent rows are
// resolved by natural key immediately before each dependent write; a missing
// parent aborts that one write with a ReferenceNotFoundError.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/albapepper/courtside-data/internal/provider"
)

// ----------------------------------------------------------------------------
// Stored entities
// ----------------------------------------------------------------------------

type Team struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	City         string    `json:"city,omitempty"`
	SourceTeamID string    `json:"source_team_id,omitempty"`
	Link         string    `json:"link,omitempty"`
}

type Player struct {
	ID         uuid.UUID  `json:"id"`
	FirstName  string     `json:"first_name"`
	FamilyName string     `json:"family_name"`
	SourceID   int        `json:"source_id"`
	TeamID     *uuid.UUID `json:"team_id,omitempty"`
}

// FullName joins first and family name.
func (p Player) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.FamilyName)
}

type Game struct {
	ID           uuid.UUID `json:"id"`
	Source       string    `json:"source"`
	SourceGameID string    `json:"source_game_id"`
	Date         time.Time `json:"date"`
	HomeTeamID   uuid.UUID `json:"home_team_id"`
	AwayTeamID   uuid.UUID `json:"away_team_id"`
	HomeScore    *int      `json:"home_score"`
	AwayScore    *int      `json:"away_score"`
	Final        bool      `json:"final"`

	// StatsComplete is set once every line of the final box score is stored.
	StatsComplete bool `json:"stats_complete"`
	// Box-score fetches made for this game after it was first stored.
	BoxScoreAttempts    int        `json:"-"`
	LastBoxScoreAttempt *time.Time `json:"-"`
}

// PlayerGameStat is one player's line for one game. Stats is nil for a
// did-not-play entry.
type PlayerGameStat struct {
	ID       uuid.UUID          `json:"id"`
	PlayerID uuid.UUID          `json:"player_id"`
	GameID   uuid.UUID          `json:"game_id"`
	Stats    *provider.StatLine `json:"stats"`
}

// StatRow is a stat line joined with its player and game for the read API.
type StatRow struct {
	PlayerID   uuid.UUID          `json:"player_id"`
	PlayerName string             `json:"player_name"`
	GameID     uuid.UUID          `json:"game_id"`
	GameDate   time.Time          `json:"game_date"`
	Stats      *provider.StatLine `json:"stats"`
}

// ----------------------------------------------------------------------------
// Write inputs
// ----------------------------------------------------------------------------

// PlayerInput is a player keyed by source id. An empty Team leaves the
// player without a team (free agent).
type PlayerInput struct {
	FirstName  string
	FamilyName string
	SourceID   int
	Team       provider.TeamRef
}

// PlayerRef identifies a stored player by internal id or source id.
type PlayerRef struct {
	ID       uuid.UUID
	SourceID int
}

func (r PlayerRef) String() string {
	if r.ID != uuid.Nil {
		return r.ID.String()
	}
	return fmt.Sprintf("source_id=%d", r.SourceID)
}

// GameRef identifies a stored game by internal id or natural key.
type GameRef struct {
	ID           uuid.UUID
	Source       string
	SourceGameID string
}

func (r GameRef) String() string {
	if r.ID != uuid.Nil {
		return r.ID.String()
	}
	return r.Source + ":" + r.SourceGameID
}

// StatInput is one box-score line to store.
type StatInput struct {
	Player PlayerRef
	Game   GameRef
	Stats  *provider.StatLine
}

// DefaultMaxBoxScoreAttempts caps how often a game without a complete box
// score is re-fetched before it drops out of PendingBoxScores.
const DefaultMaxBoxScoreAttempts = 8

// PendingFilter selects games whose box score is not fully stored.
type PendingFilter struct {
	Source string
	// Before excludes games dated at or after it. Zero means no bound.
	Before time.Time
	// FinalOnly keeps games already known to be final.
	FinalOnly bool
	// MaxAttempts excludes games re-fetched this many times. Zero means no cap.
	MaxAttempts int
	// Limit caps the result. Zero means no limit.
	Limit int
}

// Outcome reports what an upsert did.
type Outcome int

const (
	Unchanged Outcome = iota
	Inserted
	Updated
)

func (o Outcome) String() string {
	switch o {
	case Inserted:
		return "inserted"
	case Updated:
		return "updated"
	default:
		return "unchanged"
	}
}

// ----------------------------------------------------------------------------
// Errors
// ----------------------------------------------------------------------------

// ReferenceNotFoundError means a dependent write named a parent row that is
// not stored. Nothing was written.
type ReferenceNotFoundError struct {
	Entity string
	Key    string
}

func (e *ReferenceNotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.Key)
}

// ErrSameTeam is returned for a game whose home and away team resolve to the
// same row.
var ErrSameTeam = errors.New("home and away team are the same")

// ErrDuplicateSourceID is returned when a team name is new but its source
// team id already belongs to another stored team.
var ErrDuplicateSourceID = errors.New("source team id belongs to another team")

// IsNotFound reports whether err is a ReferenceNotFoundError.
func IsNotFound(err error) bool {
	var nf *ReferenceNotFoundError
	return errors.As(err, &nf)
}

// ----------------------------------------------------------------------------
// Interfaces
// ----------------------------------------------------------------------------

// Gateway is the write side used by the sync pipeline.
type Gateway interface {
	UpsertTeam(ctx context.Context, t provider.Team) (Team, Outcome, error)
	UpsertPlayer(ctx context.Context, p PlayerInput) (Player, Outcome, error)
	UpsertGame(ctx context.Context, g provider.Game) (Game, Outcome, error)
	UpsertPlayerGameStat(ctx context.Context, s StatInput) (PlayerGameStat, Outcome, error)

	Teams(ctx context.Context) ([]Team, error)
	Players(ctx context.Context) ([]Player, error)
	TeamByName(ctx context.Context, name string) (Team, error)
	PlayerBySourceID(ctx context.Context, sourceID int) (Player, error)
	// GameKeys returns the source game ids already stored for source.
	GameKeys(ctx context.Context, source string) (map[string]bool, error)
	// LatestFinalGameDates returns, per team, the date of its most recent
	// final game of source with a complete box score.
	LatestFinalGameDates(ctx context.Context, source string) (map[uuid.UUID]time.Time, error)
	// PendingBoxScores lists games whose box score is not complete, least
	// attempted first, then oldest first.
	PendingBoxScores(ctx context.Context, f PendingFilter) ([]Game, error)
	// MarkStatsComplete flags a game whose every box-score line is stored.
	MarkStatsComplete(ctx context.Context, gameID uuid.UUID) error
	// RecordBoxScoreAttempt counts one more box-score fetch for a game.
	RecordBoxScoreAttempt(ctx context.Context, gameID uuid.UUID, at time.Time) error
}

// Reader is the read-only side used by the HTTP API.
type Reader interface {
	ListTeams(ctx context.Context) ([]Team, error)
	ListPlayersByTeam(ctx context.Context, teamID uuid.UUID) ([]Player, error)
	ListStatsByPlayer(ctx context.Context, playerID uuid.UUID) ([]StatRow, error)
	ListStatsByGame(ctx context.Context, gameID uuid.UUID) ([]StatRow, error)
	Ping(ctx context.Context) error
}

func normalizeName(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func uuidPtrEqual(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// coalesce keeps the stored value when the incoming one is absent.
func coalesce(incoming, stored *int) *int {
	if incoming != nil {
		return incoming
	}
	return stored
}

func coalesceString(incoming, stored string) string {
	if incoming != "" {
		return incoming
	}
	return stored
}
