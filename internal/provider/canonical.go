// Package provider defines canonical data types that all extractors normalize
// into. These structs are the contract between page extractors and the seed
// runner: extractors output these, the store writes them to Postgres.
//
// Adding a new source means implementing extractors that return these types.
// The seed runner and Postgres schema never change.
package provider

import (
	"fmt"
	"time"
)

// Source identifiers recorded on games.
const (
	SourceESPN = "espn"
	SourceNBA  = "nba"
)

// Team is the canonical team shape extracted from a team index page.
type Team struct {
	Name         string `json:"name"`
	City         string `json:"city,omitempty"`
	SourceTeamID string `json:"source_team_id,omitempty"` // ESPN slug, e.g. "bos"
	Link         string `json:"link,omitempty"`
}

// TeamRef identifies a team by whichever natural key a page exposes.
// SourceTeamID wins over Name when both are set.
type TeamRef struct {
	Name         string `json:"name,omitempty"`
	SourceTeamID string `json:"source_team_id,omitempty"`
}

func (r TeamRef) String() string {
	if r.SourceTeamID != "" {
		return r.SourceTeamID
	}
	return r.Name
}

// Player is the canonical player profile shape.
type Player struct {
	FirstName  string `json:"first_name"`
	FamilyName string `json:"family_name"`
	SourceID   int    `json:"source_id"`
	TeamName   string `json:"team_name,omitempty"`
}

// FullName joins first and family name.
func (p Player) FullName() string {
	return p.FirstName + " " + p.FamilyName
}

// StatLine is one player's box-score line for one game. Every field is
// nullable; an unparsable cell yields nil for that stat only.
type StatLine struct {
	Minutes                *int `json:"minutes"`
	FieldGoalsMade         *int `json:"field_goals_made"`
	FieldGoalsAttempted    *int `json:"field_goals_attempted"`
	ThreePointersMade      *int `json:"three_pointers_made"`
	ThreePointersAttempted *int `json:"three_pointers_attempted"`
	FreeThrowsMade         *int `json:"free_throws_made"`
	FreeThrowsAttempted    *int `json:"free_throws_attempted"`
	Rebounds               *int `json:"rebounds"`
	Assists                *int `json:"assists"`
	Steals                 *int `json:"steals"`
	Blocks                 *int `json:"blocks"`
	Turnovers              *int `json:"turnovers"`
	Fouls                  *int `json:"fouls"`
	PlusMinus              *int `json:"plus_minus"`
	Points                 *int `json:"points"`
}

// Validate checks made <= attempted for every shot category.
func (s StatLine) Validate() error {
	splits := []struct {
		name           string
		made, attempts *int
	}{
		{"field goals", s.FieldGoalsMade, s.FieldGoalsAttempted},
		{"three pointers", s.ThreePointersMade, s.ThreePointersAttempted},
		{"free throws", s.FreeThrowsMade, s.FreeThrowsAttempted},
	}
	for _, sp := range splits {
		if sp.made == nil || sp.attempts == nil {
			continue
		}
		if *sp.made < 0 || *sp.attempts < 0 || *sp.made > *sp.attempts {
			return fmt.Errorf("invalid %s split %d-%d", sp.name, *sp.made, *sp.attempts)
		}
	}
	return nil
}

// Game is a scheduled or finished game as seen on a game page or schedule.
type Game struct {
	Source       string    `json:"source"`
	SourceGameID string    `json:"source_game_id"`
	Date         time.Time `json:"date"`
	Home         TeamRef   `json:"home"`
	Away         TeamRef   `json:"away"`
	HomeScore    *int      `json:"home_score,omitempty"`
	AwayScore    *int      `json:"away_score,omitempty"`
	Final        bool      `json:"final"`
}

// BoxScoreLine is one roster entry of a box score. Stats is nil when the
// player was on the roster but did not play.
type BoxScoreLine struct {
	SourceID   int       `json:"source_id,omitempty"`
	Name       string    `json:"name"`
	FirstName  string    `json:"first_name,omitempty"`
	FamilyName string    `json:"family_name,omitempty"`
	Stats      *StatLine `json:"stats"`
}

// DidNotPlay reports whether the line is the did-not-play sentinel.
func (l BoxScoreLine) DidNotPlay() bool {
	return l.Stats == nil
}

// TeamBox is one side of a box score.
type TeamBox struct {
	TeamName string         `json:"team_name"`
	TeamCity string         `json:"team_city,omitempty"`
	Score    *int           `json:"score,omitempty"`
	Players  []BoxScoreLine `json:"players"`
}

// FullName returns "City Name" when a city is known.
func (t TeamBox) FullName() string {
	if t.TeamCity == "" {
		return t.TeamName
	}
	return t.TeamCity + " " + t.TeamName
}

// BoxScore is the finalized per-player record of one game. It is also the
// entity stored in snapshot files.
type BoxScore struct {
	Source       string    `json:"source"`
	SourceGameID string    `json:"source_game_id"`
	Date         time.Time `json:"date"`
	Preseason    bool      `json:"preseason,omitempty"`
	Final        bool      `json:"final"`
	Home         TeamBox   `json:"home"`
	Away         TeamBox   `json:"away"`
}

// GameLogEntry is one row of a player's season game log. Game-level fields
// (date, opponent, result) belong to the game rather than the player.
type GameLogEntry struct {
	Date                 time.Time `json:"date"`
	OpponentAbbreviation string    `json:"opponent"`
	Result               string    `json:"result"`
	Score                string    `json:"score"`
	IsHome               bool      `json:"is_home"`
	Stats                StatLine  `json:"stats"`
	FieldGoalPct         *float64  `json:"field_goal_pct,omitempty"`
	ThreePointPct        *float64  `json:"three_point_pct,omitempty"`
	FreeThrowPct         *float64  `json:"free_throw_pct,omitempty"`
}

// PlayerGameLog is a player profile plus their regular season game log.
type PlayerGameLog struct {
	Player  Player         `json:"player"`
	Entries []GameLogEntry `json:"entries"`
}
