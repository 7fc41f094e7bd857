// Package nba extracts the league schedule and embedded box scores from
// NBA.com JSON feeds and game pages.
package nba

import (
	"fmt"
	"strings"
	"time"

	"github.com/albapepper/courtside-data/internal/provider"
)

const (
	DefaultScheduleURL = "https://cdn.nba.com/static/json/staticData/scheduleLeagueV2_2.json"
	DefaultBaseURL     = "https://www.nba.com"
)

// Site builds NBA.com URLs. Zero fields fall back to production.
type Site struct {
	ScheduleURL string
	BaseURL     string
}

// NewSite returns a Site with production defaults for empty arguments.
func NewSite(scheduleURL, baseURL string) Site {
	if scheduleURL == "" {
		scheduleURL = DefaultScheduleURL
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return Site{ScheduleURL: scheduleURL, BaseURL: strings.TrimRight(baseURL, "/")}
}

func (s Site) GameURL(gameID string) string {
	return fmt.Sprintf("%s/game/%s", s.BaseURL, gameID)
}

// gameStatusFinal is the schedule feed's status code for a finished game.
const gameStatusFinal = 3

// ScheduleRoot mirrors the parts of scheduleLeagueV2 we read.
type ScheduleRoot struct {
	LeagueSchedule struct {
		SeasonYear string         `json:"seasonYear"`
		GameDates  []scheduleDate `json:"gameDates"`
	} `json:"leagueSchedule"`
}

type scheduleDate struct {
	GameDate string         `json:"gameDate"`
	Games    []scheduleGame `json:"games"`
}

type scheduleGame struct {
	GameID          string       `json:"gameId"`
	GameStatus      int          `json:"gameStatus"`
	GameDateTimeUTC string       `json:"gameDateTimeUTC"`
	SeriesText      string       `json:"seriesText"`
	HomeTeam        ScheduleTeam `json:"homeTeam"`
	AwayTeam        ScheduleTeam `json:"awayTeam"`
}

// ScheduleTeam is one side of a scheduled game.
type ScheduleTeam struct {
	TeamID      int    `json:"teamId"`
	TeamName    string `json:"teamName"`
	TeamCity    string `json:"teamCity"`
	TeamTricode string `json:"teamTricode"`
	Score       int    `json:"score"`
}

// FullName returns "City Name", e.g. "Boston Celtics".
func (t ScheduleTeam) FullName() string {
	return strings.TrimSpace(t.TeamCity + " " + t.TeamName)
}

// ScheduledGame is one entry of the league schedule.
type ScheduledGame struct {
	GameID    string
	Preseason bool
	Final     bool
	Start     time.Time
	HomeTeam  ScheduleTeam
	AwayTeam  ScheduleTeam
}

// ExtractSchedule flattens the schedule feed into games in feed order.
func ExtractSchedule(root ScheduleRoot) ([]ScheduledGame, error) {
	if root.LeagueSchedule.GameDates == nil {
		return nil, provider.Missing("schedule", "gameDates")
	}

	var games []ScheduledGame
	for _, day := range root.LeagueSchedule.GameDates {
		for _, g := range day.Games {
			if g.GameID == "" {
				return nil, provider.Missing("schedule", "gameId")
			}
			start, err := provider.ParseUTC(g.GameDateTimeUTC)
			if err != nil {
				return nil, provider.Malformed("schedule", "gameDateTimeUTC", fmt.Errorf("game %s: %w", g.GameID, err))
			}
			games = append(games, ScheduledGame{
				GameID:    g.GameID,
				Preseason: g.SeriesText == "Preseason",
				Final:     g.GameStatus == gameStatusFinal,
				Start:     start,
				HomeTeam:  g.HomeTeam,
				AwayTeam:  g.AwayTeam,
			})
		}
	}
	return games, nil
}

// Kind selects which finished games an extraction run keeps.
type Kind string

const (
	KindPreseason Kind = "preseason"
	KindRegular   Kind = "regular"
)

// ParseKind validates a --kind flag value.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(s)) {
	case KindPreseason:
		return KindPreseason, nil
	case KindRegular, "":
		return KindRegular, nil
	default:
		return "", fmt.Errorf("unknown game kind %q (want preseason or regular)", s)
	}
}

// FinishedOfKind keeps finished games matching kind, in schedule order.
func FinishedOfKind(games []ScheduledGame, kind Kind) []ScheduledGame {
	var out []ScheduledGame
	for _, g := range games {
		if !g.Final {
			continue
		}
		if g.Preseason != (kind == KindPreseason) {
			continue
		}
		out = append(out, g)
	}
	return out
}
