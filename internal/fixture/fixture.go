// Package fixture works the box-score backlog: games stored before they
// were final have no stat rows, and are re-fetched here once enough time
// has passed for the final box score to be published.
package fixture

import (
	"fmt"
	"time"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	defaultMaxGames = 50
	// ESPN game dates carry no time of day; a game dated D has finished by
	// D+30h in every US time zone.
	defaultSettleDelay = 30 * time.Hour
)

// --------------------------------------------------------------------------
// Types
// --------------------------------------------------------------------------

// Result tracks the outcome of re-fetching a single game.
type Result struct {
	GameID        string
	StatsInserted int
	StatsFailed   int
	// StillPending is set when the game is not final yet.
	StillPending bool
	Success      bool
	Error        string
	Duration     time.Duration
}

// Summary returns a human-readable summary.
func (r *Result) Summary() string {
	status := "ok"
	switch {
	case !r.Success:
		status = "FAILED"
	case r.StillPending:
		status = "pending"
	}
	return fmt.Sprintf("game=%s stats=%d stat_failures=%d status=%s dur=%s",
		r.GameID, r.StatsInserted, r.StatsFailed, status, r.Duration.Round(time.Millisecond))
}

// SchedulerResult tracks the outcome of a full backlog run.
type SchedulerResult struct {
	GamesFound        int
	GamesProcessed    int
	GamesSucceeded    int
	GamesStillPending int
	GamesFailed       int
	StatsInserted     int
	Duration          time.Duration
	Errors            []string
	Results           []Result
}

// Summary returns a human-readable summary.
func (r *SchedulerResult) Summary() string {
	return fmt.Sprintf(
		"found=%d processed=%d succeeded=%d pending=%d failed=%d stats=%d dur=%s",
		r.GamesFound, r.GamesProcessed, r.GamesSucceeded, r.GamesStillPending,
		r.GamesFailed, r.StatsInserted, r.Duration.Round(time.Second))
}
