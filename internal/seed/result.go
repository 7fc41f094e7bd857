// Package seed orchestrates fetch, extract, reconcile and store for every
// sync command.
package seed

import (
	"fmt"

	"github.com/albapepper/courtside-data/internal/store"
)

// Counts tallies upsert outcomes for one entity type.
type Counts struct {
	Inserted  int
	Updated   int
	Unchanged int
	Failed    int
}

// Record counts one upsert outcome.
func (c *Counts) Record(o store.Outcome) {
	switch o {
	case store.Inserted:
		c.Inserted++
	case store.Updated:
		c.Updated++
	default:
		c.Unchanged++
	}
}

func (c *Counts) add(o Counts) {
	c.Inserted += o.Inserted
	c.Updated += o.Updated
	c.Unchanged += o.Unchanged
	c.Failed += o.Failed
}

// Succeeded is every item that did not fail, written or not.
func (c Counts) Succeeded() int {
	return c.Inserted + c.Updated + c.Unchanged
}

func (c Counts) String() string {
	return fmt.Sprintf("%d new/%d updated/%d unchanged/%d failed", c.Inserted, c.Updated, c.Unchanged, c.Failed)
}

// SeedResult tracks counts and errors from a seeding operation.
type SeedResult struct {
	Teams       Counts
	Players     Counts
	Games       Counts
	PlayerStats Counts
	// BoxScores counts snapshot extraction: Inserted were added to the
	// file, Unchanged were already in it.
	BoxScores Counts
	// Stale lists stored entities the source no longer shows. They are
	// reported, never deleted.
	Stale  []string
	Errors []string
}

// Add merges another SeedResult into this one.
func (r *SeedResult) Add(other SeedResult) {
	r.Teams.add(other.Teams)
	r.Players.add(other.Players)
	r.Games.add(other.Games)
	r.PlayerStats.add(other.PlayerStats)
	r.BoxScores.add(other.BoxScores)
	r.Stale = append(r.Stale, other.Stale...)
	r.Errors = append(r.Errors, other.Errors...)
}

// AddError records an error message.
func (r *SeedResult) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
}

// AddErrorf records a formatted error message.
func (r *SeedResult) AddErrorf(format string, args ...interface{}) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// AddStale records a stored entity missing from the source.
func (r *SeedResult) AddStale(entity, key string) {
	r.Stale = append(r.Stale, entity+" "+key)
}

// Inserted is the number of rows created across all tables.
func (r *SeedResult) Inserted() int {
	return r.Teams.Inserted + r.Players.Inserted + r.Games.Inserted + r.PlayerStats.Inserted
}

// Succeeded is the number of items processed without error.
func (r *SeedResult) Succeeded() int {
	return r.Teams.Succeeded() + r.Players.Succeeded() + r.Games.Succeeded() +
		r.PlayerStats.Succeeded() + r.BoxScores.Succeeded()
}

// Failed is the number of items that failed.
func (r *SeedResult) Failed() int {
	return r.Teams.Failed + r.Players.Failed + r.Games.Failed + r.PlayerStats.Failed + r.BoxScores.Failed
}

// Summary returns a human-readable summary of the seed operation.
func (r *SeedResult) Summary() string {
	return fmt.Sprintf(
		"teams=[%s] players=[%s] games=[%s] player_stats=[%s] box_scores=[%s] stale=%d succeeded=%d failed=%d errors=%d",
		r.Teams, r.Players, r.Games, r.PlayerStats, r.BoxScores,
		len(r.Stale), r.Succeeded(), r.Failed(), len(r.Errors),
	)
}
