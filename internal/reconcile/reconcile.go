// Package reconcile compares freshly extracted entities with stored ones.
// It never writes: callers insert New, update Changed and report Stale.
package reconcile

import (
	"fmt"
	"sort"
	"strings"

	"github.com/antzucaro/matchr"
	"github.com/google/uuid"

	"github.com/albapepper/courtside-data/internal/store"
)

// Change pairs the stored and extracted versions of one entity.
type Change[T any] struct {
	Local  T
	Remote T
}

// Partition is the result of Diff. New, Unchanged and Changed follow remote
// order; Stale follows local order.
type Partition[T any] struct {
	New       []T
	Stale     []T
	Unchanged []T
	Changed   []Change[T]
}

// Diff partitions remote against local by key. changed may be nil, in which
// case every entity present on both sides is Unchanged. Duplicate remote
// keys are considered once.
func Diff[T any](local, remote []T, key func(T) string, changed func(local, remote T) bool) Partition[T] {
	stored := make(map[string]T, len(local))
	for _, l := range local {
		stored[key(l)] = l
	}

	var p Partition[T]
	seen := make(map[string]bool, len(remote))
	for _, r := range remote {
		k := key(r)
		if seen[k] {
			continue
		}
		seen[k] = true

		l, ok := stored[k]
		switch {
		case !ok:
			p.New = append(p.New, r)
		case changed != nil && changed(l, r):
			p.Changed = append(p.Changed, Change[T]{Local: l, Remote: r})
		default:
			p.Unchanged = append(p.Unchanged, r)
		}
	}
	for _, l := range local {
		if !seen[key(l)] {
			p.Stale = append(p.Stale, l)
		}
	}
	return p
}

// NewGameIDs returns candidates not present in known, de-duplicated, in
// first-seen order.
func NewGameIDs(known map[string]bool, candidates []string) []string {
	out := make([]string, 0, len(candidates))
	seen := make(map[string]bool, len(candidates))
	for _, id := range candidates {
		if id == "" || known[id] || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// TeamsNeedingSchedules returns the teams with no entry in covered, keeping
// input order. A team that appears in any stored game of this season has
// had its schedule walked already.
func TeamsNeedingSchedules(teams []store.Team, covered map[uuid.UUID]bool) []store.Team {
	var out []store.Team
	for _, t := range teams {
		if !covered[t.ID] {
			out = append(out, t)
		}
	}
	return out
}

// ----------------------------------------------------------------------------
// Player name matching
// ----------------------------------------------------------------------------

const maxSuggestions = 3

// ReconciliationAmbiguity reports a player name that matched zero or several
// stored players. Suggestions are the closest stored names for the report
// and are never used as a match.
type ReconciliationAmbiguity struct {
	Name        string
	Matches     []store.Player
	Suggestions []string
}

func (e *ReconciliationAmbiguity) Error() string {
	if len(e.Matches) == 0 {
		if len(e.Suggestions) > 0 {
			return fmt.Sprintf("no stored player named %q (closest: %s)", e.Name, strings.Join(e.Suggestions, ", "))
		}
		return fmt.Sprintf("no stored player named %q", e.Name)
	}
	return fmt.Sprintf("%d stored players named %q", len(e.Matches), e.Name)
}

// ResolvePlayer finds the single candidate whose case-normalized full name
// equals fullName.
func ResolvePlayer(candidates []store.Player, fullName string) (store.Player, error) {
	want := normalize(fullName)
	var matches []store.Player
	for _, c := range candidates {
		if normalize(c.FullName()) == want {
			matches = append(matches, c)
		}
	}
	if len(matches) == 1 {
		return matches[0], nil
	}
	amb := &ReconciliationAmbiguity{Name: fullName, Matches: matches}
	if len(matches) == 0 {
		amb.Suggestions = suggest(candidates, want)
	}
	return store.Player{}, amb
}

// Index answers ResolvePlayer without rescanning the candidate list for
// every name.
type Index struct {
	players []store.Player
	byName  map[string][]store.Player
}

func NewIndex(players []store.Player) *Index {
	idx := &Index{players: players, byName: make(map[string][]store.Player, len(players))}
	for _, p := range players {
		k := normalize(p.FullName())
		idx.byName[k] = append(idx.byName[k], p)
	}
	return idx
}

// Resolve behaves like ResolvePlayer over the indexed players.
func (idx *Index) Resolve(fullName string) (store.Player, error) {
	want := normalize(fullName)
	matches := idx.byName[want]
	if len(matches) == 1 {
		return matches[0], nil
	}
	amb := &ReconciliationAmbiguity{Name: fullName, Matches: matches}
	if len(matches) == 0 {
		amb.Suggestions = suggest(idx.players, want)
	}
	return store.Player{}, amb
}

func suggest(candidates []store.Player, want string) []string {
	type scored struct {
		name  string
		score float64
	}
	var all []scored
	for _, c := range candidates {
		name := c.FullName()
		if s := matchr.JaroWinkler(want, normalize(name), false); s > 0 {
			all = append(all, scored{name, s})
		}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].score > all[j].score })

	var out []string
	for _, s := range all {
		if len(out) == maxSuggestions {
			break
		}
		out = append(out, s.name)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
