package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/albapepper/courtside-data/internal/provider"
)

// Memory is an in-process Gateway and Reader with the same upsert semantics
// as Postgres. Used for dry runs and tests.
type Memory struct {
	mu      sync.RWMutex
	teams   map[uuid.UUID]Team
	players map[uuid.UUID]Player
	games   map[uuid.UUID]Game
	stats   map[uuid.UUID]PlayerGameStat
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{
		teams:   make(map[uuid.UUID]Team),
		players: make(map[uuid.UUID]Player),
		games:   make(map[uuid.UUID]Game),
		stats:   make(map[uuid.UUID]PlayerGameStat),
	}
}

var (
	_ Gateway = (*Memory)(nil)
	_ Reader  = (*Memory)(nil)
)

// ----------------------------------------------------------------------------
// Upserts
// ----------------------------------------------------------------------------

func (m *Memory) UpsertTeam(_ context.Context, t provider.Team) (Team, Outcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, found := m.teamByNameLocked(t.Name)
	if owner, ok := m.teamBySourceIDLocked(t.SourceTeamID); ok && (!found || owner.ID != existing.ID) {
		return Team{}, Unchanged, fmt.Errorf("upsert team %q: %w: %s", t.Name, ErrDuplicateSourceID, t.SourceTeamID)
	}

	if found {
		next := existing
		next.City = coalesceString(t.City, existing.City)
		next.SourceTeamID = coalesceString(t.SourceTeamID, existing.SourceTeamID)
		next.Link = coalesceString(t.Link, existing.Link)
		if next == existing {
			return existing, Unchanged, nil
		}
		m.teams[next.ID] = next
		return next, Updated, nil
	}

	team := Team{
		ID:           uuid.New(),
		Name:         t.Name,
		City:         t.City,
		SourceTeamID: t.SourceTeamID,
		Link:         t.Link,
	}
	m.teams[team.ID] = team
	return team, Inserted, nil
}

func (m *Memory) UpsertPlayer(_ context.Context, p PlayerInput) (Player, Outcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var teamID *uuid.UUID
	if p.Team != (provider.TeamRef{}) {
		team, err := m.resolveTeamLocked(p.Team)
		if err != nil {
			return Player{}, Unchanged, err
		}
		teamID = &team.ID
	}

	if existing, ok := m.playerBySourceIDLocked(p.SourceID); ok {
		next := existing
		next.FirstName = p.FirstName
		next.FamilyName = p.FamilyName
		next.TeamID = teamID
		if next.FirstName == existing.FirstName && next.FamilyName == existing.FamilyName && uuidPtrEqual(next.TeamID, existing.TeamID) {
			return existing, Unchanged, nil
		}
		m.players[next.ID] = next
		return next, Updated, nil
	}

	player := Player{
		ID:         uuid.New(),
		FirstName:  p.FirstName,
		FamilyName: p.FamilyName,
		SourceID:   p.SourceID,
		TeamID:     teamID,
	}
	m.players[player.ID] = player
	return player, Inserted, nil
}

func (m *Memory) UpsertGame(_ context.Context, g provider.Game) (Game, Outcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	home, err := m.resolveTeamLocked(g.Home)
	if err != nil {
		return Game{}, Unchanged, err
	}
	away, err := m.resolveTeamLocked(g.Away)
	if err != nil {
		return Game{}, Unchanged, err
	}
	if home.ID == away.ID {
		return Game{}, Unchanged, ErrSameTeam
	}

	if existing, ok := m.gameByKeyLocked(g.Source, g.SourceGameID); ok {
		next := existing
		next.Date = g.Date
		next.HomeTeamID = home.ID
		next.AwayTeamID = away.ID
		next.HomeScore = coalesce(g.HomeScore, existing.HomeScore)
		next.AwayScore = coalesce(g.AwayScore, existing.AwayScore)
		next.Final = existing.Final || g.Final
		if gamesEqual(next, existing) {
			return existing, Unchanged, nil
		}
		m.games[next.ID] = next
		return next, Updated, nil
	}

	game := Game{
		ID:           uuid.New(),
		Source:       g.Source,
		SourceGameID: g.SourceGameID,
		Date:         g.Date,
		HomeTeamID:   home.ID,
		AwayTeamID:   away.ID,
		HomeScore:    g.HomeScore,
		AwayScore:    g.AwayScore,
		Final:        g.Final,
	}
	m.games[game.ID] = game
	return game, Inserted, nil
}

func (m *Memory) UpsertPlayerGameStat(_ context.Context, s StatInput) (PlayerGameStat, Outcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	player, err := m.resolvePlayerLocked(s.Player)
	if err != nil {
		return PlayerGameStat{}, Unchanged, err
	}
	game, err := m.resolveGameLocked(s.Game)
	if err != nil {
		return PlayerGameStat{}, Unchanged, err
	}

	for _, existing := range m.stats {
		if existing.PlayerID == player.ID && existing.GameID == game.ID {
			return existing, Unchanged, nil
		}
	}

	stat := PlayerGameStat{
		ID:       uuid.New(),
		PlayerID: player.ID,
		GameID:   game.ID,
		Stats:    copyStatLine(s.Stats),
	}
	m.stats[stat.ID] = stat
	return stat, Inserted, nil
}

// ----------------------------------------------------------------------------
// Lookups
// ----------------------------------------------------------------------------

func (m *Memory) Teams(_ context.Context) ([]Team, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Team, 0, len(m.teams))
	for _, t := range m.teams {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) Players(_ context.Context) ([]Player, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Player, 0, len(m.players))
	for _, p := range m.players {
		out = append(out, p)
	}
	sortPlayers(out)
	return out, nil
}

func (m *Memory) TeamByName(_ context.Context, name string) (Team, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if t, ok := m.teamByNameLocked(name); ok {
		return t, nil
	}
	return Team{}, &ReferenceNotFoundError{Entity: "team", Key: name}
}

func (m *Memory) PlayerBySourceID(_ context.Context, sourceID int) (Player, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.playerBySourceIDLocked(sourceID); ok {
		return p, nil
	}
	return Player{}, &ReferenceNotFoundError{Entity: "player", Key: PlayerRef{SourceID: sourceID}.String()}
}

func (m *Memory) GameKeys(_ context.Context, source string) (map[string]bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make(map[string]bool)
	for _, g := range m.games {
		if g.Source == source {
			keys[g.SourceGameID] = true
		}
	}
	return keys, nil
}

func (m *Memory) LatestFinalGameDates(_ context.Context, source string) (map[uuid.UUID]time.Time, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[uuid.UUID]time.Time)
	for _, g := range m.games {
		if g.Source != source || !g.Final || !g.StatsComplete {
			continue
		}
		for _, team := range []uuid.UUID{g.HomeTeamID, g.AwayTeamID} {
			if g.Date.After(out[team]) {
				out[team] = g.Date
			}
		}
	}
	return out, nil
}

func (m *Memory) PendingBoxScores(_ context.Context, f PendingFilter) ([]Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Game
	for _, g := range m.games {
		switch {
		case g.Source != f.Source || g.StatsComplete:
		case !f.Before.IsZero() && !g.Date.Before(f.Before):
		case f.FinalOnly && !g.Final:
		case f.MaxAttempts > 0 && g.BoxScoreAttempts >= f.MaxAttempts:
		default:
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return pendingLess(out[i], out[j]) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *Memory) MarkStatsComplete(_ context.Context, gameID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[gameID]
	if !ok {
		return &ReferenceNotFoundError{Entity: "game", Key: gameID.String()}
	}
	g.StatsComplete = true
	m.games[gameID] = g
	return nil
}

func (m *Memory) RecordBoxScoreAttempt(_ context.Context, gameID uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[gameID]
	if !ok {
		return &ReferenceNotFoundError{Entity: "game", Key: gameID.String()}
	}
	at = at.UTC()
	g.BoxScoreAttempts++
	g.LastBoxScoreAttempt = &at
	m.games[gameID] = g
	return nil
}

// ----------------------------------------------------------------------------
// Reader
// ----------------------------------------------------------------------------

func (m *Memory) ListTeams(ctx context.Context) ([]Team, error) {
	return m.Teams(ctx)
}

func (m *Memory) ListPlayersByTeam(_ context.Context, teamID uuid.UUID) ([]Player, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Player{}
	for _, p := range m.players {
		if p.TeamID != nil && *p.TeamID == teamID {
			out = append(out, p)
		}
	}
	sortPlayers(out)
	return out, nil
}

func (m *Memory) ListStatsByPlayer(_ context.Context, playerID uuid.UUID) ([]StatRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []StatRow{}
	for _, s := range m.stats {
		if s.PlayerID == playerID {
			out = append(out, m.statRowLocked(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GameDate.Before(out[j].GameDate) })
	return out, nil
}

func (m *Memory) ListStatsByGame(_ context.Context, gameID uuid.UUID) ([]StatRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []StatRow{}
	for _, s := range m.stats {
		if s.GameID == gameID {
			out = append(out, m.statRowLocked(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlayerName < out[j].PlayerName })
	return out, nil
}

func (m *Memory) Ping(context.Context) error { return nil }

// ----------------------------------------------------------------------------
// Helpers (callers hold m.mu)
// ----------------------------------------------------------------------------

func (m *Memory) teamByNameLocked(name string) (Team, bool) {
	key := normalizeName(name)
	for _, t := range m.teams {
		if normalizeName(t.Name) == key {
			return t, true
		}
	}
	return Team{}, false
}

func (m *Memory) teamBySourceIDLocked(id string) (Team, bool) {
	if id == "" {
		return Team{}, false
	}
	for _, t := range m.teams {
		if t.SourceTeamID == id {
			return t, true
		}
	}
	return Team{}, false
}

func (m *Memory) resolveTeamLocked(ref provider.TeamRef) (Team, error) {
	if t, ok := m.teamBySourceIDLocked(ref.SourceTeamID); ok {
		return t, nil
	}
	if ref.Name != "" {
		if t, ok := m.teamByNameLocked(ref.Name); ok {
			return t, nil
		}
	}
	return Team{}, &ReferenceNotFoundError{Entity: "team", Key: ref.String()}
}

func (m *Memory) playerBySourceIDLocked(id int) (Player, bool) {
	for _, p := range m.players {
		if p.SourceID == id {
			return p, true
		}
	}
	return Player{}, false
}

func (m *Memory) resolvePlayerLocked(ref PlayerRef) (Player, error) {
	if ref.ID != uuid.Nil {
		if p, ok := m.players[ref.ID]; ok {
			return p, nil
		}
	} else if p, ok := m.playerBySourceIDLocked(ref.SourceID); ok {
		return p, nil
	}
	return Player{}, &ReferenceNotFoundError{Entity: "player", Key: ref.String()}
}

func (m *Memory) gameByKeyLocked(source, id string) (Game, bool) {
	for _, g := range m.games {
		if g.Source == source && g.SourceGameID == id {
			return g, true
		}
	}
	return Game{}, false
}

func (m *Memory) resolveGameLocked(ref GameRef) (Game, error) {
	if ref.ID != uuid.Nil {
		if g, ok := m.games[ref.ID]; ok {
			return g, nil
		}
	} else if g, ok := m.gameByKeyLocked(ref.Source, ref.SourceGameID); ok {
		return g, nil
	}
	return Game{}, &ReferenceNotFoundError{Entity: "game", Key: ref.String()}
}

func (m *Memory) statRowLocked(s PlayerGameStat) StatRow {
	p := m.players[s.PlayerID]
	g := m.games[s.GameID]
	return StatRow{
		PlayerID:   s.PlayerID,
		PlayerName: p.FullName(),
		GameID:     s.GameID,
		GameDate:   g.Date,
		Stats:      copyStatLine(s.Stats),
	}
}

func gamesEqual(a, b Game) bool {
	return a.Date.Equal(b.Date) &&
		a.HomeTeamID == b.HomeTeamID &&
		a.AwayTeamID == b.AwayTeamID &&
		intPtrEqual(a.HomeScore, b.HomeScore) &&
		intPtrEqual(a.AwayScore, b.AwayScore) &&
		a.Final == b.Final
}

// pendingLess orders like the pending_box_scores statement: fewest attempts,
// never attempted before the oldest attempt, then by date and id.
func pendingLess(a, b Game) bool {
	if a.BoxScoreAttempts != b.BoxScoreAttempts {
		return a.BoxScoreAttempts < b.BoxScoreAttempts
	}
	switch {
	case a.LastBoxScoreAttempt == nil && b.LastBoxScoreAttempt != nil:
		return true
	case a.LastBoxScoreAttempt != nil && b.LastBoxScoreAttempt == nil:
		return false
	case a.LastBoxScoreAttempt != nil && !a.LastBoxScoreAttempt.Equal(*b.LastBoxScoreAttempt):
		return a.LastBoxScoreAttempt.Before(*b.LastBoxScoreAttempt)
	}
	if !a.Date.Equal(b.Date) {
		return a.Date.Before(b.Date)
	}
	return a.SourceGameID < b.SourceGameID
}

func sortPlayers(ps []Player) {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].FamilyName != ps[j].FamilyName {
			return ps[i].FamilyName < ps[j].FamilyName
		}
		return ps[i].FirstName < ps[j].FirstName
	})
}

func copyStatLine(s *provider.StatLine) *provider.StatLine {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
