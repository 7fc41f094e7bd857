package seed

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/albapepper/courtside-data/internal/batch"
	"github.com/albapepper/courtside-data/internal/provider"
	"github.com/albapepper/courtside-data/internal/provider/espn"
	"github.com/albapepper/courtside-data/internal/reconcile"
	"github.com/albapepper/courtside-data/internal/store"
)

// SyncGames walks team schedules and ingests games not stored yet. Teams
// whose latest final game already has a complete box score within
// ScheduleFreshness are skipped, and ids seen on an earlier team's schedule
// are not fetched again. Stored final games with an incomplete box score
// are re-ingested afterwards; stored games that were not final are left to
// the backlog.
func (s *Syncer) SyncGames(ctx context.Context) (SeedResult, error) {
	var result SeedResult

	teams, err := s.store.Teams(ctx)
	if err != nil {
		return result, fmt.Errorf("load teams: %w", err)
	}
	latest, err := s.store.LatestFinalGameDates(ctx, provider.SourceESPN)
	if err != nil {
		return result, fmt.Errorf("load latest games: %w", err)
	}
	known, err := s.store.GameKeys(ctx, provider.SourceESPN)
	if err != nil {
		return result, fmt.Errorf("load game keys: %w", err)
	}
	incomplete, err := s.store.PendingBoxScores(ctx, store.PendingFilter{
		Source:      provider.SourceESPN,
		FinalOnly:   true,
		MaxAttempts: s.opts.MaxBoxScoreAttempts,
	})
	if err != nil {
		return result, fmt.Errorf("load incomplete games: %w", err)
	}
	retrying := make(map[string]bool, len(incomplete))
	for _, g := range incomplete {
		retrying[g.SourceGameID] = true
	}

	covered := make(map[uuid.UUID]bool)
	if s.opts.ScheduleFreshness > 0 {
		cutoff := s.opts.Now().Add(-s.opts.ScheduleFreshness)
		for id, date := range latest {
			if !date.Before(cutoff) {
				covered[id] = true
			}
		}
	}
	todo := reconcile.TeamsNeedingSchedules(teams, covered)
	s.logger.Info("Syncing games...", "teams", len(todo), "skipped_teams", len(teams)-len(todo), "known_games", len(known))

	schedules, err := batch.Run(ctx, todo, s.fetchScheduleIDs, s.batchOptions("schedules"))
	var candidates []string
	for i, r := range schedules {
		if !r.OK() {
			result.AddErrorf("schedule %s: %v", todo[i].Name, r.Err)
			continue
		}
		candidates = append(candidates, r.Value...)
	}
	if err != nil {
		return result, err
	}

	fresh := reconcile.NewGameIDs(known, candidates)
	for _, id := range reconcile.NewGameIDs(nil, candidates) {
		if known[id] && !retrying[id] {
			result.Games.Unchanged++
		}
	}

	ingested, err := s.IngestGames(ctx, fresh)
	result.Add(ingested)
	if err != nil {
		return result, err
	}

	retried, err := s.retryIncomplete(ctx, incomplete)
	result.Add(retried)
	if err != nil {
		return result, err
	}

	s.logger.Info("Games done", "games", result.Games.String(), "player_stats", result.PlayerStats.String())
	return result, nil
}

// retryIncomplete re-ingests stored final games whose box score has missing
// lines. Stat upserts are idempotent, so only the gaps are written. Each
// retry counts as a box-score attempt.
func (s *Syncer) retryIncomplete(ctx context.Context, games []store.Game) (SeedResult, error) {
	if len(games) == 0 {
		return SeedResult{}, nil
	}
	ids := make([]string, len(games))
	for i, g := range games {
		ids[i] = g.SourceGameID
	}
	s.logger.Info("Retrying incomplete box scores", "games", len(ids))

	result, err := s.IngestGames(ctx, ids)
	now := s.opts.Now()
	for _, g := range games {
		if rerr := s.store.RecordBoxScoreAttempt(ctx, g.ID, now); rerr != nil {
			result.AddErrorf("game %s: record attempt: %v", g.SourceGameID, rerr)
		}
	}
	return result, err
}

func (s *Syncer) fetchScheduleIDs(ctx context.Context, team store.Team) ([]string, error) {
	if team.SourceTeamID == "" {
		return nil, fmt.Errorf("team %q has no source id", team.Name)
	}
	doc, err := s.fetch.Document(ctx, s.opts.ESPN.ScheduleURL(team.SourceTeamID))
	if err != nil {
		return nil, err
	}
	return espn.ExtractScheduleGameIDs(doc)
}

// IngestGames runs IngestGame for each id through the batch runner. A
// failing game is recorded and the rest continue.
func (s *Syncer) IngestGames(ctx context.Context, ids []string) (SeedResult, error) {
	var result SeedResult
	results, err := batch.Run(ctx, ids, s.IngestGame, s.batchOptions("games"))
	for i, r := range results {
		// A game stored before its box score failed still counts.
		result.Add(r.Value)
		if !r.OK() {
			result.Games.Failed++
			result.AddErrorf("game %s: %v", ids[i], r.Err)
		}
	}
	return result, err
}

// IngestGame fetches one game's header and stores the game. When the game
// is final its box score is fetched and every line stored. A game that is
// not final is stored without stats and picked up later by the backlog.
func (s *Syncer) IngestGame(ctx context.Context, id string) (SeedResult, error) {
	var result SeedResult

	doc, err := s.fetch.Document(ctx, s.opts.ESPN.GameURL(id))
	if err != nil {
		return result, err
	}
	header, err := espn.ExtractGameHeader(doc, id)
	if err != nil {
		return result, err
	}
	game, outcome, err := s.store.UpsertGame(ctx, header)
	if err != nil {
		return result, err
	}
	result.Games.Record(outcome)
	if !header.Final {
		s.logger.Info("Game not final yet", "game_id", id)
		return result, nil
	}

	doc, err = s.fetch.Document(ctx, s.opts.ESPN.BoxScoreURL(id))
	if err != nil {
		return result, err
	}
	box, err := espn.ExtractBoxScore(doc, id)
	if err != nil {
		return result, err
	}

	stats := s.writeBoxScore(ctx, game, box, header.Home, header.Away, s.ensureESPNPlayer)
	result.Add(stats)
	return result, nil
}

// playerResolver maps one box-score line to a stored player, inserting it
// first when the source allows.
type playerResolver func(ctx context.Context, line provider.BoxScoreLine, team provider.TeamRef, result *SeedResult) (store.PlayerRef, error)

// writeBoxScore stores every line of both sides. A line whose player cannot
// be resolved or whose shot splits are impossible is reported and skipped.
// The game is marked complete only when no line failed.
func (s *Syncer) writeBoxScore(ctx context.Context, game store.Game, box provider.BoxScore, home, away provider.TeamRef, resolve playerResolver) SeedResult {
	var result SeedResult
	sides := []struct {
		box  provider.TeamBox
		team provider.TeamRef
	}{{box.Away, away}, {box.Home, home}}

	for _, side := range sides {
		for _, line := range side.box.Players {
			if line.Stats != nil {
				if err := line.Stats.Validate(); err != nil {
					result.PlayerStats.Failed++
					result.AddErrorf("game %s: player %q: %v", game.SourceGameID, line.Name, err)
					continue
				}
			}
			ref, err := resolve(ctx, line, side.team, &result)
			if err != nil {
				result.PlayerStats.Failed++
				result.AddErrorf("game %s: player %q: %v", game.SourceGameID, line.Name, err)
				s.logger.Warn("Stat line skipped", "game_id", game.SourceGameID, "player", line.Name, "error", err)
				continue
			}
			_, outcome, err := s.store.UpsertPlayerGameStat(ctx, store.StatInput{
				Player: ref,
				Game:   store.GameRef{ID: game.ID},
				Stats:  line.Stats,
			})
			if err != nil {
				result.PlayerStats.Failed++
				result.AddErrorf("game %s: stats for %q: %v", game.SourceGameID, line.Name, err)
				continue
			}
			result.PlayerStats.Record(outcome)
		}
	}

	if result.PlayerStats.Failed > 0 {
		return result
	}
	if err := s.store.MarkStatsComplete(ctx, game.ID); err != nil {
		result.AddErrorf("game %s: mark complete: %v", game.SourceGameID, err)
	}
	return result
}

// ensureESPNPlayer resolves a line by ESPN id. A player seen in a box score
// but on no current roster is inserted from their profile with the team
// they played for.
func (s *Syncer) ensureESPNPlayer(ctx context.Context, line provider.BoxScoreLine, team provider.TeamRef, result *SeedResult) (store.PlayerRef, error) {
	p, err := s.store.PlayerBySourceID(ctx, line.SourceID)
	if err == nil {
		return store.PlayerRef{ID: p.ID}, nil
	}
	if !store.IsNotFound(err) {
		return store.PlayerRef{}, err
	}

	profile, err := s.fetchProfile(ctx, line.SourceID)
	if err != nil {
		return store.PlayerRef{}, err
	}
	p, outcome, err := s.store.UpsertPlayer(ctx, store.PlayerInput{
		FirstName:  profile.FirstName,
		FamilyName: profile.FamilyName,
		SourceID:   line.SourceID,
		Team:       team,
	})
	if err != nil {
		result.Players.Failed++
		return store.PlayerRef{}, err
	}
	result.Players.Record(outcome)
	return store.PlayerRef{ID: p.ID}, nil
}
