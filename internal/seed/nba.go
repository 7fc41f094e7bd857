package seed

import (
	"context"
	"fmt"

	"github.com/albapepper/courtside-data/internal/batch"
	"github.com/albapepper/courtside-data/internal/provider"
	"github.com/albapepper/courtside-data/internal/provider/nba"
	"github.com/albapepper/courtside-data/internal/reconcile"
	"github.com/albapepper/courtside-data/internal/snapshot"
	"github.com/albapepper/courtside-data/internal/store"
)

// ExtractNBA fetches the NBA.com league schedule, keeps finished games of
// kind within the configured season that are not in the snapshot at path yet, extracts their box scores
// and appends the successes. Games extracted before a cancellation are
// still written.
func (s *Syncer) ExtractNBA(ctx context.Context, path string, kind nba.Kind) (SeedResult, error) {
	var result SeedResult

	s.logger.Info("Extracting NBA.com box scores...", "kind", kind, "path", path)
	var root nba.ScheduleRoot
	if err := s.fetch.JSON(ctx, s.opts.NBA.ScheduleURL, &root); err != nil {
		return result, fmt.Errorf("fetch schedule: %w", err)
	}
	games, err := nba.ExtractSchedule(root)
	if err != nil {
		return result, fmt.Errorf("extract schedule: %w", err)
	}

	have := snapshot.IDs(snapshot.Load(path, s.logger))
	var todo []nba.ScheduledGame
	outside := 0
	for _, g := range nba.FinishedOfKind(games, kind) {
		if s.opts.Season.StartYear != 0 && !s.opts.Season.Contains(g.Start) {
			outside++
			continue
		}
		if have[g.GameID] {
			result.BoxScores.Unchanged++
			continue
		}
		todo = append(todo, g)
	}
	s.logger.Info("NBA.com games to extract", "count", len(todo), "already_extracted", result.BoxScores.Unchanged,
		"season", s.opts.Season.String(), "outside_season", outside)

	results, runErr := batch.Run(ctx, todo, s.extractNBAGame, s.batchOptions("nba-boxscores"))
	for i, r := range results {
		if !r.OK() {
			result.BoxScores.Failed++
			result.AddErrorf("nba game %s: %v", todo[i].GameID, r.Err)
		}
	}

	extracted := batch.Values(results)
	if len(extracted) > 0 {
		added, err := snapshot.Append(path, extracted, s.logger)
		if err != nil {
			return result, err
		}
		result.BoxScores.Inserted += added
		result.BoxScores.Unchanged += len(extracted) - added
	}
	return result, runErr
}

func (s *Syncer) extractNBAGame(ctx context.Context, g nba.ScheduledGame) (provider.BoxScore, error) {
	doc, err := s.fetch.Document(ctx, s.opts.NBA.GameURL(g.GameID))
	if err != nil {
		return provider.BoxScore{}, err
	}
	box, err := nba.ExtractBoxScore(doc, g.GameID)
	if err != nil {
		return provider.BoxScore{}, err
	}
	box.Preseason = g.Preseason
	if box.Date.IsZero() {
		box.Date = g.Start
	}
	return box, nil
}

// ImportSnapshot stores the box scores in the snapshot at path. Teams are
// matched by "City Name" and must already exist. NBA.com person ids are a
// different namespace from the stored source ids, so players are matched by
// exact full name; ambiguous or unknown names are reported and skipped.
func (s *Syncer) ImportSnapshot(ctx context.Context, path string) (SeedResult, error) {
	var result SeedResult

	boxes := snapshot.Load(path, s.logger)
	players, err := s.store.Players(ctx)
	if err != nil {
		return result, fmt.Errorf("load players: %w", err)
	}
	index := reconcile.NewIndex(players)
	resolve := func(_ context.Context, line provider.BoxScoreLine, _ provider.TeamRef, _ *SeedResult) (store.PlayerRef, error) {
		p, err := index.Resolve(line.Name)
		if err != nil {
			return store.PlayerRef{}, err
		}
		return store.PlayerRef{ID: p.ID}, nil
	}

	s.logger.Info("Importing snapshot...", "path", path, "games", len(boxes))
	opts := s.batchOptions("snapshot-import")
	opts.Delay = -1
	results, err := batch.Run(ctx, boxes, func(ctx context.Context, box provider.BoxScore) (SeedResult, error) {
		var r SeedResult
		header := provider.Game{
			Source:       provider.SourceNBA,
			SourceGameID: box.SourceGameID,
			Date:         box.Date,
			Home:         provider.TeamRef{Name: box.Home.FullName()},
			Away:         provider.TeamRef{Name: box.Away.FullName()},
			HomeScore:    box.Home.Score,
			AwayScore:    box.Away.Score,
			Final:        box.Final,
		}
		game, outcome, err := s.store.UpsertGame(ctx, header)
		if err != nil {
			return r, err
		}
		r.Games.Record(outcome)
		if box.Final {
			r.Add(s.writeBoxScore(ctx, game, box, header.Home, header.Away, resolve))
		}
		return r, nil
	}, opts)
	for i, r := range results {
		result.Add(r.Value)
		if !r.OK() {
			result.Games.Failed++
			result.AddErrorf("nba game %s: %v", boxes[i].SourceGameID, r.Err)
		}
	}

	s.logger.Info("Snapshot import done", "summary", result.Summary())
	return result, err
}
