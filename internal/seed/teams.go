package seed

import (
	"context"
	"fmt"
	"strings"

	"github.com/albapepper/courtside-data/internal/provider"
	"github.com/albapepper/courtside-data/internal/provider/espn"
	"github.com/albapepper/courtside-data/internal/reconcile"
)

// SyncTeams reads the league team index and upserts new or changed teams.
// Failing to fetch or parse the index is fatal: nothing downstream can run
// without teams.
func (s *Syncer) SyncTeams(ctx context.Context) (SeedResult, error) {
	var result SeedResult

	s.logger.Info("Syncing teams...")
	diff, err := s.planTeams(ctx)
	if err != nil {
		return result, err
	}
	result.Teams.Unchanged += len(diff.Unchanged)
	for _, stale := range diff.Stale {
		result.AddStale("team", stale.Name)
		s.logger.Warn("Stored team missing from source", "team", stale.Name)
	}

	writes := diff.New
	for _, c := range diff.Changed {
		writes = append(writes, c.Remote)
	}
	for _, t := range writes {
		_, outcome, err := s.store.UpsertTeam(ctx, t)
		if err != nil {
			result.Teams.Failed++
			result.AddErrorf("upsert team %q: %v", t.Name, err)
			s.logger.Warn("Team upsert failed", "team", t.Name, "error", err)
			continue
		}
		result.Teams.Record(outcome)
	}

	s.logger.Info("Teams done", "counts", result.Teams.String())
	return result, nil
}

// planTeams diffs the source team index against the stored teams.
func (s *Syncer) planTeams(ctx context.Context) (reconcile.Partition[provider.Team], error) {
	doc, err := s.fetch.Document(ctx, s.opts.ESPN.TeamsURL())
	if err != nil {
		return reconcile.Partition[provider.Team]{}, fmt.Errorf("fetch team list: %w", err)
	}
	remote, err := espn.ExtractTeams(doc)
	if err != nil {
		return reconcile.Partition[provider.Team]{}, fmt.Errorf("extract team list: %w", err)
	}

	stored, err := s.store.Teams(ctx)
	if err != nil {
		return reconcile.Partition[provider.Team]{}, fmt.Errorf("load teams: %w", err)
	}
	local := make([]provider.Team, 0, len(stored))
	for _, t := range stored {
		local = append(local, provider.Team{Name: t.Name, City: t.City, SourceTeamID: t.SourceTeamID, Link: t.Link})
	}
	return reconcile.Diff(local, remote, teamKey, teamChanged), nil
}

func teamKey(t provider.Team) string {
	return strings.ToLower(strings.Join(strings.Fields(t.Name), " "))
}

// teamChanged reports a tracked field the source now fills differently.
// An empty remote field never overwrites a stored one.
func teamChanged(local, remote provider.Team) bool {
	differs := func(l, r string) bool { return r != "" && r != l }
	return differs(local.City, remote.City) ||
		differs(local.SourceTeamID, remote.SourceTeamID) ||
		differs(local.Link, remote.Link)
}
