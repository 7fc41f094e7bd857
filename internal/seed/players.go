package seed

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/albapepper/courtside-data/internal/batch"
	"github.com/albapepper/courtside-data/internal/provider"
	"github.com/albapepper/courtside-data/internal/provider/espn"
	"github.com/albapepper/courtside-data/internal/reconcile"
	"github.com/albapepper/courtside-data/internal/store"
)

// rosterSpot is one player on one team, either as stored or as listed on a
// roster page.
type rosterSpot struct {
	SourceID int
	TeamID   uuid.UUID
	Team     store.Team
	Stored   store.Player
}

func (r rosterSpot) String() string {
	return fmt.Sprintf("player %d (%s)", r.SourceID, r.Team.Name)
}

func spotKey(r rosterSpot) string { return strconv.Itoa(r.SourceID) }

// SyncPlayers walks every stored team's roster. Players not yet stored get
// their profile fetched and inserted; stored players listed on a different
// team are reassigned without a fetch; stored players on no roster are
// reported stale.
func (s *Syncer) SyncPlayers(ctx context.Context) (SeedResult, error) {
	var result SeedResult

	s.logger.Info("Syncing players...")
	plan, err := s.planRosters(ctx)
	for _, msg := range plan.errors {
		result.AddError(msg)
	}
	if err != nil {
		return result, err
	}
	diff, failedTeams := plan.diff, plan.failedTeams

	result.Players.Unchanged += len(diff.Unchanged)
	for _, stale := range diff.Stale {
		// A roster that failed to load says nothing about its players.
		if failedTeams[stale.TeamID] {
			continue
		}
		result.AddStale("player", fmt.Sprintf("%s (%d)", stale.Stored.FullName(), stale.SourceID))
	}

	for _, c := range diff.Changed {
		in := store.PlayerInput{
			FirstName:  c.Local.Stored.FirstName,
			FamilyName: c.Local.Stored.FamilyName,
			SourceID:   c.Remote.SourceID,
			Team:       teamRef(c.Remote.Team),
		}
		_, outcome, err := s.store.UpsertPlayer(ctx, in)
		if err != nil {
			result.Players.Failed++
			result.AddErrorf("reassign player %d: %v", in.SourceID, err)
			continue
		}
		s.logger.Info("Player changed team", "player", c.Local.Stored.FullName(), "team", c.Remote.Team.Name)
		result.Players.Record(outcome)
	}

	inserted, err := batch.Run(ctx, diff.New, s.insertPlayer, s.batchOptions("players"))
	for i, r := range inserted {
		if !r.OK() {
			result.Players.Failed++
			result.AddErrorf("player %d: %v", diff.New[i].SourceID, r.Err)
			continue
		}
		result.Players.Record(r.Value)
	}
	if err != nil {
		return result, err
	}

	s.logger.Info("Players done", "counts", result.Players.String(), "stale", len(result.Stale))
	return result, nil
}

// rosterPlan is the diff of every loaded roster against the stored players.
// Players of a team whose roster failed may show up as stale in diff; check
// failedTeams before reporting them.
type rosterPlan struct {
	diff        reconcile.Partition[rosterSpot]
	failedTeams map[uuid.UUID]bool
	errors      []string
}

func (s *Syncer) planRosters(ctx context.Context) (rosterPlan, error) {
	plan := rosterPlan{failedTeams: make(map[uuid.UUID]bool)}

	teams, err := s.store.Teams(ctx)
	if err != nil {
		return plan, fmt.Errorf("load teams: %w", err)
	}
	if len(teams) == 0 {
		return plan, fmt.Errorf("no teams stored, sync teams first")
	}

	rosters, err := batch.Run(ctx, teams, s.fetchRoster, s.batchOptions("rosters"))
	var remote []rosterSpot
	for i, r := range rosters {
		if !r.OK() {
			plan.failedTeams[teams[i].ID] = true
			plan.errors = append(plan.errors, fmt.Sprintf("roster %s: %v", teams[i].Name, r.Err))
			continue
		}
		remote = append(remote, r.Value...)
	}
	if err != nil {
		return plan, err
	}

	stored, err := s.store.Players(ctx)
	if err != nil {
		return plan, fmt.Errorf("load players: %w", err)
	}
	local := make([]rosterSpot, 0, len(stored))
	for _, p := range stored {
		spot := rosterSpot{SourceID: p.SourceID, Stored: p}
		if p.TeamID != nil {
			spot.TeamID = *p.TeamID
		}
		local = append(local, spot)
	}

	plan.diff = reconcile.Diff(local, remote, spotKey, func(l, r rosterSpot) bool { return l.TeamID != r.TeamID })
	return plan, nil
}

func (s *Syncer) fetchRoster(ctx context.Context, team store.Team) ([]rosterSpot, error) {
	if team.SourceTeamID == "" {
		return nil, fmt.Errorf("team %q has no source id", team.Name)
	}
	doc, err := s.fetch.Document(ctx, s.opts.ESPN.RosterURL(team.SourceTeamID))
	if err != nil {
		return nil, err
	}
	var spots []rosterSpot
	for _, link := range espn.ExtractRosterLinks(doc) {
		id, err := espn.PlayerIDFromLink(link)
		if err != nil {
			return nil, provider.Malformed("roster", "playerLink", err)
		}
		spots = append(spots, rosterSpot{SourceID: id, TeamID: team.ID, Team: team})
	}
	return spots, nil
}

func (s *Syncer) insertPlayer(ctx context.Context, spot rosterSpot) (store.Outcome, error) {
	profile, err := s.fetchProfile(ctx, spot.SourceID)
	if err != nil {
		return store.Unchanged, err
	}
	_, outcome, err := s.store.UpsertPlayer(ctx, store.PlayerInput{
		FirstName:  profile.FirstName,
		FamilyName: profile.FamilyName,
		SourceID:   spot.SourceID,
		Team:       teamRef(spot.Team),
	})
	return outcome, err
}

func (s *Syncer) fetchProfile(ctx context.Context, sourceID int) (provider.Player, error) {
	doc, err := s.fetch.Document(ctx, s.opts.ESPN.PlayerURL(sourceID))
	if err != nil {
		return provider.Player{}, err
	}
	return espn.ExtractPlayerProfile(doc, sourceID)
}

func teamRef(t store.Team) provider.TeamRef {
	return provider.TeamRef{Name: t.Name, SourceTeamID: t.SourceTeamID}
}
