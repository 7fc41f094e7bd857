package seed

import (
	"context"
	"fmt"
	"strconv"
)

// ReportRow is one entity whose stored state differs from the source.
type ReportRow struct {
	Entity string // "team" or "player"
	Key    string
	Status string // "new", "changed" or "stale"
	Detail string
}

// Report lists what SyncTeams and SyncPlayers would change, without writing
// or fetching player profiles. Roster failures are returned in errs.
func (s *Syncer) Report(ctx context.Context) (rows []ReportRow, errs []string, err error) {
	teams, err := s.planTeams(ctx)
	if err != nil {
		return nil, nil, err
	}
	for _, t := range teams.New {
		rows = append(rows, ReportRow{Entity: "team", Key: t.Name, Status: "new", Detail: t.SourceTeamID})
	}
	for _, c := range teams.Changed {
		rows = append(rows, ReportRow{Entity: "team", Key: c.Remote.Name, Status: "changed",
			Detail: fmt.Sprintf("source id %q -> %q", c.Local.SourceTeamID, c.Remote.SourceTeamID)})
	}
	for _, t := range teams.Stale {
		rows = append(rows, ReportRow{Entity: "team", Key: t.Name, Status: "stale"})
	}

	plan, err := s.planRosters(ctx)
	errs = plan.errors
	if err != nil {
		// No stored teams yet still leaves a useful team report.
		if len(rows) > 0 || len(teams.Unchanged) > 0 {
			return rows, append(errs, err.Error()), nil
		}
		return rows, errs, err
	}
	for _, p := range plan.diff.New {
		rows = append(rows, ReportRow{Entity: "player", Key: strconv.Itoa(p.SourceID), Status: "new", Detail: p.Team.Name})
	}
	for _, c := range plan.diff.Changed {
		rows = append(rows, ReportRow{Entity: "player", Key: strconv.Itoa(c.Remote.SourceID), Status: "changed",
			Detail: fmt.Sprintf("%s -> %s", c.Local.Stored.FullName(), c.Remote.Team.Name)})
	}
	for _, p := range plan.diff.Stale {
		if plan.failedTeams[p.TeamID] {
			continue
		}
		rows = append(rows, ReportRow{Entity: "player", Key: strconv.Itoa(p.SourceID), Status: "stale", Detail: p.Stored.FullName()})
	}
	return rows, errs, nil
}
