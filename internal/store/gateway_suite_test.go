package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albapepper/courtside-data/internal/provider"
	"github.com/albapepper/courtside-data/internal/store"
)

// backend is a Gateway that also serves reads.
type backend interface {
	store.Gateway
	store.Reader
}

func intp(n int) *int { return &n }

var (
	celtics = provider.Team{Name: "Boston Celtics", SourceTeamID: "bos", Link: "https://www.espn.com/nba/team/_/name/bos/boston-celtics"}
	knicks  = provider.Team{Name: "New York Knicks", SourceTeamID: "ny", Link: "https://www.espn.com/nba/team/_/name/ny/new-york-knicks"}
)

func openingNight() provider.Game {
	return provider.Game{
		Source:       provider.SourceESPN,
		SourceGameID: "401584689",
		Date:         time.Date(2023, 10, 25, 0, 0, 0, 0, time.UTC),
		Home:         provider.TeamRef{SourceTeamID: "ny"},
		Away:         provider.TeamRef{Name: "boston celtics"},
		HomeScore:    intp(104),
		AwayScore:    intp(108),
		Final:        true,
	}
}

func seedTeams(t *testing.T, g store.Gateway) (store.Team, store.Team) {
	t.Helper()
	ctx := context.Background()
	bos, _, err := g.UpsertTeam(ctx, celtics)
	require.NoError(t, err)
	ny, _, err := g.UpsertTeam(ctx, knicks)
	require.NoError(t, err)
	return bos, ny
}

func runGatewaySuite(t *testing.T, open func(t *testing.T) backend) {
	ctx := context.Background()

	t.Run("team upsert is idempotent", func(t *testing.T) {
		g := open(t)
		first, outcome, err := g.UpsertTeam(ctx, celtics)
		require.NoError(t, err)
		assert.Equal(t, store.Inserted, outcome)

		again, outcome, err := g.UpsertTeam(ctx, celtics)
		require.NoError(t, err)
		assert.Equal(t, store.Unchanged, outcome)
		assert.Equal(t, first.ID, again.ID)

		teams, err := g.Teams(ctx)
		require.NoError(t, err)
		assert.Len(t, teams, 1)
	})

	t.Run("team upsert fills missing fields", func(t *testing.T) {
		g := open(t)
		_, _, err := g.UpsertTeam(ctx, provider.Team{Name: "Boston Celtics"})
		require.NoError(t, err)

		team, outcome, err := g.UpsertTeam(ctx, celtics)
		require.NoError(t, err)
		assert.Equal(t, store.Updated, outcome)
		assert.Equal(t, "bos", team.SourceTeamID)

		// An empty incoming field keeps the stored value.
		team, outcome, err = g.UpsertTeam(ctx, provider.Team{Name: "Boston Celtics"})
		require.NoError(t, err)
		assert.Equal(t, store.Unchanged, outcome)
		assert.Equal(t, celtics.Link, team.Link)
	})

	t.Run("team source id stays unique", func(t *testing.T) {
		g := open(t)
		seedTeams(t, g)

		_, _, err := g.UpsertTeam(ctx, provider.Team{Name: "Brooklyn Nets", SourceTeamID: "ny"})
		assert.ErrorIs(t, err, store.ErrDuplicateSourceID)

		// Claiming another team's id on update is rejected as well.
		_, _, err = g.UpsertTeam(ctx, provider.Team{Name: "Boston Celtics", SourceTeamID: "ny"})
		assert.ErrorIs(t, err, store.ErrDuplicateSourceID)

		teams, err := g.Teams(ctx)
		require.NoError(t, err)
		require.Len(t, teams, 2)
		assert.Equal(t, "bos", teams[0].SourceTeamID)
	})

	t.Run("player upsert tracks team changes", func(t *testing.T) {
		g := open(t)
		bos, ny := seedTeams(t, g)

		in := store.PlayerInput{FirstName: "Jayson", FamilyName: "Tatum", SourceID: 4065648, Team: provider.TeamRef{Name: "Boston Celtics"}}
		p, outcome, err := g.UpsertPlayer(ctx, in)
		require.NoError(t, err)
		assert.Equal(t, store.Inserted, outcome)
		require.NotNil(t, p.TeamID)
		assert.Equal(t, bos.ID, *p.TeamID)

		_, outcome, err = g.UpsertPlayer(ctx, in)
		require.NoError(t, err)
		assert.Equal(t, store.Unchanged, outcome)

		in.Team = provider.TeamRef{SourceTeamID: "ny"}
		p, outcome, err = g.UpsertPlayer(ctx, in)
		require.NoError(t, err)
		assert.Equal(t, store.Updated, outcome)
		assert.Equal(t, ny.ID, *p.TeamID)

		in.Team = provider.TeamRef{}
		p, outcome, err = g.UpsertPlayer(ctx, in)
		require.NoError(t, err)
		assert.Equal(t, store.Updated, outcome)
		assert.Nil(t, p.TeamID)
	})

	t.Run("player with unknown team is not written", func(t *testing.T) {
		g := open(t)
		_, _, err := g.UpsertPlayer(ctx, store.PlayerInput{
			FirstName: "Nobody", FamilyName: "Known", SourceID: 1, Team: provider.TeamRef{Name: "Seattle SuperSonics"},
		})
		require.Error(t, err)
		assert.True(t, store.IsNotFound(err))

		players, err := g.Players(ctx)
		require.NoError(t, err)
		assert.Empty(t, players)
	})

	t.Run("game upsert resolves teams and keeps final", func(t *testing.T) {
		g := open(t)
		bos, ny := seedTeams(t, g)

		game, outcome, err := g.UpsertGame(ctx, openingNight())
		require.NoError(t, err)
		assert.Equal(t, store.Inserted, outcome)
		assert.Equal(t, ny.ID, game.HomeTeamID)
		assert.Equal(t, bos.ID, game.AwayTeamID)

		_, outcome, err = g.UpsertGame(ctx, openingNight())
		require.NoError(t, err)
		assert.Equal(t, store.Unchanged, outcome)

		// A later non-final sighting without scores does not regress the row.
		stale := openingNight()
		stale.Final = false
		stale.HomeScore, stale.AwayScore = nil, nil
		game, outcome, err = g.UpsertGame(ctx, stale)
		require.NoError(t, err)
		assert.Equal(t, store.Unchanged, outcome)
		assert.True(t, game.Final)
		assert.Equal(t, 104, *game.HomeScore)

		keys, err := g.GameKeys(ctx, provider.SourceESPN)
		require.NoError(t, err)
		assert.Equal(t, map[string]bool{"401584689": true}, keys)
	})

	t.Run("game with unknown or identical teams is rejected", func(t *testing.T) {
		g := open(t)
		seedTeams(t, g)

		missing := openingNight()
		missing.Home = provider.TeamRef{Name: "Seattle SuperSonics"}
		_, _, err := g.UpsertGame(ctx, missing)
		assert.True(t, store.IsNotFound(err))

		same := openingNight()
		same.Home = provider.TeamRef{SourceTeamID: "bos"}
		_, _, err = g.UpsertGame(ctx, same)
		assert.ErrorIs(t, err, store.ErrSameTeam)

		keys, err := g.GameKeys(ctx, provider.SourceESPN)
		require.NoError(t, err)
		assert.Empty(t, keys)
	})

	t.Run("stat lines are written once and did-not-play survives", func(t *testing.T) {
		g := open(t)
		seedTeams(t, g)
		game, _, err := g.UpsertGame(ctx, openingNight())
		require.NoError(t, err)
		tatum, _, err := g.UpsertPlayer(ctx, store.PlayerInput{FirstName: "Jayson", FamilyName: "Tatum", SourceID: 4065648})
		require.NoError(t, err)
		randle, _, err := g.UpsertPlayer(ctx, store.PlayerInput{FirstName: "Julius", FamilyName: "Randle", SourceID: 3064514})
		require.NoError(t, err)

		line := &provider.StatLine{Minutes: intp(35), FieldGoalsMade: intp(12), FieldGoalsAttempted: intp(23), Points: intp(34)}
		ref := store.GameRef{Source: provider.SourceESPN, SourceGameID: "401584689"}

		_, outcome, err := g.UpsertPlayerGameStat(ctx, store.StatInput{Player: store.PlayerRef{SourceID: 4065648}, Game: ref, Stats: line})
		require.NoError(t, err)
		assert.Equal(t, store.Inserted, outcome)

		_, outcome, err = g.UpsertPlayerGameStat(ctx, store.StatInput{Player: store.PlayerRef{ID: tatum.ID}, Game: store.GameRef{ID: game.ID}, Stats: line})
		require.NoError(t, err)
		assert.Equal(t, store.Unchanged, outcome)

		_, outcome, err = g.UpsertPlayerGameStat(ctx, store.StatInput{Player: store.PlayerRef{ID: randle.ID}, Game: ref})
		require.NoError(t, err)
		assert.Equal(t, store.Inserted, outcome)

		rows, err := g.ListStatsByGame(ctx, game.ID)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "Jayson Tatum", rows[0].PlayerName)
		assert.Equal(t, 34, *rows[0].Stats.Points)
		assert.Nil(t, rows[0].Stats.Rebounds)
		assert.Equal(t, "Julius Randle", rows[1].PlayerName)
		assert.Nil(t, rows[1].Stats)

		byPlayer, err := g.ListStatsByPlayer(ctx, tatum.ID)
		require.NoError(t, err)
		require.Len(t, byPlayer, 1)
		assert.Equal(t, game.ID, byPlayer[0].GameID)
	})

	t.Run("stat line for unknown player is not written", func(t *testing.T) {
		g := open(t)
		seedTeams(t, g)
		game, _, err := g.UpsertGame(ctx, openingNight())
		require.NoError(t, err)

		_, _, err = g.UpsertPlayerGameStat(ctx, store.StatInput{
			Player: store.PlayerRef{SourceID: 999},
			Game:   store.GameRef{ID: game.ID},
			Stats:  &provider.StatLine{},
		})
		require.Error(t, err)
		var nf *store.ReferenceNotFoundError
		require.ErrorAs(t, err, &nf)
		assert.Equal(t, "player", nf.Entity)

		rows, err := g.ListStatsByGame(ctx, game.ID)
		require.NoError(t, err)
		assert.Empty(t, rows)
	})

	t.Run("stat line for unknown game is not written", func(t *testing.T) {
		g := open(t)
		seedTeams(t, g)
		game, _, err := g.UpsertGame(ctx, openingNight())
		require.NoError(t, err)
		tatum, _, err := g.UpsertPlayer(ctx, store.PlayerInput{FirstName: "Jayson", FamilyName: "Tatum", SourceID: 4065648})
		require.NoError(t, err)

		for _, ref := range []store.GameRef{
			{ID: uuid.New()},
			{Source: provider.SourceESPN, SourceGameID: "401999999"},
		} {
			_, _, err := g.UpsertPlayerGameStat(ctx, store.StatInput{
				Player: store.PlayerRef{ID: tatum.ID},
				Game:   ref,
				Stats:  &provider.StatLine{Points: intp(34)},
			})
			require.Error(t, err, ref.String())
			var nf *store.ReferenceNotFoundError
			require.ErrorAs(t, err, &nf)
			assert.Equal(t, "game", nf.Entity)
		}

		rows, err := g.ListStatsByPlayer(ctx, tatum.ID)
		require.NoError(t, err)
		assert.Empty(t, rows)
		rows, err = g.ListStatsByGame(ctx, game.ID)
		require.NoError(t, err)
		assert.Empty(t, rows)
	})

	t.Run("pending box scores and latest final dates", func(t *testing.T) {
		g := open(t)
		bos, ny := seedTeams(t, g)
		_, _, err := g.UpsertPlayer(ctx, store.PlayerInput{FirstName: "Jayson", FamilyName: "Tatum", SourceID: 4065648})
		require.NoError(t, err)

		first := openingNight()
		second := openingNight()
		second.SourceGameID = "401585100"
		second.Date = time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC)
		second.Final = false
		second.HomeScore, second.AwayScore = nil, nil
		for _, game := range []provider.Game{second, first} {
			_, _, err := g.UpsertGame(ctx, game)
			require.NoError(t, err)
		}

		filter := store.PendingFilter{Source: provider.SourceESPN, Before: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)}
		pending, err := g.PendingBoxScores(ctx, filter)
		require.NoError(t, err)
		require.Len(t, pending, 2)
		assert.Equal(t, "401584689", pending[0].SourceGameID)

		limited := filter
		limited.Limit = 1
		pending, err = g.PendingBoxScores(ctx, limited)
		require.NoError(t, err)
		assert.Len(t, pending, 1)

		finals := filter
		finals.FinalOnly = true
		pending, err = g.PendingBoxScores(ctx, finals)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, "401584689", pending[0].SourceGameID)

		early := filter
		early.Before = time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC)
		pending, err = g.PendingBoxScores(ctx, early)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, "401584689", pending[0].SourceGameID)

		latest, err := g.LatestFinalGameDates(ctx, provider.SourceESPN)
		require.NoError(t, err)
		assert.Empty(t, latest)

		_, _, err = g.UpsertPlayerGameStat(ctx, store.StatInput{
			Player: store.PlayerRef{SourceID: 4065648},
			Game:   store.GameRef{Source: provider.SourceESPN, SourceGameID: "401584689"},
			Stats:  &provider.StatLine{Points: intp(34)},
		})
		require.NoError(t, err)

		// Some stat rows are not a complete box score.
		pending, err = g.PendingBoxScores(ctx, filter)
		require.NoError(t, err)
		assert.Len(t, pending, 2)
		latest, err = g.LatestFinalGameDates(ctx, provider.SourceESPN)
		require.NoError(t, err)
		assert.Empty(t, latest)

		for _, game := range pending {
			if game.SourceGameID == "401584689" {
				require.NoError(t, g.MarkStatsComplete(ctx, game.ID))
			}
		}

		pending, err = g.PendingBoxScores(ctx, filter)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, "401585100", pending[0].SourceGameID)

		latest, err = g.LatestFinalGameDates(ctx, provider.SourceESPN)
		require.NoError(t, err)
		assert.True(t, first.Date.Equal(latest[bos.ID]))
		assert.True(t, first.Date.Equal(latest[ny.ID]))
	})

	t.Run("box score attempts rotate the backlog", func(t *testing.T) {
		g := open(t)
		seedTeams(t, g)
		var games []store.Game
		for i, id := range []string{"401000001", "401000002", "401000003"} {
			in := openingNight()
			in.SourceGameID = id
			in.Date = time.Date(2024, 1, i+1, 0, 0, 0, 0, time.UTC)
			in.Final = false
			game, _, err := g.UpsertGame(ctx, in)
			require.NoError(t, err)
			games = append(games, game)
		}

		at := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
		require.NoError(t, g.RecordBoxScoreAttempt(ctx, games[0].ID, at))
		require.NoError(t, g.RecordBoxScoreAttempt(ctx, games[1].ID, at.Add(time.Hour)))

		filter := store.PendingFilter{Source: provider.SourceESPN, MaxAttempts: 2}
		pending, err := g.PendingBoxScores(ctx, filter)
		require.NoError(t, err)
		ids := make([]string, 0, len(pending))
		for _, p := range pending {
			ids = append(ids, p.SourceGameID)
		}
		assert.Equal(t, []string{"401000003", "401000001", "401000002"}, ids)
		assert.Equal(t, 1, pending[1].BoxScoreAttempts)
		require.NotNil(t, pending[1].LastBoxScoreAttempt)
		assert.True(t, at.Equal(*pending[1].LastBoxScoreAttempt))

		// At the cap a game drops out.
		require.NoError(t, g.RecordBoxScoreAttempt(ctx, games[0].ID, at.Add(2*time.Hour)))
		pending, err = g.PendingBoxScores(ctx, filter)
		require.NoError(t, err)
		assert.Len(t, pending, 2)

		err = g.RecordBoxScoreAttempt(ctx, uuid.New(), at)
		assert.True(t, store.IsNotFound(err))
		err = g.MarkStatsComplete(ctx, uuid.New())
		assert.True(t, store.IsNotFound(err))
	})

	t.Run("roster listing", func(t *testing.T) {
		g := open(t)
		bos, _ := seedTeams(t, g)
		for _, p := range []store.PlayerInput{
			{FirstName: "Jayson", FamilyName: "Tatum", SourceID: 4065648, Team: provider.TeamRef{SourceTeamID: "bos"}},
			{FirstName: "Jaylen", FamilyName: "Brown", SourceID: 3917376, Team: provider.TeamRef{SourceTeamID: "bos"}},
			{FirstName: "Jalen", FamilyName: "Brunson", SourceID: 3934672, Team: provider.TeamRef{SourceTeamID: "ny"}},
		} {
			_, _, err := g.UpsertPlayer(ctx, p)
			require.NoError(t, err)
		}

		roster, err := g.ListPlayersByTeam(ctx, bos.ID)
		require.NoError(t, err)
		require.Len(t, roster, 2)
		assert.Equal(t, "Brown", roster[0].FamilyName)
		assert.Equal(t, "Tatum", roster[1].FamilyName)

		empty, err := g.ListPlayersByTeam(ctx, uuid.New())
		require.NoError(t, err)
		assert.Empty(t, empty)

		assert.NoError(t, g.Ping(ctx))
	})
}
