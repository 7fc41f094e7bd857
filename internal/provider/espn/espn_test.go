package espn

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albapepper/courtside-data/internal/provider"
)

func loadDoc(t *testing.T, name string) *goquery.Document {
	t.Helper()
	f, err := os.Open(filepath.Join("testdata", name))
	require.NoError(t, err)
	defer f.Close()
	doc, err := goquery.NewDocumentFromReader(f)
	require.NoError(t, err)
	return doc
}

func docFromString(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func ip(n int) *int { return &n }

func fp(f float64) *float64 { return &f }

func TestExtractTeams(t *testing.T) {
	teams, err := ExtractTeams(loadDoc(t, "teams.html"))
	require.NoError(t, err)

	want := []provider.Team{
		{Name: "Boston Celtics", SourceTeamID: "bos", Link: "/nba/team/_/name/bos/boston-celtics"},
		{Name: "New York Knicks", SourceTeamID: "ny", Link: "/nba/team/_/name/ny/new-york-knicks"},
	}
	if diff := cmp.Diff(want, teams); diff != "" {
		t.Errorf("teams mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractTeams_MissingCards(t *testing.T) {
	_, err := ExtractTeams(docFromString(t, "<html><body><p>maintenance</p></body></html>"))
	var extractErr *provider.ExtractionError
	require.True(t, errors.As(err, &extractErr))
	assert.Equal(t, "teamCards", extractErr.Field)
}

func TestExtractRosterLinks_DedupesInPageOrder(t *testing.T) {
	links := ExtractRosterLinks(loadDoc(t, "roster_bos.html"))
	assert.Equal(t, []string{
		"/nba/player/_/id/4065648/jayson-tatum",
		"/nba/player/_/id/3917376/jaylen-brown",
	}, links)
}

func TestExtractPlayerProfile(t *testing.T) {
	player, err := ExtractPlayerProfile(loadDoc(t, "gamelog_tatum.html"), 4065648)
	require.NoError(t, err)
	assert.Equal(t, provider.Player{
		FirstName:  "Jayson",
		FamilyName: "Tatum",
		SourceID:   4065648,
		TeamName:   "Boston Celtics",
	}, player)
}

func TestExtractPlayerProfile_FreeAgent(t *testing.T) {
	doc := docFromString(t, `<h1 class="PlayerHeader__Name"><span>Kemba</span><span>Walker</span></h1>`)
	player, err := ExtractPlayerProfile(doc, 6479)
	require.NoError(t, err)
	assert.Equal(t, "Kemba Walker", player.FullName())
	assert.Empty(t, player.TeamName)
}

func TestExtractPlayerProfile_MissingName(t *testing.T) {
	_, err := ExtractPlayerProfile(docFromString(t, `<div>gone</div>`), 1)
	var extractErr *provider.ExtractionError
	require.True(t, errors.As(err, &extractErr))
	assert.Equal(t, "player", extractErr.Page)
	assert.Equal(t, "firstName", extractErr.Field)
}

func TestExtractGameLog(t *testing.T) {
	log, err := ExtractGameLog(loadDoc(t, "gamelog_tatum.html"), 4065648, provider.NewSeason(2023))
	require.NoError(t, err)

	assert.Equal(t, "Jayson Tatum", log.Player.FullName())
	require.Len(t, log.Entries, 3, "totals, note and preseason rows are skipped")

	first := log.Entries[0]
	assert.Equal(t, time.Date(2023, 10, 25, 0, 0, 0, 0, time.UTC), first.Date)
	assert.Equal(t, "NY", first.OpponentAbbreviation)
	assert.False(t, first.IsHome)
	assert.Equal(t, "W", first.Result)
	assert.Equal(t, "108-104", first.Score)
	assert.Equal(t, provider.StatLine{
		Minutes:                ip(35),
		FieldGoalsMade:         ip(12),
		FieldGoalsAttempted:    ip(23),
		ThreePointersMade:      ip(3),
		ThreePointersAttempted: ip(8),
		FreeThrowsMade:         ip(7),
		FreeThrowsAttempted:    ip(8),
		Rebounds:               ip(11),
		Assists:                ip(4),
		Blocks:                 ip(1),
		Steals:                 ip(1),
		Fouls:                  ip(2),
		Turnovers:              ip(3),
		Points:                 ip(34),
	}, first.Stats)
	assert.Equal(t, fp(52.2), first.FieldGoalPct)

	assert.True(t, log.Entries[1].IsHome)
	assert.Equal(t, "MIA", log.Entries[1].OpponentAbbreviation)

	jan := log.Entries[2]
	assert.Equal(t, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), jan.Date)
	assert.Equal(t, "L", jan.Result)
	assert.Nil(t, jan.Stats.FreeThrowsMade, "placeholder cell yields nil")
	assert.Nil(t, jan.FreeThrowPct)
	assert.Equal(t, 30, *jan.Stats.Points)
}

func TestExtractGameLog_NoRegularSeason(t *testing.T) {
	doc := docFromString(t, `<h1 class="PlayerHeader__Name"><span>Rookie</span><span>Player</span></h1>
<div class="gamelog"><div class="Table__Title">No games</div></div>`)
	log, err := ExtractGameLog(doc, 5, provider.NewSeason(2023))
	require.NoError(t, err)
	assert.Empty(t, log.Entries)
}

func TestExtractGameLog_UnknownHomeAwayToken(t *testing.T) {
	html := `<h1 class="PlayerHeader__Name"><span>A</span><span>B</span></h1>
<div class="gamelog"><div>title</div><div><table><tbody class="Table__TBODY">
<tr class="Table__TR">` +
		`<td class="Table__TD">Wed 10/25</td>` +
		`<td class="Table__TD"><span><span>at</span></span><a class="AnchorLink">NY</a></td>` +
		`<td class="Table__TD"><span class="ResultCell">W</span><span>1-0</span></td>` +
		strings.Repeat(`<td class="Table__TD">1</td>`, 14) +
		`</tr></tbody></table></div></div>`
	_, err := ExtractGameLog(docFromString(t, html), 1, provider.NewSeason(2023))
	var extractErr *provider.ExtractionError
	require.True(t, errors.As(err, &extractErr))
	assert.Equal(t, "homeAway", extractErr.Field)
}

func TestExtractScheduleGameIDs(t *testing.T) {
	ids, err := ExtractScheduleGameIDs(loadDoc(t, "schedule_bos.html"))
	require.NoError(t, err)
	assert.Equal(t, []string{"401584689", "401585100"}, ids, "header and upcoming rows are excluded")
}

func TestExtractGameHeader_Final(t *testing.T) {
	game, err := ExtractGameHeader(loadDoc(t, "game_401584689.html"), "401584689")
	require.NoError(t, err)

	want := provider.Game{
		Source:       provider.SourceESPN,
		SourceGameID: "401584689",
		Date:         time.Date(2023, 10, 25, 0, 0, 0, 0, time.UTC),
		Home:         provider.TeamRef{Name: "Knicks", SourceTeamID: "ny"},
		Away:         provider.TeamRef{Name: "Celtics", SourceTeamID: "bos"},
		HomeScore:    ip(104),
		AwayScore:    ip(108),
		Final:        true,
	}
	if diff := cmp.Diff(want, game); diff != "" {
		t.Errorf("game mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractGameHeader_InProgress(t *testing.T) {
	game, err := ExtractGameHeader(loadDoc(t, "game_401585100_live.html"), "401585100")
	require.NoError(t, err)
	assert.False(t, game.Final)
	assert.Equal(t, 70, *game.AwayScore)
	assert.Equal(t, time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC), game.Date)
}

func TestExtractGameHeader_MissingDate(t *testing.T) {
	doc := loadDoc(t, "game_401584689.html")
	doc.Find(".GameInfo__Meta").Remove()
	_, err := ExtractGameHeader(doc, "401584689")
	var extractErr *provider.ExtractionError
	require.True(t, errors.As(err, &extractErr))
	assert.Equal(t, "date", extractErr.Field)
}

func TestExtractBoxScore(t *testing.T) {
	box, err := ExtractBoxScore(loadDoc(t, "boxscore_401584689.html"), "401584689")
	require.NoError(t, err)

	assert.Equal(t, "Boston Celtics", box.Away.TeamName)
	assert.Equal(t, "New York Knicks", box.Home.TeamName)
	require.Len(t, box.Away.Players, 2)
	require.Len(t, box.Home.Players, 2)

	tatum := box.Away.Players[0]
	assert.Equal(t, 4065648, tatum.SourceID)
	assert.Equal(t, "Jayson Tatum", tatum.Name)
	require.NotNil(t, tatum.Stats)
	assert.Equal(t, 34, *tatum.Stats.Points)
	assert.Equal(t, 6, *tatum.Stats.PlusMinus)
	assert.Equal(t, 11, *tatum.Stats.Rebounds)

	brunson := box.Home.Players[0]
	assert.Equal(t, -4, *brunson.Stats.PlusMinus)

	randle := box.Home.Players[1]
	assert.Equal(t, 3064514, randle.SourceID)
	assert.True(t, randle.DidNotPlay(), "did-not-play entry keeps identity with nil stats")
}

func TestExtractBoxScore_MisalignedTables(t *testing.T) {
	doc := loadDoc(t, "boxscore_401584689.html")
	// Drop one stat row so names and stats no longer align.
	doc.Find("div.Table__Scroller table > tbody > tr").Eq(1).Remove()

	_, err := ExtractBoxScore(doc, "401584689")
	var extractErr *provider.ExtractionError
	require.True(t, errors.As(err, &extractErr))
	assert.Equal(t, "statRows", extractErr.Field)
}

func TestLinkParsers(t *testing.T) {
	id, err := PlayerIDFromLink("https://www.espn.com/nba/player/_/id/4065648/jayson-tatum")
	require.NoError(t, err)
	assert.Equal(t, 4065648, id)
	assert.Equal(t, "jayson tatum", PlayerSlugFromLink("https://www.espn.com/nba/player/_/id/4065648/jayson-tatum"))

	_, err = PlayerIDFromLink("/nba/player/_/name/x")
	assert.Error(t, err)

	gid, err := GameIDFromLink("https://www.espn.com/nba/game/_/gameId/401584689/celtics-knicks?x=1")
	require.NoError(t, err)
	assert.Equal(t, "401584689", gid)

	slug, err := TeamSlugFromLink("/nba/team/_/name/gs/golden-state-warriors")
	require.NoError(t, err)
	assert.Equal(t, "gs", slug)
}

func TestSiteURLs(t *testing.T) {
	s := NewSite("")
	assert.Equal(t, "https://www.espn.com/nba/teams", s.TeamsURL())
	assert.Equal(t, "https://www.espn.com/nba/team/roster/_/name/bos", s.RosterURL("bos"))
	assert.Equal(t, "https://www.espn.com/nba/player/gamelog/_/id/42", s.PlayerGameLogURL(42))
	assert.Equal(t, "https://www.espn.com/nba/boxscore/_/gameId/401584689", s.BoxScoreURL("401584689"))

	local := NewSite("http://127.0.0.1:9999/")
	assert.Equal(t, "http://127.0.0.1:9999/nba/team/_/name/bos", local.Absolute("/nba/team/_/name/bos"))
	assert.Equal(t, "https://example.com/x", local.Absolute("https://example.com/x"))
}

func TestTeamNameFromAbbreviation(t *testing.T) {
	name, err := TeamNameFromAbbreviation("GS")
	require.NoError(t, err)
	assert.Equal(t, "Golden State Warriors", name)

	name, err = TeamNameFromAbbreviation("lac")
	require.NoError(t, err)
	assert.Equal(t, "LA Clippers", name)

	_, err = TeamNameFromAbbreviation("SEA")
	assert.Error(t, err)
	assert.Len(t, teamNamesByAbbreviation, 30)
}
