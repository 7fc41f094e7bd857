package espn

import (
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/albapepper/courtside-data/internal/provider"
)

// ----------------------------------------------------------------------------
// Team schedule
// ----------------------------------------------------------------------------

const (
	scheduleRow      = "tr.Table__TR"
	scheduleCell     = "td.Table__TD"
	scheduleGameLink = "td:nth-child(3) > span:nth-child(2) > a:nth-child(1)"
	// Completed regular season rows carry exactly this many cells; upcoming
	// games and section headers differ.
	scheduleColumns = 7
)

// ExtractScheduleGameIDs returns the ids of completed regular season games
// on a team schedule page, in page order, each once.
func ExtractScheduleGameIDs(doc *goquery.Document) ([]string, error) {
	var links []string
	doc.Find(scheduleRow).Each(func(_ int, row *goquery.Selection) {
		cells := row.Find(scheduleCell)
		if cells.Length() != scheduleColumns || provider.CleanText(cells.First().Text()) == "DATE" {
			return
		}
		if href, ok := row.Find(scheduleGameLink).Attr("href"); ok && href != "" {
			links = append(links, href)
		}
	})

	ids := make([]string, 0, len(links))
	for _, link := range provider.DedupeLinks(links) {
		id, err := GameIDFromLink(link)
		if err != nil {
			return nil, provider.Malformed("schedule", "gameLink", err)
		}
		ids = append(ids, id)
	}
	return provider.DedupeLinks(ids), nil
}

// ----------------------------------------------------------------------------
// Game header
// ----------------------------------------------------------------------------

// The game strip lists the away team first and the home team third; the
// middle child is the status block.
const (
	awayStrip = "div.Gamestrip__Team:nth-child(1)"
	homeStrip = "div.Gamestrip__Team:nth-child(3)"
)

var gameHeaderFields = provider.FieldMap{
	Page: "game",
	Fields: []provider.Field{
		{Name: "date", Selector: ".GameInfo__Meta > span:nth-child(1)"},
		{Name: "status", Selector: ".Gamestrip__Overview .ScoreCell__Time", Optional: true},
		{Name: "awayName", Selector: awayStrip + " h2"},
		{Name: "awayLink", Selector: awayStrip + " a", Attr: "href", Optional: true},
		{Name: "awayScore", Selector: awayStrip + " > div:nth-child(2) > div:nth-child(2) > div:nth-child(1)", Optional: true},
		{Name: "homeName", Selector: homeStrip + " h2"},
		{Name: "homeLink", Selector: homeStrip + " a", Attr: "href", Optional: true},
		{Name: "homeScore", Selector: homeStrip + " > div:nth-child(2) > div:nth-child(2) > div:nth-child(1)", Optional: true},
	},
}

// ExtractGameHeader reads teams, scores and date from a game page. Scores
// are nil until the game has started; Final is set once the status block
// reads "Final".
func ExtractGameHeader(doc *goquery.Document, gameID string) (provider.Game, error) {
	f, err := gameHeaderFields.Locate(doc.Selection)
	if err != nil {
		return provider.Game{}, err
	}

	date, err := parseGameDate(f.Text("date"))
	if err != nil {
		return provider.Game{}, provider.Malformed("game", "date", err)
	}

	game := provider.Game{
		Source:       provider.SourceESPN,
		SourceGameID: gameID,
		Date:         date,
		Home:         teamRef(f.Text("homeName"), f.Text("homeLink")),
		Away:         teamRef(f.Text("awayName"), f.Text("awayLink")),
		HomeScore:    f.Int("homeScore"),
		AwayScore:    f.Int("awayScore"),
	}
	game.Final = strings.HasPrefix(f.Text("status"), "Final") && game.HomeScore != nil && game.AwayScore != nil
	return game, nil
}

func teamRef(name, link string) provider.TeamRef {
	ref := provider.TeamRef{Name: name}
	if slug, err := TeamSlugFromLink(link); err == nil {
		ref.SourceTeamID = slug
	}
	return ref
}

// parseGameDate reads "7:30 PM, October 24, 2023": the text before the
// first comma is the tip-off time and is dropped.
func parseGameDate(text string) (time.Time, error) {
	parts := strings.Split(text, ",")
	if len(parts) < 2 {
		return time.Time{}, fmt.Errorf("unexpected date %q", text)
	}
	rest := provider.CleanText(strings.Join(parts[1:], " "))
	t, err := time.Parse("January 2 2006", rest)
	if err != nil {
		return time.Time{}, fmt.Errorf("unexpected date %q: %w", text, err)
	}
	return t.UTC(), nil
}

// ----------------------------------------------------------------------------
// Box score
// ----------------------------------------------------------------------------

const (
	boxTeams     = ".Boxscore__ResponsiveWrapper > div"
	boxTeamName  = ".BoxscoreItem__TeamName"
	boxNameRows  = "table.Table--fixed-left > tbody > tr"
	boxStatRows  = "div.Table__Scroller table > tbody > tr"
	boxNameLink  = "td a"
	boxStatCells = "td"
	// MIN FG 3PT FT OREB DREB REB AST STL BLK TO PF +/- PTS
	boxStatColumns = 14
)

// ExtractBoxScore reads both teams' player tables. ESPN lists the away team
// first. Names and stats live in separate tables whose rows align by index
// once header rows are dropped. A stat row with a single cell is the
// did-not-play banner; that player keeps a line with nil Stats.
func ExtractBoxScore(doc *goquery.Document, gameID string) (provider.BoxScore, error) {
	teams := doc.Find(boxTeams)
	if teams.Length() < 2 {
		return provider.BoxScore{}, provider.Missing("boxscore", "teams")
	}

	away, err := extractTeamBox(teams.Eq(0))
	if err != nil {
		return provider.BoxScore{}, err
	}
	home, err := extractTeamBox(teams.Eq(1))
	if err != nil {
		return provider.BoxScore{}, err
	}

	return provider.BoxScore{
		Source:       provider.SourceESPN,
		SourceGameID: gameID,
		Home:         home,
		Away:         away,
	}, nil
}

type boxName struct {
	sourceID int
	name     string
}

func extractTeamBox(team *goquery.Selection) (provider.TeamBox, error) {
	nameRows := team.Find(boxNameRows)
	if nameRows.Length() == 0 {
		return provider.TeamBox{}, provider.Missing("boxscore", "nameRows")
	}

	var names []boxName
	var nameErr error
	nameRows.EachWithBreak(func(_ int, row *goquery.Selection) bool {
		a := row.Find(boxNameLink).First()
		href, ok := a.Attr("href")
		if !ok {
			// starters / bench / team section labels
			return true
		}
		id, err := PlayerIDFromLink(href)
		if err != nil {
			nameErr = provider.Malformed("boxscore", "playerLink", err)
			return false
		}
		name := provider.CleanText(a.Text())
		if name == "" {
			name = PlayerSlugFromLink(href)
		}
		names = append(names, boxName{sourceID: id, name: name})
		return true
	})
	if nameErr != nil {
		return provider.TeamBox{}, nameErr
	}

	var stats []*provider.StatLine
	var statErr error
	team.Find(boxStatRows).EachWithBreak(func(_ int, row *goquery.Selection) bool {
		cells := provider.CellTexts(row, boxStatCells)
		switch {
		case len(cells) == 0 || cells[0] == "MIN" || cells[0] == "":
			return true
		case len(cells) == 1:
			stats = append(stats, nil)
			return true
		case len(cells) < boxStatColumns:
			statErr = provider.Malformed("boxscore", "statColumns",
				fmt.Errorf("got %d cells, want %d", len(cells), boxStatColumns))
			return false
		}
		stats = append(stats, parseBoxStatRow(cells))
		return true
	})
	if statErr != nil {
		return provider.TeamBox{}, statErr
	}

	if len(stats) != len(names) {
		return provider.TeamBox{}, provider.Malformed("boxscore", "statRows",
			fmt.Errorf("%d players but %d stat rows", len(names), len(stats)))
	}

	box := provider.TeamBox{
		TeamName: provider.CleanText(team.Find(boxTeamName).First().Text()),
		Players:  make([]provider.BoxScoreLine, 0, len(names)),
	}
	for i, n := range names {
		box.Players = append(box.Players, provider.BoxScoreLine{
			SourceID: n.sourceID,
			Name:     n.name,
			Stats:    stats[i],
		})
	}
	return box, nil
}

func parseBoxStatRow(cells []string) *provider.StatLine {
	var s provider.StatLine
	s.Minutes = provider.ParseMinutes(cells[0])
	s.FieldGoalsMade, s.FieldGoalsAttempted = provider.ParseShotSplit(cells[1])
	s.ThreePointersMade, s.ThreePointersAttempted = provider.ParseShotSplit(cells[2])
	s.FreeThrowsMade, s.FreeThrowsAttempted = provider.ParseShotSplit(cells[3])
	// cells 4 and 5 are offensive and defensive rebounds
	s.Rebounds = provider.ParseOptionalInt(cells[6])
	s.Assists = provider.ParseOptionalInt(cells[7])
	s.Steals = provider.ParseOptionalInt(cells[8])
	s.Blocks = provider.ParseOptionalInt(cells[9])
	s.Turnovers = provider.ParseOptionalInt(cells[10])
	s.Fouls = provider.ParseOptionalInt(cells[11])
	s.PlusMinus = provider.ParseOptionalInt(cells[12])
	s.Points = provider.ParseOptionalInt(cells[13])
	return &s
}
