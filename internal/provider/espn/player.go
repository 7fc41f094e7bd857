package espn

import (
	"fmt"

	"github.com/PuerkitoBio/goquery"

	"github.com/albapepper/courtside-data/internal/provider"
)

const rosterLinkSelector = "tbody.Table__TBODY tr.Table__TR a.AnchorLink"

var playerHeaderFields = provider.FieldMap{
	Page: "player",
	Fields: []provider.Field{
		{Name: "firstName", Selector: "h1.PlayerHeader__Name > span"},
		{Name: "familyName", Selector: "h1.PlayerHeader__Name > span + span"},
		{Name: "team", Selector: ".PlayerHeader__Team_Info > li.truncate > a:nth-child(1)", Optional: true},
	},
}

// Game log layout. The regular season block is the second child of the
// game log container; each month is its own table body.
const (
	gameLogRegularSeason = ".gamelog > div:nth-child(2)"
	gameLogBody          = ".Table__TBODY"
	gameLogRow           = "tr.Table__TR"
	gameLogCell          = "td.Table__TD"
	gameLogResult        = ".ResultCell"
	gameLogHomeAway      = "span > span"
	gameLogOpponent      = "a.AnchorLink"
	gameLogColumns       = 17
)

// ExtractRosterLinks returns the player links on a team roster page in
// page order, each link once.
func ExtractRosterLinks(doc *goquery.Document) []string {
	var links []string
	doc.Find(rosterLinkSelector).Each(func(_ int, a *goquery.Selection) {
		if href, ok := a.Attr("href"); ok && href != "" {
			links = append(links, href)
		}
	})
	return provider.DedupeLinks(links)
}

// ExtractPlayerProfile reads the player header shared by the bio and game
// log pages. Free agents have no team link; TeamName is then empty.
func ExtractPlayerProfile(doc *goquery.Document, sourceID int) (provider.Player, error) {
	f, err := playerHeaderFields.Locate(doc.Selection)
	if err != nil {
		return provider.Player{}, err
	}
	return provider.Player{
		FirstName:  f.Text("firstName"),
		FamilyName: f.Text("familyName"),
		SourceID:   sourceID,
		TeamName:   f.Text("team"),
	}, nil
}

// ExtractGameLog reads the player header and every regular season game row.
// Note rows, monthly totals and rows without a result are skipped. A page
// with no regular season block yields an empty log.
func ExtractGameLog(doc *goquery.Document, sourceID int, season provider.Season) (provider.PlayerGameLog, error) {
	player, err := ExtractPlayerProfile(doc, sourceID)
	if err != nil {
		return provider.PlayerGameLog{}, err
	}
	log := provider.PlayerGameLog{Player: player, Entries: []provider.GameLogEntry{}}

	regular := doc.Find(gameLogRegularSeason)
	if regular.Length() == 0 {
		return log, nil
	}

	var rowErr error
	regular.Find(gameLogBody).Find(gameLogRow).EachWithBreak(func(_ int, row *goquery.Selection) bool {
		if row.HasClass("note-row") || row.HasClass("totals_row") || row.Find(gameLogResult).Length() == 0 {
			return true
		}
		entry, err := parseGameLogRow(row, season)
		if err != nil {
			rowErr = err
			return false
		}
		log.Entries = append(log.Entries, entry)
		return true
	})
	if rowErr != nil {
		return provider.PlayerGameLog{}, rowErr
	}
	return log, nil
}

func parseGameLogRow(row *goquery.Selection, season provider.Season) (provider.GameLogEntry, error) {
	cells := row.Find(gameLogCell)
	if cells.Length() < gameLogColumns {
		return provider.GameLogEntry{}, provider.Malformed("gamelog", "columns",
			fmt.Errorf("got %d cells, want %d", cells.Length(), gameLogColumns))
	}
	text := func(i int) string { return provider.CleanText(cells.Eq(i).Text()) }

	date, err := season.InferDate(text(0))
	if err != nil {
		return provider.GameLogEntry{}, provider.Malformed("gamelog", "date", err)
	}

	opponentCell := cells.Eq(1)
	isHome, err := parseHomeAway(provider.CleanText(opponentCell.Find(gameLogHomeAway).First().Text()))
	if err != nil {
		return provider.GameLogEntry{}, err
	}
	// The first anchor wraps the logo; the abbreviation is the last one.
	anchors := opponentCell.Find(gameLogOpponent)
	if anchors.Length() == 0 {
		return provider.GameLogEntry{}, provider.Missing("gamelog", "opponent")
	}
	opponent := provider.CleanText(anchors.Last().Text())

	resultParts := cells.Eq(2).Find(".ResultCell, span")
	result := provider.CleanText(resultParts.Eq(0).Text())
	score := provider.CleanText(resultParts.Eq(1).Text())

	var stats provider.StatLine
	stats.Minutes = provider.ParseMinutes(text(3))
	stats.FieldGoalsMade, stats.FieldGoalsAttempted = provider.ParseShotSplit(text(4))
	stats.ThreePointersMade, stats.ThreePointersAttempted = provider.ParseShotSplit(text(6))
	stats.FreeThrowsMade, stats.FreeThrowsAttempted = provider.ParseShotSplit(text(8))
	stats.Rebounds = provider.ParseOptionalInt(text(10))
	stats.Assists = provider.ParseOptionalInt(text(11))
	stats.Blocks = provider.ParseOptionalInt(text(12))
	stats.Steals = provider.ParseOptionalInt(text(13))
	stats.Fouls = provider.ParseOptionalInt(text(14))
	stats.Turnovers = provider.ParseOptionalInt(text(15))
	stats.Points = provider.ParseOptionalInt(text(16))

	return provider.GameLogEntry{
		Date:                 date,
		OpponentAbbreviation: opponent,
		Result:               result,
		Score:                score,
		IsHome:               isHome,
		Stats:                stats,
		FieldGoalPct:         provider.ParseOptionalFloat(text(5)),
		ThreePointPct:        provider.ParseOptionalFloat(text(7)),
		FreeThrowPct:         provider.ParseOptionalFloat(text(9)),
	}, nil
}

// parseHomeAway maps the opponent prefix token: "vs" is a home game, "@" an
// away game.
func parseHomeAway(token string) (bool, error) {
	switch token {
	case "vs":
		return true, nil
	case "@":
		return false, nil
	default:
		return false, provider.Malformed("gamelog", "homeAway", fmt.Errorf("unexpected token %q", token))
	}
}
