package espn

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/albapepper/courtside-data/internal/provider"
)

var teamCardFields = provider.FieldMap{
	Page: "teams",
	Fields: []provider.Field{
		{Name: "name", Selector: "h2"},
		{Name: "link", Selector: "a.AnchorLink", Attr: "href"},
	},
}

const teamCardSelector = "section.TeamLinks"

// ExtractTeams reads every team card from the teams index page.
func ExtractTeams(doc *goquery.Document) ([]provider.Team, error) {
	cards := doc.Find(teamCardSelector)
	if cards.Length() == 0 {
		return nil, provider.Missing("teams", "teamCards")
	}

	teams := make([]provider.Team, 0, cards.Length())
	var err error
	cards.EachWithBreak(func(_ int, card *goquery.Selection) bool {
		var f provider.Fields
		f, err = teamCardFields.Locate(card)
		if err != nil {
			return false
		}
		link := f.Text("link")
		slug, slugErr := TeamSlugFromLink(link)
		if slugErr != nil {
			err = provider.Malformed("teams", "link", slugErr)
			return false
		}
		teams = append(teams, provider.Team{
			Name:         f.Text("name"),
			SourceTeamID: slug,
			Link:         link,
		})
		return true
	})
	if err != nil {
		return nil, err
	}
	return teams, nil
}

var teamNamesByAbbreviation = map[string]string{
	"ATL":  "Atlanta Hawks",
	"BOS":  "Boston Celtics",
	"BKN":  "Brooklyn Nets",
	"CHA":  "Charlotte Hornets",
	"CHI":  "Chicago Bulls",
	"CLE":  "Cleveland Cavaliers",
	"DAL":  "Dallas Mavericks",
	"DEN":  "Denver Nuggets",
	"DET":  "Detroit Pistons",
	"GS":   "Golden State Warriors",
	"HOU":  "Houston Rockets",
	"IND":  "Indiana Pacers",
	"LAC":  "LA Clippers",
	"LAL":  "Los Angeles Lakers",
	"MEM":  "Memphis Grizzlies",
	"MIA":  "Miami Heat",
	"MIL":  "Milwaukee Bucks",
	"MIN":  "Minnesota Timberwolves",
	"NO":   "New Orleans Pelicans",
	"NY":   "New York Knicks",
	"OKC":  "Oklahoma City Thunder",
	"ORL":  "Orlando Magic",
	"PHI":  "Philadelphia 76ers",
	"PHX":  "Phoenix Suns",
	"POR":  "Portland Trail Blazers",
	"SA":   "San Antonio Spurs",
	"SAC":  "Sacramento Kings",
	"TOR":  "Toronto Raptors",
	"UTAH": "Utah Jazz",
	"WSH":  "Washington Wizards",
}

// TeamNameFromAbbreviation maps the abbreviations ESPN prints in game logs
// to full team names.
func TeamNameFromAbbreviation(abbr string) (string, error) {
	name, ok := teamNamesByAbbreviation[strings.ToUpper(strings.TrimSpace(abbr))]
	if !ok {
		return "", fmt.Errorf("unknown team abbreviation %q", abbr)
	}
	return name, nil
}
