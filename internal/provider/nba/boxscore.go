package nba

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/albapepper/courtside-data/internal/provider"
)

const nextDataSelector = "script#__NEXT_DATA__"

type nextData struct {
	Props struct {
		PageProps struct {
			Game *gamePayload `json:"game"`
		} `json:"pageProps"`
	} `json:"props"`
}

type gamePayload struct {
	GameID      string      `json:"gameId"`
	GameStatus  int         `json:"gameStatus"`
	GameTimeUTC string      `json:"gameTimeUTC"`
	HomeTeam    teamPayload `json:"homeTeam"`
	AwayTeam    teamPayload `json:"awayTeam"`
}

type teamPayload struct {
	TeamName string          `json:"teamName"`
	TeamCity string          `json:"teamCity"`
	Score    *int            `json:"score"`
	Players  []playerPayload `json:"players"`
}

type playerPayload struct {
	PersonID   int                    `json:"personId"`
	FirstName  string                 `json:"firstName"`
	FamilyName string                 `json:"familyName"`
	Comment    string                 `json:"comment"`
	Statistics map[string]interface{} `json:"statistics"`
}

// ExtractBoxScore reads the game object embedded in the page's
// __NEXT_DATA__ script. Players with no recorded minutes are did-not-play
// entries with nil Stats.
func ExtractBoxScore(doc *goquery.Document, gameID string) (provider.BoxScore, error) {
	script := doc.Find(nextDataSelector)
	if script.Length() == 0 {
		return provider.BoxScore{}, provider.Missing("nbagame", "__NEXT_DATA__")
	}

	var data nextData
	if err := json.Unmarshal([]byte(script.First().Text()), &data); err != nil {
		return provider.BoxScore{}, provider.Malformed("nbagame", "__NEXT_DATA__", err)
	}
	game := data.Props.PageProps.Game
	if game == nil {
		return provider.BoxScore{}, provider.Missing("nbagame", "props.pageProps.game")
	}
	if game.GameID != "" && game.GameID != gameID {
		return provider.BoxScore{}, provider.Malformed("nbagame", "gameId",
			fmt.Errorf("page is for game %s, want %s", game.GameID, gameID))
	}

	home, err := teamBox(game.HomeTeam, "homeTeam")
	if err != nil {
		return provider.BoxScore{}, err
	}
	away, err := teamBox(game.AwayTeam, "awayTeam")
	if err != nil {
		return provider.BoxScore{}, err
	}

	box := provider.BoxScore{
		Source:       provider.SourceNBA,
		SourceGameID: gameID,
		Final:        game.GameStatus == gameStatusFinal,
		Home:         home,
		Away:         away,
	}
	// A missing time leaves Date zero for the caller to fill from the schedule.
	if game.GameTimeUTC != "" {
		t, err := provider.ParseUTC(game.GameTimeUTC)
		if err != nil {
			return provider.BoxScore{}, provider.Malformed("nbagame", "gameTimeUTC", err)
		}
		box.Date = t
	}
	return box, nil
}

func teamBox(t teamPayload, field string) (provider.TeamBox, error) {
	if t.TeamName == "" {
		return provider.TeamBox{}, provider.Missing("nbagame", field+".teamName")
	}
	box := provider.TeamBox{
		TeamName: t.TeamName,
		TeamCity: t.TeamCity,
		Score:    t.Score,
		Players:  make([]provider.BoxScoreLine, 0, len(t.Players)),
	}
	for _, p := range t.Players {
		line := provider.BoxScoreLine{
			SourceID:   p.PersonID,
			Name:       strings.TrimSpace(p.FirstName + " " + p.FamilyName),
			FirstName:  p.FirstName,
			FamilyName: p.FamilyName,
		}
		// "DNP - Coach's Decision", "DND - Injury/Illness", "NWT - ..."
		if !strings.HasPrefix(p.Comment, "DNP") && !strings.HasPrefix(p.Comment, "DND") && !strings.HasPrefix(p.Comment, "NWT") {
			line.Stats = statLine(p.Statistics)
		}
		box.Players = append(box.Players, line)
	}
	return box, nil
}

// statLine converts the statistics object. Missing or zero minutes means
// the player did not play.
func statLine(stats map[string]interface{}) *provider.StatLine {
	if len(stats) == 0 {
		return nil
	}
	minutes, _ := stats["minutes"].(string)
	played := provider.ParseMinutes(minutes)
	if played == nil || (*played == 0 && zeroSeconds(minutes)) {
		return nil
	}

	s := &provider.StatLine{
		Minutes:                played,
		FieldGoalsMade:         provider.ExtractInt(stats["fieldGoalsMade"]),
		FieldGoalsAttempted:    provider.ExtractInt(stats["fieldGoalsAttempted"]),
		ThreePointersMade:      provider.ExtractInt(stats["threePointersMade"]),
		ThreePointersAttempted: provider.ExtractInt(stats["threePointersAttempted"]),
		FreeThrowsMade:         provider.ExtractInt(stats["freeThrowsMade"]),
		FreeThrowsAttempted:    provider.ExtractInt(stats["freeThrowsAttempted"]),
		Rebounds:               provider.ExtractInt(stats["reboundsTotal"]),
		Assists:                provider.ExtractInt(stats["assists"]),
		Steals:                 provider.ExtractInt(stats["steals"]),
		Blocks:                 provider.ExtractInt(stats["blocks"]),
		Turnovers:              provider.ExtractInt(stats["turnovers"]),
		Fouls:                  provider.ExtractInt(stats["foulsPersonal"]),
		PlusMinus:              provider.ExtractInt(stats["plusMinusPoints"]),
		Points:                 provider.ExtractInt(stats["points"]),
	}
	dropInvalidSplits(s)
	return s
}

// zeroSeconds reports whether an ISO duration like "PT00M00.00S" is empty.
func zeroSeconds(minutes string) bool {
	return strings.Trim(strings.TrimSuffix(strings.TrimPrefix(minutes, "PT"), "S"), "0M.") == ""
}

// dropInvalidSplits applies the made <= attempted rule to JSON numbers the
// same way ParseShotSplit does for HTML cells.
func dropInvalidSplits(s *provider.StatLine) {
	fix := func(made, attempted **int) {
		if *made == nil || *attempted == nil {
			return
		}
		if **made < 0 || **attempted < 0 || **made > **attempted {
			*made, *attempted = nil, nil
		}
	}
	fix(&s.FieldGoalsMade, &s.FieldGoalsAttempted)
	fix(&s.ThreePointersMade, &s.ThreePointersAttempted)
	fix(&s.FreeThrowsMade, &s.FreeThrowsAttempted)
}
