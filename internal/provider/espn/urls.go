// Package espn extracts NBA teams, players, schedules and box scores from
// ESPN HTML pages.
//
// Extractors are pure functions over parsed documents. Locator strings live
// in the field maps at the top of each file; when ESPN changes a layout only
// those tables should need editing.
package espn

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultBaseURL is the production ESPN host.
const DefaultBaseURL = "https://www.espn.com"

// Site builds page URLs against a base host so tests can point the
// extractors at a local server.
type Site struct {
	BaseURL string
}

// NewSite returns a Site for baseURL, or the production host when empty.
func NewSite(baseURL string) Site {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return Site{BaseURL: strings.TrimRight(baseURL, "/")}
}

func (s Site) TeamsURL() string {
	return s.BaseURL + "/nba/teams"
}

func (s Site) RosterURL(slug string) string {
	return fmt.Sprintf("%s/nba/team/roster/_/name/%s", s.BaseURL, slug)
}

func (s Site) PlayerURL(id int) string {
	return fmt.Sprintf("%s/nba/player/_/id/%d", s.BaseURL, id)
}

func (s Site) PlayerGameLogURL(id int) string {
	return fmt.Sprintf("%s/nba/player/gamelog/_/id/%d", s.BaseURL, id)
}

func (s Site) ScheduleURL(slug string) string {
	return fmt.Sprintf("%s/nba/team/schedule/_/name/%s", s.BaseURL, slug)
}

func (s Site) GameURL(id string) string {
	return fmt.Sprintf("%s/nba/game/_/gameId/%s", s.BaseURL, id)
}

func (s Site) BoxScoreURL(id string) string {
	return fmt.Sprintf("%s/nba/boxscore/_/gameId/%s", s.BaseURL, id)
}

// Absolute resolves a site-relative link ("/nba/team/...") against the base.
func (s Site) Absolute(link string) string {
	if strings.HasPrefix(link, "/") {
		return s.BaseURL + link
	}
	return link
}

// PlayerIDFromLink parses the numeric id out of a player link such as
// "https://www.espn.com/nba/player/_/id/4065648/jayson-tatum".
func PlayerIDFromLink(link string) (int, error) {
	seg, ok := segmentAfter(link, "id")
	if !ok {
		return 0, fmt.Errorf("no player id in link %q", link)
	}
	id, err := strconv.Atoi(seg)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid player id in link %q", link)
	}
	return id, nil
}

// PlayerSlugFromLink returns the lowercase name slug that follows the id,
// with dashes replaced by spaces ("jayson tatum").
func PlayerSlugFromLink(link string) string {
	parts := linkSegments(link)
	for i, p := range parts {
		if p == "id" && i+2 < len(parts) {
			return strings.ReplaceAll(parts[i+2], "-", " ")
		}
	}
	return ""
}

// GameIDFromLink parses ".../nba/game/_/gameId/401584689/celtics-knicks".
func GameIDFromLink(link string) (string, error) {
	seg, ok := segmentAfter(link, "gameId")
	if !ok {
		return "", fmt.Errorf("no game id in link %q", link)
	}
	if _, err := strconv.Atoi(seg); err != nil {
		return "", fmt.Errorf("invalid game id in link %q", link)
	}
	return seg, nil
}

// TeamSlugFromLink parses ".../nba/team/_/name/bos/boston-celtics".
func TeamSlugFromLink(link string) (string, error) {
	seg, ok := segmentAfter(link, "name")
	if !ok || seg == "" {
		return "", fmt.Errorf("no team slug in link %q", link)
	}
	return seg, nil
}

func linkSegments(link string) []string {
	if i := strings.IndexAny(link, "?#"); i >= 0 {
		link = link[:i]
	}
	return strings.Split(link, "/")
}

func segmentAfter(link, marker string) (string, bool) {
	parts := linkSegments(link)
	for i, p := range parts {
		if p == marker && i+1 < len(parts) {
			return parts[i+1], true
		}
	}
	return "", false
}
