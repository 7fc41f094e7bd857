package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/albapepper/courtside-data/internal/api/respond"
	"github.com/albapepper/courtside-data/internal/store"
)

// ListTeams returns every stored team.
// @Summary List teams
// @Description Returns all teams ordered by name.
// @Tags teams
// @Produce json
// @Success 200 {array} store.Team
// @Failure 500 {object} respond.ErrorResponse
// @Router /teams [get]
func (h *Handler) ListTeams(w http.ResponseWriter, r *http.Request) {
	h.serveCached(w, r, "teams", func(ctx context.Context) (interface{}, error) {
		teams, err := h.reader.ListTeams(ctx)
		if teams == nil {
			teams = []store.Team{}
		}
		return teams, err
	})
}

// ListTeamPlayers returns the current roster of a team.
// @Summary List a team's players
// @Description Returns players currently assigned to the team. Free agents are never listed.
// @Tags teams
// @Produce json
// @Param teamID path string true "Team UUID"
// @Success 200 {array} store.Player
// @Failure 400 {object} respond.ErrorResponse
// @Failure 500 {object} respond.ErrorResponse
// @Router /teams/{teamID}/players [get]
func (h *Handler) ListTeamPlayers(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "teamID")
	if !ok {
		return
	}
	h.serveCached(w, r, "players:team:"+id.String(), func(ctx context.Context) (interface{}, error) {
		players, err := h.reader.ListPlayersByTeam(ctx, id)
		if players == nil {
			players = []store.Player{}
		}
		return players, err
	})
}

// ListPlayerStats returns a player's game log.
// @Summary Player game log
// @Description Returns one stat line per stored game for the player, oldest first. A did-not-play line has null stats.
// @Tags stats
// @Produce json
// @Param playerID path string true "Player UUID"
// @Success 200 {array} store.StatRow
// @Failure 400 {object} respond.ErrorResponse
// @Failure 500 {object} respond.ErrorResponse
// @Router /players/{playerID}/stats [get]
func (h *Handler) ListPlayerStats(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "playerID")
	if !ok {
		return
	}
	h.serveCached(w, r, "stats:player:"+id.String(), func(ctx context.Context) (interface{}, error) {
		return statRows(h.reader.ListStatsByPlayer(ctx, id))
	})
}

// ListGameStats returns the box score of one game.
// @Summary Game box score
// @Description Returns every stored stat line for the game.
// @Tags stats
// @Produce json
// @Param gameID path string true "Game UUID"
// @Success 200 {array} store.StatRow
// @Failure 400 {object} respond.ErrorResponse
// @Failure 500 {object} respond.ErrorResponse
// @Router /games/{gameID}/stats [get]
func (h *Handler) ListGameStats(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "gameID")
	if !ok {
		return
	}
	h.serveCached(w, r, "stats:game:"+id.String(), func(ctx context.Context) (interface{}, error) {
		return statRows(h.reader.ListStatsByGame(ctx, id))
	})
}

func statRows(rows []store.StatRow, err error) (interface{}, error) {
	if rows == nil {
		rows = []store.StatRow{}
	}
	return rows, err
}

func pathUUID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	raw := chi.URLParam(r, param)
	id, err := uuid.Parse(raw)
	if err != nil {
		respond.InvalidID(w, param, raw)
		return uuid.Nil, false
	}
	return id, true
}
