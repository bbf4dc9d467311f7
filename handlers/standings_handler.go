package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/mecacaraudio/scoring-engine/scoring"
	"github.com/mecacaraudio/scoring-engine/services"
)

type StandingsHandler struct {
	standingsService *services.StandingsService
	hub              *scoring.Hub
}

func NewStandingsHandler(ss *services.StandingsService, hub *scoring.Hub) *StandingsHandler {
	return &StandingsHandler{
		standingsService: ss,
		hub:              hub,
	}
}

func (h *StandingsHandler) GetClassLeaderboard(w http.ResponseWriter, r *http.Request) {
	seasonID, err := urlParamInt(r, "seasonID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	classID, err := urlParamInt(r, "classID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	standings, err := h.standingsService.ClassLeaderboard(r.Context(), seasonID, classID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{"standings": standings}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *StandingsHandler) GetTeamLeaderboard(w http.ResponseWriter, r *http.Request) {
	seasonID, err := urlParamInt(r, "seasonID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	standings, err := h.standingsService.TeamLeaderboard(r.Context(), seasonID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{"standings": standings}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *StandingsHandler) ListTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := h.standingsService.Teams(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{"teams": teams}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *StandingsHandler) GetTeamProfile(w http.ResponseWriter, r *http.Request) {
	seasonID, err := urlParamInt(r, "seasonID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	teamID, err := urlParamInt(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	profile, err := h.standingsService.TeamProfile(r.Context(), seasonID, teamID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{"profile": profile}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *StandingsHandler) GetCompetitorStats(w http.ResponseWriter, r *http.Request) {
	seasonID, err := urlParamInt(r, "seasonID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	mecaID := strings.TrimSpace(chi.URLParam(r, "mecaID"))
	if mecaID == "" {
		badRequestResponse(w, r, fmt.Errorf("invalid mecaID parameter"))
		return
	}

	stats, err := h.standingsService.CompetitorStats(r.Context(), seasonID, mecaID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{"stats": stats}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *StandingsHandler) RecomputeStandings(w http.ResponseWriter, r *http.Request) {
	seasonID, err := urlParamInt(r, "seasonID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.standingsService.Recompute(r.Context(), seasonID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	h.hub.BroadcastToRoom(seasonRoom(seasonID), scoring.WebSocketMessage{
		Type:    scoring.MsgStandingsUpdated,
		Payload: jsonResponse{"season_id": seasonID},
	})

	response := jsonResponse{"message": "standings recomputed"}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func seasonRoom(seasonID int) string {
	return fmt.Sprintf("season_%d", seasonID)
}
