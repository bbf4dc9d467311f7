package handlers

import (
	"net/http"

	"github.com/mecacaraudio/scoring-engine/scoring"
	"github.com/mecacaraudio/scoring-engine/services"
)

type PointsHandler struct {
	pointsService *services.PointsService
	hub           *scoring.Hub
}

func NewPointsHandler(ps *services.PointsService, hub *scoring.Hub) *PointsHandler {
	return &PointsHandler{
		pointsService: ps,
		hub:           hub,
	}
}

func (h *PointsHandler) RecomputeEvent(w http.ResponseWriter, r *http.Request) {
	eventID, err := urlParamInt(r, "eventID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	summary, err := h.pointsService.RecomputeEvent(r.Context(), eventID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{"recompute": summary}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *PointsHandler) RecomputeGroup(w http.ResponseWriter, r *http.Request) {
	groupID, err := urlParamInt(r, "groupID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	summary, err := h.pointsService.RecomputeGroup(r.Context(), groupID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{"recompute": summary}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *PointsHandler) RecomputeSeason(w http.ResponseWriter, r *http.Request) {
	seasonID, err := urlParamInt(r, "seasonID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	summary, err := h.pointsService.RecomputeSeason(r.Context(), seasonID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	h.hub.BroadcastToRoom(seasonRoom(seasonID), scoring.WebSocketMessage{
		Type:    scoring.MsgPointsRecomputed,
		Payload: jsonResponse{"season_id": seasonID, "scopes": len(summary.Scopes)},
	})

	response := jsonResponse{"recompute": summary}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *PointsHandler) ListSeasonAwards(w http.ResponseWriter, r *http.Request) {
	seasonID, err := urlParamInt(r, "seasonID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	awards, err := h.pointsService.ListSeasonAwards(r.Context(), seasonID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{"point_awards": awards}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
