package handlers

import (
	"net/http"

	"github.com/mecacaraudio/scoring-engine/scoring"
	"github.com/mecacaraudio/scoring-engine/services"
)

type QualificationHandler struct {
	qualService *services.QualificationService
	hub         *scoring.Hub
}

func NewQualificationHandler(qs *services.QualificationService, hub *scoring.Hub) *QualificationHandler {
	return &QualificationHandler{
		qualService: qs,
		hub:         hub,
	}
}

func (h *QualificationHandler) ListBySeason(w http.ResponseWriter, r *http.Request) {
	seasonID, err := urlParamInt(r, "seasonID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	records, err := h.qualService.ListBySeason(r.Context(), seasonID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{"qualifications": records}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *QualificationHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt(r, "qualificationID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	record, err := h.qualService.GetByID(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{"qualification": record}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *QualificationHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	seasonID, err := urlParamInt(r, "seasonID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	stats, err := h.qualService.Stats(r.Context(), seasonID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{"stats": stats}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *QualificationHandler) Recompute(w http.ResponseWriter, r *http.Request) {
	seasonID, err := urlParamInt(r, "seasonID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	summary, err := h.qualService.Recompute(r.Context(), seasonID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	h.hub.BroadcastToRoom(seasonRoom(seasonID), scoring.WebSocketMessage{
		Type:    scoring.MsgQualificationsUpdated,
		Payload: summary,
	})

	response := jsonResponse{"result": summary}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *QualificationHandler) SendInvitation(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt(r, "qualificationID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	record, err := h.qualService.SendInvitation(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{"qualification": record}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *QualificationHandler) SendAllPendingInvitations(w http.ResponseWriter, r *http.Request) {
	seasonID, err := urlParamInt(r, "seasonID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	summary, err := h.qualService.SendAllPendingInvitations(r.Context(), seasonID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{"result": summary}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *QualificationHandler) NotifyQualified(w http.ResponseWriter, r *http.Request) {
	seasonID, err := urlParamInt(r, "seasonID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	summary, err := h.qualService.NotifyQualified(r.Context(), seasonID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{"result": summary}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type checkQualificationInput struct {
	MecaID  string `json:"meca_id"`
	ClassID int    `json:"class_id"`
}

// CheckQualification evaluates one competitor and class against the season
// threshold, for use right after a scoped points recompute.
func (h *QualificationHandler) CheckQualification(w http.ResponseWriter, r *http.Request) {
	seasonID, err := urlParamInt(r, "seasonID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input checkQualificationInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	qualified, err := h.qualService.CheckAndUpdate(r.Context(), seasonID, input.MecaID, input.ClassID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{"qualified": qualified}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *QualificationHandler) MarkNotified(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt(r, "qualificationID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	record, err := h.qualService.MarkNotified(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{"qualification": record}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type redeemInvitationInput struct {
	Token string `json:"token"`
}

func (h *QualificationHandler) RedeemInvitation(w http.ResponseWriter, r *http.Request) {
	var input redeemInvitationInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	record, err := h.qualService.RedeemInvitation(r.Context(), input.Token)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{"qualification": record}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
