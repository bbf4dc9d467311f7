package handlers

import (
	"net/http"

	"github.com/mecacaraudio/scoring-engine/services"
)

type ResultsHandler struct {
	resultsService *services.ResultsService
}

func NewResultsHandler(rs *services.ResultsService) *ResultsHandler {
	return &ResultsHandler{resultsService: rs}
}

type ingestResultsInput struct {
	SourceSystem string               `json:"source_system"`
	Results      []services.RawResult `json:"results"`
}

func (h *ResultsHandler) IngestResults(w http.ResponseWriter, r *http.Request) {
	eventID, err := urlParamInt(r, "eventID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input ingestResultsInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.SourceSystem == "" {
		input.SourceSystem = "termlab"
	}

	summary, err := h.resultsService.Ingest(r.Context(), eventID, input.SourceSystem, input.Results)
	if err != nil {
		// Unresolved labels come back alongside the error so the admin
		// can create the missing mappings in one pass.
		if summary != nil && len(summary.UnresolvedLabels) > 0 {
			errorResponse(w, r, http.StatusUnprocessableEntity, jsonResponse{
				"message":           err.Error(),
				"unresolved_labels": summary.UnresolvedLabels,
			})
			return
		}
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{"ingest": summary}
	if err := writeJSON(w, http.StatusCreated, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *ResultsHandler) ListResults(w http.ResponseWriter, r *http.Request) {
	eventID, err := urlParamInt(r, "eventID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	records, err := h.resultsService.ListByEvent(r.Context(), eventID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{"results": records}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
