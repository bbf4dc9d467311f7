package handlers

import (
	"net/http"

	"github.com/mecacaraudio/scoring-engine/services"
)

type ArchiveHandler struct {
	archiveService *services.ArchiveService
}

func NewArchiveHandler(as *services.ArchiveService) *ArchiveHandler {
	return &ArchiveHandler{archiveService: as}
}

func (h *ArchiveHandler) ArchiveSeason(w http.ResponseWriter, r *http.Request) {
	if h.archiveService == nil {
		errorResponse(w, r, http.StatusServiceUnavailable, "season archiving is not configured")
		return
	}

	seasonID, err := urlParamInt(r, "seasonID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	result, err := h.archiveService.ArchiveSeason(r.Context(), seasonID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{"archive": result}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
