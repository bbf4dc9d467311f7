package handlers

import (
	"net/http"

	"github.com/mecacaraudio/scoring-engine/services"
)

type ClassMapHandler struct {
	classMapService *services.ClassMapService
}

func NewClassMapHandler(cs *services.ClassMapService) *ClassMapHandler {
	return &ClassMapHandler{classMapService: cs}
}

func (h *ClassMapHandler) ListMappings(w http.ResponseWriter, r *http.Request) {
	sourceSystem := r.URL.Query().Get("source_system")
	if sourceSystem == "" {
		sourceSystem = "termlab"
	}

	mappings, err := h.classMapService.ListMappings(r.Context(), sourceSystem)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{"mappings": mappings}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *ClassMapHandler) ListUnmapped(w http.ResponseWriter, r *http.Request) {
	sourceSystem := r.URL.Query().Get("source_system")
	if sourceSystem == "" {
		sourceSystem = "termlab"
	}

	mappings, err := h.classMapService.ListUnmapped(r.Context(), sourceSystem)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{"mappings": mappings}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *ClassMapHandler) CreateMapping(w http.ResponseWriter, r *http.Request) {
	var input services.CreateMappingInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	mapping, err := h.classMapService.CreateMapping(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{"mapping": mapping}
	if err := writeJSON(w, http.StatusCreated, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *ClassMapHandler) UpdateMapping(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt(r, "mappingID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.UpdateMappingInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	mapping, err := h.classMapService.UpdateMapping(r.Context(), id, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{"mapping": mapping}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *ClassMapHandler) DeleteMapping(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt(r, "mappingID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.classMapService.DeleteMapping(r.Context(), id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *ClassMapHandler) ListClasses(w http.ResponseWriter, r *http.Request) {
	seasonID, err := urlParamInt(r, "seasonID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	classes, err := h.classMapService.ListClasses(r.Context(), seasonID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{"classes": classes}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
