package handlers

import (
	"net/http"

	"github.com/titlescore/titlescore/middleware"
	"github.com/titlescore/titlescore/services"
)

type StandingsHandler struct {
	standingsService services.StandingsService
	exportService    services.ExportService
}

func NewStandingsHandler(standingsService services.StandingsService, exportService services.ExportService) *StandingsHandler {
	return &StandingsHandler{
		standingsService: standingsService,
		exportService:    exportService,
	}
}

// SummaryHandler обрабатывает GET /contests/{contestID}/standings
func (h *StandingsHandler) SummaryHandler(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	contestID, err := getParamFromURL(r, "contestID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	summary, err := h.standingsService.Summary(r.Context(), currentUserID, contestID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"standings": summary}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ExportHandler обрабатывает POST /contests/{contestID}/export
func (h *StandingsHandler) ExportHandler(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	contestID, err := getParamFromURL(r, "contestID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	result, err := h.exportService.ExportResults(r.Context(), currentUserID, contestID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"export": result}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
