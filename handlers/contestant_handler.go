package handlers

import (
	"net/http"

	"github.com/titlescore/titlescore/middleware"
	"github.com/titlescore/titlescore/services"
)

type ContestantHandler struct {
	contestantService services.ContestantService
}

func NewContestantHandler(contestantService services.ContestantService) *ContestantHandler {
	return &ContestantHandler{contestantService: contestantService}
}

// CreateHandler обрабатывает POST /contests/{contestID}/contestants
func (h *ContestantHandler) CreateHandler(w http.ResponseWriter, r *http.Request) {
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

	var body struct {
		Name      string `json:"name"`
		StageName string `json:"stage_name,omitempty"`
	}
	if err := readJSON(w, r, &body); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	contestant, err := h.contestantService.Create(r.Context(), currentUserID, services.CreateContestantInput{
		ContestID: contestID,
		Name:      body.Name,
		StageName: body.StageName,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"contestant": contestant}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListHandler обрабатывает GET /contests/{contestID}/contestants
func (h *ContestantHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
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

	contestants, err := h.contestantService.List(r.Context(), currentUserID, contestID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"contestants": contestants}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetByIDHandler обрабатывает GET /contestants/{contestantID}
func (h *ContestantHandler) GetByIDHandler(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	contestantID, err := getParamFromURL(r, "contestantID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	contestant, err := h.contestantService.Get(r.Context(), currentUserID, contestantID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"contestant": contestant}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UpdateHandler обрабатывает PUT /contestants/{contestantID}
func (h *ContestantHandler) UpdateHandler(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	contestantID, err := getParamFromURL(r, "contestantID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.UpdateContestantInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	contestant, err := h.contestantService.Update(r.Context(), currentUserID, contestantID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"contestant": contestant}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// DeleteHandler обрабатывает DELETE /contestants/{contestantID}
func (h *ContestantHandler) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	contestantID, err := getParamFromURL(r, "contestantID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.contestantService.Delete(r.Context(), currentUserID, contestantID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
