package handlers

import (
	"net/http"
	"time"

	"github.com/titlescore/titlescore/middleware"
	"github.com/titlescore/titlescore/services"
)

type CriterionHandler struct {
	criterionService services.CriterionService
}

func NewCriterionHandler(criterionService services.CriterionService) *CriterionHandler {
	return &CriterionHandler{criterionService: criterionService}
}

// CreateHandler обрабатывает POST /contests/{contestID}/criteria
func (h *CriterionHandler) CreateHandler(w http.ResponseWriter, r *http.Request) {
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
		Name        string     `json:"name"`
		Description string     `json:"description,omitempty"`
		Weight      int        `json:"weight"`
		DueAt       *time.Time `json:"due_at,omitempty"`
	}
	if err := readJSON(w, r, &body); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	criterion, err := h.criterionService.Create(r.Context(), currentUserID, services.CreateCriterionInput{
		ContestID:   contestID,
		Name:        body.Name,
		Description: body.Description,
		Weight:      body.Weight,
		DueAt:       body.DueAt,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"criterion": criterion}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListHandler обрабатывает GET /contests/{contestID}/criteria
func (h *CriterionHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
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

	criteria, err := h.criterionService.List(r.Context(), currentUserID, contestID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"criteria": criteria}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetByIDHandler обрабатывает GET /criteria/{criteriaID}
func (h *CriterionHandler) GetByIDHandler(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	criteriaID, err := getParamFromURL(r, "criteriaID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	criterion, err := h.criterionService.Get(r.Context(), currentUserID, criteriaID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"criterion": criterion}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UpdateHandler обрабатывает PUT /criteria/{criteriaID}
func (h *CriterionHandler) UpdateHandler(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	criteriaID, err := getParamFromURL(r, "criteriaID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.UpdateCriterionInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	criterion, err := h.criterionService.Update(r.Context(), currentUserID, criteriaID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"criterion": criterion}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// DeleteHandler обрабатывает DELETE /criteria/{criteriaID}
func (h *CriterionHandler) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	criteriaID, err := getParamFromURL(r, "criteriaID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.criterionService.Delete(r.Context(), currentUserID, criteriaID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
