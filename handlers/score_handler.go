package handlers

import (
	"net/http"

	"github.com/titlescore/titlescore/middleware"
	"github.com/titlescore/titlescore/repositories"
	"github.com/titlescore/titlescore/services"
)

type ScoreHandler struct {
	scoreService services.ScoreService
}

func NewScoreHandler(scoreService services.ScoreService) *ScoreHandler {
	return &ScoreHandler{scoreService: scoreService}
}

func scoreKeyFromURL(r *http.Request, judgeID string) (repositories.ScoreKey, error) {
	contestantID, err := getParamFromURL(r, "contestantID")
	if err != nil {
		return repositories.ScoreKey{}, err
	}
	criteriaID, err := getParamFromURL(r, "criteriaID")
	if err != nil {
		return repositories.ScoreKey{}, err
	}
	return repositories.ScoreKey{
		JudgeID:      judgeID,
		ContestantID: contestantID,
		CriteriaID:   criteriaID,
	}, nil
}

// UpsertHandler обрабатывает PUT /scores
func (h *ScoreHandler) UpsertHandler(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	var input services.UpsertScoreInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	score, err := h.scoreService.Upsert(r.Context(), currentUserID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"score": score}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetHandler обрабатывает GET /scores/{judgeID}/{contestantID}/{criteriaID}
func (h *ScoreHandler) GetHandler(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	judgeID, err := getParamFromURL(r, "judgeID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	key, err := scoreKeyFromURL(r, judgeID)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	score, err := h.scoreService.Get(r.Context(), currentUserID, key)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"score": score}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// SubmitHandler обрабатывает POST /scores/{contestantID}/{criteriaID}/submit.
// Судья фиксирует собственную оценку, поэтому judge в ключе — вызывающий.
func (h *ScoreHandler) SubmitHandler(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	key, err := scoreKeyFromURL(r, currentUserID)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.scoreService.Submit(r.Context(), currentUserID, key); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"message": "score submitted"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// DeleteHandler обрабатывает DELETE /scores/{judgeID}/{contestantID}/{criteriaID}
func (h *ScoreHandler) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	judgeID, err := getParamFromURL(r, "judgeID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	key, err := scoreKeyFromURL(r, judgeID)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	deleted, err := h.scoreService.Delete(r.Context(), currentUserID, key)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"deleted": deleted}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
