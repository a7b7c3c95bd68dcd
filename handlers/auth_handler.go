package handlers

import (
	"errors"
	"net/http"

	"github.com/titlescore/titlescore/services"
)

type AuthHandler struct {
	authService services.AuthService
}

func NewAuthHandler(authService services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// VerifyHandler обрабатывает POST /auth/verify: обмен одноразового токена
// из письма на сессионный JWT.
func (h *AuthHandler) VerifyHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Token string `json:"token"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.Token == "" {
		badRequestResponse(w, r, errors.New("token is required"))
		return
	}

	session, err := h.authService.VerifySignInToken(r.Context(), input.Token)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"session": session}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
