package handlers

import (
	"net/http"

	"github.com/titlescore/titlescore/middleware"
	"github.com/titlescore/titlescore/models"
	"github.com/titlescore/titlescore/services"
)

type MemberHandler struct {
	memberService services.MemberService
}

func NewMemberHandler(memberService services.MemberService) *MemberHandler {
	return &MemberHandler{memberService: memberService}
}

type memberRequestBody struct {
	Email       string `json:"email"`
	Role        string `json:"role"`
	DisplayName string `json:"display_name,omitempty"`
}

// InviteHandler обрабатывает POST /contests/{contestID}/members
func (h *MemberHandler) InviteHandler(w http.ResponseWriter, r *http.Request) {
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

	var body memberRequestBody
	if err := readJSON(w, r, &body); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	input := services.InviteMemberInput{
		ContestID:   contestID,
		Email:       body.Email,
		Role:        models.Role(body.Role),
		DisplayName: body.DisplayName,
	}
	if err := h.memberService.Invite(r.Context(), currentUserID, input); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"message": "invite sent"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ResendInviteHandler обрабатывает POST /contests/{contestID}/members/resend
func (h *MemberHandler) ResendInviteHandler(w http.ResponseWriter, r *http.Request) {
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

	var body memberRequestBody
	if err := readJSON(w, r, &body); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	input := services.InviteMemberInput{
		ContestID:   contestID,
		Email:       body.Email,
		Role:        models.Role(body.Role),
		DisplayName: body.DisplayName,
	}
	if err := h.memberService.ResendInvite(r.Context(), currentUserID, input); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"message": "invite resent"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UpdateRoleHandler обрабатывает PUT /contests/{contestID}/members/{userID}
func (h *MemberHandler) UpdateRoleHandler(w http.ResponseWriter, r *http.Request) {
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
	userID, err := getParamFromURL(r, "userID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var body struct {
		Role string `json:"role"`
	}
	if err := readJSON(w, r, &body); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.memberService.UpdateRole(r.Context(), currentUserID, contestID, userID, models.Role(body.Role)); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"message": "role updated"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// RemoveHandler обрабатывает DELETE /contests/{contestID}/members/{userID}
func (h *MemberHandler) RemoveHandler(w http.ResponseWriter, r *http.Request) {
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
	userID, err := getParamFromURL(r, "userID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.memberService.Remove(r.Context(), currentUserID, contestID, userID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListHandler обрабатывает GET /contests/{contestID}/members?role=judge
func (h *MemberHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
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

	members, err := h.memberService.List(r.Context(), currentUserID, contestID, r.URL.Query().Get("role"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"members": members}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// MeHandler обрабатывает GET /contests/{contestID}/members/me
func (h *MemberHandler) MeHandler(w http.ResponseWriter, r *http.Request) {
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

	me, err := h.memberService.Me(r.Context(), currentUserID, contestID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"member": me}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
