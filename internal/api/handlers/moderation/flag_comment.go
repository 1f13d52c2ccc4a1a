// Package moderation provides HTTP handlers for flagging and moderator review.
package moderation

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"Inkwell/internal/api/handlers"
	"Inkwell/internal/api/middleware"
	"Inkwell/internal/core/moderation"
)

// FlagCommentInput is the body of POST /api/comments/{commentID}/flags
type FlagCommentInput struct {
	Reason *string `json:"reason,omitempty" validate:"omitempty,max=500"`
}

// FlagHandler serves the flag endpoints
type FlagHandler struct {
	service moderation.Service
}

// NewFlagHandler creates a new flag handler
func NewFlagHandler(service moderation.Service) *FlagHandler {
	return &FlagHandler{service: service}
}

// HandleFlag handles POST /api/comments/{commentID}/flags
// The flagging user is always the token subject
func (h *FlagHandler) HandleFlag(w http.ResponseWriter, r *http.Request) {
	var input FlagCommentInput
	if !handlers.DecodeOptionalJSON(w, r, &input) || !handlers.ValidateInput(w, input) {
		return
	}

	flag, err := h.service.FlagComment(r.Context(), chi.URLParam(r, "commentID"), middleware.GetUserID(r), input.Reason)
	if err != nil {
		handlers.WriteServiceError(w, err)
		return
	}

	handlers.WriteJSON(w, http.StatusCreated, flag)
}

// HandleUnflag handles DELETE /api/comments/{commentID}/flags
// Withdraws the caller's own flag
func (h *FlagHandler) HandleUnflag(w http.ResponseWriter, r *http.Request) {
	if err := h.service.UnflagComment(r.Context(), chi.URLParam(r, "commentID"), middleware.GetUserID(r)); err != nil {
		handlers.WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleGetFlags handles GET /api/comments/{commentID}/flags (moderators)
func (h *FlagHandler) HandleGetFlags(w http.ResponseWriter, r *http.Request) {
	flags, err := h.service.GetFlags(r.Context(), chi.URLParam(r, "commentID"))
	if err != nil {
		handlers.WriteServiceError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, map[string]interface{}{"flags": flags})
}
