package comments

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"Inkwell/internal/api/handlers"
	"Inkwell/internal/core/comments"
)

// ChangeStatusInput is the body of PUT /api/comments/{commentID}/status
type ChangeStatusInput struct {
	Notes  *string `json:"notes,omitempty"`
	Status string  `json:"status" validate:"required"`
}

// MoveCommentInput is the body of POST /api/comments/{commentID}/move.
// A null or missing parentId makes the comment a root.
type MoveCommentInput struct {
	ParentID *string `json:"parentId"`
}

// AdminCommentHandler serves moderator-only comment operations
type AdminCommentHandler struct {
	service comments.Service
}

// NewAdminCommentHandler creates the moderator comment handler
func NewAdminCommentHandler(service comments.Service) *AdminCommentHandler {
	return &AdminCommentHandler{service: service}
}

// HandleChangeStatus handles PUT /api/comments/{commentID}/status
func (h *AdminCommentHandler) HandleChangeStatus(w http.ResponseWriter, r *http.Request) {
	var input ChangeStatusInput
	if !handlers.DecodeJSON(w, r, &input) || !handlers.ValidateInput(w, input) {
		return
	}

	updated, err := h.service.ChangeStatus(r.Context(), chi.URLParam(r, "commentID"),
		comments.ModerationStatus(input.Status), input.Notes)
	if err != nil {
		handlers.WriteServiceError(w, err)
		return
	}

	handlers.WriteJSON(w, http.StatusOK, updated)
}

// HandleMove handles POST /api/comments/{commentID}/move
func (h *AdminCommentHandler) HandleMove(w http.ResponseWriter, r *http.Request) {
	var input MoveCommentInput
	if !handlers.DecodeJSON(w, r, &input) {
		return
	}

	moved, err := h.service.MoveComment(r.Context(), chi.URLParam(r, "commentID"), input.ParentID)
	if err != nil {
		handlers.WriteServiceError(w, err)
		return
	}

	handlers.WriteJSON(w, http.StatusOK, moved)
}
