package comments

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"Inkwell/internal/api/handlers"
	"Inkwell/internal/core/comments"
)

// UpdateCommentHandler handles comment update requests
type UpdateCommentHandler struct {
	service comments.Service
}

// NewUpdateCommentHandler creates a new handler for updating comments
func NewUpdateCommentHandler(service comments.Service) *UpdateCommentHandler {
	return &UpdateCommentHandler{
		service: service,
	}
}

// HandleUpdate handles PATCH /api/comments/{commentID}
//
// Request body: any of { "content", "authorName", "authorEmail" }
// Only the comment's author or a moderator may edit.
func (h *UpdateCommentHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	commentID := chi.URLParam(r, "commentID")

	var input comments.UpdateInput
	if !handlers.DecodeJSON(w, r, &input) {
		return
	}

	if !authorizeAuthor(w, r, h.service, commentID) {
		return
	}

	updated, err := h.service.UpdateComment(r.Context(), commentID, input)
	if err != nil {
		handlers.WriteServiceError(w, err)
		return
	}

	handlers.WriteJSON(w, http.StatusOK, viewerOf(r).redact(updated))
}

// authorizeAuthor lets moderators through and otherwise requires the caller to own the
// comment. Writes the response and returns false when the request must stop.
func authorizeAuthor(w http.ResponseWriter, r *http.Request, service comments.Service, commentID string) bool {
	v := viewerOf(r)
	if v.moderator {
		return true
	}

	existing, err := service.GetComment(r.Context(), commentID, true)
	if err != nil {
		handlers.WriteServiceError(w, err)
		return false
	}
	if !existing.IsOwnedBy(v.userID) {
		handlers.WriteError(w, http.StatusForbidden, "Forbidden", "Only the comment's author can change it")
		return false
	}
	return true
}
