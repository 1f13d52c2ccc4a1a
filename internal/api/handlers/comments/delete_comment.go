package comments

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"Inkwell/internal/api/handlers"
	"Inkwell/internal/core/comments"
)

// DeleteCommentHandler handles comment deletion requests
type DeleteCommentHandler struct {
	service comments.Service
}

// NewDeleteCommentHandler creates a new handler for deleting comments
func NewDeleteCommentHandler(service comments.Service) *DeleteCommentHandler {
	return &DeleteCommentHandler{
		service: service,
	}
}

// HandleDelete handles DELETE /api/comments/{commentID}
// Soft delete: the row stays so its replies keep their thread
func (h *DeleteCommentHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	commentID := chi.URLParam(r, "commentID")

	if !authorizeAuthor(w, r, h.service, commentID) {
		return
	}

	deleted, err := h.service.DeleteComment(r.Context(), commentID)
	if err != nil {
		handlers.WriteServiceError(w, err)
		return
	}

	handlers.WriteJSON(w, http.StatusOK, viewerOf(r).redact(deleted))
}
