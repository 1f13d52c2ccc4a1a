package comments

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"Inkwell/internal/api/handlers"
	"Inkwell/internal/api/middleware"
	"Inkwell/internal/core/comments"
)

// CreateCommentHandler handles comment creation requests
type CreateCommentHandler struct {
	service comments.Service
}

// NewCreateCommentHandler creates a new handler for creating comments
func NewCreateCommentHandler(service comments.Service) *CreateCommentHandler {
	return &CreateCommentHandler{
		service: service,
	}
}

// HandleCreate handles comment creation requests
// POST /api/posts/{postID}/comments
//
// Request body: { "content": "...", "authorName": "...", "authorEmail": "...", "parentId": "..." }
// Response: 201 with the stored comment
func (h *CreateCommentHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var input comments.CreateInput
	if !handlers.DecodeJSON(w, r, &input) {
		return
	}

	// Identity comes from the token, never from the body
	input.PostID = chi.URLParam(r, "postID")
	input.CreatedBy = nil
	if userID := middleware.GetUserID(r); userID != "" {
		input.CreatedBy = &userID
	}

	comment, err := h.service.CreateComment(r.Context(), input)
	if err != nil {
		handlers.WriteServiceError(w, err)
		return
	}

	handlers.WriteJSON(w, http.StatusCreated, comment)
}
