package comments

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"Inkwell/internal/api/handlers"
	"Inkwell/internal/core/comments"
)

// GetCommentsHandler serves the read side of the comment API
type GetCommentsHandler struct {
	service comments.Service
}

// NewGetCommentsHandler creates a new handler for fetching comments
func NewGetCommentsHandler(service comments.Service) *GetCommentsHandler {
	return &GetCommentsHandler{
		service: service,
	}
}

// HandleList handles GET /api/posts/{postID}/comments
// Query: include_deleted, status=a,b, tree, max_depth, limit, offset, sort, direction
func (h *GetCommentsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	opts, err := parseListOptions(r.URL.Query())
	if err != nil {
		handlers.WriteServiceError(w, err)
		return
	}

	result, err := h.service.ListComments(r.Context(), chi.URLParam(r, "postID"), opts)
	if err != nil {
		handlers.WriteServiceError(w, err)
		return
	}

	// a flat page or a page of root threads, never both
	v := viewerOf(r)
	if opts.AsTree {
		handlers.WriteJSON(w, http.StatusOK, map[string]interface{}{"tree": v.redactTree(result.Tree)})
		return
	}
	handlers.WriteJSON(w, http.StatusOK, map[string]interface{}{"comments": v.redactAll(result.Comments)})
}

// HandleGet handles GET /api/comments/{commentID}?include_deleted=true
func (h *GetCommentsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	includeDeleted, err := handlers.QueryBool(r.URL.Query(), "include_deleted")
	if err != nil {
		handlers.WriteServiceError(w, err)
		return
	}

	comment, err := h.service.GetComment(r.Context(), chi.URLParam(r, "commentID"), includeDeleted)
	if err != nil {
		handlers.WriteServiceError(w, err)
		return
	}

	handlers.WriteJSON(w, http.StatusOK, viewerOf(r).redact(comment))
}

// HandleListByUser handles GET /api/users/{userID}/comments
func (h *GetCommentsHandler) HandleListByUser(w http.ResponseWriter, r *http.Request) {
	opts, err := parseListOptions(r.URL.Query())
	if err != nil {
		handlers.WriteServiceError(w, err)
		return
	}

	list, err := h.service.ListUserComments(r.Context(), chi.URLParam(r, "userID"), opts)
	if err != nil {
		handlers.WriteServiceError(w, err)
		return
	}

	v := viewerOf(r)
	out := make([]*comments.UserComment, len(list))
	for i, uc := range list {
		out[i] = &comments.UserComment{Comment: *v.redact(&uc.Comment), PostTitle: uc.PostTitle}
	}

	handlers.WriteJSON(w, http.StatusOK, map[string]interface{}{"comments": out})
}
