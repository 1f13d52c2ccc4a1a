package moderation

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"Inkwell/internal/api/handlers"
	"Inkwell/internal/core/moderation"
)

// ModerateInput is the body of POST /api/comments/{commentID}/moderate
// An unknown or missing action is reported by the service as INVALID_ACTION.
type ModerateInput struct {
	ModerationNotes *string `json:"moderationNotes,omitempty"`
	Action          string  `json:"action"`
}

// ModerateHandler serves moderator actions and the review queue
type ModerateHandler struct {
	service moderation.Service
}

// NewModerateHandler creates a new moderation handler
func NewModerateHandler(service moderation.Service) *ModerateHandler {
	return &ModerateHandler{service: service}
}

// HandleModerate handles POST /api/comments/{commentID}/moderate
// Request body: { "action": "approve" | "hide" | "delete", "moderationNotes": "..." }
func (h *ModerateHandler) HandleModerate(w http.ResponseWriter, r *http.Request) {
	var input ModerateInput
	if !handlers.DecodeJSON(w, r, &input) {
		return
	}

	comment, err := h.service.Moderate(r.Context(), chi.URLParam(r, "commentID"),
		moderation.Action(strings.TrimSpace(input.Action)), input.ModerationNotes)
	if err != nil {
		handlers.WriteServiceError(w, err)
		return
	}

	handlers.WriteJSON(w, http.StatusOK, comment)
}

// HandleQueue handles GET /api/moderation/queue?status=a,b&min_flags&limit&offset
func (h *ModerateHandler) HandleQueue(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	opts := moderation.QueueOptions{Statuses: handlers.QueryStatuses(query, "status")}

	var err error
	if opts.MinFlags, err = handlers.QueryInt(query, "min_flags"); err != nil {
		handlers.WriteServiceError(w, err)
		return
	}
	if opts.Limit, err = handlers.QueryInt(query, "limit"); err != nil {
		handlers.WriteServiceError(w, err)
		return
	}
	if opts.Offset, err = handlers.QueryInt(query, "offset"); err != nil {
		handlers.WriteServiceError(w, err)
		return
	}

	items, err := h.service.GetQueue(r.Context(), opts)
	if err != nil {
		handlers.WriteServiceError(w, err)
		return
	}

	handlers.WriteJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}
