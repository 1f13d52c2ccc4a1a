package routes

import (
	"github.com/go-chi/chi/v5"

	"Inkwell/internal/api/handlers/comments"
	"Inkwell/internal/api/middleware"
	commentsCore "Inkwell/internal/core/comments"
)

// RegisterCommentRoutes registers the comment endpoints on the router
// Reads and creation are open (creation records the caller when a token is present);
// edits and deletes require the author or a moderator; status and move are moderator only.
func RegisterCommentRoutes(r chi.Router, service commentsCore.Service, authMiddleware *middleware.JWTAuthMiddleware) {
	// Initialize handlers
	createHandler := comments.NewCreateCommentHandler(service)
	getHandler := comments.NewGetCommentsHandler(service)
	updateHandler := comments.NewUpdateCommentHandler(service)
	deleteHandler := comments.NewDeleteCommentHandler(service)
	adminHandler := comments.NewAdminCommentHandler(service)

	r.With(authMiddleware.OptionalAuth).Post("/api/posts/{postID}/comments", createHandler.HandleCreate)
	r.With(authMiddleware.OptionalAuth).Get("/api/posts/{postID}/comments", getHandler.HandleList)
	r.With(authMiddleware.OptionalAuth).Get("/api/users/{userID}/comments", getHandler.HandleListByUser)

	r.With(authMiddleware.OptionalAuth).Get("/api/comments/{commentID}", getHandler.HandleGet)
	r.With(authMiddleware.RequireAuth).Patch("/api/comments/{commentID}", updateHandler.HandleUpdate)
	r.With(authMiddleware.RequireAuth).Delete("/api/comments/{commentID}", deleteHandler.HandleDelete)

	r.With(authMiddleware.RequireModerator).Put("/api/comments/{commentID}/status", adminHandler.HandleChangeStatus)
	r.With(authMiddleware.RequireModerator).Post("/api/comments/{commentID}/move", adminHandler.HandleMove)
}
