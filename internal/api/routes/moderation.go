package routes

import (
	"github.com/go-chi/chi/v5"

	"Inkwell/internal/api/handlers/moderation"
	"Inkwell/internal/api/middleware"
	moderationCore "Inkwell/internal/core/moderation"
)

// RegisterModerationRoutes registers flagging and moderator review endpoints
func RegisterModerationRoutes(r chi.Router, service moderationCore.Service, authMiddleware *middleware.JWTAuthMiddleware) {
	flagHandler := moderation.NewFlagHandler(service)
	moderateHandler := moderation.NewModerateHandler(service)

	// Any authenticated user can flag or withdraw their own flag
	r.With(authMiddleware.RequireAuth).Post("/api/comments/{commentID}/flags", flagHandler.HandleFlag)
	r.With(authMiddleware.RequireAuth).Delete("/api/comments/{commentID}/flags", flagHandler.HandleUnflag)

	// Moderator only
	r.With(authMiddleware.RequireModerator).Get("/api/comments/{commentID}/flags", flagHandler.HandleGetFlags)
	r.With(authMiddleware.RequireModerator).Post("/api/comments/{commentID}/moderate", moderateHandler.HandleModerate)
	r.With(authMiddleware.RequireModerator).Get("/api/moderation/queue", moderateHandler.HandleQueue)
}
