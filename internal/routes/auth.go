package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/social-recovery/recovery_wallet/internal/auth"
)

// RegisterAuthRoutes wires registration and session endpoints. Logout runs
// behind requireAuth since it revokes the caller's own tokens.
func RegisterAuthRoutes(r fiber.Router, h *auth.Handler, rateLimiter, requireAuth fiber.Handler) {
	r.Post("/accounts/register", h.Register)

	group := r.Group("/auth")
	if rateLimiter != nil {
		group.Post("/login", rateLimiter, h.Login)
	} else {
		group.Post("/login", h.Login)
	}
	group.Post("/refresh", h.Refresh)
	group.Post("/logout", requireAuth, h.Logout)
}
