package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/social-recovery/recovery_wallet/internal/funding"
)

// RegisterFundingRoutes wires the development faucet.
func RegisterFundingRoutes(r fiber.Router, h *funding.Handler) {
	r.Post("/accounts/:address/fund", h.Fund)
}
