package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/social-recovery/recovery_wallet/internal/wallet"
)

// RegisterWalletRoutes wires wallet lifecycle, forwarding and recovery endpoints.
func RegisterWalletRoutes(r fiber.Router, h *wallet.Handler) {
	r.Get("/wallets", h.List)
	r.Post("/wallets", h.Deploy)
	r.Get("/wallets/:address", h.Get)
	r.Get("/wallets/:address/balance", h.Balance)
	r.Post("/wallets/:address/deposit", h.Deposit)
	r.Post("/wallets/:address/execute", h.Execute)

	r.Post("/wallets/:address/guardians", h.RegisterGuardian)
	r.Delete("/wallets/:address/guardians/:account", h.DeregisterGuardian)

	r.Post("/wallets/:address/recovery/nominate", h.Nominate)
	r.Post("/wallets/:address/recovery/claim", h.Claim)
	r.Delete("/wallets/:address/recovery", h.Cancel)
}
