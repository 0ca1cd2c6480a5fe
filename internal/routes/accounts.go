package routes

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v2"

	"github.com/social-recovery/recovery_wallet/internal/account"
	"github.com/social-recovery/recovery_wallet/internal/wallet"
)

// RegisterAccountRoutes exposes the caller's profile and account balances.
func RegisterAccountRoutes(r fiber.Router, accounts *account.Service, wallets *wallet.Handler) {
	r.Get("/me", func(c *fiber.Ctx) error {
		caller, _ := c.Locals(wallet.CallerLocal).(string)
		if !common.IsHexAddress(caller) {
			return fiber.NewError(http.StatusUnauthorized, "unauthorized")
		}
		acct, err := accounts.Get(c.UserContext(), common.HexToAddress(caller))
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "account not found")
		}
		return c.JSON(fiber.Map{
			"address":       acct.Address.Hex(),
			"token_version": acct.TokenVersion,
			"created_at":    acct.CreatedAt,
			"last_login":    acct.LastLogin,
		})
	})
	r.Get("/accounts/:address/balance", wallets.AccountBalance)
}
