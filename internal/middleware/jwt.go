package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/social-recovery/recovery_wallet/internal/auth"
	"github.com/social-recovery/recovery_wallet/internal/config"
	"github.com/social-recovery/recovery_wallet/internal/wallet"
)

// JWTAuth validates bearer access tokens and stores the caller address in the
// request locals.
func JWTAuth(cfg config.Config, svc *auth.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		tokenStr := strings.TrimSpace(authz[len("Bearer "):])
		claims, err := auth.ParseAndVerifyHS256(tokenStr, []byte(cfg.JWTSecret))
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "invalid token")
		}
		acct, err := svc.Verify(c.UserContext(), claims)
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "token invalidated")
		}

		c.Locals(wallet.CallerLocal, acct.Address.Hex())
		c.Locals("token_version", acct.TokenVersion)
		return c.Next()
	}
}
