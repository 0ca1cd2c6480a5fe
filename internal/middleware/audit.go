package middleware

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/social-recovery/recovery_wallet/internal/wallet"
)

// Audit logs one line per protected request with the caller, the wallet it
// targets and the outcome. Mount it after JWTAuth so the caller is known.
// Wallet rejections log at info level since they are ordinary outcomes.
func Audit(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}

		attrs := []any{
			slog.String("method", c.Method()),
			slog.String("route", c.Route().Path),
			slog.Int("status", status),
			slog.Duration("duration", time.Since(start)),
			slog.String("request_id", RequestIDFrom(c)),
		}
		if caller, _ := c.Locals(wallet.CallerLocal).(string); caller != "" {
			attrs = append(attrs, slog.String("caller", caller))
		}
		if addr := c.Params("address"); addr != "" {
			attrs = append(attrs, slog.String("wallet", addr))
		}
		if key := c.Get(idempotencyKeyHeader); key != "" {
			attrs = append(attrs, slog.String("idempotency_key", key))
		}

		switch {
		case err == nil:
			logger.Info("request completed", attrs...)
		case status >= fiber.StatusInternalServerError:
			logger.Error("request failed", append(attrs, slog.Any("error", err))...)
		default:
			logger.Info("request rejected", append(attrs, slog.String("reason", err.Error()))...)
		}
		return err
	}
}
