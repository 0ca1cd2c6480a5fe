package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/social-recovery/recovery_wallet/internal/wallet"
)

const (
	idempotencyKeyHeader    = "Idempotency-Key"
	idempotencyReplayHeader = "Idempotent-Replayed"
	idempotencyPrefix       = "idempotency:v2:"
	cacheOpTimeout          = 2 * time.Second
)

// idempotencyRecord is what a key holds in Redis. A record without a status is
// a reservation for a request still running.
type idempotencyRecord struct {
	Fingerprint string            `json:"fingerprint"`
	Status      int               `json:"status,omitempty"`
	Body        string            `json:"body,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
}

func (r idempotencyRecord) pending() bool { return r.Status == 0 }

// Idempotency replays the stored response of an unsafe request carrying a
// known Idempotency-Key. Keys are scoped to the authenticated caller and bound
// to the method, path and body they were first used with, so a replayed
// execute returns its original outcome instead of moving value twice.
// Rejected requests are not stored and may be retried with the same key.
func Idempotency(cache *redis.Client, ttl time.Duration, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		switch strings.ToUpper(c.Method()) {
		case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions:
			return c.Next()
		}

		key := c.Get(idempotencyKeyHeader)
		if key == "" {
			return fiber.NewError(fiber.StatusBadRequest, "missing Idempotency-Key header")
		}

		caller, _ := c.Locals(wallet.CallerLocal).(string)
		cacheKey := idempotencyPrefix + strings.ToLower(caller) + ":" + key
		fingerprint := requestFingerprint(c)
		log := logger.With(slog.String("key", key), slog.String("caller", caller))

		ctx, cancel := context.WithTimeout(context.Background(), cacheOpTimeout)
		defer cancel()

		raw, err := cache.Get(ctx, cacheKey).Bytes()
		switch {
		case err == nil:
			var rec idempotencyRecord
			if err := json.Unmarshal(raw, &rec); err != nil {
				log.Warn("failed to decode stored idempotent response", slog.Any("error", err))
				return fiber.NewError(fiber.StatusConflict, "duplicate request")
			}
			if rec.Fingerprint != fingerprint {
				return fiber.NewError(fiber.StatusUnprocessableEntity, "Idempotency-Key reused for a different request")
			}
			if rec.pending() {
				return fiber.NewError(fiber.StatusConflict, "duplicate request currently processing")
			}
			return replay(c, rec)
		case !errors.Is(err, redis.Nil):
			log.Error("idempotency lookup failed", slog.Any("error", err))
			return fiber.NewError(fiber.StatusInternalServerError, "idempotency store failure")
		}

		reservation, _ := json.Marshal(idempotencyRecord{Fingerprint: fingerprint})
		reserved, err := cache.SetNX(ctx, cacheKey, reservation, ttl).Result()
		if err != nil {
			log.Error("idempotency reservation failed", slog.Any("error", err))
			return fiber.NewError(fiber.StatusInternalServerError, "idempotency reservation failure")
		}
		if !reserved {
			return fiber.NewError(fiber.StatusConflict, "duplicate request currently processing")
		}

		if err := c.Next(); err != nil {
			release(cache, cacheKey)
			return err
		}
		if c.Response().StatusCode() >= fiber.StatusInternalServerError {
			release(cache, cacheKey)
			return nil
		}

		rec := idempotencyRecord{
			Fingerprint: fingerprint,
			Status:      c.Response().StatusCode(),
			Body:        string(c.Response().Body()),
			Headers:     map[string]string{},
		}
		c.Response().Header.VisitAll(func(k, v []byte) {
			rec.Headers[string(k)] = string(v)
		})

		payload, err := json.Marshal(rec)
		if err != nil {
			log.Error("failed to encode idempotent response", slog.Any("error", err))
			release(cache, cacheKey)
			return fiber.NewError(fiber.StatusInternalServerError, "idempotency persistence failure")
		}

		persistCtx, persistCancel := context.WithTimeout(context.Background(), cacheOpTimeout)
		defer persistCancel()
		if err := cache.Set(persistCtx, cacheKey, payload, ttl).Err(); err != nil {
			// The request already ran; keep its response and drop the reservation.
			log.Error("failed to persist idempotent response", slog.Any("error", err))
			release(cache, cacheKey)
		}
		return nil
	}
}

func replay(c *fiber.Ctx, rec idempotencyRecord) error {
	for header, value := range rec.Headers {
		if strings.EqualFold(header, fiber.HeaderContentLength) {
			continue
		}
		c.Set(header, value)
	}
	c.Set(idempotencyReplayHeader, "true")
	return c.Status(rec.Status).SendString(rec.Body)
}

// release drops a reservation, best effort.
func release(cache *redis.Client, cacheKey string) {
	ctx, cancel := context.WithTimeout(context.Background(), cacheOpTimeout)
	defer cancel()
	cache.Del(ctx, cacheKey)
}

func requestFingerprint(c *fiber.Ctx) string {
	return crypto.Keccak256Hash([]byte(c.Method()), []byte(c.Path()), c.Body()).Hex()
}
