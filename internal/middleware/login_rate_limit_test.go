package middleware

import (
	"net/http/httptest"
	"strings"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

func TestLoginRateLimitBlocksAfterLimit(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()

	app := fiber.New()
	app.Post("/login", LoginRateLimit(cache, 2), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	body := `{"address":"0x1000000000000000000000000000000000000001"}`
	var last int
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(fiber.MethodPost, "/login", strings.NewReader(body))
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		last = resp.StatusCode
	}
	if last != fiber.StatusTooManyRequests {
		t.Fatalf("expected third attempt to be limited, got %d", last)
	}
	if ttl := mr.TTL("rl:login:0x1000000000000000000000000000000000000001"); ttl <= 0 {
		t.Fatalf("expected limiter key to expire, ttl=%s", ttl)
	}
}

func TestRequestIDReplacesInvalidHeader(t *testing.T) {
	app := fiber.New()
	app.Use(RequestID())
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(RequestIDFrom(c))
	})

	req := httptest.NewRequest(fiber.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "not a uuid")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	got := resp.Header.Get(RequestIDHeader)
	if got == "" || got == "not a uuid" {
		t.Fatalf("expected generated request id, got %q", got)
	}
}
