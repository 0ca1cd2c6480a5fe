package server

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/social-recovery/recovery_wallet/internal/config"
	"github.com/social-recovery/recovery_wallet/internal/logging"
	"github.com/social-recovery/recovery_wallet/internal/metrics"
)

func devConfig() config.Config {
	return config.Config{AppName: "test", AppEnv: "test", JWTSecret: "a", RefreshSecret: "b"}
}

func TestErrorsRenderAsJSON(t *testing.T) {
	srv, err := New(devConfig(), nil, nil, logging.Discard(), metrics.New())
	if err != nil {
		t.Fatalf("new server: %v", err)
	}

	resp, err := srv.App().Test(httptest.NewRequest(fiber.MethodGet, "/api/v1/wallets", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error"] != "missing bearer token" {
		t.Fatalf("unexpected error body: %v", body)
	}
}

func TestNewRequiresBackendsOutsideDev(t *testing.T) {
	cfg := devConfig()
	cfg.AppEnv = "production"
	if _, err := New(cfg, nil, nil, logging.Discard(), nil); err == nil {
		t.Fatal("expected missing database to be rejected")
	}
}

func TestHealthzReportsDisabledBackends(t *testing.T) {
	srv, err := New(devConfig(), nil, nil, nil, nil)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	resp, err := srv.App().Test(httptest.NewRequest(fiber.MethodGet, "/healthz", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 got %d", resp.StatusCode)
	}
}
