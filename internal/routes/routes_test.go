package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/social-recovery/recovery_wallet/internal/config"
	"github.com/social-recovery/recovery_wallet/internal/logging"
	"github.com/social-recovery/recovery_wallet/internal/metrics"
	"github.com/social-recovery/recovery_wallet/internal/notification"
	"github.com/social-recovery/recovery_wallet/internal/payments"
)

var (
	owner     = common.HexToAddress("0x1000000000000000000000000000000000000001")
	guardian  = common.HexToAddress("0x2000000000000000000000000000000000000002")
	recoverer = common.HexToAddress("0x3000000000000000000000000000000000000003")
	outsider  = common.HexToAddress("0x4000000000000000000000000000000000000004")
	target    = common.HexToAddress("0x5000000000000000000000000000000000000005")
	picky     = common.HexToAddress("0x6000000000000000000000000000000000000006")
)

type harness struct {
	t        *testing.T
	app      *fiber.App
	tokens   map[common.Address]string
	notified *notification.Recorder
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		cache.Close()
		mr.Close()
	})

	cfg := config.Config{
		AppName:         "RecoveryWalletTest",
		AppEnv:          "test",
		JWTSecret:       "test-access",
		RefreshSecret:   "test-refresh",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
		LoginRateLimit:  100,
		IdempotencyTTL:  time.Minute,
	}
	recorder := &notification.Recorder{}
	app := fiber.New()
	err = Setup(app, Deps{
		Cfg:      cfg,
		Cache:    cache,
		Logger:   logging.Discard(),
		Metrics:  metrics.New(),
		Notifier: recorder,
		Receivers: map[common.Address]payments.Receiver{
			picky: payments.ReceiverFunc(func(_ context.Context, _ common.Address, data []byte, _ int64) error {
				if data[0] != 0x01 {
					return errors.New("unsupported selector")
				}
				return nil
			}),
		},
	})
	if err != nil {
		t.Fatalf("setup routes: %v", err)
	}
	return &harness{t: t, app: app, tokens: map[common.Address]string{}, notified: recorder}
}

func (h *harness) do(method, path string, as common.Address, body any) (int, map[string]any, string) {
	h.t.Helper()
	return h.doWithKey(method, path, as, body, uuid.NewString())
}

func (h *harness) doWithKey(method, path string, as common.Address, body any, key string) (int, map[string]any, string) {
	h.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			h.t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	req.Header.Set("Idempotency-Key", key)
	if token := h.tokens[as]; token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := h.app.Test(req, -1)
	if err != nil {
		h.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		h.t.Fatalf("read body: %v", err)
	}
	var decoded map[string]any
	_ = json.Unmarshal(raw, &decoded)
	return resp.StatusCode, decoded, string(raw)
}

func (h *harness) signup(addr common.Address) {
	h.t.Helper()
	creds := map[string]string{"address": addr.Hex(), "pin": "4821"}
	if status, _, raw := h.do(fiber.MethodPost, "/api/v1/accounts/register", addr, creds); status != fiber.StatusCreated {
		h.t.Fatalf("register %s: %d %s", addr.Hex(), status, raw)
	}
	status, body, raw := h.do(fiber.MethodPost, "/api/v1/auth/login", addr, creds)
	if status != fiber.StatusOK {
		h.t.Fatalf("login %s: %d %s", addr.Hex(), status, raw)
	}
	h.tokens[addr] = body["access_token"].(string)
}

func (h *harness) expect(status int, reason string, method, path string, as common.Address, body any) map[string]any {
	h.t.Helper()
	got, decoded, raw := h.do(method, path, as, body)
	if got != status {
		h.t.Fatalf("%s %s as %s: expected %d got %d (%s)", method, path, as.Hex(), status, got, raw)
	}
	if reason != "" && raw != reason {
		h.t.Fatalf("%s %s: expected reason %q got %q", method, path, reason, raw)
	}
	return decoded
}

func TestRecoveryScenarioOverHTTP(t *testing.T) {
	h := newHarness(t)
	for _, a := range []common.Address{owner, guardian, recoverer, outsider} {
		h.signup(a)
	}

	h.expect(fiber.StatusCreated, "", fiber.MethodPost, "/api/v1/accounts/"+owner.Hex()+"/fund", owner, map[string]any{"amount": 1_000})

	deployed := h.expect(fiber.StatusCreated, "", fiber.MethodPost, "/api/v1/wallets", owner, nil)
	w := crypto.CreateAddress(owner, 0)
	if deployed["address"] != w.Hex() {
		t.Fatalf("expected wallet %s got %v", w.Hex(), deployed["address"])
	}
	base := "/api/v1/wallets/" + w.Hex()

	h.expect(fiber.StatusCreated, "", fiber.MethodPost, base+"/deposit", owner, map[string]any{"amount": 500})

	// Forwarding.
	h.expect(fiber.StatusBadRequest, "Empty data", fiber.MethodPost, base+"/execute", owner, map[string]any{"target": target.Hex(), "data": "0x", "value": 10})
	h.expect(fiber.StatusForbidden, "Unauthorized", fiber.MethodPost, base+"/execute", outsider, map[string]any{"target": target.Hex(), "data": "0x01", "value": 10})
	res := h.expect(fiber.StatusOK, "", fiber.MethodPost, base+"/execute", owner, map[string]any{"target": target.Hex(), "data": "0xdeadbeef", "value": 100})
	if res["wallet_balance"].(float64) != 400 || res["target_balance"].(float64) != 100 {
		t.Fatalf("unexpected balances after execute: %v", res)
	}
	h.expect(fiber.StatusUnprocessableEntity, "Call failed", fiber.MethodPost, base+"/execute", owner, map[string]any{"target": picky.Hex(), "data": "0x02", "value": 50})
	bal := h.expect(fiber.StatusOK, "", fiber.MethodGet, base+"/balance", owner, nil)
	if bal["balance"].(float64) != 400 {
		t.Fatalf("rejected call must not move value, balance %v", bal["balance"])
	}

	// Guardians.
	h.expect(fiber.StatusForbidden, "Unauthorized", fiber.MethodPost, base+"/guardians", outsider, map[string]any{"account": guardian.Hex()})
	h.expect(fiber.StatusCreated, "", fiber.MethodPost, base+"/guardians", owner, map[string]any{"account": guardian.Hex()})
	h.expect(fiber.StatusConflict, "Guardian already registered", fiber.MethodPost, base+"/guardians", owner, map[string]any{"account": guardian.Hex()})
	if last := h.notified.Last(); last.Kind != notification.KindGuardianRegistered || last.Destination != guardian.Hex() {
		t.Fatalf("expected guardian notification, got %+v", last)
	}

	// Recovery.
	h.expect(fiber.StatusForbidden, "Unauthorized", fiber.MethodPost, base+"/recovery/nominate", outsider, map[string]any{"candidate": recoverer.Hex()})
	h.expect(fiber.StatusConflict, "Already owner", fiber.MethodPost, base+"/recovery/nominate", guardian, map[string]any{"candidate": owner.Hex()})
	pending := h.expect(fiber.StatusOK, "", fiber.MethodPost, base+"/recovery/nominate", guardian, map[string]any{"candidate": recoverer.Hex()})
	if pending["pending_recoverer"] != recoverer.Hex() || pending["phase"] != "recovery_pending" {
		t.Fatalf("expected pending recovery, got %v", pending)
	}
	h.expect(fiber.StatusForbidden, "Not pending recoverer", fiber.MethodPost, base+"/recovery/claim", outsider, nil)
	claimed := h.expect(fiber.StatusOK, "", fiber.MethodPost, base+"/recovery/claim", recoverer, nil)
	if claimed["owner"] != recoverer.Hex() || claimed["pending_recoverer"] != nil {
		t.Fatalf("expected recoverer to own the wallet, got %v", claimed)
	}

	// Old owner is locked out and the new owner takes over.
	h.expect(fiber.StatusForbidden, "Unauthorized", fiber.MethodPost, base+"/execute", owner, map[string]any{"target": target.Hex(), "data": "0x01", "value": 1})
	h.expect(fiber.StatusOK, "", fiber.MethodPost, base+"/execute", recoverer, map[string]any{"target": target.Hex(), "data": "0x01", "value": 1})
	h.expect(fiber.StatusOK, "", fiber.MethodDelete, base+"/guardians/"+guardian.Hex(), recoverer, nil)
	h.expect(fiber.StatusConflict, "Guardian not registered", fiber.MethodDelete, base+"/guardians/"+guardian.Hex(), recoverer, nil)
	h.expect(fiber.StatusConflict, "No pending recovery", fiber.MethodDelete, base+"/recovery", recoverer, nil)

	status, _, metricsBody := h.do(fiber.MethodGet, "/metrics", owner, nil)
	if status != fiber.StatusOK || !strings.Contains(metricsBody, `recovery_wallet_operations_total{operation="claim_ownership",result="ok"} 1`) {
		t.Fatalf("metrics missing claim counter: %d\n%s", status, metricsBody)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	h := newHarness(t)
	h.expect(fiber.StatusUnauthorized, "", fiber.MethodPost, "/api/v1/wallets", outsider, nil)
	h.expect(fiber.StatusUnauthorized, "", fiber.MethodGet, "/api/v1/me", outsider, nil)
}

func TestExecuteReplayReturnsOriginalOutcome(t *testing.T) {
	h := newHarness(t)
	h.signup(owner)
	h.expect(fiber.StatusCreated, "", fiber.MethodPost, "/api/v1/accounts/"+owner.Hex()+"/fund", owner, map[string]any{"amount": 300})
	h.expect(fiber.StatusCreated, "", fiber.MethodPost, "/api/v1/wallets", owner, nil)
	base := "/api/v1/wallets/" + crypto.CreateAddress(owner, 0).Hex()
	h.expect(fiber.StatusCreated, "", fiber.MethodPost, base+"/deposit", owner, map[string]any{"amount": 300})

	call := map[string]any{"target": target.Hex(), "data": "0x01", "value": 100}
	first, _, raw1 := h.doWithKey(fiber.MethodPost, base+"/execute", owner, call, "replay-1")
	second, _, raw2 := h.doWithKey(fiber.MethodPost, base+"/execute", owner, call, "replay-1")
	if first != fiber.StatusOK || second != fiber.StatusOK || raw1 != raw2 {
		t.Fatalf("replay diverged: %d %s / %d %s", first, raw1, second, raw2)
	}

	bal := h.expect(fiber.StatusOK, "", fiber.MethodGet, base+"/balance", owner, nil)
	if bal["balance"].(float64) != 200 {
		t.Fatalf("replayed execute moved value twice, balance %v", bal["balance"])
	}
}

func TestLogoutRevokesAccessToken(t *testing.T) {
	h := newHarness(t)
	h.signup(owner)
	h.expect(fiber.StatusOK, "", fiber.MethodGet, "/api/v1/me", owner, nil)
	h.expect(fiber.StatusOK, "", fiber.MethodPost, "/api/v1/auth/logout", owner, nil)
	h.expect(fiber.StatusUnauthorized, "", fiber.MethodGet, "/api/v1/me", owner, nil)
}
