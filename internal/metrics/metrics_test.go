package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderCountsOperations(t *testing.T) {
	r := New()
	r.Observe("execute", "ok", 5*time.Millisecond)
	r.Observe("execute", "ok", time.Millisecond)
	r.Observe("execute", "empty_data", time.Millisecond)
	r.AddForwardedValue(5_000)
	r.AddForwardedValue(-1)

	if got := testutil.ToFloat64(r.operations.WithLabelValues("execute", "ok")); got != 2 {
		t.Fatalf("expected 2 ok executes, got %v", got)
	}
	if got := testutil.ToFloat64(r.operations.WithLabelValues("execute", "empty_data")); got != 1 {
		t.Fatalf("expected 1 failed execute, got %v", got)
	}
	if got := testutil.ToFloat64(r.forwarded); got != 5_000 {
		t.Fatalf("expected forwarded value 5000, got %v", got)
	}
}

func TestNilRecorderIsNoop(t *testing.T) {
	var r *Recorder
	r.Observe("execute", "ok", time.Second)
	r.AddForwardedValue(10)
}

func TestHandlerExposesRegistry(t *testing.T) {
	r := New()
	r.Observe("register_guardian", "ok", time.Millisecond)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `recovery_wallet_operations_total{operation="register_guardian",result="ok"} 1`) {
		t.Fatalf("metric not exposed:\n%s", body)
	}
}
