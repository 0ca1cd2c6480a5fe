package cmd

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientSendsSessionHeaders(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"address": "0xabc", "balance": 7})
	}))
	defer srv.Close()

	var b balanceView
	if err := NewClient(srv.URL, "tok").Do(http.MethodPost, "/x", map[string]int{"amount": 7}, &b); err != nil {
		t.Fatalf("do: %v", err)
	}
	if got.Header.Get("Authorization") != "Bearer tok" {
		t.Fatalf("missing bearer token, got %q", got.Header.Get("Authorization"))
	}
	if got.Header.Get("Idempotency-Key") == "" {
		t.Fatal("expected an idempotency key on POST")
	}
	if b.Balance != 7 {
		t.Fatalf("expected decoded balance 7, got %d", b.Balance)
	}
}

func TestClientSurfacesRevertReason(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Idempotency-Key") != "" {
			t.Errorf("GET must not carry an idempotency key")
		}
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"error":"Guardian already registered"}`))
	}))
	defer srv.Close()

	err := NewClient(srv.URL, "").Do(http.MethodGet, "/x", nil, nil)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusConflict || apiErr.Message != "Guardian already registered" {
		t.Fatalf("unexpected error: %+v", apiErr)
	}
}
