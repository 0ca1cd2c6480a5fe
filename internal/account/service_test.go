package account

import (
	"context"
	"errors"
	"testing"
)

const testAddress = "0x1000000000000000000000000000000000000001"

func TestRegisterAndAuthenticate(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo)

	ctx := context.Background()
	account, err := svc.Register(ctx, Credentials{Address: testAddress, PIN: "1234"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if account.Address.Hex() != testAddress {
		t.Fatalf("unexpected address %s", account.Address.Hex())
	}

	authed, err := svc.Authenticate(ctx, Credentials{Address: testAddress, PIN: "1234"})
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if authed.LastLogin == nil {
		t.Fatalf("expected last login to be recorded")
	}

	stored, err := svc.Get(ctx, account.Address)
	if err != nil || stored.LastLogin == nil {
		t.Fatalf("expected stored login time, got %v", err)
	}
}

func TestRegisterRejectsBadInput(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	if _, err := svc.Register(ctx, Credentials{Address: "not-an-address", PIN: "1234"}); !errors.Is(err, ErrInvalidAddress) {
		t.Fatalf("expected invalid address, got %v", err)
	}
	if _, err := svc.Register(ctx, Credentials{Address: "0x0000000000000000000000000000000000000000", PIN: "1234"}); !errors.Is(err, ErrInvalidAddress) {
		t.Fatalf("expected zero address to be rejected, got %v", err)
	}
	if _, err := svc.Register(ctx, Credentials{Address: testAddress, PIN: "12"}); !errors.Is(err, ErrWeakPIN) {
		t.Fatalf("expected weak PIN, got %v", err)
	}

	if _, err := svc.Register(ctx, Credentials{Address: testAddress, PIN: "1234"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Register(ctx, Credentials{Address: testAddress, PIN: "9999"}); !errors.Is(err, ErrAccountExists) {
		t.Fatalf("expected duplicate account, got %v", err)
	}
}

func TestAuthenticateWrongPIN(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	if _, err := svc.Register(ctx, Credentials{Address: testAddress, PIN: "1234"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Authenticate(ctx, Credentials{Address: testAddress, PIN: "4321"}); !errors.Is(err, ErrInvalidPIN) {
		t.Fatalf("expected invalid PIN, got %v", err)
	}
}
