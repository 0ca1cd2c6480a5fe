package infra

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
)

func TestNewRedisClientPingsServer(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}

	client, err := NewRedisClient(context.Background(), "redis://"+mr.Addr()+"/0")
	if err != nil {
		mr.Close()
		t.Fatalf("new redis client: %v", err)
	}
	defer client.Close()

	mr.Close()
	if _, err := NewRedisClient(context.Background(), "redis://"+mr.Addr()+"/0"); err == nil {
		t.Fatal("expected ping failure against a stopped server")
	}
}

func TestConstructorsRejectEmptyURL(t *testing.T) {
	if _, err := NewPostgresPool(context.Background(), ""); err == nil {
		t.Fatal("expected empty database url to fail")
	}
	if _, err := NewRedisClient(context.Background(), ""); err == nil {
		t.Fatal("expected empty redis url to fail")
	}
}
