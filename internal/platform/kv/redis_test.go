package kv

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
)

func newTestRedisStore(t *testing.T) Store {
	t.Helper()
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	client, err := NewRedisClient(context.Background(), url)
	if err != nil {
		t.Fatalf("connect redis: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client)
}

func TestRedisStore_SwapAndGet(t *testing.T) {
	ctx := context.Background()
	s := newTestRedisStore(t)
	key := "test:" + uuid.NewString()
	defer s.Delete(ctx, key)

	if _, err := s.Get(ctx, key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, found, err := s.Swap(ctx, key, "a", time.Minute); err != nil || found {
		t.Fatalf("first swap found=%v err=%v", found, err)
	}
	old, found, err := s.Swap(ctx, key, "b", time.Minute)
	if err != nil || !found || old != "a" {
		t.Fatalf("second swap old=%q found=%v err=%v", old, found, err)
	}
	if v, err := s.Get(ctx, key); err != nil || v != "b" {
		t.Fatalf("expected b, got %q (%v)", v, err)
	}
}
