// Package kv is a small string key/value store used for per-user cursors and
// token deny-lists. Production uses Redis; tests and single-node dev setups
// use the in-memory implementation.
package kv

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("kv: key not found")

type Store interface {
	// Get returns ErrNotFound when the key is absent or expired.
	Get(ctx context.Context, key string) (string, error)
	// Set stores value. A zero ttl means no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Swap stores value and returns the previous one atomically. found is
	// false when there was no previous value.
	Swap(ctx context.Context, key, value string, ttl time.Duration) (old string, found bool, err error)
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}
