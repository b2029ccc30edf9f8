package auth

import (
	"context"
	"errors"
	"time"

	"github.com/skinclinic/skinclinic/internal/platform/kv"
)

const revokedPrefix = "auth:revoked:"

// RevocationList records logged-out token ids until they would have expired
// anyway. Entries live in the shared kv store so every instance sees them.
type RevocationList struct {
	store kv.Store
	now   func() time.Time
}

func NewRevocationList(store kv.Store) *RevocationList {
	return &RevocationList{store: store, now: time.Now}
}

func (r *RevocationList) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(r.now())
	if ttl <= 0 {
		return nil
	}
	return r.store.Set(ctx, revokedPrefix+jti, "1", ttl)
}

func (r *RevocationList) IsRevoked(ctx context.Context, jti string) (bool, error) {
	_, err := r.store.Get(ctx, revokedPrefix+jti)
	if errors.Is(err, kv.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
