package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, n *Notification) error
	// MarkRead flags a notification read. It returns ErrNotFound unless the
	// notification belongs to userID.
	MarkRead(ctx context.Context, id, userID uuid.UUID) error
	// ListUnread returns unread notifications newest first, restricted to
	// those created after since when since is non-nil.
	ListUnread(ctx context.Context, userID uuid.UUID, since *time.Time, limit int) ([]*Notification, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Notification, int, error)
}
