package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/skinclinic/skinclinic/internal/platform/kv"
)

const (
	// PollLimit caps how many notifications one poll returns.
	PollLimit = 20
	// cursorTTL keeps an idle user's poll cursor around for a month.
	cursorTTL = 30 * 24 * time.Hour
	// PushEventType is the websocket event type for live notifications.
	PushEventType = "notification"
)

// Pusher delivers an event to a user's live connections.
type Pusher interface {
	Publish(ctx context.Context, userID, eventType string, payload interface{}) error
}

type Service struct {
	repo      Repository
	cursors   kv.Store
	pusher    Pusher
	templates *TemplateEngine
	now       func() time.Time
	logger    zerolog.Logger
}

// NewService wires the notification inbox. pusher may be nil.
func NewService(repo Repository, cursors kv.Store, pusher Pusher, templates *TemplateEngine, logger zerolog.Logger) *Service {
	if templates == nil {
		templates = NewTemplateEngine()
	}
	return &Service{
		repo:      repo,
		cursors:   cursors,
		pusher:    pusher,
		templates: templates,
		now:       time.Now,
		logger:    logger.With().Str("component", "notification").Logger(),
	}
}

func cursorKey(userID uuid.UUID) string {
	return "notify:last_check:" + userID.String()
}

// Create stores n and pushes it to the recipient's live connections.
func (s *Service) Create(ctx context.Context, n *Notification) error {
	if err := s.repo.Create(ctx, n); err != nil {
		return err
	}
	if s.pusher != nil {
		if err := s.pusher.Publish(ctx, n.UserID.String(), PushEventType, n.Item()); err != nil {
			s.logger.Warn().Err(err).Str("notification_id", n.ID.String()).Msg("live push failed")
		}
	}
	return nil
}

// Notify renders a template for userID and delivers it.
func (s *Service) Notify(ctx context.Context, userID uuid.UUID, templateID string, data map[string]string) (*Notification, error) {
	n, err := s.templates.Render(templateID, data)
	if err != nil {
		return nil, err
	}
	n.UserID = userID
	if err := s.Create(ctx, n); err != nil {
		return nil, err
	}
	s.logger.Debug().Str("user_id", userID.String()).Str("template", templateID).Msg("notification created")
	return n, nil
}

// Poll returns unread notifications created since the caller's previous
// poll, or all unread ones on the first poll, and moves the cursor to now.
func (s *Service) Poll(ctx context.Context, userID uuid.UUID) ([]Item, error) {
	now := s.now().UTC()
	prev, found, err := s.cursors.Swap(ctx, cursorKey(userID), now.Format(time.RFC3339Nano), cursorTTL)
	if err != nil {
		return nil, err
	}

	var since *time.Time
	if found {
		if t, err := time.Parse(time.RFC3339Nano, prev); err == nil {
			since = &t
		} else {
			s.logger.Warn().Str("user_id", userID.String()).Str("cursor", prev).Msg("discarding unreadable poll cursor")
		}
	}

	list, err := s.repo.ListUnread(ctx, userID, since, PollLimit)
	if err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(list))
	for _, n := range list {
		items = append(items, n.Item())
	}
	return items, nil
}

func (s *Service) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	return s.repo.MarkRead(ctx, id, userID)
}

func (s *Service) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Notification, int, error) {
	return s.repo.ListByUser(ctx, userID, limit, offset)
}
