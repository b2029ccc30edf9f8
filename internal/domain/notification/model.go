package notification

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("notification not found")

// Kind is the severity of a notification.
type Kind string

const (
	KindInfo    Kind = "info"
	KindSuccess Kind = "success"
	KindWarning Kind = "warning"
	KindDanger  Kind = "danger"
)

// Notification is an in-app message for one user. Ordering is newest first.
type Notification struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      Kind      `json:"type"`
	Icon      string    `json:"icon"`
	TypeClass string    `json:"type_class"`
	URL       string    `json:"url"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// Item is the compact form returned by polling and pushed over websocket.
type Item struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Icon      string    `json:"icon"`
	TypeClass string    `json:"type_class"`
	URL       string    `json:"url"`
}

func (n *Notification) Item() Item {
	return Item{
		ID:        n.ID,
		Title:     n.Title,
		Message:   n.Message,
		Icon:      n.Icon,
		TypeClass: n.TypeClass,
		URL:       n.URL,
	}
}

// PollResponse is the body of GET /notifications/new.
type PollResponse struct {
	Status           string `json:"status"`
	NewNotifications []Item `json:"new_notifications"`
}

type MarkReadRequest struct {
	NotificationID string `json:"notification_id" form:"notification_id" validate:"required,uuid"`
}
