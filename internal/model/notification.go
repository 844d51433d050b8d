package model

import "time"

// NotificationType identifies what kind of activity produced a notification.
type NotificationType string

const (
	NotificationConnectionRequest  NotificationType = "connection_request"
	NotificationConnectionAccepted NotificationType = "connection_accepted"
	NotificationNewMessage         NotificationType = "new_message"
	NotificationAnnouncement       NotificationType = "announcement"
	NotificationSystem             NotificationType = "system"
)

// Notification is a system-generated event record surfaced to one member,
// delivered both via direct query and via the real-time feed.
type Notification struct {
	// ID is the unique identifier for this notification.
	ID string `json:"id" db:"id"`

	// UserID is the member the notification targets.
	UserID string `json:"user_id" db:"user_id"`

	// Type identifies the originating activity (use Notification* constants).
	Type NotificationType `json:"type" db:"type"`

	// Message is the human-readable notification text.
	Message string `json:"message" db:"message"`

	// Read indicates whether the member has seen this notification.
	Read bool `json:"read" db:"read"`

	// CreatedAt is when this notification was generated.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
