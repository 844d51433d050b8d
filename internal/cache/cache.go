package cache

import (
	"context"

	"github.com/anle/alumnet/internal/model"
)

// Cache is the local read-through mirror of remote records. It exists to
// serve fallback data when the backend is unreachable and is wiped in full
// on logout. It is never authoritative.
type Cache interface {
	UpsertProfiles(ctx context.Context, profiles []model.Profile) error
	GetProfiles(ctx context.Context) ([]model.Profile, error)
	GetProfileByID(ctx context.Context, id string) (*model.Profile, error)

	UpsertMessages(ctx context.Context, msgs []model.Message) error
	GetMessages(ctx context.Context, conversationID string) ([]model.Message, error)

	UpsertNotifications(ctx context.Context, notes []model.Notification) error
	GetUnreadNotifications(ctx context.Context, userID string) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error

	UpsertAnnouncements(ctx context.Context, posts []model.Announcement) error
	GetAnnouncements(ctx context.Context) ([]model.Announcement, error)

	// Wipe enumerates every data table and deletes all rows. Schema stays.
	Wipe(ctx context.Context) error

	Close() error
}
