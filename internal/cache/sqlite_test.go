package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/anle/alumnet/internal/cache"
	"github.com/anle/alumnet/internal/cache/cachetest"
	"github.com/anle/alumnet/internal/model"
)

func TestUpsertAndGetProfiles(t *testing.T) {
	c := cachetest.New(t)
	ctx := context.Background()

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	profiles := []model.Profile{
		{ID: "u1", FullName: "Binh Tran", Role: model.RoleAlumni, GradYear: 2019, CreatedAt: now, UpdatedAt: now},
		{ID: "u2", FullName: "An Pham", Role: model.RoleStudent, GradYear: 2027, CreatedAt: now, UpdatedAt: now},
	}
	require.NoError(t, c.UpsertProfiles(ctx, profiles))

	got, err := c.GetProfiles(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	// Ordered by full name.
	require.Equal(t, "An Pham", got[0].FullName)
	require.Equal(t, "Binh Tran", got[1].FullName)
	require.Equal(t, model.RoleAlumni, got[1].Role)
	require.Equal(t, 2019, got[1].GradYear)
	require.True(t, got[1].CreatedAt.Equal(now))
}

func TestUpsertProfilesReplacesExisting(t *testing.T) {
	c := cachetest.New(t)
	ctx := context.Background()

	now := time.Now().UTC()
	p := model.Profile{ID: "u1", FullName: "Binh Tran", Role: model.RoleStudent, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, c.UpsertProfiles(ctx, []model.Profile{p}))

	p.Headline = "SRE at Example Corp"
	p.Role = model.RoleAlumni
	require.NoError(t, c.UpsertProfiles(ctx, []model.Profile{p}))

	got, err := c.GetProfileByID(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "SRE at Example Corp", got.Headline)
	require.Equal(t, model.RoleAlumni, got.Role)

	all, err := c.GetProfiles(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestGetProfileByIDNotFound(t *testing.T) {
	c := cachetest.New(t)

	_, err := c.GetProfileByID(context.Background(), "missing")
	require.ErrorIs(t, err, cache.ErrNotFound)
}

func TestMessagesOrderedOldestFirst(t *testing.T) {
	c := cachetest.New(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	msgs := []model.Message{
		{ID: "m2", ConversationID: "c1", SenderID: "u1", Content: "second", CreatedAt: base.Add(time.Minute)},
		{ID: "m1", ConversationID: "c1", SenderID: "u2", Content: "first", CreatedAt: base},
		{ID: "m3", ConversationID: "c2", SenderID: "u1", Content: "other conversation", CreatedAt: base},
	}
	require.NoError(t, c.UpsertMessages(ctx, msgs))

	got, err := c.GetMessages(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "first", got[0].Content)
	require.Equal(t, "second", got[1].Content)
}

func TestNotificationsUnreadAndMarkRead(t *testing.T) {
	c := cachetest.New(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	notes := []model.Notification{
		{ID: "n1", UserID: "me", Type: model.NotificationNewMessage, Message: "older", CreatedAt: base},
		{ID: "n2", UserID: "me", Type: model.NotificationSystem, Message: "newer", CreatedAt: base.Add(time.Hour)},
		{ID: "n3", UserID: "me", Type: model.NotificationSystem, Message: "seen", Read: true, CreatedAt: base},
		{ID: "n4", UserID: "someone-else", Type: model.NotificationSystem, Message: "not mine", CreatedAt: base},
	}
	require.NoError(t, c.UpsertNotifications(ctx, notes))

	unread, err := c.GetUnreadNotifications(ctx, "me")
	require.NoError(t, err)
	require.Len(t, unread, 2)
	require.Equal(t, "newer", unread[0].Message)
	require.Equal(t, "older", unread[1].Message)

	require.NoError(t, c.MarkNotificationRead(ctx, "n2"))

	unread, err = c.GetUnreadNotifications(ctx, "me")
	require.NoError(t, err)
	require.Len(t, unread, 1)
	require.Equal(t, "n1", unread[0].ID)
}

func TestAnnouncementsPinnedFirst(t *testing.T) {
	c := cachetest.New(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	posts := []model.Announcement{
		{ID: "a1", AuthorID: "admin", Title: "newest", CreatedAt: base.Add(2 * time.Hour)},
		{ID: "a2", AuthorID: "admin", Title: "pinned", Pinned: true, CreatedAt: base},
		{ID: "a3", AuthorID: "admin", Title: "oldest", CreatedAt: base.Add(time.Hour)},
	}
	require.NoError(t, c.UpsertAnnouncements(ctx, posts))

	got, err := c.GetAnnouncements(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, "pinned", got[0].Title)
	require.True(t, got[0].Pinned)
	require.Equal(t, "newest", got[1].Title)
	require.Equal(t, "oldest", got[2].Title)
}

func TestWipeClearsEveryTableKeepsSchema(t *testing.T) {
	c := cachetest.New(t)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, c.UpsertProfiles(ctx, []model.Profile{
		{ID: "u1", FullName: "Binh Tran", Role: model.RoleAlumni, CreatedAt: now, UpdatedAt: now},
	}))
	require.NoError(t, c.UpsertMessages(ctx, []model.Message{
		{ID: "m1", ConversationID: "c1", SenderID: "u1", Content: "hi", CreatedAt: now},
	}))
	require.NoError(t, c.UpsertNotifications(ctx, []model.Notification{
		{ID: "n1", UserID: "u1", Type: model.NotificationSystem, Message: "hello", CreatedAt: now},
	}))
	require.NoError(t, c.UpsertAnnouncements(ctx, []model.Announcement{
		{ID: "a1", AuthorID: "u1", Title: "post", CreatedAt: now},
	}))

	require.NoError(t, c.Wipe(ctx))

	profiles, err := c.GetProfiles(ctx)
	require.NoError(t, err)
	require.Empty(t, profiles)

	msgs, err := c.GetMessages(ctx, "c1")
	require.NoError(t, err)
	require.Empty(t, msgs)

	notes, err := c.GetUnreadNotifications(ctx, "u1")
	require.NoError(t, err)
	require.Empty(t, notes)

	posts, err := c.GetAnnouncements(ctx)
	require.NoError(t, err)
	require.Empty(t, posts)

	// Schema survives: writes after a wipe still work.
	require.NoError(t, c.UpsertProfiles(ctx, []model.Profile{
		{ID: "u2", FullName: "An Pham", Role: model.RoleStudent, CreatedAt: now, UpdatedAt: now},
	}))
	profiles, err = c.GetProfiles(ctx)
	require.NoError(t, err)
	require.Len(t, profiles, 1)
}
