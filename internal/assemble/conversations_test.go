package assemble

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anle/alumnet/internal/backend"
	"github.com/anle/alumnet/internal/model"
)

func profileRow(id, name string) map[string]any {
	return map[string]any{
		"id": id, "full_name": name, "role": "alumni",
		"created_at": "2024-01-01T00:00:00Z", "updated_at": "2024-01-01T00:00:00Z",
	}
}

func participantRow(conv, profile string) map[string]any {
	return map[string]any{
		"conversation_id": conv, "profile_id": profile,
		"joined_at": "2024-01-02T00:00:00Z",
	}
}

func messageRow(id, conv, sender, content, createdAt string) map[string]any {
	return map[string]any{
		"id": id, "conversation_id": conv, "sender_id": sender,
		"content": content, "created_at": createdAt,
	}
}

func TestConversations_MissingProfileBecomesPlaceholder(t *testing.T) {
	db := newFakeStore()
	db.add(backend.TableConversations,
		map[string]any{"id": "c1", "created_at": "2024-03-01T00:00:00Z"},
		map[string]any{"id": "c2", "created_at": "2024-03-02T00:00:00Z"},
	)
	db.add(backend.TableParticipants,
		participantRow("c1", "me"),
		participantRow("c1", "u2"),
		participantRow("c2", "me"),
		participantRow("c2", "ghost"),
	)
	// "ghost" has no profile row.
	db.add(backend.TableProfiles, profileRow("me", "Mai Tran"), profileRow("u2", "Huy Do"))
	db.add(backend.TableMessages,
		messageRow("m1", "c1", "u2", "hello", "2024-03-05T10:00:00Z"),
		messageRow("m2", "c1", "me", "hi back", "2024-03-05T11:00:00Z"),
	)

	views, err := New(db).Conversations(context.Background(), "me")

	require.NoError(t, err)
	require.Len(t, views, 2, "conversation with unresolvable participant is kept")

	byID := map[string]ConversationView{}
	for _, v := range views {
		byID[v.Conversation.ID] = v
	}

	c2 := byID["c2"]
	require.Len(t, c2.Participants, 2)
	var ghost model.Profile
	for _, p := range c2.Participants {
		if p.ID == "ghost" {
			ghost = p
		}
	}
	assert.Equal(t, model.UnknownUserName, ghost.FullName)

	c1 := byID["c1"]
	require.NotNil(t, c1.LastMessage)
	assert.Equal(t, "hi back", c1.LastMessage.Content)
	assert.Equal(t, "Mai Tran", c1.LastMessage.Sender.FullName)
}

func TestConversations_SortedByActivity(t *testing.T) {
	db := newFakeStore()
	db.add(backend.TableConversations,
		map[string]any{"id": "old"}, map[string]any{"id": "busy"}, map[string]any{"id": "silent"},
	)
	db.add(backend.TableParticipants,
		participantRow("old", "me"), participantRow("busy", "me"), participantRow("silent", "me"),
	)
	db.add(backend.TableProfiles, profileRow("me", "Mai Tran"))
	db.add(backend.TableMessages,
		messageRow("m1", "old", "me", "a", "2024-01-01T00:00:00Z"),
		messageRow("m2", "busy", "me", "b", "2024-06-01T00:00:00Z"),
	)

	views, err := New(db).Conversations(context.Background(), "me")

	require.NoError(t, err)
	require.Len(t, views, 3)
	assert.Equal(t, "busy", views[0].Conversation.ID)
	assert.Equal(t, "old", views[1].Conversation.ID)
	assert.Equal(t, "silent", views[2].Conversation.ID)
	assert.Nil(t, views[2].LastMessage)
}

func TestConversations_NoMembershipIsEmptySuccess(t *testing.T) {
	db := newFakeStore()

	views, err := New(db).Conversations(context.Background(), "me")

	require.NoError(t, err)
	assert.Empty(t, views)
	// Only the membership query should have run.
	assert.Equal(t, []string{backend.TableParticipants}, db.selects)
}

func TestMessages_OrderedWithSenders(t *testing.T) {
	db := newFakeStore()
	db.add(backend.TableMessages,
		messageRow("m2", "c1", "ghost", "second", "2024-03-05T11:00:00Z"),
		messageRow("m1", "c1", "u2", "first", "2024-03-05T10:00:00Z"),
		messageRow("mx", "other", "u2", "elsewhere", "2024-03-05T12:00:00Z"),
	)
	db.add(backend.TableProfiles, profileRow("u2", "Huy Do"))

	views, err := New(db).Messages(context.Background(), "c1")

	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "first", views[0].Content)
	assert.Equal(t, "Huy Do", views[0].Sender.FullName)
	assert.Equal(t, "second", views[1].Content)
	assert.Equal(t, model.UnknownUserName, views[1].Sender.FullName)
}

func TestMessages_EmptyConversation(t *testing.T) {
	db := newFakeStore()

	views, err := New(db).Messages(context.Background(), "c9")

	require.NoError(t, err)
	assert.Empty(t, views)
}
