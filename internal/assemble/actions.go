package assemble

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/anle/alumnet/internal/backend"
	"github.com/anle/alumnet/internal/model"
	"github.com/anle/alumnet/internal/remoteerr"
)

// TableWriter is the write-side slice of the backend client.
// *backend.Client satisfies it.
type TableWriter interface {
	Insert(ctx context.Context, table string, row, dest any) error
	Update(ctx context.Context, table string, p backend.Params, patch, dest any) error
}

// Store combines the reads and writes the action layer needs.
type Store interface {
	TableReader
	TableWriter
}

// Actions performs the multi-step writes behind user operations. Row ids
// are generated client-side so the created record is addressable before
// the insert resolves.
type Actions struct {
	db Store
}

// NewActions creates an Actions layer over the given store.
func NewActions(db Store) *Actions {
	return &Actions{db: db}
}

// StartConversation creates a conversation and its participant rows. The
// creator is always a participant; a conversation must have membership
// before any message can be attributed to it.
func (a *Actions) StartConversation(ctx context.Context, creatorID string, memberIDs ...string) (model.Conversation, error) {
	conv := model.Conversation{ID: uuid.NewString()}
	var created []model.Conversation
	if err := a.db.Insert(ctx, backend.TableConversations, map[string]string{"id": conv.ID}, &created); err != nil {
		return model.Conversation{}, fmt.Errorf("creating conversation: %w", err)
	}
	if len(created) > 0 {
		conv = created[0]
	}

	rows := make([]map[string]string, 0, len(memberIDs)+1)
	for _, pid := range dedupe(append([]string{creatorID}, memberIDs...)) {
		rows = append(rows, map[string]string{
			"conversation_id": conv.ID,
			"profile_id":      pid,
		})
	}
	if err := a.db.Insert(ctx, backend.TableParticipants, rows, nil); err != nil {
		return model.Conversation{}, fmt.Errorf("adding participants: %w", err)
	}
	return conv, nil
}

// SendMessage appends a message to a conversation after confirming the
// sender is a participant.
func (a *Actions) SendMessage(ctx context.Context, conversationID, senderID, content string) (model.Message, error) {
	var membership []model.ConversationParticipant
	p := backend.Where("conversation_id", conversationID).Eq("profile_id", senderID)
	if err := a.db.Select(ctx, backend.TableParticipants, p, &membership); err != nil {
		return model.Message{}, fmt.Errorf("checking membership: %w", err)
	}
	if len(membership) == 0 {
		return model.Message{}, remoteerr.New(remoteerr.CodeUnauthenticated,
			"sender is not a participant of this conversation")
	}

	row := map[string]string{
		"id":              uuid.NewString(),
		"conversation_id": conversationID,
		"sender_id":       senderID,
		"content":         content,
	}
	var created []model.Message
	if err := a.db.Insert(ctx, backend.TableMessages, row, &created); err != nil {
		return model.Message{}, fmt.Errorf("sending message: %w", err)
	}
	if len(created) == 0 {
		return model.Message{ID: row["id"], ConversationID: conversationID, SenderID: senderID, Content: content}, nil
	}
	return created[0], nil
}

// RequestConnection creates a pending edge toward addresseeID. An existing
// edge for the unordered pair is returned instead of creating a duplicate.
func (a *Actions) RequestConnection(ctx context.Context, requesterID, addresseeID string) (model.Connection, error) {
	existing, err := a.pairEdge(ctx, requesterID, addresseeID)
	if err != nil {
		return model.Connection{}, err
	}
	if existing != nil {
		return *existing, nil
	}

	row := map[string]string{
		"id":           uuid.NewString(),
		"requester_id": requesterID,
		"addressee_id": addresseeID,
		"status":       string(model.ConnectionPending),
	}
	var created []model.Connection
	if err := a.db.Insert(ctx, backend.TableConnections, row, &created); err != nil {
		return model.Connection{}, fmt.Errorf("requesting connection: %w", err)
	}
	if len(created) == 0 {
		return model.Connection{
			ID: row["id"], RequesterID: requesterID,
			AddresseeID: addresseeID, Status: model.ConnectionPending,
		}, nil
	}
	return created[0], nil
}

// RespondConnection transitions an edge to accepted or blocked.
func (a *Actions) RespondConnection(ctx context.Context, connectionID string, status model.ConnectionStatus) error {
	if status != model.ConnectionAccepted && status != model.ConnectionBlocked {
		return fmt.Errorf("invalid transition target %q", status)
	}
	patch := map[string]string{"status": string(status)}
	if err := a.db.Update(ctx, backend.TableConnections, backend.Where("id", connectionID), patch, nil); err != nil {
		return fmt.Errorf("updating connection: %w", err)
	}
	return nil
}

// MarkNotificationRead flags one notification as read.
func (a *Actions) MarkNotificationRead(ctx context.Context, notificationID string) error {
	patch := map[string]bool{"read": true}
	if err := a.db.Update(ctx, backend.TableNotifications, backend.Where("id", notificationID), patch, nil); err != nil {
		return fmt.Errorf("marking notification read: %w", err)
	}
	return nil
}

// UpdateProfile patches the caller's own profile (or any profile when the
// caller is an admin; the backend's row policies arbitrate).
func (a *Actions) UpdateProfile(ctx context.Context, profileID string, patch map[string]any) (model.Profile, error) {
	var updated []model.Profile
	if err := a.db.Update(ctx, backend.TableProfiles, backend.Where("id", profileID), patch, &updated); err != nil {
		return model.Profile{}, fmt.Errorf("updating profile: %w", err)
	}
	if len(updated) == 0 {
		return model.Profile{}, remoteerr.New(remoteerr.CodeRowNotFound, "profile not found")
	}
	return updated[0], nil
}

// PostAnnouncement publishes a network-wide post.
func (a *Actions) PostAnnouncement(ctx context.Context, authorID, title, body string, pinned bool) (model.Announcement, error) {
	row := map[string]any{
		"id":        uuid.NewString(),
		"author_id": authorID,
		"title":     title,
		"body":      body,
		"pinned":    pinned,
	}
	var created []model.Announcement
	if err := a.db.Insert(ctx, backend.TableAnnouncements, row, &created); err != nil {
		return model.Announcement{}, fmt.Errorf("posting announcement: %w", err)
	}
	if len(created) == 0 {
		return model.Announcement{ID: row["id"].(string), AuthorID: authorID, Title: title, Body: body, Pinned: pinned}, nil
	}
	return created[0], nil
}

// pairEdge finds an existing edge between the unordered pair, if any.
func (a *Actions) pairEdge(ctx context.Context, userA, userB string) (*model.Connection, error) {
	for _, pair := range [][2]string{{userA, userB}, {userB, userA}} {
		var edges []model.Connection
		p := backend.Where("requester_id", pair[0]).Eq("addressee_id", pair[1])
		if err := a.db.Select(ctx, backend.TableConnections, p, &edges); err != nil {
			return nil, fmt.Errorf("checking existing connection: %w", err)
		}
		if len(edges) > 0 {
			return &edges[0], nil
		}
	}
	return nil, nil
}
