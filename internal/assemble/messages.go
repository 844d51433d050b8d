package assemble

import (
	"context"
	"fmt"

	"github.com/anle/alumnet/internal/backend"
	"github.com/anle/alumnet/internal/model"
)

// Messages assembles the message list for one conversation, oldest first,
// each annotated with its sender's profile.
func (a *Assembler) Messages(ctx context.Context, conversationID string) ([]MessageView, error) {
	var msgs []model.Message
	if err := a.db.Select(ctx, backend.TableMessages,
		backend.Where("conversation_id", conversationID).Order("created_at", false), &msgs); err != nil {
		return nil, fmt.Errorf("fetching messages: %w", err)
	}
	if len(msgs) == 0 {
		return []MessageView{}, nil
	}

	senderIDs := make([]string, 0, len(msgs))
	for _, m := range msgs {
		senderIDs = append(senderIDs, m.SenderID)
	}
	profiles, err := a.fetchProfiles(ctx, dedupe(senderIDs))
	if err != nil {
		return nil, fmt.Errorf("fetching sender profiles: %w", err)
	}

	views := make([]MessageView, 0, len(msgs))
	for _, m := range msgs {
		views = append(views, MessageView{
			Message: m,
			Sender:  profileOrPlaceholder(profiles, m.SenderID),
		})
	}
	return views, nil
}
