package assemble

import (
	"context"
	"fmt"
	"sort"

	"github.com/anle/alumnet/internal/backend"
	"github.com/anle/alumnet/internal/model"
)

// MessageView is a message annotated with its sender's profile.
type MessageView struct {
	model.Message
	Sender model.Profile
}

// ConversationView is one thread with its membership resolved and the most
// recent message attached.
type ConversationView struct {
	Conversation model.Conversation
	Participants []model.Profile
	LastMessage  *MessageView
}

// Conversations assembles the conversation list for userID: membership rows
// for the user, then the conversations, then all participants of those
// conversations, then their profiles, then the recent messages: five round
// trips joined in memory.
func (a *Assembler) Conversations(ctx context.Context, userID string) ([]ConversationView, error) {
	var mine []model.ConversationParticipant
	if err := a.db.Select(ctx, backend.TableParticipants,
		backend.Where("profile_id", userID), &mine); err != nil {
		return nil, fmt.Errorf("fetching conversation membership: %w", err)
	}
	if len(mine) == 0 {
		return []ConversationView{}, nil
	}

	convIDs := make([]string, 0, len(mine))
	for _, row := range mine {
		convIDs = append(convIDs, row.ConversationID)
	}
	convIDs = dedupe(convIDs)

	var convs []model.Conversation
	if err := a.db.Select(ctx, backend.TableConversations,
		backend.Params{}.In("id", convIDs), &convs); err != nil {
		return nil, fmt.Errorf("fetching conversations: %w", err)
	}

	var members []model.ConversationParticipant
	if err := a.db.Select(ctx, backend.TableParticipants,
		backend.Params{}.In("conversation_id", convIDs), &members); err != nil {
		return nil, fmt.Errorf("fetching participants: %w", err)
	}

	memberIDs := make([]string, 0, len(members))
	byConv := make(map[string][]string)
	for _, m := range members {
		memberIDs = append(memberIDs, m.ProfileID)
		byConv[m.ConversationID] = append(byConv[m.ConversationID], m.ProfileID)
	}
	profiles, err := a.fetchProfiles(ctx, dedupe(memberIDs))
	if err != nil {
		return nil, fmt.Errorf("fetching participant profiles: %w", err)
	}

	var recent []model.Message
	if err := a.db.Select(ctx, backend.TableMessages,
		backend.Params{}.In("conversation_id", convIDs).Order("created_at", true), &recent); err != nil {
		return nil, fmt.Errorf("fetching recent messages: %w", err)
	}
	lastByConv := make(map[string]model.Message)
	for _, msg := range recent {
		// Rows arrive newest first; keep the first seen per thread.
		if _, ok := lastByConv[msg.ConversationID]; !ok {
			lastByConv[msg.ConversationID] = msg
		}
	}

	views := make([]ConversationView, 0, len(convs))
	for _, conv := range convs {
		view := ConversationView{Conversation: conv}
		for _, pid := range byConv[conv.ID] {
			view.Participants = append(view.Participants, profileOrPlaceholder(profiles, pid))
		}
		if msg, ok := lastByConv[conv.ID]; ok {
			view.LastMessage = &MessageView{
				Message: msg,
				Sender:  profileOrPlaceholder(profiles, msg.SenderID),
			}
		}
		views = append(views, view)
	}

	// Most recently active thread first; threads without messages last.
	sort.SliceStable(views, func(i, j int) bool {
		var ti, tj int64
		if views[i].LastMessage != nil {
			ti = views[i].LastMessage.CreatedAt.UnixNano()
		}
		if views[j].LastMessage != nil {
			tj = views[j].LastMessage.CreatedAt.UnixNano()
		}
		return ti > tj
	})

	return views, nil
}
