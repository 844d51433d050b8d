package model

import "time"

// Conversation is an opaque container for a message thread. Membership
// lives in ConversationParticipant rows; a conversation must have at least
// one participant before any message can be attributed to it.
type Conversation struct {
	ID        string    `json:"id" db:"id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ConversationParticipant joins one profile into one conversation.
// Primary key on the backend is (conversation_id, profile_id).
type ConversationParticipant struct {
	ConversationID string    `json:"conversation_id" db:"conversation_id"`
	ProfileID      string    `json:"profile_id" db:"profile_id"`
	JoinedAt       time.Time `json:"joined_at" db:"joined_at"`
}
