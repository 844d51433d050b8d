package model

import "time"

// ConnectionStatus is the lifecycle state of a connection edge.
type ConnectionStatus string

const (
	ConnectionPending  ConnectionStatus = "pending"
	ConnectionAccepted ConnectionStatus = "accepted"
	ConnectionBlocked  ConnectionStatus = "blocked"
)

// Connection is an edge between two profiles. The backend does not enforce
// uniqueness per unordered pair, so readers de-duplicate (oldest edge wins).
type Connection struct {
	ID          string           `json:"id" db:"id"`
	RequesterID string           `json:"requester_id" db:"requester_id"`
	AddresseeID string           `json:"addressee_id" db:"addressee_id"`
	Status      ConnectionStatus `json:"status" db:"status"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at" db:"updated_at"`
}

// Counterpart returns the other member on the edge, or "" when userID is
// not on the edge at all.
func (c Connection) Counterpart(userID string) string {
	switch userID {
	case c.RequesterID:
		return c.AddresseeID
	case c.AddresseeID:
		return c.RequesterID
	}
	return ""
}

// PairKey returns a key identifying the unordered pair of members on the
// edge, used for de-duplication.
func (c Connection) PairKey() string {
	if c.RequesterID < c.AddresseeID {
		return c.RequesterID + "|" + c.AddresseeID
	}
	return c.AddresseeID + "|" + c.RequesterID
}
