package backend

import (
	"context"
	"net/http"
	"net/url"
)

// Table names on the hosted backend. Access control lives in the backend's
// row policies; the client just names tables.
const (
	TableProfiles      = "profiles"
	TableConnections   = "connections"
	TableConversations = "conversations"
	TableParticipants  = "conversation_participants"
	TableMessages      = "messages"
	TableNotifications = "notifications"
	TableAnnouncements = "announcements"
	TableJobs          = "jobs"
	TableEvents        = "events"
)

// Select reads rows from table matching p into dest (a pointer to a slice).
func (c *Client) Select(ctx context.Context, table string, p Params, dest any) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.ReadTimeout)
	defer cancel()
	return c.do(ctx, http.MethodGet, "/rest/v1/"+table, p.Encode(), nil, dest)
}

// Insert writes row into table. When dest is non-nil the created row
// (with server-assigned defaults) is decoded back into it.
func (c *Client) Insert(ctx context.Context, table string, row, dest any) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.WriteTimeout)
	defer cancel()
	q := url.Values{}
	var result any
	if dest != nil {
		q.Set("select", "*")
		result = dest
	}
	return c.do(ctx, http.MethodPost, "/rest/v1/"+table, q, row, result)
}

// Update patches rows matching p. dest, when non-nil, receives the updated
// rows.
func (c *Client) Update(ctx context.Context, table string, p Params, patch, dest any) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.WriteTimeout)
	defer cancel()
	return c.do(ctx, http.MethodPatch, "/rest/v1/"+table, p.Encode(), patch, dest)
}

// Delete removes rows matching p.
func (c *Client) Delete(ctx context.Context, table string, p Params) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.WriteTimeout)
	defer cancel()
	return c.do(ctx, http.MethodDelete, "/rest/v1/"+table, p.Encode(), nil, nil)
}
