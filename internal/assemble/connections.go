package assemble

import (
	"context"
	"fmt"
	"sort"

	"github.com/anle/alumnet/internal/backend"
	"github.com/anle/alumnet/internal/model"
)

// ConnectionEdge is one edge with the other member's profile resolved.
type ConnectionEdge struct {
	Connection  model.Connection
	Counterpart model.Profile
}

// ConnectionsView splits a member's edges by direction and state.
type ConnectionsView struct {
	IncomingPending []ConnectionEdge
	OutgoingPending []ConnectionEdge
	Accepted        []ConnectionEdge
}

// Connections assembles the connection lists for userID. The backend does
// not enforce one edge per unordered pair, so duplicates are collapsed
// here, oldest edge winning.
func (a *Assembler) Connections(ctx context.Context, userID string) (ConnectionsView, error) {
	edges, err := a.userEdges(ctx, userID)
	if err != nil {
		return ConnectionsView{}, err
	}

	counterparts := make([]string, 0, len(edges))
	for _, e := range edges {
		counterparts = append(counterparts, e.Counterpart(userID))
	}
	profiles, err := a.fetchProfiles(ctx, dedupe(counterparts))
	if err != nil {
		return ConnectionsView{}, fmt.Errorf("fetching counterpart profiles: %w", err)
	}

	var view ConnectionsView
	for _, e := range edges {
		edge := ConnectionEdge{
			Connection:  e,
			Counterpart: profileOrPlaceholder(profiles, e.Counterpart(userID)),
		}
		switch {
		case e.Status == model.ConnectionPending && e.AddresseeID == userID:
			view.IncomingPending = append(view.IncomingPending, edge)
		case e.Status == model.ConnectionPending:
			view.OutgoingPending = append(view.OutgoingPending, edge)
		case e.Status == model.ConnectionAccepted:
			view.Accepted = append(view.Accepted, edge)
		}
		// Blocked edges stay out of every list.
	}
	return view, nil
}

// userEdges fetches every edge touching userID, de-duplicated per
// unordered pair.
func (a *Assembler) userEdges(ctx context.Context, userID string) ([]model.Connection, error) {
	var edges []model.Connection
	p := backend.Params{}.OrEq(userID, "requester_id", "addressee_id").Order("created_at", false)
	if err := a.db.Select(ctx, backend.TableConnections, p, &edges); err != nil {
		return nil, fmt.Errorf("fetching connections: %w", err)
	}

	sort.SliceStable(edges, func(i, j int) bool {
		return edges[i].CreatedAt.Before(edges[j].CreatedAt)
	})
	seen := make(map[string]bool, len(edges))
	var out []model.Connection
	for _, e := range edges {
		key := e.PairKey()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, e)
	}
	return out, nil
}
