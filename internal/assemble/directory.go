package assemble

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/anle/alumnet/internal/backend"
	"github.com/anle/alumnet/internal/model"
)

// DirectoryFilter narrows the member directory. Role and GradYear filter
// server-side; Query is matched client-side against name and headline (the
// query layer's text search was as unreliable as its joins for this schema).
type DirectoryFilter struct {
	Role     model.Role
	GradYear int
	Query    string
	Limit    int
}

// DirectoryEntry is one member annotated with their relationship to the
// viewer. Status is empty when no edge exists.
type DirectoryEntry struct {
	Profile      model.Profile
	Status       model.ConnectionStatus
	ConnectionID string
}

// Directory assembles the member directory for userID: one profile query,
// one edge query, joined by counterpart id in memory.
func (a *Assembler) Directory(ctx context.Context, userID string, filter DirectoryFilter) ([]DirectoryEntry, error) {
	p := backend.Params{}.Order("full_name", false)
	if filter.Role != "" {
		p = p.Eq("role", string(filter.Role))
	}
	if filter.GradYear > 0 {
		p = p.Eq("grad_year", strconv.Itoa(filter.GradYear))
	}
	if filter.Limit > 0 {
		p = p.Limit(filter.Limit)
	}

	var profiles []model.Profile
	if err := a.db.Select(ctx, backend.TableProfiles, p, &profiles); err != nil {
		return nil, fmt.Errorf("fetching directory profiles: %w", err)
	}

	edges, err := a.userEdges(ctx, userID)
	if err != nil {
		return nil, err
	}
	edgeByMember := make(map[string]model.Connection, len(edges))
	for _, e := range edges {
		if other := e.Counterpart(userID); other != "" {
			edgeByMember[other] = e
		}
	}

	needle := strings.ToLower(strings.TrimSpace(filter.Query))
	entries := make([]DirectoryEntry, 0, len(profiles))
	for _, prof := range profiles {
		if prof.ID == userID {
			continue
		}
		if needle != "" && !matchesQuery(prof, needle) {
			continue
		}
		entry := DirectoryEntry{Profile: prof}
		if e, ok := edgeByMember[prof.ID]; ok {
			entry.Status = e.Status
			entry.ConnectionID = e.ID
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func matchesQuery(p model.Profile, needle string) bool {
	return strings.Contains(strings.ToLower(p.FullName), needle) ||
		strings.Contains(strings.ToLower(p.Headline), needle)
}
