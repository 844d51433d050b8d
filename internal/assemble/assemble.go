// Package assemble builds feature views (conversations, messages, the
// member directory, connection lists) from separate table reads. The hosted
// query layer's relational join syntax proved unreliable for this schema,
// so every join here is explicit: batch-fetch the related rows, index them
// by id, project. Identifiers with no matching profile surface as an
// "Unknown User" placeholder, never as a dropped record.
package assemble

import (
	"context"

	"github.com/anle/alumnet/internal/backend"
	"github.com/anle/alumnet/internal/model"
)

// TableReader is the slice of the backend client the read-side assemblers
// use. *backend.Client satisfies it.
type TableReader interface {
	Select(ctx context.Context, table string, p backend.Params, dest any) error
}

// Assembler joins separately fetched result sets for the current user.
type Assembler struct {
	db TableReader
}

// New creates an Assembler over the given reader.
func New(db TableReader) *Assembler {
	return &Assembler{db: db}
}

// fetchProfiles loads the given profile ids and indexes them by id. Ids
// with no row are simply absent; callers substitute the placeholder.
func (a *Assembler) fetchProfiles(ctx context.Context, ids []string) (map[string]model.Profile, error) {
	index := make(map[string]model.Profile, len(ids))
	if len(ids) == 0 {
		return index, nil
	}

	var profiles []model.Profile
	if err := a.db.Select(ctx, backend.TableProfiles, backend.Params{}.In("id", ids), &profiles); err != nil {
		return nil, err
	}
	for _, p := range profiles {
		index[p.ID] = p
	}
	return index, nil
}

// profileOrPlaceholder projects one id through the index.
func profileOrPlaceholder(index map[string]model.Profile, id string) model.Profile {
	if p, ok := index[id]; ok {
		return p
	}
	return model.PlaceholderProfile(id)
}

// dedupe returns ids with duplicates removed, preserving first occurrence.
func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	var out []string
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
