package assemble

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anle/alumnet/internal/backend"
	"github.com/anle/alumnet/internal/model"
)

func connectionRow(id, requester, addressee, status, createdAt string) map[string]any {
	return map[string]any{
		"id": id, "requester_id": requester, "addressee_id": addressee,
		"status": status, "created_at": createdAt, "updated_at": createdAt,
	}
}

func TestConnections_SplitByDirectionAndState(t *testing.T) {
	db := newFakeStore()
	db.add(backend.TableConnections,
		connectionRow("e1", "u2", "me", "pending", "2024-01-01T00:00:00Z"),
		connectionRow("e2", "me", "u3", "pending", "2024-01-02T00:00:00Z"),
		connectionRow("e3", "u4", "me", "accepted", "2024-01-03T00:00:00Z"),
		connectionRow("e4", "me", "u5", "blocked", "2024-01-04T00:00:00Z"),
		connectionRow("e5", "u6", "u7", "accepted", "2024-01-05T00:00:00Z"),
	)
	db.add(backend.TableProfiles,
		profileRow("u2", "Ana Pham"), profileRow("u3", "Binh Le"), profileRow("u4", "Chi Vu"),
	)

	view, err := New(db).Connections(context.Background(), "me")

	require.NoError(t, err)
	require.Len(t, view.IncomingPending, 1)
	assert.Equal(t, "Ana Pham", view.IncomingPending[0].Counterpart.FullName)
	require.Len(t, view.OutgoingPending, 1)
	assert.Equal(t, "Binh Le", view.OutgoingPending[0].Counterpart.FullName)
	require.Len(t, view.Accepted, 1)
	assert.Equal(t, "Chi Vu", view.Accepted[0].Counterpart.FullName)
}

func TestConnections_DuplicatePairOldestWins(t *testing.T) {
	db := newFakeStore()
	db.add(backend.TableConnections,
		connectionRow("dup2", "u2", "me", "pending", "2024-02-01T00:00:00Z"),
		connectionRow("dup1", "me", "u2", "accepted", "2024-01-01T00:00:00Z"),
	)
	db.add(backend.TableProfiles, profileRow("u2", "Ana Pham"))

	view, err := New(db).Connections(context.Background(), "me")

	require.NoError(t, err)
	assert.Empty(t, view.IncomingPending)
	require.Len(t, view.Accepted, 1)
	assert.Equal(t, "dup1", view.Accepted[0].Connection.ID)
}

func TestConnections_MissingCounterpartIsPlaceholder(t *testing.T) {
	db := newFakeStore()
	db.add(backend.TableConnections,
		connectionRow("e1", "ghost", "me", "accepted", "2024-01-01T00:00:00Z"),
	)

	view, err := New(db).Connections(context.Background(), "me")

	require.NoError(t, err)
	require.Len(t, view.Accepted, 1)
	assert.Equal(t, model.UnknownUserName, view.Accepted[0].Counterpart.FullName)
}

func TestDirectory_AnnotatesAndFilters(t *testing.T) {
	db := newFakeStore()
	db.add(backend.TableProfiles,
		profileRow("me", "Mai Tran"),
		map[string]any{"id": "u2", "full_name": "Ana Pham", "role": "alumni", "grad_year": 2019, "headline": "SRE at Vexa"},
		map[string]any{"id": "u3", "full_name": "Binh Le", "role": "student", "grad_year": 2027, "headline": ""},
	)
	db.add(backend.TableConnections,
		connectionRow("e1", "me", "u2", "accepted", "2024-01-01T00:00:00Z"),
	)

	entries, err := New(db).Directory(context.Background(), "me", DirectoryFilter{})

	require.NoError(t, err)
	require.Len(t, entries, 2, "the viewer is excluded")

	byID := map[string]DirectoryEntry{}
	for _, e := range entries {
		byID[e.Profile.ID] = e
	}
	assert.Equal(t, model.ConnectionAccepted, byID["u2"].Status)
	assert.Equal(t, "e1", byID["u2"].ConnectionID)
	assert.Empty(t, byID["u3"].Status)
}

func TestDirectory_RoleAndQueryFilter(t *testing.T) {
	db := newFakeStore()
	db.add(backend.TableProfiles,
		map[string]any{"id": "u2", "full_name": "Ana Pham", "role": "alumni", "headline": "SRE at Vexa"},
		map[string]any{"id": "u3", "full_name": "Binh Le", "role": "alumni", "headline": "Designer"},
		map[string]any{"id": "u4", "full_name": "Chi Vu", "role": "student", "headline": "SRE hopeful"},
	)

	entries, err := New(db).Directory(context.Background(), "me", DirectoryFilter{
		Role:  model.RoleAlumni,
		Query: "sre",
	})

	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Ana Pham", entries[0].Profile.FullName)
}
