package assemble

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/anle/alumnet/internal/backend"
)

// fakeStore serves canned rows per table, interpreting the same filter
// syntax the real query layer receives.
type fakeStore struct {
	mu      sync.Mutex
	tables  map[string][]map[string]any
	selects []string
	inserts map[string][]map[string]any
	updates map[string][]map[string]any
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tables:  map[string][]map[string]any{},
		inserts: map[string][]map[string]any{},
		updates: map[string][]map[string]any{},
	}
}

func (f *fakeStore) add(table string, rows ...map[string]any) {
	f.tables[table] = append(f.tables[table], rows...)
}

func (f *fakeStore) Select(ctx context.Context, table string, p backend.Params, dest any) error {
	f.mu.Lock()
	f.selects = append(f.selects, table)
	f.mu.Unlock()

	q := p.Encode()
	var rows []map[string]any
	for _, row := range f.tables[table] {
		if matchRow(row, q) {
			rows = append(rows, row)
		}
	}

	if order := q.Get("order"); order != "" {
		col, dir, _ := strings.Cut(order, ".")
		sort.SliceStable(rows, func(i, j int) bool {
			a := fmt.Sprint(rows[i][col])
			b := fmt.Sprint(rows[j][col])
			if dir == "desc" {
				return a > b
			}
			return a < b
		})
	}
	if limit := q.Get("limit"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil && len(rows) > n {
			rows = rows[:n]
		}
	}

	data, err := json.Marshal(rows)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

func matchRow(row map[string]any, q map[string][]string) bool {
	for col, vals := range q {
		if col == "order" || col == "limit" || col == "select" {
			continue
		}
		val := vals[0]
		switch {
		case col == "or":
			if !matchOr(row, val) {
				return false
			}
		case strings.HasPrefix(val, "eq."):
			if fmt.Sprint(row[col]) != strings.TrimPrefix(val, "eq.") {
				return false
			}
		case strings.HasPrefix(val, "in."):
			set := strings.TrimSuffix(strings.TrimPrefix(val, "in.("), ")")
			found := false
			for _, member := range strings.Split(set, ",") {
				if fmt.Sprint(row[col]) == member {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	return true
}

func matchOr(row map[string]any, expr string) bool {
	expr = strings.TrimSuffix(strings.TrimPrefix(expr, "("), ")")
	for _, clause := range strings.Split(expr, ",") {
		parts := strings.SplitN(clause, ".eq.", 2)
		if len(parts) == 2 && fmt.Sprint(row[parts[0]]) == parts[1] {
			return true
		}
	}
	return false
}

func (f *fakeStore) Insert(ctx context.Context, table string, row, dest any) error {
	data, err := json.Marshal(row)
	if err != nil {
		return err
	}

	// Accept both single rows and batches.
	var batch []map[string]any
	if err := json.Unmarshal(data, &batch); err != nil {
		var single map[string]any
		if err := json.Unmarshal(data, &single); err != nil {
			return err
		}
		batch = []map[string]any{single}
	}

	f.mu.Lock()
	f.inserts[table] = append(f.inserts[table], batch...)
	f.tables[table] = append(f.tables[table], batch...)
	f.mu.Unlock()

	if dest != nil {
		out, _ := json.Marshal(batch)
		return json.Unmarshal(out, dest)
	}
	return nil
}

func (f *fakeStore) Update(ctx context.Context, table string, p backend.Params, patch, dest any) error {
	data, err := json.Marshal(patch)
	if err != nil {
		return err
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	q := p.Encode()
	var updated []map[string]any
	f.mu.Lock()
	for _, row := range f.tables[table] {
		if matchRow(row, q) {
			for k, v := range fields {
				row[k] = v
			}
			updated = append(updated, row)
		}
	}
	f.updates[table] = append(f.updates[table], fields)
	f.mu.Unlock()

	if dest != nil {
		out, _ := json.Marshal(updated)
		return json.Unmarshal(out, dest)
	}
	return nil
}
