package backend

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Params describes a table read or mutation target: equality and set
// filters, ordering, and a row limit. The zero value selects everything.
type Params struct {
	eq    map[string]string
	in    map[string][]string
	or    string
	order string
	desc  bool
	limit int
}

// Where returns Params with one equality filter set.
func Where(column, value string) Params {
	return Params{}.Eq(column, value)
}

// Eq adds an equality filter.
func (p Params) Eq(column, value string) Params {
	if p.eq == nil {
		p.eq = map[string]string{}
	}
	p.eq[column] = value
	return p
}

// In adds a set-membership filter. An empty value set matches nothing;
// callers should short-circuit before issuing the request.
func (p Params) In(column string, values []string) Params {
	if p.in == nil {
		p.in = map[string][]string{}
	}
	p.in[column] = values
	return p
}

// OrEq adds a disjunction of equality filters over the given columns, all
// compared against the same value ("either side of the edge is me").
func (p Params) OrEq(value string, columns ...string) Params {
	parts := make([]string, len(columns))
	for i, c := range columns {
		parts[i] = fmt.Sprintf("%s.eq.%s", c, value)
	}
	p.or = "(" + strings.Join(parts, ",") + ")"
	return p
}

// Order sets the sort column.
func (p Params) Order(column string, desc bool) Params {
	p.order = column
	p.desc = desc
	return p
}

// Limit caps the number of returned rows.
func (p Params) Limit(n int) Params {
	p.limit = n
	return p
}

// Empty reports whether any In filter has an empty value set, i.e. the
// query cannot match rows and need not be sent.
func (p Params) Empty() bool {
	for _, vs := range p.in {
		if len(vs) == 0 {
			return true
		}
	}
	return false
}

// Encode renders the params in the query layer's filter syntax.
func (p Params) Encode() url.Values {
	q := url.Values{}
	for _, col := range sortedKeys(p.eq) {
		q.Set(col, "eq."+p.eq[col])
	}
	for col, vs := range p.in {
		q.Set(col, "in.("+strings.Join(vs, ",")+")")
	}
	if p.or != "" {
		q.Set("or", p.or)
	}
	if p.order != "" {
		dir := ".asc"
		if p.desc {
			dir = ".desc"
		}
		q.Set("order", p.order+dir)
	}
	if p.limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", p.limit))
	}
	return q
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
