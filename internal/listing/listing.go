// Package listing turns list query strings into parameterized SQL fragments.
// Column names only ever come from the allow-list, never from the request.
package listing

import (
	"fmt"
	"maps"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"movebooking/internal/validate"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

type Op string

const (
	Eq  Op = "="
	Gte Op = ">="
	Lte Op = "<="
)

// Filter maps a query parameter onto a column comparison. Parse validates and
// converts the raw value; nil means the value is passed through as a string.
type Filter struct {
	Column string
	Op     Op
	Parse  func(param, raw string) (any, error)
}

type Spec struct {
	Filters map[string]Filter
	// Sorts maps the public sort key onto a column.
	Sorts       map[string]string
	DefaultSort string
}

type Query struct {
	Limit  int
	Offset int
	Sort   string
	Desc   bool

	orderColumn string
	conds       []string
	args        []any
}

// Parse reads limit, offset, sort, order and the spec's filters from v.
func Parse(v url.Values, spec Spec) (*Query, error) {
	q := &Query{Limit: DefaultLimit, Desc: true}

	if raw := strings.TrimSpace(v.Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > MaxLimit {
			return nil, validate.Failed("limit must be between 1 and %d", MaxLimit)
		}
		q.Limit = n
	}
	if raw := strings.TrimSpace(v.Get("offset")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return nil, validate.Failed("offset must be a non-negative integer")
		}
		q.Offset = n
	}

	q.Sort = spec.DefaultSort
	if raw := strings.TrimSpace(v.Get("sort")); raw != "" {
		q.Sort = raw
	}
	col, ok := spec.Sorts[q.Sort]
	if !ok {
		return nil, validate.Failed("sort must be one of %s", strings.Join(sortedKeys(spec.Sorts), ", "))
	}
	q.orderColumn = col

	switch strings.ToLower(strings.TrimSpace(v.Get("order"))) {
	case "", "desc":
		q.Desc = true
	case "asc":
		q.Desc = false
	default:
		return nil, validate.Failed("order must be asc or desc")
	}

	for _, param := range sortedKeys(spec.Filters) {
		raw := strings.TrimSpace(v.Get(param))
		if raw == "" {
			continue
		}
		f := spec.Filters[param]
		var val any = raw
		if f.Parse != nil {
			parsed, err := f.Parse(param, raw)
			if err != nil {
				return nil, err
			}
			val = parsed
		}
		q.Where(f.Column, f.Op, val)
	}
	return q, nil
}

// Where adds `column op $n`. Callers use it for fixed scoping such as the owner id.
func (q *Query) Where(column string, op Op, arg any) {
	q.args = append(q.args, arg)
	q.conds = append(q.conds, fmt.Sprintf("%s %s $%d", column, op, len(q.args)))
}

// WhereSQL returns the WHERE clause (with leading space) or "".
func (q *Query) WhereSQL() string {
	if len(q.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(q.conds, " AND ")
}

// Args are the filter arguments, matching WhereSQL.
func (q *Query) Args() []any {
	return append([]any(nil), q.args...)
}

// PageSQL returns ORDER BY/LIMIT/OFFSET and the full argument list for a page query.
// id breaks ties so pages are stable.
func (q *Query) PageSQL() (string, []any) {
	dir := "DESC"
	if !q.Desc {
		dir = "ASC"
	}
	args := append(q.Args(), q.Limit, q.Offset)
	n := len(args)
	return fmt.Sprintf(" ORDER BY %s %s, id %s LIMIT $%d OFFSET $%d", q.orderColumn, dir, dir, n-1, n), args
}

func ParseDate(param, raw string) (any, error) {
	return validate.Date(param, raw)
}

func ParseUUID(param, raw string) (any, error) {
	if err := validate.UUID(param, raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// OneOf builds a Parse func for enum filters.
func OneOf(allowed ...string) func(param, raw string) (any, error) {
	return func(param, raw string) (any, error) {
		if err := validate.OneOf(param, raw, allowed...); err != nil {
			return nil, err
		}
		return raw, nil
	}
}

// Page is the list response envelope.
type Page[T any] struct {
	Items  []T `json:"items"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

func NewPage[T any](items []T, total int, q *Query) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{Items: items, Total: total, Limit: q.Limit, Offset: q.Offset}
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
