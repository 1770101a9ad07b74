package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	acceptObject   = "application/vnd.pgrst.object+json"
	preferReturn   = "return=representation"
	preferMinimal  = "return=minimal"
	preferCountAll = "count=exact"
)

// Query builds one PostgREST table request. Filters are ANDed.
// A Query is not safe for concurrent use; build one per call.
type Query struct {
	c      *Client
	table  string
	params url.Values
}

// From starts a query against table.
func (c *Client) From(table string) *Query {
	return &Query{c: c, table: table, params: url.Values{}}
}

// Select limits the returned columns; PostgREST embedding syntax is allowed,
// e.g. "*,assigned_user:users_info!tasks_assigned_to_fkey(username)".
func (q *Query) Select(columns string) *Query {
	q.params.Set("select", columns)
	return q
}

// Eq filters col = value.
func (q *Query) Eq(col, value string) *Query {
	q.params.Add(col, "eq."+value)
	return q
}

// EqBool filters col = true|false.
func (q *Query) EqBool(col string, value bool) *Query {
	q.params.Add(col, "eq."+strconv.FormatBool(value))
	return q
}

// Contains filters array column col to rows containing every value.
func (q *Query) Contains(col string, values ...string) *Query {
	q.params.Add(col, "cs.{"+strings.Join(values, ",")+"}")
	return q
}

// Order sorts by col.
func (q *Query) Order(col string, ascending bool) *Query {
	dir := "desc"
	if ascending {
		dir = "asc"
	}
	q.params.Set("order", col+"."+dir)
	return q
}

func (q *Query) path() string {
	return "/rest/v1/" + url.PathEscape(q.table)
}

// List decodes every matching row into dst, which must point to a slice.
func (q *Query) List(ctx context.Context, dst any) error {
	resp, err := q.c.do(ctx, request{method: http.MethodGet, path: q.path(), query: q.params})
	if err != nil {
		return fmt.Errorf("list %s: %w", q.table, err)
	}
	if err := json.Unmarshal(resp.body, dst); err != nil {
		return fmt.Errorf("list %s: decode: %w", q.table, err)
	}
	return nil
}

// Single decodes exactly one matching row into dst.
// POST: errors.Is(err, ErrNotFound) when no row (or more than one) matched
func (q *Query) Single(ctx context.Context, dst any) error {
	resp, err := q.c.do(ctx, request{
		method:  http.MethodGet,
		path:    q.path(),
		query:   q.params,
		headers: map[string]string{"Accept": acceptObject},
	})
	if err != nil {
		return fmt.Errorf("get %s: %w", q.table, err)
	}
	if err := json.Unmarshal(resp.body, dst); err != nil {
		return fmt.Errorf("get %s: decode: %w", q.table, err)
	}
	return nil
}

// Count returns the number of matching rows without fetching them.
func (q *Query) Count(ctx context.Context) (int, error) {
	q.params.Set("select", "*")
	resp, err := q.c.do(ctx, request{
		method:  http.MethodHead,
		path:    q.path(),
		query:   q.params,
		headers: map[string]string{"Prefer": preferCountAll},
	})
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", q.table, err)
	}
	n, err := parseContentRangeTotal(resp.header.Get("Content-Range"))
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", q.table, err)
	}
	return n, nil
}

// parseContentRangeTotal reads the total from "0-24/3573" or "*/0".
func parseContentRangeTotal(h string) (int, error) {
	i := strings.LastIndexByte(h, '/')
	if i < 0 || h[i+1:] == "*" {
		return 0, fmt.Errorf("no total in Content-Range %q", h)
	}
	return strconv.Atoi(h[i+1:])
}

// Insert writes row and, when dst is non-nil, decodes the stored row into it.
// row must be a single object.
func (q *Query) Insert(ctx context.Context, row any, dst any) error {
	headers := map[string]string{"Prefer": preferMinimal}
	if dst != nil {
		headers["Prefer"] = preferReturn
		headers["Accept"] = acceptObject
	}
	resp, err := q.c.do(ctx, request{method: http.MethodPost, path: q.path(), query: q.params, body: row, headers: headers})
	if err != nil {
		return fmt.Errorf("insert %s: %w", q.table, err)
	}
	if dst == nil {
		return nil
	}
	if err := json.Unmarshal(resp.body, dst); err != nil {
		return fmt.Errorf("insert %s: decode: %w", q.table, err)
	}
	return nil
}

// Update patches every row matching the filters and returns how many matched.
// When dst is non-nil it receives the updated rows (a pointer to a slice).
// PRE: at least one filter is set; an unfiltered PATCH is refused
func (q *Query) Update(ctx context.Context, patch any, dst any) (int, error) {
	if !q.hasFilter() {
		return 0, fmt.Errorf("update %s: refusing to patch without a filter", q.table)
	}
	resp, err := q.c.do(ctx, request{
		method:  http.MethodPatch,
		path:    q.path(),
		query:   q.params,
		body:    patch,
		headers: map[string]string{"Prefer": preferReturn},
	})
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", q.table, err)
	}
	var rows []json.RawMessage
	if err := json.Unmarshal(resp.body, &rows); err != nil {
		return 0, fmt.Errorf("update %s: decode: %w", q.table, err)
	}
	if dst != nil {
		if err := json.Unmarshal(resp.body, dst); err != nil {
			return 0, fmt.Errorf("update %s: decode: %w", q.table, err)
		}
	}
	return len(rows), nil
}

func (q *Query) hasFilter() bool {
	for k := range q.params {
		switch k {
		case "select", "order", "limit":
		default:
			return true
		}
	}
	return false
}

// RPC calls a database function and decodes its result into dst.
func (c *Client) RPC(ctx context.Context, fn string, args any, dst any) error {
	if args == nil {
		args = map[string]any{}
	}
	resp, err := c.do(ctx, request{method: http.MethodPost, path: "/rest/v1/rpc/" + url.PathEscape(fn), body: args})
	if err != nil {
		return fmt.Errorf("rpc %s: %w", fn, err)
	}
	if dst == nil {
		return nil
	}
	if err := json.Unmarshal(resp.body, dst); err != nil {
		return fmt.Errorf("rpc %s: decode: %w", fn, err)
	}
	return nil
}
