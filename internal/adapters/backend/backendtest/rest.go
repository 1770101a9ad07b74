package backendtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

const timestampLayout = "2006-01-02T15:04:05.000000Z07:00"

var notNull = map[string][]string{
	TableProfiles: {"id", "username", "email"},
	TableRooms:    {"name", "current_code", "created_by"},
	TableTasks:    {"room_id", "title", "assigned_to", "created_by"},
}

var taskStatuses = map[string]bool{
	"assigned": true, "in_progress": true, "submitted": true, "approved": true, "rejected": true,
}

func (s *Server) serveRest(w http.ResponseWriter, r *http.Request, body []byte) {
	table := strings.TrimPrefix(r.URL.Path, "/rest/v1/")
	rows, ok := s.tables[table]
	if !ok {
		writeRestError(w, http.StatusNotFound, "42P01", fmt.Sprintf("relation \"public.%s\" does not exist", table), "")
		return
	}
	q := r.URL.Query()
	wantObject := r.Header.Get("Accept") == "application/vnd.pgrst.object+json"

	switch r.Method {
	case http.MethodGet, http.MethodHead:
		matched := s.filter(rows, q)
		sortRows(matched, q.Get("order"))
		if lim, err := strconv.Atoi(q.Get("limit")); err == nil && lim < len(matched) {
			matched = matched[:lim]
		}
		if r.Method == http.MethodHead {
			w.Header().Set("Content-Range", contentRange(len(matched)))
			w.WriteHeader(http.StatusOK)
			return
		}
		out := s.project(matched, q.Get("select"))
		s.writeRows(w, http.StatusOK, out, wantObject)

	case http.MethodPost:
		var incoming []Row
		if err := json.Unmarshal(body, &incoming); err != nil {
			var single Row
			if err := json.Unmarshal(body, &single); err != nil {
				writeRestError(w, http.StatusBadRequest, "PGRST102", "Empty or invalid json", "")
				return
			}
			incoming = []Row{single}
		}
		var stored []Row
		for _, in := range incoming {
			row := s.withDefaults(table, in)
			if code, msg := s.checkRow(table, row); code != "" {
				status := http.StatusBadRequest
				if code == "23505" {
					status = http.StatusConflict
				}
				writeRestError(w, status, code, msg, "")
				return
			}
			stored = append(stored, row)
		}
		s.tables[table] = append(s.tables[table], stored...)
		if !strings.Contains(r.Header.Get("Prefer"), "return=representation") {
			w.WriteHeader(http.StatusCreated)
			return
		}
		s.writeRows(w, http.StatusCreated, s.project(stored, q.Get("select")), wantObject)

	case http.MethodPatch:
		var patch Row
		if err := json.Unmarshal(body, &patch); err != nil {
			writeRestError(w, http.StatusBadRequest, "PGRST102", "Empty or invalid json", "")
			return
		}
		if st, ok := patch["status"].(string); ok && table == TableTasks && !taskStatuses[st] {
			writeRestError(w, http.StatusBadRequest, "23514", `new row for relation "tasks" violates check constraint "tasks_status_check"`, "")
			return
		}
		var updated []Row
		for _, row := range rows {
			if !matches(row, q) {
				continue
			}
			for k, v := range patch {
				row[k] = v
			}
			updated = append(updated, row)
		}
		if !strings.Contains(r.Header.Get("Prefer"), "return=representation") {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		s.writeRows(w, http.StatusOK, s.project(updated, q.Get("select")), false)

	default:
		writeRestError(w, http.StatusMethodNotAllowed, "PGRST117", "Unsupported HTTP method", "")
	}
}

func (s *Server) serveRPC(w http.ResponseWriter, r *http.Request) {
	fn := strings.TrimPrefix(r.URL.Path, "/rest/v1/rpc/")
	if fn != "generate_room_code" || r.Method != http.MethodPost {
		writeRestError(w, http.StatusNotFound, "PGRST202",
			fmt.Sprintf("Could not find the function public.%s without parameters in the schema cache", fn), "")
		return
	}
	s.codeSeq++
	writeJSON(w, http.StatusOK, fmt.Sprintf("RM%04d", s.codeSeq))
}

func (s *Server) writeRows(w http.ResponseWriter, status int, rows []Row, single bool) {
	if !single {
		if rows == nil {
			rows = []Row{}
		}
		writeJSON(w, status, rows)
		return
	}
	if len(rows) != 1 {
		writeRestError(w, http.StatusNotAcceptable, "PGRST116",
			"JSON object requested, multiple (or no) rows returned",
			fmt.Sprintf("The result contains %d rows", len(rows)))
		return
	}
	writeJSON(w, status, rows[0])
}

// withDefaults applies column defaults and normalizes values to their JSON shapes.
func (s *Server) withDefaults(table string, in Row) Row {
	raw, _ := json.Marshal(in)
	row := Row{}
	_ = json.Unmarshal(raw, &row)

	if _, ok := row["id"]; !ok && table != TableProfiles {
		row["id"] = uuid.NewString()
	}
	if _, ok := row["created_at"]; !ok {
		row["created_at"] = s.tick().Format(timestampLayout)
	}
	switch table {
	case TableProfiles:
		if _, ok := row["approved"]; !ok {
			row["approved"] = false
		}
		if _, ok := row["role_flags"]; !ok {
			row["role_flags"] = []any{"user"}
		}
		if _, ok := row["room_id"]; !ok {
			row["room_id"] = nil
		}
	case TableTasks:
		if _, ok := row["status"]; !ok {
			row["status"] = "assigned"
		}
		if _, ok := row["updated_at"]; !ok {
			row["updated_at"] = row["created_at"]
		}
	}
	return row
}

// checkRow enforces not-null, unique and check constraints.
func (s *Server) checkRow(table string, row Row) (code, msg string) {
	for _, col := range notNull[table] {
		if v, ok := row[col]; !ok || v == nil || v == "" {
			return "23502", fmt.Sprintf("null value in column \"%s\" of relation \"%s\" violates not-null constraint", col, table)
		}
	}
	for _, col := range s.uniqueCol[table] {
		for _, existing := range s.tables[table] {
			if existing[col] != nil && valueString(existing[col]) == valueString(row[col]) {
				return "23505", fmt.Sprintf("duplicate key value violates unique constraint \"%s_%s_key\"", table, col)
			}
		}
	}
	if table == TableTasks && !taskStatuses[valueString(row["status"])] {
		return "23514", `new row for relation "tasks" violates check constraint "tasks_status_check"`
	}
	return "", ""
}

func (s *Server) filter(rows []Row, q map[string][]string) []Row {
	var out []Row
	for _, row := range rows {
		if matches(row, q) {
			out = append(out, row)
		}
	}
	return out
}

// matches applies the eq. and cs. filters in q to row.
func matches(row Row, q map[string][]string) bool {
	for col, conds := range q {
		switch col {
		case "select", "order", "limit":
			continue
		}
		for _, cond := range conds {
			op, arg, _ := strings.Cut(cond, ".")
			switch op {
			case "eq":
				if valueString(row[col]) != arg {
					return false
				}
			case "cs":
				arr, _ := row[col].([]any)
				want := strings.Split(strings.Trim(arg, "{}"), ",")
				for _, wv := range want {
					found := false
					for _, have := range arr {
						if valueString(have) == wv {
							found = true
							break
						}
					}
					if !found {
						return false
					}
				}
			default:
				return false
			}
		}
	}
	return true
}

func sortRows(rows []Row, order string) {
	if order == "" {
		return
	}
	parts := strings.Split(order, ".")
	col, desc := parts[0], len(parts) > 1 && parts[1] == "desc"
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := valueString(rows[i][col]), valueString(rows[j][col])
		if desc {
			return a > b
		}
		return a < b
	})
}

// project applies a select list, including foreign-key embeds of the form
// alias:table!hint(cols).
func (s *Server) project(rows []Row, sel string) []Row {
	if sel == "" {
		sel = "*"
	}
	items := splitTopLevel(sel)
	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		p := Row{}
		for _, item := range items {
			switch {
			case item == "*":
				for k, v := range row {
					p[k] = v
				}
			case strings.Contains(item, "("):
				alias, target, cols := parseEmbed(item)
				e, ok := s.fkEmbeds[target]
				if !ok {
					continue
				}
				p[alias] = nil
				for _, ref := range s.tables[e.table] {
					if ref["id"] != nil && valueString(ref["id"]) == valueString(row[e.column]) {
						p[alias] = s.project([]Row{ref}, cols)[0]
						break
					}
				}
			default:
				p[item] = row[item]
			}
		}
		out = append(out, p)
	}
	return out
}

// parseEmbed splits "alias:table!hint(cols)" into alias, hint and cols.
func parseEmbed(item string) (alias, hint, cols string) {
	open := strings.IndexByte(item, '(')
	head, cols := item[:open], strings.TrimSuffix(item[open+1:], ")")
	alias = head
	if a, rest, ok := strings.Cut(head, ":"); ok {
		alias, head = a, rest
	}
	_, hint, ok := strings.Cut(head, "!")
	if !ok {
		hint = head
	}
	if alias == head && !strings.Contains(item, ":") {
		alias, _, _ = strings.Cut(head, "!")
	}
	return alias, hint, cols
}

func splitTopLevel(sel string) []string {
	var items []string
	depth, start := 0, 0
	for i, ch := range sel {
		switch ch {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				items = append(items, strings.TrimSpace(sel[start:i]))
				start = i + 1
			}
		}
	}
	return append(items, strings.TrimSpace(sel[start:]))
}

func contentRange(n int) string {
	if n == 0 {
		return "*/0"
	}
	return fmt.Sprintf("0-%d/%d", n-1, n)
}

func valueString(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}
