package dispatch

import (
	"context"
	"net/http"
	"strings"
)

// Match is the outcome of a successful operation lookup.
type Match struct {
	Operation *Operation
	Params    map[string]string
	Request   *http.Request
}

// routeTable wraps an http.ServeMux. Each entry records what it matched into
// a per-request slot instead of writing a response, so the mux does the
// pattern work while the dispatcher keeps control of the outcome.
type routeTable struct {
	mux *http.ServeMux
}

type matchSlot struct {
	op  *Operation
	req *http.Request
}

type slotKey struct{}

func newRouteTable() *routeTable {
	return &routeTable{mux: http.NewServeMux()}
}

// add registers pattern (a full ServeMux pattern, method optional) for op.
func (t *routeTable) add(pattern string, op *Operation) {
	t.mux.Handle(pattern, http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		if slot, ok := r.Context().Value(slotKey{}).(*matchSlot); ok {
			slot.op = op
			slot.req = r
		}
	}))
}

// match returns the operation whose pattern matches r, or false. Method
// mismatches and paths the mux would redirect count as no match.
func (t *routeTable) match(r *http.Request) (*Match, bool) {
	slot := &matchSlot{}
	probe := r.WithContext(context.WithValue(r.Context(), slotKey{}, slot))
	t.mux.ServeHTTP(discardWriter{}, probe)
	if slot.req == nil {
		return nil, false
	}

	m := &Match{
		Operation: slot.op,
		Params:    make(map[string]string),
		Request:   slot.req.WithContext(r.Context()),
	}
	if slot.op != nil {
		for _, name := range slot.op.Params() {
			m.Params[name] = slot.req.PathValue(name)
		}
	}
	return m, true
}

// newMainTable builds the fixed table recognizing the base path with and
// without a trailing slash, for any method.
func newMainTable(basePath string) *routeTable {
	t := newRouteTable()
	if basePath != "" {
		t.add(basePath, nil)
	}
	t.add(basePath+"/{$}", nil)
	return t
}

// patternParams extracts wildcard names from a ServeMux pattern.
func patternParams(pattern string) []string {
	var names []string
	for {
		start := strings.IndexByte(pattern, '{')
		if start < 0 {
			return names
		}
		end := strings.IndexByte(pattern[start:], '}')
		if end < 0 {
			return names
		}
		name := strings.TrimSuffix(pattern[start+1:start+end], "...")
		if name != "" && name != "$" {
			names = append(names, name)
		}
		pattern = pattern[start+end+1:]
	}
}

// normalizeBasePath returns "" for the root and a leading-slash,
// no-trailing-slash path otherwise.
func normalizeBasePath(p string) string {
	p = strings.TrimRight(strings.TrimSpace(p), "/")
	if p == "" {
		return ""
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

type discardWriter struct{}

func (discardWriter) Header() http.Header         { return http.Header{} }
func (discardWriter) Write(b []byte) (int, error) { return len(b), nil }
func (discardWriter) WriteHeader(int)             {}
