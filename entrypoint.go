package dispatch

import (
	"context"
	"sort"
	"strings"
)

// Entrypoint is the document served by WithEntrypoint: the API root with a
// link to every top-level resource.
type Entrypoint struct {
	ID        string            `json:"@id"`
	Type      string            `json:"@type"`
	Language  string            `json:"language,omitempty"`
	Resources map[string]string `json:"resources"`
}

func (d *Dispatcher) serveEntrypoint(ctx context.Context) (any, error) {
	ep := &Entrypoint{
		ID:        d.basePath + "/",
		Type:      "Entrypoint",
		Resources: make(map[string]string),
	}
	if lang, ok := LanguageFromContext(ctx); ok {
		ep.Language = lang.Tag.String()
	}

	for _, op := range d.Operations() {
		name, path := resourceOf(d.basePath, op.Pattern)
		if name == "" {
			continue
		}
		ep.Resources[name] = path
	}
	return ep, nil
}

// resourceOf returns the first literal segment under the base path and its
// collection path, e.g. "/api/books/{id}" gives ("books", "/api/books").
func resourceOf(basePath, pattern string) (string, string) {
	rest := strings.TrimPrefix(pattern, basePath)
	rest = strings.TrimPrefix(rest, "/")
	seg, _, _ := strings.Cut(rest, "/")
	if seg == "" || strings.HasPrefix(seg, "{") {
		return "", ""
	}
	return seg, basePath + "/" + seg
}

// ResourceNames returns the sorted resource names of an entrypoint.
func (e *Entrypoint) ResourceNames() []string {
	names := make([]string, 0, len(e.Resources))
	for n := range e.Resources {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
