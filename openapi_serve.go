package dispatch

import (
	"encoding/json"
	"io"
	"net/http"

	"gopkg.in/yaml.v3"
)

// SpecHandler returns a handler that serves the OpenAPI spec as JSON.
// Hosts mount it next to the dispatcher, outside the API base path.
func (d *Dispatcher) SpecHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		//nolint:errcheck,gosec // best-effort after WriteHeader
		json.NewEncoder(w).Encode(d.Spec())
	})
}

// SpecYAMLHandler returns a handler that serves the OpenAPI spec as YAML.
func (d *Dispatcher) SpecYAMLHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		//nolint:errcheck,gosec // best-effort after WriteHeader
		yaml.NewEncoder(w).Encode(d.Spec())
	})
}

// WriteSpec writes the OpenAPI spec as indented JSON to w.
func (d *Dispatcher) WriteSpec(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(d.Spec())
}

// WriteSpecYAML writes the OpenAPI spec as YAML to w.
func (d *Dispatcher) WriteSpecYAML(w io.Writer) error {
	return yaml.NewEncoder(w).Encode(d.Spec())
}
