package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
)

// ContentType is the media type of every envelope the dispatcher produces.
const ContentType = "application/ld+json"

// Serializer turns operation results, main endpoint resources and faults
// into response bodies. It may fail; a failure while serializing an
// internal error is escalated to the host.
type Serializer interface {
	Serialize(ctx context.Context, v any) ([]byte, error)
}

// SerializerFunc adapts a function to Serializer.
type SerializerFunc func(ctx context.Context, v any) ([]byte, error)

// Serialize calls f.
func (f SerializerFunc) Serialize(ctx context.Context, v any) ([]byte, error) { return f(ctx, v) }

// JSONLD is the default Serializer. Results are encoded as plain JSON;
// errors are encoded as hydra:Error documents.
type JSONLD struct {
	// Debug includes the message of internal errors in the body.
	Debug bool
}

// errorDocument is the wire shape of a serialized fault.
type errorDocument struct {
	Type        string      `json:"@type"`
	Title       string      `json:"hydra:title"`
	Description string      `json:"hydra:description,omitempty"`
	Status      int         `json:"status"`
	Violations  []Violation `json:"violations,omitempty"`
}

// Serialize implements Serializer.
func (s JSONLD) Serialize(_ context.Context, v any) ([]byte, error) {
	if err, ok := v.(error); ok {
		return json.Marshal(s.errorDocument(err))
	}
	return json.Marshal(v)
}

func (s JSONLD) errorDocument(err error) errorDocument {
	if de, ok := asDomainError(err); ok {
		doc := errorDocument{
			Type:        "hydra:Error",
			Title:       de.StatusTitle(),
			Description: de.Error(),
			Status:      de.StatusCode(),
		}
		var f *Fault
		if errors.As(err, &f) && f != nil {
			doc.Violations = f.Violations
		}
		return doc
	}

	doc := errorDocument{
		Type:   "hydra:Error",
		Title:  http.StatusText(http.StatusInternalServerError),
		Status: http.StatusInternalServerError,
	}
	if s.Debug && !isNilValue(err) {
		doc.Description = err.Error()
	}
	return doc
}
