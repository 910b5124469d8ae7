package dispatch

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
)

// Sentinel errors for request binding.
var (
	ErrBindPath   = errors.New("bind path")
	ErrBindQuery  = errors.New("bind query")
	ErrBindHeader = errors.New("bind header")
	ErrBindBody   = errors.New("bind body")
)

// ErrHostRequest reports that the host did not hand the dispatcher a usable
// request: the request is nil or no Site is available for language lookup.
// It is an integration defect, never turned into a response.
var ErrHostRequest = errors.New("dispatch: invalid host request")

// ErrUnknownLanguage is returned by StaticSite for an id it has no language for.
var ErrUnknownLanguage = errors.New("dispatch: unknown language")

// StatusCoder is implemented by errors that carry an HTTP status code.
type StatusCoder interface {
	StatusCode() int
}

// DomainError is an expected failure that knows its own status and title.
// Anything returned through the pipeline that does not implement it is
// treated as an internal error.
type DomainError interface {
	error
	StatusCoder
	StatusTitle() string
}

// Fault is the stock DomainError.
//
//nolint:errname // domain vocabulary
type Fault struct {
	Status     int         `json:"status"`
	Title      string      `json:"title,omitempty"`
	Detail     string      `json:"detail,omitempty"`
	Violations []Violation `json:"violations,omitempty"`

	// Header is copied onto the response envelope, except Content-Type.
	Header http.Header `json:"-"`
	// Err is the underlying cause, if any.
	Err error `json:"-"`
}

// Error returns the detail message (or title if detail is empty).
func (f *Fault) Error() string {
	if f == nil {
		return "<nil>"
	}
	if f.Detail != "" {
		return f.Detail
	}
	return f.StatusTitle()
}

// StatusCode returns the HTTP status code.
func (f *Fault) StatusCode() int { return f.Status }

// StatusTitle returns the title, falling back to the standard status text.
func (f *Fault) StatusTitle() string {
	if f.Title != "" {
		return f.Title
	}
	return http.StatusText(f.Status)
}

// Unwrap returns the underlying cause.
func (f *Fault) Unwrap() error {
	if f == nil {
		return nil
	}
	return f.Err
}

// SetHeaders implements HeaderSetter.
func (f *Fault) SetHeaders(h http.Header) {
	for k, vs := range f.Header {
		for _, v := range vs {
			h.Add(k, v)
		}
	}
}

// Violation describes a single field validation failure.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   any    `json:"value,omitempty"`
}

// Error returns a Fault with the given status and detail.
func Error(status int, detail string) error {
	return &Fault{Status: status, Detail: detail}
}

// Errorf returns a Fault with a formatted detail. A %w verb sets the cause.
func Errorf(status int, format string, args ...any) error {
	err := fmt.Errorf(format, args...)
	return &Fault{Status: status, Detail: err.Error(), Err: errors.Unwrap(err)}
}

// NotFound returns a 404 Fault.
func NotFound(detail string) error {
	return &Fault{Status: http.StatusNotFound, Detail: detail}
}

// ErrorStatus extracts the HTTP status code from an error. Returns
// http.StatusInternalServerError if the error does not implement StatusCoder.
func ErrorStatus(err error) int {
	var sc StatusCoder
	if errors.As(err, &sc) && !isNilValue(sc) {
		return sc.StatusCode()
	}
	return http.StatusInternalServerError
}

// asDomainError finds the DomainError in err's chain. A nil pointer stored
// in an error interface, or a status code that cannot go on the wire,
// does not count: those errors are handled as internal errors.
func asDomainError(err error) (DomainError, bool) {
	var de DomainError
	if !errors.As(err, &de) || isNilValue(de) {
		return nil, false
	}
	if code := de.StatusCode(); code < 100 || code > 999 {
		return nil, false
	}
	return de, true
}

func isNilValue(v any) bool {
	if v == nil {
		return true
	}
	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// PanicError is the unclassified fault recovered from a panicking handler.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string { return fmt.Sprintf("panic: %v", e.Value) }
