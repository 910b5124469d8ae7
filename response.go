package dispatch

import (
	"net/http"
	"strconv"
)

// HeaderSetter is optionally implemented by results and faults to add
// response headers. Content-Type is never overridden.
type HeaderSetter interface {
	SetHeaders(h http.Header)
}

// Envelope is the response the dispatcher hands back to the host. The host
// owns its transmission.
type Envelope struct {
	Status     int
	StatusText string
	Header     http.Header
	Body       []byte
}

// newEnvelope returns a pending 200 envelope with the content type fixed.
func newEnvelope() *Envelope {
	h := make(http.Header)
	h.Set("Content-Type", ContentType)
	return &Envelope{
		Status:     http.StatusOK,
		StatusText: http.StatusText(http.StatusOK),
		Header:     h,
	}
}

func (e *Envelope) setStatus(code int, text string) {
	e.Status = code
	e.StatusText = text
}

// applyHeaders copies headers from v if it is a HeaderSetter.
func (e *Envelope) applyHeaders(v any) {
	hs, ok := v.(HeaderSetter)
	if !ok {
		return
	}
	h := make(http.Header)
	hs.SetHeaders(h)
	h.Del("Content-Type")
	for k, vs := range h {
		for _, val := range vs {
			e.Header.Add(k, val)
		}
	}
}

// Write sends the envelope to w.
func (e *Envelope) Write(w http.ResponseWriter) error {
	for k, vs := range e.Header {
		w.Header()[k] = append([]string(nil), vs...)
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(e.Body)))
	w.WriteHeader(e.Status)
	_, err := w.Write(e.Body)
	return err
}
