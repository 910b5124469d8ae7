package dispatch

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
)

// Middleware wraps the handler ServeHTTP builds around Dispatch.
type Middleware func(next http.Handler) http.Handler

// Recovery is the host-side net for what Dispatch cannot answer itself.
//
// Without an EscalationHandler, ServeHTTP panics with the original error
// when a request was unusable or a fault could not be serialized. Recovery
// logs that error and answers with a plain 500, unless the response was
// already started. Other panics are logged with their stack.
// http.ErrAbortHandler is re-raised for net/http to handle. A nil logger
// uses slog.Default.
func Recovery(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := newStatusRecorder(w)
			defer func() {
				v := recover()
				if v == nil {
					return
				}
				if v == http.ErrAbortHandler {
					panic(v)
				}

				if err, ok := v.(error); ok {
					logger.ErrorContext(r.Context(), "escalated error",
						"err", err,
						"host_request", errors.Is(err, ErrHostRequest),
						"method", r.Method,
						"path", r.URL.Path,
					)
				} else {
					logger.ErrorContext(r.Context(), "panic recovered",
						"panic", v,
						"stack", string(debug.Stack()),
						"method", r.Method,
						"path", r.URL.Path,
					)
				}

				if !rec.wroteHeader {
					http.Error(rec, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(rec, r)
		})
	}
}
