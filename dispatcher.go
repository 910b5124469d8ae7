package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/text/language"
)

// Dispatcher matches requests against the main endpoint and the registered
// operations and turns every outcome into an Envelope. It implements
// http.Handler.
type Dispatcher struct {
	basePath        string
	languageHeader  string
	defaultLanguage int
	site            Site

	main       MainHandler
	entrypoint bool
	mainRoutes *routeTable
	operations *routeTable
	ops        []*Operation

	title   string
	version string

	serializer Serializer
	validator  Validator
	logger     *slog.Logger
	tracer     SpanStarter
	limiter    *rateLimiter
	metrics    *metrics
	escalate   EscalationHandler
	bodyLimit  int64
	timeout    time.Duration

	middleware []Middleware

	mu sync.Mutex
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithBasePath sets the path the API is served under. The main endpoint
// answers on the base path itself; operations are registered beneath it.
func WithBasePath(p string) Option {
	return func(d *Dispatcher) {
		d.basePath = normalizeBasePath(p)
	}
}

// WithLanguageHeader sets the request header carrying the language id.
func WithLanguageHeader(name string) Option {
	return func(d *Dispatcher) {
		d.languageHeader = name
	}
}

// WithDefaultLanguage sets the language id used when the header is absent.
func WithDefaultLanguage(id int) Option {
	return func(d *Dispatcher) {
		d.defaultLanguage = id
	}
}

// WithSite sets the Site used when the request carries none.
func WithSite(s Site) Option {
	return func(d *Dispatcher) {
		d.site = s
	}
}

// WithMainEndpoint configures the handler served on the base path. Without
// it the base path is matched against the operation table like any other.
func WithMainEndpoint(h MainHandler) Option {
	return func(d *Dispatcher) {
		d.main = h
	}
}

// WithEntrypoint serves the built-in entrypoint document on the base path,
// unless WithMainEndpoint sets a handler.
func WithEntrypoint() Option {
	return func(d *Dispatcher) {
		d.entrypoint = true
	}
}

// WithTitle sets the API title (used in OpenAPI spec).
func WithTitle(title string) Option {
	return func(d *Dispatcher) {
		d.title = title
	}
}

// WithVersion sets the API version (used in OpenAPI spec).
func WithVersion(version string) Option {
	return func(d *Dispatcher) {
		d.version = version
	}
}

// WithSerializer replaces the default JSONLD serializer.
func WithSerializer(s Serializer) Option {
	return func(d *Dispatcher) {
		d.serializer = s
	}
}

// WithValidator sets a global request validator for typed operations.
func WithValidator(v Validator) Option {
	return func(d *Dispatcher) {
		d.validator = v
	}
}

// WithLogger sets the logger used for fault reporting.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = l
	}
}

// WithBodyLimit caps request bodies at n bytes. Larger bodies fail
// decoding with a 413 Fault. Zero, the default, means no limit.
func WithBodyLimit(n int64) Option {
	return func(d *Dispatcher) {
		d.bodyLimit = n
	}
}

// WithTimeout bounds the context handed to the main endpoint and to
// operations. A handler returning context.DeadlineExceeded after the
// timeout fires yields a 503 Fault. Zero, the default, sets no deadline.
func WithTimeout(t time.Duration) Option {
	return func(d *Dispatcher) {
		d.timeout = t
	}
}

// SpanStarter is a tracing hook interface for creating spans per request.
// Implement this with your preferred tracing backend (e.g., OpenTelemetry).
type SpanStarter interface {
	StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, func())
}

// WithTracer sets a tracing hook for the dispatcher.
func WithTracer(s SpanStarter) Option {
	return func(d *Dispatcher) {
		d.tracer = s
	}
}

// EscalationHandler receives errors Dispatch could not turn into an
// envelope: ErrHostRequest faults and internal errors whose serialization
// failed. err is the original error.
type EscalationHandler func(w http.ResponseWriter, r *http.Request, err error)

// WithEscalationHandler sets the handler ServeHTTP calls for escalated
// errors. By default ServeHTTP panics with the error, leaving recovery to
// the host (see Recovery).
func WithEscalationHandler(h EscalationHandler) Option {
	return func(d *Dispatcher) {
		d.escalate = h
	}
}

// New creates a Dispatcher with the given options.
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		languageHeader: DefaultLanguageHeader,
		operations:     newRouteTable(),
		serializer:     JSONLD{},
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	if d.main == nil && d.entrypoint {
		d.main = d.serveEntrypoint
	} else {
		d.entrypoint = false
	}
	if d.main != nil {
		d.mainRoutes = newMainTable(d.basePath)
	}
	return d
}

// BasePath returns the normalized base path.
func (d *Dispatcher) BasePath() string { return d.basePath }

// Use adds middleware around ServeHTTP. Middleware is applied in the order added.
func (d *Dispatcher) Use(mw ...Middleware) {
	d.middleware = append(d.middleware, mw...)
}

// ServeHTTP implements http.Handler.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	handler := http.Handler(http.HandlerFunc(d.serve))
	for i := len(d.middleware) - 1; i >= 0; i-- {
		handler = d.middleware[i](handler)
	}
	handler.ServeHTTP(w, req)
}

func (d *Dispatcher) serve(w http.ResponseWriter, r *http.Request) {
	env, err := d.Dispatch(r)
	if err != nil {
		if d.escalate != nil {
			d.escalate(w, r, err)
			return
		}
		panic(err)
	}
	if err := env.Write(w); err != nil {
		d.logger.DebugContext(r.Context(), "write response", "err", err)
	}
}

// Dispatch runs the pipeline for one request. It returns an Envelope for
// every successful or normalized outcome. The returned error is either an
// ErrHostRequest fault or the original internal error whose serialization
// failed; it is never wrapped.
func (d *Dispatcher) Dispatch(r *http.Request) (*Envelope, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: nil request", ErrHostRequest)
	}

	start := time.Now()
	if d.tracer != nil {
		ctx, end := d.tracer.StartSpan(r.Context(), "dispatch", map[string]string{
			"http.method": r.Method,
			"http.path":   r.URL.Path,
		})
		defer end()
		r = r.WithContext(ctx)
	}

	env := newEnvelope()
	kind, err := d.process(r, env)
	d.metrics.observe(kind, env.Status, time.Since(start))
	if err != nil {
		return nil, err
	}
	return env, nil
}

func (d *Dispatcher) process(r *http.Request, env *Envelope) (outcome, error) {
	r, err := d.resolveLanguage(r)
	if errors.Is(err, ErrHostRequest) {
		d.logger.ErrorContext(r.Context(), "host request rejected", "err", err)
		return outcomeFatal, err
	}

	if err == nil {
		if lang, ok := LanguageFromContext(r.Context()); ok && lang.Tag != language.Und {
			env.Header.Set("Content-Language", lang.Tag.String())
		}

		var (
			result any
			kind   outcome
		)
		result, kind, err = d.route(r)
		if err == nil {
			body, serr := d.serializer.Serialize(r.Context(), result)
			if serr == nil {
				env.applyHeaders(result)
				env.Body = body
				return kind, nil
			}
			err = serr
		}
	}

	return d.normalize(r.Context(), env, err)
}

// route applies the precedence rules: rate limit, main endpoint (only when
// configured), then the operation table.
func (d *Dispatcher) route(r *http.Request) (any, outcome, error) {
	if err := d.limiter.allow(r); err != nil {
		return nil, outcomeOperation, err
	}

	if d.bodyLimit > 0 && r.Body != nil {
		r = r.WithContext(r.Context())
		r.Body = http.MaxBytesReader(nil, r.Body, d.bodyLimit)
	}

	if d.mainRoutes != nil {
		if _, ok := d.mainRoutes.match(r); ok {
			res, err := d.invoke(r.Context(), func(ctx context.Context) (any, error) {
				return d.main(ctx)
			})
			return res, outcomeMain, err
		}
	}

	m, ok := d.operations.match(r)
	if !ok {
		return nil, outcomeOperation, NotFound(fmt.Sprintf("no route found for %q %q", r.Method, r.URL.Path))
	}
	res, err := d.invoke(r.Context(), func(ctx context.Context) (any, error) {
		m.Request = m.Request.WithContext(ctx)
		return m.Operation.invoker.Invoke(ctx, m)
	})
	return res, outcomeOperation, err
}

// invoke runs a handler under the configured timeout with panic recovery.
// A handler failing because the timeout expired yields a 503 Fault.
func (d *Dispatcher) invoke(ctx context.Context, fn func(context.Context) (any, error)) (any, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	res, err := call(func() (any, error) { return fn(ctx) })
	if err != nil && errors.Is(err, context.DeadlineExceeded) && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, &Fault{Status: http.StatusServiceUnavailable, Detail: "request timed out", Err: err}
	}
	return res, err
}

// addOperation registers op under the base path.
func (d *Dispatcher) addOperation(op *Operation) {
	d.mu.Lock()
	defer d.mu.Unlock()

	op.Pattern = d.basePath + op.Pattern
	d.operations.add(op.Method+" "+op.Pattern, op)
	d.ops = append(d.ops, op)
}

// Operations returns a snapshot of the registered operation descriptors.
func (d *Dispatcher) Operations() []Operation {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]Operation, len(d.ops))
	for i, op := range d.ops {
		out[i] = op.clone()
	}
	return out
}

// ListenAndServe starts an HTTP server on the given address.
// It blocks until the context is cancelled, then shuts down gracefully.
func (d *Dispatcher) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           d,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
