package dispatch

import "context"

// Void is used as a type parameter when a request has no parameters or body.
type Void struct{}

// Handler is the typed operation signature. The dispatcher owns binding and
// serialization, so handlers never see http.ResponseWriter or *http.Request.
type Handler[Req, Resp any] func(ctx context.Context, req *Req) (*Resp, error)

// Invoker executes a matched operation. Errors are returned untouched; the
// dispatcher decides how they become a response.
type Invoker interface {
	Invoke(ctx context.Context, m *Match) (any, error)
}

// InvokerFunc adapts a function to Invoker.
type InvokerFunc func(ctx context.Context, m *Match) (any, error)

// Invoke calls f.
func (f InvokerFunc) Invoke(ctx context.Context, m *Match) (any, error) { return f(ctx, m) }

// MainHandler produces the main endpoint resource. It takes no request
// parameters; the value it returns is serialized as is.
type MainHandler func(ctx context.Context) (any, error)
