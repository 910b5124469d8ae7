package dispatch

import (
	"context"
	"errors"
	"net/http"
	"reflect"
)

// Registrar is the interface accepted by the registration functions.
// Both *Dispatcher and *Group implement it.
type Registrar interface {
	addOperation(op *Operation)
	getValidator() Validator
}

func (d *Dispatcher) getValidator() Validator { return d.validator }

// register is the internal generic registration function.
func register[Req, Resp any](reg Registrar, method, pattern string, h Handler[Req, Resp], opts ...OperationOption) {
	op := &Operation{
		Method:   method,
		Pattern:  pattern,
		reqType:  reflect.TypeFor[Req](),
		respType: reflect.TypeFor[Resp](),
	}
	for _, opt := range opts {
		opt(op)
	}

	op.invoker = buildInvoker(h, reg.getValidator())
	reg.addOperation(op)
}

// buildInvoker wraps a typed Handler into an Invoker.
func buildInvoker[Req, Resp any](h Handler[Req, Resp], validator Validator) Invoker {
	return InvokerFunc(func(ctx context.Context, m *Match) (any, error) {
		req, err := decodeRequest[Req](m)
		if err != nil {
			status := http.StatusBadRequest
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				status = http.StatusRequestEntityTooLarge
			}
			return nil, &Fault{Status: status, Detail: err.Error(), Err: err}
		}

		if err := checkConstraints(req); err != nil {
			return nil, err
		}

		if sv, ok := any(req).(SelfValidator); ok {
			if err := sv.Validate(); err != nil {
				return nil, err
			}
		}

		if validator != nil {
			if err := validator.Validate(req); err != nil {
				return nil, err
			}
		}

		resp, err := h(ctx, req)
		if err != nil {
			return nil, err
		}
		return resp, nil
	})
}

// Get registers a GET operation.
func Get[Req, Resp any](reg Registrar, pattern string, h Handler[Req, Resp], opts ...OperationOption) {
	register(reg, http.MethodGet, pattern, h, opts...)
}

// Post registers a POST operation.
func Post[Req, Resp any](reg Registrar, pattern string, h Handler[Req, Resp], opts ...OperationOption) {
	register(reg, http.MethodPost, pattern, h, opts...)
}

// Put registers a PUT operation.
func Put[Req, Resp any](reg Registrar, pattern string, h Handler[Req, Resp], opts ...OperationOption) {
	register(reg, http.MethodPut, pattern, h, opts...)
}

// Patch registers a PATCH operation.
func Patch[Req, Resp any](reg Registrar, pattern string, h Handler[Req, Resp], opts ...OperationOption) {
	register(reg, http.MethodPatch, pattern, h, opts...)
}

// Delete registers a DELETE operation.
func Delete[Req, Resp any](reg Registrar, pattern string, h Handler[Req, Resp], opts ...OperationOption) {
	register(reg, http.MethodDelete, pattern, h, opts...)
}

// Handle registers an untyped Invoker, for operations that need the raw
// Match (path params and *http.Request).
func Handle(reg Registrar, method, pattern string, inv Invoker, opts ...OperationOption) {
	op := &Operation{
		Method:  method,
		Pattern: pattern,
		invoker: inv,
	}
	for _, opt := range opts {
		opt(op)
	}
	reg.addOperation(op)
}
