package dispatch

import (
	"reflect"
	"slices"
)

// Operation describes a registered endpoint. It is built at registration
// time and only read during dispatch.
type Operation struct {
	Method  string
	Pattern string // full ServeMux pattern path, base path included

	Summary     string
	Description string
	Tags        []string
	OperationID string
	Deprecated  bool
	Errors      []int

	reqType  reflect.Type
	respType reflect.Type
	invoker  Invoker
}

// Params returns the wildcard names declared in the pattern, in order.
func (op *Operation) Params() []string {
	return patternParams(op.Pattern)
}

// Invoker returns the handler bound to the operation.
func (op *Operation) Invoker() Invoker { return op.invoker }

// OperationOption configures an operation at registration time.
type OperationOption func(*Operation)

// WithSummary sets the OpenAPI summary for the operation.
func WithSummary(s string) OperationOption {
	return func(op *Operation) {
		op.Summary = s
	}
}

// WithDescription sets the OpenAPI description for the operation.
func WithDescription(d string) OperationOption {
	return func(op *Operation) {
		op.Description = d
	}
}

// WithTags adds OpenAPI tags to the operation.
func WithTags(tags ...string) OperationOption {
	return func(op *Operation) {
		op.Tags = append(op.Tags, tags...)
	}
}

// WithDeprecated marks the operation as deprecated in the OpenAPI spec.
func WithDeprecated() OperationOption {
	return func(op *Operation) {
		op.Deprecated = true
	}
}

// WithErrors declares additional HTTP error status codes for the OpenAPI spec.
func WithErrors(codes ...int) OperationOption {
	return func(op *Operation) {
		op.Errors = append(op.Errors, codes...)
	}
}

// WithOperationID sets a custom OpenAPI operationId.
func WithOperationID(id string) OperationOption {
	return func(op *Operation) {
		op.OperationID = id
	}
}

// clone returns a copy safe to hand out of the registry.
func (op *Operation) clone() Operation {
	c := *op
	c.Tags = slices.Clone(op.Tags)
	c.Errors = slices.Clone(op.Errors)
	return c
}
