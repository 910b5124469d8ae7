package dispatch

import (
	"context"
	"errors"
	"net/http"
	"runtime/debug"
)

// outcome is the terminal state a request reached.
type outcome int

const (
	outcomeMain outcome = iota
	outcomeOperation
	outcomeDomainFault
	outcomeUnclassified
	outcomeEscalated
	outcomeFatal
)

func (o outcome) String() string {
	switch o {
	case outcomeMain:
		return "main"
	case outcomeOperation:
		return "operation"
	case outcomeDomainFault:
		return "domain_fault"
	case outcomeUnclassified:
		return "unclassified_fault"
	case outcomeEscalated:
		return "escalated"
	case outcomeFatal:
		return "fatal"
	}
	return "unknown"
}

// normalize writes err into env. Domain errors keep their own status and
// title; everything else becomes a 500, including a nil *Fault returned as
// an error and a domain error with an out of range status. If the fault
// cannot be serialized, env is left untouched and the original err is
// returned as is.
func (d *Dispatcher) normalize(ctx context.Context, env *Envelope, err error) (outcome, error) {
	if de, ok := asDomainError(err); ok {
		body, serr := d.serializer.Serialize(ctx, err)
		if serr != nil {
			d.logger.ErrorContext(ctx, "domain fault serialization failed",
				"err", err,
				"serialize_err", serr,
			)
			return outcomeEscalated, err
		}

		env.setStatus(de.StatusCode(), de.StatusTitle())
		env.applyHeaders(de)
		env.Body = body
		d.logger.DebugContext(ctx, "domain fault",
			"status", de.StatusCode(),
			"err", err,
		)
		return outcomeDomainFault, nil
	}

	body, serr := d.serializer.Serialize(ctx, err)
	if serr != nil {
		d.logger.ErrorContext(ctx, "fault serialization failed",
			"err", err,
			"serialize_err", serr,
		)
		return outcomeEscalated, err
	}

	env.setStatus(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
	env.Body = body

	attrs := []any{"err", err}
	var pe *PanicError
	if errors.As(err, &pe) {
		attrs = append(attrs, "stack", string(pe.Stack))
	}
	d.logger.ErrorContext(ctx, "unclassified fault", attrs...)
	return outcomeUnclassified, nil
}

// call runs fn, turning a panic into a *PanicError.
func call(fn func() (any, error)) (result any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			result = nil
			err = &PanicError{Value: rec, Stack: debug.Stack()}
		}
	}()
	return fn()
}
