// Package dispatch is the request-dispatch layer of a resource-oriented API.
// A Dispatcher resolves the request language, matches the request against an
// optional main endpoint and the registered operations, and turns the result,
// or any failure, into a single JSON-LD response envelope.
//
// Operations are registered with package-level generic functions. Patterns
// use http.ServeMux syntax and are relative to the base path:
//
//	d := dispatch.New(
//	    dispatch.WithBasePath("/api"),
//	    dispatch.WithSite(site),
//	    dispatch.WithEntrypoint(),
//	)
//	dispatch.Get(d, "/books/{id}", getBook)
//
// Typed handlers bind path, query and header tagged fields and a Body field:
//
//	type GetBookReq struct {
//	    ID int `path:"id" minimum:"1"`
//	}
//
// Constraint tags (minLength, maxLength, pattern, enum, minimum, maximum,
// minItems, maxItems) are checked after binding; all violations come back
// together in one 422 Fault.
//
// Precedence is fixed. The language is resolved first from a configurable
// header (X-Locale by default, id 0 when absent). If a main endpoint is
// configured and the path is the base path, with or without a trailing
// slash, the main handler wins over any operation. Otherwise the operation
// table is consulted and a miss is a 404 Fault.
//
// Failures are normalized in two tiers. A DomainError keeps its own status
// and title. Anything else becomes a 500. If an internal error cannot even be
// serialized, Dispatch returns the original error and produces no envelope;
// ServeHTTP then hands it to the EscalationHandler, or panics with it so the
// host's recovery applies.
package dispatch
