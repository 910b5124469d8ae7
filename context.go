package dispatch

import (
	"context"
	"net/http"
)

type contextKey[T any] struct{}

// SetValue stores a typed value in the request context. For use in middleware.
func SetValue[T any](r *http.Request, val T) *http.Request {
	ctx := context.WithValue(r.Context(), contextKey[T]{}, val)
	return r.WithContext(ctx)
}

// GetValue retrieves a typed value from the request context. For use in handlers.
func GetValue[T any](ctx context.Context) (T, bool) {
	val, ok := ctx.Value(contextKey[T]{}).(T)
	return val, ok
}

// RequestContext is the per-request view the pipeline hands downstream.
// It is attached once, after language resolution, and never modified.
type RequestContext struct {
	Method   string
	Path     string
	Header   http.Header
	Language SiteLanguage
}

// RequestFromContext returns the RequestContext attached by the dispatcher.
func RequestFromContext(ctx context.Context) (*RequestContext, bool) {
	return GetValue[*RequestContext](ctx)
}

// LanguageFromContext returns the language resolved for the current request.
func LanguageFromContext(ctx context.Context) (SiteLanguage, bool) {
	rc, ok := RequestFromContext(ctx)
	if !ok {
		return SiteLanguage{}, false
	}
	return rc.Language, true
}

// WithSiteContext attaches the Site used for language lookup to r. Hosts
// serving several sites call this before handing r to the dispatcher.
func WithSiteContext(r *http.Request, site Site) *http.Request {
	return SetValue[Site](r, site)
}

// SiteFromContext returns the Site attached with WithSiteContext.
func SiteFromContext(ctx context.Context) (Site, bool) {
	site, ok := GetValue[Site](ctx)
	return site, ok && site != nil
}
