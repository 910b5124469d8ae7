package dispatch_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/bjaus/dispatch"
)

var testSite = dispatch.NewSite(
	dispatch.SiteLanguage{ID: 0, Tag: language.English, Title: "English"},
	dispatch.SiteLanguage{ID: 1, Tag: language.German, Title: "Deutsch"},
	dispatch.SiteLanguage{ID: 2, Tag: language.French, Title: "Français"},
)

type errorBody struct {
	Type        string `json:"@type"`
	Title       string `json:"hydra:title"`
	Description string `json:"hydra:description"`
	Status      int    `json:"status"`
}

func newDispatcher(opts ...dispatch.Option) *dispatch.Dispatcher {
	base := []dispatch.Option{
		dispatch.WithBasePath("/api"),
		dispatch.WithSite(testSite),
	}
	return dispatch.New(append(base, opts...)...)
}

func dispatchRequest(t *testing.T, d *dispatch.Dispatcher, method, path string) *dispatch.Envelope {
	t.Helper()
	env, err := d.Dispatch(httptest.NewRequest(method, path, nil))
	require.NoError(t, err)
	require.NotNil(t, env)
	return env
}

func decodeError(t *testing.T, env *dispatch.Envelope) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(env.Body, &body))
	return body
}

type mainResource struct {
	Name string `json:"name"`
}

func TestDispatch_not_found(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		opts   []dispatch.Option
		method string
		path   string
	}{
		"no operations registered": {
			method: http.MethodGet,
			path:   "/api/books/42",
		},
		"path outside base path": {
			method: http.MethodGet,
			path:   "/other",
		},
		"main endpoint configured but not matched": {
			opts: []dispatch.Option{dispatch.WithMainEndpoint(func(context.Context) (any, error) {
				return &mainResource{Name: "root"}, nil
			})},
			method: http.MethodGet,
			path:   "/api/books/42",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			d := newDispatcher(tc.opts...)
			env := dispatchRequest(t, d, tc.method, tc.path)

			assert.Equal(t, http.StatusNotFound, env.Status)
			assert.Equal(t, "Not Found", env.StatusText)
			assert.Equal(t, dispatch.ContentType, env.Header.Get("Content-Type"))

			body := decodeError(t, env)
			assert.Equal(t, "hydra:Error", body.Type)
			assert.Equal(t, http.StatusNotFound, body.Status)
			assert.Contains(t, body.Description, tc.path)
		})
	}
}

func TestDispatch_main_endpoint(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		method string
		path   string
	}{
		"trailing slash": {method: http.MethodGet, path: "/api/"},
		"no slash":       {method: http.MethodGet, path: "/api"},
		"any method":     {method: http.MethodPost, path: "/api/"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var opCalls atomic.Int32
			d := newDispatcher(dispatch.WithMainEndpoint(func(context.Context) (any, error) {
				return &mainResource{Name: "root"}, nil
			}))
			dispatch.Handle(d, tc.method, "/{$}", dispatch.InvokerFunc(func(context.Context, *dispatch.Match) (any, error) {
				opCalls.Add(1)
				return &mainResource{Name: "operation"}, nil
			}))

			env := dispatchRequest(t, d, tc.method, tc.path)

			assert.Equal(t, http.StatusOK, env.Status)
			assert.Equal(t, "OK", env.StatusText)
			assert.JSONEq(t, `{"name":"root"}`, string(env.Body))
			assert.Zero(t, opCalls.Load())
		})
	}
}

func TestDispatch_main_endpoint_not_configured_uses_operations(t *testing.T) {
	t.Parallel()

	d := newDispatcher()
	dispatch.Handle(d, http.MethodGet, "/{$}", dispatch.InvokerFunc(func(context.Context, *dispatch.Match) (any, error) {
		return &mainResource{Name: "operation"}, nil
	}))

	env := dispatchRequest(t, d, http.MethodGet, "/api/")
	assert.Equal(t, http.StatusOK, env.Status)
	assert.JSONEq(t, `{"name":"operation"}`, string(env.Body))

	env = dispatchRequest(t, d, http.MethodGet, "/api")
	assert.Equal(t, http.StatusNotFound, env.Status)
}

func TestDispatch_main_endpoint_fault(t *testing.T) {
	t.Parallel()

	d := newDispatcher(dispatch.WithMainEndpoint(func(context.Context) (any, error) {
		return nil, dispatch.Error(http.StatusServiceUnavailable, "registry offline")
	}))

	env := dispatchRequest(t, d, http.MethodGet, "/api/")
	assert.Equal(t, http.StatusServiceUnavailable, env.Status)
	assert.Equal(t, "registry offline", decodeError(t, env).Description)
}

func TestDispatch_root_base_path(t *testing.T) {
	t.Parallel()

	d := dispatch.New(
		dispatch.WithSite(testSite),
		dispatch.WithMainEndpoint(func(context.Context) (any, error) {
			return &mainResource{Name: "root"}, nil
		}),
	)
	dispatch.Get(d, "/books", func(context.Context, *dispatch.Void) (*mainResource, error) {
		return &mainResource{Name: "books"}, nil
	})

	assert.JSONEq(t, `{"name":"root"}`, string(dispatchRequest(t, d, http.MethodGet, "/").Body))
	assert.JSONEq(t, `{"name":"books"}`, string(dispatchRequest(t, d, http.MethodGet, "/books").Body))
}

func TestDispatch_domain_fault(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		err        error
		wantStatus int
		wantText   string
	}{
		"custom title": {
			err:        &dispatch.Fault{Status: http.StatusForbidden, Title: "Forbidden", Detail: "no access"},
			wantStatus: http.StatusForbidden,
			wantText:   "Forbidden",
		},
		"title from status text": {
			err:        dispatch.Error(http.StatusConflict, "already exists"),
			wantStatus: http.StatusConflict,
			wantText:   "Conflict",
		},
		"wrapped fault": {
			err:        errors.Join(errors.New("context"), &dispatch.Fault{Status: http.StatusGone, Title: "Gone For Good"}),
			wantStatus: http.StatusGone,
			wantText:   "Gone For Good",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			d := newDispatcher()
			dispatch.Get(d, "/books/{id}", func(context.Context, *dispatch.Void) (*dispatch.Void, error) {
				return nil, tc.err
			})

			env := dispatchRequest(t, d, http.MethodGet, "/api/books/1")
			assert.Equal(t, tc.wantStatus, env.Status)
			assert.Equal(t, tc.wantText, env.StatusText)
			assert.Equal(t, dispatch.ContentType, env.Header.Get("Content-Type"))

			body := decodeError(t, env)
			assert.Equal(t, tc.wantStatus, body.Status)
			assert.Equal(t, tc.wantText, body.Title)
		})
	}
}

func TestDispatch_unclassified_fault(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		handler dispatch.Handler[dispatch.Void, mainResource]
	}{
		"plain error": {
			handler: func(context.Context, *dispatch.Void) (*mainResource, error) {
				return nil, errors.New("database password is hunter2")
			},
		},
		"panic": {
			handler: func(context.Context, *dispatch.Void) (*mainResource, error) {
				panic("database password is hunter2")
			},
		},
		"nil fault": {
			handler: func(context.Context, *dispatch.Void) (*mainResource, error) {
				var f *dispatch.Fault
				return nil, f
			},
		},
		"status out of range": {
			handler: func(context.Context, *dispatch.Void) (*mainResource, error) {
				return nil, dispatch.Error(0, "database password is hunter2")
			},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			d := newDispatcher()
			dispatch.Get(d, "/boom", tc.handler)

			env := dispatchRequest(t, d, http.MethodGet, "/api/boom")
			assert.Equal(t, http.StatusInternalServerError, env.Status)
			assert.Equal(t, "Internal Server Error", env.StatusText)
			assert.Equal(t, dispatch.ContentType, env.Header.Get("Content-Type"))
			assert.NotContains(t, string(env.Body), "hunter2")

			body := decodeError(t, env)
			assert.Equal(t, "Internal Server Error", body.Title)
		})
	}
}

func TestDispatch_result_serialization_failure_is_unclassified(t *testing.T) {
	t.Parallel()

	d := newDispatcher()
	dispatch.Get(d, "/chan", func(context.Context, *dispatch.Void) (*chan int, error) {
		ch := make(chan int)
		return &ch, nil
	})

	env := dispatchRequest(t, d, http.MethodGet, "/api/chan")
	assert.Equal(t, http.StatusInternalServerError, env.Status)
}

// failingErrors serializes results but fails on every error value.
var failingErrors = dispatch.SerializerFunc(func(ctx context.Context, v any) ([]byte, error) {
	if _, ok := v.(error); ok {
		return nil, errors.New("serializer misconfigured")
	}
	return dispatch.JSONLD{}.Serialize(ctx, v)
})

func TestDispatch_escalates_original_error(t *testing.T) {
	t.Parallel()

	original := errors.New("original failure")

	d := newDispatcher(dispatch.WithSerializer(failingErrors))
	dispatch.Get(d, "/boom", func(context.Context, *dispatch.Void) (*mainResource, error) {
		return nil, original
	})

	env, err := d.Dispatch(httptest.NewRequest(http.MethodGet, "/api/boom", nil))
	assert.Nil(t, env)
	require.Error(t, err)
	assert.Same(t, original, err)
}

func TestDispatch_escalates_domain_fault_when_serialization_fails(t *testing.T) {
	t.Parallel()

	fault := &dispatch.Fault{Status: http.StatusForbidden}

	d := newDispatcher(dispatch.WithSerializer(failingErrors))
	dispatch.Get(d, "/secret", func(context.Context, *dispatch.Void) (*mainResource, error) {
		return nil, fault
	})

	env, err := d.Dispatch(httptest.NewRequest(http.MethodGet, "/api/secret", nil))
	assert.Nil(t, env)
	assert.Same(t, fault, err)
}

func TestServeHTTP_escalation(t *testing.T) {
	t.Parallel()

	original := errors.New("original failure")
	handler := func(context.Context, *dispatch.Void) (*mainResource, error) {
		return nil, original
	}

	t.Run("panics into host recovery by default", func(t *testing.T) {
		t.Parallel()

		d := newDispatcher(dispatch.WithSerializer(failingErrors))
		d.Use(dispatch.Recovery(nil))
		dispatch.Get(d, "/boom", handler)

		rec := httptest.NewRecorder()
		d.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/boom", nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotEqual(t, dispatch.ContentType, rec.Header().Get("Content-Type"))
	})

	t.Run("panic value is the original error", func(t *testing.T) {
		t.Parallel()

		d := newDispatcher(dispatch.WithSerializer(failingErrors))
		dispatch.Get(d, "/boom", handler)

		assert.PanicsWithValue(t, original, func() {
			d.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/boom", nil))
		})
	})

	t.Run("escalation handler receives the original error", func(t *testing.T) {
		t.Parallel()

		var got error
		d := newDispatcher(
			dispatch.WithSerializer(failingErrors),
			dispatch.WithEscalationHandler(func(w http.ResponseWriter, _ *http.Request, err error) {
				got = err
				w.WriteHeader(http.StatusBadGateway)
			}),
		)
		dispatch.Get(d, "/boom", handler)

		rec := httptest.NewRecorder()
		d.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/boom", nil))

		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Same(t, original, got)
	})
}

func TestServeHTTP_writes_envelope(t *testing.T) {
	t.Parallel()

	d := newDispatcher()
	dispatch.Get(d, "/books/{id}", func(_ context.Context, req *struct {
		ID int `path:"id"`
	}) (*mainResource, error) {
		return &mainResource{Name: "book"}, nil
	})

	srv := httptest.NewServer(d)
	defer srv.Close()

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL+"/api/books/7", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { require.NoError(t, resp.Body.Close()) }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, dispatch.ContentType, resp.Header.Get("Content-Type"))
	assert.Equal(t, "en", resp.Header.Get("Content-Language"))

	var body mainResource
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "book", body.Name)
}

func TestDispatch_idempotent(t *testing.T) {
	t.Parallel()

	d := newDispatcher(dispatch.WithEntrypoint())
	dispatch.Get(d, "/books/{id}", func(_ context.Context, req *struct {
		ID int `path:"id"`
	}) (*mainResource, error) {
		if req.ID > 10 {
			return nil, dispatch.NotFound("no such book")
		}
		return &mainResource{Name: "book"}, nil
	})

	for _, path := range []string{"/api/", "/api/books/1", "/api/books/99", "/api/missing"} {
		first := dispatchRequest(t, d, http.MethodGet, path)
		second := dispatchRequest(t, d, http.MethodGet, path)
		assert.Equal(t, first.Status, second.Status, path)
		assert.JSONEq(t, string(first.Body), string(second.Body), path)
	}
}

type headerResult struct {
	Name string `json:"name"`
}

func (headerResult) SetHeaders(h http.Header) {
	h.Set("ETag", `"v1"`)
	h.Set("Content-Type", "text/plain")
}

func TestDispatch_result_headers(t *testing.T) {
	t.Parallel()

	d := newDispatcher()
	dispatch.Get(d, "/tagged", func(context.Context, *dispatch.Void) (*headerResult, error) {
		return &headerResult{Name: "x"}, nil
	})

	env := dispatchRequest(t, d, http.MethodGet, "/api/tagged")
	assert.Equal(t, `"v1"`, env.Header.Get("ETag"))
	assert.Equal(t, dispatch.ContentType, env.Header.Get("Content-Type"))
}

type recordingTracer struct {
	spans atomic.Int32
	ended atomic.Int32
}

func (r *recordingTracer) StartSpan(ctx context.Context, _ string, _ map[string]string) (context.Context, func()) {
	r.spans.Add(1)
	return ctx, func() { r.ended.Add(1) }
}

func TestDispatch_tracer(t *testing.T) {
	t.Parallel()

	tracer := &recordingTracer{}
	d := newDispatcher(dispatch.WithTracer(tracer))

	dispatchRequest(t, d, http.MethodGet, "/api/missing")

	assert.Equal(t, int32(1), tracer.spans.Load())
	assert.Equal(t, int32(1), tracer.ended.Load())
}
