package dispatch_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/dispatch"
)

func TestGroup(t *testing.T) {
	t.Parallel()

	d := newDispatcher()
	books := d.Group("/books", dispatch.WithGroupTags("books"))
	dispatch.Get(books, "/{id}", func(_ context.Context, req *bookReq) (*bookResp, error) {
		return &bookResp{ID: req.ID}, nil
	}, dispatch.WithTags("read"))

	reviews := books.Group("/{id}/reviews", dispatch.WithGroupTags("reviews"))
	dispatch.Get(reviews, "", func(context.Context, *dispatch.Void) (*[]string, error) {
		return &[]string{"great"}, nil
	})

	env := dispatchRequest(t, d, http.MethodGet, "/api/books/3")
	assert.JSONEq(t, `{"id":3,"fields":"","trace_id":""}`, string(env.Body))

	env = dispatchRequest(t, d, http.MethodGet, "/api/books/3/reviews")
	assert.JSONEq(t, `["great"]`, string(env.Body))

	ops := d.Operations()
	require.Len(t, ops, 2)
	assert.Equal(t, "/api/books/{id}", ops[0].Pattern)
	assert.Equal(t, []string{"books", "read"}, ops[0].Tags)
	assert.Equal(t, "/api/books/{id}/reviews", ops[1].Pattern)
	assert.Equal(t, []string{"books", "reviews"}, ops[1].Tags)
}
