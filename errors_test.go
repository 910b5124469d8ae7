package dispatch_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/dispatch"
)

func TestFault(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		fault     *dispatch.Fault
		wantMsg   string
		wantTitle string
	}{
		"detail wins": {
			fault:     &dispatch.Fault{Status: http.StatusConflict, Detail: "already taken"},
			wantMsg:   "already taken",
			wantTitle: "Conflict",
		},
		"title only": {
			fault:     &dispatch.Fault{Status: http.StatusForbidden, Title: "No Entry"},
			wantMsg:   "No Entry",
			wantTitle: "No Entry",
		},
		"status only": {
			fault:     &dispatch.Fault{Status: http.StatusNotFound},
			wantMsg:   "Not Found",
			wantTitle: "Not Found",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.wantMsg, tc.fault.Error())
			assert.Equal(t, tc.wantTitle, tc.fault.StatusTitle())
			assert.Equal(t, tc.fault.Status, tc.fault.StatusCode())

			var de dispatch.DomainError
			assert.ErrorAs(t, tc.fault, &de)
		})
	}
}

func TestErrorf_wraps_cause(t *testing.T) {
	t.Parallel()

	cause := errors.New("row locked")
	err := dispatch.Errorf(http.StatusConflict, "save book %d: %w", 7, cause)

	require.ErrorIs(t, err, cause)
	assert.Equal(t, "save book 7: row locked", err.Error())
	assert.Equal(t, http.StatusConflict, dispatch.ErrorStatus(err))
}

func TestErrorStatus(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		err  error
		want int
	}{
		"fault":         {err: dispatch.Error(http.StatusGone, "gone"), want: http.StatusGone},
		"not found":     {err: dispatch.NotFound("missing"), want: http.StatusNotFound},
		"wrapped fault": {err: fmt.Errorf("outer: %w", dispatch.Error(http.StatusTeapot, "tea")), want: http.StatusTeapot},
		"plain error":   {err: errors.New("boom"), want: http.StatusInternalServerError},
		"panic":         {err: &dispatch.PanicError{Value: "boom"}, want: http.StatusInternalServerError},
		"nil fault":     {err: (*dispatch.Fault)(nil), want: http.StatusInternalServerError},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, dispatch.ErrorStatus(tc.err))
		})
	}
}

func TestFault_SetHeaders(t *testing.T) {
	t.Parallel()

	f := &dispatch.Fault{
		Status: http.StatusServiceUnavailable,
		Header: http.Header{"Retry-After": []string{"30"}},
	}

	h := make(http.Header)
	f.SetHeaders(h)
	assert.Equal(t, "30", h.Get("Retry-After"))
}

func TestPanicError(t *testing.T) {
	t.Parallel()

	err := &dispatch.PanicError{Value: 42}
	assert.Equal(t, "panic: 42", err.Error())

	var de dispatch.DomainError
	assert.False(t, errors.As(error(err), &de))
}
