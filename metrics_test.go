package dispatch_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/dispatch"
)

func TestMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	d := newDispatcher(
		dispatch.WithMetrics(reg),
		dispatch.WithMainEndpoint(func(context.Context) (any, error) {
			return &mainResource{Name: "root"}, nil
		}),
	)
	dispatch.Get(d, "/ok", func(context.Context, *dispatch.Void) (*mainResource, error) {
		return &mainResource{Name: "ok"}, nil
	})
	dispatch.Get(d, "/boom", func(context.Context, *dispatch.Void) (*mainResource, error) {
		return nil, errors.New("boom")
	})

	dispatchRequest(t, d, http.MethodGet, "/api")
	dispatchRequest(t, d, http.MethodGet, "/api/ok")
	dispatchRequest(t, d, http.MethodGet, "/api/ok")
	dispatchRequest(t, d, http.MethodGet, "/api/missing")
	dispatchRequest(t, d, http.MethodGet, "/api/boom")

	_, err := d.Dispatch(nil)
	require.Error(t, err)

	counter := func(outcome, status string) float64 {
		return testutil.ToFloat64(metricVec(t, reg, outcome, status))
	}

	assert.InDelta(t, 1, counter("main", "200"), 0)
	assert.InDelta(t, 2, counter("operation", "200"), 0)
	assert.InDelta(t, 1, counter("domain_fault", "404"), 0)
	assert.InDelta(t, 1, counter("unclassified_fault", "500"), 0)
	assert.Equal(t, 4, testutil.CollectAndCount(reg, "dispatch_duration_seconds"))
}

// metricVec returns the requests counter child for the given labels by
// re-registering an identical collector and reading the existing one back.
func metricVec(t *testing.T, reg *prometheus.Registry, outcome, status string) prometheus.Counter {
	t.Helper()

	vec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_requests_total",
			Help: "Dispatched requests by terminal outcome and status code.",
		},
		[]string{"outcome", "status"},
	)
	err := reg.Register(vec)

	var are prometheus.AlreadyRegisteredError
	require.ErrorAs(t, err, &are)
	existing, ok := are.ExistingCollector.(*prometheus.CounterVec)
	require.True(t, ok)
	return existing.WithLabelValues(outcome, status)
}
