package observability

import (
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"rcavault/core/events"
)

func TestAPIMetricsObserve(t *testing.T) {
	m := API()
	before := testutil.ToFloat64(m.errors.WithLabelValues("/shields/{addr}", http.MethodGet, "404"))
	m.Observe("/shields/{addr}", http.MethodGet, http.StatusNotFound, 3*time.Millisecond)
	m.Observe("/shields/{addr}", http.MethodGet, http.StatusOK, time.Millisecond)
	require.Equal(t, before+1, testutil.ToFloat64(m.errors.WithLabelValues("/shields/{addr}", http.MethodGet, "404")))
	require.GreaterOrEqual(t, testutil.ToFloat64(m.requests.WithLabelValues("/shields/{addr}", http.MethodGet, "success")), 1.0)

	m.RecordThrottle("")
	require.GreaterOrEqual(t, testutil.ToFloat64(m.throttles.WithLabelValues("unknown")), 1.0)
}

func TestEventsCountsEmitted(t *testing.T) {
	m := Events()
	before := testutil.ToFloat64(m.emitted.WithLabelValues(events.TypeClaim))
	var emitter events.Emitter = m
	emitter.Emit(events.Claim{})
	emitter.Emit(nil)
	require.Equal(t, before+1, testutil.ToFloat64(m.emitted.WithLabelValues(events.TypeClaim)))
}
