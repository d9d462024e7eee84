package metrics

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	eventbus "github.com/hanpama/gqlexpr/internal/eventbus"
	events "github.com/hanpama/gqlexpr/internal/events"
)

func TestCollectorCountsEvents(t *testing.T) {
	eventbus.Use(eventbus.New())
	defer eventbus.Use(nil)

	reg := prometheus.NewRegistry()
	c := New(reg)
	unsubscribe := c.Subscribe()
	defer unsubscribe()

	ctx := context.Background()
	eventbus.Publish(ctx, events.PhaseFinish{Phase: events.PhaseA, Duration: time.Millisecond})
	eventbus.Publish(ctx, events.PhaseFinish{Phase: events.PhaseB, ServiceFields: 3, Duration: time.Millisecond})
	eventbus.Publish(ctx, events.FieldError{Code: "SERVICE_RESOLUTION_FAILED"})
	eventbus.Publish(ctx, events.FieldError{})
	eventbus.Publish(ctx, events.ServiceResolved{Service: "ages"})
	eventbus.Publish(ctx, events.ServiceResolved{Service: "ages", Err: errors.New("down")})
	eventbus.Publish(ctx, events.GraphQLFinish{OperationType: "query", Errors: []error{errors.New("x")}})
	eventbus.Publish(ctx, events.GraphQLFinish{OperationType: "query"})
	eventbus.Publish(ctx, events.HTTPFinish{Status: 200})

	require.Equal(t, 1.0, testutil.ToFloat64(c.operations.WithLabelValues("query", "ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(c.operations.WithLabelValues("query", "error")))
	require.Equal(t, 1.0, testutil.ToFloat64(c.fieldErrors.WithLabelValues("SERVICE_RESOLUTION_FAILED")))
	require.Equal(t, 1.0, testutil.ToFloat64(c.fieldErrors.WithLabelValues("NONE")))
	require.Equal(t, 1.0, testutil.ToFloat64(c.services.WithLabelValues("ages", "error")))
	require.Equal(t, 1.0, testutil.ToFloat64(c.httpRequests.WithLabelValues("200")))
	require.Equal(t, 2, testutil.CollectAndCount(c.phaseDuration))

	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	body := w.Body.String()
	require.True(t, strings.Contains(body, "gqlexpr_deferred_service_fields_sum 3"), body)
}
