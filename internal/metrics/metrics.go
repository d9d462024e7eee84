// Package metrics exports Prometheus metrics for executions, fed by the
// event bus.
package metrics

import (
	"context"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	eventbus "github.com/hanpama/gqlexpr/internal/eventbus"
	events "github.com/hanpama/gqlexpr/internal/events"
)

const namespace = "gqlexpr"

// Collector holds the execution metrics.
type Collector struct {
	operations    *prometheus.CounterVec
	opDuration    *prometheus.HistogramVec
	phaseDuration *prometheus.HistogramVec
	serviceFields prometheus.Histogram
	fieldErrors   *prometheus.CounterVec
	services      *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
}

// New registers the metrics with reg.
func New(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		operations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Executed operations by type and outcome.",
		}, []string{"type", "outcome"}),
		opDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Operation execution time.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"type"}),
		phaseDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "phase_duration_seconds",
			Help:      "Time spent in each execution phase.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"phase"}),
		serviceFields: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "deferred_service_fields",
			Help:      "Service fields deferred to the second phase per execution.",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100},
		}),
		fieldErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Errors added to results by code.",
		}, []string{"code"}),
		services: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "service_resolutions_total",
			Help:      "Service instances created per execution.",
		}, []string{"service", "outcome"}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by status.",
		}, []string{"status"}),
	}
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Subscribe attaches c to the global event bus.
func (c *Collector) Subscribe() (unsubscribe func()) {
	unsubs := []func(){
		eventbus.Subscribe(func(_ context.Context, e events.GraphQLFinish) {
			result := "ok"
			if len(e.Errors) > 0 {
				result = "error"
			}
			c.operations.WithLabelValues(e.OperationType, result).Inc()
			c.opDuration.WithLabelValues(e.OperationType).Observe(e.Duration.Seconds())
		}),
		eventbus.Subscribe(func(_ context.Context, e events.PhaseFinish) {
			c.phaseDuration.WithLabelValues(string(e.Phase)).Observe(e.Duration.Seconds())
			if e.Phase == events.PhaseB {
				c.serviceFields.Observe(float64(e.ServiceFields))
			}
		}),
		eventbus.Subscribe(func(_ context.Context, e events.FieldError) {
			code := e.Code
			if code == "" {
				code = "NONE"
			}
			c.fieldErrors.WithLabelValues(code).Inc()
		}),
		eventbus.Subscribe(func(_ context.Context, e events.ServiceResolved) {
			c.services.WithLabelValues(e.Service, outcome(e.Err)).Inc()
		}),
		eventbus.Subscribe(func(_ context.Context, e events.HTTPFinish) {
			c.httpRequests.WithLabelValues(strconv.Itoa(e.Status)).Inc()
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

// Handler serves the metrics gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
