// Package otel turns eventbus events into OpenTelemetry spans.
package otel

import (
	"context"
	"sync"

	eventbus "github.com/hanpama/gqlexpr/internal/eventbus"
	events "github.com/hanpama/gqlexpr/internal/events"
	reqid "github.com/hanpama/gqlexpr/internal/reqid"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Setup configures OpenTelemetry and attaches eventbus subscribers.
// If endpoint is empty, no telemetry is configured.
func Setup(endpoint, service string) (func(context.Context) error, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}
	exp, err := otlptracegrpc.New(context.Background(),
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(service),
		)),
	)
	otel.SetTracerProvider(tp)

	unsubscribe := Subscribe(otel.Tracer("gqlexpr"))
	return func(ctx context.Context) error {
		unsubscribe()
		return tp.Shutdown(ctx)
	}, nil
}

// Subscribe records spans with tracer for events on the global bus:
//
//	http.request
//	  graphql.operation
//	    graphql.phase (compile, phase_a, phase_b)
//	    graphql.service
//
// It returns a function that detaches the subscribers.
func Subscribe(tracer trace.Tracer) (unsubscribe func()) {
	s := &subscriber{tracer: tracer}
	return s.register()
}

type phaseKey struct {
	execution string
	phase     events.Phase
}

type subscriber struct {
	tracer     trace.Tracer
	httpSpans  sync.Map // request id -> trace.Span
	opSpans    sync.Map // execution id -> trace.Span
	reqOps     sync.Map // request id -> trace.Span of the running operation
	phaseSpans sync.Map // phaseKey -> trace.Span
}

func (s *subscriber) parent(ctx context.Context, spans *sync.Map, key any) context.Context {
	if v, ok := spans.Load(key); ok {
		return trace.ContextWithSpan(ctx, v.(trace.Span))
	}
	return ctx
}

func (s *subscriber) register() func() {
	var unsubs []func()
	on := func(u func()) { unsubs = append(unsubs, u) }

	on(eventbus.Subscribe(func(ctx context.Context, e events.HTTPStart) {
		_, span := s.tracer.Start(ctx, "http.request")
		span.SetAttributes(
			semconv.HTTPMethodKey.String(e.Request.Method),
			attribute.String("http.target", e.Request.URL.Path),
			attribute.String("request.id", e.RequestID),
		)
		s.httpSpans.Store(e.RequestID, span)
	}))

	on(eventbus.Subscribe(func(_ context.Context, e events.HTTPFinish) {
		v, ok := s.httpSpans.LoadAndDelete(e.RequestID)
		if !ok {
			return
		}
		span := v.(trace.Span)
		span.SetAttributes(semconv.HTTPStatusCodeKey.Int(e.Status))
		span.End()
	}))

	on(eventbus.Subscribe(func(ctx context.Context, e events.GraphQLStart) {
		rid, hasRID := reqid.FromContext(ctx)
		_, span := s.tracer.Start(s.parent(ctx, &s.httpSpans, rid), "graphql.operation")
		span.SetAttributes(
			attribute.String("graphql.execution.id", e.ExecutionID),
			attribute.String("graphql.operation.name", e.OperationName),
			attribute.String("graphql.operation.type", e.OperationType),
		)
		s.opSpans.Store(e.ExecutionID, span)
		if hasRID {
			s.reqOps.Store(rid, span)
		}
	}))

	on(eventbus.Subscribe(func(ctx context.Context, e events.GraphQLFinish) {
		if rid, ok := reqid.FromContext(ctx); ok {
			s.reqOps.Delete(rid)
		}
		v, ok := s.opSpans.LoadAndDelete(e.ExecutionID)
		if !ok {
			return
		}
		span := v.(trace.Span)
		span.SetAttributes(attribute.Int("graphql.error_count", len(e.Errors)))
		span.End()
	}))

	on(eventbus.Subscribe(func(ctx context.Context, e events.PhaseStart) {
		_, span := s.tracer.Start(s.parent(ctx, &s.opSpans, e.ExecutionID), "graphql.phase")
		span.SetAttributes(attribute.String("graphql.phase", string(e.Phase)))
		s.phaseSpans.Store(phaseKey{e.ExecutionID, e.Phase}, span)
	}))

	on(eventbus.Subscribe(func(ctx context.Context, e events.PhaseFinish) {
		v, ok := s.phaseSpans.LoadAndDelete(phaseKey{e.ExecutionID, e.Phase})
		if !ok {
			return
		}
		span := v.(trace.Span)
		if e.Phase == events.PhaseB {
			span.SetAttributes(attribute.Int("graphql.service_fields", e.ServiceFields))
		}
		if e.Err != nil {
			span.RecordError(e.Err)
			span.SetStatus(codes.Error, e.Err.Error())
		}
		span.End()
	}))

	// Service resolution is reported once it is over, so its span is
	// recorded with explicit timestamps.
	on(eventbus.Subscribe(func(ctx context.Context, e events.ServiceResolved) {
		rid, _ := reqid.FromContext(ctx)
		_, span := s.tracer.Start(s.parent(ctx, &s.reqOps, rid), "graphql.service",
			trace.WithTimestamp(e.Start))
		span.SetAttributes(attribute.String("graphql.service", e.Service))
		if e.Err != nil {
			span.RecordError(e.Err)
			span.SetStatus(codes.Error, e.Err.Error())
		}
		span.End(trace.WithTimestamp(e.Start.Add(e.Duration)))
	}))

	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}
