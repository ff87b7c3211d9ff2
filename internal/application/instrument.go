package application

import (
	"context"
	"time"

	domoutbox "github.com/JulianR23/Vertex-Store/internal/domain/outbox"
	"github.com/JulianR23/Vertex-Store/internal/observability"
	"github.com/JulianR23/Vertex-Store/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	spanPrefix     = "UC."
	publishPeer    = "outbox"
	publishTimeout = 300 * time.Millisecond
)

// Instrumentation holds the RED instruments and base logger shared by a use case.
// Build it once at construction and call Begin per execution.
type Instrumentation struct {
	tracer  observability.Tracer
	log     observability.Logger
	useCase string

	reqCounter   observability.Counter   // usecase_requests_total{use_case,outcome}
	durHistogram observability.Histogram // usecase_duration_seconds{use_case}
	extCounter   observability.Counter   // external_requests_total{peer,endpoint,outcome}
	extHistogram observability.Histogram // external_request_duration_seconds{peer,endpoint}
}

// NewInstrumentation prebinds the service and use case names. tel may be nil.
func NewInstrumentation(tel observability.Observability, service, useCase string) *Instrumentation {
	if tel == nil {
		tel = observability.Nop()
	}
	m := tel.Metrics()
	return &Instrumentation{
		tracer:       tel.Tracer(),
		log:          tel.Logger().With(observability.F("service", service)),
		useCase:      useCase,
		reqCounter:   m.Counter(observability.MUsecaseRequests),
		durHistogram: m.Histogram(observability.MUsecaseDuration),
		extCounter:   m.Counter(observability.MExternalRequests),
		extHistogram: m.Histogram(observability.MExternalRequestDuration),
	}
}

// Logger returns the base logger with the service field bound.
func (in *Instrumentation) Logger() observability.Logger { return in.log }

// Run tracks one execution. Set Outcome and Status as the flow progresses.
type Run struct {
	in      *Instrumentation
	ctx     context.Context
	span    trace.Span
	start   time.Time
	Log     observability.Logger
	Outcome string
	Status  string
	fields  []observability.Field
}

// Begin starts the span and returns the derived context.
func (in *Instrumentation) Begin(ctx context.Context, spanName string, attrs ...attribute.KeyValue) (context.Context, *Run) {
	attrs = append([]attribute.KeyValue{attribute.String("use_case", in.useCase)}, attrs...)
	ctx, span := in.tracer.Start(ctx, spanPrefix+spanName, attrs...)
	logger := logctx.FromOr(ctx, in.log).With(observability.F("use_case", in.useCase))
	return ctx, &Run{
		in:      in,
		ctx:     ctx,
		span:    span,
		start:   time.Now(),
		Log:     logger,
		Outcome: "success",
		Status:  "OK",
	}
}

// Span exposes the execution span for attributes and events.
func (r *Run) Span() trace.Span { return r.span }

// Fail marks the run as failed with a status code such as "ORDER_LOOKUP_FAILED".
func (r *Run) Fail(status string) {
	r.Outcome, r.Status = "error", status
}

// Annotate adds fields to the final use_case_done line.
func (r *Run) Annotate(fields ...observability.Field) {
	r.fields = append(r.fields, fields...)
}

// External records one outbound call made during the run.
func (r *Run) External(peer, endpoint, outcome string, started time.Time) {
	r.in.extCounter.Add(1,
		observability.L("peer", peer),
		observability.L("endpoint", endpoint),
		observability.L("outcome", outcome),
	)
	r.in.extHistogram.Observe(time.Since(started).Seconds(),
		observability.L("peer", peer),
		observability.L("endpoint", endpoint),
	)
}

// Publish hands e to pub with a short deadline. A failed publish is recorded on the
// run and logged but never fails the use case.
func (r *Run) Publish(ctx context.Context, pub domoutbox.Publisher, e domoutbox.Event) {
	if pub == nil || e == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	started := time.Now()
	outcome := "success"
	err := pub.Publish(pubCtx, e)
	if err == nil && pubCtx.Err() != nil {
		err = pubCtx.Err()
	}
	if err != nil {
		outcome = "error"
		r.span.RecordError(err)
		r.Annotate(observability.F("event_publish_error", err.Error()))
		r.Log.Warn("event_publish_failed",
			observability.F("event", e.EventName()),
			observability.F("error", err.Error()),
		)
	}
	r.External(publishPeer, e.EventName(), outcome, started)
}

// End closes the span, emits RED metrics and logs use_case_done. Call it deferred
// with the named error result.
func (r *Run) End(err error) {
	lat := time.Since(r.start).Seconds()

	if r.span != nil {
		if err != nil {
			r.span.RecordError(err)
			r.span.SetStatus(codes.Error, r.Status)
		} else {
			r.span.SetStatus(codes.Ok, r.Status)
		}
		r.span.End()
	}

	r.in.reqCounter.Add(1,
		observability.L("use_case", r.in.useCase),
		observability.L("outcome", r.Outcome),
	)
	r.in.durHistogram.Observe(lat, observability.L("use_case", r.in.useCase))

	fields := []observability.Field{
		observability.F("outcome", r.Outcome),
		observability.F("status", r.Status),
		observability.F("latency_seconds", lat),
	}
	if sc := trace.SpanContextFromContext(r.ctx); sc.IsValid() {
		fields = append(fields,
			observability.F("trace_id", sc.TraceID().String()),
			observability.F("span_id", sc.SpanID().String()),
		)
	}
	fields = append(fields, r.fields...)
	if err != nil {
		fields = append(fields, observability.F("error", err.Error()))
	}
	r.Log.Info("use_case_done", fields...)
}
