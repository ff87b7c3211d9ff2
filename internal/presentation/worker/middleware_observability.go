package workerpresentation

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	domorder "github.com/JulianR23/Vertex-Store/internal/domain/order"
	domoutbox "github.com/JulianR23/Vertex-Store/internal/domain/outbox"
	"github.com/JulianR23/Vertex-Store/internal/observability"
	"github.com/JulianR23/Vertex-Store/internal/observability/logctx"
)

// WithEventContext injects a request-scoped logger for background/worker executions.
// Dynamic fields only: trace_id/span_id (if valid), event_id (generated if empty),
// plus caller-provided low-cardinality attributes.
func WithEventContext(
	ctx context.Context,
	base observability.Logger,
	traceID trace.TraceID,
	spanID trace.SpanID,
	attrs map[string]string,
) context.Context {
	if base == nil {
		base = observability.NopLogger()
	}

	fields := make([]observability.Field, 0, 4+len(attrs))

	evtID := attrs["event_id"]
	if evtID == "" {
		evtID = uuid.NewString()
	}
	fields = append(fields, observability.F("event_id", evtID))

	if traceID.IsValid() {
		fields = append(fields, observability.F("trace_id", traceID.String()))
	}
	if spanID.IsValid() {
		fields = append(fields, observability.F("span_id", spanID.String()))
	}

	for k, v := range attrs {
		if k == "event_id" || v == "" {
			continue
		}
		fields = append(fields, observability.F(k, v))
	}

	return logctx.With(ctx, base.With(fields...))
}

// EventDecorator adapts WithEventContext to the outbox bus. The order id is the
// only per-event attribute added.
func EventDecorator(base observability.Logger) func(context.Context, domoutbox.Event) context.Context {
	return func(ctx context.Context, e domoutbox.Event) context.Context {
		sc := trace.SpanContextFromContext(ctx)
		return WithEventContext(ctx, logctx.FromOr(ctx, base), sc.TraceID(), sc.SpanID(), map[string]string{
			"event":    e.EventName(),
			"order_id": orderIDOf(e),
		})
	}
}

func orderIDOf(e domoutbox.Event) string {
	switch evt := e.(type) {
	case domorder.OrderCreatedEvent:
		return evt.OrderID
	case domorder.OrderStatusChangedEvent:
		return evt.OrderID
	case domorder.StockAnomalyEvent:
		return evt.OrderID
	default:
		return ""
	}
}
