package order

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/JulianR23/Vertex-Store/internal/application"
	domain "github.com/JulianR23/Vertex-Store/internal/domain/order"
	domoutbox "github.com/JulianR23/Vertex-Store/internal/domain/outbox"
	"github.com/JulianR23/Vertex-Store/internal/observability"
)

const workerService = "order-worker"

// Worker consumes stock anomaly events from the outbox bus and keeps
// stock_anomalies_total.
type Worker struct {
	subscriber domoutbox.Subscriber
	anomaly    *application.Instrumentation
	anomalies  observability.Counter // stock_anomalies_total{product_id}
}

func NewWorker(subscriber domoutbox.Subscriber, tel observability.Observability) *Worker {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Worker{
		subscriber: subscriber,
		anomaly:    application.NewInstrumentation(tel, workerService, "order.worker.stock_anomaly"),
		anomalies:  tel.Metrics().Counter(observability.MStockAnomalies),
	}
}

func (w *Worker) Start() {
	if w.subscriber == nil {
		return
	}
	w.subscriber.Subscribe(domain.StockAnomalyEvent{}.EventName(), w.handleStockAnomaly)
}

// handleStockAnomaly counts the anomaly per product and leaves an error line for
// the fulfilment team. The order itself is not touched.
func (w *Worker) handleStockAnomaly(ctx context.Context, e domoutbox.Event) (err error) {
	evt, ok := e.(domain.StockAnomalyEvent)
	_, run := w.anomaly.Begin(ctx, "StockAnomaly", attribute.String("event", e.EventName()))
	defer func() { run.End(err) }()
	if !ok {
		run.Outcome, run.Status = "ignored", "UNEXPECTED_PAYLOAD"
		return nil
	}

	run.Span().SetAttributes(
		attribute.String("order.id", evt.OrderID),
		attribute.String("product.id", evt.ProductID),
	)
	w.anomalies.Add(1, observability.L("product_id", evt.ProductID))
	run.Annotate(observability.F("order_id", evt.OrderID))
	run.Log.Error("stock_anomaly_recorded",
		observability.F("product_id", evt.ProductID),
		observability.F("reason", evt.Reason),
		observability.F("occurred_at", evt.OccurredAt),
	)
	return nil
}
