package order

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/JulianR23/Vertex-Store/internal/application"
	"github.com/JulianR23/Vertex-Store/internal/domain/customer"
	domain "github.com/JulianR23/Vertex-Store/internal/domain/order"
	domoutbox "github.com/JulianR23/Vertex-Store/internal/domain/outbox"
	"github.com/JulianR23/Vertex-Store/internal/domain/product"
	"github.com/JulianR23/Vertex-Store/internal/observability"
)

const useCaseOrderUpdateStatus = "order.update_status"

type UpdateStatusInput struct {
	OrderID              string
	Status               domain.Status
	GatewayTransactionID string
	FailureReason        string
}

// UpdateStatusUseCase moves a PENDING order to its final status. It is the only
// writer of order status; the webhook reconciler and the poller go through it.
type UpdateStatusUseCase struct {
	orders    domain.Repository
	stock     product.StockLedger
	publisher domoutbox.Publisher
	details   detailsLoader
	inst      *application.Instrumentation
}

func NewUpdateStatusUseCase(
	orders domain.Repository,
	products product.Repository,
	customers customer.Repository,
	publisher domoutbox.Publisher,
	tel observability.Observability,
) *UpdateStatusUseCase {
	if tel == nil {
		tel = observability.Nop()
	}
	return &UpdateStatusUseCase{
		orders:    orders,
		stock:     products,
		publisher: publisher,
		details:   detailsLoader{products: products, customers: customers},
		inst:      application.NewInstrumentation(tel, orderService, useCaseOrderUpdateStatus),
	}
}

func (uc *UpdateStatusUseCase) Execute(ctx context.Context, cmd UpdateStatusInput) (_ *OrderDetails, err error) {
	ctx, run := uc.inst.Begin(ctx, "UpdateOrderStatus",
		attribute.String("order.id", cmd.OrderID),
		attribute.String("order.target_status", string(cmd.Status)),
	)
	run.Annotate(
		observability.F("order_id", cmd.OrderID),
		observability.F("target_status", string(cmd.Status)),
	)
	defer func() { run.End(err) }()

	if cmd.OrderID == "" {
		run.Fail("ORDER_ID_REQUIRED")
		return nil, application.Invalid("orderId", "is required")
	}
	if !cmd.Status.Terminal() {
		run.Fail("INVALID_TRANSITION")
		return nil, fmt.Errorf("%w: target %q is not a final status", domain.ErrInvalidTransition, cmd.Status)
	}

	updated, err := uc.orders.Transition(ctx, cmd.OrderID, func(o *domain.Order) error {
		return o.Transition(cmd.Status, cmd.GatewayTransactionID, cmd.FailureReason)
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			run.Fail("ORDER_NOT_FOUND")
		case errors.Is(err, domain.ErrInvalidTransition):
			run.Fail("INVALID_TRANSITION")
		default:
			run.Fail("REPO_TRANSITION_FAILED")
		}
		return nil, wrapRepositoryError(err)
	}

	if updated.Status == domain.StatusApproved {
		if _, derr := uc.stock.DecrementStock(ctx, updated.ProductID); derr != nil {
			uc.reportAnomaly(ctx, run, updated, derr)
		}
	}

	run.Publish(ctx, uc.publisher, domain.NewOrderStatusChangedEvent(updated))
	run.Span().AddEvent("order.status_changed",
		trace.WithAttributes(attribute.String("order.status", string(updated.Status))),
	)

	details, derr := uc.details.load(ctx, updated)
	if derr != nil {
		run.Status = "REREAD_FAILED"
		run.Log.Warn("order_reread_failed",
			observability.F("order_id", updated.ID),
			observability.F("error", derr.Error()),
		)
		return &OrderDetails{Order: updated}, nil
	}
	return details, nil
}

// reportAnomaly records an approved order whose stock could not be taken. The
// payment already went through, so the order stays APPROVED. Counting happens in
// the Worker that consumes the published event.
func (uc *UpdateStatusUseCase) reportAnomaly(ctx context.Context, run *application.Run, o *domain.Order, cause error) {
	run.Status = "STOCK_ANOMALY"
	run.Span().RecordError(cause)
	run.Log.Error("stock_anomaly",
		observability.F("order_id", o.ID),
		observability.F("product_id", o.ProductID),
		observability.F("error", cause.Error()),
	)
	run.Publish(ctx, uc.publisher, domain.NewStockAnomalyEvent(o, cause.Error()))
}
