package order

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/JulianR23/Vertex-Store/internal/application"
	"github.com/JulianR23/Vertex-Store/internal/domain/customer"
	domain "github.com/JulianR23/Vertex-Store/internal/domain/order"
	"github.com/JulianR23/Vertex-Store/internal/domain/product"
	"github.com/JulianR23/Vertex-Store/internal/observability"
)

const useCaseOrderGet = "order.get"

type GetOrderUseCase struct {
	orders  domain.Repository
	details detailsLoader
	inst    *application.Instrumentation
}

func NewGetOrderUseCase(
	orders domain.Repository,
	products product.Repository,
	customers customer.Repository,
	tel observability.Observability,
) *GetOrderUseCase {
	return &GetOrderUseCase{
		orders:  orders,
		details: detailsLoader{products: products, customers: customers},
		inst:    application.NewInstrumentation(tel, orderService, useCaseOrderGet),
	}
}

func (uc *GetOrderUseCase) Execute(ctx context.Context, id string) (_ *OrderDetails, err error) {
	ctx, run := uc.inst.Begin(ctx, "GetOrder", attribute.String("order.id", id))
	defer func() { run.End(err) }()

	if id == "" {
		run.Fail("ORDER_ID_REQUIRED")
		return nil, application.Invalid("id", "is required")
	}

	o, err := uc.orders.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			run.Fail("ORDER_NOT_FOUND")
		} else {
			run.Fail("ORDER_LOOKUP_FAILED")
		}
		return nil, wrapRepositoryError(err)
	}

	details, err := uc.details.load(ctx, o)
	if err != nil {
		run.Fail("DETAILS_LOOKUP_FAILED")
		return nil, fmt.Errorf("%w: %w", ErrRepository, err)
	}
	return details, nil
}
