package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/JulianR23/Vertex-Store/internal/application"
	"github.com/JulianR23/Vertex-Store/internal/domain/customer"
	domain "github.com/JulianR23/Vertex-Store/internal/domain/order"
	domoutbox "github.com/JulianR23/Vertex-Store/internal/domain/outbox"
	"github.com/JulianR23/Vertex-Store/internal/domain/pricing"
	"github.com/JulianR23/Vertex-Store/internal/domain/product"
	"github.com/JulianR23/Vertex-Store/internal/observability"
)

const (
	useCaseOrderCreate   = "order.create"
	maxReferenceAttempts = 3
)

// CreateOrderUseCase places a PENDING order with its delivery for one unit of a product.
type CreateOrderUseCase struct {
	orders    domain.Repository
	products  product.Repository
	customers customer.Repository
	fees      pricing.FeeSchedule
	refs      domain.ReferenceGenerator
	ids       IDGenerator
	publisher domoutbox.Publisher
	details   detailsLoader
	inst      *application.Instrumentation
	now       func() time.Time
}

func NewCreateOrderUseCase(
	orders domain.Repository,
	products product.Repository,
	customers customer.Repository,
	fees pricing.FeeSchedule,
	refs domain.ReferenceGenerator,
	ids IDGenerator,
	publisher domoutbox.Publisher,
	tel observability.Observability,
) *CreateOrderUseCase {
	return &CreateOrderUseCase{
		orders:    orders,
		products:  products,
		customers: customers,
		fees:      fees,
		refs:      refs,
		ids:       ids,
		publisher: publisher,
		details:   detailsLoader{products: products, customers: customers},
		inst:      application.NewInstrumentation(tel, orderService, useCaseOrderCreate),
		now:       time.Now,
	}
}

// Execute validates the request, prices it from the catalog and stores the order and
// its delivery in one atomic unit.
func (uc *CreateOrderUseCase) Execute(ctx context.Context, cmd CreateOrderInput) (_ *OrderDetails, err error) {
	ctx, run := uc.inst.Begin(ctx, "CreateOrder",
		attribute.String("order.product_id", cmd.ProductID),
	)
	defer func() { run.End(err) }()

	if err := cmd.Validate(uc.now()); err != nil {
		run.Fail("VALIDATION_FAILED")
		return nil, err
	}

	inStock, err := uc.products.HasStock(ctx, cmd.ProductID)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			run.Fail("PRODUCT_NOT_FOUND")
			return nil, err
		}
		run.Fail("STOCK_LOOKUP_FAILED")
		return nil, wrapRepositoryError(err)
	}
	if !inStock {
		run.Fail("OUT_OF_STOCK")
		return nil, fmt.Errorf("%w: %s", product.ErrOutOfStock, cmd.ProductID)
	}

	item, err := uc.products.Get(ctx, cmd.ProductID)
	if err != nil {
		run.Fail("PRODUCT_LOOKUP_FAILED")
		return nil, wrapRepositoryError(err)
	}

	buyer, created, err := uc.customers.FindOrCreate(ctx, customer.New(
		uc.ids.NewID(),
		strings.TrimSpace(cmd.Customer.FullName),
		cmd.Customer.Email,
		strings.TrimSpace(cmd.Customer.PhoneNumber),
		strings.TrimSpace(cmd.Customer.DocumentNumber),
	))
	if err != nil {
		run.Fail("CUSTOMER_UPSERT_FAILED")
		return nil, wrapRepositoryError(err)
	}
	run.Span().SetAttributes(
		attribute.String("order.customer_id", buyer.ID),
		attribute.Bool("customer.created", created),
	)

	quote, err := uc.fees.Quote(item.Price)
	if err != nil {
		run.Fail("PRICING_FAILED")
		return nil, fmt.Errorf("order: price: %w", err)
	}

	recipient := strings.TrimSpace(cmd.Delivery.RecipientName)
	if recipient == "" {
		recipient = buyer.FullName
	}
	address := domain.Address{
		AddressLine:   strings.TrimSpace(cmd.Delivery.AddressLine),
		City:          strings.TrimSpace(cmd.Delivery.City),
		Department:    strings.TrimSpace(cmd.Delivery.Department),
		PostalCode:    strings.TrimSpace(cmd.Delivery.PostalCode),
		RecipientName: recipient,
	}

	var entity *domain.Order
	for attempt := 1; ; attempt++ {
		entity, err = domain.New(domain.NewParams{
			ID:           uc.ids.NewID(),
			DeliveryID:   uc.ids.NewID(),
			Reference:    uc.refs.NewReference(),
			ProductID:    item.ID,
			CustomerID:   buyer.ID,
			Quote:        quote,
			Card:         domain.MaskCard(cmd.Card.Number),
			Installments: cmd.Card.Installments,
			Address:      address,
		})
		if err != nil {
			run.Fail("DOMAIN_CONSTRUCTION_FAILED")
			return nil, fmt.Errorf("order: construct: %w", err)
		}

		err = uc.orders.Create(ctx, entity)
		if err == nil {
			break
		}
		if errors.Is(err, domain.ErrConflict) && attempt < maxReferenceAttempts {
			run.Log.Warn("order_reference_collision",
				observability.F("reference", entity.Reference),
				observability.F("attempt", attempt),
			)
			continue
		}
		if errors.Is(err, domain.ErrConflict) {
			run.Fail("REFERENCE_CONFLICT")
		} else {
			run.Fail("REPO_CREATE_FAILED")
		}
		return nil, wrapRepositoryError(err)
	}
	run.Annotate(
		observability.F("order_id", entity.ID),
		observability.F("reference", entity.Reference),
	)

	result, rerr := uc.reread(ctx, entity.ID)
	if rerr != nil {
		// The order is committed; answer with what was just written.
		result = &OrderDetails{Order: entity, Product: item, Customer: buyer}
		run.Status = "REREAD_FAILED"
		run.Log.Warn("order_reread_failed",
			observability.F("order_id", entity.ID),
			observability.F("error", rerr.Error()),
		)
	}

	run.Publish(ctx, uc.publisher, domain.NewOrderCreatedEvent(entity))

	run.Span().SetAttributes(attribute.String("order.status", string(entity.Status)))
	run.Span().AddEvent("order.created",
		trace.WithAttributes(
			attribute.String("order.id", entity.ID),
			attribute.String("order.reference", entity.Reference),
		),
	)
	return result, nil
}

func (uc *CreateOrderUseCase) reread(ctx context.Context, id string) (*OrderDetails, error) {
	stored, err := uc.orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return uc.details.load(ctx, stored)
}
