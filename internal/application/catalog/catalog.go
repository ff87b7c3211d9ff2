package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/JulianR23/Vertex-Store/internal/application"
	"github.com/JulianR23/Vertex-Store/internal/domain/product"
	"github.com/JulianR23/Vertex-Store/internal/observability"
)

const (
	catalogService     = "catalog-service"
	useCaseProductList = "product.list"
	useCaseProductGet  = "product.get"
)

type ListProductsUseCase struct {
	products product.Repository
	inst     *application.Instrumentation
}

func NewListProductsUseCase(products product.Repository, tel observability.Observability) *ListProductsUseCase {
	return &ListProductsUseCase{
		products: products,
		inst:     application.NewInstrumentation(tel, catalogService, useCaseProductList),
	}
}

func (uc *ListProductsUseCase) Execute(ctx context.Context, _ struct{}) (_ []*product.Product, err error) {
	ctx, run := uc.inst.Begin(ctx, "ListProducts")
	defer func() { run.End(err) }()

	items, err := uc.products.ListActive(ctx)
	if err != nil {
		run.Fail("PRODUCT_LIST_FAILED")
		return nil, err
	}
	run.Annotate(observability.F("count", len(items)))
	return items, nil
}

type GetProductUseCase struct {
	products product.Repository
	inst     *application.Instrumentation
}

func NewGetProductUseCase(products product.Repository, tel observability.Observability) *GetProductUseCase {
	return &GetProductUseCase{
		products: products,
		inst:     application.NewInstrumentation(tel, catalogService, useCaseProductGet),
	}
}

func (uc *GetProductUseCase) Execute(ctx context.Context, id string) (_ *product.Product, err error) {
	ctx, run := uc.inst.Begin(ctx, "GetProduct", attribute.String("product.id", id))
	defer func() { run.End(err) }()

	if _, perr := uuid.Parse(id); perr != nil {
		run.Fail("PRODUCT_ID_INVALID")
		return nil, application.Invalid("id", "must be a UUID")
	}
	p, err := uc.products.Get(ctx, id)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			run.Fail("PRODUCT_NOT_FOUND")
		} else {
			run.Fail("PRODUCT_LOOKUP_FAILED")
		}
		return nil, err
	}
	if !p.Active {
		run.Fail("PRODUCT_INACTIVE")
		return nil, product.ErrNotFound
	}
	return p, nil
}
