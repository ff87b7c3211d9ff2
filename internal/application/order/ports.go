package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/JulianR23/Vertex-Store/internal/domain/customer"
	domain "github.com/JulianR23/Vertex-Store/internal/domain/order"
	"github.com/JulianR23/Vertex-Store/internal/domain/product"
)

const orderService = "order-service"

var ErrRepository = errors.New("order: repository failure")

type IDGenerator interface {
	NewID() string
}

// OrderDetails is an order together with the product and customer it references.
type OrderDetails struct {
	Order    *domain.Order
	Product  *product.Product
	Customer *customer.Customer
}

type detailsLoader struct {
	products  product.Repository
	customers customer.Repository
}

func (l detailsLoader) load(ctx context.Context, o *domain.Order) (*OrderDetails, error) {
	p, err := l.products.Get(ctx, o.ProductID)
	if err != nil {
		return nil, fmt.Errorf("load product %s: %w", o.ProductID, err)
	}
	c, err := l.customers.Get(ctx, o.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("load customer %s: %w", o.CustomerID, err)
	}
	return &OrderDetails{Order: o, Product: p, Customer: c}, nil
}

func wrapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, product.ErrNotFound),
		errors.Is(err, product.ErrOutOfStock),
		errors.Is(err, customer.ErrConflict):
		return err
	default:
		return fmt.Errorf("%w: %w", ErrRepository, err)
	}
}
