package main

import (
	"context"
	"fmt"

	"github.com/JulianR23/Vertex-Store/internal/application/catalog"
	"github.com/JulianR23/Vertex-Store/internal/config"
	"github.com/JulianR23/Vertex-Store/internal/domain/customer"
	domOrder "github.com/JulianR23/Vertex-Store/internal/domain/order"
	"github.com/JulianR23/Vertex-Store/internal/domain/product"
	"github.com/JulianR23/Vertex-Store/internal/infrastructure/gormstore"
	"github.com/JulianR23/Vertex-Store/internal/infrastructure/memory"
)

type stores struct {
	products  product.Repository
	customers customer.Repository
	orders    domOrder.Repository
	close     func() error
}

// openStores builds the repositories for cfg.Driver. The memory driver starts with
// the seeded catalog because nothing outlives the process.
func openStores(ctx context.Context, cfg gormstore.Config) (stores, error) {
	if cfg.Driver == config.DriverMemory {
		s := stores{
			products:  memory.NewProductRepository(),
			customers: memory.NewCustomerRepository(),
			orders:    memory.NewOrderRepository(),
			close:     func() error { return nil },
		}
		if _, err := catalog.Seed(ctx, s.products); err != nil {
			return stores{}, fmt.Errorf("seed memory catalog: %w", err)
		}
		return s, nil
	}

	db, err := gormstore.Open(cfg)
	if err != nil {
		return stores{}, fmt.Errorf("open database: %w", err)
	}
	return stores{
		products:  gormstore.NewProductRepository(db),
		customers: gormstore.NewCustomerRepository(db),
		orders:    gormstore.NewOrderRepository(db),
		close:     func() error { return gormstore.Close(db) },
	}, nil
}
