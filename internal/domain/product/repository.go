package product

import "context"

// StockLedger guards the per-product inventory counter.
type StockLedger interface {
	HasStock(ctx context.Context, productID string) (bool, error)
	// DecrementStock takes exactly one unit, atomically. It fails with ErrOutOfStock
	// instead of letting the counter go negative.
	DecrementStock(ctx context.Context, productID string) (*Product, error)
}

type Repository interface {
	StockLedger
	Get(ctx context.Context, id string) (*Product, error)
	ListActive(ctx context.Context) ([]*Product, error)
	// Upsert inserts the product or refreshes its catalog fields, keeping the stored stock.
	Upsert(ctx context.Context, p *Product) (*Product, error)
}
