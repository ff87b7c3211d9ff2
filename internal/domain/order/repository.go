package order

import (
	"context"
	"time"
)

type Repository interface {
	// Create stores the order and its delivery in one atomic unit. A duplicate
	// reference fails with ErrConflict.
	Create(ctx context.Context, order *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	FindByGatewayTransactionID(ctx context.Context, gatewayID string) (*Order, error)
	FindByReference(ctx context.Context, reference string) (*Order, error)
	// Transition loads the order exclusively, applies fn and persists status, gateway id,
	// failure reason and delivery status together. Concurrent callers are serialized per order.
	Transition(ctx context.Context, id string, fn func(*Order) error) (*Order, error)
	AttachGatewayTransaction(ctx context.Context, id, gatewayID string) (*Order, error)
	// ListPendingCharges returns PENDING orders that carry a gateway transaction id and
	// were created before the given time, oldest first.
	ListPendingCharges(ctx context.Context, createdBefore time.Time, limit int) ([]*Order, error)
}
