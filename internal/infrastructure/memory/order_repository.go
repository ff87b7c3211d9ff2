package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	domain "github.com/JulianR23/Vertex-Store/internal/domain/order"
)

// OrderRepository keeps orders in process memory. The write lock is the
// serialization point for transitions.
type OrderRepository struct {
	mu          sync.RWMutex
	orders      map[string]*domain.Order
	byReference map[string]string
	byGateway   map[string]string
}

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{
		orders:      make(map[string]*domain.Order),
		byReference: make(map[string]string),
		byGateway:   make(map[string]string),
	}
}

func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) error {
	_ = ctx
	if order == nil || order.ID == "" {
		return fmt.Errorf("order repository: id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[order.ID]; exists {
		return domain.ErrConflict
	}
	if _, exists := r.byReference[order.Reference]; exists {
		return fmt.Errorf("%w: reference %s", domain.ErrConflict, order.Reference)
	}

	r.orders[order.ID] = order.Clone()
	r.byReference[order.Reference] = order.ID
	if order.GatewayTransactionID != "" {
		r.byGateway[order.GatewayTransactionID] = order.ID
	}
	return nil
}

func (r *OrderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return order.Clone(), nil
}

func (r *OrderRepository) FindByGatewayTransactionID(ctx context.Context, gatewayID string) (*domain.Order, error) {
	return r.findBy(ctx, r.byGateway, gatewayID)
}

func (r *OrderRepository) FindByReference(ctx context.Context, reference string) (*domain.Order, error) {
	return r.findBy(ctx, r.byReference, reference)
}

func (r *OrderRepository) findBy(ctx context.Context, index map[string]string, key string) (*domain.Order, error) {
	_ = ctx
	if key == "" {
		return nil, domain.ErrNotFound
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := index[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return r.orders[id].Clone(), nil
}

func (r *OrderRepository) Transition(ctx context.Context, id string, fn func(*domain.Order) error) (*domain.Order, error) {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}

	working := current.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}
	if err := r.reindexGateway(current, working); err != nil {
		return nil, err
	}
	r.orders[id] = working
	return working.Clone(), nil
}

func (r *OrderRepository) AttachGatewayTransaction(ctx context.Context, id, gatewayID string) (*domain.Order, error) {
	return r.Transition(ctx, id, func(o *domain.Order) error {
		return o.AttachGatewayTransaction(gatewayID)
	})
}

func (r *OrderRepository) reindexGateway(before, after *domain.Order) error {
	if after.GatewayTransactionID == before.GatewayTransactionID || after.GatewayTransactionID == "" {
		return nil
	}
	if owner, taken := r.byGateway[after.GatewayTransactionID]; taken && owner != after.ID {
		return fmt.Errorf("%w: gateway transaction %s", domain.ErrConflict, after.GatewayTransactionID)
	}
	delete(r.byGateway, before.GatewayTransactionID)
	r.byGateway[after.GatewayTransactionID] = after.ID
	return nil
}

func (r *OrderRepository) ListPendingCharges(ctx context.Context, createdBefore time.Time, limit int) ([]*domain.Order, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Order, 0)
	for _, o := range r.orders {
		if o.Status == domain.StatusPending && o.GatewayTransactionID != "" && o.CreatedAt.Before(createdBefore) {
			out = append(out, o.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
