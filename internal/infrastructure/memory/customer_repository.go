package memory

import (
	"context"
	"sync"

	domain "github.com/JulianR23/Vertex-Store/internal/domain/customer"
)

type CustomerRepository struct {
	mu      sync.RWMutex
	byID    map[string]*domain.Customer
	byEmail map[string]string
}

func NewCustomerRepository() *CustomerRepository {
	return &CustomerRepository{
		byID:    make(map[string]*domain.Customer),
		byEmail: make(map[string]string),
	}
}

func (r *CustomerRepository) FindOrCreate(ctx context.Context, c *domain.Customer) (*domain.Customer, bool, error) {
	_ = ctx
	email := domain.NormalizeEmail(c.Email)

	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byEmail[email]; ok {
		return r.byID[id].Clone(), false, nil
	}
	stored := c.Clone()
	stored.Email = email
	r.byID[stored.ID] = stored
	r.byEmail[email] = stored.ID
	return stored.Clone(), true, nil
}

func (r *CustomerRepository) Get(ctx context.Context, id string) (*domain.Customer, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return c.Clone(), nil
}
