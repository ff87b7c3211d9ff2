package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	domain "github.com/JulianR23/Vertex-Store/internal/domain/product"
)

type ProductRepository struct {
	mu    sync.RWMutex
	items map[string]*domain.Product
}

func NewProductRepository() *ProductRepository {
	return &ProductRepository{items: make(map[string]*domain.Product)}
}

func (r *ProductRepository) Get(ctx context.Context, id string) (*domain.Product, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p.Clone(), nil
}

func (r *ProductRepository) HasStock(ctx context.Context, id string) (bool, error) {
	p, err := r.Get(ctx, id)
	if err != nil {
		return false, err
	}
	return p.InStock(), nil
}

func (r *ProductRepository) DecrementStock(ctx context.Context, id string) (*domain.Product, error) {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if err := p.Take(); err != nil {
		return nil, err
	}
	return p.Clone(), nil
}

func (r *ProductRepository) ListActive(ctx context.Context) ([]*domain.Product, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Product, 0, len(r.items))
	for _, p := range r.items {
		if p.Active {
			out = append(out, p.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *ProductRepository) Upsert(ctx context.Context, p *domain.Product) (*domain.Product, error) {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.items[p.ID]; ok {
		existing.Name = p.Name
		existing.Description = p.Description
		existing.ImageURL = p.ImageURL
		existing.Price = p.Price
		existing.Active = p.Active
		existing.UpdatedAt = time.Now().UTC()
		return existing.Clone(), nil
	}
	r.items[p.ID] = p.Clone()
	return p.Clone(), nil
}
