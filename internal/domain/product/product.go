package product

import (
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("product: not found")
	ErrOutOfStock   = errors.New("product: out of stock")
	ErrInvalidStock = errors.New("product: stock must be zero or greater")
)

type Product struct {
	ID          string
	Name        string
	Description string
	ImageURL    string
	Price       int64
	Stock       int
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func New(id, name, description, imageURL string, price int64, stock int) (*Product, error) {
	if stock < 0 {
		return nil, ErrInvalidStock
	}
	now := time.Now().UTC()
	return &Product{
		ID:          id,
		Name:        name,
		Description: description,
		ImageURL:    imageURL,
		Price:       price,
		Stock:       stock,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (p *Product) InStock() bool {
	return p.Stock > 0
}

// Take removes one unit. Stores must call it while holding the product exclusively.
func (p *Product) Take() error {
	if p.Stock <= 0 {
		return ErrOutOfStock
	}
	p.Stock--
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (p *Product) Clone() *Product {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}
