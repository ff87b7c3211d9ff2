package gormstore

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	domain "github.com/JulianR23/Vertex-Store/internal/domain/customer"
)

type CustomerRepository struct {
	db *gorm.DB
}

var _ domain.Repository = (*CustomerRepository)(nil)

func NewCustomerRepository(db *gorm.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

func (r *CustomerRepository) FindOrCreate(ctx context.Context, c *domain.Customer) (*domain.Customer, bool, error) {
	email := domain.NormalizeEmail(c.Email)
	if existing, err := r.findByEmail(ctx, email); err == nil {
		return existing, false, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, false, err
	}

	m := toCustomerModel(c)
	err := r.db.WithContext(ctx).Create(&m).Error
	if isDuplicate(err) {
		// lost the race against a concurrent insert for the same email
		existing, ferr := r.findByEmail(ctx, email)
		if ferr != nil {
			return nil, false, fmt.Errorf("%w: %s", domain.ErrConflict, email)
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("customer repository: create: %w", err)
	}
	return m.toDomain(), true, nil
}

func (r *CustomerRepository) Get(ctx context.Context, id string) (*domain.Customer, error) {
	var m customerModel
	err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("customer repository: get: %w", err)
	}
	return m.toDomain(), nil
}

func (r *CustomerRepository) findByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	var m customerModel
	err := r.db.WithContext(ctx).First(&m, "email = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("customer repository: find by email: %w", err)
	}
	return m.toDomain(), nil
}
