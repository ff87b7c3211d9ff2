package gormstore

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domain "github.com/JulianR23/Vertex-Store/internal/domain/product"
)

type ProductRepository struct {
	db *gorm.DB
}

var _ domain.Repository = (*ProductRepository)(nil)

func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) Get(ctx context.Context, id string) (*domain.Product, error) {
	var m productModel
	err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("product repository: get: %w", err)
	}
	return m.toDomain(), nil
}

func (r *ProductRepository) HasStock(ctx context.Context, id string) (bool, error) {
	p, err := r.Get(ctx, id)
	if err != nil {
		return false, err
	}
	return p.InStock(), nil
}

// DecrementStock is a single conditional UPDATE; zero affected rows means the
// product is missing or already at zero.
func (r *ProductRepository) DecrementStock(ctx context.Context, id string) (*domain.Product, error) {
	res := r.db.WithContext(ctx).
		Model(&productModel{}).
		Where("id = ? AND stock > 0", id).
		Updates(map[string]any{
			"stock":      gorm.Expr("stock - ?", 1),
			"updated_at": r.db.NowFunc(),
		})
	if res.Error != nil {
		return nil, fmt.Errorf("product repository: decrement: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := r.Get(ctx, id); err != nil {
			return nil, err
		}
		return nil, domain.ErrOutOfStock
	}
	return r.Get(ctx, id)
}

func (r *ProductRepository) ListActive(ctx context.Context) ([]*domain.Product, error) {
	var rows []productModel
	if err := r.db.WithContext(ctx).Where("active = ?", true).Order("name").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("product repository: list: %w", err)
	}
	out := make([]*domain.Product, 0, len(rows))
	for _, m := range rows {
		out = append(out, m.toDomain())
	}
	return out, nil
}

// Upsert refreshes catalog fields on conflict and never touches stock.
func (r *ProductRepository) Upsert(ctx context.Context, p *domain.Product) (*domain.Product, error) {
	m := toProductModel(p)
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "description", "image_url", "price", "active", "updated_at"}),
	}).Create(&m).Error
	if err != nil {
		return nil, fmt.Errorf("product repository: upsert: %w", err)
	}
	return r.Get(ctx, p.ID)
}
