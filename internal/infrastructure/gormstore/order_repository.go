package gormstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domain "github.com/JulianR23/Vertex-Store/internal/domain/order"
)

type OrderRepository struct {
	db *gorm.DB
}

var _ domain.Repository = (*OrderRepository)(nil)

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create inserts the order and its delivery in one transaction.
func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) error {
	m := toOrderModel(order)
	delivery := m.Delivery
	m.Delivery = nil

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&m).Error; err != nil {
			return err
		}
		if delivery != nil {
			if err := tx.Create(delivery).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if isDuplicate(err) {
		return fmt.Errorf("%w: reference %s", domain.ErrConflict, order.Reference)
	}
	if err != nil {
		return fmt.Errorf("order repository: create: %w", err)
	}
	return nil
}

func (r *OrderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	return r.findOne(r.db.WithContext(ctx), "id = ?", id)
}

func (r *OrderRepository) FindByGatewayTransactionID(ctx context.Context, gatewayID string) (*domain.Order, error) {
	if gatewayID == "" {
		return nil, domain.ErrNotFound
	}
	return r.findOne(r.db.WithContext(ctx), "gateway_transaction_id = ?", gatewayID)
}

func (r *OrderRepository) FindByReference(ctx context.Context, reference string) (*domain.Order, error) {
	if reference == "" {
		return nil, domain.ErrNotFound
	}
	return r.findOne(r.db.WithContext(ctx), "reference = ?", reference)
}

func (r *OrderRepository) findOne(db *gorm.DB, query string, arg any) (*domain.Order, error) {
	var m orderModel
	err := db.Preload("Delivery").First(&m, query, arg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("order repository: find: %w", err)
	}
	return m.toDomain(), nil
}

// Transition locks the order row (SELECT ... FOR UPDATE), applies fn and writes the
// result back. The UPDATE is also guarded by the status read under the lock, so
// dialects without row locks still cannot apply two transitions.
func (r *OrderRepository) Transition(ctx context.Context, id string, fn func(*domain.Order) error) (*domain.Order, error) {
	var updated *domain.Order
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := r.findOne(tx.Clauses(clause.Locking{Strength: "UPDATE"}), "id = ?", id)
		if err != nil {
			return err
		}
		before := current.Clone()
		if err := fn(current); err != nil {
			return err
		}

		res := tx.Model(&orderModel{}).
			Where("id = ? AND status = ?", id, string(before.Status)).
			Updates(map[string]any{
				"status":                 string(current.Status),
				"gateway_transaction_id": nullable(current.GatewayTransactionID),
				"failure_reason":         current.FailureReason,
				"updated_at":             current.UpdatedAt,
			})
		if res.Error != nil {
			if isDuplicate(res.Error) {
				return fmt.Errorf("%w: gateway transaction %s", domain.ErrConflict, current.GatewayTransactionID)
			}
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: order %s changed concurrently", domain.ErrInvalidTransition, id)
		}

		if d := current.Delivery; d != nil && before.Delivery != nil && d.Status != before.Delivery.Status {
			err := tx.Model(&deliveryModel{}).
				Where("id = ?", d.ID).
				Updates(map[string]any{"status": string(d.Status), "updated_at": d.UpdatedAt}).Error
			if err != nil {
				return err
			}
		}
		updated = current
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrInvalidTransition) ||
			errors.Is(err, domain.ErrConflict) || errors.Is(err, domain.ErrInvalidStatus) {
			return nil, err
		}
		return nil, fmt.Errorf("order repository: transition: %w", err)
	}
	return updated, nil
}

func (r *OrderRepository) AttachGatewayTransaction(ctx context.Context, id, gatewayID string) (*domain.Order, error) {
	return r.Transition(ctx, id, func(o *domain.Order) error {
		return o.AttachGatewayTransaction(gatewayID)
	})
}

func (r *OrderRepository) ListPendingCharges(ctx context.Context, createdBefore time.Time, limit int) ([]*domain.Order, error) {
	q := r.db.WithContext(ctx).
		Preload("Delivery").
		Where("status = ? AND gateway_transaction_id IS NOT NULL AND created_at < ?", string(domain.StatusPending), createdBefore.UTC()).
		Order("created_at")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []orderModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("order repository: list pending: %w", err)
	}
	out := make([]*domain.Order, 0, len(rows))
	for _, m := range rows {
		out = append(out, m.toDomain())
	}
	return out, nil
}
