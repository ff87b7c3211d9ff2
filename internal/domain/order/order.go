package order

import (
	"errors"
	"fmt"
	"time"

	"github.com/JulianR23/Vertex-Store/internal/domain/pricing"
)

var (
	ErrNotFound          = errors.New("order: not found")
	ErrConflict          = errors.New("order: conflict")
	ErrInvalidTransition = errors.New("order: invalid status transition")
	ErrInvalidStatus     = errors.New("order: unknown status")
	ErrInvalidOrder      = errors.New("order: invalid order")
)

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusFailed   Status = "FAILED"
	StatusVoided   Status = "VOIDED"
)

func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusPending, StatusApproved, StatusFailed, StatusVoided:
		return st, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
}

func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusFailed || s == StatusVoided
}

type DeliveryStatus string

const (
	DeliveryPending   DeliveryStatus = "PENDING"
	DeliveryAssigned  DeliveryStatus = "ASSIGNED"
	DeliveryShipped   DeliveryStatus = "SHIPPED"
	DeliveryDelivered DeliveryStatus = "DELIVERED"
	DeliveryCancelled DeliveryStatus = "CANCELLED"
)

type Address struct {
	AddressLine   string
	City          string
	Department    string
	PostalCode    string
	RecipientName string
}

type Delivery struct {
	ID      string
	OrderID string
	Address
	Status    DeliveryStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Order is a single-product purchase. Amounts are fixed when the order is built and
// the status leaves PENDING at most once.
type Order struct {
	ID                   string
	GatewayTransactionID string
	Reference            string
	Status               Status
	ProductAmount        int64
	BaseFee              int64
	DeliveryFee          int64
	Total                int64
	Currency             string
	CardBrand            CardBrand
	CardLastFour         string
	Installments         int
	FailureReason        string
	ProductID            string
	CustomerID           string
	Delivery             *Delivery
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

type NewParams struct {
	ID         string
	DeliveryID string
	Reference  string
	ProductID  string
	CustomerID string
	Quote      pricing.Quote
	Card       Card
	Address    Address
	// Installments defaults to 1 when zero.
	Installments int
}

// MaxInstallments bounds the card installments an order can be charged in.
const MaxInstallments = 36

func New(p NewParams) (*Order, error) {
	switch {
	case p.ID == "" || p.DeliveryID == "":
		return nil, fmt.Errorf("%w: id is required", ErrInvalidOrder)
	case p.Reference == "":
		return nil, fmt.Errorf("%w: reference is required", ErrInvalidOrder)
	case p.ProductID == "" || p.CustomerID == "":
		return nil, fmt.Errorf("%w: product and customer are required", ErrInvalidOrder)
	case p.Quote.Total != pricing.ComputeTotal(p.Quote.ProductAmount, p.Quote.BaseFee, p.Quote.DeliveryFee):
		return nil, fmt.Errorf("%w: total does not match its components", ErrInvalidOrder)
	case p.Installments < 0 || p.Installments > MaxInstallments:
		return nil, fmt.Errorf("%w: installments must be between 1 and %d", ErrInvalidOrder, MaxInstallments)
	}
	installments := p.Installments
	if installments == 0 {
		installments = 1
	}

	now := time.Now().UTC()
	return &Order{
		ID:            p.ID,
		Reference:     p.Reference,
		Status:        StatusPending,
		ProductAmount: p.Quote.ProductAmount,
		BaseFee:       p.Quote.BaseFee,
		DeliveryFee:   p.Quote.DeliveryFee,
		Total:         p.Quote.Total,
		Currency:      p.Quote.Currency,
		CardBrand:     p.Card.Brand,
		CardLastFour:  p.Card.LastFour,
		Installments:  installments,
		ProductID:     p.ProductID,
		CustomerID:    p.CustomerID,
		Delivery: &Delivery{
			ID:        p.DeliveryID,
			OrderID:   p.ID,
			Address:   p.Address,
			Status:    DeliveryPending,
			CreatedAt: now,
			UpdatedAt: now,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Transition moves a PENDING order to the terminal status to. gatewayID and reason
// are recorded when not empty.
func (o *Order) Transition(to Status, gatewayID, reason string) error {
	state, err := stateFor(o.Status)
	if err != nil {
		return err
	}

	var next OrderState
	switch to {
	case StatusApproved:
		next, err = state.OnApproved(o)
	case StatusFailed:
		next, err = state.OnFailed(o, reason)
	case StatusVoided:
		next, err = state.OnVoided(o, reason)
	default:
		err = ErrInvalidTransition
	}
	if err != nil {
		return fmt.Errorf("%w: %s -> %s", err, o.Status, to)
	}

	o.Status = next.Status()
	if gatewayID != "" {
		o.GatewayTransactionID = gatewayID
	}
	o.touch()
	return nil
}

// AttachGatewayTransaction records the gateway charge id of a pending order.
func (o *Order) AttachGatewayTransaction(gatewayID string) error {
	if o.Status != StatusPending {
		return fmt.Errorf("%w: order is %s", ErrInvalidTransition, o.Status)
	}
	if o.GatewayTransactionID != "" && o.GatewayTransactionID != gatewayID {
		return fmt.Errorf("%w: gateway transaction already attached", ErrConflict)
	}
	o.GatewayTransactionID = gatewayID
	o.touch()
	return nil
}

func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	if o.Delivery != nil {
		d := *o.Delivery
		clone.Delivery = &d
	}
	return &clone
}

func (o *Order) touch() {
	o.UpdatedAt = time.Now().UTC()
}

func (d *Delivery) assign() {
	if d == nil || d.Status != DeliveryPending {
		return
	}
	d.Status = DeliveryAssigned
	d.UpdatedAt = time.Now().UTC()
}
