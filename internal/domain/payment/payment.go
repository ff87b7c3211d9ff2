package payment

import (
	"context"
	"errors"
	"time"
)

var (
	ErrGateway          = errors.New("payment: gateway request failed")
	ErrGatewayTimeout   = errors.New("payment: gateway timed out, outcome unknown")
	ErrSignatureInvalid = errors.New("payment: invalid signature")
	ErrUnknownProperty  = errors.New("payment: unknown signed property")
)

// Status is the transaction status reported by the gateway.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusDeclined Status = "DECLINED"
	StatusVoided   Status = "VOIDED"
	StatusError    Status = "ERROR"
)

func (s Status) Final() bool {
	switch s {
	case StatusApproved, StatusDeclined, StatusVoided, StatusError:
		return true
	default:
		return false
	}
}

type CardPaymentMethod struct {
	Token        string
	Installments int
}

type ChargeRequest struct {
	AcceptanceToken string
	Amount          int64
	Currency        string
	CustomerEmail   string
	Reference       string
	Signature       string
	PaymentMethod   CardPaymentMethod
	CustomerIP      string
}

// Transaction is the gateway's view of a charge.
type Transaction struct {
	ID                string
	Reference         string
	Status            Status
	StatusMessage     string
	Amount            int64
	Currency          string
	PaymentMethodType string
	CreatedAt         time.Time
}

// Gateway is the outbound port to the payment processor. Implementations return
// ErrGateway or ErrGatewayTimeout instead of transport errors.
type Gateway interface {
	FetchAcceptanceToken(ctx context.Context) (string, error)
	CreateCharge(ctx context.Context, req ChargeRequest) (*Transaction, error)
	FetchChargeStatus(ctx context.Context, gatewayID string) (Status, error)
}
