package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/JulianR23/Vertex-Store/internal/application"
	"github.com/JulianR23/Vertex-Store/internal/domain/customer"
	domorder "github.com/JulianR23/Vertex-Store/internal/domain/order"
	dompay "github.com/JulianR23/Vertex-Store/internal/domain/payment"
	"github.com/JulianR23/Vertex-Store/internal/observability"
)

const useCaseCharge = "payment.charge"

type ChargeOrderInput struct {
	OrderID      string
	CardToken    string
	Installments int
	CustomerIP   string
}

type ChargeOrderResult struct {
	OrderID              string
	Reference            string
	GatewayTransactionID string
	GatewayStatus        dompay.Status
}

// ChargeOrderUseCase asks the gateway to charge a PENDING order and remembers the
// gateway transaction id. The final status arrives later via webhook or poller.
type ChargeOrderUseCase struct {
	orders    domorder.Repository
	customers customer.Repository
	gateway   dompay.Gateway
	signer    dompay.Signer
	timeout   time.Duration
	inst      *application.Instrumentation
}

func NewChargeOrderUseCase(
	orders domorder.Repository,
	customers customer.Repository,
	gateway dompay.Gateway,
	signer dompay.Signer,
	timeout time.Duration,
	tel observability.Observability,
) *ChargeOrderUseCase {
	return &ChargeOrderUseCase{
		orders:    orders,
		customers: customers,
		gateway:   gateway,
		signer:    signer,
		timeout:   timeout,
		inst:      application.NewInstrumentation(tel, paymentService, useCaseCharge),
	}
}

func (uc *ChargeOrderUseCase) Execute(ctx context.Context, cmd ChargeOrderInput) (_ *ChargeOrderResult, err error) {
	ctx, run := uc.inst.Begin(ctx, "ChargeOrder", attribute.String("order.id", cmd.OrderID))
	run.Annotate(observability.F("order_id", cmd.OrderID))
	defer func() { run.End(err) }()

	if cmd.OrderID == "" {
		run.Fail("ORDER_ID_REQUIRED")
		return nil, application.Invalid("orderId", "is required")
	}
	if cmd.CardToken == "" {
		run.Fail("CARD_TOKEN_REQUIRED")
		return nil, application.Invalid("cardToken", "is required")
	}
	if cmd.Installments < 0 || cmd.Installments > domorder.MaxInstallments {
		run.Fail("INSTALLMENTS_INVALID")
		return nil, application.Invalid("installments", "must be between 1 and %d", domorder.MaxInstallments)
	}

	o, err := uc.orders.Get(ctx, cmd.OrderID)
	if err != nil {
		if errors.Is(err, domorder.ErrNotFound) {
			run.Fail("ORDER_NOT_FOUND")
		} else {
			run.Fail("ORDER_LOOKUP_FAILED")
		}
		return nil, err
	}
	if o.Status != domorder.StatusPending {
		run.Fail("ORDER_NOT_PENDING")
		return nil, fmt.Errorf("%w: order is %s", domorder.ErrInvalidTransition, o.Status)
	}
	if o.GatewayTransactionID != "" {
		run.Status = "ALREADY_CHARGED"
		return &ChargeOrderResult{
			OrderID:              o.ID,
			Reference:            o.Reference,
			GatewayTransactionID: o.GatewayTransactionID,
			GatewayStatus:        dompay.StatusPending,
		}, nil
	}

	installments := cmd.Installments
	if installments == 0 {
		installments = max(o.Installments, 1)
	}

	buyer, err := uc.customers.Get(ctx, o.CustomerID)
	if err != nil {
		run.Fail("CUSTOMER_LOOKUP_FAILED")
		return nil, fmt.Errorf("payment: load customer: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	token, err := uc.gateway.FetchAcceptanceToken(callCtx)
	if err != nil {
		run.Fail(gatewayStatus("ACCEPTANCE_TOKEN", err))
		return nil, err
	}

	tx, err := uc.gateway.CreateCharge(callCtx, dompay.ChargeRequest{
		AcceptanceToken: token,
		Amount:          o.Total,
		Currency:        o.Currency,
		CustomerEmail:   buyer.Email,
		Reference:       o.Reference,
		Signature:       uc.signer.ChargeSignature(o.Reference, o.Total, o.Currency),
		PaymentMethod:   dompay.CardPaymentMethod{Token: cmd.CardToken, Installments: installments},
		CustomerIP:      cmd.CustomerIP,
	})
	if err != nil {
		// A timed out charge may still exist at the gateway; the order stays PENDING.
		run.Fail(gatewayStatus("CHARGE", err))
		return nil, err
	}

	if _, err := uc.orders.AttachGatewayTransaction(ctx, o.ID, tx.ID); err != nil {
		run.Fail("ATTACH_GATEWAY_ID_FAILED")
		run.Log.Error("gateway_charge_unattached",
			observability.F("order_id", o.ID),
			observability.F("gateway_transaction_id", tx.ID),
			observability.F("error", err.Error()),
		)
		return nil, err
	}

	run.Annotate(
		observability.F("gateway_transaction_id", tx.ID),
		observability.F("gateway_status", string(tx.Status)),
	)
	run.Span().AddEvent("payment.charge_created", trace.WithAttributes(
		attribute.String("gateway.transaction_id", tx.ID),
		attribute.String("gateway.status", string(tx.Status)),
	))
	return &ChargeOrderResult{
		OrderID:              o.ID,
		Reference:            o.Reference,
		GatewayTransactionID: tx.ID,
		GatewayStatus:        tx.Status,
	}, nil
}

func gatewayStatus(step string, err error) string {
	if errors.Is(err, dompay.ErrGatewayTimeout) {
		return step + "_TIMEOUT"
	}
	return step + "_FAILED"
}
