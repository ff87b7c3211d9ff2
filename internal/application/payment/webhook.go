package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/JulianR23/Vertex-Store/internal/application"
	apporder "github.com/JulianR23/Vertex-Store/internal/application/order"
	domorder "github.com/JulianR23/Vertex-Store/internal/domain/order"
	dompay "github.com/JulianR23/Vertex-Store/internal/domain/payment"
	"github.com/JulianR23/Vertex-Store/internal/observability"
)

const useCaseWebhook = "payment.webhook"

// ReconcileResult reports what a verified webhook did. It is for logs and tests;
// the gateway always gets the same acknowledgement.
type ReconcileResult struct {
	Outcome string
	OrderID string
	Status  domorder.Status
}

// ReconcileWebhookUseCase applies signed gateway notifications to orders.
type ReconcileWebhookUseCase struct {
	orders  domorder.Repository
	updater StatusUpdater
	signer  dompay.Signer
	journal dompay.EventJournal
	inst    *application.Instrumentation
	events  observability.Counter // webhook_events_total{event,outcome}
	now     func() time.Time
}

// NewReconcileWebhookUseCase wires the reconciler. journal may be nil, in which case
// only the PENDING-only transition rule guards against replays.
func NewReconcileWebhookUseCase(
	orders domorder.Repository,
	updater StatusUpdater,
	signer dompay.Signer,
	journal dompay.EventJournal,
	tel observability.Observability,
) *ReconcileWebhookUseCase {
	if tel == nil {
		tel = observability.Nop()
	}
	return &ReconcileWebhookUseCase{
		orders:  orders,
		updater: updater,
		signer:  signer,
		journal: journal,
		inst:    application.NewInstrumentation(tel, paymentService, useCaseWebhook),
		events:  tel.Metrics().Counter(observability.MWebhookEvents),
		now:     time.Now,
	}
}

// Execute returns an error only for an invalid signature. Every other failure is
// logged and reported through the result outcome.
func (uc *ReconcileWebhookUseCase) Execute(ctx context.Context, evt dompay.WebhookEvent) (_ *ReconcileResult, err error) {
	tx := evt.Data.Transaction
	ctx, run := uc.inst.Begin(ctx, "ReconcileWebhook",
		attribute.String("webhook.event", evt.Event),
		attribute.String("gateway.transaction_id", tx.ID),
		attribute.String("gateway.status", string(tx.Status)),
	)
	result := &ReconcileResult{}
	defer func() {
		outcome := result.Outcome
		if err != nil {
			outcome = "rejected"
		}
		uc.events.Add(1, observability.L("event", evt.Event), observability.L("outcome", outcome))
		run.Annotate(
			observability.F("webhook_event", evt.Event),
			observability.F("webhook_outcome", outcome),
			observability.F("gateway_transaction_id", tx.ID),
			observability.F("reference", tx.Reference),
		)
		run.End(err)
	}()

	if err := uc.signer.VerifyWebhook(evt); err != nil {
		run.Fail("SIGNATURE_INVALID")
		run.Log.Warn("webhook_signature_invalid",
			observability.F("webhook_event", evt.Event),
			observability.F("gateway_transaction_id", tx.ID),
			observability.F("error", err.Error()),
		)
		return nil, err
	}
	checksum := strings.ToLower(strings.TrimSpace(evt.Signature.Checksum))

	if evt.Event != dompay.EventTransactionUpdated {
		result.Outcome = dompay.OutcomeIgnored
		run.Status = "EVENT_IGNORED"
		return result, nil
	}

	if uc.journal != nil {
		prior, seen, jerr := uc.journal.Lookup(ctx, checksum)
		switch {
		case jerr != nil:
			run.Log.Warn("webhook_journal_lookup_failed", observability.F("error", jerr.Error()))
		case seen && prior.Outcome == dompay.OutcomeApplied:
			result.Outcome, result.OrderID = dompay.OutcomeDuplicate, prior.OrderID
			run.Status = "DUPLICATE"
			return result, nil
		}
	}
	defer func() { uc.record(ctx, run, checksum, evt, result) }()

	target, ok := OrderStatusFor(tx.Status)
	if !ok {
		result.Outcome = dompay.OutcomeIgnored
		run.Status = "STATUS_NOT_FINAL"
		return result, nil
	}
	result.Status = target

	o, lerr := uc.resolve(ctx, evt)
	if lerr != nil {
		result.Outcome = dompay.OutcomeUnmatched
		run.Outcome, run.Status = "error", "ORDER_NOT_FOUND"
		run.Log.Warn("webhook_order_not_found",
			observability.F("gateway_transaction_id", tx.ID),
			observability.F("reference", tx.Reference),
			observability.F("error", lerr.Error()),
		)
		return result, nil
	}
	result.OrderID = o.ID

	if !chargedAmountMatches(tx, o) {
		result.Outcome = dompay.OutcomeUnmatched
		run.Outcome, run.Status = "error", "AMOUNT_MISMATCH"
		run.Log.Warn("webhook_amount_mismatch",
			observability.F("order_id", o.ID),
			observability.F("gateway_transaction_id", tx.ID),
			observability.F("amount_in_cents", tx.AmountInCents),
			observability.F("order_total", o.Total),
			observability.F("currency", tx.Currency),
		)
		return result, nil
	}

	_, uerr := uc.updater.Execute(ctx, apporder.UpdateStatusInput{
		OrderID:              o.ID,
		Status:               target,
		GatewayTransactionID: tx.ID,
		FailureReason:        failureReason(tx.Status, ""),
	})
	switch {
	case uerr == nil:
		result.Outcome = dompay.OutcomeApplied
	case errors.Is(uerr, domorder.ErrInvalidTransition):
		result.Outcome = dompay.OutcomeStale
		run.Status = "ORDER_ALREADY_FINAL"
	default:
		result.Outcome = dompay.OutcomeError
		run.Outcome, run.Status = "error", "STATUS_UPDATE_FAILED"
		run.Log.Error("webhook_apply_failed",
			observability.F("order_id", o.ID),
			observability.F("error", uerr.Error()),
		)
	}
	return result, nil
}

// resolve finds the order by gateway transaction id, then by reference. The reference
// is trusted only when the gateway signed it.
func (uc *ReconcileWebhookUseCase) resolve(ctx context.Context, evt dompay.WebhookEvent) (*domorder.Order, error) {
	tx := evt.Data.Transaction
	o, err := uc.orders.FindByGatewayTransactionID(ctx, tx.ID)
	if err == nil {
		return o, nil
	}
	if !errors.Is(err, domorder.ErrNotFound) {
		return nil, err
	}
	if !evt.Signs(dompay.PropertyReference) {
		return nil, fmt.Errorf("%w: reference not signed", domorder.ErrNotFound)
	}
	return uc.orders.FindByReference(ctx, tx.Reference)
}

func chargedAmountMatches(tx dompay.WebhookTransaction, o *domorder.Order) bool {
	if tx.AmountInCents != o.Total {
		return false
	}
	return tx.Currency == "" || strings.EqualFold(tx.Currency, o.Currency)
}

func (uc *ReconcileWebhookUseCase) record(ctx context.Context, run *application.Run, checksum string, evt dompay.WebhookEvent, result *ReconcileResult) {
	if uc.journal == nil {
		return
	}
	tx := evt.Data.Transaction
	err := uc.journal.Record(ctx, dompay.JournalEntry{
		Checksum:      checksum,
		Event:         evt.Event,
		TransactionID: tx.ID,
		Reference:     tx.Reference,
		GatewayStatus: tx.Status,
		OrderID:       result.OrderID,
		Outcome:       result.Outcome,
		ReceivedAt:    uc.now().UTC(),
	})
	if err != nil {
		run.Log.Warn("webhook_journal_record_failed", observability.F("error", err.Error()))
	}
}
