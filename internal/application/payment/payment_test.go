package payment

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JulianR23/Vertex-Store/internal/application"
	apporder "github.com/JulianR23/Vertex-Store/internal/application/order"
	domorder "github.com/JulianR23/Vertex-Store/internal/domain/order"
	dompay "github.com/JulianR23/Vertex-Store/internal/domain/payment"
	"github.com/JulianR23/Vertex-Store/internal/domain/pricing"
	"github.com/JulianR23/Vertex-Store/internal/domain/product"
	"github.com/JulianR23/Vertex-Store/internal/infrastructure/id"
	"github.com/JulianR23/Vertex-Store/internal/infrastructure/memory"
	"github.com/JulianR23/Vertex-Store/internal/observability"
)

const (
	integrityKey = "test_integrity_key"
	productID    = "6f1c1f0e-5a55-4b1e-9d7c-0d2b7a9f3c11"
)

type fakeGateway struct {
	mu       sync.Mutex
	charges  []dompay.ChargeRequest
	status   map[string]dompay.Status
	chargeID string
	err      error
	block    bool
}

func (g *fakeGateway) FetchAcceptanceToken(context.Context) (string, error) {
	return "acceptance-token", nil
}

func (g *fakeGateway) CreateCharge(ctx context.Context, req dompay.ChargeRequest) (*dompay.Transaction, error) {
	if g.block {
		<-ctx.Done()
		return nil, fmt.Errorf("%w: %w", dompay.ErrGatewayTimeout, ctx.Err())
	}
	if g.err != nil {
		return nil, g.err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.charges = append(g.charges, req)
	return &dompay.Transaction{ID: g.chargeID, Reference: req.Reference, Status: dompay.StatusPending, Amount: req.Amount, Currency: req.Currency}, nil
}

func (g *fakeGateway) FetchChargeStatus(_ context.Context, gatewayID string) (dompay.Status, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.status[gatewayID]
	if !ok {
		return "", dompay.ErrGateway
	}
	return s, nil
}

type memJournal struct {
	mu      sync.Mutex
	entries map[string]dompay.JournalEntry
}

func (j *memJournal) Lookup(_ context.Context, checksum string) (*dompay.JournalEntry, bool, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	e, ok := j.entries[checksum]
	if !ok {
		return nil, false, nil
	}
	return &e, true, nil
}

func (j *memJournal) Record(_ context.Context, e dompay.JournalEntry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries[e.Checksum] = e
	return nil
}

type fixture struct {
	orders    *memory.OrderRepository
	products  *memory.ProductRepository
	customers *memory.CustomerRepository
	gateway   *fakeGateway
	journal   *memJournal
	create    *apporder.CreateOrderUseCase
	update    *apporder.UpdateStatusUseCase
	charge    *ChargeOrderUseCase
	webhook   *ReconcileWebhookUseCase
	poller    *Poller
}

func newFixture(t *testing.T, stock int) *fixture {
	t.Helper()
	tel := observability.Nop()
	f := &fixture{
		orders:    memory.NewOrderRepository(),
		products:  memory.NewProductRepository(),
		customers: memory.NewCustomerRepository(),
		gateway:   &fakeGateway{chargeID: "gw-1", status: map[string]dompay.Status{}},
		journal:   &memJournal{entries: map[string]dompay.JournalEntry{}},
	}
	p, err := product.New(productID, "AirPods Pro (2nd Generation)", "", "", 1_100_000, stock)
	require.NoError(t, err)
	_, err = f.products.Upsert(context.Background(), p)
	require.NoError(t, err)

	fees := pricing.FeeSchedule{BaseFee: 300_000, DeliveryFee: 200_000, Currency: "COP"}
	signer := dompay.NewSigner(integrityKey)
	f.create = apporder.NewCreateOrderUseCase(f.orders, f.products, f.customers, fees,
		domorder.NewReferenceGenerator(domorder.DefaultReferencePrefix), id.NewUUIDGenerator(), nil, tel)
	f.update = apporder.NewUpdateStatusUseCase(f.orders, f.products, f.customers, nil, tel)
	f.charge = NewChargeOrderUseCase(f.orders, f.customers, f.gateway, signer, 200*time.Millisecond, tel)
	f.webhook = NewReconcileWebhookUseCase(f.orders, f.update, signer, f.journal, tel)
	f.poller = NewPoller(f.orders, f.gateway, f.update, PollerConfig{Concurrency: 2}, tel)
	return f
}

func (f *fixture) placeOrder(t *testing.T) *domorder.Order {
	t.Helper()
	return f.placeOrderWith(t, nil)
}

func (f *fixture) placeOrderWith(t *testing.T, mutate func(*apporder.CreateOrderInput)) *domorder.Order {
	t.Helper()
	in := apporder.CreateOrderInput{
		ProductID: productID,
		Card: apporder.CardInput{
			Number: "5500000000000004", Holder: "Ana Perez",
			ExpMonth: "01", ExpYear: fmt.Sprint(time.Now().Year() + 3), CVC: "123",
		},
		Customer: apporder.CustomerInput{
			FullName: "Ana Perez", Email: "ana@example.com",
			PhoneNumber: "3001234567", DocumentNumber: "1020304050",
		},
		Delivery: apporder.DeliveryInput{
			AddressLine: "Calle 100 # 15-20", City: "Bogota", Department: "Cundinamarca",
		},
	}
	if mutate != nil {
		mutate(&in)
	}
	got, err := f.create.Execute(context.Background(), in)
	require.NoError(t, err)
	return got.Order
}

func signedEvent(t *testing.T, event string, tx dompay.WebhookTransaction) dompay.WebhookEvent {
	t.Helper()
	return signedEventOver(t, event, tx,
		"transaction.id", "transaction.reference", "transaction.status", "transaction.amount_in_cents")
}

func signedEventOver(t *testing.T, event string, tx dompay.WebhookTransaction, properties ...string) dompay.WebhookEvent {
	t.Helper()
	e := dompay.WebhookEvent{
		Event:       event,
		Data:        dompay.WebhookData{Transaction: tx},
		Environment: "test",
		Timestamp:   1_700_000_000,
		Signature:   dompay.WebhookSignature{Properties: properties},
	}
	sum, err := dompay.NewSigner(integrityKey).WebhookChecksum(e)
	require.NoError(t, err)
	e.Signature.Checksum = sum
	return e
}

func (f *fixture) stock(t *testing.T) int {
	t.Helper()
	p, err := f.products.Get(context.Background(), productID)
	require.NoError(t, err)
	return p.Stock
}

func TestChargeAttachesGatewayTransaction(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 5)
	o := f.placeOrder(t)

	res, err := f.charge.Execute(context.Background(), ChargeOrderInput{OrderID: o.ID, CardToken: "tok_test_1"})
	require.NoError(t, err)
	assert.Equal(t, "gw-1", res.GatewayTransactionID)

	require.Len(t, f.gateway.charges, 1)
	req := f.gateway.charges[0]
	assert.Equal(t, int64(1_600_000), req.Amount)
	assert.Equal(t, "COP", req.Currency)
	assert.Equal(t, "acceptance-token", req.AcceptanceToken)
	assert.Equal(t, 1, req.PaymentMethod.Installments)
	assert.Equal(t, dompay.NewSigner(integrityKey).ChargeSignature(o.Reference, 1_600_000, "COP"), req.Signature)

	stored, err := f.orders.Get(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, "gw-1", stored.GatewayTransactionID)
	assert.Equal(t, domorder.StatusPending, stored.Status)

	again, err := f.charge.Execute(context.Background(), ChargeOrderInput{OrderID: o.ID, CardToken: "tok_test_1"})
	require.NoError(t, err)
	assert.Equal(t, "gw-1", again.GatewayTransactionID)
	assert.Len(t, f.gateway.charges, 1)
}

func TestChargeUsesOrderInstallmentsByDefault(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, 5)
	withSix := func(in *apporder.CreateOrderInput) { in.Card.Installments = 6 }

	o := f.placeOrderWith(t, withSix)
	_, err := f.charge.Execute(ctx, ChargeOrderInput{OrderID: o.ID, CardToken: "tok_test_1"})
	require.NoError(t, err)

	f.gateway.chargeID = "gw-2"
	other := f.placeOrderWith(t, withSix)
	_, err = f.charge.Execute(ctx, ChargeOrderInput{OrderID: other.ID, CardToken: "tok_test_2", Installments: 3})
	require.NoError(t, err)

	require.Len(t, f.gateway.charges, 2)
	assert.Equal(t, 6, f.gateway.charges[0].PaymentMethod.Installments)
	assert.Equal(t, 3, f.gateway.charges[1].PaymentMethod.Installments)

	_, err = f.charge.Execute(ctx, ChargeOrderInput{OrderID: o.ID, CardToken: "tok", Installments: domorder.MaxInstallments + 1})
	assert.ErrorIs(t, err, application.ErrValidation)
}

func TestChargeTimeoutLeavesOrderPending(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 5)
	f.gateway.block = true
	o := f.placeOrder(t)

	_, err := f.charge.Execute(context.Background(), ChargeOrderInput{OrderID: o.ID, CardToken: "tok_test_1"})
	assert.ErrorIs(t, err, dompay.ErrGatewayTimeout)

	stored, err := f.orders.Get(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, domorder.StatusPending, stored.Status)
	assert.Empty(t, stored.GatewayTransactionID)
}

func TestChargeGatewayError(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 5)
	f.gateway.err = fmt.Errorf("%w: status 422", dompay.ErrGateway)
	o := f.placeOrder(t)

	_, err := f.charge.Execute(context.Background(), ChargeOrderInput{OrderID: o.ID, CardToken: "tok"})
	assert.ErrorIs(t, err, dompay.ErrGateway)

	_, err = f.charge.Execute(context.Background(), ChargeOrderInput{OrderID: "missing", CardToken: "tok"})
	assert.ErrorIs(t, err, domorder.ErrNotFound)
}

func TestWebhookApprovesOnce(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, 5)
	o := f.placeOrder(t)

	evt := signedEvent(t, dompay.EventTransactionUpdated, dompay.WebhookTransaction{
		ID: "gw-77", Reference: o.Reference, Status: dompay.StatusApproved, AmountInCents: o.Total,
	})

	res, err := f.webhook.Execute(ctx, evt)
	require.NoError(t, err)
	assert.Equal(t, dompay.OutcomeApplied, res.Outcome)
	assert.Equal(t, o.ID, res.OrderID)
	assert.Equal(t, 4, f.stock(t))

	stored, err := f.orders.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domorder.StatusApproved, stored.Status)
	assert.Equal(t, "gw-77", stored.GatewayTransactionID)
	assert.Equal(t, domorder.DeliveryAssigned, stored.Delivery.Status)

	res, err = f.webhook.Execute(ctx, evt)
	require.NoError(t, err)
	assert.Equal(t, dompay.OutcomeDuplicate, res.Outcome)
	assert.Equal(t, 4, f.stock(t))

	// without the journal the PENDING-only rule still holds
	f.journal.entries = map[string]dompay.JournalEntry{}
	res, err = f.webhook.Execute(ctx, evt)
	require.NoError(t, err)
	assert.Equal(t, dompay.OutcomeStale, res.Outcome)
	assert.Equal(t, 4, f.stock(t))
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, 5)
	o := f.placeOrder(t)

	evt := signedEvent(t, dompay.EventTransactionUpdated, dompay.WebhookTransaction{
		ID: "gw-1", Reference: o.Reference, Status: dompay.StatusApproved, AmountInCents: o.Total,
	})
	evt.Data.Transaction.AmountInCents = 1

	_, err := f.webhook.Execute(ctx, evt)
	assert.ErrorIs(t, err, dompay.ErrSignatureInvalid)

	unknown := evt
	unknown.Signature.Properties = []string{"transaction.customer_email"}
	_, err = f.webhook.Execute(ctx, unknown)
	assert.ErrorIs(t, err, dompay.ErrSignatureInvalid)

	stored, err := f.orders.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domorder.StatusPending, stored.Status)
	assert.Equal(t, 5, f.stock(t))
	assert.Empty(t, f.journal.entries)
}

func TestWebhookIgnoresUnsignedReference(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, 5)
	target := f.placeOrder(t)

	// Only id, status and amount are signed, so the reference can be swapped freely.
	evt := signedEventOver(t, dompay.EventTransactionUpdated, dompay.WebhookTransaction{
		ID: "gw-other", Reference: "VS-OTHER-00000000", Status: dompay.StatusApproved, AmountInCents: 100,
	}, "transaction.id", "transaction.status", "transaction.amount_in_cents")
	evt.Data.Transaction.Reference = target.Reference
	require.NoError(t, dompay.NewSigner(integrityKey).VerifyWebhook(evt))

	res, err := f.webhook.Execute(ctx, evt)
	require.NoError(t, err)
	assert.Equal(t, dompay.OutcomeUnmatched, res.Outcome)
	assert.Empty(t, res.OrderID)

	stored, err := f.orders.Get(ctx, target.ID)
	require.NoError(t, err)
	assert.Equal(t, domorder.StatusPending, stored.Status)
	assert.Empty(t, stored.GatewayTransactionID)
	assert.Equal(t, 5, f.stock(t))
}

func TestWebhookRejectsChargeThatDoesNotMatchOrder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tests := []struct {
		name     string
		amount   func(o *domorder.Order) int64
		currency string
	}{
		{name: "amount", amount: func(*domorder.Order) int64 { return 100 }},
		{name: "currency", amount: func(o *domorder.Order) int64 { return o.Total }, currency: "USD"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t, 5)
			o := f.placeOrder(t)
			_, err := f.orders.AttachGatewayTransaction(ctx, o.ID, "gw-1")
			require.NoError(t, err)

			res, err := f.webhook.Execute(ctx, signedEventOver(t, dompay.EventTransactionUpdated, dompay.WebhookTransaction{
				ID: "gw-1", Reference: o.Reference, Status: dompay.StatusApproved,
				AmountInCents: tt.amount(o), Currency: tt.currency,
			}, "transaction.id", "transaction.status", "transaction.amount_in_cents", "transaction.currency"))
			require.NoError(t, err)
			assert.Equal(t, dompay.OutcomeUnmatched, res.Outcome)

			stored, err := f.orders.Get(ctx, o.ID)
			require.NoError(t, err)
			assert.Equal(t, domorder.StatusPending, stored.Status)
			assert.Equal(t, 5, f.stock(t))
		})
	}
}

func TestWebhookOutcomes(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tests := []struct {
		name       string
		event      string
		status     dompay.Status
		reference  string
		want       string
		wantStatus domorder.Status
	}{
		{name: "other_event", event: "nequi_token.updated", status: dompay.StatusApproved, want: dompay.OutcomeIgnored, wantStatus: domorder.StatusPending},
		{name: "still_pending", event: dompay.EventTransactionUpdated, status: dompay.StatusPending, want: dompay.OutcomeIgnored, wantStatus: domorder.StatusPending},
		{name: "declined", event: dompay.EventTransactionUpdated, status: dompay.StatusDeclined, want: dompay.OutcomeApplied, wantStatus: domorder.StatusFailed},
		{name: "error", event: dompay.EventTransactionUpdated, status: dompay.StatusError, want: dompay.OutcomeApplied, wantStatus: domorder.StatusFailed},
		{name: "voided", event: dompay.EventTransactionUpdated, status: dompay.StatusVoided, want: dompay.OutcomeApplied, wantStatus: domorder.StatusVoided},
		{name: "unknown_order", event: dompay.EventTransactionUpdated, status: dompay.StatusApproved, reference: "VS-NOPE-00000000", want: dompay.OutcomeUnmatched, wantStatus: domorder.StatusPending},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t, 5)
			o := f.placeOrder(t)
			ref := o.Reference
			if tt.reference != "" {
				ref = tt.reference
			}

			res, err := f.webhook.Execute(ctx, signedEvent(t, tt.event, dompay.WebhookTransaction{
				ID: "gw-" + tt.name, Reference: ref, Status: tt.status, AmountInCents: o.Total,
			}))
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Outcome)

			stored, err := f.orders.Get(ctx, o.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, stored.Status)
			assert.Equal(t, 5, f.stock(t))
			if tt.wantStatus == domorder.StatusFailed {
				assert.Equal(t, "gateway status "+string(tt.status), stored.FailureReason)
			}
		})
	}
}

func TestPollerSettlesPendingCharges(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, 5)

	approved := f.placeOrder(t)
	_, err := f.orders.AttachGatewayTransaction(ctx, approved.ID, "gw-a")
	require.NoError(t, err)
	waiting := f.placeOrder(t)
	_, err = f.orders.AttachGatewayTransaction(ctx, waiting.ID, "gw-w")
	require.NoError(t, err)
	broken := f.placeOrder(t)
	_, err = f.orders.AttachGatewayTransaction(ctx, broken.ID, "gw-missing")
	require.NoError(t, err)
	f.placeOrder(t) // never charged

	f.gateway.status["gw-a"] = dompay.StatusApproved
	f.gateway.status["gw-w"] = dompay.StatusPending

	settled, err := f.poller.PollOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, settled)
	assert.Equal(t, 4, f.stock(t))

	got, err := f.orders.Get(ctx, approved.ID)
	require.NoError(t, err)
	assert.Equal(t, domorder.StatusApproved, got.Status)
	got, err = f.orders.Get(ctx, waiting.ID)
	require.NoError(t, err)
	assert.Equal(t, domorder.StatusPending, got.Status)

	settled, err = f.poller.PollOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, settled)
}

func TestOrderStatusFor(t *testing.T) {
	t.Parallel()
	for in, want := range map[dompay.Status]domorder.Status{
		dompay.StatusApproved: domorder.StatusApproved,
		dompay.StatusDeclined: domorder.StatusFailed,
		dompay.StatusError:    domorder.StatusFailed,
		dompay.StatusVoided:   domorder.StatusVoided,
	} {
		got, ok := OrderStatusFor(in)
		assert.True(t, ok)
		assert.Equal(t, want, got)
	}
	_, ok := OrderStatusFor(dompay.StatusPending)
	assert.False(t, ok)
}
