package httppresentation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JulianR23/Vertex-Store/internal/application"
	"github.com/JulianR23/Vertex-Store/internal/application/catalog"
	apporder "github.com/JulianR23/Vertex-Store/internal/application/order"
	apppayment "github.com/JulianR23/Vertex-Store/internal/application/payment"
	domorder "github.com/JulianR23/Vertex-Store/internal/domain/order"
	dompay "github.com/JulianR23/Vertex-Store/internal/domain/payment"
	"github.com/JulianR23/Vertex-Store/internal/domain/pricing"
	"github.com/JulianR23/Vertex-Store/internal/domain/product"
	"github.com/JulianR23/Vertex-Store/internal/infrastructure/id"
	"github.com/JulianR23/Vertex-Store/internal/infrastructure/memory"
	"github.com/JulianR23/Vertex-Store/internal/observability"
)

type useCaseFunc[C any, R any] func(ctx context.Context, cmd C) (R, error)

func (f useCaseFunc[C, R]) Execute(ctx context.Context, cmd C) (R, error) { return f(ctx, cmd) }

func sampleDetails() *apporder.OrderDetails {
	return &apporder.OrderDetails{Order: &domorder.Order{
		ID:            "o-1",
		Reference:     "VS-1-AAAA",
		Status:        domorder.StatusPending,
		ProductAmount: 1_100_000,
		BaseFee:       300_000,
		DeliveryFee:   200_000,
		Total:         1_600_000,
		Currency:      "COP",
		CardBrand:     domorder.CardVisa,
		CardLastFour:  "4242",
		Installments:  2,
		Delivery:      &domorder.Delivery{ID: "d-1", Status: domorder.DeliveryPending},
	}}
}

func serve(t *testing.T, h *Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)
	return rec
}

func TestCreateOrderMapsRequestAndStatus(t *testing.T) {
	t.Parallel()

	var got apporder.CreateOrderInput
	h := NewHandler(UseCases{
		CreateOrder: useCaseFunc[apporder.CreateOrderInput, *apporder.OrderDetails](func(_ context.Context, in apporder.CreateOrderInput) (*apporder.OrderDetails, error) {
			got = in
			return sampleDetails(), nil
		}),
	}, nil, observability.Nop())

	rec := serve(t, h, http.MethodPost, "/orders", `{
		"productId": "p-1",
		"card": {"number": "4242424242424242", "holder": "Ana", "expMonth": "12", "expYear": "2030", "cvc": "123", "installments": 2},
		"customer": {"fullName": "Ana Perez", "email": "ana@example.com", "phoneNumber": "3001234567", "documentNumber": "1020304050"},
		"delivery": {"addressLine": "Calle 1 # 2-3", "city": "Bogota", "department": "Cundinamarca"}
	}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "p-1", got.ProductID)
	assert.Equal(t, 2, got.Card.Installments)
	assert.Equal(t, "ana@example.com", got.Customer.Email)
	assert.Equal(t, "Bogota", got.Delivery.City)
	assert.NotEmpty(t, rec.Header().Get(headerRequestID))

	var body orderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(1_600_000), body.Total)
	assert.Equal(t, "VISA", body.CardBrand)
	assert.Equal(t, 2, body.Installments)
	assert.Equal(t, "PENDING", body.Delivery.Status)
}

func TestCreateOrderRejectsMalformedBody(t *testing.T) {
	t.Parallel()

	h := NewHandler(UseCases{}, nil, nil)
	for _, body := range []string{``, `{"productId": 1}`, `{"unexpected": true}`} {
		rec := serve(t, h, http.MethodPost, "/orders", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestDomainErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "validation", err: application.Invalid("customer.email", "must be a valid email address"), want: http.StatusBadRequest},
		{name: "product_missing", err: product.ErrNotFound, want: http.StatusNotFound},
		{name: "out_of_stock", err: fmt.Errorf("create: %w", product.ErrOutOfStock), want: http.StatusConflict},
		{name: "conflict", err: domorder.ErrConflict, want: http.StatusConflict},
		{name: "invalid_transition", err: domorder.ErrInvalidTransition, want: http.StatusBadRequest},
		{name: "gateway", err: dompay.ErrGateway, want: http.StatusBadGateway},
		{name: "gateway_timeout", err: dompay.ErrGatewayTimeout, want: http.StatusGatewayTimeout},
		{name: "unexpected", err: errors.New("db password rejected"), want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := NewHandler(UseCases{
				GetOrder: useCaseFunc[string, *apporder.OrderDetails](func(context.Context, string) (*apporder.OrderDetails, error) {
					return nil, tt.err
				}),
			}, nil, nil)

			rec := serve(t, h, http.MethodGet, "/orders/o-1", "")
			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusInternalServerError {
				assert.NotContains(t, rec.Body.String(), "password")
				assert.Contains(t, rec.Body.String(), "internal error")
			}
		})
	}
}

func TestValidationErrorCarriesField(t *testing.T) {
	t.Parallel()

	h := NewHandler(UseCases{
		CreateOrder: useCaseFunc[apporder.CreateOrderInput, *apporder.OrderDetails](func(context.Context, apporder.CreateOrderInput) (*apporder.OrderDetails, error) {
			return nil, application.Invalid("card.cvc", "must be 3 or 4 digits")
		}),
	}, nil, nil)

	rec := serve(t, h, http.MethodPost, "/orders", `{"productId":"p-1"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "card.cvc", body.Field)
}

func TestUpdateStatusUsesPathAndNormalizesStatus(t *testing.T) {
	t.Parallel()

	var got apporder.UpdateStatusInput
	h := NewHandler(UseCases{
		UpdateStatus: useCaseFunc[apporder.UpdateStatusInput, *apporder.OrderDetails](func(_ context.Context, in apporder.UpdateStatusInput) (*apporder.OrderDetails, error) {
			got = in
			return sampleDetails(), nil
		}),
	}, nil, nil)

	rec := serve(t, h, http.MethodPatch, "/orders/o-9/status", `{"status":" approved ","gatewayTransactionId":"gw-1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "o-9", got.OrderID)
	assert.Equal(t, domorder.StatusApproved, got.Status)
	assert.Equal(t, "gw-1", got.GatewayTransactionID)
}

func TestChargeResponses(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "accepted", want: http.StatusAccepted},
		{name: "gateway_error", err: dompay.ErrGateway, want: http.StatusBadGateway},
		{name: "gateway_timeout", err: dompay.ErrGatewayTimeout, want: http.StatusGatewayTimeout},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := NewHandler(UseCases{
				ChargeOrder: useCaseFunc[apppayment.ChargeOrderInput, *apppayment.ChargeOrderResult](func(_ context.Context, in apppayment.ChargeOrderInput) (*apppayment.ChargeOrderResult, error) {
					if tt.err != nil {
						return nil, tt.err
					}
					return &apppayment.ChargeOrderResult{OrderID: in.OrderID, GatewayTransactionID: "gw-1", GatewayStatus: dompay.StatusPending}, nil
				}),
			}, nil, nil)

			rec := serve(t, h, http.MethodPost, "/orders/o-1/charge", `{"cardToken":"tok_test_1","installments":1}`)
			assert.Equal(t, tt.want, rec.Code)
			if tt.err == nil {
				assert.Contains(t, rec.Body.String(), `"gatewayTransactionId":"gw-1"`)
			}
		})
	}
}

func TestWebhookAcknowledgement(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		err  error
		want int
	}{
		{name: "applied", body: `{"event":"transaction.updated"}`, want: http.StatusOK},
		{name: "downstream_failure_still_acked", body: `{"event":"transaction.updated"}`, err: errors.New("boom"), want: http.StatusOK},
		{name: "bad_signature", body: `{"event":"transaction.updated"}`, err: dompay.ErrSignatureInvalid, want: http.StatusBadRequest},
		{name: "malformed", body: `{"event":`, want: http.StatusBadRequest},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := NewHandler(UseCases{
				ReconcileEvent: useCaseFunc[dompay.WebhookEvent, *apppayment.ReconcileResult](func(context.Context, dompay.WebhookEvent) (*apppayment.ReconcileResult, error) {
					return &apppayment.ReconcileResult{Outcome: dompay.OutcomeApplied}, tt.err
				}),
			}, nil, nil)

			rec := serve(t, h, http.MethodPost, "/webhooks/payment", tt.body)
			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusOK {
				assert.JSONEq(t, `{"received":true}`, rec.Body.String())
			}
		})
	}
}

func TestHealthAndMetrics(t *testing.T) {
	t.Parallel()

	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("# metrics"))
	})
	h := NewHandler(UseCases{}, metrics, nil)

	rec := serve(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = serve(t, h, http.MethodGet, "/metrics", "")
	assert.Equal(t, "# metrics", rec.Body.String())

	rec = serve(t, h, http.MethodDelete, "/orders/o-1", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

// TestCheckoutFlow drives create, webhook approval and a replayed webhook through
// real use cases on the in-memory stores.
func TestCheckoutFlow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	tel := observability.Nop()

	products := memory.NewProductRepository()
	customers := memory.NewCustomerRepository()
	orders := memory.NewOrderRepository()
	_, err := catalog.Seed(ctx, products)
	require.NoError(t, err)
	productID := catalog.ProductID("AirPods Max")

	fees := pricing.FeeSchedule{BaseFee: 300_000, DeliveryFee: 200_000, Currency: "COP"}
	signer := dompay.NewSigner("test_integrity")
	update := apporder.NewUpdateStatusUseCase(orders, products, customers, nil, tel)
	h := NewHandler(UseCases{
		CreateOrder:    apporder.NewCreateOrderUseCase(orders, products, customers, fees, domorder.NewReferenceGenerator("VS"), id.NewUUIDGenerator(), nil, tel),
		GetOrder:       apporder.NewGetOrderUseCase(orders, products, customers, tel),
		UpdateStatus:   update,
		ReconcileEvent: apppayment.NewReconcileWebhookUseCase(orders, update, signer, nil, tel),
		ListProducts:   catalog.NewListProductsUseCase(products, tel),
		GetProduct:     catalog.NewGetProductUseCase(products, tel),
	}, nil, tel)

	rec := serve(t, h, http.MethodPost, "/orders", fmt.Sprintf(`{
		"productId": %q,
		"card": {"number": "5555555555554444", "holder": "Ana Perez", "expMonth": "12", "expYear": "2030", "cvc": "123"},
		"customer": {"fullName": "Ana Perez", "email": "ana@example.com", "phoneNumber": "3001234567", "documentNumber": "1020304050"},
		"delivery": {"addressLine": "Calle 1 # 2-3", "city": "Bogota", "department": "Cundinamarca"}
	}`, productID))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created orderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, int64(200_500_000), created.Total)
	assert.Equal(t, "MASTERCARD", created.CardBrand)
	assert.Equal(t, "4444", created.CardLastFour)

	evt := dompay.WebhookEvent{
		Event: dompay.EventTransactionUpdated,
		Data: dompay.WebhookData{Transaction: dompay.WebhookTransaction{
			ID:            "gw-42",
			Reference:     created.Reference,
			Status:        dompay.StatusApproved,
			AmountInCents: created.Total,
		}},
		Signature: dompay.WebhookSignature{Properties: []string{
			"transaction.id", "transaction.reference", "transaction.status", "transaction.amount_in_cents",
		}},
		Timestamp: 1_700_000_000,
	}
	evt.Signature.Checksum, err = signer.WebhookChecksum(evt)
	require.NoError(t, err)
	payload, err := json.Marshal(evt)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		rec = serve(t, h, http.MethodPost, "/webhooks/payment", string(payload))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec = serve(t, h, http.MethodGet, "/orders/"+created.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got orderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "APPROVED", got.Status)
	assert.Equal(t, "gw-42", got.GatewayTransactionID)
	assert.Equal(t, "ASSIGNED", got.Delivery.Status)

	rec = serve(t, h, http.MethodGet, "/products/"+productID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var p productResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, 4, p.Stock)

	evt.Signature.Checksum = strings.Repeat("0", 64)
	payload, err = json.Marshal(evt)
	require.NoError(t, err)
	rec = serve(t, h, http.MethodPost, "/webhooks/payment", string(payload))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
