package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dompay "github.com/JulianR23/Vertex-Store/internal/domain/payment"
)

type fakeGateway struct {
	t        *testing.T
	lastBody createTransactionRequest
	lastAuth string
	status   int
	delay    time.Duration
}

func (f *fakeGateway) routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/merchants/{key}", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(f.t, "pub_test", chi.URLParam(r, "key"))
		_, _ = w.Write([]byte(`{"data":{"id":1,"presigned_acceptance":{"acceptance_token":"tok-acc","type":"END_USER_POLICY"}}}`))
	})
	r.Post("/transactions", func(w http.ResponseWriter, r *http.Request) {
		f.lastAuth = r.Header.Get("Authorization")
		assert.NoError(f.t, json.NewDecoder(r.Body).Decode(&f.lastBody))
		if f.delay > 0 {
			time.Sleep(f.delay)
		}
		if f.status != 0 {
			w.WriteHeader(f.status)
			_, _ = w.Write([]byte(`{"error":{"type":"INPUT_VALIDATION_ERROR","messages":{"signature":["invalid"]}}}`))
			return
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":"gw-123","reference":"VS-1-AAAA","status":"PENDING","amount_in_cents":1600000,"currency":"COP","payment_method_type":"CARD","created_at":"2025-01-02T03:04:05.000Z"}}`))
	})
	r.Get("/transactions/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.lastAuth = r.Header.Get("Authorization")
		if chi.URLParam(r, "id") != "gw-123" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"data":{"id":"gw-123","status":"APPROVED"}}`))
	})
	return r
}

func newClient(t *testing.T, f *fakeGateway, timeout time.Duration) *Client {
	t.Helper()
	srv := httptest.NewServer(f.routes())
	t.Cleanup(srv.Close)
	return New(Config{
		BaseURL:    srv.URL + "/",
		PublicKey:  "pub_test",
		PrivateKey: "prv_test",
		Timeout:    timeout,
	}, srv.Client(), nil)
}

func chargeRequest() dompay.ChargeRequest {
	return dompay.ChargeRequest{
		AcceptanceToken: "tok-acc",
		Amount:          1_600_000,
		Currency:        "COP",
		CustomerEmail:   "ana@example.com",
		Reference:       "VS-1-AAAA",
		Signature:       "sig",
		PaymentMethod:   dompay.CardPaymentMethod{Token: "tok_card", Installments: 2},
		CustomerIP:      "10.0.0.1",
	}
}

func TestClientHappyPath(t *testing.T) {
	f := &fakeGateway{t: t}
	c := newClient(t, f, time.Second)
	ctx := context.Background()

	token, err := c.FetchAcceptanceToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok-acc", token)

	tx, err := c.CreateCharge(ctx, chargeRequest())
	require.NoError(t, err)
	assert.Equal(t, "gw-123", tx.ID)
	assert.Equal(t, dompay.StatusPending, tx.Status)
	assert.Equal(t, int64(1_600_000), tx.Amount)
	assert.Equal(t, 2025, tx.CreatedAt.Year())

	assert.Equal(t, "Bearer prv_test", f.lastAuth)
	assert.Equal(t, int64(1_600_000), f.lastBody.AmountInCents)
	assert.Equal(t, "CARD", f.lastBody.PaymentMethod.Type)
	assert.Equal(t, "tok_card", f.lastBody.PaymentMethod.Token)
	assert.Equal(t, 2, f.lastBody.PaymentMethod.Installments)
	assert.Equal(t, "sig", f.lastBody.Signature)

	status, err := c.FetchChargeStatus(ctx, "gw-123")
	require.NoError(t, err)
	assert.Equal(t, dompay.StatusApproved, status)
	assert.Equal(t, "Bearer pub_test", f.lastAuth)
}

func TestClientRemoteError(t *testing.T) {
	f := &fakeGateway{t: t, status: http.StatusUnprocessableEntity}
	c := newClient(t, f, time.Second)

	_, err := c.CreateCharge(context.Background(), chargeRequest())
	require.ErrorIs(t, err, dompay.ErrGateway)
	assert.NotErrorIs(t, err, dompay.ErrGatewayTimeout)

	_, err = c.FetchChargeStatus(context.Background(), "missing")
	assert.ErrorIs(t, err, dompay.ErrGateway)
}

func TestClientTimeoutIsIndeterminate(t *testing.T) {
	f := &fakeGateway{t: t, delay: 300 * time.Millisecond}
	c := newClient(t, f, 50*time.Millisecond)

	_, err := c.CreateCharge(context.Background(), chargeRequest())
	assert.ErrorIs(t, err, dompay.ErrGatewayTimeout)
}

func TestClientUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c := New(Config{BaseURL: base, PublicKey: "pub_test", Timeout: time.Second}, nil, nil)
	_, err := c.FetchAcceptanceToken(context.Background())
	assert.ErrorIs(t, err, dompay.ErrGateway)
}
