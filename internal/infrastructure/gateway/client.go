// Package gateway is the HTTP client for the card payment gateway
// (Wompi-compatible wire format).
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	dompay "github.com/JulianR23/Vertex-Store/internal/domain/payment"
	"github.com/JulianR23/Vertex-Store/internal/observability"
	"github.com/JulianR23/Vertex-Store/internal/observability/logctx"
)

const (
	peerGateway      = "payment_gateway"
	maxResponseBytes = 1 << 20
)

type Config struct {
	BaseURL    string
	PublicKey  string
	PrivateKey string
	// Timeout bounds every request on top of any caller deadline.
	Timeout time.Duration
}

// Client talks to the gateway REST API. It holds only read-only configuration
// and is safe for concurrent use.
type Client struct {
	cfg  Config
	http *http.Client
	tel  observability.Observability
	log  observability.Logger

	extCounter   observability.Counter   // external_requests_total{peer,endpoint,outcome}
	extHistogram observability.Histogram // external_request_duration_seconds{peer,endpoint}
}

var _ dompay.Gateway = (*Client)(nil)

func New(cfg Config, httpClient *http.Client, tel observability.Observability) *Client {
	if tel == nil {
		tel = observability.Nop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		cfg:          cfg,
		http:         httpClient,
		tel:          tel,
		log:          tel.Logger().With(observability.F("component", "gateway_client")),
		extCounter:   tel.Metrics().Counter(observability.MExternalRequests),
		extHistogram: tel.Metrics().Histogram(observability.MExternalRequestDuration),
	}
}

type merchantResponse struct {
	Data struct {
		PresignedAcceptance struct {
			AcceptanceToken string `json:"acceptance_token"`
		} `json:"presigned_acceptance"`
	} `json:"data"`
}

type paymentMethod struct {
	Type         string `json:"type"`
	Token        string `json:"token"`
	Installments int    `json:"installments"`
}

type createTransactionRequest struct {
	AcceptanceToken   string        `json:"acceptance_token"`
	AmountInCents     int64         `json:"amount_in_cents"`
	Currency          string        `json:"currency"`
	CustomerEmail     string        `json:"customer_email"`
	Reference         string        `json:"reference"`
	Signature         string        `json:"signature"`
	PaymentMethodType string        `json:"payment_method_type"`
	PaymentMethod     paymentMethod `json:"payment_method"`
	IP                string        `json:"ip,omitempty"`
}

type transactionData struct {
	ID                string        `json:"id"`
	Reference         string        `json:"reference"`
	Status            dompay.Status `json:"status"`
	StatusMessage     string        `json:"status_message"`
	AmountInCents     int64         `json:"amount_in_cents"`
	Currency          string        `json:"currency"`
	PaymentMethodType string        `json:"payment_method_type"`
	CreatedAt         string        `json:"created_at"`
}

type transactionResponse struct {
	Data transactionData `json:"data"`
}

type errorResponse struct {
	Error struct {
		Type     string          `json:"type"`
		Reason   string          `json:"reason"`
		Messages json.RawMessage `json:"messages"`
	} `json:"error"`
}

// FetchAcceptanceToken returns the merchant's presigned acceptance token.
func (c *Client) FetchAcceptanceToken(ctx context.Context) (string, error) {
	var out merchantResponse
	path := "/merchants/" + url.PathEscape(c.cfg.PublicKey)
	if err := c.do(ctx, "merchants.get", http.MethodGet, path, "", nil, &out); err != nil {
		return "", err
	}
	token := out.Data.PresignedAcceptance.AcceptanceToken
	if token == "" {
		return "", fmt.Errorf("%w: empty acceptance token", dompay.ErrGateway)
	}
	return token, nil
}

func (c *Client) CreateCharge(ctx context.Context, req dompay.ChargeRequest) (*dompay.Transaction, error) {
	body := createTransactionRequest{
		AcceptanceToken:   req.AcceptanceToken,
		AmountInCents:     req.Amount,
		Currency:          req.Currency,
		CustomerEmail:     req.CustomerEmail,
		Reference:         req.Reference,
		Signature:         req.Signature,
		PaymentMethodType: "CARD",
		PaymentMethod: paymentMethod{
			Type:         "CARD",
			Token:        req.PaymentMethod.Token,
			Installments: req.PaymentMethod.Installments,
		},
		IP: req.CustomerIP,
	}
	var out transactionResponse
	if err := c.do(ctx, "transactions.create", http.MethodPost, "/transactions", c.cfg.PrivateKey, body, &out); err != nil {
		return nil, err
	}
	if out.Data.ID == "" {
		return nil, fmt.Errorf("%w: response without transaction id", dompay.ErrGateway)
	}
	return &dompay.Transaction{
		ID:                out.Data.ID,
		Reference:         out.Data.Reference,
		Status:            out.Data.Status,
		StatusMessage:     out.Data.StatusMessage,
		Amount:            out.Data.AmountInCents,
		Currency:          out.Data.Currency,
		PaymentMethodType: out.Data.PaymentMethodType,
		CreatedAt:         parseTime(out.Data.CreatedAt),
	}, nil
}

func (c *Client) FetchChargeStatus(ctx context.Context, gatewayID string) (dompay.Status, error) {
	if gatewayID == "" {
		return "", fmt.Errorf("%w: transaction id is required", dompay.ErrGateway)
	}
	var out transactionResponse
	path := "/transactions/" + url.PathEscape(gatewayID)
	if err := c.do(ctx, "transactions.get", http.MethodGet, path, c.cfg.PublicKey, nil, &out); err != nil {
		return "", err
	}
	if out.Data.Status == "" {
		return "", fmt.Errorf("%w: response without status", dompay.ErrGateway)
	}
	return out.Data.Status, nil
}

// do performs one JSON round trip. Errors are always ErrGateway or ErrGatewayTimeout;
// transport details stay in the logs.
func (c *Client) do(ctx context.Context, endpoint, method, path, bearer string, in, out any) (err error) {
	ctx, span := c.tel.Tracer().Start(ctx, "HTTP "+method+" gateway "+endpoint,
		attribute.String("peer.service", peerGateway),
		attribute.String("http.request.method", method),
		attribute.String("gateway.endpoint", endpoint),
	)
	start := time.Now()
	outcome := "success"
	logger := logctx.FromOr(ctx, c.log).With(
		observability.F("peer", peerGateway),
		observability.F("endpoint", endpoint),
	)
	defer func() {
		c.extCounter.Add(1,
			observability.L("peer", peerGateway),
			observability.L("endpoint", endpoint),
			observability.L("outcome", outcome),
		)
		c.extHistogram.Observe(time.Since(start).Seconds(),
			observability.L("peer", peerGateway),
			observability.L("endpoint", endpoint),
		)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		} else {
			span.SetStatus(codes.Ok, outcome)
		}
		span.End()
	}()

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	var reader io.Reader
	if in != nil {
		payload, merr := json.Marshal(in)
		if merr != nil {
			outcome = "error"
			return fmt.Errorf("%w: encode request: %w", dompay.ErrGateway, merr)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		outcome = "error"
		return fmt.Errorf("%w: build request: %w", dompay.ErrGateway, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(ctx, err) {
			outcome = "timeout"
			logger.Warn("gateway_request_timeout", observability.F("error", err.Error()))
			return fmt.Errorf("%w: %s", dompay.ErrGatewayTimeout, endpoint)
		}
		outcome = "error"
		logger.Warn("gateway_request_failed", observability.F("error", err.Error()))
		return fmt.Errorf("%w: %s unreachable", dompay.ErrGateway, endpoint)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if isTimeout(ctx, err) {
			outcome = "timeout"
			return fmt.Errorf("%w: %s", dompay.ErrGatewayTimeout, endpoint)
		}
		outcome = "error"
		return fmt.Errorf("%w: read response", dompay.ErrGateway)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		outcome = "error"
		var e errorResponse
		_ = json.Unmarshal(raw, &e)
		logger.Warn("gateway_request_rejected",
			observability.F("http_status", resp.StatusCode),
			observability.F("error_type", e.Error.Type),
			observability.F("error_reason", e.Error.Reason),
			observability.F("error_messages", string(e.Error.Messages)),
		)
		return fmt.Errorf("%w: %s returned %d", dompay.ErrGateway, endpoint, resp.StatusCode)
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			outcome = "error"
			return fmt.Errorf("%w: decode %s response", dompay.ErrGateway, endpoint)
		}
	}
	return nil
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
