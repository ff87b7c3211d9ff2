package httppresentation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/JulianR23/Vertex-Store/internal/application"
	apporder "github.com/JulianR23/Vertex-Store/internal/application/order"
	apppayment "github.com/JulianR23/Vertex-Store/internal/application/payment"
	domorder "github.com/JulianR23/Vertex-Store/internal/domain/order"
	dompay "github.com/JulianR23/Vertex-Store/internal/domain/payment"
	"github.com/JulianR23/Vertex-Store/internal/domain/product"
	"github.com/JulianR23/Vertex-Store/internal/observability"
	"github.com/JulianR23/Vertex-Store/internal/observability/logctx"
)

const (
	componentHTTPHandler = "http_server"
	headerRequestID      = "X-Request-ID"
	maxBodyBytes         = 1 << 20
)

// UseCases are the operations exposed over HTTP.
type UseCases struct {
	CreateOrder    application.UseCase[apporder.CreateOrderInput, *apporder.OrderDetails]
	GetOrder       application.UseCase[string, *apporder.OrderDetails]
	UpdateStatus   application.UseCase[apporder.UpdateStatusInput, *apporder.OrderDetails]
	ChargeOrder    application.UseCase[apppayment.ChargeOrderInput, *apppayment.ChargeOrderResult]
	ReconcileEvent application.UseCase[dompay.WebhookEvent, *apppayment.ReconcileResult]
	ListProducts   application.UseCase[struct{}, []*product.Product]
	GetProduct     application.UseCase[string, *product.Product]
}

type Handler struct {
	uc       UseCases
	metrics  http.Handler
	log      observability.Logger
	requests observability.Counter
	duration observability.Histogram
}

// NewHandler builds the HTTP adapter. metrics may be nil, in which case /metrics is not served.
func NewHandler(uc UseCases, metrics http.Handler, tel observability.Observability) *Handler {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Handler{
		uc:       uc,
		metrics:  metrics,
		log:      tel.Logger().With(observability.F("component", componentHTTPHandler)),
		requests: tel.Metrics().Counter(observability.MHTTPRequests),
		duration: tel.Metrics().Histogram(observability.MHTTPRequestDuration),
	}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	h.route(r, http.MethodPost, "/orders", h.handleCreateOrder)
	h.route(r, http.MethodGet, "/orders/{id}", h.handleGetOrder)
	h.route(r, http.MethodPatch, "/orders/{id}/status", h.handleUpdateStatus)
	h.route(r, http.MethodPost, "/orders/{id}/charge", h.handleCharge)
	h.route(r, http.MethodPost, "/webhooks/payment", h.handleWebhook)
	h.route(r, http.MethodGet, "/products", h.handleListProducts)
	h.route(r, http.MethodGet, "/products/{id}", h.handleGetProduct)
	r.Get("/health", h.handleHealth)
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics)
	}
	return r
}

// route wires one endpoint as Trace -> Request Logger -> Access Log -> Metrics -> Handler.
func (h *Handler) route(r chi.Router, method, pattern string, handler http.HandlerFunc) {
	wrapped := h.withTrace(
		ObservabilityMiddleware(h.log, func(r *http.Request) string {
			return r.Header.Get(headerRequestID)
		})(
			h.withAccessLog(
				h.withHTTPMetrics(handler),
			),
		),
	)
	r.Method(method, pattern, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		wrapped.ServeHTTP(w, req.WithContext(contextWithRoute(req.Context(), pattern)))
	}))
}

func (h *Handler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	details, err := h.uc.CreateOrder.Execute(r.Context(), req.toInput())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderResponse(details))
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	details, err := h.uc.GetOrder.Execute(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(details))
}

func (h *Handler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	details, err := h.uc.UpdateStatus.Execute(r.Context(), apporder.UpdateStatusInput{
		OrderID:              chi.URLParam(r, "id"),
		Status:               domorder.Status(strings.ToUpper(strings.TrimSpace(req.Status))),
		GatewayTransactionID: req.GatewayTransactionID,
		FailureReason:        req.FailureReason,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(details))
}

func (h *Handler) handleCharge(w http.ResponseWriter, r *http.Request) {
	var req chargeRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := h.uc.ChargeOrder.Execute(r.Context(), apppayment.ChargeOrderInput{
		OrderID:      chi.URLParam(r, "id"),
		CardToken:    req.CardToken,
		Installments: req.Installments,
		CustomerIP:   clientIP(r),
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, toChargeResponse(result))
}

// handleWebhook acknowledges every authentic event, whatever reconciliation made
// of it, so the gateway stops retrying.
func (h *Handler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var evt dompay.WebhookEvent
	if err := decodeJSON(w, r, &evt, false); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	_, err := h.uc.ReconcileEvent.Execute(r.Context(), evt)
	if errors.Is(err, dompay.ErrSignatureInvalid) {
		writeError(w, http.StatusBadRequest, dompay.ErrSignatureInvalid)
		return
	}
	if err != nil {
		logctx.FromOr(r.Context(), h.log).Error("webhook_processing_failed",
			observability.F("error", err),
		)
	}
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

func (h *Handler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	items, err := h.uc.ListProducts.Execute(r.Context(), struct{}{})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	out := make([]*productResponse, 0, len(items))
	for _, p := range items {
		out = append(out, toProductResponse(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.uc.GetProduct.Execute(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(p))
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, strict bool) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if strict {
		decoder.DisallowUnknownFields()
	}
	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("malformed request body: %w", err)
	}
	return nil
}
