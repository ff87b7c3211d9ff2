package httppresentation

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/JulianR23/Vertex-Store/internal/application"
	"github.com/JulianR23/Vertex-Store/internal/domain/customer"
	domorder "github.com/JulianR23/Vertex-Store/internal/domain/order"
	dompay "github.com/JulianR23/Vertex-Store/internal/domain/payment"
	"github.com/JulianR23/Vertex-Store/internal/domain/product"
	"github.com/JulianR23/Vertex-Store/internal/observability"
	"github.com/JulianR23/Vertex-Store/internal/observability/logctx"
)

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// writeDomainError maps use-case errors to status codes. Anything unclassified is
// logged with its cause and answered with a generic message.
func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *application.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: verr.Error(), Field: verr.Field})
	case errors.Is(err, application.ErrValidation),
		errors.Is(err, domorder.ErrInvalidTransition),
		errors.Is(err, domorder.ErrInvalidStatus),
		errors.Is(err, dompay.ErrSignatureInvalid):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, domorder.ErrNotFound),
		errors.Is(err, product.ErrNotFound),
		errors.Is(err, customer.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, product.ErrOutOfStock),
		errors.Is(err, domorder.ErrConflict),
		errors.Is(err, customer.ErrConflict):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, dompay.ErrGatewayTimeout):
		writeError(w, http.StatusGatewayTimeout, dompay.ErrGatewayTimeout)
	case errors.Is(err, dompay.ErrGateway):
		writeError(w, http.StatusBadGateway, dompay.ErrGateway)
	default:
		logctx.FromOr(r.Context(), h.log).Error("http_internal_error",
			observability.F("route", routeFromContext(r.Context())),
			observability.F("error", err),
		)
		writeError(w, http.StatusInternalServerError, errInternal)
	}
}

var errInternal = errors.New("internal error")
