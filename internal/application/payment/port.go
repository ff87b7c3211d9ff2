package payment

import (
	"context"

	apporder "github.com/JulianR23/Vertex-Store/internal/application/order"
	domorder "github.com/JulianR23/Vertex-Store/internal/domain/order"
	dompay "github.com/JulianR23/Vertex-Store/internal/domain/payment"
)

const paymentService = "payment-service"

// StatusUpdater is the order transition capability the payment flows depend on.
type StatusUpdater interface {
	Execute(ctx context.Context, cmd apporder.UpdateStatusInput) (*apporder.OrderDetails, error)
}

// OrderStatusFor maps a gateway status to the order status it settles. PENDING and
// unknown statuses settle nothing.
func OrderStatusFor(s dompay.Status) (domorder.Status, bool) {
	switch s {
	case dompay.StatusApproved:
		return domorder.StatusApproved, true
	case dompay.StatusDeclined, dompay.StatusError:
		return domorder.StatusFailed, true
	case dompay.StatusVoided:
		return domorder.StatusVoided, true
	default:
		return "", false
	}
}

func failureReason(s dompay.Status, message string) string {
	if s == dompay.StatusApproved {
		return ""
	}
	if message != "" {
		return message
	}
	return "gateway status " + string(s)
}
