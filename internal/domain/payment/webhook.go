package payment

import (
	"fmt"
	"slices"
	"strconv"
)

const (
	EventTransactionUpdated = "transaction.updated"

	PropertyReference = "transaction.reference"
)

type WebhookTransaction struct {
	ID                string `json:"id"`
	Reference         string `json:"reference"`
	Status            Status `json:"status"`
	AmountInCents     int64  `json:"amount_in_cents"`
	Currency          string `json:"currency,omitempty"`
	PaymentMethodType string `json:"payment_method_type,omitempty"`
}

type WebhookData struct {
	Transaction WebhookTransaction `json:"transaction"`
}

type WebhookSignature struct {
	Checksum   string   `json:"checksum"`
	Properties []string `json:"properties"`
}

// WebhookEvent is the signed callback sent by the gateway.
type WebhookEvent struct {
	Event       string           `json:"event"`
	Data        WebhookData      `json:"data"`
	Environment string           `json:"environment"`
	Signature   WebhookSignature `json:"signature"`
	Timestamp   int64            `json:"timestamp"`
	SentAt      string           `json:"sent_at,omitempty"`
}

// signedFields lists every property a webhook may sign, keyed by the dotted path the
// gateway uses in signature.properties.
var signedFields = map[string]func(WebhookData) string{
	"transaction.id":                  func(d WebhookData) string { return d.Transaction.ID },
	PropertyReference:                 func(d WebhookData) string { return d.Transaction.Reference },
	"transaction.status":              func(d WebhookData) string { return string(d.Transaction.Status) },
	"transaction.amount_in_cents":     func(d WebhookData) string { return strconv.FormatInt(d.Transaction.AmountInCents, 10) },
	"transaction.currency":            func(d WebhookData) string { return d.Transaction.Currency },
	"transaction.payment_method_type": func(d WebhookData) string { return d.Transaction.PaymentMethodType },
}

// Signs reports whether property is covered by the event signature.
func (e WebhookEvent) Signs(property string) bool {
	return slices.Contains(e.Signature.Properties, property)
}

// SignedValues resolves the properties named by the signature, in order.
func (e WebhookEvent) SignedValues() ([]string, error) {
	if len(e.Signature.Properties) == 0 {
		return nil, fmt.Errorf("%w: no signed properties", ErrSignatureInvalid)
	}
	values := make([]string, 0, len(e.Signature.Properties))
	for _, name := range e.Signature.Properties {
		accessor, ok := signedFields[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownProperty, name)
		}
		values = append(values, accessor(e.Data))
	}
	return values, nil
}
