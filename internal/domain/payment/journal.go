package payment

import (
	"context"
	"time"
)

// Webhook outcomes recorded in the journal and reported to callers.
const (
	OutcomeApplied   = "applied"
	OutcomeIgnored   = "ignored"
	OutcomeDuplicate = "duplicate"
	OutcomeUnmatched = "unmatched"
	OutcomeStale     = "stale"
	OutcomeError     = "error"
)

// JournalEntry is what the journal keeps per verified webhook delivery.
type JournalEntry struct {
	Checksum      string    `json:"checksum"`
	Event         string    `json:"event"`
	TransactionID string    `json:"transaction_id"`
	Reference     string    `json:"reference"`
	GatewayStatus Status    `json:"gateway_status"`
	OrderID       string    `json:"order_id,omitempty"`
	Outcome       string    `json:"outcome"`
	ReceivedAt    time.Time `json:"received_at"`
}

// EventJournal remembers processed webhook deliveries by checksum.
type EventJournal interface {
	Lookup(ctx context.Context, checksum string) (*JournalEntry, bool, error)
	Record(ctx context.Context, entry JournalEntry) error
}
