package order

import "time"

// OrderCreatedEvent is emitted once the order and its delivery are committed.
type OrderCreatedEvent struct {
	OrderID    string
	Reference  string
	CustomerID string
	ProductID  string
	Total      int64
	Currency   string
	OccurredAt time.Time
}

func (OrderCreatedEvent) EventName() string { return "order.created" }

func NewOrderCreatedEvent(o *Order) OrderCreatedEvent {
	return OrderCreatedEvent{
		OrderID:    o.ID,
		Reference:  o.Reference,
		CustomerID: o.CustomerID,
		ProductID:  o.ProductID,
		Total:      o.Total,
		Currency:   o.Currency,
		OccurredAt: time.Now().UTC(),
	}
}

// OrderStatusChangedEvent is emitted after an order reached a terminal status.
type OrderStatusChangedEvent struct {
	OrderID              string
	Status               Status
	GatewayTransactionID string
	FailureReason        string
	OccurredAt           time.Time
}

func (OrderStatusChangedEvent) EventName() string { return "order.status_changed" }

func NewOrderStatusChangedEvent(o *Order) OrderStatusChangedEvent {
	return OrderStatusChangedEvent{
		OrderID:              o.ID,
		Status:               o.Status,
		GatewayTransactionID: o.GatewayTransactionID,
		FailureReason:        o.FailureReason,
		OccurredAt:           time.Now().UTC(),
	}
}

// StockAnomalyEvent reports an approved order whose stock unit could not be taken.
// The payment is already captured, so the order stays APPROVED.
type StockAnomalyEvent struct {
	OrderID    string
	ProductID  string
	Reason     string
	OccurredAt time.Time
}

func (StockAnomalyEvent) EventName() string { return "order.stock_anomaly" }

func NewStockAnomalyEvent(o *Order, reason string) StockAnomalyEvent {
	return StockAnomalyEvent{
		OrderID:    o.ID,
		ProductID:  o.ProductID,
		Reason:     reason,
		OccurredAt: time.Now().UTC(),
	}
}
