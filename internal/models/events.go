package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeOrderPlaced   = "ORDER_PLACED"
	EventTypeOrderReversed = "ORDER_REVERSED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderPlacedEvent is published after an order placement commits
type OrderPlacedEvent struct {
	BaseEvent
	OrderID       int64           `json:"order_id"`
	UserID        *int64          `json:"user_id"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	PaymentMethod string          `json:"payment_method"`
	Items         []OrderItemData `json:"items"`
}

// OrderReversedEvent is published after an order deletion commits
type OrderReversedEvent struct {
	BaseEvent
	OrderID           int64           `json:"order_id"`
	RestoredItemCount int             `json:"restored_item_count"`
	Items             []StockMovement `json:"items"`
}

// OrderItemData represents item data in events
type OrderItemData struct {
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// ProductIDs lists the products an event moved stock for
func (e *OrderPlacedEvent) ProductIDs() []int64 {
	ids := make([]int64, 0, len(e.Items))
	for _, it := range e.Items {
		ids = append(ids, it.ProductID)
	}
	return ids
}

// ProductIDs lists the products an event moved stock for
func (e *OrderReversedEvent) ProductIDs() []int64 {
	ids := make([]int64, 0, len(e.Items))
	for _, it := range e.Items {
		ids = append(ids, it.ProductID)
	}
	return ids
}
