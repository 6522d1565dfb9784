package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pos-service/internal/broker"
	"pos-service/internal/models"
	"pos-service/internal/store"
	"pos-service/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// EventPublisher publishes order lifecycle events after commit.
type EventPublisher interface {
	PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error
	PublishOrderReversed(ctx context.Context, event *models.OrderReversedEvent) error
}

// IdempotencyStore remembers which order an idempotency key produced.
type IdempotencyStore interface {
	ClaimOrderKey(ctx context.Context, key string) (claimed bool, orderID int64, err error)
	CompleteOrderKey(ctx context.Context, key string, orderID int64) error
	ReleaseOrderKey(ctx context.Context, key string) error
}

// OrderOptions tune placement rules.
type OrderOptions struct {
	// EnforceStockFloor refuses a line whose product has less stock than the
	// requested quantity. Off means stock may go negative.
	EnforceStockFloor bool
	// VerifyTotal requires total_amount to equal the sum of the lines.
	VerifyTotal bool
}

// OrderService places and reverses orders. Each call runs in one transaction.
type OrderService struct {
	store  *store.Store
	idem   IdempotencyStore
	events EventPublisher
	opts   OrderOptions
	logger *zap.Logger
}

// NewOrderService creates a new order service. idem may be nil, which turns
// idempotency keys off. A nil events publisher drops events.
func NewOrderService(store *store.Store, idem IdempotencyStore, events EventPublisher, opts OrderOptions) *OrderService {
	if events == nil {
		events = broker.NoopPublisher{}
	}
	return &OrderService{
		store:  store,
		idem:   idem,
		events: events,
		opts:   opts,
		logger: util.GetLogger(),
	}
}

// PlaceOrderRequest represents a request to place an order
type PlaceOrderRequest struct {
	UserID         *int64             `json:"user_id"`
	Items          []OrderItemRequest `json:"items" validate:"required,min=1,dive"`
	TotalAmount    decimal.Decimal    `json:"total_amount"`
	PaymentMethod  string             `json:"payment_method" validate:"required,max=50"`
	IdempotencyKey string             `json:"-" validate:"omitempty,max=128"`
}

// OrderItemRequest represents an item in an order
type OrderItemRequest struct {
	ProductID int64           `json:"product_id" validate:"required,gt=0"`
	Quantity  int             `json:"quantity" validate:"required,gt=0"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// PlaceOrderResponse represents the response after placing an order
type PlaceOrderResponse struct {
	OrderID  int64 `json:"order_id"`
	Replayed bool  `json:"replayed,omitempty"`
}

// DeleteOrderResponse reports a reversed order
type DeleteOrderResponse struct {
	DeletedID         int64 `json:"deleted_id"`
	RestoredItemCount int   `json:"restored_item_count"`
}

// OrderDetails is an order with its lines
type OrderDetails struct {
	Order *models.Order            `json:"order"`
	Items []models.OrderItemDetail `json:"items"`
}

func (s *OrderService) validatePlaceOrder(req *PlaceOrderRequest) error {
	if err := validate.Struct(req); err != nil {
		return validationError(err)
	}
	if req.TotalAmount.IsNegative() {
		return invalid("total_amount must not be negative")
	}

	lineSum := decimal.Zero
	for i, it := range req.Items {
		if it.UnitPrice.IsNegative() {
			return invalid("items[%d].unit_price must not be negative", i)
		}
		lineSum = lineSum.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}

	if s.opts.VerifyTotal && !lineSum.Equal(req.TotalAmount) {
		return invalid("total_amount %s does not match line total %s", req.TotalAmount.StringFixed(2), lineSum.StringFixed(2))
	}
	return nil
}

// PlaceOrder inserts the order and its lines and takes each line out of
// stock, in caller order, inside a single transaction. Either all of it
// commits or none of it does.
func (s *OrderService) PlaceOrder(ctx context.Context, req *PlaceOrderRequest) (*PlaceOrderResponse, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.PlaceOrder")
	defer span.End()

	if err := s.validatePlaceOrder(req); err != nil {
		util.OrderFailuresTotal.WithLabelValues("place", "validation").Inc()
		return nil, err
	}

	key := req.IdempotencyKey
	if key != "" && s.idem != nil {
		claimed, existingID, err := s.idem.ClaimOrderKey(ctx, key)
		switch {
		case err != nil:
			s.logger.Warn("Idempotency check unavailable, placing without it",
				zap.String("idempotency_key", key), zap.Error(err))
			key = ""
		case !claimed && existingID > 0:
			s.logger.Info("Duplicate order request detected",
				zap.String("idempotency_key", key),
				zap.Int64("order_id", existingID))
			util.OrdersReplayedTotal.Inc()
			return &PlaceOrderResponse{OrderID: existingID, Replayed: true}, nil
		case !claimed:
			return nil, ErrRequestInProgress
		}
	} else {
		key = ""
	}

	order := &models.Order{
		UserID:        req.UserID,
		TotalAmount:   req.TotalAmount,
		PaymentMethod: req.PaymentMethod,
	}

	start := time.Now()
	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		if err := tx.Orders().InsertOrder(ctx, order); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		orders, catalog := tx.Orders(), tx.Catalog()
		for i, it := range req.Items {
			item := &models.OrderItem{
				OrderID:   order.ID,
				ProductID: it.ProductID,
				Quantity:  it.Quantity,
				UnitPrice: it.UnitPrice,
			}
			if err := orders.InsertOrderItem(ctx, item); err != nil {
				return fmt.Errorf("insert item %d: %w", i, err)
			}

			var err error
			if s.opts.EnforceStockFloor {
				err = catalog.DecrementStockIfAvailable(ctx, it.ProductID, it.Quantity)
			} else {
				err = catalog.DecrementStock(ctx, it.ProductID, it.Quantity)
			}
			if err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
		}
		return nil
	})
	util.OrderTxLatency.WithLabelValues("place").Observe(time.Since(start).Seconds())

	if err != nil {
		span.RecordError(err)
		if key != "" {
			if relErr := s.idem.ReleaseOrderKey(ctx, key); relErr != nil {
				s.logger.Warn("Failed to release idempotency key", zap.String("idempotency_key", key), zap.Error(relErr))
			}
		}

		if errors.Is(err, store.ErrInsufficientStock) {
			util.OrderFailuresTotal.WithLabelValues("place", "insufficient_stock").Inc()
			return nil, fmt.Errorf("%w: %v", ErrInsufficientStock, err)
		}

		util.OrderFailuresTotal.WithLabelValues("place", "transaction").Inc()
		s.logger.Error("Order placement rolled back", zap.Int("items", len(req.Items)), zap.Error(err))
		return nil, ErrOrderFailed
	}

	span.SetAttributes(attribute.Int64("order.id", order.ID))
	util.OrdersPlacedTotal.Inc()
	util.OrderItemsPerOrder.Observe(float64(len(req.Items)))
	s.logger.Info("Order placed",
		zap.Int64("order_id", order.ID),
		zap.Int("items", len(req.Items)),
		zap.String("total", order.TotalAmount.StringFixed(2)))

	if key != "" {
		if err := s.idem.CompleteOrderKey(ctx, key, order.ID); err != nil {
			s.logger.Warn("Failed to record idempotency key", zap.String("idempotency_key", key), zap.Error(err))
		}
	}

	s.publishPlaced(ctx, order, req.Items)

	return &PlaceOrderResponse{OrderID: order.ID}, nil
}

func (s *OrderService) publishPlaced(ctx context.Context, order *models.Order, items []OrderItemRequest) {
	data := make([]models.OrderItemData, 0, len(items))
	for _, it := range items {
		data = append(data, models.OrderItemData{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}

	event := &models.OrderPlacedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderPlaced,
			Timestamp: time.Now(),
		},
		OrderID:       order.ID,
		UserID:        order.UserID,
		TotalAmount:   order.TotalAmount,
		PaymentMethod: order.PaymentMethod,
		Items:         data,
	}

	if err := s.events.PublishOrderPlaced(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderPlaced event", zap.Int64("order_id", order.ID), zap.Error(err))
	}
}

// DeleteOrder puts every line of an order back into stock, then removes the
// lines and the order, all in one transaction.
func (s *OrderService) DeleteOrder(ctx context.Context, orderID int64) (*DeleteOrderResponse, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.DeleteOrder")
	defer span.End()
	span.SetAttributes(attribute.Int64("order.id", orderID))

	var movements []models.StockMovement

	start := time.Now()
	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		movements, err = tx.Orders().StockMovements(ctx, orderID)
		if err != nil {
			return fmt.Errorf("read order items: %w", err)
		}

		catalog := tx.Catalog()
		for _, m := range movements {
			if err := catalog.IncrementStock(ctx, m.ProductID, m.Quantity); err != nil {
				return err
			}
		}

		if _, err := tx.Orders().DeleteOrderItems(ctx, orderID); err != nil {
			return fmt.Errorf("delete order items: %w", err)
		}
		return tx.Orders().DeleteOrder(ctx, orderID)
	})
	util.OrderTxLatency.WithLabelValues("reverse").Observe(time.Since(start).Seconds())

	if err != nil {
		span.RecordError(err)
		if errors.Is(err, store.ErrNotFound) && len(movements) == 0 {
			util.OrderFailuresTotal.WithLabelValues("reverse", "not_found").Inc()
			return nil, fmt.Errorf("order %d: %w", orderID, ErrNotFound)
		}

		util.OrderFailuresTotal.WithLabelValues("reverse", "transaction").Inc()
		s.logger.Error("Order reversal rolled back", zap.Int64("order_id", orderID), zap.Error(err))
		return nil, ErrOrderFailed
	}

	util.OrdersReversedTotal.Inc()
	s.logger.Info("Order reversed",
		zap.Int64("order_id", orderID),
		zap.Int("restored_items", len(movements)))

	event := &models.OrderReversedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderReversed,
			Timestamp: time.Now(),
		},
		OrderID:           orderID,
		RestoredItemCount: len(movements),
		Items:             movements,
	}
	if err := s.events.PublishOrderReversed(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderReversed event", zap.Int64("order_id", orderID), zap.Error(err))
	}

	return &DeleteOrderResponse{DeletedID: orderID, RestoredItemCount: len(movements)}, nil
}

// GetOrder retrieves an order with its items
func (s *OrderService) GetOrder(ctx context.Context, orderID int64) (*OrderDetails, error) {
	order, err := s.store.Orders().GetOrder(ctx, orderID)
	if err != nil {
		return nil, mapStoreErr(err)
	}

	items, err := s.store.Orders().ListOrderItems(ctx, orderID)
	if err != nil {
		return nil, err
	}

	return &OrderDetails{Order: order, Items: items}, nil
}

// ListOrders returns every order, newest first
func (s *OrderService) ListOrders(ctx context.Context) ([]models.OrderSummary, error) {
	return s.store.Orders().ListOrders(ctx)
}

func mapStoreErr(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return err
}
