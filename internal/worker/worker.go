package worker

import (
	"context"
	"strconv"

	"pos-service/internal/broker"
	"pos-service/internal/models"
	"pos-service/internal/util"

	"go.uber.org/zap"
)

// StockReader reads current stock for a set of products.
type StockReader interface {
	StockLevels(ctx context.Context, ids []int64) (map[int64]int, error)
}

// StockAlertWorker watches order events and reports the stock they leave behind.
type StockAlertWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	stock        StockReader
	threshold    int
	logger       *zap.Logger
}

// NewStockAlertWorker creates a new stock alert worker
func NewStockAlertWorker(consumer *broker.Consumer, stock StockReader, threshold int) *StockAlertWorker {
	w := &StockAlertWorker{
		consumer:     consumer,
		eventHandler: broker.NewEventHandler(),
		stock:        stock,
		threshold:    threshold,
		logger:       util.GetLogger(),
	}

	w.eventHandler.OnOrderPlaced(func(ctx context.Context, e *models.OrderPlacedEvent) error {
		return w.observe(ctx, e.OrderID, e.ProductIDs())
	})
	w.eventHandler.OnOrderReversed(func(ctx context.Context, e *models.OrderReversedEvent) error {
		return w.observe(ctx, e.OrderID, e.ProductIDs())
	})

	return w
}

// Start starts the worker
func (w *StockAlertWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting stock alert worker", zap.Int("threshold", w.threshold))
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *StockAlertWorker) Stop() error {
	w.logger.Info("Stopping stock alert worker")
	return w.consumer.Close()
}

func (w *StockAlertWorker) observe(ctx context.Context, orderID int64, productIDs []int64) error {
	levels, err := w.stock.StockLevels(ctx, productIDs)
	if err != nil {
		return err
	}

	for id, level := range levels {
		util.ProductStockLevel.WithLabelValues(strconv.FormatInt(id, 10)).Set(float64(level))
		if level <= w.threshold {
			util.LowStockAlertsTotal.Inc()
			w.logger.Warn("Low stock",
				zap.Int64("product_id", id),
				zap.Int("stock_quantity", level),
				zap.Int64("order_id", orderID))
		}
	}
	return nil
}
