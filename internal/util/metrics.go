package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersPlacedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pos_orders_placed_total",
		Help: "Total number of orders committed by order placement",
	})

	OrdersReversedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pos_orders_reversed_total",
		Help: "Total number of orders deleted with stock restored",
	})

	OrdersReplayedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pos_orders_replayed_total",
		Help: "Order placements answered from an earlier idempotency key",
	})

	OrderFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_order_failures_total",
		Help: "Failed order placements and reversals",
	}, []string{"operation", "reason"})

	OrderItemsPerOrder = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pos_order_items_per_order",
		Help:    "Number of line items in committed orders",
		Buckets: []float64{1, 2, 3, 5, 8, 13, 21},
	})

	OrderTxLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pos_order_transaction_seconds",
		Help:    "Latency of order placement and reversal transactions",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	DeletionsRefusedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_deletions_refused_total",
		Help: "Deletions refused because dependent rows exist",
	}, []string{"entity"})

	ProductStockLevel = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "pos_product_stock_level",
		Help: "Last observed stock quantity of products touched by orders",
	}, []string{"product_id"})

	LowStockAlertsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pos_low_stock_alerts_total",
		Help: "Products observed at or below the low stock threshold",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
