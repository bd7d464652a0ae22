package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BusinessMetrics holds Prometheus metrics for business-level observability.
type BusinessMetrics struct {
	// Cart
	CartItemsAdded *prometheus.CounterVec
	CartCleared    prometheus.Counter
	CartCorrected  *prometheus.CounterVec

	// Checkout funnel
	CheckoutCompleted prometheus.Counter
	CheckoutFailed    *prometheus.CounterVec

	// Orders
	OrdersCreated    *prometheus.CounterVec
	OrderValue       prometheus.Histogram
	OrderItemCount   prometheus.Histogram
	OrderTransitions *prometheus.CounterVec
	OrdersCancelled  *prometheus.CounterVec
	StockRestored    prometheus.Counter

	// Refunds
	RefundsIssued prometheus.Counter
	RefundAmount  prometheus.Counter

	// Catalog
	ReviewsAdded prometheus.Counter
	StockUpdates *prometheus.CounterVec
}

// NewBusinessMetrics creates and registers all business metrics.
func NewBusinessMetrics(namespace string) *BusinessMetrics {
	if namespace == "" {
		namespace = "vanir"
	}

	subsystem := "business"

	return &BusinessMetrics{
		CartItemsAdded: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cart_items_added_total",
				Help:      "Total cart add-item actions",
			},
			[]string{"result"}, // result: ok, limit_exceeded, out_of_stock, unavailable
		),
		CartCleared: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cart_cleared_total",
				Help:      "Total explicit cart clears",
			},
		),
		CartCorrected: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cart_corrections_total",
				Help:      "Total cart lines corrected during validation",
			},
			[]string{"kind"}, // kind: product_removed, product_unavailable, out_of_stock, quantity_reduced, price_changed
		),
		CheckoutCompleted: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "checkout_completed_total",
				Help:      "Total successful checkouts",
			},
		),
		CheckoutFailed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "checkout_failed_total",
				Help:      "Total failed checkouts",
			},
			[]string{"reason"}, // reason: empty_cart, validation, stock, internal
		),
		OrdersCreated: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "orders_created_total",
				Help:      "Total orders created",
			},
			[]string{"payment_method"},
		),
		OrderValue: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "order_value_cents",
				Help:      "Order totals in cents",
				Buckets:   prometheus.ExponentialBuckets(500, 4, 10),
			},
		),
		OrderItemCount: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "order_item_count",
				Help:      "Number of distinct lines per order",
				Buckets:   []float64{1, 2, 3, 5, 8, 13, 21},
			},
		),
		OrderTransitions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "order_transitions_total",
				Help:      "Total order status transitions",
			},
			[]string{"from", "to"},
		),
		OrdersCancelled: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "orders_cancelled_total",
				Help:      "Total cancelled orders",
			},
			[]string{"actor"}, // actor: customer, admin
		),
		StockRestored: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "stock_restored_units_total",
				Help:      "Total units returned to stock by cancellations",
			},
		),
		RefundsIssued: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "refunds_issued_total",
				Help:      "Total refunds owed by cancellations of paid orders",
			},
		),
		RefundAmount: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "refund_amount_cents_total",
				Help:      "Total refund amount in cents",
			},
		),
		ReviewsAdded: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "reviews_added_total",
				Help:      "Total product reviews recorded",
			},
		),
		StockUpdates: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "stock_updates_total",
				Help:      "Total admin stock adjustments",
			},
			[]string{"operation"}, // operation: add, subtract, set
		),
	}
}
