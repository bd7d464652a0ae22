package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tmcewen/vanir/internal/domain"
	"github.com/tmcewen/vanir/internal/events"
	"github.com/tmcewen/vanir/internal/repository"
	"github.com/tmcewen/vanir/internal/telemetry"
)

// OrderService implements domain.OrderService. Status changes run through
// the domain state machine; cancellation restores stock inside the same
// transaction that persists the status change.
type OrderService struct {
	txm       repository.TransactionManager
	orders    repository.OrderRepository
	publisher events.Publisher
	metrics   *telemetry.BusinessMetrics
	logger    *slog.Logger
}

var _ domain.OrderService = (*OrderService)(nil)

// NewOrderService creates an order service.
func NewOrderService(
	txm repository.TransactionManager,
	orders repository.OrderRepository,
	publisher events.Publisher,
	metrics *telemetry.BusinessMetrics,
	logger *slog.Logger,
) *OrderService {
	return &OrderService{
		txm:       txm,
		orders:    orders,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
	}
}

// load fetches an order and enforces ownership: customers only ever see
// their own orders, reported as not found rather than forbidden so order
// IDs do not leak existence.
func (s *OrderService) load(ctx context.Context, op string, id uuid.UUID) (*domain.Order, *domain.User, error) {
	user, err := domain.RequireUser(ctx)
	if err != nil {
		return nil, nil, err
	}

	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, domain.ErrOrderNotFound.WithOp(op)
		}
		return nil, nil, domain.Internal(err, op, "failed to load order")
	}

	if !user.IsAdmin() && order.UserID != user.ID {
		return nil, nil, domain.ErrOrderNotFound.WithOp(op)
	}
	return order, user, nil
}

func (s *OrderService) GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	order, _, err := s.load(ctx, "order.get", id)
	return order, err
}

func (s *OrderService) ListMyOrders(ctx context.Context) ([]domain.Order, error) {
	const op = "order.list_mine"

	user, err := domain.RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	orders, err := s.orders.ListByUserID(ctx, user.ID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list orders")
	}
	return orders, nil
}

func (s *OrderService) ListOrders(ctx context.Context, filter domain.OrderFilter) (*domain.OrderPage, error) {
	const op = "order.list"

	if err := requireAdmin(ctx, op); err != nil {
		return nil, err
	}
	if filter.Status != nil && !domain.ValidOrderStatus(*filter.Status) {
		return nil, domain.Invalid(op, "unknown order status")
	}
	filter.Page, filter.PerPage = normalizePage(filter.Page, filter.PerPage)

	orders, total, err := s.orders.List(ctx, repository.OrderFilter{
		Status: filter.Status,
		From:   filter.From,
		To:     filter.To,
		Limit:  filter.PerPage,
		Offset: (filter.Page - 1) * filter.PerPage,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list orders")
	}

	return &domain.OrderPage{
		Orders:     orders,
		TotalItems: total,
		Page:       filter.Page,
		PerPage:    filter.PerPage,
	}, nil
}

// customerCancellable are the only statuses a customer may cancel from.
// Once fulfillment has started, cancellation needs an admin.
func customerCancellable(status domain.OrderStatus) bool {
	return status == domain.OrderStatusPending || status == domain.OrderStatusConfirmed
}

func (s *OrderService) UpdateStatus(ctx context.Context, id uuid.UUID, next domain.OrderStatus, notes string) (*domain.Order, error) {
	const op = "order.update_status"

	order, user, err := s.load(ctx, op, id)
	if err != nil {
		return nil, err
	}

	if !user.IsAdmin() {
		if next != domain.OrderStatusCancelled {
			return nil, domain.Forbidden(op, "only cancellation is allowed on your own orders")
		}
		if !customerCancellable(order.Status) {
			return nil, domain.ErrInvalidTransition.WithOp(op)
		}
	}

	from := order.Status
	now := time.Now().UTC()
	if err := order.ApplyStatus(next, notes, now); err != nil {
		return nil, err
	}

	if next == domain.OrderStatusCancelled {
		if err := s.cancelWithRestock(ctx, op, order); err != nil {
			return nil, err
		}
	} else {
		if err := s.orders.Save(ctx, order); err != nil {
			return nil, domain.Internal(err, op, "failed to save order")
		}
	}

	s.metrics.OrderTransitions.WithLabelValues(string(from), string(next)).Inc()
	if next == domain.OrderStatusCancelled {
		actor := "customer"
		if user.IsAdmin() {
			actor = "admin"
		}
		s.metrics.OrdersCancelled.WithLabelValues(actor).Inc()
		if refund := order.RefundAmountCents(); refund > 0 {
			s.metrics.RefundsIssued.Inc()
			s.metrics.RefundAmount.Add(float64(refund))
		}
		s.publisher.OrderCancelled(order)
	}

	s.logger.Info("order status updated",
		"order_id", order.ID,
		"order_number", order.OrderNumber,
		"from", from,
		"to", next)
	return order, nil
}

// cancelWithRestock persists the cancellation and returns every order item's
// quantity to stock in one transaction. Deleted products are skipped; their
// stock no longer exists to restore.
func (s *OrderService) cancelWithRestock(ctx context.Context, op string, order *domain.Order) error {
	var restored int
	err := s.txm.WithinTx(ctx, func(r repository.TxRepos) error {
		if err := r.Orders().Save(ctx, order); err != nil {
			return domain.Internal(err, op, "failed to save order")
		}
		for _, item := range order.Items {
			if err := r.Products().RestoreStock(ctx, item.ProductID, item.Quantity); err != nil {
				return domain.Internal(err, op, "failed to restore stock")
			}
			restored += item.Quantity
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.metrics.StockRestored.Add(float64(restored))
	return nil
}

func (s *OrderService) SetTracking(ctx context.Context, id uuid.UUID, tracking domain.TrackingInfo) (*domain.Order, error) {
	const op = "order.set_tracking"

	if err := requireAdmin(ctx, op); err != nil {
		return nil, err
	}
	if tracking.Carrier == "" || tracking.Number == "" {
		return nil, domain.Invalid(op, "carrier and tracking number are required")
	}

	order, _, err := s.load(ctx, op, id)
	if err != nil {
		return nil, err
	}
	if order.Status != domain.OrderStatusShipped {
		return nil, domain.ErrNotShipped.WithOp(op)
	}

	order.Tracking = &tracking
	order.UpdatedAt = time.Now().UTC()
	if err := s.orders.Save(ctx, order); err != nil {
		return nil, domain.Internal(err, op, "failed to save order")
	}
	return order, nil
}

func (s *OrderService) RefundAmount(ctx context.Context, id uuid.UUID) (int64, error) {
	order, _, err := s.load(ctx, "order.refund_amount", id)
	if err != nil {
		return 0, err
	}
	return order.RefundAmountCents(), nil
}

func (s *OrderService) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	const op = "order.delete"

	if err := requireAdmin(ctx, op); err != nil {
		return err
	}

	order, _, err := s.load(ctx, op, id)
	if err != nil {
		return err
	}
	if order.Status != domain.OrderStatusCancelled {
		return domain.ErrOrderNotCancelled.WithOp(op)
	}

	if err := s.orders.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrOrderNotFound.WithOp(op)
		}
		return domain.Internal(err, op, "failed to delete order")
	}

	s.logger.Info("order deleted", "order_id", id, "order_number", order.OrderNumber)
	return nil
}
