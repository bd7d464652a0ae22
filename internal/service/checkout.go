package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/tmcewen/vanir/internal/domain"
	"github.com/tmcewen/vanir/internal/events"
	"github.com/tmcewen/vanir/internal/repository"
	"github.com/tmcewen/vanir/internal/telemetry"
)

// CheckoutService implements domain.CheckoutService. The conversion from
// cart to order runs inside one database transaction: the order insert, the
// guarded stock decrements, and the cart clear land together or not at all.
type CheckoutService struct {
	txm       repository.TransactionManager
	publisher events.Publisher
	metrics   *telemetry.BusinessMetrics
	logger    *slog.Logger
	validate  *validator.Validate
	config    domain.CheckoutConfig
}

var _ domain.CheckoutService = (*CheckoutService)(nil)

// NewCheckoutService creates a checkout service.
func NewCheckoutService(
	txm repository.TransactionManager,
	publisher events.Publisher,
	metrics *telemetry.BusinessMetrics,
	logger *slog.Logger,
	config domain.CheckoutConfig,
) *CheckoutService {
	return &CheckoutService{
		txm:       txm,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
		validate:  validator.New(),
		config:    config,
	}
}

// addressFieldNames maps validator struct fields to the JSON names clients use.
var addressFieldNames = map[string]string{
	"FullName": "fullName",
	"Street":   "street",
	"City":     "city",
	"State":    "state",
	"ZipCode":  "zipCode",
	"Phone":    "phone",
}

func (s *CheckoutService) validateAddress(op string, addr domain.ShippingAddress) error {
	err := s.validate.Struct(addr)
	if err == nil {
		return nil
	}

	var invalid validator.ValidationErrors
	if !errors.As(err, &invalid) {
		return domain.Internal(err, op, "address validation failed")
	}

	var verr error
	for _, fe := range invalid {
		field := addressFieldNames[fe.Field()]
		if field == "" {
			field = fe.Field()
		}
		verr = domain.AddFieldError(verr, field, field+" is required")
	}
	if ve, ok := verr.(*domain.ValidationError); ok {
		ve.Op = op
	}
	return verr
}

func (s *CheckoutService) CreateOrder(ctx context.Context, params domain.CreateOrderParams) (*domain.Order, error) {
	const op = "checkout.create_order"

	user, err := domain.RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	if !domain.ValidPaymentMethod(params.PaymentMethod) {
		s.metrics.CheckoutFailed.WithLabelValues("validation").Inc()
		return nil, domain.ErrInvalidPaymentMethod.WithOp(op)
	}
	if params.ShippingAddress.Country == "" {
		params.ShippingAddress.Country = domain.DefaultCountry
	}
	if err := s.validateAddress(op, params.ShippingAddress); err != nil {
		s.metrics.CheckoutFailed.WithLabelValues("validation").Inc()
		return nil, err
	}

	now := time.Now().UTC()
	var order *domain.Order

	err = s.txm.WithinTx(ctx, func(r repository.TxRepos) error {
		cart, err := r.Carts().FindByUserID(ctx, user.ID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return domain.ErrEmptyCart.WithOp(op)
			}
			return domain.Internal(err, op, "failed to load cart")
		}
		if cart.IsEmpty() {
			return domain.ErrEmptyCart.WithOp(op)
		}

		ids := make([]uuid.UUID, len(cart.Items))
		for i, item := range cart.Items {
			ids[i] = item.ProductID
		}
		live, err := r.Products().FindByIDs(ctx, ids)
		if err != nil {
			return domain.Internal(err, op, "failed to load products")
		}

		// All-or-nothing: the first failing line aborts the whole checkout.
		items := make([]domain.OrderItem, 0, len(cart.Items))
		var subtotal int64
		for _, line := range cart.Items {
			product, ok := live[line.ProductID]
			if !ok {
				return domain.ErrProductNotFound.WithOp(op)
			}
			if !product.IsAvailable {
				return domain.ErrProductUnavailable.WithOp(op)
			}
			if line.Quantity > product.Stock {
				return domain.ErrInsufficientStock.WithOp(op)
			}

			// Snapshot from live catalog state, not the possibly stale
			// cart price.
			item := domain.OrderItem{
				ProductID:  product.ID,
				Name:       product.Name,
				PriceCents: product.PriceCents,
				Quantity:   line.Quantity,
				TotalCents: int64(line.Quantity) * product.PriceCents,
			}
			if len(product.Images) > 0 {
				item.ImageURL = product.Images[0].URL
			}
			items = append(items, item)
			subtotal += item.TotalCents
		}

		for _, item := range items {
			if err := r.Products().DecrementStockIfEnough(ctx, item.ProductID, item.Quantity); err != nil {
				if errors.Is(err, domain.ErrInsufficientStock) {
					return domain.ErrInsufficientStock.WithOp(op)
				}
				return domain.Internal(err, op, "failed to reserve stock")
			}
		}

		total := subtotal + s.config.ShippingCents + s.config.TaxCents
		order = &domain.Order{
			ID:              uuid.New(),
			OrderNumber:     domain.NewOrderNumber(now),
			UserID:          user.ID,
			Items:           items,
			ShippingAddress: params.ShippingAddress,
			Payment: domain.PaymentInfo{
				Method:      params.PaymentMethod,
				Status:      domain.PaymentStatusPending,
				AmountCents: total,
			},
			Status:        domain.OrderStatusPending,
			SubtotalCents: subtotal,
			ShippingCents: s.config.ShippingCents,
			TaxCents:      s.config.TaxCents,
			TotalCents:    total,
			Notes:         params.Notes,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := r.Orders().Create(ctx, order); err != nil {
			return domain.Internal(err, op, "failed to save order")
		}

		cart.Clear()
		if err := r.Carts().Save(ctx, cart); err != nil {
			return domain.Internal(err, op, "failed to clear cart")
		}
		return nil
	})
	if err != nil {
		s.recordFailure(err)
		return nil, err
	}

	s.metrics.CheckoutCompleted.Inc()
	s.metrics.OrdersCreated.WithLabelValues(string(order.Payment.Method)).Inc()
	s.metrics.OrderValue.Observe(float64(order.TotalCents))
	s.metrics.OrderItemCount.Observe(float64(len(order.Items)))

	s.publisher.OrderCreated(order)
	s.logger.Info("order created",
		"order_id", order.ID,
		"order_number", order.OrderNumber,
		"user_id", order.UserID,
		"total_cents", order.TotalCents,
		"items", len(order.Items))
	return order, nil
}

// recordFailure classifies a checkout error for the failure counter.
func (s *CheckoutService) recordFailure(err error) {
	switch {
	case errors.Is(err, domain.ErrEmptyCart):
		s.metrics.CheckoutFailed.WithLabelValues("empty_cart").Inc()
	case errors.Is(err, domain.ErrInsufficientStock),
		errors.Is(err, domain.ErrProductUnavailable),
		errors.Is(err, domain.ErrProductNotFound):
		s.metrics.CheckoutFailed.WithLabelValues("stock").Inc()
	case domain.IsValidationError(err):
		s.metrics.CheckoutFailed.WithLabelValues("validation").Inc()
	default:
		s.metrics.CheckoutFailed.WithLabelValues("internal").Inc()
	}
}
