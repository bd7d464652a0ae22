package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/tmcewen/vanir/internal/domain"
	"github.com/tmcewen/vanir/internal/repository"
	"github.com/tmcewen/vanir/internal/telemetry"
)

// CartService implements domain.CartService. Carts are created lazily on
// first access and writes are last-write-wins per user.
type CartService struct {
	carts    repository.CartRepository
	products repository.ProductRepository
	metrics  *telemetry.BusinessMetrics
	logger   *slog.Logger
}

var _ domain.CartService = (*CartService)(nil)

// NewCartService creates a cart service.
func NewCartService(carts repository.CartRepository, products repository.ProductRepository, metrics *telemetry.BusinessMetrics, logger *slog.Logger) *CartService {
	return &CartService{
		carts:    carts,
		products: products,
		metrics:  metrics,
		logger:   logger,
	}
}

// loadOrCreate returns the user's cart, creating an empty one if absent.
func (s *CartService) loadOrCreate(ctx context.Context, op string) (*domain.Cart, error) {
	user, err := domain.RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	cart, err := s.carts.FindByUserID(ctx, user.ID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, domain.Internal(err, op, "failed to load cart")
	}

	cart = domain.NewCart(user.ID)
	if err := s.carts.Create(ctx, cart); err != nil {
		return nil, domain.Internal(err, op, "failed to create cart")
	}
	s.logger.Debug("cart created", "user_id", user.ID, "cart_id", cart.ID)
	return cart, nil
}

func (s *CartService) GetCart(ctx context.Context) (*domain.Cart, error) {
	return s.loadOrCreate(ctx, "cart.get")
}

func (s *CartService) AddItem(ctx context.Context, productID uuid.UUID, quantity int) (*domain.Cart, error) {
	const op = "cart.add_item"

	cart, err := s.loadOrCreate(ctx, op)
	if err != nil {
		return nil, err
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrProductNotFound.WithOp(op)
		}
		return nil, domain.Internal(err, op, "failed to load product")
	}
	if !product.IsAvailable {
		s.metrics.CartItemsAdded.WithLabelValues("unavailable").Inc()
		return nil, domain.ErrProductUnavailable.WithOp(op)
	}

	// The stock check covers the merged line quantity, not just the delta.
	merged := quantity
	if line, ok := cart.Item(productID); ok {
		merged += line.Quantity
	}
	if merged > product.Stock {
		s.metrics.CartItemsAdded.WithLabelValues("out_of_stock").Inc()
		return nil, domain.ErrInsufficientStock.WithOp(op)
	}

	if err := cart.AddItem(productID, quantity, product.PriceCents); err != nil {
		if errors.Is(err, domain.ErrCartLimitExceeded) {
			s.metrics.CartItemsAdded.WithLabelValues("limit_exceeded").Inc()
		}
		return nil, err
	}

	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, domain.Internal(err, op, "failed to save cart")
	}

	s.metrics.CartItemsAdded.WithLabelValues("ok").Inc()
	return cart, nil
}

func (s *CartService) UpdateItemQuantity(ctx context.Context, productID uuid.UUID, quantity int) (*domain.Cart, error) {
	const op = "cart.update_quantity"

	cart, err := s.loadOrCreate(ctx, op)
	if err != nil {
		return nil, err
	}

	if err := cart.UpdateQuantity(productID, quantity); err != nil {
		return nil, err
	}
	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, domain.Internal(err, op, "failed to save cart")
	}
	return cart, nil
}

func (s *CartService) RemoveItem(ctx context.Context, productID uuid.UUID) (*domain.Cart, error) {
	const op = "cart.remove_item"

	cart, err := s.loadOrCreate(ctx, op)
	if err != nil {
		return nil, err
	}

	cart.RemoveItem(productID)
	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, domain.Internal(err, op, "failed to save cart")
	}
	return cart, nil
}

func (s *CartService) ClearCart(ctx context.Context) (*domain.Cart, error) {
	const op = "cart.clear"

	cart, err := s.loadOrCreate(ctx, op)
	if err != nil {
		return nil, err
	}

	cart.Clear()
	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, domain.Internal(err, op, "failed to save cart")
	}

	s.metrics.CartCleared.Inc()
	return cart, nil
}

func (s *CartService) ValidateCart(ctx context.Context) (*domain.Cart, *domain.ValidationResult, error) {
	const op = "cart.validate"

	cart, err := s.loadOrCreate(ctx, op)
	if err != nil {
		return nil, nil, err
	}

	ids := make([]uuid.UUID, len(cart.Items))
	for i, item := range cart.Items {
		ids[i] = item.ProductID
	}
	live, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, nil, domain.Internal(err, op, "failed to load products")
	}

	result := cart.Validate(live)
	if result.IsValid {
		return cart, &result, nil
	}

	for _, issue := range result.Issues {
		s.metrics.CartCorrected.WithLabelValues(string(issue.Kind)).Inc()
	}
	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, nil, domain.Internal(err, op, "failed to save corrected cart")
	}

	s.logger.Info("cart corrected",
		"cart_id", cart.ID,
		"user_id", cart.UserID,
		"issues", len(result.Issues))
	return cart, &result, nil
}
