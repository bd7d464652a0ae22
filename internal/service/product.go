// Package service implements the business logic behind the domain service
// interfaces, orchestrating repositories, events, and telemetry.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tmcewen/vanir/internal/domain"
	"github.com/tmcewen/vanir/internal/repository"
	"github.com/tmcewen/vanir/internal/telemetry"
)

// Listing pagination defaults and bounds.
const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// normalizePage clamps pagination inputs to sane values.
func normalizePage(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	return page, perPage
}

// ProductService implements domain.ProductService.
type ProductService struct {
	products repository.ProductRepository
	metrics  *telemetry.BusinessMetrics
	logger   *slog.Logger
}

var _ domain.ProductService = (*ProductService)(nil)

// NewProductService creates a product service.
func NewProductService(products repository.ProductRepository, metrics *telemetry.BusinessMetrics, logger *slog.Logger) *ProductService {
	return &ProductService{
		products: products,
		metrics:  metrics,
		logger:   logger,
	}
}

func (s *ProductService) GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrProductNotFound.WithOp("product.get")
		}
		return nil, domain.Internal(err, "product.get", "failed to load product")
	}
	return product, nil
}

func (s *ProductService) ListProducts(ctx context.Context, filter domain.ProductFilter) (*domain.ProductPage, error) {
	if filter.Category != nil && !domain.ValidCategory(*filter.Category) {
		return nil, domain.ErrInvalidCategory.WithOp("product.list")
	}
	filter.Page, filter.PerPage = normalizePage(filter.Page, filter.PerPage)

	products, total, err := s.products.List(ctx, filter)
	if err != nil {
		return nil, domain.Internal(err, "product.list", "failed to list products")
	}

	return &domain.ProductPage{
		Products:   products,
		TotalItems: total,
		Page:       filter.Page,
		PerPage:    filter.PerPage,
	}, nil
}

func validateProductParams(op string, name string, category domain.Category, priceCents int64, oldPriceCents *int64, stock int) error {
	var err error
	if name == "" {
		err = domain.AddFieldError(err, "name", "name is required")
	}
	if !domain.ValidCategory(category) {
		err = domain.AddFieldError(err, "category", "unknown category")
	}
	if priceCents < 0 {
		err = domain.AddFieldError(err, "price", "price must not be negative")
	}
	if oldPriceCents != nil && *oldPriceCents < priceCents {
		err = domain.AddFieldError(err, "oldPrice", "old price must be greater than or equal to price")
	}
	if stock < 0 {
		err = domain.AddFieldError(err, "stock", "stock must not be negative")
	}
	if err != nil {
		if ve, ok := err.(*domain.ValidationError); ok {
			ve.Op = op
		}
		return err
	}
	return nil
}

func (s *ProductService) CreateProduct(ctx context.Context, params domain.CreateProductParams) (*domain.Product, error) {
	const op = "product.create"

	if err := requireAdmin(ctx, op); err != nil {
		return nil, err
	}
	if err := validateProductParams(op, params.Name, params.Category, params.PriceCents, params.OldPriceCents, params.Stock); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	product := &domain.Product{
		ID:            uuid.New(),
		Name:          params.Name,
		Description:   params.Description,
		Category:      params.Category,
		PriceCents:    params.PriceCents,
		OldPriceCents: params.OldPriceCents,
		Stock:         params.Stock,
		IsAvailable:   params.Stock > 0,
		Images:        params.Images,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.products.Create(ctx, product); err != nil {
		return nil, domain.Internal(err, op, "failed to save product")
	}

	s.logger.Info("product created",
		"product_id", product.ID,
		"category", product.Category,
		"price_cents", product.PriceCents)
	return product, nil
}

func (s *ProductService) UpdateProduct(ctx context.Context, id uuid.UUID, params domain.UpdateProductParams) (*domain.Product, error) {
	const op = "product.update"

	if err := requireAdmin(ctx, op); err != nil {
		return nil, err
	}

	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrProductNotFound.WithOp(op)
		}
		return nil, domain.Internal(err, op, "failed to load product")
	}

	if params.Name != nil {
		product.Name = *params.Name
	}
	if params.Description != nil {
		product.Description = *params.Description
	}
	if params.Category != nil {
		product.Category = *params.Category
	}
	if params.PriceCents != nil {
		product.PriceCents = *params.PriceCents
	}
	if params.OldPriceCents != nil {
		product.OldPriceCents = params.OldPriceCents
	}
	if params.Images != nil {
		product.Images = params.Images
	}
	if params.IsAvailable != nil {
		// Explicit availability pins the flag until stock changes clear it.
		product.IsAvailable = *params.IsAvailable
		product.AvailabilityOverride = true
	}

	if err := validateProductParams(op, product.Name, product.Category, product.PriceCents, product.OldPriceCents, product.Stock); err != nil {
		return nil, err
	}

	product.UpdatedAt = time.Now().UTC()
	if err := s.products.Update(ctx, product); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrProductNotFound.WithOp(op)
		}
		return nil, domain.Internal(err, op, "failed to save product")
	}
	return product, nil
}

// DeleteProduct removes the product row. Order item snapshots are untouched;
// carts still referencing the product self-correct on their next validation.
func (s *ProductService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	const op = "product.delete"

	if err := requireAdmin(ctx, op); err != nil {
		return err
	}

	if err := s.products.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrProductNotFound.WithOp(op)
		}
		return domain.Internal(err, op, "failed to delete product")
	}

	s.logger.Info("product deleted", "product_id", id)
	return nil
}

func (s *ProductService) UpdateStock(ctx context.Context, id uuid.UUID, qty int, op domain.StockOp) (*domain.Product, error) {
	const operation = "product.update_stock"

	if err := requireAdmin(ctx, operation); err != nil {
		return nil, err
	}
	if qty < 0 {
		return nil, domain.ErrInvalidStockAmount.WithOp(operation)
	}

	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrProductNotFound.WithOp(operation)
		}
		return nil, domain.Internal(err, operation, "failed to load product")
	}

	if err := product.ApplyStock(qty, op); err != nil {
		return nil, err
	}

	product.UpdatedAt = time.Now().UTC()
	if err := s.products.Update(ctx, product); err != nil {
		return nil, domain.Internal(err, operation, "failed to save stock")
	}

	s.metrics.StockUpdates.WithLabelValues(string(op)).Inc()
	s.logger.Info("stock updated",
		"product_id", id,
		"operation", op,
		"quantity", qty,
		"stock", product.Stock)
	return product, nil
}

func (s *ProductService) AddReview(ctx context.Context, productID uuid.UUID, rating int, comment string) (*domain.Product, error) {
	const op = "product.add_review"

	user, err := domain.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	if rating < 1 || rating > 5 {
		return nil, domain.ErrInvalidRating.WithOp(op)
	}

	if _, err := s.products.FindByID(ctx, productID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrProductNotFound.WithOp(op)
		}
		return nil, domain.Internal(err, op, "failed to load product")
	}

	review := &domain.Review{
		ID:        uuid.New(),
		ProductID: productID,
		UserID:    user.ID,
		Rating:    rating,
		Comment:   comment,
		CreatedAt: time.Now().UTC(),
	}

	product, err := s.products.AddReview(ctx, review)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateReview) {
			return nil, domain.ErrDuplicateReview.WithOp(op)
		}
		return nil, domain.Internal(err, op, "failed to save review")
	}

	s.metrics.ReviewsAdded.Inc()
	return product, nil
}

// requireAdmin rejects callers without the admin role.
func requireAdmin(ctx context.Context, op string) error {
	user, err := domain.RequireUser(ctx)
	if err != nil {
		return err
	}
	if !user.IsAdmin() {
		return domain.Forbidden(op, "admin role required")
	}
	return nil
}
