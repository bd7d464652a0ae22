package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// PRODUCT DOMAIN TYPES
// =============================================================================

// Category classifies a product in the catalog.
type Category string

const (
	CategoryElectronics Category = "electronics"
	CategoryFashion     Category = "fashion"
	CategoryHome        Category = "home"
	CategoryBeauty      Category = "beauty"
	CategorySports      Category = "sports"
	CategoryBooks       Category = "books"
	CategoryToys        Category = "toys"
	CategoryGrocery     Category = "grocery"
	CategoryOther       Category = "other"
)

// ValidCategory reports whether c is a known category.
func ValidCategory(c Category) bool {
	switch c {
	case CategoryElectronics, CategoryFashion, CategoryHome, CategoryBeauty,
		CategorySports, CategoryBooks, CategoryToys, CategoryGrocery, CategoryOther:
		return true
	}
	return false
}

// StockOp selects how UpdateStock interprets its quantity argument.
type StockOp string

const (
	StockOpAdd      StockOp = "add"
	StockOpSubtract StockOp = "subtract"
	StockOpSet      StockOp = "set"
)

// ProductImage is an opaque (identifier, URL) pair managed outside this core.
type ProductImage struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Rating aggregates review scores for a product.
// Average is a plain mean over all stored review ratings.
type Rating struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// Product represents a catalog item with price, stock, and availability.
type Product struct {
	ID          uuid.UUID
	Name        string
	Description string
	Category    Category

	// Prices are integer cents. OldPriceCents is optional (nil when the
	// product has never been discounted) and must be >= PriceCents.
	PriceCents    int64
	OldPriceCents *int64

	// Stock and availability. IsAvailable is derived (stock > 0) unless an
	// admin has explicitly overridden it via AvailabilityOverride.
	Stock                int
	IsAvailable          bool
	AvailabilityOverride bool

	Images []ProductImage
	Rating Rating

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ApplyStock computes the product's stock after applying op with qty and
// refreshes derived availability. Fails with ErrNegativeStock if the result
// would be negative. The override flag pins availability regardless of stock.
func (p *Product) ApplyStock(qty int, op StockOp) error {
	var next int
	switch op {
	case StockOpAdd:
		next = p.Stock + qty
	case StockOpSubtract:
		next = p.Stock - qty
	case StockOpSet:
		next = qty
	default:
		return Errorf(EINVALID, "product.apply_stock", "invalid stock operation: %s", op)
	}

	if next < 0 {
		return ErrNegativeStock
	}

	p.Stock = next
	if !p.AvailabilityOverride {
		p.IsAvailable = next > 0
	}
	return nil
}

// Review is one user's rating of a product. One review per user per product.
type Review struct {
	ID        uuid.UUID
	ProductID uuid.UUID
	UserID    uuid.UUID
	Rating    int // 1..5
	Comment   string
	CreatedAt time.Time
}

// =============================================================================
// SERVICE INTERFACE
// =============================================================================

// ProductFilter contains optional filters for product listing.
type ProductFilter struct {
	Category      *Category
	AvailableOnly bool
	Page          int
	PerPage       int
}

// ProductPage is one page of catalog results.
type ProductPage struct {
	Products   []Product
	TotalItems int64
	Page       int
	PerPage    int
}

// CreateProductParams contains parameters for creating a product.
type CreateProductParams struct {
	Name          string
	Description   string
	Category      Category
	PriceCents    int64
	OldPriceCents *int64
	Stock         int
	Images        []ProductImage
}

// UpdateProductParams contains parameters for updating a product.
// Pointer fields indicate optional updates (nil = no change).
type UpdateProductParams struct {
	Name          *string
	Description   *string
	Category      *Category
	PriceCents    *int64
	OldPriceCents *int64
	Images        []ProductImage

	// IsAvailable, when set, overrides derived availability.
	IsAvailable *bool
}

// ProductService provides business logic for catalog operations.
type ProductService interface {
	// GetProduct retrieves a product by ID.
	GetProduct(ctx context.Context, id uuid.UUID) (*Product, error)

	// ListProducts returns a page of products matching the filter.
	ListProducts(ctx context.Context, filter ProductFilter) (*ProductPage, error)

	// CreateProduct creates a new product (admin).
	CreateProduct(ctx context.Context, params CreateProductParams) (*Product, error)

	// UpdateProduct updates an existing product (admin).
	UpdateProduct(ctx context.Context, id uuid.UUID, params UpdateProductParams) (*Product, error)

	// DeleteProduct removes a product from the catalog (admin).
	// Orders keep their snapshots; carts referencing it are corrected on validation.
	DeleteProduct(ctx context.Context, id uuid.UUID) error

	// UpdateStock applies a stock operation and refreshes derived availability.
	UpdateStock(ctx context.Context, id uuid.UUID, qty int, op StockOp) (*Product, error)

	// AddReview records a one-per-user review and recomputes the rating mean.
	AddReview(ctx context.Context, productID uuid.UUID, rating int, comment string) (*Product, error)
}

// =============================================================================
// DOMAIN ERRORS
// =============================================================================

var (
	ErrProductNotFound    = &Error{Code: ENOTFOUND, Message: "Product not found"}
	ErrNegativeStock      = &Error{Code: ECONFLICT, Message: "Stock cannot go below zero"}
	ErrDuplicateReview    = &Error{Code: ECONFLICT, Message: "You have already reviewed this product"}
	ErrInvalidRating      = &Error{Code: EINVALID, Message: "Rating must be between 1 and 5"}
	ErrInvalidCategory    = &Error{Code: EINVALID, Message: "Invalid product category"}
	ErrInvalidPrice       = &Error{Code: EINVALID, Message: "Price must not be negative"}
	ErrInvalidOldPrice    = &Error{Code: EINVALID, Message: "Old price must be greater than or equal to price"}
	ErrInvalidStockAmount = &Error{Code: EINVALID, Message: "Stock quantity must not be negative"}
)
