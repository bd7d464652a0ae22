// Package repository declares the persistence ports used by the service
// layer. Implementations live in internal/postgres; tests substitute
// function-field mocks.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/tmcewen/vanir/internal/domain"
)

// ErrNotFound is returned when a requested row does not exist. Services
// translate it to the resource-specific domain error.
var ErrNotFound = errors.New("not found")

// ProductRepository persists catalog products and their reviews.
type ProductRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)

	// FindByIDs returns the products for the given IDs keyed by ID.
	// Missing IDs are simply absent from the map, not an error.
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Product, error)

	List(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, int64, error)
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, id uuid.UUID) error

	// DecrementStockIfEnough atomically subtracts qty from the product's
	// stock only when the remaining stock suffices. Returns
	// domain.ErrInsufficientStock when the guard fails.
	DecrementStockIfEnough(ctx context.Context, id uuid.UUID, qty int) error

	// RestoreStock adds qty back to the product's stock. A missing product
	// is ignored: it may have been deleted since the order was placed.
	RestoreStock(ctx context.Context, id uuid.UUID, qty int) error

	// AddReview inserts a review and recomputes the product's rating
	// aggregate in the same statement batch. Returns
	// domain.ErrDuplicateReview when the user already reviewed the product.
	AddReview(ctx context.Context, review *domain.Review) (*domain.Product, error)
}

// CartRepository persists per-user carts. One cart per user.
type CartRepository interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) (*domain.Cart, error)
	Create(ctx context.Context, cart *domain.Cart) error

	// Save replaces the cart's lines and totals with the in-memory state.
	Save(ctx context.Context, cart *domain.Cart) error
}

// OrderFilter narrows admin order listing.
type OrderFilter struct {
	Status *domain.OrderStatus
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}

// OrderRepository persists orders and their item snapshots.
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]domain.Order, error)
	List(ctx context.Context, filter OrderFilter) ([]domain.Order, int64, error)

	// Save persists the mutable order fields: status, payment state,
	// tracking, cancellation reason, and the lifecycle timestamps.
	Save(ctx context.Context, order *domain.Order) error

	Delete(ctx context.Context, id uuid.UUID) error
}

// TxRepos exposes the repositories bound to one transaction.
type TxRepos interface {
	Products() ProductRepository
	Carts() CartRepository
	Orders() OrderRepository
}

// TransactionManager runs a function inside a database transaction. The
// transaction commits when fn returns nil and rolls back otherwise. Checkout
// and cancellation use it so order writes and stock mutations land together.
type TransactionManager interface {
	WithinTx(ctx context.Context, fn func(r TxRepos) error) error
}
