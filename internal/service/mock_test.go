package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tmcewen/vanir/internal/domain"
	"github.com/tmcewen/vanir/internal/repository"
	"github.com/tmcewen/vanir/internal/telemetry"
)

// Prometheus collectors register globally, so the whole test binary shares
// one metrics instance.
var testMetrics = telemetry.NewBusinessMetrics("vanir_test")

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func customerCtx(userID uuid.UUID) context.Context {
	return domain.NewContextWithUser(context.Background(), &domain.User{
		ID:   userID,
		Role: domain.RoleCustomer,
	})
}

func adminCtx() context.Context {
	return domain.NewContextWithUser(context.Background(), &domain.User{
		ID:   uuid.New(),
		Role: domain.RoleAdmin,
	})
}

// mockProductRepo implements repository.ProductRepository with overridable
// function fields. Unset methods panic so tests fail loudly on unexpected
// calls.
type mockProductRepo struct {
	FindByIDFunc               func(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	FindByIDsFunc              func(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Product, error)
	ListFunc                   func(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, int64, error)
	CreateFunc                 func(ctx context.Context, product *domain.Product) error
	UpdateFunc                 func(ctx context.Context, product *domain.Product) error
	DeleteFunc                 func(ctx context.Context, id uuid.UUID) error
	DecrementStockIfEnoughFunc func(ctx context.Context, id uuid.UUID, qty int) error
	RestoreStockFunc           func(ctx context.Context, id uuid.UUID, qty int) error
	AddReviewFunc              func(ctx context.Context, review *domain.Review) (*domain.Product, error)
}

var _ repository.ProductRepository = (*mockProductRepo)(nil)

func (m *mockProductRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return m.FindByIDFunc(ctx, id)
}

func (m *mockProductRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Product, error) {
	return m.FindByIDsFunc(ctx, ids)
}

func (m *mockProductRepo) List(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, int64, error) {
	return m.ListFunc(ctx, filter)
}

func (m *mockProductRepo) Create(ctx context.Context, product *domain.Product) error {
	return m.CreateFunc(ctx, product)
}

func (m *mockProductRepo) Update(ctx context.Context, product *domain.Product) error {
	return m.UpdateFunc(ctx, product)
}

func (m *mockProductRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return m.DeleteFunc(ctx, id)
}

func (m *mockProductRepo) DecrementStockIfEnough(ctx context.Context, id uuid.UUID, qty int) error {
	return m.DecrementStockIfEnoughFunc(ctx, id, qty)
}

func (m *mockProductRepo) RestoreStock(ctx context.Context, id uuid.UUID, qty int) error {
	return m.RestoreStockFunc(ctx, id, qty)
}

func (m *mockProductRepo) AddReview(ctx context.Context, review *domain.Review) (*domain.Product, error) {
	return m.AddReviewFunc(ctx, review)
}

// mockCartRepo implements repository.CartRepository.
type mockCartRepo struct {
	FindByUserIDFunc func(ctx context.Context, userID uuid.UUID) (*domain.Cart, error)
	CreateFunc       func(ctx context.Context, cart *domain.Cart) error
	SaveFunc         func(ctx context.Context, cart *domain.Cart) error
}

var _ repository.CartRepository = (*mockCartRepo)(nil)

func (m *mockCartRepo) FindByUserID(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	return m.FindByUserIDFunc(ctx, userID)
}

func (m *mockCartRepo) Create(ctx context.Context, cart *domain.Cart) error {
	return m.CreateFunc(ctx, cart)
}

func (m *mockCartRepo) Save(ctx context.Context, cart *domain.Cart) error {
	return m.SaveFunc(ctx, cart)
}

// mockOrderRepo implements repository.OrderRepository.
type mockOrderRepo struct {
	CreateFunc       func(ctx context.Context, order *domain.Order) error
	FindByIDFunc     func(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListByUserIDFunc func(ctx context.Context, userID uuid.UUID) ([]domain.Order, error)
	ListFunc         func(ctx context.Context, filter repository.OrderFilter) ([]domain.Order, int64, error)
	SaveFunc         func(ctx context.Context, order *domain.Order) error
	DeleteFunc       func(ctx context.Context, id uuid.UUID) error
}

var _ repository.OrderRepository = (*mockOrderRepo)(nil)

func (m *mockOrderRepo) Create(ctx context.Context, order *domain.Order) error {
	return m.CreateFunc(ctx, order)
}

func (m *mockOrderRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return m.FindByIDFunc(ctx, id)
}

func (m *mockOrderRepo) ListByUserID(ctx context.Context, userID uuid.UUID) ([]domain.Order, error) {
	return m.ListByUserIDFunc(ctx, userID)
}

func (m *mockOrderRepo) List(ctx context.Context, filter repository.OrderFilter) ([]domain.Order, int64, error) {
	return m.ListFunc(ctx, filter)
}

func (m *mockOrderRepo) Save(ctx context.Context, order *domain.Order) error {
	return m.SaveFunc(ctx, order)
}

func (m *mockOrderRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return m.DeleteFunc(ctx, id)
}

// mockTxRepos bundles the mocks behind repository.TxRepos.
type mockTxRepos struct {
	products *mockProductRepo
	carts    *mockCartRepo
	orders   *mockOrderRepo
}

func (m *mockTxRepos) Products() repository.ProductRepository { return m.products }
func (m *mockTxRepos) Carts() repository.CartRepository       { return m.carts }
func (m *mockTxRepos) Orders() repository.OrderRepository     { return m.orders }

// mockTxManager runs the callback against the given repos without any real
// transaction. Rollback semantics are the database's concern, not the
// service logic under test.
type mockTxManager struct {
	repos *mockTxRepos
	calls int
}

var _ repository.TransactionManager = (*mockTxManager)(nil)

func (m *mockTxManager) WithinTx(ctx context.Context, fn func(r repository.TxRepos) error) error {
	m.calls++
	return fn(m.repos)
}

// recordingPublisher captures published events for assertions.
type recordingPublisher struct {
	created   []*domain.Order
	cancelled []*domain.Order
}

func (p *recordingPublisher) OrderCreated(order *domain.Order)   { p.created = append(p.created, order) }
func (p *recordingPublisher) OrderCancelled(order *domain.Order) { p.cancelled = append(p.cancelled, order) }

func validAddress() domain.ShippingAddress {
	return domain.ShippingAddress{
		FullName: "Asha Rao",
		Street:   "14 MG Road",
		City:     "Bengaluru",
		State:    "Karnataka",
		ZipCode:  "560001",
		Phone:    "+91 98450 12345",
		Country:  "India",
	}
}

func availableProduct(price int64, stock int) *domain.Product {
	now := time.Now().UTC()
	return &domain.Product{
		ID:          uuid.New(),
		Name:        "Test Product",
		Category:    domain.CategoryElectronics,
		PriceCents:  price,
		Stock:       stock,
		IsAvailable: stock > 0,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
