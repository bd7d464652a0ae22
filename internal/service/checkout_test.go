package service

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmcewen/vanir/internal/domain"
	"github.com/tmcewen/vanir/internal/repository"
)

// checkoutFixture wires a checkout service against in-memory mocks seeded
// with one cart and its products.
type checkoutFixture struct {
	svc       *CheckoutService
	userID    uuid.UUID
	cart      *domain.Cart
	products  map[uuid.UUID]*domain.Product
	publisher *recordingPublisher

	savedCart    *domain.Cart
	createdOrder *domain.Order
	decremented  map[uuid.UUID]int
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()

	f := &checkoutFixture{
		userID:      uuid.New(),
		products:    map[uuid.UUID]*domain.Product{},
		publisher:   &recordingPublisher{},
		decremented: map[uuid.UUID]int{},
	}
	f.cart = domain.NewCart(f.userID)

	products := &mockProductRepo{
		FindByIDsFunc: func(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Product, error) {
			found := map[uuid.UUID]*domain.Product{}
			for _, id := range ids {
				if p, ok := f.products[id]; ok {
					found[id] = p
				}
			}
			return found, nil
		},
		DecrementStockIfEnoughFunc: func(ctx context.Context, id uuid.UUID, qty int) error {
			p, ok := f.products[id]
			if !ok || p.Stock < qty {
				return domain.ErrInsufficientStock
			}
			p.Stock -= qty
			f.decremented[id] += qty
			return nil
		},
	}
	carts := &mockCartRepo{
		FindByUserIDFunc: func(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
			if userID != f.userID {
				return nil, repository.ErrNotFound
			}
			return f.cart, nil
		},
		SaveFunc: func(ctx context.Context, cart *domain.Cart) error {
			f.savedCart = cart
			return nil
		},
	}
	orders := &mockOrderRepo{
		CreateFunc: func(ctx context.Context, order *domain.Order) error {
			f.createdOrder = order
			return nil
		},
	}

	txm := &mockTxManager{repos: &mockTxRepos{products: products, carts: carts, orders: orders}}
	f.svc = NewCheckoutService(txm, f.publisher, testMetrics, testLogger(),
		domain.CheckoutConfig{ShippingCents: 15000, TaxCents: 0})
	return f
}

func (f *checkoutFixture) addLine(t *testing.T, price int64, stock, qty int) *domain.Product {
	t.Helper()
	p := availableProduct(price, stock)
	f.products[p.ID] = p
	require.NoError(t, f.cart.AddItem(p.ID, qty, price))
	return p
}

func TestCheckout_CreateOrder(t *testing.T) {
	params := func() domain.CreateOrderParams {
		return domain.CreateOrderParams{
			ShippingAddress: validAddress(),
			PaymentMethod:   domain.PaymentMethodUPI,
			Notes:           "leave at the door",
		}
	}

	t.Run("converts the cart into a pending order", func(t *testing.T) {
		f := newCheckoutFixture(t)
		p1 := f.addLine(t, 2000, 10, 2)
		p2 := f.addLine(t, 500, 5, 3)

		order, err := f.svc.CreateOrder(customerCtx(f.userID), params())
		require.NoError(t, err)

		assert.Equal(t, domain.OrderStatusPending, order.Status)
		assert.Equal(t, f.userID, order.UserID)
		assert.Equal(t, int64(5500), order.SubtotalCents)
		assert.Equal(t, int64(15000), order.ShippingCents)
		assert.Equal(t, int64(0), order.TaxCents)
		assert.Equal(t, int64(20500), order.TotalCents)
		assert.Equal(t, domain.PaymentStatusPending, order.Payment.Status)
		assert.Equal(t, int64(20500), order.Payment.AmountCents)
		assert.Equal(t, "leave at the door", order.Notes)
		require.Len(t, order.Items, 2)

		// Stock reserved, cart cleared, event published.
		assert.Equal(t, 2, f.decremented[p1.ID])
		assert.Equal(t, 3, f.decremented[p2.ID])
		require.NotNil(t, f.savedCart)
		assert.True(t, f.savedCart.IsEmpty())
		require.Len(t, f.publisher.created, 1)
		assert.Equal(t, order.ID, f.publisher.created[0].ID)
	})

	t.Run("order number carries the date prefix", func(t *testing.T) {
		f := newCheckoutFixture(t)
		f.addLine(t, 2000, 10, 1)

		order, err := f.svc.CreateOrder(customerCtx(f.userID), params())
		require.NoError(t, err)

		assert.True(t, strings.HasPrefix(order.OrderNumber, "ORD-"), order.OrderNumber)
		assert.Equal(t, order.OrderNumber, strings.ToUpper(order.OrderNumber))
	})

	t.Run("snapshot freezes product details at checkout time", func(t *testing.T) {
		f := newCheckoutFixture(t)
		p := f.addLine(t, 2000, 10, 2)
		p.Images = []domain.ProductImage{{ID: "img-1", URL: "https://cdn.example/p.jpg"}}

		// Price changed after the line was added; the live price wins.
		p.PriceCents = 2500

		order, err := f.svc.CreateOrder(customerCtx(f.userID), params())
		require.NoError(t, err)

		require.Len(t, order.Items, 1)
		item := order.Items[0]
		assert.Equal(t, p.Name, item.Name)
		assert.Equal(t, "https://cdn.example/p.jpg", item.ImageURL)
		assert.Equal(t, int64(2500), item.PriceCents)
		assert.Equal(t, int64(5000), item.TotalCents)
		assert.Equal(t, int64(5000), order.SubtotalCents)
	})

	t.Run("requires authentication", func(t *testing.T) {
		f := newCheckoutFixture(t)

		_, err := f.svc.CreateOrder(context.Background(), params())
		assert.Equal(t, domain.EUNAUTHORIZED, domain.ErrorCode(err))
	})

	t.Run("rejects empty cart", func(t *testing.T) {
		f := newCheckoutFixture(t)

		_, err := f.svc.CreateOrder(customerCtx(f.userID), params())
		assert.ErrorIs(t, err, domain.ErrEmptyCart)
	})

	t.Run("rejects unknown payment method", func(t *testing.T) {
		f := newCheckoutFixture(t)
		f.addLine(t, 2000, 10, 1)

		p := params()
		p.PaymentMethod = domain.PaymentMethod("cheque")
		_, err := f.svc.CreateOrder(customerCtx(f.userID), p)
		assert.ErrorIs(t, err, domain.ErrInvalidPaymentMethod)
	})

	t.Run("missing address fields fail with field errors", func(t *testing.T) {
		f := newCheckoutFixture(t)
		f.addLine(t, 2000, 10, 1)

		p := params()
		p.ShippingAddress.Phone = ""
		p.ShippingAddress.ZipCode = ""

		_, err := f.svc.CreateOrder(customerCtx(f.userID), p)
		require.Error(t, err)
		fields := domain.GetValidationFields(err)
		assert.Contains(t, fields, "phone")
		assert.Contains(t, fields, "zipCode")
	})

	t.Run("country defaults when omitted", func(t *testing.T) {
		f := newCheckoutFixture(t)
		f.addLine(t, 2000, 10, 1)

		p := params()
		p.ShippingAddress.Country = ""

		order, err := f.svc.CreateOrder(customerCtx(f.userID), p)
		require.NoError(t, err)
		assert.Equal(t, domain.DefaultCountry, order.ShippingAddress.Country)
	})

	t.Run("removed product aborts the whole checkout", func(t *testing.T) {
		f := newCheckoutFixture(t)
		f.addLine(t, 2000, 10, 1)
		gone := availableProduct(500, 5)
		require.NoError(t, f.cart.AddItem(gone.ID, 1, 500)) // never registered as live

		_, err := f.svc.CreateOrder(customerCtx(f.userID), params())
		assert.ErrorIs(t, err, domain.ErrProductNotFound)
		assert.Nil(t, f.createdOrder)
		assert.Nil(t, f.savedCart)
	})

	t.Run("unavailable product aborts the whole checkout", func(t *testing.T) {
		f := newCheckoutFixture(t)
		p := f.addLine(t, 2000, 10, 1)
		p.IsAvailable = false

		_, err := f.svc.CreateOrder(customerCtx(f.userID), params())
		assert.ErrorIs(t, err, domain.ErrProductUnavailable)
		assert.Nil(t, f.createdOrder)
	})

	t.Run("insufficient stock aborts before any decrement", func(t *testing.T) {
		f := newCheckoutFixture(t)
		f.addLine(t, 2000, 10, 2)
		p := f.addLine(t, 500, 1, 1)
		p.Stock = 0 // sold out between add and checkout
		p.IsAvailable = true

		_, err := f.svc.CreateOrder(customerCtx(f.userID), params())
		assert.ErrorIs(t, err, domain.ErrInsufficientStock)
		assert.Nil(t, f.createdOrder)
		assert.Empty(t, f.decremented)
	})
}
