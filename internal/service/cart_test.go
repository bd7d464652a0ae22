package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmcewen/vanir/internal/domain"
	"github.com/tmcewen/vanir/internal/repository"
)

// cartFixture wires a cart service with one user, an optional stored cart,
// and a live product map.
type cartFixture struct {
	svc      *CartService
	userID   uuid.UUID
	cart     *domain.Cart
	products map[uuid.UUID]*domain.Product

	createdCart *domain.Cart
	savedCart   *domain.Cart
}

func newCartFixture(t *testing.T) *cartFixture {
	t.Helper()

	f := &cartFixture{
		userID:   uuid.New(),
		products: map[uuid.UUID]*domain.Product{},
	}

	carts := &mockCartRepo{
		FindByUserIDFunc: func(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
			if f.cart == nil || userID != f.userID {
				return nil, repository.ErrNotFound
			}
			return f.cart, nil
		},
		CreateFunc: func(ctx context.Context, cart *domain.Cart) error {
			f.createdCart = cart
			f.cart = cart
			return nil
		},
		SaveFunc: func(ctx context.Context, cart *domain.Cart) error {
			f.savedCart = cart
			return nil
		},
	}
	products := &mockProductRepo{
		FindByIDFunc: func(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
			if p, ok := f.products[id]; ok {
				return p, nil
			}
			return nil, repository.ErrNotFound
		},
		FindByIDsFunc: func(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Product, error) {
			found := map[uuid.UUID]*domain.Product{}
			for _, id := range ids {
				if p, ok := f.products[id]; ok {
					found[id] = p
				}
			}
			return found, nil
		},
	}

	f.svc = NewCartService(carts, products, testMetrics, testLogger())
	return f
}

func (f *cartFixture) ctx() context.Context { return customerCtx(f.userID) }

func (f *cartFixture) seedProduct(price int64, stock int) *domain.Product {
	p := availableProduct(price, stock)
	f.products[p.ID] = p
	return p
}

func TestCartService_GetCart(t *testing.T) {
	t.Run("creates an empty cart on first access", func(t *testing.T) {
		f := newCartFixture(t)

		cart, err := f.svc.GetCart(f.ctx())
		require.NoError(t, err)

		assert.True(t, cart.IsEmpty())
		assert.Equal(t, f.userID, cart.UserID)
		require.NotNil(t, f.createdCart)
		assert.Equal(t, cart.ID, f.createdCart.ID)
	})

	t.Run("returns the existing cart on later access", func(t *testing.T) {
		f := newCartFixture(t)
		first, err := f.svc.GetCart(f.ctx())
		require.NoError(t, err)

		second, err := f.svc.GetCart(f.ctx())
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
	})

	t.Run("requires authentication", func(t *testing.T) {
		f := newCartFixture(t)

		_, err := f.svc.GetCart(context.Background())
		assert.Equal(t, domain.EUNAUTHORIZED, domain.ErrorCode(err))
	})
}

func TestCartService_AddItem(t *testing.T) {
	t.Run("snapshots the current price", func(t *testing.T) {
		f := newCartFixture(t)
		p := f.seedProduct(1999, 10)

		cart, err := f.svc.AddItem(f.ctx(), p.ID, 2)
		require.NoError(t, err)

		require.Len(t, cart.Items, 1)
		assert.Equal(t, int64(1999), cart.Items[0].PriceCents)
		assert.Equal(t, int64(3998), cart.TotalPriceCents)
		assert.Equal(t, cart, f.savedCart)
	})

	t.Run("unknown product", func(t *testing.T) {
		f := newCartFixture(t)

		_, err := f.svc.AddItem(f.ctx(), uuid.New(), 1)
		assert.ErrorIs(t, err, domain.ErrProductNotFound)
	})

	t.Run("unavailable product", func(t *testing.T) {
		f := newCartFixture(t)
		p := f.seedProduct(1000, 5)
		p.IsAvailable = false

		_, err := f.svc.AddItem(f.ctx(), p.ID, 1)
		assert.ErrorIs(t, err, domain.ErrProductUnavailable)
	})

	t.Run("stock check covers the merged quantity", func(t *testing.T) {
		f := newCartFixture(t)
		p := f.seedProduct(1000, 5)

		_, err := f.svc.AddItem(f.ctx(), p.ID, 4)
		require.NoError(t, err)

		// 4 already in the cart plus 2 more exceeds stock of 5.
		_, err = f.svc.AddItem(f.ctx(), p.ID, 2)
		assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	})

	t.Run("line quantity cap applies across merges", func(t *testing.T) {
		f := newCartFixture(t)
		p := f.seedProduct(1000, 50)

		_, err := f.svc.AddItem(f.ctx(), p.ID, 8)
		require.NoError(t, err)

		_, err = f.svc.AddItem(f.ctx(), p.ID, 3)
		assert.ErrorIs(t, err, domain.ErrCartLimitExceeded)
	})
}

func TestCartService_UpdateItemQuantity(t *testing.T) {
	f := newCartFixture(t)
	p := f.seedProduct(1000, 50)

	_, err := f.svc.AddItem(f.ctx(), p.ID, 2)
	require.NoError(t, err)

	cart, err := f.svc.UpdateItemQuantity(f.ctx(), p.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, cart.Items[0].Quantity)

	cart, err = f.svc.UpdateItemQuantity(f.ctx(), p.ID, 0)
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())
}

func TestCartService_ClearCart(t *testing.T) {
	f := newCartFixture(t)
	p := f.seedProduct(1000, 50)

	_, err := f.svc.AddItem(f.ctx(), p.ID, 2)
	require.NoError(t, err)

	cart, err := f.svc.ClearCart(f.ctx())
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())
	assert.Equal(t, int64(0), cart.TotalPriceCents)
}

func TestCartService_ValidateCart(t *testing.T) {
	t.Run("clean cart is not rewritten", func(t *testing.T) {
		f := newCartFixture(t)
		p := f.seedProduct(1000, 50)
		_, err := f.svc.AddItem(f.ctx(), p.ID, 2)
		require.NoError(t, err)
		f.savedCart = nil

		cart, result, err := f.svc.ValidateCart(f.ctx())
		require.NoError(t, err)

		assert.True(t, result.IsValid)
		assert.Len(t, cart.Items, 1)
		assert.Nil(t, f.savedCart, "no save when nothing changed")
	})

	t.Run("corrections are persisted", func(t *testing.T) {
		f := newCartFixture(t)
		p := f.seedProduct(1000, 50)
		_, err := f.svc.AddItem(f.ctx(), p.ID, 2)
		require.NoError(t, err)

		// Product disappears from the catalog after it was added.
		delete(f.products, p.ID)
		f.savedCart = nil

		cart, result, err := f.svc.ValidateCart(f.ctx())
		require.NoError(t, err)

		assert.False(t, result.IsValid)
		require.Len(t, result.Issues, 1)
		assert.Equal(t, domain.IssueProductRemoved, result.Issues[0].Kind)
		assert.True(t, cart.IsEmpty())
		assert.NotNil(t, f.savedCart)
	})
}
