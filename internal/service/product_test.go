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

// productFixture wires a product service over an in-memory product map.
type productFixture struct {
	svc      *ProductService
	products map[uuid.UUID]*domain.Product

	created *domain.Product
	updated *domain.Product
	reviews []*domain.Review
}

func newProductFixture(t *testing.T) *productFixture {
	t.Helper()

	f := &productFixture{products: map[uuid.UUID]*domain.Product{}}
	repo := &mockProductRepo{
		FindByIDFunc: func(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
			if p, ok := f.products[id]; ok {
				return p, nil
			}
			return nil, repository.ErrNotFound
		},
		CreateFunc: func(ctx context.Context, product *domain.Product) error {
			f.created = product
			f.products[product.ID] = product
			return nil
		},
		UpdateFunc: func(ctx context.Context, product *domain.Product) error {
			if _, ok := f.products[product.ID]; !ok {
				return repository.ErrNotFound
			}
			f.updated = product
			f.products[product.ID] = product
			return nil
		},
		DeleteFunc: func(ctx context.Context, id uuid.UUID) error {
			if _, ok := f.products[id]; !ok {
				return repository.ErrNotFound
			}
			delete(f.products, id)
			return nil
		},
		AddReviewFunc: func(ctx context.Context, review *domain.Review) (*domain.Product, error) {
			for _, existing := range f.reviews {
				if existing.ProductID == review.ProductID && existing.UserID == review.UserID {
					return nil, domain.ErrDuplicateReview
				}
			}
			f.reviews = append(f.reviews, review)

			p := f.products[review.ProductID]
			var sum int
			var count int
			for _, r := range f.reviews {
				if r.ProductID == review.ProductID {
					sum += r.Rating
					count++
				}
			}
			p.Rating = domain.Rating{Average: float64(sum) / float64(count), Count: count}
			return p, nil
		},
	}

	f.svc = NewProductService(repo, testMetrics, testLogger())
	return f
}

func validCreateParams() domain.CreateProductParams {
	return domain.CreateProductParams{
		Name:        "Mechanical Keyboard",
		Description: "Tenkeyless, brown switches",
		Category:    domain.CategoryElectronics,
		PriceCents:  749900,
		Stock:       25,
	}
}

func TestProductService_CreateProduct(t *testing.T) {
	t.Run("creates with derived availability", func(t *testing.T) {
		f := newProductFixture(t)

		product, err := f.svc.CreateProduct(adminCtx(), validCreateParams())
		require.NoError(t, err)

		assert.NotEqual(t, uuid.Nil, product.ID)
		assert.True(t, product.IsAvailable)
		assert.False(t, product.AvailabilityOverride)
		assert.Equal(t, f.created, product)
	})

	t.Run("zero stock creates an unavailable product", func(t *testing.T) {
		f := newProductFixture(t)
		params := validCreateParams()
		params.Stock = 0

		product, err := f.svc.CreateProduct(adminCtx(), params)
		require.NoError(t, err)
		assert.False(t, product.IsAvailable)
	})

	t.Run("admin only", func(t *testing.T) {
		f := newProductFixture(t)

		_, err := f.svc.CreateProduct(customerCtx(uuid.New()), validCreateParams())
		assert.Equal(t, domain.EFORBIDDEN, domain.ErrorCode(err))
	})

	t.Run("collects field errors", func(t *testing.T) {
		f := newProductFixture(t)
		params := validCreateParams()
		params.Name = ""
		params.PriceCents = -1
		params.Category = domain.Category("gadgets")

		_, err := f.svc.CreateProduct(adminCtx(), params)
		require.Error(t, err)

		fields := domain.GetValidationFields(err)
		assert.Contains(t, fields, "name")
		assert.Contains(t, fields, "price")
		assert.Contains(t, fields, "category")
	})

	t.Run("old price must cover price", func(t *testing.T) {
		f := newProductFixture(t)
		params := validCreateParams()
		old := params.PriceCents - 100
		params.OldPriceCents = &old

		_, err := f.svc.CreateProduct(adminCtx(), params)
		require.Error(t, err)
		assert.Contains(t, domain.GetValidationFields(err), "oldPrice")
	})
}

func TestProductService_UpdateProduct(t *testing.T) {
	t.Run("applies only the provided fields", func(t *testing.T) {
		f := newProductFixture(t)
		product, err := f.svc.CreateProduct(adminCtx(), validCreateParams())
		require.NoError(t, err)

		newPrice := int64(699900)
		updated, err := f.svc.UpdateProduct(adminCtx(), product.ID, domain.UpdateProductParams{
			PriceCents: &newPrice,
		})
		require.NoError(t, err)

		assert.Equal(t, int64(699900), updated.PriceCents)
		assert.Equal(t, "Mechanical Keyboard", updated.Name)
	})

	t.Run("explicit availability sets the override", func(t *testing.T) {
		f := newProductFixture(t)
		product, err := f.svc.CreateProduct(adminCtx(), validCreateParams())
		require.NoError(t, err)

		off := false
		updated, err := f.svc.UpdateProduct(adminCtx(), product.ID, domain.UpdateProductParams{
			IsAvailable: &off,
		})
		require.NoError(t, err)

		assert.False(t, updated.IsAvailable)
		assert.True(t, updated.AvailabilityOverride)
	})

	t.Run("unknown product", func(t *testing.T) {
		f := newProductFixture(t)

		_, err := f.svc.UpdateProduct(adminCtx(), uuid.New(), domain.UpdateProductParams{})
		assert.ErrorIs(t, err, domain.ErrProductNotFound)
	})
}

func TestProductService_UpdateStock(t *testing.T) {
	setup := func(t *testing.T) (*productFixture, *domain.Product) {
		f := newProductFixture(t)
		product, err := f.svc.CreateProduct(adminCtx(), validCreateParams())
		require.NoError(t, err)
		return f, product
	}

	t.Run("add, subtract, set", func(t *testing.T) {
		f, product := setup(t)

		p, err := f.svc.UpdateStock(adminCtx(), product.ID, 5, domain.StockOpAdd)
		require.NoError(t, err)
		assert.Equal(t, 30, p.Stock)

		p, err = f.svc.UpdateStock(adminCtx(), product.ID, 30, domain.StockOpSubtract)
		require.NoError(t, err)
		assert.Equal(t, 0, p.Stock)
		assert.False(t, p.IsAvailable)

		p, err = f.svc.UpdateStock(adminCtx(), product.ID, 12, domain.StockOpSet)
		require.NoError(t, err)
		assert.Equal(t, 12, p.Stock)
		assert.True(t, p.IsAvailable)
	})

	t.Run("subtract below zero fails", func(t *testing.T) {
		f, product := setup(t)

		_, err := f.svc.UpdateStock(adminCtx(), product.ID, 26, domain.StockOpSubtract)
		assert.ErrorIs(t, err, domain.ErrNegativeStock)
	})

	t.Run("negative quantity fails", func(t *testing.T) {
		f, product := setup(t)

		_, err := f.svc.UpdateStock(adminCtx(), product.ID, -1, domain.StockOpAdd)
		assert.ErrorIs(t, err, domain.ErrInvalidStockAmount)
	})

	t.Run("admin only", func(t *testing.T) {
		f, product := setup(t)

		_, err := f.svc.UpdateStock(customerCtx(uuid.New()), product.ID, 1, domain.StockOpAdd)
		assert.Equal(t, domain.EFORBIDDEN, domain.ErrorCode(err))
	})
}

func TestProductService_AddReview(t *testing.T) {
	setup := func(t *testing.T) (*productFixture, *domain.Product) {
		f := newProductFixture(t)
		product, err := f.svc.CreateProduct(adminCtx(), validCreateParams())
		require.NoError(t, err)
		return f, product
	}

	t.Run("records the review and recomputes the mean", func(t *testing.T) {
		f, product := setup(t)

		p, err := f.svc.AddReview(customerCtx(uuid.New()), product.ID, 4, "solid build")
		require.NoError(t, err)
		assert.Equal(t, 4.0, p.Rating.Average)
		assert.Equal(t, 1, p.Rating.Count)

		p, err = f.svc.AddReview(customerCtx(uuid.New()), product.ID, 5, "")
		require.NoError(t, err)
		assert.Equal(t, 4.5, p.Rating.Average)
		assert.Equal(t, 2, p.Rating.Count)
	})

	t.Run("one review per user", func(t *testing.T) {
		f, product := setup(t)
		ctx := customerCtx(uuid.New())

		_, err := f.svc.AddReview(ctx, product.ID, 4, "")
		require.NoError(t, err)

		_, err = f.svc.AddReview(ctx, product.ID, 5, "changed my mind")
		assert.ErrorIs(t, err, domain.ErrDuplicateReview)
	})

	t.Run("rating bounds", func(t *testing.T) {
		f, product := setup(t)
		ctx := customerCtx(uuid.New())

		_, err := f.svc.AddReview(ctx, product.ID, 0, "")
		assert.ErrorIs(t, err, domain.ErrInvalidRating)

		_, err = f.svc.AddReview(ctx, product.ID, 6, "")
		assert.ErrorIs(t, err, domain.ErrInvalidRating)
	})

	t.Run("unknown product", func(t *testing.T) {
		f, _ := setup(t)

		_, err := f.svc.AddReview(customerCtx(uuid.New()), uuid.New(), 4, "")
		assert.ErrorIs(t, err, domain.ErrProductNotFound)
	})
}
