package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/tmcewen/vanir/internal/domain"
	"github.com/tmcewen/vanir/internal/repository"
)

// productRepo implements repository.ProductRepository on PostgreSQL.
// Product images are stored as a JSONB array; the rating aggregate is kept
// denormalized on the products row and recomputed when a review lands.
type productRepo struct {
	db DBTX
}

var _ repository.ProductRepository = (*productRepo)(nil)

const productColumns = `
	id, name, description, category, price_cents, old_price_cents,
	stock, is_available, availability_override, images,
	rating_average, rating_count, created_at, updated_at`

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var (
		p         domain.Product
		oldPrice  pgtype.Int8
		imagesRaw []byte
	)
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Category, &p.PriceCents, &oldPrice,
		&p.Stock, &p.IsAvailable, &p.AvailabilityOverride, &imagesRaw,
		&p.Rating.Average, &p.Rating.Count, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, mapNoRows(err)
	}

	p.OldPriceCents = ptrFromPgInt8(oldPrice)
	if len(imagesRaw) > 0 {
		if err := json.Unmarshal(imagesRaw, &p.Images); err != nil {
			return nil, fmt.Errorf("decode product images: %w", err)
		}
	}
	return &p, nil
}

func (r *productRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	row := r.db.QueryRow(ctx, `SELECT`+productColumns+` FROM products WHERE id = $1`, id)
	return scanProduct(row)
}

func (r *productRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Product, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]*domain.Product{}, nil
	}

	rows, err := r.db.Query(ctx, `SELECT`+productColumns+` FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	found := make(map[uuid.UUID]*domain.Product, len(ids))
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		found[p.ID] = p
	}
	return found, rows.Err()
}

func (r *productRepo) List(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, int64, error) {
	where := ` WHERE 1=1`
	args := []any{}
	if filter.Category != nil {
		args = append(args, *filter.Category)
		where += fmt.Sprintf(" AND category = $%d", len(args))
	}
	if filter.AvailableOnly {
		where += " AND is_available"
	}

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM products`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, filter.PerPage, (filter.Page-1)*filter.PerPage)
	query := `SELECT` + productColumns + ` FROM products` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, *p)
	}
	return products, total, rows.Err()
}

func (r *productRepo) Create(ctx context.Context, product *domain.Product) error {
	images, err := json.Marshal(product.Images)
	if err != nil {
		return fmt.Errorf("encode product images: %w", err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO products (
			id, name, description, category, price_cents, old_price_cents,
			stock, is_available, availability_override, images,
			rating_average, rating_count, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		product.ID, product.Name, product.Description, product.Category,
		product.PriceCents, pgInt8FromPtr(product.OldPriceCents),
		product.Stock, product.IsAvailable, product.AvailabilityOverride, images,
		product.Rating.Average, product.Rating.Count,
		product.CreatedAt, product.UpdatedAt,
	)
	return err
}

func (r *productRepo) Update(ctx context.Context, product *domain.Product) error {
	images, err := json.Marshal(product.Images)
	if err != nil {
		return fmt.Errorf("encode product images: %w", err)
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE products SET
			name = $2, description = $3, category = $4,
			price_cents = $5, old_price_cents = $6,
			stock = $7, is_available = $8, availability_override = $9,
			images = $10, updated_at = $11
		WHERE id = $1`,
		product.ID, product.Name, product.Description, product.Category,
		product.PriceCents, pgInt8FromPtr(product.OldPriceCents),
		product.Stock, product.IsAvailable, product.AvailabilityOverride,
		images, product.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *productRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DecrementStockIfEnough subtracts qty behind a stock guard, so concurrent
// checkouts can never drive stock negative. Derived availability is refreshed
// in the same statement unless the admin override is set.
func (r *productRepo) DecrementStockIfEnough(ctx context.Context, id uuid.UUID, qty int) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE products SET
			stock = stock - $2,
			is_available = CASE WHEN availability_override THEN is_available ELSE stock - $2 > 0 END,
			updated_at = now()
		WHERE id = $1 AND stock >= $2`,
		id, qty,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// Either the product is gone or the guard failed; the caller has
		// already confirmed existence, so report the stock conflict.
		return domain.ErrInsufficientStock
	}
	return nil
}

func (r *productRepo) RestoreStock(ctx context.Context, id uuid.UUID, qty int) error {
	_, err := r.db.Exec(ctx, `
		UPDATE products SET
			stock = stock + $2,
			is_available = CASE WHEN availability_override THEN is_available ELSE true END,
			updated_at = now()
		WHERE id = $1`,
		id, qty,
	)
	return err
}

func (r *productRepo) AddReview(ctx context.Context, review *domain.Review) (*domain.Product, error) {
	_, err := r.db.Exec(ctx, `
		INSERT INTO reviews (id, product_id, user_id, rating, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		review.ID, review.ProductID, review.UserID, review.Rating, review.Comment, review.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "reviews_product_id_user_id_key") {
			return nil, domain.ErrDuplicateReview
		}
		return nil, err
	}

	// Recompute the denormalized aggregate from the source of truth.
	row := r.db.QueryRow(ctx, `
		UPDATE products p SET
			rating_average = agg.avg,
			rating_count = agg.count,
			updated_at = now()
		FROM (
			SELECT coalesce(avg(rating), 0) AS avg, count(*) AS count
			FROM reviews WHERE product_id = $1
		) agg
		WHERE p.id = $1
		RETURNING
			p.id, p.name, p.description, p.category, p.price_cents, p.old_price_cents,
			p.stock, p.is_available, p.availability_override, p.images,
			p.rating_average, p.rating_count, p.created_at, p.updated_at`,
		review.ProductID,
	)
	return scanProduct(row)
}
