package postgres

import (
	"context"

	"github.com/google/uuid"

	"github.com/tmcewen/vanir/internal/domain"
	"github.com/tmcewen/vanir/internal/repository"
)

// cartRepo implements repository.CartRepository on PostgreSQL. Cart lines
// live in cart_items; Save replaces them wholesale, which keeps the write
// path simple and makes last-write-wins semantics explicit.
type cartRepo struct {
	db DBTX
}

var _ repository.CartRepository = (*cartRepo)(nil)

func (r *cartRepo) FindByUserID(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	var cart domain.Cart
	err := r.db.QueryRow(ctx, `
		SELECT id, user_id, total_items, total_price_cents, created_at, updated_at
		FROM carts WHERE user_id = $1`,
		userID,
	).Scan(&cart.ID, &cart.UserID, &cart.TotalItems, &cart.TotalPriceCents, &cart.CreatedAt, &cart.UpdatedAt)
	if err != nil {
		return nil, mapNoRows(err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT product_id, quantity, price_cents
		FROM cart_items WHERE cart_id = $1
		ORDER BY added_at`,
		cart.ID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cart.Items = []domain.CartItem{}
	for rows.Next() {
		var item domain.CartItem
		if err := rows.Scan(&item.ProductID, &item.Quantity, &item.PriceCents); err != nil {
			return nil, err
		}
		cart.Items = append(cart.Items, item)
	}
	return &cart, rows.Err()
}

func (r *cartRepo) Create(ctx context.Context, cart *domain.Cart) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO carts (id, user_id, total_items, total_price_cents, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())`,
		cart.ID, cart.UserID, cart.TotalItems, cart.TotalPriceCents,
	)
	return err
}

func (r *cartRepo) Save(ctx context.Context, cart *domain.Cart) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE carts SET total_items = $2, total_price_cents = $3, updated_at = now()
		WHERE id = $1`,
		cart.ID, cart.TotalItems, cart.TotalPriceCents,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	if _, err := r.db.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cart.ID); err != nil {
		return err
	}
	for _, item := range cart.Items {
		_, err := r.db.Exec(ctx, `
			INSERT INTO cart_items (cart_id, product_id, quantity, price_cents, added_at)
			VALUES ($1, $2, $3, $4, now())`,
			cart.ID, item.ProductID, item.Quantity, item.PriceCents,
		)
		if err != nil {
			return err
		}
	}
	return nil
}
