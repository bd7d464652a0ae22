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

// orderRepo implements repository.OrderRepository on PostgreSQL. The shipping
// address is stored as JSONB since the core never queries its fields; item
// snapshots live in order_items and are written once at checkout.
type orderRepo struct {
	db DBTX
}

var _ repository.OrderRepository = (*orderRepo)(nil)

const orderColumns = `
	id, order_number, user_id, status,
	payment_method, payment_status, payment_amount_cents, paid_at,
	shipping_address, subtotal_cents, shipping_cents, tax_cents, total_cents,
	notes, tracking_carrier, tracking_number, cancellation_reason,
	shipped_at, delivered_at, cancelled_at, created_at, updated_at`

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		o               domain.Order
		paidAt          pgtype.Timestamptz
		addressRaw      []byte
		trackingCarrier pgtype.Text
		trackingNumber  pgtype.Text
		shippedAt       pgtype.Timestamptz
		deliveredAt     pgtype.Timestamptz
		cancelledAt     pgtype.Timestamptz
	)
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.UserID, &o.Status,
		&o.Payment.Method, &o.Payment.Status, &o.Payment.AmountCents, &paidAt,
		&addressRaw, &o.SubtotalCents, &o.ShippingCents, &o.TaxCents, &o.TotalCents,
		&o.Notes, &trackingCarrier, &trackingNumber, &o.CancellationReason,
		&shippedAt, &deliveredAt, &cancelledAt, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, mapNoRows(err)
	}

	if err := json.Unmarshal(addressRaw, &o.ShippingAddress); err != nil {
		return nil, fmt.Errorf("decode shipping address: %w", err)
	}
	o.Payment.PaidAt = ptrFromPgTimestamptz(paidAt)
	o.ShippedAt = ptrFromPgTimestamptz(shippedAt)
	o.DeliveredAt = ptrFromPgTimestamptz(deliveredAt)
	o.CancelledAt = ptrFromPgTimestamptz(cancelledAt)
	if trackingNumber.Valid {
		o.Tracking = &domain.TrackingInfo{
			Carrier: trackingCarrier.String,
			Number:  trackingNumber.String,
		}
	}
	return &o, nil
}

func (r *orderRepo) loadItems(ctx context.Context, orders []domain.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, len(orders))
	byID := make(map[uuid.UUID]*domain.Order, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
		byID[orders[i].ID] = &orders[i]
		orders[i].Items = []domain.OrderItem{}
	}

	rows, err := r.db.Query(ctx, `
		SELECT order_id, product_id, name, image_url, price_cents, quantity, total_cents
		FROM order_items WHERE order_id = ANY($1)
		ORDER BY position`,
		ids,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID uuid.UUID
			item    domain.OrderItem
		)
		if err := rows.Scan(&orderID, &item.ProductID, &item.Name, &item.ImageURL,
			&item.PriceCents, &item.Quantity, &item.TotalCents); err != nil {
			return err
		}
		if o := byID[orderID]; o != nil {
			o.Items = append(o.Items, item)
		}
	}
	return rows.Err()
}

func (r *orderRepo) Create(ctx context.Context, order *domain.Order) error {
	address, err := json.Marshal(order.ShippingAddress)
	if err != nil {
		return fmt.Errorf("encode shipping address: %w", err)
	}

	var trackingCarrier, trackingNumber pgtype.Text
	if order.Tracking != nil {
		trackingCarrier = pgtype.Text{String: order.Tracking.Carrier, Valid: true}
		trackingNumber = pgtype.Text{String: order.Tracking.Number, Valid: true}
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO orders (
			id, order_number, user_id, status,
			payment_method, payment_status, payment_amount_cents, paid_at,
			shipping_address, subtotal_cents, shipping_cents, tax_cents, total_cents,
			notes, tracking_carrier, tracking_number, cancellation_reason,
			shipped_at, delivered_at, cancelled_at, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11,
			$12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22
		)`,
		order.ID, order.OrderNumber, order.UserID, order.Status,
		order.Payment.Method, order.Payment.Status, order.Payment.AmountCents,
		pgTimestamptzFromPtr(order.Payment.PaidAt),
		address, order.SubtotalCents, order.ShippingCents, order.TaxCents, order.TotalCents,
		order.Notes, trackingCarrier, trackingNumber, order.CancellationReason,
		pgTimestamptzFromPtr(order.ShippedAt), pgTimestamptzFromPtr(order.DeliveredAt),
		pgTimestamptzFromPtr(order.CancelledAt), order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return err
	}

	for i, item := range order.Items {
		_, err := r.db.Exec(ctx, `
			INSERT INTO order_items (order_id, position, product_id, name, image_url, price_cents, quantity, total_cents)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			order.ID, i, item.ProductID, item.Name, item.ImageURL,
			item.PriceCents, item.Quantity, item.TotalCents,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *orderRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	row := r.db.QueryRow(ctx, `SELECT`+orderColumns+` FROM orders WHERE id = $1`, id)
	order, err := scanOrder(row)
	if err != nil {
		return nil, err
	}

	orders := []domain.Order{*order}
	if err := r.loadItems(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

func (r *orderRepo) ListByUserID(ctx context.Context, userID uuid.UUID) ([]domain.Order, error) {
	rows, err := r.db.Query(ctx,
		`SELECT`+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.loadItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *orderRepo) List(ctx context.Context, filter repository.OrderFilter) ([]domain.Order, int64, error) {
	where := ` WHERE 1=1`
	args := []any{}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		where += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		where += fmt.Sprintf(" AND created_at <= $%d", len(args))
	}

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM orders`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, filter.Limit, filter.Offset)
	query := `SELECT` + orderColumns + ` FROM orders` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if err := r.loadItems(ctx, orders); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *orderRepo) Save(ctx context.Context, order *domain.Order) error {
	var trackingCarrier, trackingNumber pgtype.Text
	if order.Tracking != nil {
		trackingCarrier = pgtype.Text{String: order.Tracking.Carrier, Valid: true}
		trackingNumber = pgtype.Text{String: order.Tracking.Number, Valid: true}
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE orders SET
			status = $2, payment_status = $3, paid_at = $4,
			tracking_carrier = $5, tracking_number = $6, cancellation_reason = $7,
			shipped_at = $8, delivered_at = $9, cancelled_at = $10, updated_at = $11
		WHERE id = $1`,
		order.ID, order.Status, order.Payment.Status,
		pgTimestamptzFromPtr(order.Payment.PaidAt),
		trackingCarrier, trackingNumber, order.CancellationReason,
		pgTimestamptzFromPtr(order.ShippedAt), pgTimestamptzFromPtr(order.DeliveredAt),
		pgTimestamptzFromPtr(order.CancelledAt), order.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *orderRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
