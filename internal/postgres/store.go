// Package postgres implements the repository ports on PostgreSQL via pgx.
// A Store wraps a connection pool and hands out repositories that run either
// on the pool directly or inside a transaction through WithinTx.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tmcewen/vanir/internal/repository"
)

// DBTX is the subset of pgx operations the repositories need. Both
// *pgxpool.Pool and pgx.Tx satisfy it, so the same repository code serves
// pooled and transactional calls.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store owns the connection pool and implements both repository.TxRepos
// (for non-transactional access) and repository.TransactionManager.
type Store struct {
	pool *pgxpool.Pool

	products *productRepo
	carts    *cartRepo
	orders   *orderRepo
}

var (
	_ repository.TxRepos            = (*Store)(nil)
	_ repository.TransactionManager = (*Store)(nil)
)

// NewStore creates a Store backed by the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		pool:     pool,
		products: &productRepo{db: pool},
		carts:    &cartRepo{db: pool},
		orders:   &orderRepo{db: pool},
	}
}

// Connect opens a pgx pool and verifies connectivity.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

func (s *Store) Products() repository.ProductRepository { return s.products }
func (s *Store) Carts() repository.CartRepository       { return s.carts }
func (s *Store) Orders() repository.OrderRepository     { return s.orders }

// txRepos binds repositories to one open transaction.
type txRepos struct {
	products *productRepo
	carts    *cartRepo
	orders   *orderRepo
}

func (r *txRepos) Products() repository.ProductRepository { return r.products }
func (r *txRepos) Carts() repository.CartRepository       { return r.carts }
func (r *txRepos) Orders() repository.OrderRepository     { return r.orders }

// WithinTx runs fn inside a transaction, committing on nil and rolling back
// on error or panic.
func (s *Store) WithinTx(ctx context.Context, fn func(r repository.TxRepos) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	repos := &txRepos{
		products: &productRepo{db: tx},
		carts:    &cartRepo{db: tx},
		orders:   &orderRepo{db: tx},
	}

	if err := fn(repos); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
