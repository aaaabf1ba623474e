package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/dealbroker/internal/domain"
)

// querier is the subset of pgx shared by *pgxpool.Pool and pgx.Tx, so every
// store runs unchanged inside or outside a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository implements domain.Repository by composing the per-aggregate
// stores over one querier.
type Repository struct {
	*AssetStore
	*DealPackageStore
	*AuctionStore
	*BidStore
	*BidderStore

	pool *pgxpool.Pool
	inTx bool
}

// NewRepository creates a Repository backed by the given connection pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return bind(pool, pool, false)
}

func bind(pool *pgxpool.Pool, q querier, inTx bool) *Repository {
	return &Repository{
		AssetStore:       &AssetStore{q: q},
		DealPackageStore: &DealPackageStore{q: q},
		AuctionStore:     &AuctionStore{q: q},
		BidStore:         &BidStore{q: q},
		BidderStore:      &BidderStore{q: q},
		pool:             pool,
		inTx:             inTx,
	}
}

// RunInTx runs fn inside a READ COMMITTED transaction. Nested calls join the
// outer transaction. Lost-update protection comes from the version column on
// auctions, not from the isolation level.
func (r *Repository) RunInTx(ctx context.Context, fn func(tx domain.Repository) error) error {
	if r.inTx {
		return fn(r)
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return classify("begin tx", err)
	}

	if err := fn(bind(r.pool, tx, true)); err != nil {
		_ = tx.Rollback(context.WithoutCancel(ctx))
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return classify("commit tx", err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.Repository = (*Repository)(nil)
