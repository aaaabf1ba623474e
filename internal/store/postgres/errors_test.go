package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/alanyoungcy/dealbroker/internal/domain"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		notFound   bool
		exists     bool
		retryable  bool
		persistent bool
	}{
		{name: "no rows", err: pgx.ErrNoRows, notFound: true},
		{name: "wrapped no rows", err: fmt.Errorf("scan: %w", pgx.ErrNoRows), notFound: true},
		{name: "unique violation", err: &pgconn.PgError{Code: "23505", ConstraintName: "auctions_pkey"}, exists: true},
		{name: "serialization failure", err: &pgconn.PgError{Code: "40001"}, retryable: true},
		{name: "deadlock", err: &pgconn.PgError{Code: "40P01"}, retryable: true},
		{name: "connection failure", err: &pgconn.PgError{Code: "08006"}, retryable: true},
		{name: "admin shutdown", err: &pgconn.PgError{Code: "57P01"}, retryable: true},
		{name: "check violation", err: &pgconn.PgError{Code: "23514"}, persistent: true},
		{name: "syntax error", err: &pgconn.PgError{Code: "42601"}, persistent: true},
		{name: "unknown", err: errors.New("boom"), persistent: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify("op", tt.err)
			if got == nil {
				t.Fatal("classify returned nil")
			}
			if errors.Is(got, domain.ErrNotFound) != tt.notFound {
				t.Errorf("ErrNotFound = %v, expected %v (%v)", !tt.notFound, tt.notFound, got)
			}
			if errors.Is(got, domain.ErrAlreadyExists) != tt.exists {
				t.Errorf("ErrAlreadyExists = %v, expected %v (%v)", !tt.exists, tt.exists, got)
			}
			if domain.IsRetryable(got) != tt.retryable {
				t.Errorf("IsRetryable = %v, expected %v (%v)", !tt.retryable, tt.retryable, got)
			}
			var pe *domain.PersistenceError
			if errors.As(got, &pe) != tt.persistent {
				t.Errorf("PersistenceError = %v, expected %v (%v)", !tt.persistent, tt.persistent, got)
			}
			if !errors.Is(got, tt.err) && !tt.notFound {
				t.Errorf("classify(%v) lost the driver error: %v", tt.err, got)
			}
		})
	}
}

func TestClassifyPassesThroughNilAndContext(t *testing.T) {
	if err := classify("op", nil); err != nil {
		t.Errorf("classify(nil) = %v, expected nil", err)
	}

	err := classify("op", context.DeadlineExceeded)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("classify(deadline) = %v, expected it to wrap context.DeadlineExceeded", err)
	}
	if domain.IsRetryable(err) {
		t.Errorf("deadline should not be retried: %v", err)
	}
}
