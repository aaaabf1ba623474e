package postgres

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/alanyoungcy/dealbroker/internal/domain"
)

// classify maps a driver error onto the domain error taxonomy:
// no rows becomes ErrNotFound, unique violations ErrAlreadyExists,
// serialization failures, deadlocks and connection loss *RetryableError,
// and everything else *PersistenceError.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("postgres: %s: %w", op, domain.ErrNotFound)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("postgres: %s: %w", op, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "23505":
			return fmt.Errorf("postgres: %s: %w: %w", op, domain.ErrAlreadyExists, err)
		case retryableSQLState(pgErr.Code):
			return &domain.RetryableError{Op: op, Err: err}
		}
		return &domain.PersistenceError{Op: op, Err: err}
	}

	var connErr *pgconn.ConnectError
	var netErr net.Error
	if errors.As(err, &connErr) || errors.As(err, &netErr) || pgconn.SafeToRetry(err) || pgconn.Timeout(err) {
		return &domain.RetryableError{Op: op, Err: err}
	}
	return &domain.PersistenceError{Op: op, Err: err}
}

// retryableSQLState reports SQLSTATEs worth retrying: serialization_failure,
// deadlock_detected, connection exceptions (class 08) and admin shutdown.
func retryableSQLState(code string) bool {
	switch code {
	case "40001", "40P01", "57P01":
		return true
	}
	return strings.HasPrefix(code, "08")
}
