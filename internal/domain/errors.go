package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrAlreadyExists     = errors.New("already exists")
	ErrRateLimited       = errors.New("rate limited")
	ErrLockHeld          = errors.New("lock already held")
	ErrVersionConflict   = errors.New("version conflict")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidBid        = errors.New("invalid bid parameters")
	ErrInvalidEffort     = errors.New("invalid effort entry")
)

// InvalidAssetError reports the required asset fields that were missing or
// malformed at listing time.
type InvalidAssetError struct {
	Fields []string
}

func (e *InvalidAssetError) Error() string {
	return "invalid asset: " + strings.Join(e.Fields, ", ")
}

// AuctionNotActiveError is returned when a bid targets an auction that does
// not exist or is not LIVE. Status is empty when the auction was not found.
type AuctionNotActiveError struct {
	AuctionID string
	Status    AuctionStatus
}

func (e *AuctionNotActiveError) Error() string {
	if e.Status == "" {
		return fmt.Sprintf("auction %s not found", e.AuctionID)
	}
	return fmt.Sprintf("auction %s is not live (status %s)", e.AuctionID, e.Status)
}

// PersistenceError wraps a non-recoverable failure from the external store.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// RetryableError wraps a transient store failure (lost connection,
// serialization failure, deadlock) that may succeed when attempted again.
type RetryableError struct {
	Op  string
	Err error
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable: %s: %v", e.Op, e.Err)
}

func (e *RetryableError) Unwrap() error { return e.Err }

// DivisionByZeroGuardError is returned by collusion detection when the mean
// bid amount is zero and relative deviations are undefined.
type DivisionByZeroGuardError struct {
	BidCount int
}

func (e *DivisionByZeroGuardError) Error() string {
	return fmt.Sprintf("collusion check: mean of %d bids is zero", e.BidCount)
}

// IsRetryable reports whether err (or anything it wraps) is worth retrying.
// Version conflicts count as retryable because the caller re-reads state.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var re *RetryableError
	return errors.As(err, &re) || errors.Is(err, ErrVersionConflict)
}
