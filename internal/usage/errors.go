package usage

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrBlocked             = errors.New("account blocked")
	ErrQuotaExhausted      = errors.New("monthly quota exhausted")
	ErrRateLimited         = errors.New("generation rate limit exceeded")
	ErrInvalidKind         = errors.New("invalid usage kind")
	ErrBlockReasonRequired = errors.New("block reason is required")
	ErrInvalidLimit        = errors.New("limit must be a positive integer")
)

// BlockedError carries the stored block reason. It matches ErrBlocked.
type BlockedError struct {
	Reason string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("account blocked: %s", e.Reason)
}

func (e *BlockedError) Unwrap() error { return ErrBlocked }

// QuotaExhaustedError tells the caller when the quota becomes available again.
// It matches ErrQuotaExhausted.
type QuotaExhaustedError struct {
	Kind      Kind
	Remaining int
	PeriodEnd time.Time
}

func (e *QuotaExhaustedError) Error() string {
	return fmt.Sprintf("monthly %s limit reached until %s", e.Kind.Label(), e.PeriodEnd.Format(time.RFC3339))
}

func (e *QuotaExhaustedError) Unwrap() error { return ErrQuotaExhausted }
