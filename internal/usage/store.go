package usage

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store persists the quota columns of an account. Mutating methods return
// ErrAccountNotFound when no row has the given id, except where noted.
type Store interface {
	Get(ctx context.Context, id uuid.UUID) (*Account, error)

	// InitializeIfMissing fills only the quota fields that are still NULL.
	InitializeIfMissing(ctx context.Context, id uuid.UUID, defaults Defaults, now time.Time) error

	// ResetPeriod zeroes both counters and moves the period start to now, but
	// only while the stored start still equals expectedStart. It returns false
	// when another caller already rolled the period over.
	ResetPeriod(ctx context.Context, id uuid.UUID, expectedStart, now time.Time) (bool, error)

	Increment(ctx context.Context, id uuid.UUID, kind Kind) error

	// Reserve increments the kind's counter only if the account is not
	// blocked, the period has not moved and the counter is below its limit.
	// It returns false when the conditional update matched nothing.
	Reserve(ctx context.Context, id uuid.UUID, kind Kind, periodStart time.Time) (bool, error)

	// Release undoes a Reserve. It is a no-op when the period has moved on.
	Release(ctx context.Context, id uuid.UUID, kind Kind, periodStart time.Time) error

	SetBlocked(ctx context.Context, id uuid.UUID, reason string) error
	ClearBlocked(ctx context.Context, id uuid.UUID) error
	UpdateLimits(ctx context.Context, id uuid.UUID, limits Limits) error
}
