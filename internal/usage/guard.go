package usage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/resumeai-platform/resumeai/internal/metrics"
	inats "github.com/resumeai-platform/resumeai/internal/nats"
)

// reserveAttempts bounds how often Run retries the conditional reservation
// after losing a race against a concurrent rollover.
const reserveAttempts = 2

// Outcome describes the quota left after a metered generation succeeded.
type Outcome struct {
	Kind      Kind      `json:"type"`
	Remaining int       `json:"remaining"`
	PeriodEnd time.Time `json:"period_end"`
}

// Guard wraps paid work with the quota check and charge.
type Guard struct {
	svc          *Service
	limiter      *RateLimiter
	maxPerMinute int
}

// NewGuard creates a Guard. limiter may be nil or maxPerMinute zero to
// disable the per-minute burst limit.
func NewGuard(svc *Service, limiter *RateLimiter, maxPerMinute int) *Guard {
	return &Guard{svc: svc, limiter: limiter, maxPerMinute: maxPerMinute}
}

// Run evaluates the account, reserves one unit of kind with a single
// conditional update, then runs fn. If fn fails the reservation is released
// and fn's error is returned unchanged, so failed attempts are never charged.
func (g *Guard) Run(ctx context.Context, id uuid.UUID, kind Kind, fn func(ctx context.Context) error) (*Outcome, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}

	var (
		decision    *Decision
		periodStart time.Time
		reserved    bool
	)
	for attempt := 0; attempt < reserveAttempts && !reserved; attempt++ {
		acct, now, err := g.svc.current(ctx, id)
		if err != nil {
			return nil, err
		}
		decision = decide(acct, kind, now)
		if err := g.rejection(ctx, id, kind, decision); err != nil {
			return nil, err
		}

		// Blocks and exhausted quotas are reported before the burst window,
		// which only counts requests that could otherwise be charged.
		if attempt == 0 {
			if err := g.checkBurst(ctx, id, kind); err != nil {
				return nil, err
			}
		}

		periodStart = acct.periodStart()
		reserved, err = g.svc.store.Reserve(ctx, id, kind, periodStart)
		if err != nil {
			return nil, err
		}
	}
	if !reserved {
		exhausted := &QuotaExhaustedError{Kind: kind, Remaining: 0, PeriodEnd: decision.PeriodEnd}
		g.record(ctx, id, kind, "exhausted", exhausted.Error())
		return nil, exhausted
	}

	if err := fn(ctx); err != nil {
		// The caller may have gone away; the refund must still land.
		if rerr := g.svc.store.Release(context.WithoutCancel(ctx), id, kind, periodStart); rerr != nil {
			slog.Error("usage: releasing reservation after failed generation",
				"error", rerr, "account_id", id, "kind", kind)
		}
		return nil, err
	}

	metrics.UsageDecisionsTotal.WithLabelValues(string(kind), "allowed").Inc()
	g.svc.publish(ctx, inats.AuditEvent{
		AccountID: id,
		EventType: inats.EventUsageConsumed,
		Severity:  "info",
		Kind:      string(kind),
		Details:   fmt.Sprintf("%s generation charged", kind.Label()),
	})

	left := decision.Remaining(kind) - 1
	if left < 0 {
		left = 0
	}
	return &Outcome{Kind: kind, Remaining: left, PeriodEnd: decision.PeriodEnd}, nil
}

// MinuteUsage reports the burst window for id, or nil when the burst limit
// is disabled.
func (g *Guard) MinuteUsage(ctx context.Context, id uuid.UUID) (*BurstStatus, error) {
	if g.limiter == nil || g.maxPerMinute <= 0 {
		return nil, nil
	}
	used, err := g.limiter.GetMinuteUsage(ctx, id)
	if err != nil {
		return nil, err
	}
	return &BurstStatus{UsedLastMinute: used, MaxPerMinute: g.maxPerMinute}, nil
}

func (g *Guard) checkBurst(ctx context.Context, id uuid.UUID, kind Kind) error {
	if g.limiter == nil || g.maxPerMinute <= 0 {
		return nil
	}
	allowed, err := g.limiter.CheckAndIncrement(ctx, id, g.maxPerMinute)
	if err != nil {
		slog.Warn("usage: burst limiter check failed, allowing request", "error", err)
		return nil
	}
	if !allowed {
		metrics.UsageDecisionsTotal.WithLabelValues(string(kind), "rate_limited").Inc()
		return fmt.Errorf("%w: max %d generations per minute", ErrRateLimited, g.maxPerMinute)
	}
	return nil
}

// rejection converts a negative decision into the matching error.
func (g *Guard) rejection(ctx context.Context, id uuid.UUID, kind Kind, d *Decision) error {
	if d.CanProceed {
		return nil
	}
	if d.IsBlocked {
		err := &BlockedError{Reason: d.BlockReason}
		g.record(ctx, id, kind, "blocked", err.Error())
		return err
	}
	err := &QuotaExhaustedError{Kind: kind, Remaining: 0, PeriodEnd: d.PeriodEnd}
	g.record(ctx, id, kind, "exhausted", err.Error())
	return err
}

func (g *Guard) record(ctx context.Context, id uuid.UUID, kind Kind, outcome, details string) {
	metrics.UsageDecisionsTotal.WithLabelValues(string(kind), outcome).Inc()
	g.svc.publish(ctx, inats.AuditEvent{
		AccountID: id,
		EventType: inats.EventUsageRejected,
		Severity:  "warn",
		Kind:      string(kind),
		Details:   details,
	})
}
