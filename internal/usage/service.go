package usage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/resumeai-platform/resumeai/internal/metrics"
	inats "github.com/resumeai-platform/resumeai/internal/nats"
)

// AuditPublisher receives audit events. *nats.Publisher satisfies it.
type AuditPublisher interface {
	PublishAuditEvent(ctx context.Context, event inats.AuditEvent) error
}

// Service evaluates and mutates per-account monthly quotas.
type Service struct {
	store    Store
	defaults Defaults
	now      func() time.Time
	audit    AuditPublisher
}

// NewService creates a new usage Service using the wall clock.
func NewService(store Store, defaults Defaults) *Service {
	return &Service{
		store:    store,
		defaults: defaults,
		now:      time.Now,
	}
}

// WithClock replaces the time source used for period arithmetic.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// WithAudit attaches an audit event publisher.
func (s *Service) WithAudit(p AuditPublisher) *Service {
	s.audit = p
	return s
}

// Check evaluates whether the account may run one more generation of kind.
// It may persist two narrow writes: quota initialization for legacy rows and
// the counter reset when the period has elapsed.
func (s *Service) Check(ctx context.Context, id uuid.UUID, kind Kind) (*Decision, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}
	acct, now, err := s.current(ctx, id)
	if err != nil {
		return nil, err
	}
	return decide(acct, kind, now), nil
}

// Status evaluates both kinds with a single read.
func (s *Service) Status(ctx context.Context, id uuid.UUID) (*Status, error) {
	acct, now, err := s.current(ctx, id)
	if err != nil {
		return nil, err
	}

	resume := decide(acct, KindResume, now)
	cover := decide(acct, KindCover, now)

	return &Status{
		Resume: KindStatus{
			Remaining:  resume.RemainingResumes,
			Limit:      acct.limit(KindResume),
			PeriodEnd:  resume.PeriodEnd,
			CanProceed: resume.CanProceed,
		},
		Cover: KindStatus{
			Remaining:  cover.RemainingCovers,
			Limit:      acct.limit(KindCover),
			PeriodEnd:  cover.PeriodEnd,
			CanProceed: cover.CanProceed,
		},
		IsBlocked:   resume.IsBlocked,
		BlockReason: resume.BlockReason,
	}, nil
}

// Increment charges one generation of kind. It performs no quota check;
// callers must have passed Check and completed the generation first.
func (s *Service) Increment(ctx context.Context, id uuid.UUID, kind Kind) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}
	return s.store.Increment(ctx, id, kind)
}

// Block refuses every future generation for the account. A non-empty reason
// is required so a blocked account always carries one.
func (s *Service) Block(ctx context.Context, id uuid.UUID, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return ErrBlockReasonRequired
	}
	if err := s.store.SetBlocked(ctx, id, reason); err != nil {
		return err
	}
	s.publish(ctx, inats.AuditEvent{
		AccountID: id,
		EventType: inats.EventAccountBlocked,
		Severity:  "warn",
		Details:   reason,
	})
	return nil
}

// Unblock lifts a block. Counters and limits are left as they were.
func (s *Service) Unblock(ctx context.Context, id uuid.UUID) error {
	if err := s.store.ClearBlocked(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, inats.AuditEvent{
		AccountID: id,
		EventType: inats.EventAccountUnblocked,
		Severity:  "info",
		Details:   "account unblocked",
	})
	return nil
}

// UpdateLimits changes the supplied monthly limits. With neither limit set it
// does nothing.
func (s *Service) UpdateLimits(ctx context.Context, id uuid.UUID, limits Limits) error {
	if limits.Empty() {
		return nil
	}
	if limits.Resume != nil && *limits.Resume < 1 {
		return fmt.Errorf("%w: resume limit %d", ErrInvalidLimit, *limits.Resume)
	}
	if limits.Cover != nil && *limits.Cover < 1 {
		return fmt.Errorf("%w: cover limit %d", ErrInvalidLimit, *limits.Cover)
	}
	if err := s.store.UpdateLimits(ctx, id, limits); err != nil {
		return err
	}
	s.publish(ctx, inats.AuditEvent{
		AccountID: id,
		EventType: inats.EventLimitsUpdated,
		Severity:  "info",
		Details:   describeLimits(limits),
	})
	return nil
}

// current loads the account, initializes legacy rows and applies a pending
// period rollover. Blocked accounts are returned before any rollover.
func (s *Service) current(ctx context.Context, id uuid.UUID) (*Account, time.Time, error) {
	acct, err := s.ensureInitialized(ctx, id)
	if err != nil {
		return nil, time.Time{}, err
	}

	now := s.clock()
	if acct.IsBlocked {
		return acct, now, nil
	}

	start := acct.periodStart()
	if now.Before(PeriodEnd(start)) {
		return acct, now, nil
	}

	applied, err := s.store.ResetPeriod(ctx, id, start, now)
	if err != nil {
		return nil, time.Time{}, err
	}
	if !applied {
		// Another request rolled the period over first; use its result.
		acct, err = s.store.Get(ctx, id)
		if err != nil {
			return nil, time.Time{}, err
		}
		return acct, now, nil
	}

	metrics.UsagePeriodRolloversTotal.Inc()
	zero := 0
	acct.ResumeCount = &zero
	acct.CoverCount = &zero
	acct.CurrentPeriodStart = &now
	return acct, now, nil
}

func (s *Service) ensureInitialized(ctx context.Context, id uuid.UUID) (*Account, error) {
	acct, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if acct.Initialized() {
		return acct, nil
	}

	if err := s.store.InitializeIfMissing(ctx, id, s.defaults, s.clock()); err != nil {
		return nil, err
	}
	acct, err = s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !acct.Initialized() {
		return nil, errors.New("usage fields still missing after initialization")
	}
	slog.Debug("usage: initialized quota fields", "account_id", id)
	return acct, nil
}

// clock returns the current time at the precision PostgreSQL stores, so a
// period start written by this process compares equal when read back.
func (s *Service) clock() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// decide is the pure part of the evaluation.
func decide(acct *Account, kind Kind, now time.Time) *Decision {
	if acct.IsBlocked {
		reason := DefaultBlockReason
		if acct.BlockReason != nil && *acct.BlockReason != "" {
			reason = *acct.BlockReason
		}
		return &Decision{
			CanProceed:  false,
			PeriodEnd:   now,
			IsBlocked:   true,
			BlockReason: reason,
		}
	}

	d := &Decision{
		RemainingResumes: remaining(acct.limit(KindResume), acct.count(KindResume)),
		RemainingCovers:  remaining(acct.limit(KindCover), acct.count(KindCover)),
		PeriodEnd:        PeriodEnd(acct.periodStart()),
	}
	d.CanProceed = d.Remaining(kind) > 0
	return d
}

func (s *Service) publish(ctx context.Context, event inats.AuditEvent) {
	if s.audit == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.clock()
	}
	if err := s.audit.PublishAuditEvent(ctx, event); err != nil {
		slog.Warn("usage: publishing audit event", "error", err, "event_type", event.EventType)
	}
}

func describeLimits(l Limits) string {
	var parts []string
	if l.Resume != nil {
		parts = append(parts, fmt.Sprintf("resume=%d", *l.Resume))
	}
	if l.Cover != nil {
		parts = append(parts, fmt.Sprintf("cover=%d", *l.Cover))
	}
	return strings.Join(parts, " ")
}
