package usage

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	inats "github.com/resumeai-platform/resumeai/internal/nats"
)

// memStore is an in-memory Store with the same conditional semantics as the
// SQL repository.
type memStore struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*Account

	getErr   error
	initHits int
	resets   int
}

var _ Store = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{accounts: make(map[uuid.UUID]*Account)}
}

func intPtr(v int) *int             { return &v }
func timePtr(t time.Time) *time.Time { return &t }
func strPtr(s string) *string       { return &s }

// seed stores a copy of acct under a fresh id.
func (m *memStore) seed(acct Account) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	acct.ID = uuid.New()
	m.accounts[acct.ID] = cloneAccount(&acct)
	return acct.ID
}

func (m *memStore) snapshot(id uuid.UUID) *Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneAccount(m.accounts[id])
}

func cloneAccount(a *Account) *Account {
	if a == nil {
		return nil
	}
	c := *a
	copyInt := func(p *int) *int {
		if p == nil {
			return nil
		}
		v := *p
		return &v
	}
	c.ResumeCount = copyInt(a.ResumeCount)
	c.CoverCount = copyInt(a.CoverCount)
	c.MonthlyResumeLimit = copyInt(a.MonthlyResumeLimit)
	c.MonthlyCoverLimit = copyInt(a.MonthlyCoverLimit)
	if a.CurrentPeriodStart != nil {
		t := *a.CurrentPeriodStart
		c.CurrentPeriodStart = &t
	}
	if a.BlockReason != nil {
		s := *a.BlockReason
		c.BlockReason = &s
	}
	return &c
}

func (m *memStore) counter(a *Account, kind Kind) **int {
	if kind == KindCover {
		return &a.CoverCount
	}
	return &a.ResumeCount
}

func (m *memStore) Get(_ context.Context, id uuid.UUID) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	a, ok := m.accounts[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return cloneAccount(a), nil
}

func (m *memStore) InitializeIfMissing(_ context.Context, id uuid.UUID, defaults Defaults, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return ErrAccountNotFound
	}
	m.initHits++
	if a.ResumeCount == nil {
		a.ResumeCount = intPtr(0)
	}
	if a.CoverCount == nil {
		a.CoverCount = intPtr(0)
	}
	if a.MonthlyResumeLimit == nil {
		a.MonthlyResumeLimit = intPtr(defaults.ResumeLimit)
	}
	if a.MonthlyCoverLimit == nil {
		a.MonthlyCoverLimit = intPtr(defaults.CoverLimit)
	}
	if a.CurrentPeriodStart == nil {
		a.CurrentPeriodStart = timePtr(now)
	}
	return nil
}

func (m *memStore) ResetPeriod(_ context.Context, id uuid.UUID, expectedStart, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok || a.CurrentPeriodStart == nil || !a.CurrentPeriodStart.Equal(expectedStart) {
		return false, nil
	}
	m.resets++
	a.ResumeCount = intPtr(0)
	a.CoverCount = intPtr(0)
	a.CurrentPeriodStart = timePtr(now)
	return true, nil
}

func (m *memStore) Increment(_ context.Context, id uuid.UUID, kind Kind) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return ErrAccountNotFound
	}
	c := m.counter(a, kind)
	*c = intPtr(deref(*c) + 1)
	return nil
}

func (m *memStore) Reserve(_ context.Context, id uuid.UUID, kind Kind, periodStart time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok || a.IsBlocked || a.CurrentPeriodStart == nil || !a.CurrentPeriodStart.Equal(periodStart) {
		return false, nil
	}
	c := m.counter(a, kind)
	if deref(*c) >= a.limit(kind) {
		return false, nil
	}
	*c = intPtr(deref(*c) + 1)
	return true, nil
}

func (m *memStore) Release(_ context.Context, id uuid.UUID, kind Kind, periodStart time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok || a.CurrentPeriodStart == nil || !a.CurrentPeriodStart.Equal(periodStart) {
		return nil
	}
	c := m.counter(a, kind)
	if v := deref(*c); v > 0 {
		*c = intPtr(v - 1)
	}
	return nil
}

func (m *memStore) SetBlocked(_ context.Context, id uuid.UUID, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return ErrAccountNotFound
	}
	a.IsBlocked = true
	a.BlockReason = strPtr(reason)
	return nil
}

func (m *memStore) ClearBlocked(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return ErrAccountNotFound
	}
	a.IsBlocked = false
	a.BlockReason = nil
	return nil
}

func (m *memStore) UpdateLimits(_ context.Context, id uuid.UUID, limits Limits) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return ErrAccountNotFound
	}
	if limits.Resume != nil {
		a.MonthlyResumeLimit = intPtr(*limits.Resume)
	}
	if limits.Cover != nil {
		a.MonthlyCoverLimit = intPtr(*limits.Cover)
	}
	return nil
}

// recordingPublisher collects audit events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []string
	err    error
}

func (p *recordingPublisher) PublishAuditEvent(_ context.Context, event inats.AuditEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event.EventType)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

var errStoreDown = errors.New("connection refused")

// fixedClock returns a clock frozen at t.
func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}
