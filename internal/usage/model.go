package usage

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind identifies which monthly counter a generation is charged to.
// Proposals share the cover counter.
type Kind string

const (
	KindResume Kind = "resume"
	KindCover  Kind = "cover"
)

// DefaultBlockReason is reported for blocked accounts that carry no stored reason.
const DefaultBlockReason = "Account blocked"

// ParseKind validates a kind coming from a request or route.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindResume, KindCover:
		return Kind(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
}

func (k Kind) Valid() bool {
	return k == KindResume || k == KindCover
}

// Label is the human-readable name used in rejection messages.
func (k Kind) Label() string {
	if k == KindCover {
		return "cover letter"
	}
	return string(k)
}

// Account is the quota projection of a users row. Pointer fields are nil on
// rows created before metering existed.
type Account struct {
	ID                 uuid.UUID
	ResumeCount        *int
	CoverCount         *int
	MonthlyResumeLimit *int
	MonthlyCoverLimit  *int
	CurrentPeriodStart *time.Time
	IsBlocked          bool
	BlockReason        *string
}

// Initialized reports whether every quota field has been written at least once.
func (a *Account) Initialized() bool {
	return a.ResumeCount != nil && a.CoverCount != nil &&
		a.MonthlyResumeLimit != nil && a.MonthlyCoverLimit != nil &&
		a.CurrentPeriodStart != nil
}

func (a *Account) count(k Kind) int {
	if k == KindCover {
		return deref(a.CoverCount)
	}
	return deref(a.ResumeCount)
}

func (a *Account) limit(k Kind) int {
	if k == KindCover {
		return deref(a.MonthlyCoverLimit)
	}
	return deref(a.MonthlyResumeLimit)
}

func (a *Account) periodStart() time.Time {
	if a.CurrentPeriodStart == nil {
		return time.Time{}
	}
	return *a.CurrentPeriodStart
}

// Decision is the outcome of evaluating an account against one quota kind.
type Decision struct {
	CanProceed       bool      `json:"can_proceed"`
	RemainingResumes int       `json:"remaining_resumes"`
	RemainingCovers  int       `json:"remaining_covers"`
	PeriodEnd        time.Time `json:"period_end"`
	IsBlocked        bool      `json:"is_blocked"`
	BlockReason      string    `json:"block_reason,omitempty"`
}

// Remaining returns the remaining count for the given kind.
func (d *Decision) Remaining(k Kind) int {
	if k == KindCover {
		return d.RemainingCovers
	}
	return d.RemainingResumes
}

// KindStatus is the per-kind slice of Status.
type KindStatus struct {
	Remaining  int       `json:"remaining"`
	Limit      int       `json:"limit"`
	PeriodEnd  time.Time `json:"period_end"`
	CanProceed bool      `json:"can_proceed"`
}

// Status is the account-wide view returned by the usage endpoint.
type Status struct {
	Resume      KindStatus   `json:"resume"`
	Cover       KindStatus   `json:"cover"`
	IsBlocked   bool         `json:"is_blocked"`
	BlockReason string       `json:"block_reason,omitempty"`
	Burst       *BurstStatus `json:"burst,omitempty"`
}

// BurstStatus reports the per-minute generation window.
type BurstStatus struct {
	UsedLastMinute int `json:"used_last_minute"`
	MaxPerMinute   int `json:"max_per_minute"`
}

// Limits is a partial limit update; nil fields are left untouched.
type Limits struct {
	Resume *int `json:"resume_limit,omitempty"`
	Cover  *int `json:"cover_limit,omitempty"`
}

func (l Limits) Empty() bool {
	return l.Resume == nil && l.Cover == nil
}

// Defaults are written to legacy rows on their first evaluation.
type Defaults struct {
	ResumeLimit int
	CoverLimit  int
}

func DefaultLimits() Defaults {
	return Defaults{ResumeLimit: 10, CoverLimit: 10}
}

// PeriodEnd returns the end of the quota period that starts at start: one
// calendar month later, with day overflow normalised (Jan 31 -> Mar 3).
func PeriodEnd(start time.Time) time.Time {
	return start.AddDate(0, 1, 0)
}

func remaining(limit, count int) int {
	if r := limit - count; r > 0 {
		return r
	}
	return 0
}

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
