package usage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository handles the quota columns of the users table in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new usage Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ Store = (*Repository)(nil)

// countColumn maps a kind to its counter and limit columns. Only these
// constants are ever interpolated into SQL.
func countColumn(kind Kind) (count, limit string) {
	if kind == KindCover {
		return "cover_count", "monthly_cover_limit"
	}
	return "resume_count", "monthly_resume_limit"
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*Account, error) {
	var a Account
	err := r.pool.QueryRow(ctx,
		`SELECT id, resume_count, cover_count, monthly_resume_limit, monthly_cover_limit,
		        current_period_start, is_blocked, block_reason
		 FROM users WHERE id = $1`, id,
	).Scan(&a.ID, &a.ResumeCount, &a.CoverCount, &a.MonthlyResumeLimit, &a.MonthlyCoverLimit,
		&a.CurrentPeriodStart, &a.IsBlocked, &a.BlockReason)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("fetching account usage: %w", err)
	}
	return &a, nil
}

func (r *Repository) InitializeIfMissing(ctx context.Context, id uuid.UUID, defaults Defaults, now time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users
		 SET resume_count = COALESCE(resume_count, 0),
		     cover_count = COALESCE(cover_count, 0),
		     monthly_resume_limit = COALESCE(monthly_resume_limit, $2),
		     monthly_cover_limit = COALESCE(monthly_cover_limit, $3),
		     current_period_start = COALESCE(current_period_start, $4),
		     updated_at = NOW()
		 WHERE id = $1`, id, defaults.ResumeLimit, defaults.CoverLimit, now)
	if err != nil {
		return fmt.Errorf("initializing account usage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (r *Repository) ResetPeriod(ctx context.Context, id uuid.UUID, expectedStart, now time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users
		 SET resume_count = 0,
		     cover_count = 0,
		     current_period_start = $3,
		     updated_at = NOW()
		 WHERE id = $1 AND current_period_start = $2`, id, expectedStart, now)
	if err != nil {
		return false, fmt.Errorf("resetting usage period: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repository) Increment(ctx context.Context, id uuid.UUID, kind Kind) error {
	col, _ := countColumn(kind)
	tag, err := r.pool.Exec(ctx, fmt.Sprintf(
		`UPDATE users SET %[1]s = COALESCE(%[1]s, 0) + 1, updated_at = NOW() WHERE id = $1`, col), id)
	if err != nil {
		return fmt.Errorf("incrementing %s usage: %w", kind, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (r *Repository) Reserve(ctx context.Context, id uuid.UUID, kind Kind, periodStart time.Time) (bool, error) {
	col, limit := countColumn(kind)
	tag, err := r.pool.Exec(ctx, fmt.Sprintf(
		`UPDATE users
		 SET %[1]s = %[1]s + 1, updated_at = NOW()
		 WHERE id = $1
		   AND NOT is_blocked
		   AND current_period_start = $2
		   AND %[1]s < %[2]s`, col, limit), id, periodStart)
	if err != nil {
		return false, fmt.Errorf("reserving %s usage: %w", kind, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repository) Release(ctx context.Context, id uuid.UUID, kind Kind, periodStart time.Time) error {
	col, _ := countColumn(kind)
	_, err := r.pool.Exec(ctx, fmt.Sprintf(
		`UPDATE users
		 SET %[1]s = GREATEST(%[1]s - 1, 0), updated_at = NOW()
		 WHERE id = $1 AND current_period_start = $2`, col), id, periodStart)
	if err != nil {
		return fmt.Errorf("releasing %s usage: %w", kind, err)
	}
	return nil
}

func (r *Repository) SetBlocked(ctx context.Context, id uuid.UUID, reason string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET is_blocked = TRUE, block_reason = $2, updated_at = NOW() WHERE id = $1`,
		id, reason)
	if err != nil {
		return fmt.Errorf("blocking account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (r *Repository) ClearBlocked(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET is_blocked = FALSE, block_reason = NULL, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("unblocking account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (r *Repository) UpdateLimits(ctx context.Context, id uuid.UUID, limits Limits) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users
		 SET monthly_resume_limit = COALESCE($2::int, monthly_resume_limit),
		     monthly_cover_limit = COALESCE($3::int, monthly_cover_limit),
		     updated_at = NOW()
		 WHERE id = $1`, id, limits.Resume, limits.Cover)
	if err != nil {
		return fmt.Errorf("updating usage limits: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}
