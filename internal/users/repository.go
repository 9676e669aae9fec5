package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrEmailTaken is returned by Create when the email is already registered.
var ErrEmailTaken = errors.New("email already registered")

type Repository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Stats(ctx context.Context) (*Stats, error)
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

const userColumns = `id, email, password_hash, created_at, updated_at,
	resume_count, cover_count, monthly_resume_limit, monthly_cover_limit,
	current_period_start, is_blocked, block_reason`

func scanUser(row pgx.Row) (*User, error) {
	u := &User{}
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt,
		&u.ResumeCount, &u.CoverCount, &u.MonthlyResumeLimit, &u.MonthlyCoverLimit,
		&u.CurrentPeriodStart, &u.IsBlocked, &u.BlockReason)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Create inserts the auth columns only; quota columns stay NULL so the usage
// subsystem applies the configured defaults on first evaluation.
func (r *postgresRepository) Create(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (id, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.pool.Exec(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrEmailTaken
		}
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	user, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying user by id: %w", err)
	}
	return user, nil
}

func (r *postgresRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	user, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying user by email: %w", err)
	}
	return user, nil
}

func (r *postgresRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`

	var exists bool
	err := r.pool.QueryRow(ctx, query, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking email existence: %w", err)
	}
	return exists, nil
}

func (r *postgresRepository) Stats(ctx context.Context) (*Stats, error) {
	query := `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE is_blocked),
		       COALESCE(AVG(resume_count), 0)::float8,
		       COALESCE(AVG(cover_count), 0)::float8,
		       COUNT(*) FILTER (WHERE current_period_start IS NULL)
		FROM users`

	var s Stats
	err := r.pool.QueryRow(ctx, query).Scan(
		&s.TotalUsers, &s.BlockedUsers, &s.AverageResumes, &s.AverageCovers, &s.Uninitialized)
	if err != nil {
		return nil, fmt.Errorf("aggregating user stats: %w", err)
	}
	return &s, nil
}
