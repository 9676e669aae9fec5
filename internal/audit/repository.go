package audit

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository handles audit_logs PostgreSQL operations.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert persists a single entry. Inserting an id that already exists is a no-op.
func (r *Repository) Insert(ctx context.Context, e *Entry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}

	var kind *string
	if e.Kind != "" {
		kind = &e.Kind
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO audit_logs (id, account_id, event_type, severity, kind, details, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO NOTHING`,
		e.ID, e.AccountID, e.EventType, e.Severity, kind, e.Details, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting audit log: %w", err)
	}
	return nil
}

// List returns a page of entries, newest first, plus the total match count.
func (r *Repository) List(ctx context.Context, params ListParams) ([]Entry, int64, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 || params.PageSize > 100 {
		params.PageSize = 20
	}

	conditions := []string{"TRUE"}
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}

	if params.AccountID != nil {
		add("account_id = $%d", *params.AccountID)
	}
	if params.EventType != "" {
		add("event_type = $%d", params.EventType)
	}
	if params.Severity != "" {
		add("severity = $%d", params.Severity)
	}
	if params.From != nil {
		add("created_at >= $%d", *params.From)
	}
	if params.To != nil {
		add("created_at <= $%d", *params.To)
	}

	where := strings.Join(conditions, " AND ")

	var totalCount int64
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM audit_logs WHERE "+where, args...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("counting audit logs: %w", err)
	}

	dataQuery := fmt.Sprintf(
		`SELECT id, account_id, event_type, severity, COALESCE(kind, ''), details, created_at
		 FROM audit_logs WHERE %s
		 ORDER BY created_at DESC
		 LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)
	args = append(args, params.PageSize, (params.Page-1)*params.PageSize)

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("querying audit logs: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.AccountID, &e.EventType, &e.Severity, &e.Kind, &e.Details, &e.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scanning audit log: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, totalCount, rows.Err()
}
