package documents

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists documents. It stores content exactly as given; the
// service encrypts before writing and decrypts after reading.
type Repository interface {
	CreateResume(ctx context.Context, r *Resume) error
	GetResume(ctx context.Context, userID, id uuid.UUID) (*Resume, error)
	LatestResume(ctx context.Context, userID uuid.UUID) (*Resume, error)
	CreateCoverLetter(ctx context.Context, c *CoverLetter) error
	GetCoverLetter(ctx context.Context, userID, id uuid.UUID) (*CoverLetter, error)
	CreateProposal(ctx context.Context, p *Proposal) error
	GetProposal(ctx context.Context, userID, id uuid.UUID) (*Proposal, error)
	List(ctx context.Context, userID uuid.UUID, t Type, params ListParams) ([]Summary, error)
	Count(ctx context.Context, userID uuid.UUID, t Type) (int64, error)
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

func (r *postgresRepository) CreateResume(ctx context.Context, res *Resume) error {
	query := `
		INSERT INTO resumes (id, user_id, title, original_content, optimized_content, job_description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.pool.Exec(ctx, query,
		res.ID, res.UserID, res.Title, res.OriginalContent, res.OptimizedContent, res.JobDescription, res.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting resume: %w", err)
	}
	return nil
}

const resumeColumns = `id, user_id, title, original_content, optimized_content, job_description, created_at`

func scanResume(row pgx.Row) (*Resume, error) {
	res := &Resume{}
	err := row.Scan(&res.ID, &res.UserID, &res.Title, &res.OriginalContent,
		&res.OptimizedContent, &res.JobDescription, &res.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return res, nil
}

func (r *postgresRepository) GetResume(ctx context.Context, userID, id uuid.UUID) (*Resume, error) {
	res, err := scanResume(r.pool.QueryRow(ctx,
		`SELECT `+resumeColumns+` FROM resumes WHERE id = $1 AND user_id = $2`, id, userID))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("querying resume: %w", err)
	}
	return res, err
}

func (r *postgresRepository) LatestResume(ctx context.Context, userID uuid.UUID) (*Resume, error) {
	res, err := scanResume(r.pool.QueryRow(ctx,
		`SELECT `+resumeColumns+` FROM resumes WHERE user_id = $1 ORDER BY created_at DESC LIMIT 1`, userID))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("querying latest resume: %w", err)
	}
	return res, err
}

func (r *postgresRepository) CreateCoverLetter(ctx context.Context, c *CoverLetter) error {
	query := `
		INSERT INTO cover_letters (id, user_id, resume_id, job_title, company, content, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.pool.Exec(ctx, query,
		c.ID, c.UserID, c.ResumeID, c.JobTitle, c.Company, c.Content, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting cover letter: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetCoverLetter(ctx context.Context, userID, id uuid.UUID) (*CoverLetter, error) {
	query := `
		SELECT id, user_id, resume_id, job_title, company, content, created_at
		FROM cover_letters
		WHERE id = $1 AND user_id = $2`

	c := &CoverLetter{}
	err := r.pool.QueryRow(ctx, query, id, userID).Scan(
		&c.ID, &c.UserID, &c.ResumeID, &c.JobTitle, &c.Company, &c.Content, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying cover letter: %w", err)
	}
	return c, nil
}

func (r *postgresRepository) CreateProposal(ctx context.Context, p *Proposal) error {
	query := `
		INSERT INTO proposals (id, user_id, resume_id, project_title, client_name, content, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.pool.Exec(ctx, query,
		p.ID, p.UserID, p.ResumeID, p.ProjectTitle, p.ClientName, p.Content, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting proposal: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetProposal(ctx context.Context, userID, id uuid.UUID) (*Proposal, error) {
	query := `
		SELECT id, user_id, resume_id, project_title, client_name, content, created_at
		FROM proposals
		WHERE id = $1 AND user_id = $2`

	p := &Proposal{}
	err := r.pool.QueryRow(ctx, query, id, userID).Scan(
		&p.ID, &p.UserID, &p.ResumeID, &p.ProjectTitle, &p.ClientName, &p.Content, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying proposal: %w", err)
	}
	return p, nil
}

// listSource maps a document type to its table and display title. Only
// these constants are interpolated into SQL.
func listSource(t Type) (table, title string, err error) {
	switch t {
	case TypeResumes:
		return "resumes", "title", nil
	case TypeCovers:
		return "cover_letters", "job_title || ' at ' || company", nil
	case TypeProposals:
		return "proposals", "project_title", nil
	}
	return "", "", fmt.Errorf("%w: %q", ErrInvalidType, t)
}

func (r *postgresRepository) List(ctx context.Context, userID uuid.UUID, t Type, params ListParams) ([]Summary, error) {
	table, title, err := listSource(t)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT id, %s, created_at
		FROM %s
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, title, table)

	rows, err := r.pool.Query(ctx, query, userID, params.PageSize, params.offset())
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", t, err)
	}
	defer rows.Close()

	out := make([]Summary, 0)
	for rows.Next() {
		var s Summary
		if err := rows.Scan(&s.ID, &s.Title, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", t, err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *postgresRepository) Count(ctx context.Context, userID uuid.UUID, t Type) (int64, error) {
	table, _, err := listSource(t)
	if err != nil {
		return 0, err
	}

	var count int64
	err = r.pool.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE user_id = $1`, table), userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting %s: %w", t, err)
	}
	return count, nil
}
