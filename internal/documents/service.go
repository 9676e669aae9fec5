package documents

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/resumeai-platform/resumeai/internal/generation"
	"github.com/resumeai-platform/resumeai/internal/usage"
)

// Cipher encrypts document bodies at rest. *auth.Encryptor satisfies it.
type Cipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// Generator produces text from a prompt. *generation.Client satisfies it.
type Generator interface {
	Complete(ctx context.Context, p generation.Prompt) (*generation.Completion, error)
}

// Metered runs paid work under the monthly quota. *usage.Guard satisfies it.
type Metered interface {
	Run(ctx context.Context, id uuid.UUID, kind usage.Kind, fn func(ctx context.Context) error) (*usage.Outcome, error)
}

type Service struct {
	repo   Repository
	cipher Cipher
	gen    Generator
	guard  Metered
}

func NewService(repo Repository, cipher Cipher, gen Generator, guard Metered) *Service {
	return &Service{
		repo:   repo,
		cipher: cipher,
		gen:    gen,
		guard:  guard,
	}
}

// CreateResume stores a pasted résumé. It is not metered.
func (s *Service) CreateResume(ctx context.Context, userID uuid.UUID, req *CreateResumeRequest) (*Resume, error) {
	res := &Resume{
		ID:              uuid.New(),
		UserID:          userID,
		Title:           strings.TrimSpace(req.Title),
		OriginalContent: req.Content,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.saveResume(ctx, res); err != nil {
		return nil, err
	}
	return res, nil
}

// UploadResume stores the text of an uploaded PDF résumé. It is not metered.
func (s *Service) UploadResume(ctx context.Context, userID uuid.UUID, title string, data []byte) (*Resume, error) {
	text, err := extractPDFText(data)
	if err != nil {
		return nil, err
	}
	title = truncate(strings.TrimSpace(title), 120)
	if title == "" {
		title = "Uploaded resume"
	}
	return s.CreateResume(ctx, userID, &CreateResumeRequest{Title: title, Content: text})
}

// GenerateResume optimizes a résumé under the resume quota and stores both versions.
func (s *Service) GenerateResume(ctx context.Context, userID uuid.UUID, req *GenerateResumeRequest) (*Generated, error) {
	title := truncate(strings.TrimSpace(req.Title), 120)
	if title == "" {
		title = "Optimized resume"
	}

	out := &Generated{}
	outcome, err := s.guard.Run(ctx, userID, usage.KindResume, func(ctx context.Context) error {
		completion, err := s.gen.Complete(ctx, generation.ResumePrompt(req.Resume, req.JobDescription))
		if err != nil {
			return err
		}

		res := &Resume{
			ID:               uuid.New(),
			UserID:           userID,
			Title:            title,
			OriginalContent:  req.Resume,
			OptimizedContent: &completion.Content,
			CreatedAt:        time.Now().UTC(),
		}
		if jd := strings.TrimSpace(req.JobDescription); jd != "" {
			res.JobDescription = &jd
		}
		if err := s.saveResume(ctx, res); err != nil {
			return err
		}
		out.ID, out.Content = res.ID, completion.Content
		return nil
	})
	if err != nil {
		return nil, err
	}
	out.Usage = outcome
	return out, nil
}

// GenerateCover writes a cover letter from the given or latest résumé under the cover quota.
func (s *Service) GenerateCover(ctx context.Context, userID uuid.UUID, req *GenerateCoverRequest) (*Generated, error) {
	base, err := s.baseResume(ctx, userID, req.ResumeID)
	if err != nil {
		return nil, err
	}

	out := &Generated{}
	outcome, err := s.guard.Run(ctx, userID, usage.KindCover, func(ctx context.Context) error {
		completion, err := s.gen.Complete(ctx, generation.CoverPrompt(req.JobTitle, req.Company, base.Text()))
		if err != nil {
			return err
		}

		enc, err := s.cipher.Encrypt(completion.Content)
		if err != nil {
			return fmt.Errorf("encrypting cover letter: %w", err)
		}
		letter := &CoverLetter{
			ID:        uuid.New(),
			UserID:    userID,
			ResumeID:  &base.ID,
			JobTitle:  req.JobTitle,
			Company:   req.Company,
			Content:   enc,
			CreatedAt: time.Now().UTC(),
		}
		if err := s.repo.CreateCoverLetter(ctx, letter); err != nil {
			return err
		}
		out.ID, out.Content = letter.ID, completion.Content
		return nil
	})
	if err != nil {
		return nil, err
	}
	out.Usage = outcome
	return out, nil
}

// GenerateProposal writes a freelance proposal. Proposals share the cover quota.
func (s *Service) GenerateProposal(ctx context.Context, userID uuid.UUID, req *GenerateProposalRequest) (*Generated, error) {
	resumeText := strings.TrimSpace(req.ResumeText)
	var resumeID *uuid.UUID
	if resumeText == "" {
		base, err := s.baseResume(ctx, userID, req.ResumeID)
		if err != nil {
			return nil, err
		}
		resumeText, resumeID = base.Text(), &base.ID
	}

	out := &Generated{}
	outcome, err := s.guard.Run(ctx, userID, usage.KindCover, func(ctx context.Context) error {
		completion, err := s.gen.Complete(ctx, generation.ProposalPrompt(generation.ProposalInput{
			ProjectTitle:   req.ProjectTitle,
			ClientName:     req.ClientName,
			ProjectDetails: req.ProjectDetails,
			Budget:         req.Budget,
			Resume:         resumeText,
		}))
		if err != nil {
			return err
		}

		enc, err := s.cipher.Encrypt(completion.Content)
		if err != nil {
			return fmt.Errorf("encrypting proposal: %w", err)
		}
		p := &Proposal{
			ID:           uuid.New(),
			UserID:       userID,
			ResumeID:     resumeID,
			ProjectTitle: req.ProjectTitle,
			Content:      enc,
			CreatedAt:    time.Now().UTC(),
		}
		if name := strings.TrimSpace(req.ClientName); name != "" {
			p.ClientName = &name
		}
		if err := s.repo.CreateProposal(ctx, p); err != nil {
			return err
		}
		out.ID, out.Content = p.ID, completion.Content
		return nil
	})
	if err != nil {
		return nil, err
	}
	out.Usage = outcome
	return out, nil
}

func (s *Service) List(ctx context.Context, userID uuid.UUID, t Type, params ListParams) ([]Summary, int64, error) {
	items, err := s.repo.List(ctx, userID, t, params)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.Count(ctx, userID, t)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Get returns one document owned by userID with its body decrypted.
func (s *Service) Get(ctx context.Context, userID uuid.UUID, t Type, id uuid.UUID) (*Document, error) {
	switch t {
	case TypeResumes:
		res, err := s.getResume(ctx, userID, id)
		if err != nil {
			return nil, err
		}
		return &Document{ID: res.ID, Type: t, Title: res.Title, Content: res.Text(), CreatedAt: res.CreatedAt}, nil
	case TypeCovers:
		c, err := s.repo.GetCoverLetter(ctx, userID, id)
		if err != nil {
			return nil, err
		}
		text, err := s.cipher.Decrypt(c.Content)
		if err != nil {
			return nil, fmt.Errorf("decrypting cover letter: %w", err)
		}
		return &Document{ID: c.ID, Type: t, Title: c.JobTitle + " at " + c.Company, Content: text, CreatedAt: c.CreatedAt}, nil
	case TypeProposals:
		p, err := s.repo.GetProposal(ctx, userID, id)
		if err != nil {
			return nil, err
		}
		text, err := s.cipher.Decrypt(p.Content)
		if err != nil {
			return nil, fmt.Errorf("decrypting proposal: %w", err)
		}
		return &Document{ID: p.ID, Type: t, Title: p.ProjectTitle, Content: text, CreatedAt: p.CreatedAt}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidType, t)
}

// Export returns a download file name and the decrypted plain text of one
// document owned by userID.
func (s *Service) Export(ctx context.Context, userID uuid.UUID, t Type, id uuid.UUID) (string, string, error) {
	doc, err := s.Get(ctx, userID, t, id)
	if err != nil {
		return "", "", err
	}
	var prefix string
	switch t {
	case TypeCovers:
		prefix = "cover letter "
	case TypeProposals:
		prefix = "proposal "
	}
	return filename(prefix + doc.Title), doc.Content, nil
}

// baseResume returns the requested résumé, or the latest one when id is nil.
func (s *Service) baseResume(ctx context.Context, userID uuid.UUID, id *uuid.UUID) (*Resume, error) {
	var (
		res *Resume
		err error
	)
	if id != nil {
		res, err = s.getResume(ctx, userID, *id)
	} else {
		res, err = s.repo.LatestResume(ctx, userID)
		if err == nil {
			err = s.decryptResume(res)
		}
	}
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNoResume
		}
		return nil, err
	}
	if strings.TrimSpace(res.Text()) == "" {
		return nil, ErrNoResume
	}
	return res, nil
}

func (s *Service) getResume(ctx context.Context, userID, id uuid.UUID) (*Resume, error) {
	res, err := s.repo.GetResume(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := s.decryptResume(res); err != nil {
		return nil, err
	}
	return res, nil
}

// saveResume encrypts the bodies of a copy of res and stores it.
func (s *Service) saveResume(ctx context.Context, res *Resume) error {
	row := *res
	var err error
	if row.OriginalContent, err = s.cipher.Encrypt(res.OriginalContent); err != nil {
		return fmt.Errorf("encrypting resume: %w", err)
	}
	if res.OptimizedContent != nil {
		enc, err := s.cipher.Encrypt(*res.OptimizedContent)
		if err != nil {
			return fmt.Errorf("encrypting optimized resume: %w", err)
		}
		row.OptimizedContent = &enc
	}
	return s.repo.CreateResume(ctx, &row)
}

func (s *Service) decryptResume(res *Resume) error {
	var err error
	if res.OriginalContent, err = s.cipher.Decrypt(res.OriginalContent); err != nil {
		return fmt.Errorf("decrypting resume: %w", err)
	}
	if res.OptimizedContent != nil {
		plain, err := s.cipher.Decrypt(*res.OptimizedContent)
		if err != nil {
			return fmt.Errorf("decrypting optimized resume: %w", err)
		}
		res.OptimizedContent = &plain
	}
	return nil
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

func filename(title string) string {
	slug := strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(title), "-"), "-")
	if slug == "" {
		slug = "document"
	}
	return truncate(slug, 80) + ".txt"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
