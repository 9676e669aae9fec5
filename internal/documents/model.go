package documents

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/resumeai-platform/resumeai/internal/usage"
)

var (
	ErrNotFound    = errors.New("document not found")
	ErrNoResume    = errors.New("no resume found")
	ErrInvalidType = errors.New("invalid document type")
)

// Type is a document collection as named in URLs.
type Type string

const (
	TypeResumes   Type = "resumes"
	TypeCovers    Type = "covers"
	TypeProposals Type = "proposals"
)

func ParseType(s string) (Type, error) {
	switch Type(s) {
	case TypeResumes, TypeCovers, TypeProposals:
		return Type(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidType, s)
}

// Resume is a pasted résumé and, once optimized, the generated rewrite.
// Content fields hold plaintext in memory and ciphertext in storage.
type Resume struct {
	ID               uuid.UUID `json:"id"`
	UserID           uuid.UUID `json:"-"`
	Title            string    `json:"title"`
	OriginalContent  string    `json:"original_content"`
	OptimizedContent *string   `json:"optimized_content,omitempty"`
	JobDescription   *string   `json:"job_description,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// Text returns the optimized rewrite when present, the original otherwise.
func (r *Resume) Text() string {
	if r.OptimizedContent != nil && *r.OptimizedContent != "" {
		return *r.OptimizedContent
	}
	return r.OriginalContent
}

type CoverLetter struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"-"`
	ResumeID  *uuid.UUID `json:"resume_id,omitempty"`
	JobTitle  string     `json:"job_title"`
	Company   string     `json:"company"`
	Content   string     `json:"content"`
	CreatedAt time.Time  `json:"created_at"`
}

type Proposal struct {
	ID           uuid.UUID  `json:"id"`
	UserID       uuid.UUID  `json:"-"`
	ResumeID     *uuid.UUID `json:"resume_id,omitempty"`
	ProjectTitle string     `json:"project_title"`
	ClientName   *string    `json:"client_name,omitempty"`
	Content      string     `json:"content"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Summary is one row of a document listing.
type Summary struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// UploadedResume echoes the extracted text so clients can review it.
type UploadedResume struct {
	Summary
	Text string `json:"text"`
}

// Document is a stored résumé, cover letter or proposal with its body decrypted.
type Document struct {
	ID        uuid.UUID `json:"id"`
	Type      Type      `json:"type"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type ListParams struct {
	Page     int
	PageSize int
}

func DefaultListParams() ListParams {
	return ListParams{
		Page:     1,
		PageSize: 20,
	}
}

func (p ListParams) offset() int {
	return (p.Page - 1) * p.PageSize
}

// Requests

type CreateResumeRequest struct {
	Title   string `json:"title" validate:"required,max=120"`
	Content string `json:"content" validate:"required"`
}

type GenerateResumeRequest struct {
	Resume         string `json:"resume" validate:"required"`
	JobDescription string `json:"job_description"`
	Title          string `json:"title"`
}

type GenerateCoverRequest struct {
	JobTitle string     `json:"job_title" validate:"required,max=200"`
	Company  string     `json:"company" validate:"required,max=200"`
	ResumeID *uuid.UUID `json:"resume_id"`
}

type GenerateProposalRequest struct {
	ProjectTitle   string     `json:"project_title" validate:"required,max=200"`
	ClientName     string     `json:"client_name" validate:"max=200"`
	ProjectDetails string     `json:"project_details"`
	Budget         string     `json:"budget"`
	ResumeID       *uuid.UUID `json:"resume_id"`
	ResumeText     string     `json:"resume_text"`
}

// Generated is returned by every generation endpoint.
type Generated struct {
	ID      uuid.UUID      `json:"id"`
	Content string         `json:"content"`
	Usage   *usage.Outcome `json:"usage"`
}
