package users

import (
	"time"

	"github.com/google/uuid"
)

// User is a row of the users table. The quota columns are nil until the
// usage subsystem first evaluates the account.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	ResumeCount        *int       `json:"resume_count"`
	CoverCount         *int       `json:"cover_count"`
	MonthlyResumeLimit *int       `json:"monthly_resume_limit"`
	MonthlyCoverLimit  *int       `json:"monthly_cover_limit"`
	CurrentPeriodStart *time.Time `json:"current_period_start"`
	IsBlocked          bool       `json:"is_blocked"`
	BlockReason        *string    `json:"block_reason"`
}

// Stats aggregates quota state across every account.
type Stats struct {
	TotalUsers       int     `json:"total_users"`
	BlockedUsers     int     `json:"blocked_users"`
	AverageResumes   float64 `json:"average_resume_count"`
	AverageCovers    float64 `json:"average_cover_count"`
	Uninitialized    int     `json:"uninitialized_users"`
}
