//go:build integration

package audit_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resumeai-platform/resumeai/internal/audit"
	"github.com/resumeai-platform/resumeai/internal/database/dbtest"
)

func TestRepository_InsertAndFilter(t *testing.T) {
	repo := audit.NewRepository(dbtest.Pool(t))
	ctx := context.Background()
	account := uuid.New()
	now := time.Now().UTC().Truncate(time.Microsecond)

	require.NoError(t, repo.Insert(ctx, &audit.Entry{
		AccountID: account, EventType: "usage_consumed", Severity: "info",
		Kind: "resume", Details: "resume generation charged", CreatedAt: now.Add(-time.Minute),
	}))
	require.NoError(t, repo.Insert(ctx, &audit.Entry{
		AccountID: account, EventType: "account_blocked", Severity: "warn",
		Details: "abuse", CreatedAt: now,
	}))
	require.NoError(t, repo.Insert(ctx, &audit.Entry{
		AccountID: uuid.New(), EventType: "account_blocked", Severity: "warn",
		Details: "someone else", CreatedAt: now,
	}))

	params := audit.DefaultListParams()
	params.AccountID = &account
	entries, total, err := repo.List(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, entries, 2)
	assert.Equal(t, "account_blocked", entries[0].EventType, "newest first")
	assert.Empty(t, entries[0].Kind)
	assert.Equal(t, "resume", entries[1].Kind)

	params.EventType = "usage_consumed"
	entries, total, err = repo.List(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, entries, 1)
	assert.Equal(t, "resume generation charged", entries[0].Details)
}
