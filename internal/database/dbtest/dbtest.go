//go:build integration

// Package dbtest starts a throwaway PostgreSQL container with every
// migration applied, for tests behind the integration build tag.
package dbtest

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var (
	once     sync.Once
	shared   string
	startErr error
)

// Pool returns a pool on a migrated database shared by the whole test
// binary. Each call gets its own pool; tests must use unique rows.
func Pool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	once.Do(func() { shared, startErr = start() })
	if startErr != nil {
		t.Fatalf("starting postgres: %v", startErr)
	}

	pool, err := pgxpool.New(context.Background(), shared)
	if err != nil {
		t.Fatalf("connecting to postgres: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

// start boots the container and migrates it. The container lives until the
// test binary exits; testcontainers' reaper removes it.
func start() (string, error) {
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "test",
				"POSTGRES_PASSWORD": "test",
				"POSTGRES_DB":       "resumeai_test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return "", fmt.Errorf("starting container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return "", fmt.Errorf("container host: %w", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return "", fmt.Errorf("container port: %w", err)
	}

	dsn := fmt.Sprintf("postgres://test:test@%s:%s/resumeai_test?sslmode=disable", host, port.Port())

	m, err := migrate.New("file://"+MigrationsPath(), dsn)
	if err != nil {
		return "", fmt.Errorf("creating migrator: %w", err)
	}
	defer m.Close()
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return "", fmt.Errorf("running migrations: %w", err)
	}

	return dsn, nil
}

// MigrationsPath returns the absolute path of the repository's migrations.
func MigrationsPath() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "..", "migrations")
}

// CreateUser inserts a bare account row, with every quota column left at its
// migration default, and returns its id.
func CreateUser(t *testing.T, pool *pgxpool.Pool, email string) uuid.UUID {
	t.Helper()
	var id uuid.UUID
	err := pool.QueryRow(context.Background(),
		`INSERT INTO users (email, password_hash) VALUES ($1, 'x') RETURNING id`, email,
	).Scan(&id)
	if err != nil {
		t.Fatalf("inserting user %s: %v", email, err)
	}
	return id
}
