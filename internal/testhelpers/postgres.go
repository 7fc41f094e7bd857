// Package testhelpers starts a shared Postgres container for integration
// tests. Tests using it are skipped in -short mode.
//
// schema.sql is a copy of the production schema, which is managed outside
// this repository.
package testhelpers

import (
	"context"
	_ "embed"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/albapepper/courtside-data/internal/config"
	"github.com/albapepper/courtside-data/internal/db"
)

const postgresImage = "postgres:16-alpine"

//go:embed schema.sql
var schema string

var (
	sharedPool     *db.Pool
	sharedConfig   *config.Config
	sharedPoolOnce sync.Once
	sharedPoolErr  error
)

// GetTestPool returns a migrated pool on a container shared by the whole test
// run. Callers should Truncate before relying on table contents.
func GetTestPool(t *testing.T) *db.Pool {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	sharedPoolOnce.Do(func() {
		sharedPool, sharedConfig, sharedPoolErr = setupPool()
	})
	if sharedPoolErr != nil {
		t.Fatalf("Failed to set up test database: %v", sharedPoolErr)
	}
	return sharedPool
}

// GetTestConfig returns the config of the shared container, for code that
// opens its own connection.
func GetTestConfig(t *testing.T) *config.Config {
	t.Helper()
	GetTestPool(t)
	return sharedConfig
}

// Truncate empties every table.
func Truncate(t *testing.T, pool *db.Pool) {
	t.Helper()
	_, err := pool.Exec(context.Background(), fmt.Sprintf("TRUNCATE %s, %s, %s, %s CASCADE",
		config.PlayerStatsTable, config.GamesTable, config.PlayersTable, config.TeamsTable))
	if err != nil {
		t.Fatalf("truncate: %v", err)
	}
}

func setupPool() (*db.Pool, *config.Config, error) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        postgresImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       "courtside",
			"POSTGRES_USER":     "courtside",
			"POSTGRES_PASSWORD": "test_password",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start test container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get container host: %w", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get container port: %w", err)
	}

	cfg := &config.Config{
		DatabaseURL: fmt.Sprintf("postgres://courtside:test_password@%s:%s/courtside?sslmode=disable",
			host, port.Port()),
		DBPoolMinConns: 1,
		DBPoolMaxConns: 4,
		DBPoolMaxLife:  30 * time.Minute,
	}

	// The pool prepares statements against the tables on connect.
	if err := applySchema(ctx, cfg.DatabaseURL); err != nil {
		return nil, nil, err
	}

	pool, err := db.New(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create pool: %w", err)
	}
	return pool, cfg, nil
}

// applySchema uses a connection of its own: the pool prepares statements
// against the tables on connect.
func applySchema(ctx context.Context, dsn string) error {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(ctx)

	if _, err := conn.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
