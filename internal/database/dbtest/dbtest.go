// Package dbtest starts a throwaway Postgres for integration tests.
package dbtest

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"fileshare/db"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// ErrNoRuntime is returned by Start when the container runtime is missing.
var ErrNoRuntime = errors.New("container runtime unavailable")

// Start runs a postgres:14-alpine container and applies the schema. The
// returned stop func terminates the container. A missing container runtime
// is reported as an error so callers can still run their non-database tests.
func Start(ctx context.Context) (*pgxpool.Pool, func(), error) {
	var pgContainer *postgres.PostgresContainer
	err := guard(func() error {
		var runErr error
		pgContainer, runErr = postgres.Run(ctx,
			"postgres:14-alpine",
			postgres.WithDatabase("testdb"),
			postgres.WithUsername("user"),
			postgres.WithPassword("password"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			),
		)
		return runErr
	})
	if err != nil {
		if pgContainer != nil {
			_ = pgContainer.Terminate(context.Background())
		}
		return nil, nil, fmt.Errorf("failed to start postgres container: %w", err)
	}
	stop := func() { _ = pgContainer.Terminate(context.Background()) }

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		stop()
		return nil, nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		stop()
		return nil, nil, fmt.Errorf("failed to connect to test database: %w", err)
	}

	if _, err := pool.Exec(ctx, db.Schema); err != nil {
		pool.Close()
		stop()
		return nil, nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return pool, func() {
		pool.Close()
		stop()
	}, nil
}

// guard runs fn and turns a panic into an error. testcontainers panics
// when no Docker provider can be found.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrNoRuntime, r)
		}
	}()
	return fn()
}

// Require skips the test when no database could be started.
func Require(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	if pool == nil {
		t.Skip("postgres container unavailable")
	}
}

var seq atomic.Int64

// Email returns an address unique within the test process.
func Email(prefix string) string {
	return fmt.Sprintf("%s_%d@example.com", prefix, seq.Add(1))
}
