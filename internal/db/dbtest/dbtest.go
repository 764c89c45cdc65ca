//go:build integration

// Package dbtest starts a throwaway PostgreSQL container with the schema
// migrated, for repository integration tests.
package dbtest

import (
	"context"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/vasiliy-maslov/happy-baby-style/internal/config"
	"github.com/vasiliy-maslov/happy-baby-style/internal/db"
)

func migrationsPath() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "..", "migrations")
}

// Start runs a postgres container for the duration of the test and returns
// a connected, migrated database.
func Start(t *testing.T) *db.Postgres {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("happy_baby_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	cfg := config.PostgresConfig{
		Host:            host,
		Port:            port.Port(),
		User:            "test",
		Password:        "test",
		DBName:          "happy_baby_test",
		SSLMode:         "disable",
		MaxConns:        10,
		MinConns:        1,
		MaxConnLifetime: 5 * time.Minute,
		MigrationsPath:  migrationsPath(),
	}

	require.NoError(t, db.Migrate(cfg))

	pg, err := db.New(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(pg.Close)

	return pg
}
