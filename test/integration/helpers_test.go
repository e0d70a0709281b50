//go:build integration

package integration

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/tablewright/tablewright/internal/config"
)

// startPostgres runs a throwaway PostgreSQL container and returns its
// connection string.
func startPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("tablewright_test"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	if err != nil {
		t.Fatalf("starting postgres container: %v", err)
	}

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("postgres connection string: %v", err)
	}
	return dsn
}

func pgConnection(dsn string) config.ConnectionConfig {
	return config.ConnectionConfig{
		ID:      "pg",
		Name:    "pg",
		Engine:  "postgresql",
		Options: map[string]string{"dsn": dsn},
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mongoURI(t *testing.T) string {
	t.Helper()
	uri := os.Getenv("TABLEWRIGHT_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("skipping: TABLEWRIGHT_TEST_MONGO_URI not set")
	}
	return uri
}
