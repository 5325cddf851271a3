package dbstore

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// sharedPostgres is the PostgreSQL container shared by every test in this
// package. Starting one container per test is far too slow; the tests keep
// their state disjoint (distinct usernames and paths) instead.
var sharedPostgres *postgresContainer

type postgresContainer struct {
	container testcontainers.Container
	host      string
	port      int
}

// TestMain starts the shared PostgreSQL container. When no container
// runtime is available the postgres-backed tests skip rather than fail, so
// the sqlite-only test environments still pass.
func TestMain(m *testing.M) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       "remotefs_test",
			"POSTGRES_USER":     "remotefs_test",
			"POSTGRES_PASSWORD": "remotefs_test",
		},
		WaitingFor: wait.ForAll(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
			wait.ForListeningPort("5432/tcp"),
		),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "postgres container unavailable, postgres tests will skip: %v\n", err)
		os.Exit(m.Run())
	}

	host, err := container.Host(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		fmt.Fprintf(os.Stderr, "failed to get container host: %v\n", err)
		os.Exit(1)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		_ = container.Terminate(ctx)
		fmt.Fprintf(os.Stderr, "failed to get container port: %v\n", err)
		os.Exit(1)
	}

	sharedPostgres = &postgresContainer{container: container, host: host, port: port.Int()}

	code := m.Run()

	_ = container.Terminate(ctx)
	os.Exit(code)
}
