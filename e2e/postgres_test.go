package e2e_test

import (
	"context"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	pgcontainer "github.com/testcontainers/testcontainers-go/modules/postgres"
)

var (
	testPoolOnce sync.Once
	testCleanup  func()
	testDSN      string
	testDBErr    error
)

// getSharedPostgresDatabase returns the DSN of a PostgreSQL container shared
// by all e2e tests. It is terminated in TestMain.
func getSharedPostgresDatabase(t *testing.T) string {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping postgres e2e test in short mode")
	}

	testPoolOnce.Do(func() {
		ctx := context.Background()

		pgContainer, err := pgcontainer.Run(ctx,
			"postgres:18-alpine",
			pgcontainer.WithDatabase("testdb"),
			pgcontainer.WithUsername("testuser"),
			pgcontainer.WithPassword("testpass"),
			pgcontainer.BasicWaitStrategies(),
		)
		if err != nil {
			testDBErr = err
			return
		}

		testCleanup = func() {
			_ = testcontainers.TerminateContainer(pgContainer)
		}

		connectionStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			testDBErr = err
			return
		}

		pool, err := pgxpool.New(ctx, connectionStr)
		if err != nil {
			testDBErr = err
			return
		}
		defer pool.Close()

		if err := pool.Ping(ctx); err != nil {
			testDBErr = err
			return
		}

		testDSN = connectionStr
	})

	if testDBErr != nil {
		t.Fatalf("postgres container: %v", testDBErr)
	}

	return testDSN
}
