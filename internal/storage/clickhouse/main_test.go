package clickhouse_test

import (
	"context"
	"flag"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	chstore "l2-tipbot/internal/storage/clickhouse"
	"l2-tipbot/internal/storage/migrations"
)

// testDSN points at a migrated database shared by the package's tests.
// Empty when integration tests are skipped.
var testDSN string

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}

	ctx := context.Background()
	container, dsn, err := startClickhouse(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "start clickhouse: %v\n", err)
		os.Exit(1)
	}

	conn, _, err := migrations.RunClickhouseMigrations(ctx, dsn)
	if err != nil {
		_ = container.Terminate(ctx)
		fmt.Fprintf(os.Stderr, "migrate clickhouse: %v\n", err)
		os.Exit(1)
	}
	_ = conn.Close()
	testDSN = dsn

	code := m.Run()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func startClickhouse(ctx context.Context) (testcontainers.Container, string, error) {
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "clickhouse/clickhouse-server:24.8-alpine",
			ExposedPorts: []string{"9000/tcp"},
			Env:          map[string]string{"CLICKHOUSE_SKIP_USER_SETUP": "1"},
			WaitingFor: wait.ForListeningPort("9000/tcp").
				WithStartupTimeout(90 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return nil, "", err
	}

	host, err := container.Host(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, "", err
	}
	port, err := container.MappedPort(ctx, "9000/tcp")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, "", err
	}
	return container, fmt.Sprintf("clickhouse://%s:%s/tipbot", host, port.Port()), nil
}

// openTestConn returns a connection to an emptied executions table.
func openTestConn(t *testing.T) *chstore.Conn {
	t.Helper()
	if testDSN == "" {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	conn, err := chstore.NewConn(ctx, testDSN)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, conn.Exec(ctx, "TRUNCATE TABLE executions"))
	return conn
}

func TestMigrationsAreRecorded(t *testing.T) {
	if testDSN == "" {
		t.Skip("skipping integration test in short mode")
	}
	conn, n, err := migrations.RunClickhouseMigrations(context.Background(), testDSN)
	require.NoError(t, err)
	defer conn.Close()
	require.Zero(t, n, "second run must not reapply migrations")
}
