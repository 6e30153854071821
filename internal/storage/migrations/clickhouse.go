package migrations

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	chstore "l2-tipbot/internal/storage/clickhouse"
)

const chVersionTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
	version    UInt32,
	name       String,
	applied_at DateTime64(3) DEFAULT now64(3)
) ENGINE = MergeTree ORDER BY version`

// RunClickhouseMigrations creates the DSN's database if needed and applies
// pending migrations. ClickHouse has no DDL transactions, so a failed
// migration is left unrecorded and retried on the next run; statements must
// be idempotent. The returned connection targets the migrated database.
func RunClickhouseMigrations(ctx context.Context, dsn string) (*chstore.Conn, int, error) {
	migrations, err := Load("clickhouse")
	if err != nil {
		return nil, 0, err
	}
	dbName, err := databaseFromDSN(dsn)
	if err != nil {
		return nil, 0, err
	}
	if err := createDatabase(ctx, dsn, dbName); err != nil {
		return nil, 0, err
	}

	conn, err := chstore.NewConnWithDatabase(ctx, dsn, dbName)
	if err != nil {
		return nil, 0, fmt.Errorf("connect clickhouse %s: %w", dbName, err)
	}
	n, err := applyClickhouse(ctx, conn, migrations)
	if err != nil {
		conn.Close()
		return nil, n, err
	}
	return conn, n, nil
}

func createDatabase(ctx context.Context, dsn, dbName string) error {
	admin, err := chstore.NewConnWithDatabase(ctx, dsn, "")
	if err != nil {
		return fmt.Errorf("connect clickhouse admin: %w", err)
	}
	defer admin.Close()

	if err := admin.Exec(ctx, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s`", dbName)); err != nil {
		return fmt.Errorf("create database %s: %w", dbName, err)
	}
	return nil
}

func applyClickhouse(ctx context.Context, conn *chstore.Conn, migrations []Migration) (int, error) {
	if err := conn.Exec(ctx, chVersionTable); err != nil {
		return 0, fmt.Errorf("create schema_migrations: %w", err)
	}

	var versions []uint32
	if err := conn.Select(ctx, &versions, `SELECT version FROM schema_migrations`); err != nil {
		return 0, fmt.Errorf("read schema_migrations: %w", err)
	}
	applied := make(map[int]bool, len(versions))
	for _, v := range versions {
		applied[int(v)] = true
	}

	n := 0
	for _, m := range migrations {
		if applied[m.Version] {
			continue
		}
		for _, stmt := range m.Statements {
			if err := conn.Exec(ctx, stmt); err != nil {
				return n, fmt.Errorf("apply migration %s: %w", m.Name, err)
			}
		}
		if err := conn.Exec(ctx, `INSERT INTO schema_migrations (version, name) VALUES (?, ?)`, uint32(m.Version), m.Name); err != nil {
			return n, fmt.Errorf("record migration %s: %w", m.Name, err)
		}
		n++
	}
	return n, nil
}

func databaseFromDSN(dsn string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse clickhouse dsn: %w", err)
	}
	db := strings.Trim(u.Path, "/")
	if db == "" {
		return "", fmt.Errorf("clickhouse dsn %q names no database", u.Redacted())
	}
	return db, nil
}
