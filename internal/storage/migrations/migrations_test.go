package migrations

import (
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitStatements(t *testing.T) {
	sql := `-- header; with a semicolon
CREATE TABLE a (x TEXT DEFAULT 'a;b'); -- trailing
INSERT INTO a VALUES ('it''s; fine');

;`
	stmts := SplitStatements(sql)
	require.Len(t, stmts, 2)
	assert.Equal(t, "CREATE TABLE a (x TEXT DEFAULT 'a;b')", stmts[0])
	assert.Equal(t, "INSERT INTO a VALUES ('it''s; fine')", stmts[1])
}

func TestLoadFS_OrdersByVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"pg/010_later.sql":  {Data: []byte("SELECT 10;")},
		"pg/002_second.sql": {Data: []byte("SELECT 2; SELECT 22;")},
		"pg/003_empty.sql":  {Data: []byte("-- nothing here\n")},
		"pg/README.md":      {Data: []byte("ignored")},
	}
	ms, err := loadFS(fsys, "pg")
	require.NoError(t, err)
	require.Len(t, ms, 2)
	assert.Equal(t, 2, ms[0].Version)
	assert.Equal(t, []string{"SELECT 2", "SELECT 22"}, ms[0].Statements)
	assert.Equal(t, 10, ms[1].Version)
	assert.Equal(t, "010_later.sql", ms[1].Name)
}

func TestLoadFS_RejectsBadNames(t *testing.T) {
	_, err := loadFS(fstest.MapFS{"pg/init.sql": {Data: []byte("SELECT 1;")}}, "pg")
	assert.Error(t, err)

	_, err = loadFS(fstest.MapFS{"pg/abc_init.sql": {Data: []byte("SELECT 1;")}}, "pg")
	assert.Error(t, err)

	_, err = loadFS(fstest.MapFS{
		"pg/001_a.sql":  {Data: []byte("SELECT 1;")},
		"pg/0001_b.sql": {Data: []byte("SELECT 1;")},
	}, "pg")
	assert.Error(t, err)
}

func TestEmbeddedMigrations(t *testing.T) {
	for _, dir := range []string{"postgres", "clickhouse"} {
		ms, err := Load(dir)
		require.NoError(t, err, dir)
		require.NotEmpty(t, ms, dir)
		assert.Equal(t, 1, ms[0].Version, dir)
	}

	pg, err := Load("postgres")
	require.NoError(t, err)
	var ledger bool
	for _, m := range pg {
		for _, stmt := range m.Statements {
			ledger = ledger || strings.Contains(stmt, "CREATE TABLE IF NOT EXISTS executions")
		}
	}
	assert.True(t, ledger, "postgres must carry the executions ledger")
}

func TestDatabaseFromDSN(t *testing.T) {
	db, err := databaseFromDSN("clickhouse://default:pw@localhost:9000/tipbot")
	require.NoError(t, err)
	assert.Equal(t, "tipbot", db)

	_, err = databaseFromDSN("clickhouse://localhost:9000")
	assert.Error(t, err)
}
