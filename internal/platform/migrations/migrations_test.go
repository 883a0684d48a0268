package migrations

import (
	"context"
	"database/sql"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/phrazzld/scry-live/internal/platform/logger"
)

func openSQLite(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "migrate.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&n)
	require.NoError(t, err)
	return n == 1
}

func TestSQLiteUpDown(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)

	m, err := New(DriverSQLite, db, logger.Discard())
	require.NoError(t, err)

	before, err := m.Status(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, before)
	for _, s := range before {
		assert.False(t, s.Applied, s.Path)
	}

	require.NoError(t, m.Up(ctx))
	for _, table := range []string{"deck", "flashcard", "user_settings"} {
		assert.True(t, tableExists(t, db, table), table)
	}

	v, err := m.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	// Up is idempotent.
	require.NoError(t, m.Up(ctx))

	require.NoError(t, m.Down(ctx))
	assert.False(t, tableExists(t, db, "flashcard"))

	v, err = m.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), v)
}

func TestUnsupportedDriver(t *testing.T) {
	_, err := New("mysql", openSQLite(t), logger.Discard())
	assert.ErrorContains(t, err, "unsupported database driver")
}

func TestEmbeddedMigrationsMatch(t *testing.T) {
	pg, err := embedded.ReadDir(DriverPostgres)
	require.NoError(t, err)
	lite, err := embedded.ReadDir(DriverSQLite)
	require.NoError(t, err)

	names := func(entries []fs.DirEntry) []string {
		out := make([]string, 0, len(entries))
		for _, e := range entries {
			out = append(out, e.Name())
		}
		return out
	}
	assert.Equal(t, names(pg), names(lite), "every migration needs a version for each driver")
}
