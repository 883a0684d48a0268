package testdb

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/phrazzld/scry-live/internal/platform/logger"
	"github.com/phrazzld/scry-live/internal/platform/migrations"
	"github.com/phrazzld/scry-live/internal/platform/postgres"
	"github.com/phrazzld/scry-live/internal/platform/sqlite"
	"github.com/phrazzld/scry-live/internal/store"
)

// PostgresURLEnv names the database the PostgreSQL integration tests run
// against. Every table is truncated when a test opens it.
const PostgresURLEnv = "SCRY_TEST_DATABASE_URL"

// SQLite returns a migrated database in a fresh temporary file. It is
// closed when the test ends.
func SQLite(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "scry.db"))
	require.NoError(t, err, "open sqlite")
	t.Cleanup(func() { _ = db.Close() })

	migrate(t, migrations.DriverSQLite, db)
	return db
}

// SQLiteStores returns the stores of a fresh SQLite database.
func SQLiteStores(t *testing.T) store.Stores {
	t.Helper()
	return sqlite.NewStores(SQLite(t), logger.Discard())
}

// Postgres returns the migrated, emptied database named by PostgresURLEnv
// and skips the test when the variable is unset.
func Postgres(t *testing.T) *sql.DB {
	t.Helper()
	url := os.Getenv(PostgresURLEnv)
	if url == "" {
		t.Skipf("%s not set; skipping postgres integration test", PostgresURLEnv)
	}
	ctx := context.Background()

	db, err := postgres.Open(ctx, url)
	require.NoError(t, err, "open postgres")
	t.Cleanup(func() { _ = db.Close() })

	migrate(t, migrations.DriverPostgres, db)
	_, err = db.ExecContext(ctx, `TRUNCATE user_settings, flashcard, deck RESTART IDENTITY CASCADE`)
	require.NoError(t, err, "truncate tables")
	return db
}

func migrate(t *testing.T, driver string, db *sql.DB) {
	t.Helper()
	m, err := migrations.New(driver, db, logger.Discard())
	require.NoError(t, err, "create migrator")
	require.NoError(t, m.Up(context.Background()), "apply migrations")
}
