package postgres

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idgov/internal/platform/config"
	"idgov/internal/platform/postgres/migrations"
)

func TestMigrateRunsEmbeddedMigrations(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	orig := gooseUpContext
	defer func() { gooseUpContext = orig }()

	var gotDir string
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		gotDir = dir
		return nil
	}

	require.NoError(t, Migrate(context.Background(), db))
	assert.Equal(t, ".", gotDir)
}

func TestMigratePropagatesError(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	orig := gooseUpContext
	defer func() { gooseUpContext = orig }()
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return errors.New("lock timeout")
	}

	err = Migrate(context.Background(), db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lock timeout")
}

func TestOpenPingsDatabase(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	orig := sqlOpen
	defer func() { sqlOpen = orig }()
	var gotDriver string
	sqlOpen = func(driverName, dsn string) (*sql.DB, error) {
		gotDriver = driverName
		return db, nil
	}

	mock.ExpectPing()

	opened, err := Open(context.Background(), config.DatabaseConfig{URL: "postgres://x", MaxOpenConns: 2, MaxIdleConns: 1})
	require.NoError(t, err)
	assert.Same(t, db, opened)
	assert.Equal(t, "pgx", gotDriver)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOpenClosesOnPingFailure(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	orig := sqlOpen
	defer func() { sqlOpen = orig }()
	sqlOpen = func(driverName, dsn string) (*sql.DB, error) { return db, nil }

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	mock.ExpectClose()

	_, err = Open(context.Background(), config.DatabaseConfig{URL: "postgres://x", MaxIdleConns: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOpenWithZeroPoolSettingsKeepsConnection(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	orig := sqlOpen
	defer func() { sqlOpen = orig }()
	sqlOpen = func(driverName, dsn string) (*sql.DB, error) { return db, nil }

	mock.ExpectPing()

	opened, err := Open(context.Background(), config.DatabaseConfig{URL: "postgres://x"})
	require.NoError(t, err)
	assert.Same(t, db, opened)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmbeddedMigrationsPresent(t *testing.T) {
	files, err := fs.Glob(migrations.Migrations, "*.sql")
	require.NoError(t, err)
	assert.Equal(t, []string{"00001_identities.sql", "00002_import_runs.sql"}, files)
}
