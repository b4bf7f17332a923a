package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idgov/internal/identity/models"
	"idgov/pkg/domain"
	"idgov/pkg/platform/sentinel"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgres(db), mock
}

var identityColumnsList = []string{"source_system", "identity_id", "name", "email", "cpf", "status", "user_type", "profile", "last_login", "attributes"}

func TestPostgresReplaceSystemCommitsAndReturnsGeneration(t *testing.T) {
	store, mock := newMockStore(t)
	lastLogin := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(bumpGenerationSQL)).
		WillReturnRows(sqlmock.NewRows([]string{"generation"}).AddRow(int64(7)))
	mock.ExpectExec(regexp.QuoteMeta(deleteSystemSQL)).
		WithArgs("sap").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO identities")).
		WithArgs("sap", "SAP", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	gen, err := store.ReplaceSystem(context.Background(), "SAP", []models.Identity{
		{IdentityID: "1", Name: "Ana", Extra: models.ExtraData{LastLogin: &lastLogin, Attributes: map[string]string{"cargo": "dev"}}},
		{IdentityID: "2", Name: "Bruno"},
	})

	require.NoError(t, err)
	assert.Equal(t, int64(7), gen)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresReplaceSystemWithoutRecordsOnlyDeletes(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(bumpGenerationSQL)).
		WillReturnRows(sqlmock.NewRows([]string{"generation"}).AddRow(int64(2)))
	mock.ExpectExec(regexp.QuoteMeta(deleteSystemSQL)).
		WithArgs("ad").
		WillReturnResult(sqlmock.NewResult(0, 10))
	mock.ExpectCommit()

	gen, err := store.ReplaceSystem(context.Background(), "AD", nil)

	require.NoError(t, err)
	assert.Equal(t, int64(2), gen)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresReplaceSystemRollsBackOnInsertFailure(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(bumpGenerationSQL)).
		WillReturnRows(sqlmock.NewRows([]string{"generation"}).AddRow(int64(3)))
	mock.ExpectExec(regexp.QuoteMeta(deleteSystemSQL)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO identities")).
		WillReturnError(&pgconn.PgError{Code: uniqueViolation})
	mock.ExpectRollback()

	_, err := store.ReplaceSystem(context.Background(), "SAP", []models.Identity{{IdentityID: "1"}})

	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSnapshotSplitsPartitions(t *testing.T) {
	store, mock := newMockStore(t)
	lastLogin := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(selectGenerationSQL)).
		WillReturnRows(sqlmock.NewRows([]string{"generation"}).AddRow(int64(4)))
	mock.ExpectQuery(regexp.QuoteMeta("FROM identities")).
		WillReturnRows(sqlmock.NewRows(identityColumnsList).
			AddRow("SAP", "1", "Ana", "ana@x.com", "123", "Ativo", "Funcionário", "Admin", lastLogin, []byte(`{"cargo":"dev"}`)).
			AddRow("RH", "1", "Ana", "ana@x.com", "123", "Ativo", "Funcionário", "", nil, []byte(`{}`)))
	mock.ExpectCommit()

	snap, err := store.Snapshot(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(4), snap.Generation)
	require.Len(t, snap.HR, 1)
	require.Len(t, snap.Targets, 1)
	target := snap.Targets[0]
	assert.Equal(t, domain.SystemName("SAP"), target.SourceSystem)
	require.NotNil(t, target.Extra.LastLogin)
	assert.True(t, lastLogin.Equal(*target.Extra.LastLogin))
	assert.Equal(t, map[string]string{"cargo": "dev"}, target.Extra.Attributes)
	assert.Nil(t, snap.HR[0].Extra.LastLogin)
	assert.Nil(t, snap.HR[0].Extra.Attributes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSnapshotPropagatesQueryError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(selectGenerationSQL)).
		WillReturnRows(sqlmock.NewRows([]string{"generation"}).AddRow(int64(1)))
	mock.ExpectQuery(regexp.QuoteMeta("FROM identities")).WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, err := store.Snapshot(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGeneration(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(selectGenerationSQL)).
		WillReturnRows(sqlmock.NewRows([]string{"generation"}).AddRow(int64(12)))
	gen, err := store.Generation(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(12), gen)

	mock.ExpectQuery(regexp.QuoteMeta(selectGenerationSQL)).WillReturnError(sql.ErrNoRows)
	_, err = store.Generation(context.Background())
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestPostgresListSystems(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(selectGenerationSQL)).
		WillReturnRows(sqlmock.NewRows([]string{"generation"}).AddRow(int64(5)))
	mock.ExpectQuery(regexp.QuoteMeta("GROUP BY source_key")).
		WillReturnRows(sqlmock.NewRows([]string{"min", "count"}).
			AddRow("AD", 3).
			AddRow("RH", 10))
	mock.ExpectCommit()

	catalog, err := store.ListSystems(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(5), catalog.Generation)
	assert.Equal(t, []models.SystemSummary{
		{System: "AD", Records: 3},
		{System: "RH", Records: 10, Authoritative: true},
	}, catalog.Systems)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestToColumnsEncodesNullableLastLogin(t *testing.T) {
	ts := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	cols, err := toColumns([]models.Identity{
		{IdentityID: "1", Extra: models.ExtraData{LastLogin: &ts}},
		{IdentityID: "2"},
	})
	require.NoError(t, err)

	assert.Equal(t, sql.NullString{String: "2024-01-01T12:00:00Z", Valid: true}, cols.lastLogins[0])
	assert.False(t, cols.lastLogins[1].Valid)
	assert.Equal(t, []string{"{}", "{}"}, cols.attributes)

	var _ driver.Valuer = cols.lastLogins[1]
}
