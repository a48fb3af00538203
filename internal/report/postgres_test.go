package report

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockPostgresStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mock.ExpectPing()
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS reports").
		WillReturnResult(sqlmock.NewResult(0, 0))

	store, err := NewPostgresStoreFromDB(db)
	require.NoError(t, err)
	return store, mock
}

func TestPostgresSaveAssignsID(t *testing.T) {
	store, mock := newMockPostgresStore(t)

	mock.ExpectExec("INSERT INTO reports").
		WillReturnResult(sqlmock.NewResult(0, 1))

	rpt := testReport("P1", "CODEINE")
	require.NoError(t, store.Save(context.Background(), rpt))
	assert.NotEmpty(t, rpt.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGet(t *testing.T) {
	store, mock := newMockPostgresStore(t)

	rpt := testReport("P1", "CLOPIDOGREL")
	rpt.ID = "abc-123"
	payload, err := json.Marshal(rpt)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT id, payload FROM reports WHERE id").
		WithArgs("abc-123").
		WillReturnRows(sqlmock.NewRows([]string{"id", "payload"}).
			AddRow("abc-123", string(payload)))

	got, err := store.Get(context.Background(), "abc-123")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "abc-123", got.ID)
	assert.Equal(t, "CLOPIDOGREL", got.Drug)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetMissing(t *testing.T) {
	store, mock := newMockPostgresStore(t)

	mock.ExpectQuery("SELECT id, payload FROM reports WHERE id").
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{"id", "payload"}))

	got, err := store.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPostgresCount(t *testing.T) {
	store, mock := newMockPostgresStore(t)

	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(7)))

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), count)
}

func TestPostgresDelete(t *testing.T) {
	store, mock := newMockPostgresStore(t)

	mock.ExpectExec("DELETE FROM reports").
		WithArgs("abc-123").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Delete(context.Background(), "abc-123"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
