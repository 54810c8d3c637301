package dedupe

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"
)

func TestPostgresStore_Exists(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewPostgresWithPool(mock, "replies")
	require.NoError(t, err)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("c1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	seen, err := store.Exists(context.Background(), "c1")
	require.NoError(t, err)
	require.True(t, seen)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_RecordInsertsRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewPostgresWithPool(mock, "replies")
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO replies").
		WithArgs("c1", "t1_r1").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = store.Record(context.Background(), "c1", "t1_r1")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_RejectsBadTableName(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewPostgresWithPool(mock, "replies; DROP TABLE users")
	require.Error(t, err)
}

func TestPostgresStore_RecordRequiresCommentID(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewPostgresWithPool(mock, "")
	require.NoError(t, err)

	err = store.Record(context.Background(), "", "t1_r1")
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
