package persistence

import (
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

type sqlmockDB struct {
	*sql.DB
	mock sqlmock.Sqlmock
}

func newSQLMock(t *testing.T) *sqlmockDB {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return &sqlmockDB{DB: db, mock: mock}
}
