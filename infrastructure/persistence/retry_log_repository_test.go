package persistence

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"social-dashboard/domain/model"
	"social-dashboard/domain/repository"
)

func TestRetryLogRepository_Append(t *testing.T) {
	tests := []struct {
		name    string
		newRepo func(db *sql.DB) repository.IRetryLog
		query   string
	}{
		{name: "postgres", newRepo: NewRetryLogRepository, query: "INSERT INTO retry_attempt_logs"},
		{name: "mssql", newRepo: NewRetryLogRepositoryMSSQL, query: "INSERT INTO dbo.[retry_attempt_logs]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := newSQLMock(t)
			code := 503
			entry := &model.RetryAttemptLog{
				JobID: "post-1:twitter", Platform: model.PlatformTwitter, Attempt: 2,
				Timestamp: time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC), ErrorMessage: "unavailable", ErrorCode: &code,
			}
			db.mock.ExpectQuery(regexp.QuoteMeta(tt.query)).
				WithArgs("post-1:twitter", "twitter", 2, "unavailable", 503, entry.Timestamp).
				WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))

			require.NoError(t, tt.newRepo(db.DB).Append(context.Background(), entry))
			assert.Equal(t, int64(42), entry.ID)
			assert.NoError(t, db.mock.ExpectationsWereMet())
		})
	}
}

func TestRetryLogRepository_AppendNullCode(t *testing.T) {
	db := newSQLMock(t)
	repo := NewRetryLogRepository(db.DB)
	db.mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO retry_attempt_logs")).
		WithArgs("job", "facebook", 1, "boom", nil, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

	err := repo.Append(context.Background(), &model.RetryAttemptLog{JobID: "job", Platform: model.PlatformFacebook, Attempt: 1, ErrorMessage: "boom"})
	require.NoError(t, err)
}

func TestRetryLogRepository_ListByJob(t *testing.T) {
	db := newSQLMock(t)
	repo := NewRetryLogRepository(db.DB)
	ts := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	db.mock.ExpectQuery(regexp.QuoteMeta("FROM retry_attempt_logs WHERE job_id=$1 ORDER BY attempt, id")).
		WithArgs("job").
		WillReturnRows(sqlmock.NewRows([]string{"id", "job_id", "platform", "attempt", "error_message", "error_code", "created_at"}).
			AddRow(1, "job", "linkedin", 1, "throttled", 429, ts).
			AddRow(2, "job", "linkedin", 2, "oops", nil, ts.Add(time.Second)))

	list, err := repo.ListByJob(context.Background(), "job")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, model.PlatformLinkedIn, list[0].Platform)
	require.NotNil(t, list[0].ErrorCode)
	assert.Equal(t, 429, *list[0].ErrorCode)
	assert.Nil(t, list[1].ErrorCode)
}

func TestRetryLogRepository_QueryError(t *testing.T) {
	db := newSQLMock(t)
	repo := NewRetryLogRepositoryMSSQL(db.DB)
	db.mock.ExpectQuery(regexp.QuoteMeta("FROM dbo.[retry_attempt_logs]")).WillReturnError(errors.New("connection reset"))

	_, err := repo.ListByJob(context.Background(), "job")
	assert.Error(t, err)
}
