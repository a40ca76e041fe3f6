package persistence

import (
	"context"
	"database/sql"

	"social-dashboard/domain/model"
	"social-dashboard/domain/repository"
)

// RetryLogRepositoryMSSQL is the SQL Server variant used in production.
type RetryLogRepositoryMSSQL struct {
	db *sql.DB
}

func NewRetryLogRepositoryMSSQL(db *sql.DB) repository.IRetryLog {
	return &RetryLogRepositoryMSSQL{db: db}
}

func (r *RetryLogRepositoryMSSQL) Append(ctx context.Context, e *model.RetryAttemptLog) error {
	row := r.db.QueryRowContext(ctx,
		`INSERT INTO dbo.[retry_attempt_logs] (job_id, platform, attempt, error_message, error_code, created_at)
		 OUTPUT INSERTED.id
		 VALUES (@p1,@p2,@p3,@p4,@p5,@p6)`,
		e.JobID, string(e.Platform), e.Attempt, e.ErrorMessage, nullInt(e.ErrorCode), e.Timestamp)
	return row.Scan(&e.ID)
}

func (r *RetryLogRepositoryMSSQL) ListByJob(ctx context.Context, jobID string) ([]*model.RetryAttemptLog, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, job_id, platform, attempt, error_message, error_code, created_at
		 FROM dbo.[retry_attempt_logs] WHERE job_id=@p1 ORDER BY attempt, id`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRetryLogs(rows)
}
