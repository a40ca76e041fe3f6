package persistence

import (
	"context"
	"database/sql"

	"social-dashboard/domain/model"
	"social-dashboard/domain/repository"
)

// RetryLogRepository appends retry attempts to PostgreSQL.
type RetryLogRepository struct {
	db *sql.DB
}

func NewRetryLogRepository(db *sql.DB) repository.IRetryLog { return &RetryLogRepository{db: db} }

func (r *RetryLogRepository) Append(ctx context.Context, e *model.RetryAttemptLog) error {
	row := r.db.QueryRowContext(ctx,
		`INSERT INTO retry_attempt_logs (job_id, platform, attempt, error_message, error_code, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`,
		e.JobID, string(e.Platform), e.Attempt, e.ErrorMessage, nullInt(e.ErrorCode), e.Timestamp)
	return row.Scan(&e.ID)
}

func (r *RetryLogRepository) ListByJob(ctx context.Context, jobID string) ([]*model.RetryAttemptLog, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, job_id, platform, attempt, error_message, error_code, created_at
		 FROM retry_attempt_logs WHERE job_id=$1 ORDER BY attempt, id`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRetryLogs(rows)
}

func scanRetryLogs(rows *sql.Rows) ([]*model.RetryAttemptLog, error) {
	var list []*model.RetryAttemptLog
	for rows.Next() {
		e := &model.RetryAttemptLog{}
		var platform string
		var code sql.NullInt64
		if err := rows.Scan(&e.ID, &e.JobID, &platform, &e.Attempt, &e.ErrorMessage, &code, &e.Timestamp); err != nil {
			return nil, err
		}
		e.Platform = model.Platform(platform)
		if code.Valid {
			c := int(code.Int64)
			e.ErrorCode = &c
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
