package persistence

import (
	"context"
	"database/sql"
	"time"

	"social-dashboard/domain/model"
	"social-dashboard/domain/repository"
)

// DeliveryEventRepository stores the delivery event stream in PostgreSQL.
type DeliveryEventRepository struct {
	db *sql.DB
}

func NewDeliveryEventRepository(db *sql.DB) repository.IDeliveryEvent {
	return &DeliveryEventRepository{db: db}
}

func (r *DeliveryEventRepository) Record(ctx context.Context, e *model.DeliveryEvent) error {
	var platform sql.NullString
	if e.Platform != nil {
		platform = sql.NullString{String: string(*e.Platform), Valid: true}
	}
	row := r.db.QueryRowContext(ctx,
		`INSERT INTO delivery_events (user_id, platform, kind, response_time_ms, occurred_at)
		 VALUES ($1,$2,$3,$4,$5) RETURNING id`,
		e.UserID, platform, string(e.Kind), e.ResponseTime.Milliseconds(), e.OccurredAt)
	return row.Scan(&e.ID)
}

func (r *DeliveryEventRepository) Aggregate(ctx context.Context, userID string, platform *model.Platform, from, to time.Time) (model.DeliveryCounts, error) {
	var p sql.NullString
	if platform != nil {
		p = sql.NullString{String: string(*platform), Valid: true}
	}
	row := r.db.QueryRowContext(ctx,
		`SELECT
			COUNT(*) FILTER (WHERE kind='sent'),
			COUNT(*) FILTER (WHERE kind='delivered'),
			COUNT(*) FILTER (WHERE kind='opened'),
			COUNT(*) FILTER (WHERE kind='clicked'),
			COUNT(*) FILTER (WHERE kind='bounced'),
			COUNT(*) FILTER (WHERE kind='failed'),
			COALESCE(AVG(response_time_ms) FILTER (WHERE kind='delivered' AND response_time_ms > 0), 0)
		 FROM delivery_events
		 WHERE user_id=$1 AND occurred_at >= $2 AND occurred_at <= $3 AND ($4::text IS NULL OR platform=$4)`,
		userID, from, to, p)
	var c model.DeliveryCounts
	var avgMs float64
	if err := row.Scan(&c.Sent, &c.Delivered, &c.Opened, &c.Clicked, &c.Bounced, &c.Failed, &avgMs); err != nil {
		return model.DeliveryCounts{}, err
	}
	c.AvgResponseTime = time.Duration(avgMs * float64(time.Millisecond))
	return c, nil
}

func (r *DeliveryEventRepository) CountKind(ctx context.Context, userID string, kind model.DeliveryEventKind, since time.Time) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM delivery_events WHERE user_id=$1 AND kind=$2 AND occurred_at >= $3`,
		userID, string(kind), since).Scan(&n)
	return n, err
}

func (r *DeliveryEventRepository) Platforms(ctx context.Context, userID string, since time.Time) ([]model.Platform, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT platform FROM delivery_events
		 WHERE user_id=$1 AND occurred_at >= $2 AND platform IS NOT NULL ORDER BY platform`,
		userID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Platform
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, model.Platform(p))
	}
	return out, rows.Err()
}
