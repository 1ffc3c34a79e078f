package sqlstore

import (
	"context"
	"time"

	"estate_api/internal/domain"
)

func (r *Repo) RecordEvent(ctx context.Context, e domain.Event) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = r.now()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO analytics (event_type, property_id, user_id, metadata, created_at) VALUES (?, ?, ?, ?, ?)`,
		e.EventType, valInt64(e.PropertyID), valInt64(e.UserID), valJSON(e.Metadata), e.CreatedAt)
	return r.mapErr("record event", err)
}

func (r *Repo) Report(ctx context.Context, since time.Time, top int) (domain.AnalyticsReport, error) {
	out := domain.AnalyticsReport{
		Events:        []domain.EventCount{},
		TopProperties: []domain.PropertyViewCount{},
		ViewsPerDay:   []domain.DayCount{},
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT event_type, COUNT(*) AS n FROM analytics WHERE created_at >= ? GROUP BY event_type ORDER BY n DESC, event_type`, since)
	if err != nil {
		return out, r.mapErr("report events", err)
	}
	for rows.Next() {
		var c domain.EventCount
		if err := rows.Scan(&c.EventType, &c.Count); err != nil {
			rows.Close()
			return out, err
		}
		out.Events = append(out.Events, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return out, err
	}

	rows, err = r.db.QueryContext(ctx, topViewedSQL, since, top)
	if err != nil {
		return out, r.mapErr("report top viewed", err)
	}
	for rows.Next() {
		var c domain.PropertyViewCount
		if err := rows.Scan(&c.PropertyID, &c.Title, &c.Views); err != nil {
			rows.Close()
			return out, err
		}
		out.TopProperties = append(out.TopProperties, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return out, err
	}

	day := r.d.DayExpr("viewed_at")
	rows, err = r.db.QueryContext(ctx,
		`SELECT `+day+` AS d, COUNT(*) FROM property_views WHERE viewed_at >= ? GROUP BY d ORDER BY d`, since)
	if err != nil {
		return out, r.mapErr("report views per day", err)
	}
	defer rows.Close()
	for rows.Next() {
		var c domain.DayCount
		if err := rows.Scan(&c.Day, &c.Count); err != nil {
			return out, err
		}
		out.ViewsPerDay = append(out.ViewsPerDay, c)
	}
	return out, rows.Err()
}
