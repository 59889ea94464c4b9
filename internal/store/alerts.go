package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"gridwatch/internal/models"
)

const alertColumns = `id, device_serial, timestamp, metric, value, threshold, severity, message`

func collectAlerts(rows *sql.Rows) ([]models.Alert, error) {
	defer rows.Close()
	alerts := []models.Alert{}
	for rows.Next() {
		var a models.Alert
		var ts int64
		if err := rows.Scan(&a.ID, &a.DeviceID, &ts, &a.Metric, &a.Value,
			&a.Threshold, &a.Severity, &a.Message); err != nil {
			return nil, err
		}
		a.Timestamp = time.Unix(0, ts)
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// RecentAlerts returns up to limit alerts, newest first. This is the
// loader the simulation engine uses to seed its in-memory log.
func (s *Store) RecentAlerts(ctx context.Context, limit int) ([]models.Alert, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+alertColumns+` FROM alerts ORDER BY timestamp DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent alerts: %w", err)
	}
	return collectAlerts(rows)
}

// AlertsForSerials returns up to limit alerts for the given device serials,
// newest first. An empty serial list yields an empty result.
func (s *Store) AlertsForSerials(ctx context.Context, serials []string, limit int) ([]models.Alert, error) {
	if len(serials) == 0 {
		return []models.Alert{}, nil
	}
	args := make([]any, 0, len(serials)+1)
	for _, serial := range serials {
		args = append(args, serial)
	}
	args = append(args, limit)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+alertColumns+` FROM alerts WHERE device_serial IN (`+placeholders(len(serials))+`)
		 ORDER BY timestamp DESC LIMIT ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("alerts for serials: %w", err)
	}
	return collectAlerts(rows)
}

// InsertAlert mirrors one alert. Re-inserting the same composite id is a
// no-op rather than an error, so a duplicate fire-and-forget call from the
// engine cannot fail.
func (s *Store) InsertAlert(ctx context.Context, a models.Alert) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO alerts (id, device_serial, timestamp, metric, value, threshold, severity, message)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.DeviceID, a.Timestamp.UnixNano(), a.Metric, a.Value,
		a.Threshold, a.Severity, a.Message)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

// DeleteAllAlerts drops the whole mirror.
func (s *Store) DeleteAllAlerts(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM alerts`); err != nil {
		return fmt.Errorf("delete alerts: %w", err)
	}
	return nil
}

// DeleteAlertsForSerials drops mirrored alerts for the given serials only.
func (s *Store) DeleteAlertsForSerials(ctx context.Context, serials []string) error {
	if len(serials) == 0 {
		return nil
	}
	args := make([]any, 0, len(serials))
	for _, serial := range serials {
		args = append(args, serial)
	}
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM alerts WHERE device_serial IN (`+placeholders(len(serials))+`)`, args...)
	if err != nil {
		return fmt.Errorf("delete alerts for serials: %w", err)
	}
	return nil
}
