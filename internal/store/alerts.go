package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"overwatch/internal/apierr"
	"overwatch/pkg/shared"
)

// InsertAlert persists a new alert (spec.md §4.5, created by the Deduper).
func (s *Store) InsertAlert(a *shared.Alert) (int64, error) {
	reasons, err := json.Marshal(a.ThreatReasons)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal threat reasons: %w", err)
	}

	now := a.CreatedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}
	lastSeen := a.LastSeenAt
	if lastSeen.IsZero() {
		lastSeen = now
	}

	res, err := s.db.Exec(
		`INSERT INTO alerts (
			flight_id, transponder_id, region_id, severity, message, threat_reasons,
			recommended_action, resolved, created_at, last_seen_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		a.FlightID, a.TransponderID, a.RegionID, a.Severity, a.Message, string(reasons),
		a.RecommendedAction, now.Format(time.RFC3339Nano), lastSeen.Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, apierr.StoreUnavailable("failed to insert alert", err)
	}
	return res.LastInsertId()
}

// TouchAlertLastSeen updates an open alert's last-seen timestamp without
// emitting a new event (spec.md §4.6 step 3).
func (s *Store) TouchAlertLastSeen(id int64, at time.Time) error {
	_, err := s.db.Exec(`UPDATE alerts SET last_seen_at = ? WHERE id = ?`, at.UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return apierr.StoreUnavailable("failed to touch alert", err)
	}
	return nil
}

// FindOpenAlert looks up the most recent unresolved alert by (transponder id
// key, region id). Cold-start rebuilding of the Deduper's in-memory
// open-alerts map goes through ListOpenAlerts, not this lookup.
func (s *Store) FindOpenAlert(transponderKey string, regionID int64) (*shared.Alert, error) {
	row := s.db.QueryRow(
		`SELECT `+alertColumns+` FROM alerts
		 WHERE resolved = 0 AND region_id = ? AND COALESCE(transponder_id, '') = ?
		 ORDER BY id DESC LIMIT 1`,
		regionID, transponderKey,
	)
	a, err := scanAlertRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apierr.StoreUnavailable("failed to query open alert", err)
	}
	return a, nil
}

// ListOpenAlerts rebuilds the full open-alert set, used by the Deduper at
// startup.
func (s *Store) ListOpenAlerts() ([]shared.Alert, error) {
	rows, err := s.db.Query(`SELECT ` + alertColumns + ` FROM alerts WHERE resolved = 0`)
	if err != nil {
		return nil, apierr.StoreUnavailable("failed to query open alerts", err)
	}
	defer rows.Close()
	return scanAlerts(rows)
}

// ListRecentAlerts returns alerts ordered by creation time descending,
// optionally filtered by resolved state (nil = no filter).
func (s *Store) ListRecentAlerts(resolved *bool, limit int) ([]shared.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts`
	args := []interface{}{}
	if resolved != nil {
		query += ` WHERE resolved = ?`
		args = append(args, boolToInt(*resolved))
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, apierr.StoreUnavailable("failed to query alerts", err)
	}
	defer rows.Close()
	return scanAlerts(rows)
}

func (s *Store) GetAlert(id int64) (*shared.Alert, error) {
	row := s.db.QueryRow(`SELECT `+alertColumns+` FROM alerts WHERE id = ?`, id)
	a, err := scanAlertRow(row)
	if err == sql.ErrNoRows {
		return nil, apierr.NotFound("alert not found")
	}
	if err != nil {
		return nil, apierr.StoreUnavailable("failed to query alert", err)
	}
	return a, nil
}

// ResolveAlert is an idempotent transition to resolved=true (spec.md §4.5).
func (s *Store) ResolveAlert(id int64, resolvedBy *int64) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.Exec(
		`UPDATE alerts SET resolved = 1, resolved_by = ?, resolved_at = ?
		 WHERE id = ? AND resolved = 0`,
		resolvedBy, now, id,
	)
	if err != nil {
		return apierr.StoreUnavailable("failed to resolve alert", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Idempotent: resolving an already-resolved alert is not an error;
		// an alert that does not exist is reported as NotFound.
		if _, err := s.GetAlert(id); err != nil {
			return err
		}
	}
	return nil
}

const alertColumns = `id, flight_id, transponder_id, region_id, severity, message, threat_reasons,
	recommended_action, resolved, resolved_by, resolved_at, created_at, last_seen_at`

func scanAlerts(rows *sql.Rows) ([]shared.Alert, error) {
	var out []shared.Alert
	for rows.Next() {
		a, err := scanAlertRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func scanAlertRow(scanner interface{ Scan(...interface{}) error }) (*shared.Alert, error) {
	var a shared.Alert
	var transponder, resolvedAt sql.NullString
	var resolvedBy sql.NullInt64
	var resolved int
	var createdAt, lastSeenAt, reasonsJSON string

	err := scanner.Scan(
		&a.ID, &a.FlightID, &transponder, &a.RegionID, &a.Severity, &a.Message, &reasonsJSON,
		&a.RecommendedAction, &resolved, &resolvedBy, &resolvedAt, &createdAt, &lastSeenAt,
	)
	if err != nil {
		return nil, err
	}

	if transponder.Valid {
		v := transponder.String
		a.TransponderID = &v
	}
	a.Resolved = resolved == 1
	if resolvedBy.Valid {
		v := resolvedBy.Int64
		a.ResolvedBy = &v
	}
	if resolvedAt.Valid {
		t, _ := time.Parse(time.RFC3339Nano, resolvedAt.String)
		a.ResolvedAt = &t
	}
	a.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	a.LastSeenAt, _ = time.Parse(time.RFC3339Nano, lastSeenAt)
	_ = json.Unmarshal([]byte(reasonsJSON), &a.ThreatReasons)

	return &a, nil
}

// DeleteResolvedAlertsOlderThan removes resolved alerts past the retention
// window; unresolved alerts are never deleted (spec.md §4.5, §8 "Retention").
func (s *Store) DeleteResolvedAlertsOlderThan(cutoff time.Time) (int64, error) {
	res, err := s.db.Exec(
		`DELETE FROM alerts WHERE resolved = 1 AND created_at < ?`,
		cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old alerts: %w", err)
	}
	return res.RowsAffected()
}
