package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"overwatch/internal/apierr"
	"overwatch/pkg/shared"
)

// InsertFlight appends a track record. Total order with other writers is
// provided by SQLite's single-writer-lane connection pool (spec.md §4.5,
// §5). Returns the assigned id; never fails except on store exhaustion,
// surfaced as StoreUnavailable.
func (s *Store) InsertFlight(f *shared.Flight) (int64, error) {
	trajectory, err := json.Marshal(f.PredictedTrajectory)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal trajectory: %w", err)
	}

	res, err := s.db.Exec(
		`INSERT INTO flights (
			transponder_id, timestamp, latitude, longitude, altitude, groundspeed, track,
			classification, aircraft_model, threat_level, threat_score,
			detection_confidence, signal_strength, weather_condition,
			in_restricted_area, allowlisted, predicted_trajectory
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.TransponderID, f.Timestamp.UTC().Format(time.RFC3339Nano), f.Latitude, f.Longitude, f.Altitude,
		f.Groundspeed, f.Track, f.Classification, f.AircraftModel, f.ThreatLevel, f.ThreatScore,
		f.DetectionConfidence, f.SignalStrength, f.WeatherCondition,
		boolToInt(f.InRestrictedArea), boolToInt(f.Allowlisted), string(trajectory),
	)
	if err != nil {
		return 0, apierr.StoreUnavailable("failed to insert flight", err)
	}
	return res.LastInsertId()
}

// ListRecentFlights returns the most recent insertions ordered by timestamp
// descending, up to limit rows.
func (s *Store) ListRecentFlights(limit int) ([]shared.Flight, error) {
	rows, err := s.db.Query(
		`SELECT `+flightColumns+` FROM flights ORDER BY timestamp DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, apierr.StoreUnavailable("failed to query flights", err)
	}
	defer rows.Close()
	return scanFlights(rows)
}

// ListLatestSnapshot returns the latest row per distinct transponder id (the
// "UNKNOWN" bucket for unidentified tracks is collapsed to one row, since
// there is no identifier to key on individually), per spec.md §4.5's note
// that the snapshot view may return only the latest record per identifier.
func (s *Store) ListLatestSnapshot(limit int) ([]shared.Flight, error) {
	rows, err := s.db.Query(
		`SELECT `+flightColumns+` FROM flights f
		 WHERE f.id IN (
		     SELECT MAX(id) FROM flights
		     GROUP BY COALESCE(NULLIF(transponder_id, 'UNKNOWN'), '')
		 )
		 ORDER BY f.timestamp DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, apierr.StoreUnavailable("failed to query flight snapshot", err)
	}
	defer rows.Close()
	return scanFlights(rows)
}

const flightColumns = `id, transponder_id, timestamp, latitude, longitude, altitude, groundspeed, track,
	classification, aircraft_model, threat_level, threat_score,
	detection_confidence, signal_strength, weather_condition,
	in_restricted_area, allowlisted, predicted_trajectory`

func scanFlights(rows *sql.Rows) ([]shared.Flight, error) {
	var out []shared.Flight
	for rows.Next() {
		f, err := scanFlightRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}

func scanFlightRow(scanner interface{ Scan(...interface{}) error }) (*shared.Flight, error) {
	var f shared.Flight
	var transponder sql.NullString
	var ts string
	var inRestricted, allowlisted int
	var trajectoryJSON string

	err := scanner.Scan(
		&f.ID, &transponder, &ts, &f.Latitude, &f.Longitude, &f.Altitude, &f.Groundspeed, &f.Track,
		&f.Classification, &f.AircraftModel, &f.ThreatLevel, &f.ThreatScore,
		&f.DetectionConfidence, &f.SignalStrength, &f.WeatherCondition,
		&inRestricted, &allowlisted, &trajectoryJSON,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan flight: %w", err)
	}

	if transponder.Valid {
		v := transponder.String
		f.TransponderID = &v
	}
	f.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
	f.InRestrictedArea = inRestricted == 1
	f.Allowlisted = allowlisted == 1
	_ = json.Unmarshal([]byte(trajectoryJSON), &f.PredictedTrajectory)

	return &f, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// DeleteFlightsOlderThan removes flights whose timestamp predates cutoff,
// part of the retention sweep (spec.md §4.5, §5). Returns the row count
// removed.
func (s *Store) DeleteFlightsOlderThan(cutoff time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM flights WHERE timestamp < ?`, cutoff.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("failed to delete old flights: %w", err)
	}
	return res.RowsAffected()
}
