package store

import (
	"database/sql"
	"fmt"
	"time"

	"overwatch/internal/apierr"
	"overwatch/pkg/shared"
)

// UpsertRegion creates a restricted region as a single atomic write
// (spec.md §4.5). The caller (ingest service) has already validated the
// polygon via the Geometry Service before this is called.
func (s *Store) UpsertRegion(name, polygonJSON string) (*shared.Region, error) {
	now := time.Now().UTC()
	res, err := s.db.Exec(
		`INSERT INTO restricted_regions (name, polygon_json, active, created_at) VALUES (?, ?, 1, ?)`,
		name, polygonJSON, now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, apierr.StoreUnavailable("failed to insert region", err)
	}
	id, _ := res.LastInsertId()
	return &shared.Region{ID: id, Name: name, PolygonJSON: polygonJSON, Active: true, CreatedAt: now}, nil
}

// GetActiveRegions returns all regions with active = true. Cheap; callers
// may cache between telemetry events but must invalidate on region CRUD
// (spec.md §4.5, §5).
func (s *Store) GetActiveRegions() ([]shared.Region, error) {
	rows, err := s.db.Query(
		`SELECT id, name, polygon_json, active, created_at FROM restricted_regions WHERE active = 1`,
	)
	if err != nil {
		return nil, apierr.StoreUnavailable("failed to query active regions", err)
	}
	defer rows.Close()
	return scanRegions(rows)
}

// ListRegions returns every region regardless of active state.
func (s *Store) ListRegions() ([]shared.Region, error) {
	rows, err := s.db.Query(
		`SELECT id, name, polygon_json, active, created_at FROM restricted_regions ORDER BY id`,
	)
	if err != nil {
		return nil, apierr.StoreUnavailable("failed to query regions", err)
	}
	defer rows.Close()
	return scanRegions(rows)
}

func scanRegions(rows *sql.Rows) ([]shared.Region, error) {
	var out []shared.Region
	for rows.Next() {
		var r shared.Region
		var active int
		var createdAt string
		if err := rows.Scan(&r.ID, &r.Name, &r.PolygonJSON, &active, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan region: %w", err)
		}
		r.Active = active == 1
		r.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		out = append(out, r)
	}
	return out, rows.Err()
}

// ToggleRegion flips a region's active flag as a single atomic write.
func (s *Store) ToggleRegion(id int64) (*shared.Region, error) {
	res, err := s.db.Exec(`UPDATE restricted_regions SET active = 1 - active WHERE id = ?`, id)
	if err != nil {
		return nil, apierr.StoreUnavailable("failed to toggle region", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, apierr.NotFound("region not found")
	}
	return s.GetRegion(id)
}

// SetRegionActive sets a region's active flag explicitly.
func (s *Store) SetRegionActive(id int64, active bool) (*shared.Region, error) {
	res, err := s.db.Exec(`UPDATE restricted_regions SET active = ? WHERE id = ?`, boolToInt(active), id)
	if err != nil {
		return nil, apierr.StoreUnavailable("failed to update region", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, apierr.NotFound("region not found")
	}
	return s.GetRegion(id)
}

func (s *Store) GetRegion(id int64) (*shared.Region, error) {
	var r shared.Region
	var active int
	var createdAt string
	err := s.db.QueryRow(
		`SELECT id, name, polygon_json, active, created_at FROM restricted_regions WHERE id = ?`, id,
	).Scan(&r.ID, &r.Name, &r.PolygonJSON, &active, &createdAt)
	if err == sql.ErrNoRows {
		return nil, apierr.NotFound("region not found")
	}
	if err != nil {
		return nil, apierr.StoreUnavailable("failed to query region", err)
	}
	r.Active = active == 1
	r.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &r, nil
}

// DeleteRegion is a single atomic write.
func (s *Store) DeleteRegion(id int64) error {
	res, err := s.db.Exec(`DELETE FROM restricted_regions WHERE id = ?`, id)
	if err != nil {
		return apierr.StoreUnavailable("failed to delete region", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apierr.NotFound("region not found")
	}
	return nil
}
