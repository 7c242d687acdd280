package store

import (
	"database/sql"
	"time"

	"overwatch/internal/apierr"
	"overwatch/pkg/shared"
)

// AddAllowlistEntry registers a transponder id as a known-friendly track,
// suppressing the "no identity" threat factor and zone-intrusion alerts for
// it (SPEC_FULL.md supplemented feature: allowlist CRUD).
func (s *Store) AddAllowlistEntry(transponderID, description string) (*shared.AllowlistEntry, error) {
	now := time.Now().UTC()
	res, err := s.db.Exec(
		`INSERT INTO allowlist (transponder_id, description, added_at) VALUES (?, ?, ?)`,
		transponderID, description, now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, apierr.Conflict("transponder id is already on the allowlist")
	}
	id, _ := res.LastInsertId()
	return &shared.AllowlistEntry{ID: id, TransponderID: transponderID, Description: description, AddedAt: now}, nil
}

func (s *Store) RemoveAllowlistEntry(transponderID string) error {
	res, err := s.db.Exec(`DELETE FROM allowlist WHERE transponder_id = ?`, transponderID)
	if err != nil {
		return apierr.StoreUnavailable("failed to delete allowlist entry", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apierr.NotFound("allowlist entry not found")
	}
	return nil
}

func (s *Store) ListAllowlist() ([]shared.AllowlistEntry, error) {
	rows, err := s.db.Query(`SELECT id, transponder_id, description, added_at FROM allowlist ORDER BY added_at DESC`)
	if err != nil {
		return nil, apierr.StoreUnavailable("failed to query allowlist", err)
	}
	defer rows.Close()

	var out []shared.AllowlistEntry
	for rows.Next() {
		var e shared.AllowlistEntry
		var addedAt string
		if err := rows.Scan(&e.ID, &e.TransponderID, &e.Description, &addedAt); err != nil {
			return nil, apierr.StoreUnavailable("failed to scan allowlist entry", err)
		}
		e.AddedAt, _ = time.Parse(time.RFC3339Nano, addedAt)
		out = append(out, e)
	}
	return out, rows.Err()
}

// IsAllowlisted is the hot-path lookup the ingest pipeline makes for every
// telemetry sample carrying a transponder id.
func (s *Store) IsAllowlisted(transponderID string) (bool, error) {
	if transponderID == "" {
		return false, nil
	}
	var id int64
	err := s.db.QueryRow(`SELECT id FROM allowlist WHERE transponder_id = ?`, transponderID).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, apierr.StoreUnavailable("failed to query allowlist", err)
	}
	return true, nil
}
