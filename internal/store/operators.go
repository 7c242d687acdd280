package store

import (
	"database/sql"
	"time"

	"overwatch/internal/apierr"
	"overwatch/pkg/shared"
)

// CreateOperator inserts a new operator account. credential is the bcrypt
// hash, never the plaintext password (spec.md §4.7, hashed by internal/auth
// before this is called).
func (s *Store) CreateOperator(email, role, credentialHash string) (*shared.Operator, error) {
	now := time.Now().UTC()
	res, err := s.db.Exec(
		`INSERT INTO operators (email, role, credential, created_at) VALUES (?, ?, ?, ?)`,
		email, role, credentialHash, now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, apierr.Conflict("an operator with this email already exists")
	}
	id, _ := res.LastInsertId()
	return &shared.Operator{ID: id, Email: email, Role: role, CreatedAt: now}, nil
}

// operatorRow mirrors the operators table including the credential hash,
// which never leaves this package.
type operatorRow struct {
	shared.Operator
	CredentialHash string
}

func (s *Store) getOperatorRowByEmail(email string) (*operatorRow, error) {
	var row operatorRow
	var createdAt string
	err := s.db.QueryRow(
		`SELECT id, email, role, credential, created_at FROM operators WHERE email = ?`, email,
	).Scan(&row.ID, &row.Email, &row.Role, &row.CredentialHash, &createdAt)
	if err == sql.ErrNoRows {
		return nil, apierr.Unauthenticated("invalid credentials")
	}
	if err != nil {
		return nil, apierr.StoreUnavailable("failed to query operator", err)
	}
	row.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &row, nil
}

// GetOperatorByEmail returns the operator's credential hash alongside the
// public record, for internal/auth to verify against.
func (s *Store) GetOperatorByEmail(email string) (*shared.Operator, string, error) {
	row, err := s.getOperatorRowByEmail(email)
	if err != nil {
		return nil, "", err
	}
	return &row.Operator, row.CredentialHash, nil
}

func (s *Store) GetOperator(id int64) (*shared.Operator, error) {
	var o shared.Operator
	var createdAt string
	err := s.db.QueryRow(
		`SELECT id, email, role, created_at FROM operators WHERE id = ?`, id,
	).Scan(&o.ID, &o.Email, &o.Role, &createdAt)
	if err == sql.ErrNoRows {
		return nil, apierr.NotFound("operator not found")
	}
	if err != nil {
		return nil, apierr.StoreUnavailable("failed to query operator", err)
	}
	o.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &o, nil
}

// CountOperators is used at startup to decide whether to bootstrap the
// initial admin account (spec.md §4.7, "Bootstrap").
func (s *Store) CountOperators() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM operators`).Scan(&n); err != nil {
		return 0, apierr.StoreUnavailable("failed to count operators", err)
	}
	return n, nil
}
