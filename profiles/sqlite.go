// Package profiles reads consultant profile records from the application's
// SQLite database.
package profiles

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jrsteele09/go-auth-session/identity"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS consultants (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	name    TEXT NOT NULL,
	email   TEXT NOT NULL DEFAULT '',
	phone   TEXT NOT NULL DEFAULT '',
	active  INTEGER NOT NULL DEFAULT 1,
	user_id TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_consultants_user_id ON consultants(user_id);
`

const findActiveByUserID = `
SELECT id, name, email, phone, active, user_id
FROM consultants
WHERE user_id = ? AND active = 1
ORDER BY id
LIMIT 1`

// SQLiteRepo implements identity.ProfileRepo on a consultants table.
type SQLiteRepo struct {
	db *sql.DB
}

var _ identity.ProfileRepo = (*SQLiteRepo)(nil)

// Open opens (or creates) the database at path. Use ":memory:" for tests.
func Open(path string) (*SQLiteRepo, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("[profiles.Open] %w", err)
	}
	// A single connection keeps ":memory:" databases alive and avoids
	// SQLITE_BUSY between writers.
	db.SetMaxOpenConns(1)
	return &SQLiteRepo{db: db}, nil
}

// NewSQLiteRepo wraps an existing handle.
func NewSQLiteRepo(db *sql.DB) *SQLiteRepo {
	return &SQLiteRepo{db: db}
}

// Migrate creates the consultants table if it does not exist.
func (r *SQLiteRepo) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("[SQLiteRepo.Migrate] %w", err)
	}
	return nil
}

// FindActiveProfileByPrincipalID returns (nil, nil) when there is no active
// record for the principal.
func (r *SQLiteRepo) FindActiveProfileByPrincipalID(ctx context.Context, principalID string) (*identity.ProfileRecord, error) {
	if principalID == "" {
		return nil, errors.New("[SQLiteRepo.FindActiveProfileByPrincipalID] principal id is required")
	}
	var p identity.ProfileRecord
	err := r.db.QueryRowContext(ctx, findActiveByUserID, principalID).
		Scan(&p.ID, &p.Name, &p.Email, &p.Phone, &p.Active, &p.PrincipalID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("[SQLiteRepo.FindActiveProfileByPrincipalID] %w", err)
	}
	return &p, nil
}

// Upsert inserts p, or updates it when p.ID is set. The assigned id is
// written back to p.
func (r *SQLiteRepo) Upsert(ctx context.Context, p *identity.ProfileRecord) error {
	if p.PrincipalID == "" {
		return errors.New("[SQLiteRepo.Upsert] principal id is required")
	}
	if p.ID != 0 {
		_, err := r.db.ExecContext(ctx,
			`UPDATE consultants SET name = ?, email = ?, phone = ?, active = ?, user_id = ? WHERE id = ?`,
			p.Name, p.Email, p.Phone, p.Active, p.PrincipalID, p.ID)
		if err != nil {
			return fmt.Errorf("[SQLiteRepo.Upsert] update: %w", err)
		}
		return nil
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO consultants (name, email, phone, active, user_id) VALUES (?, ?, ?, ?, ?)`,
		p.Name, p.Email, p.Phone, p.Active, p.PrincipalID)
	if err != nil {
		return fmt.Errorf("[SQLiteRepo.Upsert] insert: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("[SQLiteRepo.Upsert] last insert id: %w", err)
	}
	p.ID = id
	return nil
}

func (r *SQLiteRepo) Close() error {
	return r.db.Close()
}
