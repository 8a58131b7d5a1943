// Package credstore persists the identity provider's refresh credential so a
// CLI session survives across invocations.
//
// One row per profile key. The profile key identifies the identity backend
// (for example the Identity Toolkit API key), so switching projects never
// reuses a credential issued by another one.
package credstore

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// ErrNotFound is returned when no credential is stored for a profile.
var ErrNotFound = errors.New("credential not found")

// Credential is the persisted part of a provider session.
type Credential struct {
	Profile      string
	UID          string
	Email        string
	DisplayName  string
	RefreshToken string
	UpdatedAt    time.Time
}

// Store is a SQLite-backed credential store.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the store at path. The file is readable by the
// owner only.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating credential dir: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening credential store: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db, path: path}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := os.Chmod(path, 0o600); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("restricting credential file: %w", err)
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schemaSQL, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrating credential store: %w", err)
		}
	}
	return nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Save inserts or replaces the credential for c.Profile.
func (s *Store) Save(ctx context.Context, c Credential) error {
	if c.Profile == "" || c.RefreshToken == "" {
		return errors.New("credential needs a profile and a refresh token")
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = time.Now()
	}

	const query = `
INSERT INTO credentials (profile, uid, email, display_name, refresh_token, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(profile) DO UPDATE SET
    uid = excluded.uid,
    email = excluded.email,
    display_name = excluded.display_name,
    refresh_token = excluded.refresh_token,
    updated_at = excluded.updated_at
`
	_, err := s.db.ExecContext(ctx, query,
		c.Profile,
		c.UID,
		c.Email,
		c.DisplayName,
		c.RefreshToken,
		c.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("saving credential: %w", err)
	}
	return nil
}

// Load returns the credential for profile, or ErrNotFound.
func (s *Store) Load(ctx context.Context, profile string) (*Credential, error) {
	const query = `
SELECT profile, uid, email, display_name, refresh_token, updated_at
FROM credentials WHERE profile = ?
`
	var (
		c       Credential
		updated int64
	)
	err := s.db.QueryRowContext(ctx, query, profile).Scan(
		&c.Profile,
		&c.UID,
		&c.Email,
		&c.DisplayName,
		&c.RefreshToken,
		&updated,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("loading credential: %w", err)
	}
	c.UpdatedAt = time.UnixMilli(updated)
	return &c, nil
}

// Delete removes the credential for profile. Deleting a missing row is not
// an error.
func (s *Store) Delete(ctx context.Context, profile string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM credentials WHERE profile = ?`, profile); err != nil {
		return fmt.Errorf("deleting credential: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
