// Package vault stores login credentials for autofill in a local SQLite
// database. Lookups are keyed by service name, matched case-insensitively.
package vault

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// ErrNotFound is returned when no credential exists for a service.
var ErrNotFound = errors.New("credential not found")

// Credential is one stored login.
type Credential struct {
	Service  string
	Username string
	Password string
}

// Store is a SQLite-backed credential store. Safe for concurrent use.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

const schema = `
CREATE TABLE IF NOT EXISTS credentials (
	service    TEXT PRIMARY KEY,
	username   TEXT NOT NULL,
	password   TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
`

// Open creates or opens the vault database at path, creating parent
// directories as needed.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating vault dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening vault: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing vault schema: %w", err)
	}
	logger.Debug("vault opened", zap.String("path", path))
	return &Store{db: db, logger: logger}, nil
}

// Put inserts or replaces the credential for a service.
func (s *Store) Put(ctx context.Context, c Credential) error {
	service := normalizeService(c.Service)
	if service == "" {
		return fmt.Errorf("credential needs a service name")
	}
	if c.Username == "" {
		return fmt.Errorf("credential needs a username")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO credentials (service, username, password, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(service) DO UPDATE SET
			username = excluded.username,
			password = excluded.password,
			updated_at = excluded.updated_at`,
		service, c.Username, c.Password, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("storing credential for %q: %w", service, err)
	}
	return nil
}

// Get returns the credential for a service, or ErrNotFound.
func (s *Store) Get(ctx context.Context, service string) (Credential, error) {
	c := Credential{Service: normalizeService(service)}
	err := s.db.QueryRowContext(ctx,
		`SELECT username, password FROM credentials WHERE service = ?`,
		c.Service).Scan(&c.Username, &c.Password)
	if errors.Is(err, sql.ErrNoRows) {
		return Credential{}, fmt.Errorf("%w: %s", ErrNotFound, service)
	}
	if err != nil {
		return Credential{}, fmt.Errorf("loading credential for %q: %w", service, err)
	}
	return c, nil
}

// Delete removes the credential for a service. Deleting a missing service is
// not an error.
func (s *Store) Delete(ctx context.Context, service string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM credentials WHERE service = ?`, normalizeService(service))
	return err
}

// Services lists stored service names, sorted.
func (s *Store) Services(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT service FROM credentials ORDER BY service`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var svc string
		if err := rows.Scan(&svc); err != nil {
			return nil, err
		}
		out = append(out, svc)
	}
	return out, rows.Err()
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func normalizeService(service string) string {
	return strings.ToLower(strings.TrimSpace(service))
}
