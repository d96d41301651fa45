// Package artifacts persists the documents produced by apply.
//
// Artifacts are immutable blobs keyed by a unique download name. They live
// in a single SQLite table so that a restart of the process keeps
// download links working until the retention sweep removes them.
package artifacts

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/HendryAvila/docsmith/internal/docerr"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// ErrExists is returned by Put when the name is already taken.
var ErrExists = errors.New("artifact already exists")

// ─── Types ───────────────────────────────────────────────────────────────────

// Info describes a stored artifact without its content.
type Info struct {
	Name       string    `json:"name"`
	DocumentID string    `json:"document_id"`
	Filename   string    `json:"filename"`
	MIMEType   string    `json:"mime_type"`
	Size       int64     `json:"size"`
	SHA256     string    `json:"sha256"`
	CreatedAt  time.Time `json:"created_at"`
}

// Artifact is a stored file and its content.
type Artifact struct {
	Info
	Content []byte `json:"-"`
}

// ─── Config ──────────────────────────────────────────────────────────────────

// Config holds artifact store configuration.
type Config struct {
	DataDir string
	// Retention is how long an artifact stays downloadable.
	Retention time.Duration
}

// DefaultConfig returns the default configuration for the artifact store.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{
		DataDir:   filepath.Join(home, ".docsmith"),
		Retention: 24 * time.Hour,
	}
}

// ─── Store ───────────────────────────────────────────────────────────────────

// Store is the SQLite-backed artifact file store.
type Store struct {
	db  *sql.DB
	cfg Config
	now func() time.Time
}

// New creates the data directory if needed, opens SQLite in WAL mode and
// runs migrations.
func New(cfg Config) (*Store, error) {
	if cfg.Retention <= 0 {
		cfg.Retention = DefaultConfig().Retention
	}
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, fmt.Errorf("artifacts: create data dir: %w", err)
	}

	dbPath := filepath.Join(cfg.DataDir, "artifacts.db")
	db, err := openDB("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("artifacts: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("artifacts: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, cfg: cfg, now: func() time.Time { return time.Now().UTC() }}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("artifacts: migration: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Retention returns the configured retention window.
func (s *Store) Retention() time.Duration {
	return s.cfg.Retention
}

// ─── Migrations ──────────────────────────────────────────────────────────────

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS artifacts (
			name        TEXT    PRIMARY KEY,
			document_id TEXT    NOT NULL,
			filename    TEXT    NOT NULL,
			mime_type   TEXT    NOT NULL,
			size        INTEGER NOT NULL,
			sha256      TEXT    NOT NULL,
			content     BLOB    NOT NULL,
			created_at  INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_artifacts_document ON artifacts(document_id);
		CREATE INDEX IF NOT EXISTS idx_artifacts_created  ON artifacts(created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// ─── Artifacts ───────────────────────────────────────────────────────────────

// Put stores content under name. Artifacts are immutable: an existing name
// fails with ErrExists.
func (s *Store) Put(ctx context.Context, name, documentID, filename, mimeType string, content []byte) (Info, error) {
	if strings.TrimSpace(name) == "" {
		return Info{}, fmt.Errorf("artifacts: empty name")
	}
	sum := sha256.Sum256(content)
	info := Info{
		Name:       name,
		DocumentID: documentID,
		Filename:   filename,
		MIMEType:   mimeType,
		Size:       int64(len(content)),
		SHA256:     hex.EncodeToString(sum[:]),
		CreatedAt:  s.now(),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO artifacts (name, document_id, filename, mime_type, size, sha256, content, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		info.Name, info.DocumentID, info.Filename, info.MIMEType, info.Size, info.SHA256, content,
		info.CreatedAt.UnixNano(),
	)
	if isUniqueViolation(err) {
		return Info{}, fmt.Errorf("artifacts: %q: %w", name, ErrExists)
	}
	if err != nil {
		return Info{}, fmt.Errorf("artifacts: insert %q: %w", name, err)
	}
	return info, nil
}

// Get returns the artifact stored under name.
func (s *Store) Get(ctx context.Context, name string) (Artifact, error) {
	var (
		a  Artifact
		ts int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT name, document_id, filename, mime_type, size, sha256, content, created_at
		 FROM artifacts WHERE name = ?`, name,
	).Scan(&a.Name, &a.DocumentID, &a.Filename, &a.MIMEType, &a.Size, &a.SHA256, &a.Content, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return Artifact{}, docerr.NotFound("artifact", name)
	}
	if err != nil {
		return Artifact{}, fmt.Errorf("artifacts: get %q: %w", name, err)
	}
	a.CreatedAt = time.Unix(0, ts).UTC()
	return a, nil
}

// List returns the artifacts of one document, oldest first. An empty
// documentID lists everything.
func (s *Store) List(ctx context.Context, documentID string) ([]Info, error) {
	query := `SELECT name, document_id, filename, mime_type, size, sha256, created_at FROM artifacts`
	var args []any
	if documentID != "" {
		query += ` WHERE document_id = ?`
		args = append(args, documentID)
	}
	query += ` ORDER BY created_at ASC, name ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("artifacts: list: %w", err)
	}
	defer rows.Close()

	out := []Info{}
	for rows.Next() {
		var (
			i  Info
			ts int64
		)
		if err := rows.Scan(&i.Name, &i.DocumentID, &i.Filename, &i.MIMEType, &i.Size, &i.SHA256, &ts); err != nil {
			return nil, fmt.Errorf("artifacts: scan: %w", err)
		}
		i.CreatedAt = time.Unix(0, ts).UTC()
		out = append(out, i)
	}
	return out, rows.Err()
}

// Delete removes one artifact. Deleting a missing name is not an error.
func (s *Store) Delete(ctx context.Context, name string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM artifacts WHERE name = ?`, name); err != nil {
		return fmt.Errorf("artifacts: delete %q: %w", name, err)
	}
	return nil
}

// Sweep deletes every artifact created before the cutoff and returns how
// many were removed.
func (s *Store) Sweep(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM artifacts WHERE created_at < ?`, before.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("artifacts: sweep: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// isUniqueViolation checks if an error is a SQLite UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
