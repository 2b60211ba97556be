// Package storage provides SQLite-based persistence for projects, their
// version history, and binary assets.
// Uses the pure-Go modernc.org/sqlite driver to avoid CGO dependencies.
package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/vovakirdan/blockstage/internal/assets"
)

// Store manages the SQLite database connection.
type Store struct {
	db *sql.DB
}

// ProjectRecord is one saved project: its current YAML document plus
// bookkeeping.
type ProjectRecord struct {
	ID        string
	Name      string
	Document  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// VersionRecord is an immutable snapshot of a project at save time,
// including the compiled handler sources so old versions replay without
// regenerating code.
type VersionRecord struct {
	ID        int64
	ProjectID string
	Version   int
	Document  string
	Handlers  map[string]string
	CreatedAt time.Time
}

// AssetInfo describes a stored asset without its payload.
type AssetInfo struct {
	ID        string
	Kind      string
	Name      string
	Size      int
	CreatedAt time.Time
}

// Open creates or opens a SQLite database at the given path.
// It creates the parent directories if needed and runs migrations.
func Open(dbPath string) (*Store, error) {
	// Expand ~ to home directory
	if dbPath != "" && dbPath[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("storage: cannot expand home directory: %w", err)
		}
		dbPath = filepath.Join(home, dbPath[1:])
	}

	// Create parent directories
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: cannot create directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: cannot connect to database: %w", err)
	}

	store := &Store{db: db}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: migration failed: %w", err)
	}

	return store, nil
}

// migrate creates the database schema if it doesn't exist.
func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS projects (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			document TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS project_versions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			project_id TEXT NOT NULL,
			version INTEGER NOT NULL,
			document TEXT NOT NULL,
			handlers TEXT NOT NULL DEFAULT '{}',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(project_id, version)
		);
		CREATE INDEX IF NOT EXISTS idx_versions_project ON project_versions(project_id, version DESC);

		CREATE TABLE IF NOT EXISTS assets (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			data BLOB NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// scanTime converts a scanned DATETIME column. SQLite hands back either
// time.Time or a string depending on how the row was written.
func scanTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		if parsed, err := time.Parse("2006-01-02 15:04:05", t); err == nil {
			return parsed
		}
	}
	return time.Time{}
}

// SaveProject inserts or updates a project by name and returns its record.
// New projects get a generated id; existing ones keep theirs.
func (s *Store) SaveProject(name, document string) (*ProjectRecord, error) {
	if name == "" {
		return nil, fmt.Errorf("storage: project name is required")
	}

	existing, err := s.ProjectByName(name)
	if err != nil {
		return nil, err
	}

	if existing == nil {
		id := uuid.NewString()
		_, err := s.db.Exec(
			"INSERT INTO projects (id, name, document) VALUES (?, ?, ?)",
			id, name, document,
		)
		if err != nil {
			return nil, fmt.Errorf("storage: cannot save project: %w", err)
		}
		return s.ProjectByName(name)
	}

	_, err = s.db.Exec(
		"UPDATE projects SET document = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		document, existing.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot update project: %w", err)
	}
	return s.ProjectByName(name)
}

// ProjectByName retrieves a project by name. Returns nil if none exists.
func (s *Store) ProjectByName(name string) (*ProjectRecord, error) {
	var rec ProjectRecord
	var createdAt, updatedAt any

	err := s.db.QueryRow(
		"SELECT id, name, document, created_at, updated_at FROM projects WHERE name = ?",
		name,
	).Scan(&rec.ID, &rec.Name, &rec.Document, &createdAt, &updatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query project: %w", err)
	}

	rec.CreatedAt = scanTime(createdAt)
	rec.UpdatedAt = scanTime(updatedAt)
	return &rec, nil
}

// ProjectByID retrieves a project by id. Returns nil if none exists.
func (s *Store) ProjectByID(id string) (*ProjectRecord, error) {
	var rec ProjectRecord
	var createdAt, updatedAt any

	err := s.db.QueryRow(
		"SELECT id, name, document, created_at, updated_at FROM projects WHERE id = ?",
		id,
	).Scan(&rec.ID, &rec.Name, &rec.Document, &createdAt, &updatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query project: %w", err)
	}

	rec.CreatedAt = scanTime(createdAt)
	rec.UpdatedAt = scanTime(updatedAt)
	return &rec, nil
}

// ListProjects retrieves all projects, most recently updated first.
func (s *Store) ListProjects() ([]ProjectRecord, error) {
	rows, err := s.db.Query(
		"SELECT id, name, document, created_at, updated_at FROM projects ORDER BY updated_at DESC, name",
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query projects: %w", err)
	}
	defer rows.Close()

	var records []ProjectRecord
	for rows.Next() {
		var rec ProjectRecord
		var createdAt, updatedAt any
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Document, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		rec.CreatedAt = scanTime(createdAt)
		rec.UpdatedAt = scanTime(updatedAt)
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}
	return records, nil
}

// DeleteProject removes a project and all of its versions.
func (s *Store) DeleteProject(id string) error {
	if _, err := s.db.Exec("DELETE FROM project_versions WHERE project_id = ?", id); err != nil {
		return fmt.Errorf("storage: cannot delete versions: %w", err)
	}
	if _, err := s.db.Exec("DELETE FROM projects WHERE id = ?", id); err != nil {
		return fmt.Errorf("storage: cannot delete project: %w", err)
	}
	return nil
}

// SaveVersion snapshots a project document and its compiled handlers under
// the next version number. Returns the assigned version.
func (s *Store) SaveVersion(projectID, document string, handlers map[string]string) (int, error) {
	if handlers == nil {
		handlers = map[string]string{}
	}
	encoded, err := json.Marshal(handlers)
	if err != nil {
		return 0, fmt.Errorf("storage: cannot encode handlers: %w", err)
	}

	var latest int
	err = s.db.QueryRow(
		"SELECT COALESCE(MAX(version), 0) FROM project_versions WHERE project_id = ?",
		projectID,
	).Scan(&latest)
	if err != nil {
		return 0, fmt.Errorf("storage: cannot query latest version: %w", err)
	}

	version := latest + 1
	_, err = s.db.Exec(
		"INSERT INTO project_versions (project_id, version, document, handlers) VALUES (?, ?, ?, ?)",
		projectID, version, document, string(encoded),
	)
	if err != nil {
		return 0, fmt.Errorf("storage: cannot save version: %w", err)
	}
	return version, nil
}

// Versions retrieves every snapshot of a project, newest first.
func (s *Store) Versions(projectID string) ([]VersionRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, project_id, version, document, handlers, created_at
		 FROM project_versions
		 WHERE project_id = ?
		 ORDER BY version DESC`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query versions: %w", err)
	}
	defer rows.Close()

	var records []VersionRecord
	for rows.Next() {
		rec, err := scanVersion(rows.Scan)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}
	return records, nil
}

// Version retrieves one snapshot. Returns nil if none exists.
func (s *Store) Version(projectID string, version int) (*VersionRecord, error) {
	row := s.db.QueryRow(
		`SELECT id, project_id, version, document, handlers, created_at
		 FROM project_versions
		 WHERE project_id = ? AND version = ?`,
		projectID, version,
	)
	rec, err := scanVersion(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return rec, err
}

func scanVersion(scan func(dest ...any) error) (*VersionRecord, error) {
	var rec VersionRecord
	var handlers string
	var createdAt any

	if err := scan(&rec.ID, &rec.ProjectID, &rec.Version, &rec.Document, &handlers, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("storage: cannot scan version: %w", err)
	}

	if err := json.Unmarshal([]byte(handlers), &rec.Handlers); err != nil {
		return nil, fmt.Errorf("storage: cannot decode handlers: %w", err)
	}
	rec.CreatedAt = scanTime(createdAt)
	return &rec, nil
}

// SaveAsset stores an asset payload, replacing any previous one with the
// same id.
func (s *Store) SaveAsset(a *assets.Asset) error {
	if a == nil || a.ID == "" {
		return fmt.Errorf("storage: asset id is required")
	}
	_, err := s.db.Exec(
		"INSERT OR REPLACE INTO assets (id, kind, name, data) VALUES (?, ?, ?, ?)",
		a.ID, a.Kind, a.Name, a.Data,
	)
	if err != nil {
		return fmt.Errorf("storage: cannot save asset: %w", err)
	}
	return nil
}

// GetAsset retrieves an asset with its payload.
func (s *Store) GetAsset(id string) (*assets.Asset, error) {
	var a assets.Asset
	err := s.db.QueryRow(
		"SELECT id, kind, name, data FROM assets WHERE id = ?",
		id,
	).Scan(&a.ID, &a.Kind, &a.Name, &a.Data)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("storage: %w: %s", assets.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query asset: %w", err)
	}
	return &a, nil
}

// ListAssets describes every stored asset without loading payloads.
func (s *Store) ListAssets() ([]AssetInfo, error) {
	rows, err := s.db.Query(
		"SELECT id, kind, name, LENGTH(data), created_at FROM assets ORDER BY id",
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query assets: %w", err)
	}
	defer rows.Close()

	var infos []AssetInfo
	for rows.Next() {
		var info AssetInfo
		var createdAt any
		if err := rows.Scan(&info.ID, &info.Kind, &info.Name, &info.Size, &createdAt); err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		info.CreatedAt = scanTime(createdAt)
		infos = append(infos, info)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}
	return infos, nil
}

// DeleteAsset removes a stored asset.
func (s *Store) DeleteAsset(id string) error {
	if _, err := s.db.Exec("DELETE FROM assets WHERE id = ?", id); err != nil {
		return fmt.Errorf("storage: cannot delete asset: %w", err)
	}
	return nil
}

// Ensure Store can feed the asset library directly.
var _ assets.Source = (*Store)(nil)
