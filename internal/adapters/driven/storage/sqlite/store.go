package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/workspace-spider/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/workspace-spider/internal/core/domain"
	"github.com/custodia-labs/workspace-spider/internal/core/ports/driven"
)

// jsonNull is the JSON representation of null.
const jsonNull = "null"

var _ driven.SessionStore = (*Store)(nil)

// Store persists scan sessions and their discovery graphs in SQLite.
// A session's artifacts, edges and failures are child rows keyed by the
// session ID and are replaced wholesale on save.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.spider/data/spider.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".spider", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "spider.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort and run migrations
	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		// Read and execute migration
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

// SaveSession stores a finished session, replacing any previous session
// with the same ID. The whole graph is written in one transaction so a
// half-saved session can never be observed.
func (s *Store) SaveSession(ctx context.Context, session *domain.ScanSession) error {
	if session == nil || session.ID == "" {
		return fmt.Errorf("%w: session has no id", domain.ErrInvalidInput)
	}

	configJSON, err := json.Marshal(session.Config)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	statsJSON, err := json.Marshal(session.Stats)
	if err != nil {
		return fmt.Errorf("marshalling stats: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	// Replace semantics: clear any previous rows for this ID first.
	for _, table := range []string{"artifacts", "edges", "failures"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE session_id = ?", session.ID); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", session.ID); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions (id, status, started_at, ended_at, config, stats, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, session.ID, string(session.Status), session.StartedAt.UTC(), nullTime(session.EndedAt),
		string(configJSON), string(statsJSON), session.Error)
	if err != nil {
		return fmt.Errorf("saving session: %w", err)
	}

	if err := insertArtifacts(ctx, tx, session.ID, session.Artifacts); err != nil {
		return err
	}
	if err := insertEdges(ctx, tx, session.ID, session.Edges); err != nil {
		return err
	}
	if err := insertFailures(ctx, tx, session.ID, session.Failures); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func insertArtifacts(ctx context.Context, tx *sql.Tx, sessionID string, artifacts []domain.Artifact) error {
	if len(artifacts) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO artifacts (session_id, system, type, artifact_id, url, title, fetched, tombstoned, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing artifact statement: %w", err)
	}
	defer stmt.Close()

	for i := range artifacts {
		a := &artifacts[i]
		metadataJSON, err := json.Marshal(a.Metadata)
		if err != nil {
			return fmt.Errorf("marshalling metadata of %s: %w", a.Key, err)
		}

		if _, err := stmt.ExecContext(ctx, sessionID,
			string(a.Key.System), string(a.Key.Type), a.Key.ID,
			a.URL, a.Title, a.Fetched, a.Tombstoned, string(metadataJSON)); err != nil {
			return fmt.Errorf("saving artifact %s: %w", a.Key, err)
		}
	}
	return nil
}

func insertEdges(ctx context.Context, tx *sql.Tx, sessionID string, edges []domain.Edge) error {
	if len(edges) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO edges (session_id, from_system, from_type, from_id, to_system, to_type, to_id, relation)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing edge statement: %w", err)
	}
	defer stmt.Close()

	for _, e := range edges {
		if _, err := stmt.ExecContext(ctx, sessionID,
			string(e.From.System), string(e.From.Type), e.From.ID,
			string(e.To.System), string(e.To.Type), e.To.ID,
			string(e.Relation)); err != nil {
			return fmt.Errorf("saving edge %s -> %s: %w", e.From, e.To, err)
		}
	}
	return nil
}

func insertFailures(ctx context.Context, tx *sql.Tx, sessionID string, failures []domain.Failure) error {
	if len(failures) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO failures (session_id, system, type, artifact_id, kind, reason, at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing failure statement: %w", err)
	}
	defer stmt.Close()

	for _, f := range failures {
		if _, err := stmt.ExecContext(ctx, sessionID,
			string(f.Key.System), string(f.Key.Type), f.Key.ID,
			string(f.Kind), f.Reason, f.At.UTC()); err != nil {
			return fmt.Errorf("saving failure of %s: %w", f.Key, err)
		}
	}
	return nil
}

// GetSession loads a stored session in full.
func (s *Store) GetSession(ctx context.Context, id string) (*domain.ScanSession, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, status, started_at, ended_at, config, stats, error
		FROM sessions WHERE id = ?
	`, id)

	var session domain.ScanSession
	var status, configJSON, statsJSON string
	var endedAt sql.NullTime
	if err := row.Scan(&session.ID, &status, &session.StartedAt, &endedAt,
		&configJSON, &statsJSON, &session.Error); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("session %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("scanning session: %w", err)
	}

	session.Status = domain.SessionStatus(status)
	if endedAt.Valid {
		session.EndedAt = endedAt.Time
	}
	if err := json.Unmarshal([]byte(configJSON), &session.Config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := json.Unmarshal([]byte(statsJSON), &session.Stats); err != nil {
		return nil, fmt.Errorf("unmarshaling stats: %w", err)
	}

	var err error
	if session.Artifacts, err = s.loadArtifacts(ctx, id); err != nil {
		return nil, err
	}
	if session.Edges, err = s.loadEdges(ctx, id); err != nil {
		return nil, err
	}
	if session.Failures, err = s.loadFailures(ctx, id); err != nil {
		return nil, err
	}

	return &session, nil
}

func (s *Store) loadArtifacts(ctx context.Context, sessionID string) ([]domain.Artifact, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT system, type, artifact_id, url, title, fetched, tombstoned, metadata
		FROM artifacts WHERE session_id = ?
		ORDER BY system, type, artifact_id
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []domain.Artifact //nolint:prealloc // size unknown from query
	for rows.Next() {
		var a domain.Artifact
		var system, artifactType string
		var metadataJSON sql.NullString
		if err := rows.Scan(&system, &artifactType, &a.Key.ID,
			&a.URL, &a.Title, &a.Fetched, &a.Tombstoned, &metadataJSON); err != nil {
			return nil, fmt.Errorf("scanning artifact: %w", err)
		}
		a.Key.System = domain.SourceSystem(system)
		a.Key.Type = domain.ArtifactType(artifactType)

		if metadataJSON.Valid && metadataJSON.String != "" && metadataJSON.String != jsonNull {
			if err := json.Unmarshal([]byte(metadataJSON.String), &a.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshaling metadata of %s: %w", a.Key, err)
			}
		}
		artifacts = append(artifacts, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating artifacts: %w", err)
	}
	return artifacts, nil
}

func (s *Store) loadEdges(ctx context.Context, sessionID string) ([]domain.Edge, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT from_system, from_type, from_id, to_system, to_type, to_id, relation
		FROM edges WHERE session_id = ?
		ORDER BY from_system, from_type, from_id, to_system, to_type, to_id, relation
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying edges: %w", err)
	}
	defer rows.Close()

	var edges []domain.Edge //nolint:prealloc // size unknown from query
	for rows.Next() {
		var e domain.Edge
		var fromSystem, fromType, toSystem, toType, relation string
		if err := rows.Scan(&fromSystem, &fromType, &e.From.ID,
			&toSystem, &toType, &e.To.ID, &relation); err != nil {
			return nil, fmt.Errorf("scanning edge: %w", err)
		}
		e.From.System = domain.SourceSystem(fromSystem)
		e.From.Type = domain.ArtifactType(fromType)
		e.To.System = domain.SourceSystem(toSystem)
		e.To.Type = domain.ArtifactType(toType)
		e.Relation = domain.Relation(relation)
		edges = append(edges, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating edges: %w", err)
	}
	return edges, nil
}

func (s *Store) loadFailures(ctx context.Context, sessionID string) ([]domain.Failure, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT system, type, artifact_id, kind, reason, at
		FROM failures WHERE session_id = ?
		ORDER BY at, artifact_id
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying failures: %w", err)
	}
	defer rows.Close()

	var failures []domain.Failure //nolint:prealloc // size unknown from query
	for rows.Next() {
		var f domain.Failure
		var system, artifactType, kind string
		if err := rows.Scan(&system, &artifactType, &f.Key.ID, &kind, &f.Reason, &f.At); err != nil {
			return nil, fmt.Errorf("scanning failure: %w", err)
		}
		f.Key.System = domain.SourceSystem(system)
		f.Key.Type = domain.ArtifactType(artifactType)
		f.Kind = domain.FailureKind(kind)
		failures = append(failures, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating failures: %w", err)
	}
	return failures, nil
}

// ListSessions returns summaries of stored sessions, newest first.
func (s *Store) ListSessions(ctx context.Context) ([]driven.SessionSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, status, started_at, ended_at, stats
		FROM sessions
		ORDER BY started_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var summaries []driven.SessionSummary //nolint:prealloc // size unknown from query
	for rows.Next() {
		var summary driven.SessionSummary
		var status, statsJSON string
		var endedAt sql.NullTime
		if err := rows.Scan(&summary.ID, &status, &summary.StartedAt, &endedAt, &statsJSON); err != nil {
			return nil, fmt.Errorf("scanning session summary: %w", err)
		}
		summary.Status = domain.SessionStatus(status)
		if endedAt.Valid {
			summary.EndedAt = endedAt.Time
		}
		if err := json.Unmarshal([]byte(statsJSON), &summary.Stats); err != nil {
			return nil, fmt.Errorf("unmarshaling stats: %w", err)
		}
		summaries = append(summaries, summary)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sessions: %w", err)
	}
	return summaries, nil
}

// DeleteSession removes a stored session and its graph.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, table := range []string{"artifacts", "edges", "failures"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE session_id = ?", id); err != nil {
			return fmt.Errorf("deleting %s: %w", table, err)
		}
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("session %s: %w", id, domain.ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// nullTime maps the zero time to NULL so open-ended sessions do not
// store a bogus timestamp.
func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}
