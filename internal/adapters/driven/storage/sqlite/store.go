package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/annotate-cli/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/annotate-cli/internal/core/domain"
	"github.com/custodia-labs/annotate-cli/internal/core/ports/driven"
)

// dbFile is the database file name inside the data directory.
const dbFile = "annotate.db"

// Store is a SQLite-based storage that provides access to the
// template and annotation stores through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.annotate/data/annotate.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".annotate", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, dbFile)

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

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

// TemplateStore returns a TemplateStore interface backed by this store.
func (s *Store) TemplateStore() driven.TemplateStore {
	return &templateStore{store: s}
}

// AnnotationStore returns an AnnotationStore interface backed by this store.
func (s *Store) AnnotationStore() driven.AnnotationStore {
	return &annotationStore{store: s}
}

// migrate runs all pending migrations and records each applied version.
func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_initial.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Template Store ====================

// templateStore implements driven.TemplateStore.
type templateStore struct {
	store *Store
}

var _ driven.TemplateStore = (*templateStore)(nil)

// Load retrieves a template by name.
func (s *templateStore) Load(ctx context.Context, name string) (*domain.Template, error) {
	var body string
	err := s.store.db.QueryRowContext(ctx, "SELECT body FROM templates WHERE name = ?", name).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading template: %w", err)
	}

	var tmpl domain.Template
	if err := json.Unmarshal([]byte(body), &tmpl); err != nil {
		return nil, fmt.Errorf("unmarshalling template: %w", err)
	}
	return &tmpl, nil
}

// Save stores or replaces a template.
func (s *templateStore) Save(ctx context.Context, name string, tmpl *domain.Template) error {
	if tmpl == nil {
		return domain.ErrInvalidInput
	}
	body, err := json.Marshal(tmpl)
	if err != nil {
		return fmt.Errorf("marshalling template: %w", err)
	}

	now := time.Now().UTC()
	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO templates (name, body, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			body = excluded.body,
			updated_at = excluded.updated_at
	`, name, string(body), now, now)
	if err != nil {
		return fmt.Errorf("saving template: %w", err)
	}
	return nil
}

// List returns all template names, sorted.
func (s *templateStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.store.db.QueryContext(ctx, "SELECT name FROM templates ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("querying templates: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning template: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating templates: %w", err)
	}
	return names, nil
}

// Delete removes a template.
func (s *templateStore) Delete(ctx context.Context, name string) error {
	res, err := s.store.db.ExecContext(ctx, "DELETE FROM templates WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("deleting template: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting template: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ==================== Annotation Store ====================

// annotationStore implements driven.AnnotationStore.
type annotationStore struct {
	store *Store
}

var _ driven.AnnotationStore = (*annotationStore)(nil)

// Save records a submission, replacing an earlier one by the same annotator.
func (s *annotationStore) Save(ctx context.Context, templateName string, rec domain.AnnotationRecord) error {
	if rec.DocumentRef == "" {
		return domain.ErrInvalidInput
	}
	payload, err := json.Marshal(rec.Annotation)
	if err != nil {
		return fmt.Errorf("marshalling annotation: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO annotations (template_name, document_ref, annotator, payload, submitted_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(template_name, document_ref, annotator) DO UPDATE SET
			payload = excluded.payload,
			submitted_at = excluded.submitted_at
	`, templateName, rec.DocumentRef, rec.Annotator, string(payload), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("saving annotation: %w", err)
	}
	return nil
}

// List returns the submissions for a template, oldest first.
func (s *annotationStore) List(ctx context.Context, templateName string) ([]domain.AnnotationRecord, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT document_ref, annotator, payload
		FROM annotations WHERE template_name = ?
		ORDER BY submitted_at, id
	`, templateName)
	if err != nil {
		return nil, fmt.Errorf("querying annotations: %w", err)
	}
	defer rows.Close()

	var records []domain.AnnotationRecord //nolint:prealloc // size unknown from query
	for rows.Next() {
		rec, err := scanAnnotation(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating annotations: %w", err)
	}
	return records, nil
}

func scanAnnotation(rows *sql.Rows) (domain.AnnotationRecord, error) {
	var (
		rec     domain.AnnotationRecord
		payload string
	)
	if err := rows.Scan(&rec.DocumentRef, &rec.Annotator, &payload); err != nil {
		return rec, fmt.Errorf("scanning annotation: %w", err)
	}
	rec.Annotation = domain.NewAnnotation()
	if err := json.Unmarshal([]byte(payload), &rec.Annotation); err != nil {
		return rec, fmt.Errorf("unmarshalling annotation: %w", err)
	}
	return rec, nil
}
