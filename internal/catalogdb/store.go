package catalogdb

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"catalogscan/internal/catalog"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped whenever schema.sql changes. The mirror holds no
// unique data, so a mismatched database can simply be deleted.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database was created by another schema version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// Store is the SQLite mirror.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens the mirror database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Name identifies the sink.
func (s *Store) Name() string { return "sqlite" }

// Path returns the database path.
func (s *Store) Path() string { return s.path }

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to rebuild it)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// Write replaces the mirrored records in a single transaction.
func (s *Store) Write(ctx context.Context, records []catalog.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM records"); err != nil {
		return fmt.Errorf("clear records: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO records (
        position, origin, status, title, category, style, material, color, gender,
        short_description, long_description, tags, duration_seconds, model,
        extra_json, diagnostic_json
    ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, rec := range records {
		extra, err := nullableJSON(rec.Extra, len(rec.Extra) == 0)
		if err != nil {
			return fmt.Errorf("encode extra for %s: %w", rec.Origin, err)
		}
		diag, err := nullableJSON(rec.Diagnostic, rec.Diagnostic == nil)
		if err != nil {
			return fmt.Errorf("encode diagnostic for %s: %w", rec.Origin, err)
		}
		if _, err := stmt.ExecContext(ctx,
			i,
			rec.Origin,
			string(rec.EffectiveStatus()),
			rec.Title,
			rec.Category,
			rec.Style,
			rec.Material,
			rec.Color,
			rec.Gender,
			rec.ShortDescription,
			rec.LongDescription,
			rec.Tags,
			rec.DurationSeconds,
			nullableString(rec.Model),
			extra,
			diag,
		); err != nil {
			return fmt.Errorf("insert %s: %w", rec.Origin, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit records: %w", err)
	}
	return nil
}

// Records reads the mirror back in commit order.
func (s *Store) Records(ctx context.Context) ([]catalog.Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT
        origin, status, title, category, style, material, color, gender,
        short_description, long_description, tags, duration_seconds, model,
        extra_json, diagnostic_json
    FROM records ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []catalog.Record
	for rows.Next() {
		var (
			rec          catalog.Record
			status       string
			model, extra sql.NullString
			diag         sql.NullString
		)
		if err := rows.Scan(
			&rec.Origin, &status, &rec.Title, &rec.Category, &rec.Style, &rec.Material,
			&rec.Color, &rec.Gender, &rec.ShortDescription, &rec.LongDescription, &rec.Tags,
			&rec.DurationSeconds, &model, &extra, &diag,
		); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec.Status = catalog.Status(status)
		rec.Model = model.String
		if extra.Valid {
			if err := json.Unmarshal([]byte(extra.String), &rec.Extra); err != nil {
				return nil, fmt.Errorf("decode extra for %s: %w", rec.Origin, err)
			}
		}
		if diag.Valid {
			rec.Diagnostic = &catalog.Diagnostic{}
			if err := json.Unmarshal([]byte(diag.String), rec.Diagnostic); err != nil {
				return nil, fmt.Errorf("decode diagnostic for %s: %w", rec.Origin, err)
			}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func nullableJSON(value any, empty bool) (any, error) {
	if empty {
		return nil, nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
