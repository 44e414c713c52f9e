// Package store persists the record set as a JSON document: the durable
// source of truth reloaded on every start.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"catalogscan/internal/catalog"
	"catalogscan/internal/fileutil"
	"catalogscan/internal/logging"
)

// Store reads and atomically rewrites the JSON record file.
type Store struct {
	path   string
	logger *slog.Logger
}

// New returns a store backed by path.
func New(path string, logger *slog.Logger) *Store {
	return &Store{path: path, logger: logging.NewComponentLogger(logger, "store")}
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Name identifies the store as a sink.
func (s *Store) Name() string { return "store" }

// Load reads the persisted record set. A missing or empty file yields an
// empty set. A file that cannot be decoded is an error: starting from empty
// would overwrite prior work on the next commit.
func (s *Store) Load() (*catalog.RecordSet, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		set, _ := catalog.NewRecordSet(nil)
		return set, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read store: %w", err)
	}
	records, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("store %s: %w", s.path, err)
	}
	set, dropped := catalog.NewRecordSet(records)
	for _, origin := range dropped {
		logging.WarnWithContext(s.logger, "duplicate record in store; keeping first", "store_duplicate_origin",
			logging.String(logging.FieldItemID, origin),
			logging.String(logging.FieldErrorHint, "remove the duplicate entry from the store file"),
			logging.String(logging.FieldImpact, "later duplicate ignored and dropped on next commit"),
		)
	}
	return set, nil
}

// Write replaces the store file with records.
func (s *Store) Write(_ context.Context, records []catalog.Record) error {
	return fileutil.WriteAtomic(s.path, 0o644, func(w io.Writer) error {
		return Encode(w, records)
	})
}

// Encode writes records as an indented JSON array. HTML is not escaped so
// description markup stays readable.
func Encode(w io.Writer, records []catalog.Record) error {
	if records == nil {
		records = []catalog.Record{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("encode records: %w", err)
	}
	return nil
}

// Decode reads a JSON array of records. Blank input decodes to no records.
func Decode(r io.Reader) ([]catalog.Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var records []catalog.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	for i, rec := range records {
		if rec.Origin == "" {
			return nil, fmt.Errorf("decode records: entry %d has no origin", i)
		}
	}
	return records, nil
}
