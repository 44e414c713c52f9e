// Package scan enumerates the work items of a run: image files below a
// source root, identified by their NFC-normalized POSIX relative path.
package scan

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"

	"catalogscan/internal/logging"
)

// Item is one source image awaiting metadata extraction.
type Item struct {
	// ID is the relative path from the scan root using forward slashes.
	ID string
	// Path is the absolute host path used to read the image.
	Path string
}

// Result is the outcome of one enumeration.
type Result struct {
	Items []Item
	// Created reports that the root did not exist and was created empty.
	Created bool
}

// Scanner walks a source directory for files with accepted extensions.
type Scanner struct {
	Root       string
	Extensions []string
	Logger     *slog.Logger
}

// Scan returns the sorted, duplicate-free list of items below Root.
func (s *Scanner) Scan() (Result, error) {
	logger := s.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	root, err := filepath.Abs(s.Root)
	if err != nil {
		return Result{}, fmt.Errorf("resolve source dir: %w", err)
	}

	info, err := os.Stat(root)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := os.MkdirAll(root, 0o755); err != nil {
			return Result{}, fmt.Errorf("create source dir: %w", err)
		}
		return Result{Created: true}, nil
	case err != nil:
		return Result{}, fmt.Errorf("stat source dir: %w", err)
	case !info.IsDir():
		return Result{}, fmt.Errorf("source %s is not a directory", root)
	}

	accepted := make(map[string]struct{}, len(s.Extensions))
	for _, ext := range s.Extensions {
		accepted[strings.ToLower(ext)] = struct{}{}
	}

	seen := make(map[string]string)
	var items []Item
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			logger.Warn("skipping unreadable entry",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldEventType, "scan_entry_unreadable"),
			)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if path == root {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if _, ok := accepted[strings.ToLower(filepath.Ext(d.Name()))]; !ok {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		id := Identifier(rel)
		if prev, ok := seen[id]; ok {
			logger.Warn("duplicate item identifier; keeping first path",
				logging.String(logging.FieldItemID, id),
				logging.String("kept", prev),
				logging.String("ignored", path),
				logging.String(logging.FieldEventType, "scan_duplicate_id"),
			)
			return nil
		}
		seen[id] = path
		items = append(items, Item{ID: id, Path: path})
		return nil
	})
	if walkErr != nil {
		return Result{}, fmt.Errorf("walk source dir: %w", walkErr)
	}

	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return Result{Items: items}, nil
}

// Identifier converts a host relative path into the stable item identifier:
// forward slashes, Unicode NFC.
func Identifier(rel string) string {
	return norm.NFC.String(filepath.ToSlash(rel))
}
