// Package export writes the record set as a table: one row per record, a
// fixed leading column order, and trailing columns for every extra key seen
// in any record. Records lacking a column get an empty cell.
package export

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"catalogscan/internal/catalog"
	"catalogscan/internal/config"
	"catalogscan/internal/fileutil"
)

// FixedColumns are always present, in this order.
var FixedColumns = []string{
	"origin",
	"title",
	"category",
	"style",
	"material",
	"color",
	"gender",
	"duration_seconds",
	"tags",
	"short_description",
	"long_description",
	"status",
	"model",
	"diagnostic_kind",
	"raw_response",
}

// layout maps every extra key of a record set to a distinct column name.
type layout struct {
	columns []string
	extra   map[string]string
}

// newLayout keeps extra keys as column names unless they collide with a fixed
// column. Colliding keys get an "extra_" prefix, plus a numeric suffix when
// that name is taken too, so no two keys share a column.
func newLayout(records []catalog.Record) layout {
	keys := make(map[string]struct{})
	for _, rec := range records {
		for key := range rec.Extra {
			keys[key] = struct{}{}
		}
	}
	sorted := make([]string, 0, len(keys))
	for key := range keys {
		sorted = append(sorted, key)
	}
	sort.Strings(sorted)

	used := make(map[string]bool, len(FixedColumns)+len(sorted))
	for _, col := range FixedColumns {
		used[col] = true
	}
	extra := make(map[string]string, len(sorted))
	for _, key := range sorted {
		if !used[key] {
			extra[key] = key
		}
	}
	for key := range extra {
		used[key] = true
	}
	for _, key := range sorted {
		if _, ok := extra[key]; ok {
			continue
		}
		col := "extra_" + key
		for n := 2; used[col]; n++ {
			col = fmt.Sprintf("extra_%s_%d", key, n)
		}
		used[col] = true
		extra[key] = col
	}

	cols := make([]string, 0, len(extra))
	for _, col := range extra {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return layout{columns: append(append([]string(nil), FixedColumns...), cols...), extra: extra}
}

// Columns returns the fixed columns followed by the sorted extra columns.
func Columns(records []catalog.Record) []string {
	return newLayout(records).columns
}

// cell is one table value; number is set for numeric columns.
type cell struct {
	text   string
	number *float64
}

func (l layout) row(rec catalog.Record) []cell {
	var kind, raw string
	if rec.Diagnostic != nil {
		kind = rec.Diagnostic.Kind
		raw = rec.Diagnostic.RawResponse
	}
	duration := rec.DurationSeconds
	values := map[string]cell{
		"origin":            {text: rec.Origin},
		"title":             {text: rec.Title},
		"category":          {text: rec.Category},
		"style":             {text: rec.Style},
		"material":          {text: rec.Material},
		"color":             {text: rec.Color},
		"gender":            {text: rec.Gender},
		"duration_seconds":  {text: strconv.FormatFloat(duration, 'f', 2, 64), number: &duration},
		"tags":              {text: rec.Tags},
		"short_description": {text: rec.ShortDescription},
		"long_description":  {text: rec.LongDescription},
		"status":            {text: string(rec.EffectiveStatus())},
		"model":             {text: rec.Model},
		"diagnostic_kind":   {text: kind},
		"raw_response":      {text: raw},
	}
	for key, value := range rec.Extra {
		values[l.extra[key]] = cell{text: value}
	}
	out := make([]cell, len(l.columns))
	for i, col := range l.columns {
		out[i] = values[col]
	}
	return out
}

// Table renders records as string rows under the returned header.
func Table(records []catalog.Record) ([]string, [][]string) {
	l := newLayout(records)
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		cells := l.row(rec)
		values := make([]string, len(cells))
		for i, c := range cells {
			values[i] = c.text
		}
		rows = append(rows, values)
	}
	return l.columns, rows
}

// Sink rewrites the export file on every commit.
type Sink struct {
	path   string
	format string
}

// New returns an export sink. An empty format is derived from the path's
// extension.
func New(path, format string) (*Sink, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = FormatFromPath(path)
	}
	switch format {
	case config.ExportXLSX, config.ExportCSV:
	default:
		return nil, fmt.Errorf("export: unsupported format %q", format)
	}
	return &Sink{path: path, format: format}, nil
}

// FormatFromPath maps a file extension to an export format, defaulting to xlsx.
func FormatFromPath(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return config.ExportCSV
	}
	return config.ExportXLSX
}

// Name identifies the sink.
func (s *Sink) Name() string { return "export" }

// Path returns the export file path.
func (s *Sink) Path() string { return s.path }

// Format returns the export format.
func (s *Sink) Format() string { return s.format }

// Write replaces the export file.
func (s *Sink) Write(_ context.Context, records []catalog.Record) error {
	return fileutil.WriteAtomic(s.path, 0o644, func(w io.Writer) error {
		if s.format == config.ExportCSV {
			return WriteCSV(w, records)
		}
		return WriteXLSX(w, records)
	})
}
