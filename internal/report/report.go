// Package report renders the record set as a static HTML page with one card
// per record, linking each card to its source image.
package report

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/url"
	"strings"

	"catalogscan/internal/catalog"
	"catalogscan/internal/fileutil"
)

//go:embed report.html.tmpl
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "report.html.tmpl"))

type card struct {
	Origin            string
	Status            string
	Title             string
	ImageSrc          string
	Badges            []string
	Tags              string
	ShortDescription  template.HTML
	LongDescription   template.HTML
	Placeholder       bool
	DiagnosticKind    string
	DiagnosticMessage string
	RawResponse       string
	Violations        []catalog.Violation
}

type page struct {
	Title     string
	Total     int
	OK        int
	Review    int
	Malformed int
	Cards     []card
}

// ImageSrc joins base and the item identifier, escaping each path segment.
func ImageSrc(base, origin string) string {
	segments := strings.Split(origin, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	escaped := strings.Join(segments, "/")
	base = strings.TrimRight(base, "/")
	if base == "" {
		return escaped
	}
	return base + "/" + escaped
}

// Render writes the HTML page for records.
func Render(w io.Writer, title, imageBase string, records []catalog.Record) error {
	data := page{Title: title, Total: len(records), Cards: make([]card, 0, len(records))}
	for _, rec := range records {
		c := card{
			Origin:   rec.Origin,
			Status:   string(rec.EffectiveStatus()),
			Title:    rec.Title,
			ImageSrc: ImageSrc(imageBase, rec.Origin),
			Tags:     rec.Tags,
			ShortDescription: sanitizeDescription(rec.ShortDescription),
			LongDescription:  sanitizeDescription(rec.LongDescription),
			Placeholder:      rec.IsPlaceholder(),
		}
		for _, field := range catalog.Fields {
			if value := rec.Get(field); value != "" {
				c.Badges = append(c.Badges, value)
			}
		}
		if rec.Diagnostic != nil {
			c.DiagnosticKind = rec.Diagnostic.Kind
			c.DiagnosticMessage = rec.Diagnostic.Message
			c.RawResponse = rec.Diagnostic.RawResponse
			c.Violations = rec.Diagnostic.Violations
		}
		switch rec.EffectiveStatus() {
		case catalog.StatusOK:
			data.OK++
		case catalog.StatusReview:
			data.Review++
		default:
			data.Malformed++
		}
		data.Cards = append(data.Cards, c)
	}
	if err := pageTemplate.Execute(w, data); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}

// Sink rewrites the HTML report on every commit.
type Sink struct {
	path      string
	title     string
	imageBase string
}

// New returns a report sink. imageBase is the URL prefix under which source
// images are reachable from the report's location.
func New(path, title, imageBase string) *Sink {
	return &Sink{path: path, title: title, imageBase: imageBase}
}

// Name identifies the sink.
func (s *Sink) Name() string { return "report" }

// Write replaces the report file.
func (s *Sink) Write(_ context.Context, records []catalog.Record) error {
	return fileutil.WriteAtomic(s.path, 0o644, func(w io.Writer) error {
		return Render(w, s.title, s.imageBase, records)
	})
}
