package schema

import (
	"errors"

	"catalogscan/internal/catalog"
)

// Placeholder builds the record committed for an item whose model output
// could not be parsed. The raw text is preserved so an operator can fix the
// entry by hand.
func Placeholder(origin, raw string, cause error) catalog.Record {
	diag := &catalog.Diagnostic{Kind: string(KindMalformed), RawResponse: raw}
	if cause != nil {
		diag.Message = cause.Error()
	}
	return catalog.Record{
		Origin:     origin,
		Status:     catalog.StatusMalformed,
		Title:      catalog.PlaceholderTitle,
		Diagnostic: diag,
	}
}

// Review marks a parsed record whose classification fell outside the
// vocabulary. Raw values are kept; the violations and raw text go into the
// diagnostic.
func Review(rec catalog.Record, raw string, cause error) catalog.Record {
	diag := &catalog.Diagnostic{Kind: string(KindEnumViolation), RawResponse: raw}
	var serr *SchemaError
	if errors.As(cause, &serr) {
		diag.Violations = append([]catalog.Violation(nil), serr.Violations...)
	}
	if cause != nil {
		diag.Message = cause.Error()
	}
	rec.Status = catalog.StatusReview
	rec.Diagnostic = diag
	return rec
}
