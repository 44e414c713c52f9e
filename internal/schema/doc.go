// Package schema is the authoritative gate between normalized model output
// and the record set.
//
// Validate parses the text as one JSON object, maps its keys (English or the
// Spanish keys the catalog prompt historically asked for) onto a
// catalog.Record, and checks the five classification fields against the
// closed vocabulary. Values that differ from a vocabulary entry only in case,
// accents, or surrounding whitespace are repaired to the canonical spelling;
// anything else is reported as an ENUM_VIOLATION with the raw value and the
// nearest suggestion, never silently coerced.
package schema
