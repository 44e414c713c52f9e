package schema

import (
	"fmt"
	"strings"

	"catalogscan/internal/catalog"
)

// Kind classifies a SchemaError.
type Kind string

const (
	// KindMalformed means the text is not a catalog object at all.
	KindMalformed Kind = "MALFORMED"
	// KindEnumViolation means the object parsed but a classification value
	// is outside the vocabulary.
	KindEnumViolation Kind = "ENUM_VIOLATION"
)

// SchemaError reports why normalized text could not become a clean record.
type SchemaError struct {
	Kind       Kind
	Message    string
	Violations []catalog.Violation
	Err        error
}

func (e *SchemaError) Error() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(strings.ToLower(string(e.Kind)))
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	for i, v := range e.Violations {
		if i == 0 {
			b.WriteString(": ")
		} else {
			b.WriteString("; ")
		}
		fmt.Fprintf(&b, "%s=%q", v.Field, v.Value)
		if v.Suggestion != "" {
			fmt.Fprintf(&b, " (nearest %q)", v.Suggestion)
		}
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *SchemaError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func malformed(err error, format string, args ...any) *SchemaError {
	return &SchemaError{Kind: KindMalformed, Message: fmt.Sprintf(format, args...), Err: err}
}
