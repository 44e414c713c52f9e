// Package sink commits the full record set to every output representation in
// a fixed order: the durable store first, then the derived views.
package sink

import (
	"context"
	"errors"
	"fmt"

	"catalogscan/internal/catalog"
)

// Sink is one output representation of the record set. Write replaces the
// previous contents entirely and must not retain records after returning.
type Sink interface {
	Name() string
	Write(ctx context.Context, records []catalog.Record) error
}

// PersistError reports a failed commit. Durable is true when the primary
// store already holds the new state and only a secondary sink is stale.
type PersistError struct {
	Sink    string
	Durable bool
	Err     error
}

func (e *PersistError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("persist %s: %v", e.Sink, e.Err)
}

func (e *PersistError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsDurable reports whether err is a PersistError raised after the primary
// store was written.
func IsDurable(err error) bool {
	var perr *PersistError
	return errors.As(err, &perr) && perr.Durable
}

// Writer fans a commit out to the primary store and then each secondary sink.
type Writer struct {
	primary   Sink
	secondary []Sink
}

// NewWriter builds a writer. Nil secondary sinks are ignored.
func NewWriter(primary Sink, secondary ...Sink) *Writer {
	w := &Writer{primary: primary}
	for _, s := range secondary {
		if s != nil {
			w.secondary = append(w.secondary, s)
		}
	}
	return w
}

// Sinks lists the sink names in write order.
func (w *Writer) Sinks() []string {
	names := []string{w.primary.Name()}
	for _, s := range w.secondary {
		names = append(names, s.Name())
	}
	return names
}

// Commit writes the set to every sink, stopping at the first failure.
func (w *Writer) Commit(ctx context.Context, set *catalog.RecordSet) error {
	records := set.Records()
	if err := w.primary.Write(ctx, records); err != nil {
		return &PersistError{Sink: w.primary.Name(), Durable: false, Err: err}
	}
	for _, s := range w.secondary {
		if err := s.Write(ctx, records); err != nil {
			return &PersistError{Sink: s.Name(), Durable: true, Err: err}
		}
	}
	return nil
}
