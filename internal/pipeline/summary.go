package pipeline

import (
	"time"

	"catalogscan/internal/catalog"
	"catalogscan/internal/scan"
)

// Outcome is the result of one item.
type Outcome struct {
	Item     scan.Item
	State    State
	Status   catalog.Status
	Attempts int
	Duration time.Duration
	Err      error
	// History is the sequence of states the item passed through.
	History []State
}

// Failure names an item that ended FAILED and why.
type Failure struct {
	Item  string
	State State
	Err   error
}

// Summary aggregates a run.
type Summary struct {
	RunID string
	// SourceCreated reports that the source directory did not exist.
	SourceCreated bool
	Total         int
	Skipped       int
	// Done counts committed items, including placeholders and review records.
	Done         int
	Placeholders int
	Review       int
	Failed       []Failure
	// Deferred counts pending items left for a later run by the limit.
	Deferred    int
	Interrupted bool
	Records     int
	Elapsed     time.Duration
}
