package catalog

import "fmt"

// Ledger answers whether a work item has already been committed.
type Ledger interface {
	IsProcessed(origin string) bool
}

// DuplicateOriginError is returned when a record's origin is already present.
type DuplicateOriginError struct {
	Origin string
}

func (e *DuplicateOriginError) Error() string {
	return fmt.Sprintf("record %q already present", e.Origin)
}

// RecordSet is the insertion-ordered sequence of committed records, indexed
// by origin. It is owned by a single run and is not safe for concurrent use.
type RecordSet struct {
	records []Record
	index   map[string]int
}

// NewRecordSet builds a set from previously persisted records. Records whose
// origin repeats are dropped; their origins are returned so callers can warn.
func NewRecordSet(records []Record) (*RecordSet, []string) {
	set := &RecordSet{
		records: make([]Record, 0, len(records)),
		index:   make(map[string]int, len(records)),
	}
	var dropped []string
	for _, rec := range records {
		if err := set.Append(rec); err != nil {
			dropped = append(dropped, rec.Origin)
		}
	}
	return set, dropped
}

// Append adds a record at the end of the set.
func (s *RecordSet) Append(rec Record) error {
	if rec.Origin == "" {
		return fmt.Errorf("record origin is empty")
	}
	if _, ok := s.index[rec.Origin]; ok {
		return &DuplicateOriginError{Origin: rec.Origin}
	}
	s.index[rec.Origin] = len(s.records)
	s.records = append(s.records, rec)
	return nil
}

// Pop removes and returns the most recently appended record.
func (s *RecordSet) Pop() (Record, bool) {
	if len(s.records) == 0 {
		return Record{}, false
	}
	last := s.records[len(s.records)-1]
	s.records = s.records[:len(s.records)-1]
	delete(s.index, last.Origin)
	return last, true
}

// Remove deletes the record with the given origin, preserving the order of
// the remaining records.
func (s *RecordSet) Remove(origin string) bool {
	pos, ok := s.index[origin]
	if !ok {
		return false
	}
	s.records = append(s.records[:pos], s.records[pos+1:]...)
	delete(s.index, origin)
	for i := pos; i < len(s.records); i++ {
		s.index[s.records[i].Origin] = i
	}
	return true
}

// Get returns the record with the given origin.
func (s *RecordSet) Get(origin string) (Record, bool) {
	pos, ok := s.index[origin]
	if !ok {
		return Record{}, false
	}
	return s.records[pos], true
}

// IsProcessed implements Ledger with an O(1) lookup.
func (s *RecordSet) IsProcessed(origin string) bool {
	_, ok := s.index[origin]
	return ok
}

// Len returns the number of records.
func (s *RecordSet) Len() int {
	return len(s.records)
}

// Records exposes the backing slice in insertion order. Callers must not
// modify or retain it beyond the current call.
func (s *RecordSet) Records() []Record {
	return s.records
}
