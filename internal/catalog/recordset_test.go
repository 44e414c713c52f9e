package catalog

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func origins(set *RecordSet) []string {
	out := make([]string, 0, set.Len())
	for _, rec := range set.Records() {
		out = append(out, rec.Origin)
	}
	return out
}

func TestNewRecordSetDropsDuplicates(t *testing.T) {
	set, dropped := NewRecordSet([]Record{
		{Origin: "a.jpg", Title: "first"},
		{Origin: "b.jpg"},
		{Origin: "a.jpg", Title: "second"},
	})
	if diff := cmp.Diff([]string{"a.jpg", "b.jpg"}, origins(set)); diff != "" {
		t.Fatalf("origins mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a.jpg"}, dropped); diff != "" {
		t.Fatalf("dropped mismatch (-want +got):\n%s", diff)
	}
	rec, ok := set.Get("a.jpg")
	if !ok || rec.Title != "first" {
		t.Fatalf("expected first occurrence kept, got %+v", rec)
	}
}

func TestRecordSetAppendRejectsDuplicate(t *testing.T) {
	set, _ := NewRecordSet(nil)
	if err := set.Append(Record{Origin: "x.png"}); err != nil {
		t.Fatal(err)
	}
	err := set.Append(Record{Origin: "x.png"})
	var dup *DuplicateOriginError
	if !errors.As(err, &dup) || dup.Origin != "x.png" {
		t.Fatalf("expected DuplicateOriginError, got %v", err)
	}
	if err := set.Append(Record{}); err == nil {
		t.Fatal("expected error for empty origin")
	}
	if set.Len() != 1 {
		t.Fatalf("expected 1 record, got %d", set.Len())
	}
}

func TestRecordSetPopRestoresLedger(t *testing.T) {
	set, _ := NewRecordSet([]Record{{Origin: "a.jpg"}})
	if err := set.Append(Record{Origin: "b.jpg"}); err != nil {
		t.Fatal(err)
	}
	rec, ok := set.Pop()
	if !ok || rec.Origin != "b.jpg" {
		t.Fatalf("unexpected pop result %+v %v", rec, ok)
	}
	if set.IsProcessed("b.jpg") {
		t.Fatal("popped origin still marked processed")
	}
	if !set.IsProcessed("a.jpg") {
		t.Fatal("remaining origin lost")
	}
	set.Pop()
	if _, ok := set.Pop(); ok {
		t.Fatal("expected empty pop to report false")
	}
}

func TestRecordSetRemoveReindexes(t *testing.T) {
	set, _ := NewRecordSet([]Record{{Origin: "a"}, {Origin: "b"}, {Origin: "c"}})
	if !set.Remove("a") {
		t.Fatal("expected removal")
	}
	if set.Remove("a") {
		t.Fatal("second removal should report false")
	}
	if diff := cmp.Diff([]string{"b", "c"}, origins(set)); diff != "" {
		t.Fatalf("origins mismatch (-want +got):\n%s", diff)
	}
	rec, ok := set.Get("c")
	if !ok || rec.Origin != "c" {
		t.Fatalf("index stale after removal: %+v", rec)
	}
}

func TestRecordEffectiveStatus(t *testing.T) {
	if got := (Record{}).EffectiveStatus(); got != StatusOK {
		t.Fatalf("expected legacy record to be ok, got %q", got)
	}
	if !(Record{Status: StatusMalformed}).IsPlaceholder() {
		t.Fatal("malformed record should be a placeholder")
	}
	if (Record{Status: StatusOK}).IsPlaceholder() {
		t.Fatal("ok record should not be a placeholder")
	}
}

func TestClassificationGetSet(t *testing.T) {
	var c Classification
	for i, field := range Fields {
		c.Set(field, string(rune('a'+i)))
	}
	want := Classification{Category: "a", Style: "b", Material: "c", Color: "d", Gender: "e"}
	if diff := cmp.Diff(want, c); diff != "" {
		t.Fatalf("classification mismatch (-want +got):\n%s", diff)
	}
	if got := c.Get(FieldColor); got != "d" {
		t.Fatalf("Get(color) = %q", got)
	}
}
