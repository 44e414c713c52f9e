package testsupport

import (
	"testing"

	"catalogscan/internal/catalog"
	"catalogscan/internal/store"
)

// MustLoadStore reads the store at path, failing the test on error.
func MustLoadStore(t testing.TB, path string) *catalog.RecordSet {
	t.Helper()

	set, err := store.New(path, nil).Load()
	if err != nil {
		t.Fatalf("load store %s: %v", path, err)
	}
	return set
}

// StoredOrigins lists the origins in the store at path, in insertion order.
func StoredOrigins(t testing.TB, path string) []string {
	t.Helper()

	records := MustLoadStore(t, path).Records()
	origins := make([]string, 0, len(records))
	for _, rec := range records {
		origins = append(origins, rec.Origin)
	}
	return origins
}
