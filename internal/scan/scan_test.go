package scan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func writeFile(t *testing.T, root, rel string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("img"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func ids(items []Item) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.ID)
	}
	return out
}

func TestScanCreatesMissingRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "imagenes")
	s := &Scanner{Root: root, Extensions: []string{".jpg"}}

	res, err := s.Scan()
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if !res.Created || len(res.Items) != 0 {
		t.Fatalf("expected created empty result, got %+v", res)
	}
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		t.Fatalf("root not created: %v", err)
	}
}

func TestScanRecursiveSortedFiltered(t *testing.T) {
	root := t.TempDir()
	for _, rel := range []string{
		"ring-01.jpg",
		"b/collar.PNG",
		"a/nested/aro.webp",
		"notes.txt",
		".hidden.jpg",
		".cache/thumb.jpg",
	} {
		writeFile(t, root, rel)
	}
	s := &Scanner{Root: root, Extensions: []string{".jpg", ".png", ".webp"}}

	res, err := s.Scan()
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	want := []string{"a/nested/aro.webp", "b/collar.PNG", "ring-01.jpg"}
	if diff := cmp.Diff(want, ids(res.Items)); diff != "" {
		t.Fatalf("ids mismatch (-want +got):\n%s", diff)
	}
	for _, item := range res.Items {
		if !filepath.IsAbs(item.Path) {
			t.Fatalf("expected absolute path, got %q", item.Path)
		}
	}
	if res.Created {
		t.Fatal("existing root reported as created")
	}
}

func TestScanDeterministic(t *testing.T) {
	root := t.TempDir()
	for _, rel := range []string{"z.jpg", "m.jpg", "a.jpg"} {
		writeFile(t, root, rel)
	}
	s := &Scanner{Root: root, Extensions: []string{".jpg"}}
	first, err := s.Scan()
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.Scan()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("scan not deterministic (-first +second):\n%s", diff)
	}
}

func TestScanRootIsFile(t *testing.T) {
	root := filepath.Join(t.TempDir(), "file.jpg")
	if err := os.WriteFile(root, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	s := &Scanner{Root: root, Extensions: []string{".jpg"}}
	if _, err := s.Scan(); err == nil {
		t.Fatal("expected error for non-directory root")
	}
}

func TestIdentifierNormalizesToNFC(t *testing.T) {
	decomposed := "cora\u0301zon.jpg"
	composed := "cor\u00e1zon.jpg"
	if got := Identifier(decomposed); got != composed {
		t.Fatalf("Identifier(%q) = %q, want %q", decomposed, got, composed)
	}
}
