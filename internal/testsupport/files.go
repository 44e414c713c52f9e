package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// jpegHeader is enough for content sniffing to report image/jpeg.
var jpegHeader = []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}

// WriteImage creates a small JPEG-looking file at root/rel, creating parent
// directories. rel uses forward slashes.
func WriteImage(t testing.TB, root, rel string) string {
	t.Helper()

	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, jpegHeader, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
