package source

import (
	"os"
	"path/filepath"
	"testing"
)

func TestOpenMissingFile(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "missing.img")); err == nil {
		t.Fatal("expected an error opening a nonexistent image")
	}
}

func TestOpenEmptyPath(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Fatal("expected an error for an empty path")
	}
}

func TestSectorSizesRegularFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "image.bin")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	logical, physical, err := SectorSizes(path)
	if err != nil {
		t.Fatalf("SectorSizes: %v", err)
	}
	if logical != defaultSectorSize || physical != defaultSectorSize {
		t.Errorf("SectorSizes() = (%d, %d), want (%d, %d)", logical, physical, defaultSectorSize, defaultSectorSize)
	}
}
