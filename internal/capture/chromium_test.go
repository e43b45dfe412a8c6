package capture

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestOptionsNormalize(t *testing.T) {
	if _, err := (Options{OutputPath: "x.png"}).normalize(); err == nil {
		t.Error("expected missing URL to fail")
	}
	if _, err := (Options{URL: "http://x"}).normalize(); err == nil {
		t.Error("expected missing output path to fail")
	}

	o, err := Options{URL: "http://x", OutputPath: "x.png"}.normalize()
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if o.Width != DefaultWidth || o.Height != DefaultHeight || o.Timeout != DefaultTimeout {
		t.Errorf("expected defaults, got %+v", o)
	}
}

func TestWriteFileReplaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "preview.png")
	if err := writeFile(path, []byte("one")); err != nil {
		t.Fatalf("writeFile failed: %v", err)
	}
	if err := writeFile(path, []byte("two")); err != nil {
		t.Fatalf("writeFile failed: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil || !bytes.Equal(got, []byte("two")) {
		t.Errorf("expected replaced contents, got %q %v", got, err)
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("expected only the PNG, got %d entries", len(entries))
	}
}
