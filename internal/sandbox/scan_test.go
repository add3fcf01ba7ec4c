package sandbox

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestScanListsImmediateChildren(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a.txt"), []byte("0123456789"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(root, "sub", "deeper"), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	guard, err := NewGuard(root)
	if err != nil {
		t.Fatalf("NewGuard: %v", err)
	}

	entries, err := NewScanner(guard).Scan("")
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %+v", entries)
	}
	if diff := cmp.Diff(Entry{Name: "a.txt", Size: 10}, entries[0]); diff != "" {
		t.Fatalf("file entry mismatch (-want +got):\n%s", diff)
	}
	if entries[1].Name != "sub" || !entries[1].IsDir {
		t.Fatalf("unexpected dir entry %+v", entries[1])
	}

	out := FormatEntries(entries)
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected two lines, got %q", out)
	}
	if lines[0] != "a.txt → size: 10 bytes, is_dir: false" {
		t.Fatalf("unexpected line %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "sub → size: ") || !strings.HasSuffix(lines[1], "is_dir: true") {
		t.Fatalf("unexpected line %q", lines[1])
	}
}

func TestScanEmptyDirectory(t *testing.T) {
	guard, err := NewGuard(t.TempDir())
	if err != nil {
		t.Fatalf("NewGuard: %v", err)
	}
	entries, err := NewScanner(guard).Scan(".")
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(entries) != 0 || FormatEntries(entries) != "" {
		t.Fatalf("expected no entries, got %+v", entries)
	}
}

func TestScanErrors(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "file.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	guard, err := NewGuard(root)
	if err != nil {
		t.Fatalf("NewGuard: %v", err)
	}
	scanner := NewScanner(guard)

	if _, err := scanner.Scan("file.txt"); !errors.Is(err, KindNotADirectory) {
		t.Fatalf("file: expected not-a-directory, got %v", err)
	}
	if _, err := scanner.Scan("nope"); !errors.Is(err, KindNotADirectory) {
		t.Fatalf("missing: expected not-a-directory, got %v", err)
	}
	if _, err := scanner.Scan(".."); !errors.Is(err, KindPathEscape) {
		t.Fatalf("parent: expected path escape, got %v", err)
	}
}
