package sandbox

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestRefactorer(t *testing.T) (*Refactorer, string) {
	t.Helper()
	guard, err := NewGuard(t.TempDir())
	if err != nil {
		t.Fatalf("NewGuard: %v", err)
	}
	return NewRefactorer(guard), guard.Root()
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestParseAction(t *testing.T) {
	for raw, want := range map[string]Action{"delete": ActionDelete, " MOVE ": ActionMove, "Delete": ActionDelete} {
		got, err := ParseAction(raw)
		if err != nil || got != want {
			t.Fatalf("ParseAction(%q) = %q, %v", raw, got, err)
		}
	}
	if _, err := ParseAction("copy"); !errors.Is(err, KindInvalidAction) {
		t.Fatalf("expected invalid action, got %v", err)
	}
}

func TestDeleteFileAndDirectory(t *testing.T) {
	r, root := newTestRefactorer(t)
	mustWrite(t, filepath.Join(root, "old.txt"), "x")
	mustWrite(t, filepath.Join(root, "build", "out", "bin"), "y")

	msg, err := r.Apply("delete", "old.txt", "")
	if err != nil {
		t.Fatalf("delete file: %v", err)
	}
	if msg != `Successfully deleted file: "old.txt"` {
		t.Fatalf("unexpected message %q", msg)
	}
	msg, err = r.Apply("delete", "build", "")
	if err != nil {
		t.Fatalf("delete dir: %v", err)
	}
	if msg != `Successfully deleted directory: "build"` {
		t.Fatalf("unexpected message %q", msg)
	}
	for _, p := range []string{"old.txt", "build"} {
		if _, err := os.Stat(filepath.Join(root, p)); !os.IsNotExist(err) {
			t.Fatalf("%s still exists", p)
		}
	}
}

func TestDeleteMissingAndRoot(t *testing.T) {
	r, _ := newTestRefactorer(t)
	if _, err := r.Delete("ghost.txt"); !errors.Is(err, KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := r.Delete("."); !errors.Is(err, KindInvalidArgument) {
		t.Fatalf("expected refusal for root, got %v", err)
	}
	if _, err := r.Delete("../x"); !errors.Is(err, KindPathEscape) {
		t.Fatalf("expected path escape, got %v", err)
	}
}

func TestMoveCreatesDestinationParents(t *testing.T) {
	r, root := newTestRefactorer(t)
	mustWrite(t, filepath.Join(root, "util.py"), "def f(): pass\n")

	msg, err := r.Apply("move", "util.py", "pkg/helpers/util.py")
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if msg != `Successfully moved "util.py" → "pkg/helpers/util.py"` {
		t.Fatalf("unexpected message %q", msg)
	}
	if _, err := os.Stat(filepath.Join(root, "util.py")); !os.IsNotExist(err) {
		t.Fatalf("source should be gone")
	}
	data, err := os.ReadFile(filepath.Join(root, "pkg", "helpers", "util.py"))
	if err != nil || string(data) != "def f(): pass\n" {
		t.Fatalf("destination content = %q, %v", data, err)
	}
}

func TestMoveFailuresLeaveSourceIntact(t *testing.T) {
	r, root := newTestRefactorer(t)
	src := filepath.Join(root, "src", "main.go")
	mustWrite(t, src, "package main\n")

	cases := []struct {
		name string
		dest string
		kind Kind
	}{
		{name: "missing destination", dest: "", kind: KindInvalidArgument},
		{name: "escaping destination", dest: "../stolen.go", kind: KindPathEscape},
		{name: "root destination", dest: ".", kind: KindInvalidArgument},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := r.Move("src/main.go", tc.dest); !errors.Is(err, tc.kind) {
				t.Fatalf("expected %s, got %v", tc.kind, err)
			}
			if _, err := os.Stat(src); err != nil {
				t.Fatalf("source disturbed: %v", err)
			}
		})
	}

	if _, err := r.Move("src", "src/nested/src"); !errors.Is(err, KindInvalidArgument) {
		t.Fatalf("expected refusal to move into itself, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "src", "nested")); !os.IsNotExist(err) {
		t.Fatalf("failed move should not create directories")
	}
}

func TestMoveMissingSource(t *testing.T) {
	r, root := newTestRefactorer(t)
	if _, err := r.Move("nope.txt", "dest/nope.txt"); !errors.Is(err, KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "dest")); !os.IsNotExist(err) {
		t.Fatalf("destination parent should not be created")
	}
}

func TestMoveIntoExistingDirectory(t *testing.T) {
	r, root := newTestRefactorer(t)
	mustWrite(t, filepath.Join(root, "util.py"), "x = 1\n")
	if err := os.Mkdir(filepath.Join(root, "pkg"), 0o755); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}

	msg, err := r.Move("util.py", "pkg")
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if want := `Successfully moved "util.py" → "` + filepath.Join("pkg", "util.py") + `"`; msg != want {
		t.Fatalf("message = %q, want %q", msg, want)
	}
	data, err := os.ReadFile(filepath.Join(root, "pkg", "util.py"))
	if err != nil || string(data) != "x = 1\n" {
		t.Fatalf("moved content = %q, %v", data, err)
	}

	if err := os.Mkdir(filepath.Join(root, "pkg", "inner"), 0o755); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	if _, err := r.Move("pkg", "pkg/inner"); !errors.Is(err, KindInvalidArgument) {
		t.Fatalf("expected refusal to move into itself, got %v", err)
	}
}

func TestCopyTreePreservesLayout(t *testing.T) {
	src := t.TempDir()
	mustWrite(t, filepath.Join(src, "a.txt"), "a")
	mustWrite(t, filepath.Join(src, "sub", "b.txt"), "b")
	if err := os.Symlink("a.txt", filepath.Join(src, "link")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	dst := filepath.Join(t.TempDir(), "copy")
	if err := copyTree(src, dst); err != nil {
		t.Fatalf("copyTree: %v", err)
	}
	if data, err := os.ReadFile(filepath.Join(dst, "sub", "b.txt")); err != nil || string(data) != "b" {
		t.Fatalf("nested file = %q, %v", data, err)
	}
	if link, err := os.Readlink(filepath.Join(dst, "link")); err != nil || link != "a.txt" {
		t.Fatalf("symlink = %q, %v", link, err)
	}
}
