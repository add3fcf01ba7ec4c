package sandbox

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Entry is one immediate child of a scanned directory.
type Entry struct {
	Name  string `json:"name"`
	Size  int64  `json:"size"`
	IsDir bool   `json:"is_dir"`
}

func (e Entry) String() string {
	return fmt.Sprintf("%s → size: %d bytes, is_dir: %t", e.Name, e.Size, e.IsDir)
}

// Scanner lists directory contents inside a Guard's root.
type Scanner struct {
	guard Guard
}

func NewScanner(guard Guard) *Scanner {
	return &Scanner{guard: guard}
}

// Scan lists the immediate children of directory (the root when empty). Sizes
// that cannot be read are reported as 0.
func (s *Scanner) Scan(directory string) ([]Entry, error) {
	abs, err := s.guard.Resolve(directory)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return nil, Errorf(KindNotADirectory, directory, "%q is not a valid directory", s.guard.Rel(abs))
	}
	children, err := os.ReadDir(abs)
	if err != nil {
		return nil, Wrap(KindRead, directory, err, "error reading directory %q", s.guard.Rel(abs))
	}
	entries := make([]Entry, 0, len(children))
	for _, child := range children {
		entry := Entry{Name: child.Name(), IsDir: child.IsDir()}
		// Stat follows symlinks so a link to a directory reports as one.
		if fi, err := os.Stat(filepath.Join(abs, child.Name())); err == nil {
			entry.Size = fi.Size()
			entry.IsDir = fi.IsDir()
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// FormatEntries renders one line per entry.
func FormatEntries(entries []Entry) string {
	var b strings.Builder
	for _, e := range entries {
		b.WriteString(e.String())
		b.WriteByte('\n')
	}
	return b.String()
}
