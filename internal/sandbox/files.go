package sandbox

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// DefaultMaxReadChars caps Read when the caller passes a non-positive limit.
const DefaultMaxReadChars = 10000

var errInvalidUTF8 = errors.New("content is not valid UTF-8 text")

// WriteResult describes a completed write.
type WriteResult struct {
	Path  string // as supplied by the caller
	Abs   string
	Bytes int
	Chars int
}

// ReadResult holds at most Limit characters of a file.
type ReadResult struct {
	Path      string
	Content   string
	Truncated bool
	Limit     int
}

// Text returns the content with a truncation notice appended when the file
// was longer than the limit.
func (r ReadResult) Text() string {
	if !r.Truncated {
		return r.Content
	}
	return r.Content + fmt.Sprintf("\n[...File %q truncated at %d characters]", r.Path, r.Limit)
}

// FileStore reads and writes text files inside a Guard's root.
type FileStore struct {
	guard    Guard
	maxChars int
}

// NewFileStore returns a FileStore; maxChars <= 0 selects DefaultMaxReadChars.
func NewFileStore(guard Guard, maxChars int) *FileStore {
	if maxChars <= 0 {
		maxChars = DefaultMaxReadChars
	}
	return &FileStore{guard: guard, maxChars: maxChars}
}

// Guard exposes the store's path guard.
func (s *FileStore) Guard() Guard {
	return s.guard
}

// Write creates or fully overwrites path with content, creating missing parent
// directories first.
func (s *FileStore) Write(path, content string) (WriteResult, error) {
	if strings.TrimSpace(path) == "" {
		return WriteResult{}, Errorf(KindInvalidArgument, path, "file path is required")
	}
	abs, err := s.guard.Resolve(path)
	if err != nil {
		return WriteResult{}, err
	}
	if s.guard.IsRoot(abs) {
		return WriteResult{}, Errorf(KindNotAFile, path, "%q is the working directory, not a file", path)
	}
	parent := filepath.Dir(abs)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return WriteResult{}, Wrap(KindDirectoryCreation, path, err, "could not create parent directories %q", s.guard.Rel(parent))
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		return WriteResult{}, Wrap(KindWrite, path, err, "failed to write to file %q", path)
	}
	return WriteResult{
		Path:  path,
		Abs:   abs,
		Bytes: len(content),
		Chars: utf8.RuneCountInString(content),
	}, nil
}

// Create is the explicit creation entry point. It has the same guarantees as
// Write and, like Write, overwrites an existing file.
func (s *FileStore) Create(path, content string) (WriteResult, error) {
	return s.Write(path, content)
}

// Read returns at most maxChars characters of path. maxChars <= 0 uses the
// store's configured cap.
func (s *FileStore) Read(path string, maxChars int) (ReadResult, error) {
	if maxChars <= 0 {
		maxChars = s.maxChars
	}
	abs, err := s.guard.Resolve(path)
	if err != nil {
		return ReadResult{}, err
	}
	info, err := os.Stat(abs)
	if err != nil || !info.Mode().IsRegular() {
		return ReadResult{}, Errorf(KindNotAFile, path, "%q is not a file", path)
	}
	f, err := os.Open(abs)
	if err != nil {
		return ReadResult{}, Wrap(KindRead, path, err, "error reading file %q", path)
	}
	defer f.Close()

	content, truncated, err := readChars(bufio.NewReader(f), maxChars)
	if err != nil {
		return ReadResult{}, Wrap(KindRead, path, err, "error reading file %q", path)
	}
	return ReadResult{Path: path, Content: content, Truncated: truncated, Limit: maxChars}, nil
}

// readChars decodes up to limit runes and reports whether more input follows.
func readChars(r *bufio.Reader, limit int) (string, bool, error) {
	var b strings.Builder
	for n := 0; n < limit; n++ {
		ch, size, err := r.ReadRune()
		if errors.Is(err, io.EOF) {
			return b.String(), false, nil
		}
		if err != nil {
			return "", false, err
		}
		if ch == utf8.RuneError && size == 1 {
			return "", false, errInvalidUTF8
		}
		b.WriteRune(ch)
	}
	if _, err := r.Peek(1); err != nil {
		if errors.Is(err, io.EOF) {
			return b.String(), false, nil
		}
		return "", false, err
	}
	return b.String(), true, nil
}
