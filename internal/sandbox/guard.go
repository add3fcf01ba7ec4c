// Package sandbox confines file operations to a single working root.
//
// Every operation resolves caller-supplied paths through a Guard, which
// rejects anything that lands outside the root. The check is lexical: it
// defeats ".." escapes and sibling directories sharing a name prefix, not
// symlinks planted inside the root.
package sandbox

import (
	"os"
	"path/filepath"
	"strings"
)

// Guard resolves relative paths against a working root.
type Guard struct {
	root string
}

// NewGuard returns a Guard for root. An empty root means the current directory.
func NewGuard(root string) (Guard, error) {
	if root == "" {
		root = "."
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return Guard{}, Wrap(KindInvalidArgument, root, err, "resolve working directory %q", root)
	}
	return Guard{root: abs}, nil
}

// Root returns the absolute working root.
func (g Guard) Root() string {
	return g.root
}

// Resolve returns the absolute form of path, which must stay inside the root.
// Relative paths are joined to the root; absolute paths are accepted only when
// they already point inside it. An empty path resolves to the root itself.
func (g Guard) Resolve(path string) (string, error) {
	var target string
	switch {
	case path == "":
		target = g.root
	case filepath.IsAbs(path):
		target = path
	default:
		target = filepath.Join(g.root, path)
	}
	cleaned, err := filepath.Abs(target)
	if err != nil {
		return "", Wrap(KindPathEscape, path, err, "%q cannot be resolved", path)
	}
	if !Contains(g.root, cleaned) {
		return "", Errorf(KindPathEscape, path, "%q is not in the working directory", path)
	}
	return cleaned, nil
}

// Rel returns abs relative to the root, or abs unchanged if that fails.
func (g Guard) Rel(abs string) string {
	rel, err := filepath.Rel(g.root, abs)
	if err != nil {
		return abs
	}
	return rel
}

// IsRoot reports whether abs is the working root itself.
func (g Guard) IsRoot(abs string) bool {
	return filepath.Clean(abs) == g.root
}

// Contains reports whether target is root or a descendant of it. Both paths
// must be absolute and clean. Comparison is per path segment, so "/work"
// does not contain "/workshop".
func Contains(root, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	if filepath.IsAbs(rel) || rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return false
	}
	return true
}
