package sandbox

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"
)

// Action is a Refactorer operation.
type Action string

const (
	ActionDelete Action = "delete"
	ActionMove   Action = "move"
)

// ParseAction validates a caller-supplied action name.
func ParseAction(raw string) (Action, error) {
	switch Action(strings.ToLower(strings.TrimSpace(raw))) {
	case ActionDelete:
		return ActionDelete, nil
	case ActionMove:
		return ActionMove, nil
	default:
		return "", Errorf(KindInvalidAction, raw, "action must be either %q or %q, got %q", ActionDelete, ActionMove, raw)
	}
}

// Refactorer deletes and moves entries inside a Guard's root.
type Refactorer struct {
	guard Guard
}

func NewRefactorer(guard Guard) *Refactorer {
	return &Refactorer{guard: guard}
}

// Apply runs action against source. destination is required for moves and
// ignored for deletes. The returned string is a human-readable status line.
func (r *Refactorer) Apply(action, source, destination string) (string, error) {
	act, err := ParseAction(action)
	if err != nil {
		return "", err
	}
	switch act {
	case ActionDelete:
		return r.Delete(source)
	default:
		return r.Move(source, destination)
	}
}

// Delete removes a file or symlink, or a directory recursively.
func (r *Refactorer) Delete(source string) (string, error) {
	abs, info, err := r.source(source)
	if err != nil {
		return "", err
	}
	mode := info.Mode()
	switch {
	case mode.IsRegular() || mode&os.ModeSymlink != 0:
		if err := os.Remove(abs); err != nil {
			return "", Wrap(KindWrite, source, err, "error deleting %q", source)
		}
		return fmt.Sprintf("Successfully deleted file: %q", source), nil
	case mode.IsDir():
		if err := os.RemoveAll(abs); err != nil {
			return "", Wrap(KindWrite, source, err, "error deleting %q", source)
		}
		return fmt.Sprintf("Successfully deleted directory: %q", source), nil
	default:
		return "", Errorf(KindNotAFile, source, "%q is neither a file nor a directory", source)
	}
}

// Move renames source to destination, creating destination's parents. Both
// ends must resolve inside the root; on any validation failure nothing moves.
func (r *Refactorer) Move(source, destination string) (string, error) {
	abs, _, err := r.source(source)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(destination) == "" {
		return "", Errorf(KindInvalidArgument, destination, "destination is required when action is %q", ActionMove)
	}
	dest, err := r.guard.Resolve(destination)
	if err != nil {
		return "", err
	}
	if r.guard.IsRoot(dest) {
		return "", Errorf(KindInvalidArgument, destination, "cannot replace the working directory with %q", source)
	}
	// An existing directory receives the source under its own name.
	shown := destination
	if info, err := os.Stat(dest); err == nil && info.IsDir() && dest != abs {
		dest = filepath.Join(dest, filepath.Base(abs))
		shown = r.guard.Rel(dest)
	}
	if dest != abs && Contains(abs, dest) {
		return "", Errorf(KindInvalidArgument, destination, "cannot move %q into itself", source)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", Wrap(KindDirectoryCreation, destination, err, "could not create parent directories for %q", destination)
	}
	if err := move(abs, dest); err != nil {
		return "", Wrap(KindWrite, source, err, "error moving %q to %q", source, shown)
	}
	return fmt.Sprintf("Successfully moved %q → %q", source, shown), nil
}

// move renames src to dst, falling back to copy and remove when they live on
// different filesystems.
func move(src, dst string) error {
	err := os.Rename(src, dst)
	if !errors.Is(err, syscall.EXDEV) {
		return err
	}
	if err := copyTree(src, dst); err != nil {
		_ = os.RemoveAll(dst)
		return err
	}
	return os.RemoveAll(src)
}

// source resolves and stats the entry an action operates on. The root itself
// is never a valid source.
func (r *Refactorer) source(source string) (string, os.FileInfo, error) {
	if strings.TrimSpace(source) == "" {
		return "", nil, Errorf(KindInvalidArgument, source, "source path is required")
	}
	abs, err := r.guard.Resolve(source)
	if err != nil {
		return "", nil, err
	}
	if r.guard.IsRoot(abs) {
		return "", nil, Errorf(KindInvalidArgument, source, "refusing to operate on the working directory itself")
	}
	info, err := os.Lstat(abs)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil, Errorf(KindNotFound, source, "source path %q does not exist", source)
	}
	if err != nil {
		return "", nil, Wrap(KindRead, source, err, "cannot inspect %q", source)
	}
	return abs, info, nil
}
