package agent

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// maxHistoryEntries bounds what is loaded into the prompt's history buffer.
const maxHistoryEntries = 500

// inputHistory is the REPL's line history, appended to a file as lines are
// entered.
type inputHistory struct {
	mu      sync.Mutex
	path    string
	entries []string
}

func loadInputHistory(path string) *inputHistory {
	h := &inputHistory{path: path}
	if path == "" {
		return h
	}
	f, err := os.Open(path)
	if err != nil {
		return h
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			h.entries = append(h.entries, line)
		}
	}
	if n := len(h.entries); n > maxHistoryEntries {
		h.entries = h.entries[n-maxHistoryEntries:]
	}
	return h
}

func (h *inputHistory) Entries() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	cpy := make([]string, len(h.entries))
	copy(cpy, h.entries)
	return cpy
}

// Add records line unless it repeats the previous entry.
func (h *inputHistory) Add(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if n := len(h.entries); n > 0 && h.entries[n-1] == line {
		return
	}
	h.entries = append(h.entries, line)
	if h.path == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(h.path), 0o755); err != nil {
		return
	}
	f, err := os.OpenFile(h.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = fmt.Fprintln(f, line)
}
