package runner

import (
	"os"
	"path/filepath"

	"bugx/internal/sandbox"
)

type testMarker struct {
	name    string
	dir     bool
	command string
}

// testMarkers are probed in order; the first present marker wins.
var testMarkers = []testMarker{
	{name: "pytest.ini", command: "pytest"},
	{name: "pyproject.toml", command: "pytest"},
	{name: "tests", dir: true, command: "pytest"},
	{name: "package.json", command: "npm test"},
	{name: "go.mod", command: "go test ./..."},
	{name: "Cargo.toml", command: "cargo test"},
}

// DetectTestCommand picks a default test command from project markers in
// root's immediate contents.
func DetectTestCommand(root string) (string, error) {
	for _, m := range testMarkers {
		info, err := os.Stat(filepath.Join(root, m.name))
		if err != nil {
			continue
		}
		if m.dir && !info.IsDir() {
			continue
		}
		return m.command, nil
	}
	return "", sandbox.Errorf(sandbox.KindAutoDetectFailed, root,
		"could not auto-detect test command; provide one explicitly (e.g. 'pytest', 'python -m pytest', 'npm test')")
}
