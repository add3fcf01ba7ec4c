package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func runCLI(t *testing.T, args ...string) string {
	t.Helper()
	t.Setenv("BUGX_CONFIG_DIR", t.TempDir())
	t.Setenv("BUGX_CONFIG_PATH", "")
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("bugx %s: %v\n%s", strings.Join(args, " "), err, out.String())
	}
	return out.String()
}

func TestVersionFlag(t *testing.T) {
	if got := runCLI(t, "--version"); got != "BugX version dev\n" {
		t.Fatalf("version output = %q", got)
	}
}

func TestRunToolUsesSandbox(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "main.py"), []byte("print('hi')\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	out := runCLI(t, "--sandbox", root, "run-tool", "read_file", `{"path":"main.py"}`)
	if out != `{"result":"print('hi')\n"}`+"\n" {
		t.Fatalf("read_file output = %q", out)
	}

	out = runCLI(t, "-s", root, "run-tool", "read_file", `{"path":"../escape.txt"}`)
	if !strings.Contains(out, "is not in the working directory") {
		t.Fatalf("escape output = %q", out)
	}

	out = runCLI(t, "-s", root, "run-tool", "scan_directory")
	if !strings.HasPrefix(out, "main.py → size: 12 bytes, is_dir: false") {
		t.Fatalf("scan output = %q", out)
	}
}

func TestToolsCommandListsModelFreeTools(t *testing.T) {
	out := runCLI(t, "--sandbox", t.TempDir(), "tools")
	for _, name := range []string{"write_file", "run_shell", "parse_plan", "web_search"} {
		if !strings.Contains(out, name) {
			t.Fatalf("tools output missing %s:\n%s", name, out)
		}
	}
	if strings.Contains(out, "generate_plan") {
		t.Fatalf("model-backed tools need a client:\n%s", out)
	}
}

func TestFormatUTCOffset(t *testing.T) {
	cases := map[int]string{0: "+00:00", 19800: "+05:30", -18000: "-05:00"}
	for in, want := range cases {
		if got := formatUTCOffset(in); got != want {
			t.Errorf("formatUTCOffset(%d) = %q, want %q", in, got, want)
		}
	}
}
