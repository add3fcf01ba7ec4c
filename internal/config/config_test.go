package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"bugx/internal/runner"
)

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name        string
		modifyFunc  func(*Config)
		expectError bool
		errorString string
	}{
		{
			name:        "defaults pass",
			modifyFunc:  func(c *Config) {},
			expectError: false,
		},
		{
			name: "unknown provider fails",
			modifyFunc: func(c *Config) {
				c.Provider = "zai"
			},
			expectError: true,
			errorString: "provider must be one of",
		},
		{
			name: "negative temperature fails",
			modifyFunc: func(c *Config) {
				c.Temperature = -0.5
			},
			expectError: true,
			errorString: "temperature must be between",
		},
		{
			name: "temperature > 2.0 fails",
			modifyFunc: func(c *Config) {
				c.Temperature = 3.0
			},
			expectError: true,
			errorString: "temperature must be between",
		},
		{
			name: "request timeout > 600 fails",
			modifyFunc: func(c *Config) {
				c.RequestTimeoutSeconds = 9999
			},
			expectError: true,
			errorString: "request_timeout_seconds cannot exceed",
		},
		{
			name: "script timeout > 600 fails",
			modifyFunc: func(c *Config) {
				c.ScriptTimeoutSeconds = 601
			},
			expectError: true,
			errorString: "script_timeout_seconds cannot exceed",
		},
		{
			name: "test timeout > 600 fails",
			modifyFunc: func(c *Config) {
				c.TestTimeoutSeconds = 1000
			},
			expectError: true,
			errorString: "test_timeout_seconds cannot exceed",
		},
		{
			name: "huge read cap fails",
			modifyFunc: func(c *Config) {
				c.ReadMaxChars = 2_000_000
			},
			expectError: true,
			errorString: "read_max_chars",
		},
		{
			name: "too many steps fails",
			modifyFunc: func(c *Config) {
				c.MaxSteps = 500
			},
			expectError: true,
			errorString: "max_steps",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("BUGX_CONFIG_DIR", t.TempDir())
			cfg := newConfig()
			cfg.applyDefaults()
			tt.modifyFunc(&cfg)

			err := cfg.validate()
			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error but got none")
				} else if !strings.Contains(err.Error(), tt.errorString) {
					t.Errorf("Expected error containing %q, got %q", tt.errorString, err.Error())
				}
			} else if err != nil {
				t.Errorf("Expected no error but got: %v", err)
			}
		})
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("BUGX_CONFIG_DIR", dir)

	cfg, err := Load(filepath.Join(dir, "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Provider != ProviderGemini || cfg.Temperature != 0.1 || cfg.MaxSteps != 30 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	want := runner.DefaultLimits()
	if got := cfg.Limits(); got != want {
		t.Fatalf("Limits() = %+v, want %+v", got, want)
	}
	if cfg.RequestTimeout() != 90*time.Second {
		t.Fatalf("RequestTimeout() = %s", cfg.RequestTimeout())
	}
	if cfg.ReadMaxChars != 10000 || cfg.PythonInterpreter != "python3" || cfg.SearchMaxResults != 5 {
		t.Fatalf("unexpected caps: %+v", cfg)
	}
	if cfg.LogPath != filepath.Join(dir, "bugx.log") || cfg.HistoryPath != filepath.Join(dir, "history") {
		t.Fatalf("paths should live in the config dir: %q %q", cfg.LogPath, cfg.HistoryPath)
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("BUGX_CONFIG_DIR", dir)
	path := filepath.Join(dir, "config.yaml")
	data := `provider: openrouter
model: qwen/qwen3-coder
shell_timeout_seconds: 15
python_interpreter: uv run python
workspace_root: /srv/project
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BaseURL != DefaultOpenRouterBaseURL {
		t.Fatalf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.ModelFor(ProviderOpenRouter) != "qwen/qwen3-coder" {
		t.Fatalf("ModelFor = %q", cfg.ModelFor(ProviderOpenRouter))
	}
	if cfg.Limits().Shell != 15*time.Second || cfg.Limits().Script != 30*time.Second {
		t.Fatalf("Limits() = %+v", cfg.Limits())
	}
	if cfg.PythonInterpreter != "uv run python" || cfg.WorkspaceRoot != "/srv/project" {
		t.Fatalf("unexpected values: %+v", cfg)
	}
}

func TestLoadRejectsInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("provider: [unterminated"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("expected parse error, got %v", err)
	}

	if err := os.WriteFile(path, []byte("temperature: 5\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "temperature") {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLoadKeepsExplicitZeroTemperature(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("BUGX_CONFIG_DIR", dir)
	path := filepath.Join(dir, "config.yaml")

	if err := os.WriteFile(path, []byte("temperature: 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Temperature != 0 {
		t.Fatalf("Temperature = %v, want explicit 0 kept", cfg.Temperature)
	}

	if err := os.WriteFile(path, []byte("provider: mock\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err = Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Temperature != DefaultTemperature {
		t.Fatalf("Temperature = %v, want default %v", cfg.Temperature, DefaultTemperature)
	}
}

func TestEnsureDefaultConfigAndSave(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("BUGX_CONFIG_DIR", dir)
	t.Setenv("BUGX_CONFIG_PATH", "")

	path, err := EnsureDefaultConfig("openai")
	if err != nil {
		t.Fatalf("EnsureDefaultConfig: %v", err)
	}
	if path != filepath.Join(dir, "config.yaml") {
		t.Fatalf("path = %q", path)
	}
	cfg, err := LoadUserConfig()
	if err != nil {
		t.Fatalf("LoadUserConfig: %v", err)
	}
	if cfg.Provider != ProviderOpenAI || cfg.Model != DefaultOpenAIModel || cfg.BaseURL != DefaultOpenAIBaseURL {
		t.Fatalf("unexpected config: %+v", cfg)
	}

	cfg.MaxSteps = 12
	if err := Save(cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := EnsureDefaultConfig("gemini"); err != nil {
		t.Fatalf("second EnsureDefaultConfig: %v", err)
	}
	again, err := LoadUserConfig()
	if err != nil {
		t.Fatal(err)
	}
	if again.MaxSteps != 12 || again.Provider != ProviderOpenAI {
		t.Fatalf("existing config must be left alone: %+v", again)
	}
}

func TestModelForProviderFallbacks(t *testing.T) {
	tests := []struct {
		name          string
		active        string
		model         string
		provider      string
		expectedModel string
	}{
		{"active provider uses configured model", ProviderGemini, "gemini-2.5-pro", ProviderGemini, "gemini-2.5-pro"},
		{"active provider without model falls back", ProviderGemini, "", ProviderGemini, DefaultGeminiModel},
		{"other provider ignores configured model", ProviderGemini, "gemini-2.5-pro", ProviderOpenRouter, DefaultOpenRouterModel},
		{"openai default", ProviderGemini, "", ProviderOpenAI, DefaultOpenAIModel},
		{"mock default", ProviderGemini, "", ProviderMock, DefaultMockModel},
		{"unknown provider falls back to generic model", ProviderGemini, "generic-model", "unknown", "generic-model"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{Provider: tt.active, Model: tt.model}
			if got := cfg.ModelFor(tt.provider); got != tt.expectedModel {
				t.Errorf("Expected ModelFor(%s) %q, got %q", tt.provider, tt.expectedModel, got)
			}
		})
	}
}

func TestOverrideProviderResetsDefaultBaseURL(t *testing.T) {
	cfg := Config{Provider: ProviderOpenRouter}
	cfg.applyDefaults()
	cfg.OverrideProvider("OpenAI")
	if cfg.Provider != ProviderOpenAI || cfg.BaseURL != DefaultOpenAIBaseURL {
		t.Fatalf("after override: %+v", cfg)
	}

	custom := Config{Provider: ProviderOpenRouter, BaseURL: "http://localhost:8080/v1"}
	custom.OverrideProvider(ProviderOpenAI)
	if custom.BaseURL != "http://localhost:8080/v1" {
		t.Fatalf("custom base URL should survive: %q", custom.BaseURL)
	}
}

func TestAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "g-key")
	key, err := APIKey(ProviderGemini)
	if err != nil || key != "g-key" {
		t.Fatalf("APIKey(gemini) = %q, %v", key, err)
	}

	t.Setenv("OPENROUTER_API_KEY", "")
	if _, err := APIKey(ProviderOpenRouter); err == nil || !strings.Contains(err.Error(), "OPENROUTER_API_KEY") {
		t.Fatalf("expected missing key error, got %v", err)
	}
	if key, err := APIKey(ProviderMock); err != nil || key != "" {
		t.Fatalf("mock needs no key: %q, %v", key, err)
	}
}

func TestLoadEnvDoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	env := "BUGX_TEST_PRESET=from-file\nBUGX_TEST_FRESH=fresh\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("BUGX_TEST_PRESET", "from-env")
	t.Setenv("BUGX_TEST_FRESH", "")
	os.Unsetenv("BUGX_TEST_FRESH")

	if err := LoadEnv(dir, dir, t.TempDir()); err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}
	if got := os.Getenv("BUGX_TEST_PRESET"); got != "from-env" {
		t.Fatalf("preset variable overridden: %q", got)
	}
	if got := os.Getenv("BUGX_TEST_FRESH"); got != "fresh" {
		t.Fatalf("fresh variable = %q", got)
	}
}
