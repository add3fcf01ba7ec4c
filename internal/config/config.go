package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"bugx/internal/runner"
)

// Provider keys.
const (
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"
	ProviderOpenAI     = "openai"
	ProviderMock       = "mock"
)

// Provider-specific default models.
const (
	DefaultGeminiModel     = "gemini-2.5-flash"
	DefaultOpenRouterModel = "deepseek/deepseek-chat-v3-0324"
	DefaultOpenAIModel     = "gpt-4o-mini"
	DefaultMockModel       = "mock-model"
)

// DefaultTemperature applies when the configuration omits temperature. An
// explicit 0 is kept.
const DefaultTemperature = 0.1

const (
	DefaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"
	DefaultOpenAIBaseURL     = "https://api.openai.com/v1"
)

// Config captures the tunable runtime settings for the agent.
type Config struct {
	Provider              string  `yaml:"provider"`
	Model                 string  `yaml:"model"`
	BaseURL               string  `yaml:"base_url"`
	Temperature           float64 `yaml:"temperature"`
	RequestTimeoutSeconds int     `yaml:"request_timeout_seconds"`
	WorkspaceRoot         string  `yaml:"workspace_root"`
	ShellTimeoutSeconds   int     `yaml:"shell_timeout_seconds"`
	ScriptTimeoutSeconds  int     `yaml:"script_timeout_seconds"`
	TestTimeoutSeconds    int     `yaml:"test_timeout_seconds"`
	ReadMaxChars          int     `yaml:"read_max_chars"`
	PythonInterpreter     string  `yaml:"python_interpreter"`
	MaxSteps              int     `yaml:"max_steps"`
	SearchMaxResults      int     `yaml:"search_max_results"`
	LogPath               string  `yaml:"log_path"`
	HistoryPath           string  `yaml:"history_path"`
	SystemPrompt          string  `yaml:"system_prompt"`
}

// EnsureDefaultConfig writes config.yaml with defaults for provider if it
// doesn't exist yet. It returns the path of the file.
func EnsureDefaultConfig(provider string) (string, error) {
	configPath := Path()
	if _, err := os.Stat(configPath); err == nil {
		return configPath, nil
	}
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return "", fmt.Errorf("create config directory: %w", err)
	}

	cfg := newConfig()
	cfg.Provider = strings.ToLower(strings.TrimSpace(provider))
	cfg.applyDefaults()
	cfg.Model = cfg.ModelFor(cfg.Provider)
	if err := cfg.validate(); err != nil {
		return "", err
	}
	if err := Save(cfg); err != nil {
		return "", err
	}
	return configPath, nil
}

// LoadUserConfig loads configuration from ~/.bugx/config.yaml, or from
// BUGX_CONFIG_PATH when set. A missing file yields defaults.
func LoadUserConfig() (Config, error) {
	return Load(Path())
}

// Load reads the YAML configuration at path and injects defaults. A missing
// file is not an error.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg := newConfig()
		cfg.applyDefaults()
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	// yaml.v3 leaves absent keys untouched, so seeded values survive.
	cfg := newConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// newConfig seeds the settings whose zero value is itself valid.
func newConfig() Config {
	return Config{Temperature: DefaultTemperature}
}

// applyDefaults fills in optional values to keep the YAML file concise.
func (c *Config) applyDefaults() {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	if c.Provider == "" {
		c.Provider = ProviderGemini
	}
	if c.BaseURL == "" {
		c.BaseURL = c.defaultBaseURL()
	}
	if c.RequestTimeoutSeconds <= 0 {
		c.RequestTimeoutSeconds = 90
	}
	if c.WorkspaceRoot == "" {
		c.WorkspaceRoot = "."
	}
	limits := runner.DefaultLimits()
	if c.ShellTimeoutSeconds <= 0 {
		c.ShellTimeoutSeconds = int(limits.Shell.Seconds())
	}
	if c.ScriptTimeoutSeconds <= 0 {
		c.ScriptTimeoutSeconds = int(limits.Script.Seconds())
	}
	if c.TestTimeoutSeconds <= 0 {
		c.TestTimeoutSeconds = int(limits.Tests.Seconds())
	}
	if c.ReadMaxChars <= 0 {
		c.ReadMaxChars = 10000
	}
	if strings.TrimSpace(c.PythonInterpreter) == "" {
		c.PythonInterpreter = runner.DefaultInterpreter
	}
	if c.MaxSteps <= 0 {
		c.MaxSteps = 30
	}
	if c.SearchMaxResults <= 0 {
		c.SearchMaxResults = 5
	}
	if c.LogPath == "" {
		c.LogPath = filepath.Join(GetConfigDir(), "bugx.log")
	}
	if c.HistoryPath == "" {
		c.HistoryPath = filepath.Join(GetConfigDir(), "history")
	}
}

func (c Config) defaultBaseURL() string {
	switch c.Provider {
	case ProviderOpenRouter:
		return DefaultOpenRouterBaseURL
	case ProviderOpenAI:
		return DefaultOpenAIBaseURL
	default:
		return ""
	}
}

func (c Config) validate() error {
	switch c.Provider {
	case ProviderGemini, ProviderOpenRouter, ProviderOpenAI, ProviderMock:
	default:
		return fmt.Errorf("provider must be one of gemini, openrouter, openai or mock (got %q)", c.Provider)
	}
	// Temperature validation (typical LLM range is 0-2.0)
	if c.Temperature < 0 || c.Temperature > 2.0 {
		return fmt.Errorf("temperature must be between 0 and 2.0 (got %f)", c.Temperature)
	}
	timeouts := []struct {
		key   string
		value int
	}{
		{"request_timeout_seconds", c.RequestTimeoutSeconds},
		{"shell_timeout_seconds", c.ShellTimeoutSeconds},
		{"script_timeout_seconds", c.ScriptTimeoutSeconds},
		{"test_timeout_seconds", c.TestTimeoutSeconds},
	}
	for _, t := range timeouts {
		if t.value > 600 {
			return fmt.Errorf("%s cannot exceed 600 (10 minutes)", t.key)
		}
	}
	if c.ReadMaxChars > 1_000_000 {
		return fmt.Errorf("read_max_chars cannot exceed 1000000")
	}
	if c.MaxSteps > 200 {
		return fmt.Errorf("max_steps cannot exceed 200")
	}
	if c.SearchMaxResults > 50 {
		return fmt.Errorf("search_max_results cannot exceed 50")
	}
	if strings.TrimSpace(c.HistoryPath) == "" {
		return fmt.Errorf("history_path must be set")
	}
	return nil
}

// RequestTimeout turns the integer value into a duration for HTTP clients.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// Limits exposes the execution bounds for the process runner.
func (c Config) Limits() runner.Limits {
	return runner.Limits{
		Shell:  time.Duration(c.ShellTimeoutSeconds) * time.Second,
		Script: time.Duration(c.ScriptTimeoutSeconds) * time.Second,
		Tests:  time.Duration(c.TestTimeoutSeconds) * time.Second,
	}
}

// OverrideWorkspaceRoot swaps the workspace root at runtime.
func (c *Config) OverrideWorkspaceRoot(root string) {
	if c == nil {
		return
	}
	if trimmed := strings.TrimSpace(root); trimmed != "" {
		c.WorkspaceRoot = trimmed
	}
}

// OverrideProvider switches provider, resetting a base URL that belonged to
// the previous provider.
func (c *Config) OverrideProvider(provider string) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if c == nil || provider == "" || provider == c.Provider {
		return
	}
	if c.BaseURL == c.defaultBaseURL() {
		c.BaseURL = ""
	}
	c.Provider = provider
	if c.BaseURL == "" {
		c.BaseURL = c.defaultBaseURL()
	}
}

// WorkspaceAbs returns the absolute workspace root.
func (c Config) WorkspaceAbs() (string, error) {
	abs, err := filepath.Abs(c.WorkspaceRoot)
	if err != nil {
		return "", fmt.Errorf("resolve workspace_root %q: %w", c.WorkspaceRoot, err)
	}
	return abs, nil
}

// ModelFor returns the configured model when provider is the active one,
// falling back to provider-appropriate defaults.
func (c Config) ModelFor(provider string) string {
	provider = strings.ToLower(provider)
	if provider == c.Provider {
		if model := strings.TrimSpace(c.Model); model != "" {
			return model
		}
	}
	switch provider {
	case ProviderGemini:
		return DefaultGeminiModel
	case ProviderOpenRouter:
		return DefaultOpenRouterModel
	case ProviderOpenAI:
		return DefaultOpenAIModel
	case ProviderMock:
		return DefaultMockModel
	default:
		return c.Model
	}
}

// APIKeyEnv lists the environment variables consulted for provider, in order.
func APIKeyEnv(provider string) []string {
	switch strings.ToLower(provider) {
	case ProviderGemini:
		return []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}
	case ProviderOpenRouter:
		return []string{"OPENROUTER_API_KEY"}
	case ProviderOpenAI:
		return []string{"OPENAI_API_KEY"}
	default:
		return nil
	}
}

// APIKey returns the first non-empty key for provider from the environment.
func APIKey(provider string) (string, error) {
	names := APIKeyEnv(provider)
	for _, name := range names {
		if key := strings.TrimSpace(os.Getenv(name)); key != "" {
			return key, nil
		}
	}
	if len(names) == 0 {
		return "", nil
	}
	return "", fmt.Errorf("no API key for %s: set %s", provider, strings.Join(names, " or "))
}

// LoadEnv reads .env files from the given directories. Variables that are
// already set are never overridden, and missing files are skipped.
func LoadEnv(dirs ...string) error {
	seen := map[string]bool{}
	var files []string
	for _, dir := range dirs {
		path := filepath.Join(dir, ".env")
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		if seen[path] {
			continue
		}
		seen[path] = true
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			files = append(files, path)
		}
	}
	if len(files) == 0 {
		return nil
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("load env: %w", err)
	}
	return nil
}

// Path is the config file location: BUGX_CONFIG_PATH or config.yaml in the
// config directory.
func Path() string {
	if configPath := os.Getenv("BUGX_CONFIG_PATH"); configPath != "" {
		return configPath
	}
	return filepath.Join(GetConfigDir(), "config.yaml")
}

func GetConfigDir() string {
	if configDir := os.Getenv("BUGX_CONFIG_DIR"); configDir != "" {
		return configDir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".bugx"
	}
	return filepath.Join(home, ".bugx")
}

// Save writes the config to the user's config file.
func Save(c Config) error {
	return SaveTo(Path(), c)
}

func SaveTo(path string, c Config) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
