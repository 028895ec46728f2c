// Package config provides configuration loading and structs for the sectionkit server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables consulted when ai.api_key is empty.
const (
	EnvAPIKey          = "SECTIONKIT_AI_API_KEY"
	EnvOpenAIAPIKey    = "OPENAI_API_KEY"
	EnvAnthropicAPIKey = "ANTHROPIC_API_KEY"
)

// Config holds all configuration for the application.
type Config struct {
	Debug      bool             `yaml:"debug"`
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	AI         AIConfig         `yaml:"ai"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Watch      WatchConfig      `yaml:"watch"`
}

// WatchConfig holds inbox directory watch settings.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
	Recursive   *bool    `yaml:"recursive"`
	// Mode is how generated sections are applied to an existing page: "replace" or "append".
	Mode       string `yaml:"mode"`
	DebounceMS int    `yaml:"debounce_ms"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// Debounce returns the debounce interval for file events.
func (w *WatchConfig) Debounce() time.Duration {
	return time.Duration(w.DebounceMS) * time.Millisecond
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds the database location.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// AIConfig selects and tunes the section generation provider.
type AIConfig struct {
	Provider     string `yaml:"provider"`
	APIKey       string `yaml:"api_key"`
	Model        string `yaml:"model"`
	BaseURL      string `yaml:"base_url"`
	Organization string `yaml:"organization"`

	MaxInputTokens  int      `yaml:"max_input_tokens"`
	MaxOutputTokens int      `yaml:"max_output_tokens"`
	Temperature     *float64 `yaml:"temperature"`

	TimeoutSeconds    int  `yaml:"timeout_seconds"`
	MaxRetries        *int `yaml:"max_retries"`
	RequestsPerMinute int  `yaml:"requests_per_minute"`
}

// ResolvedAPIKey returns api_key, or the first non-empty of SECTIONKIT_AI_API_KEY and the
// provider's own variable (OPENAI_API_KEY or ANTHROPIC_API_KEY).
func (a *AIConfig) ResolvedAPIKey() string {
	if a.APIKey != "" {
		return a.APIKey
	}
	if k := os.Getenv(EnvAPIKey); k != "" {
		return k
	}
	switch strings.ToLower(a.Provider) {
	case ProviderOpenAI:
		return os.Getenv(EnvOpenAIAPIKey)
	case ProviderAnthropic:
		return os.Getenv(EnvAnthropicAPIKey)
	}
	return ""
}

// TemperatureOrDefault returns the configured temperature, or DefaultTemperature when unset.
func (a *AIConfig) TemperatureOrDefault() float64 {
	if a.Temperature != nil {
		return *a.Temperature
	}
	return DefaultTemperature
}

// MaxRetriesOrDefault returns the configured retry count, or DefaultMaxRetries when unset.
func (a *AIConfig) MaxRetriesOrDefault() int {
	if a.MaxRetries != nil {
		return *a.MaxRetries
	}
	return DefaultMaxRetries
}

// Timeout returns the per-request timeout.
func (a *AIConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// ExtractionConfig holds upload limits for the text extractor.
type ExtractionConfig struct {
	MaxFileBytes int64 `yaml:"max_file_bytes"`
	PreviewChars int   `yaml:"preview_chars"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	return &cfg, nil
}

// Validate rejects settings that ApplyDefaults cannot repair.
func Validate(cfg *Config) error {
	switch strings.ToLower(strings.TrimSpace(cfg.AI.Provider)) {
	case ProviderOpenAI, ProviderAnthropic:
	default:
		return fmt.Errorf("invalid config: unknown ai.provider %q", cfg.AI.Provider)
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Watch.Mode)) {
	case WatchModeReplace, WatchModeAppend:
	default:
		return fmt.Errorf("invalid config: watch.mode must be %q or %q, got %q", WatchModeReplace, WatchModeAppend, cfg.Watch.Mode)
	}
	if t := cfg.AI.TemperatureOrDefault(); t < 0 || t > 2 {
		return fmt.Errorf("invalid config: ai.temperature %.2f out of range [0, 2]", t)
	}
	return nil
}

// Save writes the config to path. Used for persisting watch directory add/remove.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
