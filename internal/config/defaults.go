package config

import "strings"

// Provider names accepted in ai.provider.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Watch modes.
const (
	WatchModeReplace = "replace"
	WatchModeAppend  = "append"
)

const (
	DefaultOpenAIModel    = "gpt-4o-mini"
	DefaultAnthropicModel = "claude-3-5-haiku-latest"
	DefaultTemperature    = 0.7
	DefaultMaxRetries     = 2
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/sectionkit/data/db/sectionkit.db"
	}
	cfg.AI.Provider = strings.ToLower(strings.TrimSpace(cfg.AI.Provider))
	if cfg.AI.Provider == "" {
		cfg.AI.Provider = ProviderOpenAI
	}
	if cfg.AI.Model == "" {
		switch cfg.AI.Provider {
		case ProviderAnthropic:
			cfg.AI.Model = DefaultAnthropicModel
		case ProviderOpenAI:
			cfg.AI.Model = DefaultOpenAIModel
		}
	}
	if cfg.AI.MaxInputTokens == 0 {
		cfg.AI.MaxInputTokens = 6000
	}
	if cfg.AI.MaxOutputTokens == 0 {
		cfg.AI.MaxOutputTokens = 4000
	}
	if cfg.AI.TimeoutSeconds == 0 {
		cfg.AI.TimeoutSeconds = 120
	}
	if cfg.AI.RequestsPerMinute == 0 {
		cfg.AI.RequestsPerMinute = 20
	}
	if cfg.Extraction.MaxFileBytes == 0 {
		cfg.Extraction.MaxFileBytes = 10 << 20
	}
	if cfg.Extraction.PreviewChars == 0 {
		cfg.Extraction.PreviewChars = 500
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".docx", ".txt", ".md", ".pdf", ".pptx"}
	}
	cfg.Watch.Mode = strings.ToLower(strings.TrimSpace(cfg.Watch.Mode))
	if cfg.Watch.Mode == "" {
		cfg.Watch.Mode = WatchModeReplace
	}
	if cfg.Watch.DebounceMS == 0 {
		cfg.Watch.DebounceMS = 500
	}
	// Recursive defaults to true when unset (nil).
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
}
