package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
storage:
  database_path: "test.db"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Storage.DatabasePath == "" {
		t.Error("database_path should be set")
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_debugTrue(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
debug: true
server:
  host: "localhost"
  port: 8080
storage:
  database_path: "test.db"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug {
		t.Error("debug should be true when set in config")
	}
}

func TestLoad_mixedCaseNames(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
ai:
  provider: OpenAI
watch:
  mode: Append
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AI.Provider != ProviderOpenAI || cfg.Watch.Mode != WatchModeAppend {
		t.Errorf("provider = %q, mode = %q", cfg.AI.Provider, cfg.Watch.Mode)
	}

	raw := &Config{AI: AIConfig{Provider: "Anthropic"}, Watch: WatchConfig{Mode: "Replace"}}
	if err := Validate(raw); err != nil {
		t.Errorf("Validate without defaults: %v", err)
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "localhost"
  port: 8080
storage:
  database_path: "./data/db/sectionkit.db"
watch:
  directories: ["./dev/sample"]
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	wantDB := filepath.Join(dir, "data", "db", "sectionkit.db")
	if cfg.Storage.DatabasePath != wantDB {
		t.Errorf("database_path = %s, want %s", cfg.Storage.DatabasePath, wantDB)
	}
	if len(cfg.Watch.Directories) != 1 {
		t.Fatalf("watch directories: got %d", len(cfg.Watch.Directories))
	}
	wantWatch := filepath.Join(dir, "dev", "sample")
	if cfg.Watch.Directories[0] != wantWatch {
		t.Errorf("watch directory = %s, want %s", cfg.Watch.Directories[0], wantWatch)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Server.Host != "localhost" {
		t.Errorf("default host: got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("default port: got %d", cfg.Server.Port)
	}
	if cfg.AI.Provider != ProviderOpenAI || cfg.AI.Model != DefaultOpenAIModel {
		t.Errorf("default provider/model: got %s/%s", cfg.AI.Provider, cfg.AI.Model)
	}
	if cfg.AI.MaxInputTokens != 6000 || cfg.AI.MaxOutputTokens != 4000 {
		t.Errorf("default token limits: got %d/%d", cfg.AI.MaxInputTokens, cfg.AI.MaxOutputTokens)
	}
	if got := cfg.AI.TemperatureOrDefault(); got != DefaultTemperature {
		t.Errorf("default temperature: got %f", got)
	}
	if got := cfg.AI.MaxRetriesOrDefault(); got != DefaultMaxRetries {
		t.Errorf("default max retries: got %d", got)
	}
	if cfg.Extraction.MaxFileBytes != 10<<20 {
		t.Errorf("default max_file_bytes: got %d", cfg.Extraction.MaxFileBytes)
	}
	if cfg.Watch.Mode != WatchModeReplace {
		t.Errorf("default watch mode: got %s", cfg.Watch.Mode)
	}
	if len(cfg.Watch.Extensions) != 5 || cfg.Watch.Extensions[0] != ".docx" {
		t.Errorf("watch extensions: got %v", cfg.Watch.Extensions)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestApplyDefaults_anthropicModel(t *testing.T) {
	cfg := &Config{AI: AIConfig{Provider: " Anthropic "}}
	ApplyDefaults(cfg)
	if cfg.AI.Provider != ProviderAnthropic {
		t.Errorf("provider should be normalized, got %q", cfg.AI.Provider)
	}
	if cfg.AI.Model != DefaultAnthropicModel {
		t.Errorf("model = %s, want %s", cfg.AI.Model, DefaultAnthropicModel)
	}
}

func TestAIConfig_zeroValuesKept(t *testing.T) {
	zero := 0.0
	none := 0
	a := AIConfig{Temperature: &zero, MaxRetries: &none}
	if a.TemperatureOrDefault() != 0 {
		t.Error("explicit temperature 0 should be kept")
	}
	if a.MaxRetriesOrDefault() != 0 {
		t.Error("explicit max_retries 0 should be kept")
	}
}

func TestAIConfig_ResolvedAPIKey(t *testing.T) {
	t.Setenv(EnvAPIKey, "")
	t.Setenv(EnvOpenAIAPIKey, "sk-openai")
	t.Setenv(EnvAnthropicAPIKey, "sk-ant")

	a := AIConfig{Provider: ProviderOpenAI}
	if got := a.ResolvedAPIKey(); got != "sk-openai" {
		t.Errorf("openai key = %q", got)
	}
	a.Provider = ProviderAnthropic
	if got := a.ResolvedAPIKey(); got != "sk-ant" {
		t.Errorf("anthropic key = %q", got)
	}

	t.Setenv(EnvAPIKey, "sk-generic")
	if got := a.ResolvedAPIKey(); got != "sk-generic" {
		t.Errorf("generic key = %q", got)
	}

	a.APIKey = "from-config"
	if got := a.ResolvedAPIKey(); got != "from-config" {
		t.Errorf("config key should win, got %q", got)
	}
}

func TestLoad_invalid(t *testing.T) {
	tests := map[string]string{
		"provider":    "ai:\n  provider: cohere\n",
		"watch mode":  "watch:\n  mode: merge\n",
		"temperature": "ai:\n  temperature: 3.5\n",
		"yaml":        "server: [",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(content), 0600); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestApplyDefaults_WatchRecursiveWhenDirectoriesSet(t *testing.T) {
	cfg := &Config{Watch: WatchConfig{Directories: []string{"/tmp/docs"}}}
	ApplyDefaults(cfg)
	if cfg.Watch.Recursive == nil || !*cfg.Watch.Recursive {
		t.Error("recursive should default to true when directories are set")
	}
}

func TestWatchConfig_RecursiveOrDefault(t *testing.T) {
	t.Run("nil_returns_true", func(t *testing.T) {
		w := &WatchConfig{}
		if got := w.RecursiveOrDefault(); !got {
			t.Errorf("RecursiveOrDefault() = %v, want true", got)
		}
	})
	t.Run("true_returns_true", func(t *testing.T) {
		v := true
		w := &WatchConfig{Recursive: &v}
		if got := w.RecursiveOrDefault(); !got {
			t.Errorf("RecursiveOrDefault() = %v, want true", got)
		}
	})
	t.Run("false_returns_false", func(t *testing.T) {
		f := false
		w := &WatchConfig{Recursive: &f}
		if got := w.RecursiveOrDefault(); got {
			t.Errorf("RecursiveOrDefault() = %v, want false", got)
		}
	})
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "saved.yaml")
	cfg := &Config{
		Server:  ServerConfig{Host: "localhost", Port: 9090},
		Storage: StorageConfig{DatabasePath: "/tmp/db"},
		AI:      AIConfig{Provider: ProviderAnthropic, Model: "claude-test"},
		Watch:   WatchConfig{Directories: []string{"/tmp/inbox"}, Mode: WatchModeAppend},
	}
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Server.Port != 9090 {
		t.Errorf("loaded port: got %d", loaded.Server.Port)
	}
	if loaded.AI.Provider != ProviderAnthropic || loaded.AI.Model != "claude-test" {
		t.Errorf("loaded ai: got %+v", loaded.AI)
	}
	if len(loaded.Watch.Directories) != 1 || loaded.Watch.Directories[0] != "/tmp/inbox" || loaded.Watch.Mode != WatchModeAppend {
		t.Errorf("loaded watch: got %+v", loaded.Watch)
	}
}
