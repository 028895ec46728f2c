// Package ai turns extracted document text into page sections through a hosted
// language model.
package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/hyperjump/sectionkit/internal/config"
)

var (
	// ErrEmptyInput is returned when there is no text to generate from.
	ErrEmptyInput = errors.New("no input text")
	// ErrMissingAPIKey is returned when no API key is configured for the provider.
	ErrMissingAPIKey = errors.New("missing AI provider API key")
	// ErrUnknownProvider is returned for provider names other than openai and anthropic.
	ErrUnknownProvider = errors.New("unknown AI provider")
	// ErrEmptyResponse is returned when the provider answers without any text.
	ErrEmptyResponse = errors.New("AI provider returned no text")
)

// Request is one completion request.
type Request struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Response is the text and usage reported by a provider.
type Response struct {
	Text         string
	Model        string
	InputTokens  int64
	OutputTokens int64
	// Truncated is set when the provider stopped at the output token limit.
	Truncated bool
}

// Provider sends a single prompt to a hosted model.
type Provider interface {
	Name() string
	Model() string
	Complete(ctx context.Context, req Request) (*Response, error)
}

// NewProvider builds the provider selected by cfg.Provider. httpClient may be nil.
func NewProvider(cfg config.AIConfig, httpClient *http.Client) (Provider, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	name := strings.ToLower(strings.TrimSpace(cfg.Provider))
	switch name {
	case config.ProviderOpenAI, config.ProviderAnthropic:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
	key := cfg.ResolvedAPIKey()
	if key == "" {
		return nil, fmt.Errorf("%w for %s", ErrMissingAPIKey, name)
	}
	if name == config.ProviderAnthropic {
		return NewAnthropic(cfg, key, httpClient), nil
	}
	return NewOpenAI(cfg, key, httpClient), nil
}
