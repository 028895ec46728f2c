package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	anthropicSDK "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/hyperjump/sectionkit/internal/config"
)

// DefaultAnthropicMaxTokens is used when a request does not set MaxTokens; the messages API requires one.
const DefaultAnthropicMaxTokens = 4096

// Anthropic calls the messages API.
type Anthropic struct {
	client anthropicSDK.Client
	model  string
}

func NewAnthropic(cfg config.AIConfig, apiKey string, httpClient *http.Client) *Anthropic {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(cfg.MaxRetriesOrDefault()),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")))
	}
	model := cfg.Model
	if model == "" {
		model = config.DefaultAnthropicModel
	}
	return &Anthropic{client: anthropicSDK.NewClient(opts...), model: model}
}

func (a *Anthropic) Name() string  { return config.ProviderAnthropic }
func (a *Anthropic) Model() string { return a.model }

func (a *Anthropic) Complete(ctx context.Context, req Request) (*Response, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultAnthropicMaxTokens
	}
	params := anthropicSDK.MessageNewParams{
		Model:     anthropicSDK.Model(a.model),
		MaxTokens: int64(maxTokens),
		System: []anthropicSDK.TextBlockParam{{
			Text: req.System,
		}},
		Messages: []anthropicSDK.MessageParam{
			anthropicSDK.NewUserMessage(anthropicSDK.NewTextBlock(req.Prompt)),
		},
		Temperature: anthropicSDK.Float(req.Temperature),
	}

	message, err := a.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropicSDK.Error
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("anthropic: status %d: %w", apiErr.StatusCode, err)
		}
		return nil, fmt.Errorf("anthropic: %w", err)
	}

	var text strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return nil, fmt.Errorf("anthropic: %w", ErrEmptyResponse)
	}
	return &Response{
		Text:         text.String(),
		Model:        string(message.Model),
		InputTokens:  message.Usage.InputTokens,
		OutputTokens: message.Usage.OutputTokens,
		Truncated:    message.StopReason == anthropicSDK.StopReasonMaxTokens,
	}, nil
}
