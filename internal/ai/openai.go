package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"

	"github.com/hyperjump/sectionkit/internal/config"
)

// OpenAI calls the chat completions API, or any server compatible with it when a base URL is set.
type OpenAI struct {
	client openai.Client
	model  string
}

func NewOpenAI(cfg config.AIConfig, apiKey string, httpClient *http.Client) *OpenAI {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(cfg.MaxRetriesOrDefault()),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")))
	}
	if cfg.Organization != "" {
		opts = append(opts, option.WithOrganization(cfg.Organization))
	}
	model := cfg.Model
	if model == "" {
		model = config.DefaultOpenAIModel
	}
	return &OpenAI{client: openai.NewClient(opts...), model: model}
}

func (o *OpenAI) Name() string  { return config.ProviderOpenAI }
func (o *OpenAI) Model() string { return o.model }

func (o *OpenAI) Complete(ctx context.Context, req Request) (*Response, error) {
	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.UserMessage(req.Prompt),
		},
		Temperature: openai.Float(req.Temperature),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}

	completion, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("openai: status %d: %w", apiErr.StatusCode, err)
		}
		return nil, fmt.Errorf("openai: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("openai: %w", ErrEmptyResponse)
	}
	choice := completion.Choices[0]
	if strings.TrimSpace(choice.Message.Content) == "" {
		if choice.Message.Refusal != "" {
			return nil, fmt.Errorf("openai: model refused: %s", choice.Message.Refusal)
		}
		return nil, fmt.Errorf("openai: %w", ErrEmptyResponse)
	}
	return &Response{
		Text:         choice.Message.Content,
		Model:        completion.Model,
		InputTokens:  completion.Usage.PromptTokens,
		OutputTokens: completion.Usage.CompletionTokens,
		Truncated:    choice.FinishReason == "length",
	}, nil
}
