package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hyperjump/sectionkit/internal/config"
	"github.com/hyperjump/sectionkit/internal/metrics"
	"github.com/hyperjump/sectionkit/internal/models"
	"github.com/hyperjump/sectionkit/internal/sections"
)

// Generation outcomes recorded in metrics.
const (
	OutcomeSuccess         = "success"
	OutcomeError           = "error"
	OutcomeTimeout         = "timeout"
	OutcomeInvalidResponse = "invalid_response"
)

// GenerationResult is the validated output of one generation.
type GenerationResult struct {
	Sections     []models.Section   `json:"sections"`
	Dropped      []sections.Dropped `json:"dropped,omitempty"`
	Truncated    bool               `json:"truncated"`
	Provider     string             `json:"provider"`
	Model        string             `json:"model"`
	Duration     time.Duration      `json:"duration_ns"`
	InputTokens  int64              `json:"input_tokens"`
	OutputTokens int64              `json:"output_tokens"`
}

// Generator runs the text to sections pipeline against one provider.
type Generator struct {
	provider        Provider
	maxInputTokens  int
	maxOutputTokens int
	temperature     float64
	timeout         time.Duration
	limiter         *rate.Limiter
	metrics         *metrics.Metrics
	logger          *zap.Logger
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

func WithLogger(l *zap.Logger) GeneratorOption {
	return func(g *Generator) { g.logger = l }
}

func WithMetrics(m *metrics.Metrics) GeneratorOption {
	return func(g *Generator) { g.metrics = m }
}

// WithRateLimit allows at most perMinute provider requests per minute. Zero disables limiting.
func WithRateLimit(perMinute int) GeneratorOption {
	return func(g *Generator) {
		if perMinute <= 0 {
			g.limiter = nil
			return
		}
		g.limiter = rate.NewLimiter(rate.Limit(float64(perMinute)/60), perMinute)
	}
}

// WithTimeout bounds each provider request. Zero means no timeout beyond the caller's context.
func WithTimeout(d time.Duration) GeneratorOption {
	return func(g *Generator) { g.timeout = d }
}

func WithTokenLimits(maxInput, maxOutput int) GeneratorOption {
	return func(g *Generator) {
		g.maxInputTokens = maxInput
		g.maxOutputTokens = maxOutput
	}
}

func WithTemperature(t float64) GeneratorOption {
	return func(g *Generator) { g.temperature = t }
}

// NewGenerator returns a Generator for p with the default limits.
func NewGenerator(p Provider, opts ...GeneratorOption) *Generator {
	g := &Generator{
		provider:        p,
		maxInputTokens:  6000,
		maxOutputTokens: 4000,
		temperature:     config.DefaultTemperature,
		logger:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = zap.NewNop()
	}
	return g
}

// NewGeneratorFromConfig builds the configured provider and a Generator using cfg's limits.
func NewGeneratorFromConfig(cfg config.AIConfig, httpClient *http.Client, opts ...GeneratorOption) (*Generator, error) {
	p, err := NewProvider(cfg, httpClient)
	if err != nil {
		return nil, err
	}
	base := []GeneratorOption{
		WithTokenLimits(cfg.MaxInputTokens, cfg.MaxOutputTokens),
		WithTemperature(cfg.TemperatureOrDefault()),
		WithTimeout(cfg.Timeout()),
		WithRateLimit(cfg.RequestsPerMinute),
	}
	return NewGenerator(p, append(base, opts...)...), nil
}

// Provider returns the provider the generator calls.
func (g *Generator) Provider() Provider {
	return g.provider
}

// Generate truncates text to the input budget, prompts the provider and validates the reply.
func (g *Generator) Generate(ctx context.Context, text string) (*GenerationResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}
	input, truncated := TruncateToTokens(text, g.maxInputTokens)
	if truncated {
		g.logger.Info("document truncated for prompt",
			zap.Int("estimated_tokens", EstimateTokens(text)),
			zap.Int("max_input_tokens", g.maxInputTokens))
	}
	system, user := BuildPrompt(input)

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	reqCtx := ctx
	if g.timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	name := g.provider.Name()
	start := time.Now()
	resp, err := g.provider.Complete(reqCtx, Request{
		System:      system,
		Prompt:      user,
		MaxTokens:   g.maxOutputTokens,
		Temperature: g.temperature,
	})
	elapsed := time.Since(start)
	if err != nil {
		outcome := OutcomeError
		if errors.Is(err, context.DeadlineExceeded) {
			outcome = OutcomeTimeout
		}
		g.metrics.ObserveGeneration(name, outcome, elapsed)
		g.logger.Warn("section generation failed", zap.String("provider", name), zap.Duration("elapsed", elapsed), zap.Error(err))
		return nil, fmt.Errorf("generate sections: %w", err)
	}
	g.metrics.ObserveTokenUsage(name, resp.InputTokens, resp.OutputTokens)

	parsed, err := sections.ParseAIResponse(resp.Text)
	if err != nil {
		g.metrics.ObserveGeneration(name, OutcomeInvalidResponse, elapsed)
		g.logger.Warn("invalid AI response",
			zap.String("provider", name),
			zap.Bool("hit_output_limit", resp.Truncated),
			zap.Int("response_chars", len(resp.Text)),
			zap.Error(err))
		return nil, fmt.Errorf("parse AI response: %w", err)
	}
	g.metrics.ObserveGeneration(name, OutcomeSuccess, elapsed)

	counts := map[string]int{}
	for _, s := range parsed.Sections {
		counts[s.Type]++
	}
	for t, n := range counts {
		g.metrics.AddSections(t, n)
	}
	for _, d := range parsed.Dropped {
		g.metrics.AddDropped(d.Reason)
	}

	model := resp.Model
	if model == "" {
		model = g.provider.Model()
	}
	g.logger.Info("sections generated",
		zap.String("provider", name),
		zap.String("model", model),
		zap.Int("sections", len(parsed.Sections)),
		zap.Int("dropped", len(parsed.Dropped)),
		zap.Duration("elapsed", elapsed))

	return &GenerationResult{
		Sections:     parsed.Sections,
		Dropped:      parsed.Dropped,
		Truncated:    truncated,
		Provider:     name,
		Model:        model,
		Duration:     elapsed,
		InputTokens:  resp.InputTokens,
		OutputTokens: resp.OutputTokens,
	}, nil
}
