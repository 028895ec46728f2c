package ai

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/sectionkit/internal/config"
	"github.com/hyperjump/sectionkit/internal/metrics"
	"github.com/hyperjump/sectionkit/internal/sections"
)

type stubProvider struct {
	mu    sync.Mutex
	text  string
	err   error
	block bool
	calls int
	last  Request
}

func (s *stubProvider) Name() string  { return "stub" }
func (s *stubProvider) Model() string { return "stub-model" }

func (s *stubProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	s.mu.Lock()
	s.calls++
	s.last = req
	s.mu.Unlock()
	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if s.err != nil {
		return nil, s.err
	}
	return &Response{Text: s.text, InputTokens: 10, OutputTokens: 20}, nil
}

const validReply = `{"sections": [
	{"type": "hero", "data": {"heading": "Acme Rockets", "subheading": "Reach orbit for less."}},
	{"type": "stats", "data": {"heading": "Numbers", "stats": [{"value": 42, "label": "Launches"}]}},
	{"type": "gallery", "data": {"heading": "Photos"}}
]}`

func TestGenerator_Generate(t *testing.T) {
	stub := &stubProvider{text: validReply}
	g := NewGenerator(stub, WithTokenLimits(1000, 1234), WithTemperature(0.3), WithMetrics(metrics.New()))

	res, err := g.Generate(context.Background(), "Acme builds rockets. 42 launches so far.")
	require.NoError(t, err)

	require.Len(t, res.Sections, 2)
	assert.Equal(t, "hero", res.Sections[0].Type)
	assert.Equal(t, "Acme Rockets", res.Sections[0].Data["heading"])
	assert.Equal(t, []map[string]interface{}{{"value": "42", "label": "Launches", "suffix": ""}}, res.Sections[1].Data["stats"])
	assert.Equal(t, []sections.Dropped{{Index: 2, Type: "gallery", Reason: sections.ReasonUnknownType}}, res.Dropped)
	assert.False(t, res.Truncated)
	assert.Equal(t, "stub", res.Provider)
	assert.Equal(t, "stub-model", res.Model)
	assert.Equal(t, int64(10), res.InputTokens)

	assert.Equal(t, 1, stub.calls)
	assert.Equal(t, 1234, stub.last.MaxTokens)
	assert.Equal(t, 0.3, stub.last.Temperature)
	assert.Contains(t, stub.last.Prompt, "Acme builds rockets.")
	assert.Contains(t, stub.last.System, `{"sections": [`)
}

func TestGenerator_emptyInput(t *testing.T) {
	stub := &stubProvider{text: validReply}
	g := NewGenerator(stub)

	_, err := g.Generate(context.Background(), " \n\t ")
	assert.ErrorIs(t, err, ErrEmptyInput)
	assert.Equal(t, 0, stub.calls)
}

func TestGenerator_truncatesInput(t *testing.T) {
	stub := &stubProvider{text: validReply}
	g := NewGenerator(stub, WithTokenLimits(10, 100))

	res, err := g.Generate(context.Background(), strings.Repeat("lorem ipsum ", 100))
	require.NoError(t, err)
	assert.True(t, res.Truncated)
	assert.Contains(t, stub.last.Prompt, TruncationMarker)
}

func TestGenerator_invalidResponse(t *testing.T) {
	g := NewGenerator(&stubProvider{text: "Sorry, I can't do that."})
	_, err := g.Generate(context.Background(), "text")
	assert.ErrorIs(t, err, sections.ErrNoJSON)

	g = NewGenerator(&stubProvider{text: `{"sections": [{"type": "hero", "data": {}}]}`})
	_, err = g.Generate(context.Background(), "text")
	assert.ErrorIs(t, err, sections.ErrNoValidSections)
}

func TestGenerator_providerError(t *testing.T) {
	boom := errors.New("connection reset")
	g := NewGenerator(&stubProvider{err: boom})
	_, err := g.Generate(context.Background(), "text")
	assert.ErrorIs(t, err, boom)
}

func TestGenerator_timeout(t *testing.T) {
	g := NewGenerator(&stubProvider{block: true}, WithTimeout(20*time.Millisecond))
	start := time.Now()
	_, err := g.Generate(context.Background(), "text")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestGenerator_rateLimit(t *testing.T) {
	stub := &stubProvider{text: validReply}
	g := NewGenerator(stub, WithRateLimit(1))

	_, err := g.Generate(context.Background(), "first")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = g.Generate(ctx, "second")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit")
	assert.Equal(t, 1, stub.calls)
}

func TestNewGeneratorFromConfig(t *testing.T) {
	clearKeyEnv(t)

	_, err := NewGeneratorFromConfig(config.AIConfig{Provider: "openai"}, nil)
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	g, err := NewGeneratorFromConfig(config.AIConfig{Provider: "anthropic", APIKey: "k", RequestsPerMinute: 10, MaxInputTokens: 100}, nil)
	require.NoError(t, err)
	assert.Equal(t, "anthropic", g.Provider().Name())
	assert.Equal(t, config.DefaultAnthropicModel, g.Provider().Model())
	assert.NotNil(t, g.limiter)
	assert.Equal(t, 100, g.maxInputTokens)
}
