package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, m *Metrics, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			if labelsMatch(metric, labels) {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func labelsMatch(metric *dto.Metric, want map[string]string) bool {
	got := map[string]string{}
	for _, lp := range metric.GetLabel() {
		got[lp.GetName()] = lp.GetValue()
	}
	for k, v := range want {
		if got[k] != v {
			return false
		}
	}
	return true
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveExtraction("docx", nil)
		m.ObserveGeneration("openai", "success", time.Second)
		m.ObserveTokenUsage("openai", 10, 20)
		m.AddSections("hero", 1)
		m.AddDropped("unknown_type")
		m.ObserveAPIEndpointDuration("/health", "GET", "200", time.Millisecond)
	})
	assert.Nil(t, m.Registry())
}

func TestCounters(t *testing.T) {
	m := New()
	m.ObserveExtraction("docx", nil)
	m.ObserveExtraction("docx", nil)
	m.ObserveExtraction("txt", errors.New("boom"))
	m.AddSections("faq", 3)
	m.AddSections("faq", 0)
	m.AddDropped("empty")
	m.ObserveTokenUsage("anthropic", 100, 0)

	assert.Equal(t, 2.0, counterValue(t, m, "sectionkit_extract_documents_total", map[string]string{"format": "docx", "outcome": "success"}))
	assert.Equal(t, 1.0, counterValue(t, m, "sectionkit_extract_documents_total", map[string]string{"format": "txt", "outcome": "error"}))
	assert.Equal(t, 3.0, counterValue(t, m, "sectionkit_sections_generated_total", map[string]string{"type": "faq"}))
	assert.Equal(t, 1.0, counterValue(t, m, "sectionkit_sections_dropped_total", map[string]string{"reason": "empty"}))
	assert.Equal(t, 100.0, counterValue(t, m, "sectionkit_generate_input_tokens_total", map[string]string{"provider": "anthropic"}))
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveGeneration("openai", "success", 2*time.Second)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `sectionkit_generate_requests_total{outcome="success",provider="openai"} 1`), body)
	assert.Contains(t, body, "sectionkit_generate_duration_seconds_bucket")
}
