// Package metrics exposes Prometheus instrumentation for extraction, generation and the HTTP API.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	Namespace = "sectionkit"

	SubsystemExtract  = "extract"
	SubsystemGenerate = "generate"
	SubsystemSections = "sections"
	SubsystemAPI      = "api"
)

// Metrics holds the collectors registered on a private registry.
// All methods are safe to call on a nil *Metrics.
type Metrics struct {
	registry *prometheus.Registry

	extractionsTotal *prometheus.CounterVec

	generationsTotal   *prometheus.CounterVec
	generationDuration *prometheus.HistogramVec
	inputTokensTotal   *prometheus.CounterVec
	outputTokensTotal  *prometheus.CounterVec

	sectionsTotal *prometheus.CounterVec
	droppedTotal  *prometheus.CounterVec

	apiTime *prometheus.HistogramVec
}

// New creates a Metrics with its own registry, including process and Go runtime collectors.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}
	m.registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{Namespace: Namespace}))
	m.registry.MustRegister(collectors.NewGoCollector())

	m.extractionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: SubsystemExtract,
		Name:      "documents_total",
		Help:      "Documents processed by the text extractor.",
	}, []string{"format", "outcome"})

	m.generationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: SubsystemGenerate,
		Name:      "requests_total",
		Help:      "Section generation requests sent to an AI provider.",
	}, []string{"provider", "outcome"})

	m.generationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Subsystem: SubsystemGenerate,
		Name:      "duration_seconds",
		Help:      "Time spent waiting for AI provider responses.",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
	}, []string{"provider"})

	m.inputTokensTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: SubsystemGenerate,
		Name:      "input_tokens_total",
		Help:      "Input tokens reported by AI providers.",
	}, []string{"provider"})

	m.outputTokensTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: SubsystemGenerate,
		Name:      "output_tokens_total",
		Help:      "Output tokens reported by AI providers.",
	}, []string{"provider"})

	m.sectionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: SubsystemSections,
		Name:      "generated_total",
		Help:      "Valid sections produced from AI responses, by section type.",
	}, []string{"type"})

	m.droppedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: SubsystemSections,
		Name:      "dropped_total",
		Help:      "Sections discarded during validation, by reason.",
	}, []string{"reason"})

	m.apiTime = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Subsystem: SubsystemAPI,
		Name:      "time_seconds",
		Help:      "Time to execute the api handler.",
	}, []string{"route", "method", "status_code"})

	m.registry.MustRegister(
		m.extractionsTotal,
		m.generationsTotal,
		m.generationDuration,
		m.inputTokensTotal,
		m.outputTokensTotal,
		m.sectionsTotal,
		m.droppedTotal,
		m.apiTime,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func (m *Metrics) ObserveExtraction(format string, err error) {
	if m != nil {
		m.extractionsTotal.WithLabelValues(format, outcome(err)).Inc()
	}
}

// ObserveGeneration records one provider round trip. outcome is a short label such as
// "success", "error", "invalid_response" or "timeout".
func (m *Metrics) ObserveGeneration(provider, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.generationsTotal.WithLabelValues(provider, outcome).Inc()
	m.generationDuration.WithLabelValues(provider).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveTokenUsage(provider string, inputTokens, outputTokens int64) {
	if m == nil {
		return
	}
	if inputTokens > 0 {
		m.inputTokensTotal.WithLabelValues(provider).Add(float64(inputTokens))
	}
	if outputTokens > 0 {
		m.outputTokensTotal.WithLabelValues(provider).Add(float64(outputTokens))
	}
}

func (m *Metrics) AddSections(sectionType string, n int) {
	if m != nil && n > 0 {
		m.sectionsTotal.WithLabelValues(sectionType).Add(float64(n))
	}
}

func (m *Metrics) AddDropped(reason string) {
	if m != nil {
		m.droppedTotal.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) ObserveAPIEndpointDuration(route, method, statusCode string, elapsed time.Duration) {
	if m != nil {
		m.apiTime.WithLabelValues(route, method, statusCode).Observe(elapsed.Seconds())
	}
}
