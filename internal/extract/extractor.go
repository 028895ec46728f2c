// Package extract provides text extraction from uploaded documents.
package extract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/sectionkit/internal/metrics"
	"github.com/hyperjump/sectionkit/internal/models"
)

const (
	// DefaultMaxFileBytes is the upload size limit used when none is configured.
	DefaultMaxFileBytes = 10 << 20
	// DefaultPreviewChars is the preview length used when none is configured.
	DefaultPreviewChars = 500
)

var (
	// ErrUnsupportedFormat is returned for extensions the extractor cannot read.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrFileTooLarge is returned when the input exceeds the configured size limit.
	ErrFileTooLarge = errors.New("file too large")
	// ErrEmptyDocument is returned when no text remains after cleaning.
	ErrEmptyDocument = errors.New("document contains no text")
)

var formatsByExt = map[string]models.Format{
	".docx": models.FormatDOCX,
	".txt":  models.FormatText,
	".md":   models.FormatMD,
	".pdf":  models.FormatPDF,
	".pptx": models.FormatPPTX,
}

// SupportedExtensions returns the extensions the extractor accepts, with leading dots.
func SupportedExtensions() []string {
	return []string{".docx", ".txt", ".md", ".pdf", ".pptx"}
}

// FormatForFilename returns the format implied by filename's extension.
func FormatForFilename(filename string) (models.Format, bool) {
	f, ok := formatsByExt[strings.ToLower(filepath.Ext(filename))]
	return f, ok
}

// Extractor extracts plain text from document files.
type Extractor struct {
	maxFileBytes int64
	previewChars int
	metrics      *metrics.Metrics
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithMaxFileBytes sets the maximum accepted input size. Values <= 0 keep the default.
func WithMaxFileBytes(n int64) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.maxFileBytes = n
		}
	}
}

// WithPreviewChars sets the preview length in characters. Values <= 0 keep the default.
func WithPreviewChars(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.previewChars = n
		}
	}
}

// WithMetrics records extraction outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Extractor) { e.metrics = m }
}

// NewExtractor returns a new Extractor.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{
		maxFileBytes: DefaultMaxFileBytes,
		previewChars: DefaultPreviewChars,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract reads the file at path and returns its cleaned text, stats, and preview.
func (e *Extractor) Extract(path string) (*models.ExtractedText, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if info.Size() > e.maxFileBytes {
		return nil, fmt.Errorf("%w: %d bytes (limit %d)", ErrFileTooLarge, info.Size(), e.maxFileBytes)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return e.ExtractBytes(content, filepath.Base(path))
}

// ExtractBytes extracts text from content, dispatching on filename's extension.
func (e *Extractor) ExtractBytes(content []byte, filename string) (*models.ExtractedText, error) {
	format, ok := FormatForFilename(filename)
	if !ok {
		e.metrics.ObserveExtraction("unknown", ErrUnsupportedFormat)
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(filename))
	}
	res, err := e.extract(content, format)
	e.metrics.ObserveExtraction(string(format), err)
	return res, err
}

func (e *Extractor) extract(content []byte, format models.Format) (*models.ExtractedText, error) {
	if int64(len(content)) > e.maxFileBytes {
		return nil, fmt.Errorf("%w: %d bytes (limit %d)", ErrFileTooLarge, len(content), e.maxFileBytes)
	}
	var (
		raw string
		err error
	)
	switch format {
	case models.FormatDOCX:
		raw, err = extractDOCX(content)
	case models.FormatPDF:
		raw, err = extractPDF(content)
	case models.FormatPPTX:
		raw, err = extractPPTX(content)
	default:
		raw, err = extractPlain(content)
	}
	if err != nil {
		return nil, err
	}
	text := Clean(raw)
	if text == "" {
		return nil, ErrEmptyDocument
	}
	return &models.ExtractedText{
		Text:    text,
		Format:  format,
		Stats:   ComputeStats(text),
		Preview: Preview(text, e.previewChars),
	}, nil
}
