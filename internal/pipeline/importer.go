// Package pipeline runs documents through extraction and section generation and
// applies the result to a page.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/sectionkit/internal/ai"
	"github.com/hyperjump/sectionkit/internal/editor"
	"github.com/hyperjump/sectionkit/internal/extract"
	"github.com/hyperjump/sectionkit/internal/fileid"
	"github.com/hyperjump/sectionkit/internal/models"
	"github.com/hyperjump/sectionkit/internal/storage"
)

// ErrExtensionNotAllowed is returned when a file's extension is not in the import filter.
var ErrExtensionNotAllowed = errors.New("extension not allowed")

// Generator turns document text into sections. *ai.Generator implements it.
type Generator interface {
	Generate(ctx context.Context, text string) (*ai.GenerationResult, error)
}

// Options control a single import.
type Options struct {
	// PageID is the target page. Empty means the page derived from the file path,
	// or a new page for uploads.
	PageID string
	// Mode is how generated sections are applied; empty means replace.
	Mode editor.ApplyMode
	// Force re-imports files whose mtime and size have not changed.
	Force bool
	// Extensions overrides the importer's extension filter.
	Extensions []string
}

// Result describes one imported document.
type Result struct {
	Document   *models.Document     `json:"document"`
	Page       *models.Page         `json:"page,omitempty"`
	Generation *ai.GenerationResult `json:"generation,omitempty"`
	Skipped    bool                 `json:"skipped"`
}

// Summary counts the outcome of a directory import.
type Summary struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// Importer stores extracted documents, generates sections and saves them to pages.
type Importer struct {
	store      storage.Storage
	extractor  *extract.Extractor
	generator  Generator
	editor     *editor.Manager
	extensions []string
	logger     *zap.Logger
}

// Option configures an Importer.
type Option func(*Importer)

func WithLogger(l *zap.Logger) Option {
	return func(imp *Importer) { imp.logger = l }
}

// WithExtensions sets the default extension filter for file and directory imports.
func WithExtensions(exts []string) Option {
	return func(imp *Importer) { imp.extensions = exts }
}

// NewImporter creates an importer. Pages are edited through manager so imports and
// interactive edits share sessions.
func NewImporter(store storage.Storage, extractor *extract.Extractor, generator Generator, manager *editor.Manager, opts ...Option) *Importer {
	imp := &Importer{
		store:      store,
		extractor:  extractor,
		generator:  generator,
		editor:     manager,
		extensions: extract.SupportedExtensions(),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(imp)
	}
	return imp
}

const (
	metaKeySourceMtime = "source_mtime"
	metaKeySourceSize  = "source_size"
)

// ImportFile extracts the file at path and applies generated sections to its page.
// Files already imported with the same mtime and size are skipped unless opts.Force is set.
func (imp *Importer) ImportFile(ctx context.Context, path string, opts Options) (*Result, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	if !extensionAllowed(filepath.Ext(absPath), imp.filter(opts)) {
		return nil, fmt.Errorf("%w: %s", ErrExtensionNotAllowed, filepath.Ext(absPath))
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("not a regular file: %s", absPath)
	}

	existing, err := imp.store.GetDocumentBySourcePath(ctx, absPath)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	if existing != nil && !opts.Force && unchanged(existing, info) {
		imp.logger.Debug("skipping unchanged file", zap.String("path", absPath))
		return &Result{Document: existing, Skipped: true}, nil
	}

	extracted, err := imp.extractor.Extract(absPath)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", filepath.Base(absPath), err)
	}

	doc := existing
	if doc == nil {
		doc = &models.Document{ID: fileid.DocumentID(absPath)}
	}
	doc.Filename = filepath.Base(absPath)
	doc.SourcePath = absPath
	doc.PageID = opts.PageID
	if doc.PageID == "" {
		doc.PageID = fileid.PageID(absPath)
	}
	// Source stamps are written only after the page is saved, so a failed
	// generation is retried on the next import.
	doc.Metadata = map[string]interface{}{}
	setExtracted(doc, extracted)

	res, err := imp.apply(ctx, doc, existing != nil, opts.Mode)
	if err != nil {
		return res, err
	}
	// Stored as strings: UnixNano does not survive a JSON float64.
	doc.Metadata[metaKeySourceMtime] = strconv.FormatInt(info.ModTime().UnixNano(), 10)
	doc.Metadata[metaKeySourceSize] = strconv.FormatInt(info.Size(), 10)
	if err := imp.store.UpdateDocument(ctx, doc); err != nil {
		return res, fmt.Errorf("failed to update document: %w", err)
	}
	imp.logger.Info("file imported",
		zap.String("path", absPath),
		zap.String("page_id", doc.PageID),
		zap.Int("sections", len(res.Generation.Sections)))
	return res, nil
}

// ImportBytes imports an uploaded document. Without opts.PageID a new page is created.
func (imp *Importer) ImportBytes(ctx context.Context, content []byte, filename string, opts Options) (*Result, error) {
	extracted, err := imp.extractor.ExtractBytes(content, filename)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", filename, err)
	}
	doc := &models.Document{
		ID:       uuid.NewString(),
		Filename: filepath.Base(filename),
		PageID:   opts.PageID,
		Metadata: map[string]interface{}{"upload_size": len(content)},
	}
	if doc.PageID == "" {
		doc.PageID = uuid.NewString()
	}
	setExtracted(doc, extracted)
	return imp.apply(ctx, doc, false, opts.Mode)
}

func setExtracted(doc *models.Document, extracted *models.ExtractedText) {
	doc.Format = extracted.Format
	doc.Content = extracted.Text
	doc.Stats = extracted.Stats
}

// apply stores doc, generates sections from its content and saves them to doc.PageID.
// The document is stored first so a failed generation still leaves the extraction on record.
func (imp *Importer) apply(ctx context.Context, doc *models.Document, update bool, mode editor.ApplyMode) (*Result, error) {
	if update {
		if err := imp.store.UpdateDocument(ctx, doc); err != nil {
			return nil, fmt.Errorf("failed to update document: %w", err)
		}
	} else if err := imp.store.CreateDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to store document: %w", err)
	}

	gen, err := imp.generator.Generate(ctx, doc.Content)
	if err != nil {
		return &Result{Document: doc}, err
	}

	session, err := imp.editor.Session(ctx, doc.PageID)
	if err != nil {
		return &Result{Document: doc, Generation: gen}, err
	}
	if session.Snapshot().Title == "" {
		session.SetTitle(TitleFromFilename(doc.Filename))
	}
	if err := session.ApplyGenerated(gen.Sections, mode); err != nil {
		return &Result{Document: doc, Generation: gen}, err
	}
	page, err := imp.editor.Save(ctx, doc.PageID)
	if err != nil {
		return &Result{Document: doc, Generation: gen}, err
	}
	return &Result{Document: doc, Page: page, Generation: gen}, nil
}

// ImportDirectory walks dir and imports every regular file that passes the extension
// filter. A failing file is logged and counted; the walk continues and the errors
// are returned joined.
func (imp *Importer) ImportDirectory(ctx context.Context, dir string, recursive bool, opts Options) (Summary, error) {
	var sum Summary
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return sum, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return sum, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return sum, fmt.Errorf("not a directory: %s", absDir)
	}
	filter := imp.filter(opts)

	var errs []error
	err = filepath.WalkDir(absDir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if path != absDir && (!recursive || strings.HasPrefix(d.Name(), ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") || !extensionAllowed(filepath.Ext(path), filter) {
			return nil
		}
		// Resolve symlinks so only regular files are imported
		finfo, statErr := os.Stat(path)
		if statErr != nil || !finfo.Mode().IsRegular() {
			return nil
		}
		res, importErr := imp.ImportFile(ctx, path, opts)
		switch {
		case importErr != nil:
			sum.Failed++
			errs = append(errs, importErr)
			imp.logger.Warn("import failed", zap.String("path", path), zap.Error(importErr))
		case res.Skipped:
			sum.Skipped++
		default:
			sum.Imported++
		}
		return nil
	})
	if err != nil {
		errs = append(errs, err)
	}
	return sum, errors.Join(errs...)
}

// ForgetFile removes the stored document for a deleted source file. The page it
// produced is kept since it may have been edited since.
func (imp *Importer) ForgetFile(ctx context.Context, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("absolute path: %w", err)
	}
	doc, err := imp.store.GetDocumentBySourcePath(ctx, absPath)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := imp.store.DeleteDocument(ctx, doc.ID); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	imp.logger.Debug("document forgotten", zap.String("path", absPath), zap.String("id", doc.ID))
	return nil
}

// Allowed reports whether path passes the importer's default extension filter.
func (imp *Importer) Allowed(path string) bool {
	return extensionAllowed(filepath.Ext(path), imp.extensions)
}

func (imp *Importer) filter(opts Options) []string {
	if len(opts.Extensions) > 0 {
		return opts.Extensions
	}
	return imp.extensions
}

func unchanged(doc *models.Document, info os.FileInfo) bool {
	return metadataInt64(doc.Metadata, metaKeySourceMtime) == info.ModTime().UnixNano() &&
		metadataInt64(doc.Metadata, metaKeySourceSize) == info.Size()
}

func metadataInt64(m map[string]interface{}, key string) int64 {
	switch n := m[key].(type) {
	case string:
		x, _ := strconv.ParseInt(n, 10, 64)
		return x
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return -1
	}
}

// extensionAllowed reports whether ext is in allowed. An empty list allows everything.
func extensionAllowed(ext string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	extNorm := strings.ToLower(strings.TrimPrefix(ext, "."))
	if extNorm == "" {
		return false
	}
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == extNorm {
			return true
		}
	}
	return false
}

// TitleFromFilename turns "company_profile-2021.docx" into "company profile 2021".
func TitleFromFilename(name string) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	base = strings.NewReplacer("_", " ", "-", " ").Replace(base)
	return strings.Join(strings.Fields(base), " ")
}
