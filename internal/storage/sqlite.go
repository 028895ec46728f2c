package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/hyperjump/sectionkit/internal/models"
	"github.com/hyperjump/sectionkit/internal/sections"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	path   string
	logger *zap.Logger
}

// Option configures SQLiteStorage.
type Option func(*SQLiteStorage)

// WithLogger sets the logger used to report sections dropped while loading pages.
func WithLogger(l *zap.Logger) Option {
	return func(s *SQLiteStorage) { s.logger = l }
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string, opts ...Option) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	s := &SQLiteStorage{db: db, path: dbPath, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Path returns the database file path.
func (s *SQLiteStorage) Path() string {
	return s.path
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		filename TEXT NOT NULL,
		format TEXT NOT NULL,
		content TEXT NOT NULL,
		words INTEGER NOT NULL DEFAULT 0,
		characters INTEGER NOT NULL DEFAULT 0,
		paragraphs INTEGER NOT NULL DEFAULT 0,
		source_path TEXT,
		page_id TEXT,
		metadata TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents(created_at);
	CREATE INDEX IF NOT EXISTS idx_documents_source_path ON documents(source_path);

	CREATE TABLE IF NOT EXISTS pages (
		id TEXT PRIMARY KEY,
		title TEXT,
		sections TEXT NOT NULL,
		revision INTEGER NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_pages_updated_at ON pages(updated_at);
	`
	_, err := db.Exec(schema)
	return err
}

const documentColumns = `id, filename, format, content, words, characters, paragraphs,
	COALESCE(source_path, ''), COALESCE(page_id, ''), COALESCE(metadata, ''), created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDocument(row rowScanner) (*models.Document, error) {
	var doc models.Document
	var format, metadataJSON string
	if err := row.Scan(&doc.ID, &doc.Filename, &format, &doc.Content,
		&doc.Stats.Words, &doc.Stats.Characters, &doc.Stats.Paragraphs,
		&doc.SourcePath, &doc.PageID, &metadataJSON, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		return nil, err
	}
	doc.Format = models.Format(format)
	if metadataJSON != "" && metadataJSON != "null" {
		if err := json.Unmarshal([]byte(metadataJSON), &doc.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	return &doc, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// CreateDocument inserts a document.
func (s *SQLiteStorage) CreateDocument(ctx context.Context, doc *models.Document) error {
	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	now := time.Now()
	doc.CreatedAt = now
	doc.UpdatedAt = now

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (id, filename, format, content, words, characters, paragraphs,
			source_path, page_id, metadata, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.Filename, string(doc.Format), doc.Content,
		doc.Stats.Words, doc.Stats.Characters, doc.Stats.Paragraphs,
		nullString(doc.SourcePath), nullString(doc.PageID), string(metadataJSON), doc.CreatedAt, doc.UpdatedAt,
	)
	return err
}

// GetDocument returns a document by ID.
func (s *SQLiteStorage) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	doc, err := scanDocument(s.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	return doc, err
}

// GetDocumentBySourcePath returns the most recently imported document for a file path.
func (s *SQLiteStorage) GetDocumentBySourcePath(ctx context.Context, path string) (*models.Document, error) {
	doc, err := scanDocument(s.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE source_path = ?
		 ORDER BY updated_at DESC LIMIT 1`, path))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document for %s: %w", path, ErrNotFound)
	}
	return doc, err
}

// UpdateDocument updates an existing document.
func (s *SQLiteStorage) UpdateDocument(ctx context.Context, doc *models.Document) error {
	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	doc.UpdatedAt = time.Now()

	result, err := s.db.ExecContext(ctx,
		`UPDATE documents SET filename = ?, format = ?, content = ?, words = ?, characters = ?, paragraphs = ?,
			source_path = ?, page_id = ?, metadata = ?, updated_at = ?
		 WHERE id = ?`,
		doc.Filename, string(doc.Format), doc.Content,
		doc.Stats.Words, doc.Stats.Characters, doc.Stats.Paragraphs,
		nullString(doc.SourcePath), nullString(doc.PageID), string(metadataJSON), doc.UpdatedAt, doc.ID,
	)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("document %s: %w", doc.ID, ErrNotFound)
	}
	return nil
}

// DeleteDocument removes a document by ID.
func (s *SQLiteStorage) DeleteDocument(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	return err
}

// ListDocuments returns documents, newest first, with offset and limit.
func (s *SQLiteStorage) ListDocuments(ctx context.Context, offset, limit int) ([]*models.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+documentColumns+` FROM documents ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// GetPage returns a page by ID. Stored sections are passed through sections.NormalizeJSON,
// so data written by older schema versions is migrated on read.
func (s *SQLiteStorage) GetPage(ctx context.Context, id string) (*models.Page, error) {
	page, err := s.scanPage(s.db.QueryRowContext(ctx,
		`SELECT id, COALESCE(title, ''), sections, revision, created_at, updated_at FROM pages WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("page %s: %w", id, ErrNotFound)
	}
	return page, err
}

func (s *SQLiteStorage) scanPage(row rowScanner) (*models.Page, error) {
	var page models.Page
	var sectionsJSON string
	if err := row.Scan(&page.ID, &page.Title, &sectionsJSON, &page.Revision, &page.CreatedAt, &page.UpdatedAt); err != nil {
		return nil, err
	}
	list, dropped, err := sections.NormalizeJSON([]byte(sectionsJSON))
	if err != nil {
		return nil, fmt.Errorf("page %s: %w", page.ID, err)
	}
	for _, d := range dropped {
		s.logger.Warn("dropped stored section",
			zap.String("page_id", page.ID),
			zap.Int("index", d.Index),
			zap.String("type", d.Type),
			zap.String("reason", d.Reason))
	}
	page.Sections = list
	return &page, nil
}

// SavePage inserts or updates a page guarded by an optimistic revision check.
func (s *SQLiteStorage) SavePage(ctx context.Context, page *models.Page) (*models.Page, error) {
	list := page.Sections
	if list == nil {
		list = []models.Section{}
	}
	sectionsJSON, err := json.Marshal(list)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal sections: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var current int64
	var createdAt time.Time
	err = tx.QueryRowContext(ctx, `SELECT revision, created_at FROM pages WHERE id = ?`, page.ID).Scan(&current, &createdAt)
	exists := err == nil
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if current != page.Revision {
		return nil, fmt.Errorf("page %s: stored revision %d, saving over %d: %w", page.ID, current, page.Revision, ErrRevisionConflict)
	}

	now := time.Now()
	next := current + 1
	var res sql.Result
	if exists {
		res, err = tx.ExecContext(ctx,
			`UPDATE pages SET title = ?, sections = ?, revision = ?, updated_at = ? WHERE id = ? AND revision = ?`,
			page.Title, string(sectionsJSON), next, now, page.ID, current)
	} else {
		createdAt = now
		res, err = tx.ExecContext(ctx,
			`INSERT INTO pages (id, title, sections, revision, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO NOTHING`,
			page.ID, page.Title, string(sectionsJSON), next, createdAt, now)
	}
	if err != nil {
		return nil, err
	}
	// Zero rows means another save got in between the read and the write.
	if n, err := res.RowsAffected(); err != nil {
		return nil, err
	} else if n == 0 {
		return nil, fmt.Errorf("page %s: concurrent save over revision %d: %w", page.ID, page.Revision, ErrRevisionConflict)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &models.Page{
		ID:        page.ID,
		Title:     page.Title,
		Sections:  models.CloneSections(list),
		Revision:  next,
		CreatedAt: createdAt,
		UpdatedAt: now,
	}, nil
}

// ListPages returns pages, most recently updated first.
func (s *SQLiteStorage) ListPages(ctx context.Context, offset, limit int) ([]*models.Page, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, COALESCE(title, ''), sections, revision, created_at, updated_at
		 FROM pages ORDER BY updated_at DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pages []*models.Page
	for rows.Next() {
		page, err := s.scanPage(rows)
		if err != nil {
			return nil, err
		}
		pages = append(pages, page)
	}
	return pages, rows.Err()
}

// DeletePage removes a page by ID.
func (s *SQLiteStorage) DeletePage(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM pages WHERE id = ?`, id)
	return err
}

// CountDocuments returns the total number of documents.
func (s *SQLiteStorage) CountDocuments(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&count)
	return count, err
}

// CountPages returns the total number of pages.
func (s *SQLiteStorage) CountPages(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pages`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
