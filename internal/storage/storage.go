// Package storage persists extracted documents and page section lists.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/sectionkit/internal/models"
)

var (
	// ErrNotFound is returned when a document or page does not exist.
	ErrNotFound = errors.New("not found")
	// ErrRevisionConflict is returned by SavePage when the stored revision has moved on.
	ErrRevisionConflict = errors.New("page revision conflict")
)

// Storage defines document and page persistence operations.
type Storage interface {
	// Document operations
	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	GetDocumentBySourcePath(ctx context.Context, path string) (*models.Document, error)
	UpdateDocument(ctx context.Context, doc *models.Document) error
	DeleteDocument(ctx context.Context, id string) error
	ListDocuments(ctx context.Context, offset, limit int) ([]*models.Document, error)

	// Page operations
	PageStore
	ListPages(ctx context.Context, offset, limit int) ([]*models.Page, error)
	DeletePage(ctx context.Context, id string) error

	// Stats
	CountDocuments(ctx context.Context) (int64, error)
	CountPages(ctx context.Context) (int64, error)

	Close() error
}

// PageStore loads and saves section lists.
type PageStore interface {
	// GetPage returns the page with its sections normalized to the current schema.
	GetPage(ctx context.Context, id string) (*models.Page, error)
	// SavePage stores page if the stored revision equals page.Revision (0 for a new page)
	// and returns the stored page with the incremented revision.
	SavePage(ctx context.Context, page *models.Page) (*models.Page, error)
}
