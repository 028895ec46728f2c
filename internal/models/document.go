// Package models defines core data structures for extracted documents, sections, and pages.
package models

import "time"

// Format identifies the source format of an extracted document.
type Format string

const (
	FormatDOCX Format = "docx"
	FormatText Format = "txt"
	FormatMD   Format = "md"
	FormatPDF  Format = "pdf"
	FormatPPTX Format = "pptx"
)

// TextStats summarizes extracted text.
type TextStats struct {
	Words      int `json:"words"`
	Characters int `json:"characters"`
	Paragraphs int `json:"paragraphs"`
}

// ExtractedText is the result of running a file through the extractor.
type ExtractedText struct {
	Text    string    `json:"text"`
	Format  Format    `json:"format"`
	Stats   TextStats `json:"stats"`
	Preview string    `json:"preview"`
}

// Document is an uploaded or imported file whose text has been extracted.
// SourcePath is set for files imported from disk; PageID names the page generated from it.
type Document struct {
	ID         string                 `json:"id" db:"id"`
	Filename   string                 `json:"filename" db:"filename"`
	Format     Format                 `json:"format" db:"format"`
	Content    string                 `json:"content" db:"content"`
	Stats      TextStats              `json:"stats" db:"-"`
	SourcePath string                 `json:"source_path,omitempty" db:"source_path"`
	PageID     string                 `json:"page_id,omitempty" db:"page_id"`
	Metadata   map[string]interface{} `json:"metadata,omitempty" db:"metadata"`
	CreatedAt  time.Time              `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time              `json:"updated_at" db:"updated_at"`
}
