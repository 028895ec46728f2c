// Package fileid derives deterministic page and document IDs from file paths,
// so re-importing a file updates the same page.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
)

const (
	pagePrefix     = "page-"
	documentPrefix = "doc-"
	// hashLen hex characters keep IDs short enough for URLs.
	hashLen = 24
)

func hash(path string) string {
	sum := sha256.Sum256([]byte(filepath.Clean(path)))
	return hex.EncodeToString(sum[:])[:hashLen]
}

// PageID returns the page ID for the file at absolutePath.
func PageID(absolutePath string) string {
	return pagePrefix + hash(absolutePath)
}

// DocumentID returns the document ID for the file at absolutePath.
func DocumentID(absolutePath string) string {
	return documentPrefix + hash(absolutePath)
}
