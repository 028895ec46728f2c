// Package e2e provides end-to-end tests; this file builds minimal files for the supported document types.
package e2e

import (
	"archive/zip"
	"bytes"
)

// SupportedFileExtensions is the list of file extensions used in E2E file-based tests.
// PDF is not generated here (no minimal PDF with extractable text).
var SupportedFileExtensions = []string{".txt", ".md", ".docx", ".pptx"}

// WriteMinimalFile returns the bytes of a minimal file of the given extension containing text.
// For plain types (.txt, .md) the content is the raw text; for Office types it is a zip package.
func WriteMinimalFile(ext, text string) ([]byte, error) {
	switch ext {
	case ".docx":
		return zipWith("word/document.xml",
			`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`+
				`<w:p><w:r><w:t>`+text+`</w:t></w:r></w:p></w:body></w:document>`)
	case ".pptx":
		return zipWith("ppt/slides/slide1.xml",
			`<p:sld><p:cSld><p:spTree><p:sp><p:txBody><a:p><a:r><a:t>`+text+
				`</a:t></a:r></a:p></p:txBody></p:sp></p:spTree></p:cSld></p:sld>`)
	default:
		return []byte(text), nil
	}
}

func zipWith(name, body string) ([]byte, error) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	fw, err := w.Create(name)
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write([]byte(body)); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
