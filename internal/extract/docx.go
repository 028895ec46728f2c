package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// docxDocumentXMLPath is the default path to the main document body inside a .docx zip.
const docxDocumentXMLPath = "word/document.xml"

// contentTypesPath is the path to [Content_Types].xml in OOXML packages.
const contentTypesPath = "[Content_Types].xml"

// docxMainContentType is the content type for the main document in DOCX files.
const docxMainContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"

// wordprocessingNS is the WordprocessingML namespace; elements from other namespaces are ignored.
const wordprocessingNS = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

// markupCompatNS holds mc:AlternateContent. Word writes text boxes twice, once in
// mc:Choice and once in mc:Fallback, so the fallback branch is skipped.
const markupCompatNS = "http://schemas.openxmlformats.org/markup-compatibility/2006"

// partNameRe extracts PartName from Override elements in [Content_Types].xml.
var partNameRe = regexp.MustCompile(`<Override[^>]+PartName="([^"]+)"[^>]+ContentType="` + regexp.QuoteMeta(docxMainContentType) + `"`)

// partNameRe2 handles the case where ContentType appears before PartName.
var partNameRe2 = regexp.MustCompile(`<Override[^>]+ContentType="` + regexp.QuoteMeta(docxMainContentType) + `"[^>]+PartName="([^"]+)"`)

// findDocxMainDocumentPath finds the main document path from [Content_Types].xml.
// Returns the path without leading slash, or empty string if not found.
func findDocxMainDocumentPath(zr *zip.Reader) string {
	data, err := readZipFile(zr, contentTypesPath)
	if err != nil || data == nil {
		return ""
	}
	content := string(data)
	if matches := partNameRe.FindStringSubmatch(content); len(matches) > 1 {
		return strings.TrimPrefix(matches[1], "/")
	}
	if matches := partNameRe2.FindStringSubmatch(content); len(matches) > 1 {
		return strings.TrimPrefix(matches[1], "/")
	}
	return ""
}

// readZipFile returns the bytes of the named entry, or nil when it does not exist.
func readZipFile(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		_, err = buf.ReadFrom(rc)
		_ = rc.Close()
		if err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	return nil, nil
}

// extractDOCX extracts paragraph text from .docx bytes. Headings are rendered as
// Markdown "#" lines and list paragraphs as "- " items so the structure survives
// into the prompt. Paragraphs are separated by a blank line.
func extractDOCX(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("extract DOCX: not a zip: %w", err)
	}

	docPath := findDocxMainDocumentPath(zr)
	if docPath == "" {
		docPath = docxDocumentXMLPath
	}
	docXML, err := readZipFile(zr, docPath)
	if err != nil {
		return "", fmt.Errorf("extract DOCX: read %s: %w", docPath, err)
	}
	if docXML == nil {
		return "", fmt.Errorf("extract DOCX: %s not found", docPath)
	}
	paragraphs, err := walkDocxParagraphs(bytes.NewReader(docXML))
	if err != nil {
		return "", fmt.Errorf("extract DOCX: %w", err)
	}
	return strings.Join(paragraphs, "\n\n"), nil
}

// docxParagraph accumulates one w:p while walking the document.
type docxParagraph struct {
	text  strings.Builder
	style string
	list  bool
}

func (p *docxParagraph) render() string {
	text := strings.TrimSpace(p.text.String())
	if text == "" {
		return ""
	}
	if level := docxHeadingLevel(p.style); level > 0 {
		return strings.Repeat("#", level) + " " + text
	}
	if p.list {
		return "- " + text
	}
	return text
}

// walkDocxParagraphs streams document.xml and returns one string per non-empty paragraph.
// Nested paragraphs (text boxes) are folded into their enclosing paragraph.
func walkDocxParagraphs(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)
	var (
		out      []string
		para     *docxParagraph
		pDepth   int
		runDepth int
		inText   bool
		skip     int // depth inside mc:Fallback
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse document XML: %w", err)
		}
		if skip > 0 {
			switch tok.(type) {
			case xml.StartElement:
				skip++
			case xml.EndElement:
				skip--
			}
			continue
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if isFallbackElement(t.Name) {
				skip = 1
				continue
			}
			if !isWordElement(t.Name) {
				continue
			}
			switch t.Name.Local {
			case "p":
				if pDepth == 0 {
					para = &docxParagraph{}
				}
				pDepth++
			case "pStyle":
				if para != nil && para.style == "" {
					para.style = attrValue(t, "val")
				}
			case "numPr":
				if para != nil {
					para.list = true
				}
			case "r":
				runDepth++
			case "t":
				inText = true
			case "tab":
				if para != nil && runDepth > 0 {
					para.text.WriteByte('\t')
				}
			case "br", "cr":
				if para != nil && runDepth > 0 {
					para.text.WriteByte('\n')
				}
			}
		case xml.EndElement:
			if !isWordElement(t.Name) {
				continue
			}
			switch t.Name.Local {
			case "t":
				inText = false
			case "r":
				if runDepth > 0 {
					runDepth--
				}
			case "p":
				if pDepth == 0 {
					continue
				}
				pDepth--
				if pDepth == 0 && para != nil {
					if s := para.render(); s != "" {
						out = append(out, s)
					}
					para = nil
				}
			}
		case xml.CharData:
			if inText && para != nil {
				para.text.Write(t)
			}
		}
	}
	return out, nil
}

func isWordElement(name xml.Name) bool {
	return name.Space == wordprocessingNS || name.Space == "w"
}

func isFallbackElement(name xml.Name) bool {
	return name.Local == "Fallback" && (name.Space == markupCompatNS || name.Space == "mc")
}

func attrValue(el xml.StartElement, local string) string {
	for _, a := range el.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// docxHeadingLevel maps a paragraph style id to a heading level (0 for body text).
// "Title" is 1, "Subtitle" is 2, and "Heading1".."Heading6" plus common localized
// style ids map to their number.
func docxHeadingLevel(style string) int {
	lower := strings.ToLower(strings.ReplaceAll(style, " ", ""))
	switch lower {
	case "":
		return 0
	case "title":
		return 1
	case "subtitle":
		return 2
	}
	// Word drops non-ASCII letters from generated style ids ("Überschrift1" -> "berschrift1").
	for _, prefix := range []string{"heading", "titre", "berschrift", "überschrift", "titolo", "ttulo", "título", "kop"} {
		if !strings.HasPrefix(lower, prefix) {
			continue
		}
		rest := lower[len(prefix):]
		if len(rest) == 1 && rest[0] >= '1' && rest[0] <= '6' {
			return int(rest[0] - '0')
		}
	}
	return 0
}
