package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// pptxSlidePathRe matches slide parts inside a .pptx zip and captures the slide number.
var pptxSlidePathRe = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// atTag matches <a:t>text</a:t> or <a:t xml:space="preserve">text</a:t> (and any other attributes).
var atTag = regexp.MustCompile(`<a:t[^>]*>([^<]*)</a:t>`)

type pptxSlide struct {
	num  int
	file *zip.File
}

// extractPPTX extracts text from .pptx bytes, one paragraph per slide in slide order.
func extractPPTX(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("extract PPTX: not a zip: %w", err)
	}
	var slides []pptxSlide
	for _, f := range zr.File {
		m := pptxSlidePathRe.FindStringSubmatch(f.Name)
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		slides = append(slides, pptxSlide{num: n, file: f})
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].num < slides[j].num })

	var paragraphs []string
	for _, s := range slides {
		rc, err := s.file.Open()
		if err != nil {
			return "", fmt.Errorf("extract PPTX: open %s: %w", s.file.Name, err)
		}
		var slideBuf bytes.Buffer
		_, err = slideBuf.ReadFrom(rc)
		_ = rc.Close()
		if err != nil {
			return "", fmt.Errorf("extract PPTX: read %s: %w", s.file.Name, err)
		}
		var parts []string
		for _, m := range atTag.FindAllStringSubmatch(slideBuf.String(), -1) {
			if t := strings.TrimSpace(unescapeXMLText(m[1])); t != "" {
				parts = append(parts, t)
			}
		}
		if len(parts) > 0 {
			paragraphs = append(paragraphs, strings.Join(parts, " "))
		}
	}
	return strings.Join(paragraphs, "\n\n"), nil
}

var xmlEntities = strings.NewReplacer("&lt;", "<", "&gt;", ">", "&quot;", `"`, "&apos;", "'", "&amp;", "&")

func unescapeXMLText(s string) string {
	return xmlEntities.Replace(s)
}
