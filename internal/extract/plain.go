package extract

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	xunicode "golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	utf8BOM    = []byte{0xEF, 0xBB, 0xBF}
	utf16LEBOM = []byte{0xFF, 0xFE}
	utf16BEBOM = []byte{0xFE, 0xFF}
)

// extractPlain decodes text files to NFC-normalized UTF-8.
// BOM-marked UTF-8 and UTF-16 are honored; other input that is not valid UTF-8
// is read as Windows-1252, which covers ISO-8859-1.
func extractPlain(content []byte) (string, error) {
	text, err := decodeText(content)
	if err != nil {
		return "", err
	}
	return norm.NFC.String(text), nil
}

func decodeText(content []byte) (string, error) {
	if bytes.HasPrefix(content, utf8BOM) || bytes.HasPrefix(content, utf16LEBOM) || bytes.HasPrefix(content, utf16BEBOM) {
		out, _, err := transform.Bytes(xunicode.BOMOverride(transform.Nop), content)
		if err != nil {
			return "", fmt.Errorf("decode text: %w", err)
		}
		return strings.ToValidUTF8(string(out), "\uFFFD"), nil
	}
	if utf8.Valid(content) {
		return string(content), nil
	}
	out, err := charmap.Windows1252.NewDecoder().Bytes(content)
	if err != nil {
		return "", fmt.Errorf("decode text as windows-1252: %w", err)
	}
	return string(out), nil
}
