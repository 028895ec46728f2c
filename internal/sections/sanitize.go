package sections

import (
	"errors"
	"fmt"
	"html"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"

	"github.com/hyperjump/sectionkit/internal/models"
)

var (
	// ErrUnknownType is returned for section types outside the registry.
	ErrUnknownType = errors.New("unknown section type")
	// ErrUnknownField is returned when an operation names a field the schema does not have.
	ErrUnknownField = errors.New("unknown section field")
	// ErrEmptySection is returned when a section has no non-empty content field.
	ErrEmptySection = errors.New("section has no content")
)

var (
	stripPolicy = bluemonday.StrictPolicy()
	htmlPolicy  = newHTMLPolicy()

	spaceRuns = regexp.MustCompile(`[ \t]+`)
	lineRuns  = regexp.MustCompile(`\n{3,}`)
)

func newHTMLPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("p", "br", "strong", "b", "em", "i", "u", "s", "ul", "ol", "li", "blockquote", "h3", "h4", "span")
	p.AllowAttrs("href").OnElements("a")
	p.AllowAttrs("target").Matching(regexp.MustCompile(`^_blank$`)).OnElements("a")
	p.AllowURLSchemes("http", "https", "mailto", "tel")
	p.AllowRelativeURLs(true)
	return p
}

// Sanitize validates s against its schema. Unknown fields are dropped, known fields
// are sanitized and missing fields get defaults. The section ID is kept as is.
func Sanitize(s models.Section) (models.Section, error) {
	data, err := SanitizeData(s.Type, s.Data)
	if err != nil {
		return models.Section{}, err
	}
	if isEmpty(registry[s.Type].Fields, data) {
		return models.Section{}, fmt.Errorf("%w: %s", ErrEmptySection, s.Type)
	}
	return models.Section{ID: s.ID, Type: s.Type, Data: data}, nil
}

// SanitizeData returns a sanitized copy of data for sectionType. Empty sections are allowed.
func SanitizeData(sectionType string, data map[string]interface{}) (map[string]interface{}, error) {
	schema, ok := registry[sectionType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, sectionType)
	}
	return sanitizeFields(schema.Fields, data), nil
}

// SanitizeValue sanitizes a single value for the named field of sectionType.
func SanitizeValue(sectionType, field string, value interface{}) (interface{}, error) {
	schema, ok := registry[sectionType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, sectionType)
	}
	f, ok := schema.Field(field)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownField, sectionType, field)
	}
	return sanitizeField(f, value), nil
}

// SanitizeItemValue sanitizes a value for key inside an item of the repeater field of sectionType.
func SanitizeItemValue(sectionType, field, key string, value interface{}) (interface{}, error) {
	schema, ok := registry[sectionType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, sectionType)
	}
	f, ok := schema.Field(field)
	if !ok || f.Kind != KindRepeater {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownField, sectionType, field)
	}
	for _, item := range f.Item {
		if item.Name == key {
			return sanitizeField(item, value), nil
		}
	}
	return nil, fmt.Errorf("%w: %s.%s[].%s", ErrUnknownField, sectionType, field, key)
}

// MaxItems returns the item limit of the repeater field of sectionType.
func MaxItems(sectionType, field string) (int, error) {
	schema, ok := registry[sectionType]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownType, sectionType)
	}
	f, ok := schema.Field(field)
	if !ok || f.Kind != KindRepeater {
		return 0, fmt.Errorf("%w: %s.%s", ErrUnknownField, sectionType, field)
	}
	return f.MaxItems, nil
}

// IsEmpty reports whether a sanitized section has no content. Enum fields do not count as content.
func IsEmpty(s models.Section) bool {
	schema, ok := registry[s.Type]
	if !ok {
		return true
	}
	return isEmpty(schema.Fields, s.Data)
}

func sanitizeFields(fields []Field, data map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(fields))
	for _, f := range fields {
		out[f.Name] = sanitizeField(f, data[f.Name])
	}
	return out
}

func sanitizeField(f Field, v interface{}) interface{} {
	switch f.Kind {
	case KindText:
		return sanitizeText(stringValue(v), limit(f.MaxLen, maxTextLen))
	case KindTextarea:
		return sanitizeTextarea(stringValue(v), limit(f.MaxLen, maxTextareaLen))
	case KindHTML:
		return sanitizeHTML(stringValue(v), limit(f.MaxLen, maxHTMLLen))
	case KindURL:
		return sanitizeURL(stringValue(v))
	case KindEnum:
		return sanitizeEnum(f, stringValue(v))
	case KindRepeater:
		return sanitizeRepeater(f, v)
	}
	return nil
}

func limit(n, fallback int) int {
	if n > 0 {
		return n
	}
	return fallback
}

func isEmpty(fields []Field, data map[string]interface{}) bool {
	for _, f := range fields {
		switch f.Kind {
		case KindEnum:
			continue
		case KindRepeater:
			if items, ok := data[f.Name].([]map[string]interface{}); ok && len(items) > 0 {
				return false
			}
		default:
			if s, ok := data[f.Name].(string); ok && s != "" {
				return false
			}
		}
	}
	return true
}

// stringValue renders scalar JSON values as strings. Objects and arrays become "".
func stringValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case fmt.Stringer:
		return t.String()
	}
	return ""
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n]))
}

func stripTags(s string) string {
	return html.UnescapeString(stripPolicy.Sanitize(s))
}

func removeControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}

func sanitizeText(s string, maxLen int) string {
	s = removeControl(stripTags(s))
	s = strings.Join(strings.Fields(s), " ")
	return truncateRunes(s, maxLen)
}

func sanitizeTextarea(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = removeControl(stripTags(s))
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(spaceRuns.ReplaceAllString(l, " "))
	}
	s = lineRuns.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return truncateRunes(strings.TrimSpace(s), maxLen)
}

func sanitizeHTML(s string, maxLen int) string {
	s = strings.TrimSpace(htmlPolicy.Sanitize(s))
	if strings.TrimSpace(stripTags(s)) == "" {
		return ""
	}
	if len([]rune(s)) > maxLen {
		// Cutting markup could leave a broken tag; fall back to plain text.
		return truncateRunes(sanitizeTextarea(s, 0), maxLen)
	}
	return s
}

var allowedURLSchemes = map[string]bool{"http": true, "https": true, "mailto": true, "tel": true}

// sanitizeURL keeps absolute http, https, mailto and tel URLs, root-relative paths and
// fragments. Everything else, including protocol-relative URLs, becomes "".
func sanitizeURL(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " ", "%20")
	if s == "" || len(s) > maxURLLen {
		return ""
	}
	if strings.HasPrefix(s, "#") {
		return s
	}
	if strings.HasPrefix(s, "/") {
		if strings.HasPrefix(s, "//") || strings.HasPrefix(s, `/\`) {
			return ""
		}
		return s
	}
	u, err := url.Parse(s)
	if err != nil || !allowedURLSchemes[strings.ToLower(u.Scheme)] {
		return ""
	}
	if (u.Scheme == "http" || u.Scheme == "https") && u.Host == "" {
		return ""
	}
	return s
}

func sanitizeEnum(f Field, s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, opt := range f.Options {
		if s == opt {
			return opt
		}
	}
	return f.Default
}

func sanitizeRepeater(f Field, v interface{}) []map[string]interface{} {
	items := coerceItems(f, v)
	out := make([]map[string]interface{}, 0, len(items))
	for _, item := range items {
		clean := sanitizeFields(f.Item, item)
		if isEmpty(f.Item, clean) {
			continue
		}
		out = append(out, clean)
		if f.MaxItems > 0 && len(out) == f.MaxItems {
			break
		}
	}
	return out
}
