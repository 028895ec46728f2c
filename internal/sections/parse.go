package sections

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/hyperjump/sectionkit/internal/models"
)

var (
	// ErrNoJSON is returned when a response contains no decodable JSON object.
	ErrNoJSON = errors.New("no JSON object found in response")
	// ErrNoValidSections is returned when a response decodes but yields no usable section.
	ErrNoValidSections = errors.New("response contains no valid sections")
)

// ParseResult is the outcome of parsing one AI response.
type ParseResult struct {
	Sections []models.Section `json:"sections"`
	Dropped  []Dropped        `json:"dropped,omitempty"`
}

// ParseAIResponse extracts the first JSON object from text and validates the sections in it.
// The object is either {"sections": [...]} or a single section. Sections that fail
// validation are reported in Dropped; at most MaxSections are kept.
func ParseAIResponse(text string) (*ParseResult, error) {
	obj, err := ExtractJSONObject(text)
	if err != nil {
		return nil, err
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal([]byte(obj), &decoded); err != nil {
		return nil, ErrNoJSON
	}

	var raw []interface{}
	switch list := decoded["sections"].(type) {
	case []interface{}:
		raw = list
	case map[string]interface{}:
		raw = []interface{}{list}
	default:
		if _, ok := decoded["type"]; !ok {
			return nil, ErrNoValidSections
		}
		raw = []interface{}{decoded}
	}

	normalized, indexes, dropped := normalize(raw)
	res := &ParseResult{Sections: make([]models.Section, 0, len(normalized)), Dropped: dropped}
	for i, s := range normalized {
		if IsEmpty(s) {
			res.Dropped = append(res.Dropped, Dropped{Index: indexes[i], Type: s.Type, Reason: ReasonEmpty})
			continue
		}
		if len(res.Sections) == MaxSections {
			res.Dropped = append(res.Dropped, Dropped{Index: indexes[i], Type: s.Type, Reason: ReasonLimit})
			continue
		}
		res.Sections = append(res.Sections, s)
	}
	if len(res.Sections) == 0 {
		return nil, ErrNoValidSections
	}
	return res, nil
}

// ExtractJSONObject returns the first balanced {...} in text that decodes as JSON.
// Braces inside string literals are ignored, so Markdown code fences and prose around
// the object do not matter.
func ExtractJSONObject(text string) (string, error) {
	for start := strings.IndexByte(text, '{'); start >= 0; {
		if end := matchBrace(text, start); end > 0 {
			candidate := text[start : end+1]
			if json.Valid([]byte(candidate)) {
				return candidate, nil
			}
		}
		next := strings.IndexByte(text[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", ErrNoJSON
}

// matchBrace returns the index of the brace closing the one at start, or -1.
func matchBrace(text string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
