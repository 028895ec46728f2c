package sections

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/hyperjump/sectionkit/internal/models"
)

// Reasons reported for dropped sections.
const (
	ReasonNotObject   = "not_object"
	ReasonUnknownType = "unknown_type"
	ReasonEmpty       = "empty"
	ReasonLimit       = "limit"
)

// Dropped describes an input entry that did not become a section.
type Dropped struct {
	Index  int    `json:"index"`
	Type   string `json:"type,omitempty"`
	Reason string `json:"reason"`
}

// Normalize reconciles raw section entries (decoded JSON) with the current schema.
// Entries may carry their fields under "data" (object, JSON string or null) or at the
// top level. Legacy type and field names are migrated, repeater values are coerced to
// lists of objects, and every field is sanitized. Sections without an ID, or with an ID
// already used earlier in the list, get a new UUID. Order is preserved; entries that
// are not objects or have an unknown type are dropped and reported.
func Normalize(raw []interface{}) ([]models.Section, []Dropped) {
	out, _, dropped := normalize(raw)
	return out, dropped
}

// normalize also returns the input index of each output section.
func normalize(raw []interface{}) ([]models.Section, []int, []Dropped) {
	out := make([]models.Section, 0, len(raw))
	indexes := make([]int, 0, len(raw))
	var dropped []Dropped
	seen := make(map[string]bool, len(raw))
	for i, entry := range raw {
		obj, ok := entry.(map[string]interface{})
		if !ok {
			dropped = append(dropped, Dropped{Index: i, Reason: ReasonNotObject})
			continue
		}
		rawType := stringValue(obj["type"])
		sectionType := ResolveType(rawType)
		schema, ok := registry[sectionType]
		if !ok {
			dropped = append(dropped, Dropped{Index: i, Type: rawType, Reason: ReasonUnknownType})
			continue
		}
		data := sectionData(obj)
		migrateSection(schema, data)
		clean := sanitizeFields(schema.Fields, data)

		id := strings.TrimSpace(stringValue(obj["id"]))
		if id == "" || seen[id] {
			id = uuid.NewString()
		}
		seen[id] = true
		out = append(out, models.Section{ID: id, Type: sectionType, Data: clean})
		indexes = append(indexes, i)
	}
	return out, indexes, dropped
}

// NormalizeSections runs typed sections through Normalize.
func NormalizeSections(in []models.Section) ([]models.Section, []Dropped) {
	raw := make([]interface{}, len(in))
	for i, s := range in {
		raw[i] = map[string]interface{}{"id": s.ID, "type": s.Type, "data": s.Data}
	}
	return Normalize(raw)
}

// NormalizeJSON decodes a stored section list, either a JSON array or an object with a
// "sections" array, and normalizes it. Empty input yields an empty list.
func NormalizeJSON(b []byte) ([]models.Section, []Dropped, error) {
	if len(strings.TrimSpace(string(b))) == 0 {
		return []models.Section{}, nil, nil
	}
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, nil, fmt.Errorf("decode sections: %w", err)
	}
	switch t := v.(type) {
	case nil:
		return []models.Section{}, nil, nil
	case []interface{}:
		s, d := Normalize(t)
		return s, d, nil
	case map[string]interface{}:
		if list, ok := t["sections"].([]interface{}); ok {
			s, d := Normalize(list)
			return s, d, nil
		}
	case string:
		// Double-encoded list.
		return NormalizeJSON([]byte(t))
	}
	return nil, nil, fmt.Errorf("decode sections: unexpected JSON %T", v)
}

// ResolveType lower-cases t and maps legacy aliases to registered type names.
func ResolveType(t string) string {
	t = strings.ToLower(strings.TrimSpace(t))
	if alias, ok := typeAliases[t]; ok {
		return alias
	}
	return t
}

// sectionData returns a mutable copy of the entry's field map.
func sectionData(obj map[string]interface{}) map[string]interface{} {
	data := map[string]interface{}{}
	raw, hasData := obj["data"]
	switch t := raw.(type) {
	case map[string]interface{}:
		for k, v := range t {
			data[k] = v
		}
	case string:
		var m map[string]interface{}
		if err := json.Unmarshal([]byte(t), &m); err == nil {
			for k, v := range m {
				data[k] = v
			}
		}
	}
	if !hasData {
		for k, v := range obj {
			if k != "id" && k != "type" {
				data[k] = v
			}
		}
	}
	return data
}

// fieldAliases lists legacy field names per section type, tried in order.
var fieldAliases = map[string]map[string][]string{
	"hero": {
		"heading":          {"title", "headline"},
		"subheading":       {"subtitle", "tagline", "description", "text"},
		"background_image": {"image", "background", "bg_image", "image_url"},
	},
	"content": {
		"heading": {"title", "headline"},
		"body":    {"content", "text", "html", "description"},
		"image":   {"image_url"},
	},
	"features": {
		"heading":    {"title", "headline"},
		"subheading": {"subtitle", "description"},
		"cards":      {"features", "items"},
	},
	"faq": {
		"heading": {"title", "headline"},
		"items":   {"questions", "faqs", "faq"},
	},
	"stats": {
		"heading": {"title", "headline"},
		"stats":   {"items", "numbers"},
	},
	"testimonials": {
		"heading":      {"title", "headline"},
		"testimonials": {"items", "reviews", "quotes"},
	},
	"cta": {
		"heading": {"title", "headline"},
		"body":    {"text", "content", "description", "subheading"},
	},
}

// itemAliases lists legacy item field names per repeater field name.
var itemAliases = map[string]map[string][]string{
	"buttons": {
		"text": {"label", "title"},
		"url":  {"link", "href"},
	},
	"cards": {
		"title":       {"heading", "name"},
		"description": {"text", "content", "body"},
		"link":        {"url", "href"},
	},
	"items": {
		"question": {"q", "title"},
		"answer":   {"a", "content", "text"},
	},
	"stats": {
		"value": {"number", "stat"},
		"label": {"title", "description", "text"},
	},
	"testimonials": {
		"quote":  {"text", "content"},
		"author": {"name"},
		"role":   {"position", "title", "company"},
		"avatar": {"image", "photo"},
	},
}

func migrateSection(schema *Schema, data map[string]interface{}) {
	renameFields(data, fieldAliases[schema.Type])

	if hasButtons(schema) {
		migrateLegacyButtons(data)
	}

	for _, f := range schema.Fields {
		if f.Kind != KindRepeater {
			continue
		}
		items := coerceItems(f, data[f.Name])
		for _, item := range items {
			renameFields(item, itemAliases[f.Name])
		}
		data[f.Name] = items
	}
}

func renameFields(data map[string]interface{}, aliases map[string][]string) {
	for field, olds := range aliases {
		if !isBlank(data[field]) {
			continue
		}
		for _, old := range olds {
			if v, ok := data[old]; ok && !isBlank(v) {
				data[field] = v
				delete(data, old)
				break
			}
		}
	}
}

func hasButtons(schema *Schema) bool {
	_, ok := schema.Field("buttons")
	return ok
}

// migrateLegacyButtons folds the flat button_text/button_url and
// secondary_button_text/secondary_button_url pairs into the buttons repeater.
func migrateLegacyButtons(data map[string]interface{}) {
	if !isBlank(data["buttons"]) {
		return
	}
	var buttons []interface{}
	for _, legacy := range []struct{ text, url, style string }{
		{"button_text", "button_url", "primary"},
		{"secondary_button_text", "secondary_button_url", "secondary"},
	} {
		text := strings.TrimSpace(stringValue(data[legacy.text]))
		link := strings.TrimSpace(stringValue(data[legacy.url]))
		if text == "" && link == "" {
			continue
		}
		buttons = append(buttons, map[string]interface{}{"text": text, "url": link, "style": legacy.style})
	}
	if len(buttons) > 0 {
		data["buttons"] = buttons
	}
}

func isBlank(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []interface{}:
		return len(t) == 0
	case []map[string]interface{}:
		return len(t) == 0
	case map[string]interface{}:
		return len(t) == 0
	}
	return false
}

// coerceItems turns a repeater value into a list of item maps. JSON strings are decoded,
// a single object becomes a one-item list, and bare scalars are assigned to the
// repeater's primary field. Anything else is skipped.
func coerceItems(f Field, v interface{}) []map[string]interface{} {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil
		}
		if strings.HasPrefix(s, "[") || strings.HasPrefix(s, "{") {
			var decoded interface{}
			if err := json.Unmarshal([]byte(s), &decoded); err == nil {
				return coerceItems(f, decoded)
			}
		}
		return []map[string]interface{}{primaryItem(f, s)}
	case map[string]interface{}:
		return []map[string]interface{}{copyMap(t)}
	case []map[string]interface{}:
		out := make([]map[string]interface{}, 0, len(t))
		for _, item := range t {
			out = append(out, copyMap(item))
		}
		return out
	case []interface{}:
		out := make([]map[string]interface{}, 0, len(t))
		for _, elem := range t {
			switch e := elem.(type) {
			case map[string]interface{}:
				out = append(out, copyMap(e))
			case []interface{}, nil:
			default:
				if s := strings.TrimSpace(stringValue(e)); s != "" {
					out = append(out, primaryItem(f, s))
				}
			}
		}
		return out
	}
	return nil
}

func primaryItem(f Field, s string) map[string]interface{} {
	key := f.Primary
	if key == "" && len(f.Item) > 0 {
		key = f.Item[0].Name
	}
	return map[string]interface{}{key: s}
}

func copyMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
