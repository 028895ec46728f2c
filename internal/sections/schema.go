// Package sections defines the section types a page can hold and validates,
// sanitizes and migrates section data against them.
package sections

import "sort"

// FieldKind selects the sanitizer applied to a field value.
type FieldKind string

const (
	KindText     FieldKind = "text"
	KindTextarea FieldKind = "textarea"
	KindHTML     FieldKind = "html"
	KindURL      FieldKind = "url"
	KindEnum     FieldKind = "enum"
	KindRepeater FieldKind = "repeater"
)

// MaxSections is the most sections accepted from a single AI response.
const MaxSections = 20

const (
	maxTextLen     = 200
	maxTextareaLen = 2000
	maxHTMLLen     = 20000
	maxURLLen      = 2048
)

// Field describes one whitelisted field of a section or repeater item.
type Field struct {
	Name    string    `json:"name"`
	Kind    FieldKind `json:"kind"`
	MaxLen  int       `json:"max_length,omitempty"`
	Options []string  `json:"options,omitempty"` // enum values
	Default string    `json:"default,omitempty"` // enum default

	Item     []Field `json:"item,omitempty"` // repeater item fields
	MaxItems int     `json:"max_items,omitempty"`
	// Primary is the item field a bare string is assigned to when coercing repeater values.
	Primary string `json:"-"`
}

// Schema is the field whitelist for one section type.
type Schema struct {
	Type   string  `json:"type"`
	Label  string  `json:"label"`
	Fields []Field `json:"fields"`
}

// Field returns the named field.
func (s *Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

var buttonFields = []Field{
	{Name: "text", Kind: KindText, MaxLen: 80},
	{Name: "url", Kind: KindURL},
	{Name: "style", Kind: KindEnum, Options: []string{"primary", "secondary", "outline"}, Default: "primary"},
}

var registry = map[string]*Schema{
	"hero": {
		Type:  "hero",
		Label: "Hero",
		Fields: []Field{
			{Name: "heading", Kind: KindText},
			{Name: "subheading", Kind: KindTextarea},
			{Name: "background_image", Kind: KindURL},
			{Name: "buttons", Kind: KindRepeater, Item: buttonFields, MaxItems: 3, Primary: "text"},
		},
	},
	"content": {
		Type:  "content",
		Label: "Content",
		Fields: []Field{
			{Name: "heading", Kind: KindText},
			{Name: "body", Kind: KindHTML},
			{Name: "image", Kind: KindURL},
			{Name: "image_position", Kind: KindEnum, Options: []string{"none", "left", "right"}, Default: "none"},
		},
	},
	"features": {
		Type:  "features",
		Label: "Features",
		Fields: []Field{
			{Name: "heading", Kind: KindText},
			{Name: "subheading", Kind: KindTextarea},
			{Name: "columns", Kind: KindEnum, Options: []string{"2", "3", "4"}, Default: "3"},
			{Name: "cards", Kind: KindRepeater, MaxItems: 12, Primary: "title", Item: []Field{
				{Name: "icon", Kind: KindText, MaxLen: 50},
				{Name: "title", Kind: KindText},
				{Name: "description", Kind: KindTextarea},
				{Name: "link", Kind: KindURL},
			}},
		},
	},
	"faq": {
		Type:  "faq",
		Label: "FAQ",
		Fields: []Field{
			{Name: "heading", Kind: KindText},
			{Name: "items", Kind: KindRepeater, MaxItems: 20, Primary: "question", Item: []Field{
				{Name: "question", Kind: KindText, MaxLen: 300},
				{Name: "answer", Kind: KindHTML},
			}},
		},
	},
	"stats": {
		Type:  "stats",
		Label: "Stats",
		Fields: []Field{
			{Name: "heading", Kind: KindText},
			{Name: "stats", Kind: KindRepeater, MaxItems: 8, Primary: "value", Item: []Field{
				{Name: "value", Kind: KindText, MaxLen: 50},
				{Name: "label", Kind: KindText, MaxLen: 100},
				{Name: "suffix", Kind: KindText, MaxLen: 20},
			}},
		},
	},
	"testimonials": {
		Type:  "testimonials",
		Label: "Testimonials",
		Fields: []Field{
			{Name: "heading", Kind: KindText},
			{Name: "testimonials", Kind: KindRepeater, MaxItems: 10, Primary: "quote", Item: []Field{
				{Name: "quote", Kind: KindTextarea},
				{Name: "author", Kind: KindText},
				{Name: "role", Kind: KindText},
				{Name: "avatar", Kind: KindURL},
			}},
		},
	},
	"cta": {
		Type:  "cta",
		Label: "Call to action",
		Fields: []Field{
			{Name: "heading", Kind: KindText},
			{Name: "body", Kind: KindTextarea},
			{Name: "buttons", Kind: KindRepeater, Item: buttonFields, MaxItems: 2, Primary: "text"},
		},
	},
}

// typeAliases maps legacy and common alternative type names to registered types.
var typeAliases = map[string]string{
	"text":           "content",
	"text_block":     "content",
	"rich_text":      "content",
	"feature":        "features",
	"features_grid":  "features",
	"faqs":           "faq",
	"stat":           "stats",
	"statistics":     "stats",
	"numbers":        "stats",
	"testimonial":    "testimonials",
	"reviews":        "testimonials",
	"call_to_action": "cta",
	"call-to-action": "cta",
	"banner":         "hero",
}

// Lookup returns the schema for a section type.
func Lookup(sectionType string) (*Schema, bool) {
	s, ok := registry[sectionType]
	return s, ok
}

// Types returns the registered section type names in sorted order.
func Types() []string {
	out := make([]string, 0, len(registry))
	for t := range registry {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Defaults returns a fresh data map for sectionType with every field at its default:
// empty strings, enum defaults and empty repeaters.
func Defaults(sectionType string) (map[string]interface{}, error) {
	s, ok := registry[sectionType]
	if !ok {
		return nil, ErrUnknownType
	}
	return defaultsFor(s.Fields), nil
}

func defaultsFor(fields []Field) map[string]interface{} {
	data := make(map[string]interface{}, len(fields))
	for _, f := range fields {
		switch f.Kind {
		case KindRepeater:
			data[f.Name] = []map[string]interface{}{}
		case KindEnum:
			data[f.Name] = f.Default
		default:
			data[f.Name] = ""
		}
	}
	return data
}

// ItemDefaults returns an empty item for the repeater field of sectionType.
func ItemDefaults(sectionType, field string) (map[string]interface{}, error) {
	s, ok := registry[sectionType]
	if !ok {
		return nil, ErrUnknownType
	}
	f, ok := s.Field(field)
	if !ok || f.Kind != KindRepeater {
		return nil, ErrUnknownField
	}
	return defaultsFor(f.Item), nil
}
