package models

import "time"

// Section is one block of a page: a type name and its field values.
// Data holds scalar fields as strings and repeater fields as []map[string]interface{}.
type Section struct {
	ID   string                 `json:"id"`
	Type string                 `json:"type"`
	Data map[string]interface{} `json:"data"`
}

// Clone returns a deep copy of s.
func (s Section) Clone() Section {
	return Section{ID: s.ID, Type: s.Type, Data: cloneMap(s.Data)}
}

// CloneSections deep-copies a section list.
func CloneSections(in []Section) []Section {
	if in == nil {
		return nil
	}
	out := make([]Section, len(in))
	for i, s := range in {
		out[i] = s.Clone()
	}
	return out
}

func cloneMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return cloneMap(t)
	case []map[string]interface{}:
		out := make([]map[string]interface{}, len(t))
		for i, item := range t {
			out[i] = cloneMap(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}

// Page is the persisted section list for one page of the host site.
type Page struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Sections  []Section `json:"sections"`
	Revision  int64     `json:"revision"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
