// Package editor holds the server-side state of a page being edited: the mutable
// section list, its revision counter and its save state.
package editor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/hyperjump/sectionkit/internal/models"
	"github.com/hyperjump/sectionkit/internal/sections"
	"github.com/hyperjump/sectionkit/internal/storage"
)

// SaveState tracks whether the session matches what was last persisted.
type SaveState string

const (
	StateSaved   SaveState = "saved"
	StateUnsaved SaveState = "unsaved"
	StateSaving  SaveState = "saving"
	StateFailed  SaveState = "failed"
)

// ApplyMode controls how generated sections are merged into a session.
type ApplyMode string

const (
	ApplyReplace ApplyMode = "replace"
	ApplyAppend  ApplyMode = "append"
)

var (
	ErrSectionNotFound = errors.New("section not found")
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrRepeaterFull    = errors.New("repeater is full")
	ErrInvalidMode     = errors.New("invalid apply mode")
	ErrSaveInProgress  = errors.New("save already in progress")
)

// Session is the editable state of one page. It is safe for concurrent use.
type Session struct {
	mu sync.Mutex

	pageID   string
	title    string
	sections []models.Section

	// revision counts local mutations; stored is the page revision last seen in storage.
	revision int64
	stored   int64
	state    SaveState
	saving   bool
	lastErr  error
}

// NewSession returns an empty, saved session for pageID.
func NewSession(pageID string) *Session {
	return &Session{pageID: pageID, sections: []models.Section{}, state: StateSaved}
}

// Load replaces the session contents with page and marks the session saved.
func (s *Session) Load(page *models.Page) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pageID = page.ID
	s.title = page.Title
	s.sections = models.CloneSections(page.Sections)
	if s.sections == nil {
		s.sections = []models.Section{}
	}
	s.stored = page.Revision
	s.revision++
	s.state = StateSaved
	s.lastErr = nil
}

// Snapshot is a consistent copy of the session state.
type Snapshot struct {
	PageID         string           `json:"page_id"`
	Title          string           `json:"title"`
	Sections       []models.Section `json:"sections"`
	Revision       int64            `json:"revision"`
	StoredRevision int64            `json:"stored_revision"`
	State          SaveState        `json:"state"`
	Error          string           `json:"error,omitempty"`
}

// Snapshot returns a deep copy of the session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		PageID:         s.pageID,
		Title:          s.title,
		Sections:       models.CloneSections(s.sections),
		Revision:       s.revision,
		StoredRevision: s.stored,
		State:          s.state,
	}
	if s.lastErr != nil {
		snap.Error = s.lastErr.Error()
	}
	return snap
}

// Sections returns a deep copy of the section list.
func (s *Session) Sections() []models.Section {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.CloneSections(s.sections)
}

func (s *Session) State() SaveState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Revision() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision
}

// Err returns the error of the last failed save.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// touch records a mutation. Callers hold s.mu.
func (s *Session) touch() {
	s.revision++
	s.state = StateUnsaved
}

func (s *Session) indexOf(id string) (int, error) {
	for i, sec := range s.sections {
		if sec.ID == id {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %s", ErrSectionNotFound, id)
}

func (s *Session) SetTitle(title string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.title != title {
		s.title = title
		s.touch()
	}
}

// Add inserts a new section of sectionType with default field values at index.
// An index outside [0, len] appends.
func (s *Session) Add(sectionType string, index int) (models.Section, error) {
	data, err := sections.Defaults(sectionType)
	if err != nil {
		return models.Section{}, err
	}
	sec := models.Section{ID: uuid.NewString(), Type: sectionType, Data: data}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sections = insertAt(s.sections, index, sec)
	s.touch()
	return sec.Clone(), nil
}

func insertAt(list []models.Section, index int, sec models.Section) []models.Section {
	if index < 0 || index >= len(list) {
		return append(list, sec)
	}
	list = append(list, models.Section{})
	copy(list[index+1:], list[index:])
	list[index] = sec
	return list
}

// Remove deletes the section with id.
func (s *Session) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, err := s.indexOf(id)
	if err != nil {
		return err
	}
	s.sections = append(s.sections[:i], s.sections[i+1:]...)
	s.touch()
	return nil
}

// Duplicate inserts a deep copy of the section with id right after it and returns the copy.
func (s *Session) Duplicate(id string) (models.Section, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, err := s.indexOf(id)
	if err != nil {
		return models.Section{}, err
	}
	dup := s.sections[i].Clone()
	dup.ID = uuid.NewString()
	s.sections = insertAt(s.sections, i+1, dup)
	s.touch()
	return dup.Clone(), nil
}

// Move moves the section at from to position to, shifting the sections in between.
func (s *Session) Move(from, to int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.sections)
	if from < 0 || from >= n || to < 0 || to >= n {
		return fmt.Errorf("%w: move %d to %d with %d sections", ErrIndexOutOfRange, from, to, n)
	}
	if from == to {
		return nil
	}
	sec := s.sections[from]
	s.sections = append(s.sections[:from], s.sections[from+1:]...)
	s.sections = insertAt(s.sections, to, sec)
	s.touch()
	return nil
}

// UpdateField sets one field of the section with id. The value is sanitized for the field.
func (s *Session) UpdateField(id, field string, value interface{}) error {
	return s.UpdateFields(id, map[string]interface{}{field: value})
}

// UpdateFields sets several fields of the section with id. Every value is sanitized
// before any is written, so an invalid field leaves the section unchanged.
func (s *Session) UpdateFields(id string, values map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, err := s.indexOf(id)
	if err != nil {
		return err
	}
	clean := make(map[string]interface{}, len(values))
	for _, field := range sortedKeys(values) {
		v, err := sections.SanitizeValue(s.sections[i].Type, field, values[field])
		if err != nil {
			return err
		}
		clean[field] = v
	}
	if len(clean) == 0 {
		return nil
	}
	if s.sections[i].Data == nil {
		s.sections[i].Data = map[string]interface{}{}
	}
	for field, v := range clean {
		s.sections[i].Data[field] = v
	}
	s.touch()
	return nil
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// items returns the repeater items of field, converting decoded JSON lists in place.
func items(sec *models.Section, field string) []map[string]interface{} {
	switch v := sec.Data[field].(type) {
	case []map[string]interface{}:
		return v
	case []interface{}:
		out := make([]map[string]interface{}, 0, len(v))
		for _, e := range v {
			if m, ok := e.(map[string]interface{}); ok {
				out = append(out, m)
			}
		}
		return out
	}
	return []map[string]interface{}{}
}

func (s *Session) repeater(id, field string) (*models.Section, []map[string]interface{}, error) {
	i, err := s.indexOf(id)
	if err != nil {
		return nil, nil, err
	}
	sec := &s.sections[i]
	if _, err := sections.MaxItems(sec.Type, field); err != nil {
		return nil, nil, err
	}
	if sec.Data == nil {
		sec.Data = map[string]interface{}{}
	}
	return sec, items(sec, field), nil
}

// AddItem appends an empty item to the repeater field and returns its index.
func (s *Session) AddItem(id, field string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sec, list, err := s.repeater(id, field)
	if err != nil {
		return -1, err
	}
	limit, _ := sections.MaxItems(sec.Type, field)
	if limit > 0 && len(list) >= limit {
		return -1, fmt.Errorf("%w: %s.%s holds at most %d items", ErrRepeaterFull, sec.Type, field, limit)
	}
	item, err := sections.ItemDefaults(sec.Type, field)
	if err != nil {
		return -1, err
	}
	sec.Data[field] = append(list, item)
	s.touch()
	return len(list), nil
}

// RemoveItem deletes the item at index from the repeater field.
func (s *Session) RemoveItem(id, field string, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sec, list, err := s.repeater(id, field)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(list) {
		return fmt.Errorf("%w: item %d of %d", ErrIndexOutOfRange, index, len(list))
	}
	sec.Data[field] = append(list[:index], list[index+1:]...)
	s.touch()
	return nil
}

// MoveItem reorders the items of the repeater field.
func (s *Session) MoveItem(id, field string, from, to int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sec, list, err := s.repeater(id, field)
	if err != nil {
		return err
	}
	n := len(list)
	if from < 0 || from >= n || to < 0 || to >= n {
		return fmt.Errorf("%w: move item %d to %d with %d items", ErrIndexOutOfRange, from, to, n)
	}
	if from == to {
		return nil
	}
	item := list[from]
	list = append(list[:from], list[from+1:]...)
	list = append(list, nil)
	copy(list[to+1:], list[to:])
	list[to] = item
	sec.Data[field] = list
	s.touch()
	return nil
}

// UpdateItem sets key on the item at index of the repeater field.
func (s *Session) UpdateItem(id, field string, index int, key string, value interface{}) error {
	return s.UpdateItemValues(id, field, index, map[string]interface{}{key: value})
}

// UpdateItemValues sets several keys of one repeater item. Nothing is written unless
// every value passes sanitizing.
func (s *Session) UpdateItemValues(id, field string, index int, values map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sec, list, err := s.repeater(id, field)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(list) {
		return fmt.Errorf("%w: item %d of %d", ErrIndexOutOfRange, index, len(list))
	}
	clean := make(map[string]interface{}, len(values))
	for _, key := range sortedKeys(values) {
		v, err := sections.SanitizeItemValue(sec.Type, field, key, values[key])
		if err != nil {
			return err
		}
		clean[key] = v
	}
	if len(clean) == 0 {
		return nil
	}
	for key, v := range clean {
		list[index][key] = v
	}
	sec.Data[field] = list
	s.touch()
	return nil
}

// ApplyGenerated merges generated sections into the session. Replace discards the current
// list; append adds after it. Copies that would duplicate an existing ID get a new one.
func (s *Session) ApplyGenerated(generated []models.Section, mode ApplyMode) error {
	if mode == "" {
		mode = ApplyReplace
	}
	if mode != ApplyReplace && mode != ApplyAppend {
		return fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	base := s.sections
	if mode == ApplyReplace {
		base = []models.Section{}
	}
	seen := make(map[string]bool, len(base)+len(generated))
	for _, sec := range base {
		seen[sec.ID] = true
	}
	for _, sec := range generated {
		c := sec.Clone()
		if c.ID == "" || seen[c.ID] {
			c.ID = uuid.NewString()
		}
		seen[c.ID] = true
		base = append(base, c)
	}
	s.sections = base
	s.touch()
	return nil
}

// Save sanitizes the section list and persists it through store. The session is marked
// saved only if nothing changed while the save was in flight; a failed save marks it
// failed and keeps the data.
func (s *Session) Save(ctx context.Context, store storage.PageStore) (*models.Page, error) {
	s.mu.Lock()
	if s.saving {
		s.mu.Unlock()
		return nil, ErrSaveInProgress
	}
	clean := make([]models.Section, 0, len(s.sections))
	for _, sec := range s.sections {
		data, err := sections.SanitizeData(sec.Type, sec.Data)
		if err != nil {
			s.mu.Unlock()
			return nil, err
		}
		clean = append(clean, models.Section{ID: sec.ID, Type: sec.Type, Data: data})
	}
	page := &models.Page{ID: s.pageID, Title: s.title, Sections: clean, Revision: s.stored}
	rev := s.revision
	s.state = StateSaving
	s.saving = true
	s.mu.Unlock()

	saved, err := store.SavePage(ctx, page)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.saving = false
	if err != nil {
		s.state = StateFailed
		s.lastErr = err
		return nil, fmt.Errorf("save page %s: %w", page.ID, err)
	}
	s.stored = saved.Revision
	s.lastErr = nil
	if s.revision != rev {
		s.state = StateUnsaved
		return saved, nil
	}
	s.sections = models.CloneSections(clean)
	s.state = StateSaved
	return saved, nil
}
