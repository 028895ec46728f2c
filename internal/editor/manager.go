package editor

import (
	"context"
	"errors"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/hyperjump/sectionkit/internal/models"
	"github.com/hyperjump/sectionkit/internal/storage"
)

// Manager caches one Session per page and loads sessions lazily from the store.
type Manager struct {
	store    storage.PageStore
	logger   *zap.Logger
	mu       sync.Mutex
	sessions map[string]*Session
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

func WithLogger(l *zap.Logger) ManagerOption {
	return func(m *Manager) { m.logger = l }
}

// NewManager returns a Manager backed by store.
func NewManager(store storage.PageStore, opts ...ManagerOption) *Manager {
	m := &Manager{store: store, logger: zap.NewNop(), sessions: map[string]*Session{}}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Session returns the session for pageID, loading the page on first use.
// A page that does not exist yet starts as an empty session.
func (m *Manager) Session(ctx context.Context, pageID string) (*Session, error) {
	m.mu.Lock()
	if s, ok := m.sessions[pageID]; ok {
		m.mu.Unlock()
		return s, nil
	}
	m.mu.Unlock()

	s := NewSession(pageID)
	page, err := m.store.GetPage(ctx, pageID)
	switch {
	case err == nil:
		s.Load(page)
	case errors.Is(err, storage.ErrNotFound):
		m.logger.Debug("starting new page", zap.String("page_id", pageID))
	default:
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.sessions[pageID]; ok {
		return existing, nil
	}
	m.sessions[pageID] = s
	return s, nil
}

// Save persists the session for pageID.
func (m *Manager) Save(ctx context.Context, pageID string) (*models.Page, error) {
	s, err := m.Session(ctx, pageID)
	if err != nil {
		return nil, err
	}
	page, err := s.Save(ctx, m.store)
	if err != nil {
		m.logger.Warn("page save failed", zap.String("page_id", pageID), zap.Error(err))
		return nil, err
	}
	m.logger.Info("page saved",
		zap.String("page_id", pageID),
		zap.Int64("revision", page.Revision),
		zap.Int("sections", len(page.Sections)))
	return page, nil
}

// Reload discards the cached session for pageID and loads it again from the store.
func (m *Manager) Reload(ctx context.Context, pageID string) (*Session, error) {
	m.Evict(pageID)
	return m.Session(ctx, pageID)
}

// Evict drops the cached session for pageID.
func (m *Manager) Evict(pageID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, pageID)
}

// Pages returns the IDs of cached sessions in sorted order.
func (m *Manager) Pages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Unsaved returns the IDs of cached sessions with changes not yet persisted.
func (m *Manager) Unsaved() []string {
	m.mu.Lock()
	list := make(map[string]*Session, len(m.sessions))
	for id, s := range m.sessions {
		list[id] = s
	}
	m.mu.Unlock()

	var ids []string
	for id, s := range list {
		if st := s.State(); st == StateUnsaved || st == StateFailed {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
