package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/sectionkit/internal/ai"
	"github.com/hyperjump/sectionkit/internal/config"
	"github.com/hyperjump/sectionkit/internal/editor"
	"github.com/hyperjump/sectionkit/internal/extract"
	"github.com/hyperjump/sectionkit/internal/metrics"
	"github.com/hyperjump/sectionkit/internal/models"
	"github.com/hyperjump/sectionkit/internal/pipeline"
	"github.com/hyperjump/sectionkit/internal/sections"
	"github.com/hyperjump/sectionkit/internal/storage"
)

const reply = `{"sections": [
	{"type": "hero", "data": {"heading": "Welcome", "buttons": [{"text": "Start", "url": "/start"}]}},
	{"type": "faq", "data": {"heading": "Questions", "items": [{"question": "Q?", "answer": "<p>A.</p>"}]}}
]}`

type fakeProvider struct {
	mu   sync.Mutex
	text string
}

func (f *fakeProvider) Name() string  { return "fake" }
func (f *fakeProvider) Model() string { return "fake-1" }

func (f *fakeProvider) Complete(context.Context, ai.Request) (*ai.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &ai.Response{Text: f.text}, nil
}

type mockWatchService struct {
	dirs []string
}

func (m *mockWatchService) Directories() []string { return append([]string(nil), m.dirs...) }

func (m *mockWatchService) AddDirectory(path string, _ bool) error {
	for _, d := range m.dirs {
		if d == path {
			return nil
		}
	}
	m.dirs = append(m.dirs, path)
	return nil
}

func (m *mockWatchService) RemoveDirectory(path string) error {
	for i, d := range m.dirs {
		if d == path {
			m.dirs = append(m.dirs[:i], m.dirs[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *mockWatchService) Stats() models.WatchStats { return models.WatchStats{Imported: 3} }

type testEnv struct {
	handler    http.Handler
	store      *storage.SQLiteStorage
	provider   *fakeProvider
	watch      *mockWatchService
	configPath string
}

func newTestEnv(t *testing.T, withWatch bool) *testEnv {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Storage.DatabasePath = filepath.Join(dir, "db", "sectionkit.db")

	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })

	provider := &fakeProvider{text: reply}
	m := metrics.New()
	extractor := extract.NewExtractor(extract.WithMetrics(m))
	generator := ai.NewGenerator(provider, ai.WithMetrics(m))
	manager := editor.NewManager(store)
	importer := pipeline.NewImporter(store, extractor, generator, manager)

	env := &testEnv{store: store, provider: provider}
	opts := []Option{WithMetrics(m)}
	if withWatch {
		env.watch = &mockWatchService{dirs: []string{"/srv/inbox"}}
		env.configPath = filepath.Join(dir, "config.yaml")
		opts = append(opts, WithWatch(env.watch, env.configPath))
	}
	srv := NewServer(store, extractor, generator, importer, manager, cfg, zap.NewNop(), opts...)
	env.handler = srv.Handler()
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func (e *testEnv) upload(t *testing.T, path, filename, content string, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v\n%s", err, w.Body.String())
	}
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status = %d, want %d: %s", w.Code, want, w.Body.String())
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("page x: %w", storage.ErrNotFound), http.StatusNotFound},
		{storage.ErrRevisionConflict, http.StatusConflict},
		{fmt.Errorf("extract a.xlsx: %w", extract.ErrUnsupportedFormat), http.StatusUnsupportedMediaType},
		{extract.ErrFileTooLarge, http.StatusRequestEntityTooLarge},
		{editor.ErrRepeaterFull, http.StatusUnprocessableEntity},
		{fmt.Errorf("parse AI response: %w", sections.ErrNoJSON), http.StatusBadGateway},
		{fmt.Errorf("generate sections: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestHealthAndSectionTypes(t *testing.T) {
	env := newTestEnv(t, false)
	expectStatus(t, env.do(t, http.MethodGet, "/health", nil), http.StatusOK)

	w := env.do(t, http.MethodGet, "/api/v1/section-types", nil)
	expectStatus(t, w, http.StatusOK)
	var out struct {
		Types []struct {
			Type   string `json:"type"`
			Fields []struct {
				Name string `json:"name"`
			} `json:"fields"`
		} `json:"types"`
	}
	decodeBody(t, w, &out)
	if len(out.Types) != 7 {
		t.Fatalf("types = %d, want 7", len(out.Types))
	}
	if out.Types[0].Type != "content" || len(out.Types[0].Fields) == 0 {
		t.Errorf("first type = %+v", out.Types[0])
	}
}

func TestHandleExtract(t *testing.T) {
	env := newTestEnv(t, false)

	w := env.upload(t, "/api/v1/extract", "notes.txt", "Hello   world.\r\n\r\n\r\nSecond paragraph.", nil)
	expectStatus(t, w, http.StatusOK)
	var res models.ExtractedText
	decodeBody(t, w, &res)
	if res.Text != "Hello world.\n\nSecond paragraph." || res.Stats.Paragraphs != 2 {
		t.Errorf("extracted = %+v", res)
	}

	expectStatus(t, env.upload(t, "/api/v1/extract", "sheet.xlsx", "x", nil), http.StatusUnsupportedMediaType)
	expectStatus(t, env.upload(t, "/api/v1/extract", "blank.txt", "  \n ", nil), http.StatusUnprocessableEntity)
	expectStatus(t, env.upload(t, "/api/v1/extract", "", "", map[string]string{"page_id": "x"}), http.StatusBadRequest)

	if n, _ := env.store.CountDocuments(context.Background()); n != 0 {
		t.Errorf("extract must not store documents, have %d", n)
	}
}

func TestHandleGenerate(t *testing.T) {
	env := newTestEnv(t, false)

	w := env.do(t, http.MethodPost, "/api/v1/generate", map[string]string{"text": "We build rockets."})
	expectStatus(t, w, http.StatusOK)
	var res ai.GenerationResult
	decodeBody(t, w, &res)
	if len(res.Sections) != 2 || res.Provider != "fake" {
		t.Errorf("result = %+v", res)
	}

	expectStatus(t, env.do(t, http.MethodPost, "/api/v1/generate", map[string]string{"text": "  "}), http.StatusBadRequest)

	env.provider.text = "Sorry, I cannot help with that."
	expectStatus(t, env.do(t, http.MethodPost, "/api/v1/generate", map[string]string{"text": "x"}), http.StatusBadGateway)
}

func TestUploadDocumentCreatesPage(t *testing.T) {
	env := newTestEnv(t, false)

	w := env.upload(t, "/api/v1/documents", "about_us.txt", "About our company.", map[string]string{"page_id": "about"})
	expectStatus(t, w, http.StatusCreated)
	var res pipeline.Result
	decodeBody(t, w, &res)
	if res.Document == nil || res.Document.PageID != "about" || res.Page == nil || res.Page.Revision != 1 {
		t.Fatalf("result = %+v", res)
	}

	w = env.do(t, http.MethodGet, "/api/v1/pages/about", nil)
	expectStatus(t, w, http.StatusOK)
	var snap editor.Snapshot
	decodeBody(t, w, &snap)
	if snap.Title != "about us" || len(snap.Sections) != 2 || snap.State != editor.StateSaved {
		t.Errorf("snapshot = %+v", snap)
	}

	w = env.do(t, http.MethodGet, "/api/v1/documents", nil)
	expectStatus(t, w, http.StatusOK)
	var list struct {
		Documents []models.Document `json:"documents"`
	}
	decodeBody(t, w, &list)
	if len(list.Documents) != 1 {
		t.Fatalf("documents = %+v", list.Documents)
	}
	docPath := "/api/v1/documents/" + list.Documents[0].ID
	expectStatus(t, env.do(t, http.MethodGet, docPath, nil), http.StatusOK)
	expectStatus(t, env.do(t, http.MethodDelete, docPath, nil), http.StatusOK)
	expectStatus(t, env.do(t, http.MethodGet, docPath, nil), http.StatusNotFound)
	expectStatus(t, env.do(t, http.MethodDelete, docPath, nil), http.StatusNotFound)
}

func TestEditorOperations(t *testing.T) {
	env := newTestEnv(t, false)
	base := "/api/v1/pages/landing"

	w := env.do(t, http.MethodPost, base+"/sections", map[string]string{"type": "call_to_action"})
	expectStatus(t, w, http.StatusCreated)
	var cta models.Section
	decodeBody(t, w, &cta)
	if cta.Type != "cta" {
		t.Fatalf("section = %+v", cta)
	}
	secPath := base + "/sections/" + cta.ID

	expectStatus(t, env.do(t, http.MethodPatch, secPath, map[string]interface{}{
		"fields": map[string]interface{}{"heading": "<b>Get started</b>", "body": "Today."},
	}), http.StatusOK)
	expectStatus(t, env.do(t, http.MethodPatch, secPath, map[string]interface{}{
		"fields": map[string]interface{}{"colour": "red"},
	}), http.StatusBadRequest)

	for i := 0; i < 2; i++ {
		expectStatus(t, env.do(t, http.MethodPost, secPath+"/items/buttons", nil), http.StatusCreated)
	}
	expectStatus(t, env.do(t, http.MethodPost, secPath+"/items/buttons", nil), http.StatusUnprocessableEntity)
	expectStatus(t, env.do(t, http.MethodPatch, secPath+"/items/buttons/1", map[string]interface{}{
		"values": map[string]interface{}{"text": "Contact", "url": "mailto:hi@example.com"},
	}), http.StatusOK)
	expectStatus(t, env.do(t, http.MethodPost, secPath+"/items/buttons/move", map[string]int{"from": 1, "to": 0}), http.StatusOK)
	expectStatus(t, env.do(t, http.MethodDelete, secPath+"/items/buttons/1", nil), http.StatusOK)
	expectStatus(t, env.do(t, http.MethodDelete, secPath+"/items/buttons/x", nil), http.StatusBadRequest)

	w = env.do(t, http.MethodPost, base+"/sections", map[string]interface{}{"type": "hero", "index": 0})
	expectStatus(t, w, http.StatusCreated)
	expectStatus(t, env.do(t, http.MethodPost, secPath+"/duplicate", nil), http.StatusCreated)
	expectStatus(t, env.do(t, http.MethodPost, base+"/sections/move", map[string]int{"from": 0, "to": 2}), http.StatusOK)
	expectStatus(t, env.do(t, http.MethodPost, base+"/sections/move", map[string]int{"from": 0, "to": 9}), http.StatusBadRequest)
	expectStatus(t, env.do(t, http.MethodPost, base+"/sections", map[string]string{"type": "carousel"}), http.StatusBadRequest)
	expectStatus(t, env.do(t, http.MethodDelete, base+"/sections/missing", nil), http.StatusNotFound)
	expectStatus(t, env.do(t, http.MethodPut, base+"/title", map[string]string{"title": "Landing"}), http.StatusOK)

	w = env.do(t, http.MethodGet, base, nil)
	var snap editor.Snapshot
	decodeBody(t, w, &snap)
	if snap.State != editor.StateUnsaved {
		t.Errorf("state = %s, want unsaved", snap.State)
	}

	w = env.do(t, http.MethodPost, base+"/save", nil)
	expectStatus(t, w, http.StatusOK)
	var page models.Page
	decodeBody(t, w, &page)
	if page.Revision != 1 || page.Title != "Landing" || len(page.Sections) != 3 {
		t.Fatalf("page = %+v", page)
	}
	if got := []string{page.Sections[0].Type, page.Sections[1].Type, page.Sections[2].Type}; got[0] != "cta" || got[1] != "cta" || got[2] != "hero" {
		t.Errorf("order = %v", got)
	}
	first := page.Sections[0]
	if first.Data["heading"] != "Get started" {
		t.Errorf("heading = %v", first.Data["heading"])
	}
	buttons, _ := first.Data["buttons"].([]interface{})
	if len(buttons) != 1 || buttons[0].(map[string]interface{})["text"] != "Contact" {
		t.Errorf("buttons = %v", first.Data["buttons"])
	}

	w = env.do(t, http.MethodGet, base+"/sections", nil)
	expectStatus(t, w, http.StatusOK)
}

func TestUpdateRejectsWholeRequest(t *testing.T) {
	env := newTestEnv(t, false)
	base := "/api/v1/pages/atomic"

	w := env.do(t, http.MethodPost, base+"/sections", map[string]string{"type": "hero"})
	expectStatus(t, w, http.StatusCreated)
	var hero models.Section
	decodeBody(t, w, &hero)
	secPath := base + "/sections/" + hero.ID
	expectStatus(t, env.do(t, http.MethodPost, secPath+"/items/buttons", nil), http.StatusCreated)
	expectStatus(t, env.do(t, http.MethodPost, base+"/save", nil), http.StatusOK)

	snapshot := func() editor.Snapshot {
		t.Helper()
		w := env.do(t, http.MethodGet, base, nil)
		expectStatus(t, w, http.StatusOK)
		var snap editor.Snapshot
		decodeBody(t, w, &snap)
		return snap
	}
	before := snapshot()
	if before.State != editor.StateSaved {
		t.Fatalf("state = %s, want saved", before.State)
	}

	for i := 0; i < 5; i++ {
		expectStatus(t, env.do(t, http.MethodPatch, secPath, map[string]interface{}{
			"fields": map[string]interface{}{"heading": "Changed", "subheading": "Also", "bogus": 1},
		}), http.StatusBadRequest)
		expectStatus(t, env.do(t, http.MethodPatch, secPath+"/items/buttons/0", map[string]interface{}{
			"values": map[string]interface{}{"text": "Changed", "bogus": 1},
		}), http.StatusBadRequest)
	}

	after := snapshot()
	if after.Revision != before.Revision || after.State != editor.StateSaved {
		t.Errorf("revision %d -> %d, state %s", before.Revision, after.Revision, after.State)
	}
	data := after.Sections[0].Data
	if data["heading"] == "Changed" || data["subheading"] == "Also" {
		t.Errorf("fields partly applied: %v", data)
	}
	if buttons, _ := data["buttons"].([]interface{}); len(buttons) == 1 {
		if b, _ := buttons[0].(map[string]interface{}); b["text"] == "Changed" {
			t.Errorf("item partly applied: %v", b)
		}
	} else {
		t.Errorf("buttons = %v", data["buttons"])
	}
}

func TestReplaceSectionsNormalizesLegacyData(t *testing.T) {
	env := newTestEnv(t, false)

	w := env.do(t, http.MethodPut, "/api/v1/pages/legacy/sections", map[string]interface{}{
		"title": "Legacy",
		"sections": []interface{}{
			map[string]interface{}{"type": "hero", "data": `{"title":"Old heading","button_text":"Go","button_url":"/go"}`},
			map[string]interface{}{"type": "slider", "data": map[string]interface{}{}},
		},
	})
	expectStatus(t, w, http.StatusOK)
	var out struct {
		Dropped []sections.Dropped `json:"dropped"`
		Page    models.Page        `json:"page"`
	}
	decodeBody(t, w, &out)
	if len(out.Dropped) != 1 || out.Dropped[0].Reason != sections.ReasonUnknownType {
		t.Errorf("dropped = %+v", out.Dropped)
	}
	if len(out.Page.Sections) != 1 || out.Page.Sections[0].Data["heading"] != "Old heading" {
		t.Fatalf("page = %+v", out.Page)
	}
	buttons, _ := out.Page.Sections[0].Data["buttons"].([]interface{})
	if len(buttons) != 1 {
		t.Errorf("legacy button not migrated: %v", out.Page.Sections[0].Data)
	}

	expectStatus(t, env.do(t, http.MethodPut, "/api/v1/pages/legacy/sections", map[string]interface{}{"sections": 42}), http.StatusBadRequest)
}

func TestSaveConflict(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()

	expectStatus(t, env.do(t, http.MethodGet, "/api/v1/pages/shared", nil), http.StatusOK)
	if _, err := env.store.SavePage(ctx, &models.Page{ID: "shared", Title: "Elsewhere"}); err != nil {
		t.Fatal(err)
	}
	expectStatus(t, env.do(t, http.MethodPost, "/api/v1/pages/shared/sections", map[string]string{"type": "faq"}), http.StatusCreated)
	expectStatus(t, env.do(t, http.MethodPost, "/api/v1/pages/shared/save", nil), http.StatusConflict)

	w := env.do(t, http.MethodGet, "/api/v1/pages/shared", nil)
	var snap editor.Snapshot
	decodeBody(t, w, &snap)
	if snap.State != editor.StateFailed || len(snap.Sections) != 1 {
		t.Errorf("snapshot after conflict = %+v", snap)
	}

	w = env.do(t, http.MethodPost, "/api/v1/pages/shared/reload", nil)
	expectStatus(t, w, http.StatusOK)
	decodeBody(t, w, &snap)
	if snap.Title != "Elsewhere" || len(snap.Sections) != 0 || snap.StoredRevision != 1 {
		t.Errorf("snapshot after reload = %+v", snap)
	}
}

func TestGeneratePage(t *testing.T) {
	env := newTestEnv(t, false)
	base := "/api/v1/pages/home"

	w := env.do(t, http.MethodPost, base+"/generate", map[string]interface{}{"text": "Rockets.", "save": true})
	expectStatus(t, w, http.StatusOK)
	var res generatePageResponse
	decodeBody(t, w, &res)
	if res.Page == nil || res.Page.Revision != 1 || len(res.Session.Sections) != 2 {
		t.Fatalf("response = %+v", res)
	}

	w = env.do(t, http.MethodPost, base+"/generate", map[string]interface{}{"text": "More.", "mode": "append"})
	expectStatus(t, w, http.StatusOK)
	decodeBody(t, w, &res)
	if res.Page != nil || len(res.Session.Sections) != 4 || res.Session.State != editor.StateUnsaved {
		t.Errorf("append response = %+v", res)
	}

	expectStatus(t, env.do(t, http.MethodPost, base+"/generate", map[string]interface{}{"text": "x", "mode": "merge"}), http.StatusBadRequest)
	expectStatus(t, env.do(t, http.MethodPost, base+"/generate", map[string]interface{}{"document_id": "nope"}), http.StatusNotFound)
}

func TestDeletePage(t *testing.T) {
	env := newTestEnv(t, false)
	expectStatus(t, env.do(t, http.MethodPost, "/api/v1/pages/old/generate", map[string]interface{}{"text": "x", "save": true}), http.StatusOK)

	w := env.do(t, http.MethodGet, "/api/v1/pages", nil)
	expectStatus(t, w, http.StatusOK)
	var list struct {
		Pages []models.Page `json:"pages"`
	}
	decodeBody(t, w, &list)
	if len(list.Pages) != 1 || list.Pages[0].ID != "old" {
		t.Errorf("pages = %+v", list.Pages)
	}

	expectStatus(t, env.do(t, http.MethodDelete, "/api/v1/pages/old", nil), http.StatusOK)
	expectStatus(t, env.do(t, http.MethodDelete, "/api/v1/pages/old", nil), http.StatusNotFound)
}

func TestHandleStatus(t *testing.T) {
	env := newTestEnv(t, true)
	expectStatus(t, env.upload(t, "/api/v1/documents", "a.txt", "Alpha.", nil), http.StatusCreated)
	expectStatus(t, env.do(t, http.MethodPost, "/api/v1/pages/draft/sections", map[string]string{"type": "stats"}), http.StatusCreated)

	w := env.do(t, http.MethodGet, "/api/v1/status", nil)
	expectStatus(t, w, http.StatusOK)
	var st models.Status
	decodeBody(t, w, &st)
	if st.Documents != 1 || st.Pages != 1 {
		t.Errorf("counts = %+v", st)
	}
	if len(st.UnsavedPages) != 1 || st.UnsavedPages[0] != "draft" {
		t.Errorf("unsaved = %v", st.UnsavedPages)
	}
	if st.AI == nil || st.AI.Provider != config.ProviderOpenAI || st.AI.Model != config.DefaultOpenAIModel {
		t.Errorf("ai = %+v", st.AI)
	}
	if st.DiskUsageBytes == nil || *st.DiskUsageBytes == 0 {
		t.Error("disk usage should be reported")
	}
	if st.Watch == nil || len(st.Watch.Directories) != 1 || st.Watch.Stats.Imported != 3 {
		t.Errorf("watch = %+v", st.Watch)
	}
}

func TestWatchDirectories(t *testing.T) {
	env := newTestEnv(t, true)
	dir := t.TempDir()

	w := env.do(t, http.MethodGet, "/api/v1/watch/directories", nil)
	expectStatus(t, w, http.StatusOK)

	expectStatus(t, env.do(t, http.MethodPost, "/api/v1/watch/directories", map[string]string{"path": dir}), http.StatusCreated)
	expectStatus(t, env.do(t, http.MethodPost, "/api/v1/watch/directories", map[string]string{"path": filepath.Join(dir, "missing")}), http.StatusNotFound)
	expectStatus(t, env.do(t, http.MethodPost, "/api/v1/watch/directories", map[string]string{}), http.StatusBadRequest)
	if len(env.watch.dirs) != 2 {
		t.Errorf("dirs = %v", env.watch.dirs)
	}
	saved, err := os.ReadFile(env.configPath)
	if err != nil {
		t.Fatalf("config should be persisted: %v", err)
	}
	if !strings.Contains(string(saved), dir) {
		t.Errorf("persisted config lacks %s:\n%s", dir, saved)
	}

	expectStatus(t, env.do(t, http.MethodDelete, "/api/v1/watch/directories?path="+dir, nil), http.StatusOK)
	expectStatus(t, env.do(t, http.MethodDelete, "/api/v1/watch/directories", nil), http.StatusBadRequest)
	if len(env.watch.dirs) != 1 {
		t.Errorf("dirs after remove = %v", env.watch.dirs)
	}
}

func TestWatchDirectories_NotEnabled(t *testing.T) {
	env := newTestEnv(t, false)
	expectStatus(t, env.do(t, http.MethodGet, "/api/v1/watch/directories", nil), http.StatusNotImplemented)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, false)
	expectStatus(t, env.do(t, http.MethodGet, "/api/v1/pages/x", nil), http.StatusOK)
	expectStatus(t, env.do(t, http.MethodPost, "/api/v1/generate", map[string]string{"text": "Rockets."}), http.StatusOK)

	w := env.do(t, http.MethodGet, "/metrics", nil)
	expectStatus(t, w, http.StatusOK)
	body := w.Body.String()
	for _, want := range []string{
		`sectionkit_api_time_seconds_count{method="GET",route="/api/v1/pages/{pageID}`,
		`sectionkit_generate_requests_total{outcome="success",provider="fake"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output lacks %s", want)
		}
	}
}
