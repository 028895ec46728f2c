package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/sectionkit/internal/ai"
	"github.com/hyperjump/sectionkit/internal/editor"
	"github.com/hyperjump/sectionkit/internal/models"
	"github.com/hyperjump/sectionkit/internal/sections"
)

// session resolves the editor session named by the pageID URL parameter.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*editor.Session, bool) {
	sess, err := s.editor.Session(r.Context(), chi.URLParam(r, "pageID"))
	if err != nil {
		s.respondErr(w, "load page failed", err)
		return nil, false
	}
	return sess, true
}

func (s *Server) respondSnapshot(w http.ResponseWriter, status int, sess *editor.Session) {
	s.respondJSON(w, status, sess.Snapshot())
}

func (s *Server) handleListPages(w http.ResponseWriter, r *http.Request) {
	pages, err := s.storage.ListPages(r.Context(), queryInt(r, "offset", 0), queryInt(r, "limit", 50))
	if err != nil {
		s.respondErr(w, "list pages failed", err)
		return
	}
	if pages == nil {
		pages = []*models.Page{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"pages": pages})
}

func (s *Server) handleGetPage(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	s.respondSnapshot(w, http.StatusOK, sess)
}

func (s *Server) handleGetSections(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"sections": sess.Sections()})
}

func (s *Server) handleDeletePage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "pageID")
	if _, err := s.storage.GetPage(r.Context(), id); err != nil {
		s.respondErr(w, "delete page failed", err)
		return
	}
	if err := s.storage.DeletePage(r.Context(), id); err != nil {
		s.respondErr(w, "delete page failed", err)
		return
	}
	s.editor.Evict(id)
	s.respondJSON(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}

func (s *Server) handleSetTitle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title string `json:"title"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.SetTitle(req.Title)
	s.respondSnapshot(w, http.StatusOK, sess)
}

type replaceSectionsRequest struct {
	Title    *string         `json:"title,omitempty"`
	Sections json.RawMessage `json:"sections"`
	// Save persists the list right away; defaults to true.
	Save *bool `json:"save,omitempty"`
}

// handleReplaceSections replaces the section list with client data. The data is
// normalized first, so legacy field names and stringified repeaters are accepted.
func (s *Server) handleReplaceSections(w http.ResponseWriter, r *http.Request) {
	var req replaceSectionsRequest
	if !s.decode(w, r, &req) {
		return
	}
	list, dropped, err := sections.NormalizeJSON(req.Sections)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if req.Title != nil {
		sess.SetTitle(*req.Title)
	}
	if err := sess.ApplyGenerated(list, editor.ApplyReplace); err != nil {
		s.respondErr(w, "replace sections failed", err)
		return
	}
	resp := map[string]interface{}{"dropped": dropped}
	if req.Save == nil || *req.Save {
		page, err := s.editor.Save(r.Context(), chi.URLParam(r, "pageID"))
		if err != nil {
			s.respondErr(w, "save page failed", err)
			return
		}
		resp["page"] = page
	}
	resp["session"] = sess.Snapshot()
	s.respondJSON(w, http.StatusOK, resp)
}

type generatePageRequest struct {
	Text       string           `json:"text"`
	DocumentID string           `json:"document_id"`
	Mode       editor.ApplyMode `json:"mode"`
	Save       bool             `json:"save"`
}

type generatePageResponse struct {
	Generation *ai.GenerationResult `json:"generation"`
	Session    editor.Snapshot      `json:"session"`
	Page       *models.Page         `json:"page,omitempty"`
}

// handleGeneratePage generates sections from text or a stored document and applies
// them to the page session. With save set the page is persisted as well.
func (s *Server) handleGeneratePage(w http.ResponseWriter, r *http.Request) {
	var req generatePageRequest
	if !s.decode(w, r, &req) {
		return
	}
	text := req.Text
	if text == "" && req.DocumentID != "" {
		doc, err := s.storage.GetDocument(r.Context(), req.DocumentID)
		if err != nil {
			s.respondErr(w, "load document failed", err)
			return
		}
		text = doc.Content
	}
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	gen, err := s.generator.Generate(r.Context(), text)
	if err != nil {
		s.respondErr(w, "generate failed", err)
		return
	}
	if err := sess.ApplyGenerated(gen.Sections, req.Mode); err != nil {
		s.respondErr(w, "apply sections failed", err)
		return
	}
	resp := generatePageResponse{Generation: gen}
	if req.Save {
		page, err := s.editor.Save(r.Context(), chi.URLParam(r, "pageID"))
		if err != nil {
			s.respondErr(w, "save page failed", err)
			return
		}
		resp.Page = page
	}
	resp.Session = sess.Snapshot()
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSavePage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "pageID")
	page, err := s.editor.Save(r.Context(), id)
	if err != nil {
		s.respondErr(w, "save page failed", err)
		return
	}
	s.logger.Debug("page saved via API", zap.String("page_id", id), zap.Int64("revision", page.Revision))
	s.respondJSON(w, http.StatusOK, page)
}

// handleReloadPage discards unsaved changes and reloads the page from storage.
func (s *Server) handleReloadPage(w http.ResponseWriter, r *http.Request) {
	sess, err := s.editor.Reload(r.Context(), chi.URLParam(r, "pageID"))
	if err != nil {
		s.respondErr(w, "reload page failed", err)
		return
	}
	s.respondSnapshot(w, http.StatusOK, sess)
}

func (s *Server) handleAddSection(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type  string `json:"type"`
		Index *int   `json:"index,omitempty"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	index := -1
	if req.Index != nil {
		index = *req.Index
	}
	sec, err := sess.Add(sections.ResolveType(req.Type), index)
	if err != nil {
		s.respondErr(w, "add section failed", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, sec)
}

type moveRequest struct {
	From int `json:"from"`
	To   int `json:"to"`
}

func (s *Server) handleMoveSection(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if !s.decode(w, r, &req) {
		return
	}
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := sess.Move(req.From, req.To); err != nil {
		s.respondErr(w, "move section failed", err)
		return
	}
	s.respondSnapshot(w, http.StatusOK, sess)
}

// handleUpdateSection sets one or more fields: {"fields": {"heading": "..."}}.
func (s *Server) handleUpdateSection(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Fields map[string]interface{} `json:"fields"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "sectionID")
	if err := sess.UpdateFields(id, req.Fields); err != nil {
		s.respondErr(w, "update section failed", err)
		return
	}
	s.respondSnapshot(w, http.StatusOK, sess)
}

func (s *Server) handleRemoveSection(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := sess.Remove(chi.URLParam(r, "sectionID")); err != nil {
		s.respondErr(w, "remove section failed", err)
		return
	}
	s.respondSnapshot(w, http.StatusOK, sess)
}

func (s *Server) handleDuplicateSection(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	dup, err := sess.Duplicate(chi.URLParam(r, "sectionID"))
	if err != nil {
		s.respondErr(w, "duplicate section failed", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, dup)
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	index, err := sess.AddItem(chi.URLParam(r, "sectionID"), chi.URLParam(r, "field"))
	if err != nil {
		s.respondErr(w, "add item failed", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]int{"index": index})
}

func (s *Server) handleMoveItem(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if !s.decode(w, r, &req) {
		return
	}
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := sess.MoveItem(chi.URLParam(r, "sectionID"), chi.URLParam(r, "field"), req.From, req.To); err != nil {
		s.respondErr(w, "move item failed", err)
		return
	}
	s.respondSnapshot(w, http.StatusOK, sess)
}

func itemIndex(r *http.Request) (int, bool) {
	n, err := strconv.Atoi(chi.URLParam(r, "index"))
	return n, err == nil
}

// handleUpdateItem sets keys of one repeater item: {"values": {"text": "..."}}.
func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	index, ok := itemIndex(r)
	if !ok {
		s.respondError(w, http.StatusBadRequest, "invalid item index")
		return
	}
	var req struct {
		Values map[string]interface{} `json:"values"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	id, field := chi.URLParam(r, "sectionID"), chi.URLParam(r, "field")
	if err := sess.UpdateItemValues(id, field, index, req.Values); err != nil {
		s.respondErr(w, "update item failed", err)
		return
	}
	s.respondSnapshot(w, http.StatusOK, sess)
}

func (s *Server) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	index, ok := itemIndex(r)
	if !ok {
		s.respondError(w, http.StatusBadRequest, "invalid item index")
		return
	}
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := sess.RemoveItem(chi.URLParam(r, "sectionID"), chi.URLParam(r, "field"), index); err != nil {
		s.respondErr(w, "remove item failed", err)
		return
	}
	s.respondSnapshot(w, http.StatusOK, sess)
}
