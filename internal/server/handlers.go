package server

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/sectionkit/internal/config"
	"github.com/hyperjump/sectionkit/internal/editor"
	"github.com/hyperjump/sectionkit/internal/extract"
	"github.com/hyperjump/sectionkit/internal/models"
	"github.com/hyperjump/sectionkit/internal/pipeline"
	"github.com/hyperjump/sectionkit/internal/sections"
	"github.com/hyperjump/sectionkit/internal/storage"
)

const multipartMemory = 32 << 20

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	docCount, err := s.storage.CountDocuments(ctx)
	if err != nil {
		s.respondErr(w, "status: count documents failed", err)
		return
	}
	pageCount, err := s.storage.CountPages(ctx)
	if err != nil {
		s.respondErr(w, "status: count pages failed", err)
		return
	}
	status := models.Status{
		Documents:    docCount,
		Pages:        pageCount,
		UnsavedPages: s.editor.Unsaved(),
	}
	if s.config != nil {
		status.DatabasePath = s.config.Storage.DatabasePath
		status.AI = &models.AIStatus{
			Provider:          s.config.AI.Provider,
			Model:             s.config.AI.Model,
			KeyConfigured:     s.config.AI.ResolvedAPIKey() != "",
			MaxInputTokens:    s.config.AI.MaxInputTokens,
			RequestsPerMinute: s.config.AI.RequestsPerMinute,
		}
		if n, err := storage.DiskUsageBytes(storage.DatabaseFiles(s.config.Storage.DatabasePath)...); err == nil {
			status.DiskUsageBytes = &n
		}
	}
	if s.watch != nil {
		status.Watch = &models.WatchStatus{Directories: s.watch.Directories(), Stats: s.watch.Stats()}
	}
	s.respondJSON(w, http.StatusOK, status)
}

func (s *Server) handleSectionTypes(w http.ResponseWriter, r *http.Request) {
	types := sections.Types()
	out := make([]*sections.Schema, 0, len(types))
	for _, t := range types {
		if schema, ok := sections.Lookup(t); ok {
			out = append(out, schema)
		}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"types": out})
}

func (s *Server) maxUploadBytes() int64 {
	if s.config != nil && s.config.Extraction.MaxFileBytes > 0 {
		return s.config.Extraction.MaxFileBytes
	}
	return extract.DefaultMaxFileBytes
}

// readUpload reads the multipart "file" field. It writes the error response itself
// and returns ok=false on failure.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (content []byte, filename string, ok bool) {
	// Leave room for the multipart envelope; the extractor enforces the exact limit.
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes()+1<<20)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, http.StatusRequestEntityTooLarge, extract.ErrFileTooLarge.Error())
			return nil, "", false
		}
		s.respondError(w, http.StatusBadRequest, "expected multipart form with a file field")
		return nil, "", false
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "file is required")
		return nil, "", false
	}
	defer file.Close()
	content, err = io.ReadAll(file)
	if err != nil {
		s.respondErr(w, "read upload failed", err)
		return nil, "", false
	}
	return content, header.Filename, true
}

// handleExtract returns the extracted text of an upload without storing anything.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	content, filename, ok := s.readUpload(w, r)
	if !ok {
		return
	}
	res, err := s.extractor.ExtractBytes(content, filename)
	if err != nil {
		s.respondErr(w, "extract failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, res)
}

type generateRequest struct {
	Text string `json:"text"`
}

// handleGenerate turns text into validated sections without touching any page.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if !s.decode(w, r, &req) {
		return
	}
	res, err := s.generator.Generate(r.Context(), req.Text)
	if err != nil {
		s.respondErr(w, "generate failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, res)
}

// handleUploadDocument extracts an upload, generates sections and applies them to a page.
// Form fields: file, page_id (optional) and mode (replace or append).
func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	content, filename, ok := s.readUpload(w, r)
	if !ok {
		return
	}
	opts := pipeline.Options{
		PageID: r.FormValue("page_id"),
		Mode:   editor.ApplyMode(r.FormValue("mode")),
	}
	s.logger.Debug("upload document", zap.String("filename", filename), zap.String("page_id", opts.PageID))
	res, err := s.importer.ImportBytes(r.Context(), content, filename, opts)
	if err != nil {
		s.respondErr(w, "import upload failed", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, res)
}

func queryInt(r *http.Request, key string, def int) int {
	if v, err := strconv.Atoi(r.URL.Query().Get(key)); err == nil && v >= 0 {
		return v
	}
	return def
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.storage.ListDocuments(r.Context(), queryInt(r, "offset", 0), queryInt(r, "limit", 50))
	if err != nil {
		s.respondErr(w, "list documents failed", err)
		return
	}
	if docs == nil {
		docs = []*models.Document{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"documents": docs})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.storage.GetDocument(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondErr(w, "get document failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.storage.GetDocument(r.Context(), id); err != nil {
		s.respondErr(w, "delete document failed", err)
		return
	}
	if err := s.storage.DeleteDocument(r.Context(), id); err != nil {
		s.respondErr(w, "delete document failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}

func (s *Server) handleWatchDirectoriesList(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"directories": s.watch.Directories()})
}

type watchAddRequest struct {
	Path string `json:"path"`
	Sync *bool  `json:"sync,omitempty"`
}

func (s *Server) handleWatchDirectoriesAdd(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	var req watchAddRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	abs, err := filepath.Abs(req.Path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			s.respondError(w, http.StatusNotFound, "directory not found")
			return
		}
		s.respondErr(w, "watch add directory failed", err)
		return
	}
	if !info.IsDir() {
		s.respondError(w, http.StatusBadRequest, "path is not a directory")
		return
	}
	syncExisting := true
	if req.Sync != nil {
		syncExisting = *req.Sync
	}
	if err := s.watch.AddDirectory(abs, syncExisting); err != nil {
		s.respondErr(w, "watch add directory failed", err)
		return
	}
	s.persistWatchDirectories()
	s.respondJSON(w, http.StatusCreated, map[string]string{"path": abs, "status": "added"})
}

func (s *Server) handleWatchDirectoriesRemove(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	path := r.URL.Query().Get("path")
	if path == "" {
		var body struct {
			Path string `json:"path"`
		}
		if err := decodeOptional(r, &body); err == nil {
			path = body.Path
		}
	}
	if path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required (query or body)")
		return
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	if err := s.watch.RemoveDirectory(abs); err != nil {
		s.respondErr(w, "watch remove directory failed", err)
		return
	}
	s.persistWatchDirectories()
	s.respondJSON(w, http.StatusOK, map[string]string{"path": abs, "status": "removed"})
}

// persistWatchDirectories writes the current watch roots to the config file.
func (s *Server) persistWatchDirectories() {
	if s.configPath == "" || s.config == nil {
		return
	}
	s.configMu.Lock()
	defer s.configMu.Unlock()
	s.config.Watch.Directories = s.watch.Directories()
	if err := config.Save(s.configPath, s.config); err != nil {
		s.logger.Warn("failed to persist watch config", zap.Error(err))
	}
}
