// Package server provides the HTTP API for sectionkit.
package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/sectionkit/internal/config"
	"github.com/hyperjump/sectionkit/internal/editor"
	"github.com/hyperjump/sectionkit/internal/extract"
	"github.com/hyperjump/sectionkit/internal/metrics"
	"github.com/hyperjump/sectionkit/internal/models"
	"github.com/hyperjump/sectionkit/internal/pipeline"
	"github.com/hyperjump/sectionkit/internal/storage"
)

// WatchService manages watched directories at runtime. *watcher.Watcher implements it.
type WatchService interface {
	Directories() []string
	AddDirectory(path string, syncExisting bool) error
	RemoveDirectory(path string) error
	Stats() models.WatchStats
}

// Server is the HTTP server for the sectionkit API.
type Server struct {
	storage   storage.Storage
	extractor *extract.Extractor
	generator pipeline.Generator
	importer  *pipeline.Importer
	editor    *editor.Manager
	metrics   *metrics.Metrics
	config    *config.Config
	logger    *zap.Logger
	server    *http.Server

	watch      WatchService
	configPath string
	configMu   sync.Mutex
}

// Option configures a Server.
type Option func(*Server)

// WithWatch enables the watch directory endpoints. Directory changes are written back
// to the config file at configPath when it is set.
func WithWatch(w WatchService, configPath string) Option {
	return func(s *Server) {
		s.watch = w
		s.configPath = configPath
	}
}

// WithMetrics records request durations and serves /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// NewServer creates a server with the given dependencies.
func NewServer(
	store storage.Storage,
	extractor *extract.Extractor,
	generator pipeline.Generator,
	importer *pipeline.Importer,
	manager *editor.Manager,
	cfg *config.Config,
	logger *zap.Logger,
	opts ...Option,
) *Server {
	s := &Server{
		storage:   store,
		extractor: extractor,
		generator: generator,
		importer:  importer,
		editor:    manager,
		config:    cfg,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.observe)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.requestTimeout()))
	r.Use(middleware.Compress(5))

	r.Get("/health", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/section-types", s.handleSectionTypes)

		r.Post("/extract", s.handleExtract)
		r.Post("/generate", s.handleGenerate)

		r.Route("/documents", func(r chi.Router) {
			r.Get("/", s.handleListDocuments)
			r.Post("/", s.handleUploadDocument)
			r.Get("/{id}", s.handleGetDocument)
			r.Delete("/{id}", s.handleDeleteDocument)
		})

		r.Route("/pages", func(r chi.Router) {
			r.Get("/", s.handleListPages)
			r.Route("/{pageID}", func(r chi.Router) {
				r.Get("/", s.handleGetPage)
				r.Delete("/", s.handleDeletePage)
				r.Put("/title", s.handleSetTitle)
				r.Post("/generate", s.handleGeneratePage)
				r.Post("/save", s.handleSavePage)
				r.Post("/reload", s.handleReloadPage)

				r.Get("/sections", s.handleGetSections)
				r.Put("/sections", s.handleReplaceSections)
				r.Post("/sections", s.handleAddSection)
				r.Post("/sections/move", s.handleMoveSection)
				r.Patch("/sections/{sectionID}", s.handleUpdateSection)
				r.Delete("/sections/{sectionID}", s.handleRemoveSection)
				r.Post("/sections/{sectionID}/duplicate", s.handleDuplicateSection)

				r.Post("/sections/{sectionID}/items/{field}", s.handleAddItem)
				r.Post("/sections/{sectionID}/items/{field}/move", s.handleMoveItem)
				r.Patch("/sections/{sectionID}/items/{field}/{index}", s.handleUpdateItem)
				r.Delete("/sections/{sectionID}/items/{field}/{index}", s.handleRemoveItem)
			})
		})

		r.Route("/watch/directories", func(r chi.Router) {
			r.Get("/", s.handleWatchDirectoriesList)
			r.Post("/", s.handleWatchDirectoriesAdd)
			r.Delete("/", s.handleWatchDirectoriesRemove)
		})
	})
	return r
}

// requestTimeout leaves room for one AI call on top of the usual request handling.
func (s *Server) requestTimeout() time.Duration {
	d := 60 * time.Second
	if s.config != nil {
		if ai := s.config.AI.Timeout() + 30*time.Second; ai > d {
			d = ai
		}
	}
	return d
}

// observe logs each request and records its duration by route pattern.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		elapsed := time.Since(start)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.metrics.ObserveAPIEndpointDuration(route, r.Method, strconv.Itoa(status), elapsed)
		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("elapsed", elapsed),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
