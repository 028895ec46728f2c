// Package main is the sectionkit CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/sectionkit/internal/ai"
	"github.com/hyperjump/sectionkit/internal/cli"
	"github.com/hyperjump/sectionkit/internal/config"
	"github.com/hyperjump/sectionkit/internal/editor"
	"github.com/hyperjump/sectionkit/internal/extract"
	"github.com/hyperjump/sectionkit/internal/metrics"
	"github.com/hyperjump/sectionkit/internal/models"
	"github.com/hyperjump/sectionkit/internal/pipeline"
	"github.com/hyperjump/sectionkit/internal/sections"
	"github.com/hyperjump/sectionkit/internal/server"
	"github.com/hyperjump/sectionkit/internal/storage"
	"github.com/hyperjump/sectionkit/internal/watcher"
	"github.com/hyperjump/sectionkit/pkg/utils"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/sectionkit/config.yaml"
	defaultServerURL  = "http://localhost:8080"
)

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used,
// so that "sectionkit server" from the project dir uses the project's config.
// A missing default config is not an error: built-in defaults are used instead.
// Returns the config and the path that was actually loaded (for saving, etc.).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
		if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
			cfg := &config.Config{}
			config.ApplyDefaults(cfg)
			return cfg, "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "extract":
		runExtract()
	case "generate":
		runGenerate()
	case "import":
		runImport()
	case "sections":
		runSections()
	case "status":
		runStatus()
	case "watch":
		runWatch()
	case "version", "--version", "-v":
		fmt.Printf("sectionkit version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func fail(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// reorderArgs moves any flags (and their values) that appear after the positional
// arguments to the front so that flag.Parse() sees them. Go's flag package stops
// at the first non-flag argument, so "sectionkit generate notes.md -output json"
// would otherwise leave -output unparsed.
func reorderArgs(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func parseFormat(s string) cli.OutputFormat {
	format, err := cli.ParseFormat(s)
	if err != nil {
		fail("%v", err)
	}
	return format
}

// parseMode validates a --mode flag value.
func parseMode(s string) (editor.ApplyMode, error) {
	switch editor.ApplyMode(s) {
	case "", editor.ApplyReplace:
		return editor.ApplyReplace, nil
	case editor.ApplyAppend:
		return editor.ApplyAppend, nil
	}
	return "", fmt.Errorf("unknown mode %q (use replace or append)", s)
}

// commandSetup loads config and a logger for one-shot commands.
func commandSetup(configPath string, debug bool) (*config.Config, *zap.Logger) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		fail("Failed to load config: %v", err)
	}
	logger, err := utils.NewCommandLogger(cfg.Debug || debug)
	if err != nil {
		fail("Failed to create logger: %v", err)
	}
	return cfg, logger
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (requests, imports, saves)")
	noWatch := fs.Bool("no-watch", false, "disable the inbox directory watcher")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
		zap.String("ai_provider", cfg.AI.Provider),
		zap.String("ai_model", cfg.AI.Model),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	opts := []server.Option{server.WithMetrics(components.Metrics)}
	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	var watchSvc *watcher.Watcher
	if !*noWatch {
		watchSvc = watcher.New(components.Importer, cfg.Watch, watcher.WithLogger(logger))
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		watchSvc.SyncExistingFiles()
		opts = append(opts, server.WithWatch(watchSvc, resolvedConfigPath))
	}

	srv := server.NewServer(
		components.Storage,
		components.Extractor,
		components.Generator,
		components.Importer,
		components.Editor,
		cfg,
		logger,
		opts...,
	)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	if unsaved := components.Editor.Unsaved(); len(unsaved) > 0 {
		logger.Warn("discarding unsaved pages", zap.Strings("page_ids", unsaved))
	}
	watchCancel()
	if watchSvc != nil {
		watchSvc.Stop()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runExtract() {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (for extraction limits)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(reorderArgs(os.Args[2:]))

	if fs.NArg() < 1 {
		fmt.Println("Usage: sectionkit extract [flags] <file>")
		os.Exit(1)
	}
	format := parseFormat(*outputFormat)
	cfg, logger := commandSetup(*configPath, false)
	defer logger.Sync()

	res, err := newExtractor(cfg, nil).Extract(fs.Arg(0))
	if err != nil {
		fail("Extraction failed: %v", err)
	}
	if err := cli.WriteExtraction(os.Stdout, res, format); err != nil {
		fail("Output failed: %v", err)
	}
}

// runGenerate extracts a file and prints the generated sections without storing anything.
func runGenerate() {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	outputFormat := fs.String("output", "text", "output format: text or json")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(reorderArgs(os.Args[2:]))

	if fs.NArg() < 1 {
		fmt.Println("Usage: sectionkit generate [flags] <file>")
		os.Exit(1)
	}
	format := parseFormat(*outputFormat)
	cfg, logger := commandSetup(*configPath, *debug)
	defer logger.Sync()

	extracted, err := newExtractor(cfg, nil).Extract(fs.Arg(0))
	if err != nil {
		fail("Extraction failed: %v", err)
	}
	gen, err := ai.NewGeneratorFromConfig(cfg.AI, nil, ai.WithLogger(logger))
	if err != nil {
		fail("AI provider unavailable: %v", err)
	}
	res, err := gen.Generate(context.Background(), extracted.Text)
	if err != nil {
		fail("Generation failed: %v", err)
	}
	if err := cli.WriteGeneration(os.Stdout, res, format); err != nil {
		fail("Output failed: %v", err)
	}
}

// runImport imports a file or directory into pages. With --server set the file is
// uploaded to the running server; otherwise the database is opened directly.
func runImport() {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = use direct storage)")
	pageID := fs.String("page", "", "target page id (default: derived from the file path)")
	modeFlag := fs.String("mode", "replace", "how sections are applied to an existing page: replace or append")
	force := fs.Bool("force", false, "re-import files that have not changed")
	recursive := fs.Bool("recursive", true, "descend into subdirectories")
	outputFormat := fs.String("output", "text", "output format: text or json")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(reorderArgs(os.Args[2:]))

	if fs.NArg() < 1 {
		fmt.Println("Usage: sectionkit import [flags] <file-or-directory>")
		os.Exit(1)
	}
	path := fs.Arg(0)
	format := parseFormat(*outputFormat)
	mode, err := parseMode(*modeFlag)
	if err != nil {
		fail("%v", err)
	}

	if *serverURL != "" {
		res, err := uploadViaHTTP(*serverURL, path, *pageID, mode)
		if err != nil {
			fail("Import failed: %v", err)
		}
		writeImportResult(res, format)
		return
	}

	cfg, logger := commandSetup(*configPath, *debug)
	defer logger.Sync()
	components, err := initializeComponents(cfg, logger)
	if err != nil {
		fail("Failed to initialize: %v", err)
	}
	defer components.Close()

	ctx := context.Background()
	opts := pipeline.Options{PageID: *pageID, Mode: mode, Force: *force}
	info, err := os.Stat(path)
	if err != nil {
		fail("Failed to stat path: %v", err)
	}
	if info.IsDir() {
		opts.PageID = ""
		sum, err := components.Importer.ImportDirectory(ctx, path, *recursive, opts)
		if format == cli.OutputJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			_ = enc.Encode(sum)
		} else {
			fmt.Printf("Imported %d, skipped %d, failed %d from %s\n", sum.Imported, sum.Skipped, sum.Failed, path)
		}
		if err != nil {
			fail("Some files failed: %v", err)
		}
		return
	}
	res, err := components.Importer.ImportFile(ctx, path, opts)
	if err != nil {
		fail("Import failed: %v", err)
	}
	writeImportResult(res, format)
}

func writeImportResult(res *pipeline.Result, format cli.OutputFormat) {
	if format == cli.OutputJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			fail("Output failed: %v", err)
		}
		return
	}
	if res.Skipped {
		fmt.Printf("Unchanged, skipped: %s (page %s)\n", res.Document.SourcePath, res.Document.PageID)
		return
	}
	if res.Generation != nil {
		_ = cli.WriteGeneration(os.Stdout, res.Generation, format)
	}
	if res.Page != nil {
		fmt.Printf("Page %s saved at revision %d\n", res.Page.ID, res.Page.Revision)
	}
}

func runSections() {
	fs := flag.NewFlagSet("sections", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	types := fs.Bool("types", false, "list the available section types instead of a page")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(reorderArgs(os.Args[2:]))
	format := parseFormat(*outputFormat)

	if *types {
		var schemas []*sections.Schema
		for _, t := range sections.Types() {
			if s, ok := sections.Lookup(t); ok {
				schemas = append(schemas, s)
			}
		}
		if err := cli.WriteSectionTypes(os.Stdout, schemas, format); err != nil {
			fail("Output failed: %v", err)
		}
		return
	}
	if fs.NArg() < 1 {
		fmt.Println("Usage: sectionkit sections [flags] <page-id>")
		fmt.Println("       sectionkit sections --types")
		os.Exit(1)
	}

	cfg, logger := commandSetup(*configPath, false)
	defer logger.Sync()
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath, storage.WithLogger(logger))
	if err != nil {
		fail("Failed to open storage: %v", err)
	}
	defer store.Close()

	page, err := store.GetPage(context.Background(), fs.Arg(0))
	if err != nil {
		fail("Load page failed: %v", err)
	}
	if format == cli.OutputText && page.Title != "" {
		fmt.Printf("%s (revision %d)\n", page.Title, page.Revision)
	}
	if err := cli.WriteSections(os.Stdout, page.Sections, nil, format); err != nil {
		fail("Output failed: %v", err)
	}
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (for direct storage mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = use direct storage)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])
	format := parseFormat(*outputFormat)

	var status models.Status
	if *serverURL != "" {
		if err := getJSON(*serverURL+"/api/v1/status", &status); err != nil {
			fail("Status failed: %v", err)
		}
	} else {
		cfg, logger := commandSetup(*configPath, false)
		defer logger.Sync()
		store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath, storage.WithLogger(logger))
		if err != nil {
			fail("Failed to open storage: %v", err)
		}
		defer store.Close()
		st, err := localStatus(context.Background(), store, cfg)
		if err != nil {
			fail("Status failed: %v", err)
		}
		status = *st
	}
	if err := cli.WriteStatus(os.Stdout, &status, format); err != nil {
		fail("Output failed: %v", err)
	}
}

// localStatus builds the status report straight from the database.
func localStatus(ctx context.Context, store storage.Storage, cfg *config.Config) (*models.Status, error) {
	docs, err := store.CountDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}
	pages, err := store.CountPages(ctx)
	if err != nil {
		return nil, fmt.Errorf("count pages: %w", err)
	}
	st := &models.Status{
		Documents:    docs,
		Pages:        pages,
		DatabasePath: cfg.Storage.DatabasePath,
		AI: &models.AIStatus{
			Provider:          cfg.AI.Provider,
			Model:             cfg.AI.Model,
			KeyConfigured:     cfg.AI.ResolvedAPIKey() != "",
			MaxInputTokens:    cfg.AI.MaxInputTokens,
			RequestsPerMinute: cfg.AI.RequestsPerMinute,
		},
	}
	if n, err := storage.DiskUsageBytes(storage.DatabaseFiles(cfg.Storage.DatabasePath)...); err == nil {
		st.DiskUsageBytes = &n
	}
	return st, nil
}

func runWatch() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: sectionkit watch <add|remove|list> [path]")
		fmt.Println("  sectionkit watch add <path>     Add inbox directory to watch")
		fmt.Println("  sectionkit watch remove <path>  Remove directory from watch")
		fmt.Println("  sectionkit watch list           List watched directories")
		os.Exit(1)
	}
	sub := os.Args[2]
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	noSync := fs.Bool("no-sync", false, "do not import files already in the directory")
	outputFormat := fs.String("output", "text", "output format for list: text or json")
	_ = fs.Parse(reorderArgs(os.Args[3:]))
	endpoint := *serverURL + "/api/v1/watch/directories"

	switch sub {
	case "add":
		if fs.NArg() < 1 {
			fail("Usage: sectionkit watch add <path>")
		}
		path, _ := filepath.Abs(fs.Arg(0))
		body, _ := json.Marshal(map[string]interface{}{"path": path, "sync": !*noSync})
		if err := doJSON(http.MethodPost, endpoint, bytes.NewReader(body), http.StatusCreated, nil); err != nil {
			fail("Add failed: %v", err)
		}
		fmt.Printf("Added: %s\n", path)
	case "remove":
		if fs.NArg() < 1 {
			fail("Usage: sectionkit watch remove <path>")
		}
		path, _ := filepath.Abs(fs.Arg(0))
		if err := doJSON(http.MethodDelete, endpoint+"?path="+url.QueryEscape(path), nil, http.StatusOK, nil); err != nil {
			fail("Remove failed: %v", err)
		}
		fmt.Printf("Removed: %s\n", path)
	case "list":
		var out struct {
			Directories []string `json:"directories"`
		}
		if err := getJSON(endpoint, &out); err != nil {
			fail("List failed: %v", err)
		}
		_ = cli.WriteDirectories(os.Stdout, out.Directories, parseFormat(*outputFormat))
	default:
		fail("Unknown watch subcommand: %s", sub)
	}
}

func getJSON(endpoint string, out interface{}) error {
	return doJSON(http.MethodGet, endpoint, nil, http.StatusOK, out)
}

// doJSON sends a request and decodes the JSON response into out when it is non-nil.
// A status other than want is reported with the server's error message.
func doJSON(method, endpoint string, body io.Reader, want int, out interface{}) error {
	req, err := http.NewRequest(method, endpoint, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return sendRequest(req, want, out)
}

func sendRequest(req *http.Request, want int, out interface{}) error {
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != want {
		return responseError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func responseError(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var apiErr struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(b, &apiErr) == nil && apiErr.Error != "" {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, apiErr.Error)
	}
	return fmt.Errorf("server returned %d: %s", resp.StatusCode, bytes.TrimSpace(b))
}

// uploadViaHTTP posts a file to the server's document endpoint.
func uploadViaHTTP(serverURL, path, pageID string, mode editor.ApplyMode) (*pipeline.Result, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if pageID != "" {
		_ = mw.WriteField("page_id", pageID)
	}
	_ = mw.WriteField("mode", string(mode))
	fw, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(content); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	req, err := http.NewRequest(http.MethodPost, serverURL+"/api/v1/documents", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	var res pipeline.Result
	if err := sendRequest(req, http.StatusCreated, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Components holds initialized services.
type Components struct {
	Storage   *storage.SQLiteStorage
	Metrics   *metrics.Metrics
	Extractor *extract.Extractor
	Generator pipeline.Generator
	Editor    *editor.Manager
	Importer  *pipeline.Importer
}

func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

// unavailableGenerator stands in when the AI provider cannot be built, so that
// extraction and editing keep working and generation reports why it cannot run.
type unavailableGenerator struct {
	err error
}

func (u unavailableGenerator) Generate(context.Context, string) (*ai.GenerationResult, error) {
	return nil, u.err
}

func newExtractor(cfg *config.Config, m *metrics.Metrics) *extract.Extractor {
	return extract.NewExtractor(
		extract.WithMaxFileBytes(cfg.Extraction.MaxFileBytes),
		extract.WithPreviewChars(cfg.Extraction.PreviewChars),
		extract.WithMetrics(m),
	)
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath, storage.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	m := metrics.New()
	extractor := newExtractor(cfg, m)

	var generator pipeline.Generator
	gen, err := ai.NewGeneratorFromConfig(cfg.AI, nil, ai.WithLogger(logger), ai.WithMetrics(m))
	if err != nil {
		logger.Warn("AI provider unavailable, generation disabled",
			zap.String("provider", cfg.AI.Provider),
			zap.Error(err))
		generator = unavailableGenerator{err: err}
	} else {
		generator = gen
	}

	manager := editor.NewManager(store, editor.WithLogger(logger))
	importer := pipeline.NewImporter(store, extractor, generator, manager,
		pipeline.WithLogger(logger),
		pipeline.WithExtensions(cfg.Watch.Extensions))

	return &Components{
		Storage:   store,
		Metrics:   m,
		Extractor: extractor,
		Generator: generator,
		Editor:    manager,
		Importer:  importer,
	}, nil
}

func printUsage() {
	fmt.Println(`sectionkit - Turn documents into structured landing page sections

Usage:
  sectionkit server [flags]             Start the HTTP server and inbox watcher
  sectionkit extract [flags] <file>     Print the text extracted from a document
  sectionkit generate [flags] <file>    Generate sections from a document (nothing is stored)
  sectionkit import [flags] <path>      Import a file or directory into pages
  sectionkit sections [flags] <page>    Show the sections of a stored page
  sectionkit status [flags]             Show storage, AI and watcher status
  sectionkit watch <add|remove|list>    Manage watched inbox directories
  sectionkit version                    Show version
  sectionkit help                       Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/sectionkit/config.yaml)
  --debug            Enable debug logging
  --no-watch         Disable the inbox directory watcher

Import Flags:
  --server string    Upload to a running server instead of opening the database
  --page string      Target page id (default: derived from the file path)
  --mode string      replace or append (default: replace)
  --force            Re-import unchanged files
  --recursive        Descend into subdirectories (default: true)

Common Flags:
  --config string    Config file path
  --output string    Output format: text or json (default: text)

Status Flags:
  --server string    Server URL (default: http://localhost:8080). Use empty (--server "") for direct storage.

Watch Flags:
  --server string    Server URL (default: http://localhost:8080)
  --no-sync          Do not import files already in an added directory

Examples:
  sectionkit server
  sectionkit extract brochure.pdf
  sectionkit generate --output json about-us.docx
  sectionkit import --page home --mode append notes.md
  sectionkit import ~/inbox
  sectionkit sections home
  sectionkit sections --types
  sectionkit status --output json
  sectionkit watch add ~/inbox`)
}
