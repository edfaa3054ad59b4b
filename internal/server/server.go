// file: internal/server/server.go
// version: 2.0.0
// guid: 4c5d6e7f-8a9b-0c1d-2e3f-4a5b6c7d8e9f

// Package server exposes imports, collections and settings over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jdfalk/playlist-importer/internal/config"
	"github.com/jdfalk/playlist-importer/internal/database"
	"github.com/jdfalk/playlist-importer/internal/importer"
	"github.com/jdfalk/playlist-importer/internal/logging"
	"github.com/jdfalk/playlist-importer/internal/metrics"
	"github.com/jdfalk/playlist-importer/internal/naming"
	"github.com/jdfalk/playlist-importer/internal/operations"
	"github.com/jdfalk/playlist-importer/internal/playlist"
	"github.com/jdfalk/playlist-importer/internal/realtime"
	"github.com/jdfalk/playlist-importer/internal/server/middleware"
	"github.com/jdfalk/playlist-importer/internal/sysinfo"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Importer runs imports and maintenance. *importer.Orchestrator
// implements it.
type Importer interface {
	operations.Runner
	operations.Maintainer
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *gin.Engine
	store      database.Store
	queue      *operations.OperationQueue
	importer   Importer
	hub        *realtime.EventHub
	logger     *logging.Logger
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Listen       string
	ReadTimeout  time.Duration
	IdleTimeout  time.Duration
	ShutdownWait time.Duration
}

// NewServer creates a server. The queue's publisher should be hub so
// operation events reach SSE clients.
func NewServer(store database.Store, queue *operations.OperationQueue, imp Importer, hub *realtime.EventHub, logger *logging.Logger) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	metrics.Register()

	s := &Server{
		router:   router,
		store:    store,
		queue:    queue,
		importer: imp,
		hub:      hub,
		logger:   logger.With("server"),
	}
	s.setupRoutes()
	return s
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, cfg ServerConfig) error {
	if cfg.ShutdownWait <= 0 {
		cfg.ShutdownWait = 30 * time.Second
	}
	s.httpServer = &http.Server{
		Addr:              cfg.Listen,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.ReadTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    1 << 20,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Infof("listening on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownWait)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	s.logger.Infof("server exited")
	return nil
}

// setupRoutes configures all the routes
func (s *Server) setupRoutes() {
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	s.router.GET("/api/health", s.healthCheck)
	s.router.GET("/api/events", s.hub.HandleSSE)

	api := s.router.Group("/api/v1")
	api.Use(middleware.NewRateLimiter(config.AppConfig.APIRateLimitPerMinute, 20).Handler())
	api.Use(middleware.JSONBody(middleware.DefaultBodyLimit))
	{
		api.POST("/imports", s.startImport)
		api.POST("/purge", s.startPurge)
		api.DELETE("/ledger", s.clearHistory)

		api.GET("/operations", s.listOperations)
		api.GET("/operations/active", s.listActiveOperations)
		api.GET("/operations/:id/status", s.getOperationStatus)
		api.GET("/operations/:id/logs", s.getOperationLogs)
		api.DELETE("/operations/:id", s.cancelOperation)

		api.GET("/collections", s.listCollections)
		api.GET("/collections/:id/tracks", s.getCollectionTracks)
		api.GET("/collections/:id/export", s.exportCollection)

		api.GET("/settings", s.listSettings)
		api.GET("/settings/:key", s.getSetting)
		api.PUT("/settings/:key", s.updateSetting)

		api.GET("/system/status", s.getSystemStatus)
	}
}

// corsMiddleware adds CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	resp := gin.H{
		"status":            "ok",
		"timestamp":         time.Now().Unix(),
		"database_type":     config.AppConfig.DatabaseType,
		"active_operations": len(s.queue.ActiveOperations()),
		"sse_clients":       s.hub.GetClientCount(),
	}

	// Count failures degrade the response instead of failing it.
	var errs []string
	if n, err := s.store.CountCollections(); err == nil {
		resp["collections"] = n
	} else {
		errs = append(errs, err.Error())
	}
	if n, err := s.store.CountLedgerEntries(); err == nil {
		resp["ledger_entries"] = n
	} else {
		errs = append(errs, err.Error())
	}
	if len(errs) > 0 {
		resp["partial_error"] = errs
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) getSystemStatus(c *gin.Context) {
	recent, err := s.store.GetRecentOperations(5)
	if err != nil {
		s.logger.Debugf("getSystemStatus: failed to load recent operations: %v", err)
		recent = []database.Operation{}
	}

	snap := sysinfo.Read()
	c.JSON(http.StatusOK, gin.H{
		"status":      "running",
		"folder_dir":  config.AppConfig.FolderDir,
		"source":      config.SourceKind(),
		"memory":      snap.Host,
		"runtime":     snap.Process,
		"operations":  gin.H{"recent": recent, "active": len(s.queue.ActiveOperations())},
		"sse_clients": s.hub.GetClientCount(),
	})
}

// importRequest overrides the configured import settings for one run.
// Omitted fields keep their configured values.
type importRequest struct {
	Root                  string  `json:"root"`
	DuplicateCheck        *bool   `json:"enable_duplicate_checking"`
	Repeat                *bool   `json:"should_repeat"`
	Stream                *bool   `json:"should_stream"`
	LogVolume             *string `json:"log_volume"`
	Override              *bool   `json:"should_override_playlist"`
	DeletePrevious        *bool   `json:"should_delete_playlist"`
	PreserveOriginalNames *bool   `json:"maintain_original_folder_name"`
	ExcludePattern        *string `json:"custom_regex_delete"`
	ReadTags              *bool   `json:"read_tags"`
	Workers               *int    `json:"workers"`
}

func (r importRequest) options() importer.Options {
	opts := config.ImportOptions(r.Root)
	setBool := func(dst *bool, v *bool) {
		if v != nil {
			*dst = *v
		}
	}
	setBool(&opts.DuplicateCheck, r.DuplicateCheck)
	setBool(&opts.Repeat, r.Repeat)
	setBool(&opts.Stream, r.Stream)
	setBool(&opts.Override, r.Override)
	setBool(&opts.DeletePrevious, r.DeletePrevious)
	setBool(&opts.PreserveOriginalNames, r.PreserveOriginalNames)
	setBool(&opts.ReadTags, r.ReadTags)
	if r.LogVolume != nil {
		opts.LogVolume = *r.LogVolume
	}
	if r.ExcludePattern != nil {
		opts.ExcludePattern = *r.ExcludePattern
	}
	if r.Workers != nil {
		opts.Workers = *r.Workers
	}
	return opts
}

func (s *Server) startImport(c *gin.Context) {
	var req importRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		s.badBody(c, err)
		return
	}

	opts := req.options()
	if opts.Root == "" {
		s.invalidField(c, "root", errors.New("no root given and folder_dir is not set"))
		return
	}
	if _, err := importer.ParseVolume(opts.LogVolume); err != nil {
		s.invalidField(c, config.KeyLogVolume, err)
		return
	}
	if _, err := naming.NewNormalizer(opts.ExcludePattern); err != nil {
		s.invalidField(c, config.KeyExcludePattern, err)
		return
	}

	for _, active := range s.queue.ActiveOperations() {
		if active.Type == operations.TypeImport {
			s.fail(c, fmt.Errorf("%w: %s", importer.ErrImportRunning, active.ID))
			return
		}
	}

	op, err := s.queue.SubmitImport(s.importer, opts)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, op)
}

func (s *Server) startPurge(c *gin.Context) {
	op, err := s.queue.SubmitPurge(s.importer)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, op)
}

func (s *Server) clearHistory(c *gin.Context) {
	op, err := s.queue.SubmitClearHistory(s.importer)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, op)
}

func (s *Server) listOperations(c *gin.Context) {
	limit := queryInt(c, "limit", 20, 1, 500)
	ops, err := s.store.GetRecentOperations(limit)
	if err != nil {
		s.fail(c, err)
		return
	}
	if ops == nil {
		ops = []database.Operation{}
	}
	c.JSON(http.StatusOK, gin.H{"operations": ops, "count": len(ops)})
}

func (s *Server) getOperationStatus(c *gin.Context) {
	id := c.Param("id")
	op, err := s.store.GetOperationByID(id)
	if err != nil {
		s.fail(c, err)
		return
	}
	if op == nil {
		s.notFound(c, "operation", id)
		return
	}
	c.JSON(http.StatusOK, op)
}

func (s *Server) getOperationLogs(c *gin.Context) {
	id := c.Param("id")
	op, err := s.store.GetOperationByID(id)
	if err != nil {
		s.fail(c, err)
		return
	}
	if op == nil {
		s.notFound(c, "operation", id)
		return
	}
	logs, err := s.store.GetOperationLogs(id)
	if err != nil {
		s.fail(c, err)
		return
	}
	if logs == nil {
		logs = []database.OperationLog{}
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs, "count": len(logs)})
}

func (s *Server) cancelOperation(c *gin.Context) {
	id := c.Param("id")
	if err := s.queue.Cancel(id); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// listActiveOperations returns a snapshot of currently queued/running operations with basic progress
func (s *Server) listActiveOperations(c *gin.Context) {
	active := s.queue.ActiveOperations()
	results := make([]gin.H, 0, len(active))
	for _, a := range active {
		entry := gin.H{"id": a.ID, "type": a.Type, "status": operations.StatusQueued}
		if op, err := s.store.GetOperationByID(a.ID); err == nil && op != nil {
			entry["status"] = op.Status
			entry["progress"] = op.Progress
			entry["total"] = op.Total
			entry["message"] = op.Message
		}
		results = append(results, entry)
	}
	c.JSON(http.StatusOK, gin.H{"operations": results})
}

func (s *Server) listCollections(c *gin.Context) {
	all, err := s.store.GetAllCollections()
	if err != nil {
		s.fail(c, err)
		return
	}

	if queryBool(c, "imported") {
		imported := all[:0]
		for _, col := range all {
			if col.IsImported() {
				imported = append(imported, col)
			}
		}
		all = imported
	}

	found := playlist.Search(all, c.Query("q"))
	c.JSON(http.StatusOK, gin.H{"collections": found, "count": len(found)})
}

func (s *Server) collection(c *gin.Context) (*database.Collection, bool) {
	id := c.Param("id")
	col, err := s.store.GetCollectionByID(id)
	if err != nil {
		s.fail(c, err)
		return nil, false
	}
	if col == nil {
		s.notFound(c, "collection", id)
		return nil, false
	}
	return col, true
}

func (s *Server) getCollectionTracks(c *gin.Context) {
	col, ok := s.collection(c)
	if !ok {
		return
	}
	tracks, err := s.store.GetTracks(col.ID)
	if err != nil {
		s.fail(c, err)
		return
	}
	if tracks == nil {
		tracks = []database.Track{}
	}
	c.JSON(http.StatusOK, gin.H{"collection": col, "tracks": tracks, "count": len(tracks)})
}

func (s *Server) exportCollection(c *gin.Context) {
	col, ok := s.collection(c)
	if !ok {
		return
	}
	tracks, err := s.store.GetTracks(col.ID)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.Header("Content-Type", "audio/x-mpegurl; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", playlist.SafeFileName(col.Name)+".m3u"))
	c.Status(http.StatusOK)
	if err := playlist.Write(c.Writer, col, tracks); err != nil {
		s.logger.Warnf("export of %s aborted: %v", col.ID, err)
	}
}

func (s *Server) listSettings(c *gin.Context) {
	settings := make(map[string]string)
	for _, key := range config.SettingKeys() {
		value, err := config.SettingValue(key, false)
		if err != nil {
			continue
		}
		settings[key] = value
	}
	c.JSON(http.StatusOK, gin.H{"settings": settings})
}

func (s *Server) getSetting(c *gin.Context) {
	key := c.Param("key")
	value, err := config.SettingValue(key, false)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": key, "value": value, "secret": config.IsSecret(key)})
}

type settingRequest struct {
	Value *string `json:"value" binding:"required"`
}

func (s *Server) updateSetting(c *gin.Context) {
	key := c.Param("key")
	var req settingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badBody(c, err)
		return
	}

	if err := config.UpdateSetting(s.store, key, *req.Value); err != nil {
		s.fail(c, err)
		return
	}

	s.logger.Infof("setting %s updated", key)
	value, _ := config.SettingValue(key, false)
	c.JSON(http.StatusOK, gin.H{"key": key, "value": value, "secret": config.IsSecret(key)})
}
