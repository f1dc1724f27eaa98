package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"bookshelf/config"
	"bookshelf/engine"
	"bookshelf/handlers"
	"bookshelf/middleware"
	"bookshelf/services"
	"bookshelf/storage"
	"bookshelf/types"
	"bookshelf/websocket"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and WebSocket server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return StartWebServer(cmd.Context(), config.Load())
	},
}

// Server holds the wired application
type Server struct {
	Router  *gin.Engine
	Manager services.DownloadManager
	Engine  *engine.Local
	Hub     websocket.Hub

	store  *storage.SQLite
	cancel context.CancelFunc
}

// NewServer opens the database, starts the download manager and the hub, and builds the router
func NewServer(ctx context.Context, cfg config.Config) (*Server, error) {
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	store, err := storage.OpenSQLite(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)

	// Initialize services
	local := engine.NewLocal(store)
	manager := services.NewDownloadManager(ctx, local, store, services.Options{
		QueueSize:      cfg.EventQueueSize,
		LibraryWorkers: cfg.LibraryWorkers,
	})

	hub := websocket.NewHub()
	go hub.Run(ctx)
	go websocket.Relay(ctx, hub, types.ViewDownloads, manager.Publisher().Downloads(), websocket.DownloadMessage)
	go websocket.Relay(ctx, hub, types.ViewLibrary, manager.Publisher().Library(), websocket.LibraryMessage)

	// Initialize handlers
	downloadHandler := handlers.NewDownloadHandler(manager, hub, websocket.NewUpgrader(cfg.CORSOrigins))
	libraryHandler := handlers.NewLibraryHandler(manager)
	settingsHandler := handlers.NewSettingsHandler(manager)
	healthHandler := handlers.NewHealthHandler(manager, hub, cfg.DBPath)
	engineHandler := handlers.NewEngineHandler(local)

	// Setup router
	r := gin.New()

	// Apply middleware
	r.Use(gin.Recovery())
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.Logging())
	r.Use(middleware.Security())

	setupRoutes(r, downloadHandler, libraryHandler, settingsHandler, healthHandler, engineHandler)

	return &Server{
		Router:  r,
		Manager: manager,
		Engine:  local,
		Hub:     hub,
		store:   store,
		cancel:  cancel,
	}, nil
}

// Close stops the manager and the hub and closes the database
func (s *Server) Close() error {
	s.cancel()
	s.Manager.Close()
	return s.store.Close()
}

// StartWebServer starts the web server and blocks until ctx is done
func StartWebServer(ctx context.Context, cfg config.Config) error {
	server, err := NewServer(ctx, cfg)
	if err != nil {
		return err
	}
	defer server.Close()

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port),
		Handler:           server.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.Port).Str("db", cfg.DBPath).Msg("Bookshelf server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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

	log.Info().Msg("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// setupRoutes configures all the HTTP routes
func setupRoutes(r *gin.Engine, downloadHandler *handlers.DownloadHandler, libraryHandler *handlers.LibraryHandler, settingsHandler *handlers.SettingsHandler, healthHandler *handlers.HealthHandler, engineHandler *handlers.EngineHandler) {
	// Health check endpoint
	r.GET("/health", healthHandler.HealthCheck)

	// API routes group
	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/status", healthHandler.APIStatus)

		// Download Management Endpoints
		downloadsGroup := apiGroup.Group("/downloads")
		{
			downloadsGroup.GET("", downloadHandler.GetDownloads)
			downloadsGroup.POST("/refresh", downloadHandler.Refresh)
			downloadsGroup.POST("/resume", downloadHandler.ResumeNearlyComplete)

			downloadsGroup.GET("/:id", downloadHandler.GetDownload)
			downloadsGroup.POST("/:id/resume", downloadHandler.ResumeCard)
			downloadsGroup.POST("/:id/regenerate", downloadHandler.Regenerate)
			downloadsGroup.DELETE("/:id", downloadHandler.DeleteWork)
		}

		// Library Endpoints
		apiGroup.GET("/library/:readState", libraryHandler.GetLibrary)
		apiGroup.POST("/library/bookmarks", libraryHandler.Bookmark)

		// WebSocket endpoints for live snapshots
		wsGroup := apiGroup.Group("/ws")
		{
			wsGroup.GET("/downloads", downloadHandler.HandleDownloadsSocket)
			wsGroup.GET("/library", downloadHandler.HandleLibrarySocket)
		}

		// Settings endpoints
		apiGroup.GET("/settings", settingsHandler.GetSettings)
		apiGroup.POST("/settings", settingsHandler.UpdateSettings)

		// Producer ingest for the local engine
		engineGroup := apiGroup.Group("/engine/works")
		{
			engineGroup.POST("/:id", engineHandler.UpsertWork)
			engineGroup.POST("/:id/progress", engineHandler.UpdateProgress)
		}
	}
}
