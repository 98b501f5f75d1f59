package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/yegors/wmo-decoder/internal/ai/gemini"
	"github.com/yegors/wmo-decoder/internal/api"
	"github.com/yegors/wmo-decoder/internal/config"
	"github.com/yegors/wmo-decoder/internal/history"
	"github.com/yegors/wmo-decoder/internal/i18n"
	"github.com/yegors/wmo-decoder/internal/presenter"
	"github.com/yegors/wmo-decoder/internal/session"
	"github.com/yegors/wmo-decoder/internal/storage/sqlite"
	"github.com/yegors/wmo-decoder/internal/templating"
	"github.com/yegors/wmo-decoder/internal/translator"
	"github.com/yegors/wmo-decoder/internal/websocket"
	"github.com/yegors/wmo-decoder/pkg/logger"
)

var (
	// Version is injected at build time
	Version = "dev"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to configuration file (optional - will search in configs/ and root directory)")
	flag.Parse()

	// Load configuration with fallback logic
	cfg, err := config.LoadWithFallback(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Create logger
	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting WMO weather decoder",
		logger.String("version", Version),
		logger.String("config_path", *configPath),
		logger.String("model", cfg.Gemini.Model),
	)

	// Optional reply cache
	var replyCache translator.ReplyCache
	var db *sql.DB
	if cfg.Cache.Enabled {
		db, err = sqlite.Open(cfg.Cache.SQLitePath, log)
		if err != nil {
			log.Error("Failed to open reply cache", logger.Error(err))
			os.Exit(1)
		}
		defer db.Close()

		cache, err := sqlite.NewReplyCache(db, cfg.CacheTTL(), log)
		if err != nil {
			log.Error("Failed to create reply cache", logger.Error(err))
			os.Exit(1)
		}
		if n, err := cache.Purge(context.Background()); err != nil {
			log.Warn("Failed to purge expired replies", logger.Error(err))
		} else if n > 0 {
			log.Info("Purged expired replies", logger.Int("count", int(n)))
		}
		replyCache = cache
	}

	// Model provider
	geminiClient := gemini.NewClient(cfg.Gemini.APIKey, gemini.Options{
		BaseURL: cfg.Gemini.BaseURL,
		Timeout: cfg.GeminiTimeout(),
	}, log)
	if !geminiClient.HasAPIKey() {
		log.Warn("No Gemini API key configured; translations will fail until one is set",
			logger.Any("env_vars", config.APIKeyEnvVars))
	}

	templateService := templating.NewService(cfg.Templating.PromptsDir, log)

	translatorService := translator.NewService(geminiClient, templateService, replyCache, translator.Config{
		Model:        cfg.Gemini.Model,
		Temperature:  cfg.Gemini.Temperature,
		EnableSearch: cfg.Gemini.EnableSearch,
	}, log)

	// Single shared session for the process lifetime
	sess := session.New(translatorService, history.NewKeeper(cfg.History.Capacity), log)

	catalog, err := i18n.New(cfg.UI.DefaultLocale, log)
	if err != nil {
		log.Error("Failed to load message catalogue", logger.Error(err))
		os.Exit(1)
	}
	pres := presenter.New(catalog)

	// Create WebSocket server and push every transition
	wsServer := websocket.NewServer(pres, sess.Snapshot, catalog.Match, log)
	go wsServer.Run()
	sess.OnChange(wsServer.Publish)

	handler := api.NewHandler(sess, pres, catalog, api.Health{
		Model:            cfg.Gemini.Model,
		APIKeyConfigured: geminiClient.HasAPIKey(),
		SearchEnabled:    cfg.Gemini.EnableSearch,
		CacheEnabled:     cfg.Cache.Enabled,
	}, log)
	router := api.NewRouter(handler, wsServer.HandleConnection, api.NewStaticFileHandler(cfg.UI.StaticFilesDir, log), log)
	routes := router.Routes()

	// --- Setup for multiple HTTP servers ---
	var servers []*http.Server
	allPorts := []int{cfg.Server.Port}       // Start with the primary port
	if len(cfg.Server.AdditionalPorts) > 0 { // Only append if there are additional ports
		allPorts = append(allPorts, cfg.Server.AdditionalPorts...)
	}

	log.Info("Configured listener ports", logger.Any("ports", allPorts))

	for _, port := range allPorts {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, port)
		server := &http.Server{
			Addr:         addr,
			Handler:      routes, // All servers use the same main router
			ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSecs) * time.Second,
			WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSecs) * time.Second,
			IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSecs) * time.Second,
		}
		servers = append(servers, server)

		go func(s *http.Server) {
			log.Info("Starting HTTP server", logger.String("addr", s.Addr))
			if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("HTTP server error on startup", logger.String("addr", s.Addr), logger.Error(err))
			}
		}(server)
	}

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("Shutting down server...")

	// Shutdown all HTTP servers
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	var wg sync.WaitGroup
	for _, s := range servers {
		wg.Add(1)
		go func(srv *http.Server) {
			defer wg.Done()
			log.Info("Attempting to shutdown HTTP server", logger.String("addr", srv.Addr))
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Error("HTTP server shutdown error", logger.String("addr", srv.Addr), logger.Error(err))
			} else {
				log.Info("HTTP server shutdown complete", logger.String("addr", srv.Addr))
			}
		}(s)
	}
	wg.Wait()
	log.Info("All HTTP servers shutdown.")

	// An accepted lookup always settles; let it finish before closing the cache
	log.Info("Waiting for in-flight translation...")
	sess.Wait()

	wsServer.Stop()
	log.Info("Server fully stopped")
}
