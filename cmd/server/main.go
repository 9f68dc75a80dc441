package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ONSdigital/blaise-export-reporting-tool/internal/api"
	"github.com/ONSdigital/blaise-export-reporting-tool/internal/auth"
	"github.com/ONSdigital/blaise-export-reporting-tool/internal/cati"
	"github.com/ONSdigital/blaise-export-reporting-tool/internal/config"
	"github.com/ONSdigital/blaise-export-reporting-tool/internal/metrics"
	"github.com/ONSdigital/blaise-export-reporting-tool/internal/reporting"
	"github.com/ONSdigital/blaise-export-reporting-tool/internal/storage"
	"github.com/ONSdigital/blaise-export-reporting-tool/internal/websocket"
	"github.com/ONSdigital/blaise-export-reporting-tool/pkg/middleware"
)

// syncLookback is how far back the first sync after startup reads
const syncLookback = 7 * 24 * time.Hour

func main() {
	// Configure logger
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Set log level
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("level", cfg.LogLevel).Msg("invalid log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Info().
		Str("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Str("log_level", cfg.LogLevel).
		Str("record_source", cfg.RecordSource).
		Msg("starting report server")

	// Fetch signing keys up front so the first request does not pay for it
	if issuer := os.Getenv("OIDC_ISSUER"); issuer != "" && os.Getenv("SKIP_AUTH") != "true" {
		if err := auth.InitJWKS(issuer); err != nil {
			log.Warn().Err(err).Msg("failed to load JWKS, signed tokens will be rejected")
		}
	}

	// Create context for services
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Create WebSocket hub
	hub := websocket.NewHub(log.Logger)
	go hub.Run()

	backend, err := openBackend(ctx, cfg, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open call history source")
	}
	defer backend.Close()

	service := reporting.NewService(backend.source, hub, cfg.FetchMaxElapsed, log.Logger)

	// Background CATI sync into the store
	var syncer *reporting.Syncer
	if backend.cati != nil && cfg.RecordSource == config.SourceDynamo {
		syncer = reporting.NewSyncer(cati.NewReader(backend.cati, log.Logger), backend.store, hub, cfg.SyncInterval, syncLookback, log.Logger)
		go syncer.Start(ctx)
	}

	// Create router
	r := newRouter(cfg, hub, service, backend.store, syncer)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.FetchMaxElapsed + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Msgf("server listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")

	// Stop the sync loop
	cancel()

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Attempt graceful shutdown
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

// backend is where reports read call history from and where the sync and
// admin endpoints write it
type backend struct {
	source reporting.Source
	store  storage.Store
	cati   *cati.Connection // nil unless MySQL is needed
}

func (b *backend) Close() {
	if b.cati != nil {
		b.cati.Close()
	}
}

// openBackend wires the configured record source. Reports read straight
// from CATI for the mysql source, otherwise from the store.
func openBackend(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*backend, error) {
	switch cfg.RecordSource {
	case config.SourceNone:
		store := storage.NewMemoryStore()
		logger.Info().Msg("using in-memory call history")
		return &backend{source: store, store: store}, nil

	case config.SourceMySQL:
		conn, err := cati.NewConnection(ctx, cfg.MySQL)
		if err != nil {
			return nil, err
		}
		store, err := storage.NewStore(ctx, logger)
		if err != nil {
			conn.Close()
			return nil, err
		}
		return &backend{source: cati.NewReader(conn, logger), store: store, cati: conn}, nil

	default:
		store, err := storage.NewStore(ctx, logger)
		if err != nil {
			return nil, err
		}
		b := &backend{source: store, store: store}
		if cfg.SyncInterval > 0 {
			conn, err := cati.NewConnection(ctx, cfg.MySQL)
			if err != nil {
				return nil, fmt.Errorf("sync enabled but CATI is unreachable: %w", err)
			}
			b.cati = conn
		}
		return b, nil
	}
}

func newRouter(cfg *config.Config, hub *websocket.Hub, service *reporting.Service, store storage.Store, syncer *reporting.Syncer) http.Handler {
	// Create WebSocket handler
	wsHandler := websocket.NewHandler(hub, cfg, log.Logger)

	r := chi.NewRouter()

	// Add middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(log.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	// Register public routes (no auth required)
	r.Get("/health", healthHandler)
	r.Get("/metrics", metrics.Get().Handler())

	var runner api.SyncRunner
	var status api.SyncStatus
	if syncer != nil {
		runner = syncer
		status = syncer
	}

	// Add auth middleware for protected routes
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware)
		r.Get("/ws", wsHandler.ServeHTTP)
		api.RegisterRoutes(r, api.NewReportHandler(service, status, log.Logger), api.NewAdminHandler(store, runner, log.Logger))
	})

	return r
}

// healthHandler handles health check requests
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok","service":"blaise-export-reporting-tool"}`)
}
