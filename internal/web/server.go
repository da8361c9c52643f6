// Package web serves the operator UI: the upload form, conversion
// results, the batch archive and export downloads.
package web

import (
	"context"
	"crypto/rand"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"github.com/quangtd/invoice2sap/internal/domain/archive"
	"github.com/quangtd/invoice2sap/internal/domain/convert"
	"github.com/quangtd/invoice2sap/internal/notify"
	"github.com/quangtd/invoice2sap/pkg/config"
	"github.com/quangtd/invoice2sap/pkg/storage"
)

// Converter runs conversion batches. Implemented by convert.Service.
type Converter interface {
	Convert(ctx context.Context, req *convert.Request) (*convert.Result, error)
}

// BatchReader serves the archive pages. Implemented by archive.Repository.
type BatchReader interface {
	GetBatch(ctx context.Context, id uuid.UUID) (*archive.Batch, error)
	GetBatchFiles(ctx context.Context, batchID uuid.UUID) ([]archive.BatchFile, error)
	ListBatches(ctx context.Context, limit, offset int) ([]archive.Batch, error)
}

// Searcher backs the archive search box. Implemented by archive.SearchIndex.
type Searcher interface {
	Search(query string, limit int) ([]archive.SearchResult, error)
}

// Notifier sends the batch-completion email. Implemented by notify.Notifier.
type Notifier interface {
	BatchCompleted(summary notify.BatchSummary) error
}

// Server is the HTTP server for the invoice conversion UI.
type Server struct {
	cfg       *config.Config
	converter Converter
	batches   BatchReader
	search    Searcher
	store     storage.Store
	notifier  Notifier
	logger    *slog.Logger

	sessions       *sessions.CookieStore
	downloadSecret []byte
	router         *chi.Mux
	server         *http.Server
}

// NewServer wires the UI server. batches, search and notifier may be
// nil; the corresponding pages and emails are then disabled.
func NewServer(cfg *config.Config, converter Converter, batches BatchReader, search Searcher, store storage.Store, notifier Notifier, logger *slog.Logger) *Server {
	secret := []byte(cfg.Auth.DownloadSecret)
	if len(secret) == 0 {
		// Links stay valid for the lifetime of the process only.
		secret = randomSecret()
	}

	s := &Server{
		cfg:            cfg,
		converter:      converter,
		batches:        batches,
		search:         search,
		store:          store,
		notifier:       notifier,
		logger:         logger,
		downloadSecret: secret,
		router:         chi.NewRouter(),
	}
	if cfg.Auth.SessionKey != "" {
		s.sessions = sessions.NewCookieStore([]byte(cfg.Auth.SessionKey))
		s.sessions.Options.HttpOnly = true
		s.sessions.Options.SameSite = http.SameSiteLaxMode
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(middleware.Timeout(120 * time.Second))
	s.router.Use(securityHeaders)

	s.router.Use(cors.New(cors.Options{
		AllowedOrigins: []string{s.cfg.Server.BaseURL},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
	}).Handler)

	limiter := newIPRateLimiter(
		rate.Limit(s.cfg.Server.RateLimitPerSecond),
		s.cfg.Server.RateLimitBurst,
	)
	s.router.Use(limiter.middleware)
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	s.router.Get("/login", s.handleLoginPage)
	s.router.Post("/login", s.handleLogin)
	s.router.Post("/logout", s.handleLogout)

	// Download links carry their own signed token, so they work from
	// the notification email without a session.
	s.router.Get("/download/{batchID}/{fileID}", s.handleDownload)

	s.router.Group(func(r chi.Router) {
		r.Use(s.requireAuth)

		r.Get("/", s.handleUploadPage)
		r.Post("/convert", s.handleConvert)
		r.Get("/archive", s.handleArchive)
		r.Get("/archive/{batchID}", s.handleBatchDetail)
		r.Get("/search", s.handleSearch)
	})
}

// Start begins listening for HTTP requests. Blocks until the server
// exits.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	s.logger.Info("http server listening", slog.String("addr", s.server.Addr))
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router exposes the chi router for tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func randomSecret() []byte {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return b
}
