package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/BetterCallFirewall/scanportal/internal/backend"
	"github.com/BetterCallFirewall/scanportal/internal/cache"
	"github.com/BetterCallFirewall/scanportal/internal/config"
	"github.com/BetterCallFirewall/scanportal/internal/middlewares"
)

// Broadcaster pushes live events to dashboard clients.
type Broadcaster interface {
	Broadcast(eventType string, data interface{})
	ServeWS(w http.ResponseWriter, r *http.Request)
}

type Server struct {
	config  *config.Config
	backend *backend.Client
	hub     Broadcaster
	reports *cache.ReportCache
	logger  *slog.Logger
	server  *http.Server
}

func NewServer(cfg *config.Config, client *backend.Client, hub Broadcaster, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		config:  cfg,
		backend: client,
		hub:     hub,
		reports: cache.New(cfg.Cache.MaxEntries, cfg.Cache.ReportTTL),
		logger:  logger,
	}
}

// Handler returns the full middleware-wrapped router.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// auth
	mux.HandleFunc("GET /api/auth/me", s.handleAuthMe)
	mux.HandleFunc("POST /api/auth/logout", s.handleLogout)
	mux.HandleFunc("GET /auth/github", s.handleOAuthStart("github"))
	mux.HandleFunc("GET /auth/google", s.handleOAuthStart("google"))
	mux.HandleFunc("GET /auth/success", s.handleAuthSuccess)
	mux.HandleFunc("GET /auth/error", s.handleAuthError)

	// scans
	mux.HandleFunc("GET /api/results", s.handleResults)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("GET /api/history/{scanId}", s.handleScanDetail)
	mux.HandleFunc("GET /api/report/{scanId}", s.handleReport)
	mux.HandleFunc("GET /api/clear", s.handleClear)
	mux.HandleFunc("POST /api/upload-and-scan", s.handleUploadAndScan)
	mux.HandleFunc("GET /api/scan", s.handleScanInfo)
	mux.HandleFunc("POST /api/scan", s.handleScanStart)
	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /api/scans", s.handleScanList)
	mux.HandleFunc("GET /api/schema/scan-report", s.handleReportSchema)

	// n8n integration
	mux.HandleFunc("GET /api/n8n/auth-url", s.handleN8nAuthURL)
	mux.HandleFunc("GET /api/n8n/callback", s.handleN8nCallback)
	mux.HandleFunc("/api/n8n/", s.handleN8nForward)

	mux.HandleFunc("GET /ws", s.hub.ServeWS)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":      "ok",
			"reportCache": s.reports.Stats(),
		})
	})

	mux.Handle("/", s.pagesHandler())

	return middlewares.Chain(mux,
		middlewares.RequestID,
		middlewares.Logging(s.logger),
		middlewares.CORS(s.config.Web.AllowedOrigin),
		middlewares.AuthRedirect(s.config.Routes),
	)
}

// httpServer builds the listener config. WriteTimeout outlives the slowest
// proxied call so a late backend answer still reaches the client.
func (s *Server) httpServer() *http.Server {
	slowest := max(s.config.Backend.Timeout, s.config.Backend.ScanTimeout, s.config.Backend.UploadTimeout)
	return &http.Server{
		Addr:              s.config.Web.ListenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      slowest + 15*time.Second,
	}
}

func (s *Server) Start() error {
	s.server = s.httpServer()

	s.logger.Info("gateway listening",
		"addr", s.config.Web.ListenAddr,
		"backend", s.config.Backend.URL,
	)
	return s.server.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}
