package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/cyrup-ai/kodegen-tools-config/internal/config"
	"github.com/cyrup-ai/kodegen-tools-config/internal/event"
	"github.com/cyrup-ai/kodegen-tools-config/internal/logging"
)

// Config holds server configuration.
type Config struct {
	Addr         string
	TLSCertFile  string
	TLSKeyFile   string
	EnableCORS   bool
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Spacing of keep-alive comments on /event.
	HeartbeatInterval time.Duration
}

// DefaultConfig returns default server configuration.
func DefaultConfig() *Config {
	return &Config{
		Addr:              "127.0.0.1:8787",
		EnableCORS:        true,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      0, // No write timeout for SSE
		HeartbeatInterval: SSEHeartbeatInterval,
	}
}

// Server is the HTTP server.
type Server struct {
	config  *Config
	router  *chi.Mux
	httpSrv *http.Server
	manager *config.Manager
	bus     *event.Bus
	mcp     *mcpserver.MCPServer
}

// New creates a Server over m. mcp may be nil, in which case /mcp is not mounted.
// A nil bus means the bus m publishes on.
func New(cfg *Config, m *config.Manager, bus *event.Bus, mcp *mcpserver.MCPServer) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if bus == nil {
		bus = m.Bus()
	}

	s := &Server{
		config:  cfg,
		router:  chi.NewRouter(),
		manager: m,
		bus:     bus,
		mcp:     mcp,
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.httpSrv = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s
}

// setupMiddleware configures middleware for the server.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RealIP)

	if s.config.EnableCORS {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "Mcp-Session-Id"},
			ExposedHeaders:   []string{"X-Request-ID", "Mcp-Session-Id"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
}

// requestLogger logs each request through zerolog.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		log := logging.Component("server")
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("requestID", middleware.GetReqID(r.Context())).
			Msg("http request")
	})
}

// Start starts the HTTP server, with TLS when a certificate is configured.
// It returns nil after Shutdown, including a Shutdown that ran first.
func (s *Server) Start() error {
	log := logging.Component("server")
	log.Info().Str("addr", s.config.Addr).Bool("tls", s.config.TLSCertFile != "").Msg("http server listening")

	var err error
	if s.config.TLSCertFile != "" {
		err = s.httpSrv.ListenAndServeTLS(s.config.TLSCertFile, s.config.TLSKeyFile)
	} else {
		err = s.httpSrv.ListenAndServe()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully shuts down the server. It is safe to call
// concurrently with Start or before it.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}
