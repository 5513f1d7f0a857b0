package server

import (
	"github.com/go-chi/chi/v5"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	r := s.router

	r.Get("/health", s.health)

	// Config routes
	r.Route("/config", func(r chi.Router) {
		r.Get("/", s.getConfig)
		r.Get("/{key}", s.getConfigValue)
		r.Put("/{key}", s.setConfigValue)
	})

	// Client routes
	r.Route("/client", func(r chi.Router) {
		r.Get("/", s.getClient)
		r.Post("/", s.setClient)
		r.Get("/history", s.getClientHistory)
	})

	// Access checks
	r.Route("/check", func(r chi.Router) {
		r.Get("/command", s.checkCommand)
		r.Get("/path", s.checkPath)
	})

	// Event streaming (SSE)
	r.Get("/event", s.allEvents)

	// MCP streamable HTTP
	if s.mcp != nil {
		r.Handle("/mcp", mcpserver.NewStreamableHTTPServer(s.mcp))
	}
}
