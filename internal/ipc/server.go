package ipc

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/dietplan/engine/internal/observability"
)

// Server wraps an HTTP server with the service routing.
type Server struct {
	httpServer *http.Server
}

// Routes mounts the API endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/health", h.Health)

	r.Route("/plans", func(r chi.Router) {
		r.Post("/", h.CreatePlan)
		r.Get("/", h.ListPlans)
		r.Get("/latest", h.LatestPlan)
		r.Route("/{planID}", func(r chi.Router) {
			r.Get("/", h.GetPlan)
			r.Get("/revisions/{revision}", h.GetRevision)
			r.Get("/events", h.ListEvents)
			r.Get("/events/stream", h.StreamEvents)
			r.Get("/meals/{index}/alternatives", h.Alternatives)
			r.Post("/meals/{index}/substitution", h.Substitute)
		})
	})

	r.Post("/resolve", h.Resolve)

	r.Post("/progress", h.RecordProgress)
	r.Get("/progress", h.ListProgress)
}

// NewRouter builds the full middleware stack and routes.
func NewRouter(h *Handler, logger *zap.Logger, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(observability.RequestLogger(logger))
	r.Use(observability.Recovery(logger))

	r.Route("/api/v1", h.Routes)
	r.Method(http.MethodGet, "/metrics", h.Metrics.Handler())

	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})
	return c.Handler(r)
}

// NewServer creates a Server that binds to the given address.
func NewServer(handler http.Handler, listenAddr string) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              listenAddr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Start begins listening for HTTP connections. Blocks until the server stops.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// FormatListenURL turns a listen address into a clickable URL.
func FormatListenURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	return fmt.Sprintf("http://%s:%s", host, port)
}
