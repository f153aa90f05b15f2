// Package server exposes the service and gateway over HTTP.
//
// Routes:
//
//	GET    /api/items?search=   list, or search when search is non-blank
//	POST   /api/items           create, 201
//	GET    /api/items/{id}      get
//	PATCH  /api/items/{id}      update
//	DELETE /api/items/{id}      delete
//	GET    /api/subscribe       WebSocket push stream
//	GET    /healthz             liveness
//	GET    /metrics             Prometheus exposition
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roach88/todosync/internal/gateway"
	"github.com/roach88/todosync/internal/service"
)

// ShutdownTimeout bounds how long Run waits for in-flight requests.
const ShutdownTimeout = 5 * time.Second

// Server routes HTTP requests to the service and gateway.
type Server struct {
	svc      *service.Service
	gw       *gateway.Gateway
	gatherer prometheus.Gatherer
	origins  []string
	requests *prometheus.CounterVec
	router   *mux.Router
}

// Option configures a Server.
type Option func(*Server)

// WithRegistry serves /metrics from reg and registers the request counter
// with it. Without it /metrics serves the default registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) {
		s.gatherer = reg
		reg.MustRegister(s.requests)
	}
}

// WithAllowedOrigins sets the origins allowed by CORS. "*" allows any.
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) { s.origins = origins }
}

// New creates a Server.
func New(svc *service.Service, gw *gateway.Gateway, opts ...Option) *Server {
	s := &Server{
		svc:      svc,
		gw:       gw,
		gatherer: prometheus.DefaultGatherer,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "todosync",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"method", "route", "code"}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.accessLog, s.cors)

	api := r.PathPrefix("/api").Subrouter()
	api.Methods(http.MethodGet).Path("/items").HandlerFunc(s.listItems)
	api.Methods(http.MethodPost).Path("/items").HandlerFunc(s.createItem)
	api.Methods(http.MethodGet).Path("/items/{id}").HandlerFunc(s.getItem)
	api.Methods(http.MethodPatch).Path("/items/{id}").HandlerFunc(s.updateItem)
	api.Methods(http.MethodDelete).Path("/items/{id}").HandlerFunc(s.deleteItem)
	api.Methods(http.MethodGet).Path("/subscribe").HandlerFunc(s.gw.ServeWS)
	api.Methods(http.MethodOptions).PathPrefix("/").HandlerFunc(preflight)

	r.Methods(http.MethodGet).Path("/healthz").HandlerFunc(s.healthz)
	r.Methods(http.MethodGet).Path("/metrics").Handler(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	return r
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on ln until ctx is cancelled, then shuts down gracefully.
// Push streams are cancelled first so their handlers return.
func (s *Server) Run(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", ln.Addr().String())
		errc <- httpServer.Serve(ln)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	slog.Info("server stopping")
	s.gw.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		_ = httpServer.Close()
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ListenAndRun listens on addr and calls Run.
func (s *Server) ListenAndRun(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Run(ctx, ln)
}
