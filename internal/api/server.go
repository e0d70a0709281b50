package api

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tablewright/tablewright/internal/engine"
	"github.com/tablewright/tablewright/internal/ws"
)

const pathPrefix = "/api/connections/{conn}/schemas/{schema}"

// Server is the REST API server for the web UI.
type Server struct {
	engine   *engine.Engine
	hub      *ws.Hub
	logger   *slog.Logger
	port     int
	server   *http.Server
	staticFS fs.FS
	devMode  bool
}

// Option configures the API server.
type Option func(*Server)

// WithStaticFS sets the embedded filesystem for serving the web app.
func WithStaticFS(fsys fs.FS) Option {
	return func(s *Server) {
		s.staticFS = fsys
	}
}

// WithDevMode enables CORS for development.
func WithDevMode(dev bool) Option {
	return func(s *Server) {
		s.devMode = dev
	}
}

// WithHub sets the WebSocket hub. The hub also becomes the engine's notifier.
func WithHub(hub *ws.Hub) Option {
	return func(s *Server) {
		s.hub = hub
	}
}

// New creates a new API server.
func New(eng *engine.Engine, logger *slog.Logger, port int, opts ...Option) *Server {
	s := &Server{
		engine: eng,
		logger: logger,
		port:   port,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.hub != nil {
		eng.SetNotifier(s.hub)
		s.hub.SetViewProvider(s.currentView)
	}
	return s
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.registerRoutes(mux)

	var handler http.Handler = mux
	if s.devMode {
		handler = corsMiddleware(handler)
	}
	return requestLogger(s.logger, handler)
}

// Start starts the HTTP server. It blocks until the server stops.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("starting web UI server", "port", s.port, "dev_mode", s.devMode)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/connections", s.handleConnections)
	mux.HandleFunc("GET /api/connections/{conn}/history", s.handleHistory)
	mux.HandleFunc("GET /api/types", s.handleTypes)
	mux.HandleFunc("GET /api/workspace", s.handleGetWorkspace)
	mux.HandleFunc("PUT /api/workspace", s.handlePutWorkspace)

	mux.HandleFunc("GET "+pathPrefix+"/tables", s.handleTables)
	mux.HandleFunc("GET "+pathPrefix+"/tables/{table}", s.handleTableSchema)

	mux.HandleFunc("GET "+pathPrefix+"/diagram", s.handleDiagram)
	mux.HandleFunc("POST "+pathPrefix+"/diagram/refresh", s.handleRefresh)
	mux.HandleFunc("GET "+pathPrefix+"/diagram/mermaid", s.handleMermaid)
	mux.HandleFunc("POST "+pathPrefix+"/diagram/tables", s.handleCreateTable)
	mux.HandleFunc("DELETE "+pathPrefix+"/diagram/tables/{table}", s.handleDropTable)
	mux.HandleFunc("POST "+pathPrefix+"/diagram/tables/{table}/columns", s.handleAddColumn)
	mux.HandleFunc("DELETE "+pathPrefix+"/diagram/tables/{table}/columns/{column}", s.handleDropColumn)
	mux.HandleFunc("POST "+pathPrefix+"/diagram/relationships", s.handleConnect)
	mux.HandleFunc("GET "+pathPrefix+"/diagram/pending", s.handlePending)
	mux.HandleFunc("POST "+pathPrefix+"/diagram/pending/{id}/confirm", s.handleConfirm)
	mux.HandleFunc("DELETE "+pathPrefix+"/diagram/pending/{id}", s.handleCancel)

	if s.hub != nil {
		mux.HandleFunc("/api/ws", s.hub.HandleWebSocket)
	}

	if s.staticFS != nil {
		mux.Handle("/", s.spaHandler())
	}
}

// spaHandler serves the web app. Unknown paths get index.html so client-side
// routing works.
func (s *Server) spaHandler() http.Handler {
	fileServer := http.FileServer(http.FS(s.staticFS))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/")
		if path == "" {
			path = "index.html"
		}
		if f, err := s.staticFS.Open(path); err == nil {
			f.Close()
			fileServer.ServeHTTP(w, r)
			return
		}
		r.URL.Path = "/"
		fileServer.ServeHTTP(w, r)
	})
}
