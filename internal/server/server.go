// Package server exposes nodewire documents over HTTP.
//
// The server holds editable workspaces in memory. Each workspace wraps one
// document and one editor; requests mutate it through the same API a
// graphical host would use, read back its scene or snapshot, and render it
// through the shared render pipeline and its cache.
//
// # Routes
//
//	GET    /health
//	GET    /version
//	POST   /workspaces                          create, optionally from a snapshot
//	GET    /workspaces/{id}                     summary
//	DELETE /workspaces/{id}
//	GET    /workspaces/{id}/snapshot            export
//	PUT    /workspaces/{id}/snapshot            import
//	GET    /workspaces/{id}/scene               projected scene as JSON (?module=Name, read-only)
//	GET    /workspaces/{id}/render              artifact (?format=svg&style=dark&...)
//	GET    /workspaces/{id}/modules
//	POST   /workspaces/{id}/modules
//	PUT    /workspaces/{id}/modules/active
//	DELETE /workspaces/{id}/modules/{name}
//	GET    /workspaces/{id}/nodes
//	POST   /workspaces/{id}/nodes
//	GET    /workspaces/{id}/nodes/{node}
//	DELETE /workspaces/{id}/nodes/{node}
//	PUT    /workspaces/{id}/nodes/{node}/position
//	PUT    /workspaces/{id}/nodes/{node}/data
//	POST   /workspaces/{id}/nodes/{node}/ports
//	DELETE /workspaces/{id}/nodes/{node}/ports/{direction}/{port}
//	GET    /workspaces/{id}/connections
//	POST   /workspaces/{id}/connections
//	DELETE /workspaces/{id}/connections
//	POST   /workspaces/{id}/waypoints
//	DELETE /workspaces/{id}/waypoints
//
// Errors are returned as {"error": {"code": ..., "message": ...}} with the
// status chosen by [StatusCode].
package server

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/nodewire/pkg/pipeline"
)

// Options configures a Server.
type Options struct {
	Addr            string
	ShutdownTimeout time.Duration
	MaxBodyBytes    int64
	AllowOrigin     string
	SweepInterval   time.Duration
}

// Server is the HTTP host.
type Server struct {
	opts   Options
	store  *Store
	runner *pipeline.Runner
	logger *log.Logger
	router chi.Router
}

// New creates a server over store. Render requests go through runner.
func New(store *Store, runner *pipeline.Runner, logger *log.Logger, opts Options) *Server {
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = time.Minute
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if opts.AllowOrigin == "" {
		opts.AllowOrigin = "*"
	}
	s := &Server{opts: opts, store: store, runner: runner, logger: logger}
	s.router = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(observe(s.logger))
	r.Use(cors(s.opts.AllowOrigin))
	r.Use(limitBody(s.opts.MaxBodyBytes))

	r.Get("/health", s.handleHealth)
	r.Get("/version", s.handleVersion)

	r.Route("/workspaces", func(r chi.Router) {
		r.Post("/", s.handleCreateWorkspace)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetWorkspace)
			r.Delete("/", s.handleDeleteWorkspace)
			r.Get("/snapshot", s.handleExport)
			r.Put("/snapshot", s.handleImport)
			r.Get("/scene", s.handleScene)
			r.Get("/render", s.handleRender)

			r.Get("/modules", s.handleListModules)
			r.Post("/modules", s.handleAddModule)
			r.Put("/modules/active", s.handleSwitchModule)
			r.Delete("/modules/{name}", s.handleRemoveModule)

			r.Get("/nodes", s.handleListNodes)
			r.Post("/nodes", s.handleAddNode)
			r.Route("/nodes/{node}", func(r chi.Router) {
				r.Get("/", s.handleGetNode)
				r.Delete("/", s.handleRemoveNode)
				r.Put("/position", s.handleMoveNode)
				r.Put("/data", s.handleUpdateNodeData)
				r.Post("/ports", s.handleAddPort)
				r.Delete("/ports/{direction}/{port}", s.handleRemovePort)
			})

			r.Get("/connections", s.handleListConnections)
			r.Post("/connections", s.handleAddConnection)
			r.Delete("/connections", s.handleRemoveConnection)
			r.Post("/waypoints", s.handleAddWaypoint)
			r.Delete("/waypoints", s.handleRemoveWaypoint)
		})
	})
	return r
}

// ListenAndServe serves on the configured address until ctx is cancelled,
// then drains in-flight requests for at most the shutdown timeout.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go s.store.Sweep(sweepCtx, s.opts.SweepInterval)

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	s.logger.Info("Listening", "addr", ln.Addr().String())

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down", "timeout", s.opts.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
