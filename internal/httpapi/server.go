// Package httpapi serves the report engine over HTTP.
package httpapi

import (
	"context"
	"net/http"

	chi "github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/raketrapport/raket/internal/importer"
	"github.com/raketrapport/raket/internal/model"
	"github.com/raketrapport/raket/internal/report"
	"github.com/raketrapport/raket/internal/tax"
)

// Reporter is the report service the handlers delegate to.
type Reporter interface {
	Build(ctx context.Context, ledger model.Ledger) (*report.Report, error)
	Recalculate(ctx context.Context, session string, req tax.Request) (*tax.Result, error)
	Decide(ctx context.Context, d report.Decision) (*report.DecisionResult, error)
}

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ready(ctx context.Context) error
}

// Options configures a Server. Zero values pick defaults.
type Options struct {
	Importers    *importer.Registry
	Ready        Pinger
	MaxBodyBytes int64
	Logger       *zap.Logger
}

// Server wires handlers and middleware using Chi.
type Server struct {
	svc       Reporter
	importers *importer.Registry
	ready     Pinger
	log       *zap.Logger
	rt        *chi.Mux
}

// New constructs the HTTP server with routes and middleware.
func New(svc Reporter, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Importers == nil {
		opts.Importers = importer.DefaultRegistry()
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 10 << 20
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(requestLogger(opts.Logger))
	r.Use(recoverer(opts.Logger))
	r.Use(metricsMiddleware)
	r.Use(limitBody(opts.MaxBodyBytes))

	s := &Server{
		svc:       svc,
		importers: opts.Importers,
		ready:     opts.Ready,
		log:       opts.Logger,
		rt:        r,
	}
	s.routes()
	return s
}

// Handler exposes the configured http.Handler.
func (s *Server) Handler() http.Handler { return s.rt }

func (s *Server) routes() {
	s.rt.Post("/api/recalculate-ink2", s.recalculate)
	s.rt.Post("/api/report", s.buildReport)
	s.rt.Post("/api/tax-decision", s.taxDecision)

	s.rt.Get("/healthz", s.healthz)
	s.rt.Get("/readyz", s.readyz)
	s.rt.Method(http.MethodGet, "/metrics", metricsHandler())
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready.Ready(r.Context()); err != nil {
			s.log.Warn("not ready", zap.String("op", "httpapi.readyz"), zap.Error(err))
			writeError(w, http.StatusServiceUnavailable, "not ready")
			return
		}
	}
	w.WriteHeader(http.StatusOK)
}
