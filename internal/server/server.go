// Package server exposes the introspected schema over HTTP.
//
//	GET  /healthz          database reachability
//	GET  /metrics          Prometheus exposition
//	GET  /tables           every table in dependency order
//	GET  /tables/{name}    one table with columns and foreign keys
//	GET  /sequences        sequence metadata
//	GET  /primary-keys     primary key columns per table
//	POST /refresh          drop the memoized schema
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/koustreak/sqlstage/internal/config"
	"github.com/koustreak/sqlstage/internal/errs"
	"github.com/koustreak/sqlstage/internal/logger"
	"github.com/koustreak/sqlstage/internal/schema"
)

// SchemaSource supplies the schema served. *introspect.Introspector
// satisfies it.
type SchemaSource interface {
	Schema(ctx context.Context) (*schema.Schema, error)
	Refresh()
}

type Server struct {
	src     SchemaSource
	ping    func(ctx context.Context) error
	metrics http.Handler
	log     *logger.Logger
	router  chi.Router
}

type Option func(*Server)

// WithHealthCheck sets the check behind /healthz.
func WithHealthCheck(ping func(ctx context.Context) error) Option {
	return func(s *Server) { s.ping = ping }
}

// WithMetrics mounts h on /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

func WithLogger(l *logger.Logger) Option {
	return func(s *Server) { s.log = logger.OrNop(l).Component("server") }
}

func New(src SchemaSource, opts ...Option) *Server {
	s := &Server{src: src, log: logger.Nop()}
	for _, o := range opts {
		o(s)
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLog)

	r.Get("/healthz", s.healthz)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	r.Get("/tables", s.tables)
	r.Get("/tables/{name}", s.table)
	r.Get("/sequences", s.sequences)
	r.Get("/primary-keys", s.primaryKeys)
	r.Post("/refresh", s.refresh)
	return r
}

func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves until ctx is cancelled, then shuts down within
// cfg.ShutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context, cfg config.Server) error {
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	done := make(chan error, 1)
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		done <- srv.Shutdown(sctx)
	}()

	s.log.Infof("listening on %s", cfg.Addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return errs.Wrap(errs.ErrKindConnectionFailed, "http server failed", err)
	}
	return <-done
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.DebugWith("request", map[string]interface{}{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      ww.Status(),
			"bytes":       ww.BytesWritten(),
			"duration_ms": time.Since(start).Milliseconds(),
			"request_id":  middleware.GetReqID(r.Context()),
		})
	})
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	if s.ping != nil {
		if err := s.ping(r.Context()); err != nil {
			s.fail(w, errs.Wrap(errs.ErrKindConnectionFailed, "database unreachable", err))
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// tableSummary is one entry of /tables.
type tableSummary struct {
	Name       string   `json:"name"`
	PrimaryKey []string `json:"primary_key"`
	Depth      int      `json:"depth"`
	Parent     string   `json:"parent,omitempty"`
}

func (s *Server) tables(w http.ResponseWriter, r *http.Request) {
	sch, err := s.src.Schema(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	order := schema.NewOrderer(sch)
	tables := sch.Tables()
	slices.SortStableFunc(tables, func(a, b *schema.TableInfo) int { return order.Compare(a.Name(), b.Name()) })

	out := make([]tableSummary, 0, len(tables))
	for _, t := range tables {
		v := t.View()
		out = append(out, tableSummary{Name: v.Name, PrimaryKey: v.PrimaryKey, Depth: order.Depth(v.Name), Parent: v.Parent})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) table(w http.ResponseWriter, r *http.Request) {
	sch, err := s.src.Schema(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	name := chi.URLParam(r, "name")
	t := sch.Table(name)
	if t == nil {
		s.fail(w, errs.Newf(errs.ErrKindNotFound, "table %q not found", name))
		return
	}
	writeJSON(w, http.StatusOK, t.View())
}

func (s *Server) sequences(w http.ResponseWriter, r *http.Request) {
	sch, err := s.src.Schema(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sch.Sequences())
}

func (s *Server) primaryKeys(w http.ResponseWriter, r *http.Request) {
	sch, err := s.src.Schema(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sch.PrimaryKeys())
}

func (s *Server) refresh(w http.ResponseWriter, _ *http.Request) {
	s.src.Refresh()
	w.WriteHeader(http.StatusNoContent)
}

// fail maps the error kind to a status code.
func (s *Server) fail(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch errs.KindOf(err) {
	case errs.ErrKindNotFound:
		status = http.StatusNotFound
	case errs.ErrKindInvalidInput:
		status = http.StatusBadRequest
	case errs.ErrKindPermissionDenied:
		status = http.StatusForbidden
	case errs.ErrKindTimeout:
		status = http.StatusGatewayTimeout
	case errs.ErrKindConnectionFailed:
		status = http.StatusServiceUnavailable
	}
	if status >= http.StatusInternalServerError {
		s.log.ErrorWith("request failed", err, map[string]interface{}{"status": status})
	}
	writeJSON(w, status, map[string]string{"error": err.Error(), "kind": errs.KindOf(err).String()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
