// Package server exposes ERD builds over HTTP.
//
// Every diagram request runs a fresh build, so the served diagram always
// reflects the current manifest and database.
package server

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/koustreak/modelerd/internal/erd"
	"github.com/koustreak/modelerd/internal/logger"
	"github.com/koustreak/modelerd/internal/mermaid"
)

// BuildIDHeader carries the build ID of the served result.
const BuildIDHeader = "X-Build-ID"

// Builder runs one ERD build. *erd.Generator implements it.
type Builder interface {
	Build(ctx context.Context) (*erd.Result, error)
}

// Server routes HTTP requests to builds.
type Server struct {
	builder Builder
	log     *logger.Logger
	router  chi.Router
}

// New returns a Server with its routes mounted.
func New(builder Builder, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	s := &Server{builder: builder, log: log}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.healthz)
	r.Get("/erd", s.diagram)
	r.Get("/erd.json", s.result)
	r.Get("/erd/diagnostics", s.diagnostics)

	s.router = r
	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	if err := writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}); err != nil {
		s.log.ErrorWith("write response", err, nil)
	}
}

func (s *Server) diagram(w http.ResponseWriter, r *http.Request) {
	res, ok := s.build(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := mermaid.Emit(&buf, res.Tables, res.Relationships); err != nil {
		s.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", mermaid.ContentType)
	w.Header().Set(BuildIDHeader, res.BuildID)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) result(w http.ResponseWriter, r *http.Request) {
	res, ok := s.build(w, r)
	if !ok {
		return
	}
	w.Header().Set(BuildIDHeader, res.BuildID)
	if err := writeJSON(w, http.StatusOK, res); err != nil {
		s.log.ErrorWith("write response", err, nil)
	}
}

func (s *Server) diagnostics(w http.ResponseWriter, r *http.Request) {
	res, ok := s.build(w, r)
	if !ok {
		return
	}
	w.Header().Set(BuildIDHeader, res.BuildID)
	body := struct {
		BuildID     string          `json:"build_id"`
		Diagnostics erd.Diagnostics `json:"diagnostics"`
	}{res.BuildID, res.Diagnostics}
	if err := writeJSON(w, http.StatusOK, body); err != nil {
		s.log.ErrorWith("write response", err, nil)
	}
}

// build runs the builder and writes the error response on failure.
func (s *Server) build(w http.ResponseWriter, r *http.Request) (*erd.Result, bool) {
	ctx := s.log.With().Str("request_id", middleware.GetReqID(r.Context())).Logger().WithContext(r.Context())
	res, err := s.builder.Build(ctx)
	if err != nil {
		s.fail(w, r, err)
		return nil, false
	}
	return res, true
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	s.log.ErrorWith("request failed", err, map[string]any{
		"path":       r.URL.Path,
		"request_id": middleware.GetReqID(r.Context()),
	})
	if werr := writeError(w, err); werr != nil {
		s.log.ErrorWith("write response", werr, nil)
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.InfoWith("request", map[string]any{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      ww.Status(),
			"bytes":       ww.BytesWritten(),
			"duration_ms": time.Since(start).Milliseconds(),
			"request_id":  middleware.GetReqID(r.Context()),
		})
	})
}
