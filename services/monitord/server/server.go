// Package server exposes monitord's HTTP surface.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"cavernlsd/services/monitor"
)

// Source is the slice of the monitor the server reads.
type Source interface {
	Latest() []monitor.Snapshot
	History(ctx context.Context, wrapper string, limit int) ([]monitor.SnapshotRecord, error)
	Poll(ctx context.Context) ([]monitor.Snapshot, error)
}

// Config captures the dependencies required to construct the server.
type Config struct {
	Source   Source
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
	Auth     AuthConfig
	// Places is the number of decimals rates are rounded to.
	Places int32
}

// Server serves snapshots, health and Prometheus metrics.
type Server struct {
	source   Source
	gatherer prometheus.Gatherer
	logger   *slog.Logger
	places   int32
	auth     *authenticator
	hub      *hub
	router   http.Handler
}

// New constructs the router.
func New(cfg Config) *Server {
	s := &Server{
		source:   cfg.Source,
		gatherer: cfg.Gatherer,
		logger:   cfg.Logger,
		places:   cfg.Places,
	}
	if s.gatherer == nil {
		s.gatherer = prometheus.DefaultGatherer
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.places <= 0 {
		s.places = 6
	}
	s.auth = newAuthenticator(cfg.Auth, s.logger)
	s.hub = newHub()
	s.router = s.buildRouter()
	return s
}

// Handler exposes the traced HTTP router.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.router, "monitord")
}

func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", s.health)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	r.Route("/snapshots", func(sr chi.Router) {
		sr.Get("/", s.latest)
		sr.Get("/{wrapper}", s.history)
	})
	r.Get("/stream", s.stream)
	r.With(s.auth.require(PollScope)).Post("/poll", s.poll)
	return r
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) views(snaps []monitor.Snapshot) []monitor.View {
	out := make([]monitor.View, 0, len(snaps))
	for _, snap := range snaps {
		out = append(out, monitor.NewView(snap, s.places))
	}
	return out
}

func (s *Server) latest(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.views(s.source.Latest()))
}

func (s *Server) history(w http.ResponseWriter, r *http.Request) {
	wrapper := chi.URLParam(r, "wrapper")
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = parsed
	}
	rows, err := s.source.History(r.Context(), wrapper, limit)
	if err != nil {
		s.logger.Error("load snapshot history", slog.String("wrapper", wrapper), slog.String("error", err.Error()))
		http.Error(w, "history unavailable", http.StatusInternalServerError)
		return
	}
	if rows == nil {
		rows = []monitor.SnapshotRecord{}
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) poll(w http.ResponseWriter, r *http.Request) {
	snaps, err := s.source.Poll(r.Context())
	body := map[string]interface{}{"snapshots": s.views(snaps)}
	status := http.StatusOK
	if err != nil {
		body["error"] = err.Error()
		status = http.StatusBadGateway
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
