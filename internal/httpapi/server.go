package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/hamed0406/serverwatch/internal/registry"
)

// Server exposes read-only target state. Even an offline target answers with
// the clearest available information: last known status, last-online
// timestamp, and the failure reason.
type Server struct {
	Logger *zap.Logger
	Reg    *registry.Registry
}

func NewServer(l *zap.Logger, reg *registry.Registry) *Server {
	return &Server{Logger: l, Reg: reg}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.AllowAll().Handler)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/api/targets", s.handleListTargets)
	r.Get("/api/targets/{name}", s.handleGetTarget)

	return r
}

func (s *Server) handleListTargets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Reg.Snapshots())
}

func (s *Server) handleGetTarget(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	snap, err := s.Reg.Snapshot(name)
	if err != nil {
		http.Error(w, "unknown target", http.StatusNotFound)
		return
	}
	writeJSON(w, snap)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
