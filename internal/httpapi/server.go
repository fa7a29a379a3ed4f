// v1
// internal/httpapi/server.go
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/AgenticFactoria/AgenticFac-SupCon/internal/harness"
	"github.com/AgenticFactoria/AgenticFac-SupCon/internal/metrics"
)

// Server exposes the live state of an evaluation run over HTTP.
// It observes the controller; it never steers the run.
type Server struct {
	ctrl *harness.Controller
	lg   *slog.Logger
	http *http.Server
}

func NewServer(bind string, ctrl *harness.Controller, met *metrics.Metrics, lg *slog.Logger) *Server {
	s := &Server{ctrl: ctrl, lg: lg}

	r := mux.NewRouter()
	r.HandleFunc("/health", s.getHealth).Methods("GET")
	r.HandleFunc("/status", s.getStatus).Methods("GET")
	r.HandleFunc("/result/latest", s.getLatestResult).Methods("GET")
	r.Handle("/metrics", met.Handler()).Methods("GET")

	s.http = &http.Server{
		Addr:    bind,
		Handler: handlers.LoggingHandler(os.Stdout, r),
	}
	return s
}

// Start blocks in ListenAndServe. Run it in its own goroutine.
func (s *Server) Start() error {
	s.lg.Info("http server starting", "bind", s.http.Addr)
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Stop(ctx context.Context) error {
	s.lg.Info("http server stopping")
	return s.http.Shutdown(ctx)
}

func (s *Server) getHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) getStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.ctrl.Status())
}

func (s *Server) getLatestResult(w http.ResponseWriter, _ *http.Request) {
	snap := s.ctrl.Status()
	if snap.LastResult == nil {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"no result yet"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snap.LastResult)
}
