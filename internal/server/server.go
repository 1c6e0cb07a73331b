// Package server exposes Prometheus metrics and a status endpoint while a
// long-running scan is in flight. It is opt-in; the CLI exits quickly in
// normal use and never starts it.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Status is the payload served on /status.
type Status struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version,omitempty"`
	Uptime    string    `json:"uptime,omitempty"`
}

// Server serves /metrics and /status during a scan.
type Server struct {
	server    *http.Server
	mux       *http.ServeMux
	startTime time.Time
	version   string
}

// New builds a server listening on addr.
func New(addr, version string) *Server {
	s := &Server{
		mux:       http.NewServeMux(),
		startTime: time.Now(),
		version:   version,
	}

	s.mux.Handle("/metrics", promhttp.Handler())
	s.mux.HandleFunc("/status", s.statusHandler)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// Start blocks serving until Stop is called.
func (s *Server) Start() error {
	err := s.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) statusHandler(w http.ResponseWriter, _ *http.Request) {
	status := Status{
		Status:    "scanning",
		Timestamp: time.Now(),
		Version:   s.version,
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(status); err != nil {
		http.Error(w, "failed to encode status", http.StatusInternalServerError)
	}
}

// Handler returns the HTTP handler for testing.
func (s *Server) Handler() http.Handler {
	return s.mux
}
