package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/listingwire/scrapegate/pkg/gate"
	"github.com/listingwire/scrapegate/pkg/source"
)

// Server is the HTTP admin and admission API.
type Server struct {
	daemon     *Daemon
	port       int
	logger     *Logger
	httpServer *http.Server
}

// NewServer creates a new HTTP server instance.
func NewServer(daemon *Daemon, port int, logger *Logger) *Server {
	return &Server{
		daemon: daemon,
		port:   port,
		logger: logger,
	}
}

// Start starts the HTTP server and blocks until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: s.Handler(),
	}

	s.logger.Info("http server listening", "port", s.port)

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		return s.httpServer.Shutdown(context.Background())
	case err := <-errChan:
		return err
	}
}

// Stop stops the HTTP server.
func (s *Server) Stop() error {
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// Handler builds the route mux. Split out so tests can drive it with
// httptest without binding a port.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/admit", s.handleAdmit)
	mux.HandleFunc("/api/report", s.handleReport)
	mux.HandleFunc("/api/journal/recent", s.handleRecentDecisions)
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.HandlerFor(s.daemon.promReg, promhttp.HandlerOpts{}))
	return mux
}

// handleStatus serves GET /api/status, optionally filtered by ?source=.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snap := s.daemon.Status()
	if sourceID := r.URL.Query().Get("source"); sourceID != "" {
		for _, src := range snap.Sources {
			if src.ID == sourceID {
				writeJSON(w, http.StatusOK, src)
				return
			}
		}
		http.Error(w, fmt.Sprintf("unknown source %q", sourceID), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

type admitRequest struct {
	Source string `json:"source"`
}

type admitResponse struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason"`
	WaitMs  int64  `json:"wait_ms"`
	Detail  string `json:"detail,omitempty"`
}

// handleAdmit serves POST /api/admit. The scraper calls this before every
// network request.
func (s *Server) handleAdmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req admitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	decision, err := s.daemon.Admit(req.Source)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, decisionResponse(decision))
}

type reportRequest struct {
	Source  string `json:"source"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// handleReport serves POST /api/report. The scraper calls this exactly once
// after each attempted request.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req reportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := s.daemon.Report(req.Source, req.Success, req.Error); err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
}

// handleRecentDecisions serves GET /api/journal/recent?limit=N.
func (s *Server) handleRecentDecisions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	entries, err := s.daemon.RecentDecisions(limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleHealth serves GET /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	var confErr *source.ConfigurationError
	if errors.As(err, &confErr) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func decisionResponse(d gate.Decision) admitResponse {
	return admitResponse{
		Allowed: d.Allowed,
		Reason:  d.Reason.String(),
		WaitMs:  d.WaitMillis(),
		Detail:  d.Detail,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
