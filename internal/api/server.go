// Package api exposes the analytics engine over HTTP and a websocket
// session protocol: each websocket client owns one filter state, sends
// mutations and receives the recomputed views after every change.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"car-market-lab/internal/analytics"
	"car-market-lab/internal/filter"
	"car-market-lab/internal/observability"
)

const maxRequestBody = 1 << 20

// ServerOptions configures a Server.
type ServerOptions struct {
	Engine   *analytics.Engine
	Defaults analytics.Options      // initial options of every session and request
	Metrics  *observability.Metrics // optional
	Logger   *log.Logger            // optional
	Session  *SessionConfig         // optional
}

// Server serves the HTTP and websocket API.
type Server struct {
	engine   *analytics.Engine
	defaults analytics.Options
	metrics  *observability.Metrics
	logger   *log.Logger
	session  SessionConfig
	upgrader websocket.Upgrader
	started  time.Time

	mu       sync.Mutex
	sessions int

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewServer creates an API server.
func NewServer(opts ServerOptions) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	session := DefaultSessionConfig()
	if opts.Session != nil {
		session = *opts.Session
	}
	return &Server{
		engine:   opts.Engine,
		defaults: opts.Defaults,
		metrics:  opts.Metrics,
		logger:   logger,
		session:  session,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		started: time.Now(),
		done:    make(chan struct{}),
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/options", s.handleOptions)
	mux.HandleFunc("POST /api/recompute", s.handleRecompute)
	mux.HandleFunc("GET /ws", s.handleWebsocket)

	// Prometheus metrics
	mux.Handle("GET /metrics", observability.Handler())

	return mux
}

// Close ends every websocket session and waits for them to finish.
func (s *Server) Close() {
	s.closeOnce.Do(func() { close(s.done) })
	s.wg.Wait()
}

// StatusResponse is the JSON response for /api/status endpoint.
type StatusResponse struct {
	analytics.Status
	Uptime   string `json:"uptime"`
	Sessions int    `json:"sessions"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	sessions := s.sessions
	s.mu.Unlock()

	s.writeJSON(w, "status", http.StatusOK, StatusResponse{
		Status:   s.engine.Status(),
		Uptime:   time.Since(s.started).Round(time.Second).String(),
		Sessions: sessions,
	})
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	cat, err := s.engine.Catalog()
	if err != nil {
		s.writeError(w, "options", err)
		return
	}
	s.writeJSON(w, "options", http.StatusOK, cat)
}

func (s *Server) handleRecompute(w http.ResponseWriter, r *http.Request) {
	// Options decode over a copy of the defaults so omitted fields keep them.
	defaults := s.defaultOptions()
	req := RecomputeRequest{Options: &defaults}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.writeJSON(w, "recompute", http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	state := req.State
	if state == nil {
		state = filter.NewState()
	}
	opts := s.defaultOptions()
	if req.Options != nil {
		opts = *req.Options
	}

	derived, err := s.engine.Recompute(r.Context(), state, opts)
	if err != nil {
		s.writeError(w, "recompute", err)
		return
	}
	s.writeJSON(w, "recompute", http.StatusOK, derived)
}

// defaultOptions returns a copy of the server defaults that shares no pointers with them.
func (s *Server) defaultOptions() analytics.Options {
	opts := s.defaults
	if opts.Projection != nil {
		p := *opts.Projection
		opts.Projection = &p
	}
	return opts
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied with an HTTP error.
		s.logger.Printf("Websocket upgrade failed: %v", err)
		return
	}

	s.wg.Add(1)
	defer s.wg.Done()
	s.trackSession(1)
	defer s.trackSession(-1)

	sess := newSession(s, conn)
	s.logger.Printf("Session %s opened from %s", sess.id, r.RemoteAddr)
	sess.run(r.Context())
	s.logger.Printf("Session %s closed", sess.id)
}

func (s *Server) trackSession(delta int) {
	s.mu.Lock()
	s.sessions += delta
	s.mu.Unlock()
	if s.metrics != nil {
		s.metrics.WSSessions.Add(float64(delta))
	}
}

func (s *Server) recordWSMessage(msgType string, d time.Duration, err error) {
	if s.metrics != nil {
		s.metrics.RecordWSMessage(msgType, d.Seconds(), err)
	}
}

// writeError maps engine errors to HTTP status codes.
func (s *Server) writeError(w http.ResponseWriter, route string, err error) {
	switch {
	case errors.Is(err, analytics.ErrNotLoaded):
		s.writeJSON(w, route, http.StatusServiceUnavailable, ErrorResponse{
			Error: err.Error(),
			State: string(s.engine.Status().State),
		})
	case errors.Is(err, analytics.ErrInvalidValueMetric):
		s.writeJSON(w, route, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	default:
		s.logger.Printf("%s failed: %v", route, err)
		s.writeJSON(w, route, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, route string, code int, v any) {
	if s.metrics != nil {
		s.metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Printf("Encode %s response: %v", route, err)
	}
}
