package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/umputun/gensvc/pkg/store"
)

//go:embed templates
var content embed.FS

// RunLister returns recent run records.
type RunLister interface {
	Runs(ctx context.Context, limit int) ([]store.Run, error)
}

// ServerConfig configures the dashboard server.
type ServerConfig struct {
	Port  int    // port to listen on
	Title string // dashboard title
}

// Server serves the dashboard, the SSE stream and JSON history endpoints.
type Server struct {
	cfg  ServerConfig
	hub  *Hub
	runs RunLister
	tmpl *template.Template
	srv  *http.Server
}

// NewServer makes a server. runs may be nil, then /api/runs answers 404.
func NewServer(cfg ServerConfig, hub *Hub, runs RunLister) (*Server, error) {
	tmpl, err := template.ParseFS(content, "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	if cfg.Title == "" {
		cfg.Title = "gensvc"
	}
	return &Server{cfg: cfg, hub: hub, runs: runs, tmpl: tmpl}, nil
}

// Handler returns the routes of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.Handle("GET /events", s.hub)
	mux.HandleFunc("GET /api/events", s.handleEvents)
	mux.HandleFunc("GET /api/runs", s.handleRuns)
	return mux
}

// Start listens until ctx is cancelled or the server fails.
func (s *Server) Start(ctx context.Context) error {
	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		if err := s.Stop(); err != nil {
			log.Printf("[WARN] %v", err)
		}
	}()

	err := s.srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return fmt.Errorf("http server: %w", err)
}

// Stop disconnects SSE clients and shuts the server down.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.hub.Shutdown(ctx); err != nil {
		log.Printf("[WARN] %v", err)
	}
	if s.srv == nil {
		return nil
	}
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown server: %w", err)
	}
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.Execute(w, struct{ Title string }{s.cfg.Title}); err != nil {
		log.Printf("[WARN] render index: %v", err)
	}
}

// handleEvents returns buffered events, optionally for one action.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	events := s.hub.Buffer().All()
	if name := r.URL.Query().Get("action"); name != "" {
		events = s.hub.Buffer().ByAction(name)
	}
	if events == nil {
		events = []Event{}
	}
	writeJSON(w, events)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		http.Error(w, "run history is not available", http.StatusNotFound)
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	runs, err := s.runs.Runs(r.Context(), limit)
	if err != nil {
		log.Printf("[WARN] list runs: %v", err)
		http.Error(w, "unable to list runs", http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []store.Run{}
	}
	writeJSON(w, runs)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[WARN] encode response: %v", err)
	}
}
