package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	sloghttp "github.com/samber/slog-http"
)

// SiteServer serves the most recently built site for preview. It only ever
// reads prebuilt files; aggregates are never computed per request.
type SiteServer struct {
	cfg    *Config
	logger *slog.Logger
}

func NewSiteServer(cfg *Config) *SiteServer {
	return &SiteServer{
		cfg:    cfg,
		logger: slog.Default(),
	}
}

func (s *SiteServer) SetLogger(logger *slog.Logger) {
	s.logger = logger
}

func (s *SiteServer) Start() error {
	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("GET /health", s.handleHealth)

	// Everything else is the static site tree
	mux.Handle("GET /", http.FileServer(http.Dir(s.cfg.SiteDir)))

	addr := fmt.Sprintf(":%s", s.cfg.HTTPPort)
	s.logger.Info("Site server starting", "addr", addr, "site_dir", s.cfg.SiteDir)

	// Use slog-http middleware with recovery
	handler := sloghttp.Recovery(mux)
	handler = sloghttp.New(s.logger)(handler)

	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server.ListenAndServe()
}

func (s *SiteServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
