// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package api serves the debugger session over HTTP.
package api

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/citic/botNeumann-sub000/internal/api/handlers"
	"github.com/citic/botNeumann-sub000/internal/api/middleware"
	"github.com/citic/botNeumann-sub000/internal/api/version"
	"github.com/citic/botNeumann-sub000/internal/events"
)

// ServerConfig holds configuration for the API server.
type ServerConfig struct {
	Host string
	Port int

	TLSCert      string // Path to TLS certificate file
	TLSKey       string // Path to TLS private key file
	TLSTailscale bool   // Fetch certificates from tailscaled
}

// Dependencies holds all dependencies for API handlers.
type Dependencies struct {
	Debugger handlers.Debugger
	EventBus events.EventBus
}

// NewRouter creates the API router.
func NewRouter(deps Dependencies) *mux.Router {
	r := mux.NewRouter()

	r.Use(middleware.Logging)
	r.Use(middleware.Recovery)
	r.Use(middleware.CORS)
	r.Use(version.Middleware)

	api := r.PathPrefix("/api/v1").Subrouter()

	sessionHandler := handlers.NewSessionHandler(deps.Debugger)
	api.HandleFunc("/session", sessionHandler.Get).Methods("GET")
	api.HandleFunc("/session/start", sessionHandler.Start).Methods("POST")
	api.HandleFunc("/session/stop", sessionHandler.Stop).Methods("POST")

	commandHandler := handlers.NewCommandHandler(deps.Debugger)
	api.HandleFunc("/commands", commandHandler.Send).Methods("POST")
	api.HandleFunc("/responses", commandHandler.Responses).Methods("GET")

	targetHandler := handlers.NewTargetHandler(deps.Debugger)
	api.HandleFunc("/target", targetHandler.Output).Methods("GET")
	api.HandleFunc("/target/input", targetHandler.Input).Methods("POST")
	api.HandleFunc("/target/stream", targetHandler.Stream).Methods("GET")

	eventHandler := handlers.NewEventHandler(deps.EventBus)
	api.HandleFunc("/events", eventHandler.History).Methods("GET")
	api.HandleFunc("/events/ws", eventHandler.WebSocket).Methods("GET")

	return r
}

// Server represents the API server.
type Server struct {
	router *mux.Router
	cfg    ServerConfig
	server *http.Server
}

// NewServer creates a new API server.
func NewServer(cfg ServerConfig, deps Dependencies) *Server {
	s := &Server{
		router: NewRouter(deps),
		cfg:    cfg,
	}
	s.server = &http.Server{
		Addr:              s.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Router returns the underlying router.
func (s *Server) Router() *mux.Router {
	return s.router
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
}

// ListenAndServe starts the server, over HTTPS when TLS is configured. It
// returns http.ErrServerClosed after Shutdown.
func (s *Server) ListenAndServe() error {
	tlsConfig, err := BuildTLSConfig(s.cfg)
	if err != nil {
		return fmt.Errorf("TLS configuration error: %w", err)
	}
	if tlsConfig != nil {
		s.server.TLSConfig = tlsConfig
		log.Printf("[api] listening on https://%s (TLS enabled)", s.Addr())
		return s.server.ListenAndServeTLS("", "")
	}

	log.Printf("[api] listening on http://%s", s.Addr())
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("[api] shutting down")

	shutdownCtx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		shutdownCtx, cancel = context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
	}
	return s.server.Shutdown(shutdownCtx)
}
