// ============================================================================
// englishquery - Natural Language Database Queries
// ============================================================================
//
// Package:     metrics
// Description: Optional HTTP listener exposing /metrics and extra routes
// Author:      Mike Stoffels
// Created:     2026-01-13
// License:     MIT
// ============================================================================

package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/msto63/englishquery/pkg/core/logging"
)

// Server exposes the default Prometheus registry over HTTP
type Server struct {
	srv    *http.Server
	ln     net.Listener
	logger *logging.Logger
}

// Route is an additional endpoint served next to /metrics
type Route struct {
	Pattern string
	Handler http.Handler
}

// Handler returns the mux served by Server
func Handler(routes ...Route) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	for _, r := range routes {
		mux.Handle(r.Pattern, r.Handler)
	}
	return mux
}

// Start binds addr and serves metrics until ctx is cancelled
func Start(ctx context.Context, addr string, routes ...Route) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	s := &Server{
		srv: &http.Server{
			Handler:           Handler(routes...),
			ReadHeaderTimeout: 5 * time.Second,
		},
		ln:     ln,
		logger: logging.New("metrics"),
	}

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metrics server stopped", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		_ = s.Close()
	}()

	s.logger.Info("metrics server listening", "addr", ln.Addr().String())
	return s, nil
}

// Addr returns the bound address
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Close shuts the server down
func (s *Server) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
