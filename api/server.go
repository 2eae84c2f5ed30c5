// Package api exposes the node over HTTP. Every endpoint speaks JSON and
// errors are reported as {"error": "..."}.
package api

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/luca-patrignani/dedecoin/service"
)

// Server routes HTTP requests to a service.
type Server struct {
	service *service.Service
	router  *mux.Router
	server  *http.Server
	logger  *slog.Logger
}

func NewServer(s *service.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	srv := &Server{
		service: s,
		router:  mux.NewRouter(),
		logger:  logger,
	}
	srv.setupRoutes()
	srv.server = &http.Server{
		Handler:           srv.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return srv
}

func (s *Server) setupRoutes() {
	s.router.Use(s.logRequests)

	s.router.HandleFunc("/blocks", s.handleBlocks).Methods(http.MethodGet)
	s.router.HandleFunc("/blocks/{index:[0-9]+}", s.handleBlock).Methods(http.MethodGet)
	s.router.HandleFunc("/pending", s.handlePending).Methods(http.MethodGet)
	s.router.HandleFunc("/valid", s.handleValid).Methods(http.MethodGet)
	s.router.HandleFunc("/wallet", s.handleWallet).Methods(http.MethodGet)
	s.router.HandleFunc("/balance/{address}", s.handleBalance).Methods(http.MethodGet)
	s.router.HandleFunc("/addresses/{address}/transactions", s.handleHistory).Methods(http.MethodGet)
	s.router.HandleFunc("/transactions", s.handleSubmit).Methods(http.MethodPost)
	s.router.HandleFunc("/mine", s.handleMine).Methods(http.MethodPost)
	s.router.HandleFunc("/config", s.handleGetConfig).Methods(http.MethodGet)
	s.router.HandleFunc("/config", s.handleSetConfig).Methods(http.MethodPut)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Serve accepts plain HTTP connections on l until Shutdown is called.
func (s *Server) Serve(l net.Listener) error {
	err := s.server.Serve(l)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// ServeTLS is like Serve but terminates TLS with cert.
func (s *Server) ServeTLS(l net.Listener, cert tls.Certificate) error {
	s.server.TLSConfig = &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}
	err := s.server.ServeTLS(l, "", "")
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request served", "method", r.Method, "path", r.URL.Path, "elapsed", time.Since(started))
	})
}
