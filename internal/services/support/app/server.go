// Package server hosts the support HTTP and WebSocket process.
//
// The transport layer stays thin: request handling resolves an actor from
// the access token, delegates to the domain service, and translates domain
// errors into JSON envelopes. Real-time hint delivery rides the same
// process through the connection hub.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/emberworks/questline/internal/auth/token"
	"github.com/emberworks/questline/internal/platform/timeouts"
	"github.com/emberworks/questline/internal/services/support/audit"
	"github.com/emberworks/questline/internal/services/support/domain"
	"github.com/emberworks/questline/internal/services/support/realtime"
	"github.com/emberworks/questline/internal/services/support/storage"
	"github.com/emberworks/questline/internal/services/support/storage/sqlite"
)

// Config defines the inputs for the support transport boundary.
type Config struct {
	HTTPAddr          string
	StoragePath       string
	Token             token.Config
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
}

// Server hosts the support HTTP/WebSocket process and owns its store.
type Server struct {
	httpAddr        string
	shutdownTimeout time.Duration
	httpServer      *http.Server
	store           *sqlite.Store
	hub             *realtime.Hub
}

// NewServer builds a configured support server with its storage opened and
// migrated.
func NewServer(config Config) (*Server, error) {
	httpAddr := strings.TrimSpace(config.HTTPAddr)
	if httpAddr == "" {
		return nil, errors.New("http address is required")
	}
	if config.ReadHeaderTimeout <= 0 {
		config.ReadHeaderTimeout = timeouts.ReadHeader
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = timeouts.Shutdown
	}

	store, err := sqlite.Open(config.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("open support store: %w", err)
	}

	hub := realtime.NewHub()
	recorder := audit.NewRecorder(newAuditStoreAdapter(store))
	service := domain.NewService(newDomainStoreAdapter(store), recorder, hub, nil, nil)

	routes := newHandler(&handler{
		service:    service,
		auditStore: store,
		hub:        hub,
		tokenCfg:   config.Token,
	})
	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           withTracing(routes),
		ReadHeaderTimeout: config.ReadHeaderTimeout,
	}

	return &Server{
		httpAddr:        httpAddr,
		shutdownTimeout: config.ShutdownTimeout,
		httpServer:      httpServer,
		store:           store,
		hub:             hub,
	}, nil
}

// Run creates and serves a support server until the context ends.
func Run(ctx context.Context, config Config) error {
	server, err := NewServer(config)
	if err != nil {
		return fmt.Errorf("init support server: %w", err)
	}
	defer server.Close()

	if err := server.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("serve support: %w", err)
	}
	return nil
}

// ListenAndServe runs the HTTP server until the context ends.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil {
		return errors.New("support server is nil")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	serveErr := make(chan error, 1)
	log.Printf("support server listening on %s", s.httpAddr)
	go func() {
		serveErr <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		err := s.httpServer.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}

// Close releases server resources.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Printf("close support store: %v", err)
		}
	}
}

// Store exposes the underlying support store for seed tooling.
func (s *Server) Store() storage.SupportStore {
	if s == nil {
		return nil
	}
	return s.store
}
