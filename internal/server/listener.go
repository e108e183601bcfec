package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/vyra/internal/shared"
)

const defaultShutdownTimeout = 5 * time.Second

// ProxyServer owns the loopback listener that serves the proxy router.
type ProxyServer struct {
	addr            string
	handler         http.Handler
	shutdownTimeout time.Duration
	logger          *log.Logger

	listener net.Listener
}

// NewProxyServer creates a [ProxyServer] for addr ("host:port"). Port 0 picks a free port.
func NewProxyServer(addr string, handler http.Handler, logger *log.Logger) *ProxyServer {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &ProxyServer{
		addr:            addr,
		handler:         handler,
		shutdownTimeout: defaultShutdownTimeout,
		logger:          logger,
	}
}

// Listen binds the address. Calling it before [ProxyServer.Serve] lets callers
// learn the bound port through [ProxyServer.Addr].
func (s *ProxyServer) Listen() error {
	if s.listener != nil {
		return nil
	}
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", s.addr, err)
	}
	s.listener = ln
	return nil
}

// Addr is the bound address, or the configured one before [ProxyServer.Listen].
func (s *ProxyServer) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Serve accepts connections until ctx is cancelled, then shuts down gracefully.
func (s *ProxyServer) Serve(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}

	httpServer := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Infof("audio proxy listening on http://%s", s.Addr())
		if err := httpServer.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
		close(serverErrors)
	}()

	select {
	case err, ok := <-serverErrors:
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("error shutting down server", "error", err)
		return err
	}

	s.logger.Info("audio proxy stopped")
	return nil
}
