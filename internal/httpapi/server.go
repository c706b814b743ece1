// Package httpapi exposes the WhatsApp webhook endpoints over HTTP using gin,
// the way cmd/tarsy wires its own router directly rather than going through
// a dedicated api package.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ottohq/otto-gateway/internal/config"
	"github.com/ottohq/otto-gateway/pkg/orchestrator"
)

// Server is the HTTP front door for the webhook pipeline.
type Server struct {
	cfg    *config.Config
	orch   *orchestrator.Orchestrator
	engine *gin.Engine
	http   *http.Server
}

// NewServer builds the gin engine and registers routes. It does not start
// listening; call ListenAndServe to serve it.
func NewServer(cfg *config.Config, orch *orchestrator.Orchestrator) *Server {
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{cfg: cfg, orch: orch, engine: engine}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.engine.GET("/health", s.handleHealth)
	s.engine.GET("/webhooks/whatsapp", s.handleVerify)
	s.engine.POST("/webhooks/whatsapp", s.handleInbound)
}

// Engine exposes the underlying gin engine, mainly so tests can drive it
// with httptest without binding a real port.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// ListenAndServe starts serving on addr and blocks until ctx is canceled or
// the listener fails. On cancellation it attempts a graceful shutdown.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.http = &http.Server{
		Addr:    addr,
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http_server_listening", "addr", addr)
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		slog.Info("http_server_shutting_down")
		return s.http.Shutdown(shutdownCtx)
	}
}
