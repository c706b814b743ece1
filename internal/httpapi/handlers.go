package httpapi

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ottohq/otto-gateway/internal/correlation"
	"github.com/ottohq/otto-gateway/pkg/orchestrator"
	"github.com/ottohq/otto-gateway/pkg/version"
)

// handleHealth reports liveness only; it deliberately does not reach out to
// any backend, so it stays cheap enough for a tight liveness-probe interval.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "healthy",
		"environment": s.cfg.Environment,
		"version":     version.Full(),
	})
}

// handleVerify answers Meta's webhook subscription handshake:
// GET /webhooks/whatsapp?hub.mode=subscribe&hub.verify_token=...&hub.challenge=...
func (s *Server) handleVerify(c *gin.Context) {
	if s.cfg.WhatsAppVerifyToken == "" {
		slog.Error("webhook_verify_token_not_configured")
		c.Status(http.StatusInternalServerError)
		return
	}

	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode != "subscribe" || token != s.cfg.WhatsAppVerifyToken {
		slog.Warn("webhook_verify_rejected", "mode", mode)
		c.Status(http.StatusForbidden)
		return
	}

	c.String(http.StatusOK, challenge)
}

// handleInbound accepts a batch of WhatsApp webhook messages.
func (s *Server) handleInbound(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "could not read request body"})
		return
	}

	headers := make(map[string]string, len(c.Request.Header))
	for k := range c.Request.Header {
		headers[k] = c.Request.Header.Get(k)
	}

	correlationID := c.GetHeader("x-correlation-id")
	ctx := c.Request.Context()
	if correlationID == "" {
		correlationID, ctx = correlation.FromContextOrNew(ctx)
	} else {
		ctx = correlation.WithID(ctx, correlationID)
	}

	summary, err := s.orch.ProcessWebhook(ctx, body, headers)
	if err != nil {
		var pipelineErr *orchestrator.PipelineError
		if errors.As(err, &pipelineErr) {
			slog.Warn("webhook_rejected", "correlation_id", correlationID, "code", pipelineErr.Code)
			c.JSON(pipelineErr.HTTPStatus, gin.H{"detail": string(pipelineErr.Code), "correlation_id": correlationID})
			return
		}
		slog.Error("webhook_processing_unexpected_error", "correlation_id", correlationID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "internal_error", "correlation_id": correlationID})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":             true,
		"correlation_id": correlationID,
		"result":         summary,
	})
}
