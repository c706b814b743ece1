// Package opsnotify sends best-effort operator alerts (audit chain
// exhaustion, session conflict storms) to a Slack channel. It is nil-safe
// and fail-open: a missing configuration or a delivery error never
// propagates back to the pipeline that triggered the alert.
package opsnotify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	goslack "github.com/slack-go/slack"
)

// Config holds the parameters needed to construct a Service.
type Config struct {
	Token   string
	Channel string
}

// Service posts operator alerts to Slack. Nil-safe: every method is a no-op
// when the Service itself is nil.
type Service struct {
	api     *goslack.Client
	channel string
	logger  *slog.Logger
}

// NewService builds a Service, or returns nil if Token or Channel is empty
// (opsnotify is an optional, supplemental concern, not a hard dependency).
func NewService(cfg Config) *Service {
	if cfg.Token == "" || cfg.Channel == "" {
		return nil
	}
	return &Service{
		api:     goslack.New(cfg.Token),
		channel: cfg.Channel,
		logger:  slog.Default().With("component", "opsnotify"),
	}
}

// NewServiceWithClient builds a Service backed by a pre-built slack-go
// client, for tests against a mock API server.
func NewServiceWithClient(api *goslack.Client, channel string) *Service {
	return &Service{api: api, channel: channel, logger: slog.Default().With("component", "opsnotify")}
}

// NewServiceWithAPIURL builds a Service that targets a custom Slack API URL,
// for tests against an httptest mock server.
func NewServiceWithAPIURL(cfg Config, apiURL string) *Service {
	return &Service{
		api:     goslack.New(cfg.Token, goslack.OptionAPIURL(apiURL)),
		channel: cfg.Channel,
		logger:  slog.Default().With("component", "opsnotify"),
	}
}

// NotifyAuditChainExhausted alerts that a user's audit hash chain failed to
// append after exhausting its compare-and-swap retry budget.
func (s *Service) NotifyAuditChainExhausted(ctx context.Context, userKey string, attempts int, cause error) {
	if s == nil {
		return
	}
	text := fmt.Sprintf(
		":warning: *Audit chain append failed* for user key `%s` after %d attempts: %s",
		userKey, attempts, cause,
	)
	s.post(ctx, text)
}

// NotifySessionConflictStorm alerts that a session has seen an unusually
// high rate of compare-and-swap conflicts, suggesting concurrent writers
// are stepping on each other.
func (s *Service) NotifySessionConflictStorm(ctx context.Context, sessionID string, conflictCount int, window time.Duration) {
	if s == nil {
		return
	}
	text := fmt.Sprintf(
		":warning: *Session conflict storm* for session `%s`: %d conflicts in the last %s",
		sessionID, conflictCount, window,
	)
	s.post(ctx, text)
}

func (s *Service) post(ctx context.Context, text string) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, _, err := s.api.PostMessageContext(ctx, s.channel, goslack.MsgOptionText(text, false))
	if err != nil {
		s.logger.Error("opsnotify_post_failed", "error", err)
	}
}
