package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/ottohq/otto-gateway/internal/config"
	"github.com/ottohq/otto-gateway/internal/correlation"
	"github.com/ottohq/otto-gateway/pkg/advisors"
	"github.com/ottohq/otto-gateway/pkg/advisors/promptfiles"
	"github.com/ottohq/otto-gateway/pkg/audit"
	"github.com/ottohq/otto-gateway/pkg/dedupe"
	"github.com/ottohq/otto-gateway/pkg/fsm"
	"github.com/ottohq/otto-gateway/pkg/guards"
	"github.com/ottohq/otto-gateway/pkg/metrics"
	"github.com/ottohq/otto-gateway/pkg/opsnotify"
	"github.com/ottohq/otto-gateway/pkg/outbound"
	"github.com/ottohq/otto-gateway/pkg/sanitize"
	"github.com/ottohq/otto-gateway/pkg/session"
	"github.com/ottohq/otto-gateway/pkg/userkey"
	"github.com/ottohq/otto-gateway/pkg/webhookmsg"
)

// MaxBatchMessages bounds how many normalized messages one webhook delivery
// may carry before it is rejected outright (spec §6: batch_too_large).
const MaxBatchMessages = 100

// Per-stage advisor timeouts (spec §5).
const (
	StateSelectorTimeout     = 5 * time.Second
	ResponseGeneratorTimeout = 8 * time.Second
	MasterDeciderTimeout     = 5 * time.Second
	DedupeIOTimeout          = 300 * time.Millisecond
	SessionIOTimeout         = 500 * time.Millisecond
	AuditIOTimeout           = 500 * time.Millisecond

	perMessageDeadlineSlack = 2 * time.Second
)

// PerMessageDeadline bounds one message's whole pipeline run: the sum of
// every LLM timeout plus slack for the deterministic stages around them.
// Exceeding it does not abort an in-flight session-save or audit-append.
const PerMessageDeadline = StateSelectorTimeout + ResponseGeneratorTimeout + MasterDeciderTimeout + perMessageDeadlineSlack

// maxSessionPersistAttempts bounds how many times a lost compare-and-swap
// race is retried before the save is abandoned, mirroring audit.Recorder's
// own retry budget for the same kind of race.
const maxSessionPersistAttempts = 3

// Orchestrator wires every pipeline component into the fixed processing
// order described in spec §4.13: verify, normalize, then per message mark
// inbound-new, resolve session, run guards, run the three advisors,
// sanitize, build the outbound job, persist and audit.
type Orchestrator struct {
	cfg *config.Config

	dedupeStore       dedupe.Store
	sessionMgr        *session.Manager
	guardChecker      *guards.Checker
	stateSelector     *advisors.StateSelector
	responseGenerator *advisors.ResponseGenerator
	masterDecider     *advisors.MasterDecider
	outboundEnqueuer  outbound.Enqueuer
	auditRecorder     *audit.Recorder
	decisionAudit     audit.DecisionAuditStore
	ops               *opsnotify.Service
	ottoIntro         string

	// sessionLocks serializes the guard/FSM/advisor/persist stages (steps
	// c through n) per session-id, so two inbound messages for the same
	// sender arriving concurrently are applied one at a time rather than
	// racing to read-modify-write the same Session.
	sessionLocks sync.Map // map[string]*sync.Mutex
}

// New builds an Orchestrator. ops may be nil (opsnotify.Service is
// nil-safe); decisionAudit may be nil to disable decision-audit recording.
func New(
	cfg *config.Config,
	dedupeStore dedupe.Store,
	sessionMgr *session.Manager,
	guardChecker *guards.Checker,
	stateSelector *advisors.StateSelector,
	responseGenerator *advisors.ResponseGenerator,
	masterDecider *advisors.MasterDecider,
	outboundEnqueuer outbound.Enqueuer,
	auditRecorder *audit.Recorder,
	decisionAudit audit.DecisionAuditStore,
	ops *opsnotify.Service,
	promptContent promptfiles.Content,
) *Orchestrator {
	ottoIntro := promptContent.OttoIntro
	if ottoIntro == "" {
		ottoIntro = promptfiles.DefaultOttoIntro
	}
	return &Orchestrator{
		cfg:               cfg,
		dedupeStore:       dedupeStore,
		sessionMgr:        sessionMgr,
		guardChecker:      guardChecker,
		stateSelector:     stateSelector,
		responseGenerator: responseGenerator,
		masterDecider:     masterDecider,
		outboundEnqueuer:  outboundEnqueuer,
		auditRecorder:     auditRecorder,
		decisionAudit:     decisionAudit,
		ops:               ops,
		ottoIntro:         ottoIntro,
	}
}

// lockFor returns the mutex serializing pipeline work for one session id,
// creating it on first use.
func (o *Orchestrator) lockFor(sessionID string) *sync.Mutex {
	v, _ := o.sessionLocks.LoadOrStore(sessionID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// ProcessWebhook runs steps 1-4 of the pipeline against one raw webhook
// delivery: verify signature, parse, normalize, cap the batch, then process
// each normalized message against its own session in turn. A *PipelineError
// here means the whole request is rejected before any message-level work
// begins; a message that fails partway through is recorded in the returned
// summary instead and does not fail its siblings.
func (o *Orchestrator) ProcessWebhook(ctx context.Context, rawBody []byte, headers map[string]string) (*webhookmsg.WebhookProcessingSummary, error) {
	correlationID, ctx := correlation.FromContextOrNew(ctx)

	sigResult := webhookmsg.VerifySignature(rawBody, headers, o.cfg.WhatsAppWebhookSecret)
	if sigResult.Err != nil {
		slog.Warn("webhook_signature_rejected", "correlation_id", correlationID, "error", sigResult.Err)
		return nil, newPipelineError(ErrCodeInvalidSignature, http.StatusUnauthorized, sigResult.Err)
	}

	var env webhookmsg.Envelope
	if err := json.Unmarshal(rawBody, &env); err != nil {
		slog.Warn("webhook_body_invalid_json", "correlation_id", correlationID, "error", err)
		return nil, newPipelineError(ErrCodeInvalidJSON, http.StatusBadRequest, err)
	}

	normalized := webhookmsg.Normalize(env)
	if len(normalized.Messages) > MaxBatchMessages {
		return nil, newPipelineError(ErrCodeBatchTooLarge, http.StatusRequestEntityTooLarge,
			fmt.Errorf("batch of %d messages exceeds max %d", len(normalized.Messages), MaxBatchMessages))
	}

	summary := &webhookmsg.WebhookProcessingSummary{
		TotalReceived:      len(normalized.Messages) + normalized.Dropped,
		SignatureValidated: sigResult.Valid && !sigResult.Skipped,
		SignatureSkipped:   sigResult.Skipped,
		Errors:             []string{},
		Notes:              []string{},
	}
	if normalized.Dropped > 0 {
		summary.Notes = append(summary.Notes, fmt.Sprintf("%d message(s) dropped during normalization", normalized.Dropped))
	}

	for _, msg := range normalized.Messages {
		o.processOne(ctx, msg, correlationID, summary)
	}

	return summary, nil
}

// processOne runs steps a-n of the per-message pipeline. It never returns
// an error: every failure is logged, reflected in summary, and the message
// is abandoned at the point of failure rather than retried inline (the
// vendor's at-least-once delivery is the retry mechanism).
func (o *Orchestrator) processOne(ctx context.Context, msg webhookmsg.NormalizedMessage, correlationID string, summary *webhookmsg.WebhookProcessingSummary) {
	msgCtx, cancel := context.WithTimeout(ctx, PerMessageDeadline)
	defer cancel()

	totalTimer := metrics.StartTimer("pipeline_total")
	outcome := "ok"
	defer func() { totalTimer.Stop(outcome) }()

	// a. mark-if-new inbound dedupe.
	wasNew, err := o.markInbound(msgCtx, msg.MessageID)
	if err != nil {
		if !o.failsOpenOnDedupeError() {
			summary.Errors = append(summary.Errors, "dedupe_error")
			outcome = "error"
			return
		}
		slog.Error("dedupe_check_failed_proceeding", "correlation_id", correlationID, "message_id", msg.MessageID, "error", err)
	}
	if err == nil && !wasNew {
		summary.TotalDeduped++
		return
	}

	sessionID := resolveSessionID(msg)
	mu := o.lockFor(sessionID)
	mu.Lock()
	defer mu.Unlock()

	// b. session get-or-create.
	sessionTimer := metrics.StartTimer("session_load")
	loadCtx, loadCancel := context.WithTimeout(msgCtx, SessionIOTimeout)
	s, err := o.sessionMgr.GetOrCreate(loadCtx, msg)
	loadCancel()
	if err != nil {
		sessionTimer.Stop("error")
		slog.Error("session_load_failed", "correlation_id", correlationID, "session_id", sessionID, "error", err)
		summary.Errors = append(summary.Errors, "session_load_error")
		outcome = "error"
		return
	}
	sessionTimer.Stop("ok")

	now := time.Now().UTC()
	isFirstToday := session.IsFirstMessageOfDay(s, now)

	// c. append user message (idempotent on retry-delivered message-ids).
	o.sessionMgr.AppendUserMessage(s, msg, correlationID)

	// d. abuse guards.
	guardTimer := metrics.StartTimer("guards")
	rejection, err := o.guardChecker.Check(msgCtx, s, msg.Text)
	if err != nil {
		guardTimer.Stop("error")
		slog.Error("guard_check_failed", "correlation_id", correlationID, "session_id", s.ID, "error", err)
	} else {
		guardTimer.Stop("ok")
	}
	if rejection != nil {
		metrics.GuardRejections.WithLabelValues(rejection.Reason).Inc()
		o.applyTerminalOutcome(s, rejection.Outcome, guardTerminalState(rejection.Reason))
		o.persistAndAudit(msgCtx, s, msg, correlationID, summary, nil, nil, nil)
		summary.Notes = append(summary.Notes, fmt.Sprintf("guard_rejected:%s", rejection.Reason))
		summary.TotalProcessed++
		return
	}

	// e. drive the session through the internal transition table (spec
	// §4.7): the inbound event moves it off Init/AwaitingUser, then the
	// deterministic detect/classify/prepare hops every turn takes before
	// the LLM-facing state is read.
	o.sessionMgr.NormalizeCurrentState(s)
	o.dispatch(s, inboundEventFor(msg), correlationID)
	o.dispatch(s, fsm.EventDetected, correlationID)
	o.dispatch(s, fsm.EventDetected, correlationID)
	llmCurrent := fsm.MapToLLMState(s.CurrentState)
	history := historySummaries(s)

	// f. state selector (LLM#1).
	ssTimer := metrics.StartTimer("state_selector")
	ssOut := o.stateSelector.Select(msgCtx, advisors.StateSelectorInput{
		CurrentState:       llmCurrent,
		PossibleNextStates: fsm.PossibleLLMNextStates(),
		MessageText:        msg.Text,
		HistorySummary:     sanitize.History(history),
		OpenItems:          openIntents(s),
	}, correlationID, StateSelectorTimeout)
	if !ssOut.Accepted {
		metrics.AdvisorFallbacks.WithLabelValues("state_selector").Inc()
		ssTimer.Stop("fallback")
	} else {
		ssTimer.Stop("ok")
	}

	o.dispatch(s, fsm.EventDetected, correlationID)

	// g. response generator (LLM#2).
	rgTimer := metrics.StartTimer("response_generator")
	rgIn := advisors.ResponseGeneratorInput{
		LastUserMessage:    msg.Text,
		DayHistory:         sanitize.History(history),
		StateDecision:      ssOut,
		CurrentState:       llmCurrent,
		CandidateNextState: ssOut.NextState,
		Confidence:         ssOut.Confidence,
		ResponseHint:       ssOut.ResponseHint,
	}
	rgOut := o.responseGenerator.Generate(msgCtx, rgIn, correlationID, ResponseGeneratorTimeout)
	rgTimer.Stop("ok")
	o.dispatch(s, fsm.ResponseGenerated, correlationID)

	// h. master decider (LLM#3).
	mdTimer := metrics.StartTimer("master_decider")
	mdOut := o.masterDecider.Decide(msgCtx, advisors.MasterDecisionInput{
		LastUserMessage: msg.Text,
		DayHistory:      rgIn.DayHistory,
		StateDecision:   ssOut,
		ResponseOptions: rgOut,
		CurrentState:    llmCurrent,
		CorrelationID:   correlationID,
	}, correlationID, MasterDeciderTimeout)
	mdTimer.Stop("ok")

	o.applyMasterDecision(s, mdOut, correlationID)

	// i. PII sanitize, j. prefix policy.
	finalText := sanitize.Text(mdOut.SelectedResponseText)
	if isFirstToday {
		finalText = o.ottoIntro + " " + finalText
	}

	// k/l. build, hash, outbound-dedupe, fire-and-forget enqueue.
	o.enqueueOutbound(msgCtx, msg, finalText, correlationID)

	// m/n. persist session, decision + user audit.
	o.persistAndAudit(msgCtx, s, msg, correlationID, summary, &ssOut, &rgOut, &mdOut)
	summary.TotalProcessed++
}

func (o *Orchestrator) markInbound(ctx context.Context, messageID string) (wasNew bool, err error) {
	timer := metrics.StartTimer("dedupe")
	dedupeCtx, cancel := context.WithTimeout(ctx, DedupeIOTimeout)
	defer cancel()

	wasNew, err = o.dedupeStore.MarkIfNew(dedupeCtx, dedupe.InboundKey(messageID), o.cfg.DedupeTTL())
	if err != nil {
		timer.Stop("error")
		return false, fmt.Errorf("orchestrator: inbound dedupe: %w", err)
	}
	timer.Stop("ok")
	metrics.DedupeDecisions.WithLabelValues("inbound", dedupeResultLabel(wasNew)).Inc()
	return wasNew, nil
}

func (o *Orchestrator) enqueueOutbound(ctx context.Context, msg webhookmsg.NormalizedMessage, text, correlationID string) {
	job := outbound.Job{
		To:             msg.FromNumber,
		MessageType:    outbound.MessageTypeText,
		Text:           text,
		CorrelationID:  correlationID,
		InboundEventID: msg.MessageID,
	}

	hash, err := outbound.Hash(job)
	if err != nil {
		slog.Error("outbound_hash_failed", "correlation_id", correlationID, "error", err)
		return
	}
	job.IdempotencyKey = hash

	outTimer := metrics.StartTimer("outbound_dedupe")
	outCtx, cancel := context.WithTimeout(ctx, DedupeIOTimeout)
	wasNew, err := o.dedupeStore.MarkIfNew(outCtx, dedupe.OutboundKey(hash), o.cfg.DedupeTTL())
	cancel()
	if err != nil {
		outTimer.Stop("error")
		slog.Error("outbound_dedupe_failed", "correlation_id", correlationID, "error", err)
		return
	}
	outTimer.Stop("ok")
	metrics.DedupeDecisions.WithLabelValues("outbound", dedupeResultLabel(wasNew)).Inc()
	if !wasNew {
		return
	}

	// FireAndForget's own goroutine must outlive msgCtx, which is canceled
	// the moment processOne returns.
	outbound.FireAndForget(context.WithoutCancel(ctx), o.outboundEnqueuer, job)
}

// persistAndAudit runs step m (persist, retrying a lost compare-and-swap
// race up to maxSessionPersistAttempts) and step n (best-effort decision
// and user audit logging). ssOut/rgOut/mdOut are nil when a guard rejected
// the message before the advisors ever ran.
func (o *Orchestrator) persistAndAudit(
	ctx context.Context,
	s *session.Session,
	msg webhookmsg.NormalizedMessage,
	correlationID string,
	summary *webhookmsg.WebhookProcessingSummary,
	ssOut *advisors.StateSelectorOutput,
	rgOut *advisors.ResponseGeneratorOutput,
	mdOut *advisors.MasterDecisionOutput,
) {
	persistTimer := metrics.StartTimer("session_persist")
	method := persistMethod(s)
	var persistErr error

	for attempt := 1; attempt <= maxSessionPersistAttempts; attempt++ {
		persistCtx, cancel := context.WithTimeout(ctx, SessionIOTimeout)
		persistErr = o.sessionMgr.Persist(persistCtx, s, o.cfg.SessionTTL())
		cancel()

		if persistErr == nil {
			break
		}
		if !errors.Is(persistErr, session.ErrConflict) {
			break
		}

		slog.Warn("session_persist_conflict_retry", "session_id", s.ID, "attempt", attempt, "correlation_id", correlationID)
		reloaded, reloadErr := o.sessionMgr.GetOrCreate(ctx, msg)
		if reloadErr == nil {
			s.Version = reloaded.Version
		}
	}

	switch {
	case persistErr == nil:
		metrics.SessionPersistResults.WithLabelValues(method, "ok").Inc()
		persistTimer.Stop("ok")
	case errors.Is(persistErr, session.ErrConflict):
		metrics.SessionPersistResults.WithLabelValues(method, "conflict").Inc()
		persistTimer.Stop("error")
		slog.Error("session_persist_conflict_exhausted", "session_id", s.ID, "correlation_id", correlationID, "attempts", maxSessionPersistAttempts)
		summary.Errors = append(summary.Errors, "session_conflict")
	default:
		metrics.SessionPersistResults.WithLabelValues(method, "error").Inc()
		persistTimer.Stop("error")
		slog.Error("session_persist_failed", "session_id", s.ID, "correlation_id", correlationID, "error", persistErr)
		summary.Errors = append(summary.Errors, "session_persist_error")
	}

	o.recordDecisionAudit(ctx, s, correlationID, ssOut, rgOut, mdOut)
	o.recordUserAudit(ctx, s, correlationID, summary)
}

func (o *Orchestrator) recordDecisionAudit(ctx context.Context, s *session.Session, correlationID string, ssOut *advisors.StateSelectorOutput, rgOut *advisors.ResponseGeneratorOutput, mdOut *advisors.MasterDecisionOutput) {
	if o.decisionAudit == nil {
		return
	}

	record := audit.DecisionAuditRecord{
		CorrelationID: correlationID,
		SessionID:     s.ID,
		FinalState:    string(s.CurrentState),
		CreatedAt:     time.Now().UTC(),
	}
	if ssOut != nil {
		record.StateSelectorOutput = *ssOut
	}
	if rgOut != nil {
		record.ResponseGeneratorOut = *rgOut
	}
	if mdOut != nil {
		record.MasterDecisionOutput = *mdOut
		record.ApplyState = mdOut.ApplyState
		record.SelectedResponseIndex = mdOut.SelectedResponseIndex
		record.MessageKind = string(mdOut.MessageKind)
		record.OverallConfidence = mdOut.OverallConfidence
		record.Reason = mdOut.Reason
	}

	auditTimer := metrics.StartTimer("decision_audit")
	auditCtx, cancel := context.WithTimeout(ctx, AuditIOTimeout)
	audit.RecordDecision(auditCtx, o.decisionAudit, record)
	cancel()
	auditTimer.Stop("ok")
}

func (o *Orchestrator) recordUserAudit(ctx context.Context, s *session.Session, correlationID string, summary *webhookmsg.WebhookProcessingSummary) {
	if o.auditRecorder == nil {
		return
	}

	auditTimer := metrics.StartTimer("user_audit")
	auditCtx, cancel := context.WithTimeout(ctx, AuditIOTimeout)
	_, err := o.auditRecorder.Record(auditCtx, audit.RecordInput{
		UserKey:       userkey.Derive(s.SenderPhone, o.cfg.UserKeyPepper),
		Actor:         audit.ActorSystem,
		Action:        audit.ActionUserContact,
		Reason:        "inbound_message_processed",
		CorrelationID: correlationID,
	}, time.Now().UTC())
	cancel()

	if err == nil {
		auditTimer.Stop("ok")
		return
	}
	auditTimer.Stop("error")

	var chainErr *audit.AuditChainError
	if errors.As(err, &chainErr) {
		metrics.AuditChainRetries.WithLabelValues("exhausted").Inc()
		slog.Error("audit_chain_exhausted", "user_key", chainErr.UserKey, "attempts", chainErr.Attempts, "correlation_id", correlationID, "error", chainErr.Err)
		summary.Errors = append(summary.Errors, "audit_chain_error")
		o.ops.NotifyAuditChainExhausted(ctx, chainErr.UserKey, chainErr.Attempts, chainErr.Err)
		return
	}
	slog.Error("user_audit_record_failed", "session_id", s.ID, "correlation_id", correlationID, "error", err)
	summary.Errors = append(summary.Errors, "audit_error")
}

// applyTerminalOutcome moves s straight to a terminal FSM state with the
// given outcome tag, bypassing Dispatch: guard rejections are decided
// outside the normal event alphabet (spec §4.6).
func (o *Orchestrator) applyTerminalOutcome(s *session.Session, outcome session.Outcome, state fsm.State) {
	s.CurrentState = state
	oc := outcome
	s.Outcome = &oc
}

// guardTerminalState maps a guard rejection reason onto the FSM state the
// session lands in: flood and spam both read as abuse (SPAM), while
// exceeding intent capacity reads as a legitimate request deferred to a
// human follow-up (COMPLETED/SCHEDULED_FOLLOWUP).
func guardTerminalState(reason string) fsm.State {
	if reason == "intent_capacity" {
		return fsm.Completed
	}
	return fsm.Spam
}

// applyMasterDecision drives s through the SelectingMessageType exit
// transition the master decider's final state implies (spec §4.7/§4.10). A
// rejected or non-applying decision leaves the session's current state
// untouched, so the next inbound message re-enters the same point in the
// conversation.
func (o *Orchestrator) applyMasterDecision(s *session.Session, mdOut advisors.MasterDecisionOutput, correlationID string) {
	if !mdOut.ApplyState {
		return
	}

	event, outcome, ok := terminalEventFor(mdOut.FinalState)
	if !ok {
		return
	}
	o.dispatch(s, event, correlationID)
	if outcome != "" {
		oc := outcome
		s.Outcome = &oc
	}
}

// terminalEventFor maps an LLM-facing final state onto the fsm.Event that
// drives the SelectingMessageType exit transition, plus the session outcome
// tag (empty for the non-terminal AwaitingUser path). ROUTE_EXTERNAL and
// SCHEDULED_FOLLOWUP share ExternalRouteReady since both land on the same
// internal Completed state; Session.Outcome is what tells them apart.
func terminalEventFor(finalState fsm.LLMState) (fsm.Event, session.Outcome, bool) {
	switch finalState {
	case fsm.LLMAwaitingUser, fsm.LLMInit:
		return fsm.MessageTypeSelected, "", true
	case fsm.LLMHandoffHuman:
		return fsm.HumanHandoffReady, session.OutcomeHandoffHuman, true
	case fsm.LLMSelfServeInfo:
		return fsm.SelfServeComplete, session.OutcomeSelfServeInfo, true
	case fsm.LLMRouteExternal:
		return fsm.ExternalRouteReady, session.OutcomeRouteExternal, true
	case fsm.LLMScheduledFollow:
		return fsm.ExternalRouteReady, session.OutcomeScheduledFollow, true
	}
	return "", "", false
}

// dispatch advances s.CurrentState through the fsm transition table. A
// rejected transition (e.g. a stale persisted state that doesn't line up
// with the event) is logged and leaves the session's state untouched rather
// than failing the message.
func (o *Orchestrator) dispatch(s *session.Session, event fsm.Event, correlationID string) {
	result := fsm.Dispatch(s.CurrentState, event)
	if !result.Valid {
		slog.Warn("fsm_dispatch_no_transition", "correlation_id", correlationID, "session_id", s.ID, "state", s.CurrentState, "event", event)
		return
	}
	s.CurrentState = result.NextState
}

// inboundEventFor classifies a normalized message onto the fsm's inbound
// event alphabet, so Dispatch sees the same USER_SENT_* / USER_SELECTED_*
// distinction the advisors would have inferred from msg.Kind anyway.
func inboundEventFor(msg webhookmsg.NormalizedMessage) fsm.Event {
	switch msg.Kind {
	case webhookmsg.KindText:
		return fsm.UserSentText
	case webhookmsg.KindInteractive:
		if msg.InteractiveListID != "" {
			return fsm.UserSelectedList
		}
		return fsm.UserSelectedButton
	default:
		return fsm.UserSentMedia
	}
}

// resolveSessionID mirrors session.Manager.GetOrCreate's own id
// resolution, so the per-session lock is taken on the same key the manager
// will load or create. When neither a chat-id nor a sender number is
// present (degenerate payload), the message-id stands in: there is no real
// session to race on in that case.
func resolveSessionID(msg webhookmsg.NormalizedMessage) string {
	if msg.ChatID != "" {
		return msg.ChatID
	}
	if msg.FromNumber != "" {
		return msg.FromNumber
	}
	return msg.MessageID
}

// historySummaries extracts the non-empty summary strings already carried
// by a session's history entries. History deliberately stores no raw
// message content (session.HistoryEntry), so this is typically short.
func historySummaries(s *session.Session) []string {
	out := make([]string, 0, len(s.History))
	for _, h := range s.History {
		if h.Summary != "" {
			out = append(out, h.Summary)
		}
	}
	return out
}

// openIntents flattens a session's queued intents into plain strings for
// the state selector's open_items input.
func openIntents(s *session.Session) []string {
	var out []string
	if s.IntentQueue.Active != nil {
		out = append(out, s.IntentQueue.Active.Intent)
	}
	for _, q := range s.IntentQueue.Queued {
		out = append(out, q.Intent)
	}
	return out
}

func persistMethod(s *session.Session) string {
	if s.Version == 0 {
		return "save"
	}
	return "compare_and_swap"
}

func dedupeResultLabel(wasNew bool) string {
	if wasNew {
		return "new"
	}
	return "duplicate"
}

// failsOpenOnDedupeError reports whether a dedupe I/O error should be
// logged and the pipeline allowed to proceed, rather than failed closed
// (spec §7: DedupeError is fail-open in development/test, fail-closed
// everywhere else).
func (o *Orchestrator) failsOpenOnDedupeError() bool {
	env := o.cfg.Environment
	return env == "development" || env == "test" || env == ""
}
