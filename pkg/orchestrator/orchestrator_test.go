package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ottohq/otto-gateway/internal/config"
	"github.com/ottohq/otto-gateway/pkg/advisors"
	"github.com/ottohq/otto-gateway/pkg/advisors/promptfiles"
	"github.com/ottohq/otto-gateway/pkg/audit"
	"github.com/ottohq/otto-gateway/pkg/dedupe"
	"github.com/ottohq/otto-gateway/pkg/guards"
	"github.com/ottohq/otto-gateway/pkg/outbound"
	"github.com/ottohq/otto-gateway/pkg/session"
)

// stubCompleter returns a fixed JSON response, or fails if configured to.
type stubCompleter struct {
	response string
	err      error
	calls    int
}

func (c *stubCompleter) Complete(_ context.Context, _ string, _ time.Duration) (string, error) {
	c.calls++
	if c.err != nil {
		return "", c.err
	}
	return c.response, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Environment:                      "test",
		WhatsAppVerifyToken:              "verify-tok",
		UserKeyPepper:                    "pepper",
		DedupeTTLSeconds:                 86400,
		SessionTTLSeconds:                7200,
		SessionMessageHistoryMaxEntries:  200,
		FloodThreshold:                   10,
		FloodTTLSeconds:                  60,
		StateSelectorThreshold:           0.7,
		MasterDeciderConfidenceThreshold: 0.7,
		ResponseGeneratorMinResponses:    3,
	}
}

type harness struct {
	orch      *Orchestrator
	dedupe    *dedupe.MemoryStore
	sessions  *session.MemoryStore
	enqueuer  *outbound.LoggingEnqueuer
	userAudit *audit.MemoryUserAuditStore
	decision  *audit.MemoryDecisionAuditStore
	ssCompl   *stubCompleter
	rgCompl   *stubCompleter
	mdCompl   *stubCompleter
}

func newHarness() *harness {
	dedupeStore := dedupe.NewMemoryStore()
	sessionStore := session.NewMemoryStore()
	sessionMgr := session.NewManager(sessionStore, 200)
	checker := guards.NewChecker(guards.NewInMemoryFloodDetector(10, 60*time.Second))
	enqueuer := outbound.NewLoggingEnqueuer()
	userAudit := audit.NewMemoryUserAuditStore()
	decisionAudit := audit.NewMemoryDecisionAuditStore()

	ssCompl := &stubCompleter{response: `{"selected_state":"AWAITING_USER","confidence":0.95,"status":"done"}`}
	rgCompl := &stubCompleter{response: `{"responses":["Claro, já te ajudo.","Pode confirmar um detalhe?","Vou seguir com isso."],"chosen_index":0}`}
	mdCompl := &stubCompleter{response: `{"final_state":"AWAITING_USER","apply_state":true,"selected_response_index":0,"message_type":"text","overall_confidence":0.9,"reason":"ok"}`}

	stateSelector := advisors.NewStateSelector(ssCompl, 0.7)
	responseGenerator := advisors.NewResponseGenerator(rgCompl)
	masterDecider := advisors.NewMasterDecider(mdCompl, 0.7)

	orch := New(
		testConfig(),
		dedupeStore,
		sessionMgr,
		checker,
		stateSelector,
		responseGenerator,
		masterDecider,
		enqueuer,
		audit.NewRecorder(userAudit),
		decisionAudit,
		nil,
		promptfiles.Content{},
	)

	return &harness{
		orch:      orch,
		dedupe:    dedupeStore,
		sessions:  sessionStore,
		enqueuer:  enqueuer,
		userAudit: userAudit,
		decision:  decisionAudit,
		ssCompl:   ssCompl,
		rgCompl:   rgCompl,
		mdCompl:   mdCompl,
	}
}

func buildEnvelope(messageID, from, text string) []byte {
	env := map[string]any{
		"object": "whatsapp_business_account",
		"entry": []map[string]any{
			{
				"id": "entry-1",
				"changes": []map[string]any{
					{
						"field": "messages",
						"value": map[string]any{
							"messaging_product": "whatsapp",
							"messages": []map[string]any{
								{
									"id":        messageID,
									"from":      from,
									"timestamp": fmt.Sprintf("%d", time.Now().Unix()),
									"type":      "text",
									"text":      map[string]string{"body": text},
								},
							},
						},
					},
				},
			},
		},
	}
	raw, _ := json.Marshal(env)
	return raw
}

func waitForOutboundJob(t *testing.T, enqueuer *outbound.LoggingEnqueuer) []outbound.Job {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if jobs := enqueuer.Jobs(); len(jobs) > 0 {
			return jobs
		}
		time.Sleep(5 * time.Millisecond)
	}
	return enqueuer.Jobs()
}

func TestProcessWebhook_HappyPath(t *testing.T) {
	h := newHarness()
	body := buildEnvelope("wamid.happy1", "5511999990000", "oi, preciso de ajuda")

	summary, err := h.orch.ProcessWebhook(context.Background(), body, map[string]string{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalReceived)
	assert.Equal(t, 1, summary.TotalProcessed)
	assert.Empty(t, summary.Errors)

	jobs := waitForOutboundJob(t, h.enqueuer)
	require.Len(t, jobs, 1)
	assert.Equal(t, "+5511999990000", jobs[0].To)
	assert.Contains(t, jobs[0].Text, "Claro, já te ajudo.")

	s, err := h.sessions.Load(context.Background(), "+5511999990000")
	require.NoError(t, err)
	assert.Equal(t, "AWAITING_USER", string(s.CurrentState))
}

func TestProcessWebhook_DuplicateDeliveryIsDeduped(t *testing.T) {
	h := newHarness()
	body := buildEnvelope("wamid.dup1", "5511999990001", "primeira mensagem")

	_, err := h.orch.ProcessWebhook(context.Background(), body, map[string]string{})
	require.NoError(t, err)
	waitForOutboundJob(t, h.enqueuer)

	summary, err := h.orch.ProcessWebhook(context.Background(), body, map[string]string{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalDeduped)
	assert.Equal(t, 0, summary.TotalProcessed, "a dedup'd retry must not count as processed")
	assert.Equal(t, 1, len(h.enqueuer.Jobs()), "duplicate delivery must not enqueue a second reply")
}

func TestProcessWebhook_InvalidSignatureRejected(t *testing.T) {
	h := newHarness()
	h.orch.cfg.WhatsAppWebhookSecret = "shared-secret"
	body := buildEnvelope("wamid.sig1", "5511999990002", "oi")

	_, err := h.orch.ProcessWebhook(context.Background(), body, map[string]string{})
	require.Error(t, err)

	var pipelineErr *PipelineError
	require.ErrorAs(t, err, &pipelineErr)
	assert.Equal(t, ErrCodeInvalidSignature, pipelineErr.Code)
	assert.Equal(t, http.StatusUnauthorized, pipelineErr.HTTPStatus)
}

func TestProcessWebhook_InvalidJSONRejected(t *testing.T) {
	h := newHarness()

	_, err := h.orch.ProcessWebhook(context.Background(), []byte("{not json"), map[string]string{})
	require.Error(t, err)

	var pipelineErr *PipelineError
	require.ErrorAs(t, err, &pipelineErr)
	assert.Equal(t, ErrCodeInvalidJSON, pipelineErr.Code)
	assert.Equal(t, http.StatusBadRequest, pipelineErr.HTTPStatus)
}

func TestProcessWebhook_BatchTooLargeRejected(t *testing.T) {
	h := newHarness()

	messages := make([]map[string]any, 0, MaxBatchMessages+1)
	for i := 0; i < MaxBatchMessages+1; i++ {
		messages = append(messages, map[string]any{
			"id":        fmt.Sprintf("wamid.batch%d", i),
			"from":      "5511999990003",
			"timestamp": fmt.Sprintf("%d", time.Now().Unix()),
			"type":      "text",
			"text":      map[string]string{"body": "oi"},
		})
	}
	env := map[string]any{
		"object": "whatsapp_business_account",
		"entry": []map[string]any{
			{"id": "entry-1", "changes": []map[string]any{
				{"field": "messages", "value": map[string]any{"messaging_product": "whatsapp", "messages": messages}},
			}},
		},
	}
	body, _ := json.Marshal(env)

	_, err := h.orch.ProcessWebhook(context.Background(), body, map[string]string{})
	require.Error(t, err)

	var pipelineErr *PipelineError
	require.ErrorAs(t, err, &pipelineErr)
	assert.Equal(t, ErrCodeBatchTooLarge, pipelineErr.Code)
	assert.Equal(t, http.StatusRequestEntityTooLarge, pipelineErr.HTTPStatus)
}

func TestProcessWebhook_ResponseGeneratorFailureFallsBackDeterministically(t *testing.T) {
	h := newHarness()
	h.rgCompl.err = assert.AnError

	body := buildEnvelope("wamid.fallback1", "5511999990004", "quero cancelar meu pedido")
	summary, err := h.orch.ProcessWebhook(context.Background(), body, map[string]string{})
	require.NoError(t, err)
	assert.Empty(t, summary.Errors)

	jobs := waitForOutboundJob(t, h.enqueuer)
	require.Len(t, jobs, 1)
	assert.NotEmpty(t, jobs[0].Text)
}

func TestProcessWebhook_FloodGuardRejectsAndSkipsAdvisors(t *testing.T) {
	h := newHarness()
	from := "5511999990005"

	for i := 0; i < 11; i++ {
		body := buildEnvelope(fmt.Sprintf("wamid.flood%d", i), from, "mensagem repetida")
		_, err := h.orch.ProcessWebhook(context.Background(), body, map[string]string{})
		require.NoError(t, err)
	}

	s, err := h.sessions.Load(context.Background(), "+"+from)
	require.NoError(t, err)
	assert.Equal(t, "SPAM", string(s.CurrentState))
	require.NotNil(t, s.Outcome)
	assert.Equal(t, session.OutcomeDuplicateOrSpam, *s.Outcome)
}

func TestProcessWebhook_DecisionAuditRecordedOnHappyPath(t *testing.T) {
	h := newHarness()
	body := buildEnvelope("wamid.audit1", "5511999990006", "oi, preciso de ajuda")

	_, err := h.orch.ProcessWebhook(context.Background(), body, map[string]string{})
	require.NoError(t, err)

	records := h.decision.Records()
	require.NotEmpty(t, records)
	assert.Equal(t, "AWAITING_USER", records[len(records)-1].FinalState)
}
