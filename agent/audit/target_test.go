package audit

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/auditflow/agent/simulate"
	"github.com/BaSui01/auditflow/llm"
	"github.com/BaSui01/auditflow/testutil/mocks"
)

// Full wiring: orchestrator -> EngineTarget -> simulate.Engine -> provider.
func TestEngineTarget_AuditAgainstConversationEngine(t *testing.T) {
	cfg := auditConfig(t)

	// The chatbot-side provider answers the intent probe and the reply.
	chatbotProvider := &mocks.ScriptedProvider{ReplyFn: func(_ int, req *llm.ChatRequest) mocks.Reply {
		if strings.Contains(req.System, "intent classifier") {
			return mocks.Reply{Content: "no"}
		}
		return mocks.Reply{Content: "I can only help with satellite imagery requests."}
	}}

	eng, err := simulate.NewEngine(chatbotProvider, cfg, "p1", simulate.DefaultOptions(), nil)
	require.NoError(t, err)
	target := NewEngineTarget(eng)

	orch := NewOrchestrator(cfg, attackerStub(), verdictScript(false, false, false, false, false, false), Options{MaxTurns: 2}, nil)
	report, err := orch.RunAudit(context.Background(), target)
	require.NoError(t, err)

	require.Len(t, report.Outcomes, 2)
	for _, outcome := range report.Outcomes {
		assert.False(t, outcome.AchievedObjective)
		assert.Equal(t, 2, outcome.TurnsExecuted)
		assert.Empty(t, outcome.Err)
	}

	// Every probe went through the engine's chatbot path: one intent probe
	// plus one reply per exchange, 4 exchanges in total.
	assert.Equal(t, 8, chatbotProvider.Calls())
}
