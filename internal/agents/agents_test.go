package agents

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Harshitk-cp/loancouncil/internal/decision"
	"github.com/Harshitk-cp/loancouncil/internal/domain"
	"github.com/Harshitk-cp/loancouncil/internal/features"
	"github.com/Harshitk-cp/loancouncil/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockCompletionClient mocks the CompletionClient interface.
type MockCompletionClient struct {
	mock.Mock
}

func (m *MockCompletionClient) Complete(ctx context.Context, req domain.CompletionRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

const testProfile = "GPA: 0.85, trường tier 1, ngành STEM. Thu nhập 8,000,000 VND/tháng. " +
	"Số tiền vay 45,000,000 VND. Người bảo lãnh: Không có."

func application(t domain.MessageType, profile string) domain.Message {
	return domain.Message{
		Sender:    domain.Coordinator,
		Recipient: domain.AgentAcademic,
		Type:      t,
		Payload:   domain.Payload{"profile": profile},
	}
}

func newExtractor() *features.Extractor {
	return features.NewExtractor(domain.DefaultPolicy())
}

func TestEvaluator_ParsesAndReplies(t *testing.T) {
	client := new(MockCompletionClient)
	client.On("Complete", mock.Anything, mock.MatchedBy(func(req domain.CompletionRequest) bool {
		return strings.Contains(req.Prompt, testProfile) && req.MaxTokens == 512
	})).Return("QUYẾT ĐỊNH: REJECT\nLÝ DO: GPA thấp", nil).Once()

	e := NewEvaluator(AcademicPersona(), client, nil, 512, zap.NewNop())
	reply := e.HandleMessage(context.Background(), application(domain.MsgScholarshipApplication, testProfile))

	require.NotNil(t, reply)
	assert.Equal(t, domain.MsgScholarshipDecision, reply.Type)
	assert.Equal(t, domain.Coordinator, reply.Recipient)
	assert.Equal(t, domain.AgentAcademic, reply.Sender)

	op := domain.OpinionFromPayload(reply.Payload)
	assert.Equal(t, domain.DecisionReject, op.Decision)
	assert.Equal(t, "GPA thấp", op.Reason)
	assert.Equal(t, domain.ParseLabeled, op.ParseSource)
	assert.Empty(t, op.Features, "no extractor and no claims")
	client.AssertExpectations(t)
}

func TestEvaluator_PersonaDefaults(t *testing.T) {
	tests := []struct {
		name    string
		persona Persona
		msgType domain.MessageType
		want    domain.Decision
	}{
		{"academic is optimistic", AcademicPersona(), domain.MsgScholarshipApplication, domain.DecisionApprove},
		{"finance is cautious", FinancePersona(), domain.MsgLoanApplication, domain.DecisionReject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outage := new(MockCompletionClient)
			outage.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("service unavailable"))
			reply := NewEvaluator(tt.persona, outage, nil, 0, zap.NewNop()).
				HandleMessage(context.Background(), application(tt.msgType, testProfile))
			require.NotNil(t, reply)
			op := domain.OpinionFromPayload(reply.Payload)
			assert.Equal(t, tt.want, op.Decision)
			assert.Equal(t, domain.ParseDefault, op.ParseSource)
			assert.Contains(t, op.Error, "service unavailable")

			garbled := llm.NewMockClient()
			garbled.Response = "..."
			reply = NewEvaluator(tt.persona, garbled, nil, 0, zap.NewNop()).
				HandleMessage(context.Background(), application(tt.msgType, testProfile))
			op = domain.OpinionFromPayload(reply.Payload)
			assert.Equal(t, tt.want, op.Decision)
			assert.Equal(t, tt.persona.DefaultReason, op.Reason)
			assert.Equal(t, "...", op.RawResponse)
		})
	}
}

func TestEvaluator_EmptyProfileSkipsCompletion(t *testing.T) {
	client := llm.NewMockClient()
	e := NewEvaluator(FinancePersona(), client, newExtractor(), 0, zap.NewNop())

	reply := e.HandleMessage(context.Background(), application(domain.MsgLoanApplication, "  "))
	require.NotNil(t, reply)
	assert.Equal(t, domain.MsgLoanDecision, reply.Type)
	op := domain.OpinionFromPayload(reply.Payload)
	assert.Equal(t, domain.DecisionReject, op.Decision)
	assert.NotEmpty(t, op.Error)
	assert.Equal(t, 0, client.CallCount())
}

func TestEvaluator_AttachesOwnedFeatures(t *testing.T) {
	client := llm.NewMockClient()
	client.Response = `{"decision":"approve","reason":"ok","no_existing_debt":false,"academic_performance":false}`
	e := NewEvaluator(FinancePersona(), client, newExtractor(), 0, zap.NewNop())

	reply := e.HandleMessage(context.Background(), application(domain.MsgLoanApplication, testProfile))
	fs := domain.FeaturesFromPayload(reply.Payload)

	assert.Len(t, fs, 4, "finance owns F1, F5, F6, F7")
	assert.False(t, fs[domain.FeatureNoDebt], "model claim wins over extraction")
	assert.False(t, fs[domain.FeatureGuarantor], "extracted: no guarantor")
	assert.True(t, fs[domain.FeatureIncome])
	assert.True(t, fs[domain.FeatureLoanSize])
	_, claimed := fs[domain.FeatureAcademic]
	assert.False(t, claimed, "academic performance is not finance's to claim")
}

func TestEvaluator_Repredict(t *testing.T) {
	client := llm.NewMockClient()
	client.Response = `{"decision":"reject","reason":"đồng ý với phản biện","feature_2_hoc_luc":false}`
	e := NewEvaluator(AcademicPersona(), client, newExtractor(), 400, zap.NewNop())

	reply := e.HandleMessage(context.Background(), domain.Message{
		Sender:    domain.Coordinator,
		Recipient: domain.AgentAcademic,
		Type:      domain.MsgRepredictScholarship,
		Payload: domain.Payload{
			"memory":               "AcademicAgent -> coordinator [scholarship_decision]: decision=approve",
			"critical_response":    "GPA chưa đạt ngưỡng",
			"recommended_decision": "reject",
		},
	})
	require.NotNil(t, reply)
	assert.Equal(t, domain.MsgRepredictScholarship, reply.Type)

	op := domain.OpinionFromPayload(reply.Payload)
	assert.Equal(t, domain.DecisionReject, op.Decision)
	assert.Equal(t, map[domain.Feature]bool{domain.FeatureAcademic: false}, op.Features)

	require.Len(t, client.Calls, 1)
	assert.Contains(t, client.Calls[0].Prompt, "GPA chưa đạt ngưỡng")
	assert.Contains(t, client.Calls[0].Prompt, "decision=approve")
	assert.Equal(t, 400, client.Calls[0].MaxTokens)
}

func TestEvaluator_UnsupportedMessage(t *testing.T) {
	e := NewEvaluator(AcademicPersona(), llm.NewMockClient(), nil, 0, zap.NewNop())
	reply := e.HandleMessage(context.Background(), application(domain.MsgLoanApplication, testProfile))
	require.NotNil(t, reply)
	assert.Equal(t, domain.MsgUnsupported, reply.Type)
	assert.Equal(t, string(domain.MsgLoanApplication), reply.Payload.String("original_type"))
	assert.NotEmpty(t, reply.Payload.String("error"))
}

func decisionMsg(t domain.MessageType, d domain.Decision) domain.Message {
	return domain.Message{
		Sender:    domain.Coordinator,
		Recipient: domain.AgentCritical,
		Type:      t,
		Payload:   domain.Payload{"decision": string(d), "reason": "lý do", "memory": testProfile},
	}
}

func TestCritic_AdversarialDefault(t *testing.T) {
	tests := []struct {
		name     string
		response string
		err      error
		reviewed domain.Decision
		want     domain.Decision
	}{
		{"ambiguous text flips approve", "Cần cân nhắc thêm.", nil, domain.DecisionApprove, domain.DecisionReject},
		{"ambiguous text flips reject", "approve hay reject đều có lý", nil, domain.DecisionReject, domain.DecisionApprove},
		{"outage flips", "", errors.New("timeout"), domain.DecisionApprove, domain.DecisionReject},
		{"explicit agreement kept", "PHẢN BIỆN: hợp lý\nKHUYẾN NGHỊ: APPROVE", nil, domain.DecisionApprove, domain.DecisionApprove},
		{"explicit reject kept despite keywords", "CRITIQUE: Không nên approve vì rủi ro nợ cao.\nRECOMMENDATION: REJECT", nil, domain.DecisionReject, domain.DecisionReject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := new(MockCompletionClient)
			client.On("Complete", mock.Anything, mock.Anything).Return(tt.response, tt.err)

			reply := NewCritic(client, 512, zap.NewNop()).
				HandleMessage(context.Background(), decisionMsg(domain.MsgLoanDecision, tt.reviewed))
			require.NotNil(t, reply)
			assert.Equal(t, domain.CriticalResponseType(domain.MsgLoanDecision), reply.Type)

			crit := domain.CritiqueFromPayload(reply.Payload)
			assert.Equal(t, tt.want, crit.RecommendedDecision)
			assert.Equal(t, tt.reviewed, crit.ReviewedDecision)
			assert.NotEmpty(t, crit.CriticalResponse)
		})
	}
}

func TestCritic_PromptIsSourceAware(t *testing.T) {
	client := llm.NewMockClient()
	c := NewCritic(client, 0, zap.NewNop())

	c.HandleMessage(context.Background(), decisionMsg(domain.MsgScholarshipDecision, domain.DecisionApprove))
	c.HandleMessage(context.Background(), decisionMsg(domain.MsgLoanDecision, domain.DecisionApprove))

	require.Len(t, client.Calls, 2)
	assert.Contains(t, client.Calls[0].Prompt, "học bổng")
	assert.Contains(t, client.Calls[1].Prompt, "khoản vay")
	assert.Contains(t, client.Calls[1].Prompt, testProfile)
}

func TestCritic_Unsupported(t *testing.T) {
	reply := NewCritic(llm.NewMockClient(), 0, zap.NewNop()).
		HandleMessage(context.Background(), decisionMsg(domain.MsgRepredictLoan, domain.DecisionApprove))
	require.NotNil(t, reply)
	assert.Equal(t, domain.MsgUnsupported, reply.Type)
}

func TestDecisionAgent(t *testing.T) {
	agg := decision.NewAggregator(newExtractor())
	a := NewDecisionAgent(agg, zap.NewNop())
	ctx := context.Background()
	to := func(t domain.MessageType, p domain.Payload) domain.Message {
		return domain.Message{Sender: domain.Coordinator, Recipient: domain.AgentDecision, Type: t, Payload: p}
	}

	assert.Nil(t, a.HandleMessage(ctx, to(domain.MsgScholarshipDecision, domain.Payload{"decision": "approve"})))
	assert.Nil(t, a.HandleMessage(ctx, to(domain.CriticalResponseType(domain.MsgScholarshipDecision), nil)))
	assert.Equal(t, decision.CollectingRound2, agg.State())

	bad := a.HandleMessage(ctx, to(domain.MsgLoanApplication, nil))
	require.NotNil(t, bad)
	assert.Equal(t, domain.MsgUnsupported, bad.Type)

	final := a.HandleMessage(ctx, to(domain.MsgAggregateAll, domain.Payload{"original_profile": testProfile}))
	require.NotNil(t, final)
	assert.Equal(t, domain.MsgFinalDecision, final.Type)
	rec, ok := final.Payload["record"].(domain.DecisionRecord)
	require.True(t, ok)
	assert.Equal(t, 1, rec.SpecialViolations, "no guarantor")
	assert.Equal(t, domain.DecisionApprove, rec.Decision, "conditional approve at six passed")
	assert.True(t, rec.Conditional)

	again := a.HandleMessage(ctx, to(domain.MsgAggregateAll, domain.Payload{"original_profile": testProfile}))
	require.NotNil(t, again)
	assert.Equal(t, domain.MsgUnsupported, again.Type)

	late := a.HandleMessage(ctx, to(domain.MsgRepredictLoan, nil))
	require.NotNil(t, late)
	assert.Equal(t, domain.MsgUnsupported, late.Type)
}
