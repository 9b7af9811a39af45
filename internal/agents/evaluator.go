// Package agents implements the deliberation participants: the academic and
// financial evaluators, the critical reviewer and the decision agent.
package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/Harshitk-cp/loancouncil/internal/decision"
	"github.com/Harshitk-cp/loancouncil/internal/domain"
	"github.com/Harshitk-cp/loancouncil/internal/features"
	"github.com/Harshitk-cp/loancouncil/internal/llm"
	"go.uber.org/zap"
)

// Persona configures an Evaluator for one side of the debate.
type Persona struct {
	ID              domain.AgentID
	ApplicationType domain.MessageType
	DecisionType    domain.MessageType
	RepredictType   domain.MessageType
	DefaultDecision domain.Decision
	DefaultReason   string
	// Role describes the evaluator to itself in repredict prompts.
	Role   string
	Prompt func(profile string) string
	// Owns lists the features this evaluator may claim values for.
	Owns []domain.Feature
}

func AcademicPersona() Persona {
	return Persona{
		ID:              domain.AgentAcademic,
		ApplicationType: domain.MsgScholarshipApplication,
		DecisionType:    domain.MsgScholarshipDecision,
		RepredictType:   domain.MsgRepredictScholarship,
		DefaultDecision: domain.DecisionApprove,
		DefaultReason:   "Đánh giá lạc quan về tiềm năng sinh viên",
		Role:            "chuyên gia đánh giá học thuật",
		Prompt:          llm.AcademicPrompt,
		Owns:            ownedBy(domain.AgentAcademic),
	}
}

func FinancePersona() Persona {
	return Persona{
		ID:              domain.AgentFinance,
		ApplicationType: domain.MsgLoanApplication,
		DecisionType:    domain.MsgLoanDecision,
		RepredictType:   domain.MsgRepredictLoan,
		DefaultDecision: domain.DecisionReject,
		DefaultReason:   "Đánh giá thận trọng do chưa đủ cơ sở về khả năng trả nợ",
		Role:            "chuyên gia thẩm định tín dụng",
		Prompt:          llm.FinancePrompt,
		Owns:            ownedBy(domain.AgentFinance),
	}
}

func ownedBy(id domain.AgentID) []domain.Feature {
	var out []domain.Feature
	for _, f := range domain.AllFeatures {
		if decision.FeatureOwner(f) == id {
			out = append(out, f)
		}
	}
	return out
}

// Evaluator answers application and repredict messages with an Opinion.
// It always replies, falling back to the persona default.
type Evaluator struct {
	persona   Persona
	client    domain.CompletionClient
	extractor *features.Extractor
	maxTokens int
	logger    *zap.Logger
}

// repredictMaxTokens caps the reconsideration reply.
const repredictMaxTokens = 400

// NewEvaluator builds an evaluator. extractor may be nil, in which case
// initial opinions carry only the features the model states explicitly.
func NewEvaluator(persona Persona, client domain.CompletionClient, extractor *features.Extractor, maxTokens int, logger *zap.Logger) *Evaluator {
	return &Evaluator{
		persona:   persona,
		client:    client,
		extractor: extractor,
		maxTokens: maxTokens,
		logger:    logger.With(zap.String("agent", string(persona.ID))),
	}
}

func (e *Evaluator) ID() domain.AgentID {
	return e.persona.ID
}

func (e *Evaluator) HandleMessage(ctx context.Context, msg domain.Message) *domain.Message {
	switch msg.Type {
	case e.persona.ApplicationType:
		op := e.evaluate(ctx, msg.Payload.String("profile"))
		return msg.Reply(e.persona.DecisionType, op.Payload())
	case e.persona.RepredictType:
		op := e.repredict(ctx, msg.Payload)
		return msg.Reply(e.persona.RepredictType, op.Payload())
	default:
		e.logger.Warn("unsupported message", zap.String("type", string(msg.Type)))
		return msg.Unsupported(fmt.Sprintf("message type %q is not supported by %s", msg.Type, e.persona.ID))
	}
}

func (e *Evaluator) evaluate(ctx context.Context, profile string) domain.Opinion {
	if strings.TrimSpace(profile) == "" {
		return e.defaultOpinion("", "profile not provided")
	}

	op := e.ask(ctx, e.persona.Prompt(profile), e.maxTokens)
	claimed := op.Features
	op.Features = make(map[domain.Feature]bool, len(e.persona.Owns))
	var extracted domain.FeatureSet
	if e.extractor != nil {
		extracted = e.extractor.Extract(profile)
	}
	for _, f := range e.persona.Owns {
		if v, ok := claimed[f]; ok {
			op.Features[f] = v
		} else if e.extractor != nil {
			op.Features[f] = extracted.Get(f)
		}
	}
	if len(op.Features) == 0 {
		op.Features = nil
	}
	return op
}

func (e *Evaluator) repredict(ctx context.Context, p domain.Payload) domain.Opinion {
	critique := p.String("critical_response")
	recommended := p.String("recommended_decision")
	memory := p.String("memory")
	if strings.TrimSpace(memory) == "" {
		memory = p.String("profile")
	}

	op := e.ask(ctx, llm.RepredictPrompt(e.persona.Role, memory, critique, recommended), min(e.maxTokens, repredictMaxTokens))
	op.Features = e.owned(op.Features)
	return op
}

// ask calls the completion service and parses the reply, degrading to the
// persona default on any failure.
func (e *Evaluator) ask(ctx context.Context, prompt string, maxTokens int) domain.Opinion {
	raw, err := e.client.Complete(ctx, domain.CompletionRequest{Prompt: prompt, MaxTokens: maxTokens})
	if err != nil {
		e.logger.Warn("completion failed, using default opinion", zap.Error(err))
		return e.defaultOpinion("", err.Error())
	}

	parsed, ok := parseOpinion(raw)
	if !ok {
		e.logger.Warn("unparseable completion, using default opinion", zap.Int("raw_len", len(raw)))
		return e.defaultOpinion(raw, "")
	}
	reason := parsed.reason
	if reason == "" {
		reason = e.persona.DefaultReason
	}
	e.logger.Debug("opinion parsed",
		zap.String("decision", string(parsed.decision)),
		zap.String("parse_source", string(parsed.source)),
	)
	return domain.Opinion{
		Decision:    parsed.decision,
		Reason:      reason,
		RawResponse: raw,
		ParseSource: parsed.source,
		Features:    parsed.features,
	}
}

func (e *Evaluator) defaultOpinion(raw, errMsg string) domain.Opinion {
	return domain.Opinion{
		Decision:    e.persona.DefaultDecision,
		Reason:      e.persona.DefaultReason,
		RawResponse: raw,
		ParseSource: domain.ParseDefault,
		Error:       errMsg,
	}
}

// owned drops feature claims outside the persona's remit.
func (e *Evaluator) owned(claimed map[domain.Feature]bool) map[domain.Feature]bool {
	var out map[domain.Feature]bool
	for _, f := range e.persona.Owns {
		if v, ok := claimed[f]; ok {
			if out == nil {
				out = make(map[domain.Feature]bool)
			}
			out[f] = v
		}
	}
	return out
}
