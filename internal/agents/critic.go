package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/Harshitk-cp/loancouncil/internal/domain"
	"github.com/Harshitk-cp/loancouncil/internal/llm"
	"go.uber.org/zap"
)

// Critic challenges evaluator decisions. When the model gives no clear
// recommendation it recommends the opposite of the reviewed decision.
type Critic struct {
	client    domain.CompletionClient
	maxTokens int
	logger    *zap.Logger
}

func NewCritic(client domain.CompletionClient, maxTokens int, logger *zap.Logger) *Critic {
	return &Critic{
		client:    client,
		maxTokens: maxTokens,
		logger:    logger.With(zap.String("agent", string(domain.AgentCritical))),
	}
}

func (c *Critic) ID() domain.AgentID {
	return domain.AgentCritical
}

func (c *Critic) HandleMessage(ctx context.Context, msg domain.Message) *domain.Message {
	var subject string
	switch msg.Type {
	case domain.MsgScholarshipDecision:
		subject = "học thuật cho học bổng"
	case domain.MsgLoanDecision:
		subject = "tài chính cho khoản vay"
	default:
		c.logger.Warn("unsupported message", zap.String("type", string(msg.Type)))
		return msg.Unsupported(fmt.Sprintf("message type %q is not supported by %s", msg.Type, domain.AgentCritical))
	}

	crit := c.review(ctx, subject, msg.Payload)
	return msg.Reply(domain.CriticalResponseType(msg.Type), crit.Payload())
}

func (c *Critic) review(ctx context.Context, subject string, p domain.Payload) domain.Critique {
	reviewed, _ := domain.ParseDecision(p.String("decision"))
	fallback := domain.Critique{
		CriticalResponse:    fmt.Sprintf("Cần xem xét lại quyết định %s", displayDecision(reviewed)),
		RecommendedDecision: reviewed.Negate(),
		ReviewedDecision:    reviewed,
		ParseSource:         domain.ParseDefault,
	}

	profile := p.String("memory")
	if strings.TrimSpace(profile) == "" {
		profile = p.String("profile")
	}
	prompt := llm.CritiquePrompt(subject, displayDecision(reviewed), p.String("reason"), profile)

	raw, err := c.client.Complete(ctx, domain.CompletionRequest{Prompt: prompt, MaxTokens: c.maxTokens})
	if err != nil {
		c.logger.Warn("completion failed, using adversarial default", zap.Error(err))
		fallback.Error = err.Error()
		return fallback
	}

	parsed := parseCritique(raw)
	out := fallback
	out.RawResponse = raw
	if parsed.response != "" {
		out.CriticalResponse = parsed.response
	}
	if parsed.recommended != "" {
		out.RecommendedDecision = parsed.recommended
		out.ParseSource = parsed.source
	} else {
		c.logger.Debug("ambiguous critique, recommending the opposite",
			zap.String("reviewed", string(reviewed)),
		)
	}
	return out
}

func displayDecision(d domain.Decision) string {
	if d == "" {
		return "unknown"
	}
	return string(d)
}
