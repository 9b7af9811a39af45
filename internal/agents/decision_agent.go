package agents

import (
	"context"
	"errors"

	"github.com/Harshitk-cp/loancouncil/internal/decision"
	"github.com/Harshitk-cp/loancouncil/internal/domain"
	"go.uber.org/zap"
)

// DecisionAgent exposes a session's Aggregator on the router. Stage
// messages are observed silently; aggregate_all is answered with the record.
type DecisionAgent struct {
	aggregator *decision.Aggregator
	logger     *zap.Logger
}

func NewDecisionAgent(aggregator *decision.Aggregator, logger *zap.Logger) *DecisionAgent {
	return &DecisionAgent{
		aggregator: aggregator,
		logger:     logger.With(zap.String("agent", string(domain.AgentDecision))),
	}
}

func (a *DecisionAgent) ID() domain.AgentID {
	return domain.AgentDecision
}

func (a *DecisionAgent) HandleMessage(_ context.Context, msg domain.Message) *domain.Message {
	if msg.Type == domain.MsgAggregateAll {
		rec, err := a.aggregator.Aggregate(msg.Payload)
		if err != nil {
			a.logger.Warn("aggregate rejected", zap.Error(err))
			return msg.Unsupported(err.Error())
		}
		a.logger.Info("decision finalized",
			zap.String("decision", string(rec.Decision)),
			zap.Int("passed_count", rec.PassedCount),
			zap.Int("special_violations", rec.SpecialViolations),
		)
		return msg.Reply(domain.MsgFinalDecision, rec.Payload())
	}

	err := a.aggregator.Observe(msg)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, decision.ErrSessionFinalized):
		a.logger.Warn("message after finalization", zap.String("type", string(msg.Type)))
		return msg.Unsupported(err.Error())
	default:
		a.logger.Warn("unsupported message", zap.String("type", string(msg.Type)))
		return msg.Unsupported(err.Error())
	}
}
