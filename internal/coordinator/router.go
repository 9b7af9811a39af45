// Package coordinator routes typed messages between the agents of one
// deliberation session and keeps the session transcript.
package coordinator

import (
	"context"
	"sync"

	"github.com/Harshitk-cp/loancouncil/internal/domain"
	"go.uber.org/zap"
)

var ErrInvalidMessage = domain.ErrInvalidMessage

// maxReplyHops bounds reply chains between registered agents.
const maxReplyHops = 4

// Agent is a routable participant. HandleMessage returns zero or one reply
// and must not call back into the router.
type Agent interface {
	ID() domain.AgentID
	HandleMessage(ctx context.Context, msg domain.Message) *domain.Message
}

// Router is a name-addressed registry scoped to a single session.
type Router struct {
	transcript *Transcript
	logger     *zap.Logger

	mu     sync.RWMutex
	agents map[domain.AgentID]Agent
	order  []domain.AgentID
}

func NewRouter(transcript *Transcript, logger *zap.Logger) *Router {
	if transcript == nil {
		transcript = NewTranscript()
	}
	return &Router{
		transcript: transcript,
		logger:     logger,
		agents:     make(map[domain.AgentID]Agent),
	}
}

func (r *Router) Transcript() *Transcript {
	return r.transcript
}

// Register binds an agent to its id. The first registration for an id wins.
func (r *Router) Register(a Agent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := a.ID()
	if _, exists := r.agents[id]; exists {
		r.logger.Debug("agent already registered", zap.String("agent", string(id)))
		return
	}
	r.agents[id] = a
	r.order = append(r.order, id)
	r.logger.Debug("agent registered", zap.String("agent", string(id)))
}

func (r *Router) lookup(id domain.AgentID) (Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[id]
	return a, ok
}

// Route transcribes msg and delivers it synchronously. A reply from the
// recipient is routed the same way and returned. Unknown recipients are
// logged and dropped. A malformed message is transcribed as rejected and
// returned as an error.
func (r *Router) Route(ctx context.Context, msg domain.Message) (*domain.Message, error) {
	return r.route(ctx, msg, 0)
}

func (r *Router) route(ctx context.Context, msg domain.Message, hops int) (*domain.Message, error) {
	if err := msg.Validate(); err != nil {
		seq := r.transcript.Append(msg, domain.DeliveryRejected)
		r.logger.Warn("rejecting malformed message", zap.Int("seq", seq), zap.Error(err))
		return nil, err
	}

	agent, known := r.lookup(msg.Recipient)
	delivery := domain.DeliveryDelivered
	switch {
	case msg.Recipient == domain.Coordinator:
		delivery = domain.DeliveryCoordinator
	case !known:
		delivery = domain.DeliveryDropped
	}
	seq := r.transcript.Append(msg, delivery)

	fields := []zap.Field{
		zap.Int("seq", seq),
		zap.String("from", string(msg.Sender)),
		zap.String("to", string(msg.Recipient)),
		zap.String("type", string(msg.Type)),
	}
	switch delivery {
	case domain.DeliveryCoordinator:
		r.logger.Debug("message recorded", fields...)
		return nil, nil
	case domain.DeliveryDropped:
		r.logger.Warn("dropping message for unknown recipient", fields...)
		return nil, nil
	}

	r.logger.Debug("delivering message", fields...)
	reply := agent.HandleMessage(ctx, msg)
	if reply == nil {
		return nil, nil
	}
	if reply.Sender == "" {
		reply.Sender = msg.Recipient
	}
	if hops >= maxReplyHops {
		r.transcript.Append(*reply, domain.DeliveryDropped)
		r.logger.Warn("reply chain too long, dropping", fields...)
		return reply, nil
	}
	if _, err := r.route(ctx, *reply, hops+1); err != nil {
		r.logger.Warn("invalid reply", append(fields, zap.Error(err))...)
	}
	return reply, nil
}

// Broadcast routes one message per registered agent other than sender, in
// registration order, and returns the non-nil replies. Each reply is also
// routed back to sender, as with Route.
func (r *Router) Broadcast(ctx context.Context, sender domain.AgentID, t domain.MessageType, payload domain.Payload) ([]domain.Message, error) {
	r.mu.RLock()
	targets := make([]domain.AgentID, 0, len(r.order))
	for _, id := range r.order {
		if id != sender {
			targets = append(targets, id)
		}
	}
	r.mu.RUnlock()

	var replies []domain.Message
	for _, id := range targets {
		reply, err := r.Route(ctx, domain.Message{
			Sender:    sender,
			Recipient: id,
			Type:      t,
			Payload:   payload.Clone(),
		})
		if err != nil {
			return replies, err
		}
		if reply != nil {
			replies = append(replies, *reply)
		}
	}
	return replies, nil
}
