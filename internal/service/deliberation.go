package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Harshitk-cp/loancouncil/internal/agents"
	"github.com/Harshitk-cp/loancouncil/internal/coordinator"
	"github.com/Harshitk-cp/loancouncil/internal/decision"
	"github.com/Harshitk-cp/loancouncil/internal/domain"
	"github.com/Harshitk-cp/loancouncil/internal/features"
	"github.com/Harshitk-cp/loancouncil/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultRoundTimeout = 45 * time.Second
	defaultMaxTokens    = 512

	defaultListLimit = 20
	maxListLimit     = 100
)

var (
	ErrEmptyProfile         = errors.New("profile text is required")
	ErrDeliberationNotFound = errors.New("deliberation not found")
	ErrStoreUnavailable     = errors.New("deliberation store is not configured")
)

// DeliberationRequest is the input to Deliberate. Application, when given,
// is rendered to profile text ahead of any free-text Profile.
type DeliberationRequest struct {
	Profile     string
	Application *domain.Application
	ExternalRef string
	RequestID   string
}

// FeaturePreview is a dry run of the rule engine on a profile.
type FeaturePreview struct {
	Extraction features.Result  `json:"extraction"`
	Outcome    decision.Outcome `json:"outcome"`
	Policy     domain.Policy    `json:"policy"`
	Failed     []domain.Feature `json:"failed,omitempty"`
}

type DeliberationService struct {
	store     domain.DeliberationStore
	client    domain.CompletionClient
	extractor *features.Extractor
	logger    *zap.Logger

	roundTimeout time.Duration
	maxTokens    int
}

// NewDeliberationService wires the orchestrator. ds may be nil, in which
// case results are returned but not persisted.
func NewDeliberationService(ds domain.DeliberationStore, client domain.CompletionClient, policy domain.Policy, logger *zap.Logger) *DeliberationService {
	return &DeliberationService{
		store:        ds,
		client:       client,
		extractor:    features.NewExtractor(policy),
		logger:       logger,
		roundTimeout: defaultRoundTimeout,
		maxTokens:    defaultMaxTokens,
	}
}

func (s *DeliberationService) SetRoundTimeout(d time.Duration) {
	if d > 0 {
		s.roundTimeout = d
	}
}

func (s *DeliberationService) SetMaxTokens(n int) {
	if n > 0 {
		s.maxTokens = n
	}
}

func (s *DeliberationService) Policy() domain.Policy {
	return s.extractor.Policy()
}

// session holds the per-deliberation participants. Nothing in it outlives
// one RunDeliberation call.
type session struct {
	id         uuid.UUID
	profile    string
	router     *coordinator.Router
	aggregator *decision.Aggregator
	logger     *zap.Logger
	timedOut   []string
}

func (s *DeliberationService) newSession(profile string) *session {
	id := uuid.New()
	logger := s.logger.With(zap.String("session_id", id.String()))

	router := coordinator.NewRouter(coordinator.NewTranscript(), logger)
	agg := decision.NewAggregator(s.extractor)

	router.Register(agents.NewEvaluator(agents.AcademicPersona(), s.client, s.extractor, s.maxTokens, logger))
	router.Register(agents.NewEvaluator(agents.FinancePersona(), s.client, s.extractor, s.maxTokens, logger))
	router.Register(agents.NewCritic(s.client, s.maxTokens, logger))
	router.Register(agents.NewDecisionAgent(agg, logger))

	return &session{id: id, profile: profile, router: router, aggregator: agg, logger: logger}
}

// RunDeliberation drives one application through the three rounds and
// returns only once the decision is final. Only an empty profile or the
// caller's cancellation are errors; agent failures degrade to defaults.
func (s *DeliberationService) RunDeliberation(ctx context.Context, profile string) (*domain.DeliberationResult, error) {
	if strings.TrimSpace(profile) == "" {
		return nil, ErrEmptyProfile
	}

	start := time.Now()
	sess := s.newSession(profile)
	sess.logger.Info("deliberation started", zap.Int("profile_len", len(profile)))

	merged := domain.Payload{"original_profile": profile}
	var responses domain.Responses

	// Round 1: initial arguments.
	initial := s.round(ctx, sess, "initial", []domain.Message{
		{Sender: domain.Coordinator, Recipient: domain.AgentAcademic, Type: domain.MsgScholarshipApplication, Payload: domain.Payload{"profile": profile}},
		{Sender: domain.Coordinator, Recipient: domain.AgentFinance, Type: domain.MsgLoanApplication, Payload: domain.Payload{"profile": profile}},
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	decisions := s.collect(ctx, sess, merged, initial, domain.MsgScholarshipDecision, domain.MsgLoanDecision)
	if p, ok := decisions[domain.MsgScholarshipDecision]; ok {
		op := domain.OpinionFromPayload(p)
		responses.AcademicInitial = &op
	}
	if p, ok := decisions[domain.MsgLoanDecision]; ok {
		op := domain.OpinionFromPayload(p)
		responses.FinanceInitial = &op
	}

	// Round 2: critique each decision that arrived.
	var reviews []domain.Message
	for _, t := range []domain.MessageType{domain.MsgScholarshipDecision, domain.MsgLoanDecision} {
		p, ok := decisions[t]
		if !ok {
			continue
		}
		payload := p.Clone()
		payload["memory"] = profile
		reviews = append(reviews, domain.Message{Sender: domain.Coordinator, Recipient: domain.AgentCritical, Type: t, Payload: payload})
	}
	critiqueAcademic := domain.CriticalResponseType(domain.MsgScholarshipDecision)
	critiqueFinance := domain.CriticalResponseType(domain.MsgLoanDecision)
	critiques := s.collect(ctx, sess, merged, s.round(ctx, sess, "critique", reviews), critiqueAcademic, critiqueFinance)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p, ok := critiques[critiqueAcademic]; ok {
		c := domain.CritiqueFromPayload(p)
		responses.CriticalAcademic = &c
	}
	if p, ok := critiques[critiqueFinance]; ok {
		c := domain.CritiqueFromPayload(p)
		responses.CriticalFinance = &c
	}

	// Round 3: each critiqued evaluator reconsiders.
	var redos []domain.Message
	for _, r := range []struct {
		agent    domain.AgentID
		critique domain.MessageType
		redo     domain.MessageType
	}{
		{domain.AgentAcademic, critiqueAcademic, domain.MsgRepredictScholarship},
		{domain.AgentFinance, critiqueFinance, domain.MsgRepredictLoan},
	} {
		c, ok := critiques[r.critique]
		if !ok {
			continue
		}
		redos = append(redos, domain.Message{
			Sender:    domain.Coordinator,
			Recipient: r.agent,
			Type:      r.redo,
			Payload: domain.Payload{
				"profile":              profile,
				"memory":               profile + "\n\n" + sess.router.Transcript().Excerpt(r.agent),
				"critical_response":    c.String("critical_response"),
				"recommended_decision": c.String("recommended_decision"),
			},
		})
	}
	repredicts := s.collect(ctx, sess, merged, s.round(ctx, sess, "repredict", redos), domain.MsgRepredictScholarship, domain.MsgRepredictLoan)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p, ok := repredicts[domain.MsgRepredictScholarship]; ok {
		op := domain.OpinionFromPayload(p)
		responses.AcademicRepredict = &op
	}
	if p, ok := repredicts[domain.MsgRepredictLoan]; ok {
		op := domain.OpinionFromPayload(p)
		responses.FinanceRepredict = &op
	}

	rec := s.finalize(ctx, sess, merged)

	sess.logger.Info("deliberation finished",
		zap.String("decision", string(rec.Decision)),
		zap.Int("passed_count", rec.PassedCount),
		zap.Int("special_violations", rec.SpecialViolations),
		zap.Bool("conditional", rec.Conditional),
		zap.Strings("timed_out_rounds", sess.timedOut),
		zap.Duration("duration", time.Since(start)),
	)

	return &domain.DeliberationResult{
		SessionID:  sess.id,
		Record:     rec,
		Responses:  responses,
		Transcript: sess.router.Transcript().Entries(),
		TimedOut:   sess.timedOut,
	}, nil
}

// round routes msgs concurrently and waits for all replies or the round
// timeout, whichever comes first. Missing replies are nil.
func (s *DeliberationService) round(ctx context.Context, sess *session, name string, msgs []domain.Message) []*domain.Message {
	if len(msgs) == 0 {
		return nil
	}

	roundCtx, cancel := context.WithTimeout(ctx, s.roundTimeout)
	defer cancel()

	var mu sync.Mutex
	replies := make([]*domain.Message, len(msgs))

	g, gctx := errgroup.WithContext(roundCtx)
	for i, m := range msgs {
		g.Go(func() error {
			reply, err := sess.router.Route(gctx, m)
			if err != nil {
				return fmt.Errorf("route %s: %w", m.Type, err)
			}
			mu.Lock()
			replies[i] = reply
			mu.Unlock()
			return nil
		})
	}

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	select {
	case err := <-done:
		if err != nil {
			sess.logger.Warn("round failed", zap.String("round", name), zap.Error(err))
		}
	case <-roundCtx.Done():
		sess.timedOut = append(sess.timedOut, name)
		sess.logger.Warn("round timed out, continuing with partial replies",
			zap.String("round", name),
			zap.Duration("timeout", s.roundTimeout),
		)
	}

	mu.Lock()
	defer mu.Unlock()
	out := make([]*domain.Message, len(replies))
	copy(out, replies)
	return out
}

// collect keeps the replies of the wanted types, forwards each to the
// decision agent and adds it to the merged aggregation payload.
func (s *DeliberationService) collect(ctx context.Context, sess *session, merged domain.Payload, replies []*domain.Message, wanted ...domain.MessageType) map[domain.MessageType]domain.Payload {
	out := make(map[domain.MessageType]domain.Payload)
	for _, r := range replies {
		if r == nil {
			continue
		}
		if !containsType(wanted, r.Type) {
			sess.logger.Warn("unexpected reply", zap.String("from", string(r.Sender)), zap.String("type", string(r.Type)))
			continue
		}
		out[r.Type] = r.Payload
		merged[string(r.Type)] = r.Payload
		if _, err := sess.router.Route(ctx, domain.Message{
			Sender:    domain.Coordinator,
			Recipient: domain.AgentDecision,
			Type:      r.Type,
			Payload:   r.Payload,
		}); err != nil {
			sess.logger.Warn("forward to decision agent failed", zap.Error(err))
		}
	}
	return out
}

// finalize asks the decision agent for the record. If it does not answer,
// the session's aggregator is consulted directly, and failing that a fresh
// one is run on the merged payload.
func (s *DeliberationService) finalize(ctx context.Context, sess *session, merged domain.Payload) domain.DecisionRecord {
	reply, err := sess.router.Route(ctx, domain.Message{
		Sender:    domain.Coordinator,
		Recipient: domain.AgentDecision,
		Type:      domain.MsgAggregateAll,
		Payload:   merged,
	})
	if err == nil && reply != nil && reply.Type == domain.MsgFinalDecision {
		if rec, ok := reply.Payload["record"].(domain.DecisionRecord); ok {
			return rec
		}
	}

	sess.logger.Warn("decision agent gave no final decision, aggregating directly")
	if rec := sess.aggregator.Record(); rec != nil {
		return *rec
	}
	rec, err := decision.NewAggregator(s.extractor).Aggregate(merged)
	if err != nil {
		// a fresh aggregator cannot already be finalized
		sess.logger.Error("direct aggregation failed", zap.Error(err))
	}
	return rec
}

func containsType(ts []domain.MessageType, t domain.MessageType) bool {
	for _, x := range ts {
		if x == t {
			return true
		}
	}
	return false
}

// Deliberate runs a deliberation for a request and persists the outcome.
// Persistence failures are logged and do not fail the call.
func (s *DeliberationService) Deliberate(ctx context.Context, req DeliberationRequest) (*domain.Deliberation, error) {
	profile := strings.TrimSpace(req.Profile)
	if req.Application != nil {
		if err := req.Application.Validate(); err != nil {
			return nil, err
		}
		profile = strings.TrimSpace(req.Application.ProfileText() + "\n" + profile)
	}

	start := time.Now()
	result, err := s.RunDeliberation(ctx, profile)
	if err != nil {
		return nil, err
	}

	d := &domain.Deliberation{
		ID:           result.SessionID,
		RequestID:    req.RequestID,
		ExternalRef:  req.ExternalRef,
		Profile:      profile,
		Application:  req.Application,
		Record:       result.Record,
		Responses:    result.Responses,
		Transcript:   result.Transcript,
		AgentStatus:  result.Responses.AgentStatus(),
		ProcessingMS: time.Since(start).Milliseconds(),
		CreatedAt:    time.Now().UTC(),
	}

	if s.store != nil {
		if err := s.store.Create(ctx, d); err != nil {
			s.logger.Warn("failed to persist deliberation",
				zap.String("deliberation_id", d.ID.String()),
				zap.Error(err))
		}
	}
	return d, nil
}

func (s *DeliberationService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Deliberation, error) {
	if s.store == nil {
		return nil, ErrStoreUnavailable
	}
	d, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrDeliberationNotFound
		}
		return nil, err
	}
	return d, nil
}

// List returns the most recent deliberations. limit is clamped to
// [1, 100] and defaults to 20.
func (s *DeliberationService) List(ctx context.Context, limit int) ([]domain.Deliberation, error) {
	if s.store == nil {
		return nil, ErrStoreUnavailable
	}
	switch {
	case limit <= 0:
		limit = defaultListLimit
	case limit > maxListLimit:
		limit = maxListLimit
	}
	return s.store.List(ctx, limit)
}

func (s *DeliberationService) Stats(ctx context.Context) (*domain.DeliberationStats, error) {
	if s.store == nil {
		return nil, ErrStoreUnavailable
	}
	return s.store.Stats(ctx)
}

// PreviewFeatures runs extraction and the rule table without any model calls.
func (s *DeliberationService) PreviewFeatures(profile string) (*FeaturePreview, error) {
	if strings.TrimSpace(profile) == "" {
		return nil, ErrEmptyProfile
	}
	res := s.extractor.ExtractDetailed(profile)
	policy := s.extractor.Policy()
	return &FeaturePreview{
		Extraction: res,
		Outcome:    decision.Decide(res.Features, policy.Ruleset),
		Policy:     policy,
		Failed:     res.Features.Failed(),
	}, nil
}
