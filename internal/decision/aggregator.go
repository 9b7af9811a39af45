package decision

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/Harshitk-cp/loancouncil/internal/domain"
	"github.com/Harshitk-cp/loancouncil/internal/features"
)

var (
	ErrSessionFinalized  = errors.New("session already finalized")
	ErrUnexpectedMessage = errors.New("unexpected message for aggregator")
)

// State is the aggregator's position in the deliberation protocol.
type State int

const (
	CollectingRound1 State = iota
	CollectingRound2
	CollectingRound3
	Finalized
)

func (s State) String() string {
	switch s {
	case CollectingRound1:
		return "collecting_round_1"
	case CollectingRound2:
		return "collecting_round_2"
	case CollectingRound3:
		return "collecting_round_3"
	case Finalized:
		return "finalized"
	}
	return "unknown"
}

// evaluatorForType maps a message type to the evaluator it concerns, so that
// forwarded messages are attributed correctly whoever routed them.
func evaluatorForType(t domain.MessageType) (domain.AgentID, bool) {
	if t.IsCriticalResponse() {
		t = t.Reviewed()
	}
	switch t {
	case domain.MsgScholarshipDecision, domain.MsgRepredictScholarship:
		return domain.AgentAcademic, true
	case domain.MsgLoanDecision, domain.MsgRepredictLoan:
		return domain.AgentFinance, true
	}
	return "", false
}

// FeatureOwner is the evaluator whose claims the aggregator trusts for f.
func FeatureOwner(f domain.Feature) domain.AgentID {
	switch f {
	case domain.FeatureAcademic, domain.FeatureInstitution, domain.FeatureMajor:
		return domain.AgentAcademic
	default:
		return domain.AgentFinance
	}
}

// Aggregator collects one session's opinions, critiques and repredictions
// and finalizes them into a DecisionRecord exactly once.
type Aggregator struct {
	extractor *features.Extractor
	policy    domain.Policy

	mu         sync.Mutex
	state      State
	initial    map[domain.AgentID]domain.Payload
	critiques  map[domain.AgentID]domain.Payload
	repredicts map[domain.AgentID]domain.Payload
	record     *domain.DecisionRecord
}

func NewAggregator(extractor *features.Extractor) *Aggregator {
	return &Aggregator{
		extractor:  extractor,
		policy:     extractor.Policy(),
		state:      CollectingRound1,
		initial:    make(map[domain.AgentID]domain.Payload),
		critiques:  make(map[domain.AgentID]domain.Payload),
		repredicts: make(map[domain.AgentID]domain.Payload),
	}
}

func (a *Aggregator) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Record returns the finalized record, or nil before finalization.
func (a *Aggregator) Record() *domain.DecisionRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.record == nil {
		return nil
	}
	r := *a.record
	return &r
}

// Observe records a decision, critique or repredict message. Critiques move
// the machine to round 2 and repredictions to round 3; it never moves back.
func (a *Aggregator) Observe(msg domain.Message) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state == Finalized {
		return ErrSessionFinalized
	}

	agent, ok := evaluatorForType(msg.Type)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnexpectedMessage, msg.Type)
	}
	payload := msg.Payload
	if payload == nil {
		payload = domain.Payload{}
	}

	switch {
	case msg.Type.IsCriticalResponse():
		a.critiques[agent] = payload
		a.advance(CollectingRound2)
	case msg.Type == domain.MsgRepredictScholarship || msg.Type == domain.MsgRepredictLoan:
		a.repredicts[agent] = payload
		a.advance(CollectingRound3)
	default:
		a.initial[agent] = payload
	}
	return nil
}

func (a *Aggregator) advance(to State) {
	if to > a.state {
		a.state = to
	}
}

// Aggregate finalizes the session. merged must carry original_profile and
// may carry any stage payload keyed by its message type; payloads already
// observed take precedence. A missing profile fails closed.
func (a *Aggregator) Aggregate(merged domain.Payload) (domain.DecisionRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state == Finalized {
		return domain.DecisionRecord{}, ErrSessionFinalized
	}
	if merged == nil {
		merged = domain.Payload{}
	}
	a.absorb(merged)

	var rec domain.DecisionRecord
	profile := merged.String("original_profile")
	if strings.TrimSpace(profile) == "" {
		rec = a.missingProfileRecord()
	} else {
		rec = a.resolve(profile)
	}
	rec.SubjectiveInputs = a.subjectiveInputs()

	a.record = &rec
	a.state = Finalized
	return rec, nil
}

func (a *Aggregator) absorb(merged domain.Payload) {
	stages := []struct {
		t    domain.MessageType
		dest map[domain.AgentID]domain.Payload
	}{
		{domain.MsgScholarshipDecision, a.initial},
		{domain.MsgLoanDecision, a.initial},
		{domain.CriticalResponseType(domain.MsgScholarshipDecision), a.critiques},
		{domain.CriticalResponseType(domain.MsgLoanDecision), a.critiques},
		{domain.MsgRepredictScholarship, a.repredicts},
		{domain.MsgRepredictLoan, a.repredicts},
	}
	for _, s := range stages {
		if _, present := merged[string(s.t)]; !present {
			continue
		}
		agent, _ := evaluatorForType(s.t)
		if _, seen := s.dest[agent]; !seen {
			s.dest[agent] = merged.Map(string(s.t))
		}
	}
}

func (a *Aggregator) missingProfileRecord() domain.DecisionRecord {
	sources := make(map[domain.Feature]domain.FeatureSource, len(domain.AllFeatures))
	for _, f := range domain.AllFeatures {
		sources[f] = domain.SourceDefault
	}
	var fs domain.FeatureSet
	return domain.DecisionRecord{
		Decision:          domain.DecisionReject,
		Reason:            domain.ErrMissingOriginalProfile + ": original profile text is required to apply the decision rules",
		PassedCount:       fs.PassedCount(),
		SpecialViolations: fs.SpecialViolations(),
		Features:          fs,
		FeatureSources:    sources,
		Ruleset:           a.policy.Ruleset,
		Error:             domain.ErrMissingOriginalProfile,
		RuleBased:         true,
	}
}

func (a *Aggregator) resolve(profile string) domain.DecisionRecord {
	extracted := a.extractor.ExtractDetailed(profile)

	var fs domain.FeatureSet
	sources := make(map[domain.Feature]domain.FeatureSource, len(domain.AllFeatures))
	for _, f := range domain.AllFeatures {
		v, src := a.resolveFeature(f, extracted)
		fs.Set(f, v)
		sources[f] = src
	}

	out := Decide(fs, a.policy.Ruleset)
	return domain.DecisionRecord{
		Decision:          out.Decision,
		Reason:            out.Reason,
		PassedCount:       fs.PassedCount(),
		SpecialViolations: fs.SpecialViolations(),
		Features:          fs,
		FeatureSources:    sources,
		Ruleset:           a.policy.Ruleset,
		Conditional:       out.Conditional,
		RuleBased:         true,
	}
}

func (a *Aggregator) resolveFeature(f domain.Feature, extracted features.Result) (bool, domain.FeatureSource) {
	if a.policy.FeatureSource == domain.FeatureSourceDebate {
		owner := FeatureOwner(f)
		if v, ok := domain.FeaturesFromPayload(a.repredicts[owner])[f]; ok {
			return v, domain.SourceRepredict
		}
		if v, ok := domain.FeaturesFromPayload(a.initial[owner])[f]; ok {
			return v, domain.SourceEvaluator
		}
	}
	src := domain.SourceProfile
	if extracted.Matched[f] == features.RuleDefault {
		src = domain.SourceDefault
	}
	return extracted.Features.Get(f), src
}

func (a *Aggregator) subjectiveInputs() *domain.SubjectiveInputs {
	final := func(agent domain.AgentID) domain.Opinion {
		if p, ok := a.repredicts[agent]; ok {
			return domain.OpinionFromPayload(p)
		}
		return domain.OpinionFromPayload(a.initial[agent])
	}
	academic := final(domain.AgentAcademic)
	finance := final(domain.AgentFinance)
	return &domain.SubjectiveInputs{
		AcademicDecision: academic.Decision,
		AcademicReason:   academic.Reason,
		FinanceDecision:  finance.Decision,
		FinanceReason:    finance.Reason,
	}
}
