package domain

// Ruleset selects the revision of the decision rule table.
type Ruleset string

const (
	// RulesetZeroViolationApprove approves any application with no special
	// violations regardless of passed count.
	RulesetZeroViolationApprove Ruleset = "zero-violation-approve"
	// RulesetStrictPassedCount additionally requires passed >= 6 when there
	// are no special violations.
	RulesetStrictPassedCount Ruleset = "strict-passed-count"
)

func ValidRuleset(s string) bool {
	switch Ruleset(s) {
	case RulesetZeroViolationApprove, RulesetStrictPassedCount:
		return true
	}
	return false
}

// InstitutionCriterion selects how F3 is judged.
type InstitutionCriterion string

const (
	InstitutionByTier   InstitutionCriterion = "tier"
	InstitutionByPublic InstitutionCriterion = "public"
)

func ValidInstitutionCriterion(s string) bool {
	switch InstitutionCriterion(s) {
	case InstitutionByTier, InstitutionByPublic:
		return true
	}
	return false
}

// FeatureSourceMode selects how the aggregator resolves feature values.
type FeatureSourceMode string

const (
	// FeatureSourceDebate prefers repredict values, then evaluator values,
	// then profile extraction.
	FeatureSourceDebate FeatureSourceMode = "debate"
	// FeatureSourceProfile ignores agent claims and uses profile extraction only.
	FeatureSourceProfile FeatureSourceMode = "profile"
)

func ValidFeatureSourceMode(s string) bool {
	switch FeatureSourceMode(s) {
	case FeatureSourceDebate, FeatureSourceProfile:
		return true
	}
	return false
}

const (
	DefaultGPAPassThreshold = 0.65
	IncomeCeilingVND        = 8_000_000
	LoanCeilingVND          = 60_000_000
	MonthlyLoanCapVND       = 3_000_000
	LoanCapMonths           = 12
	PassedCountThreshold    = 6
)

// Policy holds the tunable decision parameters.
type Policy struct {
	Ruleset              Ruleset              `json:"ruleset"`
	InstitutionCriterion InstitutionCriterion `json:"institution_criterion"`
	GPAPassThreshold     float64              `json:"gpa_pass_threshold"`
	FeatureSource        FeatureSourceMode    `json:"feature_source"`
}

func DefaultPolicy() Policy {
	return Policy{
		Ruleset:              RulesetZeroViolationApprove,
		InstitutionCriterion: InstitutionByTier,
		GPAPassThreshold:     DefaultGPAPassThreshold,
		FeatureSource:        FeatureSourceDebate,
	}
}

// Normalize replaces invalid fields with their defaults.
func (p Policy) Normalize() Policy {
	d := DefaultPolicy()
	if !ValidRuleset(string(p.Ruleset)) {
		p.Ruleset = d.Ruleset
	}
	if !ValidInstitutionCriterion(string(p.InstitutionCriterion)) {
		p.InstitutionCriterion = d.InstitutionCriterion
	}
	if p.GPAPassThreshold <= 0 || p.GPAPassThreshold > 1 {
		p.GPAPassThreshold = d.GPAPassThreshold
	}
	if !ValidFeatureSourceMode(string(p.FeatureSource)) {
		p.FeatureSource = d.FeatureSource
	}
	return p
}

// ErrMissingOriginalProfile is the DecisionRecord error tag for a session
// whose aggregation request carried no profile text.
const ErrMissingOriginalProfile = "missing_original_profile"

// SubjectiveInputs carries the evaluators' final opinions for audit. They
// never influence the rule outcome.
type SubjectiveInputs struct {
	AcademicDecision Decision `json:"academic_decision,omitempty"`
	AcademicReason   string   `json:"academic_reason,omitempty"`
	FinanceDecision  Decision `json:"finance_decision,omitempty"`
	FinanceReason    string   `json:"finance_reason,omitempty"`
}

// DecisionRecord is the final outcome of a deliberation.
type DecisionRecord struct {
	Decision          Decision                  `json:"decision"`
	Reason            string                    `json:"reason"`
	PassedCount       int                       `json:"passed_count"`
	SpecialViolations int                       `json:"special_violations"`
	Features          FeatureSet                `json:"features"`
	FeatureSources    map[Feature]FeatureSource `json:"feature_sources,omitempty"`
	Ruleset           Ruleset                   `json:"ruleset"`
	Conditional       bool                      `json:"conditional"`
	SubjectiveInputs  *SubjectiveInputs         `json:"subjective_inputs,omitempty"`
	Error             string                    `json:"error,omitempty"`
	RuleBased         bool                      `json:"rule_based"`
}

func (r DecisionRecord) Approved() bool {
	return r.Decision == DecisionApprove
}

func (r DecisionRecord) Payload() Payload {
	return Payload{"record": r, "decision": string(r.Decision), "reason": r.Reason}
}
