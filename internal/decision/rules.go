// Package decision holds the rule table and the per-session aggregator that
// turns a deliberation into a DecisionRecord.
package decision

import (
	"fmt"
	"strings"

	"github.com/Harshitk-cp/loancouncil/internal/domain"
)

// Outcome is the result of applying the rule table to the feature counters.
type Outcome struct {
	Decision    domain.Decision `json:"decision"`
	Reason      string          `json:"reason"`
	Conditional bool            `json:"conditional"`
}

// Evaluate applies the rule table. It is total over passed in [0,7] and
// violations in [0,3]; out-of-range counters are clamped.
//
//	violations > 1                 -> reject
//	violations == 1, passed >= 6   -> conditional approve
//	violations == 1, passed < 6    -> reject
//	violations == 0                -> approve (strict ruleset: only if passed >= 6)
func Evaluate(passed, violations int, ruleset domain.Ruleset) Outcome {
	passed = clamp(passed, 0, len(domain.AllFeatures))
	violations = clamp(violations, 0, len(domain.SpecialFeatures))

	switch {
	case violations > 1:
		return Outcome{
			Decision: domain.DecisionReject,
			Reason:   fmt.Sprintf("%d special criteria violated; automatic rejection", violations),
		}
	case violations == 1 && passed >= domain.PassedCountThreshold:
		return Outcome{
			Decision:    domain.DecisionApprove,
			Reason:      fmt.Sprintf("conditional approval: 1 special criterion violated, %d/7 criteria passed", passed),
			Conditional: true,
		}
	case violations == 1:
		return Outcome{
			Decision: domain.DecisionReject,
			Reason:   fmt.Sprintf("1 special criterion violated and only %d/7 criteria passed", passed),
		}
	case ruleset == domain.RulesetStrictPassedCount && passed < domain.PassedCountThreshold:
		return Outcome{
			Decision: domain.DecisionReject,
			Reason:   fmt.Sprintf("no special violations but only %d/7 criteria passed", passed),
		}
	default:
		return Outcome{
			Decision: domain.DecisionApprove,
			Reason:   fmt.Sprintf("no special criteria violated, %d/7 criteria passed", passed),
		}
	}
}

// Decide applies the rule table to a feature set and names the failed
// criteria in the reason.
func Decide(fs domain.FeatureSet, ruleset domain.Ruleset) Outcome {
	out := Evaluate(fs.PassedCount(), fs.SpecialViolations(), ruleset)
	if failed := fs.Failed(); len(failed) > 0 {
		names := make([]string, len(failed))
		for i, f := range failed {
			names[i] = fmt.Sprintf("F%d %s", f.Index(), f)
		}
		out.Reason += "; failed: " + strings.Join(names, ", ")
	}
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
