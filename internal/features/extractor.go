// Package features turns a free-text applicant profile into the seven
// boolean compliance features used by the decision rules.
package features

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/Harshitk-cp/loancouncil/internal/domain"
	"golang.org/x/text/unicode/norm"
)

const (
	defaultGPANormalized = 0.5
	defaultTier          = 3
	maxPassingTier       = 3
	defaultIncomeVND     = 15_000_000
)

// RuleDefault names the outcome of a feature no rule matched.
const RuleDefault = "default"

// Values are the raw facts read from the profile before thresholds apply.
type Values struct {
	GPANormalized    float64 `json:"gpa_normalized"`
	Tier             int     `json:"tier"`
	PublicUniversity bool    `json:"public_university"`
	PriorityMajor    string  `json:"priority_major,omitempty"`
	HasGuarantor     bool    `json:"has_guarantor"`
	IncomeVND        int64   `json:"income_vnd"`
	LoanVND          int64   `json:"loan_vnd"`
	LoanFound        bool    `json:"loan_found"`
	HasDebt          bool    `json:"has_debt"`
}

// Result is a detailed extraction: the feature set, the raw values and the
// name of the rule that decided each feature ("default" when none matched).
type Result struct {
	Features domain.FeatureSet         `json:"features"`
	Values   Values                    `json:"values"`
	Matched  map[domain.Feature]string `json:"matched"`
}

// Extractor applies the rule tables under a policy. It holds no mutable
// state and is safe for concurrent use.
type Extractor struct {
	policy domain.Policy
}

func NewExtractor(policy domain.Policy) *Extractor {
	return &Extractor{policy: policy.Normalize()}
}

func (e *Extractor) Policy() domain.Policy {
	return e.policy
}

// Extract returns the fully populated feature set for profileText. It never
// fails; unresolved features take their conservative defaults.
func (e *Extractor) Extract(profileText string) domain.FeatureSet {
	return e.ExtractDetailed(profileText).Features
}

func (e *Extractor) ExtractDetailed(profileText string) Result {
	text := norm.NFC.String(profileText)
	lower := strings.ToLower(text)

	res := Result{Matched: make(map[domain.Feature]string, len(domain.AllFeatures))}

	e.academic(lower, &res)
	e.institution(lower, &res)
	e.major(text, lower, &res)
	e.guarantor(lower, &res)
	e.income(lower, &res)
	e.loan(lower, &res)
	e.debt(lower, &res)

	return res
}

func (e *Extractor) academic(lower string, res *Result) {
	res.Values.GPANormalized = defaultGPANormalized
	res.Matched[domain.FeatureAcademic] = RuleDefault

	for _, r := range gpaRules {
		m := r.pattern.FindStringSubmatch(lower)
		if m == nil {
			continue
		}
		v, err := strconv.ParseFloat(strings.Replace(m[1], ",", ".", 1), 64)
		if err != nil {
			continue
		}
		res.Values.GPANormalized = normalizeGPA(v, m[2])
		res.Matched[domain.FeatureAcademic] = r.name
		res.Features.AcademicPerformance = res.Values.GPANormalized >= e.policy.GPAPassThreshold
		return
	}
	res.Features.AcademicPerformance = false
}

// normalizeGPA maps a score onto 0..1. An explicit scale wins; otherwise
// values above 1 are read as a 10-point scale.
func normalizeGPA(v float64, scale string) float64 {
	if s, err := strconv.ParseFloat(scale, 64); err == nil && s > 0 {
		return v / s
	}
	if v > 1 {
		return v / 10
	}
	return v
}

func (e *Extractor) institution(lower string, res *Result) {
	res.Values.Tier = defaultTier
	tierRule := RuleDefault
	for _, r := range tierRules {
		if m := r.pattern.FindStringSubmatch(lower); m != nil {
			res.Values.Tier, _ = strconv.Atoi(m[1])
			tierRule = r.name
			break
		}
	}

	publicRule := RuleDefault
	if name, ok := firstPhrase(nonPublicRules, lower); ok {
		publicRule = name
	} else if name, ok := firstPhrase(publicRules, lower); ok {
		res.Values.PublicUniversity = true
		publicRule = name
	}

	switch e.policy.InstitutionCriterion {
	case domain.InstitutionByPublic:
		res.Features.InstitutionTier = res.Values.PublicUniversity
		res.Matched[domain.FeatureInstitution] = publicRule
	default:
		res.Features.InstitutionTier = res.Values.Tier <= maxPassingTier
		res.Matched[domain.FeatureInstitution] = tierRule
	}
}

func (e *Extractor) major(text, lower string, res *Result) {
	res.Matched[domain.FeatureMajor] = RuleDefault
	for _, r := range majorRules {
		subject := lower
		if r.caseSensitive {
			subject = text
		}
		if r.pattern.MatchString(subject) {
			res.Values.PriorityMajor = r.name
			res.Matched[domain.FeatureMajor] = r.name
			res.Features.PriorityMajor = true
			return
		}
	}
}

// guarantor defaults to present; only an explicit negative phrase clears it.
func (e *Extractor) guarantor(lower string, res *Result) {
	res.Values.HasGuarantor = true
	res.Matched[domain.FeatureGuarantor] = RuleDefault
	if name, ok := firstPhrase(guarantorNegativeRules, lower); ok {
		res.Values.HasGuarantor = false
		res.Matched[domain.FeatureGuarantor] = name
	}
	res.Features.GuarantorPresent = res.Values.HasGuarantor
}

func (e *Extractor) income(lower string, res *Result) {
	res.Values.IncomeVND = defaultIncomeVND
	res.Matched[domain.FeatureIncome] = RuleDefault
	if v, name, _, ok := firstAmount(incomeRules, lower); ok {
		res.Values.IncomeVND = v
		res.Matched[domain.FeatureIncome] = name
	}
	res.Features.IncomeWithinCeiling = res.Values.IncomeVND <= domain.IncomeCeilingVND
}

// loan fails closed when no amount can be read. A per-month figure is
// annualised before the ceilings apply.
func (e *Extractor) loan(lower string, res *Result) {
	res.Matched[domain.FeatureLoanSize] = RuleDefault
	v, name, monthly, ok := firstAmount(loanRules, lower)
	if !ok {
		res.Features.LoanWithinCeiling = false
		return
	}
	if monthly {
		v *= domain.LoanCapMonths
	}
	res.Values.LoanVND = v
	res.Values.LoanFound = true
	res.Matched[domain.FeatureLoanSize] = name
	res.Features.LoanWithinCeiling = LoanWithinCeiling(v)
}

// LoanWithinCeiling applies the two loan ceilings. Either one is enough.
func LoanWithinCeiling(amountVND int64) bool {
	return amountVND <= domain.LoanCeilingVND ||
		amountVND <= domain.MonthlyLoanCapVND*domain.LoanCapMonths
}

func (e *Extractor) debt(lower string, res *Result) {
	if name, ok := firstPhrase(debtPositiveRules, lower); ok {
		res.Values.HasDebt = true
		res.Matched[domain.FeatureNoDebt] = name
	} else if name, ok := firstPhrase(debtNegativeRules, lower); ok {
		res.Values.HasDebt = false
		res.Matched[domain.FeatureNoDebt] = name
	} else {
		res.Values.HasDebt = weakDebtSignal(lower)
		res.Matched[domain.FeatureNoDebt] = "weak_heuristic"
	}
	res.Features.NoExistingDebt = !res.Values.HasDebt
}

// amountMatch is one number found by a rule, with its unit and whether it
// carried a per-month suffix.
type amountMatch struct {
	raw     string
	unit    string
	monthly bool
	start   int
}

func findAmounts(re *regexp.Regexp, text string) []amountMatch {
	var out []amountMatch
	for _, idx := range re.FindAllStringSubmatchIndex(text, -1) {
		m := amountMatch{raw: text[idx[2]:idx[3]], start: idx[2]}
		if idx[4] >= 0 {
			m.unit = unitAt(text, idx[4], idx[5])
		}
		m.monthly = len(idx) > 7 && idx[6] >= 0
		out = append(out, m)
	}
	return out
}

func (r numberRule) candidates(lower string) []amountMatch {
	if r.label == nil {
		return findAmounts(r.pattern, lower)
	}
	var out []amountMatch
	for _, loc := range r.label.FindAllStringIndex(lower, -1) {
		clause := lower[loc[1]:]
		if end := clauseEnd.FindStringIndex(clause); end != nil {
			clause = clause[:end[0]]
		}
		for _, m := range findAmounts(labeledAmount, clause) {
			if utf8.RuneCountInString(clause[:m.start]) > r.window {
				break
			}
			out = append(out, m)
		}
	}
	return out
}

// firstAmount walks the rules in order and returns the first acceptable
// candidate converted to VND, and whether it carried a per-month suffix.
func firstAmount(rules []numberRule, lower string) (int64, string, bool, bool) {
	for _, r := range rules {
		for _, m := range r.candidates(lower) {
			num, ok := parseNumber(m.raw)
			if !ok {
				continue
			}
			if r.requireUnit && m.unit == "" {
				continue
			}
			if r.skipMonthly && m.monthly {
				continue
			}
			if r.monthly && !m.monthly {
				continue
			}
			if !plausibleAmount(m.raw, num, m.unit, m.monthly) {
				continue
			}
			return toVND(num, m.unit), r.name, m.monthly, true
		}
	}
	return 0, "", false, false
}
