package features

import (
	"regexp"
	"strings"
)

// numberRule extracts a numeric value. The first rule that yields a
// candidate wins; later rules are not consulted.
//
// A rule either matches pattern directly or, when label is set, scans the
// amounts that follow each label occurrence within window runes and the
// same clause.
type numberRule struct {
	name    string
	pattern *regexp.Regexp
	label   *regexp.Regexp
	window  int
	// monthly means group 3 (the per-month suffix) must be present.
	monthly bool
	// requireUnit skips candidates without a currency or magnitude unit.
	requireUnit bool
	// skipMonthly skips candidates that carry a per-month suffix.
	skipMonthly bool
}

// phraseRule is a named pattern whose presence sets a boolean.
type phraseRule struct {
	name    string
	pattern *regexp.Regexp
}

func firstPhrase(rules []phraseRule, text string) (string, bool) {
	for _, r := range rules {
		if r.pattern.MatchString(text) {
			return r.name, true
		}
	}
	return "", false
}

const gpaNumber = `([0-9]+(?:[.,][0-9]+)?)(?:\s*/\s*(4|10|100))?`

// All patterns run against NFC-normalised, lower-cased text unless noted.
var gpaRules = []numberRule{
	{name: "gpa_normalized_vi", pattern: regexp.MustCompile(`gpa[:\s]*chuẩn[:\s]*h(?:óa|oá)[:\s]*` + gpaNumber)},
	{name: "gpa_normalized_en", pattern: regexp.MustCompile(`normali[sz]ed[:\s]*gpa[:\s]*` + gpaNumber)},
	{name: "gpa_plain", pattern: regexp.MustCompile(`gpa[:\s]*` + gpaNumber)},
	{name: "average_score_vi", pattern: regexp.MustCompile(`điểm[:\s]*trung[:\s]*bình[:\s]*` + gpaNumber)},
	{name: "average_score_en", pattern: regexp.MustCompile(`average[:\s]*(?:score|grade)[:\s]*` + gpaNumber)},
}

var tierRules = []numberRule{
	{name: "tier_token", pattern: regexp.MustCompile(`tier[-:\s]*([1-5])`)},
	{name: "tier_vi", pattern: regexp.MustCompile(`(?:trường\s+)?hạng[:\s]*([1-5])`)},
}

var nonPublicRules = []phraseRule{
	{name: "non_public_vi", pattern: regexp.MustCompile(`ngoài\s+công\s+lập`)},
	{name: "private_vi", pattern: regexp.MustCompile(`tư\s+thục|dân\s+lập`)},
	{name: "private_en", pattern: regexp.MustCompile(`private\s+(?:university|institution|college)`)},
}

var publicRules = []phraseRule{
	{name: "public_university_vi", pattern: regexp.MustCompile(`(?:trường|đại\s+học)\s+công\s+lập`)},
	{name: "public_university_en", pattern: regexp.MustCompile(`public\s+(?:university|institution|college)`)},
}

// majorRule is matched against the original-case text when caseSensitive
// is set, so that "IT" does not fire on the English pronoun.
type majorRule struct {
	name          string
	pattern       *regexp.Regexp
	caseSensitive bool
}

var majorRules = []majorRule{
	{name: "stem", pattern: regexp.MustCompile(`\bstem\b`)},
	{name: "medicine", pattern: regexp.MustCompile(`y\s+khoa|y\s+dược|dược\s+học|\bmedicine\b|\bmedical\b|\bpharmacy\b`)},
	{name: "nursing", pattern: regexp.MustCompile(`điều\s+dưỡng|\bnursing\b`)},
	{name: "education", pattern: regexp.MustCompile(`sư\s+phạm|\beducation\b|\bteacher\s+training\b`)},
	{name: "information_technology", pattern: regexp.MustCompile(`công\s+nghệ\s+thông\s+tin|khoa\s+học\s+máy\s+tính|\bcomputer\b|\binformation\s+technology\b|\bsoftware\b`)},
	{name: "information_technology_abbr", pattern: regexp.MustCompile(`\bIT\b|\bCNTT\b`), caseSensitive: true},
	{name: "engineering", pattern: regexp.MustCompile(`kỹ\s+thuật|kĩ\s+thuật|\bengineering\b`)},
	{name: "science", pattern: regexp.MustCompile(`khoa\s+học\s+tự\s+nhiên|\bscience\b`)},
	{name: "agriculture", pattern: regexp.MustCompile(`nông\s+nghiệp|\bagricultur(?:e|al)\b`)},
}

var guarantorNegativeRules = []phraseRule{
	{name: "guarantor_none_labeled_vi", pattern: regexp.MustCompile(`bảo\s+lãnh\s*:\s*(?:không\s+có|không|chưa\s+có)(?:[^\p{L}]|$)`)},
	{name: "guarantor_none_vi", pattern: regexp.MustCompile(`(?:không|chưa)\s+có\s+(?:người\s+)?bảo\s+lãnh`)},
	{name: "guarantor_none_labeled_en", pattern: regexp.MustCompile(`guarantor\s*:\s*(?:none|no|n/a)(?:[^\p{L}]|$)`)},
	{name: "guarantor_none_en", pattern: regexp.MustCompile(`\bno\s+guarantor|without\s+(?:a\s+)?guarantor`)},
}

const (
	monthlyUnit  = `(\s*(?:vnd\s*)?/\s*(?:tháng|month))`
	optMonthUnit = `(\s*(?:vnd\s*)?/\s*(?:tháng|month))?`

	incomeWindow = 40
	loanWindow   = 30
)

var (
	incomeLabel = regexp.MustCompile(`thu\s+nhập|income`)
	loanLabel   = regexp.MustCompile(`vay|loan`)

	// labeledAmount is scanned in the text that follows a label.
	labeledAmount = regexp.MustCompile(amountPattern + optMonthUnit)
	// clauseEnd bounds a label scan. A dot inside "8.000.000" is not one.
	clauseEnd = regexp.MustCompile(`\n|[.;!?](?:\s|$)`)
)

var incomeRules = []numberRule{
	{name: "income_labeled_monthly", label: incomeLabel, window: incomeWindow, monthly: true},
	{name: "income_labeled", label: incomeLabel, window: incomeWindow},
	{name: "monthly_amount", pattern: regexp.MustCompile(amountPattern + monthlyUnit), monthly: true, requireUnit: true},
}

var loanRules = []numberRule{
	{name: "loan_labeled", label: loanLabel, window: loanWindow},
	{name: "amount_before_loan", pattern: regexp.MustCompile(amountPattern + optMonthUnit + `[^0-9\n]{0,40}?(?:vay|loan)`), requireUnit: true, skipMonthly: true},
}

var debtPositiveRules = []phraseRule{
	{name: "debt_current_vi", pattern: regexp.MustCompile(`(?:đang|hiện)\s+(?:đang\s+)?có\s+(?:khoản\s+)?nợ`)},
	{name: "debt_present_vi", pattern: regexp.MustCompile(`có\s+nợ\s+hiện\s+tại`)},
	{name: "debt_current_en", pattern: regexp.MustCompile(`currently\s+(?:has|have)\s+(?:a\s+)?debts?|has\s+(?:an\s+)?existing\s+debts?`)},
	{name: "debt_labeled_yes", pattern: regexp.MustCompile(`existing\s+debt\s*:\s*(?:yes|true|có)(?:[^\p{L}]|$)`)},
}

var debtNegativeRules = []phraseRule{
	{name: "no_debt_vi", pattern: regexp.MustCompile(`(?:không|chưa)\s+(?:có\s+)?(?:khoản\s+)?nợ`)},
	{name: "no_debt_en", pattern: regexp.MustCompile(`\bno\s+(?:existing\s+)?debts?\b|\bdebt[- ]free\b`)},
	{name: "debt_labeled_no", pattern: regexp.MustCompile(`existing\s+debt\s*:\s*(?:no|false|không)(?:[^\p{L}]|$)`)},
}

// weakDebtSignal is the last-resort heuristic: a debt keyword with no
// negation anywhere in the text.
func weakDebtSignal(lower string) bool {
	hasKeyword := strings.Contains(lower, "nợ") || strings.Contains(lower, "debt")
	hasNegation := strings.Contains(lower, "không") || strings.Contains(lower, "chưa") ||
		strings.Contains(lower, "no ") || strings.Contains(lower, "not ")
	return hasKeyword && !hasNegation
}
