package agents

import (
	"encoding/json"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/Harshitk-cp/loancouncil/internal/domain"
	"github.com/Harshitk-cp/loancouncil/internal/llm"
	"golang.org/x/text/unicode/norm"
)

const (
	maxReasonRunes   = 300
	maxSentenceRunes = 200
	minSentenceRunes = 10
)

const decisionToken = `(approved?|reject(?:ed)?|chấp\s+nhận|từ\s+chối|không\s+đồng\s+ý|đồng\s+ý)`

var (
	decisionLabel = regexp.MustCompile(`(?i)(?:quyết\s+định|decision)\s*[:：]\s*\**\s*` + decisionToken)
	reasonLabel   = regexp.MustCompile(`(?is)(?:lý\s+do|reason)\s*[:：]\s*(.+)`)

	critiqueLabel       = regexp.MustCompile(`(?is)(?:phản\s+biện|critique)\s*[:：]\s*(.+?)(?:\n\s*(?:khuyến\s+nghị|recommendation)\s*[:：]|$)`)
	recommendationLabel = regexp.MustCompile(`(?i)(?:khuyến\s+nghị|recommendation)\s*[:：]\s*\**\s*` + decisionToken)

	jsonObject = regexp.MustCompile(`(?s)\{.*\}`)
)

var (
	rejectKeywords  = []string{"reject", "từ chối", "không đồng ý"}
	approveKeywords = []string{"approve", "chấp nhận", "đồng ý"}
)

// parsedOpinion is what the parse chain recovered from model text.
type parsedOpinion struct {
	decision domain.Decision
	reason   string
	source   domain.ParseSource
	features map[domain.Feature]bool
}

// parseOpinion runs the chain JSON, labeled fields, keywords. ok is false
// when none of them produced a decision.
func parseOpinion(raw string) (parsedOpinion, bool) {
	text := norm.NFC.String(strings.TrimSpace(raw))
	if text == "" {
		return parsedOpinion{}, false
	}

	if obj, ok := decodeJSON(text); ok {
		if d, ok := domain.ParseDecision(obj.String("decision")); ok {
			return parsedOpinion{
				decision: d,
				reason:   truncate(strings.TrimSpace(obj.String("reason")), maxReasonRunes),
				source:   domain.ParseJSON,
				features: domain.FeaturesFromPayload(obj),
			}, true
		}
	}

	if m := decisionLabel.FindStringSubmatch(text); m != nil {
		if d, ok := domain.ParseDecision(collapseSpace(m[1])); ok {
			reason := ""
			if r := reasonLabel.FindStringSubmatch(text); r != nil {
				reason = truncate(strings.TrimSpace(r[1]), maxReasonRunes)
			}
			return parsedOpinion{decision: d, reason: reason, source: domain.ParseLabeled}, true
		}
	}

	if d, ok := keywordDecision(text); ok {
		return parsedOpinion{decision: d, reason: firstSentence(text), source: domain.ParseKeyword}, true
	}
	return parsedOpinion{}, false
}

// keywordDecision prefers rejection when both kinds of keyword appear.
func keywordDecision(text string) (domain.Decision, bool) {
	lower := strings.ToLower(text)
	if containsAny(lower, rejectKeywords) {
		return domain.DecisionReject, true
	}
	if containsAny(lower, approveKeywords) {
		return domain.DecisionApprove, true
	}
	return "", false
}

type parsedCritique struct {
	response    string
	recommended domain.Decision
	source      domain.ParseSource
}

// parseCritique recovers a critique. The recommendation is left empty when
// the text is ambiguous so the caller can apply the adversarial default.
func parseCritique(raw string) parsedCritique {
	text := norm.NFC.String(strings.TrimSpace(raw))
	if text == "" {
		return parsedCritique{}
	}

	if obj, ok := decodeJSON(text); ok {
		if d, ok := domain.ParseDecision(obj.String("recommended_decision")); ok {
			return parsedCritique{
				response:    truncate(strings.TrimSpace(obj.String("critical_response")), maxReasonRunes),
				recommended: d,
				source:      domain.ParseJSON,
			}
		}
	}

	out := parsedCritique{response: truncate(text, maxReasonRunes)}
	if m := critiqueLabel.FindStringSubmatch(text); m != nil {
		out.response = truncate(strings.TrimSpace(m[1]), maxReasonRunes)
	}
	if m := recommendationLabel.FindStringSubmatch(text); m != nil {
		if d, ok := domain.ParseDecision(collapseSpace(m[1])); ok {
			out.recommended = d
			out.source = domain.ParseLabeled
			return out
		}
	}

	// a keyword only counts when exactly one side is mentioned
	lower := strings.ToLower(text)
	rejects := containsAny(lower, rejectKeywords)
	approves := containsAny(strings.NewReplacer("không đồng ý", "").Replace(lower), approveKeywords)
	switch {
	case rejects && !approves:
		out.recommended = domain.DecisionReject
		out.source = domain.ParseKeyword
	case approves && !rejects:
		out.recommended = domain.DecisionApprove
		out.source = domain.ParseKeyword
	}
	return out
}

func decodeJSON(text string) (domain.Payload, bool) {
	candidate := llm.StripFences(text)
	if !strings.HasPrefix(candidate, "{") {
		m := jsonObject.FindString(candidate)
		if m == "" {
			return nil, false
		}
		candidate = m
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(candidate), &obj); err != nil {
		return nil, false
	}
	return domain.Payload(obj), true
}

func firstSentence(text string) string {
	for _, s := range strings.FieldsFunc(text, func(r rune) bool { return r == '.' || r == '\n' }) {
		s = strings.TrimSpace(s)
		if utf8.RuneCountInString(s) > minSentenceRunes {
			return truncate(s, maxSentenceRunes)
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
