package domain

import "strings"

type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

func (d Decision) Valid() bool {
	return d == DecisionApprove || d == DecisionReject
}

// Negate returns the opposite decision. Anything that is not an approval
// negates to approve, so an unknown reviewed decision is still challenged.
func (d Decision) Negate() Decision {
	if d == DecisionApprove {
		return DecisionReject
	}
	return DecisionApprove
}

// ParseDecision maps a decision token in English or Vietnamese to a Decision.
func ParseDecision(s string) (Decision, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "approve", "approved", "chấp nhận", "đồng ý":
		return DecisionApprove, true
	case "reject", "rejected", "từ chối", "không đồng ý":
		return DecisionReject, true
	}
	return "", false
}

// ParseSource records which stage of the tolerant parse chain produced a value.
type ParseSource string

const (
	ParseJSON    ParseSource = "json"
	ParseLabeled ParseSource = "labeled"
	ParseKeyword ParseSource = "keyword"
	ParseDefault ParseSource = "default"
)

// Opinion is an evaluator's verdict on an application.
type Opinion struct {
	Decision    Decision         `json:"decision"`
	Reason      string           `json:"reason"`
	RawResponse string           `json:"raw_response,omitempty"`
	ParseSource ParseSource      `json:"parse_source,omitempty"`
	Error       string           `json:"error,omitempty"`
	Features    map[Feature]bool `json:"features,omitempty"`
}

func (o Opinion) Payload() Payload {
	p := Payload{
		"decision":     string(o.Decision),
		"reason":       o.Reason,
		"raw_response": o.RawResponse,
		"parse_source": string(o.ParseSource),
	}
	if o.Error != "" {
		p["error"] = o.Error
	}
	for f, v := range o.Features {
		p[string(f)] = v
	}
	return p
}

// OpinionFromPayload reads an opinion back from a decision or repredict
// payload. Missing fields stay zero.
func OpinionFromPayload(p Payload) Opinion {
	o := Opinion{
		Reason:      p.String("reason"),
		RawResponse: p.String("raw_response"),
		ParseSource: ParseSource(p.String("parse_source")),
		Error:       p.String("error"),
	}
	if d, ok := ParseDecision(p.String("decision")); ok {
		o.Decision = d
	}
	if fs := FeaturesFromPayload(p); len(fs) > 0 {
		o.Features = fs
	}
	return o
}

// Critique is the critical reviewer's challenge to an opinion.
type Critique struct {
	CriticalResponse    string      `json:"critical_response"`
	RecommendedDecision Decision    `json:"recommended_decision"`
	ReviewedDecision    Decision    `json:"reviewed_decision,omitempty"`
	RawResponse         string      `json:"raw_response,omitempty"`
	ParseSource         ParseSource `json:"parse_source,omitempty"`
	Error               string      `json:"error,omitempty"`
}

func (c Critique) Payload() Payload {
	p := Payload{
		"critical_response":    c.CriticalResponse,
		"recommended_decision": string(c.RecommendedDecision),
		"reviewed_decision":    string(c.ReviewedDecision),
		"raw_response":         c.RawResponse,
		"parse_source":         string(c.ParseSource),
	}
	if c.Error != "" {
		p["error"] = c.Error
	}
	return p
}

func CritiqueFromPayload(p Payload) Critique {
	c := Critique{
		CriticalResponse: p.String("critical_response"),
		RawResponse:      p.String("raw_response"),
		ParseSource:      ParseSource(p.String("parse_source")),
		Error:            p.String("error"),
	}
	if d, ok := ParseDecision(p.String("recommended_decision")); ok {
		c.RecommendedDecision = d
	}
	if d, ok := ParseDecision(p.String("reviewed_decision")); ok {
		c.ReviewedDecision = d
	}
	return c
}
