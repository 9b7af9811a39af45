package domain

import "testing"

func TestParseDecision(t *testing.T) {
	tests := []struct {
		in     string
		want   Decision
		wantOK bool
	}{
		{"approve", DecisionApprove, true},
		{"APPROVE", DecisionApprove, true},
		{" Reject ", DecisionReject, true},
		{"CHẤP NHẬN", DecisionApprove, true},
		{"từ chối", DecisionReject, true},
		{"maybe", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := ParseDecision(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseDecision(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestDecisionNegate(t *testing.T) {
	if DecisionApprove.Negate() != DecisionReject {
		t.Error("approve should negate to reject")
	}
	if DecisionReject.Negate() != DecisionApprove {
		t.Error("reject should negate to approve")
	}
	if Decision("").Negate() != DecisionApprove {
		t.Error("unknown decision should negate to approve")
	}
}

func TestOpinionPayloadRoundTrip(t *testing.T) {
	o := Opinion{
		Decision:    DecisionReject,
		Reason:      "thu nhập cao",
		ParseSource: ParseLabeled,
		Error:       "completion failed",
		Features:    map[Feature]bool{FeatureIncome: false},
	}

	got := OpinionFromPayload(o.Payload())
	if got.Decision != o.Decision || got.Reason != o.Reason || got.ParseSource != o.ParseSource || got.Error != o.Error {
		t.Errorf("round trip mismatch: got %+v", got)
	}
	if v, ok := got.Features[FeatureIncome]; !ok || v {
		t.Errorf("feature claim lost: %v", got.Features)
	}
}

func TestMessageValidate(t *testing.T) {
	valid := Message{Sender: Coordinator, Recipient: AgentAcademic, Type: MsgScholarshipApplication}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid message, got %v", err)
	}

	for name, m := range map[string]Message{
		"no sender":    {Recipient: AgentAcademic, Type: MsgScholarshipApplication},
		"no type":      {Sender: Coordinator, Recipient: AgentAcademic},
		"no recipient": {Sender: Coordinator, Type: MsgScholarshipApplication},
	} {
		if err := m.Validate(); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestMessageReply(t *testing.T) {
	m := Message{Sender: Coordinator, Recipient: AgentCritical, Type: MsgLoanDecision}
	r := m.Reply(CriticalResponseType(m.Type), nil)
	if r.Sender != AgentCritical || r.Recipient != Coordinator {
		t.Errorf("reply should swap sender and recipient: %+v", r)
	}
	if r.Type != "loan_decision_critical_response" {
		t.Errorf("unexpected reply type %q", r.Type)
	}
	if !r.Type.IsCriticalResponse() || r.Type.Reviewed() != MsgLoanDecision {
		t.Error("critical response type helpers disagree")
	}
	if r.Payload == nil {
		t.Error("reply payload should never be nil")
	}
}
