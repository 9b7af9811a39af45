package domain

import (
	"time"

	"github.com/google/uuid"
)

// Delivery describes what the router did with a transcribed message.
type Delivery string

const (
	DeliveryDelivered   Delivery = "delivered"
	DeliveryCoordinator Delivery = "coordinator"
	DeliveryDropped     Delivery = "dropped"
	DeliveryRejected    Delivery = "rejected"
)

// TranscriptEntry is one routed message in a session transcript.
type TranscriptEntry struct {
	Seq      int       `json:"seq"`
	Message  Message   `json:"message"`
	RoutedAt time.Time `json:"routed_at"`
	Delivery Delivery  `json:"delivery"`
}

// AgentStatus summarises the evaluators' final stance.
type AgentStatus struct {
	AcademicApprove bool `json:"academic_approve"`
	FinanceApprove  bool `json:"finance_approve"`
	AtLeastOne      bool `json:"at_least_one_agent_approve"`
}

// Responses gathers the final payload of each deliberation stage.
type Responses struct {
	AcademicInitial   *Opinion  `json:"academic_initial,omitempty"`
	FinanceInitial    *Opinion  `json:"finance_initial,omitempty"`
	CriticalAcademic  *Critique `json:"critical_academic,omitempty"`
	CriticalFinance   *Critique `json:"critical_finance,omitempty"`
	AcademicRepredict *Opinion  `json:"academic_repredict,omitempty"`
	FinanceRepredict  *Opinion  `json:"finance_repredict,omitempty"`
}

// FinalAcademic returns the latest academic opinion, if any.
func (r Responses) FinalAcademic() *Opinion {
	if r.AcademicRepredict != nil {
		return r.AcademicRepredict
	}
	return r.AcademicInitial
}

// FinalFinance returns the latest financial opinion, if any.
func (r Responses) FinalFinance() *Opinion {
	if r.FinanceRepredict != nil {
		return r.FinanceRepredict
	}
	return r.FinanceInitial
}

func (r Responses) AgentStatus() AgentStatus {
	var s AgentStatus
	if o := r.FinalAcademic(); o != nil {
		s.AcademicApprove = o.Decision == DecisionApprove
	}
	if o := r.FinalFinance(); o != nil {
		s.FinanceApprove = o.Decision == DecisionApprove
	}
	s.AtLeastOne = s.AcademicApprove || s.FinanceApprove
	return s
}

// DeliberationResult is what RunDeliberation hands back to the caller.
type DeliberationResult struct {
	SessionID  uuid.UUID         `json:"session_id"`
	Record     DecisionRecord    `json:"record"`
	Responses  Responses         `json:"responses"`
	Transcript []TranscriptEntry `json:"transcript"`
	TimedOut   []string          `json:"timed_out_rounds,omitempty"`
}

// Deliberation is a persisted deliberation.
type Deliberation struct {
	ID           uuid.UUID         `json:"id"`
	RequestID    string            `json:"request_id"`
	ExternalRef  string            `json:"external_ref,omitempty"`
	Profile      string            `json:"profile"`
	Application  *Application      `json:"application,omitempty"`
	Record       DecisionRecord    `json:"record"`
	Responses    Responses         `json:"responses"`
	Transcript   []TranscriptEntry `json:"transcript"`
	AgentStatus  AgentStatus       `json:"agent_status"`
	ProcessingMS int64             `json:"processing_ms"`
	CreatedAt    time.Time         `json:"created_at"`
}

// DeliberationStats aggregates persisted outcomes.
type DeliberationStats struct {
	Total           int64   `json:"total"`
	Approved        int64   `json:"approved"`
	Rejected        int64   `json:"rejected"`
	ApprovalRate    float64 `json:"approval_rate"`
	AvgProcessingMS float64 `json:"avg_processing_ms"`
}
