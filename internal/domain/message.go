package domain

import (
	"errors"
	"fmt"
	"strings"
)

// AgentID identifies a participant in a deliberation session.
type AgentID string

const (
	AgentAcademic AgentID = "AcademicAgent"
	AgentFinance  AgentID = "FinanceAgent"
	AgentCritical AgentID = "CriticalAgent"
	AgentDecision AgentID = "DecisionAgent"

	// Coordinator is the orchestrator sentinel. Messages addressed to it are
	// recorded but never delivered.
	Coordinator AgentID = "coordinator"
)

// Role returns the conversation role used when rendering transcripts.
func (id AgentID) Role() string {
	switch id {
	case Coordinator:
		return "system"
	case AgentAcademic, AgentFinance:
		return "user"
	default:
		return "assistant"
	}
}

type MessageType string

const (
	MsgScholarshipApplication MessageType = "scholarship_application"
	MsgLoanApplication        MessageType = "loan_application"
	MsgScholarshipDecision    MessageType = "scholarship_decision"
	MsgLoanDecision           MessageType = "loan_decision"
	MsgRepredictScholarship   MessageType = "repredict_scholarship"
	MsgRepredictLoan          MessageType = "repredict_loan"
	MsgAggregateAll           MessageType = "aggregate_all"
	MsgFinalDecision          MessageType = "final_decision"
	MsgUnsupported            MessageType = "unsupported_message"

	criticalResponseSuffix = "_critical_response"
)

// CriticalResponseType returns the critique reply type for a reviewed decision type.
func CriticalResponseType(reviewed MessageType) MessageType {
	return MessageType(string(reviewed) + criticalResponseSuffix)
}

// IsCriticalResponse reports whether t is a critique reply.
func (t MessageType) IsCriticalResponse() bool {
	return strings.HasSuffix(string(t), criticalResponseSuffix)
}

// Reviewed returns the decision type a critique reply refers to.
func (t MessageType) Reviewed() MessageType {
	return MessageType(strings.TrimSuffix(string(t), criticalResponseSuffix))
}

var ErrInvalidMessage = errors.New("invalid message")

// Message is the unit of inter-agent communication. It is treated as
// immutable once routed.
type Message struct {
	Sender    AgentID     `json:"from"`
	Recipient AgentID     `json:"to"`
	Type      MessageType `json:"type"`
	Payload   Payload     `json:"payload"`
}

func (m Message) Validate() error {
	if m.Sender == "" {
		return fmt.Errorf("%w: empty sender", ErrInvalidMessage)
	}
	if m.Type == "" {
		return fmt.Errorf("%w: empty type", ErrInvalidMessage)
	}
	if m.Recipient == "" {
		return fmt.Errorf("%w: empty recipient", ErrInvalidMessage)
	}
	return nil
}

// Reply builds a message from the recipient of m back to its sender.
func (m Message) Reply(t MessageType, payload Payload) *Message {
	if payload == nil {
		payload = Payload{}
	}
	return &Message{
		Sender:    m.Recipient,
		Recipient: m.Sender,
		Type:      t,
		Payload:   payload,
	}
}

// Unsupported builds the standard reply for a message type the receiver
// does not handle.
func (m Message) Unsupported(reason string) *Message {
	return m.Reply(MsgUnsupported, Payload{
		"error":         reason,
		"original_type": string(m.Type),
	})
}

// Payload is a loosely typed message body. Accessors tolerate missing keys
// and mismatched types by returning zero values.
type Payload map[string]any

func (p Payload) String(key string) string {
	if p == nil {
		return ""
	}
	switch v := p[key].(type) {
	case string:
		return v
	case Decision:
		return string(v)
	case fmt.Stringer:
		return v.String()
	}
	return ""
}

// Bool returns the boolean at key and whether a boolean was present.
func (p Payload) Bool(key string) (bool, bool) {
	if p == nil {
		return false, false
	}
	v, ok := p[key].(bool)
	return v, ok
}

// Map returns the nested payload at key, or an empty payload.
func (p Payload) Map(key string) Payload {
	if p == nil {
		return Payload{}
	}
	switch v := p[key].(type) {
	case Payload:
		return v
	case map[string]any:
		return Payload(v)
	}
	return Payload{}
}

// Clone returns a shallow copy.
func (p Payload) Clone() Payload {
	out := make(Payload, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
