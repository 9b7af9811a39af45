package coordinator

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Harshitk-cp/loancouncil/internal/domain"
)

// Transcript is the append-only log of one session's routed messages.
// Appends are serialized so concurrent evaluators keep a single order.
type Transcript struct {
	mu      sync.Mutex
	entries []domain.TranscriptEntry
	now     func() time.Time
}

func NewTranscript() *Transcript {
	return &Transcript{now: time.Now}
}

// Append records msg and returns its sequence number, starting at 1.
func (t *Transcript) Append(msg domain.Message, delivery domain.Delivery) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	seq := len(t.entries) + 1
	t.entries = append(t.entries, domain.TranscriptEntry{
		Seq:      seq,
		Message:  msg,
		RoutedAt: t.now().UTC(),
		Delivery: delivery,
	})
	return seq
}

// Entries returns a copy of the log in routing order.
func (t *Transcript) Entries() []domain.TranscriptEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]domain.TranscriptEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Messages returns the routed messages without routing metadata.
func (t *Transcript) Messages() []domain.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]domain.Message, len(t.entries))
	for i, e := range t.entries {
		out[i] = e.Message
	}
	return out
}

// Find returns the entries for which keep reports true.
func (t *Transcript) Find(keep func(domain.TranscriptEntry) bool) []domain.TranscriptEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []domain.TranscriptEntry
	for _, e := range t.entries {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

// Excerpt renders the messages sent or received by any of ids as plain
// lines, for feeding back into a repredict prompt. No ids means all.
func (t *Transcript) Excerpt(ids ...domain.AgentID) string {
	involved := func(m domain.Message) bool {
		if len(ids) == 0 {
			return true
		}
		for _, id := range ids {
			if m.Sender == id || m.Recipient == id {
				return true
			}
		}
		return false
	}

	var b strings.Builder
	for _, e := range t.Find(func(e domain.TranscriptEntry) bool { return involved(e.Message) }) {
		m := e.Message
		fmt.Fprintf(&b, "%s -> %s [%s]", m.Sender, m.Recipient, m.Type)
		if summary := summarize(m.Payload); summary != "" {
			b.WriteString(": ")
			b.WriteString(summary)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func summarize(p domain.Payload) string {
	var parts []string
	for _, key := range []string{"decision", "recommended_decision", "reason", "critical_response"} {
		if v := strings.TrimSpace(p.String(key)); v != "" {
			parts = append(parts, key+"="+v)
		}
	}
	return strings.Join(parts, "; ")
}
