package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type DeliberationStore interface {
	Create(ctx context.Context, d *Deliberation) error
	GetByID(ctx context.Context, id uuid.UUID) (*Deliberation, error)
	List(ctx context.Context, limit int) ([]Deliberation, error)
	Stats(ctx context.Context) (*DeliberationStats, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// CompletionRequest is a single prompt sent to the completion service.
type CompletionRequest struct {
	Prompt    string
	MaxTokens int
}

// CompletionClient turns a prompt into model text. Implementations must be
// safe for concurrent use.
type CompletionClient interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}
