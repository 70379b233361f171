package handlers

import (
	"context"

	"github.com/nbisweden/lega-e2e/internal/models"
	"github.com/nbisweden/lega-e2e/internal/store"
)

// AttemptLister reads the results journal.
type AttemptLister interface {
	List(ctx context.Context, opts ...store.ListOption) ([]models.Attempt, error)
	Count(ctx context.Context, opts ...store.ListOption) (int, error)
}

// Pinger reports whether a backing service answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	attempts AttemptLister
	health   Pinger
}

func New(attempts AttemptLister, health Pinger) *Handler {
	return &Handler{
		attempts: attempts,
		health:   health,
	}
}
