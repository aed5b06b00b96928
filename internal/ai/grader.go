package ai

import (
	"context"
	"errors"

	"github.com/beiya2414/classboard/internal/store"
)

var ErrProviderUnavailable = errors.New("provider missing or inactive")

// Grader is the ask-AI pipeline: authorize, resolve provider, call
// upstream, then charge quota. Any stage failing aborts the whole
// operation with quota untouched; there are no retries.
type Grader struct {
	gate   *Gate
	client *Client
	store  store.Store
}

func NewGrader(st store.Store) *Grader {
	return &Grader{
		gate:   NewGate(st),
		client: NewClient(),
		store:  st,
	}
}

func (g *Grader) Gate() *Gate { return g.gate }

func (g *Grader) Ask(ctx context.Context, teacherID int64, alias, prompt, imageData string) (string, error) {
	grant, err := g.gate.Authorize(teacherID, alias)
	if err != nil {
		return "", err
	}

	provider, err := g.store.GetAIProvider(grant.ProviderID)
	if err != nil {
		return "", err
	}
	if provider == nil || !provider.IsActive {
		return "", ErrProviderUnavailable
	}

	reply, err := g.client.Complete(ctx, ProviderConfig{
		BaseURL: provider.BaseURL,
		APIKey:  provider.APIKey,
	}, alias, prompt, imageData)
	if err != nil {
		return "", err
	}

	if err := g.gate.Consume(grant); err != nil {
		return "", err
	}

	return reply, nil
}
