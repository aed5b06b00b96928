package ai

import (
	"errors"
	"time"

	"github.com/beiya2414/classboard/internal/models"
	"github.com/beiya2414/classboard/internal/store"
)

var (
	ErrUnknownModel   = errors.New("model does not exist or is inactive")
	ErrNotAuthorized  = errors.New("no quota grant for this model")
	ErrSuspended      = errors.New("quota grant is disabled")
	ErrExpired        = errors.New("quota grant has expired")
	ErrQuotaExhausted = errors.New("quota exhausted")
)

// Grant is an authorization handle returned by Authorize and spent by
// Consume after a successful upstream call.
type Grant struct {
	ID         int64
	ModelID    int64
	ProviderID int64
	Alias      string
}

// Gate checks a teacher's authorization to call a model and meters
// usage. Quota is charged on successful use, never on attempt.
type Gate struct {
	store store.Store
	now   func() time.Time
}

func NewGate(st store.Store) *Gate {
	return &Gate{store: st, now: time.Now}
}

// Authorize resolves the alias to a model and grant and checks, in
// order: model active, grant present, grant enabled, grant unexpired,
// quota left. MaxQuota 0 means unlimited.
func (g *Gate) Authorize(teacherID int64, alias string) (*Grant, error) {
	model, err := g.store.GetAIModelByAlias(alias)
	if err != nil {
		return nil, err
	}
	if model == nil || !model.IsActive {
		return nil, ErrUnknownModel
	}

	grant, err := g.store.GetAIGrant(teacherID, model.ID)
	if err != nil {
		return nil, err
	}
	if grant == nil {
		return nil, ErrNotAuthorized
	}
	if !grant.IsEnabled {
		return nil, ErrSuspended
	}
	if grant.ExpireTime != nil && *grant.ExpireTime <= g.now().Unix() {
		return nil, ErrExpired
	}
	if grant.MaxQuota > 0 && grant.UsedQuota >= grant.MaxQuota {
		return nil, ErrQuotaExhausted
	}

	return &Grant{
		ID:         grant.ID,
		ModelID:    model.ID,
		ProviderID: model.ProviderID,
		Alias:      alias,
	}, nil
}

// Consume charges one usage unit against the grant.
func (g *Gate) Consume(grant *Grant) error {
	return g.store.ConsumeAIQuota(grant.ID)
}

// ListAvailable returns the models the teacher can still call.
func (g *Gate) ListAvailable(teacherID int64) ([]models.AvailableModel, error) {
	return g.store.ListAvailableModels(teacherID, g.now().Unix())
}
