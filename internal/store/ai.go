package store

import (
	"database/sql"
	"fmt"

	"github.com/beiya2414/classboard/internal/models"
)

func (s *BaseStore) GetAIModelByAlias(alias string) (*models.AIModel, error) {
	var m models.AIModel
	query := s.Converter(`
		SELECT id, provider_id, model_name, model_alias, is_active
		FROM ai_models
		WHERE model_alias = ?
	`)

	err := s.DB.Get(&m, query, alias)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get model: %w", err)
	}
	return &m, nil
}

func (s *BaseStore) GetAIGrant(teacherID, modelID int64) (*models.AIGrant, error) {
	var g models.AIGrant
	query := s.Converter(`
		SELECT id, teacher_id, model_id, max_quota, used_quota, is_enabled, expire_time
		FROM ai_quotas
		WHERE teacher_id = ? AND model_id = ?
	`)

	err := s.DB.Get(&g, query, teacherID, modelID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get quota grant: %w", err)
	}
	return &g, nil
}

func (s *BaseStore) GetAIProvider(id int64) (*models.AIProvider, error) {
	var p models.AIProvider
	query := s.Converter(`
		SELECT id, provider_name, base_url, api_key, is_active
		FROM ai_providers
		WHERE id = ?
	`)

	err := s.DB.Get(&p, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get provider: %w", err)
	}
	return &p, nil
}

// ListAvailableModels returns the models a teacher can still call:
// enabled, unexpired grants on active models with remaining quota.
func (s *BaseStore) ListAvailableModels(teacherID, now int64) ([]models.AvailableModel, error) {
	var available []models.AvailableModel
	query := s.Converter(`
		SELECT m.model_alias, m.model_name, q.used_quota, q.max_quota
		FROM ai_quotas q
		JOIN ai_models m ON q.model_id = m.id
		WHERE q.teacher_id = ?
		AND q.is_enabled = TRUE
		AND m.is_active = TRUE
		AND (q.expire_time IS NULL OR q.expire_time > ?)
		AND (q.max_quota = 0 OR q.used_quota < q.max_quota)
		ORDER BY m.model_alias
	`)

	if err := s.DB.Select(&available, query, teacherID, now); err != nil {
		return nil, fmt.Errorf("failed to list available models: %w", err)
	}
	return available, nil
}

func (s *BaseStore) ConsumeAIQuota(grantID int64) error {
	_, err := s.DB.Exec(
		s.Converter(`UPDATE ai_quotas SET used_quota = used_quota + 1 WHERE id = ?`),
		grantID,
	)
	if err != nil {
		return fmt.Errorf("failed to consume quota: %w", err)
	}
	return nil
}

func (s *BaseStore) ListAIProviders() ([]models.AIProvider, error) {
	var providers []models.AIProvider
	err := s.DB.Select(&providers, `
		SELECT id, provider_name, base_url, api_key, is_active
		FROM ai_providers
		ORDER BY id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list providers: %w", err)
	}
	return providers, nil
}

func (s *BaseStore) CreateAIProvider(name, baseURL, apiKey string) (int64, error) {
	tx, err := s.DB.Beginx()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	id, err := s.InsertID(tx, s.Converter(`
		INSERT INTO ai_providers (provider_name, base_url, api_key) VALUES (?, ?, ?)
	`), name, baseURL, apiKey)
	if err != nil {
		return 0, fmt.Errorf("failed to create provider: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit provider: %w", err)
	}
	return id, nil
}

// UpdateAIProvider updates a provider; a nil apiKey keeps the stored key.
func (s *BaseStore) UpdateAIProvider(id int64, name, baseURL string, apiKey *string, isActive bool) (bool, error) {
	var (
		res sql.Result
		err error
	)
	if apiKey == nil {
		res, err = s.DB.Exec(
			s.Converter(`UPDATE ai_providers SET provider_name = ?, base_url = ?, is_active = ? WHERE id = ?`),
			name, baseURL, isActive, id,
		)
	} else {
		res, err = s.DB.Exec(
			s.Converter(`UPDATE ai_providers SET provider_name = ?, base_url = ?, api_key = ?, is_active = ? WHERE id = ?`),
			name, baseURL, *apiKey, isActive, id,
		)
	}
	if err != nil {
		return false, fmt.Errorf("failed to update provider: %w", err)
	}
	affected, _ := res.RowsAffected()
	return affected > 0, nil
}

func (s *BaseStore) DeleteAIProvider(id int64) (bool, error) {
	res, err := s.DB.Exec(s.Converter(`DELETE FROM ai_providers WHERE id = ?`), id)
	if err != nil {
		return false, fmt.Errorf("failed to delete provider: %w", err)
	}
	affected, _ := res.RowsAffected()
	return affected > 0, nil
}

func (s *BaseStore) ListAIModels() ([]AIModelRow, error) {
	var rows []AIModelRow
	err := s.DB.Select(&rows, `
		SELECT m.id, m.provider_id, m.model_name, m.model_alias, m.is_active, p.provider_name
		FROM ai_models m
		LEFT JOIN ai_providers p ON m.provider_id = p.id
		ORDER BY m.id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	return rows, nil
}

func (s *BaseStore) CreateAIModel(name, alias string, providerID int64) (int64, error) {
	tx, err := s.DB.Beginx()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	id, err := s.InsertID(tx, s.Converter(`
		INSERT INTO ai_models (model_name, model_alias, provider_id) VALUES (?, ?, ?)
	`), name, alias, providerID)
	if err != nil {
		return 0, fmt.Errorf("failed to create model: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit model: %w", err)
	}
	return id, nil
}

func (s *BaseStore) UpdateAIModel(id int64, name, alias string, isActive bool) (bool, error) {
	res, err := s.DB.Exec(
		s.Converter(`UPDATE ai_models SET model_name = ?, model_alias = ?, is_active = ? WHERE id = ?`),
		name, alias, isActive, id,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update model: %w", err)
	}
	affected, _ := res.RowsAffected()
	return affected > 0, nil
}

func (s *BaseStore) DeleteAIModel(id int64) (bool, error) {
	res, err := s.DB.Exec(s.Converter(`DELETE FROM ai_models WHERE id = ?`), id)
	if err != nil {
		return false, fmt.Errorf("failed to delete model: %w", err)
	}
	affected, _ := res.RowsAffected()
	return affected > 0, nil
}

func (s *BaseStore) ListAIGrants() ([]AIGrantRow, error) {
	var rows []AIGrantRow
	err := s.DB.Select(&rows, `
		SELECT q.id, q.teacher_id, q.model_id, q.max_quota, q.used_quota, q.is_enabled, q.expire_time,
			t.firstname, t.lastname, m.model_name
		FROM ai_quotas q
		JOIN teachers t ON q.teacher_id = t.id
		JOIN ai_models m ON q.model_id = m.id
		ORDER BY q.id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list quota grants: %w", err)
	}
	return rows, nil
}

// UpsertAIGrant creates or replaces the grant keyed on (teacher, model).
// The used counter survives updates; only administrative reset clears it.
func (s *BaseStore) UpsertAIGrant(teacherID, modelID, maxQuota int64, expireTime *int64, isEnabled bool) error {
	_, err := s.DB.Exec(s.Converter(`
		INSERT INTO ai_quotas (teacher_id, model_id, max_quota, expire_time, is_enabled)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (teacher_id, model_id) DO UPDATE SET
		max_quota = excluded.max_quota,
		expire_time = excluded.expire_time,
		is_enabled = excluded.is_enabled
	`), teacherID, modelID, maxQuota, expireTime, isEnabled)
	if err != nil {
		return fmt.Errorf("failed to upsert quota grant: %w", err)
	}
	return nil
}

func (s *BaseStore) DeleteAIGrant(id int64) (bool, error) {
	res, err := s.DB.Exec(s.Converter(`DELETE FROM ai_quotas WHERE id = ?`), id)
	if err != nil {
		return false, fmt.Errorf("failed to delete quota grant: %w", err)
	}
	affected, _ := res.RowsAffected()
	return affected > 0, nil
}
