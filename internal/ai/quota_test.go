package ai

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beiya2414/classboard/internal/store/sqlite"
)

type gateFixture struct {
	store     *sqlite.SQLiteStore
	gate      *Gate
	teacherID int64
	modelID   int64
}

func setupGate(t *testing.T) (*gateFixture, func()) {
	s, err := sqlite.NewSQLiteStore(":memory:")
	require.NoError(t, err, "Failed to create store")
	require.NoError(t, s.ApplyMigrations("../../migrations"), "Failed to apply migrations")

	teacherID, err := s.CreateTeacher("强", "王", "math", "hash", false)
	require.NoError(t, err)
	providerID, err := s.CreateAIProvider("openai", "https://api.example.com/v1", "sk-test")
	require.NoError(t, err)
	modelID, err := s.CreateAIModel("gpt-4o-mini", "grader-v1", providerID)
	require.NoError(t, err)

	f := &gateFixture{
		store:     s,
		gate:      NewGate(s),
		teacherID: teacherID,
		modelID:   modelID,
	}
	cleanup := func() {
		require.NoError(t, s.Close())
	}
	return f, cleanup
}

func (f *gateFixture) grant(t *testing.T, maxQuota int64, expireTime *int64, enabled bool) {
	require.NoError(t, f.store.UpsertAIGrant(f.teacherID, f.modelID, maxQuota, expireTime, enabled))
}

func (f *gateFixture) setUsed(t *testing.T, used int64) {
	_, err := f.store.DB.Exec(
		"UPDATE ai_quotas SET used_quota = ? WHERE teacher_id = ? AND model_id = ?",
		used, f.teacherID, f.modelID,
	)
	require.NoError(t, err)
}

func TestAuthorizeUnknownModel(t *testing.T) {
	f, cleanup := setupGate(t)
	defer cleanup()

	_, err := f.gate.Authorize(f.teacherID, "no-such-model")
	assert.ErrorIs(t, err, ErrUnknownModel)

	// an inactive model is as good as absent
	found, err := f.store.UpdateAIModel(f.modelID, "gpt-4o-mini", "grader-v1", false)
	require.NoError(t, err)
	require.True(t, found)
	f.grant(t, 0, nil, true)

	_, err = f.gate.Authorize(f.teacherID, "grader-v1")
	assert.ErrorIs(t, err, ErrUnknownModel)
}

func TestAuthorizeWithoutGrant(t *testing.T) {
	f, cleanup := setupGate(t)
	defer cleanup()

	_, err := f.gate.Authorize(f.teacherID, "grader-v1")
	assert.ErrorIs(t, err, ErrNotAuthorized)
}

func TestAuthorizeSuspended(t *testing.T) {
	f, cleanup := setupGate(t)
	defer cleanup()

	f.grant(t, 10, nil, false)
	_, err := f.gate.Authorize(f.teacherID, "grader-v1")
	assert.ErrorIs(t, err, ErrSuspended)
}

func TestAuthorizeExpired(t *testing.T) {
	f, cleanup := setupGate(t)
	defer cleanup()

	past := time.Now().Add(-time.Hour).Unix()
	f.grant(t, 10, &past, true)
	_, err := f.gate.Authorize(f.teacherID, "grader-v1")
	assert.ErrorIs(t, err, ErrExpired)
}

func TestAuthorizeQuotaExhausted(t *testing.T) {
	f, cleanup := setupGate(t)
	defer cleanup()

	f.grant(t, 3, nil, true)
	f.setUsed(t, 3)
	_, err := f.gate.Authorize(f.teacherID, "grader-v1")
	assert.ErrorIs(t, err, ErrQuotaExhausted)
}

func TestAuthorizeUnlimitedQuota(t *testing.T) {
	f, cleanup := setupGate(t)
	defer cleanup()

	f.grant(t, 0, nil, true)
	f.setUsed(t, 1000000)

	grant, err := f.gate.Authorize(f.teacherID, "grader-v1")
	require.NoError(t, err)
	assert.Equal(t, f.modelID, grant.ModelID)
	assert.Equal(t, "grader-v1", grant.Alias)
}

func TestConsumeIncrementsUsage(t *testing.T) {
	f, cleanup := setupGate(t)
	defer cleanup()

	f.grant(t, 3, nil, true)
	grant, err := f.gate.Authorize(f.teacherID, "grader-v1")
	require.NoError(t, err)

	require.NoError(t, f.gate.Consume(grant))
	require.NoError(t, f.gate.Consume(grant))

	stored, err := f.store.GetAIGrant(f.teacherID, f.modelID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, int64(2), stored.UsedQuota)
}

func TestListAvailableFiltersOut(t *testing.T) {
	f, cleanup := setupGate(t)
	defer cleanup()

	f.grant(t, 3, nil, true)

	available, err := f.gate.ListAvailable(f.teacherID)
	require.NoError(t, err)
	require.Len(t, available, 1)
	assert.Equal(t, "grader-v1", available[0].Alias)

	f.setUsed(t, 3)
	available, err = f.gate.ListAvailable(f.teacherID)
	require.NoError(t, err)
	assert.Empty(t, available)
}
