package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beiya2414/classboard/internal/store/sqlite"
)

type graderFixture struct {
	store     *sqlite.SQLiteStore
	grader    *Grader
	teacherID int64
	modelID   int64
}

func setupGrader(t *testing.T, baseURL string) (*graderFixture, func()) {
	s, err := sqlite.NewSQLiteStore(":memory:")
	require.NoError(t, err, "Failed to create store")
	require.NoError(t, s.ApplyMigrations("../../migrations"), "Failed to apply migrations")

	teacherID, err := s.CreateTeacher("强", "王", "math", "hash", false)
	require.NoError(t, err)
	providerID, err := s.CreateAIProvider("upstream", baseURL, "sk-test")
	require.NoError(t, err)
	modelID, err := s.CreateAIModel("gpt-4o-mini", "grader-v1", providerID)
	require.NoError(t, err)

	f := &graderFixture{
		store:     s,
		grader:    NewGrader(s),
		teacherID: teacherID,
		modelID:   modelID,
	}
	cleanup := func() {
		require.NoError(t, s.Close())
	}
	return f, cleanup
}

func (f *graderFixture) usedQuota(t *testing.T) int64 {
	grant, err := f.store.GetAIGrant(f.teacherID, f.modelID)
	require.NoError(t, err)
	require.NotNil(t, grant)
	return grant.UsedQuota
}

func TestAskConsumesQuotaOnSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": "looks correct"}},
			},
		})
	}))
	defer server.Close()

	f, cleanup := setupGrader(t, server.URL)
	defer cleanup()
	require.NoError(t, f.store.UpsertAIGrant(f.teacherID, f.modelID, 5, nil, true))

	reply, err := f.grader.Ask(context.Background(), f.teacherID, "grader-v1", "grade this", "")
	require.NoError(t, err)
	assert.Equal(t, "looks correct", reply)
	assert.Equal(t, int64(1), f.usedQuota(t))
}

func TestAskUpstreamFailureLeavesQuotaUntouched(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]string{"message": "boom"},
		})
	}))
	defer server.Close()

	f, cleanup := setupGrader(t, server.URL)
	defer cleanup()
	require.NoError(t, f.store.UpsertAIGrant(f.teacherID, f.modelID, 0, nil, true))

	_, err := f.grader.Ask(context.Background(), f.teacherID, "grader-v1", "grade this", "")

	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, int64(0), f.usedQuota(t))
}

func TestAskExhaustedQuotaSkipsUpstream(t *testing.T) {
	var called bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	f, cleanup := setupGrader(t, server.URL)
	defer cleanup()
	require.NoError(t, f.store.UpsertAIGrant(f.teacherID, f.modelID, 5, nil, true))
	_, err := f.store.DB.Exec(
		"UPDATE ai_quotas SET used_quota = 5 WHERE teacher_id = ? AND model_id = ?",
		f.teacherID, f.modelID,
	)
	require.NoError(t, err)

	_, err = f.grader.Ask(context.Background(), f.teacherID, "grader-v1", "grade this", "")
	assert.ErrorIs(t, err, ErrQuotaExhausted)
	assert.False(t, called, "upstream must not be called when quota is exhausted")
	assert.Equal(t, int64(5), f.usedQuota(t))
}

func TestAskInactiveProvider(t *testing.T) {
	f, cleanup := setupGrader(t, "http://localhost:1")
	defer cleanup()
	require.NoError(t, f.store.UpsertAIGrant(f.teacherID, f.modelID, 0, nil, true))

	providers, err := f.store.ListAIProviders()
	require.NoError(t, err)
	require.Len(t, providers, 1)
	found, err := f.store.UpdateAIProvider(providers[0].ID, "upstream", "http://localhost:1", nil, false)
	require.NoError(t, err)
	require.True(t, found)

	_, err = f.grader.Ask(context.Background(), f.teacherID, "grader-v1", "grade this", "")
	assert.ErrorIs(t, err, ErrProviderUnavailable)
	assert.Equal(t, int64(0), f.usedQuota(t))
}
