package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beiya2414/classboard/internal/app"
)

func asAdmin(f *handlerFixture) string {
	f.resolver.teachers["admin-token"] = &app.Principal{
		ID: f.teacherID, FullName: "王强", IsAdmin: true,
	}
	return "admin-token"
}

func TestCreateScoreTypeAcceptsZeroDelta(t *testing.T) {
	f, cleanup := setupHandlers(t)
	defer cleanup()
	h := NewAdminHandler(f.service)
	token := asAdmin(f)

	// zero-point reasons are valid catalog entries, attendance marks
	// and neutral notes carry no score change
	rec, parsed := doJSON(t, h.HandleCreateScoreType, http.MethodPost, map[string]interface{}{
		"name": "attendance noted", "change": 0,
	}, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", parsed["status"])

	types, err := f.store.ListScoreChangeTypes()
	require.NoError(t, err)
	require.Len(t, types, 1)
	assert.Equal(t, "attendance noted", types[0].Name)
	assert.Equal(t, 0.0, types[0].Delta)
}

func TestCreateScoreTypeRequiresName(t *testing.T) {
	f, cleanup := setupHandlers(t)
	defer cleanup()
	h := NewAdminHandler(f.service)
	token := asAdmin(f)

	rec, parsed := doJSON(t, h.HandleCreateScoreType, http.MethodPost, map[string]interface{}{
		"change": 1,
	}, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "error", parsed["status"])
}
