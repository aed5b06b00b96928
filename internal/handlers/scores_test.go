package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beiya2414/classboard/internal/app"
	"github.com/beiya2414/classboard/internal/models"
	"github.com/beiya2414/classboard/internal/store/sqlite"
)

// fakeResolver maps fixed tokens to principals, no redis involved.
type fakeResolver struct {
	teachers map[string]*app.Principal
	screens  map[string]*app.ScreenSession
}

func (f *fakeResolver) CreateTeacherSession(_ context.Context, t *models.Teacher) (string, error) {
	token := "token-for-" + t.FullName()
	f.teachers[token] = &app.Principal{
		ID: t.ID, FullName: t.FullName(), Subject: t.Subject, IsAdmin: t.IsAdmin,
	}
	return token, nil
}

func (f *fakeResolver) ResolveTeacher(_ context.Context, token string) (*app.Principal, error) {
	p, ok := f.teachers[token]
	if !ok {
		return nil, app.ErrNoSession
	}
	return p, nil
}

func (f *fakeResolver) DeleteTeacherSession(_ context.Context, token string) error {
	delete(f.teachers, token)
	return nil
}

func (f *fakeResolver) CreateScreenSession(_ context.Context, screenID int64) (string, error) {
	return "screen-token", nil
}

func (f *fakeResolver) ResolveScreen(_ context.Context, token string) (*app.ScreenSession, error) {
	s, ok := f.screens[token]
	if !ok {
		return nil, app.ErrNoSession
	}
	return s, nil
}

func (f *fakeResolver) DeleteScreenSession(_ context.Context, token string) error { return nil }
func (f *fakeResolver) Close() error                                              { return nil }

type handlerFixture struct {
	service   *app.Service
	store     *sqlite.SQLiteStore
	resolver  *fakeResolver
	teacherID int64
	studentID int64
}

func setupHandlers(t *testing.T) (*handlerFixture, func()) {
	s, err := sqlite.NewSQLiteStore(":memory:")
	require.NoError(t, err, "Failed to create store")
	require.NoError(t, s.ApplyMigrations("../../migrations"), "Failed to apply migrations")

	config := &app.Config{}
	config.Server.Port = ":0"
	config.Auth.TeacherCookie = "token"
	config.Auth.ScreenCookie = "screen_token"

	resolver := &fakeResolver{
		teachers: map[string]*app.Principal{},
		screens:  map[string]*app.ScreenSession{},
	}
	service := app.NewServiceWith(config, s, resolver)

	teacherID, err := s.CreateTeacher("强", "王", "math", "hash", false)
	require.NoError(t, err)
	resolver.teachers["teacher-token"] = &app.Principal{
		ID: teacherID, FullName: "王强", Subject: "math",
	}
	studentID, err := s.CreateStudent("小明", "李", "hash")
	require.NoError(t, err)

	f := &handlerFixture{
		service:   service,
		store:     s,
		resolver:  resolver,
		teacherID: teacherID,
		studentID: studentID,
	}
	cleanup := func() {
		require.NoError(t, s.Close())
	}
	return f, cleanup
}

func doJSON(t *testing.T, handler http.HandlerFunc, method string, body interface{}, token string) (*httptest.ResponseRecorder, map[string]interface{}) {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, "/", &buf)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: "token", Value: token})
	}
	rec := httptest.NewRecorder()
	handler(rec, req)

	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &parsed))
	return rec, parsed
}

func TestApplyChangeRequiresLogin(t *testing.T) {
	f, cleanup := setupHandlers(t)
	defer cleanup()
	h := NewScoreHandler(f.service)

	rec, parsed := doJSON(t, h.HandleApplyChange, http.MethodPost, map[string]interface{}{
		"studentId": f.studentID, "reason": "custom", "customReason": "late", "change": -3,
	}, "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "error", parsed["status"])
}

func TestApplyAndUndoThroughHandlers(t *testing.T) {
	f, cleanup := setupHandlers(t)
	defer cleanup()
	h := NewScoreHandler(f.service)

	rec, parsed := doJSON(t, h.HandleApplyChange, http.MethodPost, map[string]interface{}{
		"studentId": f.studentID, "reason": "custom", "customReason": "late", "change": -3,
	}, "teacher-token")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", parsed["status"])
	assert.Equal(t, -3.0, parsed["change"])
	eventID := int64(parsed["Id"].(float64))

	student, err := f.store.GetStudent(f.studentID)
	require.NoError(t, err)
	assert.Equal(t, -3.0, student.Score)

	rec, parsed = doJSON(t, h.HandleUndo, http.MethodPost, map[string]interface{}{
		"Id": eventID,
	}, "teacher-token")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", parsed["status"])
	assert.Equal(t, 3.0, parsed["change"])

	student, err = f.store.GetStudent(f.studentID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, student.Score)

	// second undo hits the conflict path
	rec, parsed = doJSON(t, h.HandleUndo, http.MethodPost, map[string]interface{}{
		"Id": eventID,
	}, "teacher-token")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "error", parsed["status"])
}

func TestApplyChangeValidatesPayload(t *testing.T) {
	f, cleanup := setupHandlers(t)
	defer cleanup()
	h := NewScoreHandler(f.service)

	rec, parsed := doJSON(t, h.HandleApplyChange, http.MethodPost, map[string]interface{}{
		"reason": "custom", "customReason": "late",
	}, "teacher-token")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "error", parsed["status"])

	rec, _ = doJSON(t, h.HandleApplyChange, http.MethodPost, map[string]interface{}{
		"studentId": f.studentID, "reason": "custom", "customReason": "", "change": 1,
	}, "teacher-token")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = doJSON(t, h.HandleApplyChange, http.MethodPost, map[string]interface{}{
		"studentId": int64(99999), "reason": "custom", "customReason": "late", "change": 1,
	}, "teacher-token")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminLogRequiresAdmin(t *testing.T) {
	f, cleanup := setupHandlers(t)
	defer cleanup()
	h := NewScoreHandler(f.service)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: "teacher-token"})
	rec := httptest.NewRecorder()
	h.HandleAdminLog(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	f.resolver.teachers["admin-token"] = &app.Principal{ID: f.teacherID, FullName: "王强", IsAdmin: true}
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: "admin-token"})
	rec = httptest.NewRecorder()
	h.HandleAdminLog(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
