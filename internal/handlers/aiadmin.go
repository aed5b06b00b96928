package handlers

import (
	"net/http"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/beiya2414/classboard/internal/app"
)

// AIAdminHandler administers providers, models and quota grants.
type AIAdminHandler struct {
	service *app.Service
}

func NewAIAdminHandler(service *app.Service) *AIAdminHandler {
	return &AIAdminHandler{service: service}
}

func (h *AIAdminHandler) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	if _, err := h.service.AdminFromRequest(r); err != nil {
		writeError(w, http.StatusForbidden, "Admin required")
		return false
	}
	return true
}

// HandleInitData returns everything the AI administration page needs in
// one round trip: providers, models, grants and the teacher roster.
func (h *AIAdminHandler) HandleInitData(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}

	providers, err := h.service.Store.ListAIProviders()
	if err != nil {
		logger.Error.Printf("Failed to list providers: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch AI configuration")
		return
	}
	models, err := h.service.Store.ListAIModels()
	if err != nil {
		logger.Error.Printf("Failed to list models: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch AI configuration")
		return
	}
	grants, err := h.service.Store.ListAIGrants()
	if err != nil {
		logger.Error.Printf("Failed to list quota grants: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch AI configuration")
		return
	}
	teachers, err := h.service.Store.ListTeachers()
	if err != nil {
		logger.Error.Printf("Failed to list teachers: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch AI configuration")
		return
	}

	writeSuccess(w, map[string]interface{}{
		"providers": providers,
		"models":    models,
		"quotas":    grants,
		"teachers":  teachers,
	})
}

// --- providers

type providerRequest struct {
	Name     string  `json:"provider_name" validate:"required"`
	BaseURL  string  `json:"base_url" validate:"required,url"`
	APIKey   *string `json:"api_key"`
	IsActive bool    `json:"is_active"`
}

func (h *AIAdminHandler) HandleCreateProvider(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}

	var req providerRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if req.APIKey == nil || *req.APIKey == "" {
		writeError(w, http.StatusBadRequest, "API key is required")
		return
	}

	id, err := h.service.Store.CreateAIProvider(req.Name, req.BaseURL, *req.APIKey)
	if err != nil {
		logger.Error.Printf("Failed to create provider: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to create provider")
		return
	}

	writeSuccess(w, map[string]interface{}{"Id": id})
}

// HandleUpdateProvider updates a provider. An absent api_key keeps the
// stored credential, so the admin UI never has to echo secrets back.
func (h *AIAdminHandler) HandleUpdateProvider(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req providerRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	found, err := h.service.Store.UpdateAIProvider(id, req.Name, req.BaseURL, req.APIKey, req.IsActive)
	if err != nil {
		logger.Error.Printf("Failed to update provider %d: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Failed to update provider")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "Provider not found")
		return
	}

	writeSuccess(w, nil)
}

func (h *AIAdminHandler) HandleDeleteProvider(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	found, err := h.service.Store.DeleteAIProvider(id)
	if err != nil {
		logger.Error.Printf("Failed to delete provider %d: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Failed to delete provider")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "Provider not found")
		return
	}

	writeSuccess(w, nil)
}

// --- models

type modelRequest struct {
	Name       string `json:"model_name" validate:"required"`
	Alias      string `json:"model_alias" validate:"required"`
	ProviderID int64  `json:"provider_id"`
	IsActive   bool   `json:"is_active"`
}

func (h *AIAdminHandler) HandleCreateModel(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}

	var req modelRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if req.ProviderID <= 0 {
		writeError(w, http.StatusBadRequest, "Provider is required")
		return
	}

	id, err := h.service.Store.CreateAIModel(req.Name, req.Alias, req.ProviderID)
	if err != nil {
		logger.Error.Printf("Failed to create model: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to create model")
		return
	}

	writeSuccess(w, map[string]interface{}{"Id": id})
}

func (h *AIAdminHandler) HandleUpdateModel(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req modelRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	found, err := h.service.Store.UpdateAIModel(id, req.Name, req.Alias, req.IsActive)
	if err != nil {
		logger.Error.Printf("Failed to update model %d: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Failed to update model")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "Model not found")
		return
	}

	writeSuccess(w, nil)
}

func (h *AIAdminHandler) HandleDeleteModel(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	found, err := h.service.Store.DeleteAIModel(id)
	if err != nil {
		logger.Error.Printf("Failed to delete model %d: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Failed to delete model")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "Model not found")
		return
	}

	writeSuccess(w, nil)
}

// --- quota grants

type grantRequest struct {
	TeacherID  int64  `json:"teacherid" validate:"required"`
	ModelID    int64  `json:"modelid" validate:"required"`
	MaxQuota   int64  `json:"max_quota" validate:"min=0"`
	ExpireTime *int64 `json:"expire_time"`
	IsEnabled  bool   `json:"is_enabled"`
}

// HandleUpsertGrant creates or replaces the grant for one (teacher,
// model) pair. Max quota 0 grants unlimited use. The used counter is
// never reset here.
func (h *AIAdminHandler) HandleUpsertGrant(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}

	var req grantRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	err := h.service.Store.UpsertAIGrant(req.TeacherID, req.ModelID, req.MaxQuota, req.ExpireTime, req.IsEnabled)
	if err != nil {
		logger.Error.Printf("Failed to upsert quota grant: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to save quota grant")
		return
	}

	writeSuccess(w, nil)
}

func (h *AIAdminHandler) HandleDeleteGrant(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	found, err := h.service.Store.DeleteAIGrant(id)
	if err != nil {
		logger.Error.Printf("Failed to delete quota grant %d: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Failed to delete quota grant")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "Quota grant not found")
		return
	}

	writeSuccess(w, nil)
}
