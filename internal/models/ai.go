package models

type AIProvider struct {
	ID       int64  `db:"id" json:"Id"`
	Name     string `db:"provider_name" json:"provider_name"`
	BaseURL  string `db:"base_url" json:"base_url"`
	APIKey   string `db:"api_key" json:"-"`
	IsActive bool   `db:"is_active" json:"is_active"`
}

type AIModel struct {
	ID         int64  `db:"id" json:"Id"`
	ProviderID int64  `db:"provider_id" json:"provider_id"`
	Name       string `db:"model_name" json:"model_name"`
	Alias      string `db:"model_alias" json:"model_alias"`
	IsActive   bool   `db:"is_active" json:"is_active"`
}

// AIGrant is a teacher's authorization to call one model. MaxQuota 0
// means unlimited.
type AIGrant struct {
	ID         int64  `db:"id" json:"Id"`
	TeacherID  int64  `db:"teacher_id" json:"teacherid"`
	ModelID    int64  `db:"model_id" json:"modelid"`
	MaxQuota   int64  `db:"max_quota" json:"max_quota"`
	UsedQuota  int64  `db:"used_quota" json:"used_quota"`
	IsEnabled  bool   `db:"is_enabled" json:"is_enabled"`
	ExpireTime *int64 `db:"expire_time" json:"expire_time"`
}

// AvailableModel is the read-side shape for the model picker.
type AvailableModel struct {
	Alias     string `db:"model_alias" json:"model_alias"`
	Name      string `db:"model_name" json:"model_name"`
	UsedQuota int64  `db:"used_quota" json:"used_quota"`
	MaxQuota  int64  `db:"max_quota" json:"max_quota"`
}
