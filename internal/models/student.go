package models

type Student struct {
	ID        int64   `db:"id" json:"Id"`
	Firstname string  `db:"firstname" json:"firstname"`
	Lastname  string  `db:"lastname" json:"lastname"`
	Score     float64 `db:"score" json:"score"`
	GroupID   *int64  `db:"group_id" json:"groupId"`
	GroupName *string `db:"group_name" json:"groupName"`
}

// FullName follows the lastname-first convention used across the system.
func (s Student) FullName() string {
	return s.Lastname + s.Firstname
}
