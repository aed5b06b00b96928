package models

type Group struct {
	ID   int64  `db:"id" json:"Id"`
	Name string `db:"group_name" json:"groupName"`
}
