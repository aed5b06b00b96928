package models

type Teacher struct {
	ID        int64  `db:"id" json:"Id"`
	Firstname string `db:"firstname" json:"firstname"`
	Lastname  string `db:"lastname" json:"lastname"`
	Subject   string `db:"subject" json:"subject"`
	Password  string `db:"password" json:"-"`
	IsAdmin   bool   `db:"is_admin" json:"isAdmin"`
}

func (t Teacher) FullName() string {
	return t.Lastname + t.Firstname
}

type Screen struct {
	ID       int64  `db:"id" json:"Id"`
	Password string `db:"password" json:"-"`
}
