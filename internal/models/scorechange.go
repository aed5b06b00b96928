package models

// ScoreChange is one row of the append-only score log. Rows are never
// updated or deleted; a student's score must always equal the sum of
// deltas over their rows.
type ScoreChange struct {
	ID        int64   `db:"id" json:"Id"`
	TeacherID int64   `db:"teacher_id" json:"teacherId"`
	StudentID int64   `db:"student_id" json:"studentId"`
	Reason    string  `db:"reason" json:"reason"`
	Delta     float64 `db:"delta" json:"change"`
	UndoOf    *int64  `db:"undo_of" json:"undoOf,omitempty"`
	CreatedAt int64   `db:"created_at" json:"timestamp"`
}

type ScoreChangeType struct {
	ID        int64   `db:"id" json:"Id"`
	Name      string  `db:"name" json:"name"`
	Delta     float64 `db:"delta" json:"change"`
	CreatedAt int64   `db:"created_at" json:"timestamp"`
}

// ScoreChangeRow is the joined read-side shape of a log entry. Name
// columns are blank when the referenced teacher or student has since
// been deleted.
type ScoreChangeRow struct {
	ScoreChange
	TeacherFirstname string  `db:"teacher_firstname" json:"-"`
	TeacherLastname  string  `db:"teacher_lastname" json:"-"`
	StudentFirstname string  `db:"student_firstname" json:"-"`
	StudentLastname  string  `db:"student_lastname" json:"-"`
	ReasonTypeName   *string `db:"reason_type_name" json:"-"`
}

func (r ScoreChangeRow) TeacherName() string {
	return r.TeacherLastname + r.TeacherFirstname
}

func (r ScoreChangeRow) StudentName() string {
	return r.StudentLastname + r.StudentFirstname
}
