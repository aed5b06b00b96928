package models

type Homework struct {
	ID             int64  `db:"id" json:"Id"`
	TeacherID      int64  `db:"teacher_id" json:"teacherId"`
	Title          string `db:"title" json:"title"`
	Description    string `db:"description" json:"description"`
	ForAllStudents bool   `db:"for_all_students" json:"isforallstudents"`
	RequiresSubmit bool   `db:"requires_submit" json:"submit"`
	ReleaseTime    int64  `db:"release_time" json:"releasetime"`
	StopTime       int64  `db:"stop_time" json:"stoptime"`
}

type Submission struct {
	ID         int64  `db:"id" json:"submissionId"`
	HomeworkID int64  `db:"homework_id" json:"homeworkId"`
	StudentID  int64  `db:"student_id" json:"studentId"`
	Image      []byte `db:"submission" json:"-"`
	SubmitTime int64  `db:"submit_time" json:"time"`
	UpdateTime int64  `db:"update_time" json:"updatetime"`
}

type Check struct {
	ID           int64   `db:"id" json:"Id"`
	SubmissionID int64   `db:"submission_id" json:"submissionId"`
	TeacherID    int64   `db:"teacher_id" json:"teacherId"`
	Score        float64 `db:"score" json:"score"`
	Content      string  `db:"content" json:"content"`
	CheckImage   []byte  `db:"check_image" json:"-"`
	CreatedAt    int64   `db:"created_at" json:"createtime"`
}

// GradingRow is one entry of the grading queue: a submission joined with
// its homework, student and (optional) existing check.
type GradingRow struct {
	SubmissionID     int64    `db:"submission_id"`
	SubmitTime       int64    `db:"submit_time"`
	Image            []byte   `db:"submission"`
	HomeworkTitle    string   `db:"homework_title"`
	StudentFirstname string   `db:"student_firstname"`
	StudentLastname  string   `db:"student_lastname"`
	Score            *float64 `db:"score"`
	Comment          *string  `db:"content"`
}

func (g GradingRow) StudentName() string {
	return g.StudentLastname + g.StudentFirstname
}
