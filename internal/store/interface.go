package store

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/beiya2414/classboard/internal/models"
)

var (
	// ErrNoStudent is returned when a score mutation targets a student
	// that does not exist (the balance update touched zero rows).
	ErrNoStudent = errors.New("student not found")
	// ErrDuplicateUndo is returned when inserting a compensating row
	// hits the unique undo_of constraint.
	ErrDuplicateUndo = errors.New("change already undone")
)

// ChangeFilter narrows a score log listing. Zero values mean "no filter".
type ChangeFilter struct {
	TeacherID int64
	StudentID int64
	Reason    string
	Start     int64
	End       int64
	Offset    int
	Limit     int
}

// GradingFilter narrows the grading queue listing.
type GradingFilter struct {
	StudentName string
	DayStart    int64
	DayEnd      int64
	Status      string // "all", "graded" or "ungraded"
}

// SubmissionView is a submission joined with its homework and student,
// for the teacher-facing single-submission view.
type SubmissionView struct {
	Image      []byte `db:"submission"`
	Title      string `db:"title"`
	StudentID  int64  `db:"student_id"`
	Firstname  string `db:"firstname"`
	Lastname   string `db:"lastname"`
	UpdateTime int64  `db:"update_time"`
}

// SubmissionStatus pairs a student with their (possibly absent)
// submission for one homework.
type SubmissionStatus struct {
	StudentID    int64   `db:"student_id"`
	Firstname    string  `db:"firstname"`
	Lastname     string  `db:"lastname"`
	SubmissionID *int64  `db:"submission_id"`
	SubmitTime   *int64  `db:"submit_time"`
	UpdateTime   *int64  `db:"update_time"`
}

// AIModelRow is a model joined with its provider name, for administration.
type AIModelRow struct {
	models.AIModel
	ProviderName string `db:"provider_name"`
}

// AIGrantRow is a quota grant joined with teacher and model names.
type AIGrantRow struct {
	models.AIGrant
	TeacherFirstname string `db:"firstname"`
	TeacherLastname  string `db:"lastname"`
	ModelName        string `db:"model_name"`
}

type Store interface {
	Close() error
	ApplyMigrations(dir string) error

	// score ledger
	ApplyScoreChange(change *models.ScoreChange) (int64, error)
	GetScoreChange(id int64) (*models.ScoreChange, error)
	HasUndoFor(id int64) (bool, error)
	ListScoreChanges(f ChangeFilter) ([]models.ScoreChangeRow, bool, error)
	ListDistinctReasons() ([]string, error)

	// reason catalog
	ListScoreChangeTypes() ([]models.ScoreChangeType, error)
	GetScoreChangeType(id int64) (*models.ScoreChangeType, error)
	CreateScoreChangeType(name string, delta float64, now int64) (int64, error)
	UpdateScoreChangeType(id int64, name string, delta float64, now int64) (bool, error)
	DeleteScoreChangeType(id int64) (bool, error)

	// students, teachers, groups, screens
	GetStudent(id int64) (*models.Student, error)
	ListStudents(orderBy string) ([]models.Student, error)
	CreateStudent(firstname, lastname, passwordHash string) (int64, error)
	UpdateStudent(id int64, firstname, lastname, passwordHash *string, score *float64) (bool, error)
	DeleteStudent(id int64) (bool, error)
	AssignStudentGroup(id int64, groupID *int64) (bool, error)
	GetTeacher(id int64) (*models.Teacher, error)
	ListTeachers() ([]models.Teacher, error)
	CreateTeacher(firstname, lastname, subject, passwordHash string, isAdmin bool) (int64, error)
	UpdateTeacher(id int64, firstname, lastname, subject, passwordHash *string, isAdmin *bool) (bool, error)
	DeleteTeacher(id int64) (bool, error)
	ListGroups() ([]models.Group, error)
	CreateGroup(name string) (int64, error)
	RenameGroup(id int64, name string) (bool, error)
	DeleteGroup(id int64) (bool, error)
	GetScreen(id int64) (*models.Screen, error)

	// homework
	CreateHomework(h *models.Homework) (int64, error)
	UpdateHomework(id, teacherID int64, title, description *string, stopTime *int64) (bool, error)
	DeleteHomework(id, teacherID int64) (bool, error)
	ListHomeworkByTeacher(teacherID int64) ([]models.Homework, error)
	GetHomeworkForTeacher(id, teacherID int64) (*models.Homework, error)
	ListActiveHomework(now int64) ([]models.Homework, error)
	ListSubmissionStatuses(homeworkID int64) ([]SubmissionStatus, error)
	GetSubmission(id int64) (*models.Submission, error)
	GetSubmissionForTeacher(id, teacherID int64) (*SubmissionView, error)
	UpsertSubmission(homeworkID, studentID int64, image []byte, now int64) error
	ListGradingQueue(subject string, f GradingFilter) ([]models.GradingRow, error)
	UpsertCheck(submissionID, teacherID int64, score float64, content string, image []byte, now int64) error

	// ai providers, models, quotas
	GetAIModelByAlias(alias string) (*models.AIModel, error)
	GetAIGrant(teacherID, modelID int64) (*models.AIGrant, error)
	GetAIProvider(id int64) (*models.AIProvider, error)
	ListAvailableModels(teacherID, now int64) ([]models.AvailableModel, error)
	ConsumeAIQuota(grantID int64) error
	ListAIProviders() ([]models.AIProvider, error)
	CreateAIProvider(name, baseURL, apiKey string) (int64, error)
	UpdateAIProvider(id int64, name, baseURL string, apiKey *string, isActive bool) (bool, error)
	DeleteAIProvider(id int64) (bool, error)
	ListAIModels() ([]AIModelRow, error)
	CreateAIModel(name, alias string, providerID int64) (int64, error)
	UpdateAIModel(id int64, name, alias string, isActive bool) (bool, error)
	DeleteAIModel(id int64) (bool, error)
	ListAIGrants() ([]AIGrantRow, error)
	UpsertAIGrant(teacherID, modelID, maxQuota int64, expireTime *int64, isEnabled bool) error
	DeleteAIGrant(id int64) (bool, error)
}

// BaseStore provides common functionality for different DB implementations.
// Dialect differences are carried as function fields, set by each driver
// package.
type BaseStore struct {
	DB *sqlx.DB
	// Converter rewrites ? placeholders into the driver's syntax.
	Converter func(string) string
	// InsertID runs an INSERT and reports the generated row id.
	InsertID func(tx *sqlx.Tx, query string, args ...interface{}) (int64, error)
	// IsUniqueViolation reports whether err is a unique constraint error.
	IsUniqueViolation func(error) bool
}

func (s *BaseStore) Close() error {
	if s.DB != nil {
		return s.DB.Close()
	}
	return nil
}

// ApplyMigrations applies SQL migrations from a directory, translating
// dialect if needed
func (s *BaseStore) ApplyMigrations(dir string, translateSQL func(string) string) error {
	files, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	for _, file := range files {
		if !strings.HasSuffix(file.Name(), ".sql") {
			continue
		}

		content, err := os.ReadFile(fmt.Sprintf("%s/%s", dir, file.Name()))
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", file.Name(), err)
		}

		sql := string(content)
		if translateSQL != nil {
			sql = translateSQL(sql)
		}

		if _, err := s.DB.Exec(sql); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", file.Name(), err)
		}
	}

	return nil
}
