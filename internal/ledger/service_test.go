package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beiya2414/classboard/internal/store"
	"github.com/beiya2414/classboard/internal/store/sqlite"
)

func setupService(t *testing.T) (*Service, *sqlite.SQLiteStore, func()) {
	s, err := sqlite.NewSQLiteStore(":memory:")
	require.NoError(t, err, "Failed to create store")
	require.NoError(t, s.ApplyMigrations("../../migrations"), "Failed to apply migrations")

	cleanup := func() {
		require.NoError(t, s.Close())
	}
	return NewService(s), s, cleanup
}

func createTeacher(t *testing.T, s *sqlite.SQLiteStore) int64 {
	id, err := s.CreateTeacher("强", "王", "math", "hash", false)
	require.NoError(t, err)
	return id
}

func createStudent(t *testing.T, s *sqlite.SQLiteStore, score float64) int64 {
	id, err := s.CreateStudent("小明", "李", "hash")
	require.NoError(t, err)
	if score != 0 {
		found, err := s.UpdateStudent(id, nil, nil, nil, &score)
		require.NoError(t, err)
		require.True(t, found)
	}
	return id
}

func studentScore(t *testing.T, s *sqlite.SQLiteStore, id int64) float64 {
	student, err := s.GetStudent(id)
	require.NoError(t, err)
	require.NotNil(t, student)
	return student.Score
}

func ledgerSum(t *testing.T, s *sqlite.SQLiteStore, studentID int64) float64 {
	var sum float64
	err := s.DB.Get(&sum, "SELECT COALESCE(SUM(delta), 0) FROM score_changes WHERE student_id = ?", studentID)
	require.NoError(t, err)
	return sum
}

func TestApplyAndUndoRestoresBalance(t *testing.T) {
	svc, s, cleanup := setupService(t)
	defer cleanup()

	teacherID := createTeacher(t, s)
	studentID := createStudent(t, s, 10)

	delta, eventID, err := svc.ApplyChange(teacherID, studentID, Custom("late"), -3)
	require.NoError(t, err)
	assert.Equal(t, -3.0, delta)
	assert.Equal(t, 7.0, studentScore(t, s, studentID))

	change, err := s.GetScoreChange(eventID)
	require.NoError(t, err)
	require.NotNil(t, change)
	assert.Equal(t, "custom-late", change.Reason)
	assert.Equal(t, -3.0, change.Delta)

	compensating, undoID, err := svc.UndoChange(teacherID, eventID)
	require.NoError(t, err)
	assert.Equal(t, 3.0, compensating)
	assert.Equal(t, 10.0, studentScore(t, s, studentID))

	undoChange, err := s.GetScoreChange(undoID)
	require.NoError(t, err)
	require.NotNil(t, undoChange)
	assert.Equal(t, ReasonUndo, DecodeReason(undoChange.Reason).Kind)
	require.NotNil(t, undoChange.UndoOf)
	assert.Equal(t, eventID, *undoChange.UndoOf)

	// balance always equals the sum of logged deltas, starting score included
	assert.Equal(t, studentScore(t, s, studentID), 10+ledgerSum(t, s, studentID))
}

func TestSecondUndoFails(t *testing.T) {
	svc, s, cleanup := setupService(t)
	defer cleanup()

	teacherID := createTeacher(t, s)
	studentID := createStudent(t, s, 10)

	_, eventID, err := svc.ApplyChange(teacherID, studentID, Custom("late"), -3)
	require.NoError(t, err)

	_, _, err = svc.UndoChange(teacherID, eventID)
	require.NoError(t, err)

	_, _, err = svc.UndoChange(teacherID, eventID)
	assert.ErrorIs(t, err, ErrAlreadyUndone)
	assert.Equal(t, 10.0, studentScore(t, s, studentID))
}

func TestUndoOfUndoForbidden(t *testing.T) {
	svc, s, cleanup := setupService(t)
	defer cleanup()

	teacherID := createTeacher(t, s)
	studentID := createStudent(t, s, 10)

	_, eventID, err := svc.ApplyChange(teacherID, studentID, Custom("late"), -3)
	require.NoError(t, err)

	_, undoID, err := svc.UndoChange(teacherID, eventID)
	require.NoError(t, err)

	_, _, err = svc.UndoChange(teacherID, undoID)
	assert.ErrorIs(t, err, ErrNotUndoable)
}

func TestUndoRequiresOwnership(t *testing.T) {
	svc, s, cleanup := setupService(t)
	defer cleanup()

	teacherID := createTeacher(t, s)
	otherID, err := s.CreateTeacher("芳", "张", "english", "hash", false)
	require.NoError(t, err)
	studentID := createStudent(t, s, 10)

	_, eventID, err := svc.ApplyChange(teacherID, studentID, Custom("late"), -3)
	require.NoError(t, err)

	_, _, err = svc.UndoChange(otherID, eventID)
	assert.ErrorIs(t, err, ErrNotUndoable)
}

func TestCatalogDeltaWins(t *testing.T) {
	svc, s, cleanup := setupService(t)
	defer cleanup()

	teacherID := createTeacher(t, s)
	studentID := createStudent(t, s, 0)

	typeID, err := s.CreateScoreChangeType("talking in class", -2, 1700000000)
	require.NoError(t, err)

	delta, _, err := svc.ApplyChange(teacherID, studentID, CatalogRef(typeID), 999)
	require.NoError(t, err)
	assert.Equal(t, -2.0, delta)
	assert.Equal(t, -2.0, studentScore(t, s, studentID))
}

func TestApplyChangeValidation(t *testing.T) {
	svc, s, cleanup := setupService(t)
	defer cleanup()

	teacherID := createTeacher(t, s)
	studentID := createStudent(t, s, 0)

	_, _, err := svc.ApplyChange(teacherID, studentID, CatalogRef(12345), 1)
	assert.ErrorIs(t, err, ErrInvalidReason)

	_, _, err = svc.ApplyChange(teacherID, studentID, Custom(""), 1)
	assert.ErrorIs(t, err, ErrMissingCustomReason)

	_, _, err = svc.ApplyChange(teacherID, studentID, UndoOf(1), 1)
	assert.ErrorIs(t, err, ErrInvalidReason)

	_, _, err = svc.ApplyChange(teacherID, 99999, Custom("late"), 1)
	assert.ErrorIs(t, err, ErrStudentNotFound)
}

func TestListChangesPresentation(t *testing.T) {
	svc, s, cleanup := setupService(t)
	defer cleanup()

	teacherID := createTeacher(t, s)
	studentID := createStudent(t, s, 0)

	typeID, err := s.CreateScoreChangeType("helped classmate", 2, 1700000000)
	require.NoError(t, err)

	_, catalogEvent, err := svc.ApplyChange(teacherID, studentID, CatalogRef(typeID), 0)
	require.NoError(t, err)
	_, customEvent, err := svc.ApplyChange(teacherID, studentID, Custom("late"), -1)
	require.NoError(t, err)
	_, _, err = svc.UndoChange(teacherID, customEvent)
	require.NoError(t, err)

	entries, hasMore, err := svc.ListChanges(store.ChangeFilter{StudentID: studentID, Limit: 10})
	require.NoError(t, err)
	assert.False(t, hasMore)
	require.Len(t, entries, 3)

	byID := make(map[int64]Entry, len(entries))
	for _, e := range entries {
		byID[e.ID] = e
	}

	assert.Contains(t, byID[catalogEvent].Reason, "helped classmate")
	assert.False(t, byID[catalogEvent].IsUndo)
	assert.Equal(t, "late", byID[customEvent].Reason)
	assert.Equal(t, "王强", byID[customEvent].TeacherName)
	assert.Equal(t, "李小明", byID[customEvent].StudentName)

	var undoSeen bool
	for _, e := range entries {
		if e.IsUndo {
			undoSeen = true
			assert.Equal(t, 1.0, e.Delta)
		}
	}
	assert.True(t, undoSeen)
}

func TestListChangesSurvivesDeletedPeople(t *testing.T) {
	svc, s, cleanup := setupService(t)
	defer cleanup()

	teacherID := createTeacher(t, s)
	studentID := createStudent(t, s, 0)

	_, _, err := svc.ApplyChange(teacherID, studentID, Custom("late"), -1)
	require.NoError(t, err)

	found, err := s.DeleteStudent(studentID)
	require.NoError(t, err)
	require.True(t, found)
	found, err = s.DeleteTeacher(teacherID)
	require.NoError(t, err)
	require.True(t, found)

	// the log is append-only and outlives the people it references
	entries, _, err := svc.ListChanges(store.ChangeFilter{StudentID: studentID, Limit: 10})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "", entries[0].TeacherName)
	assert.Equal(t, "", entries[0].StudentName)
	assert.Equal(t, -1.0, entries[0].Delta)
}

func TestListChangesPaging(t *testing.T) {
	svc, s, cleanup := setupService(t)
	defer cleanup()

	teacherID := createTeacher(t, s)
	studentID := createStudent(t, s, 0)

	for i := 0; i < 5; i++ {
		_, _, err := svc.ApplyChange(teacherID, studentID, Custom("practice"), 1)
		require.NoError(t, err)
	}

	entries, hasMore, err := svc.ListChanges(store.ChangeFilter{StudentID: studentID, Limit: 3})
	require.NoError(t, err)
	assert.True(t, hasMore)
	assert.Len(t, entries, 3)

	entries, hasMore, err = svc.ListChanges(store.ChangeFilter{StudentID: studentID, Limit: 3, Offset: 3})
	require.NoError(t, err)
	assert.False(t, hasMore)
	assert.Len(t, entries, 2)
}

func TestListReasonFilters(t *testing.T) {
	svc, s, cleanup := setupService(t)
	defer cleanup()

	teacherID := createTeacher(t, s)
	studentID := createStudent(t, s, 0)

	typeID, err := s.CreateScoreChangeType("good answer", 1, 1700000000)
	require.NoError(t, err)

	_, _, err = svc.ApplyChange(teacherID, studentID, CatalogRef(typeID), 0)
	require.NoError(t, err)
	_, customEvent, err := svc.ApplyChange(teacherID, studentID, Custom("late"), -1)
	require.NoError(t, err)
	_, _, err = svc.UndoChange(teacherID, customEvent)
	require.NoError(t, err)

	filters, err := svc.ListReasonFilters()
	require.NoError(t, err)

	// custom text and undo markers never show up in the dropdown
	require.Len(t, filters, 1)
	assert.Contains(t, filters[0].Text, "good answer")
}
