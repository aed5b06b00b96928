package store

import (
	"database/sql"
	"fmt"

	"github.com/beiya2414/classboard/internal/models"
)

// ApplyScoreChange updates the student's score and appends the log row
// in one transaction. The two writes commit or roll back together so the
// score always equals the sum of logged deltas.
func (s *BaseStore) ApplyScoreChange(change *models.ScoreChange) (int64, error) {
	tx, err := s.DB.Beginx()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		s.Converter(`UPDATE students SET score = score + ? WHERE id = ?`),
		change.Delta, change.StudentID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to update student score: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check student update: %w", err)
	}
	if affected == 0 {
		return 0, ErrNoStudent
	}

	id, err := s.InsertID(tx, s.Converter(`
		INSERT INTO score_changes (teacher_id, student_id, reason, delta, undo_of, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`), change.TeacherID, change.StudentID, change.Reason, change.Delta, change.UndoOf, change.CreatedAt)
	if err != nil {
		if s.IsUniqueViolation(err) {
			return 0, ErrDuplicateUndo
		}
		return 0, fmt.Errorf("failed to insert score change: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit score change: %w", err)
	}

	change.ID = id
	return id, nil
}

func (s *BaseStore) GetScoreChange(id int64) (*models.ScoreChange, error) {
	var change models.ScoreChange
	query := s.Converter(`
		SELECT id, teacher_id, student_id, reason, delta, undo_of, created_at
		FROM score_changes
		WHERE id = ?
	`)

	err := s.DB.Get(&change, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get score change: %w", err)
	}
	return &change, nil
}

func (s *BaseStore) HasUndoFor(id int64) (bool, error) {
	var count int
	query := s.Converter(`SELECT COUNT(*) FROM score_changes WHERE undo_of = ?`)
	if err := s.DB.Get(&count, query, id); err != nil {
		return false, fmt.Errorf("failed to check undo state: %w", err)
	}
	return count > 0, nil
}

// ListScoreChanges returns one page of the log plus a has-more flag,
// computed by over-fetching a single extra row.
func (s *BaseStore) ListScoreChanges(f ChangeFilter) ([]models.ScoreChangeRow, bool, error) {
	// log rows outlive the people they reference, so deleted teachers
	// and students come back with blank names instead of NULLs
	query := `
		SELECT
			scl.id, scl.teacher_id, scl.student_id, scl.reason, scl.delta, scl.undo_of, scl.created_at,
			COALESCE(t.firstname, '') AS teacher_firstname,
			COALESCE(t.lastname, '') AS teacher_lastname,
			COALESCE(st.firstname, '') AS student_firstname,
			COALESCE(st.lastname, '') AS student_lastname,
			sct.name AS reason_type_name
		FROM score_changes scl
		LEFT JOIN teachers t ON scl.teacher_id = t.id
		LEFT JOIN students st ON scl.student_id = st.id
		LEFT JOIN score_change_types sct ON scl.reason = CAST(sct.id AS TEXT)
		WHERE 1=1
	`
	var args []interface{}

	if f.TeacherID > 0 {
		query += " AND scl.teacher_id = ?"
		args = append(args, f.TeacherID)
	}
	if f.StudentID > 0 {
		query += " AND scl.student_id = ?"
		args = append(args, f.StudentID)
	}
	if f.Reason != "" {
		query += " AND scl.reason = ?"
		args = append(args, f.Reason)
	}
	if f.Start > 0 {
		query += " AND scl.created_at >= ?"
		args = append(args, f.Start)
	}
	if f.End > 0 {
		query += " AND scl.created_at <= ?"
		args = append(args, f.End)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	query += " ORDER BY scl.created_at DESC, scl.id DESC LIMIT ? OFFSET ?"
	args = append(args, limit+1, f.Offset)

	var rows []models.ScoreChangeRow
	if err := s.DB.Select(&rows, s.Converter(query), args...); err != nil {
		return nil, false, fmt.Errorf("failed to list score changes: %w", err)
	}

	hasMore := len(rows) > limit
	if hasMore {
		rows = rows[:limit]
	}
	return rows, hasMore, nil
}

// ListDistinctReasons returns the distinct stored reason strings that are
// neither custom text nor undo markers, for the log filter dropdown.
func (s *BaseStore) ListDistinctReasons() ([]string, error) {
	var reasons []string
	err := s.DB.Select(&reasons, `
		SELECT DISTINCT reason FROM score_changes
		WHERE reason NOT LIKE 'custom-%' AND undo_of IS NULL
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list reasons: %w", err)
	}
	return reasons, nil
}

func (s *BaseStore) ListScoreChangeTypes() ([]models.ScoreChangeType, error) {
	var types []models.ScoreChangeType
	err := s.DB.Select(&types, `
		SELECT id, name, delta, created_at
		FROM score_change_types
		ORDER BY id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list score change types: %w", err)
	}
	return types, nil
}

func (s *BaseStore) GetScoreChangeType(id int64) (*models.ScoreChangeType, error) {
	var t models.ScoreChangeType
	query := s.Converter(`
		SELECT id, name, delta, created_at
		FROM score_change_types
		WHERE id = ?
	`)

	err := s.DB.Get(&t, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get score change type: %w", err)
	}
	return &t, nil
}

func (s *BaseStore) CreateScoreChangeType(name string, delta float64, now int64) (int64, error) {
	tx, err := s.DB.Beginx()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	id, err := s.InsertID(tx, s.Converter(`
		INSERT INTO score_change_types (name, delta, created_at) VALUES (?, ?, ?)
	`), name, delta, now)
	if err != nil {
		return 0, fmt.Errorf("failed to create score change type: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit score change type: %w", err)
	}
	return id, nil
}

func (s *BaseStore) UpdateScoreChangeType(id int64, name string, delta float64, now int64) (bool, error) {
	res, err := s.DB.Exec(
		s.Converter(`UPDATE score_change_types SET name = ?, delta = ?, created_at = ? WHERE id = ?`),
		name, delta, now, id,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update score change type: %w", err)
	}
	affected, _ := res.RowsAffected()
	return affected > 0, nil
}

func (s *BaseStore) DeleteScoreChangeType(id int64) (bool, error) {
	res, err := s.DB.Exec(s.Converter(`DELETE FROM score_change_types WHERE id = ?`), id)
	if err != nil {
		return false, fmt.Errorf("failed to delete score change type: %w", err)
	}
	affected, _ := res.RowsAffected()
	return affected > 0, nil
}
