package store

import (
	"database/sql"
	"fmt"

	"github.com/beiya2414/classboard/internal/models"
)

func (s *BaseStore) CreateHomework(h *models.Homework) (int64, error) {
	tx, err := s.DB.Beginx()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	id, err := s.InsertID(tx, s.Converter(`
		INSERT INTO homework (teacher_id, title, description, for_all_students, requires_submit, release_time, stop_time)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`), h.TeacherID, h.Title, h.Description, h.ForAllStudents, h.RequiresSubmit, h.ReleaseTime, h.StopTime)
	if err != nil {
		return 0, fmt.Errorf("failed to create homework: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit homework: %w", err)
	}

	h.ID = id
	return id, nil
}

// UpdateHomework applies a partial update, scoped to the owning teacher.
func (s *BaseStore) UpdateHomework(id, teacherID int64, title, description *string, stopTime *int64) (bool, error) {
	query := "UPDATE homework SET"
	var args []interface{}
	sep := " "

	if title != nil {
		query += sep + "title = ?"
		args = append(args, *title)
		sep = ", "
	}
	if description != nil {
		query += sep + "description = ?"
		args = append(args, *description)
		sep = ", "
	}
	if stopTime != nil {
		query += sep + "stop_time = ?"
		args = append(args, *stopTime)
		sep = ", "
	}
	if len(args) == 0 {
		return false, nil
	}

	query += " WHERE id = ? AND teacher_id = ?"
	args = append(args, id, teacherID)

	res, err := s.DB.Exec(s.Converter(query), args...)
	if err != nil {
		return false, fmt.Errorf("failed to update homework: %w", err)
	}
	affected, _ := res.RowsAffected()
	return affected > 0, nil
}

// DeleteHomework removes a homework and all its submissions in one
// transaction. Only the owning teacher may delete.
func (s *BaseStore) DeleteHomework(id, teacherID int64) (bool, error) {
	tx, err := s.DB.Beginx()
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(s.Converter(`
		DELETE FROM homework_checks
		WHERE submission_id IN (SELECT id FROM homework_submissions WHERE homework_id = ?)
	`), id); err != nil {
		return false, fmt.Errorf("failed to delete homework checks: %w", err)
	}

	if _, err := tx.Exec(s.Converter(`DELETE FROM homework_submissions WHERE homework_id = ?`), id); err != nil {
		return false, fmt.Errorf("failed to delete homework submissions: %w", err)
	}

	res, err := tx.Exec(s.Converter(`DELETE FROM homework WHERE id = ? AND teacher_id = ?`), id, teacherID)
	if err != nil {
		return false, fmt.Errorf("failed to delete homework: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return false, nil
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit homework delete: %w", err)
	}
	return true, nil
}

func (s *BaseStore) ListHomeworkByTeacher(teacherID int64) ([]models.Homework, error) {
	var list []models.Homework
	query := s.Converter(`
		SELECT id, teacher_id, title, description, for_all_students, requires_submit, release_time, stop_time
		FROM homework
		WHERE teacher_id = ?
		ORDER BY release_time DESC
	`)

	if err := s.DB.Select(&list, query, teacherID); err != nil {
		return nil, fmt.Errorf("failed to list homework: %w", err)
	}
	return list, nil
}

func (s *BaseStore) GetHomeworkForTeacher(id, teacherID int64) (*models.Homework, error) {
	var h models.Homework
	query := s.Converter(`
		SELECT id, teacher_id, title, description, for_all_students, requires_submit, release_time, stop_time
		FROM homework
		WHERE id = ? AND teacher_id = ?
	`)

	err := s.DB.Get(&h, query, id, teacherID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get homework: %w", err)
	}
	return &h, nil
}

func (s *BaseStore) ListActiveHomework(now int64) ([]models.Homework, error) {
	var list []models.Homework
	query := s.Converter(`
		SELECT id, teacher_id, title, description, for_all_students, requires_submit, release_time, stop_time
		FROM homework
		WHERE stop_time >= ?
		ORDER BY stop_time ASC
	`)

	if err := s.DB.Select(&list, query, now); err != nil {
		return nil, fmt.Errorf("failed to list active homework: %w", err)
	}
	return list, nil
}

// ListSubmissionStatuses joins the full student roster against one
// homework's submissions, so unsubmitted students appear with NULLs.
func (s *BaseStore) ListSubmissionStatuses(homeworkID int64) ([]SubmissionStatus, error) {
	var statuses []SubmissionStatus
	query := s.Converter(`
		SELECT
			st.id AS student_id,
			st.firstname,
			st.lastname,
			hs.id AS submission_id,
			hs.submit_time,
			hs.update_time
		FROM students st
		LEFT JOIN homework_submissions hs
			ON hs.student_id = st.id AND hs.homework_id = ?
		ORDER BY st.id ASC
	`)

	if err := s.DB.Select(&statuses, query, homeworkID); err != nil {
		return nil, fmt.Errorf("failed to list submission statuses: %w", err)
	}
	return statuses, nil
}

func (s *BaseStore) GetSubmission(id int64) (*models.Submission, error) {
	var sub models.Submission
	query := s.Converter(`
		SELECT id, homework_id, student_id, submission, submit_time, update_time
		FROM homework_submissions
		WHERE id = ?
	`)

	err := s.DB.Get(&sub, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	return &sub, nil
}

func (s *BaseStore) GetSubmissionForTeacher(id, teacherID int64) (*SubmissionView, error) {
	var view SubmissionView
	query := s.Converter(`
		SELECT hs.submission, h.title, hs.student_id,
			COALESCE(st.firstname, '') AS firstname,
			COALESCE(st.lastname, '') AS lastname,
			hs.update_time
		FROM homework_submissions hs
		JOIN homework h ON hs.homework_id = h.id
		LEFT JOIN students st ON hs.student_id = st.id
		WHERE hs.id = ? AND h.teacher_id = ?
	`)

	err := s.DB.Get(&view, query, id, teacherID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get submission view: %w", err)
	}
	return &view, nil
}

// UpsertSubmission inserts a student's submission or replaces the image
// of an existing one, preserving the original submit time.
func (s *BaseStore) UpsertSubmission(homeworkID, studentID int64, image []byte, now int64) error {
	_, err := s.DB.Exec(s.Converter(`
		INSERT INTO homework_submissions (homework_id, student_id, submission, submit_time, update_time)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (homework_id, student_id) DO UPDATE SET
		submission = excluded.submission,
		update_time = excluded.update_time
	`), homeworkID, studentID, image, now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert submission: %w", err)
	}
	return nil
}

func (s *BaseStore) ListGradingQueue(subject string, f GradingFilter) ([]models.GradingRow, error) {
	query := `
		SELECT
			hs.id AS submission_id,
			hs.submit_time,
			hs.submission,
			h.title AS homework_title,
			st.firstname AS student_firstname,
			st.lastname AS student_lastname,
			hc.score,
			hc.content
		FROM homework_submissions hs
		JOIN homework h ON hs.homework_id = h.id
		JOIN teachers creator ON h.teacher_id = creator.id
		JOIN students st ON hs.student_id = st.id
		LEFT JOIN homework_checks hc ON hs.id = hc.submission_id
		WHERE creator.subject = ?
	`
	args := []interface{}{subject}

	if f.StudentName != "" {
		pattern := "%" + f.StudentName + "%"
		query += " AND (st.firstname LIKE ? OR st.lastname LIKE ? OR (st.lastname || st.firstname) LIKE ?)"
		args = append(args, pattern, pattern, pattern)
	}
	if f.DayStart > 0 && f.DayEnd > 0 {
		query += " AND hs.submit_time BETWEEN ? AND ?"
		args = append(args, f.DayStart, f.DayEnd)
	}
	switch f.Status {
	case "graded":
		query += " AND hc.id IS NOT NULL"
	case "ungraded":
		query += " AND hc.id IS NULL"
	}

	query += " ORDER BY hs.submit_time DESC"

	var rows []models.GradingRow
	if err := s.DB.Select(&rows, s.Converter(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list grading queue: %w", err)
	}
	return rows, nil
}

func (s *BaseStore) UpsertCheck(submissionID, teacherID int64, score float64, content string, image []byte, now int64) error {
	_, err := s.DB.Exec(s.Converter(`
		INSERT INTO homework_checks (submission_id, teacher_id, score, content, check_image, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (submission_id) DO UPDATE SET
		teacher_id = excluded.teacher_id,
		score = excluded.score,
		content = excluded.content,
		check_image = excluded.check_image,
		created_at = excluded.created_at
	`), submissionID, teacherID, score, content, image, now)
	if err != nil {
		return fmt.Errorf("failed to upsert check: %w", err)
	}
	return nil
}
