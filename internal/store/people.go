package store

import (
	"database/sql"
	"fmt"

	"github.com/beiya2414/classboard/internal/models"
)

func (s *BaseStore) GetStudent(id int64) (*models.Student, error) {
	var student models.Student
	query := s.Converter(`
		SELECT s.id, s.firstname, s.lastname, s.score, s.group_id, g.group_name
		FROM students s
		LEFT JOIN class_groups g ON s.group_id = g.id
		WHERE s.id = ?
	`)

	err := s.DB.Get(&student, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
	return &student, nil
}

// ListStudents lists all students with their group name. orderBy must be
// one of the whitelisted clauses validated by the caller.
func (s *BaseStore) ListStudents(orderBy string) ([]models.Student, error) {
	var students []models.Student
	query := `
		SELECT s.id, s.firstname, s.lastname, s.score, s.group_id, g.group_name
		FROM students s
		LEFT JOIN class_groups g ON s.group_id = g.id
		ORDER BY ` + orderBy

	if err := s.DB.Select(&students, query); err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	return students, nil
}

func (s *BaseStore) CreateStudent(firstname, lastname, passwordHash string) (int64, error) {
	tx, err := s.DB.Beginx()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	id, err := s.InsertID(tx, s.Converter(`
		INSERT INTO students (firstname, lastname, password, score) VALUES (?, ?, ?, 0)
	`), firstname, lastname, passwordHash)
	if err != nil {
		return 0, fmt.Errorf("failed to create student: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit student: %w", err)
	}
	return id, nil
}

// UpdateStudent applies a partial update; nil fields are left untouched.
func (s *BaseStore) UpdateStudent(id int64, firstname, lastname, passwordHash *string, score *float64) (bool, error) {
	query := "UPDATE students SET"
	var args []interface{}
	sep := " "

	if firstname != nil {
		query += sep + "firstname = ?"
		args = append(args, *firstname)
		sep = ", "
	}
	if lastname != nil {
		query += sep + "lastname = ?"
		args = append(args, *lastname)
		sep = ", "
	}
	if passwordHash != nil {
		query += sep + "password = ?"
		args = append(args, *passwordHash)
		sep = ", "
	}
	if score != nil {
		query += sep + "score = ?"
		args = append(args, *score)
		sep = ", "
	}
	if len(args) == 0 {
		return false, nil
	}

	query += " WHERE id = ?"
	args = append(args, id)

	res, err := s.DB.Exec(s.Converter(query), args...)
	if err != nil {
		return false, fmt.Errorf("failed to update student: %w", err)
	}
	affected, _ := res.RowsAffected()
	return affected > 0, nil
}

func (s *BaseStore) DeleteStudent(id int64) (bool, error) {
	res, err := s.DB.Exec(s.Converter(`DELETE FROM students WHERE id = ?`), id)
	if err != nil {
		return false, fmt.Errorf("failed to delete student: %w", err)
	}
	affected, _ := res.RowsAffected()
	return affected > 0, nil
}

func (s *BaseStore) AssignStudentGroup(id int64, groupID *int64) (bool, error) {
	res, err := s.DB.Exec(s.Converter(`UPDATE students SET group_id = ? WHERE id = ?`), groupID, id)
	if err != nil {
		return false, fmt.Errorf("failed to assign group: %w", err)
	}
	affected, _ := res.RowsAffected()
	return affected > 0, nil
}

func (s *BaseStore) GetTeacher(id int64) (*models.Teacher, error) {
	var teacher models.Teacher
	query := s.Converter(`
		SELECT id, firstname, lastname, subject, password, is_admin
		FROM teachers
		WHERE id = ?
	`)

	err := s.DB.Get(&teacher, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get teacher: %w", err)
	}
	return &teacher, nil
}

func (s *BaseStore) ListTeachers() ([]models.Teacher, error) {
	var teachers []models.Teacher
	err := s.DB.Select(&teachers, `
		SELECT id, firstname, lastname, subject, password, is_admin
		FROM teachers
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list teachers: %w", err)
	}
	return teachers, nil
}

func (s *BaseStore) CreateTeacher(firstname, lastname, subject, passwordHash string, isAdmin bool) (int64, error) {
	tx, err := s.DB.Beginx()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	id, err := s.InsertID(tx, s.Converter(`
		INSERT INTO teachers (firstname, lastname, subject, password, is_admin)
		VALUES (?, ?, ?, ?, ?)
	`), firstname, lastname, subject, passwordHash, isAdmin)
	if err != nil {
		return 0, fmt.Errorf("failed to create teacher: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit teacher: %w", err)
	}
	return id, nil
}

func (s *BaseStore) UpdateTeacher(id int64, firstname, lastname, subject, passwordHash *string, isAdmin *bool) (bool, error) {
	query := "UPDATE teachers SET"
	var args []interface{}
	sep := " "

	if firstname != nil {
		query += sep + "firstname = ?"
		args = append(args, *firstname)
		sep = ", "
	}
	if lastname != nil {
		query += sep + "lastname = ?"
		args = append(args, *lastname)
		sep = ", "
	}
	if subject != nil {
		query += sep + "subject = ?"
		args = append(args, *subject)
		sep = ", "
	}
	if passwordHash != nil {
		query += sep + "password = ?"
		args = append(args, *passwordHash)
		sep = ", "
	}
	if isAdmin != nil {
		query += sep + "is_admin = ?"
		args = append(args, *isAdmin)
		sep = ", "
	}
	if len(args) == 0 {
		return false, nil
	}

	query += " WHERE id = ?"
	args = append(args, id)

	res, err := s.DB.Exec(s.Converter(query), args...)
	if err != nil {
		return false, fmt.Errorf("failed to update teacher: %w", err)
	}
	affected, _ := res.RowsAffected()
	return affected > 0, nil
}

func (s *BaseStore) DeleteTeacher(id int64) (bool, error) {
	res, err := s.DB.Exec(s.Converter(`DELETE FROM teachers WHERE id = ?`), id)
	if err != nil {
		return false, fmt.Errorf("failed to delete teacher: %w", err)
	}
	affected, _ := res.RowsAffected()
	return affected > 0, nil
}

func (s *BaseStore) ListGroups() ([]models.Group, error) {
	var groups []models.Group
	err := s.DB.Select(&groups, `SELECT id, group_name FROM class_groups ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	return groups, nil
}

func (s *BaseStore) CreateGroup(name string) (int64, error) {
	tx, err := s.DB.Beginx()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	id, err := s.InsertID(tx, s.Converter(`INSERT INTO class_groups (group_name) VALUES (?)`), name)
	if err != nil {
		return 0, fmt.Errorf("failed to create group: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit group: %w", err)
	}
	return id, nil
}

func (s *BaseStore) RenameGroup(id int64, name string) (bool, error) {
	res, err := s.DB.Exec(s.Converter(`UPDATE class_groups SET group_name = ? WHERE id = ?`), name, id)
	if err != nil {
		return false, fmt.Errorf("failed to rename group: %w", err)
	}
	affected, _ := res.RowsAffected()
	return affected > 0, nil
}

func (s *BaseStore) DeleteGroup(id int64) (bool, error) {
	tx, err := s.DB.Beginx()
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(s.Converter(`UPDATE students SET group_id = NULL WHERE group_id = ?`), id); err != nil {
		return false, fmt.Errorf("failed to detach students from group: %w", err)
	}

	res, err := tx.Exec(s.Converter(`DELETE FROM class_groups WHERE id = ?`), id)
	if err != nil {
		return false, fmt.Errorf("failed to delete group: %w", err)
	}
	affected, _ := res.RowsAffected()

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit group delete: %w", err)
	}
	return affected > 0, nil
}

func (s *BaseStore) GetScreen(id int64) (*models.Screen, error) {
	var screen models.Screen
	query := s.Converter(`SELECT id, password FROM screens WHERE id = ?`)

	err := s.DB.Get(&screen, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get screen: %w", err)
	}
	return &screen, nil
}
