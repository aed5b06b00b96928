package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/shrimpsizemoose/trekker/logger"
	"golang.org/x/crypto/bcrypt"

	"github.com/beiya2414/classboard/internal/app"
)

// AdminHandler covers account and catalog administration: students,
// teachers, groups and the score reason catalog.
type AdminHandler struct {
	service *app.Service
}

func NewAdminHandler(service *app.Service) *AdminHandler {
	return &AdminHandler{service: service}
}

func (h *AdminHandler) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	if _, err := h.service.AdminFromRequest(r); err != nil {
		writeError(w, http.StatusForbidden, "Admin required")
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid id")
		return 0, false
	}
	return id, true
}

func hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(hashed), err
}

// --- students

type createStudentRequest struct {
	Firstname string `json:"firstname" validate:"required"`
	Lastname  string `json:"lastname" validate:"required"`
	Password  string `json:"password" validate:"required"`
}

func (h *AdminHandler) HandleCreateStudent(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}

	var req createStudentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	hashed, err := hashPassword(req.Password)
	if err != nil {
		logger.Error.Printf("Failed to hash password: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to create student")
		return
	}

	id, err := h.service.Store.CreateStudent(req.Firstname, req.Lastname, hashed)
	if err != nil {
		logger.Error.Printf("Failed to create student: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to create student")
		return
	}

	writeSuccess(w, map[string]interface{}{"Id": id})
}

type updateStudentRequest struct {
	Firstname *string  `json:"firstname"`
	Lastname  *string  `json:"lastname"`
	Password  *string  `json:"password"`
	Score     *float64 `json:"score"`
}

func (h *AdminHandler) HandleUpdateStudent(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req updateStudentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	var hashed *string
	if req.Password != nil {
		hp, err := hashPassword(*req.Password)
		if err != nil {
			logger.Error.Printf("Failed to hash password: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to update student")
			return
		}
		hashed = &hp
	}

	found, err := h.service.Store.UpdateStudent(id, req.Firstname, req.Lastname, hashed, req.Score)
	if err != nil {
		logger.Error.Printf("Failed to update student %d: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Failed to update student")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "Student not found")
		return
	}

	writeSuccess(w, nil)
}

func (h *AdminHandler) HandleDeleteStudent(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	found, err := h.service.Store.DeleteStudent(id)
	if err != nil {
		logger.Error.Printf("Failed to delete student %d: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Failed to delete student")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "Student not found")
		return
	}

	writeSuccess(w, nil)
}

type assignGroupRequest struct {
	GroupID *int64 `json:"groupId"`
}

// HandleAssignGroup moves a student into a group, or out of all groups
// when groupId is null.
func (h *AdminHandler) HandleAssignGroup(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req assignGroupRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	found, err := h.service.Store.AssignStudentGroup(id, req.GroupID)
	if err != nil {
		logger.Error.Printf("Failed to assign group for student %d: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Failed to assign group")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "Student not found")
		return
	}

	writeSuccess(w, nil)
}

// --- teachers

func (h *AdminHandler) HandleListTeachers(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}

	teachers, err := h.service.Store.ListTeachers()
	if err != nil {
		logger.Error.Printf("Failed to list teachers: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch teachers")
		return
	}

	writeSuccess(w, map[string]interface{}{"teachers": teachers})
}

type createTeacherRequest struct {
	Firstname string `json:"firstname" validate:"required"`
	Lastname  string `json:"lastname" validate:"required"`
	Subject   string `json:"subject" validate:"required"`
	Password  string `json:"password" validate:"required"`
	IsAdmin   bool   `json:"isAdmin"`
}

func (h *AdminHandler) HandleCreateTeacher(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}

	var req createTeacherRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	hashed, err := hashPassword(req.Password)
	if err != nil {
		logger.Error.Printf("Failed to hash password: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to create teacher")
		return
	}

	id, err := h.service.Store.CreateTeacher(req.Firstname, req.Lastname, req.Subject, hashed, req.IsAdmin)
	if err != nil {
		logger.Error.Printf("Failed to create teacher: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to create teacher")
		return
	}

	writeSuccess(w, map[string]interface{}{"Id": id})
}

type updateTeacherRequest struct {
	Firstname *string `json:"firstname"`
	Lastname  *string `json:"lastname"`
	Subject   *string `json:"subject"`
	Password  *string `json:"password"`
	IsAdmin   *bool   `json:"isAdmin"`
}

func (h *AdminHandler) HandleUpdateTeacher(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req updateTeacherRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	var hashed *string
	if req.Password != nil {
		hp, err := hashPassword(*req.Password)
		if err != nil {
			logger.Error.Printf("Failed to hash password: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to update teacher")
			return
		}
		hashed = &hp
	}

	found, err := h.service.Store.UpdateTeacher(id, req.Firstname, req.Lastname, req.Subject, hashed, req.IsAdmin)
	if err != nil {
		logger.Error.Printf("Failed to update teacher %d: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Failed to update teacher")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "Teacher not found")
		return
	}

	writeSuccess(w, nil)
}

func (h *AdminHandler) HandleDeleteTeacher(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	found, err := h.service.Store.DeleteTeacher(id)
	if err != nil {
		logger.Error.Printf("Failed to delete teacher %d: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Failed to delete teacher")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "Teacher not found")
		return
	}

	writeSuccess(w, nil)
}

// --- groups

func (h *AdminHandler) HandleListGroups(w http.ResponseWriter, r *http.Request) {
	if _, err := h.service.TeacherFromRequest(r); err != nil {
		writeError(w, http.StatusUnauthorized, "Not logged in")
		return
	}

	groups, err := h.service.Store.ListGroups()
	if err != nil {
		logger.Error.Printf("Failed to list groups: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch groups")
		return
	}

	writeSuccess(w, map[string]interface{}{"groups": groups})
}

type groupRequest struct {
	Name string `json:"groupName" validate:"required"`
}

func (h *AdminHandler) HandleCreateGroup(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}

	var req groupRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	id, err := h.service.Store.CreateGroup(req.Name)
	if err != nil {
		logger.Error.Printf("Failed to create group: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to create group")
		return
	}

	writeSuccess(w, map[string]interface{}{"Id": id})
}

func (h *AdminHandler) HandleRenameGroup(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req groupRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	found, err := h.service.Store.RenameGroup(id, req.Name)
	if err != nil {
		logger.Error.Printf("Failed to rename group %d: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Failed to rename group")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "Group not found")
		return
	}

	writeSuccess(w, nil)
}

// HandleDeleteGroup removes a group; its students are detached, not
// deleted.
func (h *AdminHandler) HandleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	found, err := h.service.Store.DeleteGroup(id)
	if err != nil {
		logger.Error.Printf("Failed to delete group %d: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Failed to delete group")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "Group not found")
		return
	}

	writeSuccess(w, nil)
}

// --- score change types

// Delta carries no required tag, a zero-point reason (attendance
// marks, neutral notes) is legitimate.
type scoreTypeRequest struct {
	Name  string  `json:"name" validate:"required"`
	Delta float64 `json:"change"`
}

func (h *AdminHandler) HandleCreateScoreType(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}

	var req scoreTypeRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	id, err := h.service.Store.CreateScoreChangeType(req.Name, req.Delta, time.Now().Unix())
	if err != nil {
		logger.Error.Printf("Failed to create score change type: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to create score change type")
		return
	}

	writeSuccess(w, map[string]interface{}{"Id": id})
}

func (h *AdminHandler) HandleUpdateScoreType(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req scoreTypeRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	found, err := h.service.Store.UpdateScoreChangeType(id, req.Name, req.Delta, time.Now().Unix())
	if err != nil {
		logger.Error.Printf("Failed to update score change type %d: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Failed to update score change type")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "Score change type not found")
		return
	}

	writeSuccess(w, nil)
}

func (h *AdminHandler) HandleDeleteScoreType(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	found, err := h.service.Store.DeleteScoreChangeType(id)
	if err != nil {
		logger.Error.Printf("Failed to delete score change type %d: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Failed to delete score change type")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "Score change type not found")
		return
	}

	writeSuccess(w, nil)
}
