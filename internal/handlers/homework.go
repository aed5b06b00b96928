package handlers

import (
	"encoding/base64"
	"net/http"
	"time"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/beiya2414/classboard/internal/app"
	"github.com/beiya2414/classboard/internal/models"
)

// HomeworkHandler covers the teacher side of homework: assignments and
// who handed in what.
type HomeworkHandler struct {
	service *app.Service
}

func NewHomeworkHandler(service *app.Service) *HomeworkHandler {
	return &HomeworkHandler{service: service}
}

func (h *HomeworkHandler) HandleListHomework(w http.ResponseWriter, r *http.Request) {
	principal, err := h.service.TeacherFromRequest(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Not logged in")
		return
	}

	homeworks, err := h.service.Store.ListHomeworkByTeacher(principal.ID)
	if err != nil {
		logger.Error.Printf("Failed to list homework: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch homework")
		return
	}

	writeSuccess(w, map[string]interface{}{"homeworks": homeworks})
}

type createHomeworkRequest struct {
	Title          string `json:"title" validate:"required"`
	Description    string `json:"description"`
	ForAllStudents bool   `json:"isforallstudents"`
	RequiresSubmit bool   `json:"submit"`
	ReleaseTime    int64  `json:"releasetime"`
	StopTime       int64  `json:"stoptime" validate:"required"`
}

func (h *HomeworkHandler) HandleCreateHomework(w http.ResponseWriter, r *http.Request) {
	principal, err := h.service.TeacherFromRequest(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Not logged in")
		return
	}

	var req createHomeworkRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	release := req.ReleaseTime
	if release == 0 {
		release = time.Now().Unix()
	}

	id, err := h.service.Store.CreateHomework(&models.Homework{
		TeacherID:      principal.ID,
		Title:          req.Title,
		Description:    req.Description,
		ForAllStudents: req.ForAllStudents,
		RequiresSubmit: req.RequiresSubmit,
		ReleaseTime:    release,
		StopTime:       req.StopTime,
	})
	if err != nil {
		logger.Error.Printf("Failed to create homework: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to create homework")
		return
	}

	writeSuccess(w, map[string]interface{}{"Id": id})
}

type updateHomeworkRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	StopTime    *int64  `json:"stoptime"`
}

func (h *HomeworkHandler) HandleUpdateHomework(w http.ResponseWriter, r *http.Request) {
	principal, err := h.service.TeacherFromRequest(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Not logged in")
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req updateHomeworkRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	found, err := h.service.Store.UpdateHomework(id, principal.ID, req.Title, req.Description, req.StopTime)
	if err != nil {
		logger.Error.Printf("Failed to update homework %d: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Failed to update homework")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "Homework not found")
		return
	}

	writeSuccess(w, nil)
}

// HandleDeleteHomework removes a homework with its submissions and
// checks. Only the owning teacher may delete.
func (h *HomeworkHandler) HandleDeleteHomework(w http.ResponseWriter, r *http.Request) {
	principal, err := h.service.TeacherFromRequest(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Not logged in")
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	found, err := h.service.Store.DeleteHomework(id, principal.ID)
	if err != nil {
		logger.Error.Printf("Failed to delete homework %d: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Failed to delete homework")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "Homework not found")
		return
	}

	writeSuccess(w, nil)
}

// HandleSubmissionStatuses lists the roster with per-student submission
// state for one homework.
func (h *HomeworkHandler) HandleSubmissionStatuses(w http.ResponseWriter, r *http.Request) {
	principal, err := h.service.TeacherFromRequest(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Not logged in")
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	homework, err := h.service.Store.GetHomeworkForTeacher(id, principal.ID)
	if err != nil {
		logger.Error.Printf("Failed to fetch homework %d: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch homework")
		return
	}
	if homework == nil {
		writeError(w, http.StatusNotFound, "Homework not found")
		return
	}

	statuses, err := h.service.Store.ListSubmissionStatuses(id)
	if err != nil {
		logger.Error.Printf("Failed to list submissions for homework %d: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch submissions")
		return
	}

	writeSuccess(w, map[string]interface{}{
		"homework":    homework,
		"submissions": statuses,
	})
}

// HandleViewSubmission returns one submission image as a data URI, with
// the student's name and upload time.
func (h *HomeworkHandler) HandleViewSubmission(w http.ResponseWriter, r *http.Request) {
	principal, err := h.service.TeacherFromRequest(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Not logged in")
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	view, err := h.service.Store.GetSubmissionForTeacher(id, principal.ID)
	if err != nil {
		logger.Error.Printf("Failed to fetch submission %d: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch submission")
		return
	}
	if view == nil {
		writeError(w, http.StatusNotFound, "Submission not found")
		return
	}

	writeSuccess(w, map[string]interface{}{
		"image":       "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(view.Image),
		"title":       view.Title,
		"studentName": view.Lastname + view.Firstname,
		"updatetime":  view.UpdateTime,
	})
}
