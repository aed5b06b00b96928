package handlers

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/beiya2414/classboard/internal/ai"
	"github.com/beiya2414/classboard/internal/app"
	"github.com/beiya2414/classboard/internal/metrics"
	"github.com/beiya2414/classboard/internal/store"
)

// GradingHandler serves the teacher's grading workflow: the queue of
// submissions for their subject, AI-assisted review and manual grades.
type GradingHandler struct {
	service *app.Service
	grader  *ai.Grader
}

func NewGradingHandler(service *app.Service) *GradingHandler {
	return &GradingHandler{
		service: service,
		grader:  ai.NewGrader(service.Store),
	}
}

type gradingEntry struct {
	SubmissionID int64    `json:"submissionId"`
	StudentName  string   `json:"studentName"`
	Title        string   `json:"title"`
	SubmitTime   int64    `json:"time"`
	Image        string   `json:"image"`
	Score        *float64 `json:"score"`
	Comment      *string  `json:"comment"`
}

// HandleGradingQueue lists submissions for homeworks in the caller's
// subject, optionally narrowed by student name, day and graded state.
func (h *GradingHandler) HandleGradingQueue(w http.ResponseWriter, r *http.Request) {
	principal, err := h.service.TeacherFromRequest(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Not logged in")
		return
	}

	q := r.URL.Query()
	filter := store.GradingFilter{
		StudentName: q.Get("studentName"),
		Status:      q.Get("state"),
	}
	if day, err := strconv.ParseInt(q.Get("day"), 10, 64); err == nil && day > 0 {
		filter.DayStart = day
		filter.DayEnd = day + 24*60*60
	}

	rows, err := h.service.Store.ListGradingQueue(principal.Subject, filter)
	if err != nil {
		logger.Error.Printf("Failed to list grading queue: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch submissions")
		return
	}

	entries := make([]gradingEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, gradingEntry{
			SubmissionID: row.SubmissionID,
			StudentName:  row.StudentName(),
			Title:        row.HomeworkTitle,
			SubmitTime:   row.SubmitTime,
			Image:        "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(row.Image),
			Score:        row.Score,
			Comment:      row.Comment,
		})
	}

	writeSuccess(w, map[string]interface{}{"submissions": entries})
}

// HandleAvailableModels lists the models the caller may still invoke.
func (h *GradingHandler) HandleAvailableModels(w http.ResponseWriter, r *http.Request) {
	principal, err := h.service.TeacherFromRequest(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Not logged in")
		return
	}

	available, err := h.grader.Gate().ListAvailable(principal.ID)
	if err != nil {
		logger.Error.Printf("Failed to list available models: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch models")
		return
	}

	writeSuccess(w, map[string]interface{}{"models": available})
}

type askAIRequest struct {
	ModelAlias   string `json:"model_alias" validate:"required"`
	Prompt       string `json:"prompt" validate:"required"`
	SubmissionID int64  `json:"submissionId"`
	Image        string `json:"image"`
}

// writeAIError reports an AI pipeline failure inside a 200 envelope.
// The grading page reads the status field, not the HTTP code.
func writeAIError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusOK, message)
}

// HandleAskAI runs the full pipeline: quota check, upstream completion,
// quota consumption. The submission image, when a submission id is
// given, is attached to the prompt.
func (h *GradingHandler) HandleAskAI(w http.ResponseWriter, r *http.Request) {
	principal, err := h.service.TeacherFromRequest(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Not logged in")
		return
	}

	var req askAIRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	image := req.Image
	if req.SubmissionID > 0 {
		view, err := h.service.Store.GetSubmissionForTeacher(req.SubmissionID, principal.ID)
		if err != nil {
			logger.Error.Printf("Failed to fetch submission %d: %v", req.SubmissionID, err)
			writeError(w, http.StatusInternalServerError, "Failed to fetch submission")
			return
		}
		if view == nil {
			writeError(w, http.StatusNotFound, "Submission not found")
			return
		}
		image = base64.StdEncoding.EncodeToString(view.Image)
	}

	reply, err := h.grader.Ask(r.Context(), principal.ID, req.ModelAlias, req.Prompt, image)
	if err != nil {
		metrics.AIRequestsTotal.WithLabelValues(req.ModelAlias, "error").Inc()
		h.reportAskError(w, req.ModelAlias, err)
		return
	}

	metrics.AIRequestsTotal.WithLabelValues(req.ModelAlias, "success").Inc()
	writeSuccess(w, map[string]interface{}{"reply": reply})
}

func (h *GradingHandler) reportAskError(w http.ResponseWriter, alias string, err error) {
	var upstream *ai.UpstreamError
	var network *ai.NetworkError

	switch {
	case errors.Is(err, ai.ErrUnknownModel):
		writeAIError(w, "Model is not available")
	case errors.Is(err, ai.ErrNotAuthorized):
		writeAIError(w, "You are not authorized to use this model")
	case errors.Is(err, ai.ErrSuspended):
		writeAIError(w, "Your access to this model is suspended")
	case errors.Is(err, ai.ErrExpired):
		writeAIError(w, "Your access to this model has expired")
	case errors.Is(err, ai.ErrQuotaExhausted):
		writeAIError(w, "Quota exhausted for this model")
	case errors.Is(err, ai.ErrProviderUnavailable):
		writeAIError(w, "Provider is unavailable")
	case errors.Is(err, ai.ErrMalformedResponse):
		writeAIError(w, "Model returned an empty reply")
	case errors.As(err, &upstream):
		writeAIError(w, upstream.Error())
	case errors.As(err, &network):
		writeAIError(w, "Could not reach the model provider")
	default:
		logger.Error.Printf("AI request for %s failed: %v", alias, err)
		writeError(w, http.StatusInternalServerError, "AI request failed")
	}
}

type submitGradeRequest struct {
	SubmissionID int64   `json:"submissionId" validate:"required"`
	Score        float64 `json:"score"`
	Content      string  `json:"content"`
	CheckImage   string  `json:"checkImage"`
}

// HandleSubmitGrade records or replaces the teacher's verdict on a
// submission.
func (h *GradingHandler) HandleSubmitGrade(w http.ResponseWriter, r *http.Request) {
	principal, err := h.service.TeacherFromRequest(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Not logged in")
		return
	}

	var req submitGradeRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	view, err := h.service.Store.GetSubmissionForTeacher(req.SubmissionID, principal.ID)
	if err != nil {
		logger.Error.Printf("Failed to fetch submission %d: %v", req.SubmissionID, err)
		writeError(w, http.StatusInternalServerError, "Failed to save grade")
		return
	}
	if view == nil {
		writeError(w, http.StatusNotFound, "Submission not found")
		return
	}

	var checkImage []byte
	if req.CheckImage != "" {
		checkImage, err = base64.StdEncoding.DecodeString(req.CheckImage)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid check image")
			return
		}
	}

	err = h.service.Store.UpsertCheck(req.SubmissionID, principal.ID, req.Score, req.Content, checkImage, time.Now().Unix())
	if err != nil {
		logger.Error.Printf("Failed to save check for submission %d: %v", req.SubmissionID, err)
		writeError(w, http.StatusInternalServerError, "Failed to save grade")
		return
	}

	writeSuccess(w, nil)
}
