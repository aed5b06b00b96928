package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/beiya2414/classboard/internal/app"
	"github.com/beiya2414/classboard/internal/imgproc"
	"github.com/beiya2414/classboard/internal/metrics"
)

// uploads are phone photos, a few MB at most
const maxUploadBytes = 16 << 20

// ScreenHandler serves the classroom kiosk: the display lists active
// homework and the roster, and students hand in photos at the device.
type ScreenHandler struct {
	service *app.Service
}

func NewScreenHandler(service *app.Service) *ScreenHandler {
	return &ScreenHandler{service: service}
}

func (h *ScreenHandler) requireScreen(w http.ResponseWriter, r *http.Request) bool {
	if _, err := h.service.ScreenFromRequest(r); err != nil {
		writeError(w, http.StatusUnauthorized, "Not logged in")
		return false
	}
	return true
}

// HandleActiveHomework lists homework whose deadline has not passed.
func (h *ScreenHandler) HandleActiveHomework(w http.ResponseWriter, r *http.Request) {
	if !h.requireScreen(w, r) {
		return
	}

	homeworks, err := h.service.Store.ListActiveHomework(time.Now().Unix())
	if err != nil {
		logger.Error.Printf("Failed to list active homework: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch homework")
		return
	}

	writeSuccess(w, map[string]interface{}{"homeworks": homeworks})
}

// HandleRoster returns the student list for the submit picker.
func (h *ScreenHandler) HandleRoster(w http.ResponseWriter, r *http.Request) {
	if !h.requireScreen(w, r) {
		return
	}

	students, err := h.service.Store.ListStudents(studentOrderClause("name"))
	if err != nil {
		logger.Error.Printf("Failed to list students: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch students")
		return
	}

	writeSuccess(w, map[string]interface{}{"students": students})
}

// HandleSubmissionRoster shows which students already handed in one
// homework, for the kiosk's checklist view.
func (h *ScreenHandler) HandleSubmissionRoster(w http.ResponseWriter, r *http.Request) {
	if !h.requireScreen(w, r) {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	statuses, err := h.service.Store.ListSubmissionStatuses(id)
	if err != nil {
		logger.Error.Printf("Failed to list submissions for homework %d: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch submissions")
		return
	}

	writeSuccess(w, map[string]interface{}{"submissions": statuses})
}

// HandleViewImage streams a stored submission as raw JPEG so the kiosk
// can show the student what was just handed in.
func (h *ScreenHandler) HandleViewImage(w http.ResponseWriter, r *http.Request) {
	if !h.requireScreen(w, r) {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	submission, err := h.service.Store.GetSubmission(id)
	if err != nil {
		logger.Error.Printf("Failed to fetch submission %d: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch submission")
		return
	}
	if submission == nil {
		writeError(w, http.StatusNotFound, "Submission not found")
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Write(submission.Image)
}

// HandleSubmitPhoto accepts a multipart photo upload for one homework
// and student, recompresses it and stores it. Resubmitting replaces the
// previous photo but keeps the first submit time.
func (h *ScreenHandler) HandleSubmitPhoto(w http.ResponseWriter, r *http.Request) {
	if !h.requireScreen(w, r) {
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid upload")
		return
	}

	homeworkID, err := strconv.ParseInt(r.FormValue("homeworkId"), 10, 64)
	if err != nil || homeworkID <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid homework id")
		return
	}
	studentID, err := strconv.ParseInt(r.FormValue("studentId"), 10, 64)
	if err != nil || studentID <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid student id")
		return
	}

	file, _, err := r.FormFile("photo")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Photo is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		logger.Error.Printf("Failed to read upload: %v", err)
		writeError(w, http.StatusBadRequest, "Failed to read upload")
		return
	}

	compressed, err := imgproc.Compress(data, imgproc.Options{
		ShortSide:   h.service.Config.Uploads.ShortSide,
		JPEGQuality: h.service.Config.Uploads.JPEGQuality,
	})
	if errors.Is(err, imgproc.ErrNotImage) {
		metrics.SubmissionsTotal.WithLabelValues("rejected").Inc()
		writeError(w, http.StatusBadRequest, "Uploaded file is not an image")
		return
	}
	if err != nil {
		logger.Error.Printf("Failed to compress upload: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to process photo")
		return
	}

	if err := h.service.Store.UpsertSubmission(homeworkID, studentID, compressed, time.Now().Unix()); err != nil {
		logger.Error.Printf("Failed to store submission: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to store submission")
		return
	}

	metrics.SubmissionsTotal.WithLabelValues("accepted").Inc()
	writeSuccess(w, nil)
}
