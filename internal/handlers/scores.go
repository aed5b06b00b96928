package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/beiya2414/classboard/internal/app"
	"github.com/beiya2414/classboard/internal/ledger"
	"github.com/beiya2414/classboard/internal/metrics"
	"github.com/beiya2414/classboard/internal/store"
)

const defaultLogPageSize = 20

type ScoreHandler struct {
	service *app.Service
	ledger  *ledger.Service
}

func NewScoreHandler(service *app.Service) *ScoreHandler {
	return &ScoreHandler{
		service: service,
		ledger:  ledger.NewService(service.Store),
	}
}

// studentOrderClause whitelists the sort parameter, the store
// concatenates the clause verbatim.
func studentOrderClause(sort string) string {
	switch sort {
	case "score":
		return "s.score DESC, s.id ASC"
	case "name":
		return "s.lastname ASC, s.firstname ASC"
	case "group":
		return "g.group_name ASC, s.id ASC"
	default:
		return "s.id ASC"
	}
}

// HandleListStudents returns the roster with current balances. The sort
// query parameter accepts "score", "name" or "group", anything else
// keeps id order.
func (h *ScoreHandler) HandleListStudents(w http.ResponseWriter, r *http.Request) {
	if _, err := h.service.TeacherFromRequest(r); err != nil {
		writeError(w, http.StatusUnauthorized, "Not logged in")
		return
	}

	students, err := h.service.Store.ListStudents(studentOrderClause(r.URL.Query().Get("sort")))
	if err != nil {
		logger.Error.Printf("Failed to list students: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch students")
		return
	}

	writeSuccess(w, map[string]interface{}{"students": students})
}

func (h *ScoreHandler) HandleListScoreTypes(w http.ResponseWriter, r *http.Request) {
	if _, err := h.service.TeacherFromRequest(r); err != nil {
		writeError(w, http.StatusUnauthorized, "Not logged in")
		return
	}

	types, err := h.service.Store.ListScoreChangeTypes()
	if err != nil {
		logger.Error.Printf("Failed to list score change types: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch score change types")
		return
	}

	writeSuccess(w, map[string]interface{}{"types": types})
}

type applyChangeRequest struct {
	StudentID  int64   `json:"studentId" validate:"required"`
	Reason     string  `json:"reason" validate:"required"`
	CustomText string  `json:"customReason"`
	Delta      float64 `json:"change"`
}

// HandleApplyChange records one score adjustment. The reason field is
// either a catalog type id or the literal "custom" with free text.
func (h *ScoreHandler) HandleApplyChange(w http.ResponseWriter, r *http.Request) {
	principal, err := h.service.TeacherFromRequest(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Not logged in")
		return
	}

	var req applyChangeRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	var reason ledger.Reason
	if req.Reason == "custom" {
		reason = ledger.Custom(req.CustomText)
	} else {
		typeID, err := strconv.ParseInt(req.Reason, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid reason")
			return
		}
		reason = ledger.CatalogRef(typeID)
	}

	delta, eventID, err := h.ledger.ApplyChange(principal.ID, req.StudentID, reason, req.Delta)
	switch {
	case errors.Is(err, ledger.ErrInvalidReason):
		writeError(w, http.StatusBadRequest, "Invalid reason")
		return
	case errors.Is(err, ledger.ErrMissingCustomReason):
		writeError(w, http.StatusBadRequest, "Custom reason must not be empty")
		return
	case errors.Is(err, ledger.ErrStudentNotFound):
		writeError(w, http.StatusNotFound, "Student not found")
		return
	case err != nil:
		logger.Error.Printf("Failed to apply score change: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to apply score change")
		return
	}

	metrics.ScoreChangesTotal.WithLabelValues("change").Inc()

	writeSuccess(w, map[string]interface{}{
		"Id":     eventID,
		"change": delta,
	})
}

type undoRequest struct {
	EventID int64 `json:"Id" validate:"required"`
}

// HandleUndo appends a compensating entry for one of the caller's own
// changes.
func (h *ScoreHandler) HandleUndo(w http.ResponseWriter, r *http.Request) {
	principal, err := h.service.TeacherFromRequest(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Not logged in")
		return
	}

	var req undoRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	h.undo(w, principal.ID, req.EventID)
}

func (h *ScoreHandler) undo(w http.ResponseWriter, actorID, eventID int64) {
	delta, newID, err := h.ledger.UndoChange(actorID, eventID)
	switch {
	case errors.Is(err, ledger.ErrNotUndoable):
		writeError(w, http.StatusForbidden, "Change cannot be undone")
		return
	case errors.Is(err, ledger.ErrAlreadyUndone):
		writeError(w, http.StatusBadRequest, "Change already undone")
		return
	case errors.Is(err, ledger.ErrStudentNotFound):
		writeError(w, http.StatusNotFound, "Student not found")
		return
	case err != nil:
		logger.Error.Printf("Failed to undo score change %d: %v", eventID, err)
		writeError(w, http.StatusInternalServerError, "Failed to undo score change")
		return
	}

	metrics.ScoreChangesTotal.WithLabelValues("undo").Inc()

	writeSuccess(w, map[string]interface{}{
		"Id":     newID,
		"change": delta,
	})
}

// HandleMyLog lists the caller's own log entries, newest first.
func (h *ScoreHandler) HandleMyLog(w http.ResponseWriter, r *http.Request) {
	principal, err := h.service.TeacherFromRequest(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Not logged in")
		return
	}

	filter := changeFilterFromQuery(r)
	filter.TeacherID = principal.ID
	h.listLog(w, filter)
}

// HandleAdminLog lists all log entries with optional teacher, student,
// reason and time filters.
func (h *ScoreHandler) HandleAdminLog(w http.ResponseWriter, r *http.Request) {
	if _, err := h.service.AdminFromRequest(r); err != nil {
		writeError(w, http.StatusForbidden, "Admin required")
		return
	}

	filter := changeFilterFromQuery(r)
	filter.TeacherID, _ = strconv.ParseInt(r.URL.Query().Get("teacherId"), 10, 64)
	h.listLog(w, filter)
}

func (h *ScoreHandler) listLog(w http.ResponseWriter, filter store.ChangeFilter) {
	entries, hasMore, err := h.ledger.ListChanges(filter)
	if err != nil {
		logger.Error.Printf("Failed to list score changes: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch log")
		return
	}

	writeSuccess(w, map[string]interface{}{
		"logs":       entries,
		"hasMore":    hasMore,
		"nextOffset": filter.Offset + len(entries),
	})
}

func changeFilterFromQuery(r *http.Request) store.ChangeFilter {
	q := r.URL.Query()
	f := store.ChangeFilter{Limit: defaultLogPageSize}
	f.StudentID, _ = strconv.ParseInt(q.Get("studentId"), 10, 64)
	f.Reason = q.Get("reason")
	f.Start, _ = strconv.ParseInt(q.Get("start"), 10, 64)
	f.End, _ = strconv.ParseInt(q.Get("end"), 10, 64)
	f.Offset, _ = strconv.Atoi(q.Get("offset"))
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil && limit > 0 && limit <= 100 {
		f.Limit = limit
	}
	return f
}

// HandleReasonFilters returns the dropdown options for the admin log
// reason filter.
func (h *ScoreHandler) HandleReasonFilters(w http.ResponseWriter, r *http.Request) {
	if _, err := h.service.AdminFromRequest(r); err != nil {
		writeError(w, http.StatusForbidden, "Admin required")
		return
	}

	filters, err := h.ledger.ListReasonFilters()
	if err != nil {
		logger.Error.Printf("Failed to list reason filters: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch filters")
		return
	}

	writeSuccess(w, map[string]interface{}{"reasons": filters})
}

// HandleAdminUndo lets an administrator revert any entry. The
// compensating row is attributed to the entry's original author so the
// per-teacher log stays self-contained.
func (h *ScoreHandler) HandleAdminUndo(w http.ResponseWriter, r *http.Request) {
	if _, err := h.service.AdminFromRequest(r); err != nil {
		writeError(w, http.StatusForbidden, "Admin required")
		return
	}

	var req undoRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	orig, err := h.service.Store.GetScoreChange(req.EventID)
	if err != nil {
		logger.Error.Printf("Failed to fetch score change %d: %v", req.EventID, err)
		writeError(w, http.StatusInternalServerError, "Failed to undo score change")
		return
	}
	if orig == nil {
		writeError(w, http.StatusForbidden, "Change cannot be undone")
		return
	}

	h.undo(w, orig.TeacherID, req.EventID)
}
