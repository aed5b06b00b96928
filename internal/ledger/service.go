package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/beiya2414/classboard/internal/models"
	"github.com/beiya2414/classboard/internal/store"
)

var (
	ErrInvalidReason       = errors.New("invalid reason type")
	ErrMissingCustomReason = errors.New("custom reason must not be empty")
	ErrStudentNotFound     = errors.New("student not found")
	ErrNotUndoable         = errors.New("change not undoable")
	ErrAlreadyUndone       = errors.New("change already undone")
)

// Service owns the score log: every mutation appends one row and moves
// the student's balance in the same transaction.
type Service struct {
	store store.Store
}

func NewService(st store.Store) *Service {
	return &Service{store: st}
}

// ApplyChange records a score adjustment. A catalog reason must exist and
// its configured delta wins over any client-supplied amount; a custom
// reason requires non-empty text and uses explicitDelta verbatim.
func (s *Service) ApplyChange(actorID, studentID int64, reason Reason, explicitDelta float64) (float64, int64, error) {
	var delta float64

	switch reason.Kind {
	case ReasonCatalog:
		t, err := s.store.GetScoreChangeType(reason.TypeID)
		if err != nil {
			return 0, 0, err
		}
		if t == nil {
			return 0, 0, ErrInvalidReason
		}
		delta = t.Delta
	case ReasonCustom:
		if reason.Text == "" {
			return 0, 0, ErrMissingCustomReason
		}
		delta = explicitDelta
	default:
		// undo markers are only ever written by UndoChange
		return 0, 0, ErrInvalidReason
	}

	change := &models.ScoreChange{
		TeacherID: actorID,
		StudentID: studentID,
		Reason:    reason.Encode(),
		Delta:     delta,
		CreatedAt: time.Now().Unix(),
	}

	id, err := s.store.ApplyScoreChange(change)
	if err != nil {
		if errors.Is(err, store.ErrNoStudent) {
			return 0, 0, ErrStudentNotFound
		}
		return 0, 0, err
	}

	logger.Debug.Printf("Applied score change %d: student=%d delta=%+.1f", id, studentID, delta)
	return delta, id, nil
}

// UndoChange appends a compensating row for one of the actor's own
// changes. The unique undo_of column makes a concurrent double undo lose
// with ErrAlreadyUndone instead of double-compensating.
func (s *Service) UndoChange(actorID, eventID int64) (float64, int64, error) {
	orig, err := s.store.GetScoreChange(eventID)
	if err != nil {
		return 0, 0, err
	}
	if orig == nil || orig.TeacherID != actorID {
		return 0, 0, ErrNotUndoable
	}
	if orig.UndoOf != nil || DecodeReason(orig.Reason).Kind == ReasonUndo {
		return 0, 0, ErrNotUndoable
	}

	undone, err := s.store.HasUndoFor(eventID)
	if err != nil {
		return 0, 0, err
	}
	if undone {
		return 0, 0, ErrAlreadyUndone
	}

	compensating := -orig.Delta
	change := &models.ScoreChange{
		TeacherID: actorID,
		StudentID: orig.StudentID,
		Reason:    UndoOf(eventID).Encode(),
		Delta:     compensating,
		UndoOf:    &eventID,
		CreatedAt: time.Now().Unix(),
	}

	newID, err := s.store.ApplyScoreChange(change)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicateUndo):
			return 0, 0, ErrAlreadyUndone
		case errors.Is(err, store.ErrNoStudent):
			return 0, 0, ErrStudentNotFound
		}
		return 0, 0, err
	}

	logger.Debug.Printf("Undid score change %d with %d (delta %+.1f)", eventID, newID, compensating)
	return compensating, newID, nil
}

// Entry is the presentation shape of one log row: names resolved, undo
// rows flagged, catalog reasons replaced with their display name. The
// stored reason is never rewritten.
type Entry struct {
	ID          int64   `json:"Id"`
	TeacherID   int64   `json:"teacherId"`
	StudentID   int64   `json:"studentId"`
	TeacherName string  `json:"teacherName"`
	StudentName string  `json:"studentName"`
	Reason      string  `json:"reason"`
	Delta       float64 `json:"change"`
	Timestamp   int64   `json:"timestamp"`
	IsUndo      bool    `json:"isUndo"`
}

func (s *Service) ListChanges(f store.ChangeFilter) ([]Entry, bool, error) {
	rows, hasMore, err := s.store.ListScoreChanges(f)
	if err != nil {
		return nil, false, err
	}

	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		e := Entry{
			ID:          row.ID,
			TeacherID:   row.TeacherID,
			StudentID:   row.StudentID,
			TeacherName: row.TeacherName(),
			StudentName: row.StudentName(),
			Reason:      row.Reason,
			Delta:       row.Delta,
			Timestamp:   row.CreatedAt,
		}

		decoded := DecodeReason(row.Reason)
		switch decoded.Kind {
		case ReasonUndo:
			e.IsUndo = true
		case ReasonCatalog:
			if row.ReasonTypeName != nil {
				e.Reason = fmt.Sprintf("%s (ID: %d)", *row.ReasonTypeName, decoded.TypeID)
			}
		case ReasonCustom:
			e.Reason = decoded.Text
		}

		entries = append(entries, e)
	}

	return entries, hasMore, nil
}

// ReasonFilter is one option of the log filter dropdown: the raw stored
// value plus a display label.
type ReasonFilter struct {
	Value string `json:"value"`
	Text  string `json:"text"`
}

// ListReasonFilters returns the distinct catalog reasons present in the
// log, labelled with the catalog names where known.
func (s *Service) ListReasonFilters() ([]ReasonFilter, error) {
	values, err := s.store.ListDistinctReasons()
	if err != nil {
		return nil, err
	}

	types, err := s.store.ListScoreChangeTypes()
	if err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(types))
	for _, t := range types {
		names[t.ID] = t.Name
	}

	filters := make([]ReasonFilter, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		text := v
		if decoded := DecodeReason(v); decoded.Kind == ReasonCatalog {
			if name, ok := names[decoded.TypeID]; ok {
				text = fmt.Sprintf("%s (ID: %d)", name, decoded.TypeID)
			}
		}
		filters = append(filters, ReasonFilter{Value: v, Text: text})
	}

	return filters, nil
}
