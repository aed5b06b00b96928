package ledger

import (
	"fmt"
	"strconv"
	"strings"
)

// The reason column of the score log is a tagged value: a catalog type
// id, free custom text, or an undo marker pointing at an earlier row.
// Encoding and decoding live here and nowhere else.
//
// Stored forms:
//
//	catalog: "17"
//	custom:  "custom-forgot homework"
//	undo:    "undo[42]"

type ReasonKind int

const (
	ReasonCatalog ReasonKind = iota
	ReasonCustom
	ReasonUndo
)

type Reason struct {
	Kind    ReasonKind
	TypeID  int64  // catalog
	Text    string // custom
	EventID int64  // undo target
}

func CatalogRef(id int64) Reason {
	return Reason{Kind: ReasonCatalog, TypeID: id}
}

func Custom(text string) Reason {
	return Reason{Kind: ReasonCustom, Text: text}
}

func UndoOf(eventID int64) Reason {
	return Reason{Kind: ReasonUndo, EventID: eventID}
}

const (
	customPrefix = "custom-"
	undoPrefix   = "undo["
	undoSuffix   = "]"
)

func (r Reason) Encode() string {
	switch r.Kind {
	case ReasonCatalog:
		return strconv.FormatInt(r.TypeID, 10)
	case ReasonUndo:
		return fmt.Sprintf("%s%d%s", undoPrefix, r.EventID, undoSuffix)
	default:
		return customPrefix + r.Text
	}
}

// DecodeReason parses a stored reason string. Legacy rows that match no
// recognized form are treated as custom text.
func DecodeReason(s string) Reason {
	if strings.HasPrefix(s, undoPrefix) && strings.HasSuffix(s, undoSuffix) {
		inner := strings.TrimSuffix(strings.TrimPrefix(s, undoPrefix), undoSuffix)
		if id, err := strconv.ParseInt(inner, 10, 64); err == nil {
			return UndoOf(id)
		}
	}
	if strings.HasPrefix(s, customPrefix) {
		return Custom(strings.TrimPrefix(s, customPrefix))
	}
	if id, err := strconv.ParseInt(s, 10, 64); err == nil {
		return CatalogRef(id)
	}
	return Custom(s)
}
