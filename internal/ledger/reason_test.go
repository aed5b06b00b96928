package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReasonEncode(t *testing.T) {
	tests := []struct {
		name   string
		reason Reason
		want   string
	}{
		{"catalog", CatalogRef(17), "17"},
		{"custom", Custom("forgot homework"), "custom-forgot homework"},
		{"custom empty", Custom(""), "custom-"},
		{"undo", UndoOf(42), "undo[42]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.reason.Encode())
		})
	}
}

func TestDecodeReason(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Reason
	}{
		{"catalog", "17", CatalogRef(17)},
		{"custom", "custom-late again", Custom("late again")},
		{"undo", "undo[42]", UndoOf(42)},
		{"undo garbage inside", "undo[abc]", Custom("undo[abc]")},
		{"legacy free text", "handed in early", Custom("handed in early")},
		{"empty", "", Custom("")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DecodeReason(tt.in))
		})
	}
}

func TestReasonRoundTrip(t *testing.T) {
	for _, r := range []Reason{CatalogRef(1), Custom("text"), UndoOf(99)} {
		assert.Equal(t, r, DecodeReason(r.Encode()))
	}
}
