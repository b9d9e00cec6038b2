// Package models defines the domain types for tooknotes.
package models

import "time"

// Note is a persisted note. ID is zero until the store assigns one.
type Note struct {
	ID        int64  `json:"id,omitempty"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"` // epoch milliseconds
	Color     int    `json:"color"`
}

// HasID reports whether the note has been persisted.
func (n Note) HasID() bool {
	return n.ID != 0
}

// Time returns the note timestamp as a time.Time.
func (n Note) Time() time.Time {
	return time.UnixMilli(n.Timestamp)
}

// Note colors, ARGB encoded.
const (
	ColorRedOrange  = 0xFFFFAB91
	ColorRedPink    = 0xFFF48FB1
	ColorBabyBlue   = 0xFF81DEEA
	ColorViolet     = 0xFFCF94DA
	ColorLightGreen = 0xFFE7ED9B
)

// NoteColors is the palette a note color must come from.
var NoteColors = []int{
	ColorRedOrange,
	ColorRedPink,
	ColorBabyBlue,
	ColorViolet,
	ColorLightGreen,
}

// IsNoteColor reports whether c belongs to the palette.
func IsNoteColor(c int) bool {
	for _, nc := range NoteColors {
		if nc == c {
			return true
		}
	}
	return false
}
