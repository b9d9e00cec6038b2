package notes

import "github.com/starford/tooknotes/internal/models"

// NotesState is an immutable snapshot of what the notes list shows.
// Consumers must treat Notes as read-only.
type NotesState struct {
	Notes                 []models.Note    `json:"notes"`
	NoteOrder             models.NoteOrder `json:"note_order"`
	IsOrderSectionVisible bool             `json:"is_order_section_visible"`
	// Err holds the last store failure; empty once a store call succeeds again.
	Err string `json:"error,omitempty"`
}

// Event is a request to change the notes list. The set is closed.
type Event interface {
	eventName() string
}

// StoreUpdated carries a fresh note list from the store.
type StoreUpdated struct {
	Notes []models.Note
}

// ToggleOrderSection shows or hides the order panel.
type ToggleOrderSection struct{}

// Order changes the sort order.
type Order struct {
	NoteOrder models.NoteOrder
}

// DeleteNote deletes a note and keeps it for a single undo.
type DeleteNote struct {
	Note models.Note
}

// RestoreNote re-inserts the most recently deleted note, if any.
type RestoreNote struct{}

func (StoreUpdated) eventName() string       { return "store_updated" }
func (ToggleOrderSection) eventName() string { return "toggle_order_section" }
func (Order) eventName() string              { return "order" }
func (DeleteNote) eventName() string         { return "delete_note" }
func (RestoreNote) eventName() string        { return "restore_note" }
