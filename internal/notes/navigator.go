package notes

import (
	"fmt"
	"sync"
)

// AddEditNoteRoute is the screen that edits or creates a note.
const AddEditNoteRoute = "add_edit_note"

// Route identifies the add/edit screen for a note. NoteID is zero for a new note.
type Route struct {
	NoteID    int64 `json:"note_id,omitempty"`
	NoteColor int   `json:"note_color,omitempty"`
}

// String renders the route the way the navigation host expects it.
func (r Route) String() string {
	if r.NoteID == 0 {
		return AddEditNoteRoute
	}
	return fmt.Sprintf("%s?noteId=%d&noteColor=%d", AddEditNoteRoute, r.NoteID, r.NoteColor)
}

// Navigator is the navigation host that moves the user to another screen.
type Navigator interface {
	Navigate(route Route)
}

// RecordingNavigator remembers the last requested route. Surfaces without a
// screen stack (HTTP, MCP) return it to the client instead of navigating.
type RecordingNavigator struct {
	mu   sync.Mutex
	last *Route
}

func (n *RecordingNavigator) Navigate(route Route) {
	n.mu.Lock()
	n.last = &route
	n.mu.Unlock()
}

// Last returns the most recent route, if any.
func (n *RecordingNavigator) Last() (Route, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.last == nil {
		return Route{}, false
	}
	return *n.last, true
}
