package api

import (
	"github.com/starford/tooknotes/internal/models"
	"github.com/starford/tooknotes/internal/notes"
)

// NoteRequest is the request body for creating or replacing a note.
// Color and timestamp are optional; zero values get defaults.
type NoteRequest struct {
	Title     string `json:"title" example:"Groceries" validate:"required"`
	Content   string `json:"content" example:"Milk, eggs" validate:"required"`
	Color     int    `json:"color,omitempty" example:"4294945681"`
	Timestamp int64  `json:"timestamp,omitempty" example:"1700000000000"`
}

func (r NoteRequest) note(id int64) models.Note {
	return models.Note{ID: id, Title: r.Title, Content: r.Content, Color: r.Color, Timestamp: r.Timestamp}
}

// NoteResponse is a single note plus its checksum.
type NoteResponse struct {
	models.Note
	Checksum string `json:"checksum" validate:"required"`
}

// OrderRequest is the request body for POST /api/events/order.
type OrderRequest struct {
	Order string `json:"order" example:"title:asc" validate:"required"`
}

// DeleteRequest is the request body for POST /api/events/delete.
type DeleteRequest struct {
	ID int64 `json:"id" example:"1" validate:"required"`
}

// StateResponse is the notes list snapshot returned by every event endpoint.
type StateResponse = notes.NotesState

// DeleteResponse is the state after a delete plus the undo offer shown to the user.
type DeleteResponse struct {
	State   StateResponse `json:"state" validate:"required"`
	Message string        `json:"message" example:"Note deleted" validate:"required"`
	Action  string        `json:"action" example:"Undo" validate:"required"`
}

// RouteResponse is a navigation target for the add/edit screen.
type RouteResponse struct {
	Route     string `json:"route" example:"add_edit_note?noteId=1&noteColor=4294945681" validate:"required"`
	NoteID    int64  `json:"note_id,omitempty" example:"1"`
	NoteColor int    `json:"note_color,omitempty" example:"4294945681"`
}

func routeResponse(r notes.Route) RouteResponse {
	return RouteResponse{Route: r.String(), NoteID: r.NoteID, NoteColor: r.NoteColor}
}
