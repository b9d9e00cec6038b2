// Package repository adapts the note store to the shape the use cases expect.
package repository

import (
	"context"

	"github.com/starford/tooknotes/internal/models"
	"github.com/starford/tooknotes/internal/store"
)

// NoteRepository is the domain-facing persistence contract.
type NoteRepository interface {
	// ObserveNotes yields the full note list now and after every change.
	ObserveNotes(ctx context.Context) <-chan []models.Note
	// GetNoteByID returns found=false, not an error, for a missing note.
	GetNoteByID(ctx context.Context, id int64) (models.Note, bool, error)
	// InsertNote creates or replaces a note and returns its id.
	InsertNote(ctx context.Context, note models.Note) (int64, error)
	// DeleteNote removes the note; a missing note is a no-op.
	DeleteNote(ctx context.Context, note models.Note) error
}

var _ NoteRepository = (*noteRepository)(nil)

type noteRepository struct {
	store store.NoteStore
}

// New returns a NoteRepository that forwards every call to s.
func New(s store.NoteStore) NoteRepository {
	return &noteRepository{store: s}
}

func (r *noteRepository) ObserveNotes(ctx context.Context) <-chan []models.Note {
	return r.store.ObserveNotes(ctx)
}

func (r *noteRepository) GetNoteByID(ctx context.Context, id int64) (models.Note, bool, error) {
	return r.store.GetNoteByID(ctx, id)
}

func (r *noteRepository) InsertNote(ctx context.Context, note models.Note) (int64, error) {
	return r.store.InsertNote(ctx, note)
}

func (r *noteRepository) DeleteNote(ctx context.Context, note models.Note) error {
	return r.store.DeleteNote(ctx, note)
}
