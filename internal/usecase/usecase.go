// Package usecase holds the single-operation note use cases.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/tooknotes/internal/apperr"
	"github.com/starford/tooknotes/internal/models"
	"github.com/starford/tooknotes/internal/repository"
)

// GetNotes observes the full note list.
type GetNotes struct {
	repo repository.NoteRepository
}

func (u GetNotes) Invoke(ctx context.Context) <-chan []models.Note {
	return u.repo.ObserveNotes(ctx)
}

// GetNote looks a note up by id.
type GetNote struct {
	repo repository.NoteRepository
}

func (u GetNote) Invoke(ctx context.Context, id int64) (models.Note, bool, error) {
	return u.repo.GetNoteByID(ctx, id)
}

// DeleteNote removes a note.
type DeleteNote struct {
	repo repository.NoteRepository
}

func (u DeleteNote) Invoke(ctx context.Context, note models.Note) error {
	return u.repo.DeleteNote(ctx, note)
}

// AddNote validates and saves a new or edited note.
type AddNote struct {
	repo repository.NoteRepository
	now  func() time.Time
}

// Invoke rejects notes with a blank title or content, or a color outside the
// palette, with an error wrapping apperr.ErrInvalidNote. A zero color becomes
// the first palette color and a zero timestamp becomes the current time.
func (u AddNote) Invoke(ctx context.Context, note models.Note) (int64, error) {
	if note.Color == 0 {
		note.Color = models.NoteColors[0]
	}
	if note.Timestamp == 0 {
		note.Timestamp = u.now().UnixMilli()
	}
	if err := ValidateNote(&note); err != nil {
		return 0, err
	}
	return u.repo.InsertNote(ctx, note)
}

var notBlank = validation.By(func(value interface{}) error {
	s, _ := value.(string)
	if strings.TrimSpace(s) == "" {
		return errors.New("cannot be blank")
	}
	return nil
})

// ValidateNote checks the fields a user must fill in.
func ValidateNote(note *models.Note) error {
	palette := make([]interface{}, len(models.NoteColors))
	for i, c := range models.NoteColors {
		palette[i] = c
	}
	err := validation.ValidateStruct(note,
		validation.Field(&note.Title, notBlank),
		validation.Field(&note.Content, notBlank),
		validation.Field(&note.Color, validation.In(palette...)),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", apperr.ErrInvalidNote, err)
	}
	return nil
}

// NoteUseCases bundles the use cases handed to the presentation layer.
type NoteUseCases struct {
	GetNotes   GetNotes
	GetNote    GetNote
	AddNote    AddNote
	DeleteNote DeleteNote
}

// Option configures NewNoteUseCases.
type Option func(*NoteUseCases)

// WithClock overrides the clock AddNote stamps new notes with.
func WithClock(now func() time.Time) Option {
	return func(u *NoteUseCases) {
		u.AddNote.now = now
	}
}

// NewNoteUseCases builds every use case on top of repo.
func NewNoteUseCases(repo repository.NoteRepository, opts ...Option) NoteUseCases {
	u := NoteUseCases{
		GetNotes:   GetNotes{repo: repo},
		GetNote:    GetNote{repo: repo},
		AddNote:    AddNote{repo: repo, now: time.Now},
		DeleteNote: DeleteNote{repo: repo},
	}
	for _, opt := range opts {
		opt(&u)
	}
	return u
}
