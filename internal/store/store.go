// Package store provides the SQLite-backed note store with a live snapshot feed.
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"github.com/starford/tooknotes/internal/apperr"
	"github.com/starford/tooknotes/internal/feed"
	"github.com/starford/tooknotes/internal/models"
)

//go:embed migrations/*.sql
var migrations embed.FS

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// NoteStore is the persistence contract the repository forwards to.
type NoteStore interface {
	ObserveNotes(ctx context.Context) <-chan []models.Note
	GetNoteByID(ctx context.Context, id int64) (models.Note, bool, error)
	InsertNote(ctx context.Context, note models.Note) (int64, error)
	DeleteNote(ctx context.Context, note models.Note) error
}

// Verify *SQLite satisfies NoteStore at compile time.
var _ NoteStore = (*SQLite)(nil)

// SQLite stores notes in a SQLite database and publishes the full note list
// after every change.
type SQLite struct {
	conn   *sql.DB
	path   string
	logger *slog.Logger
	feed   *feed.Feed[[]models.Note]

	// mu serializes write+publish so snapshots go out in write order.
	mu   sync.Mutex
	last []models.Note

	// list loads the snapshot to publish. Defaults to ListNotes.
	list func(ctx context.Context) ([]models.Note, error)
}

// Open opens (or creates) the database at path, applies migrations and loads
// the initial snapshot.
func Open(path string, logger *slog.Logger) (*SQLite, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dsn := path
	if path != MemoryPath {
		dsn = path + "?_journal_mode=WAL&_busy_timeout=5000"
	}
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if path == MemoryPath {
		// Every pooled connection would otherwise see its own empty database.
		conn.SetMaxOpenConns(1)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}

	s := &SQLite{
		conn:   conn,
		path:   path,
		logger: logger,
		feed:   feed.New[[]models.Note](),
	}
	s.list = s.ListNotes
	if err := s.refresh(context.Background(), true); err != nil {
		s.feed.Close()
		conn.Close()
		return nil, err
	}
	return s, nil
}

func migrate(conn *sql.DB) error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	if err := goose.Up(conn, "migrations"); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// Close stops the feed, which closes every observer channel, and closes the
// database.
func (s *SQLite) Close() error {
	s.feed.Close()
	return s.conn.Close()
}

// Path returns the database path the store was opened with.
func (s *SQLite) Path() string {
	return s.path
}

// Ping checks that the database is reachable.
func (s *SQLite) Ping(ctx context.Context) error {
	if err := s.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: ping: %w", apperr.ErrStoreUnavailable, err)
	}
	return nil
}

// ObserveNotes returns a channel that yields the current note list and then
// every later one. Slices are shared between observers and must not be
// modified. The channel closes when ctx is done or the store is closed.
func (s *SQLite) ObserveNotes(ctx context.Context) <-chan []models.Note {
	return s.feed.Subscribe(ctx)
}

// ObserverCount returns the number of live observers.
func (s *SQLite) ObserverCount() int {
	return s.feed.SubscriberCount()
}

// GetNoteByID returns the note with id. A missing note is reported with
// found=false and a nil error.
func (s *SQLite) GetNoteByID(ctx context.Context, id int64) (models.Note, bool, error) {
	row := s.conn.QueryRowContext(ctx, `SELECT `+noteCols+` FROM notes WHERE id = ?`, id)
	n, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Note{}, false, nil
	}
	if err != nil {
		return models.Note{}, false, fmt.Errorf("%w: get note: %w", apperr.ErrStoreUnavailable, err)
	}
	return n, true, nil
}

// InsertNote creates or replaces a note and returns its id. A note without an
// id gets a new one; a note with an id replaces the row with that id, or
// recreates it under the same id when it was deleted.
func (s *SQLite) InsertNote(ctx context.Context, note models.Note) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var id sql.NullInt64
	if note.HasID() {
		id = sql.NullInt64{Int64: note.ID, Valid: true}
	}

	res, err := s.conn.ExecContext(ctx, `
		INSERT INTO notes (id, title, content, timestamp, color)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title     = excluded.title,
			content   = excluded.content,
			timestamp = excluded.timestamp,
			color     = excluded.color
	`, id, note.Title, note.Content, note.Timestamp, note.Color)
	if err != nil {
		return 0, fmt.Errorf("%w: insert note: %w", apperr.ErrStoreUnavailable, err)
	}

	newID := note.ID
	if !note.HasID() {
		newID, err = res.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("%w: last insert id: %w", apperr.ErrStoreUnavailable, err)
		}
	}

	s.publishAfterWrite(ctx, "insert")
	return newID, nil
}

// DeleteNote removes the row matching note.ID. Deleting a missing note is
// not an error.
func (s *SQLite) DeleteNote(ctx context.Context, note models.Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.conn.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, note.ID)
	if err != nil {
		return fmt.Errorf("%w: delete note: %w", apperr.ErrStoreUnavailable, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil
	}
	s.publishAfterWrite(ctx, "delete")
	return nil
}

// publishAfterWrite refreshes observers once a write has committed. The write
// stands even when the refresh fails; the next successful refresh catches
// observers up.
func (s *SQLite) publishAfterWrite(ctx context.Context, op string) {
	if err := s.refreshLocked(ctx, true); err != nil {
		s.logger.Warn("store: refresh after write failed",
			slog.String("op", op), slog.String("error", err.Error()))
	}
}

// ListNotes returns every note ordered by id.
func (s *SQLite) ListNotes(ctx context.Context) ([]models.Note, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT `+noteCols+` FROM notes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%w: list notes: %w", apperr.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	notes := []models.Note{}
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan note: %w", apperr.ErrStoreUnavailable, err)
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list notes: %w", apperr.ErrStoreUnavailable, err)
	}
	return notes, nil
}

// refresh re-reads all notes and publishes them. With force=false the
// snapshot is only published when it differs from the previous one.
func (s *SQLite) refresh(ctx context.Context, force bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshLocked(ctx, force)
}

func (s *SQLite) refreshLocked(ctx context.Context, force bool) error {
	notes, err := s.list(ctx)
	if err != nil {
		return err
	}
	if !force && s.last != nil && slices.Equal(s.last, notes) {
		return nil
	}
	s.last = notes
	s.feed.Publish(notes)
	s.logger.Debug("store: published snapshot", slog.Int("notes", len(notes)))
	return nil
}

const noteCols = `id, title, content, timestamp, color`

func scanNote(scanner interface{ Scan(...any) error }) (models.Note, error) {
	var n models.Note
	err := scanner.Scan(&n.ID, &n.Title, &n.Content, &n.Timestamp, &n.Color)
	return n, err
}
