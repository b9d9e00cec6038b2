// Package testutil provides shared test helpers for setting up stores and
// running controllers.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/tooknotes/internal/notes"
	"github.com/starford/tooknotes/internal/repository"
	"github.com/starford/tooknotes/internal/store"
	"github.com/starford/tooknotes/internal/usecase"
)

// Logger discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// TestStore opens a temporary SQLite note store that is automatically closed.
func TestStore(t *testing.T) *store.SQLite {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "notes.db"), Logger())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// Env is a running notes stack on top of a temporary store.
type Env struct {
	Store    *store.SQLite
	UseCases usecase.NoteUseCases
	Ctrl     *notes.Controller
}

// Start builds repository, use cases and a controller over a fresh store and
// runs the controller until the test ends.
func Start(t *testing.T, opts ...notes.Option) *Env {
	t.Helper()
	s := TestStore(t)
	repo := repository.New(s)
	uc := usecase.NewNoteUseCases(repo)
	ctrl := notes.New(uc, repo, append([]notes.Option{notes.WithLogger(Logger())}, opts...)...)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = ctrl.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return &Env{Store: s, UseCases: uc, Ctrl: ctrl}
}

// Eventually polls fn every tick until it returns true or timeout elapses.
func Eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}
