// Package notes implements the notes list controller: it owns the list state,
// keeps it sorted as the store changes, and applies user events one at a time.
package notes

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/starford/tooknotes/internal/feed"
	"github.com/starford/tooknotes/internal/metrics"
	"github.com/starford/tooknotes/internal/models"
	"github.com/starford/tooknotes/internal/repository"
	"github.com/starford/tooknotes/internal/usecase"
)

var (
	// ErrStopped is returned by Dispatch once the controller loop has exited.
	ErrStopped = errors.New("notes: controller stopped")
	// ErrNothingToRestore is the Result.Err of a RestoreNote with an empty undo slot.
	ErrNothingToRestore = errors.New("notes: nothing to restore")
)

// Result is what the loop did with one event.
type Result struct {
	// State is the snapshot right after the event was applied.
	State NotesState
	// Note is the note a DeleteNote removed or a RestoreNote brought back.
	Note models.Note
	// Err is the store failure of this event, or ErrNothingToRestore.
	Err error
}

type request struct {
	ev     Event
	done   chan struct{}
	result Result
}

// Controller owns NotesState. A single goroutine (Run) processes store
// snapshots and user events strictly in arrival order; everything else talks
// to it through channels.
type Controller struct {
	uc      usecase.NoteUseCases
	repo    repository.NoteRepository
	nav     Navigator
	logger  *slog.Logger
	metrics *metrics.Metrics

	inbox  chan *request
	states *feed.Feed[NotesState]

	// current is written only by the loop.
	current atomic.Pointer[NotesState]
	// pending is the one-slot undo buffer, written only by the loop.
	pending atomic.Pointer[models.Note]

	stopCh  chan struct{}
	stopped chan struct{}
	started atomic.Bool
	closed  atomic.Bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithMetrics sets the metrics the controller updates.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithNavigator sets the navigation host used by OpenNote and NewNote.
func WithNavigator(n Navigator) Option {
	return func(c *Controller) { c.nav = n }
}

// WithInitialOrder sets the order the list starts with.
func WithInitialOrder(o models.NoteOrder) Option {
	return func(c *Controller) {
		st := NotesState{Notes: []models.Note{}, NoteOrder: o}
		c.current.Store(&st)
	}
}

// New creates a controller. Call Run to start processing.
func New(uc usecase.NoteUseCases, repo repository.NoteRepository, opts ...Option) *Controller {
	c := &Controller{
		uc:      uc,
		repo:    repo,
		nav:     &RecordingNavigator{},
		logger:  slog.Default(),
		metrics: metrics.New(),
		inbox:   make(chan *request),
		states:  feed.New[NotesState](),
		stopCh:  make(chan struct{}),
		stopped: make(chan struct{}),
	}
	initial := NotesState{Notes: []models.Note{}, NoteOrder: models.DefaultOrder()}
	c.current.Store(&initial)

	for _, opt := range opts {
		opt(c)
	}

	c.states.Publish(*c.current.Load())
	return c
}

// Run subscribes to the store and processes events until ctx is cancelled or
// Close is called. On return the store subscription is cancelled and state
// subscribers' channels are closed.
func (c *Controller) Run(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return ErrStopped
	}
	defer close(c.stopped)
	defer c.states.Close()

	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	updates := c.uc.GetNotes.Invoke(subCtx)

	c.logger.Info("notes controller: started", slog.String("order", c.State().NoteOrder.String()))

	for {
		// Stop before touching state once shutdown has begun, even if more
		// messages are ready.
		if ctx.Err() != nil || c.closed.Load() {
			c.logger.Info("notes controller: stopped")
			return nil
		}

		select {
		case <-ctx.Done():
		case <-c.stopCh:

		case notes, ok := <-updates:
			if !ok {
				updates = nil
				continue
			}
			// select picks at random among ready cases.
			if ctx.Err() != nil || c.closed.Load() {
				continue
			}
			c.handle(ctx, StoreUpdated{Notes: notes})

		case req := <-c.inbox:
			req.result = c.handle(ctx, req.ev)
			close(req.done)
		}
	}
}

// Close stops the loop and waits for it to exit. Safe to call more than once
// and before Run.
func (c *Controller) Close() {
	if c.closed.CompareAndSwap(false, true) {
		close(c.stopCh)
	}
	if c.started.CompareAndSwap(false, true) {
		// Run never started and now never will.
		c.states.Close()
		close(c.stopped)
		return
	}
	<-c.stopped
}

// Dispatch hands ev to the loop and waits until it has been applied. Store
// failures are not returned; they show up in NotesState.Err.
func (c *Controller) Dispatch(ctx context.Context, ev Event) error {
	_, err := c.DispatchResult(ctx, ev)
	return err
}

// DispatchResult is Dispatch that also reports what this particular event
// did, independent of events other callers dispatch concurrently. The error
// is only ErrStopped or a ctx error; store failures are in Result.Err.
func (c *Controller) DispatchResult(ctx context.Context, ev Event) (Result, error) {
	req := &request{ev: ev, done: make(chan struct{})}

	select {
	case c.inbox <- req:
	case <-c.stopped:
		return Result{}, ErrStopped
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}

	select {
	case <-req.done:
		return req.result, nil
	case <-c.stopped:
		return Result{}, ErrStopped
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// State returns the latest snapshot.
func (c *Controller) State() NotesState {
	return *c.current.Load()
}

// Subscribe yields the latest snapshot and then every new one until ctx is
// done or the controller stops.
func (c *Controller) Subscribe(ctx context.Context) <-chan NotesState {
	return c.states.Subscribe(ctx)
}

// PendingDelete returns the note a RestoreNote would bring back.
func (c *Controller) PendingDelete() (models.Note, bool) {
	p := c.pending.Load()
	if p == nil {
		return models.Note{}, false
	}
	return *p, true
}

// OpenNote asks the navigation host to edit note.
func (c *Controller) OpenNote(note models.Note) Route {
	r := Route{NoteID: note.ID, NoteColor: note.Color}
	c.nav.Navigate(r)
	return r
}

// NewNote asks the navigation host to create a note.
func (c *Controller) NewNote() Route {
	r := Route{}
	c.nav.Navigate(r)
	return r
}

func (c *Controller) handle(ctx context.Context, ev Event) Result {
	c.metrics.EventsTotal.WithLabelValues(ev.eventName()).Inc()

	st := c.State()
	next := st
	var res Result

	switch e := ev.(type) {
	case StoreUpdated:
		next.Notes = c.sort(st.NoteOrder, e.Notes)

	case ToggleOrderSection:
		next.IsOrderSectionVisible = !st.IsOrderSectionVisible

	case Order:
		if e.NoteOrder == st.NoteOrder {
			return Result{State: st}
		}
		next.NoteOrder = e.NoteOrder
		next.Notes = c.sort(e.NoteOrder, st.Notes)

	case DeleteNote:
		res.Note = e.Note
		if err := c.uc.DeleteNote.Invoke(ctx, e.Note); err != nil {
			res.Err = err
			c.storeFailed("delete", e.Note, err, &next)
			break
		}
		note := e.Note
		c.pending.Store(&note)
		next.Err = ""
		c.logger.Debug("notes controller: deleted", slog.Int64("id", note.ID))

	case RestoreNote:
		p := c.pending.Load()
		if p == nil {
			return Result{State: st, Err: ErrNothingToRestore}
		}
		res.Note = *p
		if _, err := c.repo.InsertNote(ctx, *p); err != nil {
			res.Err = err
			c.storeFailed("insert", *p, err, &next)
			break
		}
		c.pending.Store(nil)
		next.Err = ""
		c.logger.Debug("notes controller: restored", slog.Int64("id", p.ID))

	default:
		return Result{State: st}
	}

	res.State = next
	if sameState(st, next) {
		return res
	}
	c.current.Store(&next)
	c.states.Publish(next)
	return res
}

func (c *Controller) storeFailed(op string, note models.Note, err error, next *NotesState) {
	c.metrics.StoreErrorsTotal.WithLabelValues(op).Inc()
	c.logger.Warn("notes controller: store "+op+" failed",
		slog.Int64("id", note.ID),
		slog.String("error", err.Error()))
	next.Err = err.Error()
}

func (c *Controller) sort(o models.NoteOrder, notes []models.Note) []models.Note {
	c.metrics.SortsTotal.Inc()
	return o.Sort(notes)
}

// sameState reports whether b changes nothing observable relative to a.
// Notes slices are compared by identity: every change builds a new slice.
func sameState(a, b NotesState) bool {
	if a.NoteOrder != b.NoteOrder || a.IsOrderSectionVisible != b.IsOrderSectionVisible || a.Err != b.Err {
		return false
	}
	if len(a.Notes) != len(b.Notes) {
		return false
	}
	return len(a.Notes) == 0 || &a.Notes[0] == &b.Notes[0]
}
