package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/starford/tooknotes/internal/apperr"
	"github.com/starford/tooknotes/internal/checksum"
	"github.com/starford/tooknotes/internal/models"
	"github.com/starford/tooknotes/internal/notes"
	"github.com/starford/tooknotes/internal/usecase"
)

const maxBodyBytes = 1 << 20

// Handler holds API route handlers.
type Handler struct {
	ctrl *notes.Controller
	uc   usecase.NoteUseCases
}

// NewHandler creates a new Handler.
func NewHandler(ctrl *notes.Controller, uc usecase.NoteUseCases) *Handler {
	return &Handler{ctrl: ctrl, uc: uc}
}

func noteID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// writeError maps domain errors to status codes.
func writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, apperr.ErrInvalidNote):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody("checksum mismatch"))
	case errors.Is(err, notes.ErrStopped), errors.Is(err, apperr.ErrStoreUnavailable):
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusServiceUnavailable, errorBody("unavailable"))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// storeFailure reports a store error the controller absorbed into its state.
func storeFailure(w http.ResponseWriter, op string, err error) {
	slog.Error(op+" failed", slog.String("error", err.Error()))
	writeJSON(w, http.StatusServiceUnavailable, errorBody(err.Error()))
}

// lookup loads the note named by the {id} URL parameter, writing the error
// response itself when it cannot.
func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (models.Note, bool) {
	id, ok := noteID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid note id"))
		return models.Note{}, false
	}
	note, found, err := h.uc.GetNote.Invoke(r.Context(), id)
	if err != nil {
		writeError(w, "get note", err)
		return models.Note{}, false
	}
	if !found {
		writeError(w, "get note", apperr.ErrNotFound)
		return models.Note{}, false
	}
	return note, true
}

func noteResponse(w http.ResponseWriter, status int, note models.Note) {
	sum := checksum.Note(note)
	w.Header().Set("ETag", strconv.Quote(sum))
	writeJSON(w, status, NoteResponse{Note: note, Checksum: sum})
}

// State handles GET /api/notes.
//
//	@Summary		Current notes list state
//	@Tags			notes
//	@Produce		json
//	@Success		200	{object}	StateResponse
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) State(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ctrl.State())
}

// GetNote handles GET /api/notes/{id}.
//
//	@Summary		Get a single note by id
//	@Tags			notes
//	@Produce		json
//	@Param			id	path		int	true	"Note id"
//	@Success		200	{object}	NoteResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	note, ok := h.lookup(w, r)
	if !ok {
		return
	}
	noteResponse(w, http.StatusOK, note)
}

// CreateNote handles POST /api/notes.
//
//	@Summary		Create a new note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		NoteRequest	true	"Note to create"
//	@Success		201		{object}	NoteResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[NoteRequest](w, r)
	if !ok {
		return
	}
	h.save(w, r, req.note(0), http.StatusCreated)
}

// UpdateNote handles PUT /api/notes/{id}.
//
//	@Summary		Replace a note with optimistic concurrency
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			id			path		int			true	"Note id"
//	@Param			If-Match	header		string		false	"Checksum for optimistic concurrency"
//	@Param			body		body		NoteRequest	true	"Updated note"
//	@Success		200			{object}	NoteResponse
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [put]
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.lookup(w, r)
	if !ok {
		return
	}
	// Strip surrounding quotes if present (standard ETag format).
	if ifMatch := strings.Trim(r.Header.Get("If-Match"), `"`); ifMatch != "" && ifMatch != checksum.Note(existing) {
		writeError(w, "update note", apperr.ErrConflict)
		return
	}
	req, ok := decode[NoteRequest](w, r)
	if !ok {
		return
	}
	if req.Color == 0 {
		req.Color = existing.Color
	}
	h.save(w, r, req.note(existing.ID), http.StatusOK)
}

func (h *Handler) save(w http.ResponseWriter, r *http.Request, note models.Note, status int) {
	id, err := h.uc.AddNote.Invoke(r.Context(), note)
	if err != nil {
		writeError(w, "save note", err)
		return
	}
	saved, found, err := h.uc.GetNote.Invoke(r.Context(), id)
	if err != nil {
		writeError(w, "save note", err)
		return
	}
	if !found {
		writeError(w, "save note", apperr.ErrNotFound)
		return
	}
	noteResponse(w, status, saved)
}

// OpenNote handles POST /api/notes/{id}/open.
//
//	@Summary		Navigation route for editing a note
//	@Tags			navigation
//	@Produce		json
//	@Param			id	path		int	true	"Note id"
//	@Success		200	{object}	RouteResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/open [post]
func (h *Handler) OpenNote(w http.ResponseWriter, r *http.Request) {
	note, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, routeResponse(h.ctrl.OpenNote(note)))
}

// NewNote handles POST /api/notes/new.
//
//	@Summary		Navigation route for a new note
//	@Tags			navigation
//	@Produce		json
//	@Success		200	{object}	RouteResponse
//	@Security		BearerAuth
//	@Router			/notes/new [post]
func (h *Handler) NewNote(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, routeResponse(h.ctrl.NewNote()))
}

// ToggleOrder handles POST /api/events/toggle-order.
//
//	@Summary		Show or hide the order panel
//	@Tags			events
//	@Produce		json
//	@Success		200	{object}	StateResponse
//	@Security		BearerAuth
//	@Router			/events/toggle-order [post]
func (h *Handler) ToggleOrder(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, notes.ToggleOrderSection{})
}

// SetOrder handles POST /api/events/order.
//
//	@Summary		Change the sort order
//	@Tags			events
//	@Accept			json
//	@Produce		json
//	@Param			body	body		OrderRequest	true	"New order, field:direction"
//	@Success		200		{object}	StateResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/events/order [post]
func (h *Handler) SetOrder(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[OrderRequest](w, r)
	if !ok {
		return
	}
	order, err := models.ParseNoteOrder(req.Order)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	h.dispatch(w, r, notes.Order{NoteOrder: order})
}

// DeleteNote handles POST /api/events/delete.
//
//	@Summary		Delete a note, keeping it for undo
//	@Tags			events
//	@Accept			json
//	@Produce		json
//	@Param			body	body		DeleteRequest	true	"Note to delete"
//	@Success		200		{object}	DeleteResponse
//	@Failure		404		{object}	errResponse
//	@Failure		503		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/events/delete [post]
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[DeleteRequest](w, r)
	if !ok {
		return
	}
	note, found, err := h.uc.GetNote.Invoke(r.Context(), req.ID)
	if err != nil {
		writeError(w, "delete note", err)
		return
	}
	if !found {
		writeError(w, "delete note", apperr.ErrNotFound)
		return
	}
	res, err := h.ctrl.DispatchResult(r.Context(), notes.DeleteNote{Note: note})
	if err != nil {
		writeError(w, "delete note", err)
		return
	}
	if res.Err != nil {
		storeFailure(w, "delete note", res.Err)
		return
	}
	writeJSON(w, http.StatusOK, DeleteResponse{State: res.State, Message: "Note deleted", Action: "Undo"})
}

// RestoreNote handles POST /api/events/restore.
//
//	@Summary		Undo the most recent delete
//	@Tags			events
//	@Produce		json
//	@Success		200	{object}	StateResponse
//	@Failure		503	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/events/restore [post]
func (h *Handler) RestoreNote(w http.ResponseWriter, r *http.Request) {
	res, err := h.ctrl.DispatchResult(r.Context(), notes.RestoreNote{})
	if err != nil {
		writeError(w, "restore note", err)
		return
	}
	// An empty undo slot leaves the list as it is.
	if res.Err != nil && !errors.Is(res.Err, notes.ErrNothingToRestore) {
		storeFailure(w, "restore note", res.Err)
		return
	}
	writeJSON(w, http.StatusOK, res.State)
}

func (h *Handler) dispatch(w http.ResponseWriter, r *http.Request, ev notes.Event) {
	res, err := h.ctrl.DispatchResult(r.Context(), ev)
	if err != nil {
		writeError(w, "dispatch", err)
		return
	}
	writeJSON(w, http.StatusOK, res.State)
}

func decode[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var v T
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return v, false
	}
	return v, true
}
