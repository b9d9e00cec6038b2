// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the notes list to LLM clients via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/tooknotes/internal/models"
	"github.com/starford/tooknotes/internal/notes"
	"github.com/starford/tooknotes/internal/usecase"
)

const (
	stateURI  = "tooknotes://state"
	formatURI = "tooknotes://note-format"
)

// Server wraps the MCP server with the note tools.
type Server struct {
	mcp  *server.MCPServer
	ctrl *notes.Controller
	uc   usecase.NoteUseCases
}

// New creates a new MCP server with all note tools registered. ctrl must be
// running for the event tools to succeed.
func New(ctrl *notes.Controller, uc usecase.NoteUseCases, version string) *Server {
	s := &Server{ctrl: ctrl, uc: uc}

	s.mcp = server.NewMCPServer(
		"tooknotes",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("Return the notes list as currently shown: notes in display order, "+
			"the active order and whether the order panel is open."),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("get_note",
		mcp.WithDescription("Read a single note by id."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Note id")),
	), s.getNote)

	s.mcp.AddTool(mcp.NewTool("add_note",
		mcp.WithDescription("Create a note, or replace one when id is given. "+
			"Read the contract first via the get_note_contract tool or the "+formatURI+" resource."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Note title, must not be blank")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Note body, must not be blank")),
		mcp.WithNumber("color", mcp.Description("ARGB palette color (optional)")),
		mcp.WithNumber("id", mcp.Description("Id of the note to replace (optional)")),
	), s.addNote)

	s.mcp.AddTool(mcp.NewTool("delete_note",
		mcp.WithDescription("Delete a note. The most recent delete can be undone with restore_note."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Note id")),
	), s.deleteNote)

	s.mcp.AddTool(mcp.NewTool("restore_note",
		mcp.WithDescription("Undo the most recent delete_note."),
	), s.restoreNote)

	s.mcp.AddTool(mcp.NewTool("set_order",
		mcp.WithDescription("Change the list order."),
		mcp.WithString("order", mcp.Required(), mcp.Description("field:direction, e.g. title:asc or date:desc")),
	), s.setOrder)

	s.mcp.AddTool(mcp.NewTool("toggle_order_section",
		mcp.WithDescription("Show or hide the order panel."),
	), s.toggleOrderSection)

	s.mcp.AddTool(mcp.NewTool("get_note_contract",
		mcp.WithDescription("Returns the note field rules, color palette and order syntax."),
	), s.getNoteContract)

	s.mcp.AddResource(
		mcp.NewResource(stateURI, "Notes List State",
			mcp.WithResourceDescription("Current notes list state as JSON."),
			mcp.WithMIMEType("application/json"),
		),
		s.readStateResource,
	)
	s.mcp.AddResource(
		mcp.NewResource(formatURI, "Note Format Contract",
			mcp.WithResourceDescription("Note fields, color palette and order syntax."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readNoteFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func requireID(req mcp.CallToolRequest) (int64, error) {
	f, err := req.RequireFloat("id")
	if err != nil {
		return 0, err
	}
	return noteID(f)
}

// noteID accepts only positive whole numbers.
func noteID(f float64) (int64, error) {
	if f <= 0 || f != float64(int64(f)) {
		return 0, fmt.Errorf("invalid note id %v", f)
	}
	return int64(f), nil
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.ctrl.State())
}

func (s *Server) getNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireID(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, found, err := s.uc.GetNote.Invoke(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !found {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %d", id)), nil
	}
	return jsonResult(note)
}

func (s *Server) addNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note := models.Note{
		Title:   title,
		Content: content,
		Color:   int(req.GetFloat("color", 0)),
	}
	if raw := req.GetFloat("id", 0); raw != 0 {
		if note.ID, err = noteID(raw); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}
	if note.HasID() && note.Color == 0 {
		if existing, found, _ := s.uc.GetNote.Invoke(ctx, note.ID); found {
			note.Color = existing.Color
		}
	}

	id, err := s.uc.AddNote.Invoke(ctx, note)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("saved: %d", id)), nil
}

func (s *Server) deleteNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireID(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, found, err := s.uc.GetNote.Invoke(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !found {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %d", id)), nil
	}
	res, err := s.ctrl.DispatchResult(ctx, notes.DeleteNote{Note: note})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if res.Err != nil {
		return mcp.NewToolResultError("delete failed: " + res.Err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %d (call restore_note to undo)", id)), nil
}

func (s *Server) restoreNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := s.ctrl.DispatchResult(ctx, notes.RestoreNote{})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	switch {
	case errors.Is(res.Err, notes.ErrNothingToRestore):
		return mcp.NewToolResultText("nothing to restore"), nil
	case res.Err != nil:
		return mcp.NewToolResultError("restore failed: " + res.Err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("restored: %d", res.Note.ID)), nil
}

func (s *Server) setOrder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("order")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	order, err := models.ParseNoteOrder(raw)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.ctrl.DispatchResult(ctx, notes.Order{NoteOrder: order})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("order: " + res.State.NoteOrder.String()), nil
}

func (s *Server) toggleOrderSection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := s.ctrl.DispatchResult(ctx, notes.ToggleOrderSection{})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("order section visible: %t", res.State.IsOrderSectionVisible)), nil
}

func (s *Server) getNoteContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(NoteFormatContract), nil
}

func (s *Server) readStateResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	out, err := json.Marshal(s.ctrl.State())
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      stateURI,
			MIMEType: "application/json",
			Text:     string(out),
		},
	}, nil
}

func (s *Server) readNoteFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      formatURI,
			MIMEType: "text/markdown",
			Text:     NoteFormatContract,
		},
	}, nil
}
