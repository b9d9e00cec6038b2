package models

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// OrderField is the note attribute a list is sorted by.
type OrderField int

const (
	FieldDate OrderField = iota
	FieldTitle
	FieldColor
)

func (f OrderField) String() string {
	switch f {
	case FieldTitle:
		return "title"
	case FieldColor:
		return "color"
	default:
		return "date"
	}
}

// Direction is the sort direction.
type Direction int

const (
	Descending Direction = iota
	Ascending
)

func (d Direction) String() string {
	if d == Ascending {
		return "asc"
	}
	return "desc"
}

// NoteOrder is a sort criterion plus a direction.
type NoteOrder struct {
	Field     OrderField
	Direction Direction
}

// DefaultOrder returns the order a fresh list starts with: newest first.
func DefaultOrder() NoteOrder {
	return NoteOrder{Field: FieldDate, Direction: Descending}
}

// ByTitle, ByDate and ByColor build orders for the given direction.
func ByTitle(d Direction) NoteOrder { return NoteOrder{Field: FieldTitle, Direction: d} }
func ByDate(d Direction) NoteOrder  { return NoteOrder{Field: FieldDate, Direction: d} }
func ByColor(d Direction) NoteOrder { return NoteOrder{Field: FieldColor, Direction: d} }

// String renders the order as "<field>:<direction>", e.g. "date:desc".
func (o NoteOrder) String() string {
	return o.Field.String() + ":" + o.Direction.String()
}

// ParseNoteOrder parses the String form. The direction may be omitted and
// defaults to descending.
func ParseNoteOrder(s string) (NoteOrder, error) {
	field, dir, _ := strings.Cut(strings.ToLower(strings.TrimSpace(s)), ":")

	var o NoteOrder
	switch field {
	case "date", "timestamp":
		o.Field = FieldDate
	case "title":
		o.Field = FieldTitle
	case "color":
		o.Field = FieldColor
	default:
		return NoteOrder{}, fmt.Errorf("unknown order field %q", field)
	}

	switch dir {
	case "", "desc", "descending":
		o.Direction = Descending
	case "asc", "ascending":
		o.Direction = Ascending
	default:
		return NoteOrder{}, fmt.Errorf("unknown order direction %q", dir)
	}
	return o, nil
}

// MarshalText implements encoding.TextMarshaler.
func (o NoteOrder) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *NoteOrder) UnmarshalText(b []byte) error {
	parsed, err := ParseNoteOrder(string(b))
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (o *NoteOrder) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	return o.UnmarshalText([]byte(s))
}

// Sort returns a copy of notes ordered by o. Titles compare case-insensitively.
// The sort is stable: notes with equal keys keep their relative input order in
// either direction.
func (o NoteOrder) Sort(notes []Note) []Note {
	out := slices.Clone(notes)
	if out == nil {
		out = []Note{}
	}

	var key func(a, b Note) int
	switch o.Field {
	case FieldTitle:
		key = func(a, b Note) int { return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title)) }
	case FieldColor:
		key = func(a, b Note) int { return cmp.Compare(a.Color, b.Color) }
	default:
		key = func(a, b Note) int { return cmp.Compare(a.Timestamp, b.Timestamp) }
	}

	if o.Direction == Descending {
		asc := key
		key = func(a, b Note) int { return -asc(a, b) }
	}

	slices.SortStableFunc(out, key)
	return out
}
