package mcpserver

import (
	"fmt"
	"strings"

	"github.com/starford/tooknotes/internal/models"
)

// NoteFormatContract describes the note fields, the color palette and the
// order syntax that LLM consumers should use with the note tools.
var NoteFormatContract = buildContract()

func buildContract() string {
	var b strings.Builder
	b.WriteString(`# tooknotes Note Format Contract

## Fields

- ` + "`title`" + ` (string, REQUIRED): must not be blank.
- ` + "`content`" + ` (string, REQUIRED): must not be blank.
- ` + "`color`" + ` (integer ARGB, OPTIONAL): one of the palette colors below.
  Omit it to get the first palette color.
- ` + "`timestamp`" + ` (integer, OPTIONAL): milliseconds since the Unix epoch.
  Omit it to stamp the note with the current time.
- ` + "`id`" + ` (integer): assigned by the store. Pass it to replace an existing note.

## Palette

`)
	names := []string{"red orange", "red pink", "baby blue", "violet", "light green"}
	for i, c := range models.NoteColors {
		name := ""
		if i < len(names) {
			name = " (" + names[i] + ")"
		}
		fmt.Fprintf(&b, "- `%d` / `0x%08X`%s\n", c, c, name)
	}
	b.WriteString(`
## Order

Orders are written ` + "`field:direction`" + `.

- field: ` + "`date`" + `, ` + "`title`" + ` (case-insensitive) or ` + "`color`" + `
- direction: ` + "`asc`" + ` or ` + "`desc`" + ` (default ` + "`desc`" + `)

The list starts in ` + "`" + models.DefaultOrder().String() + "`" + ` order.

## Undo

` + "`delete_note`" + ` keeps the deleted note for one ` + "`restore_note`" + ` call.
A second delete replaces the note that restore would bring back.
`)
	return b.String()
}
