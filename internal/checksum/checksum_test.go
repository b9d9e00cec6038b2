package checksum

import (
	"testing"

	"github.com/starford/tooknotes/internal/models"
)

func TestSum(t *testing.T) {
	// SHA-256 of the empty string.
	const empty = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got := Sum(nil); got != empty {
		t.Errorf("Sum(nil) = %s", got)
	}
}

func TestNoteChangesWithContent(t *testing.T) {
	a := models.Note{ID: 1, Title: "a", Content: "b", Timestamp: 1, Color: models.ColorViolet}
	b := a
	b.Content = "c"

	if Note(a) != Note(a) {
		t.Error("checksum not deterministic")
	}
	if Note(a) == Note(b) {
		t.Error("checksum ignores content")
	}
	// Field boundaries matter: "ab"+"" differs from "a"+"b".
	c := models.Note{ID: 1, Title: "ab", Content: "", Timestamp: 1, Color: models.ColorViolet}
	d := models.Note{ID: 1, Title: "a", Content: "b", Timestamp: 1, Color: models.ColorViolet}
	if Note(c) == Note(d) {
		t.Error("checksum collides across field boundaries")
	}
}
