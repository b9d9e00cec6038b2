package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func ids(notes []Note) []int64 {
	out := make([]int64, len(notes))
	for i, n := range notes {
		out[i] = n.ID
	}
	return out
}

func TestSort_StableTiesByDate(t *testing.T) {
	a := Note{ID: 1, Title: "A", Timestamp: 5}
	b := Note{ID: 2, Title: "B", Timestamp: 5}
	c := Note{ID: 3, Title: "C", Timestamp: 7}
	in := []Note{a, b, c}

	assert.Equal(t, []int64{1, 2, 3}, ids(ByDate(Ascending).Sort(in)))
	assert.Equal(t, []int64{3, 1, 2}, ids(ByDate(Descending).Sort(in)))
}

func TestSort_Idempotent(t *testing.T) {
	in := []Note{
		{ID: 1, Title: "pear", Timestamp: 3, Color: ColorViolet},
		{ID: 2, Title: "Apple", Timestamp: 1, Color: ColorBabyBlue},
		{ID: 3, Title: "apple", Timestamp: 3, Color: ColorViolet},
		{ID: 4, Title: "fig", Timestamp: 2, Color: ColorRedPink},
	}
	orders := []NoteOrder{
		ByTitle(Ascending), ByTitle(Descending),
		ByDate(Ascending), ByDate(Descending),
		ByColor(Ascending), ByColor(Descending),
	}
	for _, o := range orders {
		t.Run(o.String(), func(t *testing.T) {
			once := o.Sort(in)
			twice := o.Sort(once)
			assert.Equal(t, once, twice)
		})
	}
}

func TestSort_ByTitleIgnoresCase(t *testing.T) {
	in := []Note{
		{ID: 1, Title: "banana"},
		{ID: 2, Title: "Apple"},
		{ID: 3, Title: "apple"},
	}
	assert.Equal(t, []int64{2, 3, 1}, ids(ByTitle(Ascending).Sort(in)))
	assert.Equal(t, []int64{1, 2, 3}, ids(ByTitle(Descending).Sort(in)))
}

func TestSort_ByColor(t *testing.T) {
	in := []Note{
		{ID: 1, Color: ColorViolet},
		{ID: 2, Color: ColorBabyBlue},
		{ID: 3, Color: ColorRedOrange},
	}
	assert.Equal(t, []int64{2, 1, 3}, ids(ByColor(Ascending).Sort(in)))
}

func TestSort_DoesNotMutateInput(t *testing.T) {
	in := []Note{{ID: 1, Timestamp: 1}, {ID: 2, Timestamp: 2}}
	_ = ByDate(Descending).Sort(in)
	assert.Equal(t, []int64{1, 2}, ids(in))
	assert.NotNil(t, DefaultOrder().Sort(nil))
}

func TestParseNoteOrder(t *testing.T) {
	cases := map[string]NoteOrder{
		"date:desc":       ByDate(Descending),
		"title:asc":       ByTitle(Ascending),
		"COLOR:ascending": ByColor(Ascending),
		"title":           ByTitle(Descending),
	}
	for in, want := range cases {
		got, err := ParseNoteOrder(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseNoteOrder("size:asc")
	assert.Error(t, err)
	_, err = ParseNoteOrder("date:sideways")
	assert.Error(t, err)
}

func TestNoteOrder_YAML(t *testing.T) {
	var cfg struct {
		Order NoteOrder `yaml:"order"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("order: title:asc\n"), &cfg))
	assert.Equal(t, ByTitle(Ascending), cfg.Order)
}

func TestDefaultOrder(t *testing.T) {
	assert.Equal(t, "date:desc", DefaultOrder().String())
}

func TestIsNoteColor(t *testing.T) {
	assert.True(t, IsNoteColor(ColorLightGreen))
	assert.False(t, IsNoteColor(0xFF000000))
}
