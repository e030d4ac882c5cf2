package docmodel

import (
	"testing"
	"unicode/utf16"

	"github.com/stretchr/testify/assert"
)

func TestOffsetForPositionMultiLine(t *testing.T) {
	units := utf16.Encode([]rune("a\nbc\ndef"))

	cases := []struct {
		pos  Position
		want int
	}{
		{Position{0, 0}, 0},
		{Position{0, 1}, 1},
		{Position{1, 0}, 2},
		{Position{1, 1}, 3},
		{Position{2, 0}, 5},
		{Position{2, 3}, 8},
		{Position{5, 0}, 8}, // past the end clamps to length
	}
	for _, c := range cases {
		got := OffsetForPosition(units, c.pos)
		assert.Equal(t, c.want, got, "position %+v", c.pos)
	}
}

func TestOffsetForPositionEmptyText(t *testing.T) {
	assert.Equal(t, 0, OffsetForPosition(nil, Position{0, 0}))
	assert.Equal(t, 0, OffsetForPosition(nil, Position{3, 2}))
}

func TestSpliceUnitsReplacesRange(t *testing.T) {
	units := utf16.Encode([]rune("hello world"))
	replacement := utf16.Encode([]rune("there"))
	out := SpliceUnits(units, 6, 11, replacement)
	assert.Equal(t, "hello there", string(utf16.Decode(out)))
}

func TestSpliceUnitsClampsOutOfRange(t *testing.T) {
	units := utf16.Encode([]rune("abc"))
	out := SpliceUnits(units, 10, 20, utf16.Encode([]rune("x")))
	assert.Equal(t, "abcx", string(utf16.Decode(out)))
}

func TestInternTextReusesIdenticalContent(t *testing.T) {
	existing := NewSourceText("unchanged")
	got := InternText(existing, "unchanged")
	assert.Same(t, existing, got)
}

func TestInternTextAllocatesOnChange(t *testing.T) {
	existing := NewSourceText("before")
	got := InternText(existing, "after")
	assert.NotSame(t, existing, got)
	assert.Equal(t, "after", got.String())
}
