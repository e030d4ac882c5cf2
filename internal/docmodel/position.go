package docmodel

// Position is a zero-based line/character location, matching the LSP
// wire format: character counts UTF-16 code units, not bytes or
// runes.
type Position struct {
	Line      int
	Character int
}

// OffsetForPosition walks units one code unit at a time, tracking line
// and character, and returns the absolute offset at which pos is
// first reached. A '\n' ends the current line: it resets character to
// zero and advances line, regardless of what preceded it. If the walk
// reaches the end of units without ever matching pos, the position is
// past the end of the text and the offset is clamped to len(units).
func OffsetForPosition(units []uint16, pos Position) int {
	line, char := 0, 0
	for i, u := range units {
		if line == pos.Line && char == pos.Character {
			return i
		}
		if u == '\n' {
			line++
			char = 0
		} else {
			char++
		}
	}
	return len(units)
}
