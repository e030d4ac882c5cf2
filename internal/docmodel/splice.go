package docmodel

// SpliceUnits builds the result of replacing units[start:end] with
// replacement, clamping start and end to a valid range first. This is
// the UTF-16 analogue of the prefix/replacement/suffix concatenation
// used to apply an edit to a byte range of a file on disk.
func SpliceUnits(units []uint16, start, end int, replacement []uint16) []uint16 {
	if start < 0 {
		start = 0
	}
	if start > len(units) {
		start = len(units)
	}
	if end < start {
		end = start
	}
	if end > len(units) {
		end = len(units)
	}

	out := make([]uint16, 0, start+len(replacement)+len(units)-end)
	out = append(out, units[:start]...)
	out = append(out, replacement...)
	out = append(out, units[end:]...)
	return out
}

// InternText returns existing unchanged if it already decodes to s,
// so that a no-op write preserves the text's identity rather than
// allocating a new, merely-equal object. Otherwise it returns a fresh
// SourceText for s.
func InternText(existing *SourceText, s string) *SourceText {
	if existing != nil && existing.String() == s {
		return existing
	}
	return NewSourceText(s)
}

// InternUnits is InternText's counterpart for callers that already
// have the new content as UTF-16 units (as ChangeFile does after
// splicing), avoiding a redundant decode/encode round trip.
func InternUnits(existing *SourceText, units []uint16) *SourceText {
	if existing != nil && unitsEqual(existing.Units, units) {
		return existing
	}
	return &SourceText{Units: units}
}

func unitsEqual(a, b []uint16) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
