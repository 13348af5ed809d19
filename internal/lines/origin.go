package lines

import "sort"

// OriginLine records where one raw source line starts.
type OriginLine struct {
	LineIndex   int
	StartOffset int
}

// BuildOrigin walks every line of src and records its start offset.
func BuildOrigin(src LineSource) []OriginLine {
	n := src.NumLines()
	origin := make([]OriginLine, n)
	for i := 0; i < n; i++ {
		origin[i] = OriginLine{LineIndex: i, StartOffset: src.OffsetOfLine(i)}
	}
	return origin
}

// originLineOfOffset returns the index of the origin line containing offset.
func originLineOfOffset(origin []OriginLine, offset int) (int, error) {
	if len(origin) == 0 || offset < 0 {
		return 0, invariantf("originLineOfOffset", offset, "no origin line among %d", len(origin))
	}
	i := sort.Search(len(origin), func(i int) bool {
		return origin[i].StartOffset > offset
	})
	if i == 0 {
		return 0, invariantf("originLineOfOffset", offset, "offset precedes first origin line at %d", origin[0].StartOffset)
	}
	return i - 1, nil
}

// originLineStartingAt returns the index of the origin line that starts
// exactly at offset.
func originLineStartingAt(origin []OriginLine, offset int) (int, bool) {
	i := sort.Search(len(origin), func(i int) bool {
		return origin[i].StartOffset >= offset
	})
	if i < len(origin) && origin[i].StartOffset == offset {
		return i, true
	}
	return 0, false
}
