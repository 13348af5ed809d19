package lines

// LineSource is the read side of the text-storage primitive.
// *buffer.Snapshot implements it.
type LineSource interface {
	Len() int
	Rev() uint64
	NumLines() int
	OffsetOfLine(line int) int
	LineEnd(line int) int
	LineOfOffset(offset int) int
	LineContent(line int) string
	LineEndingLen(line int) int
	Slice(start, end int) string
}
