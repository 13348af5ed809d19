package lsp

import "unicode/utf8"

// --- UTF-16 conversion helpers ---

// UTF16Len returns the length of s in UTF-16 code units.
func UTF16Len(s string) int {
	count := 0
	for _, r := range s {
		if r >= 0x10000 {
			count += 2 // Surrogate pair
		} else {
			count++
		}
	}
	return count
}

// ByteToUTF16 converts a byte offset within s to a UTF-16 offset.
// Offsets inside a multi-byte rune count the whole rune as preceding.
func ByteToUTF16(s string, byteOff int) int {
	if byteOff <= 0 {
		return 0
	}
	if byteOff >= len(s) {
		return UTF16Len(s)
	}

	utf16Off := 0
	for i, r := range s {
		if i >= byteOff {
			break
		}
		if r >= 0x10000 {
			utf16Off += 2
		} else {
			utf16Off++
		}
	}
	return utf16Off
}

// UTF16ToByte converts a UTF-16 offset within s to a byte offset.
// Offsets past the end clamp to len(s); an offset splitting a surrogate
// pair resolves to the start of that rune. Each byte of an invalid UTF-8
// sequence counts as one UTF-16 unit.
func UTF16ToByte(s string, utf16Off int) int {
	if utf16Off <= 0 {
		return 0
	}

	utf16Count := 0
	for i := 0; i < len(s); {
		// An invalid byte decodes as U+FFFD with width 1.
		r, width := utf8.DecodeRuneInString(s[i:])
		n := 1
		if r >= 0x10000 {
			n = 2
		}
		if utf16Count+n > utf16Off {
			return i
		}
		utf16Count += n
		i += width
		if utf16Count == utf16Off {
			return i
		}
	}
	return len(s)
}

// ComparePositions returns -1 if a < b, 0 if a == b, 1 if a > b.
func ComparePositions(a, b Position) int {
	if a.Line < b.Line {
		return -1
	}
	if a.Line > b.Line {
		return 1
	}
	if a.Character < b.Character {
		return -1
	}
	if a.Character > b.Character {
		return 1
	}
	return 0
}

// IsPositionBefore returns true if a is before b.
func IsPositionBefore(a, b Position) bool {
	return ComparePositions(a, b) < 0
}

// IsPositionStrictlyInRange returns true if pos lies inside rng, excluding
// both boundaries.
func IsPositionStrictlyInRange(pos Position, rng Range) bool {
	return ComparePositions(rng.Start, pos) < 0 && ComparePositions(pos, rng.End) < 0
}

// IsPositionInRange returns true if pos is within the range (inclusive).
func IsPositionInRange(pos Position, rng Range) bool {
	return ComparePositions(rng.Start, pos) <= 0 && ComparePositions(pos, rng.End) <= 0
}
