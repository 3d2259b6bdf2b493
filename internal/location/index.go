// Package location maps byte offsets in a file's text to 1-based line/column pairs.
package location

import "bytes"

type line struct {
	length int // bytes, excluding the terminator
	term   int // 0 for the last line, 1 for "\n", 2 for "\r\n"
}

// Index is a one-time line-length index of a file's text.
// It is read-only after construction and safe for concurrent use.
type Index struct {
	lines []line
	size  int
}

// NewIndex splits text on line breaks and records each line's length.
func NewIndex(text []byte) *Index {
	idx := &Index{size: len(text)}
	rest := text
	for {
		i := bytes.IndexByte(rest, '\n')
		if i < 0 {
			idx.lines = append(idx.lines, line{length: len(rest)})
			return idx
		}
		l := line{length: i, term: 1}
		if i > 0 && rest[i-1] == '\r' {
			l.length--
			l.term = 2
		}
		idx.lines = append(idx.lines, l)
		rest = rest[i+1:]
	}
}

// Resolve returns the 1-based (line, column) of offset. Columns count bytes.
// An offset outside the text yields (0, 0), the "position unavailable" sentinel.
func (idx *Index) Resolve(offset int) (uint, uint) {
	if offset < 0 || offset > idx.size {
		return 0, 0
	}
	remaining := offset
	for i, l := range idx.lines {
		end := l.length + l.term // first offset of the next line
		if l.term == 0 {
			end++ // the last line also owns the end-of-text offset
		}
		if remaining < end {
			return uint(i + 1), uint(remaining + 1)
		}
		remaining -= l.length + l.term
	}
	return 0, 0
}
