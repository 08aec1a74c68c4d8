// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dump

import (
	"bufio"
	"io"
)

// blankLineFilter yields its source's content with empty and whitespace-only
// lines removed. Kept lines pass through byte for byte, terminators included,
// so the order and exact text of surviving lines never changes. Memory use is
// bounded by the longest input line.
type blankLineFilter struct {
	br      *bufio.Reader
	line    []byte
	off     int
	err     error
	dropped int64
}

func newBlankLineFilter(r io.Reader) *blankLineFilter {
	return &blankLineFilter{br: bufio.NewReader(r)}
}

// Dropped returns the number of lines removed so far.
func (f *blankLineFilter) Dropped() int64 { return f.dropped }

func (f *blankLineFilter) Read(p []byte) (int, error) {
	for f.off >= len(f.line) {
		if f.err != nil {
			return 0, f.err
		}
		f.next()
	}
	n := copy(p, f.line[f.off:])
	f.off += n
	return n, nil
}

// next pulls one full source line into f.line, discarding it when blank.
func (f *blankLineFilter) next() {
	f.line = f.line[:0]
	f.off = 0
	for {
		chunk, err := f.br.ReadSlice('\n')
		f.line = append(f.line, chunk...)
		if err == bufio.ErrBufferFull {
			continue
		}
		f.err = err
		break
	}
	if isBlank(f.line) {
		if len(f.line) > 0 {
			f.dropped++
		}
		f.line = f.line[:0]
	}
}

// isBlank reports whether data holds nothing but whitespace.
func isBlank(data []byte) bool {
	for _, c := range data {
		switch c {
		case ' ', '\t', '\r', '\n':
		default:
			return false
		}
	}
	return true
}
