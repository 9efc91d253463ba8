package protocol

import (
	"bytes"
	"errors"
)

// ErrLineTooLong is returned when a peer accumulates more unterminated bytes
// than the assembler allows. The connection must be torn down: truncating
// would corrupt the line framing.
var ErrLineTooLong = errors.New("protocol: line exceeds maximum length")

const initialAssemblerSize = 256

// LineAssembler accumulates raw reads from one connection and yields complete
// newline-terminated lines. A TCP read may carry zero, one, fractional, or
// several lines; the assembler retains any trailing partial line until the
// next read.
//
// The internal buffer starts small and doubles on demand up to maxBytes.
type LineAssembler struct {
	buf      []byte
	used     int
	maxBytes int
}

// NewLineAssembler creates an assembler with the given maximum buffered line
// length. maxBytes <= 0 disables the limit.
func NewLineAssembler(maxBytes int) *LineAssembler {
	return &LineAssembler{
		buf:      make([]byte, initialAssemblerSize),
		maxBytes: maxBytes,
	}
}

// Buffered returns how many unterminated bytes are currently held.
func (a *LineAssembler) Buffered() int {
	return a.used
}

// Feed appends one read's worth of bytes and returns every line completed by
// it, in arrival order, with the trailing newline and an optional preceding
// carriage return stripped. Returns ErrLineTooLong if the retained partial
// line exceeds the configured maximum; the assembler must not be used after
// an error.
func (a *LineAssembler) Feed(p []byte) ([]string, error) {
	a.grow(len(p))
	copy(a.buf[a.used:], p)
	a.used += len(p)

	var lines []string
	start := 0
	for {
		idx := bytes.IndexByte(a.buf[start:a.used], '\n')
		if idx == -1 {
			break
		}
		line := a.buf[start : start+idx]
		line = bytes.TrimSuffix(line, []byte("\r"))
		lines = append(lines, string(line))
		start += idx + 1
	}
	if start > 0 {
		copy(a.buf, a.buf[start:a.used])
		a.used -= start
	}
	if a.maxBytes > 0 && a.used > a.maxBytes {
		return lines, ErrLineTooLong
	}
	return lines, nil
}

// grow makes room for n more bytes, doubling the buffer as needed. Reads are
// bounded by the transfer buffer, so a single call never over-grows by more
// than one read; the overflow check itself happens in Feed after complete
// lines have been drained.
func (a *LineAssembler) grow(n int) {
	need := a.used + n
	if need <= len(a.buf) {
		return
	}
	size := len(a.buf)
	if size == 0 {
		size = initialAssemblerSize
	}
	for size < need {
		size *= 2
	}
	grown := make([]byte, size)
	copy(grown, a.buf[:a.used])
	a.buf = grown
}
