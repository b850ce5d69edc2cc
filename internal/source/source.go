// Package source defines the byte-stream contract demuxers read from:
// sequential reads, optional seeking, and bounded peek-ahead used for
// format probing. Implementations cover local files, in-memory buffers,
// and live SRT and QUIC connections.
package source

import (
	"bufio"
	"errors"
	"io"
)

// ErrNotSeekable is returned by Seek on sources that only support
// sequential reading.
var ErrNotSeekable = errors.New("source: not seekable")

// Source is a sequential byte provider with optional seeking and bounded
// peek-ahead. A Source is exclusively owned by the demuxer instance it is
// attached to.
type Source interface {
	io.Reader

	// Peek returns up to n bytes without consuming them. A short result is
	// not an error: callers must check the returned length and treat fewer
	// bytes than requested as insufficient data. io.EOF is returned only
	// when no bytes at all are available.
	Peek(n int) ([]byte, error)

	// CanSeek reports whether Seek is usable.
	CanSeek() bool

	// Seek repositions the stream to an absolute offset.
	Seek(offset int64) error

	// Tell returns the current read offset.
	Tell() int64

	// Size returns the total size in bytes, 0 when unknown.
	Size() int64

	Close() error
}

// peekBufferSize bounds how far ahead a source can peek. 64 KiB covers
// every format probe in the registry with room to spare.
const peekBufferSize = 64 << 10

// peek normalizes bufio's peek semantics to the Source contract: partial
// data at EOF or at the buffer limit is returned without an error.
func peek(br *bufio.Reader, n int) ([]byte, error) {
	b, err := br.Peek(n)
	if err != nil && len(b) > 0 &&
		(errors.Is(err, io.EOF) || errors.Is(err, bufio.ErrBufferFull)) {
		return b, nil
	}
	return b, err
}
