package source

import (
	"bufio"
	"io"
)

// Buffered adapts an arbitrary reader into a non-seekable source with
// peek-ahead. Live transports wrap their connections in it.
type Buffered struct {
	br   *bufio.Reader
	c    io.Closer
	pos  int64
	size int64
}

// NewBuffered wraps r. size is the total stream size when known, 0
// otherwise. If r implements io.Closer it is closed with the source.
func NewBuffered(r io.Reader, size int64) *Buffered {
	b := &Buffered{
		br:   bufio.NewReaderSize(r, peekBufferSize),
		size: size,
	}
	if c, ok := r.(io.Closer); ok {
		b.c = c
	}
	return b
}

func (s *Buffered) Read(p []byte) (int, error) {
	n, err := s.br.Read(p)
	s.pos += int64(n)
	return n, err
}

func (s *Buffered) Peek(n int) ([]byte, error) {
	return peek(s.br, n)
}

func (s *Buffered) CanSeek() bool {
	return false
}

func (s *Buffered) Seek(int64) error {
	return ErrNotSeekable
}

func (s *Buffered) Tell() int64 {
	return s.pos
}

func (s *Buffered) Size() int64 {
	return s.size
}

func (s *Buffered) Close() error {
	if s.c != nil {
		return s.c.Close()
	}
	return nil
}
