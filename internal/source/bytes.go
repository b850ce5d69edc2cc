package source

import (
	"fmt"
	"io"
)

// Bytes is a seekable in-memory source, used by tests and tools.
type Bytes struct {
	data []byte
	pos  int64
}

// NewBytes wraps data as a source. The slice is not copied.
func NewBytes(data []byte) *Bytes {
	return &Bytes{data: data}
}

func (s *Bytes) Read(p []byte) (int, error) {
	if s.pos >= int64(len(s.data)) {
		return 0, io.EOF
	}
	n := copy(p, s.data[s.pos:])
	s.pos += int64(n)
	return n, nil
}

func (s *Bytes) Peek(n int) ([]byte, error) {
	if s.pos >= int64(len(s.data)) {
		return nil, io.EOF
	}
	rest := s.data[s.pos:]
	if n > len(rest) {
		n = len(rest)
	}
	return rest[:n], nil
}

func (s *Bytes) CanSeek() bool {
	return true
}

func (s *Bytes) Seek(offset int64) error {
	if offset < 0 {
		return fmt.Errorf("source: seek to negative offset %d", offset)
	}
	s.pos = offset
	return nil
}

func (s *Bytes) Tell() int64 {
	return s.pos
}

func (s *Bytes) Size() int64 {
	return int64(len(s.data))
}

func (s *Bytes) Close() error {
	return nil
}
