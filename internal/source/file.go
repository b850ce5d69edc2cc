package source

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// File is a seekable source backed by a local file.
type File struct {
	f    *os.File
	br   *bufio.Reader
	pos  int64
	size int64
}

// OpenFile opens path as a source.
func OpenFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("source: open %s: %w", path, err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("source: stat %s: %w", path, err)
	}
	return &File{
		f:    f,
		br:   bufio.NewReaderSize(f, peekBufferSize),
		size: st.Size(),
	}, nil
}

func (s *File) Read(p []byte) (int, error) {
	n, err := s.br.Read(p)
	s.pos += int64(n)
	return n, err
}

func (s *File) Peek(n int) ([]byte, error) {
	return peek(s.br, n)
}

func (s *File) CanSeek() bool {
	return true
}

func (s *File) Seek(offset int64) error {
	if offset < 0 {
		return fmt.Errorf("source: seek to negative offset %d", offset)
	}
	if _, err := s.f.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("source: seek: %w", err)
	}
	s.br.Reset(s.f)
	s.pos = offset
	return nil
}

func (s *File) Tell() int64 {
	return s.pos
}

func (s *File) Size() int64 {
	return s.size
}

func (s *File) Close() error {
	return s.f.Close()
}
