package source

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestBytes_ReadPeekSeek(t *testing.T) {
	t.Parallel()
	s := NewBytes([]byte("abcdefgh"))

	b, err := s.Peek(4)
	if err != nil || string(b) != "abcd" {
		t.Fatalf("peek = %q, %v", b, err)
	}
	if s.Tell() != 0 {
		t.Errorf("peek moved the position to %d", s.Tell())
	}

	buf := make([]byte, 3)
	if _, err := io.ReadFull(s, buf); err != nil {
		t.Fatal(err)
	}
	if string(buf) != "abc" || s.Tell() != 3 {
		t.Errorf("read = %q at %d", buf, s.Tell())
	}

	if err := s.Seek(6); err != nil {
		t.Fatal(err)
	}
	b, err = s.Peek(10)
	if err != nil || string(b) != "gh" {
		t.Fatalf("peek after seek = %q, %v", b, err)
	}
	if s.Size() != 8 || !s.CanSeek() {
		t.Error("size or seekability wrong")
	}
}

func TestBytes_ShortPeekIsNotAnError(t *testing.T) {
	t.Parallel()
	s := NewBytes([]byte("abc"))

	b, err := s.Peek(8)
	if err != nil {
		t.Fatalf("short peek returned error %v", err)
	}
	if len(b) != 3 {
		t.Fatalf("short peek length = %d, want 3", len(b))
	}

	// Only a fully drained source peeks io.EOF.
	if _, err := io.Copy(io.Discard, s); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Peek(1); !errors.Is(err, io.EOF) {
		t.Errorf("peek at end = %v, want io.EOF", err)
	}
}

func TestBytes_NegativeSeek(t *testing.T) {
	t.Parallel()
	if err := NewBytes([]byte("x")).Seek(-1); err == nil {
		t.Fatal("negative seek accepted")
	}
}

func TestBuffered_NotSeekable(t *testing.T) {
	t.Parallel()
	s := NewBuffered(bytes.NewReader([]byte("hello world")), 11)

	if s.CanSeek() {
		t.Error("buffered source claims seekability")
	}
	if err := s.Seek(0); !errors.Is(err, ErrNotSeekable) {
		t.Errorf("seek = %v, want ErrNotSeekable", err)
	}

	b, err := s.Peek(5)
	if err != nil || string(b) != "hello" {
		t.Fatalf("peek = %q, %v", b, err)
	}

	buf := make([]byte, 6)
	if _, err := io.ReadFull(s, buf); err != nil {
		t.Fatal(err)
	}
	if s.Tell() != 6 {
		t.Errorf("tell = %d, want 6", s.Tell())
	}
	if s.Size() != 11 {
		t.Errorf("size = %d, want 11", s.Size())
	}
}

func TestBuffered_ShortPeekAtEOF(t *testing.T) {
	t.Parallel()
	s := NewBuffered(bytes.NewReader([]byte("abc")), 0)

	// bufio reports io.EOF alongside partial data; the source contract
	// normalizes that to a short result without an error.
	b, err := s.Peek(10)
	if err != nil {
		t.Fatalf("short peek returned error %v", err)
	}
	if len(b) != 3 {
		t.Fatalf("short peek length = %d, want 3", len(b))
	}
}

func TestBuffered_ClosesUnderlying(t *testing.T) {
	t.Parallel()
	rc := &closeRecorder{Reader: bytes.NewReader([]byte("x"))}
	s := NewBuffered(rc, 0)
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if !rc.closed {
		t.Error("underlying closer not closed")
	}
}

type closeRecorder struct {
	io.Reader
	closed bool
}

func (c *closeRecorder) Close() error {
	c.closed = true
	return nil
}

func TestFile_ReadAndSeek(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "data.bin")
	content := []byte("0123456789")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if s.Size() != 10 || !s.CanSeek() {
		t.Fatalf("size = %d, seekable = %v", s.Size(), s.CanSeek())
	}

	buf := make([]byte, 4)
	if _, err := io.ReadFull(s, buf); err != nil {
		t.Fatal(err)
	}
	if string(buf) != "0123" || s.Tell() != 4 {
		t.Errorf("read = %q at %d", buf, s.Tell())
	}

	// Seeking must discard buffered read-ahead.
	if err := s.Seek(8); err != nil {
		t.Fatal(err)
	}
	b, err := s.Peek(4)
	if err != nil || string(b) != "89" {
		t.Fatalf("peek after seek = %q, %v", b, err)
	}
	if s.Tell() != 8 {
		t.Errorf("tell after seek = %d, want 8", s.Tell())
	}
}

func TestOpenFile_Missing(t *testing.T) {
	t.Parallel()
	if _, err := OpenFile(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Fatal("opening a missing file succeeded")
	}
}
