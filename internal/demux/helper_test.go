package demux

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/zsiec/facet/internal/source"
)

// 1000 bytes of payload at 8000 bits per second is one second of data.
const (
	testPayload = 1000
	testBitrate = 8000
)

func newTestSource(t *testing.T) source.Source {
	t.Helper()
	return source.NewBytes(make([]byte, testPayload))
}

func TestSourceControl_LengthAndTime(t *testing.T) {
	t.Parallel()
	src := newTestSource(t)

	length := &GetLength{}
	if err := SourceControl(src, 0, testPayload, testBitrate, 1, length); err != nil {
		t.Fatal(err)
	}
	if length.Length != time.Second {
		t.Errorf("length = %v, want 1s", length.Length)
	}

	// Consume a quarter of the payload.
	if _, err := io.CopyN(io.Discard, src, testPayload/4); err != nil {
		t.Fatal(err)
	}

	cur := &GetTime{}
	if err := SourceControl(src, 0, testPayload, testBitrate, 1, cur); err != nil {
		t.Fatal(err)
	}
	if cur.Time != 250*time.Millisecond {
		t.Errorf("time = %v, want 250ms", cur.Time)
	}

	pos := &GetPosition{}
	if err := SourceControl(src, 0, testPayload, testBitrate, 1, pos); err != nil {
		t.Fatal(err)
	}
	if pos.Position != 0.25 {
		t.Errorf("position = %v, want 0.25", pos.Position)
	}
}

func TestSourceControl_SeekRoundTrip(t *testing.T) {
	t.Parallel()
	src := newTestSource(t)

	if err := SourceControl(src, 0, testPayload, testBitrate, 1, &SetPosition{Position: 0.5}); err != nil {
		t.Fatal(err)
	}
	pos := &GetPosition{}
	if err := SourceControl(src, 0, testPayload, testBitrate, 1, pos); err != nil {
		t.Fatal(err)
	}
	if pos.Position != 0.5 {
		t.Errorf("position after seek = %v, want 0.5", pos.Position)
	}

	if err := SourceControl(src, 0, testPayload, testBitrate, 1, &SetTime{Time: 750 * time.Millisecond}); err != nil {
		t.Fatal(err)
	}
	cur := &GetTime{}
	if err := SourceControl(src, 0, testPayload, testBitrate, 1, cur); err != nil {
		t.Fatal(err)
	}
	if cur.Time != 750*time.Millisecond {
		t.Errorf("time after seek = %v, want 750ms", cur.Time)
	}
}

func TestSourceControl_SeekAlignment(t *testing.T) {
	t.Parallel()
	src := newTestSource(t)

	// Align on 4-byte blocks: 0.5 of 1000 bytes is 500, already aligned;
	// 0.333 lands at 333 and must snap down to 332.
	if err := SourceControl(src, 0, testPayload, testBitrate, 4, &SetPosition{Position: 0.333}); err != nil {
		t.Fatal(err)
	}
	if src.Tell()%4 != 0 {
		t.Errorf("seek landed at %d, not block aligned", src.Tell())
	}
}

func TestSourceControl_InvalidSeeks(t *testing.T) {
	t.Parallel()
	src := newTestSource(t)

	if err := SourceControl(src, 0, testPayload, testBitrate, 1, &SetPosition{Position: 1.5}); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("out-of-range ratio = %v, want ErrInvalidArgument", err)
	}
	if err := SourceControl(src, 0, testPayload, testBitrate, 1, &SetTime{Time: -time.Second}); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("negative time = %v, want ErrInvalidArgument", err)
	}

	// A time past the end clamps to the end instead of failing.
	if err := SourceControl(src, 0, testPayload, testBitrate, 1, &SetTime{Time: time.Hour}); err != nil {
		t.Fatal(err)
	}
	if src.Tell() != testPayload {
		t.Errorf("clamped seek landed at %d, want %d", src.Tell(), testPayload)
	}
}

func TestSourceControl_CanSeek(t *testing.T) {
	t.Parallel()
	q := &CanSeek{}
	if err := SourceControl(newTestSource(t), 0, testPayload, testBitrate, 1, q); err != nil {
		t.Fatal(err)
	}
	if !q.CanSeek {
		t.Error("seekable source reported as unseekable")
	}
	if err := SourceControl(nil, 0, testPayload, testBitrate, 1, q); err != nil {
		t.Fatal(err)
	}
	if q.CanSeek {
		t.Error("nil source reported as seekable")
	}
}

func TestSourceControl_UnknownBitrate(t *testing.T) {
	t.Parallel()
	src := newTestSource(t)

	length := &GetLength{}
	if err := SourceControl(src, 0, testPayload, 0, 1, length); err != nil {
		t.Fatal(err)
	}
	if length.Length != 0 {
		t.Errorf("length without bitrate = %v, want 0", length.Length)
	}
	if err := SourceControl(src, 0, testPayload, 0, 1, &SetTime{Time: time.Second}); !errors.Is(err, ErrUnsupported) {
		t.Errorf("time seek without bitrate = %v, want ErrUnsupported", err)
	}
}

func TestSourceControl_OutOfScopeQuery(t *testing.T) {
	t.Parallel()
	if err := SourceControl(newTestSource(t), 0, testPayload, testBitrate, 1, &GetFPS{}); !errors.Is(err, ErrUnsupported) {
		t.Errorf("fps query = %v, want ErrUnsupported", err)
	}
}
