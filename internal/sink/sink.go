// Package sink defines the elementary-stream output contract: demuxers
// register each stream once with an explicit format descriptor, then push
// self-contained units that reference the registered stream by handle.
package sink

import (
	"errors"
	"math"
	"time"
)

// ErrUnknownStream is returned by Send for a handle that was never
// registered with AddStream.
var ErrUnknownStream = errors.New("sink: unknown stream")

// StreamType classifies an elementary stream.
type StreamType uint8

const (
	Video StreamType = iota + 1
	Audio
	Subtitle
	Data
)

func (t StreamType) String() string {
	switch t {
	case Video:
		return "video"
	case Audio:
		return "audio"
	case Subtitle:
		return "subtitle"
	case Data:
		return "data"
	}
	return "unknown"
}

// Format describes an elementary stream at registration time. Units sent
// afterwards omit this information and carry only the stream handle.
type Format struct {
	Type  StreamType
	Codec string
	// Group is the elementary-stream group (program) this stream belongs
	// to, 0 for the default group.
	Group int

	// Audio fields.
	SampleRate    int
	Channels      int
	BitsPerSample int

	// Video fields.
	Width  int
	Height int

	// Extra carries codec initialization data when the container provides
	// it out of band.
	Extra []byte
}

// StreamID is the handle AddStream returns for a registered stream.
type StreamID int

// NoTimestamp marks an absent PTS or DTS.
const NoTimestamp = time.Duration(math.MinInt64)

// Unit is one self-contained elementary-stream unit. Units are never
// partial: a demuxer must not push interleaved fragments of one unit.
type Unit struct {
	Stream   StreamID
	PTS      time.Duration
	DTS      time.Duration
	Keyframe bool
	Data     []byte
}

// Sink accepts demuxed elementary-stream units. A sink may be shared by
// multiple demuxer instances.
type Sink interface {
	// AddStream registers a stream and returns its handle. The format
	// descriptor is required at first use.
	AddStream(Format) (StreamID, error)

	// Send pushes one unit for a previously registered stream.
	Send(Unit) error
}
