// Package wav demuxes RIFF/WAVE audio. PCM payload bytes map linearly to
// time, so seeking, position, and length reporting all ride on the
// constant-bitrate helper. Cue-chunk markers surface as seekpoints inside
// the single title, and LIST/INFO strings as metadata.
package wav

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/zsiec/facet/internal/demux"
	"github.com/zsiec/facet/internal/probe"
	"github.com/zsiec/facet/internal/sink"
)

const (
	audioFormatPCM = 1

	// stepTarget is the payload duration demuxed per Step call, keeping
	// the per-call work bounded.
	stepTarget = 250 * time.Millisecond

	// maxInlineChunk bounds how much of a non-payload chunk is buffered
	// through peek; larger chunks are skipped.
	maxInlineChunk = 32 << 10
)

// Demuxer is a WAV demuxer instance.
type Demuxer struct {
	demux.Base

	channels      int
	sampleRate    int
	blockAlign    int
	bitsPerSample int
	byteRate      int64

	dataStart int64
	dataEnd   int64 // 0 when the data chunk size is unknown (live capture)

	meta       demux.Meta
	titles     []demux.Title
	cueSamples []uint32

	stream      sink.StreamID
	headerDone  bool
	riffDone    bool
	skipLeft    int64
	unknownMeta bool

	nextTime    time.Duration
	hasNextTime bool
}

// New creates a WAV demuxer. Source and sink are both required.
func New(cfg demux.Config) (demux.Demuxer, error) {
	if cfg.Source == nil || cfg.Sink == nil {
		return nil, errors.New("wav: source and sink are required")
	}
	return &Demuxer{
		Base: demux.NewBase("wav", cfg),
		meta: demux.Meta{},
	}, nil
}

// Probe recognizes the RIFF/WAVE magic.
func Probe(peek []byte) bool {
	return len(peek) >= 12 &&
		string(peek[0:4]) == "RIFF" &&
		string(peek[8:12]) == "WAVE"
}

// Register adds the WAV handler to a probe registry.
func Register(r *probe.Registry) {
	r.Register(probe.Handler{
		Name:       "wav",
		Extensions: []string{".wav"},
		PeekSize:   12,
		Probe:      Probe,
		New:        New,
	})
}

// Step parses the header on the first calls, then demuxes roughly a
// quarter second of PCM payload per call.
func (d *Demuxer) Step() error {
	if !d.headerDone {
		if err := d.parseHeader(); err != nil {
			return err
		}
		id, err := d.Sink.AddStream(sink.Format{
			Type:          sink.Audio,
			Codec:         d.codecName(),
			SampleRate:    d.sampleRate,
			Channels:      d.channels,
			BitsPerSample: d.bitsPerSample,
		})
		if err != nil {
			return err
		}
		d.stream = id
		d.headerDone = true
		d.Log.Debug("header parsed",
			"sample_rate", d.sampleRate,
			"channels", d.channels,
			"seekpoints", len(d.titles[0].Seekpoints),
		)
		return nil
	}

	pos := d.Source.Tell()
	if d.dataEnd > 0 && pos >= d.dataEnd {
		return io.EOF
	}

	cur := d.timeAt(pos)
	if d.hasNextTime && cur >= d.nextTime {
		return nil // demuxed up to the advisory date, wait for the host
	}

	n := d.quantum(pos, cur)
	buf := make([]byte, n)
	rn, err := io.ReadFull(d.Source, buf)
	if rn == 0 {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return io.EOF
		}
		return fmt.Errorf("wav: read payload: %w", err)
	}

	if sendErr := d.Sink.Send(sink.Unit{
		Stream:   d.stream,
		PTS:      cur,
		DTS:      sink.NoTimestamp,
		Keyframe: true,
		Data:     buf[:rn],
	}); sendErr != nil {
		return sendErr
	}

	d.Info().SetSeekpoint(d.seekpointAt(d.Source.Tell()))
	return nil
}

// quantum returns the payload byte count for one step, block-aligned and
// clipped to the data chunk and the advisory next-demux time.
func (d *Demuxer) quantum(pos int64, cur time.Duration) int {
	n := d.byteRate * int64(stepTarget) / int64(time.Second)
	if d.hasNextTime {
		if ahead := d.nextTime - cur; ahead > 0 {
			limit := d.byteRate * int64(ahead) / int64(time.Second)
			if limit < n {
				n = limit
			}
		}
	}
	if d.dataEnd > 0 && pos+n > d.dataEnd {
		n = d.dataEnd - pos
	}
	align := int64(d.blockAlign)
	n -= n % align
	if n < align {
		n = align
	}
	return int(n)
}

// Control implements the control protocol for WAV content.
func (d *Demuxer) Control(q demux.Query) error {
	start, end, bitrate := d.bounds()

	switch q := q.(type) {
	case *demux.GetPosition, *demux.GetLength, *demux.GetTime, *demux.CanSeek:
		return demux.SourceControl(d.Source, start, end, bitrate, int64(d.blockAlign), q)

	case *demux.SetPosition, *demux.SetTime:
		if err := demux.SourceControl(d.Source, start, end, bitrate, int64(d.blockAlign), q); err != nil {
			return err
		}
		d.Info().SetSeekpoint(d.seekpointAt(d.Source.Tell()))
		return nil

	case *demux.GetTitleInfo:
		if !demux.TitleInfoAvailable(d.titles) {
			return demux.ErrUnsupported
		}
		q.Titles = demux.CloneTitles(d.titles)
		return nil

	case *demux.SetTitle:
		if !demux.TitleInfoAvailable(d.titles) {
			return demux.ErrUnsupported
		}
		if q.Index != 0 {
			return demux.ErrInvalidArgument
		}
		return nil

	case *demux.SetSeekpoint:
		if !demux.TitleInfoAvailable(d.titles) {
			return demux.ErrUnsupported
		}
		sps := d.titles[0].Seekpoints
		if q.Index < 0 || q.Index >= len(sps) {
			return demux.ErrInvalidArgument
		}
		if err := d.Source.Seek(sps[q.Index].ByteOffset); err != nil {
			return err
		}
		d.Info().SetSeekpoint(q.Index)
		return nil

	case *demux.SetGroup:
		return nil // no grouping in WAV, successful no-op

	case *demux.SetNextTime:
		if q.Time < 0 {
			return demux.ErrInvalidArgument
		}
		d.nextTime = q.Time
		d.hasNextTime = true
		return nil

	case *demux.GetMeta:
		if len(d.meta) == 0 {
			return demux.ErrUnsupported
		}
		q.Meta = d.meta.Clone()
		return nil

	case *demux.HasUnsupportedMeta:
		q.Has = d.unknownMeta
		return nil

	case *demux.CanPause:
		q.CanPause = true
		return nil

	case *demux.SetPauseState:
		return nil // file-backed, nothing to throttle

	case *demux.GetPTSDelay:
		q.Delay = demux.DefaultPTSDelay
		return nil

	case *demux.CanControlPace:
		q.CanControl = true
		return nil
	}

	// CanControlRate, SetRate, GetFPS, GetAttachments and anything new
	// fall through: a WAV demuxer controls pace, so rate control must not
	// even be negotiated.
	return demux.ErrUnsupported
}

func (d *Demuxer) Close() error {
	return nil
}

// bounds returns the payload byte range and bitrate once the header is
// known, and conservative whole-file values before that.
func (d *Demuxer) bounds() (start, end, bitrate int64) {
	if !d.headerDone {
		return 0, d.Source.Size(), 0
	}
	end = d.dataEnd
	if end == 0 {
		end = d.Source.Size()
	}
	return d.dataStart, end, d.byteRate * 8
}

func (d *Demuxer) timeAt(pos int64) time.Duration {
	if pos <= d.dataStart || d.byteRate == 0 {
		return 0
	}
	return time.Duration((pos - d.dataStart) * int64(time.Second) / d.byteRate)
}

// seekpointAt returns the index of the last seekpoint at or before pos,
// 0 when there are none.
func (d *Demuxer) seekpointAt(pos int64) int {
	if len(d.titles) == 0 {
		return 0
	}
	sps := d.titles[0].Seekpoints
	idx := 0
	for i, sp := range sps {
		if sp.ByteOffset <= pos {
			idx = i
		}
	}
	return idx
}

func (d *Demuxer) codecName() string {
	switch d.bitsPerSample {
	case 8:
		return "pcm_u8"
	case 16:
		return "pcm_s16le"
	case 24:
		return "pcm_s24le"
	case 32:
		return "pcm_s32le"
	}
	return fmt.Sprintf("pcm_%dle", d.bitsPerSample)
}
