package demux

import (
	"time"

	"github.com/zsiec/facet/internal/source"
)

// SourceControl answers the stock byte-range control queries for demuxers
// whose payload is a constant-bitrate span of the source: position, time,
// length, and seekability all derive from byte offsets. start and end
// bound the payload (end < 0 means the source size), bitrate is in bits
// per second (0 when unknown), and align forces seeks onto block
// boundaries (values below 1 mean byte-aligned).
//
// Queries outside this stock set return ErrUnsupported so the caller can
// layer its own handling on top.
func SourceControl(src source.Source, start, end int64, bitrate, align int64, q Query) error {
	if align < 1 {
		align = 1
	}
	if end < 0 && src != nil {
		end = src.Size()
	}

	switch q := q.(type) {
	case *CanSeek:
		q.CanSeek = src != nil && src.CanSeek()
		return nil

	case *GetLength:
		if bitrate > 0 && end > start {
			q.Length = bytesToDuration(end-start, bitrate)
		} else {
			q.Length = 0
		}
		return nil

	case *GetTime:
		if bitrate > 0 && src != nil && src.Tell() > start {
			q.Time = bytesToDuration(src.Tell()-start, bitrate)
		} else {
			q.Time = 0
		}
		return nil

	case *GetPosition:
		if src != nil && end > start {
			q.Position = clampRatio(float64(src.Tell()-start) / float64(end-start))
		} else {
			q.Position = 0
		}
		return nil

	case *SetPosition:
		if src == nil || !src.CanSeek() || end <= start {
			return ErrUnsupported
		}
		if q.Position < 0 || q.Position > 1 {
			return ErrInvalidArgument
		}
		offset := start + int64(q.Position*float64(end-start))
		offset -= (offset - start) % align
		return src.Seek(offset)

	case *SetTime:
		if src == nil || !src.CanSeek() || bitrate <= 0 {
			return ErrUnsupported
		}
		if q.Time < 0 {
			return ErrInvalidArgument
		}
		offset := start + durationToBytes(q.Time, bitrate)
		offset -= (offset - start) % align
		if end > start && offset > end {
			offset = end
		}
		return src.Seek(offset)
	}

	return ErrUnsupported
}

func bytesToDuration(n, bitrate int64) time.Duration {
	return time.Duration(n * 8 * int64(time.Second) / bitrate)
}

func durationToBytes(d time.Duration, bitrate int64) int64 {
	return int64(d) * bitrate / (8 * int64(time.Second))
}

func clampRatio(r float64) float64 {
	switch {
	case r < 0:
		return 0
	case r > 1:
		return 1
	}
	return r
}
