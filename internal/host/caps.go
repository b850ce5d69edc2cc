package host

import (
	"log/slog"
	"time"

	"github.com/zsiec/facet/internal/demux"
)

// Capability helpers applying the conservative-default convention: when a
// demuxer declines a capability query, the only legal host reaction is to
// use the named default (false / zero), never to surface an error.

// CanSeek reports whether the demuxer supports seeking; false on failure.
func CanSeek(d demux.Demuxer) bool {
	q := &demux.CanSeek{}
	if d.Control(q) != nil {
		return false
	}
	return q.CanSeek
}

// CanPause reports whether the demuxer supports pausing; false on failure.
func CanPause(d demux.Demuxer) bool {
	q := &demux.CanPause{}
	if d.Control(q) != nil {
		return false
	}
	return q.CanPause
}

// CanControlPace reports whether the demuxer delivers data at the host's
// pace; false on failure.
func CanControlPace(d demux.Demuxer) bool {
	q := &demux.CanControlPace{}
	if d.Control(q) != nil {
		return false
	}
	return q.CanControl
}

// CanControlRate reports whether the demuxer honors a speed multiplier and
// whether the host must rescale timestamps itself. Only meaningful when
// CanControlPace reported false; both report false on failure.
func CanControlRate(d demux.Demuxer) (capable, rescaleTS bool) {
	q := &demux.CanControlRate{}
	if d.Control(q) != nil {
		return false, false
	}
	return q.CanControl, q.RescaleTS
}

// Position returns the current position ratio. The query cannot fail; a
// decline is a protocol violation, logged and read as 0.
func Position(d demux.Demuxer, log *slog.Logger) float64 {
	q := &demux.GetPosition{}
	if err := d.Control(q); err != nil {
		violation(log, "position", err)
		return 0
	}
	return q.Position
}

// Length returns the total duration, 0 when unknown. A decline is a
// protocol violation, logged.
func Length(d demux.Demuxer, log *slog.Logger) time.Duration {
	q := &demux.GetLength{}
	if err := d.Control(q); err != nil {
		violation(log, "length", err)
		return 0
	}
	return q.Length
}

// CurrentTime returns the current position as an absolute time, 0 when
// unknown. A decline is a protocol violation, logged.
func CurrentTime(d demux.Demuxer, log *slog.Logger) time.Duration {
	q := &demux.GetTime{}
	if err := d.Control(q); err != nil {
		violation(log, "time", err)
		return 0
	}
	return q.Time
}

// PTSDelay returns the demux-to-presentation delay the demuxer requests.
// A decline is a protocol violation, logged; the default delay applies.
func PTSDelay(d demux.Demuxer, log *slog.Logger) time.Duration {
	q := &demux.GetPTSDelay{}
	if err := d.Control(q); err != nil {
		violation(log, "pts delay", err)
		return demux.DefaultPTSDelay
	}
	return q.Delay
}

// violation records a query failure the protocol forbids. The loop keeps
// running on the default value; the log line is the only consequence.
func violation(log *slog.Logger, query string, err error) {
	if log == nil {
		log = slog.Default()
	}
	log.Warn("protocol violation: query declined but cannot fail",
		"query", query, "error", err)
}
