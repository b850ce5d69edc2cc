package demux

import "time"

// DefaultPTSDelay is the buffering delay a demuxer should report when it
// has no better estimate of the demux-to-presentation latency.
const DefaultPTSDelay = 300 * time.Millisecond

// Query is a control request to a demuxer. The set of queries is closed:
// one concrete type per query kind, each carrying strongly typed input and
// output fields. Input fields are set by the host before calling Control;
// output fields are filled in by the demuxer on success.
//
// Every query is documented as either "cannot fail" (the demuxer must
// produce a value, defaulting conservatively) or "can fail" (the demuxer
// may return ErrUnsupported, and the host must apply the query's named
// default instead of surfacing an error).
type Query interface {
	query()
}

// GetPosition reports the current position as a ratio in [0, 1].
// Cannot fail; 0 when unknown.
type GetPosition struct {
	Position float64 // out
}

// SetPosition seeks to a ratio in [0, 1]. Can fail (non-seekable source);
// no partial effect on failure.
type SetPosition struct {
	Position float64 // in
}

// GetLength reports the total duration of the content. Cannot fail;
// 0 when unknown.
type GetLength struct {
	Length time.Duration // out
}

// GetTime reports the current position as an absolute time. Cannot fail;
// 0 when unknown.
type GetTime struct {
	Time time.Duration // out
}

// SetTime seeks to an absolute time. Can fail.
type SetTime struct {
	Time time.Duration // in
}

// GetTitleInfo returns the title descriptors. It fails with ErrUnsupported
// when the content exposes at most one title and at most one seekpoint
// everywhere; the host must then treat the content as a single implicit
// title. The offsets translate demuxer-level indices into the host's
// global title/seekpoint numbering.
type GetTitleInfo struct {
	Titles          []Title // out
	TitleOffset     int     // out
	SeekpointOffset int     // out
}

// SetTitle switches to the title with the given index. Only valid after a
// successful GetTitleInfo; out-of-range indices fail with
// ErrInvalidArgument and no state change.
type SetTitle struct {
	Index int // in
}

// SetSeekpoint switches to the seekpoint with the given index inside the
// current title. Same validity rules as SetTitle.
type SetSeekpoint struct {
	Index int // in
}

// SetGroup restricts demuxing to one elementary-stream group (program).
// Group -1 means all groups, 0 the default group. Demuxers that have no
// notion of grouping must treat this as a successful no-op, never an error.
type SetGroup struct {
	Group int // in
}

// SetNextTime asks the demuxer to demux up to the given date at the next
// Step call, but not further. Advisory: a best-effort pacing hint for
// multi-source synchronization, not a hard contract. Can fail.
type SetNextTime struct {
	Time time.Duration // in
}

// GetFPS reports the frame rate, used for subtitle timing. Can fail.
type GetFPS struct {
	FPS float64 // out
}

// GetMeta returns the demuxer-level metadata snapshot. Can fail.
type GetMeta struct {
	Meta Meta // out
}

// HasUnsupportedMeta reports whether the container carried metadata the
// demuxer could not interpret. Can fail.
type HasUnsupportedMeta struct {
	Has bool // out
}

// GetAttachments returns the container attachments (fonts, cover art).
// Can fail.
type GetAttachments struct {
	Attachments []*Attachment // out
}

// CanPause reports whether the demuxer supports pausing its source.
// Can fail; assume false.
type CanPause struct {
	CanPause bool // out
}

// SetPauseState pauses or resumes the source. Can fail.
type SetPauseState struct {
	Paused bool // in
}

// GetPTSDelay reports the buffering delay between demux and presentation.
// Cannot fail.
type GetPTSDelay struct {
	Delay time.Duration // out
}

// CanControlPace reports whether the demuxer can deliver data as fast as
// the host consumes it, as opposed to pushing at its own real-time pace.
// Can fail; assume false.
type CanControlPace struct {
	CanControl bool // out
}

// CanControlRate reports whether the demuxer honors an explicit speed
// multiplier, and whether changing the rate requires the host to rescale
// presentation timestamps itself. Only meaningful when CanControlPace
// reported false; a conforming host never issues this query otherwise.
// Can fail; assume false.
type CanControlRate struct {
	CanControl bool // out
	RescaleTS  bool // out
}

// SetRate requests a playback speed multiplier. Only valid after
// CanControlRate reported the demuxer rate-capable. On success Rate holds
// the multiplier actually applied, which may differ from the request.
type SetRate struct {
	Rate float64 // in: requested; out: applied
}

// CanSeek reports whether the source supports seeking. Can fail;
// assume false.
type CanSeek struct {
	CanSeek bool // out
}

func (*GetPosition) query()        {}
func (*SetPosition) query()        {}
func (*GetLength) query()          {}
func (*GetTime) query()            {}
func (*SetTime) query()            {}
func (*GetTitleInfo) query()       {}
func (*SetTitle) query()           {}
func (*SetSeekpoint) query()       {}
func (*SetGroup) query()           {}
func (*SetNextTime) query()        {}
func (*GetFPS) query()             {}
func (*GetMeta) query()            {}
func (*HasUnsupportedMeta) query() {}
func (*GetAttachments) query()     {}
func (*CanPause) query()           {}
func (*SetPauseState) query()      {}
func (*GetPTSDelay) query()        {}
func (*CanControlPace) query()     {}
func (*CanControlRate) query()     {}
func (*SetRate) query()            {}
func (*CanSeek) query()            {}
