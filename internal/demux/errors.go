package demux

import "errors"

// Sentinel errors for the control protocol and the step loop. These enable
// hosts to programmatically classify failures using errors.Is.
var (
	// ErrUnsupported is returned by Control when the demuxer does not
	// implement the query. Hosts must fall back to the query's documented
	// conservative default and must never escalate this to the user.
	ErrUnsupported = errors.New("demux: unsupported query")

	// ErrInvalidArgument is returned by Control when an input value is out
	// of range (bad title index, malformed rate). The demuxer must not have
	// mutated any state when returning it.
	ErrInvalidArgument = errors.New("demux: invalid argument")

	// ErrNotEnoughData is returned by Step when the source is temporarily
	// starved. The host should retry later; it is distinct from both end of
	// stream (io.EOF) and fatal errors.
	ErrNotEnoughData = errors.New("demux: not enough data")
)
