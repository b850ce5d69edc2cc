package demux

import (
	"log/slog"
	"strings"

	"github.com/zsiec/facet/internal/sink"
	"github.com/zsiec/facet/internal/source"
)

// Demuxer is implemented by every container demuxer. The host owns the
// instance exclusively for its lifetime and drives it from a single
// goroutine.
type Demuxer interface {
	// Step advances exactly one bounded unit of demultiplexing, reading
	// from the source and pushing zero or more elementary-stream units to
	// the sink. It returns nil to keep going, io.EOF at end of stream,
	// ErrNotEnoughData when the source is temporarily starved, and any
	// other error to signal an unrecoverable condition: the host must then
	// stop driving this instance.
	Step() error

	// Control answers a single typed query. See the Query documentation
	// for the per-kind contracts.
	Control(Query) error

	// Info exposes the navigation state the demuxer keeps up to date when
	// it is responsible for titles and seekpoints.
	Info() *Info

	Close() error
}

// Config carries everything a demuxer implementation needs at creation.
type Config struct {
	// Access is the access method name (informative, e.g. "file", "srt").
	Access string
	// Name forces a specific demux module regardless of probing.
	Name string
	// Path is the resource path or URL, used for extension matching.
	Path string
	// Source is the input byte stream. Nil when the access layer and the
	// demuxer are fused into one unit.
	Source source.Source
	// Sink receives the elementary-stream output. Always required.
	Sink sink.Sink
	// Log is the demuxer's logger. Nil means slog.Default().
	Log *slog.Logger
}

// Base holds the state common to all demuxer implementations: identity,
// source, sink, logger, and navigation info. Implementations embed it and
// override Control.
type Base struct {
	Access string
	Name   string
	Path   string
	Source source.Source
	Sink   sink.Sink
	Log    *slog.Logger

	info Info
}

// NewBase initializes the common demuxer state from cfg.
func NewBase(component string, cfg Config) Base {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	return Base{
		Access: cfg.Access,
		Name:   cfg.Name,
		Path:   cfg.Path,
		Source: cfg.Source,
		Sink:   cfg.Sink,
		Log:    log.With("component", component),
	}
}

// Info returns the navigation state.
func (b *Base) Info() *Info {
	return &b.info
}

// Control rejects every query. Implementations embed Base and handle the
// queries they support, falling through to this for the rest.
func (b *Base) Control(Query) error {
	return ErrUnsupported
}

// Close is a no-op; implementations owning resources override it.
func (b *Base) Close() error {
	return nil
}

// PathExtension reports whether the resource path ends with the given
// extension (including the dot), ignoring case.
func (b *Base) PathExtension(ext string) bool {
	i := strings.LastIndexByte(b.Path, '.')
	if i < 0 {
		return false
	}
	return strings.EqualFold(b.Path[i:], ext)
}

// Forced reports whether this demuxer was explicitly requested by name,
// bypassing format probing.
func (b *Base) Forced(name string) bool {
	return b.Name != "" && b.Name == name
}
