// Package host drives a single demuxer instance: it owns the step loop,
// consumes update notifications, and serializes asynchronous control
// requests so they apply atomically between steps, never mid-step.
package host

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zsiec/facet/internal/demux"
)

// Retry pacing for transient source starvation.
const (
	initialBackoff = 10 * time.Millisecond
	maxBackoff     = 500 * time.Millisecond
)

// ErrStopped answers control requests still queued when the loop exits.
var ErrStopped = errors.New("host: demux loop stopped")

// Stats is a point-in-time snapshot of loop counters.
type Stats struct {
	Steps   int64
	Retries int64
	Updates int64
}

type request struct {
	q    demux.Query
	done chan error
}

// Host drives one demuxer. Exactly one goroutine runs the loop; every
// other goroutine interacts through Control and the accessors.
type Host struct {
	log *slog.Logger
	d   demux.Demuxer

	requests chan request

	// mu guards the negotiated capabilities and title info, which the
	// loop writes and accessors read from other goroutines.
	mu sync.RWMutex

	// Capability negotiation results, fixed at Run start.
	pace        bool
	rateCapable bool
	rescaleTS   bool

	// Title info from the last successful query; nil means the content is
	// a single implicit title.
	titles          []demux.Title
	titleOffset     int
	seekpointOffset int

	steps   atomic.Int64
	retries atomic.Int64
	updates atomic.Int64
}

// New creates a host for d. If log is nil, slog.Default() is used.
func New(d demux.Demuxer, log *slog.Logger) *Host {
	if log == nil {
		log = slog.Default()
	}
	return &Host{
		log:      log.With("component", "host"),
		d:        d,
		requests: make(chan request, 16),
	}
}

// Run negotiates capabilities and then steps the demuxer until end of
// stream, a fatal error, or context cancellation. End of stream returns
// nil; a fatal demux error is returned so the caller can tear the
// instance down and possibly reselect a demuxer.
func (h *Host) Run(ctx context.Context) error {
	defer h.failPending()
	h.negotiate()

	backoff := initialBackoff
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		h.drainRequests()

		err := h.d.Step()
		h.steps.Add(1)

		switch {
		case err == nil:
			backoff = initialBackoff
			h.observeUpdates()

		case errors.Is(err, io.EOF):
			h.log.Info("end of stream", "steps", h.steps.Load())
			return nil

		case errors.Is(err, demux.ErrNotEnoughData):
			h.retries.Add(1)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}

		default:
			return fmt.Errorf("host: demux step: %w", err)
		}
	}
}

// negotiate queries the pacing capabilities once. Rate control is only
// queried when the demuxer does not control pace; querying it otherwise
// violates the protocol's mutual-exclusion rule.
func (h *Host) negotiate() {
	pace := CanControlPace(h.d)
	var rateCapable, rescaleTS bool
	if !pace {
		rateCapable, rescaleTS = CanControlRate(h.d)
	}

	h.mu.Lock()
	h.pace = pace
	h.rateCapable = rateCapable
	h.rescaleTS = rescaleTS
	h.mu.Unlock()

	h.refreshTitles()

	h.log.Info("negotiated",
		"pace_control", pace,
		"rate_control", rateCapable,
		"rescale_ts", rescaleTS,
		"titles", len(h.Titles()),
	)
}

// observeUpdates consumes the demuxer's dirty notification after a step
// and re-queries title info when navigation state changed.
func (h *Host) observeUpdates() {
	u := h.d.Info().Take()
	if !u.Any() {
		return
	}
	h.updates.Add(1)
	if u.Title {
		h.refreshTitles()
	}
	h.log.Debug("navigation update",
		"title", h.d.Info().Title(),
		"seekpoint", h.d.Info().Seekpoint(),
	)
}

func (h *Host) refreshTitles() {
	q := &demux.GetTitleInfo{}
	err := h.d.Control(q)
	if errors.Is(err, demux.ErrUnsupported) {
		h.mu.Lock()
		h.titles = nil
		h.mu.Unlock()
		return
	}
	if err != nil {
		h.log.Warn("title info query failed", "error", err)
		return
	}
	h.mu.Lock()
	h.titles = q.Titles
	h.titleOffset = q.TitleOffset
	h.seekpointOffset = q.SeekpointOffset
	h.mu.Unlock()
}

// failPending answers whatever is left in the mailbox once the loop has
// stopped, so Control callers get a deterministic reply instead of
// waiting on their own context.
func (h *Host) failPending() {
	for {
		select {
		case req := <-h.requests:
			req.done <- ErrStopped
		default:
			return
		}
	}
}

func (h *Host) drainRequests() {
	for {
		select {
		case req := <-h.requests:
			req.done <- h.apply(req.q)
		default:
			return
		}
	}
}

// apply runs one control request on the loop goroutine, enforcing the
// host-side validity rules before touching the demuxer.
func (h *Host) apply(q demux.Query) error {
	switch q := q.(type) {
	case *demux.SetRate:
		// Rejected locally unless negotiation found the demuxer
		// rate-capable; pace-controlled demuxers never see SetRate.
		if !h.RateCapable() {
			return demux.ErrUnsupported
		}
		if q.Rate <= 0 {
			return demux.ErrInvalidArgument
		}

	case *demux.SetTitle, *demux.SetSeekpoint:
		// Only valid after a successful title-info query.
		h.mu.RLock()
		known := h.titles != nil
		h.mu.RUnlock()
		if !known {
			return demux.ErrUnsupported
		}
	}

	err := h.d.Control(q)
	if err == nil {
		h.observeUpdates()
	}
	return err
}

// Control submits a query to the loop, which applies it atomically before
// the next step. It blocks until the loop has run the query or ctx ends.
func (h *Host) Control(ctx context.Context, q demux.Query) error {
	req := request{q: q, done: make(chan error, 1)}
	select {
	case h.requests <- req:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SeekRatio seeks to a position ratio in [0, 1].
func (h *Host) SeekRatio(ctx context.Context, r float64) error {
	return h.Control(ctx, &demux.SetPosition{Position: r})
}

// SeekTime seeks to an absolute time.
func (h *Host) SeekTime(ctx context.Context, t time.Duration) error {
	return h.Control(ctx, &demux.SetTime{Time: t})
}

// SetTitle switches titles.
func (h *Host) SetTitle(ctx context.Context, index int) error {
	return h.Control(ctx, &demux.SetTitle{Index: index})
}

// SetSeekpoint switches seekpoints within the current title.
func (h *Host) SetSeekpoint(ctx context.Context, index int) error {
	return h.Control(ctx, &demux.SetSeekpoint{Index: index})
}

// SetRate requests a playback speed multiplier and returns the multiplier
// actually applied.
func (h *Host) SetRate(ctx context.Context, rate float64) (float64, error) {
	q := &demux.SetRate{Rate: rate}
	if err := h.Control(ctx, q); err != nil {
		return 0, err
	}
	return q.Rate, nil
}

// Pause pauses or resumes the source.
func (h *Host) Pause(ctx context.Context, paused bool) error {
	return h.Control(ctx, &demux.SetPauseState{Paused: paused})
}

// SetNextTime forwards the advisory demux-ahead limit used when several
// demuxers share one clock.
func (h *Host) SetNextTime(ctx context.Context, t time.Duration) error {
	return h.Control(ctx, &demux.SetNextTime{Time: t})
}

// Titles returns the descriptors from the last successful title-info
// query; nil means a single implicit title.
func (h *Host) Titles() []demux.Title {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return demux.CloneTitles(h.titles)
}

// PaceControlled reports the negotiated pace-control capability.
func (h *Host) PaceControlled() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.pace
}

// RateCapable reports the negotiated rate-control capability.
func (h *Host) RateCapable() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rateCapable
}

// NeedsTimestampRescale reports whether rate changes require the host to
// rescale presentation timestamps.
func (h *Host) NeedsTimestampRescale() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rescaleTS
}

// Stats returns loop counters.
func (h *Host) Stats() Stats {
	return Stats{
		Steps:   h.steps.Load(),
		Retries: h.retries.Load(),
		Updates: h.updates.Load(),
	}
}
