// Package epg holds the program-guide table a demuxer fills in from the
// stream and the read-only snapshot an overlay renderer consumes. The
// table is the one piece of demuxer-adjacent state read from a second
// goroutine, so copy-out happens under a lock and the renderer works on
// its own duplicate.
package epg

import (
	"sync"
	"time"
)

// Event is one program-guide entry.
type Event struct {
	Name        string
	Description string
	Start       time.Time
	Duration    time.Duration
}

// End returns the event's end time.
func (e Event) End() time.Time {
	return e.Start.Add(e.Duration)
}

// Progress returns the elapsed fraction of the event at the given time,
// clipped to [0, 1]. Zero-duration events report 0.
func (e Event) Progress(now time.Time) float64 {
	if e.Duration <= 0 {
		return 0
	}
	r := float64(now.Sub(e.Start)) / float64(e.Duration)
	switch {
	case r < 0:
		return 0
	case r > 1:
		return 1
	}
	return r
}

// Table is the live program guide for one channel. The demuxing goroutine
// writes it; renderers read it through Snapshot.
type Table struct {
	mu        sync.RWMutex
	channel   string
	current   *Event
	following []Event
}

// SetChannel records the channel (service) name.
func (t *Table) SetChannel(name string) {
	t.mu.Lock()
	t.channel = name
	t.mu.Unlock()
}

// SetCurrent replaces the currently running event.
func (t *Table) SetCurrent(ev Event) {
	t.mu.Lock()
	t.current = &ev
	t.mu.Unlock()
}

// SetFollowing replaces the list of upcoming events.
func (t *Table) SetFollowing(evs []Event) {
	t.mu.Lock()
	t.following = append([]Event(nil), evs...)
	t.mu.Unlock()
}

// Snapshot duplicates the table under the lock. The caller owns the copy
// and can render from it on its own cadence without further locking.
func (t *Table) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s := Snapshot{
		Channel:   t.channel,
		Following: append([]Event(nil), t.following...),
	}
	if t.current != nil {
		ev := *t.current
		s.Current = &ev
	}
	return s
}

// Snapshot is an internally consistent, read-only copy of the table.
type Snapshot struct {
	Channel   string
	Current   *Event
	Following []Event
}
