package demux

// Updates is the dirty notification a demuxer raises when navigation state
// changed during a step. The demuxer is the only producer, the host the
// only consumer: the host reads and clears it with Info.Take exactly once
// after each step.
type Updates struct {
	Title     bool
	Seekpoint bool
}

// Any reports whether anything changed.
func (u Updates) Any() bool {
	return u.Title || u.Seekpoint
}

// Info is the navigation state a demuxer maintains when it is responsible
// for titles and seekpoints. Indices start at 0. Not safe for concurrent
// use; the single goroutine driving the demuxer owns it.
type Info struct {
	title     int
	seekpoint int
	pending   Updates
}

// Title returns the current title index.
func (i *Info) Title() int {
	return i.title
}

// Seekpoint returns the current seekpoint index.
func (i *Info) Seekpoint() int {
	return i.seekpoint
}

// SetTitle records a title change. The pending update is raised only when
// the index actually changes, so the notification never fires without a
// real change.
func (i *Info) SetTitle(n int) {
	if n == i.title {
		return
	}
	i.title = n
	i.pending.Title = true
}

// SetSeekpoint records a seekpoint change, raising the pending update only
// on a real change.
func (i *Info) SetSeekpoint(n int) {
	if n == i.seekpoint {
		return
	}
	i.seekpoint = n
	i.pending.Seekpoint = true
}

// Take returns the pending updates and clears them. Read-and-clear is
// atomic from the protocol's point of view because a single goroutine
// drives the instance: an update raised by a Step call is observable by
// the immediately following Take and is cleared exactly once.
func (i *Info) Take() Updates {
	u := i.pending
	i.pending = Updates{}
	return u
}
