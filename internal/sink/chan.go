package sink

import "sync"

// ChanSink delivers units to a consumer goroutine over a buffered channel.
// AddStream and Send are called by the demuxing goroutine; Units and
// Format may be read concurrently by the consumer.
type ChanSink struct {
	mu      sync.RWMutex
	formats []Format
	units   chan Unit
	closed  bool
}

// NewChanSink creates a sink whose unit channel holds up to buffer units.
func NewChanSink(buffer int) *ChanSink {
	return &ChanSink{
		units: make(chan Unit, buffer),
	}
}

func (s *ChanSink) AddStream(f Format) (StreamID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.formats = append(s.formats, f)
	return StreamID(len(s.formats) - 1), nil
}

func (s *ChanSink) Send(u Unit) error {
	s.mu.RLock()
	known := int(u.Stream) >= 0 && int(u.Stream) < len(s.formats)
	closed := s.closed
	s.mu.RUnlock()
	if !known {
		return ErrUnknownStream
	}
	if closed {
		return nil // consumer is gone, drop
	}
	s.units <- u
	return nil
}

// Units is the consumer side of the sink. The channel is closed by Close.
func (s *ChanSink) Units() <-chan Unit {
	return s.units
}

// Format returns the descriptor registered for id.
func (s *ChanSink) Format(id StreamID) (Format, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if int(id) < 0 || int(id) >= len(s.formats) {
		return Format{}, false
	}
	return s.formats[id], true
}

// Formats returns all registered stream descriptors.
func (s *ChanSink) Formats() []Format {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Format(nil), s.formats...)
}

// Close ends delivery; subsequent Sends are dropped. Close must only be
// called once stepping has stopped, never concurrently with Send.
func (s *ChanSink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.units)
	}
}
