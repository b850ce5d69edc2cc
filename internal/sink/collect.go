package sink

// Collector retains everything pushed into it, for tests and tools.
type Collector struct {
	Streams []Format
	Sent    []Unit
}

func (c *Collector) AddStream(f Format) (StreamID, error) {
	c.Streams = append(c.Streams, f)
	return StreamID(len(c.Streams) - 1), nil
}

func (c *Collector) Send(u Unit) error {
	if int(u.Stream) < 0 || int(u.Stream) >= len(c.Streams) {
		return ErrUnknownStream
	}
	c.Sent = append(c.Sent, u)
	return nil
}

// UnitsFor returns the units sent for one stream.
func (c *Collector) UnitsFor(id StreamID) []Unit {
	var out []Unit
	for _, u := range c.Sent {
		if u.Stream == id {
			out = append(out, u)
		}
	}
	return out
}

// Discard counts units without retaining them.
type Discard struct {
	StreamCount int
	UnitCount   int64
	ByteCount   int64
}

func (d *Discard) AddStream(Format) (StreamID, error) {
	d.StreamCount++
	return StreamID(d.StreamCount - 1), nil
}

func (d *Discard) Send(u Unit) error {
	if int(u.Stream) < 0 || int(u.Stream) >= d.StreamCount {
		return ErrUnknownStream
	}
	d.UnitCount++
	d.ByteCount += int64(len(u.Data))
	return nil
}
