// Package mpegts demuxes MPEG transport streams. It discovers programs
// through PAT/PMT, reassembles PES units with their 90 kHz timestamps,
// and reads the DVB service tables: the SDT for the service name and
// the present/following EIT for the program guide.
package mpegts

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/zsiec/facet/internal/demux"
	"github.com/zsiec/facet/internal/epg"
	"github.com/zsiec/facet/internal/probe"
	"github.com/zsiec/facet/internal/sink"
)

const (
	// burstPackets bounds the work of one Step. Seven packets fill a
	// typical 1316-byte UDP datagram, so one step is roughly one
	// network burst.
	burstPackets = 7

	// resyncWindow bounds how far Step scans for a sync byte before
	// declaring the stream unusable.
	resyncWindow = 64 << 10
)

// esStream is one elementary stream announced by a PMT.
type esStream struct {
	program    uint16
	streamType uint8
	id         sink.StreamID
	added      bool
}

// Demuxer is an MPEG-TS demuxer instance.
type Demuxer struct {
	demux.Base

	asm *assemblerSet

	programs []uint16          // PAT order
	pmtPIDs  map[uint16]uint16 // PMT PID -> program number
	streams  map[uint16]*esStream

	// group selects programs: -1 all, 0 the first announced, else a
	// program number.
	group int

	serviceNames map[uint16]string
	meta         demux.Meta
	guide        *epg.Table

	firstPTS time.Duration
	lastPTS  time.Duration
	hasPTS   bool

	nextTime    time.Duration
	hasNextTime bool

	readBuf []byte
	eof     bool
}

// New creates an MPEG-TS demuxer. Source and sink are both required.
func New(cfg demux.Config) (demux.Demuxer, error) {
	if cfg.Source == nil || cfg.Sink == nil {
		return nil, errors.New("mpegts: source and sink are required")
	}
	d := &Demuxer{
		Base:         demux.NewBase("mpegts", cfg),
		pmtPIDs:      make(map[uint16]uint16),
		streams:      make(map[uint16]*esStream),
		serviceNames: make(map[uint16]string),
		meta:         demux.Meta{},
		guide:        &epg.Table{},
		readBuf:      make([]byte, packetSize),
	}
	d.asm = newAssemblerSet(d.classify)
	return d, nil
}

// EPG returns the program guide fed from the stream's event tables.
// Safe for concurrent use.
func (d *Demuxer) EPG() *epg.Table {
	return d.guide
}

// Probe requires sync bytes at consecutive packet boundaries.
func Probe(peek []byte) bool {
	if len(peek) < packetSize+1 {
		return false
	}
	for off := 0; off < len(peek); off += packetSize {
		if peek[off] != syncByte {
			return false
		}
	}
	return true
}

// Register adds the MPEG-TS handler to a probe registry.
func Register(r *probe.Registry) {
	r.Register(probe.Handler{
		Name:       "mpegts",
		Extensions: []string{".ts", ".m2ts", ".mts"},
		PeekSize:   3*packetSize + 1,
		Probe:      Probe,
		New:        New,
	})
}

func (d *Demuxer) classify(pid uint16) pidClass {
	switch pid {
	case pidPAT, pidSDT, pidEIT:
		return classSection
	}
	if _, ok := d.pmtPIDs[pid]; ok {
		return classSection
	}
	if _, ok := d.streams[pid]; ok {
		return classPES
	}
	return classUnknown
}

// Step demuxes up to one burst of transport packets.
func (d *Demuxer) Step() error {
	if d.eof {
		return io.EOF
	}
	if d.hasNextTime && d.hasPTS && d.elapsed() >= d.nextTime {
		return nil // demuxed up to the advisory date, wait for the host
	}

	processed := 0
	for i := 0; i < burstPackets; i++ {
		err := d.stepPacket()
		if err == nil {
			processed++
			continue
		}
		if errors.Is(err, io.EOF) {
			d.eof = true
			d.flushPending()
			if processed > 0 {
				return nil // deliver this burst, report EOF next step
			}
			return io.EOF
		}
		if errors.Is(err, demux.ErrNotEnoughData) {
			if processed > 0 {
				return nil
			}
			return demux.ErrNotEnoughData
		}
		return err
	}
	return nil
}

// stepPacket consumes one transport packet and routes any unit it
// completes.
func (d *Demuxer) stepPacket() error {
	b, err := d.Source.Peek(packetSize)
	if err != nil {
		return err // io.EOF only with nothing buffered
	}
	if len(b) < packetSize {
		return demux.ErrNotEnoughData
	}
	if b[0] != syncByte {
		if err := d.resync(); err != nil {
			return err
		}
		if b, err = d.Source.Peek(packetSize); err != nil {
			return err
		}
		if len(b) < packetSize {
			return demux.ErrNotEnoughData
		}
	}

	if _, err := io.ReadFull(d.Source, d.readBuf); err != nil {
		return fmt.Errorf("mpegts: read packet: %w", err)
	}
	pkt, err := parsePacket(d.readBuf)
	if err != nil {
		return nil // skip the corrupt packet, resync on the next one
	}
	if unit := d.asm.add(pkt); unit != nil {
		d.handleUnit(unit)
	}
	return nil
}

// resync scans forward for a position with sync bytes one packet
// apart, discarding garbage in between.
func (d *Demuxer) resync() error {
	scanned := 0
	for scanned < resyncWindow {
		b, err := d.Source.Peek(2 * packetSize)
		if err != nil {
			return err
		}
		if len(b) < packetSize+1 {
			return demux.ErrNotEnoughData
		}
		for i := 0; i+packetSize < len(b); i++ {
			if b[i] == syncByte && b[i+packetSize] == syncByte {
				if i > 0 {
					d.Log.Debug("resynced", "skipped_bytes", scanned+i)
					d.discard(i)
				}
				return nil
			}
		}
		n := len(b) - packetSize
		d.discard(n)
		scanned += n
	}
	return fmt.Errorf("mpegts: no sync byte within %d bytes", resyncWindow)
}

func (d *Demuxer) discard(n int) {
	io.CopyN(io.Discard, d.Source, int64(n))
}

// flushPending routes the partially assembled units at end of stream.
func (d *Demuxer) flushPending() {
	for _, unit := range d.asm.drain() {
		d.handleUnit(unit)
	}
}

func (d *Demuxer) handleUnit(u *pidUnit) {
	switch d.classify(u.pid) {
	case classSection:
		d.handleSections(u.pid, u.payload)
	case classPES:
		d.handlePES(u)
	default:
		// A PES unit whose PMT arrives later is lost; the next unit on
		// the PID is picked up once the tables are known.
	}
}

func (d *Demuxer) handleSections(pid uint16, payload []byte) {
	err := forEachSection(payload, func(section []byte) {
		switch section[0] {
		case tablePAT:
			d.applyPAT(section)
		case tablePMT:
			d.applyPMT(section)
		case tableSDTActual:
			d.applySDT(section)
		case tableEITActualNow:
			d.applyEIT(section)
		}
	})
	if err != nil {
		d.Log.Debug("bad section unit", "pid", pid, "error", err)
	}
}

func (d *Demuxer) applyPAT(section []byte) {
	entries, err := parsePAT(section)
	if err != nil {
		return
	}
	for _, e := range entries {
		if _, known := d.pmtPIDs[e.pmtPID]; !known {
			d.programs = append(d.programs, e.program)
			d.Log.Debug("program announced", "program", e.program, "pmt_pid", e.pmtPID)
		}
		d.pmtPIDs[e.pmtPID] = e.program
	}
}

func (d *Demuxer) applyPMT(section []byte) {
	info, err := parsePMT(section)
	if err != nil {
		return
	}
	for _, es := range info.streams {
		s, known := d.streams[es.pid]
		if !known {
			s = &esStream{program: info.program, streamType: es.streamType}
			d.streams[es.pid] = s
		}
		// Tables repeat, so a stream excluded by the current group
		// selection gets registered on a later PMT once selected.
		if s.added || !d.accepts(s.program) {
			continue
		}
		typ, codec, ok := streamFormat(es.streamType)
		if !ok {
			continue
		}
		id, err := d.Sink.AddStream(sink.Format{
			Type:  typ,
			Codec: codec,
			Group: int(info.program),
		})
		if err != nil {
			d.Log.Warn("add stream failed", "pid", es.pid, "error", err)
			continue
		}
		s.id = id
		s.added = true
		d.Log.Debug("stream added",
			"pid", es.pid, "type", typ.String(), "codec", codec, "program", info.program)
	}
}

func (d *Demuxer) applySDT(section []byte) {
	services, err := parseSDT(section)
	if err != nil {
		return
	}
	for _, svc := range services {
		if svc.name == "" {
			continue
		}
		d.serviceNames[svc.serviceID] = svc.name
		if svc.serviceID == d.primaryProgram() {
			d.meta[demux.MetaTitle] = svc.name
			if svc.provider != "" {
				d.meta[demux.MetaPublisher] = svc.provider
			}
			d.guide.SetChannel(svc.name)
		}
	}
}

func (d *Demuxer) applyEIT(section []byte) {
	events, err := parseEIT(section)
	if err != nil {
		return
	}
	for _, ev := range events {
		if ev.serviceID != d.primaryProgram() || ev.name == "" {
			continue
		}
		entry := epg.Event{
			Name:        ev.name,
			Description: ev.text,
			Start:       ev.start,
			Duration:    ev.duration,
		}
		if ev.present {
			d.guide.SetCurrent(entry)
			d.meta[demux.MetaNowPlaying] = ev.name
		} else {
			d.guide.SetFollowing([]epg.Event{entry})
		}
	}
}

func (d *Demuxer) handlePES(u *pidUnit) {
	s := d.streams[u.pid]
	if s == nil || !s.added || !d.accepts(s.program) {
		return
	}
	if !isPESStart(u.payload) {
		return
	}
	pes, err := parsePES(u.payload)
	if err != nil {
		d.Log.Debug("bad PES unit", "pid", u.pid, "error", err)
		return
	}
	if len(pes.data) == 0 {
		return
	}

	if pes.pts != sink.NoTimestamp {
		if !d.hasPTS {
			d.firstPTS = pes.pts
			d.hasPTS = true
		}
		if pes.pts > d.lastPTS {
			d.lastPTS = pes.pts
		}
	}

	if err := d.Sink.Send(sink.Unit{
		Stream:   s.id,
		PTS:      pes.pts,
		DTS:      pes.dts,
		Keyframe: u.key,
		Data:     pes.data,
	}); err != nil {
		d.Log.Warn("send failed", "pid", u.pid, "error", err)
	}
}

// accepts reports whether the group selection includes program.
func (d *Demuxer) accepts(program uint16) bool {
	switch {
	case d.group < 0:
		return true
	case d.group == 0:
		return program == d.primaryProgram()
	default:
		return program == uint16(d.group)
	}
}

// primaryProgram is the service whose metadata and guide are exposed:
// the selected program, or the first announced one.
func (d *Demuxer) primaryProgram() uint16 {
	if d.group > 0 {
		return uint16(d.group)
	}
	if len(d.programs) > 0 {
		return d.programs[0]
	}
	return 0
}

// elapsed is the demuxed timespan derived from the PES timestamps.
func (d *Demuxer) elapsed() time.Duration {
	if !d.hasPTS {
		return 0
	}
	return d.lastPTS - d.firstPTS
}

// length estimates the total duration from the demuxed span and the
// byte position, assuming a roughly constant mux rate. Zero until
// enough of the stream has been seen.
func (d *Demuxer) length() time.Duration {
	pos := d.Source.Tell()
	size := d.Source.Size()
	el := d.elapsed()
	if el <= 0 || pos <= 0 || size <= 0 {
		return 0
	}
	return time.Duration(int64(el) * size / pos)
}

// Control implements the control protocol for transport streams.
func (d *Demuxer) Control(q demux.Query) error {
	switch q := q.(type) {
	case *demux.CanSeek:
		q.CanSeek = d.Source.CanSeek()
		return nil

	case *demux.GetPosition:
		size := d.Source.Size()
		if size > 0 {
			q.Position = float64(d.Source.Tell()) / float64(size)
		}
		return nil

	case *demux.SetPosition:
		return d.seekRatio(q.Position)

	case *demux.GetTime:
		q.Time = d.elapsed()
		return nil

	case *demux.SetTime:
		total := d.length()
		if total <= 0 {
			return demux.ErrUnsupported
		}
		if q.Time < 0 || q.Time > total {
			return demux.ErrInvalidArgument
		}
		return d.seekRatio(float64(q.Time) / float64(total))

	case *demux.GetLength:
		// Zero until a timestamp span exists; the query itself must not
		// fail.
		q.Length = d.length()
		return nil

	case *demux.SetGroup:
		if q.Group < -1 {
			return demux.ErrInvalidArgument
		}
		d.group = q.Group
		return nil

	case *demux.SetNextTime:
		if q.Time < 0 {
			return demux.ErrInvalidArgument
		}
		d.nextTime = q.Time
		d.hasNextTime = true
		return nil

	case *demux.GetMeta:
		if len(d.meta) == 0 {
			return demux.ErrUnsupported
		}
		q.Meta = d.meta.Clone()
		return nil

	case *demux.HasUnsupportedMeta:
		q.Has = false
		return nil

	case *demux.CanPause:
		q.CanPause = d.Source.CanSeek()
		return nil

	case *demux.SetPauseState:
		if !d.Source.CanSeek() {
			return demux.ErrUnsupported // live input cannot be held back
		}
		return nil

	case *demux.GetPTSDelay:
		q.Delay = demux.DefaultPTSDelay
		return nil

	case *demux.CanControlPace:
		q.CanControl = d.Source.CanSeek()
		return nil
	}

	// Titles, rate control, FPS, and attachments are not a transport
	// stream concept.
	return demux.ErrUnsupported
}

// seekRatio jumps to a byte position, aligned down to a packet
// boundary, and drops all partially assembled units.
func (d *Demuxer) seekRatio(ratio float64) error {
	if !d.Source.CanSeek() {
		return demux.ErrUnsupported
	}
	if ratio < 0 || ratio > 1 {
		return demux.ErrInvalidArgument
	}
	size := d.Source.Size()
	if size <= 0 {
		return demux.ErrUnsupported
	}
	target := int64(ratio * float64(size))
	target -= target % packetSize
	if err := d.Source.Seek(target); err != nil {
		return err
	}
	d.asm.reset()
	d.eof = false
	return nil
}

func (d *Demuxer) Close() error {
	return nil
}

// streamFormat maps a PMT stream type to the output format.
func streamFormat(st uint8) (sink.StreamType, string, bool) {
	switch st {
	case 0x01, 0x02:
		return sink.Video, "mpeg2video", true
	case 0x1B:
		return sink.Video, "h264", true
	case 0x24:
		return sink.Video, "hevc", true
	case 0x03, 0x04:
		return sink.Audio, "mp2", true
	case 0x0F:
		return sink.Audio, "aac", true
	case 0x11:
		return sink.Audio, "aac_latm", true
	case 0x81:
		return sink.Audio, "ac3", true
	case 0x87:
		return sink.Audio, "eac3", true
	case 0x06:
		return sink.Data, "private", true
	}
	return 0, "", false
}
