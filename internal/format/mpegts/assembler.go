package mpegts

import "sort"

// Well-known PIDs.
const (
	pidPAT = 0x0000
	pidSDT = 0x0011
	pidEIT = 0x0012
)

// pidClass tells the assembler how a PID's payload is framed.
type pidClass int

const (
	classUnknown pidClass = iota
	classSection // PSI/SI: pointer field plus length-delimited sections
	classPES     // packetized elementary stream
)

// pidUnit is one completed payload unit for a PID. key carries the
// random-access indicator of the packet that started the unit.
type pidUnit struct {
	pid     uint16
	key     bool
	payload []byte
}

// assembler reassembles one PID's payload units across transport
// packets, enforcing the continuity counter.
type assembler struct {
	pid     uint16
	class   func(uint16) pidClass
	buf     []byte
	key     bool
	lastCC  int // -1 before the first packet
	started bool
}

func newAssembler(pid uint16, class func(uint16) pidClass) *assembler {
	return &assembler{pid: pid, class: class, lastCC: -1}
}

// add feeds one packet and returns a completed unit, or nil. A unit
// completes when the next unit starts on this PID, or, for section
// PIDs, as soon as the buffered sections are whole.
func (a *assembler) add(p packet) *pidUnit {
	if p.transportErr {
		a.reset()
		return nil
	}
	if !p.hasPayload {
		return nil
	}

	if a.lastCC >= 0 && !p.discontinuity {
		expected := uint8(a.lastCC+1) & 0x0F
		if p.cc != expected {
			if int(p.cc) == a.lastCC {
				return nil // retransmitted packet
			}
			a.reset() // unsignaled continuity break, unit is unusable
		}
	}
	a.lastCC = int(p.cc)

	var done *pidUnit
	if p.unitStart {
		if a.started && len(a.buf) > 0 {
			done = &pidUnit{pid: a.pid, key: a.key, payload: a.buf}
			a.buf = nil
		}
		a.started = true
		a.key = p.randomAccess
	}
	if !a.started {
		return done // payload before any unit start, nothing to anchor it to
	}
	a.buf = append(a.buf, p.payload...)

	if done == nil && a.class(a.pid) == classSection && sectionsComplete(a.buf) {
		done = &pidUnit{pid: a.pid, key: a.key, payload: a.buf}
		a.buf = nil
		a.started = false
	}
	return done
}

func (a *assembler) reset() {
	a.buf = nil
	a.started = false
}

// take returns the partially assembled unit at end of stream.
func (a *assembler) take() *pidUnit {
	if len(a.buf) == 0 {
		return nil
	}
	u := &pidUnit{pid: a.pid, key: a.key, payload: a.buf}
	a.buf = nil
	a.started = false
	return u
}

// sectionsComplete reports whether buf holds only whole PSI sections,
// so a section PID can flush without waiting for the next unit start.
func sectionsComplete(buf []byte) bool {
	if len(buf) < 1 {
		return false
	}
	off := 1 + int(buf[0]) // pointer field
	if off >= len(buf) {
		return false
	}
	for off < len(buf) {
		if buf[off] == 0xFF {
			return true // stuffing, everything before it was whole
		}
		if off+3 > len(buf) {
			return false
		}
		if buf[off+1]&0x80 == 0 {
			return true // zero padding, not a section header
		}
		length := int(buf[off+1]&0x0F)<<8 | int(buf[off+2])
		if off+3+length > len(buf) {
			return false
		}
		off += 3 + length
	}
	return true
}

// assemblerSet routes packets to per-PID assemblers.
type assemblerSet struct {
	byPID map[uint16]*assembler
	class func(uint16) pidClass
}

func newAssemblerSet(class func(uint16) pidClass) *assemblerSet {
	return &assemblerSet{byPID: make(map[uint16]*assembler), class: class}
}

func (s *assemblerSet) add(p packet) *pidUnit {
	a, ok := s.byPID[p.pid]
	if !ok {
		a = newAssembler(p.pid, s.class)
		s.byPID[p.pid] = a
	}
	return a.add(p)
}

// reset discards all pending units and continuity state, used after a
// seek lands on an unrelated byte position.
func (s *assemblerSet) reset() {
	for _, a := range s.byPID {
		a.reset()
		a.lastCC = -1
	}
}

// drain flushes all pending units in ascending PID order, so the PAT
// on PID 0 is seen before any PMT it references.
func (s *assemblerSet) drain() []*pidUnit {
	pids := make([]int, 0, len(s.byPID))
	for pid := range s.byPID {
		pids = append(pids, int(pid))
	}
	sort.Ints(pids)

	var units []*pidUnit
	for _, pid := range pids {
		if u := s.byPID[uint16(pid)].take(); u != nil {
			units = append(units, u)
		}
	}
	return units
}
