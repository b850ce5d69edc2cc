package mpegts

import "testing"

func TestParsePacket(t *testing.T) {
	t.Parallel()
	payload := []byte{0x01, 0x02, 0x03}
	p, err := parsePacket(tsPacket(0x100, 5, true, payload))
	if err != nil {
		t.Fatal(err)
	}
	if p.pid != 0x100 {
		t.Errorf("pid = 0x%X, want 0x100", p.pid)
	}
	if p.cc != 5 {
		t.Errorf("cc = %d, want 5", p.cc)
	}
	if !p.unitStart {
		t.Error("unit start not set")
	}
	if len(p.payload) != packetSize-4 {
		t.Errorf("payload length = %d, want %d", len(p.payload), packetSize-4)
	}
	if p.payload[0] != 0x01 || p.payload[2] != 0x03 {
		t.Error("payload bytes mangled")
	}
}

func TestParsePacket_RandomAccess(t *testing.T) {
	t.Parallel()
	p, err := parsePacket(tsPacketRAI(0x100, 0, true, []byte{0xAA}))
	if err != nil {
		t.Fatal(err)
	}
	if !p.randomAccess {
		t.Error("random access indicator not parsed")
	}
	if len(p.payload) != packetSize-6 {
		t.Errorf("payload length = %d, want %d", len(p.payload), packetSize-6)
	}
}

func TestParsePacket_BadSync(t *testing.T) {
	t.Parallel()
	buf := tsPacket(0x100, 0, false, nil)
	buf[0] = 0x00
	if _, err := parsePacket(buf); err == nil {
		t.Fatal("expected error for bad sync byte")
	}
}

func TestParsePacket_WrongSize(t *testing.T) {
	t.Parallel()
	if _, err := parsePacket(make([]byte, 100)); err == nil {
		t.Fatal("expected error for short buffer")
	}
}

func TestAssembler_FlushOnUnitStart(t *testing.T) {
	t.Parallel()
	class := func(uint16) pidClass { return classPES }
	a := newAssembler(0x100, class)

	p1, _ := parsePacket(tsPacket(0x100, 0, true, []byte{0x01}))
	p2, _ := parsePacket(tsPacket(0x100, 1, false, []byte{0x02}))
	p3, _ := parsePacket(tsPacket(0x100, 2, true, []byte{0x03}))

	if u := a.add(p1); u != nil {
		t.Fatal("unexpected flush on first packet")
	}
	if u := a.add(p2); u != nil {
		t.Fatal("unexpected flush on continuation")
	}
	u := a.add(p3)
	if u == nil {
		t.Fatal("expected flush when the next unit starts")
	}
	if len(u.payload) != 2*(packetSize-4) {
		t.Errorf("unit length = %d, want %d", len(u.payload), 2*(packetSize-4))
	}
}

func TestAssembler_ContinuityBreakDropsUnit(t *testing.T) {
	t.Parallel()
	class := func(uint16) pidClass { return classPES }
	a := newAssembler(0x100, class)

	p1, _ := parsePacket(tsPacket(0x100, 0, true, []byte{0x01}))
	gap, _ := parsePacket(tsPacket(0x100, 7, false, []byte{0x02})) // cc jump
	next, _ := parsePacket(tsPacket(0x100, 8, true, []byte{0x03}))

	a.add(p1)
	a.add(gap)
	u := a.add(next)
	if u != nil {
		t.Fatal("corrupted unit must not be delivered")
	}
}

func TestAssembler_DuplicatePacketIgnored(t *testing.T) {
	t.Parallel()
	class := func(uint16) pidClass { return classPES }
	a := newAssembler(0x100, class)

	p1, _ := parsePacket(tsPacket(0x100, 0, true, []byte{0x01}))
	dup, _ := parsePacket(tsPacket(0x100, 0, true, []byte{0x01}))
	next, _ := parsePacket(tsPacket(0x100, 1, true, []byte{0x02}))

	a.add(p1)
	a.add(dup)
	u := a.add(next)
	if u == nil {
		t.Fatal("expected flush")
	}
	if len(u.payload) != packetSize-4 {
		t.Errorf("duplicate packet was appended, length = %d", len(u.payload))
	}
}

func TestAssembler_SectionCompletesWithoutNextUnit(t *testing.T) {
	t.Parallel()
	class := func(uint16) pidClass { return classSection }
	a := newAssembler(pidPAT, class)

	section := patSection(1, []struct{ num, pid uint16 }{{1, 0x1000}})
	p, _ := parsePacket(tsPacket(pidPAT, 0, true, sectionPayload(section)))

	u := a.add(p)
	if u == nil {
		t.Fatal("padded section should flush immediately")
	}
}
