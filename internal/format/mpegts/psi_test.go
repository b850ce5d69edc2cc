package mpegts

import (
	"testing"
	"time"
)

func TestParsePAT(t *testing.T) {
	t.Parallel()
	section := patSection(1, []struct{ num, pid uint16 }{{1, 0x1000}, {2, 0x1010}})
	if err := checkSectionCRC(section); err != nil {
		t.Fatal(err)
	}

	entries, err := parsePAT(section)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0].program != 1 || entries[0].pmtPID != 0x1000 {
		t.Errorf("entry 0 = %+v", entries[0])
	}
	if entries[1].program != 2 || entries[1].pmtPID != 0x1010 {
		t.Errorf("entry 1 = %+v", entries[1])
	}
}

func TestParsePAT_SkipsNetworkPID(t *testing.T) {
	t.Parallel()
	section := patSection(1, []struct{ num, pid uint16 }{{0, 0x0010}, {1, 0x1000}})
	entries, err := parsePAT(section)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].program != 1 {
		t.Fatalf("entries = %+v, want only program 1", entries)
	}
}

func TestParsePMT(t *testing.T) {
	t.Parallel()
	section := pmtSection(1, 0x100, []struct {
		streamType uint8
		pid        uint16
	}{
		{0x1B, 0x100},
		{0x0F, 0x101},
	})

	info, err := parsePMT(section)
	if err != nil {
		t.Fatal(err)
	}
	if info.program != 1 {
		t.Errorf("program = %d, want 1", info.program)
	}
	if info.pcrPID != 0x100 {
		t.Errorf("PCR PID = 0x%X, want 0x100", info.pcrPID)
	}
	if len(info.streams) != 2 {
		t.Fatalf("streams = %d, want 2", len(info.streams))
	}
	if info.streams[0].streamType != 0x1B || info.streams[0].pid != 0x100 {
		t.Errorf("stream 0 = %+v", info.streams[0])
	}
}

func TestSectionCRC_RejectsCorruption(t *testing.T) {
	t.Parallel()
	section := patSection(1, []struct{ num, pid uint16 }{{1, 0x1000}})
	section[8] ^= 0xFF
	if err := checkSectionCRC(section); err == nil {
		t.Fatal("corrupted section passed CRC")
	}
}

func TestParseSDT(t *testing.T) {
	t.Parallel()
	section := sdtSection(1, "Example Networks", "News 24")

	services, err := parseSDT(section)
	if err != nil {
		t.Fatal(err)
	}
	if len(services) != 1 {
		t.Fatalf("services = %d, want 1", len(services))
	}
	if services[0].serviceID != 1 {
		t.Errorf("service id = %d, want 1", services[0].serviceID)
	}
	if services[0].name != "News 24" {
		t.Errorf("name = %q, want %q", services[0].name, "News 24")
	}
	if services[0].provider != "Example Networks" {
		t.Errorf("provider = %q", services[0].provider)
	}
}

func TestParseEIT(t *testing.T) {
	t.Parallel()
	start := time.Date(2026, time.August, 25, 20, 15, 0, 0, time.UTC)
	section := eitSection(1, 0, []eitTestEvent{{
		start:    start,
		duration: 45 * time.Minute,
		name:     "Evening News",
		text:     "Headlines and weather.",
	}})

	events, err := parseEIT(section)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	ev := events[0]
	if ev.serviceID != 1 {
		t.Errorf("service id = %d, want 1", ev.serviceID)
	}
	if !ev.present {
		t.Error("section 0 must mark the running event")
	}
	if !ev.start.Equal(start) {
		t.Errorf("start = %v, want %v", ev.start, start)
	}
	if ev.duration != 45*time.Minute {
		t.Errorf("duration = %v, want 45m", ev.duration)
	}
	if ev.name != "Evening News" {
		t.Errorf("name = %q", ev.name)
	}
	if ev.text != "Headlines and weather." {
		t.Errorf("text = %q", ev.text)
	}
}

func TestParseEIT_FollowingSection(t *testing.T) {
	t.Parallel()
	section := eitSection(1, 1, []eitTestEvent{{
		start:    time.Date(2026, time.August, 25, 21, 0, 0, 0, time.UTC),
		duration: time.Hour,
		name:     "Late Film",
	}})

	events, err := parseEIT(section)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	if events[0].present {
		t.Error("section 1 must mark a following event")
	}
}

func TestDecodeStartTime_Undefined(t *testing.T) {
	t.Parallel()
	when := decodeStartTime([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF})
	if !when.IsZero() {
		t.Errorf("undefined start time decoded as %v", when)
	}
}

func TestDVBText_StripsEncodingMarker(t *testing.T) {
	t.Parallel()
	got := dvbText(append([]byte{0x15}, "UTF-8 name"...))
	if got != "UTF-8 name" {
		t.Errorf("got %q", got)
	}
}
