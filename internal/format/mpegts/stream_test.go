package mpegts

import (
	"encoding/binary"
	"time"
)

// Synthetic stream builders shared by the tests in this package.

func tsPacket(pid uint16, cc uint8, pusi bool, payload []byte) []byte {
	buf := make([]byte, packetSize)
	buf[0] = syncByte
	buf[1] = byte(pid>>8) & 0x1F
	buf[2] = byte(pid)
	buf[3] = 0x10 | cc&0x0F // payload only
	if pusi {
		buf[1] |= 0x40
	}
	copy(buf[4:], payload)
	return buf
}

// tsPacketRAI is tsPacket with a one-byte adaptation field carrying the
// random-access indicator.
func tsPacketRAI(pid uint16, cc uint8, pusi bool, payload []byte) []byte {
	buf := make([]byte, packetSize)
	buf[0] = syncByte
	buf[1] = byte(pid>>8) & 0x1F
	buf[2] = byte(pid)
	buf[3] = 0x30 | cc&0x0F // adaptation + payload
	if pusi {
		buf[1] |= 0x40
	}
	buf[4] = 1    // adaptation field length
	buf[5] = 0x40 // random_access_indicator
	copy(buf[6:], payload)
	return buf
}

// sectionPayload prepends the pointer field for embedding in a packet.
func sectionPayload(section []byte) []byte {
	return append([]byte{0x00}, section...)
}

func finishSection(data []byte) []byte {
	crc := sectionCRC(data)
	out := make([]byte, len(data)+4)
	copy(out, data)
	binary.BigEndian.PutUint32(out[len(data):], crc)
	return out
}

func patSection(tsID uint16, programs []struct{ num, pid uint16 }) []byte {
	sectionLength := 5 + len(programs)*4 + 4
	data := make([]byte, 8+len(programs)*4)
	data[0] = tablePAT
	data[1] = 0xB0 | byte(sectionLength>>8)&0x0F
	data[2] = byte(sectionLength)
	data[3] = byte(tsID >> 8)
	data[4] = byte(tsID)
	data[5] = 0xC1
	off := 8
	for _, p := range programs {
		data[off] = byte(p.num >> 8)
		data[off+1] = byte(p.num)
		data[off+2] = 0xE0 | byte(p.pid>>8)&0x1F
		data[off+3] = byte(p.pid)
		off += 4
	}
	return finishSection(data)
}

func pmtSection(program, pcrPID uint16, streams []struct {
	streamType uint8
	pid        uint16
}) []byte {
	sectionLength := 9 + len(streams)*5 + 4
	data := make([]byte, 12+len(streams)*5)
	data[0] = tablePMT
	data[1] = 0xB0 | byte(sectionLength>>8)&0x0F
	data[2] = byte(sectionLength)
	data[3] = byte(program >> 8)
	data[4] = byte(program)
	data[5] = 0xC1
	data[8] = 0xE0 | byte(pcrPID>>8)&0x1F
	data[9] = byte(pcrPID)
	data[10] = 0xF0
	off := 12
	for _, s := range streams {
		data[off] = s.streamType
		data[off+1] = 0xE0 | byte(s.pid>>8)&0x1F
		data[off+2] = byte(s.pid)
		data[off+3] = 0xF0
		off += 5
	}
	return finishSection(data)
}

func sdtSection(serviceID uint16, provider, name string) []byte {
	desc := []byte{descService, byte(3 + len(provider) + len(name)), 0x01, byte(len(provider))}
	desc = append(desc, provider...)
	desc = append(desc, byte(len(name)))
	desc = append(desc, name...)

	entry := []byte{byte(serviceID >> 8), byte(serviceID), 0xFC,
		0x80 | byte(len(desc)>>8)&0x0F, byte(len(desc))}
	entry = append(entry, desc...)

	sectionLength := 8 + len(entry) + 4
	data := make([]byte, 11)
	data[0] = tableSDTActual
	data[1] = 0xB0 | byte(sectionLength>>8)&0x0F
	data[2] = byte(sectionLength)
	data[3] = 0x00
	data[4] = 0x01 // transport stream id
	data[5] = 0xC1
	data[8] = 0x00
	data[9] = 0x01 // original network id
	data[10] = 0xFF
	data = append(data, entry...)
	return finishSection(data)
}

func encodeEventTime(t time.Time) []byte {
	mjdEpoch := time.Date(1858, time.November, 17, 0, 0, 0, 0, time.UTC)
	day := t.Truncate(24 * time.Hour)
	mjd := int(day.Sub(mjdEpoch).Hours() / 24)
	return []byte{
		byte(mjd >> 8), byte(mjd),
		bcdByte(t.Hour()), bcdByte(t.Minute()), bcdByte(t.Second()),
	}
}

func bcdByte(v int) byte {
	return byte(v/10)<<4 | byte(v%10)
}

type eitTestEvent struct {
	start    time.Time
	duration time.Duration
	name     string
	text     string
}

func eitSection(serviceID uint16, sectionNumber uint8, events []eitTestEvent) []byte {
	var loop []byte
	for i, ev := range events {
		desc := []byte{descShortEvent, byte(5 + len(ev.name) + len(ev.text))}
		desc = append(desc, "eng"...)
		desc = append(desc, byte(len(ev.name)))
		desc = append(desc, ev.name...)
		desc = append(desc, byte(len(ev.text)))
		desc = append(desc, ev.text...)

		entry := []byte{0x00, byte(i + 1)}
		entry = append(entry, encodeEventTime(ev.start)...)
		d := int(ev.duration / time.Second)
		entry = append(entry, bcdByte(d/3600), bcdByte(d/60%60), bcdByte(d%60))
		entry = append(entry, 0x90|byte(len(desc)>>8)&0x0F, byte(len(desc)))
		entry = append(entry, desc...)
		loop = append(loop, entry...)
	}

	sectionLength := 11 + len(loop) + 4
	data := make([]byte, 14)
	data[0] = tableEITActualNow
	data[1] = 0xB0 | byte(sectionLength>>8)&0x0F
	data[2] = byte(sectionLength)
	data[3] = byte(serviceID >> 8)
	data[4] = byte(serviceID)
	data[5] = 0xC1
	data[6] = sectionNumber
	data[7] = 0x01
	data[9] = 0x01  // transport stream id
	data[11] = 0x01 // original network id
	data[13] = tableEITActualNow
	data = append(data, loop...)
	return finishSection(data)
}

func encode90kHz(marker byte, value int64) []byte {
	return []byte{
		marker<<4 | byte(value>>29)&0x0E | 0x01,
		byte(value >> 22),
		byte(value>>14)&0xFE | 0x01,
		byte(value >> 7),
		byte(value<<1)&0xFE | 0x01,
	}
}

func pesBytes(streamID byte, pts, dts int64, hasPTS, hasDTS bool, data []byte) []byte {
	var opt []byte
	flags := byte(0)
	if hasPTS && hasDTS {
		flags = 3
		opt = append(opt, encode90kHz(0x03, pts)...)
		opt = append(opt, encode90kHz(0x01, dts)...)
	} else if hasPTS {
		flags = 2
		opt = append(opt, encode90kHz(0x02, pts)...)
	}

	length := 3 + len(opt) + len(data)
	if streamID == 0xE0 {
		length = 0 // video, unbounded
	}

	buf := []byte{0x00, 0x00, 0x01, streamID, byte(length >> 8), byte(length), 0x80, flags << 6, byte(len(opt))}
	buf = append(buf, opt...)
	return append(buf, data...)
}
