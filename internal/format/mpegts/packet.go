package mpegts

import "fmt"

const (
	packetSize = 188
	syncByte   = 0x47
)

// packet is one parsed 188-byte transport packet. The payload slice
// aliases the read buffer of the caller, so assemblers copy before
// holding on to it.
type packet struct {
	pid           uint16
	cc            uint8
	unitStart     bool
	hasPayload    bool
	transportErr  bool
	discontinuity bool
	randomAccess  bool
	payload       []byte
}

// parsePacket decodes a raw 188-byte transport packet.
func parsePacket(buf []byte) (packet, error) {
	var p packet
	if len(buf) != packetSize {
		return p, fmt.Errorf("mpegts: packet size %d, want %d", len(buf), packetSize)
	}
	if buf[0] != syncByte {
		return p, fmt.Errorf("mpegts: sync byte 0x%02X", buf[0])
	}

	p.transportErr = buf[1]&0x80 != 0
	p.unitStart = buf[1]&0x40 != 0
	p.pid = uint16(buf[1]&0x1F)<<8 | uint16(buf[2])
	hasAF := buf[3]&0x20 != 0
	p.hasPayload = buf[3]&0x10 != 0
	p.cc = buf[3] & 0x0F

	off := 4
	if hasAF {
		if off >= packetSize {
			return p, nil
		}
		afLen := int(buf[off])
		if afLen > 0 && off+1 < packetSize {
			p.discontinuity = buf[off+1]&0x80 != 0
			p.randomAccess = buf[off+1]&0x40 != 0
		}
		off += 1 + afLen
		if off > packetSize {
			off = packetSize
		}
	}

	if p.hasPayload && off < packetSize {
		p.payload = buf[off:]
	}
	return p, nil
}
