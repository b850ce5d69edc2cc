package mpegts

import (
	"fmt"
	"time"

	"github.com/zsiec/facet/internal/sink"
)

// pesUnit is one reassembled packetized elementary stream unit with
// its timestamps converted from the 90 kHz clock.
type pesUnit struct {
	streamID uint8
	pts      time.Duration
	dts      time.Duration
	data     []byte
}

func isPESStart(b []byte) bool {
	return len(b) >= 3 && b[0] == 0x00 && b[1] == 0x00 && b[2] == 0x01
}

func parsePES(payload []byte) (pesUnit, error) {
	u := pesUnit{pts: sink.NoTimestamp, dts: sink.NoTimestamp}
	if len(payload) < 6 {
		return u, fmt.Errorf("mpegts: PES unit too short (%d bytes)", len(payload))
	}
	if !isPESStart(payload) {
		return u, fmt.Errorf("mpegts: missing PES start code")
	}
	u.streamID = payload[3]
	length := int(payload[4])<<8 | int(payload[5])

	if !hasOptionalPESHeader(u.streamID) {
		u.data = boundedPES(payload, 6, length)
		return u, nil
	}
	if len(payload) < 9 {
		return u, fmt.Errorf("mpegts: PES header truncated")
	}

	flags := payload[7] >> 6 & 0x03
	headerLen := int(payload[8])
	dataStart := 9 + headerLen
	if dataStart > len(payload) {
		dataStart = len(payload)
	}

	switch flags {
	case 2: // PTS only
		if len(payload) >= 14 {
			u.pts = clock90kHz(payload[9:14])
		}
	case 3: // PTS and DTS
		if len(payload) >= 19 {
			u.pts = clock90kHz(payload[9:14])
			u.dts = clock90kHz(payload[14:19])
		}
	}

	u.data = boundedPES(payload, dataStart, length)
	return u, nil
}

// boundedPES clips the data slice to the declared PES length; a zero
// length means unbounded, which video streams use.
func boundedPES(payload []byte, dataStart, length int) []byte {
	if length > 0 && 6+length <= len(payload) && 6+length > dataStart {
		return payload[dataStart : 6+length]
	}
	return payload[dataStart:]
}

// hasOptionalPESHeader excludes the stream IDs that carry raw bytes
// right after the length field: padding, private_stream_2, ECM, EMM,
// DSMCC, H.222.1 type E, and the program stream directory.
func hasOptionalPESHeader(streamID uint8) bool {
	switch streamID {
	case 0xBE, 0xBF, 0xF0, 0xF1, 0xF2, 0xF8, 0xFF:
		return false
	}
	return true
}

// clock90kHz reads a 33-bit timestamp from five marker-interleaved
// bytes and converts it to a duration.
func clock90kHz(b []byte) time.Duration {
	ticks := int64(b[0]>>1&0x07)<<30 |
		int64(b[1])<<22 |
		int64(b[2]>>1&0x7F)<<15 |
		int64(b[3])<<7 |
		int64(b[4]>>1&0x7F)
	return time.Duration(ticks) * time.Second / 90000
}
