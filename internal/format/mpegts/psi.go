package mpegts

import (
	"fmt"
	"time"
)

// Table IDs handled here. PAT and PMT are MPEG-2 PSI; SDT and EIT are
// DVB SI tables carrying the service name and the program guide.
const (
	tablePAT          = 0x00
	tablePMT          = 0x02
	tableSDTActual    = 0x42
	tableEITActualNow = 0x4E // present/following events of the actual stream
)

// Descriptor tags (EN 300 468).
const (
	descService    = 0x48
	descShortEvent = 0x4D
)

// forEachSection walks the length-delimited sections in an assembled
// PSI unit and calls fn on each one that passes the CRC. Sections with
// a bad CRC are skipped, not fatal; the table repeats.
func forEachSection(unit []byte, fn func(section []byte)) error {
	if len(unit) < 1 {
		return fmt.Errorf("mpegts: empty section unit")
	}
	off := 1 + int(unit[0])
	if off >= len(unit) {
		return fmt.Errorf("mpegts: section pointer out of range")
	}
	for off < len(unit) {
		if unit[off] == 0xFF {
			break // stuffing
		}
		if off+3 > len(unit) {
			break
		}
		if unit[off+1]&0x80 == 0 {
			break // padding, not a section header
		}
		length := int(unit[off+1]&0x0F)<<8 | int(unit[off+2])
		end := off + 3 + length
		if end > len(unit) {
			break
		}
		section := unit[off:end]
		if checkSectionCRC(section) == nil {
			fn(section)
		}
		off = end
	}
	return nil
}

type patEntry struct {
	program uint16
	pmtPID  uint16
}

func parsePAT(section []byte) ([]patEntry, error) {
	if len(section) < 12 || section[0] != tablePAT {
		return nil, fmt.Errorf("mpegts: malformed PAT section")
	}
	var entries []patEntry
	for off := 8; off+4 <= len(section)-4; off += 4 {
		program := uint16(section[off])<<8 | uint16(section[off+1])
		pid := uint16(section[off+2]&0x1F)<<8 | uint16(section[off+3])
		if program == 0 {
			continue // network PID
		}
		entries = append(entries, patEntry{program: program, pmtPID: pid})
	}
	return entries, nil
}

type pmtStream struct {
	pid        uint16
	streamType uint8
}

type pmtInfo struct {
	program uint16
	pcrPID  uint16
	streams []pmtStream
}

func parsePMT(section []byte) (pmtInfo, error) {
	var info pmtInfo
	if len(section) < 16 || section[0] != tablePMT {
		return info, fmt.Errorf("mpegts: malformed PMT section")
	}
	info.program = uint16(section[3])<<8 | uint16(section[4])
	info.pcrPID = uint16(section[8]&0x1F)<<8 | uint16(section[9])

	progInfoLen := int(section[10]&0x0F)<<8 | int(section[11])
	off := 12 + progInfoLen
	end := len(section) - 4
	for off+5 <= end {
		esInfoLen := int(section[off+3]&0x0F)<<8 | int(section[off+4])
		info.streams = append(info.streams, pmtStream{
			pid:        uint16(section[off+1]&0x1F)<<8 | uint16(section[off+2]),
			streamType: section[off],
		})
		off += 5 + esInfoLen
	}
	return info, nil
}

type sdtService struct {
	serviceID uint16
	provider  string
	name      string
}

// parseSDT extracts service names from a service description table
// section for the actual transport stream.
func parseSDT(section []byte) ([]sdtService, error) {
	if len(section) < 15 || section[0] != tableSDTActual {
		return nil, fmt.Errorf("mpegts: malformed SDT section")
	}
	var services []sdtService
	off := 11
	end := len(section) - 4
	for off+5 <= end {
		svc := sdtService{serviceID: uint16(section[off])<<8 | uint16(section[off+1])}
		loopLen := int(section[off+3]&0x0F)<<8 | int(section[off+4])
		dEnd := off + 5 + loopLen
		if dEnd > end {
			break
		}
		for d := off + 5; d+2 <= dEnd; {
			tag, dl := section[d], int(section[d+1])
			body := section[d+2:]
			if dl > len(body) {
				break
			}
			body = body[:dl]
			if tag == descService && len(body) >= 2 {
				provLen := int(body[1])
				if 2+provLen < len(body) {
					svc.provider = dvbText(body[2 : 2+provLen])
					nameLen := int(body[2+provLen])
					if 3+provLen+nameLen <= len(body) {
						svc.name = dvbText(body[3+provLen : 3+provLen+nameLen])
					}
				}
			}
			d += 2 + dl
		}
		services = append(services, svc)
		off = dEnd
	}
	return services, nil
}

type eitEvent struct {
	serviceID uint16
	present   bool // section 0 carries the running event, section 1 the next
	start     time.Time
	duration  time.Duration
	name      string
	text      string
}

// parseEIT extracts the present/following events of one service from an
// event information table section.
func parseEIT(section []byte) ([]eitEvent, error) {
	if len(section) < 18 || section[0] != tableEITActualNow {
		return nil, fmt.Errorf("mpegts: malformed EIT section")
	}
	serviceID := uint16(section[3])<<8 | uint16(section[4])
	present := section[6] == 0

	var events []eitEvent
	off := 14
	end := len(section) - 4
	for off+12 <= end {
		ev := eitEvent{
			serviceID: serviceID,
			present:   present,
			start:     decodeStartTime(section[off+2 : off+7]),
			duration:  decodeBCDDuration(section[off+7 : off+10]),
		}
		loopLen := int(section[off+10]&0x0F)<<8 | int(section[off+11])
		dEnd := off + 12 + loopLen
		if dEnd > end {
			break
		}
		for d := off + 12; d+2 <= dEnd; {
			tag, dl := section[d], int(section[d+1])
			body := section[d+2:]
			if dl > len(body) {
				break
			}
			body = body[:dl]
			if tag == descShortEvent && len(body) >= 4 {
				nameLen := int(body[3])
				if 4+nameLen <= len(body) {
					ev.name = dvbText(body[4 : 4+nameLen])
					if 4+nameLen < len(body) {
						textLen := int(body[4+nameLen])
						if 5+nameLen+textLen <= len(body) {
							ev.text = dvbText(body[5+nameLen : 5+nameLen+textLen])
						}
					}
				}
			}
			d += 2 + dl
		}
		events = append(events, ev)
		off = dEnd
	}
	return events, nil
}

// decodeStartTime converts the 40-bit DVB start time, 16-bit modified
// Julian date followed by six BCD digits of UTC time.
func decodeStartTime(b []byte) time.Time {
	mjd := int(b[0])<<8 | int(b[1])
	if mjd == 0xFFFF {
		return time.Time{} // undefined start time
	}

	yp := int(float64(mjd-15078) / 365.25)
	mp := int(float64(mjd-14956-int(float64(yp)*365.25)) / 30.6001)
	day := mjd - 14956 - int(float64(yp)*365.25) - int(float64(mp)*30.6001)
	k := 0
	if mp == 14 || mp == 15 {
		k = 1
	}
	year := yp + k + 1900
	month := mp - 1 - k*12

	return time.Date(year, time.Month(month), day,
		bcd(b[2]), bcd(b[3]), bcd(b[4]), 0, time.UTC)
}

func decodeBCDDuration(b []byte) time.Duration {
	return time.Duration(bcd(b[0]))*time.Hour +
		time.Duration(bcd(b[1]))*time.Minute +
		time.Duration(bcd(b[2]))*time.Second
}

func bcd(b byte) int {
	return int(b>>4)*10 + int(b&0x0F)
}

// dvbText decodes an annex-A string, dropping the character table
// marker and control codes. Latin tables pass through as-is.
func dvbText(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	if b[0] < 0x20 {
		b = b[1:] // encoding selector byte
	}
	out := make([]byte, 0, len(b))
	for _, c := range b {
		if c >= 0x20 && c < 0x7F || c >= 0xA0 {
			out = append(out, c)
		}
	}
	return string(out)
}
