package mpegts

import "fmt"

// MPEG-2 CRC32, polynomial 0x04C11DB7, no reflection, initial 0xFFFFFFFF.
// Appended to every PSI section; running the CRC over section plus
// trailer yields zero for a valid section.
var sectionCRCTable = func() (t [256]uint32) {
	for i := range t {
		crc := uint32(i) << 24
		for j := 0; j < 8; j++ {
			if crc&0x80000000 != 0 {
				crc = crc<<1 ^ 0x04C11DB7
			} else {
				crc <<= 1
			}
		}
		t[i] = crc
	}
	return
}()

func sectionCRC(data []byte) uint32 {
	crc := uint32(0xFFFFFFFF)
	for _, b := range data {
		crc = crc<<8 ^ sectionCRCTable[byte(crc>>24)^b]
	}
	return crc
}

func checkSectionCRC(section []byte) error {
	if len(section) < 4 {
		return fmt.Errorf("mpegts: section too short for CRC")
	}
	if sectionCRC(section) != 0 {
		return fmt.Errorf("mpegts: section CRC mismatch")
	}
	return nil
}
