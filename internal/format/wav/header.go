package wav

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"time"

	"github.com/zsiec/facet/internal/demux"
)

// parseHeader walks the RIFF chunk list up to the data chunk. It is
// resumable: nothing is consumed from the source until a full chunk is
// available, so a starved live source surfaces ErrNotEnoughData and the
// next Step picks up at the same chunk boundary.
func (d *Demuxer) parseHeader() error {
	if d.skipLeft > 0 {
		if err := d.finishSkip(); err != nil {
			return err
		}
	}

	if !d.riffDone {
		b, err := d.need(12)
		if err != nil {
			return err
		}
		if string(b[0:4]) != "RIFF" || string(b[8:12]) != "WAVE" {
			return fmt.Errorf("wav: not a RIFF/WAVE stream")
		}
		if err := d.discard(12); err != nil {
			return err
		}
		d.riffDone = true
	}

	for {
		hb, err := d.need(8)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return fmt.Errorf("wav: no data chunk before end of stream")
			}
			return err
		}
		id := string(hb[0:4])
		size := int64(binary.LittleEndian.Uint32(hb[4:8]))
		pad := size & 1

		switch id {
		case "fmt ":
			if err := d.consumeChunk(size, pad, d.parseFmt); err != nil {
				return err
			}

		case "cue ":
			if err := d.consumeChunk(size, pad, d.parseCue); err != nil {
				return err
			}

		case "LIST":
			if err := d.consumeChunk(size, pad, d.parseList); err != nil {
				return err
			}

		case "data":
			if d.byteRate == 0 {
				return fmt.Errorf("wav: data chunk before fmt chunk")
			}
			if err := d.discard(8); err != nil {
				return err
			}
			d.dataStart = d.Source.Tell()
			if size > 0 && size < 0xFFFFFFFF {
				d.dataEnd = d.dataStart + size
			}
			d.scanTrailing(pad)
			d.buildTitle()
			return nil

		default:
			if err := d.discard(8); err != nil {
				return err
			}
			d.skipLeft = size + pad
			if err := d.finishSkip(); err != nil {
				return err
			}
		}
	}
}

// consumeChunk buffers one whole chunk (header included) through peek and
// hands the body to parse. Oversized chunks are skipped instead.
func (d *Demuxer) consumeChunk(size, pad int64, parse func([]byte) error) error {
	total := 8 + size + pad
	if total > maxInlineChunk {
		if err := d.discard(8); err != nil {
			return err
		}
		d.skipLeft = size + pad
		return d.finishSkip()
	}
	b, err := d.need(int(total))
	if err != nil {
		return err
	}
	if err := parse(b[8 : 8+size]); err != nil {
		return err
	}
	return d.discard(int(total))
}

// need peeks exactly n bytes without consuming. A short peek on a live
// source maps to ErrNotEnoughData so the host retries.
func (d *Demuxer) need(n int) ([]byte, error) {
	b, err := d.Source.Peek(n)
	if err != nil {
		return nil, err
	}
	if len(b) < n {
		return nil, demux.ErrNotEnoughData
	}
	return b, nil
}

func (d *Demuxer) discard(n int) error {
	_, err := io.CopyN(io.Discard, d.Source, int64(n))
	return err
}

func (d *Demuxer) finishSkip() error {
	n, err := io.CopyN(io.Discard, d.Source, d.skipLeft)
	d.skipLeft -= n
	if d.skipLeft == 0 {
		return nil
	}
	if errors.Is(err, io.EOF) {
		return fmt.Errorf("wav: truncated chunk")
	}
	return err
}

func (d *Demuxer) parseFmt(b []byte) error {
	if len(b) < 16 {
		return fmt.Errorf("wav: fmt chunk too short (%d bytes)", len(b))
	}
	format := binary.LittleEndian.Uint16(b[0:2])
	if format != audioFormatPCM {
		return fmt.Errorf("wav: unsupported audio format 0x%04X", format)
	}
	d.channels = int(binary.LittleEndian.Uint16(b[2:4]))
	d.sampleRate = int(binary.LittleEndian.Uint32(b[4:8]))
	d.byteRate = int64(binary.LittleEndian.Uint32(b[8:12]))
	d.blockAlign = int(binary.LittleEndian.Uint16(b[12:14]))
	d.bitsPerSample = int(binary.LittleEndian.Uint16(b[14:16]))

	if d.channels == 0 || d.sampleRate == 0 || d.blockAlign == 0 || d.byteRate == 0 {
		return fmt.Errorf("wav: invalid fmt chunk")
	}
	return nil
}

// parseCue collects marker sample offsets; they become seekpoints once
// the data chunk position is known.
func (d *Demuxer) parseCue(b []byte) error {
	if len(b) < 4 {
		return nil
	}
	count := int(binary.LittleEndian.Uint32(b[0:4]))
	for i := 0; i < count; i++ {
		off := 4 + i*24
		if off+24 > len(b) {
			break
		}
		// Bytes 20..24 of a cue point hold the sample offset.
		d.cueSamples = append(d.cueSamples, binary.LittleEndian.Uint32(b[off+20:off+24]))
	}
	return nil
}

// parseList extracts the INFO metadata strings.
func (d *Demuxer) parseList(b []byte) error {
	if len(b) < 4 || string(b[0:4]) != "INFO" {
		return nil
	}
	keys := map[string]string{
		"INAM": demux.MetaTitle,
		"IART": demux.MetaArtist,
		"IGNR": demux.MetaGenre,
		"ICMT": demux.MetaDescription,
	}
	off := 4
	for off+8 <= len(b) {
		id := string(b[off : off+4])
		size := int(binary.LittleEndian.Uint32(b[off+4 : off+8]))
		end := off + 8 + size
		if end > len(b) {
			break
		}
		val := string(trimNUL(b[off+8 : end]))
		if key, ok := keys[id]; ok {
			if val != "" {
				d.meta[key] = val
			}
		} else {
			d.unknownMeta = true
		}
		off = end + (size & 1)
	}
	return nil
}

// scanTrailing looks for cue and LIST chunks stored after the data chunk,
// the usual layout for markers. Best effort, seekable sources only; the
// read position is restored to the payload start.
func (d *Demuxer) scanTrailing(pad int64) {
	if !d.Source.CanSeek() || d.dataEnd == 0 || d.dataEnd+pad >= d.Source.Size() {
		return
	}
	if d.Source.Seek(d.dataEnd+pad) != nil {
		return
	}
	defer d.Source.Seek(d.dataStart)

	for {
		hb, err := d.Source.Peek(8)
		if err != nil || len(hb) < 8 {
			return
		}
		id := string(hb[0:4])
		size := int64(binary.LittleEndian.Uint32(hb[4:8]))
		total := 8 + size + size&1

		if (id == "cue " || id == "LIST") && total <= maxInlineChunk {
			b, err := d.Source.Peek(int(total))
			if err != nil || int64(len(b)) < total {
				return
			}
			if id == "cue " {
				d.parseCue(b[8 : 8+size])
			} else {
				d.parseList(b[8 : 8+size])
			}
		}
		if _, err := io.CopyN(io.Discard, d.Source, total); err != nil {
			return
		}
	}
}

// buildTitle assembles the single-title descriptor with one seekpoint per
// cue marker.
func (d *Demuxer) buildTitle() {
	name := d.meta[demux.MetaTitle]
	if name == "" {
		name = path.Base(d.Path)
	}

	var length time.Duration
	if d.dataEnd > 0 {
		length = time.Duration((d.dataEnd - d.dataStart) * int64(time.Second) / d.byteRate)
	}

	title := demux.Title{Name: name, Length: length}

	sort.Slice(d.cueSamples, func(i, j int) bool { return d.cueSamples[i] < d.cueSamples[j] })
	for i, sample := range d.cueSamples {
		title.Seekpoints = append(title.Seekpoints, demux.Seekpoint{
			Name:       fmt.Sprintf("Marker %d", i+1),
			Offset:     time.Duration(int64(sample) * int64(time.Second) / int64(d.sampleRate)),
			ByteOffset: d.dataStart + int64(sample)*int64(d.blockAlign),
		})
	}

	d.titles = []demux.Title{title}
}

func trimNUL(b []byte) []byte {
	for i, c := range b {
		if c == 0 {
			return b[:i]
		}
	}
	return b
}
