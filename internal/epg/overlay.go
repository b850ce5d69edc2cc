package epg

import (
	"fmt"
	"time"
)

// Relative layout of the program-guide overlay within the video area.
const (
	overlayTop         = 0.7
	overlayLeft        = 0.1
	overlayNameSize    = 0.05
	overlayProgramSize = 0.03
)

// RegionKind discriminates overlay regions.
type RegionKind uint8

const (
	RegionText RegionKind = iota + 1
	RegionSlider
)

// Region is one drawable element of the program-guide overlay. The
// renderer consumes the list in order; this package only computes
// geometry and content, never pixels.
type Region struct {
	Kind RegionKind
	X, Y int
	W, H int

	// Text fields.
	Text string
	Size int

	// Slider fill ratio in [0, 1].
	Ratio float64
}

// Layout builds the ordered region list for a program-guide snapshot
// inside the visible rectangle at (x, y). The list is truncated early
// when information is missing: channel name only when there is no
// current event.
func Layout(s Snapshot, x, y, width, height int, now time.Time) []Region {
	var regions []Region

	if s.Channel == "" && s.Current == nil {
		return nil
	}

	// Channel name.
	regions = append(regions, Region{
		Kind: RegionText,
		X:    x + int(float64(width)*overlayLeft),
		Y:    y + int(float64(height)*overlayTop),
		Text: s.Channel,
		Size: textSize(height, overlayNameSize),
	})

	if s.Current == nil {
		return regions
	}

	// Current program name.
	regions = append(regions, Region{
		Kind: RegionText,
		X:    x + int(float64(width)*(overlayLeft+0.025)),
		Y:    y + int(float64(height)*(overlayTop+0.05)),
		Text: s.Current.Name,
		Size: textSize(height, overlayProgramSize),
	})

	// Progress slider.
	regions = append(regions, Region{
		Kind:  RegionSlider,
		X:     x + int(float64(width)*overlayLeft),
		Y:     y + int(float64(height)*(overlayTop+0.1)),
		W:     int(float64(width) * (1 - 2*overlayLeft)),
		H:     int(float64(height) * 0.05),
		Ratio: s.Current.Progress(now),
	})

	// Start and end hours of the current program.
	start := s.Current.Start.Local()
	end := s.Current.End().Local()
	regions = append(regions, Region{
		Kind: RegionText,
		X:    x + int(float64(width)*(overlayLeft+0.02)),
		Y:    y + int(float64(height)*(overlayTop+0.15)),
		Text: fmt.Sprintf("%02d:%02d", start.Hour(), start.Minute()),
		Size: textSize(height, overlayProgramSize),
	})
	regions = append(regions, Region{
		Kind: RegionText,
		X:    x + int(float64(width)*(1-overlayLeft-0.085)),
		Y:    y + int(float64(height)*(overlayTop+0.15)),
		Text: fmt.Sprintf("%02d:%02d", end.Hour(), end.Minute()),
		Size: textSize(height, overlayProgramSize),
	})

	return regions
}

func textSize(height int, scale float64) int {
	size := int(float64(height) * scale)
	if size < 1 {
		size = 1
	}
	return size
}
