package demux

import "time"

// Seekpoint is a chapter mark inside a title.
type Seekpoint struct {
	Name string
	// Offset is the seekpoint's start time within the title.
	Offset time.Duration
	// ByteOffset is the source position of the seekpoint, 0 when unknown.
	ByteOffset int64
}

// Title is a coarse navigation unit, analogous to a disc title.
type Title struct {
	Name       string
	Length     time.Duration
	Menu       bool
	Seekpoints []Seekpoint
}

// TitleInfoAvailable reports whether GetTitleInfo is meaningful: more than
// one title, or more than one seekpoint anywhere. Otherwise the query must
// fail and the host treats the content as a single implicit title.
func TitleInfoAvailable(titles []Title) bool {
	if len(titles) > 1 {
		return true
	}
	for _, t := range titles {
		if len(t.Seekpoints) > 1 {
			return true
		}
	}
	return false
}

// CloneTitles deep-copies title descriptors so the host can hold them
// without aliasing demuxer-internal state.
func CloneTitles(titles []Title) []Title {
	if titles == nil {
		return nil
	}
	out := make([]Title, len(titles))
	for i, t := range titles {
		out[i] = t
		out[i].Seekpoints = append([]Seekpoint(nil), t.Seekpoints...)
	}
	return out
}
