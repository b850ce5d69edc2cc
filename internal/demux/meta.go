package demux

// Well-known metadata keys.
const (
	MetaTitle       = "title"
	MetaArtist      = "artist"
	MetaGenre       = "genre"
	MetaDescription = "description"
	MetaPublisher   = "publisher"
	MetaNowPlaying  = "now_playing"
)

// Meta is a demuxer-level metadata snapshot.
type Meta map[string]string

// Clone returns an independent copy, nil for nil.
func (m Meta) Clone() Meta {
	if m == nil {
		return nil
	}
	out := make(Meta, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Attachment is a file embedded in the container, such as a subtitle font
// or cover art.
type Attachment struct {
	Name string
	MIME string
	Data []byte
}
