// Package probe matches a byte stream to a demuxer implementation. A
// registry holds format handlers; Open peeks at the source, lets each
// handler sniff the head of the stream, and falls back to extension
// matching. A forced demuxer name bypasses sniffing entirely.
package probe

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/zsiec/facet/internal/demux"
)

// ErrNoMatch is returned by Open when no registered handler recognizes
// the stream.
var ErrNoMatch = errors.New("probe: no matching demuxer")

// Handler describes one registered container format.
type Handler struct {
	// Name identifies the demux module, matched against Config.Name when
	// a demuxer is forced.
	Name string
	// Extensions are path suffixes (with dot, lower case) the format
	// claims when sniffing is inconclusive.
	Extensions []string
	// PeekSize is how many bytes Probe wants to look at.
	PeekSize int
	// Probe reports whether the peeked head bytes belong to this format.
	// It may receive fewer bytes than PeekSize when the source is short;
	// a handler that cannot decide on a short peek returns false.
	Probe func(peek []byte) bool
	// New creates the demuxer instance.
	New func(demux.Config) (demux.Demuxer, error)
}

// Registry holds format handlers in registration order.
type Registry struct {
	mu       sync.RWMutex
	handlers []Handler
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends a handler. Earlier registrations probe first.
func (r *Registry) Register(h Handler) {
	r.mu.Lock()
	r.handlers = append(r.handlers, h)
	r.mu.Unlock()
}

// Open selects a demuxer for cfg and creates it. Selection order: forced
// name, content sniffing via Source.Peek, then path extension. A short
// peek is passed through to the handlers as-is; it is never an error at
// this level.
func (r *Registry) Open(cfg demux.Config) (demux.Demuxer, error) {
	r.mu.RLock()
	handlers := append([]Handler(nil), r.handlers...)
	r.mu.RUnlock()

	if cfg.Name != "" {
		for _, h := range handlers {
			if h.Name == cfg.Name {
				return h.New(cfg)
			}
		}
		return nil, fmt.Errorf("probe: forced demuxer %q not registered: %w", cfg.Name, ErrNoMatch)
	}

	if cfg.Source != nil {
		for _, h := range handlers {
			if h.Probe == nil {
				continue
			}
			peek, err := cfg.Source.Peek(h.PeekSize)
			if err != nil && !errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("probe: peek: %w", err)
			}
			if h.Probe(peek) {
				return h.New(cfg)
			}
		}
	}

	if ext := pathExtension(cfg.Path); ext != "" {
		for _, h := range handlers {
			for _, e := range h.Extensions {
				if e == ext {
					return h.New(cfg)
				}
			}
		}
	}

	return nil, ErrNoMatch
}

func pathExtension(path string) string {
	i := strings.LastIndexByte(path, '.')
	if i < 0 {
		return ""
	}
	return strings.ToLower(path[i:])
}
