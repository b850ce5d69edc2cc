package source

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"time"

	"github.com/quic-go/quic-go"
)

// ALPN identifier for facet stream delivery over QUIC.
const quicALPN = "facet"

// QUIC is a live source reading a single unidirectional QUIC stream
// pushed by the remote endpoint. Non-seekable.
type QUIC struct {
	*Buffered
	conn quic.Connection
	log  *slog.Logger
}

// DialQUIC connects to addr and waits for the server to open the delivery
// stream. A nil tlsConf gets a default config with the facet ALPN; the
// caller is responsible for certificate trust decisions. If log is nil,
// slog.Default() is used.
func DialQUIC(ctx context.Context, addr string, tlsConf *tls.Config, log *slog.Logger) (*QUIC, error) {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "quic-source")

	if tlsConf == nil {
		tlsConf = &tls.Config{}
	}
	if len(tlsConf.NextProtos) == 0 {
		tlsConf = tlsConf.Clone()
		tlsConf.NextProtos = []string{quicALPN}
	}

	log.Info("dialing", "addr", addr)
	conn, err := quic.DialAddr(ctx, addr, tlsConf, &quic.Config{
		MaxIdleTimeout: 30 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("source: QUIC dial %s: %w", addr, err)
	}

	stream, err := conn.AcceptUniStream(ctx)
	if err != nil {
		conn.CloseWithError(0, "no delivery stream")
		return nil, fmt.Errorf("source: QUIC accept stream: %w", err)
	}

	log.Info("connected", "remote", conn.RemoteAddr())
	return &QUIC{
		Buffered: NewBuffered(stream, 0),
		conn:     conn,
		log:      log,
	}, nil
}

func (s *QUIC) Close() error {
	return s.conn.CloseWithError(0, "done")
}
