// Command facet plays back a container stream through the demux control
// protocol: it probes the input, drives the selected demuxer, and logs
// stream activity, navigation state, and the DVB program guide.
package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/zsiec/facet/internal/demux"
	"github.com/zsiec/facet/internal/epg"
	"github.com/zsiec/facet/internal/format/mpegts"
	"github.com/zsiec/facet/internal/format/wav"
	"github.com/zsiec/facet/internal/host"
	"github.com/zsiec/facet/internal/probe"
	"github.com/zsiec/facet/internal/sink"
	"github.com/zsiec/facet/internal/source"
)

var version = "dev"

// config is the playback configuration, loadable from a TOML file and
// overridable per-flag.
type config struct {
	Input    string  `toml:"input"`
	Demuxer  string  `toml:"demuxer"`
	StreamID string  `toml:"stream_id"`
	Group    int     `toml:"group"`
	Rate     float64 `toml:"rate"`
	StartAt  float64 `toml:"start_at"`
	Insecure bool    `toml:"insecure"`
}

// guideProvider is implemented by demuxers that fill a program guide
// from the stream.
type guideProvider interface {
	EPG() *epg.Table
}

func main() {
	cfg := config{Group: 0, Rate: 1}

	var (
		configPath    = pflag.String("config", "", "TOML configuration file")
		logLevel      = pflag.String("log-level", envOr("FACET_LOG_LEVEL", "info"), "log level (debug, info, warn, error)")
		statsInterval = pflag.Duration("stats-interval", 10*time.Second, "interval between stats log lines")
	)
	pflag.StringVarP(&cfg.Input, "input", "i", envOr("FACET_INPUT", ""), "file path, srt:// or quic:// URL")
	pflag.StringVar(&cfg.Demuxer, "demuxer", "", "force a demux module instead of probing")
	pflag.StringVar(&cfg.StreamID, "stream-id", envOr("FACET_STREAM_ID", ""), "SRT stream identifier")
	pflag.IntVar(&cfg.Group, "group", 0, "program selection: -1 all, 0 default, else a program number")
	pflag.Float64Var(&cfg.Rate, "rate", 1, "playback speed multiplier")
	pflag.Float64Var(&cfg.StartAt, "start-at", 0, "initial position as a ratio in [0, 1]")
	pflag.BoolVar(&cfg.Insecure, "insecure", false, "skip TLS certificate verification for quic://")
	pflag.Parse()

	setupLogging(*logLevel)

	if *configPath != "" {
		fileCfg := cfg
		if _, err := toml.DecodeFile(*configPath, &fileCfg); err != nil {
			slog.Error("failed to load config file", "path", *configPath, "error", err)
			os.Exit(1)
		}
		// Explicit flags win over the file.
		merged := fileCfg
		pflag.Visit(func(f *pflag.Flag) {
			switch f.Name {
			case "input":
				merged.Input = cfg.Input
			case "demuxer":
				merged.Demuxer = cfg.Demuxer
			case "stream-id":
				merged.StreamID = cfg.StreamID
			case "group":
				merged.Group = cfg.Group
			case "rate":
				merged.Rate = cfg.Rate
			case "start-at":
				merged.StartAt = cfg.StartAt
			case "insecure":
				merged.Insecure = cfg.Insecure
			}
		})
		cfg = merged
	}
	if cfg.Input == "" && pflag.NArg() > 0 {
		cfg.Input = pflag.Arg(0)
	}
	if cfg.Input == "" {
		fmt.Fprintln(os.Stderr, "usage: facet [flags] <input>")
		pflag.PrintDefaults()
		os.Exit(2)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx, cancel, cfg, *statsInterval); err != nil {
		slog.Error("playback failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cancel context.CancelFunc, cfg config, statsInterval time.Duration) error {
	src, access, err := openSource(ctx, cfg)
	if err != nil {
		return err
	}
	defer src.Close()

	slog.Info("facet starting",
		"version", version,
		"input", cfg.Input,
		"access", access,
	)

	registry := probe.NewRegistry()
	mpegts.Register(registry)
	wav.Register(registry)

	snk := sink.NewChanSink(256)
	d, err := registry.Open(demux.Config{
		Access: access,
		Name:   cfg.Demuxer,
		Path:   cfg.Input,
		Source: src,
		Sink:   snk,
	})
	if err != nil {
		return fmt.Errorf("select demuxer: %w", err)
	}
	defer d.Close()

	h := host.New(d, nil)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel() // end of stream stops the consumers too
		err := h.Run(ctx)
		snk.Close()
		return err
	})

	g.Go(func() error {
		return consume(snk)
	})

	g.Go(func() error {
		applyStartupControls(ctx, h, cfg)
		return nil
	})

	g.Go(func() error {
		watch(ctx, h, d, src, snk, statsInterval)
		return nil
	})

	return g.Wait()
}

// openSource picks the access method from the input URL scheme.
func openSource(ctx context.Context, cfg config) (source.Source, string, error) {
	switch {
	case strings.HasPrefix(cfg.Input, "srt://"):
		s, err := source.DialSRT(strings.TrimPrefix(cfg.Input, "srt://"), cfg.StreamID, nil)
		return s, "srt", err

	case strings.HasPrefix(cfg.Input, "quic://"):
		var tlsConf *tls.Config
		if cfg.Insecure {
			tlsConf = &tls.Config{InsecureSkipVerify: true}
		}
		s, err := source.DialQUIC(ctx, strings.TrimPrefix(cfg.Input, "quic://"), tlsConf, nil)
		return s, "quic", err

	default:
		s, err := source.OpenFile(cfg.Input)
		return s, "file", err
	}
}

// applyStartupControls forwards the configured group, rate, and start
// position once the playback loop is running.
func applyStartupControls(ctx context.Context, h *host.Host, cfg config) {
	if cfg.Group != 0 {
		if err := h.Control(ctx, &demux.SetGroup{Group: cfg.Group}); err != nil {
			slog.Warn("group selection rejected", "group", cfg.Group, "error", err)
		}
	}
	if cfg.StartAt > 0 {
		if err := h.SeekRatio(ctx, cfg.StartAt); err != nil {
			slog.Warn("initial seek rejected", "position", cfg.StartAt, "error", err)
		}
	}
	if cfg.Rate != 1 && cfg.Rate > 0 {
		applied, err := h.SetRate(ctx, cfg.Rate)
		if err != nil {
			slog.Warn("rate change rejected", "rate", cfg.Rate, "error", err)
		} else {
			slog.Info("rate applied", "requested", cfg.Rate, "applied", applied)
		}
	}
}

// consume drains demuxed units until the sink closes.
func consume(snk *sink.ChanSink) error {
	var units, bytes int64
	for u := range snk.Units() {
		units++
		bytes += int64(len(u.Data))
	}
	slog.Info("playback drained", "units", units, "bytes", bytes)
	return nil
}

// watch logs loop statistics and the program guide on a fixed cadence.
func watch(ctx context.Context, h *host.Host, d demux.Demuxer, src source.Source, snk *sink.ChanSink, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		stats := h.Stats()
		attrs := []any{
			"steps", stats.Steps,
			"retries", stats.Retries,
			"updates", stats.Updates,
			"streams", len(snk.Formats()),
			"offset", src.Tell(),
		}
		if srt, ok := src.(*source.SRT); ok {
			s := srt.Stats()
			attrs = append(attrs, "srt_bytes", s.BytesReceived, "srt_reads", s.ReadCount)
		}
		slog.Info("playback stats", attrs...)

		if gp, ok := d.(guideProvider); ok {
			logGuide(gp.EPG().Snapshot())
		}
	}
}

// logGuide renders the guide overlay for a nominal full-HD surface and
// logs what a renderer would draw.
func logGuide(snap epg.Snapshot) {
	if snap.Channel == "" && snap.Current == nil {
		return
	}
	regions := epg.Layout(snap, 0, 0, 1920, 1080, time.Now())
	attrs := []any{"channel", snap.Channel, "regions", len(regions)}
	if snap.Current != nil {
		attrs = append(attrs,
			"now_playing", snap.Current.Name,
			"progress", fmt.Sprintf("%.0f%%", snap.Current.Progress(time.Now())*100),
		)
	}
	if len(snap.Following) > 0 {
		attrs = append(attrs, "up_next", snap.Following[0].Name)
	}
	slog.Info("program guide", attrs...)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func setupLogging(level string) {
	l := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	}
	if os.Getenv("DEBUG") != "" {
		l = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})))
}
