package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"pipelined.dev/clip/host"
	"pipelined.dev/clip/mp3"
	"pipelined.dev/clip/signal"
	"pipelined.dev/clip/slot"
	"pipelined.dev/clip/wav"
)

type fileSink interface {
	host.Sink
	io.Closer
}

type renderOptions struct {
	out      string
	duration time.Duration
	bitDepth int
	bitRate  int
	quality  int
}

func newRenderCommand(logger *logrus.Logger) *cobra.Command {
	var opts renderOptions
	cmd := &cobra.Command{
		Use:   "render -o OUT FILE...",
		Short: "Render clips into wav or mp3 file without a device",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFromFlags(cmd.Flags())
			if err != nil {
				return err
			}
			cfg.Backend = backendOffline
			return render(cmd, logger, cfg, opts, args)
		},
	}
	fs := cmd.Flags()
	fs.StringVarP(&opts.out, "out", "o", "", "output file, .wav or .mp3 (required)")
	fs.DurationVarP(&opts.duration, "duration", "d", 10*time.Second, "rendered duration")
	fs.IntVar(&opts.bitDepth, "bit-depth", 16, "wav bit depth")
	fs.IntVar(&opts.bitRate, "bit-rate", 192, "mp3 bit rate")
	fs.IntVar(&opts.quality, "quality", 2, "mp3 quality")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func newFileSink(cfg config, opts renderOptions) (fileSink, error) {
	var (
		sink fileSink
		err  error
	)
	switch ext := strings.ToLower(filepath.Ext(opts.out)); ext {
	case ".wav":
		sink, err = wav.NewSink(opts.out, cfg.SampleRate, cfg.Channels, signal.BitDepth(opts.bitDepth))
	case ".mp3":
		sink, err = mp3.NewSink(opts.out, cfg.SampleRate, cfg.Channels, opts.bitRate, opts.quality)
	default:
		return nil, fmt.Errorf("unsupported output format %q", ext)
	}
	if err != nil {
		return nil, err
	}
	return sink, nil
}

func render(cmd *cobra.Command, logger *logrus.Logger, cfg config, opts renderOptions, paths []string) (err error) {
	e, err := newEngine(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := e.close(); err == nil {
			err = closeErr
		}
	}()
	if err := e.load(cfg.descriptors(paths)); err != nil {
		return err
	}
	sink, err := newFileSink(cfg, opts)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := sink.Close(); err == nil {
			err = closeErr
		}
	}()
	// clips played before transport start would be forgotten
	if err := e.setTransport(slot.TransportState{Playing: true}); err != nil {
		return err
	}
	if err := e.playAll(); err != nil {
		return err
	}
	frames, err := host.Render(cmd.Context(), e.mixer, opts.duration, sink)
	if err != nil {
		return err
	}
	logger.WithField("out", opts.out).Infof("rendered %d frames", frames)
	return nil
}
