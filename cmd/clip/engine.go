package main

import (
	"io"

	"github.com/sirupsen/logrus"

	"pipelined.dev/clip"
	"pipelined.dev/clip/content"
	"pipelined.dev/clip/host"
	"pipelined.dev/clip/host/portaudio"
	"pipelined.dev/clip/host/speaker"
	"pipelined.dev/clip/slot"
	"pipelined.dev/clip/timeline"
)

// engine wires timeline, mixer and slots together.
type engine struct {
	cfg       config
	log       *logrus.Logger
	timeline  *timeline.Steady
	mixer     *host.Mixer
	matrix    *slot.Matrix
	transport slot.TransportState
	device    io.Closer
}

func newEngine(cfg config, logger *logrus.Logger) (*engine, error) {
	mode, err := cfg.stretchMode()
	if err != nil {
		return nil, err
	}
	tl := timeline.NewSteady(
		timeline.WithTempo(cfg.BPM),
		timeline.WithBeatsPerBar(cfg.BeatsPerBar),
	)
	mixerOptions := []host.MixerOption{host.WithLogger(logger)}
	// speaker applies master volume itself
	if cfg.Backend != backendSpeaker {
		mixerOptions = append(mixerOptions, host.WithGain(cfg.gain()))
	}
	mixer, err := host.NewMixer(host.Format{
		SampleRate:  cfg.SampleRate,
		NumChannels: cfg.Channels,
		BlockSize:   cfg.BufferSize,
	}, tl, mixerOptions...)
	if err != nil {
		return nil, err
	}
	loader := content.NewLoader(
		content.WithSampleRate(cfg.SampleRate),
		content.WithTempo(cfg.ClipTempo),
		content.WithLogger(logger),
	)
	return &engine{
		cfg:      cfg,
		log:      logger,
		timeline: tl,
		mixer:    mixer,
		matrix: slot.NewMatrix(cfg.Slots, mixer, tl,
			slot.WithLoader(loader),
			slot.WithLogger(logger),
			slot.WithClipOptions(clip.WithStretchMode(mode)),
		),
	}, nil
}

// load fills slots with descriptors.
func (e *engine) load(descriptors []slot.Descriptor) error {
	events, err := e.matrix.Load(descriptors)
	for _, ev := range events {
		e.log.WithField("slot", ev.Slot).Debug(ev.Event)
	}
	return err
}

// playAll plays every slot with content.
func (e *engine) playAll() error {
	var errs host.Errors
	for i := 0; i < e.matrix.Len(); i++ {
		err := e.matrix.Do(i, func(s *slot.Slot) error {
			if !s.SourceLoaded() {
				return nil
			}
			return s.Play(s.PlayOptions())
		})
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errs.Ret()
}

// setTransport changes the transport state and keeps slots in sync.
func (e *engine) setTransport(to slot.TransportState) error {
	from := e.transport
	e.transport = to
	if to.Playing {
		e.timeline.Start()
	} else {
		e.timeline.Stop()
	}
	change, ok := slot.ChangeOf(from, to)
	if !ok {
		return nil
	}
	e.log.Debugf("transport: %v", change)
	return e.matrix.ProcessTransportChange(change)
}

// jump moves the timeline cursor.
func (e *engine) jump(pos float64) error {
	e.timeline.Jump(pos)
	return e.matrix.ProcessTransportChange(slot.PlayCursorJump)
}

// open starts the output device of the backend.
func (e *engine) open() error {
	switch e.cfg.Backend {
	case backendPortaudio:
		d, err := portaudio.Open(e.mixer)
		if err != nil {
			return err
		}
		e.device = d
	case backendSpeaker:
		p, err := speaker.Open(e.mixer, e.cfg.Volume)
		if err != nil {
			return err
		}
		e.device = p
	}
	return nil
}

func (e *engine) close() error {
	var errs host.Errors
	if e.device != nil {
		if err := e.device.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := e.matrix.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := e.mixer.Close(); err != nil {
		errs = append(errs, err)
	}
	return errs.Ret()
}
