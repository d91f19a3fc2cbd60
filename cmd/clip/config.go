package main

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"pipelined.dev/clip/slot"
	"pipelined.dev/clip/supply"
)

// Backends.
const (
	backendPortaudio = "portaudio"
	backendSpeaker   = "speaker"
	backendOffline   = "offline"
)

var errInvalidConfig = errors.New("invalid config")

// config is the engine configuration. Zero values of the file are replaced
// by defaults.
type config struct {
	SampleRate  float64 `yaml:"sample_rate"`
	BufferSize  int     `yaml:"buffer_size"`
	Channels    int     `yaml:"channels"`
	Backend     string  `yaml:"backend"`
	BPM         float64 `yaml:"bpm"`
	BeatsPerBar int     `yaml:"beats_per_bar"`
	Stretch     string  `yaml:"stretch"`
	// Volume is the master volume in dB.
	Volume float64 `yaml:"volume"`
	// ClipTempo is the tempo of audio material. Zero means 120 bpm.
	ClipTempo float64 `yaml:"clip_tempo"`
	// Repeat and NextBar apply to clips passed as arguments.
	Repeat  bool              `yaml:"repeat"`
	NextBar bool              `yaml:"next_bar"`
	Slots   int               `yaml:"slots"`
	Clips   []slot.Descriptor `yaml:"clips"`
}

func defaultConfig() config {
	return config{
		SampleRate:  48000,
		BufferSize:  512,
		Channels:    2,
		Backend:     backendPortaudio,
		BPM:         120,
		BeatsPerBar: 4,
		Stretch:     supply.Resampling.String(),
		Slots:       8,
	}
}

// loadConfig reads the file over defaults. Empty path returns defaults.
func loadConfig(path string) (config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// registerFlags adds flags that override config values.
func registerFlags(fs *pflag.FlagSet) {
	d := defaultConfig()
	fs.StringP("config", "c", "", "yaml config file")
	fs.Float64("sample-rate", d.SampleRate, "output sample rate")
	fs.Int("buffer-size", d.BufferSize, "frames per processed block")
	fs.Int("channels", d.Channels, "output channels")
	fs.String("backend", d.Backend, "output backend: portaudio, speaker or offline")
	fs.Float64("bpm", d.BPM, "timeline tempo")
	fs.Int("beats-per-bar", d.BeatsPerBar, "timeline bar length")
	fs.String("stretch", d.Stretch, "stretch mode: resample or serious")
	fs.Float64("volume", d.Volume, "master volume in dB")
	fs.Float64("clip-tempo", d.ClipTempo, "tempo of audio material, 0 means 120 bpm")
	fs.Bool("repeat", d.Repeat, "repeat clips")
	fs.Bool("next-bar", d.NextBar, "start clips at the next bar")
	fs.Int("slots", d.Slots, "number of slots")
}

// configFromFlags loads the config file and applies changed flags.
func configFromFlags(fs *pflag.FlagSet) (config, error) {
	path, err := fs.GetString("config")
	if err != nil {
		return config{}, err
	}
	cfg, err := loadConfig(path)
	if err != nil {
		return cfg, err
	}
	var errs []error
	fs.Visit(func(f *pflag.Flag) {
		var err error
		switch f.Name {
		case "sample-rate":
			cfg.SampleRate, err = fs.GetFloat64(f.Name)
		case "buffer-size":
			cfg.BufferSize, err = fs.GetInt(f.Name)
		case "channels":
			cfg.Channels, err = fs.GetInt(f.Name)
		case "backend":
			cfg.Backend, err = fs.GetString(f.Name)
		case "bpm":
			cfg.BPM, err = fs.GetFloat64(f.Name)
		case "beats-per-bar":
			cfg.BeatsPerBar, err = fs.GetInt(f.Name)
		case "stretch":
			cfg.Stretch, err = fs.GetString(f.Name)
		case "volume":
			cfg.Volume, err = fs.GetFloat64(f.Name)
		case "clip-tempo":
			cfg.ClipTempo, err = fs.GetFloat64(f.Name)
		case "repeat":
			cfg.Repeat, err = fs.GetBool(f.Name)
		case "next-bar":
			cfg.NextBar, err = fs.GetBool(f.Name)
		case "slots":
			cfg.Slots, err = fs.GetInt(f.Name)
		}
		if err != nil {
			errs = append(errs, err)
		}
	})
	if len(errs) > 0 {
		return cfg, errors.Join(errs...)
	}
	return cfg, cfg.validate()
}

func (c config) validate() error {
	switch {
	case c.SampleRate <= 0:
		return fmt.Errorf("%w: sample rate %v", errInvalidConfig, c.SampleRate)
	case c.BufferSize <= 0:
		return fmt.Errorf("%w: buffer size %d", errInvalidConfig, c.BufferSize)
	case c.Channels <= 0:
		return fmt.Errorf("%w: channels %d", errInvalidConfig, c.Channels)
	case c.BPM <= 0:
		return fmt.Errorf("%w: bpm %v", errInvalidConfig, c.BPM)
	case c.BeatsPerBar <= 0:
		return fmt.Errorf("%w: beats per bar %d", errInvalidConfig, c.BeatsPerBar)
	case c.Slots < len(c.Clips):
		return fmt.Errorf("%w: %d clips for %d slots", errInvalidConfig, len(c.Clips), c.Slots)
	}
	switch c.Backend {
	case backendPortaudio, backendSpeaker, backendOffline:
	default:
		return fmt.Errorf("%w: backend %q", errInvalidConfig, c.Backend)
	}
	_, err := c.stretchMode()
	return err
}

func (c config) stretchMode() (supply.Mode, error) {
	switch c.Stretch {
	case supply.Resampling.String():
		return supply.Resampling, nil
	case supply.Serious.String():
		return supply.Serious, nil
	}
	return 0, fmt.Errorf("%w: stretch mode %q", errInvalidConfig, c.Stretch)
}

// gain returns linear master gain.
func (c config) gain() float64 {
	return math.Pow(10, c.Volume/20)
}

// descriptors returns clips of the config followed by paths. Clips are cut
// to the number of slots.
func (c config) descriptors(paths []string) []slot.Descriptor {
	descriptors := make([]slot.Descriptor, 0, len(c.Clips)+len(paths))
	for _, d := range c.Clips {
		if d.Volume == 0 {
			d.Volume = 1
		}
		descriptors = append(descriptors, d)
	}
	for _, path := range paths {
		d := slot.NewDescriptor(path)
		d.Repeat = c.Repeat
		d.NextBar = c.NextBar
		descriptors = append(descriptors, d)
	}
	if len(descriptors) > c.Slots {
		descriptors = descriptors[:c.Slots]
	}
	return descriptors
}
