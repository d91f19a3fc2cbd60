// Package content loads clip material from files. The format is chosen by
// the file extension.
package content

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"pipelined.dev/clip/log"
	"pipelined.dev/clip/midifile"
	"pipelined.dev/clip/mp3"
	"pipelined.dev/clip/source"
	"pipelined.dev/clip/vorbis"
	"pipelined.dev/clip/wav"
)

// ErrUnsupportedFormat is returned for unknown file extensions.
var ErrUnsupportedFormat = errors.New("unsupported content format")

type audioLoader func(string, ...source.AudioOption) (*source.PCM, error)

var audioLoaders = map[string]audioLoader{
	".wav":  wav.Load,
	".wave": wav.Load,
	".mp3":  mp3.Load,
	".ogg":  vorbis.Load,
	".oga":  vorbis.Load,
}

var midiExtensions = map[string]struct{}{
	".mid":  {},
	".midi": {},
	".smf":  {},
}

// Supported reports whether path has a known extension.
func Supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := audioLoaders[ext]; ok {
		return true
	}
	_, ok := midiExtensions[ext]
	return ok
}

// Option configures a Loader.
type Option func(*Loader)

// WithSampleRate makes loader resample audio material to the rate.
func WithSampleRate(rate float64) Option {
	return func(l *Loader) {
		l.sampleRate = rate
	}
}

// WithTempo sets the tempo of loaded audio material. Audio loaded without
// tempo is played as supply.MidiBaseBPM material.
func WithTempo(bpm float64) Option {
	return func(l *Loader) {
		l.tempo = bpm
	}
}

// WithLogger sets the logger.
func WithLogger(logger log.Logger) Option {
	return func(l *Loader) {
		l.log = logger
	}
}

// Loader loads material from files.
type Loader struct {
	sampleRate float64
	tempo      float64
	log        log.Logger
}

// NewLoader returns a loader. Audio keeps its own rate unless
// WithSampleRate is used.
func NewLoader(options ...Option) *Loader {
	l := Loader{
		log: log.GetLogger(),
	}
	for _, option := range options {
		option(&l)
	}
	return &l
}

// Load reads the file at path.
func (l *Loader) Load(path string) (source.Source, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := midiExtensions[ext]; ok {
		seq, err := midifile.Load(path)
		if err != nil {
			return nil, err
		}
		return seq, nil
	}
	load, ok := audioLoaders[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	var options []source.AudioOption
	if l.tempo > 0 {
		options = append(options, source.WithTempo(l.tempo))
	}
	pcm, err := load(path, options...)
	if err != nil {
		return nil, err
	}
	if l.sampleRate == 0 || pcm.FrameRate() == l.sampleRate {
		return pcm, nil
	}
	entry := l.log.WithField("path", path)
	entry.Debugf("resampling from %v to %v", pcm.FrameRate(), l.sampleRate)
	resampled, err := source.Resample(pcm, l.sampleRate)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return resampled, nil
}
