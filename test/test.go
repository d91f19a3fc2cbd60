// Package test contains helper functions useful for testing clip packages.
package test

import (
	"path/filepath"
	"testing"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"pipelined.dev/clip/mock"
	"pipelined.dev/clip/signal"
	"pipelined.dev/clip/wav"
)

// Asset attributes. Assets are generated, so they are accessible in all
// test packages without checked in files.
const (
	// WavSampleRate is the rate of the wav asset.
	WavSampleRate = 44100
	// WavFrames is the number of frames of the wav asset.
	WavFrames = 22050
	// WavChannels is the number of channels of the wav asset.
	WavChannels = 2
	// MidiTicks is the resolution of the midi asset.
	MidiTicks = 960
	// MidiBeats is the length of the midi asset.
	MidiBeats = 4
)

// Assets is a set of content files.
type Assets struct {
	Dir  string
	Wav  string
	Midi string
}

// NewAssets writes assets into a temporary directory removed after the
// test.
func NewAssets(t testing.TB) Assets {
	t.Helper()
	dir := t.TempDir()
	a := Assets{
		Dir:  dir,
		Wav:  filepath.Join(dir, "sine.wav"),
		Midi: filepath.Join(dir, "notes.mid"),
	}
	writeWav(t, a.Wav)
	writeMidi(t, a.Midi)
	return a
}

// Out returns a path for output file in the assets directory.
func (a Assets) Out(name string) string {
	return filepath.Join(a.Dir, name)
}

func writeWav(t testing.TB, path string) {
	t.Helper()
	sink, err := wav.NewSink(path, WavSampleRate, WavChannels, signal.BitDepth16)
	if err != nil {
		t.Fatalf("create wav asset: %v", err)
	}
	data := mock.Sine(440, 0.5, WavFrames, WavChannels, WavSampleRate).Data()
	if err := sink.Write(data); err != nil {
		t.Fatalf("write wav asset: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("close wav asset: %v", err)
	}
}

// writeMidi writes a note on every beat.
func writeMidi(t testing.TB, path string) {
	t.Helper()
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(MidiTicks)
	var tr smf.Track
	var delta uint32
	for i := 0; i < MidiBeats; i++ {
		tr.Add(delta, midi.NoteOn(0, 60, 100))
		tr.Add(MidiTicks/2, midi.NoteOff(0, 60))
		delta = MidiTicks / 2
	}
	tr.Close(delta)
	if err := s.Add(tr); err != nil {
		t.Fatalf("add midi track: %v", err)
	}
	if err := s.WriteFile(path); err != nil {
		t.Fatalf("write midi asset: %v", err)
	}
}
