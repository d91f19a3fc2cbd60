// Package midifile loads standard MIDI files into sequences.
//
// Event positions are taken from the file in beats. The tempo map of the
// file is ignored because sequences follow the timeline tempo.
package midifile

import (
	"errors"
	"fmt"
	"io"
	"math"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"pipelined.dev/clip/source"
	"pipelined.dev/clip/supply"
	"pipelined.dev/clip/timeline"
)

// ErrUnsupportedTimeFormat is returned for SMPTE based files.
var ErrUnsupportedTimeFormat = errors.New("only metric time format is supported")

// Load reads the file. All tracks are merged into a single sequence.
func Load(path string) (*source.Sequence, error) {
	s, err := smf.ReadFile(path)
	if err != nil {
		return nil, err
	}
	seq, err := convert(s)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return seq, nil
}

// Decode reads the MIDI stream.
func Decode(r io.Reader) (*source.Sequence, error) {
	s, err := smf.ReadFrom(r)
	if err != nil {
		return nil, err
	}
	return convert(s)
}

func convert(s *smf.SMF) (*source.Sequence, error) {
	ticks, ok := s.TimeFormat.(smf.MetricTicks)
	if !ok || ticks.Ticks4th() == 0 {
		return nil, ErrUnsupportedTimeFormat
	}
	ticksPerBeat := float64(ticks.Ticks4th())

	var (
		events []supply.Event
		end    uint32
	)
	for _, track := range s.Tracks {
		var abs uint32
		for _, ev := range track {
			abs += ev.Delta
			if !isChannelMessage(ev.Message) {
				continue
			}
			events = append(events, supply.Event{
				Frame:   source.BeatsToFrames(float64(abs) / ticksPerBeat),
				Message: midi.Message(append([]byte(nil), ev.Message...)),
			})
		}
		if abs > end {
			end = abs
		}
	}
	// whole beats, one bar if the file has no length
	beats := math.Ceil(float64(end) / ticksPerBeat)
	if beats == 0 {
		beats = timeline.DefaultBeatsPerBar
	}
	length := source.BeatsToFrames(beats)
	// events on the end of the last track would never be played
	for i := range events {
		if events[i].Frame >= length {
			events[i].Frame = length - 1
		}
	}
	return source.NewSequence(events, length), nil
}

// isChannelMessage reports whether the message is a channel voice message.
// Meta and system exclusive messages are not played by clips.
func isChannelMessage(msg []byte) bool {
	return len(msg) > 0 && msg[0] >= 0x80 && msg[0] < 0xF0
}
