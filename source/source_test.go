package source_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2"

	"pipelined.dev/clip/signal"
	"pipelined.dev/clip/source"
	"pipelined.dev/clip/supply"
)

func TestPCM(t *testing.T) {
	data := signal.Float64{{1, 2, 3, 4, 5}}
	tests := []struct {
		description string
		start       int
		size        int
		expected    signal.Float64
		response    supply.Response
	}{
		{
			description: "inside",
			start:       1,
			size:        2,
			expected:    signal.Float64{{2, 3}, {2, 3}},
			response:    supply.Response{Consumed: 2, Written: 2},
		},
		{
			description: "count-in",
			start:       -2,
			size:        4,
			expected:    signal.Float64{{0, 0, 1, 2}, {0, 0, 1, 2}},
			response:    supply.Response{Consumed: 4, Written: 4},
		},
		{
			description: "end",
			start:       3,
			size:        4,
			expected:    signal.Float64{{4, 5, 0, 0}, {4, 5, 0, 0}},
			response:    supply.Response{Consumed: 2, Written: 2, Status: supply.ReachedEnd},
		},
		{
			description: "exact end",
			start:       0,
			size:        5,
			expected:    signal.Float64{{1, 2, 3, 4, 5}, {1, 2, 3, 4, 5}},
			response:    supply.Response{Consumed: 5, Written: 5, Status: supply.ReachedEnd},
		},
		{
			description: "past end",
			start:       7,
			size:        2,
			expected:    signal.Float64{{0, 0}, {0, 0}},
			response:    supply.Response{Status: supply.ReachedEnd},
		},
	}
	pcm := source.NewPCM(data, 44100, source.WithTempo(100))
	assert.Equal(t, source.Audio, pcm.Kind())
	assert.Equal(t, 100.0, pcm.Tempo())
	assert.Equal(t, supply.MidiBaseBPM, source.NewPCM(data, 44100).Tempo(), "without tempo")
	assert.Equal(t, supply.MidiBaseBPM, source.NewPCM(data, 44100, source.WithTempo(0)).Tempo(), "zero tempo")
	assert.Equal(t, 5, pcm.FrameCount())
	for _, test := range tests {
		dst := signal.EmptyFloat64(2, test.size)
		dst[0][0], dst[1][0] = 9, 9
		resp := pcm.SupplyAudio(supply.Request{StartFrame: test.start, DestSampleRate: 44100}, dst)
		assert.Equal(t, test.response, resp, test.description)
		assert.Equal(t, test.expected, dst, test.description)
	}
}

func TestSequence(t *testing.T) {
	const destRate = 48000.0
	beat := int(supply.MidiFramesPerBeat)
	seq := source.NewSequence([]supply.Event{
		{Frame: beat, Message: midi.NoteOff(0, 60)},
		{Frame: 0, Message: midi.NoteOn(0, 60, 100)},
		{Frame: beat, Message: midi.NoteOn(0, 62, 100)},
	}, 4*beat)
	assert.Equal(t, source.Midi, seq.Kind())
	assert.Equal(t, 4.0, seq.Beats())
	assert.Equal(t, supply.MidiBaseBPM, seq.Tempo())
	assert.Equal(t, 0, seq.Events()[0].Frame, "events are sorted")
	assert.Equal(t, midi.NoteOn(0, 62, 100), seq.Events()[2].Message, "same frame keeps order")

	// one beat at 120 bpm is 24000 frames at 48kHz
	events := supply.NewEventList(8)
	resp := seq.SupplyMidi(supply.Request{
		StartFrame:     -beat / 2,
		DestSampleRate: destRate,
		DestFrames:     24000,
		BlockOffset:    10,
	}, events)
	assert.Equal(t, supply.Response{Consumed: beat, Written: 24000}, resp)
	require.Equal(t, 1, events.Len())
	assert.Equal(t, 12010, events.Events()[0].Frame)

	events.Reset()
	resp = seq.SupplyMidi(supply.Request{
		StartFrame:     3 * beat,
		DestSampleRate: destRate,
		DestFrames:     48000,
	}, events)
	assert.Equal(t, supply.Response{Consumed: beat, Written: 24000, Status: supply.ReachedEnd}, resp)
	assert.Equal(t, 0, events.Len())
}

func TestResample(t *testing.T) {
	pcm := source.NewPCM(signal.EmptyFloat64(2, 44100), 44100, source.WithTempo(90))
	resampled, err := source.Resample(pcm, 48000)
	require.NoError(t, err)
	assert.Equal(t, 48000, resampled.FrameCount())
	assert.Equal(t, 48000.0, resampled.FrameRate())
	assert.Equal(t, 2, resampled.NumChannels())
	assert.Equal(t, 90.0, resampled.Tempo())

	same, err := source.Resample(pcm, 44100)
	require.NoError(t, err)
	assert.Same(t, pcm, same)
}
