package midifile_test

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"pipelined.dev/clip/midifile"
	"pipelined.dev/clip/source"
)

type timed struct {
	delta uint32
	msg   midi.Message
}

func track(end uint32, events ...timed) smf.Track {
	var tr smf.Track
	for _, ev := range events {
		tr.Add(ev.delta, ev.msg)
	}
	tr.Close(end)
	return tr
}

func TestLoad(t *testing.T) {
	tests := []struct {
		description string
		tracks      [][]timed
		closes      []uint32
		frames      []int
		beats       float64
	}{
		{
			description: "empty file is one bar",
			tracks:      [][]timed{{}},
			closes:      []uint32{0},
			beats:       4,
		},
		{
			description: "length rounded up to beats",
			tracks: [][]timed{{
				{0, midi.NoteOn(0, 60, 100)},
				{480, midi.NoteOff(0, 60)},
			}},
			closes: []uint32{960},
			frames: []int{0, source.BeatsToFrames(0.5)},
			beats:  2,
		},
		{
			description: "tracks are merged",
			tracks: [][]timed{
				{
					{960, midi.NoteOn(0, 60, 100)},
				},
				{
					{0, midi.NoteOn(1, 64, 100)},
					{1920, midi.NoteOff(1, 64)},
				},
			},
			closes: []uint32{0, 960},
			frames: []int{0, source.BeatsToFrames(1), source.BeatsToFrames(2)},
			beats:  3,
		},
	}
	for _, test := range tests {
		t.Run(test.description, func(t *testing.T) {
			s := smf.New()
			s.TimeFormat = smf.MetricTicks(960)
			for i := range test.tracks {
				require.NoError(t, s.Add(track(test.closes[i], test.tracks[i]...)))
			}
			path := filepath.Join(t.TempDir(), "clip.mid")
			require.NoError(t, s.WriteFile(path))

			seq, err := midifile.Load(path)
			require.NoError(t, err)
			assert.Equal(t, test.beats, seq.Beats())
			var frames []int
			for _, ev := range seq.Events() {
				frames = append(frames, ev.Frame)
			}
			assert.Equal(t, test.frames, frames)
		})
	}
}

func TestDecode(t *testing.T) {
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(96)
	var tr smf.Track
	tr.Add(0, smf.MetaTempo(90))
	tr.Add(0, midi.NoteOn(2, 48, 90))
	tr.Close(384)
	require.NoError(t, s.Add(tr))
	var buf bytes.Buffer
	_, err := s.WriteTo(&buf)
	require.NoError(t, err)

	seq, err := midifile.Decode(&buf)
	require.NoError(t, err)
	require.Len(t, seq.Events(), 1)
	var ch, key, vel uint8
	assert.True(t, seq.Events()[0].Message.GetNoteOn(&ch, &key, &vel))
	assert.Equal(t, uint8(2), ch)
	assert.Equal(t, uint8(48), key)
	assert.Equal(t, 4.0, seq.Beats())
}

func TestErrors(t *testing.T) {
	_, err := midifile.Load(filepath.Join(t.TempDir(), "missing.mid"))
	assert.Error(t, err)
	_, err = midifile.Decode(bytes.NewReader([]byte("not a midi file")))
	assert.Error(t, err)
}
