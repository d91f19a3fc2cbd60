package source

import (
	"sort"

	"pipelined.dev/clip/signal"
	"pipelined.dev/clip/supply"
)

// Sequence is MIDI material. Event frames are at supply.MidiFrameRate, so
// one beat at the nominal tempo is supply.MidiFramesPerBeat frames.
type Sequence struct {
	events []supply.Event
	length int
}

// NewSequence returns a sequence of length frames. Events are sorted by
// frame, the order of events on the same frame is kept.
func NewSequence(events []supply.Event, length int) *Sequence {
	sorted := make([]supply.Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Frame < sorted[j].Frame
	})
	return &Sequence{
		events: sorted,
		length: max(length, 0),
	}
}

// BeatsToFrames converts beats to sequence frames.
func BeatsToFrames(beats float64) int {
	return int(beats*supply.MidiFramesPerBeat + 0.5)
}

// Kind returns Midi.
func (s *Sequence) Kind() Kind {
	return Midi
}

// Tempo returns the nominal MIDI tempo.
func (s *Sequence) Tempo() float64 {
	return supply.MidiBaseBPM
}

// Beats returns the length in beats.
func (s *Sequence) Beats() float64 {
	return float64(s.length) / supply.MidiFramesPerBeat
}

// Events returns the events. The slice must not be modified.
func (s *Sequence) Events() []supply.Event {
	return s.events
}

// FrameCount returns the length in frames.
func (s *Sequence) FrameCount() int {
	return s.length
}

// FrameRate returns supply.MidiFrameRate.
func (s *Sequence) FrameRate() float64 {
	return supply.MidiFrameRate
}

// NumChannels returns zero, sequence has no audio.
func (s *Sequence) NumChannels() int {
	return 0
}

// SupplyAudio silences dst.
func (s *Sequence) SupplyAudio(req supply.Request, dst signal.Float64) supply.Response {
	n := dst.Size()
	dst.Clear(0, n)
	return response(req.StartFrame, n, n, s.length, func(frames int) int { return frames })
}

// SupplyMidi adds events of the requested frames.
func (s *Sequence) SupplyMidi(req supply.Request, events *supply.EventList) supply.Response {
	ideal := signal.ConvertFrames(req.DestFrames, req.DestSampleRate, supply.MidiFrameRate)
	convert := func(frames int) int {
		return signal.ConvertFrames(frames, supply.MidiFrameRate, req.DestSampleRate)
	}
	from, to := max(req.StartFrame, 0), min(req.StartFrame+ideal, s.length)
	i := sort.Search(len(s.events), func(i int) bool {
		return s.events[i].Frame >= from
	})
	last := max(req.DestFrames-1, 0)
	for ; i < len(s.events) && s.events[i].Frame < to; i++ {
		frame := min(convert(s.events[i].Frame-req.StartFrame), last)
		events.Add(req.BlockOffset+frame, s.events[i].Message)
	}
	return response(req.StartFrame, ideal, req.DestFrames, s.length, convert)
}
