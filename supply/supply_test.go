package supply_test

import (
	"gitlab.com/gomidi/midi/v2"

	"pipelined.dev/clip/signal"
	"pipelined.dev/clip/supply"
)

// generator is a deterministic supplier. Audio frame f has value(f) on every
// channel, MIDI material has a note on every frame listed in notes.
type generator struct {
	value    func(frame int) float64
	frames   int
	rate     float64
	channels int
	notes    []int
	requests []supply.Request
}

// ramp returns generator where frame f has value f+1, so silence is
// distinguishable from the first frame.
func ramp(frames int, rate float64) *generator {
	return &generator{
		value:    func(f int) float64 { return float64(f + 1) },
		frames:   frames,
		rate:     rate,
		channels: 1,
	}
}

func constant(v float64, frames int, rate float64) *generator {
	return &generator{
		value:    func(int) float64 { return v },
		frames:   frames,
		rate:     rate,
		channels: 1,
	}
}

func (g *generator) SupplyAudio(req supply.Request, dst signal.Float64) supply.Response {
	g.requests = append(g.requests, req)
	n := dst.Size()
	for c := range dst {
		for i := range dst[c] {
			f := req.StartFrame + i
			if f < 0 || f >= g.frames {
				dst[c][i] = 0
				continue
			}
			dst[c][i] = g.value(f)
		}
	}
	return g.response(req.StartFrame, n, n)
}

func (g *generator) SupplyMidi(req supply.Request, events *supply.EventList) supply.Response {
	g.requests = append(g.requests, req)
	ideal := signal.ConvertFrames(req.DestFrames, req.DestSampleRate, g.rate)
	for _, f := range g.notes {
		if f < req.StartFrame || f >= req.StartFrame+ideal {
			continue
		}
		frame := signal.ConvertFrames(f-req.StartFrame, g.rate, req.DestSampleRate)
		events.Add(req.BlockOffset+frame, midi.NoteOn(0, 60, 100))
	}
	return g.response(req.StartFrame, ideal, req.DestFrames)
}

func (g *generator) response(start, ideal, dest int) supply.Response {
	if start+ideal < g.frames {
		return supply.Response{Consumed: ideal, Written: dest}
	}
	left := max(g.frames-start, 0)
	return supply.Response{
		Consumed: left,
		Written:  min(left, dest),
		Status:   supply.ReachedEnd,
	}
}

func (g *generator) FrameCount() int {
	return g.frames
}

func (g *generator) FrameRate() float64 {
	return g.rate
}

func (g *generator) NumChannels() int {
	return g.channels
}
