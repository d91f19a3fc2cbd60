package source

import (
	"pipelined.dev/clip/signal"
	"pipelined.dev/clip/supply"
)

// AudioOption configures audio material.
type AudioOption func(*PCM)

// WithTempo sets the nominal tempo of audio material. Non-positive values
// are ignored.
func WithTempo(bpm float64) AudioOption {
	return func(p *PCM) {
		if bpm > 0 {
			p.tempo = bpm
		}
	}
}

// PCM is decoded audio material. Frames outside of material are silent.
//
// PCM expects requests at its own frame rate, rate conversion is done by the
// stretcher of the supply chain.
type PCM struct {
	data  signal.Float64
	rate  float64
	tempo float64
}

// NewPCM wraps the decoded data. Its tempo is supply.MidiBaseBPM unless
// WithTempo is used.
func NewPCM(data signal.Float64, sampleRate float64, options ...AudioOption) *PCM {
	p := &PCM{
		data:  data,
		rate:  sampleRate,
		tempo: supply.MidiBaseBPM,
	}
	for _, option := range options {
		option(p)
	}
	return p
}

// Kind returns Audio.
func (p *PCM) Kind() Kind {
	return Audio
}

// Tempo returns the nominal tempo.
func (p *PCM) Tempo() float64 {
	return p.tempo
}

// Data returns the material. It must not be modified.
func (p *PCM) Data() signal.Float64 {
	return p.data
}

// FrameCount returns the number of frames.
func (p *PCM) FrameCount() int {
	return p.data.Size()
}

// FrameRate returns the sample rate.
func (p *PCM) FrameRate() float64 {
	return p.rate
}

// NumChannels returns the number of channels.
func (p *PCM) NumChannels() int {
	return p.data.NumChannels()
}

// SupplyAudio copies frames into dst. Mono material is copied to every
// channel of dst.
func (p *PCM) SupplyAudio(req supply.Request, dst signal.Float64) supply.Response {
	n := dst.Size()
	length := p.FrameCount()
	from, to := max(req.StartFrame, 0), min(req.StartFrame+n, length)
	if from >= to || len(p.data) == 0 {
		dst.Clear(0, n)
	} else {
		dst.Clear(0, from-req.StartFrame)
		dst.Clear(to-req.StartFrame, n)
		for c := range dst {
			copy(dst[c][from-req.StartFrame:], p.data[c%len(p.data)][from:to])
		}
	}
	return response(req.StartFrame, n, n, length, func(frames int) int { return frames })
}

// SupplyMidi produces no events.
func (p *PCM) SupplyMidi(req supply.Request, events *supply.EventList) supply.Response {
	ideal := signal.ConvertFrames(req.DestFrames, req.DestSampleRate, p.rate)
	return response(req.StartFrame, ideal, req.DestFrames, p.FrameCount(), func(frames int) int {
		return signal.ConvertFrames(frames, p.rate, req.DestSampleRate)
	})
}
