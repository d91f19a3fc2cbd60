// Package mock provides synthetic sources, producers and engagers to test
// clip packages.
package mock

import (
	"errors"
	"math"
	"sync"

	"gitlab.com/gomidi/midi/v2"

	"pipelined.dev/clip/host"
	"pipelined.dev/clip/signal"
	"pipelined.dev/clip/source"
	"pipelined.dev/clip/supply"
	"pipelined.dev/clip/timeline"
)

const (
	// DefaultSampleRate of synthetic sources.
	DefaultSampleRate = 48000.0
	// DefaultBlockSize of mock producers.
	DefaultBlockSize = 512
)

// ErrUnavailable is returned by failing engager.
var ErrUnavailable = errors.New("mock: host unavailable")

// Ramp returns a source where value of every frame is its index + 1.
func Ramp(frames, numChannels int, sampleRate float64, options ...source.AudioOption) *source.PCM {
	return generate(frames, numChannels, sampleRate, func(i int) float64 {
		return float64(i + 1)
	}, options...)
}

// Constant returns a source where every frame has the same value.
func Constant(value float64, frames, numChannels int, sampleRate float64, options ...source.AudioOption) *source.PCM {
	return generate(frames, numChannels, sampleRate, func(int) float64 {
		return value
	}, options...)
}

// Sine returns a sine wave source of provided frequency and amplitude.
func Sine(freq, amplitude float64, frames, numChannels int, sampleRate float64, options ...source.AudioOption) *source.PCM {
	return generate(frames, numChannels, sampleRate, func(i int) float64 {
		return amplitude * math.Sin(2*math.Pi*freq*float64(i)/sampleRate)
	}, options...)
}

func generate(frames, numChannels int, sampleRate float64, value func(int) float64, options ...source.AudioOption) *source.PCM {
	data := signal.EmptyFloat64(numChannels, frames)
	for c := range data {
		for i := range data[c] {
			data[c][i] = value(i)
		}
	}
	return source.NewPCM(data, sampleRate, options...)
}

// Notes returns a sequence with one note per beat. Every note is released
// half a beat after it's pressed.
func Notes(beats int, keys ...uint8) *source.Sequence {
	if len(keys) == 0 {
		keys = []uint8{60}
	}
	events := make([]supply.Event, 0, beats*2)
	for b := 0; b < beats; b++ {
		key := keys[b%len(keys)]
		on := source.BeatsToFrames(float64(b))
		off := source.BeatsToFrames(float64(b) + 0.5)
		events = append(events,
			supply.Event{Frame: on, Message: midi.NoteOn(0, key, 100)},
			supply.Event{Frame: off, Message: midi.NoteOff(0, key)},
		)
	}
	return source.NewSequence(events, source.BeatsToFrames(float64(beats)))
}

// Producer is a host producer that writes a constant value into every
// frame and counts calls.
type Producer struct {
	Value    float64
	Channels int
	host.Route
	Events   []supply.Event
	CloseErr error

	id       string
	mu       sync.Mutex
	format   host.Format
	prepared int
	produced int
	closed   bool
	cursors  []float64
	audio    signal.Float64
	list     *supply.EventList
}

// NewProducer returns a producer with provided id.
func NewProducer(id string, value float64, channels int) *Producer {
	return &Producer{
		id:       id,
		Value:    value,
		Channels: channels,
	}
}

// ID implements host.Producer.
func (p *Producer) ID() string {
	return p.id
}

// Prepare implements host.Producer.
func (p *Producer) Prepare(f host.Format) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.format = f
	p.prepared++
	p.audio = signal.EmptyFloat64(p.Channels, f.BlockSize)
	p.list = supply.NewEventList(len(p.Events))
}

// Produce implements host.Producer.
func (p *Producer) Produce(tl timeline.Timeline) host.Output {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.produced++
	p.cursors = append(p.cursors, tl.CursorPos())
	for c := range p.audio {
		for i := range p.audio[c] {
			p.audio[c][i] = p.Value
		}
	}
	p.list.Reset()
	for _, e := range p.Events {
		p.list.Add(e.Frame, e.Message)
	}
	return host.Output{
		Audio:  p.audio,
		Events: p.list,
		Route:  p.Route,
	}
}

// Close implements io.Closer.
func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return p.CloseErr
}

// Counters returns how many times producer was prepared and produced.
func (p *Producer) Counters() (prepared, produced int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.prepared, p.produced
}

// Format returns the last prepared format.
func (p *Producer) Format() host.Format {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.format
}

// Cursors returns timeline positions of every Produce call.
func (p *Producer) Cursors() []float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]float64(nil), p.cursors...)
}

// Closed reports if producer was closed.
func (p *Producer) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Engager records engagements. If Fail is set, every call returns
// ErrUnavailable.
type Engager struct {
	Fail bool

	mu         sync.Mutex
	engaged    map[string]host.Producer
	engages    int
	disengages int
}

// Engage implements host.Engager.
func (e *Engager) Engage(p host.Producer) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.engages++
	if e.Fail {
		return ErrUnavailable
	}
	if e.engaged == nil {
		e.engaged = make(map[string]host.Producer)
	}
	e.engaged[p.ID()] = p
	return nil
}

// Disengage implements host.Engager.
func (e *Engager) Disengage(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.disengages++
	if e.Fail {
		return ErrUnavailable
	}
	delete(e.engaged, id)
	return nil
}

// Engaged returns the producer engaged with provided id.
func (e *Engager) Engaged(id string) (host.Producer, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.engaged[id]
	return p, ok
}

// Calls returns number of Engage and Disengage calls.
func (e *Engager) Calls() (engages, disengages int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.engages, e.disengages
}
