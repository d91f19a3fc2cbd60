// Package speaker plays the mix with the beep speaker.
package speaker

import (
	"fmt"
	"math"

	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"
	"github.com/faiface/beep/speaker"

	"pipelined.dev/clip/host"
	"pipelined.dev/clip/signal"
	"pipelined.dev/clip/supply"
)

// Player streams blocks of a mixer to the speaker. The speaker pulls
// samples in its own buffer size, so blocks are processed on demand.
type Player struct {
	mixer  *host.Mixer
	out    signal.Float64
	events *supply.EventList
	pos    int
	volume *effects.Volume
}

// New returns a player of the mixer with master volume in decibels.
func New(m *host.Mixer, volume float64) *Player {
	f := m.Format()
	p := &Player{
		mixer:  m,
		out:    signal.EmptyFloat64(f.NumChannels, f.BlockSize),
		events: supply.NewEventList(0),
		pos:    f.BlockSize,
	}
	p.volume = &effects.Volume{
		Streamer: beep.StreamerFunc(p.Stream),
		Base:     10,
		Volume:   volume / 20,
	}
	return p
}

// Open initializes the speaker in the format of the mixer and starts
// playback.
func Open(m *host.Mixer, volume float64) (*Player, error) {
	f := m.Format()
	p := New(m, volume)
	sr := beep.SampleRate(int(math.Round(f.SampleRate)))
	if err := speaker.Init(sr, f.BlockSize); err != nil {
		return nil, fmt.Errorf("speaker init: %w", err)
	}
	speaker.Play(p.volume)
	return p, nil
}

// Stream fills samples with the mix. Mono mixes are played on both
// sides, channels after the second are dropped.
func (p *Player) Stream(samples [][2]float64) (int, bool) {
	size := p.out.Size()
	for i := range samples {
		if p.pos == size {
			p.mixer.Process(p.out, p.events)
			p.pos = 0
		}
		left := p.out[0][p.pos]
		right := left
		if len(p.out) > 1 {
			right = p.out[1][p.pos]
		}
		samples[i] = [2]float64{left, right}
		p.pos++
	}
	return len(samples), true
}

// SetVolume sets master volume in decibels.
func (p *Player) SetVolume(volume float64) {
	speaker.Lock()
	p.volume.Volume = volume / 20
	speaker.Unlock()
}

// Close stops playback.
func (p *Player) Close() error {
	speaker.Clear()
	return nil
}
