// Package timeline provides the project timeline clips are scheduled
// against. Positions are absolute and measured in seconds.
package timeline

import (
	"math"
	"sort"
	"sync/atomic"
)

const (
	// DefaultTempo is the tempo of a new timeline in bpm.
	DefaultTempo = 120.0
	// DefaultBeatsPerBar is the bar length of a new timeline.
	DefaultBeatsPerBar = 4
	// DefaultResolution is the number of cursor steps per second.
	DefaultResolution = 48000.0
	// MinTempo is the lowest tempo the timeline accepts.
	MinTempo = 1.0

	barEpsilon = 1e-9
)

// Timeline is the clock clips follow. Implementations must be safe to call
// from the real-time context.
type Timeline interface {
	// CursorPos returns current position.
	CursorPos() float64
	// TempoAt returns the tempo at position in bpm.
	TempoAt(pos float64) float64
	// NextBarAt returns the start of the first bar at or after pos.
	NextBarAt(pos float64) float64
	// IsRunning reports if the cursor is advancing.
	IsRunning() bool
}

// Moment is a snapshot of timeline values at the cursor, taken by the
// control context when it issues a command.
type Moment struct {
	Cursor  float64
	Tempo   float64
	NextBar float64
}

// MomentOf returns the moment at current position of the timeline.
func MomentOf(tl Timeline) Moment {
	cursor := tl.CursorPos()
	return Moment{
		Cursor:  cursor,
		Tempo:   tl.TempoAt(cursor),
		NextBar: tl.NextBarAt(cursor),
	}
}

// segment is a part of timeline with constant tempo.
type segment struct {
	start float64
	beat  float64
	bpm   float64
}

// tempoMap is sorted by start, the first segment starts at zero.
type tempoMap []segment

func (m tempoMap) at(pos float64) segment {
	i := sort.Search(len(m), func(i int) bool {
		return m[i].start > pos
	})
	return m[max(i-1, 0)]
}

func (m tempoMap) atBeat(beat float64) segment {
	i := sort.Search(len(m), func(i int) bool {
		return m[i].beat > beat
	})
	return m[max(i-1, 0)]
}

func (s segment) beatAt(pos float64) float64 {
	return s.beat + (pos-s.start)*s.bpm/60
}

func (s segment) timeAt(beat float64) float64 {
	return s.start + (beat-s.beat)*60/s.bpm
}

// Option configures a steady timeline.
type Option func(*Steady)

// WithTempo sets the initial tempo.
func WithTempo(bpm float64) Option {
	return func(s *Steady) {
		s.tempo.Store(&tempoMap{{bpm: clampTempo(bpm)}})
	}
}

// WithBeatsPerBar sets the bar length.
func WithBeatsPerBar(beats int) Option {
	return func(s *Steady) {
		s.beatsPerBar = max(beats, 1)
	}
}

// WithResolution sets the number of cursor steps per second. Cursor
// advances are rounded to steps, so block sizes that are whole steps never
// accumulate rounding errors.
func WithResolution(steps float64) Option {
	return func(s *Steady) {
		s.resolution = steps
	}
}

// Steady is a timeline driven by the blocks it is advanced with. It has a
// tempo map that can be changed while the timeline is running.
type Steady struct {
	beatsPerBar int
	resolution  float64
	cursor      atomic.Int64
	running     atomic.Bool
	tempo       atomic.Pointer[tempoMap]
}

// NewSteady returns stopped timeline at position zero.
func NewSteady(options ...Option) *Steady {
	s := &Steady{
		beatsPerBar: DefaultBeatsPerBar,
		resolution:  DefaultResolution,
	}
	s.tempo.Store(&tempoMap{{bpm: DefaultTempo}})
	for _, option := range options {
		option(s)
	}
	return s
}

// CursorPos returns current position.
func (s *Steady) CursorPos() float64 {
	return float64(s.cursor.Load()) / s.resolution
}

// TempoAt returns the tempo at position.
func (s *Steady) TempoAt(pos float64) float64 {
	return s.tempo.Load().at(pos).bpm
}

// BeatAt returns the beat at position.
func (s *Steady) BeatAt(pos float64) float64 {
	return s.tempo.Load().at(pos).beatAt(pos)
}

// TimeAtBeat returns the position of the beat.
func (s *Steady) TimeAtBeat(beat float64) float64 {
	return s.tempo.Load().atBeat(beat).timeAt(beat)
}

// BeatsPerBar returns the bar length.
func (s *Steady) BeatsPerBar() int {
	return s.beatsPerBar
}

// NextBarAt returns the start of the first bar at or after pos. A position
// within barEpsilon beats past a bar line is on that bar.
func (s *Steady) NextBarAt(pos float64) float64 {
	m := *s.tempo.Load()
	beat := m.at(pos).beatAt(pos)
	bpb := float64(s.beatsPerBar)
	bar := math.Ceil((beat-barEpsilon)/bpb) * bpb
	return m.atBeat(bar).timeAt(bar)
}

// IsRunning reports if the timeline is advanced by blocks.
func (s *Steady) IsRunning() bool {
	return s.running.Load()
}

// Start makes the timeline advance.
func (s *Steady) Start() {
	s.running.Store(true)
}

// Stop makes the timeline stop at current position.
func (s *Steady) Stop() {
	s.running.Store(false)
}

// Jump moves the cursor. Negative positions are clamped to zero.
func (s *Steady) Jump(pos float64) {
	s.cursor.Store(int64(math.Round(max(pos, 0) * s.resolution)))
}

// Advance moves the cursor by the duration of frames if the timeline is
// running.
func (s *Steady) Advance(frames int, sampleRate float64) {
	if !s.IsRunning() || sampleRate <= 0 {
		return
	}
	s.cursor.Add(int64(math.Round(float64(frames) * s.resolution / sampleRate)))
}

// SetTempo changes the tempo from current position on.
func (s *Steady) SetTempo(bpm float64) {
	s.SetTempoAt(s.CursorPos(), bpm)
}

// SetTempoAt changes the tempo from pos on. Tempo changes after pos are
// discarded.
func (s *Steady) SetTempoAt(pos float64, bpm float64) {
	pos = max(pos, 0)
	bpm = clampTempo(bpm)
	for {
		old := s.tempo.Load()
		current := old.at(pos)
		m := make(tempoMap, 0, len(*old)+1)
		for _, seg := range *old {
			if seg.start >= pos {
				break
			}
			m = append(m, seg)
		}
		m = append(m, segment{
			start: pos,
			beat:  current.beatAt(pos),
			bpm:   bpm,
		})
		if s.tempo.CompareAndSwap(old, &m) {
			return
		}
	}
}

func clampTempo(bpm float64) float64 {
	if math.IsNaN(bpm) || bpm < MinTempo {
		return MinTempo
	}
	return bpm
}
