// Package slot manages the lifecycle of clips played by a host.
//
// A Slot owns the shared playback handle of one clip and its engagement
// with the host. Commands are applied with a take, compute and put back
// protocol: the current state is taken out of the slot, the transition is
// computed and either the new state or, on failure, the prior state is put
// back together with an error. Slots are not safe for concurrent use, use
// a Matrix to share them between goroutines.
package slot

import (
	"errors"
	"expvar"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"

	"pipelined.dev/clip"
	"pipelined.dev/clip/host"
	"pipelined.dev/clip/log"
	"pipelined.dev/clip/metric"
	"pipelined.dev/clip/source"
	"pipelined.dev/clip/timeline"
)

type stateKind int

const (
	empty stateKind = iota
	filled
	transitioning
)

// state is the internal state of a slot. filled is only meaningful if kind
// is filled.
type state struct {
	kind   stateKind
	filled filledState
}

type filledState struct {
	// lastPlayState is the play state reported by the last poll.
	lastPlayState ClipPlayState
	// engaged is set once the register is engaged with the host.
	engaged bool
	// lastPlay is nil until the clip is played for the first time.
	lastPlay *PlayOptions
	// stoppedByTransport is set if the clip was stopped by a transport
	// change and should be replayed when transport starts.
	stoppedByTransport bool
}

// PlayOptions define how the clip is started.
type PlayOptions struct {
	// NextBar synchronizes start with the timeline.
	NextBar bool
}

// StopBehavior defines how the clip is stopped.
type StopBehavior int

const (
	// Immediately stops the clip with a short fade.
	Immediately StopBehavior = iota
	// EndOfClip stops the clip at the end of current cycle.
	EndOfClip
)

// RecordKind defines what is recorded.
type RecordKind int

const (
	// Normal replaces the content with an empty MIDI sequence of one bar
	// and starts recording into it.
	Normal RecordKind = iota
	// Overdub records into the playing clip.
	Overdub
)

// Option configures a slot.
type Option func(*Slot)

// WithLoader sets the loader of content paths.
func WithLoader(l Loader) Option {
	return func(s *Slot) {
		s.loader = l
	}
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(s *Slot) {
		s.logger = l
	}
}

// WithClipOptions sets options of every clip created by the slot.
func WithClipOptions(options ...clip.Option) Option {
	return func(s *Slot) {
		s.clipOptions = append(s.clipOptions, options...)
	}
}

// WithEventCapacity sets the number of MIDI events produced per block.
func WithEventCapacity(capacity int) Option {
	return func(s *Slot) {
		s.eventCapacity = capacity
	}
}

// Slot is a playable clip slot.
type Slot struct {
	index         int
	descriptor    Descriptor
	register      *Register
	state         state
	engager       host.Engager
	timeline      timeline.Timeline
	loader        Loader
	clipOptions   []clip.Option
	eventCapacity int
	logger        log.Logger
	log           *logrus.Entry
	suspensions   *expvar.Int
}

// New returns an empty slot. Registers are engaged with the engager on
// first play.
func New(index int, engager host.Engager, tl timeline.Timeline, options ...Option) *Slot {
	s := &Slot{
		index:         index,
		descriptor:    NewDescriptor(""),
		engager:       engager,
		timeline:      tl,
		eventCapacity: DefaultEventCapacity,
		logger:        log.GetLogger(),
	}
	for _, option := range options {
		option(s)
	}
	s.log = s.logger.WithField("slot", index)
	s.register = NewRegister(tl, s.descriptor.params(), s.eventCapacity)
	s.suspensions = metric.Counter(s, metric.SuspensionCounter)
	return s
}

// Index returns the index of the slot.
func (s *Slot) Index() int {
	return s.index
}

// Descriptor returns the slot settings.
func (s *Slot) Descriptor() Descriptor {
	return s.descriptor
}

// Register returns the shared playback handle.
func (s *Slot) Register() *Register {
	return s.register
}

// Reset empties the slot and restores default settings. Playback is
// stopped.
func (s *Slot) Reset() ([]Event, error) {
	if err := s.startLoad(NewDescriptor("")); err != nil {
		return nil, err
	}
	return s.loadEvents(), nil
}

// Load applies all settings of the descriptor and loads its content.
// Playback is stopped. Content that can't be loaded is reported in log,
// the descriptor is kept.
func (s *Slot) Load(d Descriptor) ([]Event, error) {
	if d.ID == "" {
		d.ID = xid.New().String()
	}
	if err := s.startLoad(d); err != nil {
		return nil, err
	}
	if d.IsFilled() {
		if err := s.loadContent(d.Content); err != nil {
			s.log.WithField("content", d.Content).Warn(err)
		}
	}
	return s.loadEvents(), nil
}

// startLoad clears the slot and creates a new register, so nothing of the
// previous clip has to be cleaned up.
func (s *Slot) startLoad(d Descriptor) error {
	if err := s.Clear(); err != nil {
		return err
	}
	s.register = NewRegister(s.timeline, d.params(), s.eventCapacity)
	s.descriptor = d
	s.log = s.logger.WithField("slot", s.index).WithField("clip", d.ID)
	return nil
}

func (s *Slot) loadEvents() []Event {
	return []Event{
		playStateEvent(s.PlayState()),
		volumeEvent(s.descriptor.Volume),
		repeatEvent(s.descriptor.Repeat),
	}
}

func (s *Slot) loadContent(path string) error {
	if s.loader == nil {
		return ErrNoLoader
	}
	src, err := s.loader.Load(path)
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return s.FillWithSource(src)
}

// Fill loads the content into the slot. The descriptor keeps the path only
// if content was loaded.
func (s *Slot) Fill(path string) error {
	if err := s.loadContent(path); err != nil {
		return err
	}
	s.descriptor.Content = path
	return nil
}

// FillWithSource replaces the source of the slot.
func (s *Slot) FillWithSource(src source.Source) error {
	return s.finish(s.fillWithSource(s.start(), src))
}

// IsFilled reports if the descriptor has content.
func (s *Slot) IsFilled() bool {
	return s.descriptor.IsFilled()
}

// SourceLoaded reports if the slot has a source. A filled slot might have
// no source if its content couldn't be loaded.
func (s *Slot) SourceLoaded() bool {
	return s.state.kind == filled
}

// Info returns static information about the clip.
func (s *Slot) Info() (Info, error) {
	var info Info
	err := s.register.With(func(c *clip.Clip) error {
		info = Info{
			Kind:   c.Source().Kind(),
			Path:   s.descriptor.Content,
			Length: c.NativeLength(),
		}
		return nil
	})
	return info, err
}

// Poll detects play state changes of the clip. It returns a play state
// event if the state has changed since the last poll and a position event
// otherwise. Empty slots produce no events. Poll must be called
// regularly.
func (s *Slot) Poll() (Event, bool) {
	next, e, ok := s.poll(s.start())
	s.state = next
	return e, ok
}

// PlayState returns the play state of the clip.
func (s *Slot) PlayState() ClipPlayState {
	ps := Stopped
	_ = s.register.With(func(c *clip.Clip) error {
		ps = playStateOf(c.State())
		return nil
	})
	return ps
}

// PlayOptions returns play options of the descriptor.
func (s *Slot) PlayOptions() PlayOptions {
	return PlayOptions{NextBar: s.descriptor.NextBar}
}

// Play starts the clip immediately or at the next bar. The register is
// engaged with the host on the first play. If engagement fails, the clip
// stays scheduled but silent until the next play.
func (s *Slot) Play(opts PlayOptions) error {
	return s.finish(s.play(s.start(), opts, timeline.MomentOf(s.timeline)))
}

// Stop stops the clip.
func (s *Slot) Stop(b StopBehavior) error {
	return s.finish(s.stop(s.start(), b, false, timeline.MomentOf(s.timeline)))
}

// Pause pauses the clip.
func (s *Slot) Pause() error {
	return s.finish(s.pause(s.start(), timeline.MomentOf(s.timeline)))
}

// Record starts recording. Normal recording replaces the content with an
// empty MIDI sequence of one bar and plays it.
func (s *Slot) Record(kind RecordKind) error {
	if kind == Normal {
		if err := s.Clear(); err != nil {
			return err
		}
		seq := source.NewSequence(nil, source.BeatsToFrames(timeline.DefaultBeatsPerBar))
		if err := s.FillWithSource(seq); err != nil {
			return err
		}
		if err := s.Play(PlayOptions{}); err != nil {
			return err
		}
	}
	return s.finish(s.record(s.start(), timeline.MomentOf(s.timeline)))
}

// Clear stops the playback and removes the source.
func (s *Slot) Clear() error {
	return s.finish(s.clear(s.start()))
}

// ToggleRepeat toggles repeat of the clip. Clip that is not repeated
// anymore stops at the end of current cycle.
func (s *Slot) ToggleRepeat() Event {
	s.descriptor.Repeat = !s.descriptor.Repeat
	repeat := s.descriptor.Repeat
	_ = s.register.With(func(c *clip.Clip) error {
		c.SetRepeated(repeat)
		return nil
	})
	return repeatEvent(repeat)
}

// RepeatEnabled reports if the clip is repeated.
func (s *Slot) RepeatEnabled() bool {
	return s.descriptor.Repeat
}

// Volume returns the linear volume of the clip.
func (s *Slot) Volume() float64 {
	return s.descriptor.Volume
}

// SetVolume sets the linear volume of the clip.
func (s *Slot) SetVolume(v float64) Event {
	s.descriptor.Volume = v
	s.register.SetParams(s.descriptor.params())
	return volumeEvent(v)
}

// TempoFactor returns the manual tempo factor of the clip. Slots without
// a source return 1.
func (s *Slot) TempoFactor() float64 {
	factor := 1.0
	_ = s.register.With(func(c *clip.Clip) error {
		factor = c.TempoFactor()
		return nil
	})
	return factor
}

// SetTempoFactor sets the manual tempo factor of the clip.
func (s *Slot) SetTempoFactor(factor float64) error {
	return s.register.With(func(c *clip.Clip) error {
		c.SetTempoFactor(factor)
		return nil
	})
}

// ProportionalPosition returns the position within the clip between 0
// and 1.
func (s *Slot) ProportionalPosition() (float64, error) {
	var pos float64
	tempo := s.tempo()
	err := s.register.With(func(c *clip.Clip) error {
		pos = c.ProportionalPosition(tempo)
		return nil
	})
	return pos, err
}

// Position returns the position within the clip.
func (s *Slot) Position() (time.Duration, error) {
	var pos time.Duration
	tempo := s.tempo()
	err := s.register.With(func(c *clip.Clip) error {
		pos, _ = c.Position(tempo)
		return nil
	})
	return pos, err
}

// SetProportionalPosition seeks the clip. A position event is only
// returned if the clip is paused, playing clips report positions on poll.
func (s *Slot) SetProportionalPosition(pos float64) ([]Event, error) {
	var events []Event
	m := timeline.MomentOf(s.timeline)
	err := s.register.With(func(c *clip.Clip) error {
		wasPaused := c.State().Kind == clip.Paused
		if err := c.SeekTo(clip.SeekArgs{Moment: m, Position: pos}); err != nil {
			return err
		}
		if wasPaused {
			events = append(events, positionEvent(min(max(pos, 0), 1)))
		}
		return nil
	})
	return events, err
}

func (s *Slot) tempo() float64 {
	return s.timeline.TempoAt(s.timeline.CursorPos())
}

// start takes the state out of the slot.
func (s *Slot) start() state {
	st := s.state
	s.state = state{kind: transitioning}
	return st
}

// finish puts the state back.
func (s *Slot) finish(st state, err error) error {
	s.state = st
	return err
}

// command applies fn to the clip and counts started suspensions.
func (s *Slot) command(fn func(*clip.Clip) error) error {
	return s.register.With(func(c *clip.Clip) error {
		before := c.State().Kind
		err := fn(c)
		if before != clip.Suspending && c.State().Kind == clip.Suspending {
			s.suspensions.Add(1)
		}
		return err
	})
}

func (s *Slot) fillWithSource(st state, src source.Source) (state, error) {
	c := clip.New(src, s.clipOptions...)
	c.SetRepeated(s.descriptor.Repeat)
	s.register.Set(c)
	s.log.WithField("kind", src.Kind()).Debug("filled")
	if st.kind == filled {
		return st, nil
	}
	return state{kind: filled, filled: filledState{lastPlayState: Stopped}}, nil
}

func (s *Slot) poll(st state) (state, Event, bool) {
	if st.kind != filled {
		return st, Event{}, false
	}
	var (
		ps    ClipPlayState
		pos   float64
		tempo = s.tempo()
	)
	err := s.register.With(func(c *clip.Clip) error {
		ps = playStateOf(c.State())
		pos = c.ProportionalPosition(tempo)
		return nil
	})
	if err != nil {
		return st, Event{}, false
	}
	e := positionEvent(pos)
	if ps != st.filled.lastPlayState {
		s.log.WithField("state", ps).Debug("play state changed")
		e = playStateEvent(ps)
	}
	st.filled.lastPlayState = ps
	return st, e, true
}

func (s *Slot) play(st state, opts PlayOptions, m timeline.Moment) (state, error) {
	if st.kind != filled {
		return st, ErrEmpty
	}
	args := clip.PlayArgs{
		Moment:     m,
		StartTime:  clip.Immediately,
		Repetition: clip.Once,
	}
	if opts.NextBar {
		args.StartTime = clip.NextBar
	}
	if s.descriptor.Repeat {
		args.Repetition = clip.Infinitely
	}
	if err := s.command(func(c *clip.Clip) error { return c.Play(args) }); err != nil {
		return st, err
	}
	f := st.filled
	if !f.engaged {
		if err := s.engager.Engage(s.register); err != nil {
			s.log.WithField("route", s.descriptor.Channel).Warn(err)
			return st, fmt.Errorf("engage slot %d: %w", s.index, err)
		}
		f.engaged = true
	}
	f.lastPlay = &opts
	return state{kind: filled, filled: f}, nil
}

func (s *Slot) stop(st state, b StopBehavior, byTransport bool, m timeline.Moment) (state, error) {
	if st.kind != filled {
		return st, nil
	}
	args := clip.StopArgs{Moment: m, StopTime: clip.StopImmediately}
	if b == EndOfClip {
		args.StopTime = clip.EndOfClip
	}
	err := s.command(func(c *clip.Clip) error { return c.Stop(args) })
	if err != nil && !errors.Is(err, ErrNoSource) {
		return st, err
	}
	st.filled.stoppedByTransport = byTransport
	return st, nil
}

func (s *Slot) pause(st state, m timeline.Moment) (state, error) {
	if st.kind != filled {
		return st, nil
	}
	err := s.command(func(c *clip.Clip) error { return c.Pause(m) })
	if err != nil && !errors.Is(err, ErrNoSource) {
		return st, err
	}
	st.filled.stoppedByTransport = false
	return st, nil
}

func (s *Slot) record(st state, m timeline.Moment) (state, error) {
	if st.kind != filled {
		return st, ErrEmpty
	}
	err := s.command(func(c *clip.Clip) error {
		return c.Record(clip.RecordArgs{Moment: m})
	})
	return st, err
}

func (s *Slot) clear(st state) (state, error) {
	if st.kind != filled {
		return state{kind: empty}, nil
	}
	if st.filled.engaged {
		if err := s.engager.Disengage(s.register.ID()); err != nil {
			return st, fmt.Errorf("disengage slot %d: %w", s.index, err)
		}
	}
	s.register.Set(nil)
	s.log.Debug("cleared")
	return state{kind: empty}, nil
}
