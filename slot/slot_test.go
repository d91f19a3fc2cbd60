package slot_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"pipelined.dev/clip"
	"pipelined.dev/clip/host"
	"pipelined.dev/clip/log"
	"pipelined.dev/clip/metric"
	"pipelined.dev/clip/mock"
	"pipelined.dev/clip/signal"
	"pipelined.dev/clip/slot"
	"pipelined.dev/clip/source"
	"pipelined.dev/clip/supply"
	"pipelined.dev/clip/timeline"
)

const (
	sampleRate = 48000.0
	blockSize  = 480
)

var errMissing = errors.New("missing")

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// rig drives slots with a mixer the way a device would.
type rig struct {
	tl     *timeline.Steady
	mixer  *host.Mixer
	out    signal.Float64
	events *supply.EventList
}

func newRig(t *testing.T, numChannels int) *rig {
	t.Helper()
	tl := timeline.NewSteady()
	tl.Start()
	m, err := host.NewMixer(host.Format{
		SampleRate:  sampleRate,
		NumChannels: numChannels,
		BlockSize:   blockSize,
	}, tl, host.WithLogger(log.Discard()))
	require.NoError(t, err)
	return &rig{
		tl:     tl,
		mixer:  m,
		out:    signal.EmptyFloat64(numChannels, blockSize),
		events: supply.NewEventList(256),
	}
}

func (r *rig) process(n int) {
	for i := 0; i < n; i++ {
		r.mixer.Process(r.out, r.events)
	}
}

func loader(path string) (source.Source, error) {
	if path == "missing.wav" {
		return nil, errMissing
	}
	return mock.Ramp(int(sampleRate), 1, sampleRate), nil
}

func newSlot(e host.Engager, tl timeline.Timeline) *slot.Slot {
	return slot.New(0, e, tl,
		slot.WithLoader(slot.LoaderFunc(loader)),
		slot.WithLogger(log.Discard()),
	)
}

func clipState(t *testing.T, s *slot.Slot) clip.State {
	t.Helper()
	var st clip.State
	require.NoError(t, s.Register().With(func(c *clip.Clip) error {
		st = c.State()
		return nil
	}))
	return st
}

func TestEmptySlot(t *testing.T) {
	e := &mock.Engager{}
	s := newSlot(e, timeline.NewSteady())

	assert.ErrorIs(t, s.Play(s.PlayOptions()), slot.ErrEmpty)
	assert.False(t, s.SourceLoaded())
	assert.Equal(t, slot.Stopped, s.PlayState())
	assert.NoError(t, s.Stop(slot.Immediately))
	assert.NoError(t, s.Pause())
	assert.ErrorIs(t, s.Record(slot.Overdub), slot.ErrEmpty)
	assert.ErrorIs(t, s.SetTempoFactor(2), slot.ErrNoSource)
	assert.Equal(t, 1.0, s.TempoFactor())
	_, err := s.ProportionalPosition()
	assert.ErrorIs(t, err, slot.ErrNoSource)
	_, err = s.Info()
	assert.ErrorIs(t, err, slot.ErrNoSource)
	_, ok := s.Poll()
	assert.False(t, ok)

	engages, _ := e.Calls()
	assert.Equal(t, 0, engages)
}

func TestPlay(t *testing.T) {
	r := newRig(t, 1)
	s := newSlot(r.mixer, r.tl)
	require.NoError(t, s.Fill("ramp.wav"))
	assert.True(t, s.SourceLoaded())
	assert.Equal(t, "ramp.wav", s.Descriptor().Content)

	require.NoError(t, s.Play(s.PlayOptions()))
	assert.True(t, r.mixer.Engaged(s.Register().ID()))
	e, ok := s.Poll()
	assert.True(t, ok)
	assert.Equal(t, slot.PlayStateChanged, e.Kind)
	assert.Equal(t, slot.ScheduledForPlay, e.PlayState)

	r.process(1)
	assert.Equal(t, 1.0, r.out[0][0])
	assert.Equal(t, 480.0, r.out[0][479])
	e, _ = s.Poll()
	assert.Equal(t, slot.PlayStateChanged, e.Kind)
	assert.Equal(t, slot.Playing, e.PlayState)

	e, _ = s.Poll()
	assert.Equal(t, slot.PositionChanged, e.Kind)
	assert.InDelta(t, 0.01, e.Position, 1e-9)
	pos, err := s.Position()
	assert.NoError(t, err)
	assert.Equal(t, 10*time.Millisecond, pos)

	info, err := s.Info()
	assert.NoError(t, err)
	assert.Equal(t, source.Audio, info.Kind)
	assert.Equal(t, time.Second, info.Length)

	require.NoError(t, s.Clear())
	assert.False(t, r.mixer.Engaged(s.Register().ID()))
	assert.NoError(t, r.mixer.Close())
}

func TestEngagement(t *testing.T) {
	e := &mock.Engager{Fail: true}
	s := newSlot(e, timeline.NewSteady())
	require.NoError(t, s.Fill("ramp.wav"))

	err := s.Play(s.PlayOptions())
	assert.ErrorIs(t, err, mock.ErrUnavailable)
	assert.True(t, s.SourceLoaded())
	assert.Equal(t, slot.ScheduledForPlay, s.PlayState(), "clip stays scheduled")

	e.Fail = false
	assert.NoError(t, s.Play(s.PlayOptions()))
	assert.NoError(t, s.Play(s.PlayOptions()))
	engages, _ := e.Calls()
	assert.Equal(t, 2, engages, "engaged once after failure")
	_, ok := e.Engaged(s.Register().ID())
	assert.True(t, ok)

	_, err = s.Reset()
	assert.NoError(t, err)
	_, disengages := e.Calls()
	assert.Equal(t, 1, disengages)
}

func TestLoad(t *testing.T) {
	tests := []struct {
		description string
		descriptor  slot.Descriptor
		loaded      bool
		err         error
	}{
		{
			description: "content",
			descriptor: slot.Descriptor{
				Content: "ramp.wav",
				Repeat:  true,
				Volume:  0.5,
			},
			loaded: true,
		},
		{
			description: "missing content",
			descriptor: slot.Descriptor{
				Content: "missing.wav",
				Volume:  1,
			},
		},
		{
			description: "no content",
			descriptor: slot.Descriptor{
				Volume: 1,
			},
		},
	}
	for _, test := range tests {
		t.Run(test.description, func(t *testing.T) {
			s := newSlot(&mock.Engager{}, timeline.NewSteady())
			events, err := s.Load(test.descriptor)
			assert.NoError(t, err)
			assert.Equal(t, []slot.Event{
				{Kind: slot.PlayStateChanged, PlayState: slot.Stopped},
				{Kind: slot.VolumeChanged, Volume: test.descriptor.Volume},
				{Kind: slot.RepeatChanged, Repeat: test.descriptor.Repeat},
			}, events)
			assert.Equal(t, test.loaded, s.SourceLoaded())
			assert.Equal(t, test.descriptor.IsFilled(), s.IsFilled())
			assert.NotEmpty(t, s.Descriptor().ID)
			assert.Equal(t, test.descriptor.Volume, s.Register().Params().Volume)
		})
	}
}

func TestFillFailure(t *testing.T) {
	s := newSlot(&mock.Engager{}, timeline.NewSteady())
	require.NoError(t, s.Fill("ramp.wav"))
	assert.ErrorIs(t, s.Fill("missing.wav"), errMissing)
	assert.Equal(t, "ramp.wav", s.Descriptor().Content)
	assert.True(t, s.SourceLoaded())

	noLoader := slot.New(1, &mock.Engager{}, timeline.NewSteady(), slot.WithLogger(log.Discard()))
	assert.ErrorIs(t, noLoader.Fill("ramp.wav"), slot.ErrNoLoader)
}

func TestVolume(t *testing.T) {
	r := newRig(t, 2)
	s := newSlot(r.mixer, r.tl)
	d := slot.NewDescriptor("ramp.wav")
	d.Channel = 1
	_, err := s.Load(d)
	require.NoError(t, err)
	assert.Equal(t, slot.Event{Kind: slot.VolumeChanged, Volume: 0.5}, s.SetVolume(0.5))
	assert.Equal(t, 0.5, s.Volume())

	require.NoError(t, s.Play(s.PlayOptions()))
	r.process(1)
	assert.Equal(t, 0.0, r.out[0][1], "routed to second channel")
	assert.Equal(t, 1.0, r.out[1][1])
	assert.NoError(t, r.mixer.Close())
}

func TestPauseAndSeek(t *testing.T) {
	r := newRig(t, 1)
	s := newSlot(r.mixer, r.tl)
	require.NoError(t, s.Fill("ramp.wav"))

	_, err := s.SetProportionalPosition(0.5)
	assert.ErrorIs(t, err, clip.ErrNotStarted)

	require.NoError(t, s.Play(s.PlayOptions()))
	r.process(1)
	require.NoError(t, s.Pause())
	assert.Equal(t, slot.Paused, s.PlayState())
	assert.Equal(t, clip.Suspending, clipState(t, s).Kind)
	r.process(1)
	assert.Equal(t, clip.Paused, clipState(t, s).Kind)
	assert.InDelta(t, 0.01, clipState(t, s).Paused.Pos, 1e-9)

	events, err := s.SetProportionalPosition(0.5)
	assert.NoError(t, err)
	assert.Equal(t, []slot.Event{{Kind: slot.PositionChanged, Position: 0.5}}, events)
	assert.InDelta(t, 0.5, clipState(t, s).Paused.Pos, 1e-9)

	require.NoError(t, s.Play(s.PlayOptions()))
	events, err = s.SetProportionalPosition(0.25)
	assert.ErrorIs(t, err, clip.ErrNotStarted, "resumed clip is not started before the next block")
	assert.Empty(t, events)
	r.process(1)
	assert.Equal(t, 24001.0, r.out[0][0], "resumed from the seek position")

	events, err = s.SetProportionalPosition(0.25)
	assert.NoError(t, err)
	assert.Empty(t, events, "playing clips report position on poll")

	require.NoError(t, s.Stop(slot.Immediately))
	assert.Equal(t, slot.Stopped, s.PlayState())
	assert.NoError(t, r.mixer.Close())
}

func TestToggleRepeat(t *testing.T) {
	r := newRig(t, 1)
	s := newSlot(r.mixer, r.tl)
	require.NoError(t, s.Fill("ramp.wav"))
	assert.Equal(t, slot.Event{Kind: slot.RepeatChanged, Repeat: true}, s.ToggleRepeat())
	assert.True(t, s.RepeatEnabled())

	require.NoError(t, s.Play(s.PlayOptions()))
	// one second and a half of material
	r.process(150)
	assert.Equal(t, slot.Playing, s.PlayState())

	assert.Equal(t, slot.Event{Kind: slot.RepeatChanged, Repeat: false}, s.ToggleRepeat())
	r.process(49)
	assert.Equal(t, slot.Playing, s.PlayState(), "plays until the end of cycle")
	r.process(2)
	assert.Equal(t, slot.Stopped, s.PlayState())
	assert.NoError(t, r.mixer.Close())
}

func TestTempoFactor(t *testing.T) {
	s := newSlot(&mock.Engager{}, timeline.NewSteady())
	require.NoError(t, s.Fill("ramp.wav"))
	assert.NoError(t, s.SetTempoFactor(2))
	assert.Equal(t, 2.0, s.TempoFactor())
	assert.NoError(t, s.SetTempoFactor(0))
	assert.Equal(t, supply.MinTempoFactor, s.TempoFactor())
}

func TestRecord(t *testing.T) {
	e := &mock.Engager{}
	s := newSlot(e, timeline.NewSteady())
	require.NoError(t, s.Fill("ramp.wav"))
	assert.ErrorIs(t, s.Record(slot.Overdub), clip.ErrNotPlaying)

	require.NoError(t, s.Record(slot.Normal))
	assert.Equal(t, slot.Recording, s.PlayState())
	info, err := s.Info()
	assert.NoError(t, err)
	assert.Equal(t, source.Midi, info.Kind)
	assert.Equal(t, time.Second*2, info.Length)
	_, ok := e.Engaged(s.Register().ID())
	assert.True(t, ok)
}

func TestSuspensionCounter(t *testing.T) {
	r := newRig(t, 1)
	s := newSlot(r.mixer, r.tl)
	require.NoError(t, s.Fill("ramp.wav"))
	counter := metric.Counter(s, metric.SuspensionCounter)
	before := counter.Value()

	require.NoError(t, s.Play(s.PlayOptions()))
	r.process(1)
	require.NoError(t, s.Play(s.PlayOptions()))
	require.NoError(t, s.Play(s.PlayOptions()))
	assert.Equal(t, before+1, counter.Value(), "retrigger is idempotent")
	assert.NoError(t, r.mixer.Close())
}

func TestLockMiss(t *testing.T) {
	r := newRig(t, 1)
	s := newSlot(r.mixer, r.tl)
	require.NoError(t, s.Fill("ramp.wav"))
	require.NoError(t, s.Play(s.PlayOptions()))
	reg := s.Register()
	misses := metric.Counter(reg, metric.LockMissCounter)
	before := misses.Value()
	r.process(2)
	require.Equal(t, 2*blockSize, clipState(t, s).Playing.Pos)

	// control side catches up
	assert.NoError(t, reg.With(func(*clip.Clip) error {
		out := reg.Produce(r.tl)
		assert.Nil(t, out.Audio)
		r.tl.Advance(blockSize, sampleRate)
		return nil
	}))
	assert.Equal(t, before+1, misses.Value())
	assert.Equal(t, 3*blockSize, clipState(t, s).Playing.Pos, "in sync with the timeline")

	// real-time side catches up
	assert.NoError(t, reg.With(func(*clip.Clip) error {
		r.process(2)
		return nil
	}))
	assert.Equal(t, before+3, misses.Value())
	r.process(1)
	assert.Equal(t, 6*blockSize, clipState(t, s).Playing.Pos)
	assert.InDelta(t, 6*blockSize/sampleRate, r.tl.CursorPos(), 1e-9)

	// stopped timeline doesn't move the clip
	r.tl.Stop()
	assert.NoError(t, reg.With(func(*clip.Clip) error {
		r.process(1)
		return nil
	}))
	r.tl.Start()
	assert.Equal(t, 6*blockSize, clipState(t, s).Playing.Pos)
	assert.NoError(t, r.mixer.Close())
}
