package host_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"

	"pipelined.dev/clip/host"
	"pipelined.dev/clip/log"
	"pipelined.dev/clip/mock"
	"pipelined.dev/clip/signal"
	"pipelined.dev/clip/supply"
	"pipelined.dev/clip/timeline"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var format = host.Format{
	SampleRate:  8,
	NumChannels: 2,
	BlockSize:   4,
}

func newMixer(t *testing.T, tl host.Clock, options ...host.MixerOption) *host.Mixer {
	t.Helper()
	m, err := host.NewMixer(format, tl, append(options, host.WithLogger(log.Discard()))...)
	assert.NoError(t, err)
	return m
}

func TestMixerProcess(t *testing.T) {
	type producer struct {
		value    float64
		channels int
		route    int
	}
	tests := []struct {
		description string
		producers   []producer
		gain        float64
		expected    signal.Float64
	}{
		{
			description: "no producers",
			gain:        1,
			expected:    signal.Float64{{0, 0, 0, 0}, {0, 0, 0, 0}},
		},
		{
			description: "sum",
			producers: []producer{
				{value: 0.5, channels: 2},
				{value: 0.25, channels: 2},
			},
			gain:     1,
			expected: signal.Float64{{0.75, 0.75, 0.75, 0.75}, {0.75, 0.75, 0.75, 0.75}},
		},
		{
			description: "routes",
			producers: []producer{
				{value: 0.5, channels: 1},
				{value: 0.25, channels: 1, route: 1},
			},
			gain:     1,
			expected: signal.Float64{{0.5, 0.5, 0.5, 0.5}, {0.25, 0.25, 0.25, 0.25}},
		},
		{
			description: "channels out of range",
			producers: []producer{
				{value: 0.5, channels: 2, route: 1},
			},
			gain:     1,
			expected: signal.Float64{{0, 0, 0, 0}, {0.5, 0.5, 0.5, 0.5}},
		},
		{
			description: "gain",
			producers: []producer{
				{value: 0.5, channels: 2},
			},
			gain:     0.5,
			expected: signal.Float64{{0.25, 0.25, 0.25, 0.25}, {0.25, 0.25, 0.25, 0.25}},
		},
	}
	for _, test := range tests {
		t.Run(test.description, func(t *testing.T) {
			tl := timeline.NewSteady()
			tl.Start()
			m := newMixer(t, tl, host.WithGain(test.gain))
			for i, p := range test.producers {
				mp := mock.NewProducer(string(rune('a'+i)), p.value, p.channels)
				mp.Route = host.Route{Channel: p.route}
				assert.NoError(t, m.Engage(mp))
			}
			out := signal.EmptyFloat64(format.NumChannels, format.BlockSize)
			m.Process(out, supply.NewEventList(8))
			assert.Equal(t, test.expected, out)
			assert.Equal(t, 0.5, tl.CursorPos())
			assert.NoError(t, m.Close())
		})
	}
}

func TestMixerEngagement(t *testing.T) {
	tl := timeline.NewSteady()
	tl.Start()
	m := newMixer(t, tl)
	p := mock.NewProducer("p", 1, 2)

	assert.NoError(t, m.Engage(p))
	assert.NoError(t, m.Engage(p), "engage is idempotent")
	prepared, _ := p.Counters()
	assert.Equal(t, 1, prepared)
	assert.Equal(t, format, p.Format())
	assert.True(t, m.Engaged("p"))

	err := m.Engage(mock.NewProducer("p", 1, 2))
	assert.ErrorIs(t, err, host.ErrEngaged)

	out := signal.EmptyFloat64(format.NumChannels, format.BlockSize)
	m.Process(out, nil)
	m.Process(out, nil)
	_, produced := p.Counters()
	assert.Equal(t, 2, produced)
	assert.Equal(t, []float64{0, 0.5}, p.Cursors())

	assert.NoError(t, m.Disengage("p"))
	assert.NoError(t, m.Disengage("p"), "disengage is idempotent")
	assert.False(t, m.Engaged("p"))
	m.Process(out, nil)
	_, produced = p.Counters()
	assert.Equal(t, 2, produced)
	assert.Equal(t, signal.Float64{{0, 0, 0, 0}, {0, 0, 0, 0}}, out)
	assert.Equal(t, 1.5, tl.CursorPos())
	assert.NoError(t, m.Close())
}

func TestMixerEvents(t *testing.T) {
	tl := timeline.NewSteady()
	tl.Start()
	m := newMixer(t, tl)
	a := mock.NewProducer("a", 0, 1)
	a.Events = []supply.Event{{Frame: 1}, {Frame: 2}}
	b := mock.NewProducer("b", 0, 1)
	b.Events = []supply.Event{{Frame: 3}}
	assert.NoError(t, m.Engage(a))
	assert.NoError(t, m.Engage(b))

	events := supply.NewEventList(2)
	m.Process(signal.EmptyFloat64(format.NumChannels, format.BlockSize), events)
	assert.Equal(t, 2, events.Len())
	assert.Equal(t, 1, events.Dropped())
	assert.NoError(t, m.Close())
}

func TestMixerClose(t *testing.T) {
	errClose := errors.New("close failed")
	m := newMixer(t, timeline.NewSteady())
	a := mock.NewProducer("a", 0, 1)
	b := mock.NewProducer("b", 0, 1)
	b.CloseErr = errClose
	assert.NoError(t, m.Engage(a))
	assert.NoError(t, m.Engage(b))

	err := m.Close()
	assert.ErrorIs(t, err, errClose)
	assert.True(t, a.Closed())
	assert.True(t, b.Closed())
	assert.False(t, m.Engaged("a"))
	assert.ErrorIs(t, m.Engage(a), host.ErrClosed)
	assert.NoError(t, m.Close())
}

func TestInvalidFormat(t *testing.T) {
	_, err := host.NewMixer(host.Format{SampleRate: 44100}, timeline.NewSteady())
	assert.ErrorIs(t, err, host.ErrInvalidFormat)
}

type recorder struct {
	blocks []int
	data   signal.Float64
	events []int
	fail   error
}

func (r *recorder) Write(b signal.Float64) error {
	if r.fail != nil {
		return r.fail
	}
	r.blocks = append(r.blocks, b.Size())
	r.data = r.data.Append(b)
	return nil
}

func (r *recorder) WriteEvents(offset int, events []supply.Event) error {
	for _, e := range events {
		r.events = append(r.events, offset+e.Frame)
	}
	return nil
}

func TestRender(t *testing.T) {
	errWrite := errors.New("write failed")
	tests := []struct {
		description string
		duration    time.Duration
		fail        error
		blocks      []int
		rendered    int
		events      []int
		err         error
	}{
		{
			description: "truncated last block",
			duration:    time.Second + 250*time.Millisecond,
			blocks:      []int{4, 4, 2},
			rendered:    10,
			events:      []int{1, 5, 9},
		},
		{
			description: "whole blocks",
			duration:    time.Second,
			blocks:      []int{4, 4},
			rendered:    8,
			events:      []int{1, 5},
		},
		{
			description: "sink error",
			duration:    time.Second,
			fail:        errWrite,
			err:         errWrite,
		},
	}
	for _, test := range tests {
		t.Run(test.description, func(t *testing.T) {
			tl := timeline.NewSteady()
			tl.Start()
			m := newMixer(t, tl)
			p := mock.NewProducer("p", 0.5, 2)
			p.Events = []supply.Event{{Frame: 1}}
			assert.NoError(t, m.Engage(p))

			r := &recorder{fail: test.fail}
			rendered, err := host.Render(context.Background(), m, test.duration, r)
			assert.ErrorIs(t, err, test.err)
			assert.Equal(t, test.rendered, rendered)
			assert.Equal(t, test.blocks, r.blocks)
			assert.Equal(t, test.events, r.events)
			if test.err == nil {
				assert.Equal(t, test.rendered, r.data.Size())
			}
			assert.NoError(t, m.Close())
		})
	}
}

func TestRenderCancel(t *testing.T) {
	tl := timeline.NewSteady()
	tl.Start()
	m := newMixer(t, tl)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rendered, err := host.Render(ctx, m, time.Second, &recorder{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, rendered)
}
