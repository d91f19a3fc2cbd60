package host

import (
	"expvar"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/rs/xid"

	"pipelined.dev/clip/log"
	"pipelined.dev/clip/metric"
	"pipelined.dev/clip/signal"
	"pipelined.dev/clip/supply"
)

// Mixer sums up blocks of engaged producers into a single block.
//
// The list of producers is replaced on every engagement, so Process
// always sees a consistent snapshot without taking locks.
type Mixer struct {
	id     string
	log    log.Logger
	format Format
	clock  Clock
	gain   float64

	mu        sync.Mutex // serializes engagement
	producers atomic.Pointer[[]Producer]
	closed    atomic.Bool

	measure metric.MeasureFunc
	dropped *expvar.Int
}

// MixerOption configures a mixer.
type MixerOption func(*Mixer)

// WithGain sets the gain applied to the sum.
func WithGain(gain float64) MixerOption {
	return func(m *Mixer) {
		m.gain = gain
	}
}

// WithLogger sets the logger of engagement messages.
func WithLogger(l log.Logger) MixerOption {
	return func(m *Mixer) {
		m.log = l
	}
}

// NewMixer returns a mixer of provided format that advances the clock
// after every processed block.
func NewMixer(format Format, clock Clock, options ...MixerOption) (*Mixer, error) {
	if err := format.validate(); err != nil {
		return nil, fmt.Errorf("mixer %+v: %w", format, err)
	}
	m := &Mixer{
		id:     xid.New().String(),
		log:    log.GetLogger(),
		format: format,
		clock:  clock,
		gain:   1,
	}
	for _, option := range options {
		option(m)
	}
	m.producers.Store(&[]Producer{})
	m.measure = metric.Meter(m, format.SampleRate)()
	m.dropped = metric.Counter(m, metric.DroppedEventCounter)
	return m, nil
}

// ID returns the id of the mixer.
func (m *Mixer) ID() string {
	return m.id
}

// Format returns the format of processed blocks.
func (m *Mixer) Format() Format {
	return m.format
}

// Engage prepares the producer and adds it to the mix starting with the
// next block.
func (m *Mixer) Engage(p Producer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed.Load() {
		return ErrClosed
	}
	current := *m.producers.Load()
	for _, engaged := range current {
		if engaged.ID() != p.ID() {
			continue
		}
		if engaged != p {
			return fmt.Errorf("engage %s: %w", p.ID(), ErrEngaged)
		}
		return nil
	}
	p.Prepare(m.format)
	next := make([]Producer, 0, len(current)+1)
	next = append(next, current...)
	next = append(next, p)
	m.producers.Store(&next)
	m.log.WithField("mixer", m.id).WithField("producer", p.ID()).Debug("engaged")
	return nil
}

// Disengage removes the producer from the mix starting with the next
// block.
func (m *Mixer) Disengage(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current := *m.producers.Load()
	next := make([]Producer, 0, len(current))
	for _, p := range current {
		if p.ID() != id {
			next = append(next, p)
		}
	}
	if len(next) == len(current) {
		return nil
	}
	m.producers.Store(&next)
	m.log.WithField("mixer", m.id).WithField("producer", id).Debug("disengaged")
	return nil
}

// Engaged reports if producer with provided id is engaged.
func (m *Mixer) Engaged(id string) bool {
	for _, p := range *m.producers.Load() {
		if p.ID() == id {
			return true
		}
	}
	return false
}

// Process computes the next block into out and events, then advances the
// clock by the block. It's called from the real-time context.
func (m *Mixer) Process(out signal.Float64, events *supply.EventList) {
	frames := out.Size()
	out.Clear(0, frames)
	if events != nil {
		events.Reset()
	}
	for _, p := range *m.producers.Load() {
		o := p.Produce(m.clock)
		sum(out, o.Audio, o.Route.Channel)
		if events == nil || o.Events == nil {
			continue
		}
		for _, e := range o.Events.Events() {
			events.Add(e.Frame, e.Message)
		}
	}
	out.Scale(m.gain)
	if events != nil && events.Dropped() > 0 {
		m.dropped.Add(int64(events.Dropped()))
	}
	m.clock.Advance(frames, m.format.SampleRate)
	m.measure(int64(frames))
}

// Close disengages all producers and closes the ones that implement
// io.Closer.
func (m *Mixer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed.Swap(true) {
		return nil
	}
	current := *m.producers.Load()
	m.producers.Store(&[]Producer{})
	var errs Errors
	for _, p := range current {
		if c, ok := p.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", p.ID(), err))
			}
		}
	}
	return errs.Ret()
}

// sum adds every channel of in to out starting at channel route. Channels
// and frames that don't fit are dropped.
func sum(out, in signal.Float64, route int) {
	if route < 0 {
		return
	}
	for c := range in {
		oc := route + c
		if oc >= len(out) {
			return
		}
		n := min(len(in[c]), len(out[oc]))
		for i := 0; i < n; i++ {
			out[oc][i] += in[c][i]
		}
	}
}
