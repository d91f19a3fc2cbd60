// Package host connects producers of audio and MIDI blocks to an output.
//
// A host drives the real-time path: once per block it asks every engaged
// producer for its output, sums audio onto the routed channels, collects
// MIDI events and advances the clock. Engagement is done from the control
// context and never blocks the real-time path.
package host

import (
	"errors"
	"strings"

	"pipelined.dev/clip/signal"
	"pipelined.dev/clip/supply"
	"pipelined.dev/clip/timeline"
)

var (
	// ErrEngaged is returned when another producer is already engaged
	// with the same id.
	ErrEngaged = errors.New("another producer engaged with the same id")
	// ErrClosed is returned when producer is engaged with a closed host.
	ErrClosed = errors.New("host closed")
	// ErrInvalidFormat is returned when host is created with a format
	// that can't carry audio.
	ErrInvalidFormat = errors.New("invalid format")
)

// Format describes blocks processed by a host.
type Format struct {
	SampleRate  float64
	NumChannels int
	BlockSize   int
}

func (f Format) validate() error {
	if f.SampleRate <= 0 || f.NumChannels <= 0 || f.BlockSize <= 0 {
		return ErrInvalidFormat
	}
	return nil
}

// Route is the first output channel a producer writes to. Channels of
// the producer are mapped to consecutive output channels and the ones that
// don't fit are dropped.
type Route struct {
	Channel int
}

// Output is the result of a single Produce call. Audio and Events are
// owned by the producer and only valid until the next call.
type Output struct {
	Audio  signal.Float64
	Events *supply.EventList
	Route
}

// Producer provides blocks to a host.
type Producer interface {
	// ID identifies the producer within a host.
	ID() string
	// Prepare is called once on engagement, before the first Produce,
	// from the control context.
	Prepare(Format)
	// Produce computes the next block. It's called from the real-time
	// context and must not block.
	Produce(timeline.Timeline) Output
}

// Engager attaches producers to a host.
type Engager interface {
	// Engage attaches the producer. Engaging the same producer twice has
	// no effect.
	Engage(Producer) error
	// Disengage detaches the producer with provided id. Unknown ids are
	// ignored.
	Disengage(id string) error
}

// Clock is a timeline the host advances after every block.
type Clock interface {
	timeline.Timeline
	Advance(frames int, sampleRate float64)
}

// Errors wraps errors that might occur when multiple components fail.
type Errors []error

func (e Errors) Error() string {
	s := make([]string, 0, len(e))
	for _, se := range e {
		s = append(s, se.Error())
	}
	return strings.Join(s, ",")
}

// Unwrap allows errors.Is and errors.As to inspect wrapped errors.
func (e Errors) Unwrap() []error {
	return e
}

// Ret returns untyped nil if error list is empty.
func (e Errors) Ret() error {
	if len(e) > 0 {
		return e
	}
	return nil
}
