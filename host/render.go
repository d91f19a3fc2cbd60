package host

import (
	"context"
	"fmt"
	"time"

	"pipelined.dev/clip/signal"
	"pipelined.dev/clip/supply"
)

// Sink consumes rendered blocks.
type Sink interface {
	Write(signal.Float64) error
}

// EventSink is implemented by sinks that also consume MIDI events.
type EventSink interface {
	WriteEvents(offset int, events []supply.Event) error
}

// Render processes blocks of the mixer without a device until duration
// is rendered or context is done. The last block is truncated to the
// duration. The clock must be started by the caller.
func Render(ctx context.Context, m *Mixer, duration time.Duration, sink Sink) (int, error) {
	f := m.Format()
	total := signal.FramesOf(f.SampleRate, duration.Seconds())
	out := signal.EmptyFloat64(f.NumChannels, f.BlockSize)
	events := supply.NewEventList(eventCapacity)
	view := make(signal.Float64, 0, f.NumChannels)
	es, hasEvents := sink.(EventSink)

	rendered := 0
	for rendered < total {
		if err := ctx.Err(); err != nil {
			return rendered, err
		}
		m.Process(out, events)
		n := min(f.BlockSize, total-rendered)
		if err := sink.Write(out.FramesInto(view, 0, n)); err != nil {
			return rendered, fmt.Errorf("render at frame %d: %w", rendered, err)
		}
		if hasEvents && events.Len() > 0 {
			if err := es.WriteEvents(rendered, events.Events()); err != nil {
				return rendered, fmt.Errorf("render events at frame %d: %w", rendered, err)
			}
		}
		rendered += n
	}
	return rendered, nil
}

// eventCapacity is the size of event lists allocated by hosts.
const eventCapacity = 1024
