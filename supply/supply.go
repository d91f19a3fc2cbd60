// Package supply provides composable stream transforms that fill blocks of
// audio frames or MIDI events from a source-relative frame position.
//
// Every supplier is deterministic: the output depends only on the request,
// the destination buffer and the supplier configuration. Callers advance
// positions themselves using the consumed frame count of each response.
//
// Suppliers are composed into a Chain: Section -> Looper -> Stretcher, where
// the Stretcher is the head queried by the transport.
package supply

import (
	"pipelined.dev/clip/signal"
)

const (
	// MidiFrameRate is the virtual frame rate of MIDI material.
	MidiFrameRate = 1024000.0
	// MidiBaseBPM is the nominal tempo of MIDI material.
	MidiBaseBPM = 120.0
	// MidiFramesPerBeat is the number of MIDI frames in one beat at the
	// nominal tempo.
	MidiFramesPerBeat = MidiFrameRate * 60 / MidiBaseBPM
	// MinTempoFactor is the lowest tempo factor a stretcher accepts.
	MinTempoFactor = 0.0000000001
)

// Status tells if a supplier has more material.
type Status int

const (
	// Continue means there is more material after this block.
	Continue Status = iota
	// ReachedEnd means the material ended within this block.
	ReachedEnd
)

func (s Status) String() string {
	if s == ReachedEnd {
		return "reached end"
	}
	return "continue"
}

// Request describes which frames a supplier should provide.
type Request struct {
	// StartFrame is the source-relative frame to start from. Negative
	// values are count-in and result in silence.
	StartFrame int
	// DestSampleRate is the sample rate of the destination block.
	DestSampleRate float64
	// DestFrames is the number of destination frames requested. Audio
	// suppliers use the size of the destination buffer instead.
	DestFrames int
	// BlockOffset is added to frames of produced MIDI events.
	BlockOffset int
}

// Response reports what a supplier did.
type Response struct {
	// Consumed is the number of frames consumed from the inner supplier.
	Consumed int
	// Written is the number of destination frames that carry material.
	Written int
	Status
}

// exceededEnd is returned when request starts after the end of material.
func exceededEnd() Response {
	return Response{Status: ReachedEnd}
}

// Supplier provides audio or MIDI material.
type Supplier interface {
	// SupplyAudio fills dst with frames. Frames that carry no material
	// are silenced.
	SupplyAudio(req Request, dst signal.Float64) Response
	// SupplyMidi appends events of requested frames to events.
	SupplyMidi(req Request, events *EventList) Response
	// FrameCount returns the exact number of frames of material.
	FrameCount() int
	// FrameRate returns the frame rate of material.
	FrameRate() float64
	// NumChannels returns the number of audio channels.
	NumChannels() int
}
